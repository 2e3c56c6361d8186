package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "indexfund.v1.IndexFundService"

const (
	MethodDeposit         = "/" + ServiceName + "/Deposit"
	MethodGetFund         = "/" + ServiceName + "/GetFund"
	MethodListDeposits    = "/" + ServiceName + "/ListDeposits"
	MethodGetShareBalance = "/" + ServiceName + "/GetShareBalance"
)

// IndexFundServer is the server API for the IndexFundService. Requests and
// responses are google.protobuf.Struct messages.
type IndexFundServer interface {
	Deposit(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	GetFund(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	ListDeposits(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	GetShareBalance(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

// ServiceDesc describes the IndexFundService for grpc.Server registration.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*IndexFundServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Deposit", Handler: unaryHandler(MethodDeposit, IndexFundServer.Deposit)},
		{MethodName: "GetFund", Handler: unaryHandler(MethodGetFund, IndexFundServer.GetFund)},
		{MethodName: "ListDeposits", Handler: unaryHandler(MethodListDeposits, IndexFundServer.ListDeposits)},
		{MethodName: "GetShareBalance", Handler: unaryHandler(MethodGetShareBalance, IndexFundServer.GetShareBalance)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "indexfund/v1/indexfund.proto",
}

// RegisterIndexFundServer registers srv with s.
func RegisterIndexFundServer(s grpc.ServiceRegistrar, srv IndexFundServer) {
	s.RegisterService(&ServiceDesc, srv)
}

type unaryMethod func(IndexFundServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unaryHandler(fullMethod string, call unaryMethod) func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(IndexFundServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(IndexFundServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// Client is the client API for the IndexFundService.
type Client struct {
	cc grpc.ClientConnInterface
}

// NewClient creates a client on top of an established connection.
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

func (c *Client) invoke(ctx context.Context, method string, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	if in == nil {
		in = &structpb.Struct{}
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// Deposit calls IndexFundService.Deposit.
func (c *Client) Deposit(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, MethodDeposit, in, opts...)
}

// GetFund calls IndexFundService.GetFund.
func (c *Client) GetFund(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, MethodGetFund, in, opts...)
}

// ListDeposits calls IndexFundService.ListDeposits.
func (c *Client) ListDeposits(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, MethodListDeposits, in, opts...)
}

// GetShareBalance calls IndexFundService.GetShareBalance.
func (c *Client) GetShareBalance(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, MethodGetShareBalance, in, opts...)
}
