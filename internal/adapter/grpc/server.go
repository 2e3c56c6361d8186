package grpc

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/oleksiishulzhenko/indexfund/internal/domain"
	"github.com/oleksiishulzhenko/indexfund/internal/usecase/dashboard"
	"github.com/oleksiishulzhenko/indexfund/internal/usecase/deposit"
)

// Server implements the IndexFundService gRPC server
type Server struct {
	DepositService   *deposit.Service
	DashboardService *dashboard.DashboardService

	// ValueDecimals is used to render human readable amounts
	ValueDecimals int32
}

// NewServer creates a new gRPC server instance
func NewServer(
	depositService *deposit.Service,
	dashboardService *dashboard.DashboardService,
	valueDecimals int32,
) *Server {
	return &Server{
		DepositService:   depositService,
		DashboardService: dashboardService,
		ValueDecimals:    valueDecimals,
	}
}

// Deposit handles the Deposit RPC
// Request: {"depositor": string, "asset": string, "amount": base units as a decimal string}
func (s *Server) Deposit(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	fields := req.GetFields()

	amountStr := stringField(fields, "amount")
	if amountStr == "" {
		return nil, status.Errorf(codes.InvalidArgument, "amount is required")
	}
	amount, err := domain.ParseBaseUnits(amountStr)
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "invalid amount format: %v", err)
	}

	input := deposit.Input{
		Depositor: domain.Account(stringField(fields, "depositor")),
		AssetID:   domain.AssetID(stringField(fields, "asset")),
		Amount:    amount,
	}

	d, err := s.DepositService.Deposit(ctx, input)
	if err != nil {
		return nil, mapError(err)
	}

	return newStruct(depositToMap(d))
}

// GetFund handles the GetFund RPC
func (s *Server) GetFund(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	summary, err := s.DashboardService.GetFund(ctx)
	if err != nil {
		return nil, mapError(err)
	}

	return newStruct(fundToMap(summary, s.ValueDecimals))
}

// ListDeposits handles the ListDeposits RPC
// Request: {"limit": number, "offset": number, "depositor": optional string}
func (s *Server) ListDeposits(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	fields := req.GetFields()

	limit, err := intField(fields, "limit", 50)
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "invalid limit: %v", err)
	}
	if limit <= 0 {
		return nil, status.Errorf(codes.InvalidArgument, "limit must be positive")
	}

	offset, err := intField(fields, "offset", 0)
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "invalid offset: %v", err)
	}
	if offset < 0 {
		return nil, status.Errorf(codes.InvalidArgument, "offset must be non-negative")
	}

	var depositor *domain.Account
	if v := stringField(fields, "depositor"); v != "" {
		acc := domain.Account(v)
		depositor = &acc
	}

	deposits, total, err := s.DepositService.List(ctx, limit, offset, depositor)
	if err != nil {
		return nil, mapError(err)
	}

	items := make([]any, 0, len(deposits))
	for _, d := range deposits {
		items = append(items, depositToMap(d))
	}

	return newStruct(map[string]any{
		"deposits": items,
		"total":    total,
	})
}

// GetShareBalance handles the GetShareBalance RPC
func (s *Server) GetShareBalance(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	account := domain.Account(stringField(req.GetFields(), "account"))

	balance, err := s.DashboardService.ShareBalance(account)
	if err != nil {
		return nil, mapError(err)
	}

	return newStruct(map[string]any{
		"account":         string(account),
		"balance":         balance.Dec(),
		"balance_display": domain.FormatUnits(balance, s.ValueDecimals).String(),
	})
}

func depositToMap(d *domain.Deposit) map[string]any {
	return map[string]any{
		"deposit_id":        d.ID.String(),
		"depositor":         string(d.Depositor),
		"asset":             string(d.AssetID),
		"amount":            d.Amount.Dec(),
		"price":             d.Price.Dec(),
		"valuation":         d.Valuation.Dec(),
		"fund_value_before": d.FundValueBefore.Dec(),
		"supply_before":     d.SupplyBefore.Dec(),
		"shares":            d.Shares.Dec(),
		"created_at":        d.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
}

// fundToMap renders a fund summary with raw base unit strings and display values
func fundToMap(summary *dashboard.FundSummary, valueDecimals int32) map[string]any {
	holdings := make([]any, 0, len(summary.Holdings))
	for _, h := range summary.Holdings {
		holdings = append(holdings, map[string]any{
			"asset":    string(h.AssetID),
			"position": h.Position,
			"balance":  h.Balance.Dec(),
			"price":    h.Price.Dec(),
			"value":    h.Value.Dec(),
			"priced":   h.Priced,
		})
	}

	return map[string]any{
		"total_value":          summary.TotalValue.Dec(),
		"total_value_display":  domain.FormatUnits(summary.TotalValue, valueDecimals).String(),
		"total_supply":         summary.TotalSupply.Dec(),
		"total_supply_display": domain.FormatUnits(summary.TotalSupply, valueDecimals).String(),
		"nav_per_share":        summary.NAVPerShare.String(),
		"deposit_count":        summary.DepositCount,
		"holdings":             holdings,
	}
}

func newStruct(m map[string]any) (*structpb.Struct, error) {
	out, err := structpb.NewStruct(m)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "failed to encode response: %v", err)
	}
	return out, nil
}

func stringField(fields map[string]*structpb.Value, key string) string {
	return strings.TrimSpace(fields[key].GetStringValue())
}

func intField(fields map[string]*structpb.Value, key string, def int) (int, error) {
	v, ok := fields[key]
	if !ok {
		return def, nil
	}
	n, ok := v.GetKind().(*structpb.Value_NumberValue)
	if !ok {
		return 0, errors.New("must be a number")
	}
	if n.NumberValue != math.Trunc(n.NumberValue) || math.Abs(n.NumberValue) > math.MaxInt32 {
		return 0, errors.New("must be an integer")
	}
	return int(n.NumberValue), nil
}

// mapError maps domain errors to gRPC status codes
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}

	errorMsg := err.Error()

	switch {
	case errors.Is(err, domain.ErrUnsupportedAsset),
		errors.Is(err, domain.ErrDepositBelowMinimum),
		errors.Is(err, domain.ErrInvalidDeposit):
		return status.Errorf(codes.InvalidArgument, "%s", errorMsg)
	case errors.Is(err, domain.ErrArithmeticOverflow):
		return status.Errorf(codes.OutOfRange, "%s", errorMsg)
	case errors.Is(err, domain.ErrNotFound):
		return status.Errorf(codes.NotFound, "%s", errorMsg)
	case errors.Is(err, domain.ErrUnauthorized):
		return status.Errorf(codes.PermissionDenied, "%s", errorMsg)
	}

	// Degenerate fund state, supply mismatch and anything unexpected
	return status.Errorf(codes.Internal, "%s", errorMsg)
}

var _ IndexFundServer = (*Server)(nil)
