package valuation

import (
	"context"
	"errors"
	"fmt"

	"github.com/holiman/uint256"

	"github.com/oleksiishulzhenko/indexfund/internal/domain"
)

// Engine values deposits and the fund's holdings against the price oracle
type Engine struct {
	Oracle   domain.PriceOracle
	Registry *domain.AssetRegistry

	// scale is 10^priceDecimals; oracle prices are fixed point with that many decimals
	scale *uint256.Int
}

// NewEngine creates a new Engine instance
func NewEngine(oracle domain.PriceOracle, registry *domain.AssetRegistry, priceDecimals uint8) (*Engine, error) {
	if oracle == nil {
		return nil, errors.New("price oracle is required")
	}
	if registry == nil {
		return nil, errors.New("asset registry is required")
	}

	scale, err := domain.Pow10(priceDecimals)
	if err != nil {
		return nil, fmt.Errorf("invalid price decimals: %w", err)
	}

	return &Engine{
		Oracle:   oracle,
		Registry: registry,
		scale:    scale,
	}, nil
}

// PriceOf returns the oracle price of an asset
// A zero or missing price is a hard rejection, never a zero valuation
func (e *Engine) PriceOf(ctx context.Context, id domain.AssetID) (*uint256.Int, error) {
	price, err := e.Oracle.GetPrice(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("%w: no price for %s", domain.ErrUnsupportedAsset, id)
		}
		return nil, fmt.Errorf("failed to get price of %s: %w", id, err)
	}

	if price == nil || price.IsZero() {
		return nil, fmt.Errorf("%w: price of %s is 0", domain.ErrUnsupportedAsset, id)
	}

	return price, nil
}

// ValueOf returns the valuation of amount units of an asset
func (e *Engine) ValueOf(ctx context.Context, id domain.AssetID, amount *uint256.Int) (*uint256.Int, error) {
	price, err := e.PriceOf(ctx, id)
	if err != nil {
		return nil, err
	}
	return e.ValueAt(amount, price)
}

// ValueAt values amount at an already validated price
func (e *Engine) ValueAt(amount, price *uint256.Int) (*uint256.Int, error) {
	return domain.Value(amount, price, e.scale)
}

// FundValueBefore returns the fund's total valuation at current prices
// Callers must invoke it before applying the deposit being priced
func (e *Engine) FundValueBefore(ctx context.Context) (*uint256.Int, error) {
	return e.Registry.TotalValue(func(id domain.AssetID) (*uint256.Int, error) {
		return e.PriceOf(ctx, id)
	}, e.scale)
}

// Scale returns the fixed point scale of oracle prices
func (e *Engine) Scale() *uint256.Int {
	return e.scale.Clone()
}
