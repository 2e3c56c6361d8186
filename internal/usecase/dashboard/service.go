package dashboard

import (
	"context"
	"errors"
	"fmt"

	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"

	"github.com/oleksiishulzhenko/indexfund/internal/domain"
	"github.com/oleksiishulzhenko/indexfund/internal/usecase/valuation"
)

// navPrecision is the number of decimals NAV per share is rounded to
const navPrecision = 18

// ShareReader is the read side of the share token
type ShareReader interface {
	TotalSupply(ctx context.Context) (*uint256.Int, error)
	BalanceOf(account domain.Account) *uint256.Int
}

// Holding is one registry entry priced at current oracle prices
type Holding struct {
	AssetID  domain.AssetID
	Position int
	Balance  *uint256.Int
	Price    *uint256.Int
	Value    *uint256.Int
	Priced   bool // false when the oracle no longer supports the asset
}

// FundSummary represents the calculated fund state
type FundSummary struct {
	TotalValue   *uint256.Int
	TotalSupply  *uint256.Int
	NAVPerShare  decimal.Decimal // valuation units per whole share
	DepositCount int
	Holdings     []Holding
}

// DashboardService handles fund reporting operations
type DashboardService struct {
	Valuation   *valuation.Engine
	Shares      ShareReader
	DepositRepo domain.DepositRepository

	// View, when set, runs reads so they never interleave with a deposit
	View func(fn func() error) error
}

// NewDashboardService creates a new DashboardService instance
func NewDashboardService(
	engine *valuation.Engine,
	shares ShareReader,
	depositRepo domain.DepositRepository,
) *DashboardService {
	return &DashboardService{
		Valuation:   engine,
		Shares:      shares,
		DepositRepo: depositRepo,
	}
}

// GetFund calculates the fund summary
// Logic:
//   - Holdings: every registry entry in insertion order with price and value
//   - TotalValue: sum of priced holding values
//   - NAVPerShare: TotalValue / TotalSupply (zero while no shares exist)
func (s *DashboardService) GetFund(ctx context.Context) (*FundSummary, error) {
	summary := &FundSummary{TotalValue: uint256.NewInt(0)}

	err := s.view(func() error {
		supply, err := s.Shares.TotalSupply(ctx)
		if err != nil {
			return fmt.Errorf("failed to read share supply: %w", err)
		}
		summary.TotalSupply = supply

		for _, asset := range s.Valuation.Registry.Assets() {
			holding := Holding{
				AssetID:  asset.ID,
				Position: asset.Position,
				Balance:  asset.Balance,
				Price:    uint256.NewInt(0),
				Value:    uint256.NewInt(0),
			}

			price, err := s.Valuation.PriceOf(ctx, asset.ID)
			switch {
			case errors.Is(err, domain.ErrUnsupportedAsset):
				// Reported unpriced rather than failing the whole summary
			case err != nil:
				return err
			default:
				value, err := s.Valuation.ValueAt(asset.Balance, price)
				if err != nil {
					return err
				}
				total, err := domain.CheckedAdd(summary.TotalValue, value)
				if err != nil {
					return err
				}
				holding.Price, holding.Value, holding.Priced = price, value, true
				summary.TotalValue = total
			}
			summary.Holdings = append(summary.Holdings, holding)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	count, err := s.DepositRepo.Count(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to count deposits: %w", err)
	}
	summary.DepositCount = count

	summary.NAVPerShare = NAVPerShare(summary.TotalValue, summary.TotalSupply)
	return summary, nil
}

// NAVPerShare divides value by supply. Both are base units with the same
// number of decimals, so the ratio is already in valuation units per share.
func NAVPerShare(value, supply *uint256.Int) decimal.Decimal {
	if supply == nil || supply.IsZero() || value == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(value.ToBig(), 0).
		DivRound(decimal.NewFromBigInt(supply.ToBig(), 0), navPrecision)
}

// VerifySupply checks that the shares recorded in the deposit ledger add
// up to the token's total supply
func (s *DashboardService) VerifySupply(ctx context.Context) error {
	return s.view(func() error {
		ledger, err := s.DepositRepo.TotalShares(ctx)
		if err != nil {
			return fmt.Errorf("failed to sum ledger shares: %w", err)
		}
		supply, err := s.Shares.TotalSupply(ctx)
		if err != nil {
			return fmt.Errorf("failed to read share supply: %w", err)
		}
		if !ledger.Eq(supply) {
			return fmt.Errorf("%w: ledger %s, token %s", domain.ErrSupplyMismatch, ledger.Dec(), supply.Dec())
		}
		return nil
	})
}

// ShareBalance returns the share balance of an account
func (s *DashboardService) ShareBalance(account domain.Account) (*uint256.Int, error) {
	if err := account.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidDeposit, err)
	}
	return s.Shares.BalanceOf(account), nil
}

func (s *DashboardService) view(fn func() error) error {
	if s.View == nil {
		return fn()
	}
	return s.View(fn)
}
