package deposit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/holiman/uint256"

	"github.com/oleksiishulzhenko/indexfund/internal/domain"
	"github.com/oleksiishulzhenko/indexfund/internal/metrics"
	"github.com/oleksiishulzhenko/indexfund/internal/usecase/minting"
	"github.com/oleksiishulzhenko/indexfund/internal/usecase/valuation"
)

// Input represents a deposit request
type Input struct {
	Depositor domain.Account
	AssetID   domain.AssetID
	Amount    *uint256.Int // asset base units
}

// Service accepts deposits and mints index shares for them
type Service struct {
	Registry    *domain.AssetRegistry
	Valuation   *valuation.Engine
	Policy      domain.MintingPolicy
	Token       domain.ShareToken
	DepositRepo domain.DepositRepository
	Metrics     *metrics.FundMetrics
	Logger      *slog.Logger

	// ShareDecimals is the display precision used for metrics
	ShareDecimals int32

	// mu serializes deposits; each one sees every earlier one
	mu  sync.Mutex
	now func() time.Time
}

// NewService creates a new Service instance
func NewService(
	registry *domain.AssetRegistry,
	engine *valuation.Engine,
	policy domain.MintingPolicy,
	token domain.ShareToken,
	depositRepo domain.DepositRepository,
) *Service {
	return &Service{
		Registry:    registry,
		Valuation:   engine,
		Policy:      policy,
		Token:       token,
		DepositRepo: depositRepo,
		Logger:      slog.Default(),
		now:         time.Now,
	}
}

// Deposit prices a deposit, records it and mints the shares it is worth
// Logic:
//  1. Price the asset (zero price rejects as unsupported)
//  2. Value the deposit and apply the minimum gate
//  3. Snapshot fund value and share supply before anything changes
//  4. Compute shares from the snapshot; zero shares is rejected
//  5. Preview the new holding so overflow is caught up front
//  6. Persist ledger row + holding and mint, all in one transaction
//  7. Apply the holding to the in-memory registry
//
// Every rejection happens before step 6, so a rejected deposit leaves the
// registry, the ledger and the share supply untouched.
func (s *Service) Deposit(ctx context.Context, input Input) (*domain.Deposit, error) {
	start := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	d, err := s.deposit(ctx, input)
	if err != nil {
		s.reject(ctx, input, err, time.Since(start))
		return nil, err
	}

	s.Metrics.ObserveDeposit(string(d.AssetID), d.Shares,
		new(uint256.Int).Add(d.SupplyBefore, d.Shares),
		new(uint256.Int).Add(d.FundValueBefore, d.Valuation),
		s.ShareDecimals, s.Registry.Len(), time.Since(start))

	s.logger().InfoContext(ctx, "deposit accepted",
		slog.String("deposit_id", d.ID.String()),
		slog.String("depositor", string(d.Depositor)),
		slog.String("asset", string(d.AssetID)),
		slog.String("amount", d.Amount.Dec()),
		slog.String("valuation", d.Valuation.Dec()),
		slog.String("shares", d.Shares.Dec()),
	)
	return d, nil
}

func (s *Service) deposit(ctx context.Context, input Input) (*domain.Deposit, error) {
	if err := input.Depositor.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidDeposit, err)
	}
	if input.Amount == nil || input.Amount.IsZero() {
		return nil, fmt.Errorf("%w: deposit amount must be positive", domain.ErrInvalidDeposit)
	}
	holding := domain.Asset{ID: input.AssetID, Balance: input.Amount}
	if err := holding.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidDeposit, err)
	}

	// 1. Price lookup
	price, err := s.Valuation.PriceOf(ctx, input.AssetID)
	if err != nil {
		return nil, err
	}

	// 2. Deposit valuation and minimum gate
	valuationOf, err := s.Valuation.ValueAt(input.Amount, price)
	if err != nil {
		return nil, err
	}
	if err := minting.CheckMinimum(s.Policy, valuationOf); err != nil {
		return nil, err
	}

	// 3. Pre-deposit snapshot
	fundValueBefore, err := s.Valuation.FundValueBefore(ctx)
	if err != nil {
		return nil, err
	}
	supplyBefore, err := s.Token.TotalSupply(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read share supply: %w", err)
	}

	// 4. Shares from the snapshot
	shares, err := minting.SharesToMint(s.Policy, valuationOf, fundValueBefore, supplyBefore)
	if err != nil {
		return nil, err
	}
	if shares.IsZero() {
		return nil, fmt.Errorf("%w: deposit mints zero shares", domain.ErrDepositBelowMinimum)
	}

	// 5. Holding preview
	next, err := s.Registry.BalanceAfter(input.AssetID, input.Amount)
	if err != nil {
		return nil, err
	}

	d := &domain.Deposit{
		ID:              uuid.New(),
		Depositor:       input.Depositor,
		AssetID:         input.AssetID,
		Amount:          input.Amount.Clone(),
		Price:           price,
		Valuation:       valuationOf,
		FundValueBefore: fundValueBefore,
		SupplyBefore:    supplyBefore,
		Shares:          shares,
		CreatedAt:       s.clock().UTC(),
	}
	if err := d.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidDeposit, err)
	}

	// 6. Ledger, holding and mint commit together
	err = s.DepositRepo.Record(ctx, d, next, func(txCtx context.Context) error {
		if err := s.Token.Mint(txCtx, d.Depositor, d.Shares.Clone()); err != nil {
			return fmt.Errorf("failed to mint shares: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to record deposit: %w", err)
	}

	// 7. Registry update; the preview above already ruled out overflow
	if _, err := s.Registry.RecordDeposit(input.AssetID, input.Amount); err != nil {
		s.logger().ErrorContext(ctx, "registry diverged from ledger",
			slog.String("deposit_id", d.ID.String()),
			slog.Any("error", err),
		)
		return nil, err
	}

	return d, nil
}

func (s *Service) reject(ctx context.Context, input Input, err error, elapsed time.Duration) {
	kind := domain.ErrorKind(err)
	s.Metrics.ObserveRejection(kind, elapsed)

	amount := ""
	if input.Amount != nil {
		amount = input.Amount.Dec()
	}
	attrs := []any{
		slog.String("reason", kind),
		slog.String("depositor", string(input.Depositor)),
		slog.String("asset", string(input.AssetID)),
		slog.String("amount", amount),
		slog.Any("error", err),
	}

	// A degenerate fund cannot heal on its own and needs an operator
	if errors.Is(err, domain.ErrDegenerateFundState) || kind == "internal" {
		s.logger().ErrorContext(ctx, "deposit failed", attrs...)
		return
	}
	s.logger().WarnContext(ctx, "deposit rejected", attrs...)
}

// List returns a page of the deposit ledger and the total number of
// matching deposits. If depositor is nil, every deposit is considered.
func (s *Service) List(ctx context.Context, limit, offset int, depositor *domain.Account) ([]*domain.Deposit, int, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	deposits, err := s.DepositRepo.List(ctx, limit, offset, depositor)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list deposits: %w", err)
	}
	total, err := s.DepositRepo.Count(ctx, depositor)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count deposits: %w", err)
	}
	return deposits, total, nil
}

// View runs fn while no deposit is in flight, so fn observes the registry
// and the share supply at the same point in the deposit sequence.
func (s *Service) View(fn func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn()
}

func (s *Service) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.Default()
	}
	return s.Logger
}

func (s *Service) clock() time.Time {
	if s.now == nil {
		return time.Now()
	}
	return s.now()
}
