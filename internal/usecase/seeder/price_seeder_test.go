package seeder

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/oleksiishulzhenko/indexfund/internal/domain"
)

// MockPriceRepository is a mock implementation of PriceRepository
type MockPriceRepository struct {
	mock.Mock
}

func (m *MockPriceRepository) Add(ctx context.Context, point *domain.PricePoint) error {
	args := m.Called(ctx, point)
	return args.Error(0)
}

func (m *MockPriceRepository) GetLatest(ctx context.Context, id domain.AssetID) (*domain.PricePoint, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PricePoint), args.Error(1)
}

func notFound(id string) error {
	return fmt.Errorf("price of %s: %w", id, domain.ErrNotFound)
}

func TestPriceSeeder_Seed_PricesMissing(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockPriceRepository)
	seeder := NewPriceSeeder(mockRepo)
	fixed := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	seeder.now = func() time.Time { return fixed }

	mockRepo.On("GetLatest", ctx, domain.AssetID("A")).Return(nil, notFound("A"))
	mockRepo.On("GetLatest", ctx, domain.AssetID("B")).Return(nil, notFound("B"))
	mockRepo.On("Add", ctx, mock.MatchedBy(func(p *domain.PricePoint) bool {
		return (p.AssetID == "A" && p.Price.Eq(uint256.NewInt(1))) ||
			(p.AssetID == "B" && p.Price.Eq(uint256.NewInt(2)))
	})).Return(nil).Twice()

	n, err := seeder.Seed(ctx, []SeedPrice{
		{AssetID: "A", Price: uint256.NewInt(1)},
		{AssetID: "B", Price: uint256.NewInt(2)},
	})

	require.NoError(t, err)
	assert.Equal(t, 2, n)
	mockRepo.AssertExpectations(t)
}

func TestPriceSeeder_Seed_PricesExist(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockPriceRepository)
	seeder := NewPriceSeeder(mockRepo)

	existing := &domain.PricePoint{AssetID: "A", Price: uint256.NewInt(3)}
	mockRepo.On("GetLatest", ctx, domain.AssetID("A")).Return(existing, nil)

	n, err := seeder.Seed(ctx, []SeedPrice{{AssetID: "A", Price: uint256.NewInt(1)}})

	require.NoError(t, err)
	assert.Equal(t, 0, n)
	mockRepo.AssertNotCalled(t, "Add", mock.Anything, mock.Anything)
}

func TestPriceSeeder_Seed_Refresh(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockPriceRepository)
	seeder := NewPriceSeeder(mockRepo)
	seeder.Refresh = true

	mockRepo.On("GetLatest", ctx, domain.AssetID("A")).Return(&domain.PricePoint{AssetID: "A", Price: uint256.NewInt(3)}, nil)
	mockRepo.On("GetLatest", ctx, domain.AssetID("B")).Return(&domain.PricePoint{AssetID: "B", Price: uint256.NewInt(2)}, nil)
	mockRepo.On("Add", ctx, mock.MatchedBy(func(p *domain.PricePoint) bool {
		return p.AssetID == "A" && p.Price.Eq(uint256.NewInt(1))
	})).Return(nil).Once()

	n, err := seeder.Seed(ctx, []SeedPrice{
		{AssetID: "A", Price: uint256.NewInt(1)},
		{AssetID: "B", Price: uint256.NewInt(2)},
	})

	require.NoError(t, err)
	assert.Equal(t, 1, n)
	mockRepo.AssertExpectations(t)
}

func TestPriceSeeder_Seed_Errors(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name   string
		prices []SeedPrice
		setup  func(m *MockPriceRepository)
		errMsg string
	}{
		{
			name:   "empty asset id",
			prices: []SeedPrice{{AssetID: " ", Price: uint256.NewInt(1)}},
			setup:  func(m *MockPriceRepository) {},
			errMsg: "asset id cannot be empty",
		},
		{
			name:   "missing price",
			prices: []SeedPrice{{AssetID: "A"}},
			setup:  func(m *MockPriceRepository) {},
			errMsg: "must be set",
		},
		{
			name:   "lookup failure",
			prices: []SeedPrice{{AssetID: "A", Price: uint256.NewInt(1)}},
			setup: func(m *MockPriceRepository) {
				m.On("GetLatest", ctx, domain.AssetID("A")).Return(nil, errors.New("database error"))
			},
			errMsg: "failed to get latest price",
		},
		{
			name:   "add failure",
			prices: []SeedPrice{{AssetID: "A", Price: uint256.NewInt(1)}},
			setup: func(m *MockPriceRepository) {
				m.On("GetLatest", ctx, domain.AssetID("A")).Return(nil, notFound("A"))
				m.On("Add", ctx, mock.Anything).Return(errors.New("database error"))
			},
			errMsg: "failed to seed price",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := new(MockPriceRepository)
			tt.setup(mockRepo)
			seeder := NewPriceSeeder(mockRepo)

			_, err := seeder.Seed(ctx, tt.prices)

			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}
