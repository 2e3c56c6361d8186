package domain

import (
	"errors"
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func u(v uint64) *uint256.Int {
	return uint256.NewInt(v)
}

func maxUint256() *uint256.Int {
	return new(uint256.Int).SetAllOne()
}

func TestAssetRegistry_RecordDeposit(t *testing.T) {
	registry := NewAssetRegistry()

	// First deposit inserts the asset
	balance, err := registry.RecordDeposit("A", u(100))
	require.NoError(t, err)
	assert.Equal(t, u(100), balance)
	assert.Equal(t, 1, registry.Len())

	// Second deposit of the same asset increments it
	balance, err = registry.RecordDeposit("A", u(50))
	require.NoError(t, err)
	assert.Equal(t, u(150), balance)
	assert.Equal(t, 1, registry.Len())

	// A new asset is appended after the first one
	_, err = registry.RecordDeposit("B", u(7))
	require.NoError(t, err)

	assets := registry.Assets()
	require.Len(t, assets, 2)
	assert.Equal(t, AssetID("A"), assets[0].ID)
	assert.Equal(t, 0, assets[0].Position)
	assert.Equal(t, u(150), assets[0].Balance)
	assert.Equal(t, AssetID("B"), assets[1].ID)
	assert.Equal(t, 1, assets[1].Position)
}

func TestAssetRegistry_RecordDeposit_DoesNotAliasAmount(t *testing.T) {
	registry := NewAssetRegistry()
	amount := u(10)

	_, err := registry.RecordDeposit("A", amount)
	require.NoError(t, err)

	// Mutating the caller's value must not leak into the registry
	amount.SetUint64(999)

	got, ok := registry.Get("A")
	require.True(t, ok)
	assert.Equal(t, u(10), got.Balance)
}

func TestAssetRegistry_RecordDeposit_Overflow(t *testing.T) {
	registry := NewAssetRegistry()
	_, err := registry.RecordDeposit("A", maxUint256())
	require.NoError(t, err)

	_, err = registry.RecordDeposit("A", u(1))
	assert.ErrorIs(t, err, ErrArithmeticOverflow)

	// Balance unchanged after the rejected increment
	got, _ := registry.Get("A")
	assert.Equal(t, maxUint256(), got.Balance)
}

func TestAssetRegistry_BalanceAfter(t *testing.T) {
	registry := NewAssetRegistry()
	_, err := registry.RecordDeposit("A", u(100))
	require.NoError(t, err)

	existing, err := registry.BalanceAfter("A", u(25))
	require.NoError(t, err)
	assert.Equal(t, 0, existing.Position)
	assert.Equal(t, u(125), existing.Balance)

	fresh, err := registry.BalanceAfter("B", u(5))
	require.NoError(t, err)
	assert.Equal(t, 1, fresh.Position)
	assert.Equal(t, u(5), fresh.Balance)

	// Previews never mutate
	assert.Equal(t, 1, registry.Len())
	got, _ := registry.Get("A")
	assert.Equal(t, u(100), got.Balance)
}

func TestAssetRegistry_TotalValue(t *testing.T) {
	registry := NewAssetRegistry()
	_, _ = registry.RecordDeposit("A", u(100_000))
	_, _ = registry.RecordDeposit("B", u(25_000))
	_, _ = registry.RecordDeposit("C", u(50_000))

	prices := map[AssetID]*uint256.Int{"A": u(1), "B": u(2), "C": u(1)}
	var order []AssetID
	priceOf := func(id AssetID) (*uint256.Int, error) {
		order = append(order, id)
		return prices[id], nil
	}

	total, err := registry.TotalValue(priceOf, nil)
	require.NoError(t, err)
	assert.Equal(t, u(200_000), total)

	// Summation follows insertion order
	assert.Equal(t, []AssetID{"A", "B", "C"}, order)
}

func TestAssetRegistry_TotalValue_Scaled(t *testing.T) {
	scale, err := Pow10(18)
	require.NoError(t, err)

	amount, err := ParseUnits("100000", 18)
	require.NoError(t, err)
	price, err := ParseUnits("2", 18)
	require.NoError(t, err)

	registry := NewAssetRegistry()
	_, err = registry.RecordDeposit("A", amount)
	require.NoError(t, err)

	total, err := registry.TotalValue(func(AssetID) (*uint256.Int, error) { return price, nil }, scale)
	require.NoError(t, err)

	want, _ := ParseUnits("200000", 18)
	assert.Equal(t, want, total)
}

func TestAssetRegistry_TotalValue_Deterministic(t *testing.T) {
	registry := NewAssetRegistry()
	_, _ = registry.RecordDeposit("A", u(123_456_789))
	_, _ = registry.RecordDeposit("B", u(987_654_321))
	priceOf := func(id AssetID) (*uint256.Int, error) {
		if id == "A" {
			return u(3), nil
		}
		return u(7), nil
	}

	first, err := registry.TotalValue(priceOf, u(2))
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := registry.TotalValue(priceOf, u(2))
		require.NoError(t, err)
		assert.Equal(t, first.Bytes32(), again.Bytes32())
	}
}

func TestAssetRegistry_TotalValue_Errors(t *testing.T) {
	tests := []struct {
		name    string
		balance *uint256.Int
		price   *uint256.Int
		priceEr error
		wantErr error
	}{
		{
			name:    "price lookup failure is propagated",
			balance: u(1),
			priceEr: ErrUnsupportedAsset,
			wantErr: ErrUnsupportedAsset,
		},
		{
			name:    "product overflow",
			balance: maxUint256(),
			price:   u(2),
			wantErr: ErrArithmeticOverflow,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			registry := NewAssetRegistry()
			_, err := registry.RecordDeposit("A", tt.balance)
			require.NoError(t, err)

			_, err = registry.TotalValue(func(AssetID) (*uint256.Int, error) {
				return tt.price, tt.priceEr
			}, nil)
			assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
		})
	}
}

func TestAssetRegistry_TotalValue_SumOverflow(t *testing.T) {
	registry := NewAssetRegistry()
	_, _ = registry.RecordDeposit("A", maxUint256())
	_, _ = registry.RecordDeposit("B", u(1))

	_, err := registry.TotalValue(func(AssetID) (*uint256.Int, error) { return u(1), nil }, nil)
	assert.ErrorIs(t, err, ErrArithmeticOverflow)
}

func TestAssetRegistry_TotalValue_Empty(t *testing.T) {
	registry := NewAssetRegistry()
	total, err := registry.TotalValue(func(AssetID) (*uint256.Int, error) {
		t.Fatal("oracle must not be called for an empty registry")
		return nil, nil
	}, nil)
	require.NoError(t, err)
	assert.True(t, total.IsZero())
}

func TestAssetRegistry_Restore(t *testing.T) {
	registry := NewAssetRegistry()
	err := registry.Restore([]*Asset{
		{ID: "B", Position: 1, Balance: u(20)},
		{ID: "A", Position: 0, Balance: u(10)},
	})
	require.NoError(t, err)

	assets := registry.Assets()
	require.Len(t, assets, 2)
	assert.Equal(t, AssetID("A"), assets[0].ID)
	assert.Equal(t, AssetID("B"), assets[1].ID)

	// New assets continue after the restored ones
	_, err = registry.RecordDeposit("C", u(1))
	require.NoError(t, err)
	got, _ := registry.Get("C")
	assert.Equal(t, 2, got.Position)
}

func TestAssetRegistry_Restore_Rejects(t *testing.T) {
	t.Run("duplicate ids", func(t *testing.T) {
		registry := NewAssetRegistry()
		err := registry.Restore([]*Asset{
			{ID: "A", Position: 0, Balance: u(1)},
			{ID: "A", Position: 1, Balance: u(2)},
		})
		assert.Error(t, err)
		assert.Equal(t, 0, registry.Len())
	})

	t.Run("populated registry", func(t *testing.T) {
		registry := NewAssetRegistry()
		_, _ = registry.RecordDeposit("A", u(1))
		err := registry.Restore([]*Asset{{ID: "B", Balance: u(1)}})
		assert.Error(t, err)
	})

	t.Run("invalid holding", func(t *testing.T) {
		registry := NewAssetRegistry()
		err := registry.Restore([]*Asset{{ID: "", Balance: u(1)}})
		assert.Error(t, err)
	})
}
