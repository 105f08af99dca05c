package domain_test

import (
	"testing"

	"github.com/groundstone/terravest/internal/project/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestUnitPriceDerivation(t *testing.T) {
	p := domain.Project{
		Valuation: domain.Valuation{
			AssetValue: decimal.NewFromInt(3_000_000),
			Tonnage:    decimal.NewFromInt(1000),
		},
	}
	require.True(t, p.UnitPrice().Equal(decimal.NewFromInt(3)),
		"expected 3, got %s", p.UnitPrice())
}

func TestUnitPriceFollowsValuationChanges(t *testing.T) {
	p := domain.Project{
		Valuation: domain.Valuation{
			AssetValue: decimal.NewFromInt(3_000_000),
			Tonnage:    decimal.NewFromInt(1000),
		},
	}
	before := p.UnitPrice()

	p.Valuation.AssetValue = decimal.NewFromInt(6_000_000)
	require.True(t, p.UnitPrice().Equal(before.Mul(decimal.NewFromInt(2))),
		"price is derived at read time, never cached")
}

func TestUnitPriceZeroTonnage(t *testing.T) {
	p := domain.Project{
		Valuation: domain.Valuation{AssetValue: decimal.NewFromInt(1_000_000)},
	}
	require.True(t, p.UnitPrice().IsZero())
}

func TestApproved(t *testing.T) {
	require.False(t, domain.Project{}.Approved())
	require.False(t, domain.Project{Allowance: 2}.Approved())
	require.True(t, domain.Project{Allowance: domain.AllowanceApproved}.Approved())
}
