package seed

import (
	"github.com/bwmarrin/snowflake"
	identitydomain "github.com/groundstone/terravest/internal/identity/domain"
	projectdomain "github.com/groundstone/terravest/internal/project/domain"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Fixed IDs keep re-runs idempotent across restarts.
var (
	demoInvestorID = snowflake.ID(7000000000000001)
	demoOwnerID    = snowflake.ID(7000000000000002)
	demoProjectAID = snowflake.ID(7100000000000001)
	demoProjectBID = snowflake.ID(7100000000000002)
	demoProjectCID = snowflake.ID(7100000000000003)
)

// EnsureDemoData inserts a small demo dataset for non-production
// environments. Existing rows are left untouched.
func EnsureDemoData(conn *gorm.DB) error {
	users := []identitydomain.User{
		{
			ID:    demoInvestorID,
			Email: "investor@demo.local",
			Role:  identitydomain.RoleInvestor,
			Wallet: identitydomain.Wallet{
				ID:      "demo-wallet-investor",
				Address: "0x70997970C51812dc3A010C7d01b50e0d17dc79C8",
			},
		},
		{
			ID:    demoOwnerID,
			Email: "owner@demo.local",
			Role:  identitydomain.RoleProjectOwner,
			Wallet: identitydomain.Wallet{
				ID:      "demo-wallet-owner",
				Address: "0x3C44CdDdB6a900fa2b585dd299e03d12FA4293BC",
			},
		},
	}

	projects := []projectdomain.Project{
		{
			ID:        demoProjectAID,
			Name:      "Teak Plantation Alpha",
			OwnerID:   demoOwnerID,
			Allowance: projectdomain.AllowanceApproved,
			Valuation: projectdomain.Valuation{
				AssetValue: decimal.NewFromInt(3_000_000),
				Tonnage:    decimal.NewFromInt(1000),
			},
		},
		{
			ID:        demoProjectBID,
			Name:      "Mahogany Estate Beta",
			OwnerID:   demoOwnerID,
			Allowance: projectdomain.AllowanceApproved,
			Valuation: projectdomain.Valuation{
				AssetValue: decimal.NewFromInt(5_500_000),
				Tonnage:    decimal.NewFromInt(2200),
			},
		},
		{
			// Pending approval, must never surface in investor views.
			ID:      demoProjectCID,
			Name:    "Sandalwood Grove Gamma",
			OwnerID: demoOwnerID,
			Valuation: projectdomain.Valuation{
				AssetValue: decimal.NewFromInt(900_000),
				Tonnage:    decimal.NewFromInt(450),
			},
		},
	}

	if err := conn.Clauses(clause.OnConflict{DoNothing: true}).Create(&users).Error; err != nil {
		return err
	}
	return conn.Clauses(clause.OnConflict{DoNothing: true}).Create(&projects).Error
}
