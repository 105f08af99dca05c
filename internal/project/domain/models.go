package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// AllowanceApproved is the registry's convention for an approved project.
// The flag's full value space is owned by the registry, not this service.
const AllowanceApproved = 1

// Valuation holds the asset parameters a share price derives from.
type Valuation struct {
	AssetValue decimal.Decimal `gorm:"column:asset_value;type:numeric(30,10)" json:"assetValue"`
	Tonnage    decimal.Decimal `gorm:"column:tonnage;type:numeric(30,10)" json:"tonnage"`
}

type Project struct {
	ID        snowflake.ID      `gorm:"primaryKey" json:"id"`
	Name      string            `gorm:"not null" json:"name"`
	OwnerID   snowflake.ID      `gorm:"not null;index" json:"ownerId"`
	Allowance int               `gorm:"not null;default:0" json:"allowance"`
	Valuation Valuation         `gorm:"embedded" json:"tokenization"`
	Metadata  datatypes.JSONMap `gorm:"type:jsonb;not null;default:'{}'" json:"metadata,omitempty"`
	CreatedAt time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Project) TableName() string { return "projects" }

// Approved reports whether the project is eligible for investor views.
func (p Project) Approved() bool {
	return p.Allowance == AllowanceApproved
}

var thousand = decimal.NewFromInt(1000)

// UnitPrice derives the per-share price from the stored valuation:
// assetValue / tonnage / 1000. Computed at read time, never cached.
func (p Project) UnitPrice() decimal.Decimal {
	if p.Valuation.Tonnage.IsZero() {
		return decimal.Zero
	}
	return p.Valuation.AssetValue.Div(p.Valuation.Tonnage).Div(thousand)
}
