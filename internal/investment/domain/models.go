package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// Investment is the durable record of cumulative invested amount per
// (user, project) pair. Amounts only grow; records are never deleted
// or split.
type Investment struct {
	ID        snowflake.ID    `gorm:"primaryKey" json:"id"`
	UserID    snowflake.ID    `gorm:"not null;uniqueIndex:ux_investments_user_project,priority:1" json:"userId"`
	ProjectID snowflake.ID    `gorm:"not null;uniqueIndex:ux_investments_user_project,priority:2" json:"projectId"`
	Amount    decimal.Decimal `gorm:"type:numeric(30,10);not null" json:"amount"`
	CreatedAt time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Investment) TableName() string { return "investments" }

// Posting records one applied settlement. Reference is the settlement's
// idempotency key: re-applying the same posting is a no-op, so a failed
// ledger write can be retried without double-counting.
type Posting struct {
	ID        snowflake.ID    `gorm:"primaryKey" json:"id"`
	Reference string          `gorm:"not null;uniqueIndex:ux_investment_postings_reference" json:"reference"`
	UserID    snowflake.ID    `gorm:"not null" json:"userId"`
	ProjectID snowflake.ID    `gorm:"not null" json:"projectId"`
	Amount    decimal.Decimal `gorm:"type:numeric(30,10);not null" json:"amount"`
	CreatedAt time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the database table name.
func (Posting) TableName() string { return "investment_postings" }
