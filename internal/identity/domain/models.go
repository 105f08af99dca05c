package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Role determines which portfolio branch a user is served.
type Role string

const (
	RoleInvestor     Role = "investor"
	RoleProjectOwner Role = "prowner"
	RoleAdmin        Role = "admin"
)

// Wallet is the custodial wallet identity required for on-chain reads
// and settlement. Key material never passes through this service.
type Wallet struct {
	ID      string `gorm:"column:wallet_id" json:"id"`
	Address string `gorm:"column:wallet_address" json:"address"`
}

type User struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	Email     string       `gorm:"not null;uniqueIndex" json:"email"`
	Role      Role         `gorm:"type:text;not null;default:'investor'" json:"role"`
	Wallet    Wallet       `gorm:"embedded" json:"wallet"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (User) TableName() string { return "users" }

// HasWallet reports whether the user can transact on-chain.
func (u User) HasWallet() bool {
	return u.Wallet.Address != ""
}
