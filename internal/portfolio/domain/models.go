package domain

import (
	identitydomain "github.com/groundstone/terravest/internal/identity/domain"
	projectdomain "github.com/groundstone/terravest/internal/project/domain"
	"github.com/shopspring/decimal"
)

// InvestorEntry is one approved, held project in an investor's view.
type InvestorEntry struct {
	Project          projectdomain.Project `json:"project"`
	Amount           decimal.Decimal       `json:"amount"`
	Price            decimal.Decimal       `json:"price"`
	ClaimedRewards   decimal.Decimal       `json:"claimedRewards"`
	ClaimableRewards decimal.Decimal       `json:"claimableRewards"`
}

type InvestorTotal struct {
	Investment decimal.Decimal `json:"investment"`
	Claimed    decimal.Decimal `json:"claimed"`
	Claimable  decimal.Decimal `json:"claimable"`
}

type InvestorView struct {
	Total InvestorTotal   `json:"total"`
	Data  []InvestorEntry `json:"data"`
	// Skipped counts projects omitted because a chain read failed, so
	// partial results are observable rather than silent.
	Skipped int `json:"skipped,omitempty"`
}

type OwnerEntry struct {
	Project      projectdomain.Project `json:"project"`
	Fundraising  decimal.Decimal       `json:"fundraising"`
	GivenRewards decimal.Decimal       `json:"givenRewards"`
}

type OwnerTotal struct {
	Fundraising decimal.Decimal `json:"fundraising"`
	Rewards     decimal.Decimal `json:"rewards"`
}

type OwnerView struct {
	Data    []OwnerEntry `json:"data"`
	Total   OwnerTotal   `json:"total"`
	Skipped int          `json:"skipped,omitempty"`
}

// View holds exactly one role branch.
type View struct {
	Role     identitydomain.Role `json:"role"`
	Investor *InvestorView       `json:"investor,omitempty"`
	Owner    *OwnerView          `json:"owner,omitempty"`
}
