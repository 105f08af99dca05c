package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

type InvestRequest struct {
	UserID    snowflake.ID
	ProjectID snowflake.ID
	Amount    decimal.Decimal
}

type InvestResult struct {
	Reference string          `json:"reference"`
	Amount    decimal.Decimal `json:"amount"`
	// Total is the cumulative ledger amount for the pair after this
	// purchase, when it could be read back.
	Total decimal.Decimal `json:"total"`
}

type Service interface {
	// Invest settles the purchase on chain and records it in the
	// ledger. The ledger is only touched after settlement confirms;
	// a settlement failure leaves it untouched.
	Invest(ctx context.Context, req InvestRequest) (InvestResult, error)
}

var (
	ErrInvalidAmount = errors.New("invalid_amount")

	// ErrSettlementFailed means the chain rejected or never confirmed
	// the purchase. The ledger was not modified; retrying is safe.
	ErrSettlementFailed = errors.New("settlement_failed")

	// ErrLedgerWriteFailed means settlement confirmed but the ledger
	// increment could not be recorded: chain and ledger have diverged.
	// The posting is idempotent by reference, so reconciliation re-runs
	// it exactly once. Never conflate this with ErrSettlementFailed.
	ErrLedgerWriteFailed = errors.New("ledger_write_failed")
)
