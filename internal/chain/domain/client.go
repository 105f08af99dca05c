package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// Query exposes the read-only on-chain accessors. Every read is live;
// nothing is cached or indexed ahead of a request.
type Query interface {
	// GetBalance returns the share balance a wallet holds in a project.
	GetBalance(ctx context.Context, projectID snowflake.ID, address string) (decimal.Decimal, error)
	// GetAssets returns the asset amount a wallet holds in a project.
	GetAssets(ctx context.Context, projectID snowflake.ID, address string) (decimal.Decimal, error)
	GetClaimedRewards(ctx context.Context, projectID snowflake.ID, address string) (decimal.Decimal, error)
	GetClaimableAmount(ctx context.Context, projectID snowflake.ID, address string) (decimal.Decimal, error)
	// GetFundraising returns the project's total raised amount.
	GetFundraising(ctx context.Context, projectID snowflake.ID) (decimal.Decimal, error)
	// GetGivenRewards returns the total rewards a project has distributed.
	GetGivenRewards(ctx context.Context, projectID snowflake.ID) (decimal.Decimal, error)
}

// Receipt identifies a confirmed settlement. Reference is stable and
// unique per settlement; the ledger uses it as an idempotency key.
type Receipt struct {
	Reference string `json:"reference"`
	TxHash    string `json:"txHash,omitempty"`
}

// Settlement executes the on-chain purchase. The call either confirms
// (receipt returned) or fails; there is no pending state surfaced here.
type Settlement interface {
	Invest(ctx context.Context, projectID snowflake.ID, walletID, walletAddress string, amount decimal.Decimal) (Receipt, error)
}

var (
	ErrSettlementRejected = errors.New("settlement_rejected")
	ErrInvalidAddress     = errors.New("invalid_wallet_address")
	ErrRateLimited        = errors.New("chain_rpc_rate_limited")
)
