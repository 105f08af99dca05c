package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

// Service resolves users. Account provisioning and KYC are owned by an
// external identity system; this service only reads.
type Service interface {
	FindUser(ctx context.Context, id snowflake.ID) (User, error)
}

var (
	ErrInvalidID     = errors.New("invalid_user_id")
	ErrUserNotFound  = errors.New("user_not_found")
	ErrWalletMissing = errors.New("wallet_missing")
)
