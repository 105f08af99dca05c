package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

// Service produces the consolidated, role-specific portfolio view from
// the registry and live chain reads.
type Service interface {
	GetPortfolio(ctx context.Context, userID snowflake.ID) (View, error)
}

var ErrPermissionDenied = errors.New("permission_denied")
