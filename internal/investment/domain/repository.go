package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	// AddAmount applies a settlement posting to the ledger. The write is
	// an atomic upsert-with-increment keyed by the posting reference:
	// concurrent postings for the same pair both land, and re-applying a
	// reference that already landed is a no-op. Returns whether the
	// posting was applied by this call.
	AddAmount(ctx context.Context, db *gorm.DB, posting Posting) (bool, error)

	FindByUserAndProject(ctx context.Context, db *gorm.DB, userID, projectID snowflake.ID) (*Investment, error)
	ListByUser(ctx context.Context, db *gorm.DB, userID snowflake.ID) ([]*Investment, error)
}
