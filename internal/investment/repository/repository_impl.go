package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/groundstone/terravest/internal/investment/domain"
	pkgdb "github.com/groundstone/terravest/pkg/db"
	"gorm.io/gorm"
)

type repo struct {
	genID *snowflake.Node
}

func Provide(genID *snowflake.Node) domain.Repository {
	return &repo{genID: genID}
}

// AddAmount runs in one transaction: the posting insert is the
// idempotency gate, the investment upsert is the increment. The
// increment happens inside the database, never as read-then-write in
// process, so concurrent settlements for the same pair cannot lose
// updates.
func (r *repo) AddAmount(ctx context.Context, db *gorm.DB, posting domain.Posting) (bool, error) {
	applied := false
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now().UTC()

		result := tx.WithContext(ctx).Exec(
			`INSERT INTO investment_postings (id, reference, user_id, project_id, amount, created_at)
			 VALUES (?, ?, ?, ?, ?, ?)
			 ON CONFLICT (reference) DO NOTHING`,
			r.genID.Generate(),
			posting.Reference,
			posting.UserID,
			posting.ProjectID,
			posting.Amount,
			now,
		)
		if result.Error != nil {
			if pkgdb.IsDuplicateKeyErr(result.Error) {
				return nil
			}
			return result.Error
		}
		if result.RowsAffected == 0 {
			// Reference already applied by an earlier attempt.
			return nil
		}

		if err := tx.WithContext(ctx).Exec(
			`INSERT INTO investments (id, user_id, project_id, amount, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?)
			 ON CONFLICT (user_id, project_id)
			 DO UPDATE SET amount = investments.amount + EXCLUDED.amount, updated_at = EXCLUDED.updated_at`,
			r.genID.Generate(),
			posting.UserID,
			posting.ProjectID,
			posting.Amount,
			now,
			now,
		).Error; err != nil {
			return err
		}

		applied = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return applied, nil
}

func (r *repo) FindByUserAndProject(ctx context.Context, db *gorm.DB, userID, projectID snowflake.ID) (*domain.Investment, error) {
	var investment domain.Investment
	err := db.WithContext(ctx).Raw(
		`SELECT id, user_id, project_id, amount, created_at, updated_at
		 FROM investments WHERE user_id = ? AND project_id = ?`,
		userID,
		projectID,
	).Scan(&investment).Error
	if err != nil {
		return nil, err
	}
	if investment.ID == 0 {
		return nil, nil
	}
	return &investment, nil
}

func (r *repo) ListByUser(ctx context.Context, db *gorm.DB, userID snowflake.ID) ([]*domain.Investment, error) {
	var investments []*domain.Investment
	err := db.WithContext(ctx).
		Model(&domain.Investment{}).
		Where("user_id = ?", userID).
		Order("created_at asc, id asc").
		Find(&investments).Error
	if err != nil {
		return nil, err
	}
	return investments, nil
}
