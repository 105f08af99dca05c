package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/groundstone/terravest/internal/project/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

// Registry order is creation order; it must be stable across calls so
// aggregation output stays deterministic.
func (r *repo) List(ctx context.Context, db *gorm.DB) ([]*domain.Project, error) {
	var projects []*domain.Project
	err := db.WithContext(ctx).
		Model(&domain.Project{}).
		Order("created_at asc, id asc").
		Find(&projects).Error
	if err != nil {
		return nil, err
	}
	return projects, nil
}

func (r *repo) ListByOwner(ctx context.Context, db *gorm.DB, ownerID snowflake.ID) ([]*domain.Project, error) {
	var projects []*domain.Project
	err := db.WithContext(ctx).
		Model(&domain.Project{}).
		Where("owner_id = ?", ownerID).
		Order("created_at asc, id asc").
		Find(&projects).Error
	if err != nil {
		return nil, err
	}
	return projects, nil
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Project, error) {
	var project domain.Project
	err := db.WithContext(ctx).Raw(
		`SELECT id, name, owner_id, allowance, asset_value, tonnage, metadata, created_at, updated_at
		 FROM projects WHERE id = ?`,
		id,
	).Scan(&project).Error
	if err != nil {
		return nil, err
	}
	if project.ID == 0 {
		return nil, nil
	}
	return &project, nil
}
