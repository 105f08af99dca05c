package service

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/groundstone/terravest/internal/project/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB   *gorm.DB
	Log  *zap.Logger
	Repo domain.Repository
}

type Service struct {
	db   *gorm.DB
	log  *zap.Logger
	repo domain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:   p.DB,
		log:  p.Log.Named("project.service"),
		repo: p.Repo,
	}
}

func (s *Service) ListProjects(ctx context.Context) ([]domain.Project, error) {
	items, err := s.repo.List(ctx, s.db)
	if err != nil {
		return nil, err
	}
	return flatten(items), nil
}

func (s *Service) ListByOwner(ctx context.Context, ownerID snowflake.ID) ([]domain.Project, error) {
	if ownerID == 0 {
		return nil, domain.ErrInvalidID
	}
	items, err := s.repo.ListByOwner(ctx, s.db, ownerID)
	if err != nil {
		return nil, err
	}
	return flatten(items), nil
}

func (s *Service) FindByID(ctx context.Context, id snowflake.ID) (domain.Project, error) {
	if id == 0 {
		return domain.Project{}, domain.ErrInvalidID
	}

	item, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.Project{}, err
	}
	if item == nil {
		return domain.Project{}, domain.ErrNotFound
	}

	return *item, nil
}

func flatten(items []*domain.Project) []domain.Project {
	projects := make([]domain.Project, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		projects = append(projects, *item)
	}
	return projects
}
