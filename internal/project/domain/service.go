package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

// Service is the read-only project registry. Catalog curation happens in
// an external back office; this core only consumes it.
type Service interface {
	// ListProjects returns the full catalog in stable registry order.
	ListProjects(ctx context.Context) ([]Project, error)
	// ListByOwner returns the projects owned by the given user, in
	// registry order.
	ListByOwner(ctx context.Context, ownerID snowflake.ID) ([]Project, error)
	FindByID(ctx context.Context, id snowflake.ID) (Project, error)
}

var (
	ErrInvalidID = errors.New("invalid_project_id")
	ErrNotFound  = errors.New("project_not_found")
)
