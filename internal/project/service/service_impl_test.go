package service_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/groundstone/terravest/internal/project/domain"
	"github.com/groundstone/terravest/internal/project/repository"
	"github.com/groundstone/terravest/internal/project/service"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:memdb_prj_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.Project{}))
	return db
}

func newService(t *testing.T, db *gorm.DB) domain.Service {
	t.Helper()
	return service.New(service.Params{
		DB:   db,
		Log:  zap.NewNop(),
		Repo: repository.Provide(),
	})
}

func seedProjects(t *testing.T, db *gorm.DB) []domain.Project {
	t.Helper()

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	projects := []domain.Project{
		{
			ID:        snowflake.ID(1),
			Name:      "Teak Plantation Alpha",
			OwnerID:   snowflake.ID(12),
			Allowance: domain.AllowanceApproved,
			Valuation: domain.Valuation{
				AssetValue: decimal.NewFromInt(3_000_000),
				Tonnage:    decimal.NewFromInt(1000),
			},
			CreatedAt: base,
			UpdatedAt: base,
		},
		{
			ID:      snowflake.ID(2),
			Name:    "Mahogany Estate Beta",
			OwnerID: snowflake.ID(13),
			Valuation: domain.Valuation{
				AssetValue: decimal.NewFromInt(5_500_000),
				Tonnage:    decimal.NewFromInt(2200),
			},
			CreatedAt: base.Add(time.Hour),
			UpdatedAt: base.Add(time.Hour),
		},
		{
			ID:        snowflake.ID(3),
			Name:      "Sandalwood Grove Gamma",
			OwnerID:   snowflake.ID(12),
			Allowance: domain.AllowanceApproved,
			Valuation: domain.Valuation{
				AssetValue: decimal.NewFromInt(900_000),
				Tonnage:    decimal.NewFromInt(450),
			},
			CreatedAt: base.Add(2 * time.Hour),
			UpdatedAt: base.Add(2 * time.Hour),
		},
	}
	require.NoError(t, db.Create(&projects).Error)
	return projects
}

func TestListProjectsStableOrder(t *testing.T) {
	db := setupTestDB(t)
	seeded := seedProjects(t, db)
	svc := newService(t, db)

	for run := 0; run < 3; run++ {
		listed, err := svc.ListProjects(context.Background())
		require.NoError(t, err)
		require.Len(t, listed, len(seeded))
		for i, p := range listed {
			require.Equal(t, seeded[i].ID, p.ID)
		}
	}
}

func TestListByOwner(t *testing.T) {
	db := setupTestDB(t)
	seedProjects(t, db)
	svc := newService(t, db)

	owned, err := svc.ListByOwner(context.Background(), snowflake.ID(12))
	require.NoError(t, err)
	require.Len(t, owned, 2)
	require.Equal(t, snowflake.ID(1), owned[0].ID)
	require.Equal(t, snowflake.ID(3), owned[1].ID)

	_, err = svc.ListByOwner(context.Background(), snowflake.ID(0))
	require.ErrorIs(t, err, domain.ErrInvalidID)
}

func TestFindByID(t *testing.T) {
	db := setupTestDB(t)
	seedProjects(t, db)
	svc := newService(t, db)

	project, err := svc.FindByID(context.Background(), snowflake.ID(2))
	require.NoError(t, err)
	require.Equal(t, "Mahogany Estate Beta", project.Name)
	require.False(t, project.Approved())

	_, err = svc.FindByID(context.Background(), snowflake.ID(999))
	require.ErrorIs(t, err, domain.ErrNotFound)

	_, err = svc.FindByID(context.Background(), snowflake.ID(0))
	require.ErrorIs(t, err, domain.ErrInvalidID)
}
