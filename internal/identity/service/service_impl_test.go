package service_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/groundstone/terravest/internal/identity/domain"
	"github.com/groundstone/terravest/internal/identity/repository"
	"github.com/groundstone/terravest/internal/identity/service"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:memdb_id_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.User{}))
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

func TestFindUser(t *testing.T) {
	db := setupTestDB(t)
	svc := newService(t, db)

	seeded := domain.User{
		ID:    snowflake.ID(11),
		Email: "investor@demo.local",
		Role:  domain.RoleInvestor,
		Wallet: domain.Wallet{
			ID:      "wallet-11",
			Address: "0x70997970C51812dc3A010C7d01b50e0d17dc79C8",
		},
	}
	require.NoError(t, db.Create(&seeded).Error)

	user, err := svc.FindUser(context.Background(), seeded.ID)
	require.NoError(t, err)
	require.Equal(t, seeded.Email, user.Email)
	require.Equal(t, domain.RoleInvestor, user.Role)
	require.True(t, user.HasWallet())

	_, err = svc.FindUser(context.Background(), snowflake.ID(999))
	require.ErrorIs(t, err, domain.ErrUserNotFound)

	_, err = svc.FindUser(context.Background(), snowflake.ID(0))
	require.ErrorIs(t, err, domain.ErrInvalidID)
}

func TestHasWallet(t *testing.T) {
	require.False(t, domain.User{}.HasWallet())
	require.False(t, domain.User{Wallet: domain.Wallet{ID: "w"}}.HasWallet())
	require.True(t, domain.User{Wallet: domain.Wallet{Address: "0xabc"}}.HasWallet())
}
