package service_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/groundstone/terravest/internal/config"
	identitydomain "github.com/groundstone/terravest/internal/identity/domain"
	"github.com/groundstone/terravest/internal/portfolio/domain"
	"github.com/groundstone/terravest/internal/portfolio/service"
	projectdomain "github.com/groundstone/terravest/internal/project/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// -- Stubs --

type identityStub struct {
	user identitydomain.User
}

func (s identityStub) FindUser(ctx context.Context, id snowflake.ID) (identitydomain.User, error) {
	return s.user, nil
}

type projectStub struct {
	projects []projectdomain.Project
}

func (s projectStub) ListProjects(ctx context.Context) ([]projectdomain.Project, error) {
	return s.projects, nil
}

func (s projectStub) ListByOwner(ctx context.Context, ownerID snowflake.ID) ([]projectdomain.Project, error) {
	var owned []projectdomain.Project
	for _, p := range s.projects {
		if p.OwnerID == ownerID {
			owned = append(owned, p)
		}
	}
	return owned, nil
}

func (s projectStub) FindByID(ctx context.Context, id snowflake.ID) (projectdomain.Project, error) {
	for _, p := range s.projects {
		if p.ID == id {
			return p, nil
		}
	}
	return projectdomain.Project{}, projectdomain.ErrNotFound
}

// chainStub serves per-project values and injects failures.
type chainStub struct {
	balances    map[snowflake.ID]decimal.Decimal
	assets      map[snowflake.ID]decimal.Decimal
	claimed     map[snowflake.ID]decimal.Decimal
	claimable   map[snowflake.ID]decimal.Decimal
	fundraising map[snowflake.ID]decimal.Decimal
	rewards     map[snowflake.ID]decimal.Decimal
	failFor     map[snowflake.ID]bool
	delay       time.Duration
}

var errRPC = errors.New("rpc timeout")

func (c *chainStub) read(m map[snowflake.ID]decimal.Decimal, id snowflake.ID) (decimal.Decimal, error) {
	if c.delay > 0 {
		time.Sleep(c.delay)
	}
	if c.failFor[id] {
		return decimal.Zero, errRPC
	}
	if v, ok := m[id]; ok {
		return v, nil
	}
	return decimal.Zero, nil
}

func (c *chainStub) GetBalance(ctx context.Context, projectID snowflake.ID, address string) (decimal.Decimal, error) {
	return c.read(c.balances, projectID)
}

func (c *chainStub) GetAssets(ctx context.Context, projectID snowflake.ID, address string) (decimal.Decimal, error) {
	return c.read(c.assets, projectID)
}

func (c *chainStub) GetClaimedRewards(ctx context.Context, projectID snowflake.ID, address string) (decimal.Decimal, error) {
	return c.read(c.claimed, projectID)
}

func (c *chainStub) GetClaimableAmount(ctx context.Context, projectID snowflake.ID, address string) (decimal.Decimal, error) {
	return c.read(c.claimable, projectID)
}

func (c *chainStub) GetFundraising(ctx context.Context, projectID snowflake.ID) (decimal.Decimal, error) {
	return c.read(c.fundraising, projectID)
}

func (c *chainStub) GetGivenRewards(ctx context.Context, projectID snowflake.ID) (decimal.Decimal, error) {
	return c.read(c.rewards, projectID)
}

func dec(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func investor() identitydomain.User {
	return identitydomain.User{
		ID:   snowflake.ID(11),
		Role: identitydomain.RoleInvestor,
		Wallet: identitydomain.Wallet{
			ID:      "wallet-11",
			Address: "0x70997970C51812dc3A010C7d01b50e0d17dc79C8",
		},
	}
}

func owner() identitydomain.User {
	return identitydomain.User{
		ID:   snowflake.ID(12),
		Role: identitydomain.RoleProjectOwner,
		Wallet: identitydomain.Wallet{
			ID:      "wallet-12",
			Address: "0x3C44CdDdB6a900fa2b585dd299e03d12FA4293BC",
		},
	}
}

func approvedProject(id int64, assetValue, tonnage int64) projectdomain.Project {
	return projectdomain.Project{
		ID:        snowflake.ID(id),
		Name:      fmt.Sprintf("Project %d", id),
		OwnerID:   owner().ID,
		Allowance: projectdomain.AllowanceApproved,
		Valuation: projectdomain.Valuation{
			AssetValue: dec(assetValue),
			Tonnage:    dec(tonnage),
		},
	}
}

func newService(user identitydomain.User, projects []projectdomain.Project, chain *chainStub, workers int) domain.Service {
	return service.New(service.Params{
		Cfg:      config.Config{PortfolioWorkers: workers},
		Log:      zap.NewNop(),
		Identity: identityStub{user: user},
		Projects: projectStub{projects: projects},
		Chain:    chain,
	})
}

func TestInvestorViewExcludesZeroAndUnapproved(t *testing.T) {
	held := approvedProject(1, 3_000_000, 1000)
	zeroShares := approvedProject(2, 1_000_000, 500)
	unapproved := approvedProject(3, 2_000_000, 800)
	unapproved.Allowance = 0

	chain := &chainStub{
		balances: map[snowflake.ID]decimal.Decimal{
			held.ID:       dec(10),
			unapproved.ID: dec(99),
		},
		assets: map[snowflake.ID]decimal.Decimal{
			held.ID:       dec(150),
			unapproved.ID: dec(990),
		},
		claimed:   map[snowflake.ID]decimal.Decimal{held.ID: dec(7)},
		claimable: map[snowflake.ID]decimal.Decimal{held.ID: dec(3)},
	}

	svc := newService(investor(), []projectdomain.Project{held, zeroShares, unapproved}, chain, 3)
	view, err := svc.GetPortfolio(context.Background(), investor().ID)
	require.NoError(t, err)
	require.Equal(t, identitydomain.RoleInvestor, view.Role)
	require.NotNil(t, view.Investor)
	require.Nil(t, view.Owner)

	require.Len(t, view.Investor.Data, 1)
	entry := view.Investor.Data[0]
	require.Equal(t, held.ID, entry.Project.ID)
	require.True(t, entry.Amount.Equal(dec(150)))
	require.True(t, entry.ClaimedRewards.Equal(dec(7)))
	require.True(t, entry.ClaimableRewards.Equal(dec(3)))

	// assetValue / tonnage / 1000, derived at read time.
	require.True(t, entry.Price.Equal(dec(3)), "expected 3, got %s", entry.Price)

	require.True(t, view.Investor.Total.Investment.Equal(dec(150)))
	require.True(t, view.Investor.Total.Claimed.Equal(dec(7)))
	require.True(t, view.Investor.Total.Claimable.Equal(dec(3)))
	require.Zero(t, view.Investor.Skipped)
}

func TestInvestorViewSkipsFailedReads(t *testing.T) {
	var projects []projectdomain.Project
	balances := map[snowflake.ID]decimal.Decimal{}
	assets := map[snowflake.ID]decimal.Decimal{}
	for i := int64(1); i <= 5; i++ {
		p := approvedProject(i, 1_000_000, 1000)
		projects = append(projects, p)
		balances[p.ID] = dec(1)
		assets[p.ID] = dec(100)
	}

	chain := &chainStub{
		balances: balances,
		assets:   assets,
		failFor:  map[snowflake.ID]bool{projects[2].ID: true},
	}

	svc := newService(investor(), projects, chain, 4)
	view, err := svc.GetPortfolio(context.Background(), investor().ID)
	require.NoError(t, err, "one failing project must not fail the whole view")
	require.Len(t, view.Investor.Data, 4)
	require.Equal(t, 1, view.Investor.Skipped)
	require.True(t, view.Investor.Total.Investment.Equal(dec(400)),
		"totals must exclude the skipped project, got %s", view.Investor.Total.Investment)
	for _, entry := range view.Investor.Data {
		require.NotEqual(t, projects[2].ID, entry.Project.ID)
	}
}

func TestInvestorViewPreservesRegistryOrder(t *testing.T) {
	var projects []projectdomain.Project
	balances := map[snowflake.ID]decimal.Decimal{}
	assets := map[snowflake.ID]decimal.Decimal{}
	for i := int64(1); i <= 8; i++ {
		p := approvedProject(i, 1_000_000, 1000)
		projects = append(projects, p)
		balances[p.ID] = dec(1)
		assets[p.ID] = dec(i * 10)
	}

	// The delay shuffles worker completion order; output order must
	// still follow the registry.
	chain := &chainStub{balances: balances, assets: assets, delay: 2 * time.Millisecond}

	svc := newService(investor(), projects, chain, 3)
	view, err := svc.GetPortfolio(context.Background(), investor().ID)
	require.NoError(t, err)
	require.Len(t, view.Investor.Data, 8)
	for i, entry := range view.Investor.Data {
		require.Equal(t, projects[i].ID, entry.Project.ID)
	}
}

func TestOwnerViewTotals(t *testing.T) {
	p1 := approvedProject(1, 1_000_000, 1000)
	p2 := approvedProject(2, 2_000_000, 1000)

	chain := &chainStub{
		fundraising: map[snowflake.ID]decimal.Decimal{
			p1.ID: dec(100),
			p2.ID: dec(250),
		},
		rewards: map[snowflake.ID]decimal.Decimal{
			p1.ID: dec(5),
			p2.ID: dec(10),
		},
	}

	svc := newService(owner(), []projectdomain.Project{p1, p2}, chain, 2)
	view, err := svc.GetPortfolio(context.Background(), owner().ID)
	require.NoError(t, err)
	require.Equal(t, identitydomain.RoleProjectOwner, view.Role)
	require.NotNil(t, view.Owner)
	require.Nil(t, view.Investor)

	require.Len(t, view.Owner.Data, 2)
	require.True(t, view.Owner.Total.Fundraising.Equal(dec(350)))
	require.True(t, view.Owner.Total.Rewards.Equal(dec(15)))
}

func TestOwnerViewSkipsFailedReads(t *testing.T) {
	p1 := approvedProject(1, 1_000_000, 1000)
	p2 := approvedProject(2, 2_000_000, 1000)

	chain := &chainStub{
		fundraising: map[snowflake.ID]decimal.Decimal{p1.ID: dec(100), p2.ID: dec(250)},
		rewards:     map[snowflake.ID]decimal.Decimal{p1.ID: dec(5), p2.ID: dec(10)},
		failFor:     map[snowflake.ID]bool{p2.ID: true},
	}

	svc := newService(owner(), []projectdomain.Project{p1, p2}, chain, 2)
	view, err := svc.GetPortfolio(context.Background(), owner().ID)
	require.NoError(t, err)
	require.Len(t, view.Owner.Data, 1)
	require.Equal(t, 1, view.Owner.Skipped)
	require.True(t, view.Owner.Total.Fundraising.Equal(dec(100)))
}

func TestPortfolioRejectsOtherRoles(t *testing.T) {
	admin := identitydomain.User{ID: snowflake.ID(13), Role: identitydomain.RoleAdmin}
	svc := newService(admin, nil, &chainStub{}, 2)

	_, err := svc.GetPortfolio(context.Background(), admin.ID)
	require.ErrorIs(t, err, domain.ErrPermissionDenied)
}
