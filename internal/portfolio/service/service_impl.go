package service

import (
	"context"
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"
	chaindomain "github.com/groundstone/terravest/internal/chain/domain"
	"github.com/groundstone/terravest/internal/config"
	identitydomain "github.com/groundstone/terravest/internal/identity/domain"
	obsmetrics "github.com/groundstone/terravest/internal/observability/metrics"
	"github.com/groundstone/terravest/internal/portfolio/domain"
	projectdomain "github.com/groundstone/terravest/internal/project/domain"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const defaultWorkers = 4

type Params struct {
	fx.In

	Cfg        config.Config
	Log        *zap.Logger
	Identity   identitydomain.Service
	Projects   projectdomain.Service
	Chain      chaindomain.Query
	ObsMetrics *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	log        *zap.Logger
	identity   identitydomain.Service
	projects   projectdomain.Service
	chain      chaindomain.Query
	obsMetrics *obsmetrics.Metrics
	workers    int
}

func New(p Params) domain.Service {
	workers := p.Cfg.PortfolioWorkers
	if workers <= 0 {
		workers = defaultWorkers
	}
	return &Service{
		log:        p.Log.Named("portfolio.service"),
		identity:   p.Identity,
		projects:   p.Projects,
		chain:      p.Chain,
		obsMetrics: p.ObsMetrics,
		workers:    workers,
	}
}

func (s *Service) GetPortfolio(ctx context.Context, userID snowflake.ID) (domain.View, error) {
	user, err := s.identity.FindUser(ctx, userID)
	if err != nil {
		return domain.View{}, err
	}

	start := time.Now()
	switch user.Role {
	case identitydomain.RoleInvestor:
		view, err := s.investorView(ctx, user)
		if err != nil {
			return domain.View{}, err
		}
		s.obsMetrics.RecordPortfolioSkipped(ctx, string(user.Role), view.Skipped)
		s.obsMetrics.RecordPortfolioDuration(ctx, string(user.Role), time.Since(start))
		return domain.View{Role: user.Role, Investor: view}, nil
	case identitydomain.RoleProjectOwner:
		view, err := s.ownerView(ctx, user)
		if err != nil {
			return domain.View{}, err
		}
		s.obsMetrics.RecordPortfolioSkipped(ctx, string(user.Role), view.Skipped)
		s.obsMetrics.RecordPortfolioDuration(ctx, string(user.Role), time.Since(start))
		return domain.View{Role: user.Role, Owner: view}, nil
	default:
		return domain.View{}, domain.ErrPermissionDenied
	}
}

// outcome carries one project's read results back to the assembler. A
// project can be filtered (no entry, not an error), included, or failed
// (chain read error: omitted and counted, never fatal to the whole view).
type investorOutcome struct {
	entry  *domain.InvestorEntry
	failed bool
}

func (s *Service) investorView(ctx context.Context, user identitydomain.User) (*domain.InvestorView, error) {
	projects, err := s.projects.ListProjects(ctx)
	if err != nil {
		return nil, err
	}

	outcomes := make([]investorOutcome, len(projects))
	s.fanOut(ctx, len(projects), func(i int) {
		outcomes[i] = s.readInvestorProject(ctx, projects[i], user.Wallet.Address)
	})

	// Results are reassembled in registry order regardless of which
	// worker finished first, so the output is deterministic.
	view := &domain.InvestorView{
		Total: domain.InvestorTotal{
			Investment: decimal.Zero,
			Claimed:    decimal.Zero,
			Claimable:  decimal.Zero,
		},
		Data: make([]domain.InvestorEntry, 0, len(projects)),
	}
	for _, outcome := range outcomes {
		if outcome.failed {
			view.Skipped++
			continue
		}
		if outcome.entry == nil {
			continue
		}
		view.Total.Investment = view.Total.Investment.Add(outcome.entry.Amount)
		view.Total.Claimed = view.Total.Claimed.Add(outcome.entry.ClaimedRewards)
		view.Total.Claimable = view.Total.Claimable.Add(outcome.entry.ClaimableRewards)
		view.Data = append(view.Data, *outcome.entry)
	}
	return view, nil
}

func (s *Service) readInvestorProject(ctx context.Context, project projectdomain.Project, address string) investorOutcome {
	if !project.Approved() {
		return investorOutcome{}
	}

	shares, err := s.chain.GetBalance(ctx, project.ID, address)
	if err != nil {
		return s.failOutcome(ctx, project.ID, "balance", err)
	}
	if shares.IsZero() {
		return investorOutcome{}
	}

	amount, err := s.chain.GetAssets(ctx, project.ID, address)
	if err != nil {
		return s.failOutcome(ctx, project.ID, "assets", err)
	}
	if amount.IsZero() {
		return investorOutcome{}
	}

	claimed, err := s.chain.GetClaimedRewards(ctx, project.ID, address)
	if err != nil {
		return s.failOutcome(ctx, project.ID, "claimed_rewards", err)
	}
	claimable, err := s.chain.GetClaimableAmount(ctx, project.ID, address)
	if err != nil {
		return s.failOutcome(ctx, project.ID, "claimable", err)
	}

	return investorOutcome{entry: &domain.InvestorEntry{
		Project:          project,
		Amount:           amount,
		Price:            project.UnitPrice(),
		ClaimedRewards:   claimed,
		ClaimableRewards: claimable,
	}}
}

type ownerOutcome struct {
	entry  *domain.OwnerEntry
	failed bool
}

func (s *Service) ownerView(ctx context.Context, user identitydomain.User) (*domain.OwnerView, error) {
	projects, err := s.projects.ListByOwner(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	outcomes := make([]ownerOutcome, len(projects))
	s.fanOut(ctx, len(projects), func(i int) {
		outcomes[i] = s.readOwnerProject(ctx, projects[i])
	})

	view := &domain.OwnerView{
		Data: make([]domain.OwnerEntry, 0, len(projects)),
		Total: domain.OwnerTotal{
			Fundraising: decimal.Zero,
			Rewards:     decimal.Zero,
		},
	}
	for _, outcome := range outcomes {
		if outcome.failed {
			view.Skipped++
			continue
		}
		if outcome.entry == nil {
			continue
		}
		view.Total.Fundraising = view.Total.Fundraising.Add(outcome.entry.Fundraising)
		view.Total.Rewards = view.Total.Rewards.Add(outcome.entry.GivenRewards)
		view.Data = append(view.Data, *outcome.entry)
	}
	return view, nil
}

func (s *Service) readOwnerProject(ctx context.Context, project projectdomain.Project) ownerOutcome {
	fundraising, err := s.chain.GetFundraising(ctx, project.ID)
	if err != nil {
		s.recordReadFailure(ctx, project.ID, "fundraising", err)
		return ownerOutcome{failed: true}
	}
	givenRewards, err := s.chain.GetGivenRewards(ctx, project.ID)
	if err != nil {
		s.recordReadFailure(ctx, project.ID, "given_rewards", err)
		return ownerOutcome{failed: true}
	}

	return ownerOutcome{entry: &domain.OwnerEntry{
		Project:      project,
		Fundraising:  fundraising,
		GivenRewards: givenRewards,
	}}
}

// fanOut runs fn(i) for every index through a fixed-size worker pool.
// The chain RPC endpoint throttles, so concurrency stays bounded no
// matter how large the registry grows.
func (s *Service) fanOut(ctx context.Context, n int, fn func(i int)) {
	if n == 0 {
		return
	}
	workers := s.workers
	if workers > n {
		workers = n
	}

	jobs := make(chan int)
	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for i := range jobs {
				fn(i)
			}
		}()
	}

	for i := 0; i < n; i++ {
		select {
		case <-ctx.Done():
			// Aggregation performs no writes; abandoning the remaining
			// reads on cancellation is safe. Already-dispatched reads
			// observe ctx themselves.
			close(jobs)
			wg.Wait()
			return
		case jobs <- i:
		}
	}
	close(jobs)
	wg.Wait()
}

func (s *Service) failOutcome(ctx context.Context, projectID snowflake.ID, method string, err error) investorOutcome {
	s.recordReadFailure(ctx, projectID, method, err)
	return investorOutcome{failed: true}
}

func (s *Service) recordReadFailure(ctx context.Context, projectID snowflake.ID, method string, err error) {
	s.obsMetrics.RecordChainQueryError(ctx, method)
	s.log.Warn("chain read failed, omitting project from aggregation",
		zap.String("project_id", projectID.String()),
		zap.String("method", method),
		zap.Error(err),
	)
}
