package service

import (
	"context"
	"fmt"
	"time"

	chaindomain "github.com/groundstone/terravest/internal/chain/domain"
	identitydomain "github.com/groundstone/terravest/internal/identity/domain"
	"github.com/groundstone/terravest/internal/investment/domain"
	obsmetrics "github.com/groundstone/terravest/internal/observability/metrics"
	projectdomain "github.com/groundstone/terravest/internal/project/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const ledgerWriteAttempts = 3

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	Repo       domain.Repository
	Identity   identitydomain.Service
	Projects   projectdomain.Service
	Settlement chaindomain.Settlement
	ObsMetrics *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	repo       domain.Repository
	identity   identitydomain.Service
	projects   projectdomain.Service
	settlement chaindomain.Settlement
	obsMetrics *obsmetrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("investment.service"),
		repo:       p.Repo,
		identity:   p.Identity,
		projects:   p.Projects,
		settlement: p.Settlement,
		obsMetrics: p.ObsMetrics,
	}
}

func (s *Service) Invest(ctx context.Context, req domain.InvestRequest) (domain.InvestResult, error) {
	if !req.Amount.IsPositive() {
		return domain.InvestResult{}, domain.ErrInvalidAmount
	}

	user, err := s.identity.FindUser(ctx, req.UserID)
	if err != nil {
		return domain.InvestResult{}, err
	}
	if !user.HasWallet() {
		return domain.InvestResult{}, identitydomain.ErrWalletMissing
	}

	project, err := s.projects.FindByID(ctx, req.ProjectID)
	if err != nil {
		return domain.InvestResult{}, err
	}
	// The approval flag gates investor-facing views only; the purchase
	// path follows the registry's convention and does not check it.

	// Once issued, the settlement must run to completion even if the
	// caller goes away: cancelling between chain confirmation and the
	// ledger write would leave the two permanently diverged.
	settleCtx := context.WithoutCancel(ctx)

	receipt, err := s.settlement.Invest(settleCtx, project.ID, user.Wallet.ID, user.Wallet.Address, req.Amount)
	if err != nil {
		s.obsMetrics.RecordSettlement(settleCtx, "failed")
		s.log.Warn("settlement failed",
			zap.String("user_id", user.ID.String()),
			zap.String("project_id", project.ID.String()),
			zap.String("amount", req.Amount.String()),
			zap.Error(err),
		)
		return domain.InvestResult{}, fmt.Errorf("%w: %v", domain.ErrSettlementFailed, err)
	}
	s.obsMetrics.RecordSettlement(settleCtx, "confirmed")

	posting := domain.Posting{
		Reference: receipt.Reference,
		UserID:    user.ID,
		ProjectID: project.ID,
		Amount:    req.Amount,
	}

	if err := s.applyPosting(settleCtx, posting); err != nil {
		// Settlement confirmed but the ledger write did not land. The
		// chain holds the truth now and the ledger is behind; this is a
		// different failure from a rejected purchase and is surfaced as
		// such. The posting reference makes the retry exactly-once.
		s.obsMetrics.RecordLedgerWriteFailure(settleCtx)
		s.log.Error("ledger write failed after confirmed settlement",
			zap.String("user_id", user.ID.String()),
			zap.String("project_id", project.ID.String()),
			zap.String("reference", receipt.Reference),
			zap.String("amount", req.Amount.String()),
			zap.Error(err),
		)
		return domain.InvestResult{}, fmt.Errorf("%w: reference %s: %v", domain.ErrLedgerWriteFailed, receipt.Reference, err)
	}

	result := domain.InvestResult{
		Reference: receipt.Reference,
		Amount:    req.Amount,
	}
	current, err := s.repo.FindByUserAndProject(settleCtx, s.db, user.ID, project.ID)
	switch {
	case err != nil:
		// The purchase is recorded; only the read-back for the response
		// failed. Report the purchase and leave the total unset.
		s.log.Warn("ledger read-back failed",
			zap.String("user_id", user.ID.String()),
			zap.String("project_id", project.ID.String()),
			zap.String("reference", receipt.Reference),
			zap.Error(err),
		)
	case current != nil:
		result.Total = current.Amount
	}

	s.log.Info("investment recorded",
		zap.String("user_id", user.ID.String()),
		zap.String("project_id", project.ID.String()),
		zap.String("reference", receipt.Reference),
		zap.String("amount", req.Amount.String()),
	)
	return result, nil
}

func (s *Service) applyPosting(ctx context.Context, posting domain.Posting) error {
	var lastErr error
	for attempt := 1; attempt <= ledgerWriteAttempts; attempt++ {
		if _, err := s.repo.AddAmount(ctx, s.db, posting); err != nil {
			lastErr = err
			s.log.Warn("ledger write attempt failed",
				zap.Int("attempt", attempt),
				zap.String("reference", posting.Reference),
				zap.Error(err),
			)
			time.Sleep(time.Duration(attempt) * 100 * time.Millisecond)
			continue
		}
		return nil
	}
	return lastErr
}
