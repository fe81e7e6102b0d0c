package services

import (
	"context"
	"time"

	"votedesk/internal/adapters/persistence/repositories"
	"votedesk/internal/config"
	"votedesk/internal/pkg/logger"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// ============================================================
// Scheduled jobs: vote-flag reconciliation + housekeeping
// ============================================================

const reconcileBatch = 500

// IdleEvictor closes browser sessions idle for longer than maxIdle
type IdleEvictor interface {
	EvictIdle(maxIdle time.Duration) int
}

// CronService runs the background jobs on robfig/cron schedules
type CronService struct {
	cron             *cron.Cron
	profileRepo      repositories.ProfileRepository
	refreshTokenRepo repositories.RefreshTokenRepository
	otp              *OTPService
	sessions         IdleEvictor
	cfg              config.SessionConfig
}

// NewCronService creates the scheduler. sessions may be nil.
func NewCronService(
	profileRepo repositories.ProfileRepository,
	refreshTokenRepo repositories.RefreshTokenRepository,
	otp *OTPService,
	sessions IdleEvictor,
	cfg config.SessionConfig,
) *CronService {
	return &CronService{
		cron:             cron.New(cron.WithChain(cron.Recover(cronLogger{}))),
		profileRepo:      profileRepo,
		refreshTokenRepo: refreshTokenRepo,
		otp:              otp,
		sessions:         sessions,
		cfg:              cfg,
	}
}

// Start registers the jobs and starts the scheduler
func (s *CronService) Start() error {
	if _, err := s.cron.AddFunc(s.cfg.ReconcileSchedule, func() {
		s.ReconcileVoteFlags(context.Background())
	}); err != nil {
		return err
	}
	if _, err := s.cron.AddFunc(s.cfg.HousekeepingSchedule, func() {
		s.Housekeeping(context.Background())
	}); err != nil {
		return err
	}

	s.cron.Start()
	logger.Info("cron service started",
		zap.String("reconcile", s.cfg.ReconcileSchedule),
		zap.String("housekeeping", s.cfg.HousekeepingSchedule),
	)
	return nil
}

// Stop stops the scheduler and waits for running jobs
func (s *CronService) Stop() {
	<-s.cron.Stop().Done()
	logger.Info("cron service stopped")
}

// ReconcileVoteFlags sets has_voted on profiles that have a vote row but a
// lagging flag, and returns how many were repaired
func (s *CronService) ReconcileVoteFlags(ctx context.Context) int {
	ids, err := s.profileRepo.ListVotedFlagMismatches(ctx, reconcileBatch)
	if err != nil {
		logger.Error("vote flag reconciliation query failed", zap.Error(err))
		return 0
	}

	repaired := 0
	for _, id := range ids {
		if err := s.profileRepo.Update(ctx, id, map[string]interface{}{"has_voted": true}); err != nil {
			logger.Error("vote flag repair failed", zap.String("voter_id", id), zap.Error(err))
			continue
		}
		repaired++
	}

	if repaired > 0 {
		logger.Warn("vote flags repaired", zap.Int("count", repaired))
	}
	return repaired
}

// Housekeeping purges expired OTPs and refresh tokens and evicts idle sessions
func (s *CronService) Housekeeping(ctx context.Context) {
	purged := s.otp.PurgeExpired()

	tokens, err := s.refreshTokenRepo.DeleteExpired(ctx)
	if err != nil {
		logger.Error("refresh token purge failed", zap.Error(err))
	}

	evicted := 0
	if s.sessions != nil && s.cfg.IdleTimeout > 0 {
		evicted = s.sessions.EvictIdle(s.cfg.IdleTimeout)
	}

	logger.Debug("housekeeping done",
		zap.Int("otp_purged", purged),
		zap.Int64("tokens_purged", tokens),
		zap.Int("sessions_evicted", evicted),
	)
}

// cronLogger adapts zap to cron.Logger
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	logger.L().Sugar().Debugw(msg, keysAndValues...)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	logger.L().Sugar().Errorw(msg, append(keysAndValues, "error", err)...)
}
