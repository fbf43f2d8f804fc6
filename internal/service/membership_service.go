package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/gymflow/gymflow-api/internal/models"
	appErrors "github.com/gymflow/gymflow-api/pkg/errors"
)

type lifecycleRepository interface {
	MoveActiveToGracePeriod(ctx context.Context, today time.Time) (int64, error)
	MoveGracePeriodToExpired(ctx context.Context, cutoff time.Time) (int64, error)
}

type waitlistExpirer interface {
	ExpireEntries(ctx context.Context) (int64, error)
}

// MembershipLifecycleService moves members through
// ACTIVE → GRACE_PERIOD → EXPIRED on a daily schedule. Both passes are
// predicate-scoped updates, so re-running on the same day is a no-op.
type MembershipLifecycleService struct {
	members  lifecycleRepository
	waitlist waitlistExpirer

	gracePeriodDays int
	interval        time.Duration

	mu      sync.Mutex
	logger  *zap.Logger
	metrics *MetricsService
	now     func() time.Time
}

// NewMembershipLifecycleService constructs the scheduler.
func NewMembershipLifecycleService(members lifecycleRepository, waitlist waitlistExpirer, gracePeriodDays int, interval time.Duration, logger *zap.Logger, metrics *MetricsService) *MembershipLifecycleService {
	if gracePeriodDays <= 0 {
		gracePeriodDays = 7
	}
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MembershipLifecycleService{
		members:         members,
		waitlist:        waitlist,
		gracePeriodDays: gracePeriodDays,
		interval:        interval,
		logger:          logger,
		metrics:         metrics,
		now:             func() time.Time { return time.Now().UTC() },
	}
}

// RunOnce executes one lifecycle sweep. Overlapping invocations are
// rejected, not queued: the timer and the manual trigger share this guard.
// The grace-period pass runs before the expiry pass, so a member far enough
// past their end date moves straight through to EXPIRED in a single run.
func (s *MembershipLifecycleService) RunOnce(ctx context.Context) (*models.LifecycleResult, error) {
	if !s.mu.TryLock() {
		return nil, appErrors.Clone(appErrors.ErrConflict, "lifecycle run already in progress")
	}
	defer s.mu.Unlock()

	ranAt := s.now()
	today := time.Date(ranAt.Year(), ranAt.Month(), ranAt.Day(), 0, 0, 0, 0, time.UTC)
	cutoff := today.AddDate(0, 0, -s.gracePeriodDays)

	graced, err := s.members.MoveActiveToGracePeriod(ctx, today)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "grace period pass failed")
	}
	expired, err := s.members.MoveGracePeriodToExpired(ctx, cutoff)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "expiry pass failed")
	}

	if s.waitlist != nil {
		if _, err := s.waitlist.ExpireEntries(ctx); err != nil {
			s.logger.Warn("waitlist expiry pass failed", zap.Error(err))
		}
	}

	s.metrics.CountMembershipTransitions(string(models.MembershipStatusGracePeriod), graced)
	s.metrics.CountMembershipTransitions(string(models.MembershipStatusExpired), expired)
	s.logger.Info("membership lifecycle run complete",
		zap.Int64("moved_to_grace_period", graced),
		zap.Int64("moved_to_expired", expired))

	return &models.LifecycleResult{MovedToGracePeriod: graced, MovedToExpired: expired, RanAt: ranAt}, nil
}

// Start launches the timer loop. A tick that lands while a run is still in
// flight is skipped.
func (s *MembershipLifecycleService) Start(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := s.RunOnce(ctx); err != nil {
					if appErrors.FromError(err).Code == appErrors.ErrConflict.Code {
						s.logger.Warn("lifecycle tick skipped, previous run still in progress")
						continue
					}
					s.logger.Error("scheduled lifecycle run failed", zap.Error(err))
				}
			}
		}
	}()
}
