package service

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/gymflow/gymflow-api/internal/models"
	appErrors "github.com/gymflow/gymflow-api/pkg/errors"
)

type waitlistRepository interface {
	Create(ctx context.Context, entry *models.WaitlistEntry) error
	FindByID(ctx context.Context, id int64) (*models.WaitlistEntry, error)
	ExistsWaiting(ctx context.Context, memberID, classID int64) (bool, error)
	Position(ctx context.Context, entry *models.WaitlistEntry) (int, int, error)
	CountWaiting(ctx context.Context, classID int64) (int, error)
	FirstWaiting(ctx context.Context, classID int64) (*models.WaitlistEntry, error)
	ClaimPromotion(ctx context.Context, id int64, version int) (bool, error)
	UpdateStatus(ctx context.Context, id int64, status models.WaitlistStatus) error
	ExpireStarted(ctx context.Context, now time.Time) (int64, error)
	ListWaitingByClass(ctx context.Context, classID int64) ([]models.WaitlistEntry, error)
}

type seatCreator interface {
	CountEnrolled(ctx context.Context, classID int64) (int, error)
	ExistsEnrolled(ctx context.Context, memberID, classID int64) (bool, error)
	CreateEnrolled(ctx context.Context, memberID, classID int64, capacity int) (*models.Booking, error)
}

type promotionNotifier interface {
	NotifyPromotion(entryID, memberID, classID int64)
}

// JoinWaitlistRequest describes waitlist join payload.
type JoinWaitlistRequest struct {
	MemberID int64 `json:"member_id" validate:"required,gt=0"`
	ClassID  int64 `json:"class_id" validate:"required,gt=0"`
}

// WaitlistService maintains the FIFO queue per class and promotes the
// earliest waiting member when a seat frees up.
type WaitlistService struct {
	repo     waitlistRepository
	seats    seatCreator
	members  memberReader
	classes  classReader
	notifier promotionNotifier

	// maxAttempts bounds the promotion retry loop; zero means "cap at the
	// waitlist depth observed when promotion starts".
	maxAttempts int

	validator *validator.Validate
	logger    *zap.Logger
	metrics   *MetricsService
	now       func() time.Time
}

// WaitlistServiceParams bundles the collaborators of WaitlistService.
type WaitlistServiceParams struct {
	Repo        waitlistRepository
	Seats       seatCreator
	Members     memberReader
	Classes     classReader
	Notifier    promotionNotifier
	MaxAttempts int
	Validator   *validator.Validate
	Logger      *zap.Logger
	Metrics     *MetricsService
}

// NewWaitlistService constructs WaitlistService.
func NewWaitlistService(p WaitlistServiceParams) *WaitlistService {
	if p.Validator == nil {
		p.Validator = validator.New()
	}
	if p.Logger == nil {
		p.Logger = zap.NewNop()
	}
	return &WaitlistService{
		repo:        p.Repo,
		seats:       p.Seats,
		members:     p.Members,
		classes:     p.Classes,
		notifier:    p.Notifier,
		maxAttempts: p.MaxAttempts,
		validator:   p.Validator,
		logger:      p.Logger,
		metrics:     p.Metrics,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// AddToWaitlist queues a member for a full class.
func (s *WaitlistService) AddToWaitlist(ctx context.Context, req JoinWaitlistRequest) (*models.WaitlistEntry, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid waitlist payload")
	}

	member, err := s.members.FindByID(ctx, req.MemberID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "member not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load member")
	}
	class, err := s.classes.FindByID(ctx, req.ClassID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}

	if !class.StartTime.After(s.now()) {
		return nil, appErrors.Clone(appErrors.ErrBusinessRule,
			fmt.Sprintf("class already started at %s", class.StartTime.Format(time.RFC3339)))
	}
	if !member.HasActivePlan() {
		return nil, appErrors.Clone(appErrors.ErrBusinessRule,
			fmt.Sprintf("member %d has no active plan (status %s)", member.ID, member.MembershipStatus))
	}

	enrolledCount, err := s.seats.CountEnrolled(ctx, req.ClassID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count enrollment")
	}
	if enrolledCount < class.Capacity {
		return nil, appErrors.Clone(appErrors.ErrBusinessRule,
			fmt.Sprintf("class not full: %d/%d capacity, book directly", enrolledCount, class.Capacity))
	}

	enrolled, err := s.seats.ExistsEnrolled(ctx, req.MemberID, req.ClassID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check enrollment")
	}
	if enrolled {
		return nil, appErrors.Clone(appErrors.ErrBusinessRule,
			fmt.Sprintf("member %d already enrolled in class %d", req.MemberID, req.ClassID))
	}

	waiting, err := s.repo.ExistsWaiting(ctx, req.MemberID, req.ClassID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check waitlist")
	}
	if waiting {
		return nil, appErrors.Clone(appErrors.ErrBusinessRule,
			fmt.Sprintf("member %d already waiting for class %d", req.MemberID, req.ClassID))
	}

	entry := &models.WaitlistEntry{MemberID: req.MemberID, ClassID: req.ClassID, JoinedAt: s.now(), Status: models.WaitlistStatusWaiting}
	if err := s.repo.Create(ctx, entry); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to join waitlist")
	}
	s.metrics.CountWaitlistJoin()
	s.logger.Info("member joined waitlist",
		zap.Int64("entry_id", entry.ID),
		zap.Int64("member_id", req.MemberID),
		zap.Int64("class_id", req.ClassID))
	return entry, nil
}

// RemoveFromWaitlist transitions a WAITING entry to REMOVED.
func (s *WaitlistService) RemoveFromWaitlist(ctx context.Context, id int64) (*models.WaitlistEntry, error) {
	entry, err := s.loadEntry(ctx, id)
	if err != nil {
		return nil, err
	}
	if entry.Status != models.WaitlistStatusWaiting {
		return nil, appErrors.Clone(appErrors.ErrBusinessRule,
			fmt.Sprintf("waitlist entry is %s, only WAITING entries can be removed", entry.Status))
	}
	if err := s.repo.UpdateStatus(ctx, id, models.WaitlistStatusRemoved); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to remove waitlist entry")
	}
	entry.Status = models.WaitlistStatusRemoved
	return entry, nil
}

// GetPosition returns the 1-based FIFO position of a WAITING entry along
// with the total number waiting for its class.
func (s *WaitlistService) GetPosition(ctx context.Context, id int64) (*models.WaitlistPosition, error) {
	entry, err := s.loadEntry(ctx, id)
	if err != nil {
		return nil, err
	}
	if entry.Status != models.WaitlistStatusWaiting {
		return nil, appErrors.Clone(appErrors.ErrBusinessRule,
			fmt.Sprintf("waitlist entry is %s, position applies to WAITING entries", entry.Status))
	}
	position, total, err := s.repo.Position(ctx, entry)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to compute position")
	}
	return &models.WaitlistPosition{EntryID: id, Position: position, TotalWaiting: total}, nil
}

// ListForClass returns the WAITING queue of a class in FIFO order.
func (s *WaitlistService) ListForClass(ctx context.Context, classID int64) ([]models.WaitlistEntry, error) {
	entries, err := s.repo.ListWaitingByClass(ctx, classID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list waitlist")
	}
	return entries, nil
}

// ExpireEntries batch-expires WAITING entries of classes that have started.
func (s *WaitlistService) ExpireEntries(ctx context.Context) (int64, error) {
	expired, err := s.repo.ExpireStarted(ctx, s.now())
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to expire waitlist entries")
	}
	if expired > 0 {
		s.logger.Info("waitlist entries expired", zap.Int64("count", expired))
	}
	return expired, nil
}

// PromoteFromWaitlist fills one freed seat from the queue. Each candidate is
// consumed through a version compare-and-swap so concurrent promotions for
// the same class never double-spend an entry: the loser of the race re-reads
// the queue and retries against the new earliest candidate. A candidate
// whose booking cannot be created is expired, not re-queued. The loop is
// bounded by the waitlist depth observed at entry, so a seat is abandoned
// only after every eligible waiter had a chance.
func (s *WaitlistService) PromoteFromWaitlist(ctx context.Context, classID int64) (*models.PromotionResult, error) {
	class, err := s.classes.FindByID(ctx, classID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}

	depth, err := s.repo.CountWaiting(ctx, classID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count waitlist")
	}
	if depth == 0 {
		return &models.PromotionResult{}, nil
	}
	maxAttempts := s.maxAttempts
	if maxAttempts <= 0 {
		maxAttempts = depth
	}

	for attempt := 0; attempt < maxAttempts; attempt++ {
		entry, err := s.repo.FirstWaiting(ctx, classID)
		if err != nil {
			if err == sql.ErrNoRows {
				return &models.PromotionResult{}, nil
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read waitlist head")
		}

		claimed, err := s.repo.ClaimPromotion(ctx, entry.ID, entry.Version)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to claim waitlist entry")
		}
		if !claimed {
			// Lost the race to a concurrent promotion.
			s.metrics.CountPromotionRetry()
			continue
		}

		booking, err := s.fillSeat(ctx, entry, class)
		if err != nil {
			s.logger.Warn("waitlist candidate could not take the seat",
				zap.Int64("entry_id", entry.ID),
				zap.Int64("member_id", entry.MemberID),
				zap.Int64("class_id", classID),
				zap.Error(err))
			if updateErr := s.repo.UpdateStatus(ctx, entry.ID, models.WaitlistStatusExpired); updateErr != nil {
				s.logger.Error("failed to expire claimed waitlist entry",
					zap.Int64("entry_id", entry.ID), zap.Error(updateErr))
			}
			s.metrics.CountPromotionRetry()
			continue
		}

		entry.Status = models.WaitlistStatusPromoted
		s.metrics.CountPromotion()
		if s.notifier != nil {
			s.notifier.NotifyPromotion(entry.ID, entry.MemberID, classID)
		}
		s.logger.Info("waitlist entry promoted",
			zap.Int64("entry_id", entry.ID),
			zap.Int64("member_id", entry.MemberID),
			zap.Int64("class_id", classID),
			zap.Int64("booking_id", booking.ID))
		return &models.PromotionResult{Booking: booking, Entry: entry}, nil
	}

	s.logger.Warn("waitlist promotion exhausted",
		zap.Int64("class_id", classID), zap.Int("attempts", maxAttempts))
	return &models.PromotionResult{}, nil
}

func (s *WaitlistService) fillSeat(ctx context.Context, entry *models.WaitlistEntry, class *models.ClassDetail) (*models.Booking, error) {
	member, err := s.members.FindByID(ctx, entry.MemberID)
	if err != nil {
		return nil, fmt.Errorf("load member %d: %w", entry.MemberID, err)
	}
	if !member.HasActivePlan() {
		return nil, fmt.Errorf("member %d has no active plan (status %s)", member.ID, member.MembershipStatus)
	}
	return s.seats.CreateEnrolled(ctx, entry.MemberID, entry.ClassID, class.Capacity)
}

func (s *WaitlistService) loadEntry(ctx context.Context, id int64) (*models.WaitlistEntry, error) {
	entry, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "waitlist entry not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load waitlist entry")
	}
	return entry, nil
}
