package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/gymflow/gymflow-api/internal/models"
	"github.com/gymflow/gymflow-api/internal/repository"
	appErrors "github.com/gymflow/gymflow-api/pkg/errors"
)

type bookingRepository interface {
	FindByID(ctx context.Context, id int64) (*models.Booking, error)
	FindDetailByID(ctx context.Context, id int64) (*models.BookingDetail, error)
	List(ctx context.Context, filter models.BookingFilter) ([]models.BookingDetail, int, error)
	CountEnrolled(ctx context.Context, classID int64) (int, error)
	ExistsEnrolled(ctx context.Context, memberID, classID int64) (bool, error)
	CreateEnrolled(ctx context.Context, memberID, classID int64, capacity int) (*models.Booking, error)
	ReEnroll(ctx context.Context, booking *models.Booking, capacity int) error
	UpdateStatus(ctx context.Context, id int64, status models.BookingStatus, cancelledAt *time.Time) error
	CancelAllForClass(ctx context.Context, classID int64, cancelledAt time.Time) (int64, error)
}

type memberReader interface {
	FindByID(ctx context.Context, id int64) (*models.Member, error)
}

type classReader interface {
	FindByID(ctx context.Context, id int64) (*models.ClassDetail, error)
}

type waitingCounter interface {
	CountWaiting(ctx context.Context, classID int64) (int, error)
}

type classPromoter interface {
	PromoteFromWaitlist(ctx context.Context, classID int64) (*models.PromotionResult, error)
}

type availabilityCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string)
}

// CreateBookingRequest describes booking creation payload.
type CreateBookingRequest struct {
	MemberID int64 `json:"member_id" validate:"required,gt=0"`
	ClassID  int64 `json:"class_id" validate:"required,gt=0"`
}

// BookingService orchestrates capacity-bound enrollment, cancellation with
// deadline policy and re-enrollment.
type BookingService struct {
	repo     bookingRepository
	members  memberReader
	classes  classReader
	waiting  waitingCounter
	promoter classPromoter
	cache    availabilityCache
	cacheTTL time.Duration

	cancellationDeadline time.Duration

	validator *validator.Validate
	logger    *zap.Logger
	metrics   *MetricsService
	now       func() time.Time
}

// BookingServiceParams bundles the collaborators of BookingService.
type BookingServiceParams struct {
	Repo                 bookingRepository
	Members              memberReader
	Classes              classReader
	Waiting              waitingCounter
	Promoter             classPromoter
	Cache                availabilityCache
	CacheTTL             time.Duration
	CancellationDeadline time.Duration
	Validator            *validator.Validate
	Logger               *zap.Logger
	Metrics              *MetricsService
}

// NewBookingService constructs BookingService.
func NewBookingService(p BookingServiceParams) *BookingService {
	if p.Validator == nil {
		p.Validator = validator.New()
	}
	if p.Logger == nil {
		p.Logger = zap.NewNop()
	}
	if p.CancellationDeadline <= 0 {
		p.CancellationDeadline = time.Hour
	}
	if p.CacheTTL <= 0 {
		p.CacheTTL = 30 * time.Second
	}
	return &BookingService{
		repo:                 p.Repo,
		members:              p.Members,
		classes:              p.Classes,
		waiting:              p.Waiting,
		promoter:             p.Promoter,
		cache:                p.Cache,
		cacheTTL:             p.CacheTTL,
		cancellationDeadline: p.CancellationDeadline,
		validator:            p.Validator,
		logger:               p.Logger,
		metrics:              p.Metrics,
		now:                  func() time.Time { return time.Now().UTC() },
	}
}

// List returns bookings with pagination metadata.
func (s *BookingService) List(ctx context.Context, filter models.BookingFilter) ([]models.BookingDetail, *models.Pagination, error) {
	bookings, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list bookings")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	pagination := &models.Pagination{Page: page, PageSize: size, TotalCount: total}
	return bookings, pagination, nil
}

// Get returns one booking with contextual info.
func (s *BookingService) Get(ctx context.Context, id int64) (*models.BookingDetail, error) {
	detail, err := s.repo.FindDetailByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "booking not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load booking")
	}
	return detail, nil
}

// CreateBooking enrolls a member into a class. The capacity and duplicate
// checks are re-evaluated transactionally with the insert, so two
// concurrent creates can never both pass a full class.
func (s *BookingService) CreateBooking(ctx context.Context, req CreateBookingRequest) (*models.Booking, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid booking payload")
	}
	member, class, err := s.loadMemberAndClass(ctx, req.MemberID, req.ClassID)
	if err != nil {
		return nil, err
	}
	if err := s.checkBookable(member, class); err != nil {
		return nil, err
	}

	booking, err := s.repo.CreateEnrolled(ctx, req.MemberID, req.ClassID, class.Capacity)
	if err != nil {
		return nil, s.mapSeatError(err, req.MemberID, req.ClassID)
	}

	s.invalidateAvailability(ctx, class.ID)
	s.metrics.CountBookingCreated()
	s.logger.Info("booking created",
		zap.Int64("booking_id", booking.ID),
		zap.Int64("member_id", req.MemberID),
		zap.Int64("class_id", req.ClassID))
	return booking, nil
}

// CancelBooking cancels an ENROLLED booking and synchronously attempts to
// promote the earliest waitlisted member into the freed seat. Promotion
// failures are absorbed: once the cancellation preconditions pass, the
// cancellation itself always succeeds.
func (s *BookingService) CancelBooking(ctx context.Context, id int64) (*models.BookingDetail, error) {
	booking, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "booking not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load booking")
	}
	if booking.Status == models.BookingStatusCancelled {
		return nil, appErrors.Clone(appErrors.ErrBusinessRule, "booking already cancelled")
	}

	class, err := s.loadClass(ctx, booking.ClassID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	deadline := class.StartTime.Add(-s.cancellationDeadline)
	if now.After(deadline) {
		return nil, appErrors.Clone(appErrors.ErrBusinessRule,
			fmt.Sprintf("cancellation deadline was %s", deadline.Format(time.RFC3339)))
	}

	cancelledAt := now
	if err := s.repo.UpdateStatus(ctx, id, models.BookingStatusCancelled, &cancelledAt); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to cancel booking")
	}
	s.metrics.CountBookingCancelled()
	s.invalidateAvailability(ctx, class.ID)

	if s.promoter != nil {
		result, err := s.promoter.PromoteFromWaitlist(ctx, class.ID)
		if err != nil {
			s.logger.Warn("waitlist promotion failed after cancellation",
				zap.Int64("class_id", class.ID), zap.Error(err))
		} else if result != nil && result.Booking != nil {
			s.logger.Info("waitlist member promoted",
				zap.Int64("class_id", class.ID),
				zap.Int64("promoted_member_id", result.Booking.MemberID),
				zap.Int64("new_booking_id", result.Booking.ID))
		}
	}

	detail, err := s.repo.FindDetailByID(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load booking detail")
	}
	return detail, nil
}

// ReEnrollBooking flips a CANCELLED booking back to ENROLLED, re-running the
// same eligibility predicates as CreateBooking.
func (s *BookingService) ReEnrollBooking(ctx context.Context, id int64) (*models.BookingDetail, error) {
	booking, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "booking not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load booking")
	}
	if booking.Status == models.BookingStatusEnrolled {
		return nil, appErrors.Clone(appErrors.ErrBusinessRule, "booking already enrolled")
	}

	member, class, err := s.loadMemberAndClass(ctx, booking.MemberID, booking.ClassID)
	if err != nil {
		return nil, err
	}
	if err := s.checkBookable(member, class); err != nil {
		return nil, err
	}

	if err := s.repo.ReEnroll(ctx, booking, class.Capacity); err != nil {
		return nil, s.mapSeatError(err, booking.MemberID, booking.ClassID)
	}

	s.invalidateAvailability(ctx, class.ID)
	s.metrics.CountBookingCreated()

	detail, err := s.repo.FindDetailByID(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load booking detail")
	}
	return detail, nil
}

// CancelAllForClass bulk-cancels every ENROLLED booking of a class as part
// of the class-removal flow. It deliberately skips waitlist promotion.
func (s *BookingService) CancelAllForClass(ctx context.Context, classID int64) (int64, error) {
	if _, err := s.loadClass(ctx, classID); err != nil {
		return 0, err
	}
	affected, err := s.repo.CancelAllForClass(ctx, classID, s.now())
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to cancel class bookings")
	}
	s.invalidateAvailability(ctx, classID)
	s.logger.Info("class bookings cancelled", zap.Int64("class_id", classID), zap.Int64("count", affected))
	return affected, nil
}

// CheckEligibility mirrors the CreateBooking predicates without mutating
// state. The verdict is advisory: a later create re-validates atomically.
func (s *BookingService) CheckEligibility(ctx context.Context, memberID, classID int64) (*models.EligibilityCheck, error) {
	member, class, err := s.loadMemberAndClass(ctx, memberID, classID)
	if err != nil {
		return nil, err
	}
	if err := s.checkBookable(member, class); err != nil {
		return &models.EligibilityCheck{Eligible: false, Reason: appErrors.FromError(err).Message}, nil
	}
	enrolled, err := s.repo.ExistsEnrolled(ctx, memberID, classID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check enrollment")
	}
	if enrolled {
		return &models.EligibilityCheck{Eligible: false, Reason: fmt.Sprintf("member %d already enrolled in class %d", memberID, classID)}, nil
	}
	count, err := s.repo.CountEnrolled(ctx, classID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count enrollment")
	}
	if count >= class.Capacity {
		return &models.EligibilityCheck{Eligible: false, Reason: fmt.Sprintf("class full: %d/%d capacity", count, class.Capacity)}, nil
	}
	return &models.EligibilityCheck{Eligible: true}, nil
}

// GetClassAvailability returns the advisory seat snapshot for a class,
// served from cache when fresh.
func (s *BookingService) GetClassAvailability(ctx context.Context, classID int64) (*models.ClassAvailability, error) {
	key := availabilityCacheKey(classID)
	if s.cache != nil {
		var cached models.ClassAvailability
		if err := s.cache.Get(ctx, key, &cached); err == nil {
			return &cached, nil
		}
	}

	class, err := s.loadClass(ctx, classID)
	if err != nil {
		return nil, err
	}
	enrolled, err := s.repo.CountEnrolled(ctx, classID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count enrollment")
	}
	waiting := 0
	if s.waiting != nil {
		if waiting, err = s.waiting.CountWaiting(ctx, classID); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count waitlist")
		}
	}

	spots := class.Capacity - enrolled
	if spots < 0 {
		spots = 0
	}
	availability := &models.ClassAvailability{
		ClassID:       classID,
		Capacity:      class.Capacity,
		EnrolledCount: enrolled,
		SpotsLeft:     spots,
		WaitingCount:  waiting,
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, availability, s.cacheTTL); err != nil {
			s.logger.Warn("availability cache write failed", zap.Int64("class_id", classID), zap.Error(err))
		}
	}
	return availability, nil
}

func (s *BookingService) loadMemberAndClass(ctx context.Context, memberID, classID int64) (*models.Member, *models.ClassDetail, error) {
	member, err := s.members.FindByID(ctx, memberID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "member not found")
		}
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load member")
	}
	class, err := s.loadClass(ctx, classID)
	if err != nil {
		return nil, nil, err
	}
	return member, class, nil
}

func (s *BookingService) loadClass(ctx context.Context, classID int64) (*models.ClassDetail, error) {
	class, err := s.classes.FindByID(ctx, classID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}
	return class, nil
}

// checkBookable holds the predicates shared by create, re-enroll and the
// advisory eligibility check.
func (s *BookingService) checkBookable(member *models.Member, class *models.ClassDetail) error {
	if !class.StartTime.After(s.now()) {
		return appErrors.Clone(appErrors.ErrBusinessRule,
			fmt.Sprintf("class already started at %s", class.StartTime.Format(time.RFC3339)))
	}
	if !member.HasActivePlan() {
		return appErrors.Clone(appErrors.ErrBusinessRule,
			fmt.Sprintf("member %d has no active plan (status %s)", member.ID, member.MembershipStatus))
	}
	return nil
}

func (s *BookingService) mapSeatError(err error, memberID, classID int64) error {
	var capErr *repository.CapacityReachedError
	if errors.As(err, &capErr) {
		return appErrors.Clone(appErrors.ErrBusinessRule,
			fmt.Sprintf("class full: %d/%d capacity", capErr.Enrolled, capErr.Capacity))
	}
	if errors.Is(err, repository.ErrAlreadyEnrolled) {
		return appErrors.Clone(appErrors.ErrBusinessRule,
			fmt.Sprintf("member %d already enrolled in class %d", memberID, classID))
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create booking")
}

func (s *BookingService) invalidateAvailability(ctx context.Context, classID int64) {
	if s.cache != nil {
		s.cache.Delete(ctx, availabilityCacheKey(classID))
	}
}

func availabilityCacheKey(classID int64) string {
	return fmt.Sprintf("availability:class:%d", classID)
}
