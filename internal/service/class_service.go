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

type classRepository interface {
	FindByID(ctx context.Context, id int64) (*models.ClassDetail, error)
	List(ctx context.Context, filter models.ClassFilter) ([]models.ClassDetail, int, error)
	Create(ctx context.Context, class *models.ScheduledClass) error
	Update(ctx context.Context, class *models.ScheduledClass) error
	FindOverlappingForTrainer(ctx context.Context, trainerID int64, start, end time.Time, excludeID int64) ([]models.ScheduledClass, error)
	FindOverlappingForRoom(ctx context.Context, roomID int64, start, end time.Time, excludeID int64) ([]models.ScheduledClass, error)
}

type trainerReader interface {
	ListAvailability(ctx context.Context, trainerID int64, dayOfWeek int) ([]models.TrainerAvailability, error)
	HasTimeOff(ctx context.Context, trainerID int64, date time.Time) (bool, error)
}

// CreateClassRequest describes payload for scheduling a class.
type CreateClassRequest struct {
	ClassTypeID int64     `json:"class_type_id" validate:"required,gt=0"`
	TrainerID   int64     `json:"trainer_id" validate:"required,gt=0"`
	RoomID      int64     `json:"room_id" validate:"required,gt=0"`
	StartTime   time.Time `json:"start_time" validate:"required"`
}

// UpdateClassRequest reschedules an existing class.
type UpdateClassRequest struct {
	ClassTypeID int64     `json:"class_type_id" validate:"required,gt=0"`
	TrainerID   int64     `json:"trainer_id" validate:"required,gt=0"`
	RoomID      int64     `json:"room_id" validate:"required,gt=0"`
	StartTime   time.Time `json:"start_time" validate:"required"`
}

// ClassService schedules classes, rejecting any assignment that would
// double-book a trainer or room or fall outside trainer availability.
type ClassService struct {
	repo     classRepository
	trainers trainerReader

	validator *validator.Validate
	logger    *zap.Logger
}

// NewClassService constructs ClassService.
func NewClassService(repo classRepository, trainers trainerReader, validate *validator.Validate, logger *zap.Logger) *ClassService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ClassService{repo: repo, trainers: trainers, validator: validate, logger: logger}
}

// List returns classes with pagination metadata.
func (s *ClassService) List(ctx context.Context, filter models.ClassFilter) ([]models.ClassDetail, *models.Pagination, error) {
	classes, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list classes")
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
	return classes, pagination, nil
}

// Get returns one class with its room-derived capacity.
func (s *ClassService) Get(ctx context.Context, id int64) (*models.ClassDetail, error) {
	class, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}
	return class, nil
}

// Create schedules a new class after conflict validation.
func (s *ClassService) Create(ctx context.Context, req CreateClassRequest) (*models.ScheduledClass, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid class payload")
	}

	class := models.ScheduledClass{
		ClassTypeID: req.ClassTypeID,
		TrainerID:   req.TrainerID,
		RoomID:      req.RoomID,
		StartTime:   req.StartTime.UTC(),
	}

	if err := s.ensureSchedulable(ctx, &class, 0); err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, &class); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create class")
	}
	s.logger.Info("class scheduled",
		zap.Int64("class_id", class.ID),
		zap.Int64("trainer_id", class.TrainerID),
		zap.Int64("room_id", class.RoomID),
		zap.Time("start_time", class.StartTime))
	return &class, nil
}

// Update reschedules an existing class under the same conflict validation,
// excluding the class itself from the overlap scans.
func (s *ClassService) Update(ctx context.Context, id int64, req UpdateClassRequest) (*models.ScheduledClass, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid class payload")
	}

	existing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}

	updated := models.ScheduledClass{
		ID:          existing.ID,
		ClassTypeID: req.ClassTypeID,
		TrainerID:   req.TrainerID,
		RoomID:      req.RoomID,
		StartTime:   req.StartTime.UTC(),
	}

	if err := s.ensureSchedulable(ctx, &updated, existing.ID); err != nil {
		return nil, err
	}

	if err := s.repo.Update(ctx, &updated); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update class")
	}
	return &updated, nil
}

// ensureSchedulable runs the conflict checks in order: trainer availability,
// trainer time off, trainer overlap, room overlap. The first violation
// aborts.
func (s *ClassService) ensureSchedulable(ctx context.Context, class *models.ScheduledClass, ignoreID int64) error {
	start := class.StartTime
	end := class.EndTime()

	slots, err := s.trainers.ListAvailability(ctx, class.TrainerID, int(start.Weekday()))
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load trainer availability")
	}
	covered := false
	for i := range slots {
		if slots[i].Covers(start, end) {
			covered = true
			break
		}
	}
	if !covered {
		return appErrors.Clone(appErrors.ErrBusinessRule,
			fmt.Sprintf("trainer %d unavailable on %s at %s", class.TrainerID, start.Weekday(), start.Format("15:04")))
	}

	timeOff, err := s.trainers.HasTimeOff(ctx, class.TrainerID, start)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load trainer time off")
	}
	if timeOff {
		return appErrors.Clone(appErrors.ErrBusinessRule,
			fmt.Sprintf("trainer %d has time off on %s", class.TrainerID, start.Format("2006-01-02")))
	}

	trainerClashes, err := s.repo.FindOverlappingForTrainer(ctx, class.TrainerID, start, end, ignoreID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check trainer conflicts")
	}
	if len(trainerClashes) > 0 {
		clash := trainerClashes[0]
		return appErrors.Clone(appErrors.ErrScheduleConflict,
			fmt.Sprintf("trainer conflict: trainer %d already teaches class %d at %s",
				class.TrainerID, clash.ID, clash.StartTime.Format(time.RFC3339)))
	}

	roomClashes, err := s.repo.FindOverlappingForRoom(ctx, class.RoomID, start, end, ignoreID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check room conflicts")
	}
	if len(roomClashes) > 0 {
		clash := roomClashes[0]
		return appErrors.Clone(appErrors.ErrScheduleConflict,
			fmt.Sprintf("room conflict: room %d already hosts class %d at %s",
				class.RoomID, clash.ID, clash.StartTime.Format(time.RFC3339)))
	}
	return nil
}
