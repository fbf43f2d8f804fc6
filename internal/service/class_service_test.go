package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gymflow/gymflow-api/internal/models"
	appErrors "github.com/gymflow/gymflow-api/pkg/errors"
)

type mockScheduleRepo struct {
	classes map[int64]*models.ClassDetail
	// existing is the timetable scanned for overlaps.
	existing []models.ScheduledClass
	created  *models.ScheduledClass
	updated  *models.ScheduledClass
}

func (m *mockScheduleRepo) FindByID(ctx context.Context, id int64) (*models.ClassDetail, error) {
	return (&mockClassReader{classes: m.classes}).FindByID(ctx, id)
}

func (m *mockScheduleRepo) List(ctx context.Context, filter models.ClassFilter) ([]models.ClassDetail, int, error) {
	var list []models.ClassDetail
	for _, c := range m.classes {
		list = append(list, *c)
	}
	return list, len(list), nil
}

func (m *mockScheduleRepo) Create(ctx context.Context, class *models.ScheduledClass) error {
	class.ID = 999
	m.created = class
	return nil
}

func (m *mockScheduleRepo) Update(ctx context.Context, class *models.ScheduledClass) error {
	m.updated = class
	return nil
}

func (m *mockScheduleRepo) overlapping(start, end time.Time, excludeID int64, match func(models.ScheduledClass) bool) []models.ScheduledClass {
	var clashes []models.ScheduledClass
	for _, c := range m.existing {
		if c.ID == excludeID || !match(c) {
			continue
		}
		if c.StartTime.Before(end) && c.EndTime().After(start) {
			clashes = append(clashes, c)
		}
	}
	return clashes
}

func (m *mockScheduleRepo) FindOverlappingForTrainer(ctx context.Context, trainerID int64, start, end time.Time, excludeID int64) ([]models.ScheduledClass, error) {
	return m.overlapping(start, end, excludeID, func(c models.ScheduledClass) bool { return c.TrainerID == trainerID }), nil
}

func (m *mockScheduleRepo) FindOverlappingForRoom(ctx context.Context, roomID int64, start, end time.Time, excludeID int64) ([]models.ScheduledClass, error) {
	return m.overlapping(start, end, excludeID, func(c models.ScheduledClass) bool { return c.RoomID == roomID }), nil
}

type mockTrainerReader struct {
	// unavailable drops all weekly slots for these trainers.
	unavailable map[int64]bool
	timeOff     map[int64]bool
}

func (m *mockTrainerReader) ListAvailability(ctx context.Context, trainerID int64, dayOfWeek int) ([]models.TrainerAvailability, error) {
	if m.unavailable[trainerID] {
		return nil, nil
	}
	// Full working day on every weekday.
	return []models.TrainerAvailability{
		{ID: 1, TrainerID: trainerID, DayOfWeek: dayOfWeek, StartMinutes: 6 * 60, EndMinutes: 22 * 60},
	}, nil
}

func (m *mockTrainerReader) HasTimeOff(ctx context.Context, trainerID int64, date time.Time) (bool, error) {
	return m.timeOff[trainerID], nil
}

// Saturday morning, inside the mock availability window.
var classStart = time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)

func TestClassServiceCreate(t *testing.T) {
	repo := &mockScheduleRepo{}
	svc := NewClassService(repo, &mockTrainerReader{}, nil, nil)

	class, err := svc.Create(context.Background(), CreateClassRequest{ClassTypeID: 1, TrainerID: 2, RoomID: 3, StartTime: classStart})
	require.NoError(t, err)
	assert.Equal(t, int64(999), class.ID)
	assert.NotNil(t, repo.created)
}

func TestClassServiceCreateTrainerConflict(t *testing.T) {
	repo := &mockScheduleRepo{existing: []models.ScheduledClass{
		// Same trainer, different room, overlapping window.
		{ID: 50, TrainerID: 2, RoomID: 9, StartTime: classStart.Add(30 * time.Minute)},
	}}
	svc := NewClassService(repo, &mockTrainerReader{}, nil, nil)

	_, err := svc.Create(context.Background(), CreateClassRequest{ClassTypeID: 1, TrainerID: 2, RoomID: 3, StartTime: classStart})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrScheduleConflict.Code, appErr.Code)
	assert.Contains(t, appErr.Message, "trainer conflict")
}

func TestClassServiceCreateRoomConflict(t *testing.T) {
	repo := &mockScheduleRepo{existing: []models.ScheduledClass{
		// Different trainer, same room, overlapping window.
		{ID: 51, TrainerID: 8, RoomID: 3, StartTime: classStart.Add(-30 * time.Minute)},
	}}
	svc := NewClassService(repo, &mockTrainerReader{}, nil, nil)

	_, err := svc.Create(context.Background(), CreateClassRequest{ClassTypeID: 1, TrainerID: 2, RoomID: 3, StartTime: classStart})
	require.Error(t, err)
	assert.Contains(t, appErrors.FromError(err).Message, "room conflict")
}

func TestClassServiceCreateNoConflictDifferentResources(t *testing.T) {
	repo := &mockScheduleRepo{existing: []models.ScheduledClass{
		// Overlapping window but neither trainer nor room is shared.
		{ID: 52, TrainerID: 8, RoomID: 9, StartTime: classStart},
	}}
	svc := NewClassService(repo, &mockTrainerReader{}, nil, nil)

	_, err := svc.Create(context.Background(), CreateClassRequest{ClassTypeID: 1, TrainerID: 2, RoomID: 3, StartTime: classStart})
	require.NoError(t, err)
}

func TestClassServiceCreateBackToBackClasses(t *testing.T) {
	repo := &mockScheduleRepo{existing: []models.ScheduledClass{
		// Ends exactly when the new class starts; windows are half-open.
		{ID: 53, TrainerID: 2, RoomID: 3, StartTime: classStart.Add(-time.Hour)},
	}}
	svc := NewClassService(repo, &mockTrainerReader{}, nil, nil)

	_, err := svc.Create(context.Background(), CreateClassRequest{ClassTypeID: 1, TrainerID: 2, RoomID: 3, StartTime: classStart})
	require.NoError(t, err)
}

func TestClassServiceCreateTrainerUnavailable(t *testing.T) {
	svc := NewClassService(&mockScheduleRepo{}, &mockTrainerReader{unavailable: map[int64]bool{2: true}}, nil, nil)

	_, err := svc.Create(context.Background(), CreateClassRequest{ClassTypeID: 1, TrainerID: 2, RoomID: 3, StartTime: classStart})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrBusinessRule.Code, appErr.Code)
	assert.Contains(t, appErr.Message, "unavailable")
}

func TestClassServiceCreateTrainerTimeOff(t *testing.T) {
	svc := NewClassService(&mockScheduleRepo{}, &mockTrainerReader{timeOff: map[int64]bool{2: true}}, nil, nil)

	_, err := svc.Create(context.Background(), CreateClassRequest{ClassTypeID: 1, TrainerID: 2, RoomID: 3, StartTime: classStart})
	require.Error(t, err)
	assert.Contains(t, appErrors.FromError(err).Message, "time off")
}

func TestClassServiceUpdateIgnoresSelfOverlap(t *testing.T) {
	repo := &mockScheduleRepo{
		classes: map[int64]*models.ClassDetail{
			60: {ScheduledClass: models.ScheduledClass{ID: 60, ClassTypeID: 1, TrainerID: 2, RoomID: 3, StartTime: classStart}, Capacity: 20},
		},
		existing: []models.ScheduledClass{
			{ID: 60, TrainerID: 2, RoomID: 3, StartTime: classStart},
		},
	}
	svc := NewClassService(repo, &mockTrainerReader{}, nil, nil)

	// Rescheduling within its own window must not conflict with itself.
	updated, err := svc.Update(context.Background(), 60, UpdateClassRequest{ClassTypeID: 1, TrainerID: 2, RoomID: 3, StartTime: classStart.Add(15 * time.Minute)})
	require.NoError(t, err)
	assert.Equal(t, int64(60), updated.ID)
	assert.NotNil(t, repo.updated)
}

func TestClassServiceUpdateNotFound(t *testing.T) {
	svc := NewClassService(&mockScheduleRepo{}, &mockTrainerReader{}, nil, nil)

	_, err := svc.Update(context.Background(), 99, UpdateClassRequest{ClassTypeID: 1, TrainerID: 2, RoomID: 3, StartTime: classStart})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
