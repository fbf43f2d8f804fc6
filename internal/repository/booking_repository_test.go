package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gymflow/gymflow-api/internal/models"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	sqlxDB := sqlx.NewDb(db, "postgres")
	cleanup := func() {
		_ = sqlxDB.Close()
		db.Close()
	}
	return sqlxDB, mock, cleanup
}

func TestBookingRepositoryFindByID(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewBookingRepository(db)

	bookedAt := time.Now()
	rows := sqlmock.NewRows([]string{"id", "member_id", "class_id", "status", "booked_at", "cancelled_at"}).
		AddRow(int64(5), int64(1), int64(10), "ENROLLED", bookedAt, nil)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, member_id, class_id, status, booked_at, cancelled_at FROM bookings WHERE id = $1`)).
		WithArgs(int64(5)).
		WillReturnRows(rows)

	booking, err := repo.FindByID(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, int64(5), booking.ID)
	assert.Equal(t, models.BookingStatusEnrolled, booking.Status)
}

func TestBookingRepositoryCreateEnrolled(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewBookingRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id FROM scheduled_classes WHERE id = $1 FOR UPDATE`)).
		WithArgs(int64(10)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(10)))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT 1 FROM bookings WHERE member_id = $1 AND class_id = $2 AND status = $3 LIMIT 1`)).
		WithArgs(int64(1), int64(10), models.BookingStatusEnrolled).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM bookings WHERE class_id = $1 AND status = $2`)).
		WithArgs(int64(10), models.BookingStatusEnrolled).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO bookings (member_id, class_id, status, booked_at)`)).
		WithArgs(int64(1), int64(10), models.BookingStatusEnrolled, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(42)))
	mock.ExpectCommit()

	booking, err := repo.CreateEnrolled(context.Background(), 1, 10, 5)
	require.NoError(t, err)
	assert.Equal(t, int64(42), booking.ID)
	assert.Equal(t, models.BookingStatusEnrolled, booking.Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingRepositoryCreateEnrolledCapacityReached(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewBookingRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id FROM scheduled_classes WHERE id = $1 FOR UPDATE`)).
		WithArgs(int64(10)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(10)))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT 1 FROM bookings`)).
		WithArgs(int64(1), int64(10), models.BookingStatusEnrolled).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM bookings`)).
		WithArgs(int64(10), models.BookingStatusEnrolled).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(5))
	mock.ExpectRollback()

	_, err := repo.CreateEnrolled(context.Background(), 1, 10, 5)
	require.Error(t, err)
	var capErr *CapacityReachedError
	require.True(t, errors.As(err, &capErr))
	assert.Equal(t, 5, capErr.Enrolled)
	assert.Equal(t, 5, capErr.Capacity)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingRepositoryCreateEnrolledDuplicate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewBookingRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id FROM scheduled_classes WHERE id = $1 FOR UPDATE`)).
		WithArgs(int64(10)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(10)))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT 1 FROM bookings`)).
		WithArgs(int64(1), int64(10), models.BookingStatusEnrolled).
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))
	mock.ExpectRollback()

	_, err := repo.CreateEnrolled(context.Background(), 1, 10, 5)
	require.ErrorIs(t, err, ErrAlreadyEnrolled)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingRepositoryExistsEnrolledFalse(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewBookingRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT 1 FROM bookings`)).
		WithArgs(int64(1), int64(10), models.BookingStatusEnrolled).
		WillReturnError(sql.ErrNoRows)

	exists, err := repo.ExistsEnrolled(context.Background(), 1, 10)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestBookingRepositoryUpdateStatus(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewBookingRepository(db)

	cancelledAt := time.Now()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE bookings SET status = $2, cancelled_at = $3 WHERE id = $1`)).
		WithArgs(int64(5), models.BookingStatusCancelled, &cancelledAt).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.UpdateStatus(context.Background(), 5, models.BookingStatusCancelled, &cancelledAt)
	require.NoError(t, err)
}

func TestBookingRepositoryCancelAllForClass(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewBookingRepository(db)

	cancelledAt := time.Now()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE bookings SET status = $2, cancelled_at = $3 WHERE class_id = $1 AND status = $4`)).
		WithArgs(int64(10), models.BookingStatusCancelled, cancelledAt, models.BookingStatusEnrolled).
		WillReturnResult(sqlmock.NewResult(0, 7))

	affected, err := repo.CancelAllForClass(context.Background(), 10, cancelledAt)
	require.NoError(t, err)
	assert.Equal(t, int64(7), affected)
}
