package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gymflow/gymflow-api/internal/models"
)

func TestWaitlistRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewWaitlistRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO waitlist_entries (member_id, class_id, joined_at, status, version)`)).
		WithArgs(int64(1), int64(10), sqlmock.AnyArg(), models.WaitlistStatusWaiting, 1).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(7)))

	entry := &models.WaitlistEntry{MemberID: 1, ClassID: 10}
	err := repo.Create(context.Background(), entry)
	require.NoError(t, err)
	assert.Equal(t, int64(7), entry.ID)
	assert.Equal(t, 1, entry.Version)
	assert.Equal(t, models.WaitlistStatusWaiting, entry.Status)
	assert.False(t, entry.JoinedAt.IsZero())
}

func TestWaitlistRepositoryClaimPromotion(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewWaitlistRepository(db)

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE waitlist_entries SET status = $3, version = version + 1`)).
		WithArgs(int64(7), 1, models.WaitlistStatusPromoted, models.WaitlistStatusWaiting).
		WillReturnResult(sqlmock.NewResult(0, 1))

	claimed, err := repo.ClaimPromotion(context.Background(), 7, 1)
	require.NoError(t, err)
	assert.True(t, claimed)
}

func TestWaitlistRepositoryClaimPromotionStaleVersion(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewWaitlistRepository(db)

	// A concurrent promotion already bumped the version; no row matches.
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE waitlist_entries SET status = $3, version = version + 1`)).
		WithArgs(int64(7), 1, models.WaitlistStatusPromoted, models.WaitlistStatusWaiting).
		WillReturnResult(sqlmock.NewResult(0, 0))

	claimed, err := repo.ClaimPromotion(context.Background(), 7, 1)
	require.NoError(t, err)
	assert.False(t, claimed)
}

func TestWaitlistRepositoryPosition(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewWaitlistRepository(db)

	joinedAt := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM waitlist_entries
WHERE class_id = $1 AND status = $2 AND (joined_at < $3 OR (joined_at = $3 AND id < $4))`)).
		WithArgs(int64(10), models.WaitlistStatusWaiting, joinedAt, int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM waitlist_entries WHERE class_id = $1 AND status = $2`)).
		WithArgs(int64(10), models.WaitlistStatusWaiting).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(5))

	position, total, err := repo.Position(context.Background(), &models.WaitlistEntry{ID: 7, ClassID: 10, JoinedAt: joinedAt})
	require.NoError(t, err)
	assert.Equal(t, 3, position)
	assert.Equal(t, 5, total)
}

func TestWaitlistRepositoryFirstWaiting(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewWaitlistRepository(db)

	joinedAt := time.Now()
	rows := sqlmock.NewRows([]string{"id", "member_id", "class_id", "joined_at", "status", "notified_at", "version"}).
		AddRow(int64(7), int64(1), int64(10), joinedAt, "WAITING", nil, 1)

	mock.ExpectQuery(regexp.QuoteMeta(`ORDER BY joined_at ASC, id ASC LIMIT 1`)).
		WithArgs(int64(10), models.WaitlistStatusWaiting).
		WillReturnRows(rows)

	entry, err := repo.FirstWaiting(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, int64(7), entry.ID)
	assert.Equal(t, 1, entry.Version)
}

func TestWaitlistRepositoryExpireStarted(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewWaitlistRepository(db)

	now := time.Now()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE waitlist_entries we SET status = $1, version = we.version + 1`)).
		WithArgs(models.WaitlistStatusExpired, models.WaitlistStatusWaiting, now).
		WillReturnResult(sqlmock.NewResult(0, 3))

	expired, err := repo.ExpireStarted(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, int64(3), expired)
}
