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

func TestMemberRepositoryFindByID(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewMemberRepository(db)

	planID := int64(2)
	rows := sqlmock.NewRows([]string{"id", "full_name", "email", "plan_id", "membership_start_date", "membership_end_date", "membership_status"}).
		AddRow(int64(1), "Ada Member", "ada@example.com", planID, time.Now(), nil, "ACTIVE")

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, full_name, email, plan_id, membership_start_date, membership_end_date, membership_status`)).
		WithArgs(int64(1)).
		WillReturnRows(rows)

	member, err := repo.FindByID(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, models.MembershipStatusActive, member.MembershipStatus)
	assert.True(t, member.HasActivePlan())
}

func TestMemberRepositoryMoveActiveToGracePeriod(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewMemberRepository(db)

	today := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE members SET membership_status = $1`)).
		WithArgs(models.MembershipStatusGracePeriod, models.MembershipStatusActive, today).
		WillReturnResult(sqlmock.NewResult(0, 4))

	affected, err := repo.MoveActiveToGracePeriod(context.Background(), today)
	require.NoError(t, err)
	assert.Equal(t, int64(4), affected)
}

func TestMemberRepositoryMoveGracePeriodToExpired(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewMemberRepository(db)

	cutoff := time.Date(2026, 3, 7, 0, 0, 0, 0, time.UTC)
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE members SET membership_status = $1`)).
		WithArgs(models.MembershipStatusExpired, models.MembershipStatusGracePeriod, cutoff).
		WillReturnResult(sqlmock.NewResult(0, 2))

	affected, err := repo.MoveGracePeriodToExpired(context.Background(), cutoff)
	require.NoError(t, err)
	assert.Equal(t, int64(2), affected)
}
