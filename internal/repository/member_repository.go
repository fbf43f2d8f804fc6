package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/gymflow/gymflow-api/internal/models"
)

// MemberRepository handles member lookups and lifecycle transitions.
type MemberRepository struct {
	db *sqlx.DB
}

// NewMemberRepository constructs the repository.
func NewMemberRepository(db *sqlx.DB) *MemberRepository {
	return &MemberRepository{db: db}
}

// FindByID returns a member by ID.
func (r *MemberRepository) FindByID(ctx context.Context, id int64) (*models.Member, error) {
	const query = `SELECT id, full_name, email, plan_id, membership_start_date, membership_end_date, membership_status
FROM members WHERE id = $1`
	var member models.Member
	if err := r.db.GetContext(ctx, &member, query, id); err != nil {
		return nil, err
	}
	return &member, nil
}

// MoveActiveToGracePeriod flips ACTIVE members whose membership ended before
// today into GRACE_PERIOD. The predicate excludes already-moved rows, so the
// statement is idempotent across repeated runs.
func (r *MemberRepository) MoveActiveToGracePeriod(ctx context.Context, today time.Time) (int64, error) {
	const query = `UPDATE members SET membership_status = $1
WHERE membership_status = $2 AND membership_end_date IS NOT NULL AND membership_end_date < $3`
	res, err := r.db.ExecContext(ctx, query, models.MembershipStatusGracePeriod, models.MembershipStatusActive, today)
	if err != nil {
		return 0, fmt.Errorf("move members to grace period: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("grace period rows: %w", err)
	}
	return affected, nil
}

// MoveGracePeriodToExpired flips GRACE_PERIOD members whose membership ended
// before the grace cutoff into EXPIRED.
func (r *MemberRepository) MoveGracePeriodToExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	const query = `UPDATE members SET membership_status = $1
WHERE membership_status = $2 AND membership_end_date IS NOT NULL AND membership_end_date < $3`
	res, err := r.db.ExecContext(ctx, query, models.MembershipStatusExpired, models.MembershipStatusGracePeriod, cutoff)
	if err != nil {
		return 0, fmt.Errorf("move members to expired: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("expired rows: %w", err)
	}
	return affected, nil
}
