package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/gymflow/gymflow-api/internal/models"
)

// WaitlistRepository handles persistence of waitlist entries.
type WaitlistRepository struct {
	db *sqlx.DB
}

// NewWaitlistRepository constructs the repository.
func NewWaitlistRepository(db *sqlx.DB) *WaitlistRepository {
	return &WaitlistRepository{db: db}
}

// Create inserts a WAITING entry with version 1.
func (r *WaitlistRepository) Create(ctx context.Context, entry *models.WaitlistEntry) error {
	if entry.JoinedAt.IsZero() {
		entry.JoinedAt = time.Now().UTC()
	}
	if entry.Status == "" {
		entry.Status = models.WaitlistStatusWaiting
	}
	entry.Version = 1
	const query = `INSERT INTO waitlist_entries (member_id, class_id, joined_at, status, version)
VALUES ($1, $2, $3, $4, $5) RETURNING id`
	if err := r.db.GetContext(ctx, &entry.ID, query, entry.MemberID, entry.ClassID, entry.JoinedAt, entry.Status, entry.Version); err != nil {
		return fmt.Errorf("create waitlist entry: %w", err)
	}
	return nil
}

// FindByID returns a waitlist entry by its ID.
func (r *WaitlistRepository) FindByID(ctx context.Context, id int64) (*models.WaitlistEntry, error) {
	const query = `SELECT id, member_id, class_id, joined_at, status, notified_at, version FROM waitlist_entries WHERE id = $1`
	var entry models.WaitlistEntry
	if err := r.db.GetContext(ctx, &entry, query, id); err != nil {
		return nil, err
	}
	return &entry, nil
}

// ExistsWaiting checks if a WAITING entry exists for the pair.
func (r *WaitlistRepository) ExistsWaiting(ctx context.Context, memberID, classID int64) (bool, error) {
	const query = `SELECT 1 FROM waitlist_entries WHERE member_id = $1 AND class_id = $2 AND status = $3 LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, memberID, classID, models.WaitlistStatusWaiting); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check waiting entry: %w", err)
	}
	return true, nil
}

// Position computes the 1-based FIFO position of an entry among the WAITING
// entries of its class, ordered by (joined_at, id) ascending, plus the total
// number still waiting.
func (r *WaitlistRepository) Position(ctx context.Context, entry *models.WaitlistEntry) (int, int, error) {
	const aheadQuery = `SELECT COUNT(*) FROM waitlist_entries
WHERE class_id = $1 AND status = $2 AND (joined_at < $3 OR (joined_at = $3 AND id < $4))`
	var ahead int
	if err := r.db.GetContext(ctx, &ahead, aheadQuery, entry.ClassID, models.WaitlistStatusWaiting, entry.JoinedAt, entry.ID); err != nil {
		return 0, 0, fmt.Errorf("count entries ahead: %w", err)
	}

	total, err := r.CountWaiting(ctx, entry.ClassID)
	if err != nil {
		return 0, 0, err
	}
	return ahead + 1, total, nil
}

// CountWaiting returns the number of WAITING entries for a class.
func (r *WaitlistRepository) CountWaiting(ctx context.Context, classID int64) (int, error) {
	const query = `SELECT COUNT(*) FROM waitlist_entries WHERE class_id = $1 AND status = $2`
	var count int
	if err := r.db.GetContext(ctx, &count, query, classID, models.WaitlistStatusWaiting); err != nil {
		return 0, fmt.Errorf("count waiting entries: %w", err)
	}
	return count, nil
}

// FirstWaiting returns the earliest WAITING entry for a class, or
// sql.ErrNoRows when the queue is empty.
func (r *WaitlistRepository) FirstWaiting(ctx context.Context, classID int64) (*models.WaitlistEntry, error) {
	const query = `SELECT id, member_id, class_id, joined_at, status, notified_at, version FROM waitlist_entries
WHERE class_id = $1 AND status = $2 ORDER BY joined_at ASC, id ASC LIMIT 1`
	var entry models.WaitlistEntry
	if err := r.db.GetContext(ctx, &entry, query, classID, models.WaitlistStatusWaiting); err != nil {
		return nil, err
	}
	return &entry, nil
}

// ClaimPromotion consumes a WAITING entry via compare-and-swap on its
// version. A false return means another promotion already took it.
func (r *WaitlistRepository) ClaimPromotion(ctx context.Context, id int64, version int) (bool, error) {
	const query = `UPDATE waitlist_entries SET status = $3, version = version + 1
WHERE id = $1 AND version = $2 AND status = $4`
	res, err := r.db.ExecContext(ctx, query, id, version, models.WaitlistStatusPromoted, models.WaitlistStatusWaiting)
	if err != nil {
		return false, fmt.Errorf("claim waitlist entry: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("claim waitlist entry rows: %w", err)
	}
	return affected == 1, nil
}

// UpdateStatus transitions an entry to the given status unconditionally.
func (r *WaitlistRepository) UpdateStatus(ctx context.Context, id int64, status models.WaitlistStatus) error {
	const query = `UPDATE waitlist_entries SET status = $2, version = version + 1 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, status); err != nil {
		return fmt.Errorf("update waitlist status: %w", err)
	}
	return nil
}

// SetNotified stamps the promotion notification time.
func (r *WaitlistRepository) SetNotified(ctx context.Context, id int64, notifiedAt time.Time) error {
	const query = `UPDATE waitlist_entries SET notified_at = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, notifiedAt); err != nil {
		return fmt.Errorf("set waitlist notified_at: %w", err)
	}
	return nil
}

// ExpireStarted batch-transitions WAITING entries of already-started classes
// to EXPIRED, returning the number of rows affected.
func (r *WaitlistRepository) ExpireStarted(ctx context.Context, now time.Time) (int64, error) {
	const query = `UPDATE waitlist_entries we SET status = $1, version = we.version + 1
FROM scheduled_classes c
WHERE we.class_id = c.id AND we.status = $2 AND c.start_time <= $3`
	res, err := r.db.ExecContext(ctx, query, models.WaitlistStatusExpired, models.WaitlistStatusWaiting, now)
	if err != nil {
		return 0, fmt.Errorf("expire waitlist entries: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("expire waitlist entries rows: %w", err)
	}
	return affected, nil
}

// ListWaitingByClass returns WAITING entries for a class in queue order.
func (r *WaitlistRepository) ListWaitingByClass(ctx context.Context, classID int64) ([]models.WaitlistEntry, error) {
	const query = `SELECT id, member_id, class_id, joined_at, status, notified_at, version FROM waitlist_entries
WHERE class_id = $1 AND status = $2 ORDER BY joined_at ASC, id ASC`
	var entries []models.WaitlistEntry
	if err := r.db.SelectContext(ctx, &entries, query, classID, models.WaitlistStatusWaiting); err != nil {
		return nil, fmt.Errorf("list waiting entries: %w", err)
	}
	return entries, nil
}
