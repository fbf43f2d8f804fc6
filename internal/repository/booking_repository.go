package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/gymflow/gymflow-api/internal/models"
)

// ErrAlreadyEnrolled is returned when an insert would create a second
// ENROLLED booking for the same (member, class) pair.
var ErrAlreadyEnrolled = errors.New("member already enrolled in class")

// CapacityReachedError is returned when an insert would exceed the
// room-derived capacity of a class.
type CapacityReachedError struct {
	ClassID  int64
	Capacity int
	Enrolled int
}

// Error implements the error interface.
func (e *CapacityReachedError) Error() string {
	return fmt.Sprintf("class %d full: %d/%d capacity", e.ClassID, e.Enrolled, e.Capacity)
}

// BookingRepository handles persistence of bookings.
type BookingRepository struct {
	db *sqlx.DB
}

// NewBookingRepository constructs the repository.
func NewBookingRepository(db *sqlx.DB) *BookingRepository {
	return &BookingRepository{db: db}
}

// FindByID returns a booking by its ID.
func (r *BookingRepository) FindByID(ctx context.Context, id int64) (*models.Booking, error) {
	const query = `SELECT id, member_id, class_id, status, booked_at, cancelled_at FROM bookings WHERE id = $1`
	var booking models.Booking
	if err := r.db.GetContext(ctx, &booking, query, id); err != nil {
		return nil, err
	}
	return &booking, nil
}

// FindDetailByID returns a booking with contextual info.
func (r *BookingRepository) FindDetailByID(ctx context.Context, id int64) (*models.BookingDetail, error) {
	const query = `SELECT b.id, b.member_id, b.class_id, b.status, b.booked_at, b.cancelled_at,
        m.full_name AS member_name, ct.name AS class_type_name, c.start_time AS class_start, rm.name AS room_name
        FROM bookings b
        LEFT JOIN members m ON m.id = b.member_id
        LEFT JOIN scheduled_classes c ON c.id = b.class_id
        LEFT JOIN class_types ct ON ct.id = c.class_type_id
        LEFT JOIN rooms rm ON rm.id = c.room_id
        WHERE b.id = $1`
	var detail models.BookingDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// List returns bookings filtered by the provided criteria.
func (r *BookingRepository) List(ctx context.Context, filter models.BookingFilter) ([]models.BookingDetail, int, error) {
	base := `FROM bookings b
LEFT JOIN members m ON m.id = b.member_id
LEFT JOIN scheduled_classes c ON c.id = b.class_id
LEFT JOIN class_types ct ON ct.id = c.class_type_id
LEFT JOIN rooms rm ON rm.id = c.room_id`
	var conditions []string
	var args []interface{}

	if filter.MemberID != 0 {
		conditions = append(conditions, fmt.Sprintf("b.member_id = $%d", len(args)+1))
		args = append(args, filter.MemberID)
	}
	if filter.ClassID != 0 {
		conditions = append(conditions, fmt.Sprintf("b.class_id = $%d", len(args)+1))
		args = append(args, filter.ClassID)
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("b.status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT b.id, b.member_id, b.class_id, b.status, b.booked_at, b.cancelled_at,
        m.full_name AS member_name, ct.name AS class_type_name, c.start_time AS class_start, rm.name AS room_name
        %s ORDER BY b.booked_at DESC LIMIT %d OFFSET %d`, base+clause, size, offset)

	var bookings []models.BookingDetail
	if err := r.db.SelectContext(ctx, &bookings, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list bookings: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base+clause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count bookings: %w", err)
	}
	return bookings, total, nil
}

// CountEnrolled returns the number of ENROLLED bookings for a class.
func (r *BookingRepository) CountEnrolled(ctx context.Context, classID int64) (int, error) {
	const query = `SELECT COUNT(*) FROM bookings WHERE class_id = $1 AND status = $2`
	var count int
	if err := r.db.GetContext(ctx, &count, query, classID, models.BookingStatusEnrolled); err != nil {
		return 0, fmt.Errorf("count enrolled bookings: %w", err)
	}
	return count, nil
}

// ExistsEnrolled checks if an ENROLLED booking exists for the pair.
func (r *BookingRepository) ExistsEnrolled(ctx context.Context, memberID, classID int64) (bool, error) {
	const query = `SELECT 1 FROM bookings WHERE member_id = $1 AND class_id = $2 AND status = $3 LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, memberID, classID, models.BookingStatusEnrolled); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check enrolled booking: %w", err)
	}
	return true, nil
}

// CreateEnrolled inserts an ENROLLED booking after re-validating capacity and
// uniqueness inside one transaction. The class row is locked so concurrent
// creates serialise; without it two requests could both pass the count.
func (r *BookingRepository) CreateEnrolled(ctx context.Context, memberID, classID int64, capacity int) (booking *models.Booking, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin booking transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = r.guardSeat(ctx, tx, memberID, classID, capacity); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	created := models.Booking{MemberID: memberID, ClassID: classID, Status: models.BookingStatusEnrolled, BookedAt: now}
	const insertQuery = `INSERT INTO bookings (member_id, class_id, status, booked_at)
VALUES ($1, $2, $3, $4) RETURNING id`
	if err = tx.GetContext(ctx, &created.ID, insertQuery, memberID, classID, created.Status, now); err != nil {
		return nil, fmt.Errorf("insert booking: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit booking: %w", err)
	}
	return &created, nil
}

// ReEnroll flips a CANCELLED booking back to ENROLLED under the same
// capacity and uniqueness guards as CreateEnrolled.
func (r *BookingRepository) ReEnroll(ctx context.Context, booking *models.Booking, capacity int) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin re-enroll transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = r.guardSeat(ctx, tx, booking.MemberID, booking.ClassID, capacity); err != nil {
		return err
	}

	const updateQuery = `UPDATE bookings SET status = $2, cancelled_at = NULL WHERE id = $1`
	if _, err = tx.ExecContext(ctx, updateQuery, booking.ID, models.BookingStatusEnrolled); err != nil {
		return fmt.Errorf("re-enroll booking: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit re-enroll: %w", err)
	}
	return nil
}

// guardSeat locks the class row and re-checks capacity and uniqueness so the
// caller's write is consistent with the snapshot it validated against.
func (r *BookingRepository) guardSeat(ctx context.Context, tx *sqlx.Tx, memberID, classID int64, capacity int) error {
	var lockedID int64
	const lockQuery = `SELECT id FROM scheduled_classes WHERE id = $1 FOR UPDATE`
	if err := tx.GetContext(ctx, &lockedID, lockQuery, classID); err != nil {
		return fmt.Errorf("lock class row: %w", err)
	}

	var dup int
	const dupQuery = `SELECT 1 FROM bookings WHERE member_id = $1 AND class_id = $2 AND status = $3 LIMIT 1`
	if err := tx.GetContext(ctx, &dup, dupQuery, memberID, classID, models.BookingStatusEnrolled); err != nil {
		if err != sql.ErrNoRows {
			return fmt.Errorf("check duplicate booking: %w", err)
		}
	} else {
		return ErrAlreadyEnrolled
	}

	var enrolled int
	const countQuery = `SELECT COUNT(*) FROM bookings WHERE class_id = $1 AND status = $2`
	if err := tx.GetContext(ctx, &enrolled, countQuery, classID, models.BookingStatusEnrolled); err != nil {
		return fmt.Errorf("count enrolled bookings: %w", err)
	}
	if enrolled >= capacity {
		return &CapacityReachedError{ClassID: classID, Capacity: capacity, Enrolled: enrolled}
	}
	return nil
}

// UpdateStatus updates status and cancelled_at for a booking.
func (r *BookingRepository) UpdateStatus(ctx context.Context, id int64, status models.BookingStatus, cancelledAt *time.Time) error {
	const query = `UPDATE bookings SET status = $2, cancelled_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, status, cancelledAt); err != nil {
		return fmt.Errorf("update booking status: %w", err)
	}
	return nil
}

// CancelAllForClass bulk-flips every ENROLLED booking for a class to
// CANCELLED and returns the number of rows affected.
func (r *BookingRepository) CancelAllForClass(ctx context.Context, classID int64, cancelledAt time.Time) (int64, error) {
	const query = `UPDATE bookings SET status = $2, cancelled_at = $3 WHERE class_id = $1 AND status = $4`
	res, err := r.db.ExecContext(ctx, query, classID, models.BookingStatusCancelled, cancelledAt, models.BookingStatusEnrolled)
	if err != nil {
		return 0, fmt.Errorf("cancel class bookings: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("cancel class bookings rows: %w", err)
	}
	return affected, nil
}

// ListEnrolledByClass returns the enrolled roster for one class.
func (r *BookingRepository) ListEnrolledByClass(ctx context.Context, classID int64) ([]models.BookingDetail, error) {
	const query = `SELECT b.id, b.member_id, b.class_id, b.status, b.booked_at, b.cancelled_at,
        m.full_name AS member_name, ct.name AS class_type_name, c.start_time AS class_start, rm.name AS room_name
        FROM bookings b
        LEFT JOIN members m ON m.id = b.member_id
        LEFT JOIN scheduled_classes c ON c.id = b.class_id
        LEFT JOIN class_types ct ON ct.id = c.class_type_id
        LEFT JOIN rooms rm ON rm.id = c.room_id
        WHERE b.class_id = $1 AND b.status = $2
        ORDER BY b.booked_at ASC`
	var bookings []models.BookingDetail
	if err := r.db.SelectContext(ctx, &bookings, query, classID, models.BookingStatusEnrolled); err != nil {
		return nil, fmt.Errorf("list class roster: %w", err)
	}
	return bookings, nil
}
