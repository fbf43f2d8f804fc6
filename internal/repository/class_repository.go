package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/gymflow/gymflow-api/internal/models"
)

// ClassRepository handles persistence of scheduled classes.
type ClassRepository struct {
	db *sqlx.DB
}

// NewClassRepository constructs the repository.
func NewClassRepository(db *sqlx.DB) *ClassRepository {
	return &ClassRepository{db: db}
}

const classDetailColumns = `c.id, c.class_type_id, c.trainer_id, c.room_id, c.start_time,
        ct.name AS class_type_name, t.full_name AS trainer_name, rm.name AS room_name, rm.capacity AS capacity`

const classDetailJoins = `FROM scheduled_classes c
LEFT JOIN class_types ct ON ct.id = c.class_type_id
LEFT JOIN trainers t ON t.id = c.trainer_id
LEFT JOIN rooms rm ON rm.id = c.room_id`

// FindByID returns a class with its room-derived capacity.
func (r *ClassRepository) FindByID(ctx context.Context, id int64) (*models.ClassDetail, error) {
	query := fmt.Sprintf("SELECT %s %s WHERE c.id = $1", classDetailColumns, classDetailJoins)
	var detail models.ClassDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// List returns classes filtered by the provided criteria.
func (r *ClassRepository) List(ctx context.Context, filter models.ClassFilter) ([]models.ClassDetail, int, error) {
	var conditions []string
	var args []interface{}

	if filter.TrainerID != 0 {
		conditions = append(conditions, fmt.Sprintf("c.trainer_id = $%d", len(args)+1))
		args = append(args, filter.TrainerID)
	}
	if filter.RoomID != 0 {
		conditions = append(conditions, fmt.Sprintf("c.room_id = $%d", len(args)+1))
		args = append(args, filter.RoomID)
	}
	if filter.From != nil {
		conditions = append(conditions, fmt.Sprintf("c.start_time >= $%d", len(args)+1))
		args = append(args, *filter.From)
	}
	if filter.To != nil {
		conditions = append(conditions, fmt.Sprintf("c.start_time < $%d", len(args)+1))
		args = append(args, *filter.To)
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

	query := fmt.Sprintf("SELECT %s %s%s ORDER BY c.start_time ASC LIMIT %d OFFSET %d",
		classDetailColumns, classDetailJoins, clause, size, offset)

	var classes []models.ClassDetail
	if err := r.db.SelectContext(ctx, &classes, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list classes: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s%s", classDetailJoins, clause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count classes: %w", err)
	}
	return classes, total, nil
}

// Create persists a new scheduled class.
func (r *ClassRepository) Create(ctx context.Context, class *models.ScheduledClass) error {
	const query = `INSERT INTO scheduled_classes (class_type_id, trainer_id, room_id, start_time)
VALUES ($1, $2, $3, $4) RETURNING id`
	if err := r.db.GetContext(ctx, &class.ID, query, class.ClassTypeID, class.TrainerID, class.RoomID, class.StartTime); err != nil {
		return fmt.Errorf("create class: %w", err)
	}
	return nil
}

// Update modifies an existing scheduled class.
func (r *ClassRepository) Update(ctx context.Context, class *models.ScheduledClass) error {
	const query = `UPDATE scheduled_classes SET class_type_id = $2, trainer_id = $3, room_id = $4, start_time = $5 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, class.ID, class.ClassTypeID, class.TrainerID, class.RoomID, class.StartTime); err != nil {
		return fmt.Errorf("update class: %w", err)
	}
	return nil
}

// FindOverlappingForTrainer returns other classes of the trainer whose
// 1-hour window overlaps [start, end), excluding excludeID on updates.
func (r *ClassRepository) FindOverlappingForTrainer(ctx context.Context, trainerID int64, start, end time.Time, excludeID int64) ([]models.ScheduledClass, error) {
	return r.findOverlapping(ctx, "trainer_id", trainerID, start, end, excludeID)
}

// FindOverlappingForRoom returns other classes in the room whose 1-hour
// window overlaps [start, end), excluding excludeID on updates.
func (r *ClassRepository) FindOverlappingForRoom(ctx context.Context, roomID int64, start, end time.Time, excludeID int64) ([]models.ScheduledClass, error) {
	return r.findOverlapping(ctx, "room_id", roomID, start, end, excludeID)
}

func (r *ClassRepository) findOverlapping(ctx context.Context, column string, id int64, start, end time.Time, excludeID int64) ([]models.ScheduledClass, error) {
	query := fmt.Sprintf(`SELECT id, class_type_id, trainer_id, room_id, start_time FROM scheduled_classes
WHERE %s = $1 AND start_time < $2 AND start_time + interval '1 hour' > $3`, column)
	args := []interface{}{id, end, start}
	if excludeID != 0 {
		query += fmt.Sprintf(" AND id <> $%d", len(args)+1)
		args = append(args, excludeID)
	}
	query += " ORDER BY start_time ASC"

	var classes []models.ScheduledClass
	if err := r.db.SelectContext(ctx, &classes, query, args...); err != nil {
		return nil, fmt.Errorf("find overlapping classes: %w", err)
	}
	return classes, nil
}
