package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/gymflow/gymflow-api/internal/models"
)

// TrainerRepository looks up trainer availability and time off.
type TrainerRepository struct {
	db *sqlx.DB
}

// NewTrainerRepository constructs the repository.
func NewTrainerRepository(db *sqlx.DB) *TrainerRepository {
	return &TrainerRepository{db: db}
}

// ListAvailability returns the trainer's weekly slots for a day of week.
func (r *TrainerRepository) ListAvailability(ctx context.Context, trainerID int64, dayOfWeek int) ([]models.TrainerAvailability, error) {
	const query = `SELECT id, trainer_id, day_of_week, start_minutes, end_minutes FROM trainer_availability
WHERE trainer_id = $1 AND day_of_week = $2 ORDER BY start_minutes ASC`
	var slots []models.TrainerAvailability
	if err := r.db.SelectContext(ctx, &slots, query, trainerID, dayOfWeek); err != nil {
		return nil, fmt.Errorf("list trainer availability: %w", err)
	}
	return slots, nil
}

// HasTimeOff reports whether the trainer has a time-off entry for the date.
func (r *TrainerRepository) HasTimeOff(ctx context.Context, trainerID int64, date time.Time) (bool, error) {
	const query = `SELECT 1 FROM trainer_time_off WHERE trainer_id = $1 AND date = $2::date LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, trainerID, date); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check trainer time off: %w", err)
	}
	return true, nil
}
