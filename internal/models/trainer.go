package models

import "time"

// TrainerAvailability is one weekly slot during which a trainer teaches.
// DayOfWeek follows time.Weekday (0 = Sunday). Times are minutes since
// midnight so slot containment is plain integer comparison.
type TrainerAvailability struct {
	ID           int64 `db:"id" json:"id"`
	TrainerID    int64 `db:"trainer_id" json:"trainer_id"`
	DayOfWeek    int   `db:"day_of_week" json:"day_of_week"`
	StartMinutes int   `db:"start_minutes" json:"start_minutes"`
	EndMinutes   int   `db:"end_minutes" json:"end_minutes"`
}

// Covers reports whether the slot fully contains the [start, end) window of
// a class on the slot's weekday.
func (a *TrainerAvailability) Covers(start, end time.Time) bool {
	if int(start.Weekday()) != a.DayOfWeek {
		return false
	}
	startMin := start.Hour()*60 + start.Minute()
	endMin := startMin + int(end.Sub(start).Minutes())
	return startMin >= a.StartMinutes && endMin <= a.EndMinutes
}

// TrainerTimeOff blocks a trainer for a whole calendar date.
type TrainerTimeOff struct {
	ID        int64     `db:"id" json:"id"`
	TrainerID int64     `db:"trainer_id" json:"trainer_id"`
	Date      time.Time `db:"date" json:"date"`
}
