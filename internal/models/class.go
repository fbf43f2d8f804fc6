package models

import "time"

// ClassDuration is the fixed length of every scheduled class. Conflict
// windows and waitlist expiry both derive from it.
const ClassDuration = time.Hour

// ScheduledClass is a single class occurrence on the timetable.
type ScheduledClass struct {
	ID          int64     `db:"id" json:"id"`
	ClassTypeID int64     `db:"class_type_id" json:"class_type_id"`
	TrainerID   int64     `db:"trainer_id" json:"trainer_id"`
	RoomID      int64     `db:"room_id" json:"room_id"`
	StartTime   time.Time `db:"start_time" json:"start_time"`
}

// EndTime returns the exclusive end of the class window.
func (c *ScheduledClass) EndTime() time.Time {
	return c.StartTime.Add(ClassDuration)
}

// ClassDetail enriches ScheduledClass with the room-derived capacity and
// display names resolved at the read boundary.
type ClassDetail struct {
	ScheduledClass
	ClassTypeName string `db:"class_type_name" json:"class_type_name"`
	TrainerName   string `db:"trainer_name" json:"trainer_name"`
	RoomName      string `db:"room_name" json:"room_name"`
	Capacity      int    `db:"capacity" json:"capacity"`
}

// ClassAvailability is the advisory seat snapshot for a class.
type ClassAvailability struct {
	ClassID       int64 `json:"class_id"`
	Capacity      int   `json:"capacity"`
	EnrolledCount int   `json:"enrolled_count"`
	SpotsLeft     int   `json:"spots_left"`
	WaitingCount  int   `json:"waiting_count"`
}

// ClassFilter describes query params for listing classes.
type ClassFilter struct {
	TrainerID int64
	RoomID    int64
	From      *time.Time
	To        *time.Time
	Page      int
	PageSize  int
}
