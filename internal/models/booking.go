package models

import "time"

// BookingStatus represents the state of a booking.
type BookingStatus string

// Booking statuses. CANCELLED is re-enterable through re-enrollment.
const (
	BookingStatusEnrolled  BookingStatus = "ENROLLED"
	BookingStatusCancelled BookingStatus = "CANCELLED"
)

// Booking is a member's confirmed seat in one scheduled class.
type Booking struct {
	ID          int64         `db:"id" json:"id"`
	MemberID    int64         `db:"member_id" json:"member_id"`
	ClassID     int64         `db:"class_id" json:"class_id"`
	Status      BookingStatus `db:"status" json:"status"`
	BookedAt    time.Time     `db:"booked_at" json:"booked_at"`
	CancelledAt *time.Time    `db:"cancelled_at" json:"cancelled_at,omitempty"`
}

// BookingDetail enriches Booking with member and class info.
type BookingDetail struct {
	Booking
	MemberName    string    `db:"member_name" json:"member_name"`
	ClassTypeName string    `db:"class_type_name" json:"class_type_name"`
	ClassStart    time.Time `db:"class_start" json:"class_start"`
	RoomName      string    `db:"room_name" json:"room_name"`
}

// BookingFilter provides filters for listing bookings.
type BookingFilter struct {
	MemberID int64
	ClassID  int64
	Status   BookingStatus
	Page     int
	PageSize int
}

// EligibilityCheck is the advisory pre-flight verdict for a booking.
// It mirrors the createBooking predicates but is evaluated outside the
// booking transaction, so a later create may still fail.
type EligibilityCheck struct {
	Eligible bool   `json:"eligible"`
	Reason   string `json:"reason,omitempty"`
}
