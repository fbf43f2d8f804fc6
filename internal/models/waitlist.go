package models

import "time"

// WaitlistStatus represents the state of a waitlist entry.
type WaitlistStatus string

// Waitlist statuses. PROMOTED, EXPIRED and REMOVED are terminal; rows are
// retained rather than deleted.
const (
	WaitlistStatusWaiting  WaitlistStatus = "WAITING"
	WaitlistStatusPromoted WaitlistStatus = "PROMOTED"
	WaitlistStatusExpired  WaitlistStatus = "EXPIRED"
	WaitlistStatusRemoved  WaitlistStatus = "REMOVED"
)

// WaitlistEntry is a member's place in the FIFO queue for a full class.
// Version is the optimistic-concurrency token guarding promotion: two
// concurrent promotions racing for the same entry resolve through a
// compare-and-swap on it.
type WaitlistEntry struct {
	ID         int64          `db:"id" json:"id"`
	MemberID   int64          `db:"member_id" json:"member_id"`
	ClassID    int64          `db:"class_id" json:"class_id"`
	JoinedAt   time.Time      `db:"joined_at" json:"joined_at"`
	Status     WaitlistStatus `db:"status" json:"status"`
	NotifiedAt *time.Time     `db:"notified_at" json:"notified_at,omitempty"`
	Version    int            `db:"version" json:"-"`
}

// WaitlistPosition reports where an entry sits in its class queue.
// Ordering is strict FIFO by (joined_at, id) ascending.
type WaitlistPosition struct {
	EntryID      int64 `json:"entry_id"`
	Position     int   `json:"position"`
	TotalWaiting int   `json:"total_waiting"`
}

// PromotionResult describes the outcome of draining one freed seat.
type PromotionResult struct {
	Booking *Booking       `json:"booking,omitempty"`
	Entry   *WaitlistEntry `json:"entry,omitempty"`
}
