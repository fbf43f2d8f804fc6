package models

import "time"

// MembershipStatus represents the lifecycle of a membership.
type MembershipStatus string

// Possible membership statuses. PENDING, ACTIVE, GRACE_PERIOD and EXPIRED
// advance through the lifecycle scheduler; SUSPENDED and CANCELLED are set
// by administrative actions only.
const (
	MembershipStatusPending     MembershipStatus = "PENDING"
	MembershipStatusActive      MembershipStatus = "ACTIVE"
	MembershipStatusGracePeriod MembershipStatus = "GRACE_PERIOD"
	MembershipStatusExpired     MembershipStatus = "EXPIRED"
	MembershipStatusSuspended   MembershipStatus = "SUSPENDED"
	MembershipStatusCancelled   MembershipStatus = "CANCELLED"
)

// Member captures a gym member and the state of their membership.
type Member struct {
	ID                  int64            `db:"id" json:"id"`
	FullName            string           `db:"full_name" json:"full_name"`
	Email               string           `db:"email" json:"email"`
	PlanID              *int64           `db:"plan_id" json:"plan_id,omitempty"`
	MembershipStartDate *time.Time       `db:"membership_start_date" json:"membership_start_date,omitempty"`
	MembershipEndDate   *time.Time       `db:"membership_end_date" json:"membership_end_date,omitempty"`
	MembershipStatus    MembershipStatus `db:"membership_status" json:"membership_status"`
}

// HasActivePlan reports whether the member can book classes.
func (m *Member) HasActivePlan() bool {
	return m.PlanID != nil && m.MembershipStatus == MembershipStatusActive
}

// LifecycleResult summarises one run of the membership status batch job.
type LifecycleResult struct {
	MovedToGracePeriod int64     `json:"moved_to_grace_period"`
	MovedToExpired     int64     `json:"moved_to_expired"`
	RanAt              time.Time `json:"ran_at"`
}
