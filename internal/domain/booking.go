package domain

import "time"

type BookingStatus string

const (
	BookingStatusConfirmed  BookingStatus = "confirmed"
	BookingStatusInProgress BookingStatus = "in_progress"
	BookingStatusCompleted  BookingStatus = "completed"
	BookingStatusCancelled  BookingStatus = "cancelled"
)

// ActiveStatuses are the statuses that occupy a slot. A cancelled booking
// frees its slot; a completed one is in the past by definition.
var ActiveStatuses = []BookingStatus{BookingStatusConfirmed, BookingStatusInProgress}

// Booking is a confirmed appointment. Bookings are never deleted;
// cancellation is a status transition.
type Booking struct {
	ID         string
	Code       string
	TenantID   string
	CustomerID string
	ResourceID string
	ServiceID  string
	StartsAt   time.Time
	EndsAt     time.Time
	Status     BookingStatus
	CreatedAt  time.Time
}
