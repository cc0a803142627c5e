package domain

import "time"

// SlotCandidate is the (resource, start time, tenant) tuple a customer asked
// for. It is a value object used only to query for conflicts, never persisted.
type SlotCandidate struct {
	TenantID   string
	ResourceID string
	StartsAt   time.Time
}

// Validation is the outcome of checking a candidate against the past-time and
// existing-booking rules.
type Validation struct {
	Available bool
	Reason    ValidationReason
	// Conflict is set when Reason is ReasonConflict.
	Conflict *Booking
	// Resource is set whenever the resource row was found (available or
	// conflict), saving callers a second lookup for the resource name.
	Resource Resource
}

type ValidationReason string

const (
	ReasonPast                ValidationReason = "past"
	ReasonResourceUnavailable ValidationReason = "resource_unavailable"
	ReasonConflict            ValidationReason = "conflict"
)
