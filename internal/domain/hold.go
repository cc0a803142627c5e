package domain

import "time"

// HoldKey identifies the single pending hold a customer may have per tenant.
type HoldKey struct {
	CustomerID string
	TenantID   string
}

// Hold is a customer's provisional claim on a slot, pending confirmation.
// Holds are ephemeral: they live in the reservation store only, expire after
// a TTL, and a new hold for the same key supersedes the previous one.
type Hold struct {
	CustomerID   string
	TenantID     string
	ResourceID   string
	ResourceName string
	ServiceID    string
	ServiceName  string
	StartsAt     time.Time
	Duration     time.Duration
	PriceCents   int64
	CreatedAt    time.Time
	ExpiresAt    time.Time
}

// Key returns the reservation-store key for the hold.
func (h Hold) Key() HoldKey {
	return HoldKey{CustomerID: h.CustomerID, TenantID: h.TenantID}
}

// Candidate rebuilds the slot candidate the hold was created from.
func (h Hold) Candidate() SlotCandidate {
	return SlotCandidate{
		TenantID:   h.TenantID,
		ResourceID: h.ResourceID,
		StartsAt:   h.StartsAt,
	}
}
