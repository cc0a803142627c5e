package domain

// Resource is the bookable entity (a staff member, a room) whose time slots
// customers reserve. Confirmation transactions take a row-level lock on it.
type Resource struct {
	ID       string
	TenantID string
	Name     string
	Active   bool
}

// Tenant is the owning business account. BookingsCount is a usage counter
// mutated only inside the booking transaction.
type Tenant struct {
	ID            string
	Name          string
	BookingsCount int64
}
