package app

import (
	"context"
	"time"

	"github.com/EvgenyLat/whatsapp-saas-sub010/internal/clock"
	"github.com/EvgenyLat/whatsapp-saas-sub010/internal/domain"
)

// AvailabilityRepository is the minimal read surface the validator needs.
// When the context carries a transaction (see storage/postgres), the same
// queries run inside it, which is how the authoritative re-validation under
// the resource lock reuses this code.
type AvailabilityRepository interface {
	GetResource(ctx context.Context, tenantID, resourceID string) (domain.Resource, error)
	FindActiveBooking(ctx context.Context, tenantID, resourceID string, startsAt time.Time) (*domain.Booking, error)
}

// SlotValidator checks a candidate slot against the past-time and
// existing-booking rules. Outside a transaction the result is advisory only;
// only the run inside the confirmation transaction may be trusted.
type SlotValidator struct {
	repo  AvailabilityRepository
	clock clock.Clock
}

func NewSlotValidator(repo AvailabilityRepository, clk clock.Clock) *SlotValidator {
	return &SlotValidator{repo: repo, clock: clk}
}

func (v *SlotValidator) Validate(ctx context.Context, cand domain.SlotCandidate) (domain.Validation, error) {
	if cand.TenantID == "" || cand.ResourceID == "" || cand.StartsAt.IsZero() {
		return domain.Validation{}, domain.ErrInvalidCandidate
	}

	if cand.StartsAt.Before(v.clock.Now()) {
		return domain.Validation{Reason: domain.ReasonPast}, nil
	}

	resource, err := v.repo.GetResource(ctx, cand.TenantID, cand.ResourceID)
	if err != nil {
		if err == domain.ErrResourceNotFound || err == domain.ErrInvalidID {
			return domain.Validation{Reason: domain.ReasonResourceUnavailable}, nil
		}
		return domain.Validation{}, err
	}
	if !resource.Active {
		return domain.Validation{Reason: domain.ReasonResourceUnavailable}, nil
	}

	conflict, err := v.repo.FindActiveBooking(ctx, cand.TenantID, cand.ResourceID, cand.StartsAt)
	if err != nil {
		return domain.Validation{}, err
	}
	if conflict != nil {
		return domain.Validation{Reason: domain.ReasonConflict, Conflict: conflict, Resource: resource}, nil
	}

	return domain.Validation{Available: true, Resource: resource}, nil
}
