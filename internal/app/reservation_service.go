package app

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/EvgenyLat/whatsapp-saas-sub010/internal/clock"
	"github.com/EvgenyLat/whatsapp-saas-sub010/internal/domain"
	"github.com/EvgenyLat/whatsapp-saas-sub010/internal/holdstore"
	"github.com/EvgenyLat/whatsapp-saas-sub010/internal/retry"
)

// Confirmer is the booking transaction coordinator as seen by the
// orchestrator; tests substitute a scripted implementation.
type Confirmer interface {
	Confirm(ctx context.Context, hold domain.Hold) (domain.Booking, error)
}

// StartsLister returns the start times of active bookings for a resource
// within a window; used to offer alternative slots.
type StartsLister interface {
	ListActiveStarts(ctx context.Context, tenantID, resourceID string, from, to time.Time) ([]time.Time, error)
}

// ReservationService sequences the two public entry points of the booking
// core: SelectSlot writes a hold after an advisory validation, Confirm
// converts the hold into a booking under the retry controller.
type ReservationService struct {
	validator *SlotValidator
	holds     holdstore.Store
	confirmer Confirmer
	starts    StartsLister
	clock     clock.Clock
	retryCfg  retry.Config
	terminal  retry.Terminal
	logger    *zap.Logger
}

func NewReservationService(
	validator *SlotValidator,
	holds holdstore.Store,
	confirmer Confirmer,
	starts StartsLister,
	clk clock.Clock,
	logger *zap.Logger,
	opts ...ReservationServiceOption,
) *ReservationService {
	s := &ReservationService{
		validator: validator,
		holds:     holds,
		confirmer: confirmer,
		starts:    starts,
		clock:     clk,
		retryCfg:  retry.Config{Attempts: retry.DefaultAttempts, BaseDelay: retry.DefaultBaseDelay},
		terminal:  domain.IsTerminal,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type ReservationServiceOption func(*ReservationService)

// WithRetryConfig overrides the confirmation retry policy.
func WithRetryConfig(cfg retry.Config) ReservationServiceOption {
	return func(s *ReservationService) {
		s.retryCfg = cfg
	}
}

// WithTerminalClassifier replaces the default retry classifier. By default
// only business rejections are terminal; unknown errors are retried.
func WithTerminalClassifier(fn retry.Terminal) ReservationServiceOption {
	return func(s *ReservationService) {
		s.terminal = fn
	}
}

type SelectSlotInput struct {
	TenantID    string
	CustomerID  string
	ResourceID  string
	StartsAt    time.Time
	ServiceID   string
	ServiceName string
	Duration    time.Duration
	PriceCents  int64
}

// AlternativeSlot is a nearby free slot offered when the requested one is not
// available. The payload is structured; rendering is the caller's job.
type AlternativeSlot struct {
	ResourceID   string
	ResourceName string
	StartsAt     time.Time
	Preferred    bool
}

// SelectResult is either a proposal (Available with the written hold) or an
// offer of alternatives.
type SelectResult struct {
	Available    bool
	Hold         domain.Hold
	Reason       domain.ValidationReason
	Alternatives []AlternativeSlot
}

// alternativeOffsets are tried around the requested start, closest first.
var alternativeOffsets = []time.Duration{
	30 * time.Minute, -30 * time.Minute,
	time.Hour, -time.Hour,
	90 * time.Minute, -90 * time.Minute,
}

const maxAlternatives = 3

// SelectSlot validates the candidate outside any transaction (fast, advisory)
// and on success records a hold. An unavailable slot is not an error: the
// caller gets nearby alternatives to offer instead.
func (s *ReservationService) SelectSlot(ctx context.Context, in SelectSlotInput) (SelectResult, error) {
	if in.CustomerID == "" {
		return SelectResult{}, domain.ErrInvalidCandidate
	}
	cand := domain.SlotCandidate{
		TenantID:   in.TenantID,
		ResourceID: in.ResourceID,
		StartsAt:   in.StartsAt,
	}

	validation, err := s.validator.Validate(ctx, cand)
	if err != nil {
		return SelectResult{}, err
	}

	if !validation.Available {
		result := SelectResult{Reason: validation.Reason}
		// No point proposing slots on a resource that does not exist.
		if validation.Reason != domain.ReasonResourceUnavailable {
			alts, err := s.alternatives(ctx, cand, validation.Resource.Name)
			if err != nil {
				s.logger.Warn("alternative slot lookup failed",
					zap.String("tenant_id", in.TenantID),
					zap.String("resource_id", in.ResourceID),
					zap.Error(err),
				)
			} else {
				result.Alternatives = alts
			}
		}
		return result, nil
	}

	hold := domain.Hold{
		CustomerID:   in.CustomerID,
		TenantID:     in.TenantID,
		ResourceID:   in.ResourceID,
		ResourceName: validation.Resource.Name,
		ServiceID:    in.ServiceID,
		ServiceName:  in.ServiceName,
		StartsAt:     in.StartsAt,
		Duration:     in.Duration,
		PriceCents:   in.PriceCents,
	}
	stamped, err := s.holds.Put(ctx, hold)
	if err != nil {
		return SelectResult{}, fmt.Errorf("store hold: %w", err)
	}

	s.logger.Info("slot held",
		zap.String("tenant_id", in.TenantID),
		zap.String("customer_id", in.CustomerID),
		zap.String("resource_id", in.ResourceID),
		zap.Time("starts_at", in.StartsAt),
		zap.Time("expires_at", stamped.ExpiresAt),
	)
	return SelectResult{Available: true, Hold: stamped}, nil
}

// Confirm converts the customer's pending hold into a booking. Terminal
// conflict/past rejections clear the stale hold; exhausted transient retries
// leave the hold intact so the client may retry confirm without re-selecting.
func (s *ReservationService) Confirm(ctx context.Context, customerID, tenantID string) (domain.Booking, error) {
	key := domain.HoldKey{CustomerID: customerID, TenantID: tenantID}

	hold, ok, err := s.holds.Get(ctx, key)
	if err != nil {
		return domain.Booking{}, fmt.Errorf("read hold: %w", err)
	}
	if !ok {
		return domain.Booking{}, domain.ErrSessionExpired
	}

	var booking domain.Booking
	err = retry.Do(ctx, s.retryCfg, s.terminal, func(attemptCtx context.Context) error {
		b, err := s.confirmer.Confirm(attemptCtx, hold)
		if err != nil {
			return err
		}
		booking = b
		return nil
	})
	if err != nil {
		if staleHold(err) {
			if rmErr := s.holds.Remove(ctx, key); rmErr != nil {
				s.logger.Warn("failed to clear stale hold", zap.Error(rmErr))
			}
			s.logger.Info("confirmation rejected, hold cleared",
				zap.String("tenant_id", tenantID),
				zap.String("customer_id", customerID),
				zap.Error(err),
			)
		}
		return domain.Booking{}, err
	}

	if rmErr := s.holds.Remove(ctx, key); rmErr != nil {
		// The booking exists; a lingering hold only expires by TTL.
		s.logger.Warn("failed to clear confirmed hold", zap.Error(rmErr))
	}
	return booking, nil
}

// staleHold reports whether the confirmation failure means the held slot can
// never be booked, so keeping the hold would only mislead the customer.
func staleHold(err error) bool {
	return domain.IsConflict(err) ||
		errors.Is(err, domain.ErrPastTime) ||
		errors.Is(err, domain.ErrResourceNotFound) ||
		errors.Is(err, domain.ErrResourceUnavailable)
}

func (s *ReservationService) alternatives(ctx context.Context, cand domain.SlotCandidate, resourceName string) ([]AlternativeSlot, error) {
	now := s.clock.Now()

	var earliest, latest time.Time
	candidates := make([]time.Time, 0, len(alternativeOffsets))
	for _, offset := range alternativeOffsets {
		ts := cand.StartsAt.Add(offset)
		if ts.Before(now) {
			continue
		}
		candidates = append(candidates, ts)
		if earliest.IsZero() || ts.Before(earliest) {
			earliest = ts
		}
		if latest.IsZero() || ts.After(latest) {
			latest = ts
		}
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	booked, err := s.starts.ListActiveStarts(ctx, cand.TenantID, cand.ResourceID, earliest, latest)
	if err != nil {
		return nil, err
	}
	taken := make(map[int64]bool, len(booked))
	for _, ts := range booked {
		taken[ts.Unix()] = true
	}

	alts := make([]AlternativeSlot, 0, maxAlternatives)
	for _, ts := range candidates {
		if taken[ts.Unix()] {
			continue
		}
		alts = append(alts, AlternativeSlot{
			ResourceID:   cand.ResourceID,
			ResourceName: resourceName,
			StartsAt:     ts,
		})
		if len(alts) == maxAlternatives {
			break
		}
	}

	sort.Slice(alts, func(i, j int) bool { return alts[i].StartsAt.Before(alts[j].StartsAt) })
	if len(alts) > 0 {
		// The offset list is ordered closest-first, so flag the nearest one.
		nearest := 0
		for i := range alts {
			if absDuration(alts[i].StartsAt.Sub(cand.StartsAt)) < absDuration(alts[nearest].StartsAt.Sub(cand.StartsAt)) {
				nearest = i
			}
		}
		alts[nearest].Preferred = true
	}
	return alts, nil
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
