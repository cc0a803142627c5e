package app

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/EvgenyLat/whatsapp-saas-sub010/internal/clock"
	"github.com/EvgenyLat/whatsapp-saas-sub010/internal/domain"
	"github.com/EvgenyLat/whatsapp-saas-sub010/internal/holdstore"
	"github.com/EvgenyLat/whatsapp-saas-sub010/internal/retry"
)

var errNetwork = errors.New("connection reset")

func TestReservationService_SelectSlot(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 11, 10, 12, 0, 0, 0, time.UTC)
	start := time.Date(2025, 11, 10, 15, 0, 0, 0, time.UTC)

	input := SelectSlotInput{
		TenantID:    "tenant-1",
		CustomerID:  "cust-1",
		ResourceID:  "m123",
		StartsAt:    start,
		ServiceID:   "svc-1",
		ServiceName: "Haircut",
		Duration:    30 * time.Minute,
		PriceCents:  4500,
	}

	t.Run("available slot writes a hold and returns a proposal", func(t *testing.T) {
		env := newSelectEnv(now)
		env.avail.resources["m123"] = domain.Resource{ID: "m123", TenantID: "tenant-1", Name: "Maria", Active: true}

		res, err := env.svc.SelectSlot(context.Background(), input)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !res.Available {
			t.Fatalf("expected proposal, got reason %s", res.Reason)
		}
		if res.Hold.ResourceName != "Maria" {
			t.Fatalf("expected resource name resolved, got %q", res.Hold.ResourceName)
		}
		if !res.Hold.ExpiresAt.Equal(now.Add(holdstore.DefaultTTL)) {
			t.Fatalf("unexpected hold expiry %v", res.Hold.ExpiresAt)
		}

		stored, ok, err := env.holds.Get(context.Background(), domain.HoldKey{CustomerID: "cust-1", TenantID: "tenant-1"})
		if err != nil || !ok {
			t.Fatalf("expected hold stored, ok=%v err=%v", ok, err)
		}
		if !stored.StartsAt.Equal(start) || stored.ServiceName != "Haircut" || stored.PriceCents != 4500 {
			t.Fatalf("hold mutated on write: %+v", stored)
		}
	})

	t.Run("occupied slot returns alternatives instead of an error", func(t *testing.T) {
		env := newSelectEnv(now)
		env.avail.resources["m123"] = domain.Resource{ID: "m123", TenantID: "tenant-1", Name: "Maria", Active: true}
		env.avail.bookings = append(env.avail.bookings, domain.Booking{
			Code: "BK-777777", TenantID: "tenant-1", ResourceID: "m123",
			StartsAt: start, Status: domain.BookingStatusConfirmed,
		})
		// 15:30 is also taken, so the offered set must skip it.
		env.starts.starts = []time.Time{start.Add(30 * time.Minute)}

		res, err := env.svc.SelectSlot(context.Background(), input)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if res.Available {
			t.Fatalf("expected unavailable result")
		}
		if res.Reason != domain.ReasonConflict {
			t.Fatalf("expected conflict reason, got %s", res.Reason)
		}
		if len(res.Alternatives) == 0 || len(res.Alternatives) > 3 {
			t.Fatalf("expected 1..3 alternatives, got %d", len(res.Alternatives))
		}
		preferred := 0
		for _, alt := range res.Alternatives {
			if alt.StartsAt.Equal(start.Add(30 * time.Minute)) {
				t.Fatalf("offered a booked slot: %v", alt.StartsAt)
			}
			if alt.StartsAt.Before(now) {
				t.Fatalf("offered a past slot: %v", alt.StartsAt)
			}
			if alt.ResourceName != "Maria" {
				t.Fatalf("expected resource name on alternative %v, got %q", alt.StartsAt, alt.ResourceName)
			}
			if alt.Preferred {
				preferred++
			}
		}
		if preferred != 1 {
			t.Fatalf("expected exactly one preferred alternative, got %d", preferred)
		}

		if _, ok, _ := env.holds.Get(context.Background(), domain.HoldKey{CustomerID: "cust-1", TenantID: "tenant-1"}); ok {
			t.Fatalf("expected no hold written on rejection")
		}
	})

	t.Run("falls back to the earlier 90-minute offset when the rest is taken", func(t *testing.T) {
		env := newSelectEnv(now)
		env.avail.resources["m123"] = domain.Resource{ID: "m123", TenantID: "tenant-1", Name: "Maria", Active: true}
		env.avail.bookings = append(env.avail.bookings, domain.Booking{
			Code: "BK-777777", TenantID: "tenant-1", ResourceID: "m123",
			StartsAt: start, Status: domain.BookingStatusConfirmed,
		})
		// Everything but 13:30 is taken.
		env.starts.starts = []time.Time{
			start.Add(30 * time.Minute), start.Add(-30 * time.Minute),
			start.Add(time.Hour), start.Add(-time.Hour),
			start.Add(90 * time.Minute),
		}

		res, err := env.svc.SelectSlot(context.Background(), input)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(res.Alternatives) != 1 {
			t.Fatalf("expected exactly one alternative, got %d", len(res.Alternatives))
		}
		alt := res.Alternatives[0]
		if !alt.StartsAt.Equal(start.Add(-90 * time.Minute)) {
			t.Fatalf("expected 13:30 offered, got %v", alt.StartsAt)
		}
		if !alt.Preferred {
			t.Fatalf("the only alternative must be preferred")
		}
	})

	t.Run("unknown resource offers no alternatives", func(t *testing.T) {
		env := newSelectEnv(now)

		res, err := env.svc.SelectSlot(context.Background(), input)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if res.Available || res.Reason != domain.ReasonResourceUnavailable {
			t.Fatalf("expected resource_unavailable, got %+v", res)
		}
		if len(res.Alternatives) != 0 {
			t.Fatalf("expected no alternatives for unknown resource")
		}
	})

	t.Run("re-selection supersedes the previous hold", func(t *testing.T) {
		env := newSelectEnv(now)
		env.avail.resources["m123"] = domain.Resource{ID: "m123", TenantID: "tenant-1", Name: "Maria", Active: true}
		env.avail.resources["m456"] = domain.Resource{ID: "m456", TenantID: "tenant-1", Name: "Jorge", Active: true}

		if _, err := env.svc.SelectSlot(context.Background(), input); err != nil {
			t.Fatalf("first select: %v", err)
		}
		second := input
		second.ResourceID = "m456"
		if _, err := env.svc.SelectSlot(context.Background(), second); err != nil {
			t.Fatalf("second select: %v", err)
		}

		stored, ok, _ := env.holds.Get(context.Background(), domain.HoldKey{CustomerID: "cust-1", TenantID: "tenant-1"})
		if !ok || stored.ResourceID != "m456" {
			t.Fatalf("expected last hold to win, got %+v", stored)
		}
	})
}

func TestReservationService_Confirm(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 11, 10, 12, 0, 0, 0, time.UTC)
	start := time.Date(2025, 11, 10, 15, 0, 0, 0, time.UTC)
	key := domain.HoldKey{CustomerID: "cust-1", TenantID: "tenant-1"}

	seed := func(t *testing.T, env *selectEnv) {
		t.Helper()
		_, err := env.holds.Put(context.Background(), domain.Hold{
			CustomerID: "cust-1", TenantID: "tenant-1", ResourceID: "m123", StartsAt: start,
		})
		if err != nil {
			t.Fatalf("seed hold: %v", err)
		}
	}

	t.Run("missing hold yields session_expired", func(t *testing.T) {
		env := newSelectEnv(now)
		_, err := env.svc.Confirm(context.Background(), "cust-1", "tenant-1")
		if !errors.Is(err, domain.ErrSessionExpired) {
			t.Fatalf("expected ErrSessionExpired, got %v", err)
		}
	})

	t.Run("success clears the hold; a second confirm expires", func(t *testing.T) {
		env := newSelectEnv(now)
		env.confirmer.booking = domain.Booking{ID: "b-1", Code: "BK-123456", Status: domain.BookingStatusConfirmed}
		seed(t, env)

		booking, err := env.svc.Confirm(context.Background(), "cust-1", "tenant-1")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if booking.Code != "BK-123456" {
			t.Fatalf("unexpected booking %+v", booking)
		}
		if _, ok, _ := env.holds.Get(context.Background(), key); ok {
			t.Fatalf("expected hold cleared after confirmation")
		}

		if _, err := env.svc.Confirm(context.Background(), "cust-1", "tenant-1"); !errors.Is(err, domain.ErrSessionExpired) {
			t.Fatalf("expected session_expired on repeat confirm, got %v", err)
		}
		if env.confirmer.callCount() != 1 {
			t.Fatalf("expected no duplicate booking attempt, got %d calls", env.confirmer.callCount())
		}
	})

	t.Run("unknown infrastructure errors are retried by default", func(t *testing.T) {
		env := newSelectEnv(now, WithRetryConfig(retry.Config{Attempts: 3, BaseDelay: time.Millisecond}))
		env.confirmer.errs = []error{errors.New("write tcp: broken pipe")}
		env.confirmer.booking = domain.Booking{ID: "b-1", Code: "BK-123456"}
		seed(t, env)

		if _, err := env.svc.Confirm(context.Background(), "cust-1", "tenant-1"); err != nil {
			t.Fatalf("expected retry to recover, got %v", err)
		}
		if env.confirmer.callCount() != 2 {
			t.Fatalf("expected 2 attempts, got %d", env.confirmer.callCount())
		}
	})

	t.Run("a custom classifier can mark an error terminal", func(t *testing.T) {
		env := newSelectEnv(now,
			WithRetryConfig(retry.Config{Attempts: 3, BaseDelay: time.Millisecond}),
			WithTerminalClassifier(func(err error) bool {
				return domain.IsTerminal(err) || errors.Is(err, errNetwork)
			}),
		)
		env.confirmer.errs = []error{errNetwork}
		seed(t, env)

		if _, err := env.svc.Confirm(context.Background(), "cust-1", "tenant-1"); !errors.Is(err, errNetwork) {
			t.Fatalf("expected the classified error, got %v", err)
		}
		if env.confirmer.callCount() != 1 {
			t.Fatalf("expected a single attempt, got %d", env.confirmer.callCount())
		}
	})

	t.Run("recovers from two transient failures with doubling backoff", func(t *testing.T) {
		base := 40 * time.Millisecond
		env := newSelectEnv(now, WithRetryConfig(retry.Config{Attempts: 3, BaseDelay: base}))
		env.confirmer.errs = []error{errNetwork, errNetwork}
		env.confirmer.booking = domain.Booking{ID: "b-1", Code: "BK-123456"}
		seed(t, env)

		if _, err := env.svc.Confirm(context.Background(), "cust-1", "tenant-1"); err != nil {
			t.Fatalf("expected success on 3rd attempt, got %v", err)
		}

		calls := env.confirmer.callTimes()
		if len(calls) != 3 {
			t.Fatalf("expected 3 attempts, got %d", len(calls))
		}
		firstWait := calls[1].Sub(calls[0])
		secondWait := calls[2].Sub(calls[1])
		if firstWait < base || firstWait > 3*base {
			t.Fatalf("expected first wait ~%v, got %v", base, firstWait)
		}
		if secondWait < 2*base || secondWait > 5*base {
			t.Fatalf("expected second wait ~%v, got %v", 2*base, secondWait)
		}
	})

	t.Run("conflict propagates immediately and clears the hold", func(t *testing.T) {
		env := newSelectEnv(now)
		env.confirmer.errs = []error{&domain.ConflictError{Code: "BK-999999"}}
		seed(t, env)

		_, err := env.svc.Confirm(context.Background(), "cust-1", "tenant-1")
		if !domain.IsConflict(err) {
			t.Fatalf("expected conflict, got %v", err)
		}
		if env.confirmer.callCount() != 1 {
			t.Fatalf("expected exactly one attempt, got %d", env.confirmer.callCount())
		}
		if _, ok, _ := env.holds.Get(context.Background(), key); ok {
			t.Fatalf("expected stale hold cleared on conflict")
		}
	})

	t.Run("exhausted retries keep the hold for a direct retry", func(t *testing.T) {
		env := newSelectEnv(now, WithRetryConfig(retry.Config{Attempts: 2, BaseDelay: time.Millisecond}))
		env.confirmer.errs = []error{errNetwork, errNetwork}
		seed(t, env)

		_, err := env.svc.Confirm(context.Background(), "cust-1", "tenant-1")
		if !retry.IsExhausted(err) {
			t.Fatalf("expected exhaustion error, got %v", err)
		}
		if domain.IsConflict(err) {
			t.Fatalf("exhaustion must be distinct from conflict")
		}
		if _, ok, _ := env.holds.Get(context.Background(), key); !ok {
			t.Fatalf("expected hold preserved after infrastructure failure")
		}
	})
}

// Two customers hold the same slot on resource m123 at 2025-11-10 15:00 and
// both confirm: exactly one booking must exist and the loser must see a
// conflict.
func TestReservationService_ConcurrentConfirmSameSlot(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 11, 10, 12, 0, 0, 0, time.UTC)
	start := time.Date(2025, 11, 10, 15, 0, 0, 0, time.UTC)

	repo := newFakeBookingRepo()
	repo.resources["m123"] = domain.Resource{ID: "m123", TenantID: "tenant-1", Name: "Maria", Active: true}
	coordinator := newBookingService(repo, now)

	avail := newFakeAvailabilityRepo()
	avail.resources["m123"] = repo.resources["m123"]
	holds := holdstore.NewMemory(clock.NewFixed(now))
	svc := NewReservationService(
		NewSlotValidator(avail, clock.NewFixed(now)),
		holds,
		coordinator,
		&fakeStartsLister{},
		clock.NewFixed(now),
		zap.NewNop(),
	)

	for _, customer := range []string{"cust-1", "cust-2"} {
		res, err := svc.SelectSlot(context.Background(), SelectSlotInput{
			TenantID: "tenant-1", CustomerID: customer, ResourceID: "m123", StartsAt: start,
		})
		if err != nil || !res.Available {
			t.Fatalf("select for %s: available=%v err=%v", customer, res.Available, err)
		}
	}

	var wg sync.WaitGroup
	errs := make(map[string]error)
	var mu sync.Mutex
	for _, customer := range []string{"cust-1", "cust-2"} {
		wg.Add(1)
		go func(customer string) {
			defer wg.Done()
			_, err := svc.Confirm(context.Background(), customer, "tenant-1")
			mu.Lock()
			errs[customer] = err
			mu.Unlock()
		}(customer)
	}
	wg.Wait()

	wins, conflicts := 0, 0
	for customer, err := range errs {
		switch {
		case err == nil:
			wins++
		case domain.IsConflict(err):
			conflicts++
			if _, ok, _ := holds.Get(context.Background(), domain.HoldKey{CustomerID: customer, TenantID: "tenant-1"}); ok {
				t.Fatalf("expected loser's hold cleared")
			}
		default:
			t.Fatalf("unexpected error for %s: %v", customer, err)
		}
	}
	if wins != 1 || conflicts != 1 {
		t.Fatalf("expected exactly one winner, got %d wins / %d conflicts", wins, conflicts)
	}
	if len(repo.bookings) != 1 {
		t.Fatalf("expected exactly one booking at the slot, got %d", len(repo.bookings))
	}
	if repo.bookings[0].Status != domain.BookingStatusConfirmed {
		t.Fatalf("expected confirmed booking, got %s", repo.bookings[0].Status)
	}
}

type selectEnv struct {
	svc       *ReservationService
	holds     *holdstore.Memory
	avail     *fakeAvailabilityRepo
	starts    *fakeStartsLister
	confirmer *scriptedConfirmer
}

func newSelectEnv(now time.Time, opts ...ReservationServiceOption) *selectEnv {
	clk := clock.NewFixed(now)
	env := &selectEnv{
		holds:     holdstore.NewMemory(clk),
		avail:     newFakeAvailabilityRepo(),
		starts:    &fakeStartsLister{},
		confirmer: &scriptedConfirmer{},
	}
	env.svc = NewReservationService(
		NewSlotValidator(env.avail, clk),
		env.holds,
		env.confirmer,
		env.starts,
		clk,
		zap.NewNop(),
		opts...,
	)
	return env
}

type fakeStartsLister struct {
	starts []time.Time
	err    error
}

func (f *fakeStartsLister) ListActiveStarts(_ context.Context, _, _ string, from, to time.Time) ([]time.Time, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []time.Time
	for _, ts := range f.starts {
		if !ts.Before(from) && !ts.After(to) {
			out = append(out, ts)
		}
	}
	return out, nil
}

// scriptedConfirmer fails with the queued errors, then succeeds with the
// configured booking, recording attempt times.
type scriptedConfirmer struct {
	mu      sync.Mutex
	errs    []error
	booking domain.Booking
	calls   []time.Time
}

func (c *scriptedConfirmer) Confirm(_ context.Context, hold domain.Hold) (domain.Booking, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.calls = append(c.calls, time.Now())
	if len(c.errs) > 0 {
		err := c.errs[0]
		c.errs = c.errs[1:]
		return domain.Booking{}, err
	}
	b := c.booking
	b.CustomerID = hold.CustomerID
	b.TenantID = hold.TenantID
	b.ResourceID = hold.ResourceID
	b.StartsAt = hold.StartsAt
	return b, nil
}

func (c *scriptedConfirmer) callCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.calls)
}

func (c *scriptedConfirmer) callTimes() []time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]time.Time, len(c.calls))
	copy(out, c.calls)
	return out
}
