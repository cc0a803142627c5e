package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/EvgenyLat/whatsapp-saas-sub010/internal/app"
	"github.com/EvgenyLat/whatsapp-saas-sub010/internal/domain"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// stubReservations satisfies both SlotSelector and BookingConfirmer.
type stubReservations struct {
	selectResult app.SelectResult
	selectErr    error
	booking      domain.Booking
	confirmErr   error
}

func (s *stubReservations) SelectSlot(ctx context.Context, in app.SelectSlotInput) (app.SelectResult, error) {
	return s.selectResult, s.selectErr
}

func (s *stubReservations) Confirm(ctx context.Context, customerID, tenantID string) (domain.Booking, error) {
	return s.booking, s.confirmErr
}

type stubAdmin struct {
	tenant      domain.Tenant
	tenantErr   error
	resource    domain.Resource
	resourceErr error
	resources   []domain.Resource
	activeErr   error
}

func (s *stubAdmin) CreateTenant(ctx context.Context, in app.CreateTenantInput) (domain.Tenant, error) {
	if in.Name == "" {
		return domain.Tenant{}, domain.ErrTenantNameRequired
	}
	return s.tenant, s.tenantErr
}

func (s *stubAdmin) GetTenant(ctx context.Context, id string) (domain.Tenant, error) {
	return s.tenant, s.tenantErr
}

func (s *stubAdmin) CreateResource(ctx context.Context, in app.CreateResourceInput) (domain.Resource, error) {
	return s.resource, s.resourceErr
}

func (s *stubAdmin) ListResources(ctx context.Context, tenantID string) ([]domain.Resource, error) {
	return s.resources, s.resourceErr
}

func (s *stubAdmin) SetResourceActive(ctx context.Context, tenantID, resourceID string, active bool) error {
	return s.activeErr
}

type stubPinger struct{ err error }

func (s stubPinger) Ping(ctx context.Context) error { return s.err }

func newTestRouter(res *stubReservations, admin *stubAdmin, db Pinger) *gin.Engine {
	if res == nil {
		res = &stubReservations{}
	}
	if admin == nil {
		admin = &stubAdmin{}
	}
	if db == nil {
		db = stubPinger{}
	}
	return NewRouter(RouterConfig{
		Reservations: res,
		Admin:        admin,
		DB:           db,
		Logger:       zap.NewNop(),
	})
}

func doJSON(t *testing.T, router *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorResponse {
	t.Helper()
	var resp errorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode error body %q: %v", rec.Body.String(), err)
	}
	return resp
}

func TestRouter_NotFound(t *testing.T) {
	router := newTestRouter(nil, nil, nil)

	rec := doJSON(t, router, http.MethodGet, "/nope", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	if resp := decodeError(t, rec); resp.Code != codeNotFound {
		t.Fatalf("expected not_found code, got %q", resp.Code)
	}
}

func TestRouter_Health(t *testing.T) {
	t.Run("ok", func(t *testing.T) {
		rec := doJSON(t, newTestRouter(nil, nil, stubPinger{}), http.MethodGet, "/health", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
	})

	t.Run("database unreachable", func(t *testing.T) {
		rec := doJSON(t, newTestRouter(nil, nil, stubPinger{err: context.DeadlineExceeded}), http.MethodGet, "/health", "")
		if rec.Code != http.StatusServiceUnavailable {
			t.Fatalf("expected 503, got %d", rec.Code)
		}
	})
}

func TestRouter_RateLimit(t *testing.T) {
	router := NewRouter(RouterConfig{
		Reservations:      &stubReservations{},
		Admin:             &stubAdmin{},
		DB:                stubPinger{},
		Logger:            zap.NewNop(),
		MaxRequestsPerMin: 2,
	})

	for i := 0; i < 2; i++ {
		if rec := doJSON(t, router, http.MethodGet, "/health", ""); rec.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i+1, rec.Code)
		}
	}
	rec := doJSON(t, router, http.MethodGet, "/health", "")
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 after burst, got %d", rec.Code)
	}
}
