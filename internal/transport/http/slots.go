package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/EvgenyLat/whatsapp-saas-sub010/internal/app"
)

// SlotSelector is the minimal interface needed to propose a slot.
type SlotSelector interface {
	SelectSlot(ctx context.Context, in app.SelectSlotInput) (app.SelectResult, error)
}

type selectSlotRequest struct {
	TenantID    string `json:"tenant_id" binding:"required"`
	CustomerID  string `json:"customer_id" binding:"required"`
	ResourceID  string `json:"resource_id" binding:"required"`
	StartsAt    string `json:"starts_at" binding:"required"`
	ServiceID   string `json:"service_id"`
	ServiceName string `json:"service_name"`
	DurationMin int    `json:"duration_min"`
	PriceCents  int64  `json:"price_cents"`
}

type holdResponse struct {
	CustomerID   string    `json:"customer_id"`
	TenantID     string    `json:"tenant_id"`
	ResourceID   string    `json:"resource_id"`
	ResourceName string    `json:"resource_name"`
	ServiceName  string    `json:"service_name,omitempty"`
	StartsAt     time.Time `json:"starts_at"`
	ExpiresAt    time.Time `json:"expires_at"`
}

type alternativeResponse struct {
	ResourceID   string    `json:"resource_id"`
	ResourceName string    `json:"resource_name"`
	StartsAt     time.Time `json:"starts_at"`
	Preferred    bool      `json:"preferred"`
}

type selectSlotResponse struct {
	Available    bool                  `json:"available"`
	Reason       string                `json:"reason,omitempty"`
	Hold         *holdResponse         `json:"hold,omitempty"`
	Alternatives []alternativeResponse `json:"alternatives,omitempty"`
}

// handleSelectSlot validates a requested slot and, when free, places a
// short-lived hold for the customer. Occupied slots answer 200 with
// alternatives rather than an error.
func handleSelectSlot(svc SlotSelector) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req selectSlotRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}
		startsAt, err := time.Parse(time.RFC3339, req.StartsAt)
		if err != nil {
			respondError(c, http.StatusBadRequest, codeInvalidStartsAt, "starts_at must be RFC 3339")
			return
		}

		res, err := svc.SelectSlot(c.Request.Context(), app.SelectSlotInput{
			TenantID:    req.TenantID,
			CustomerID:  req.CustomerID,
			ResourceID:  req.ResourceID,
			StartsAt:    startsAt,
			ServiceID:   req.ServiceID,
			ServiceName: req.ServiceName,
			Duration:    time.Duration(req.DurationMin) * time.Minute,
			PriceCents:  req.PriceCents,
		})
		if err != nil {
			respondDomainError(c, err)
			return
		}

		resp := selectSlotResponse{Available: res.Available, Reason: string(res.Reason)}
		if res.Available {
			resp.Hold = &holdResponse{
				CustomerID:   res.Hold.CustomerID,
				TenantID:     res.Hold.TenantID,
				ResourceID:   res.Hold.ResourceID,
				ResourceName: res.Hold.ResourceName,
				ServiceName:  res.Hold.ServiceName,
				StartsAt:     res.Hold.StartsAt,
				ExpiresAt:    res.Hold.ExpiresAt,
			}
		}
		for _, alt := range res.Alternatives {
			resp.Alternatives = append(resp.Alternatives, alternativeResponse{
				ResourceID:   alt.ResourceID,
				ResourceName: alt.ResourceName,
				StartsAt:     alt.StartsAt,
				Preferred:    alt.Preferred,
			})
		}
		c.JSON(http.StatusOK, resp)
	}
}
