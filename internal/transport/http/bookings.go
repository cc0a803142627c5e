package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/EvgenyLat/whatsapp-saas-sub010/internal/domain"
)

// BookingConfirmer turns the customer's pending hold into a booking.
type BookingConfirmer interface {
	Confirm(ctx context.Context, customerID, tenantID string) (domain.Booking, error)
}

type confirmBookingRequest struct {
	TenantID   string `json:"tenant_id" binding:"required"`
	CustomerID string `json:"customer_id" binding:"required"`
}

type confirmBookingResponse struct {
	ID         string    `json:"id"`
	Code       string    `json:"code"`
	ResourceID string    `json:"resource_id"`
	StartsAt   time.Time `json:"starts_at"`
	EndsAt     time.Time `json:"ends_at"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"created_at"`
}

func handleConfirmBooking(svc BookingConfirmer) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req confirmBookingRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}

		booking, err := svc.Confirm(c.Request.Context(), req.CustomerID, req.TenantID)
		if err != nil {
			respondDomainError(c, err)
			return
		}

		c.JSON(http.StatusCreated, confirmBookingResponse{
			ID:         booking.ID,
			Code:       booking.Code,
			ResourceID: booking.ResourceID,
			StartsAt:   booking.StartsAt,
			EndsAt:     booking.EndsAt,
			Status:     string(booking.Status),
			CreatedAt:  booking.CreatedAt,
		})
	}
}
