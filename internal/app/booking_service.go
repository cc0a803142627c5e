package app

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/EvgenyLat/whatsapp-saas-sub010/internal/clock"
	"github.com/EvgenyLat/whatsapp-saas-sub010/internal/domain"
)

// BookingRepository is the write surface of the confirmation transaction.
type BookingRepository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	GetResourceForUpdate(ctx context.Context, tenantID, resourceID string) (domain.Resource, error)
	FindActiveBooking(ctx context.Context, tenantID, resourceID string, startsAt time.Time) (*domain.Booking, error)
	CreateBooking(ctx context.Context, booking domain.Booking) error
	IncrementTenantUsage(ctx context.Context, tenantID string) error
}

// BookingService is the booking transaction coordinator: one transaction that
// locks the resource row, re-validates the slot, generates the confirmation
// code, inserts the booking and bumps the tenant usage counter. The row lock,
// not the conflict query alone, is what prevents double-booking: two
// concurrent confirmations would otherwise both pass the conflict check
// before either commits.
type BookingService struct {
	repo   BookingRepository
	codes  *CodeGenerator
	clock  clock.Clock
	logger *zap.Logger
}

func NewBookingService(repo BookingRepository, codes *CodeGenerator, clk clock.Clock, logger *zap.Logger) *BookingService {
	return &BookingService{
		repo:   repo,
		codes:  codes,
		clock:  clk,
		logger: logger,
	}
}

const defaultSlotDuration = 30 * time.Minute

// Confirm converts a hold into a confirmed booking. Business rejections
// (conflict, past time, inactive resource) are terminal; any infrastructure
// failure rolls the transaction back and is safe to retry.
func (s *BookingService) Confirm(ctx context.Context, hold domain.Hold) (domain.Booking, error) {
	now := s.clock.Now()
	var result domain.Booking

	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		resource, err := s.repo.GetResourceForUpdate(txCtx, hold.TenantID, hold.ResourceID)
		if err != nil {
			return err
		}
		if !resource.Active {
			return domain.ErrResourceUnavailable
		}

		// Authoritative re-validation, now protected by the resource lock.
		conflict, err := s.repo.FindActiveBooking(txCtx, hold.TenantID, hold.ResourceID, hold.StartsAt)
		if err != nil {
			return err
		}
		if conflict != nil {
			return &domain.ConflictError{Code: conflict.Code}
		}

		// Time may have advanced past the slot while the customer hesitated.
		if hold.StartsAt.Before(now) {
			return domain.ErrPastTime
		}

		code, err := s.codes.Generate(txCtx, hold.TenantID)
		if err != nil {
			return err
		}

		duration := hold.Duration
		if duration <= 0 {
			duration = defaultSlotDuration
		}

		booking := domain.Booking{
			ID:         uuid.NewString(),
			Code:       code,
			TenantID:   hold.TenantID,
			CustomerID: hold.CustomerID,
			ResourceID: hold.ResourceID,
			ServiceID:  hold.ServiceID,
			StartsAt:   hold.StartsAt,
			EndsAt:     hold.StartsAt.Add(duration),
			Status:     domain.BookingStatusConfirmed,
			CreatedAt:  now,
		}

		if err := s.repo.CreateBooking(txCtx, booking); err != nil {
			return err
		}
		if err := s.repo.IncrementTenantUsage(txCtx, hold.TenantID); err != nil {
			return err
		}

		result = booking
		return nil
	})
	if err != nil {
		return domain.Booking{}, err
	}

	s.logger.Info("booking confirmed",
		zap.String("tenant_id", result.TenantID),
		zap.String("resource_id", result.ResourceID),
		zap.String("code", result.Code),
		zap.Time("starts_at", result.StartsAt),
	)
	return result, nil
}
