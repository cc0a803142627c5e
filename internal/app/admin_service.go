package app

import (
	"context"

	"github.com/google/uuid"

	"github.com/EvgenyLat/whatsapp-saas-sub010/internal/clock"
	"github.com/EvgenyLat/whatsapp-saas-sub010/internal/domain"
)

type AdminRepository interface {
	CreateTenant(ctx context.Context, tenant domain.Tenant) error
	GetTenant(ctx context.Context, id string) (domain.Tenant, error)
	CreateResource(ctx context.Context, resource domain.Resource) error
	ListResourcesByTenant(ctx context.Context, tenantID string) ([]domain.Resource, error)
	SetResourceActive(ctx context.Context, tenantID, resourceID string, active bool) error
}

// AdminService covers the minimal tenant/resource management the booking core
// needs to be operable. It carries no booking logic.
type AdminService struct {
	repo  AdminRepository
	clock clock.Clock
}

func NewAdminService(repo AdminRepository, clk clock.Clock) *AdminService {
	return &AdminService{repo: repo, clock: clk}
}

type CreateTenantInput struct {
	Name string
}

func (s *AdminService) CreateTenant(ctx context.Context, in CreateTenantInput) (domain.Tenant, error) {
	if in.Name == "" {
		return domain.Tenant{}, domain.ErrTenantNameRequired
	}

	tenant := domain.Tenant{
		ID:   uuid.NewString(),
		Name: in.Name,
	}
	if err := s.repo.CreateTenant(ctx, tenant); err != nil {
		return domain.Tenant{}, err
	}
	return tenant, nil
}

func (s *AdminService) GetTenant(ctx context.Context, id string) (domain.Tenant, error) {
	if id == "" {
		return domain.Tenant{}, domain.ErrInvalidID
	}
	return s.repo.GetTenant(ctx, id)
}

type CreateResourceInput struct {
	TenantID string
	Name     string
}

func (s *AdminService) CreateResource(ctx context.Context, in CreateResourceInput) (domain.Resource, error) {
	if in.TenantID == "" {
		return domain.Resource{}, domain.ErrInvalidID
	}
	if in.Name == "" {
		return domain.Resource{}, domain.ErrResourceNameRequired
	}

	resource := domain.Resource{
		ID:       uuid.NewString(),
		TenantID: in.TenantID,
		Name:     in.Name,
		Active:   true,
	}
	if err := s.repo.CreateResource(ctx, resource); err != nil {
		return domain.Resource{}, err
	}
	return resource, nil
}

func (s *AdminService) ListResources(ctx context.Context, tenantID string) ([]domain.Resource, error) {
	if tenantID == "" {
		return nil, domain.ErrInvalidID
	}
	return s.repo.ListResourcesByTenant(ctx, tenantID)
}

func (s *AdminService) SetResourceActive(ctx context.Context, tenantID, resourceID string, active bool) error {
	if tenantID == "" || resourceID == "" {
		return domain.ErrInvalidID
	}
	return s.repo.SetResourceActive(ctx, tenantID, resourceID, active)
}
