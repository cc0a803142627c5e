package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/EvgenyLat/whatsapp-saas-sub010/internal/domain"
)

type AdminRepository struct {
	pool *pgxpool.Pool
}

func NewAdminRepository(pool *pgxpool.Pool) *AdminRepository {
	return &AdminRepository{pool: pool}
}

func (r *AdminRepository) CreateTenant(ctx context.Context, tenant domain.Tenant) error {
	const stmt = `
INSERT INTO tenants (id, name, bookings_count)
VALUES ($1, $2, 0)`
	_, err := r.pool.Exec(ctx, stmt, tenant.ID, tenant.Name)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("create tenant: %w", err)
	}
	return nil
}

func (r *AdminRepository) GetTenant(ctx context.Context, id string) (domain.Tenant, error) {
	const query = `SELECT id, name, bookings_count FROM tenants WHERE id = $1`

	var t domain.Tenant
	err := r.pool.QueryRow(ctx, query, id).Scan(&t.ID, &t.Name, &t.BookingsCount)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.Tenant{}, domain.ErrInvalidID
		}
		if err == pgx.ErrNoRows {
			return domain.Tenant{}, domain.ErrTenantNotFound
		}
		return domain.Tenant{}, fmt.Errorf("get tenant: %w", err)
	}
	return t, nil
}

func (r *AdminRepository) CreateResource(ctx context.Context, resource domain.Resource) error {
	const stmt = `
INSERT INTO resources (id, tenant_id, name, active)
VALUES ($1, $2, $3, $4)`
	_, err := r.pool.Exec(ctx, stmt, resource.ID, resource.TenantID, resource.Name, resource.Active)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		if isForeignKeyViolation(err) {
			return domain.ErrTenantNotFound
		}
		return fmt.Errorf("create resource: %w", err)
	}
	return nil
}

func (r *AdminRepository) ListResourcesByTenant(ctx context.Context, tenantID string) ([]domain.Resource, error) {
	const query = `
SELECT id, tenant_id, name, active
FROM resources
WHERE tenant_id = $1
ORDER BY name ASC`
	rows, err := r.pool.Query(ctx, query, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list resources: %w", err)
	}
	defer rows.Close()

	var resources []domain.Resource
	for rows.Next() {
		var res domain.Resource
		if err := rows.Scan(&res.ID, &res.TenantID, &res.Name, &res.Active); err != nil {
			return nil, fmt.Errorf("scan resource: %w", err)
		}
		resources = append(resources, res)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate resources: %w", rows.Err())
	}
	return resources, nil
}

func (r *AdminRepository) SetResourceActive(ctx context.Context, tenantID, resourceID string, active bool) error {
	const stmt = `UPDATE resources SET active = $3 WHERE id = $1 AND tenant_id = $2`

	tag, err := r.pool.Exec(ctx, stmt, resourceID, tenantID, active)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("set resource active: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrResourceNotFound
	}
	return nil
}
