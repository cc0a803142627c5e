package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/EvgenyLat/whatsapp-saas-sub010/internal/domain"
)

// BookingRepository backs both validation phases and the confirmation
// transaction. Methods participate in a transaction whenever the context
// carries one (see withTx).
type BookingRepository struct {
	pool *pgxpool.Pool
}

func NewBookingRepository(pool *pgxpool.Pool) *BookingRepository {
	return &BookingRepository{pool: pool}
}

func (r *BookingRepository) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return withTx(ctx, r.pool, fn)
}

func (r *BookingRepository) GetResource(ctx context.Context, tenantID, resourceID string) (domain.Resource, error) {
	const query = `
SELECT id, tenant_id, name, active
FROM resources
WHERE id = $1 AND tenant_id = $2`
	return r.scanResource(r.queryRow(ctx, query, resourceID, tenantID))
}

// GetResourceForUpdate takes the row-level exclusive lock that serializes
// concurrent confirmations on the same resource.
func (r *BookingRepository) GetResourceForUpdate(ctx context.Context, tenantID, resourceID string) (domain.Resource, error) {
	const query = `
SELECT id, tenant_id, name, active
FROM resources
WHERE id = $1 AND tenant_id = $2
FOR UPDATE`
	return r.scanResource(r.queryRow(ctx, query, resourceID, tenantID))
}

func (r *BookingRepository) scanResource(row pgx.Row) (domain.Resource, error) {
	var res domain.Resource
	err := row.Scan(&res.ID, &res.TenantID, &res.Name, &res.Active)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.Resource{}, domain.ErrInvalidID
		}
		if err == pgx.ErrNoRows {
			return domain.Resource{}, domain.ErrResourceNotFound
		}
		return domain.Resource{}, fmt.Errorf("get resource: %w", err)
	}
	return res, nil
}

func (r *BookingRepository) FindActiveBooking(ctx context.Context, tenantID, resourceID string, startsAt time.Time) (*domain.Booking, error) {
	const query = `
SELECT id, code, tenant_id, customer_id, resource_id, service_id, starts_at, ends_at, status, created_at
FROM bookings
WHERE tenant_id = $1 AND resource_id = $2 AND starts_at = $3 AND status IN ('confirmed', 'in_progress')`

	var b domain.Booking
	var status string
	err := r.queryRow(ctx, query, tenantID, resourceID, startsAt).Scan(
		&b.ID, &b.Code, &b.TenantID, &b.CustomerID, &b.ResourceID, &b.ServiceID,
		&b.StartsAt, &b.EndsAt, &status, &b.CreatedAt,
	)
	if err != nil {
		if isInvalidUUID(err) {
			return nil, domain.ErrInvalidID
		}
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("find active booking: %w", err)
	}
	b.Status = domain.BookingStatus(status)
	return &b, nil
}

func (r *BookingRepository) CodeExists(ctx context.Context, tenantID, code string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM bookings WHERE tenant_id = $1 AND code = $2)`
	var exists bool
	if err := r.queryRow(ctx, query, tenantID, code).Scan(&exists); err != nil {
		return false, fmt.Errorf("check code: %w", err)
	}
	return exists, nil
}

func (r *BookingRepository) CreateBooking(ctx context.Context, b domain.Booking) error {
	const stmt = `
INSERT INTO bookings (id, code, tenant_id, customer_id, resource_id, service_id, starts_at, ends_at, status, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := r.exec(ctx, stmt,
		b.ID, b.Code, b.TenantID, b.CustomerID, b.ResourceID, b.ServiceID,
		b.StartsAt, b.EndsAt, b.Status, b.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			// Either the code or the slot backstop fired; the caller treats a
			// occupied slot as a conflict without the winner's code.
			return &domain.ConflictError{}
		}
		if isForeignKeyViolation(err) {
			return domain.ErrResourceNotFound
		}
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("create booking: %w", err)
	}
	return nil
}

// IncrementTenantUsage bumps the tenant's booking counter. It must run inside
// the confirmation transaction so concurrent confirmations cannot lose
// updates.
func (r *BookingRepository) IncrementTenantUsage(ctx context.Context, tenantID string) error {
	const stmt = `UPDATE tenants SET bookings_count = bookings_count + 1 WHERE id = $1`

	tag, err := r.exec(ctx, stmt, tenantID)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("increment tenant usage: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrTenantNotFound
	}
	return nil
}

// ListActiveStarts returns occupied start times for a resource in [from, to],
// used when offering alternative slots.
func (r *BookingRepository) ListActiveStarts(ctx context.Context, tenantID, resourceID string, from, to time.Time) ([]time.Time, error) {
	const query = `
SELECT starts_at
FROM bookings
WHERE tenant_id = $1 AND resource_id = $2
  AND starts_at BETWEEN $3 AND $4
  AND status IN ('confirmed', 'in_progress')
ORDER BY starts_at ASC`

	rows, err := r.query(ctx, query, tenantID, resourceID, from, to)
	if err != nil {
		return nil, fmt.Errorf("list active starts: %w", err)
	}
	defer rows.Close()

	var starts []time.Time
	for rows.Next() {
		var ts time.Time
		if err := rows.Scan(&ts); err != nil {
			return nil, fmt.Errorf("scan start: %w", err)
		}
		starts = append(starts, ts)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate starts: %w", rows.Err())
	}
	return starts, nil
}

func (r *BookingRepository) exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if tx := txFromContext(ctx); tx != nil {
		return tx.Exec(ctx, sql, args...)
	}
	return r.pool.Exec(ctx, sql, args...)
}

func (r *BookingRepository) query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	if tx := txFromContext(ctx); tx != nil {
		return tx.Query(ctx, sql, args...)
	}
	return r.pool.Query(ctx, sql, args...)
}

func (r *BookingRepository) queryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	if tx := txFromContext(ctx); tx != nil {
		return tx.QueryRow(ctx, sql, args...)
	}
	return r.pool.QueryRow(ctx, sql, args...)
}
