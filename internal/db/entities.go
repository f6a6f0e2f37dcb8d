package db

import (
	"context"
	"fmt"

	"github.com/erpsync/bling-sync/internal/models"
)

// SaveOrder upserts a sales order keyed by (company_id, bling_id), so
// re-syncing an unchanged dataset never duplicates rows.
func (s *PostgresStore) SaveOrder(ctx context.Context, companyID string, order *models.Order) error {
	query := `
		INSERT INTO orders (
			company_id, bling_id, number, issued_at, total, contact_id,
			contact_name, status_id, payload, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW(), NOW())
		ON CONFLICT (company_id, bling_id) DO UPDATE SET
			number = EXCLUDED.number,
			issued_at = EXCLUDED.issued_at,
			total = EXCLUDED.total,
			contact_id = EXCLUDED.contact_id,
			contact_name = EXCLUDED.contact_name,
			status_id = EXCLUDED.status_id,
			payload = EXCLUDED.payload,
			updated_at = NOW()`

	_, err := s.db.ExecContext(ctx, query,
		companyID,
		order.BlingID,
		order.Number,
		nullString(order.IssuedAt),
		order.Total,
		order.ContactID,
		order.ContactName,
		order.StatusID,
		[]byte(order.Payload),
	)
	if err != nil {
		return fmt.Errorf("failed to save order %d: %w", order.BlingID, err)
	}
	return nil
}

// SaveProduct upserts a product keyed by (company_id, bling_id).
func (s *PostgresStore) SaveProduct(ctx context.Context, companyID string, product *models.Product) error {
	query := `
		INSERT INTO products (
			company_id, bling_id, name, code, price, situation, payload,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
		ON CONFLICT (company_id, bling_id) DO UPDATE SET
			name = EXCLUDED.name,
			code = EXCLUDED.code,
			price = EXCLUDED.price,
			situation = EXCLUDED.situation,
			payload = EXCLUDED.payload,
			updated_at = NOW()`

	_, err := s.db.ExecContext(ctx, query,
		companyID,
		product.BlingID,
		product.Name,
		product.Code,
		product.Price,
		product.Situation,
		[]byte(product.Payload),
	)
	if err != nil {
		return fmt.Errorf("failed to save product %d: %w", product.BlingID, err)
	}
	return nil
}

// SaveCustomer upserts a contact keyed by (company_id, bling_id).
func (s *PostgresStore) SaveCustomer(ctx context.Context, companyID string, customer *models.Customer) error {
	query := `
		INSERT INTO customers (
			company_id, bling_id, name, document, email, phone, situation,
			payload, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW())
		ON CONFLICT (company_id, bling_id) DO UPDATE SET
			name = EXCLUDED.name,
			document = EXCLUDED.document,
			email = EXCLUDED.email,
			phone = EXCLUDED.phone,
			situation = EXCLUDED.situation,
			payload = EXCLUDED.payload,
			updated_at = NOW()`

	_, err := s.db.ExecContext(ctx, query,
		companyID,
		customer.BlingID,
		customer.Name,
		customer.Document,
		customer.Email,
		customer.Phone,
		customer.Situation,
		[]byte(customer.Payload),
	)
	if err != nil {
		return fmt.Errorf("failed to save customer %d: %w", customer.BlingID, err)
	}
	return nil
}
