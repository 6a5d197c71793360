package design

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"

	"github.com/lib/pq"
)

//go:embed schema.sql
var schema string

const uniqueViolation = "23505"

// PostgresStore keeps designs in the printful_designs table.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a store on an open database handle.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate creates the table and indexes when missing.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("design: migrate: %w", err)
	}
	return nil
}

const selectColumns = `id, user_id, product_id, COALESCE(design_data, ''), design_name, status,
		COALESCE(external_product_id, ''), COALESCE(template_id, 0), COALESCE(mockup_url, ''),
		unit_price, COALESCE(currency, ''), COALESCE(variant_id, 0), COALESCE(design_category, ''),
		created_at, updated_at, last_saved`

func (s *PostgresStore) Upsert(ctx context.Context, d *Design) (int64, error) {
	query := `
		INSERT INTO printful_designs (user_id, product_id, design_name, status, external_product_id,
			template_id, mockup_url, unit_price, currency, variant_id, design_category, last_saved)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, now())
		ON CONFLICT (user_id, external_product_id) DO UPDATE SET
			product_id = EXCLUDED.product_id,
			design_data = NULL,
			design_name = EXCLUDED.design_name,
			status = EXCLUDED.status,
			template_id = EXCLUDED.template_id,
			mockup_url = COALESCE(EXCLUDED.mockup_url, printful_designs.mockup_url),
			unit_price = EXCLUDED.unit_price,
			currency = EXCLUDED.currency,
			variant_id = EXCLUDED.variant_id,
			design_category = EXCLUDED.design_category,
			last_saved = EXCLUDED.last_saved,
			updated_at = now()
		RETURNING id;
	`
	var id int64
	err := s.db.QueryRowContext(ctx, query,
		d.UserID, d.ProductID, orDefaultName(d.DesignName), string(d.Status), d.ExternalProductID,
		nullInt(d.TemplateID), nullString(d.MockupURL), nullFloat(d.UnitPrice), nullString(d.Currency),
		nullInt(d.VariantID), nullString(d.DesignCategory),
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("design: upsert: %w", err)
	}
	return id, nil
}

func (s *PostgresStore) Insert(ctx context.Context, d *Design) (int64, error) {
	query := `
		INSERT INTO printful_designs (user_id, product_id, design_data, design_name, status, last_saved)
		VALUES ($1, $2, $3, $4, $5, now())
		RETURNING id;
	`
	var id int64
	err := s.db.QueryRowContext(ctx, query,
		d.UserID, d.ProductID, nullString(d.DesignData), orDefaultName(d.DesignName), string(d.Status),
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("design: insert: %w", err)
	}
	return id, nil
}

func (s *PostgresStore) Replace(ctx context.Context, id int64, d *Design) error {
	query := `
		UPDATE printful_designs SET
			product_id = $3, design_data = NULL, design_name = $4, status = $5,
			external_product_id = $6, template_id = $7, mockup_url = COALESCE($8, mockup_url),
			unit_price = $9, currency = $10, variant_id = $11, design_category = $12,
			last_saved = now(), updated_at = now()
		WHERE id = $1 AND user_id = $2;
	`
	res, err := s.db.ExecContext(ctx, query,
		id, d.UserID, d.ProductID, orDefaultName(d.DesignName), string(d.Status), d.ExternalProductID,
		nullInt(d.TemplateID), nullString(d.MockupURL), nullFloat(d.UnitPrice), nullString(d.Currency),
		nullInt(d.VariantID), nullString(d.DesignCategory),
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return ErrDuplicate
		}
		return fmt.Errorf("design: replace: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("design: replace: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, id, userID int64) (*Design, error) {
	query := `SELECT ` + selectColumns + ` FROM printful_designs WHERE id = $1 AND user_id = $2;`
	d, err := scanDesign(s.db.QueryRowContext(ctx, query, id, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("design: get: %w", err)
	}
	return d, nil
}

func (s *PostgresStore) List(ctx context.Context, userID int64) ([]Design, error) {
	query := `SELECT ` + selectColumns + ` FROM printful_designs WHERE user_id = $1 ORDER BY COALESCE(last_saved, created_at) DESC, id DESC;`
	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("design: list: %w", err)
	}
	defer rows.Close()

	designs := []Design{}
	for rows.Next() {
		d, err := scanDesign(rows)
		if err != nil {
			return nil, fmt.Errorf("design: list scan: %w", err)
		}
		designs = append(designs, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("design: list: %w", err)
	}
	return designs, nil
}

func (s *PostgresStore) SetMockup(ctx context.Context, id, userID int64, url string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE printful_designs SET mockup_url = $3, updated_at = now() WHERE id = $1 AND user_id = $2;`,
		id, userID, url)
	if err != nil {
		return fmt.Errorf("design: set mockup: %w", err)
	}
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, id, userID int64) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM printful_designs WHERE id = $1 AND user_id = $2;`, id, userID)
	if err != nil {
		return 0, fmt.Errorf("design: delete: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("design: delete: %w", err)
	}
	return n, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanDesign(row rowScanner) (*Design, error) {
	var (
		d         Design
		status    string
		unitPrice sql.NullFloat64
		lastSaved sql.NullTime
	)
	err := row.Scan(
		&d.ID, &d.UserID, &d.ProductID, &d.DesignData, &d.DesignName, &status,
		&d.ExternalProductID, &d.TemplateID, &d.MockupURL,
		&unitPrice, &d.Currency, &d.VariantID, &d.DesignCategory,
		&d.CreatedAt, &d.UpdatedAt, &lastSaved,
	)
	if err != nil {
		return nil, err
	}
	d.Status = Status(status)
	if unitPrice.Valid {
		v := unitPrice.Float64
		d.UnitPrice = &v
	}
	if lastSaved.Valid {
		d.LastSaved = lastSaved.Time
	}
	return &d, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullInt(v int64) sql.NullInt64 {
	return sql.NullInt64{Int64: v, Valid: v != 0}
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}
