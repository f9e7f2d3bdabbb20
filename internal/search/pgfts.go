package search

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// PgFTS implements Searcher using PostgreSQL full-text search as a fallback.
// The tsvector is computed inline, which is fine at back-office data sizes.
type PgFTS struct {
	db *sql.DB
}

// NewPgFTS creates a PostgreSQL FTS searcher.
func NewPgFTS(db *sql.DB) *PgFTS {
	return &PgFTS{db: db}
}

// Healthy always returns true — if Postgres is down, the whole app is down.
func (p *PgFTS) Healthy() bool {
	return true
}

// Search executes a UNION ALL query across orders, vendors, and products
// using plainto_tsquery and ts_rank.
func (p *PgFTS) Search(q Query) ([]Result, int, error) {
	if strings.TrimSpace(q.Text) == "" {
		return nil, 0, nil
	}

	limit := q.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := q.Offset
	if offset < 0 {
		offset = 0
	}

	tsQuery := "plainto_tsquery('english', $1)"
	args := []any{q.Text}

	var subQueries []string

	if q.FilterType == "" || q.FilterType == ResultOrder {
		subQueries = append(subQueries, fmt.Sprintf(`
			SELECT 'order'::text AS type, o.id, u.display_name AS title, o.status AS snippet,
				ts_rank(to_tsvector('english', u.display_name || ' ' || o.floor_plan || ' ' || o.status), %s) AS rank
			FROM orders o
			JOIN users u ON u.id = o.client_id
			WHERE to_tsvector('english', u.display_name || ' ' || o.floor_plan || ' ' || o.status) @@ %s`, tsQuery, tsQuery))
	}

	if q.FilterType == "" || q.FilterType == ResultVendor {
		subQueries = append(subQueries, fmt.Sprintf(`
			SELECT 'vendor'::text AS type, v.id, v.name AS title, v.contact_name AS snippet,
				ts_rank(to_tsvector('english', v.name || ' ' || v.contact_name || ' ' || v.email || ' ' || v.notes), %s) AS rank
			FROM vendors v
			WHERE to_tsvector('english', v.name || ' ' || v.contact_name || ' ' || v.email || ' ' || v.notes) @@ %s`, tsQuery, tsQuery))
	}

	if q.FilterType == "" || q.FilterType == ResultProduct {
		subQueries = append(subQueries, fmt.Sprintf(`
			SELECT 'product'::text AS type, pr.id, pr.name AS title, pr.category AS snippet,
				ts_rank(to_tsvector('english', pr.name || ' ' || pr.category), %s) AS rank
			FROM products pr
			WHERE to_tsvector('english', pr.name || ' ' || pr.category) @@ %s`, tsQuery, tsQuery))
	}

	if len(subQueries) == 0 {
		return nil, 0, nil
	}

	countSQL := fmt.Sprintf("SELECT count(*) FROM (%s) sub",
		strings.Join(subQueries, " UNION ALL "))

	dataSQL := fmt.Sprintf(`SELECT type, id, title, snippet
		FROM (%s) sub
		ORDER BY rank DESC
		LIMIT %d OFFSET %d`,
		strings.Join(subQueries, " UNION ALL "),
		limit, offset)

	ctx := context.Background()

	var total int
	if err := p.db.QueryRowContext(ctx, countSQL, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("pgfts count: %w", err)
	}

	rows, err := p.db.QueryContext(ctx, dataSQL, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("pgfts query: %w", err)
	}
	defer rows.Close()

	var results []Result
	for rows.Next() {
		var r Result
		var typ string
		if err := rows.Scan(&typ, &r.ID, &r.Title, &r.Snippet); err != nil {
			return nil, 0, fmt.Errorf("pgfts scan: %w", err)
		}
		r.Type = ResultType(typ)
		results = append(results, r)
	}

	return results, total, rows.Err()
}

// LoadAllRecords returns all searchable records for full reindexing.
func (p *PgFTS) LoadAllRecords(ctx context.Context) ([]OrderRecord, []VendorRecord, []ProductRecord, error) {
	orderRows, err := p.db.QueryContext(ctx, `
		SELECT o.id, u.display_name, o.floor_plan, o.status
		FROM orders o
		JOIN users u ON u.id = o.client_id
	`)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load orders: %w", err)
	}
	defer orderRows.Close()

	orders := make([]OrderRecord, 0)
	for orderRows.Next() {
		var rec OrderRecord
		if err := orderRows.Scan(&rec.ID, &rec.ClientName, &rec.FloorPlan, &rec.Status); err != nil {
			return nil, nil, nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, rec)
	}
	if err := orderRows.Err(); err != nil {
		return nil, nil, nil, fmt.Errorf("iterate orders: %w", err)
	}

	vendorRows, err := p.db.QueryContext(ctx, `
		SELECT id, name, contact_name, email, notes FROM vendors
	`)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load vendors: %w", err)
	}
	defer vendorRows.Close()

	vendors := make([]VendorRecord, 0)
	for vendorRows.Next() {
		var rec VendorRecord
		if err := vendorRows.Scan(&rec.ID, &rec.Name, &rec.ContactName, &rec.Email, &rec.Notes); err != nil {
			return nil, nil, nil, fmt.Errorf("scan vendor: %w", err)
		}
		vendors = append(vendors, rec)
	}
	if err := vendorRows.Err(); err != nil {
		return nil, nil, nil, fmt.Errorf("iterate vendors: %w", err)
	}

	productRows, err := p.db.QueryContext(ctx, `
		SELECT id, name, category, COALESCE(vendor_id, '') FROM products
	`)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load products: %w", err)
	}
	defer productRows.Close()

	products := make([]ProductRecord, 0)
	for productRows.Next() {
		var rec ProductRecord
		if err := productRows.Scan(&rec.ID, &rec.Name, &rec.Category, &rec.VendorID); err != nil {
			return nil, nil, nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, rec)
	}
	if err := productRows.Err(); err != nil {
		return nil, nil, nil, fmt.Errorf("iterate products: %w", err)
	}

	return orders, vendors, products, nil
}
