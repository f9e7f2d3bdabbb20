package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

// ErrVersionConflict reports a unique violation on the
// (order_id, vendor_id, version) sequence. Callers recompute the next
// number and retry.
var ErrVersionConflict = errors.New("version number conflict")

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) DB() *sql.DB {
	return s.db
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// --- users ---

const userColumns = `id, display_name, email, password_hash, role, approval_status,
	is_email_verified, verification_token, verification_expires_at, deactivated_at, created_at, updated_at`

func scanUser(row interface{ Scan(...any) error }) (User, error) {
	var user User
	err := row.Scan(&user.ID, &user.DisplayName, &user.Email, &user.PasswordHash,
		&user.Role, &user.ApprovalStatus, &user.IsEmailVerified, &user.VerificationToken,
		&user.VerificationExpiresAt, &user.DeactivatedAt, &user.CreatedAt, &user.UpdatedAt)
	return user, err
}

func (s *PostgresStore) GetUserByEmail(ctx context.Context, email string) (User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE LOWER(email)=LOWER($1)`, email)
	return scanUser(row)
}

func (s *PostgresStore) GetUserByID(ctx context.Context, userID string) (User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id=$1`, userID)
	return scanUser(row)
}

func (s *PostgresStore) CreateUser(ctx context.Context, user User) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, display_name, email, password_hash, role, approval_status, is_email_verified, verification_token)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, user.ID, user.DisplayName, user.Email, user.PasswordHash, user.Role, user.ApprovalStatus, user.IsEmailVerified, user.VerificationToken)
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (s *PostgresStore) UpdateUserVerificationToken(ctx context.Context, userID, token string, expiresAt time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE users SET verification_token=$2, verification_expires_at=$3, updated_at=NOW() WHERE id=$1
	`, userID, token, expiresAt)
	if err != nil {
		return fmt.Errorf("update verification token: %w", err)
	}
	return nil
}

func (s *PostgresStore) VerifyUserEmail(ctx context.Context, token string) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE users SET is_email_verified=TRUE, verification_token='', updated_at=NOW()
		WHERE verification_token=$1 AND verification_expires_at > NOW()
	`, token)
	if err != nil {
		return fmt.Errorf("verify email: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("verify email rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (s *PostgresStore) UpdateUserPassword(ctx context.Context, userID, passwordHash string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE users SET password_hash=$2, updated_at=NOW() WHERE id=$1`, userID, passwordHash)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return nil
}

func (s *PostgresStore) CreatePasswordReset(ctx context.Context, userID, token string, expiresAt time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO password_resets (token, user_id, expires_at) VALUES ($1, $2, $3)
	`, token, userID, expiresAt)
	if err != nil {
		return fmt.Errorf("create password reset: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetPasswordReset(ctx context.Context, token string) (string, error) {
	var userID string
	err := s.db.QueryRowContext(ctx, `
		SELECT user_id FROM password_resets WHERE token=$1 AND used_at IS NULL AND expires_at > NOW()
	`, token).Scan(&userID)
	if err != nil {
		return "", err
	}
	return userID, nil
}

func (s *PostgresStore) MarkPasswordResetUsed(ctx context.Context, token string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE password_resets SET used_at=NOW() WHERE token=$1`, token)
	if err != nil {
		return fmt.Errorf("mark reset used: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListClients(ctx context.Context, approvalStatus string) ([]User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE role='client'`
	args := []any{}
	if approvalStatus != "" {
		query += ` AND approval_status=$1`
		args = append(args, approvalStatus)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list clients: %w", err)
	}
	defer rows.Close()

	items := make([]User, 0)
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan client: %w", err)
		}
		items = append(items, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate clients: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) SetClientApproval(ctx context.Context, userID, approvalStatus string) (User, error) {
	row := s.db.QueryRowContext(ctx, `
		UPDATE users SET approval_status=$2, updated_at=NOW()
		WHERE id=$1 AND role='client'
		RETURNING `+userColumns, userID, approvalStatus)
	return scanUser(row)
}

// --- refresh sessions (Postgres fallback when Redis is not configured) ---

func (s *PostgresStore) SaveRefreshSession(ctx context.Context, tokenHash, userID string, expiresAt time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO refresh_sessions (token_hash, user_id, expires_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (token_hash) DO UPDATE SET user_id=EXCLUDED.user_id, expires_at=EXCLUDED.expires_at, revoked_at=NULL
	`, tokenHash, userID, expiresAt)
	if err != nil {
		return fmt.Errorf("save refresh session: %w", err)
	}
	return nil
}

func (s *PostgresStore) LookupRefreshSession(ctx context.Context, tokenHash string) (User, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+prefixColumns("u", userColumns)+`
		FROM refresh_sessions rs
		JOIN users u ON u.id = rs.user_id
		WHERE rs.token_hash = $1
			AND rs.revoked_at IS NULL
			AND rs.expires_at > NOW()
	`, tokenHash)
	return scanUser(row)
}

func (s *PostgresStore) RevokeRefreshSession(ctx context.Context, tokenHash string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE refresh_sessions SET revoked_at=NOW() WHERE token_hash=$1`, tokenHash)
	if err != nil {
		return fmt.Errorf("revoke refresh session: %w", err)
	}
	return nil
}

// --- vendors ---

const vendorColumns = `id, name, contact_name, email, phone, address, notes, created_at, updated_at`

func scanVendor(row interface{ Scan(...any) error }) (Vendor, error) {
	var v Vendor
	err := row.Scan(&v.ID, &v.Name, &v.ContactName, &v.Email, &v.Phone, &v.Address, &v.Notes, &v.CreatedAt, &v.UpdatedAt)
	return v, err
}

func (s *PostgresStore) ListVendors(ctx context.Context) ([]Vendor, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+vendorColumns+` FROM vendors ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list vendors: %w", err)
	}
	defer rows.Close()

	items := make([]Vendor, 0)
	for rows.Next() {
		vendor, err := scanVendor(rows)
		if err != nil {
			return nil, fmt.Errorf("scan vendor: %w", err)
		}
		items = append(items, vendor)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate vendors: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) GetVendor(ctx context.Context, vendorID string) (Vendor, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+vendorColumns+` FROM vendors WHERE id=$1`, vendorID)
	return scanVendor(row)
}

func (s *PostgresStore) InsertVendor(ctx context.Context, vendor Vendor) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO vendors (id, name, contact_name, email, phone, address, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, vendor.ID, vendor.Name, vendor.ContactName, vendor.Email, vendor.Phone, vendor.Address, vendor.Notes)
	if err != nil {
		return fmt.Errorf("insert vendor: %w", err)
	}
	return nil
}

func (s *PostgresStore) UpdateVendor(ctx context.Context, vendor Vendor) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE vendors SET name=$2, contact_name=$3, email=$4, phone=$5, address=$6, notes=$7, updated_at=NOW()
		WHERE id=$1
	`, vendor.ID, vendor.Name, vendor.ContactName, vendor.Email, vendor.Phone, vendor.Address, vendor.Notes)
	if err != nil {
		return fmt.Errorf("update vendor: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update vendor rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (s *PostgresStore) DeleteVendor(ctx context.Context, vendorID string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM vendors WHERE id=$1`, vendorID)
	if err != nil {
		return fmt.Errorf("delete vendor: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete vendor rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ListVendorItems derives a vendor's line items across all orders from the
// live order_items rows.
func (s *PostgresStore) ListVendorItems(ctx context.Context, vendorID string) ([]VendorItemRef, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT order_id, id, product_id, product_name, quantity, unit_price, COALESCE(options->>'poNumber', '')
		FROM order_items
		WHERE vendor_id=$1
		ORDER BY order_id, product_name
	`, vendorID)
	if err != nil {
		return nil, fmt.Errorf("list vendor items: %w", err)
	}
	defer rows.Close()

	items := make([]VendorItemRef, 0)
	for rows.Next() {
		var ref VendorItemRef
		if err := rows.Scan(&ref.OrderID, &ref.ItemID, &ref.ProductID, &ref.ProductName, &ref.Quantity, &ref.UnitPrice, &ref.PONumber); err != nil {
			return nil, fmt.Errorf("scan vendor item: %w", err)
		}
		items = append(items, ref)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate vendor items: %w", err)
	}
	return items, nil
}

// --- products ---

const productColumns = `id, name, category, COALESCE(vendor_id, ''), unit_price, image_url, created_at, updated_at`

func (s *PostgresStore) ListProducts(ctx context.Context) ([]Product, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+productColumns+` FROM products ORDER BY category, name`)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	items := make([]Product, 0)
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Category, &p.VendorID, &p.UnitPrice, &p.ImageURL, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		items = append(items, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate products: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) InsertProduct(ctx context.Context, product Product) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO products (id, name, category, vendor_id, unit_price, image_url)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6)
	`, product.ID, product.Name, product.Category, product.VendorID, product.UnitPrice, product.ImageURL)
	if err != nil {
		return fmt.Errorf("insert product: %w", err)
	}
	return nil
}

// --- orders ---

func (s *PostgresStore) ListOrders(ctx context.Context) ([]Order, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT o.id, o.client_id, o.floor_plan, o.status, o.created_at, o.updated_at, u.display_name
		FROM orders o
		JOIN users u ON u.id = o.client_id
		ORDER BY o.updated_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	items := make([]Order, 0)
	for rows.Next() {
		var order Order
		if err := rows.Scan(&order.ID, &order.ClientID, &order.FloorPlan, &order.Status, &order.CreatedAt, &order.UpdatedAt, &order.ClientName); err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		items = append(items, order)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate orders: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) GetOrder(ctx context.Context, orderID string) (Order, error) {
	var order Order
	err := s.db.QueryRowContext(ctx, `
		SELECT o.id, o.client_id, o.floor_plan, o.status, o.created_at, o.updated_at, u.display_name
		FROM orders o
		JOIN users u ON u.id = o.client_id
		WHERE o.id=$1
	`, orderID).Scan(&order.ID, &order.ClientID, &order.FloorPlan, &order.Status, &order.CreatedAt, &order.UpdatedAt, &order.ClientName)
	if err != nil {
		return Order{}, err
	}
	return order, nil
}

func (s *PostgresStore) InsertOrder(ctx context.Context, order Order) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO orders (id, client_id, floor_plan, status)
		VALUES ($1, $2, $3, $4)
	`, order.ID, order.ClientID, order.FloorPlan, order.Status)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

func (s *PostgresStore) UpdateOrderStatus(ctx context.Context, orderID, status string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE orders SET status=$2, updated_at=NOW() WHERE id=$1`, orderID, status)
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}
	return nil
}

const orderItemColumns = `id, order_id, product_id, product_name, category, vendor_id, quantity, unit_price, final_price, options, created_at, updated_at`

func (s *PostgresStore) ListOrderItems(ctx context.Context, orderID string) ([]OrderItem, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+orderItemColumns+` FROM order_items WHERE order_id=$1 ORDER BY created_at, id
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("list order items: %w", err)
	}
	defer rows.Close()

	items := make([]OrderItem, 0)
	for rows.Next() {
		var item OrderItem
		var optionsRaw []byte
		if err := rows.Scan(&item.ID, &item.OrderID, &item.ProductID, &item.ProductName, &item.Category,
			&item.VendorID, &item.Quantity, &item.UnitPrice, &item.FinalPrice, &optionsRaw,
			&item.CreatedAt, &item.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		if len(optionsRaw) > 0 {
			if err := json.Unmarshal(optionsRaw, &item.Options); err != nil {
				return nil, fmt.Errorf("decode item options: %w", err)
			}
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order items: %w", err)
	}
	return items, nil
}

// ReplaceOrderItems swaps the live line-item set inside one transaction.
func (s *PostgresStore) ReplaceOrderItems(ctx context.Context, orderID string, items []OrderItem) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace items: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM order_items WHERE order_id=$1`, orderID); err != nil {
		return fmt.Errorf("clear order items: %w", err)
	}
	for _, item := range items {
		optionsRaw, err := json.Marshal(item.Options)
		if err != nil {
			return fmt.Errorf("encode item options: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO order_items (id, order_id, product_id, product_name, category, vendor_id, quantity, unit_price, final_price, options)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		`, item.ID, orderID, item.ProductID, item.ProductName, item.Category, item.VendorID,
			item.Quantity, item.UnitPrice, item.FinalPrice, optionsRaw); err != nil {
			return fmt.Errorf("insert order item: %w", err)
		}
	}
	if _, err := tx.ExecContext(ctx, `UPDATE orders SET updated_at=NOW() WHERE id=$1`, orderID); err != nil {
		return fmt.Errorf("touch order: %w", err)
	}
	return tx.Commit()
}

// UpdateOrderItemPONumber writes the PO number into one item's options bag.
// Field-level jsonb_set, so concurrent edits to other items or other option
// fields are never clobbered.
func (s *PostgresStore) UpdateOrderItemPONumber(ctx context.Context, itemID, poNumber string) (bool, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE order_items
		SET options = jsonb_set(options, '{poNumber}', to_jsonb($2::text)), updated_at=NOW()
		WHERE id=$1 AND COALESCE(options->>'poNumber', '') <> $2
	`, itemID, poNumber)
	if err != nil {
		return false, fmt.Errorf("update item po number: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("update item po number rows: %w", err)
	}
	return affected > 0, nil
}

// --- versions ---

const versionColumns = `id, order_id, COALESCE(vendor_id, ''), kind, version, items,
	subtotal, sales_tax, shipping, others, total, notes, status, created_by, created_at, updated_at`

func scanVersion(row interface{ Scan(...any) error }) (Version, error) {
	var v Version
	var itemsRaw []byte
	err := row.Scan(&v.ID, &v.OrderID, &v.VendorID, &v.Kind, &v.Number, &itemsRaw,
		&v.Totals.Subtotal, &v.Totals.SalesTax, &v.Totals.Shipping, &v.Totals.Others, &v.Totals.Total,
		&v.Notes, &v.Status, &v.CreatedBy, &v.CreatedAt, &v.UpdatedAt)
	if err != nil {
		return Version{}, err
	}
	if len(itemsRaw) > 0 {
		if err := json.Unmarshal(itemsRaw, &v.Items); err != nil {
			return Version{}, fmt.Errorf("decode version items: %w", err)
		}
	}
	return v, nil
}

// MaxVersionNumber returns the highest assigned number for the scope, or 0
// when no version exists. "Latest" is always this query, never a cached
// pointer.
func (s *PostgresStore) MaxVersionNumber(ctx context.Context, orderID, vendorID string) (int, error) {
	var max int
	err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(MAX(version), 0) FROM versions
		WHERE order_id=$1 AND COALESCE(vendor_id, '')=$2
	`, orderID, vendorID).Scan(&max)
	if err != nil {
		return 0, fmt.Errorf("max version number: %w", err)
	}
	return max, nil
}

func (s *PostgresStore) GetLatestVersion(ctx context.Context, orderID, vendorID string) (Version, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+versionColumns+` FROM versions
		WHERE order_id=$1 AND COALESCE(vendor_id, '')=$2
		ORDER BY version DESC
		LIMIT 1
	`, orderID, vendorID)
	return scanVersion(row)
}

func (s *PostgresStore) GetVersion(ctx context.Context, orderID, vendorID string, number int) (Version, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+versionColumns+` FROM versions
		WHERE order_id=$1 AND COALESCE(vendor_id, '')=$2 AND version=$3
	`, orderID, vendorID, number)
	return scanVersion(row)
}

// InsertVersion persists a new version row. A duplicate number in the same
// (order, vendor) scope surfaces as ErrVersionConflict.
func (s *PostgresStore) InsertVersion(ctx context.Context, v Version) error {
	itemsRaw, err := json.Marshal(v.Items)
	if err != nil {
		return fmt.Errorf("encode version items: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO versions (id, order_id, vendor_id, kind, version, items, subtotal, sales_tax, shipping, others, total, notes, status, created_by)
		VALUES ($1, $2, NULLIF($3, ''), $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`, v.ID, v.OrderID, v.VendorID, v.Kind, v.Number, itemsRaw,
		v.Totals.Subtotal, v.Totals.SalesTax, v.Totals.Shipping, v.Totals.Others, v.Totals.Total,
		v.Notes, v.Status, v.CreatedBy)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrVersionConflict
		}
		return fmt.Errorf("insert version: %w", err)
	}
	return nil
}

// UpdateVersion mutates an existing version in place. The (order, vendor,
// number) key identifies the exact row; it never creates one.
func (s *PostgresStore) UpdateVersion(ctx context.Context, v Version) error {
	itemsRaw, err := json.Marshal(v.Items)
	if err != nil {
		return fmt.Errorf("encode version items: %w", err)
	}
	result, err := s.db.ExecContext(ctx, `
		UPDATE versions
		SET items=$4, subtotal=$5, sales_tax=$6, shipping=$7, others=$8, total=$9, notes=$10, updated_at=NOW()
		WHERE order_id=$1 AND COALESCE(vendor_id, '')=$2 AND version=$3
	`, v.OrderID, v.VendorID, v.Number, itemsRaw,
		v.Totals.Subtotal, v.Totals.SalesTax, v.Totals.Shipping, v.Totals.Others, v.Totals.Total, v.Notes)
	if err != nil {
		return fmt.Errorf("update version: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update version rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (s *PostgresStore) UpdateVersionStatus(ctx context.Context, orderID, vendorID string, number int, status string) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE versions SET status=$4, updated_at=NOW()
		WHERE order_id=$1 AND COALESCE(vendor_id, '')=$2 AND version=$3
	`, orderID, vendorID, number, status)
	if err != nil {
		return fmt.Errorf("update version status: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update version status rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (s *PostgresStore) ListVersions(ctx context.Context, orderID, vendorID string) ([]Version, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+versionColumns+` FROM versions
		WHERE order_id=$1 AND COALESCE(vendor_id, '')=$2
		ORDER BY version DESC
	`, orderID, vendorID)
	if err != nil {
		return nil, fmt.Errorf("list versions: %w", err)
	}
	defer rows.Close()

	items := make([]Version, 0)
	for rows.Next() {
		version, err := scanVersion(rows)
		if err != nil {
			return nil, fmt.Errorf("scan version: %w", err)
		}
		items = append(items, version)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate versions: %w", err)
	}
	return items, nil
}

// ListLatestPerVendor returns the highest purchase-order version for each
// vendor on the order.
func (s *PostgresStore) ListLatestPerVendor(ctx context.Context, orderID string) ([]Version, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT ON (vendor_id) `+versionColumns+` FROM versions
		WHERE order_id=$1 AND vendor_id IS NOT NULL
		ORDER BY vendor_id, version DESC
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("list latest per vendor: %w", err)
	}
	defer rows.Close()

	items := make([]Version, 0)
	for rows.Next() {
		version, err := scanVersion(rows)
		if err != nil {
			return nil, fmt.Errorf("scan latest version: %w", err)
		}
		items = append(items, version)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate latest versions: %w", err)
	}
	return items, nil
}

// --- journey ---

func (s *PostgresStore) InsertJourneySteps(ctx context.Context, steps []JourneyStep) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin journey seed: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, step := range steps {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO journey_steps (order_id, step_no, phase, title, milestone)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (order_id, step_no) DO NOTHING
		`, step.OrderID, step.StepNo, step.Phase, step.Title, step.Milestone); err != nil {
			return fmt.Errorf("insert journey step: %w", err)
		}
	}
	return tx.Commit()
}

func (s *PostgresStore) ListJourneySteps(ctx context.Context, orderID string) ([]JourneyStep, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT order_id, step_no, phase, title, milestone, completed_at, completed_by
		FROM journey_steps WHERE order_id=$1 ORDER BY step_no
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("list journey steps: %w", err)
	}
	defer rows.Close()

	items := make([]JourneyStep, 0)
	for rows.Next() {
		var step JourneyStep
		if err := rows.Scan(&step.OrderID, &step.StepNo, &step.Phase, &step.Title, &step.Milestone, &step.CompletedAt, &step.CompletedBy); err != nil {
			return nil, fmt.Errorf("scan journey step: %w", err)
		}
		items = append(items, step)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate journey steps: %w", err)
	}
	return items, nil
}

// CompleteJourneyStep marks a step done. Returns false when the step was
// already completed, without touching the original completion record.
func (s *PostgresStore) CompleteJourneyStep(ctx context.Context, orderID string, stepNo int, completedBy string) (JourneyStep, bool, error) {
	row := s.db.QueryRowContext(ctx, `
		UPDATE journey_steps SET completed_at=NOW(), completed_by=$3
		WHERE order_id=$1 AND step_no=$2 AND completed_at IS NULL
		RETURNING order_id, step_no, phase, title, milestone, completed_at, completed_by
	`, orderID, stepNo, completedBy)

	var step JourneyStep
	err := row.Scan(&step.OrderID, &step.StepNo, &step.Phase, &step.Title, &step.Milestone, &step.CompletedAt, &step.CompletedBy)
	if errors.Is(err, sql.ErrNoRows) {
		// Either the step does not exist or it was already done.
		existing := s.db.QueryRowContext(ctx, `
			SELECT order_id, step_no, phase, title, milestone, completed_at, completed_by
			FROM journey_steps WHERE order_id=$1 AND step_no=$2
		`, orderID, stepNo)
		step, lookupErr := func() (JourneyStep, error) {
			var js JourneyStep
			err := existing.Scan(&js.OrderID, &js.StepNo, &js.Phase, &js.Title, &js.Milestone, &js.CompletedAt, &js.CompletedBy)
			return js, err
		}()
		if lookupErr != nil {
			return JourneyStep{}, false, lookupErr
		}
		return step, false, nil
	}
	if err != nil {
		return JourneyStep{}, false, fmt.Errorf("complete journey step: %w", err)
	}
	return step, true, nil
}

// --- payments ---

func (s *PostgresStore) ReplacePayments(ctx context.Context, orderID string, payments []Payment) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace payments: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM payments WHERE order_id=$1 AND paid_at IS NULL`, orderID); err != nil {
		return fmt.Errorf("clear unpaid payments: %w", err)
	}
	for _, payment := range payments {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO payments (order_id, installment_no, label, amount)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (order_id, installment_no) DO UPDATE SET label=EXCLUDED.label, amount=EXCLUDED.amount
		`, orderID, payment.InstallmentNo, payment.Label, payment.Amount); err != nil {
			return fmt.Errorf("insert payment: %w", err)
		}
	}
	return tx.Commit()
}

func (s *PostgresStore) ListPayments(ctx context.Context, orderID string) ([]Payment, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT order_id, installment_no, label, amount, paid_at
		FROM payments WHERE order_id=$1 ORDER BY installment_no
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	defer rows.Close()

	items := make([]Payment, 0)
	for rows.Next() {
		var payment Payment
		if err := rows.Scan(&payment.OrderID, &payment.InstallmentNo, &payment.Label, &payment.Amount, &payment.PaidAt); err != nil {
			return nil, fmt.Errorf("scan payment: %w", err)
		}
		items = append(items, payment)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate payments: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) MarkPaymentPaid(ctx context.Context, orderID string, installmentNo int) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE payments SET paid_at=NOW() WHERE order_id=$1 AND installment_no=$2 AND paid_at IS NULL
	`, orderID, installmentNo)
	if err != nil {
		return fmt.Errorf("mark payment paid: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark payment rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// PaymentProgress reports paid vs. total installment counts for an order.
func (s *PostgresStore) PaymentProgress(ctx context.Context, orderID string) (paid int, total int, err error) {
	err = s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FILTER (WHERE paid_at IS NOT NULL), COUNT(*)
		FROM payments WHERE order_id=$1
	`, orderID).Scan(&paid, &total)
	if err != nil {
		return 0, 0, fmt.Errorf("payment progress: %w", err)
	}
	return paid, total, nil
}

func prefixColumns(prefix, columns string) string {
	parts := strings.Split(columns, ",")
	for i, part := range parts {
		parts[i] = prefix + "." + strings.TrimSpace(part)
	}
	return strings.Join(parts, ", ")
}
