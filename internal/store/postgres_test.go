package store

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockStore(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewPostgresStore(db), mock
}

func TestMaxVersionNumberEmptyScope(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COALESCE(MAX(version), 0) FROM versions`)).
		WithArgs("ord_1", "").
		WillReturnRows(sqlmock.NewRows([]string{"coalesce"}).AddRow(0))

	max, err := s.MaxVersionNumber(context.Background(), "ord_1", "")
	require.NoError(t, err)
	assert.Equal(t, 0, max)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMaxVersionNumberVendorScoped(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COALESCE(MAX(version), 0) FROM versions`)).
		WithArgs("ord_1", "ven_9").
		WillReturnRows(sqlmock.NewRows([]string{"coalesce"}).AddRow(4))

	max, err := s.MaxVersionNumber(context.Background(), "ord_1", "ven_9")
	require.NoError(t, err)
	assert.Equal(t, 4, max)
}

func versionRows(t *testing.T) *sqlmock.Rows {
	t.Helper()
	return sqlmock.NewRows([]string{
		"id", "order_id", "vendor_id", "kind", "version", "items",
		"subtotal", "sales_tax", "shipping", "others", "total",
		"notes", "status", "created_by", "created_at", "updated_at",
	})
}

func TestGetLatestVersionOrdersByNumberDesc(t *testing.T) {
	s, mock := newMockStore(t)

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta(`ORDER BY version DESC`)).
		WithArgs("ord_1", "").
		WillReturnRows(versionRows(t).AddRow(
			"ver_3", "ord_1", "", "proposal", 3,
			[]byte(`[{"productId":"prod_1","productName":"Oak table","quantity":1,"unitPrice":100,"lineTotal":100,"options":{}}]`),
			100.0, 4.71, 0.0, 0.0, 104.71,
			"third pass", "draft", "usr_1", now, now,
		))

	latest, err := s.GetLatestVersion(context.Background(), "ord_1", "")
	require.NoError(t, err)
	assert.Equal(t, 3, latest.Number)
	assert.Equal(t, "proposal", latest.Kind)
	require.Len(t, latest.Items, 1)
	assert.Equal(t, "Oak table", latest.Items[0].ProductName)
	assert.Equal(t, 104.71, latest.Totals.Total)
}

func TestGetLatestVersionNotFound(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta(`ORDER BY version DESC`)).
		WithArgs("ord_1", "ven_2").
		WillReturnRows(versionRows(t))

	_, err := s.GetLatestVersion(context.Background(), "ord_1", "ven_2")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestInsertVersionMapsUniqueViolation(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO versions`)).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "idx_versions_sequence"})

	err := s.InsertVersion(context.Background(), Version{
		ID: "ver_x", OrderID: "ord_1", Kind: "proposal", Number: 2,
	})
	assert.ErrorIs(t, err, ErrVersionConflict)
}

func TestInsertVersionOtherErrorsPassThrough(t *testing.T) {
	s, mock := newMockStore(t)

	boom := errors.New("connection reset")
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO versions`)).
		WillReturnError(boom)

	err := s.InsertVersion(context.Background(), Version{ID: "ver_x", OrderID: "ord_1", Number: 1})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrVersionConflict)
	assert.ErrorIs(t, err, boom)
}

func TestUpdateVersionMissingRow(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE versions`)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := s.UpdateVersion(context.Background(), Version{OrderID: "ord_1", Number: 9})
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestUpdateOrderItemPONumber(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec(regexp.QuoteMeta(`jsonb_set(options, '{poNumber}'`)).
		WithArgs("item_1", "PO-2024-001").
		WillReturnResult(sqlmock.NewResult(0, 1))

	changed, err := s.UpdateOrderItemPONumber(context.Background(), "item_1", "PO-2024-001")
	require.NoError(t, err)
	assert.True(t, changed)
}

func TestUpdateOrderItemPONumberIdempotent(t *testing.T) {
	s, mock := newMockStore(t)

	// Guard clause in the WHERE skips rows that already carry the number.
	mock.ExpectExec(regexp.QuoteMeta(`jsonb_set(options, '{poNumber}'`)).
		WithArgs("item_1", "PO-2024-001").
		WillReturnResult(sqlmock.NewResult(0, 0))

	changed, err := s.UpdateOrderItemPONumber(context.Background(), "item_1", "PO-2024-001")
	require.NoError(t, err)
	assert.False(t, changed)
}

func TestReplaceOrderItemsRunsInTransaction(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM order_items WHERE order_id=$1`)).
		WithArgs("ord_1").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO order_items`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE orders SET updated_at=NOW()`)).
		WithArgs("ord_1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := s.ReplaceOrderItems(context.Background(), "ord_1", []OrderItem{{
		ID: "item_1", ProductID: "prod_1", ProductName: "Walnut chair",
		Quantity: 2, UnitPrice: 50, FinalPrice: 100,
	}})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReplaceOrderItemsRollsBackOnInsertFailure(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM order_items`)).
		WithArgs("ord_1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO order_items`)).
		WillReturnError(errors.New("insert failed"))
	mock.ExpectRollback()

	err := s.ReplaceOrderItems(context.Background(), "ord_1", []OrderItem{{ID: "item_1"}})
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCompleteJourneyStepAlreadyDone(t *testing.T) {
	s, mock := newMockStore(t)

	done := time.Now().Add(-time.Hour)
	stepCols := []string{"order_id", "step_no", "phase", "title", "milestone", "completed_at", "completed_by"}

	mock.ExpectQuery(regexp.QuoteMeta(`UPDATE journey_steps SET completed_at=NOW()`)).
		WithArgs("ord_1", 3, "usr_2").
		WillReturnRows(sqlmock.NewRows(stepCols))
	mock.ExpectQuery(regexp.QuoteMeta(`FROM journey_steps WHERE order_id=$1 AND step_no=$2`)).
		WithArgs("ord_1", 3).
		WillReturnRows(sqlmock.NewRows(stepCols).
			AddRow("ord_1", 3, "design", "Concept approved", true, done, "usr_1"))

	step, changed, err := s.CompleteJourneyStep(context.Background(), "ord_1", 3, "usr_2")
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, "usr_1", step.CompletedBy)
	require.NotNil(t, step.CompletedAt)
	assert.WithinDuration(t, done, *step.CompletedAt, time.Second)
}

func TestVerifyUserEmailExpiredToken(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE users SET is_email_verified=TRUE`)).
		WithArgs("tok_expired").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := s.VerifyUserEmail(context.Background(), "tok_expired")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}
