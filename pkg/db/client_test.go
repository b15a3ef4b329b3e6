package db

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/angelmondragon/storefront-orders/pkg/config"
	"github.com/angelmondragon/storefront-orders/pkg/logger"
)

type testModel struct {
	ID   int
	Name string
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{
		SkipDefaultTransaction: true,
	})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := conn.AutoMigrate(&testModel{}); err != nil {
		t.Fatalf("failed to migrate sqlite: %v", err)
	}
	return conn
}

func TestWithTx_CommitsAndRollbacks(t *testing.T) {
	db := newTestDB(t)
	client := Wrap(db)

	ctx := context.Background()
	if err := client.WithTx(ctx, func(tx *gorm.DB) error {
		return tx.Create(&testModel{Name: "committed"}).Error
	}); err != nil {
		t.Fatalf("WithTx commit failed: %v", err)
	}

	var count int64
	if err := db.Model(&testModel{}).Count(&count).Error; err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 record, got %d", count)
	}

	err := client.WithTx(ctx, func(tx *gorm.DB) error {
		if err := tx.Create(&testModel{Name: "rolled"}).Error; err != nil {
			return err
		}
		return errors.New("boom")
	})
	if err == nil {
		t.Fatal("expected WithTx to return an error")
	}
	if err := db.Model(&testModel{}).Count(&count).Error; err != nil {
		t.Fatalf("count failed after rollback: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected rollback to leave 1 record, got %d", count)
	}
}

func TestPing(t *testing.T) {
	db := newTestDB(t)
	client := Wrap(db)
	if err := client.Ping(context.Background()); err != nil {
		t.Fatalf("unexpected ping error: %v", err)
	}
}

func newMockClient(t *testing.T) (*Client, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	conn, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger:                 gormlogger.Discard,
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)
	return Wrap(conn), mock
}

func TestWithTx_BeginFailureSkipsFn(t *testing.T) {
	client, mock := newMockClient(t)
	mock.ExpectBegin().WillReturnError(errors.New("connection refused"))

	called := false
	err := client.WithTx(context.Background(), func(tx *gorm.DB) error {
		called = true
		return nil
	})
	require.Error(t, err)
	assert.False(t, called, "fn must not run without a transaction")
	assert.Contains(t, err.Error(), "begin tx")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithTx_FnErrorRollsBack(t *testing.T) {
	client, mock := newMockClient(t)
	mock.ExpectBegin()
	mock.ExpectRollback()

	fnErr := errors.New("insufficient stock")
	err := client.WithTx(context.Background(), func(tx *gorm.DB) error {
		return fnErr
	})
	require.ErrorIs(t, err, fnErr)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithTx_RollbackFailureIsCombined(t *testing.T) {
	client, mock := newMockClient(t)
	mock.ExpectBegin()
	mock.ExpectRollback().WillReturnError(errors.New("broken pipe"))

	fnErr := errors.New("insert failed")
	err := client.WithTx(context.Background(), func(tx *gorm.DB) error {
		return fnErr
	})
	require.ErrorIs(t, err, fnErr)
	assert.Contains(t, err.Error(), "broken pipe")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithTx_CommitFailureSurfaces(t *testing.T) {
	client, mock := newMockClient(t)
	mock.ExpectBegin()
	mock.ExpectCommit().WillReturnError(errors.New("could not serialize access"))

	err := client.WithTx(context.Background(), func(tx *gorm.DB) error {
		return nil
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "commit tx")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithTx_PanicRollsBackAndRepanics(t *testing.T) {
	client, mock := newMockClient(t)
	mock.ExpectBegin()
	mock.ExpectRollback()

	assert.Panics(t, func() {
		_ = client.WithTx(context.Background(), func(tx *gorm.DB) error {
			panic("boom")
		})
	})
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestErrorClassifiers(t *testing.T) {
	stock := fmt.Errorf("debit: %w", &pgconn.PgError{Code: "23514", ConstraintName: "chk_products_stock"})
	assert.True(t, IsCheckViolation(stock, ""))
	assert.True(t, IsCheckViolation(stock, "chk_products_stock"))
	assert.False(t, IsCheckViolation(stock, "chk_orders_total"))
	assert.False(t, IsCheckViolation(&pgconn.PgError{Code: "23505", ConstraintName: "chk_products_stock"}, ""))
	assert.True(t, IsCheckViolation(errors.New("CHECK constraint failed: chk_order_lines_quantity"), "chk_order_lines_quantity"))
	assert.False(t, IsCheckViolation(errors.New("CHECK constraint failed: chk_order_lines_quantity"), "chk_products_stock"))
	assert.False(t, IsCheckViolation(errors.New("UNIQUE constraint failed: products.sku"), ""))
	assert.False(t, IsCheckViolation(nil, ""))

	assert.True(t, IsRetryable(&pgconn.PgError{Code: "40001"}))
	assert.True(t, IsRetryable(&pgconn.PgError{Code: "40P01"}))
	assert.False(t, IsRetryable(&pgconn.PgError{Code: "23505"}))
	assert.False(t, IsRetryable(errors.New("plain")))
}

func TestQueryLoggerReportsFailedStatementsWithoutParams(t *testing.T) {
	var buf bytes.Buffer
	logg := logger.New(logger.Options{ServiceName: "test", Output: &buf})

	conn, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{
		Logger: queryLogger(context.Background(), config.DBConfig{SlowQueryThreshold: time.Hour}, logg),
	})
	require.NoError(t, err)

	err = conn.Exec("SELECT * FROM missing_table WHERE email = ?", "buyer@example.com").Error
	require.Error(t, err)

	out := buf.String()
	assert.Contains(t, out, "db.query")
	assert.Contains(t, out, "missing_table")
	assert.NotContains(t, out, "buyer@example.com")
}

func TestQueryLoggerDiscardsWithoutLogger(t *testing.T) {
	assert.Equal(t, gormlogger.Discard, queryLogger(context.Background(), config.DBConfig{}, nil))
}
