package persistence

import (
	"context"
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/orderdesk/backend/internal/domain/inventory"
	"github.com/orderdesk/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// The sqlite tests cannot see row locks; these check the Postgres SQL directly.

func newMockDatabase(t *testing.T) (*Database, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: conn, DriverName: "postgres"}), &gorm.Config{
		SkipDefaultTransaction: true,
		TranslateError:         true,
	})
	require.NoError(t, err)
	return &Database{DB: db}, mock, conn
}

func TestGormInventoryRepository_FindByProductIDsForUpdate_SQL(t *testing.T) {
	db, mock, mockDB := newMockDatabase(t)
	defer mockDB.Close()

	a, b := uuid.New(), uuid.New()
	mock.ExpectQuery(`SELECT \* FROM "inventories" WHERE product_id IN \(\$1,\$2\) ORDER BY product_id ASC FOR UPDATE`).
		WithArgs(a.String(), b.String()).
		WillReturnRows(sqlmock.NewRows([]string{"id", "product_id", "quantity_in_base_uom", "version"}).
			AddRow(uuid.New().String(), a.String(), "10", 1))

	rows, err := NewGormInventoryRepository(db.DB).FindByProductIDsForUpdate(context.Background(), []uuid.UUID{a, b})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.True(t, rows[0].QuantityInBaseUOM.Equal(decimal.NewFromInt(10)))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormOrderRepository_FindByIDForUpdate_SQL(t *testing.T) {
	db, mock, mockDB := newMockDatabase(t)
	defer mockDB.Close()

	id := uuid.New()
	mock.ExpectQuery(`SELECT \* FROM "orders" WHERE id = \$1 ORDER BY "orders"."id" LIMIT \$2 FOR UPDATE`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "order_number", "status", "version"}).
			AddRow(id.String(), "ORD-2026-00001", "PENDING", 1))
	mock.ExpectQuery(`SELECT \* FROM "order_items" WHERE "order_items"."order_id" = \$1 ORDER BY created_at ASC,id ASC`).
		WithArgs(id.String()).
		WillReturnRows(sqlmock.NewRows([]string{"id", "order_id"}))

	order, err := NewGormOrderRepository(db.DB).FindByIDForUpdate(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "ORD-2026-00001", order.OrderNumber)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormInventoryRepository_SaveWithLock_SQL(t *testing.T) {
	inv, err := inventory.NewInventory(uuid.New(), uuid.New())
	require.NoError(t, err)
	_, err = inv.Adjust(decimal.NewFromInt(5), inventory.MovementRef{ActorID: uuid.New()})
	require.NoError(t, err)

	t.Run("matches the previous version", func(t *testing.T) {
		db, mock, mockDB := newMockDatabase(t)
		defer mockDB.Close()

		mock.ExpectExec(`UPDATE "inventories" SET .* WHERE id = \$\d+ AND version = \$\d+`).
			WillReturnResult(sqlmock.NewResult(0, 1))

		assert.NoError(t, NewGormInventoryRepository(db.DB).SaveWithLock(context.Background(), inv))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("no row updated is a conflict", func(t *testing.T) {
		db, mock, mockDB := newMockDatabase(t)
		defer mockDB.Close()

		mock.ExpectExec(`UPDATE "inventories" SET`).WillReturnResult(sqlmock.NewResult(0, 0))

		err := NewGormInventoryRepository(db.DB).SaveWithLock(context.Background(), inv)
		assert.ErrorIs(t, err, shared.ErrConcurrencyConflict)
	})

	t.Run("deadlock is a conflict", func(t *testing.T) {
		db, mock, mockDB := newMockDatabase(t)
		defer mockDB.Close()

		mock.ExpectExec(`UPDATE "inventories" SET`).WillReturnError(&pgconn.PgError{Code: "40P01"})

		err := NewGormInventoryRepository(db.DB).SaveWithLock(context.Background(), inv)
		assert.ErrorIs(t, err, shared.ErrConcurrencyConflict)
		assert.True(t, shared.IsRetryable(err))
	})
}

func TestTranslateError(t *testing.T) {
	tests := []struct {
		name string
		in   error
		want error
	}{
		{"nil", nil, nil},
		{"domain error passes through", shared.ErrInsufficientStock, shared.ErrInsufficientStock},
		{"serialization failure", &pgconn.PgError{Code: "40001"}, shared.ErrConcurrencyConflict},
		{"lock not available", &pgconn.PgError{Code: "55P03"}, shared.ErrConcurrencyConflict},
		{"other postgres error", &pgconn.PgError{Code: "23503"}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := translateError(tt.in)
			switch {
			case tt.in == nil:
				assert.NoError(t, got)
			case tt.want == nil:
				assert.Equal(t, tt.in, got)
			default:
				assert.ErrorIs(t, got, tt.want)
			}
		})
	}
}
