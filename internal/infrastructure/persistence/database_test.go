package persistence

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/orderdesk/backend/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func mockDialector(t *testing.T) (gorm.Dialector, sqlmock.Sqlmock) {
	t.Helper()
	conn, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	return postgres.New(postgres.Config{Conn: conn, DriverName: "postgres"}), mock
}

func poolConfig() *config.DatabaseConfig {
	return &config.DatabaseConfig{MaxOpenConns: 7, MaxIdleConns: 3, ConnMaxLifetime: 5, ConnMaxIdleTime: 1}
}

func TestOpen(t *testing.T) {
	t.Run("applies pool limits and pings", func(t *testing.T) {
		dialector, mock := mockDialector(t)
		mock.ExpectPing()

		db, err := Open(dialector, poolConfig(), logger.Discard)
		require.NoError(t, err)

		sqlDB, err := db.DB.DB()
		require.NoError(t, err)
		assert.Equal(t, 7, sqlDB.Stats().MaxOpenConnections)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("fails when the server does not answer", func(t *testing.T) {
		dialector, mock := mockDialector(t)
		mock.ExpectPing().WillReturnError(errors.New("connection refused"))

		db, err := Open(dialector, poolConfig(), logger.Discard)
		assert.Nil(t, db)
		assert.ErrorContains(t, err, "failed to ping database: connection refused")
	})
}

func TestGormConfig(t *testing.T) {
	cfg := GormConfig(logger.Discard)

	assert.True(t, cfg.TranslateError, "repositories rely on gorm.ErrDuplicatedKey")
	assert.True(t, cfg.SkipDefaultTransaction)
	assert.True(t, cfg.PrepareStmt)
	assert.True(t, cfg.DisableAutomaticPing, "Open pings exactly once")
	assert.Equal(t, logger.Discard, cfg.Logger)
}

func TestDatabase_PingAndClose(t *testing.T) {
	dialector, mock := mockDialector(t)
	mock.ExpectPing()
	db, err := Open(dialector, poolConfig(), logger.Discard)
	require.NoError(t, err)

	mock.ExpectPing()
	assert.NoError(t, db.Ping(context.Background()))

	mock.ExpectPing().WillReturnError(errors.New("gone"))
	assert.ErrorContains(t, db.Ping(context.Background()), "failed to ping database")

	mock.ExpectClose()
	assert.NoError(t, db.Close())
	assert.NoError(t, mock.ExpectationsWereMet())
}
