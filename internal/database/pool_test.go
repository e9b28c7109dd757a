package database

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/BaSui01/mediagen/config"
)

// =============================================================================
// 🧪 PoolManager 测试
// =============================================================================

func setupTestDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock, *gorm.DB) {
	// 创建 mock DB
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	// 创建 GORM DB
	dialector := postgres.New(postgres.Config{
		Conn: mockDB,
	})

	gormDB, err := gorm.Open(dialector, &gorm.Config{})
	require.NoError(t, err)

	return mockDB, mock, gormDB
}

type recorderStub struct {
	mu      sync.Mutex
	queries []string
	conns   int
}

func (r *recorderStub) RecordDBConnections(string, int, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conns++
}

func (r *recorderStub) RecordDBQuery(database, operation string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.queries = append(r.queries, database+"/"+operation)
}

func TestNewPoolManager(t *testing.T) {
	mockDB, _, gormDB := setupTestDB(t)
	defer mockDB.Close()

	manager, err := NewPoolManager(gormDB, PoolConfig{MaxOpenConns: 10, MaxIdleConns: 5}, nil)
	require.NoError(t, err)

	assert.Same(t, gormDB, manager.DB())
	assert.Equal(t, "postgres", manager.Name())
	assert.Equal(t, 10, manager.GetStats().MaxOpenConnections)
}

func TestNewPoolManager_NilDB(t *testing.T) {
	_, err := NewPoolManager(nil, DefaultPoolConfig(), zap.NewNop())
	assert.Error(t, err)
}

func TestPoolManager_WithTransaction(t *testing.T) {
	mockDB, mock, gormDB := setupTestDB(t)
	defer mockDB.Close()

	manager, err := NewPoolManager(gormDB, DefaultPoolConfig(), zap.NewNop())
	require.NoError(t, err)

	mock.ExpectBegin()
	mock.ExpectCommit()

	err = manager.WithTransaction(context.Background(), func(tx *gorm.DB) error {
		return nil
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPoolManager_WithTransactionRollback(t *testing.T) {
	mockDB, mock, gormDB := setupTestDB(t)
	defer mockDB.Close()

	manager, err := NewPoolManager(gormDB, DefaultPoolConfig(), zap.NewNop())
	require.NoError(t, err)

	mock.ExpectBegin()
	mock.ExpectRollback()

	boom := errors.New("boom")
	err = manager.WithTransaction(context.Background(), func(tx *gorm.DB) error {
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPoolManager_WithTransactionRetry(t *testing.T) {
	mockDB, mock, gormDB := setupTestDB(t)
	defer mockDB.Close()

	manager, err := NewPoolManager(gormDB, DefaultPoolConfig(), zap.NewNop())
	require.NoError(t, err)

	mock.ExpectBegin()
	mock.ExpectRollback()
	mock.ExpectBegin()
	mock.ExpectCommit()

	attempts := 0
	err = manager.WithTransactionRetry(context.Background(), 3, func(tx *gorm.DB) error {
		attempts++
		if attempts == 1 {
			return errors.New("ERROR: deadlock detected (SQLSTATE 40P01)")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, attempts)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPoolManager_WithTransactionRetry_NonRetryable(t *testing.T) {
	mockDB, mock, gormDB := setupTestDB(t)
	defer mockDB.Close()

	manager, err := NewPoolManager(gormDB, DefaultPoolConfig(), zap.NewNop())
	require.NoError(t, err)

	mock.ExpectBegin()
	mock.ExpectRollback()

	attempts := 0
	err = manager.WithTransactionRetry(context.Background(), 3, func(tx *gorm.DB) error {
		attempts++
		return errors.New("unique constraint violated")
	})
	require.Error(t, err)
	assert.Equal(t, 1, attempts)
}

func TestPoolManager_Close(t *testing.T) {
	_, mock, gormDB := setupTestDB(t)

	manager, err := NewPoolManager(gormDB, DefaultPoolConfig(), zap.NewNop())
	require.NoError(t, err)

	mock.ExpectClose()
	require.NoError(t, manager.Close())
	require.NoError(t, manager.Close(), "second close is a no-op")
	assert.NoError(t, mock.ExpectationsWereMet())

	assert.Error(t, manager.Ping(context.Background()))
	assert.Error(t, manager.WithTransaction(context.Background(), func(*gorm.DB) error { return nil }))
}

func TestOpen_SQLite(t *testing.T) {
	manager, err := Open(config.DatabaseConfig{Driver: "sqlite", Name: ":memory:"}, zap.NewNop())
	require.NoError(t, err)
	defer manager.Close()

	assert.Equal(t, "sqlite", manager.Name())
	require.NoError(t, manager.Ping(context.Background()))
	assert.Equal(t, 1, manager.GetStats().MaxOpenConnections)

	rec := &recorderStub{}
	manager.SetRecorder(rec)
	err = manager.Observe("select", func() error {
		return manager.DB().Exec("SELECT 1").Error
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"sqlite/select"}, rec.queries)
	assert.Equal(t, 1, rec.conns)
}

func TestDialector(t *testing.T) {
	tests := []struct {
		driver  string
		name    string
		wantErr bool
	}{
		{driver: "sqlite", name: "sqlite"},
		{driver: "", name: "sqlite"},
		{driver: "postgres", name: "postgres"},
		{driver: "MySQL", name: "mysql"},
		{driver: "mongo", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.driver, func(t *testing.T) {
			d, err := Dialector(config.DatabaseConfig{Driver: tt.driver, Host: "localhost", Port: 5432, Name: "x"})
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.name, d.Name())
		})
	}
}

func TestPoolConfigFrom(t *testing.T) {
	assert.Equal(t, DefaultPoolConfig(), PoolConfigFrom(config.DatabaseConfig{}))

	pc := PoolConfigFrom(config.DatabaseConfig{MaxOpenConns: 20, MaxIdleConns: 3, ConnMaxLifetime: time.Minute})
	assert.Equal(t, PoolConfig{MaxOpenConns: 20, MaxIdleConns: 3, ConnMaxLifetime: time.Minute}, pc)
}

func TestIsRetryableError(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{errors.New("deadlock detected"), true},
		{errors.New("could not serialize access due to concurrent update (SQLSTATE 40001)"), true},
		{errors.New("database is locked (5) (SQLITE_BUSY)"), true},
		{errors.New("Error 1205: Lock wait timeout exceeded"), true},
		{errors.New("driver: bad connection"), true},
		{errors.New("syntax error"), false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, isRetryableError(tt.err), "%v", tt.err)
	}
}
