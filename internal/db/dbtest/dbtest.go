// Package dbtest opens throwaway sqlite databases for tests.
package dbtest

import (
	"path/filepath"
	"testing"

	"supermock/internal/config"
	"supermock/internal/db"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// New 返回已迁移的临时 sqlite 数据库，测试结束自动关闭
func New(t testing.TB) *gorm.DB {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "test.db") + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	conn, err := db.Open(config.DatabaseConfig{
		Driver:         "sqlite",
		DSN:            dsn,
		LogLevel:       "silent",
		ConnectRetries: 1,
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(conn))

	t.Cleanup(func() { _ = db.Close(conn) })
	return conn
}
