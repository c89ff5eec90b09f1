// Package storagetest provides a throwaway SQLite-backed gateway for tests.
package storagetest

import (
	"context"
	"path/filepath"
	"testing"

	"busticket/internal/storage"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// New opens a migrated gateway over a fresh database file in t.TempDir().
func New(t testing.TB) *storage.Gateway {
	t.Helper()

	dsn := "sqlite://" + filepath.Join(t.TempDir(), "busticket.db") +
		"?_pragma=busy_timeout(5000)"
	gw, err := storage.Open(dsn, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = gw.Close() })

	require.NoError(t, gw.Migrate(context.Background()))
	return gw
}

// Exec runs fn inside a committed session. Handy for seeding and asserting
// on rows directly.
func Exec(t testing.TB, gw *storage.Gateway, fn func(db *gorm.DB) error) {
	t.Helper()

	sess, err := gw.Acquire(context.Background())
	require.NoError(t, err)
	defer sess.Close()

	require.NoError(t, fn(sess.DB()))
	require.NoError(t, sess.Commit())
}

// Count returns the number of rows of model matching the optional condition.
func Count(t testing.TB, gw *storage.Gateway, model interface{}, query ...interface{}) int64 {
	t.Helper()

	var n int64
	Exec(t, gw, func(db *gorm.DB) error {
		q := db.Model(model)
		if len(query) > 0 {
			q = q.Where(query[0], query[1:]...)
		}
		return q.Count(&n).Error
	})
	return n
}
