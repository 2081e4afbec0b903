package storage

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// NewTestStorage opens an in-memory SQLite database with migrations applied.
func NewTestStorage(t *testing.T) *Storage {
	t.Helper()

	s, err := New(":memory:")
	require.NoError(t, err, "failed to open test database")

	t.Cleanup(func() {
		require.NoError(t, s.Close())
	})
	return s
}
