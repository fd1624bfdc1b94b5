package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenCreatesSchema(t *testing.T) {
	st, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	defer func() { _ = st.Close() }()

	for _, table := range []string{"budget_period", "schedule_state", "interaction_ledger"} {
		missing, err := tableMissing(st.DB(), table)
		require.NoError(t, err)
		assert.False(t, missing, "table %s should exist after migration", table)
	}
}

func TestMigrationIdempotent(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")

	st1, err := Open(dbPath)
	require.NoError(t, err)
	require.NoError(t, st1.Close())

	st2, err := Open(dbPath)
	require.NoError(t, err)
	require.NoError(t, st2.Close())
}

func TestFreshLedgerDetection(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")

	st, err := Open(dbPath)
	require.NoError(t, err)
	assert.True(t, st.FreshLedger(), "first open creates the ledger table")
	require.NoError(t, st.Close())

	st, err = Open(dbPath)
	require.NoError(t, err)
	defer func() { _ = st.Close() }()
	assert.False(t, st.FreshLedger(), "second open finds the existing table")
}
