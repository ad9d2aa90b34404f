package database

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewOpensSqliteFileAndCreatesParentDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "test.db")
	db, err := New(Config{Path: path, Profile: ProfileLedger, Name: "ledger"})
	require.NoError(t, err)
	defer db.Close()

	assert.True(t, filepath.IsAbs(db.Path()))
	assert.Equal(t, ProfileLedger, db.Profile())
	assert.Equal(t, "ledger", db.Name())

	_, err = db.Conn().ExecContext(context.Background(), `CREATE TABLE t (id INTEGER PRIMARY KEY)`)
	require.NoError(t, err)
}

func TestNewDefaultsToStandardProfile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	db, err := New(Config{Path: path, Name: "misc"})
	require.NoError(t, err)
	defer db.Close()
	assert.Equal(t, ProfileStandard, db.Profile())
}

func TestExecContextAndQueryContextRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	db, err := New(Config{Path: path, Profile: ProfileCache, Name: "cache"})
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()
	_, err = db.ExecContext(ctx, `CREATE TABLE kv (k TEXT PRIMARY KEY, v TEXT)`)
	require.NoError(t, err)
	_, err = db.ExecContext(ctx, `INSERT INTO kv (k, v) VALUES (?, ?)`, "a", "1")
	require.NoError(t, err)

	rows, err := db.QueryContext(ctx, `SELECT v FROM kv WHERE k = ?`, "a")
	require.NoError(t, err)
	defer rows.Close()

	require.True(t, rows.Next())
	var v string
	require.NoError(t, rows.Scan(&v))
	assert.Equal(t, "1", v)
}

func TestCloseReturnsNoError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	db, err := New(Config{Path: path, Name: "x"})
	require.NoError(t, err)
	require.NoError(t, db.Close())
}
