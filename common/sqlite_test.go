package common

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenSQLiteCreatesDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "test.db")

	db, err := OpenSQLite(path)
	require.NoError(t, err)
	defer db.Close()

	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestIsUniqueViolation(t *testing.T) {
	db, err := OpenSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, InitSchemas(db, "test", `CREATE TABLE things (id INTEGER PRIMARY KEY, name TEXT NOT NULL UNIQUE)`))

	_, err = db.Exec(`INSERT INTO things (id, name) VALUES (1, 'a')`)
	require.NoError(t, err)

	_, err = db.Exec(`INSERT INTO things (id, name) VALUES (2, 'a')`)
	assert.True(t, IsUniqueViolation(err))

	_, err = db.Exec(`INSERT INTO things (id, name) VALUES (1, 'b')`)
	assert.True(t, IsUniqueViolation(err))

	_, err = db.Exec(`INSERT INTO things (id) VALUES (3)`)
	require.Error(t, err)
	assert.False(t, IsUniqueViolation(err), "not null is a different constraint")

	_, err = db.Exec(`INSERT INTO nope (id) VALUES (3)`)
	require.Error(t, err)
	assert.False(t, IsUniqueViolation(err))

	assert.False(t, IsUniqueViolation(nil))
}
