package common

import (
	"database/sql"
	"os"
	"path/filepath"
	"strings"

	"emperror.dev/errors"
	"github.com/sirupsen/logrus"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// OpenSQLite opens (and creates if needed) a feature database file.
// Every feature gets its own file, writes are serialized through a single connection
// which database/sql hands out and takes back on each call.
func OpenSQLite(path string) (*sql.DB, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, errors.WithStackIf(err)
		}
	}

	dsn := "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, errors.WithStackIf(err)
	}

	db.SetMaxOpenConns(1)

	if err = db.Ping(); err != nil {
		db.Close()
		return nil, errors.WrapIf(err, "ping")
	}

	return db, nil
}

// InitSchemas runs the create statements for a plugin
func InitSchemas(db *sql.DB, name string, schemas ...string) error {
	for i, v := range schemas {
		_, err := db.Exec(v)
		if err != nil {
			return errors.WrapIff(err, "failed initializing schema %s #%d", name, i)
		}
	}

	logrus.WithField("schema", name).Debug("Initialized database schema")
	return nil
}

// IsUniqueViolation returns true if err was caused by a UNIQUE or PRIMARY KEY constraint
func IsUniqueViolation(err error) bool {
	var sErr *sqlite.Error
	if !errors.As(err, &sErr) {
		return false
	}

	// extended result codes keep the primary code in the lower byte
	if sErr.Code()&0xff != sqlite3.SQLITE_CONSTRAINT {
		return false
	}

	msg := sErr.Error()
	return strings.Contains(msg, "UNIQUE") || strings.Contains(msg, "PRIMARY KEY")
}
