package db

import (
	"context"
	"embed"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
)

//go:embed schema/*.sql
var schemaFS embed.FS

// Migrate creates the tables the service needs when they are missing. The
// order and menu tables belong to the order management subsystem and are only
// created here for local setups and tests.
func (db *DB) Migrate(ctx context.Context) error {
	content, err := schemaFS.ReadFile(fmt.Sprintf("schema/%s.sql", db.dialect.name))
	if err != nil {
		return errors.Wrapf(err, "no schema for driver %s", db.dialect.name)
	}

	for _, statement := range strings.Split(string(content), ";") {
		statement = strings.TrimSpace(statement)
		if statement == "" {
			continue
		}

		if _, err := db.ExecContext(ctx, statement); err != nil {
			return errors.Wrapf(err, "failed applying schema statement %q", firstLine(statement))
		}
	}

	return nil
}

func firstLine(statement string) string {
	if i := strings.IndexByte(statement, '\n'); i >= 0 {
		return statement[:i]
	}
	return statement
}

// OpenSQLite opens a SQLite database file with a single connection, which
// serialises every transaction on it.
func OpenSQLite(path string) (*sqlx.DB, error) {
	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_txlock=immediate&_foreign_keys=on", path)
	conn, err := sqlx.Connect(driverSQLite, dsn)
	if err != nil {
		return nil, errors.Wrap(err, "failed opening sqlite database")
	}

	conn.SetMaxOpenConns(1)
	return conn, nil
}
