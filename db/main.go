package db

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

const maxRetries = 3

type Storage interface {
	OrderStorage
	PaymentStorage
	TicketStorage

	Migrate(ctx context.Context) error
}

var _ Storage = (*DB)(nil)

type db interface {
	NewTx(ctx context.Context) (Tx, error)
}

type conn interface {
	DriverName() string
	Rebind(string) string
	PrepareNamedContext(context.Context, string) (*sqlx.NamedStmt, error)
	GetContext(context.Context, interface{}, string, ...interface{}) error
	SelectContext(context.Context, interface{}, string, ...interface{}) error
	QueryRowxContext(context.Context, string, ...interface{}) *sqlx.Row
	QueryxContext(context.Context, string, ...interface{}) (*sqlx.Rows, error)
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
}

type Tx interface {
	conn

	Commit() error
	Rollback() error
}

type transactorImpl struct {
	*sqlx.DB
}

func (t *transactorImpl) NewTx(ctx context.Context) (Tx, error) {
	return t.BeginTxx(ctx, nil)
}

type DB struct {
	conn
	db

	dialect dialect
}

func New(db *sqlx.DB) (*DB, error) {
	var (
		dbWrapper *DB
		err       error
	)

	tries := maxRetries
	for tries >= 0 {
		dbWrapper, err = tryOpenConnection(db)
		if err == nil {
			break
		}

		if tries == 0 {
			return nil, err
		}

		log.WithFields(log.Fields{
			"retries_left": tries,
			"error":        err,
		}).Warnf("%s: trying to connect to create connection", db.DriverName())

		tries = tries - 1
		time.Sleep(1 * time.Second)
	}

	return dbWrapper, nil
}

func tryOpenConnection(db *sqlx.DB) (*DB, error) {
	err := db.Ping()
	if err != nil {
		return nil, errors.Wrap(err, "failed to ping db")
	}

	return &DB{
		conn:    db,
		db:      &transactorImpl{db},
		dialect: newDialect(db.DriverName()),
	}, nil
}

// inTx commits when fn succeeds and rolls back otherwise. Errors returned by
// fn come back untouched so callers can inspect them.
func (db *DB) inTx(ctx context.Context, fn func(tx Tx) error) (err error) {
	tx, err := db.NewTx(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to start transaction")
	}

	defer func() {
		if err != nil {
			tx.Rollback()
			return
		}

		err = errors.Wrap(tx.Commit(), "failed to commit transaction")
	}()

	err = fn(tx)
	return err
}

// insertTx runs a named INSERT and returns the generated id.
func (db *DB) insertTx(ctx context.Context, tx Tx, query string, args map[string]interface{}) (int, error) {
	if db.dialect.returningID {
		query += " RETURNING id"
	}

	stmt, err := tx.PrepareNamedContext(ctx, query)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	if db.dialect.returningID {
		var id int
		if err := stmt.QueryRowxContext(ctx, args).Scan(&id); err != nil {
			return 0, err
		}
		return id, nil
	}

	result, err := stmt.ExecContext(ctx, args)
	if err != nil {
		return 0, err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}

	if int(rowsAffected) != 1 {
		return 0, errors.Errorf("expected %d and inserted %d", 1, rowsAffected)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, err
	}

	return int(id), nil
}

// execTx runs a named statement and returns the affected rows.
func execTx(ctx context.Context, c conn, query string, args map[string]interface{}) (int, error) {
	stmt, err := c.PrepareNamedContext(ctx, query)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	result, err := stmt.ExecContext(ctx, args)
	if err != nil {
		return 0, err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}

	return int(rowsAffected), nil
}
