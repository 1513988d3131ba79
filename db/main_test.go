package db

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T) (*DB, *sqlx.DB) {
	t.Helper()

	conn, err := OpenSQLite(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	store, err := New(conn)
	require.NoError(t, err)
	require.NoError(t, store.Migrate(context.Background()))

	return store, conn
}

func seedOrder(t *testing.T, conn *sqlx.DB, total string) int {
	t.Helper()

	result, err := conn.Exec(`INSERT INTO orders (total) VALUES (?)`, total)
	require.NoError(t, err)

	id, err := result.LastInsertId()
	require.NoError(t, err)

	return int(id)
}

func seedOrderItem(t *testing.T, conn *sqlx.DB, orderID int, name string, price string, quantity int, subtotal string) {
	t.Helper()

	result, err := conn.Exec(`INSERT INTO menu (name, price) VALUES (?, ?)`, name, price)
	require.NoError(t, err)

	menuID, err := result.LastInsertId()
	require.NoError(t, err)

	_, err = conn.Exec(
		`INSERT INTO order_item (order_id, menu_id, quantity, subtotal) VALUES (?, ?, ?, ?)`,
		orderID, menuID, quantity, subtotal,
	)
	require.NoError(t, err)
}

func TestMigrateIsIdempotent(t *testing.T) {
	store, conn := newTestDB(t)

	require.NoError(t, store.Migrate(context.Background()))

	var methods int
	require.NoError(t, conn.Get(&methods, `SELECT COUNT(id) FROM payment_method`))
	require.Equal(t, 2, methods)
}

func TestGetOrderByID(t *testing.T) {
	store, conn := newTestDB(t)
	ctx := context.Background()
	orderID := seedOrder(t, conn, "99.9")

	order, err := store.GetOrderByID(ctx, orderID)
	require.NoError(t, err)
	require.NotNil(t, order)
	require.Equal(t, orderID, order.ID)
	require.Equal(t, "99.9", order.Total.String())
	require.False(t, order.Created.IsZero())

	order, err = store.GetOrderByID(ctx, orderID+1)
	require.NoError(t, err)
	require.Nil(t, order)
}
