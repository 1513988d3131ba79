package db

import (
	"context"
	"database/sql"

	"bitbucket.org/tastebringers/backend/models"
	"github.com/pkg/errors"
)

// OrderStorage reads orders owned by the order management subsystem. The
// ledger never writes to these tables.
type OrderStorage interface {
	GetOrderByID(ctx context.Context, orderID int) (*models.Order, error)
}

const (
	getOrderByID = `
	SELECT
		orders.id,
		orders.total,
		orders.created
	FROM
		orders
	WHERE
		orders.id = :order_id
	`

	getOrderItemsByOrderID = `
	SELECT
		order_item.quantity,
		order_item.subtotal,
		menu.id,
		menu.name,
		menu.price
	FROM
		order_item
	INNER JOIN
		menu ON (menu.id = order_item.menu_id)
	WHERE
		order_item.order_id = :order_id
	ORDER BY
		order_item.id ASC
	`
)

func (db *DB) GetOrderByID(ctx context.Context, orderID int) (*models.Order, error) {
	return db.getOrderByIDTx(ctx, db.conn, orderID, "")
}

func (db *DB) getOrderByIDTx(ctx context.Context, c conn, orderID int, lockClause string) (*models.Order, error) {
	stmt, err := c.PrepareNamedContext(ctx, getOrderByID+lockClause)
	if err != nil {
		return nil, err
	}
	defer stmt.Close()

	args := map[string]interface{}{
		"order_id": orderID,
	}

	var order models.Order

	row := stmt.QueryRowxContext(ctx, args)
	if err := row.Scan(
		&order.ID,
		&order.Total,
		&order.Created,
	); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}

		return nil, errors.Wrapf(err, "failed getting order %d", orderID)
	}

	return &order, nil
}

func (db *DB) getOrderItemsTx(ctx context.Context, c conn, orderID int) ([]models.OrderItem, error) {
	stmt, err := c.PrepareNamedContext(ctx, getOrderItemsByOrderID)
	if err != nil {
		return nil, err
	}
	defer stmt.Close()

	args := map[string]interface{}{
		"order_id": orderID,
	}

	rows, err := stmt.QueryxContext(ctx, args)
	if err != nil {
		return nil, errors.Wrapf(err, "failed getting items of order %d", orderID)
	}
	defer rows.Close()

	var items []models.OrderItem
	for rows.Next() {
		var item models.OrderItem
		var menu models.MenuItem
		if err := rows.Scan(
			&item.Quantity,
			&item.Subtotal,
			&menu.ID,
			&menu.Name,
			&menu.Price,
		); err != nil {
			return nil, err
		}

		item.Menu = &menu
		items = append(items, item)
	}

	return items, rows.Err()
}
