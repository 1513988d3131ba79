package db

import (
	"context"
	"database/sql"
	"time"

	"bitbucket.org/tastebringers/backend/models"
	"github.com/pkg/errors"
)

type TicketStorage interface {
	GetTicketByID(ctx context.Context, ticketID int) (*models.TicketDetail, error)
	GetTickets(ctx context.Context) ([]models.SettlementTicket, error)
	DeleteTicket(ctx context.Context, ticketID int) (bool, error)
}

const (
	ticketColumns = `
		ticket.id,
		ticket.code,
		ticket.order_id,
		ticket.total,
		ticket.automatic,
		ticket.created,
		ticket.updated,
		payment_method.id,
		payment_method.name
	`

	getTicketByID = `
	SELECT` + ticketColumns + `
	FROM
		ticket
	INNER JOIN
		payment_method ON (payment_method.id = ticket.method_id)
	WHERE
		ticket.id = :ticket_id
	`

	getTickets = `
	SELECT` + ticketColumns + `
	FROM
		ticket
	INNER JOIN
		payment_method ON (payment_method.id = ticket.method_id)
	ORDER BY
		ticket.id ASC
	`

	countAutomaticTickets = `
	SELECT
		COUNT(ticket.id)
	FROM
		ticket
	WHERE
		ticket.auto_order_id = :order_id
	`

	insertTicket = `
	INSERT INTO
		ticket (code, order_id, method_id, total, automatic, auto_order_id, created, updated)
	VALUES
		(:code, :order_id, :method_id, :total, :automatic, :auto_order_id, :created, :updated)
	`

	updateTicket = `
	UPDATE
		ticket
	SET
		order_id = :order_id,
		method_id = :method_id,
		total = :total,
		auto_order_id = CASE WHEN auto_order_id = :order_id THEN auto_order_id ELSE NULL END,
		updated = :updated
	WHERE
		id = :ticket_id
	`

	deleteTicket = `
	DELETE FROM
		ticket
	WHERE
		id = :ticket_id
	`
)

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanTicket(row rowScanner) (*models.SettlementTicket, error) {
	var ticket models.SettlementTicket
	var method models.PaymentMethod
	if err := row.Scan(
		&ticket.ID,
		&ticket.Code,
		&ticket.OrderID,
		&ticket.Total,
		&ticket.Automatic,
		&ticket.Created,
		&ticket.Updated,
		&method.ID,
		&method.Name,
	); err != nil {
		return nil, err
	}

	if known := GetPaymentMethodByID(method.ID); known != nil {
		method.EnforcesCeiling = known.EnforcesCeiling
	}
	ticket.Method = &method

	return &ticket, nil
}

// GetTicketByID returns the ticket joined with its order, the order line
// items and the order payments. It returns nil when the ticket does not exist.
func (db *DB) GetTicketByID(ctx context.Context, ticketID int) (*models.TicketDetail, error) {
	var detail *models.TicketDetail

	err := db.inTx(ctx, func(tx Tx) error {
		ticket, err := db.getTicketByIDTx(ctx, tx, ticketID)
		if err != nil || ticket == nil {
			return err
		}

		detail = &models.TicketDetail{SettlementTicket: *ticket}

		order, err := db.getOrderByIDTx(ctx, tx, ticket.OrderID, "")
		if err != nil || order == nil {
			return err
		}

		order.Items, err = db.getOrderItemsTx(ctx, tx, order.ID)
		if err != nil {
			return err
		}

		order.Payments, err = db.getPaymentsByOrderIDTx(ctx, tx, order.ID)
		if err != nil {
			return err
		}

		detail.Order = order
		return nil
	})
	if err != nil {
		return nil, err
	}

	return detail, nil
}

func (db *DB) getTicketByIDTx(ctx context.Context, c conn, ticketID int) (*models.SettlementTicket, error) {
	stmt, err := c.PrepareNamedContext(ctx, getTicketByID)
	if err != nil {
		return nil, err
	}
	defer stmt.Close()

	args := map[string]interface{}{
		"ticket_id": ticketID,
	}

	ticket, err := scanTicket(stmt.QueryRowxContext(ctx, args))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}

		return nil, errors.Wrapf(err, "failed getting ticket %d", ticketID)
	}

	return ticket, nil
}

func (db *DB) GetTickets(ctx context.Context) ([]models.SettlementTicket, error) {
	rows, err := db.QueryxContext(ctx, getTickets)
	if err != nil {
		return nil, errors.Wrap(err, "failed getting tickets")
	}
	defer rows.Close()

	tickets := []models.SettlementTicket{}
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}

		tickets = append(tickets, *ticket)
	}

	return tickets, rows.Err()
}

func (db *DB) DeleteTicket(ctx context.Context, ticketID int) (bool, error) {
	var deleted bool

	err := db.inTx(ctx, func(tx Tx) error {
		args := map[string]interface{}{
			"ticket_id": ticketID,
		}

		rowsAffected, err := execTx(ctx, tx, deleteTicket, args)
		if err != nil {
			return errors.Wrapf(err, "failed deleting ticket %d", ticketID)
		}

		if rowsAffected > 1 {
			return errors.Errorf("expected %d and deleted %d", 1, rowsAffected)
		}

		deleted = rowsAffected == 1
		return nil
	})
	if err != nil {
		return false, err
	}

	return deleted, nil
}

func (db *DB) hasAutomaticTicketTx(ctx context.Context, tx Tx, orderID int) (bool, error) {
	stmt, err := tx.PrepareNamedContext(ctx, countAutomaticTickets)
	if err != nil {
		return false, err
	}
	defer stmt.Close()

	args := map[string]interface{}{
		"order_id": orderID,
	}

	var total int
	if err := stmt.QueryRowxContext(ctx, args).Scan(&total); err != nil {
		return false, errors.Wrapf(err, "failed counting automatic tickets of order %d", orderID)
	}

	return total > 0, nil
}

// insertTicketTx stores a new ticket and fills its id, code and timestamps.
// Automatic tickets also fill auto_order_id, which is unique, so the database
// itself refuses a second automatic ticket for the same order.
func (db *DB) insertTicketTx(ctx context.Context, tx Tx, ticket *models.SettlementTicket) error {
	if ticket.Method == nil {
		return errors.New("ticket without method")
	}

	if ticket.Code == "" {
		ticket.Code = GenerateTicketCode()
	}

	now := time.Now().UTC()
	ticket.Created = now
	ticket.Updated = now

	var autoOrderID interface{}
	if ticket.Automatic {
		autoOrderID = ticket.OrderID
	}

	args := map[string]interface{}{
		"code":          ticket.Code,
		"order_id":      ticket.OrderID,
		"method_id":     ticket.Method.ID,
		"total":         ticket.Total,
		"automatic":     ticket.Automatic,
		"auto_order_id": autoOrderID,
		"created":       ticket.Created,
		"updated":       ticket.Updated,
	}

	id, err := db.insertTx(ctx, tx, insertTicket, args)
	if err != nil {
		return errors.Wrapf(err, "failed inserting ticket for order %d", ticket.OrderID)
	}

	ticket.ID = id
	return nil
}

// updateTicketTx overwrites order, method and total of ticket.ID and reloads
// the stored row into ticket. It reports false when the ticket does not exist.
// Moving an automatic ticket to another order frees auto_order_id, so the
// order it leaves can be issued a new one.
func (db *DB) updateTicketTx(ctx context.Context, tx Tx, ticket *models.SettlementTicket) (bool, error) {
	if ticket.Method == nil {
		return false, errors.New("ticket without method")
	}

	args := map[string]interface{}{
		"ticket_id": ticket.ID,
		"order_id":  ticket.OrderID,
		"method_id": ticket.Method.ID,
		"total":     ticket.Total,
		"updated":   time.Now().UTC(),
	}

	rowsAffected, err := execTx(ctx, tx, updateTicket, args)
	if err != nil {
		return false, errors.Wrapf(err, "failed updating ticket %d", ticket.ID)
	}

	if rowsAffected == 0 {
		return false, nil
	}

	stored, err := db.getTicketByIDTx(ctx, tx, ticket.ID)
	if err != nil {
		return false, err
	}

	if stored == nil {
		return false, nil
	}

	*ticket = *stored
	return true, nil
}
