package db

import (
	"context"

	"bitbucket.org/tastebringers/backend/models"
)

// OrderTx is a transaction holding the lock of a single order. Everything that
// reads the payment sum and then writes a payment or a ticket for that order
// goes through it.
type OrderTx interface {
	// Order is nil when the order does not exist.
	Order() *models.Order
	GetPayments() ([]models.Payment, error)
	InsertPayment(payment *models.Payment) error
	HasAutomaticTicket() (bool, error)
	InsertTicket(ticket *models.SettlementTicket) error
	UpdateTicket(ticket *models.SettlementTicket) (bool, error)
}

type orderTx struct {
	ctx     context.Context
	tx      Tx
	db      *DB
	orderID int
	order   *models.Order
}

// WithOrderLock opens a transaction, locks the order row and hands the
// transaction to fn. It commits when fn returns nil and rolls back otherwise.
func (db *DB) WithOrderLock(ctx context.Context, orderID int, fn func(OrderTx) error) error {
	return db.inTx(ctx, func(tx Tx) error {
		order, err := db.getOrderByIDTx(ctx, tx, orderID, db.dialect.lockClause)
		if err != nil {
			return err
		}

		return fn(&orderTx{
			ctx:     ctx,
			tx:      tx,
			db:      db,
			orderID: orderID,
			order:   order,
		})
	})
}

func (o *orderTx) Order() *models.Order {
	return o.order
}

func (o *orderTx) GetPayments() ([]models.Payment, error) {
	return o.db.getPaymentsByOrderIDTx(o.ctx, o.tx, o.orderID)
}

func (o *orderTx) InsertPayment(payment *models.Payment) error {
	payment.OrderID = o.orderID
	return o.db.insertPaymentTx(o.ctx, o.tx, payment)
}

func (o *orderTx) HasAutomaticTicket() (bool, error) {
	return o.db.hasAutomaticTicketTx(o.ctx, o.tx, o.orderID)
}

func (o *orderTx) InsertTicket(ticket *models.SettlementTicket) error {
	ticket.OrderID = o.orderID
	return o.db.insertTicketTx(o.ctx, o.tx, ticket)
}

func (o *orderTx) UpdateTicket(ticket *models.SettlementTicket) (bool, error) {
	ticket.OrderID = o.orderID
	return o.db.updateTicketTx(o.ctx, o.tx, ticket)
}
