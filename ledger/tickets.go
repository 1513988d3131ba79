package ledger

import (
	"context"

	"bitbucket.org/tastebringers/backend/db"
	"bitbucket.org/tastebringers/backend/logger"
	"bitbucket.org/tastebringers/backend/models"
	log "github.com/sirupsen/logrus"
)

// TicketStore is the storage behind manual ticket administration. *db.DB
// implements it.
type TicketStore interface {
	WithOrderLock(ctx context.Context, orderID int, fn func(db.OrderTx) error) error
	GetTicketByID(ctx context.Context, ticketID int) (*models.TicketDetail, error)
	GetTickets(ctx context.Context) ([]models.SettlementTicket, error)
	DeleteTicket(ctx context.Context, ticketID int) (bool, error)
}

// Tickets administers settlement tickets by hand. Manual tickets never
// count as the automatic ticket of an order, and the automatic ticket of an
// order can still be edited or deleted here.
type Tickets struct {
	store TicketStore
}

func NewTickets(store TicketStore) *Tickets {
	return &Tickets{store: store}
}

// Create stores a ticket whose total is the sum of the order total snapshots
// of the order's payments.
func (t *Tickets) Create(ctx context.Context, orderID int, methodID int) (*models.SettlementTicket, error) {
	method, err := validateTicket(orderID, methodID)
	if err != nil {
		return nil, err
	}

	ticket := &models.SettlementTicket{Method: method}
	err = withRetry(ctx, orderID, func() error {
		ticket.ID = 0
		return t.store.WithOrderLock(ctx, orderID, func(tx db.OrderTx) error {
			if tx.Order() == nil {
				return orderNotFound(orderID)
			}

			payments, err := tx.GetPayments()
			if err != nil {
				return err
			}

			ticket.Total = sumSnapshots(payments)
			return tx.InsertTicket(ticket)
		})
	})
	if err != nil {
		logger.FromContext(ctx).WithField("order_id", orderID).WithError(err).Warn("failed creating ticket")
		return nil, err
	}

	logger.FromContext(ctx).WithFields(log.Fields{
		"order_id":  orderID,
		"ticket_id": ticket.ID,
	}).Info("ticket created")

	return ticket, nil
}

func (t *Tickets) Get(ctx context.Context, ticketID int) (*models.TicketDetail, error) {
	if ticketID <= 0 {
		return nil, validationError("ticket id is required")
	}

	detail, err := t.store.GetTicketByID(ctx, ticketID)
	if err != nil {
		logger.FromContext(ctx).WithField("ticket_id", ticketID).WithError(err).Error("failed getting ticket")
		return nil, persistenceError(err)
	}

	if detail == nil {
		return nil, ticketNotFound(ticketID)
	}

	return detail, nil
}

func (t *Tickets) List(ctx context.Context) ([]models.SettlementTicket, error) {
	tickets, err := t.store.GetTickets(ctx)
	if err != nil {
		logger.FromContext(ctx).WithError(err).Error("failed getting tickets")
		return nil, persistenceError(err)
	}

	return tickets, nil
}

// Update points the ticket at orderID and methodID and recomputes its total
// the same way Create does.
func (t *Tickets) Update(ctx context.Context, ticketID int, orderID int, methodID int) (*models.SettlementTicket, error) {
	if ticketID <= 0 {
		return nil, validationError("ticket id is required")
	}

	method, err := validateTicket(orderID, methodID)
	if err != nil {
		return nil, err
	}

	ticket := &models.SettlementTicket{ID: ticketID, Method: method}
	err = withRetry(ctx, orderID, func() error {
		return t.store.WithOrderLock(ctx, orderID, func(tx db.OrderTx) error {
			if tx.Order() == nil {
				return orderNotFound(orderID)
			}

			payments, err := tx.GetPayments()
			if err != nil {
				return err
			}

			ticket.Total = sumSnapshots(payments)
			found, err := tx.UpdateTicket(ticket)
			if err != nil {
				return err
			}

			if !found {
				return ticketNotFound(ticketID)
			}

			return nil
		})
	})
	if err != nil {
		logger.FromContext(ctx).WithField("ticket_id", ticketID).WithError(err).Warn("failed updating ticket")
		return nil, err
	}

	logger.FromContext(ctx).WithFields(log.Fields{
		"order_id":  orderID,
		"ticket_id": ticketID,
	}).Info("ticket updated")

	return ticket, nil
}

func (t *Tickets) Delete(ctx context.Context, ticketID int) error {
	if ticketID <= 0 {
		return validationError("ticket id is required")
	}

	deleted, err := t.store.DeleteTicket(ctx, ticketID)
	if err != nil {
		logger.FromContext(ctx).WithField("ticket_id", ticketID).WithError(err).Error("failed deleting ticket")
		return persistenceError(err)
	}

	if !deleted {
		return ticketNotFound(ticketID)
	}

	logger.FromContext(ctx).WithField("ticket_id", ticketID).Info("ticket deleted")
	return nil
}

func validateTicket(orderID int, methodID int) (*models.PaymentMethod, error) {
	if orderID <= 0 {
		return nil, validationError("order_id is required")
	}

	if methodID <= 0 {
		return nil, validationError("method_id is required")
	}

	method := db.GetPaymentMethodByID(methodID)
	if method == nil {
		return nil, validationError("payment method %d does not exist", methodID)
	}

	return method, nil
}
