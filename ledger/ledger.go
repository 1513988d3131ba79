// Package ledger records partial payments against orders and issues the
// settlement ticket once an order is paid off.
//
// The amount paid is never stored as a counter. It is derived from the
// append-only payment log inside the same per-order transaction that appends
// the next payment and decides on the ticket, so concurrent payments for one
// order are applied one after the other.
package ledger

import (
	"context"
	"fmt"
	"time"

	"bitbucket.org/tastebringers/backend/db"
	"bitbucket.org/tastebringers/backend/logger"
	"bitbucket.org/tastebringers/backend/models"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

const maxRetries = 3

// Store is the storage the ledger needs. *db.DB implements it.
type Store interface {
	WithOrderLock(ctx context.Context, orderID int, fn func(db.OrderTx) error) error
	GetOrderBalance(ctx context.Context, orderID int) (*models.Order, []models.Payment, error)
}

type Ledger struct {
	store  Store
	issuer *Issuer
	now    func() time.Time
}

func New(store Store, issuer *Issuer) *Ledger {
	return &Ledger{
		store:  store,
		issuer: issuer,
		now: func() time.Time {
			return time.Now().UTC()
		},
	}
}

type RecordPaymentOpts struct {
	OrderID  int
	MethodID int
	Amount   decimal.Decimal
	// PaidAt defaults to the submission time.
	PaidAt *time.Time
}

// RecordPayment validates and appends one payment and issues the settlement
// ticket when the payment brings the order within the threshold. The payment
// and the ticket are committed together or not at all.
func (l *Ledger) RecordPayment(ctx context.Context, opts RecordPaymentOpts) (*models.PaymentResult, error) {
	method, err := validatePayment(opts)
	if err != nil {
		return nil, err
	}

	now := l.now()
	paidAt := now
	if opts.PaidAt != nil && !opts.PaidAt.IsZero() {
		paidAt = opts.PaidAt.UTC()
	}

	entry := logger.FromContext(ctx).WithFields(log.Fields{
		"order_id":  opts.OrderID,
		"method_id": method.ID,
		"amount":    opts.Amount.String(),
	})

	var result *models.PaymentResult
	err = withRetry(ctx, opts.OrderID, func() error {
		result = nil
		return l.store.WithOrderLock(ctx, opts.OrderID, func(tx db.OrderTx) error {
			var err error
			result, err = l.recordPaymentTx(ctx, tx, opts.OrderID, method, opts.Amount, paidAt, now)
			return err
		})
	})
	if err != nil {
		switch KindOf(err) {
		case KindOverpayment, KindOrderNotFound:
			entry.WithError(err).Warn("payment rejected")
		default:
			entry.WithError(err).Error("failed recording payment")
		}
		return nil, err
	}

	fields := log.Fields{
		"payment_id": result.Payment.ID,
		"total_paid": result.TotalPaid.String(),
		"remaining":  result.Remaining.String(),
	}
	if result.TicketID != nil {
		fields["ticket_id"] = *result.TicketID
	}
	entry.WithFields(fields).Info("payment recorded")

	return result, nil
}

func (l *Ledger) recordPaymentTx(ctx context.Context, tx db.OrderTx, orderID int, method *models.PaymentMethod, amount decimal.Decimal, paidAt time.Time, now time.Time) (*models.PaymentResult, error) {
	order := tx.Order()
	if order == nil {
		return nil, orderNotFound(orderID)
	}

	payments, err := tx.GetPayments()
	if err != nil {
		return nil, err
	}

	totalPaid := sumAmounts(payments)
	newTotal := totalPaid.Add(amount)
	if method.EnforcesCeiling && newTotal.GreaterThan(order.Total) {
		return nil, &Error{
			Kind: KindOverpayment,
			Message: fmt.Sprintf(
				"%s payment of %s exceeds the outstanding balance of %s",
				method.Name, amount.String(), order.Total.Sub(totalPaid).String(),
			),
		}
	}

	payment := &models.Payment{
		OrderID:            order.ID,
		Method:             method,
		Amount:             amount,
		PaidAt:             paidAt,
		OrderTotalSnapshot: order.Total,
		Created:            now,
	}
	if err := tx.InsertPayment(payment); err != nil {
		return nil, err
	}

	remaining := order.Total.Sub(newTotal)

	ticket, err := l.issuer.MaybeIssue(ctx, tx, remaining, order.Total)
	if err != nil {
		return nil, err
	}

	result := &models.PaymentResult{
		Payment:   payment,
		TotalPaid: newTotal,
		Remaining: remaining,
		ChangeDue: decimal.Zero,
	}
	if remaining.IsNegative() {
		result.ChangeDue = remaining.Neg()
	}
	if ticket != nil {
		ticketID := ticket.ID
		result.TicketID = &ticketID
	}

	return result, nil
}

// GetBalance returns the payments of an order in insertion order together
// with the derived totals.
func (l *Ledger) GetBalance(ctx context.Context, orderID int) (*models.Balance, error) {
	if orderID <= 0 {
		return nil, validationError("order_id is required")
	}

	order, payments, err := l.store.GetOrderBalance(ctx, orderID)
	if err != nil {
		logger.FromContext(ctx).WithField("order_id", orderID).WithError(err).Error("failed getting balance")
		return nil, persistenceError(err)
	}

	if order == nil {
		return nil, orderNotFound(orderID)
	}

	if payments == nil {
		payments = []models.Payment{}
	}

	totalPaid := sumAmounts(payments)
	return &models.Balance{
		OrderID:      order.ID,
		Payments:     payments,
		TotalPaid:    totalPaid,
		Remaining:    order.Total.Sub(totalPaid),
		FullySettled: totalPaid.GreaterThanOrEqual(order.Total),
	}, nil
}

func validatePayment(opts RecordPaymentOpts) (*models.PaymentMethod, error) {
	if opts.OrderID <= 0 {
		return nil, validationError("order_id is required")
	}

	if opts.MethodID <= 0 {
		return nil, validationError("method_id is required")
	}

	method := db.GetPaymentMethodByID(opts.MethodID)
	if method == nil {
		return nil, validationError("payment method %d does not exist", opts.MethodID)
	}

	if !opts.Amount.IsPositive() {
		return nil, validationError("amount must be greater than 0")
	}

	if !opts.Amount.Equal(opts.Amount.Round(2)) {
		return nil, validationError("amount supports at most 2 decimal places")
	}

	return method, nil
}

func sumAmounts(payments []models.Payment) decimal.Decimal {
	total := decimal.Zero
	for _, payment := range payments {
		total = total.Add(payment.Amount)
	}
	return total
}

func sumSnapshots(payments []models.Payment) decimal.Decimal {
	total := decimal.Zero
	for _, payment := range payments {
		total = total.Add(payment.OrderTotalSnapshot)
	}
	return total
}

// withRetry runs fn again when the storage reports a lock conflict. Ledger
// errors and any other storage failure end the loop.
func withRetry(ctx context.Context, orderID int, fn func() error) error {
	var err error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		err = fn()
		if err == nil {
			return nil
		}

		if KindOf(err) != 0 {
			return err
		}

		if !db.IsConflict(err) && !db.IsDuplicate(err) {
			return persistenceError(err)
		}

		if ctx.Err() != nil {
			return persistenceError(ctx.Err())
		}

		logger.FromContext(ctx).WithFields(log.Fields{
			"order_id": orderID,
			"attempt":  attempt + 1,
		}).WithError(err).Warn("ledger transaction conflict")
	}

	return concurrencyConflict(orderID, err)
}
