package db

import (
	"context"

	"bitbucket.org/tastebringers/backend/models"
	"github.com/pkg/errors"
)

// ConstPaymentMethods is the closed set of accepted methods. A new method has
// to be added here with an explicit ceiling policy, it never inherits one.
var ConstPaymentMethods = struct {
	Card models.PaymentMethod
	Cash models.PaymentMethod
}{
	Card: models.PaymentMethod{
		ID:              1,
		Name:            "Tarjeta",
		EnforcesCeiling: true,
	},
	Cash: models.PaymentMethod{
		ID:              2,
		Name:            "Efectivo",
		EnforcesCeiling: false,
	},
}

// GetPaymentMethodByID returns nil for unknown methods.
func GetPaymentMethodByID(methodID int) *models.PaymentMethod {
	for _, method := range []models.PaymentMethod{
		ConstPaymentMethods.Card,
		ConstPaymentMethods.Cash,
	} {
		if method.ID == methodID {
			m := method
			return &m
		}
	}
	return nil
}

type PaymentStorage interface {
	GetPaymentsByOrderID(ctx context.Context, orderID int) ([]models.Payment, error)
	GetOrderBalance(ctx context.Context, orderID int) (*models.Order, []models.Payment, error)
	WithOrderLock(ctx context.Context, orderID int, fn func(OrderTx) error) error
}

const (
	insertPayment = `
	INSERT INTO
		payment (order_id, method_id, amount, paid_at, order_total_snapshot, created)
	VALUES
		(:order_id, :method_id, :amount, :paid_at, :order_total_snapshot, :created)
	`

	getPaymentsByOrderID = `
	SELECT
		payment.id,
		payment.order_id,
		payment.amount,
		payment.paid_at,
		payment.order_total_snapshot,
		payment.created,
		payment_method.id,
		payment_method.name
	FROM
		payment
	INNER JOIN
		payment_method ON (payment_method.id = payment.method_id)
	WHERE
		payment.order_id = :order_id
	ORDER BY
		payment.id ASC
	`
)

func (db *DB) GetPaymentsByOrderID(ctx context.Context, orderID int) ([]models.Payment, error) {
	return db.getPaymentsByOrderIDTx(ctx, db.conn, orderID)
}

// GetOrderBalance reads the order and its payments inside one transaction
// so the caller never sees a half committed payment.
func (db *DB) GetOrderBalance(ctx context.Context, orderID int) (*models.Order, []models.Payment, error) {
	var (
		order    *models.Order
		payments []models.Payment
	)

	err := db.inTx(ctx, func(tx Tx) error {
		var err error
		order, err = db.getOrderByIDTx(ctx, tx, orderID, "")
		if err != nil || order == nil {
			return err
		}

		payments, err = db.getPaymentsByOrderIDTx(ctx, tx, orderID)
		return err
	})
	if err != nil {
		return nil, nil, err
	}

	return order, payments, nil
}

func (db *DB) getPaymentsByOrderIDTx(ctx context.Context, c conn, orderID int) ([]models.Payment, error) {
	stmt, err := c.PrepareNamedContext(ctx, getPaymentsByOrderID)
	if err != nil {
		return nil, err
	}
	defer stmt.Close()

	args := map[string]interface{}{
		"order_id": orderID,
	}

	rows, err := stmt.QueryxContext(ctx, args)
	if err != nil {
		return nil, errors.Wrapf(err, "failed getting payments of order %d", orderID)
	}
	defer rows.Close()

	var payments []models.Payment
	for rows.Next() {
		var payment models.Payment
		var method models.PaymentMethod
		if err := rows.Scan(
			&payment.ID,
			&payment.OrderID,
			&payment.Amount,
			&payment.PaidAt,
			&payment.OrderTotalSnapshot,
			&payment.Created,
			&method.ID,
			&method.Name,
		); err != nil {
			return nil, err
		}

		if known := GetPaymentMethodByID(method.ID); known != nil {
			method.EnforcesCeiling = known.EnforcesCeiling
		}
		payment.Method = &method
		payments = append(payments, payment)
	}

	return payments, rows.Err()
}

func (db *DB) insertPaymentTx(ctx context.Context, tx Tx, payment *models.Payment) error {
	if payment.Method == nil {
		return errors.New("payment without method")
	}

	args := map[string]interface{}{
		"order_id":             payment.OrderID,
		"method_id":            payment.Method.ID,
		"amount":               payment.Amount,
		"paid_at":              payment.PaidAt,
		"order_total_snapshot": payment.OrderTotalSnapshot,
		"created":              payment.Created,
	}

	id, err := db.insertTx(ctx, tx, insertPayment, args)
	if err != nil {
		return errors.Wrapf(err, "failed inserting payment for order %d", payment.OrderID)
	}

	payment.ID = id
	return nil
}
