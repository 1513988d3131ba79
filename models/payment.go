package models

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
	"github.com/thedevsaddam/govalidator"
)

type InsertPaymentOpts struct {
	OrderID  int         `json:"order_id"`
	MethodID int         `json:"method_id"`
	Amount   json.Number `json:"amount"`
	PaidAt   string      `json:"paid_at"`
}

var InsertPaymentRules = govalidator.MapData{
	"order_id":  []string{"required", "positive"},
	"method_id": []string{"required", "positive"},
	"amount":    []string{"required", "positive"},
	"paid_at":   []string{"datetime_RFC3339"},
}

type GetBalanceOpts struct {
	OrderID int `schema:"order_id"`
}

var GetBalanceRules = govalidator.MapData{
	"order_id": []string{"required", "positive"},
}

type Payment struct {
	ID                 int             `json:"id,omitempty"`
	OrderID            int             `json:"order_id"`
	Method             *PaymentMethod  `json:"method,omitempty"`
	Amount             decimal.Decimal `json:"amount"`
	PaidAt             time.Time       `json:"paid_at"`
	OrderTotalSnapshot decimal.Decimal `json:"order_total_snapshot"`
	Created            time.Time       `json:"created"`
}

// PaymentMethod carries the overpayment policy of the method. Methods that
// enforce the ceiling reject any payment that would take the amount paid
// above the order total.
type PaymentMethod struct {
	ID              int    `json:"id,omitempty"`
	Name            string `json:"name,omitempty"`
	EnforcesCeiling bool   `json:"-"`
}

type PaymentResult struct {
	Payment   *Payment        `json:"payment"`
	TotalPaid decimal.Decimal `json:"total_paid"`
	Remaining decimal.Decimal `json:"remaining"`
	ChangeDue decimal.Decimal `json:"change_due"`
	TicketID  *int            `json:"ticket_id"`
}

type Balance struct {
	OrderID      int             `json:"order_id"`
	Payments     []Payment       `json:"payments"`
	TotalPaid    decimal.Decimal `json:"total_paid"`
	Remaining    decimal.Decimal `json:"remaining"`
	FullySettled bool            `json:"fully_settled"`
}
