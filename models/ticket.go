package models

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/thedevsaddam/govalidator"
)

type InsertTicketOpts struct {
	OrderID  int `json:"order_id"`
	MethodID int `json:"method_id"`
}

var InsertTicketRules = govalidator.MapData{
	"order_id":  []string{"required", "positive"},
	"method_id": []string{"required", "positive"},
}

type UpdateTicketOpts struct {
	OrderID  int `json:"order_id"`
	MethodID int `json:"method_id"`
}

var UpdateTicketRules = govalidator.MapData{
	"order_id":  []string{"required", "positive"},
	"method_id": []string{"required", "positive"},
}

type GetReceiptOpts struct {
	Format string `schema:"format"`
}

var GetReceiptRules = govalidator.MapData{
	"format": []string{"in:html,pdf"},
}

// SettlementTicket is the receipt-like record of a paid order. Automatic
// tickets are issued by the ledger, the rest come from manual administration.
type SettlementTicket struct {
	ID        int             `json:"id,omitempty"`
	Code      string          `json:"code"`
	OrderID   int             `json:"order_id"`
	Method    *PaymentMethod  `json:"method,omitempty"`
	Total     decimal.Decimal `json:"total"`
	Automatic bool            `json:"automatic"`
	Created   time.Time       `json:"created"`
	Updated   time.Time       `json:"updated"`
}

type TicketDetail struct {
	SettlementTicket
	Order *Order `json:"order,omitempty"`
}

type TicketsStruct struct {
	Tickets []SettlementTicket `json:"tickets"`
	Total   int                `json:"total"`
}
