package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Order struct {
	ID       int             `json:"id,omitempty"`
	Total    decimal.Decimal `json:"total"`
	Created  time.Time       `json:"created"`
	Items    []OrderItem     `json:"items,omitempty"`
	Payments []Payment       `json:"payments,omitempty"`
}

type OrderItem struct {
	Quantity int             `json:"quantity"`
	Subtotal decimal.Decimal `json:"subtotal"`
	Menu     *MenuItem       `json:"menu,omitempty"`
}

type MenuItem struct {
	ID    int             `json:"id,omitempty"`
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
}
