package db

import (
	"github.com/lithammer/shortuuid/v3"
)

// GenerateTicketCode returns the printable reference shown on receipts.
func GenerateTicketCode() string {
	return shortuuid.New()
}
