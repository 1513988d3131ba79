package ledger

import (
	"context"

	"bitbucket.org/tastebringers/backend/db"
	"bitbucket.org/tastebringers/backend/logger"
	"bitbucket.org/tastebringers/backend/models"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

// DefaultSettlementThreshold is the remaining balance at or under which an
// order counts as settled.
var DefaultSettlementThreshold = decimal.NewFromInt(50)

// Issuer decides, inside the order's transaction, whether a payment settles
// the order and writes the automatic ticket when it does.
type Issuer struct {
	threshold decimal.Decimal
}

func NewIssuer(threshold decimal.Decimal) *Issuer {
	return &Issuer{threshold: threshold}
}

func (i *Issuer) Threshold() decimal.Decimal {
	return i.threshold
}

// MaybeIssue returns the new ticket, or nil when the order is not settled yet
// or already has its automatic ticket. The ticket totals orderTotal and is
// always recorded with the card method.
func (i *Issuer) MaybeIssue(ctx context.Context, tx db.OrderTx, remaining decimal.Decimal, orderTotal decimal.Decimal) (*models.SettlementTicket, error) {
	if remaining.GreaterThan(i.threshold) {
		return nil, nil
	}

	issued, err := tx.HasAutomaticTicket()
	if err != nil {
		return nil, err
	}

	if issued {
		return nil, nil
	}

	card := db.ConstPaymentMethods.Card
	ticket := &models.SettlementTicket{
		Method:    &card,
		Total:     orderTotal,
		Automatic: true,
	}
	if err := tx.InsertTicket(ticket); err != nil {
		return nil, err
	}

	logger.FromContext(ctx).WithFields(log.Fields{
		"order_id":  ticket.OrderID,
		"ticket_id": ticket.ID,
		"code":      ticket.Code,
		"remaining": remaining.String(),
	}).Info("settlement ticket issued")

	return ticket, nil
}
