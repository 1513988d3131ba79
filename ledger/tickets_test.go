package ledger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateTicketSumsSnapshots(t *testing.T) {
	ledger, store, conn := newTestLedger(t)
	ctx := context.Background()
	orderID := seedOrder(t, conn, "100")
	tickets := NewTickets(store)

	_, err := ledger.RecordPayment(ctx, pay(orderID, cash, "10"))
	require.NoError(t, err)

	_, err = conn.Exec(`UPDATE orders SET total = ? WHERE id = ?`, "120", orderID)
	require.NoError(t, err)

	_, err = ledger.RecordPayment(ctx, pay(orderID, cash, "5"))
	require.NoError(t, err)

	ticket, err := tickets.Create(ctx, orderID, card)
	require.NoError(t, err)
	assertDecimal(t, "220", ticket.Total)
	assert.False(t, ticket.Automatic)
	assert.NotEmpty(t, ticket.Code)

	detail, err := tickets.Get(ctx, ticket.ID)
	require.NoError(t, err)
	assertDecimal(t, "220", detail.Total)
	assertDecimal(t, "120", detail.Order.Total)
}

func TestCreateTicketWithoutPayments(t *testing.T) {
	store, conn := newTestStore(t)
	orderID := seedOrder(t, conn, "100")

	ticket, err := NewTickets(store).Create(context.Background(), orderID, cash)
	require.NoError(t, err)
	assertDecimal(t, "0", ticket.Total)
}

func TestCreateTicketErrors(t *testing.T) {
	store, conn := newTestStore(t)
	ctx := context.Background()
	orderID := seedOrder(t, conn, "100")
	tickets := NewTickets(store)

	_, err := tickets.Create(ctx, 404, cash)
	assert.Equal(t, KindOrderNotFound, KindOf(err))

	_, err = tickets.Create(ctx, orderID, 7)
	assert.Equal(t, KindValidation, KindOf(err))

	_, err = tickets.Create(ctx, 0, cash)
	assert.Equal(t, KindValidation, KindOf(err))

	list, err := tickets.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestUpdateTicketRecomputesTotal(t *testing.T) {
	ledger, store, conn := newTestLedger(t)
	ctx := context.Background()
	first := seedOrder(t, conn, "100")
	second := seedOrder(t, conn, "80")
	tickets := NewTickets(store)

	ticket, err := tickets.Create(ctx, first, card)
	require.NoError(t, err)

	_, err = ledger.RecordPayment(ctx, pay(second, card, "20"))
	require.NoError(t, err)
	_, err = ledger.RecordPayment(ctx, pay(second, card, "20"))
	require.NoError(t, err)

	updated, err := tickets.Update(ctx, ticket.ID, second, cash)
	require.NoError(t, err)
	assert.Equal(t, ticket.ID, updated.ID)
	assert.Equal(t, ticket.Code, updated.Code)
	assert.Equal(t, second, updated.OrderID)
	assert.Equal(t, cash, updated.Method.ID)
	assertDecimal(t, "160", updated.Total)

	_, err = tickets.Update(ctx, ticket.ID+100, second, cash)
	assert.Equal(t, KindTicketNotFound, KindOf(err))

	_, err = tickets.Update(ctx, ticket.ID, 404, cash)
	assert.Equal(t, KindOrderNotFound, KindOf(err))
}

func TestDeleteTicket(t *testing.T) {
	store, conn := newTestStore(t)
	ctx := context.Background()
	orderID := seedOrder(t, conn, "100")
	tickets := NewTickets(store)

	ticket, err := tickets.Create(ctx, orderID, cash)
	require.NoError(t, err)

	require.NoError(t, tickets.Delete(ctx, ticket.ID))

	err = tickets.Delete(ctx, ticket.ID)
	assert.Equal(t, KindTicketNotFound, KindOf(err))

	_, err = tickets.Get(ctx, ticket.ID)
	assert.Equal(t, KindTicketNotFound, KindOf(err))
}

func TestListTicketsInStorageOrder(t *testing.T) {
	store, conn := newTestStore(t)
	ctx := context.Background()
	tickets := NewTickets(store)

	var ids []int
	for _, total := range []string{"10", "20", "30"} {
		ticket, err := tickets.Create(ctx, seedOrder(t, conn, total), cash)
		require.NoError(t, err)
		ids = append(ids, ticket.ID)
	}

	list, err := tickets.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 3)
	for i, ticket := range list {
		assert.Equal(t, ids[i], ticket.ID)
	}
}

func TestErrorKinds(t *testing.T) {
	assert.Equal(t, "overpayment_rejected", KindOverpayment.String())
	assert.Equal(t, "concurrency_conflict", KindConcurrencyConflict.String())
	assert.Equal(t, Kind(0), KindOf(nil))

	err := persistenceError(assert.AnError)
	assert.True(t, err.Retryable())
	assert.ErrorIs(t, err, assert.AnError)

	assert.False(t, orderNotFound(1).Retryable())
	assert.False(t, ticketNotFound(1).Retryable())
}
