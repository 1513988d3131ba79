package ledger

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"bitbucket.org/tastebringers/backend/db"
	"bitbucket.org/tastebringers/backend/models"
	"github.com/jmoiron/sqlx"
	"github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	card = db.ConstPaymentMethods.Card.ID
	cash = db.ConstPaymentMethods.Cash.ID
)

func newTestStore(t *testing.T) (*db.DB, *sqlx.DB) {
	t.Helper()

	conn, err := db.OpenSQLite(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	store, err := db.New(conn)
	require.NoError(t, err)
	require.NoError(t, store.Migrate(context.Background()))

	return store, conn
}

func newTestLedger(t *testing.T) (*Ledger, *db.DB, *sqlx.DB) {
	t.Helper()

	store, conn := newTestStore(t)
	return New(store, NewIssuer(DefaultSettlementThreshold)), store, conn
}

func seedOrder(t *testing.T, conn *sqlx.DB, total string) int {
	t.Helper()

	result, err := conn.Exec(`INSERT INTO orders (total) VALUES (?)`, total)
	require.NoError(t, err)

	id, err := result.LastInsertId()
	require.NoError(t, err)

	return int(id)
}

func pay(orderID int, methodID int, amount string) RecordPaymentOpts {
	return RecordPaymentOpts{
		OrderID:  orderID,
		MethodID: methodID,
		Amount:   decimal.RequireFromString(amount),
	}
}

func assertDecimal(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, decimal.RequireFromString(want).Equal(got), "want %s, got %s", want, got.String())
}

func countTickets(t *testing.T, conn *sqlx.DB, orderID int) int {
	t.Helper()

	var count int
	require.NoError(t, conn.Get(&count, `SELECT COUNT(id) FROM ticket WHERE order_id = ?`, orderID))
	return count
}

func TestRecordPaymentPartialThenSettled(t *testing.T) {
	ledger, _, conn := newTestLedger(t)
	ctx := context.Background()
	orderID := seedOrder(t, conn, "200")

	result, err := ledger.RecordPayment(ctx, pay(orderID, card, "150"))
	require.NoError(t, err)
	assertDecimal(t, "150", result.TotalPaid)
	assertDecimal(t, "50", result.Remaining)
	assertDecimal(t, "0", result.ChangeDue)
	require.NotNil(t, result.TicketID, "remaining equal to the threshold settles the order")

	result, err = ledger.RecordPayment(ctx, pay(orderID, card, "10"))
	require.NoError(t, err)
	assertDecimal(t, "160", result.TotalPaid)
	assertDecimal(t, "40", result.Remaining)
	assert.Nil(t, result.TicketID)

	assert.Equal(t, 1, countTickets(t, conn, orderID))
}

func TestRecordPaymentThreshold(t *testing.T) {
	tests := []struct {
		name     string
		payments []string
		issued   bool
	}{
		{"above threshold", []string{"40", "5"}, false},
		{"within threshold", []string{"40", "15"}, true},
		{"single payment within threshold", []string{"60"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ledger, _, conn := newTestLedger(t)
			orderID := seedOrder(t, conn, "100")

			var last *models.PaymentResult
			for _, amount := range tt.payments {
				result, err := ledger.RecordPayment(context.Background(), pay(orderID, card, amount))
				require.NoError(t, err)
				last = result
			}

			assert.Equal(t, tt.issued, last.TicketID != nil)
			if tt.issued {
				assert.Equal(t, 1, countTickets(t, conn, orderID))
			}
		})
	}
}

func TestCardOverpaymentIsRejected(t *testing.T) {
	ledger, store, conn := newTestLedger(t)
	ctx := context.Background()
	orderID := seedOrder(t, conn, "100")

	_, err := ledger.RecordPayment(ctx, pay(orderID, card, "80"))
	require.NoError(t, err)

	_, err = ledger.RecordPayment(ctx, pay(orderID, card, "20.01"))
	require.Error(t, err)
	assert.Equal(t, KindOverpayment, KindOf(err))

	payments, err := store.GetPaymentsByOrderID(ctx, orderID)
	require.NoError(t, err)
	require.Len(t, payments, 1)

	result, err := ledger.RecordPayment(ctx, pay(orderID, card, "20"))
	require.NoError(t, err)
	assertDecimal(t, "0", result.Remaining)
}

func TestCashMayExceedTotal(t *testing.T) {
	ledger, _, conn := newTestLedger(t)
	ctx := context.Background()
	orderID := seedOrder(t, conn, "100")

	result, err := ledger.RecordPayment(ctx, pay(orderID, cash, "120"))
	require.NoError(t, err)
	assertDecimal(t, "-20", result.Remaining)
	assertDecimal(t, "20", result.ChangeDue)
	require.NotNil(t, result.TicketID)

	_, err = ledger.RecordPayment(ctx, pay(orderID, card, "1"))
	assert.Equal(t, KindOverpayment, KindOf(err), "card is rejected once the order is overpaid")

	balance, err := ledger.GetBalance(ctx, orderID)
	require.NoError(t, err)
	assert.True(t, balance.FullySettled)
	assertDecimal(t, "120", balance.TotalPaid)
}

func TestAutomaticTicketIsIssuedOnce(t *testing.T) {
	ledger, _, conn := newTestLedger(t)
	ctx := context.Background()
	orderID := seedOrder(t, conn, "100")

	var issued []int
	for _, amount := range []string{"60", "20", "20", "30"} {
		result, err := ledger.RecordPayment(ctx, pay(orderID, cash, amount))
		require.NoError(t, err)
		if result.TicketID != nil {
			issued = append(issued, *result.TicketID)
		}
	}

	assert.Len(t, issued, 1)
	assert.Equal(t, 1, countTickets(t, conn, orderID))
}

func TestAutomaticTicketTotalsOrder(t *testing.T) {
	ledger, store, conn := newTestLedger(t)
	ctx := context.Background()
	orderID := seedOrder(t, conn, "200")

	result, err := ledger.RecordPayment(ctx, pay(orderID, cash, "180"))
	require.NoError(t, err)
	require.NotNil(t, result.TicketID)

	detail, err := store.GetTicketByID(ctx, *result.TicketID)
	require.NoError(t, err)
	require.NotNil(t, detail)
	assertDecimal(t, "200", detail.Total)
	assert.True(t, detail.Automatic)
	assert.Equal(t, card, detail.Method.ID)
}

func TestManualTicketDoesNotSuppressAutomatic(t *testing.T) {
	ledger, store, conn := newTestLedger(t)
	ctx := context.Background()
	orderID := seedOrder(t, conn, "100")
	tickets := NewTickets(store)

	_, err := tickets.Create(ctx, orderID, cash)
	require.NoError(t, err)

	result, err := ledger.RecordPayment(ctx, pay(orderID, cash, "100"))
	require.NoError(t, err)
	assert.NotNil(t, result.TicketID)
	assert.Equal(t, 2, countTickets(t, conn, orderID))
}

func TestRecordPaymentOrderNotFound(t *testing.T) {
	ledger, _, _ := newTestLedger(t)

	_, err := ledger.RecordPayment(context.Background(), pay(404, card, "10"))
	require.Error(t, err)
	assert.Equal(t, KindOrderNotFound, KindOf(err))

	_, err = ledger.GetBalance(context.Background(), 404)
	assert.Equal(t, KindOrderNotFound, KindOf(err))
}

func TestRecordPaymentValidation(t *testing.T) {
	ledger, store, conn := newTestLedger(t)
	ctx := context.Background()
	orderID := seedOrder(t, conn, "100")

	tests := []struct {
		name string
		opts RecordPaymentOpts
	}{
		{"missing order", pay(0, card, "10")},
		{"missing method", pay(orderID, 0, "10")},
		{"unknown method", pay(orderID, 9, "10")},
		{"zero amount", pay(orderID, card, "0")},
		{"negative amount", pay(orderID, cash, "-5")},
		{"sub-cent amount", pay(orderID, cash, "1.005")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ledger.RecordPayment(ctx, tt.opts)
			require.Error(t, err)
			assert.Equal(t, KindValidation, KindOf(err))

			var ledgerErr *Error
			require.True(t, errors.As(err, &ledgerErr))
			assert.False(t, ledgerErr.Retryable())
		})
	}

	payments, err := store.GetPaymentsByOrderID(ctx, orderID)
	require.NoError(t, err)
	assert.Empty(t, payments)
	assert.Equal(t, 0, countTickets(t, conn, orderID))
}

func TestRecordPaymentKeepsPaidAt(t *testing.T) {
	ledger, _, conn := newTestLedger(t)
	ctx := context.Background()
	orderID := seedOrder(t, conn, "100")

	paidAt := time.Date(2021, 9, 12, 20, 30, 0, 0, time.UTC)
	opts := pay(orderID, cash, "10")
	opts.PaidAt = &paidAt

	result, err := ledger.RecordPayment(ctx, opts)
	require.NoError(t, err)
	assert.True(t, paidAt.Equal(result.Payment.PaidAt))
	assertDecimal(t, "100", result.Payment.OrderTotalSnapshot)

	balance, err := ledger.GetBalance(ctx, orderID)
	require.NoError(t, err)
	require.Len(t, balance.Payments, 1)
	assert.True(t, paidAt.Equal(balance.Payments[0].PaidAt))
}

func TestGetBalanceWithoutPayments(t *testing.T) {
	ledger, _, conn := newTestLedger(t)
	orderID := seedOrder(t, conn, "75.5")

	balance, err := ledger.GetBalance(context.Background(), orderID)
	require.NoError(t, err)
	assert.NotNil(t, balance.Payments)
	assert.Empty(t, balance.Payments)
	assertDecimal(t, "0", balance.TotalPaid)
	assertDecimal(t, "75.5", balance.Remaining)
	assert.False(t, balance.FullySettled)
}

func TestConcurrentPaymentsSettleOnce(t *testing.T) {
	ledger, store, conn := newTestLedger(t)
	ctx := context.Background()
	orderID := seedOrder(t, conn, "100")

	const workers = 10
	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		errs   []error
		issued int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result, err := ledger.RecordPayment(ctx, pay(orderID, card, "10"))

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, err)
				return
			}
			if result.TicketID != nil {
				issued++
			}
		}()
	}
	wg.Wait()

	require.Empty(t, errs)
	assert.Equal(t, 1, issued)
	assert.Equal(t, 1, countTickets(t, conn, orderID))

	balance, err := ledger.GetBalance(ctx, orderID)
	require.NoError(t, err)
	assertDecimal(t, "100", balance.TotalPaid)
	assert.Len(t, balance.Payments, workers)

	payments, err := store.GetPaymentsByOrderID(ctx, orderID)
	require.NoError(t, err)
	assert.Len(t, payments, workers)
}

func TestConcurrentCardPaymentsNeverExceedTotal(t *testing.T) {
	ledger, _, conn := newTestLedger(t)
	ctx := context.Background()
	orderID := seedOrder(t, conn, "100")

	const workers = 10
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		accepted int
		rejected int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := ledger.RecordPayment(ctx, pay(orderID, card, "20"))

			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				accepted++
			} else if KindOf(err) == KindOverpayment {
				rejected++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 5, accepted)
	assert.Equal(t, 5, rejected)

	balance, err := ledger.GetBalance(ctx, orderID)
	require.NoError(t, err)
	assertDecimal(t, "100", balance.TotalPaid)
}

type flakyStore struct {
	*db.DB
	failures int
	calls    int
	err      error
}

func (f *flakyStore) WithOrderLock(ctx context.Context, orderID int, fn func(db.OrderTx) error) error {
	f.calls++
	if f.calls <= f.failures {
		return f.err
	}
	return f.DB.WithOrderLock(ctx, orderID, fn)
}

func TestRecordPaymentRetriesConflicts(t *testing.T) {
	store, conn := newTestStore(t)
	orderID := seedOrder(t, conn, "100")

	flaky := &flakyStore{DB: store, failures: 2, err: sqlite3.Error{Code: sqlite3.ErrBusy}}
	ledger := New(flaky, NewIssuer(DefaultSettlementThreshold))

	result, err := ledger.RecordPayment(context.Background(), pay(orderID, card, "10"))
	require.NoError(t, err)
	assert.Equal(t, 3, flaky.calls)
	assertDecimal(t, "10", result.TotalPaid)
}

func TestRecordPaymentConflictExhaustsRetries(t *testing.T) {
	store, conn := newTestStore(t)
	orderID := seedOrder(t, conn, "100")

	flaky := &flakyStore{DB: store, failures: maxRetries + 1, err: sqlite3.Error{Code: sqlite3.ErrBusy}}
	ledger := New(flaky, NewIssuer(DefaultSettlementThreshold))

	_, err := ledger.RecordPayment(context.Background(), pay(orderID, card, "10"))
	require.Error(t, err)
	assert.Equal(t, KindConcurrencyConflict, KindOf(err))
	assert.Equal(t, maxRetries+1, flaky.calls)

	var ledgerErr *Error
	require.True(t, errors.As(err, &ledgerErr))
	assert.True(t, ledgerErr.Retryable())
}

func TestRecordPaymentStorageFailure(t *testing.T) {
	store, conn := newTestStore(t)
	orderID := seedOrder(t, conn, "100")

	flaky := &flakyStore{DB: store, failures: 1, err: errors.New("connection refused")}
	ledger := New(flaky, NewIssuer(DefaultSettlementThreshold))

	_, err := ledger.RecordPayment(context.Background(), pay(orderID, card, "10"))
	require.Error(t, err)
	assert.Equal(t, KindPersistence, KindOf(err))
	assert.Equal(t, 1, flaky.calls)

	balance, err := ledger.GetBalance(context.Background(), orderID)
	require.NoError(t, err)
	assert.Empty(t, balance.Payments)
}
