package api

import (
	"net/http"

	"bitbucket.org/tastebringers/backend/ledger"
	"bitbucket.org/tastebringers/backend/middlewares"
	"github.com/pkg/errors"
)

var ledgerStatuses = map[ledger.Kind]struct {
	status  int
	message *middlewares.NewRM
}{
	ledger.KindValidation:          {http.StatusBadRequest, middlewares.Responses.FailedValidations},
	ledger.KindOverpayment:         {http.StatusBadRequest, middlewares.Responses.Overpayment},
	ledger.KindOrderNotFound:       {http.StatusNotFound, middlewares.Responses.OrderNotFound},
	ledger.KindTicketNotFound:      {http.StatusNotFound, middlewares.Responses.TicketNotFound},
	ledger.KindConcurrencyConflict: {http.StatusConflict, middlewares.Responses.ConcurrencyConflict},
	ledger.KindPersistence:         {http.StatusServiceUnavailable, middlewares.Responses.StorageUnavailable},
}

// writeLedgerError renders a ledger error with its kind and whether the
// client may send the same request again.
func writeLedgerError(w *middlewares.ResponseWriter, err error) {
	var ledgerErr *ledger.Error
	if !errors.As(err, &ledgerErr) {
		w.Write(http.StatusInternalServerError, nil, err, middlewares.Responses.InternalServerError)
		return
	}

	mapping, ok := ledgerStatuses[ledgerErr.Kind]
	if !ok {
		w.Write(http.StatusInternalServerError, nil, err, middlewares.Responses.InternalServerError)
		return
	}

	w.Write(mapping.status, map[string]interface{}{
		"error":     mapping.message.Get(w.Language),
		"kind":      ledgerErr.Kind.String(),
		"detail":    ledgerErr.Message,
		"retryable": ledgerErr.Retryable(),
	}, err, mapping.message)
}
