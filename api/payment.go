package api

import (
	"net/http"
	"time"

	"bitbucket.org/tastebringers/backend/config"
	"bitbucket.org/tastebringers/backend/ledger"
	"bitbucket.org/tastebringers/backend/logger"
	"bitbucket.org/tastebringers/backend/middlewares"
	"bitbucket.org/tastebringers/backend/models"
	"github.com/gorilla/schema"
	"github.com/shopspring/decimal"
	"github.com/thedevsaddam/govalidator"
)

func RecordPayment(ctx *config.AppContext, w *middlewares.ResponseWriter, r *http.Request) {
	var opts models.InsertPaymentOpts
	validatorOpts := govalidator.Options{
		Request: r,
		Rules:   models.InsertPaymentRules,
		Data:    &opts,
	}
	v := govalidator.New(validatorOpts)
	errs := v.ValidateJSON()
	if len(errs) > 0 {
		w.Write(http.StatusBadRequest, errs, nil, middlewares.Responses.FailedValidations)
		return
	}

	amount, err := decimal.NewFromString(opts.Amount.String())
	if err != nil {
		w.Write(http.StatusBadRequest, nil, err, middlewares.Responses.FailedValidations)
		return
	}

	paymentOpts := ledger.RecordPaymentOpts{
		OrderID:  opts.OrderID,
		MethodID: opts.MethodID,
		Amount:   amount,
	}
	if opts.PaidAt != "" {
		paidAt, err := time.Parse(time.RFC3339, opts.PaidAt)
		if err != nil {
			w.Write(http.StatusBadRequest, nil, err, middlewares.Responses.FailedValidations)
			return
		}
		paymentOpts.PaidAt = &paidAt
	}

	result, err := ctx.Ledger.RecordPayment(r.Context(), paymentOpts)
	if err != nil {
		writeLedgerError(w, err)
		return
	}

	if result.TicketID != nil && ctx.Config.PublishReceipts() {
		go publishReceipt(ctx, logger.FromContext(r.Context()), *result.TicketID)
	}

	w.WriteJSON(http.StatusCreated, result, nil, "")
}

func GetBalance(ctx *config.AppContext, w *middlewares.ResponseWriter, r *http.Request) {
	validatorOpts := govalidator.Options{
		Request: r,
		Rules:   models.GetBalanceRules,
	}
	v := govalidator.New(validatorOpts)
	errs := v.Validate()
	if len(errs) > 0 {
		w.Write(http.StatusBadRequest, errs, nil, middlewares.Responses.FailedValidations)
		return
	}

	var opts models.GetBalanceOpts
	decoder := schema.NewDecoder()
	decoder.IgnoreUnknownKeys(true)
	if err := decoder.Decode(&opts, r.URL.Query()); err != nil {
		w.Write(http.StatusBadRequest, nil, err, middlewares.Responses.FailedValidations)
		return
	}

	balance, err := ctx.Ledger.GetBalance(r.Context(), opts.OrderID)
	if err != nil {
		writeLedgerError(w, err)
		return
	}

	w.WriteJSON(http.StatusOK, balance, nil, "")
}
