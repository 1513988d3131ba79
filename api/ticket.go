package api

import (
	"net/http"
	"strconv"

	"bitbucket.org/tastebringers/backend/config"
	"bitbucket.org/tastebringers/backend/helpers"
	"bitbucket.org/tastebringers/backend/middlewares"
	"bitbucket.org/tastebringers/backend/models"
	"github.com/gorilla/mux"
	"github.com/gorilla/schema"
	"github.com/mitchellh/mapstructure"
	"github.com/thedevsaddam/govalidator"
)

func ticketIDFromPath(r *http.Request) (int, error) {
	vars := mux.Vars(r)
	return strconv.Atoi(vars["id"])
}

func GetTickets(ctx *config.AppContext, w *middlewares.ResponseWriter, r *http.Request) {
	tickets, err := ctx.Tickets.List(r.Context())
	if err != nil {
		writeLedgerError(w, err)
		return
	}

	w.WriteJSON(http.StatusOK, models.TicketsStruct{
		Tickets: tickets,
		Total:   len(tickets),
	}, nil, "")
}

func GetTicket(ctx *config.AppContext, w *middlewares.ResponseWriter, r *http.Request) {
	ticketID, err := ticketIDFromPath(r)
	if err != nil {
		w.Write(http.StatusBadRequest, nil, err, middlewares.Responses.InvalidTicketID)
		return
	}

	ticket, err := ctx.Tickets.Get(r.Context(), ticketID)
	if err != nil {
		writeLedgerError(w, err)
		return
	}

	w.WriteJSON(http.StatusOK, ticket, nil, "")
}

func GetTicketReceipt(ctx *config.AppContext, w *middlewares.ResponseWriter, r *http.Request) {
	ticketID, err := ticketIDFromPath(r)
	if err != nil {
		w.Write(http.StatusBadRequest, nil, err, middlewares.Responses.InvalidTicketID)
		return
	}

	validatorOpts := govalidator.Options{
		Request: r,
		Rules:   models.GetReceiptRules,
	}
	v := govalidator.New(validatorOpts)
	errs := v.Validate()
	if len(errs) > 0 {
		w.Write(http.StatusBadRequest, errs, nil, middlewares.Responses.FailedValidations)
		return
	}

	var opts models.GetReceiptOpts
	decoder := schema.NewDecoder()
	decoder.IgnoreUnknownKeys(true)
	if err := decoder.Decode(&opts, r.URL.Query()); err != nil {
		w.Write(http.StatusBadRequest, nil, err, middlewares.Responses.FailedValidations)
		return
	}

	ticket, err := ctx.Tickets.Get(r.Context(), ticketID)
	if err != nil {
		writeLedgerError(w, err)
		return
	}

	if opts.Format == "pdf" {
		pdf, err := helpers.GenerateReceiptPDF(ticket, ctx.Config.RestaurantInfo())
		if err != nil {
			w.Write(http.StatusInternalServerError, nil, err, middlewares.Responses.ReceiptUnavailable)
			return
		}
		w.Writer.Header().Set("Content-Disposition", "inline; filename=\""+ticket.Code+".pdf\"")
		w.Bytes(http.StatusOK, "application/pdf", pdf.Bytes())
		return
	}

	html, err := helpers.GenerateReceiptHTML(ticket, ctx.Config.RestaurantInfo())
	if err != nil {
		w.Write(http.StatusInternalServerError, nil, err, middlewares.Responses.ReceiptUnavailable)
		return
	}

	w.Bytes(http.StatusOK, "text/html; charset=utf-8", html)
}

func InsertTicket(ctx *config.AppContext, w *middlewares.ResponseWriter, r *http.Request) {
	userInfo := models.InfoUser{}
	mapstructure.Decode(r.Context().Value("user"), &userInfo)

	if !userInfo.IsAdmin && !userInfo.IsCashier {
		w.Write(http.StatusForbidden, nil, nil, middlewares.Responses.InvalidRoles)
		return
	}

	var opts models.InsertTicketOpts
	validatorOpts := govalidator.Options{
		Request: r,
		Rules:   models.InsertTicketRules,
		Data:    &opts,
	}
	v := govalidator.New(validatorOpts)
	errs := v.ValidateJSON()
	if len(errs) > 0 {
		w.Write(http.StatusBadRequest, errs, nil, middlewares.Responses.FailedValidations)
		return
	}

	ticket, err := ctx.Tickets.Create(r.Context(), opts.OrderID, opts.MethodID)
	if err != nil {
		writeLedgerError(w, err)
		return
	}

	w.WriteJSON(http.StatusCreated, ticket, nil, "")
}

func UpdateTicket(ctx *config.AppContext, w *middlewares.ResponseWriter, r *http.Request) {
	userInfo := models.InfoUser{}
	mapstructure.Decode(r.Context().Value("user"), &userInfo)

	if !userInfo.IsAdmin && !userInfo.IsCashier {
		w.Write(http.StatusForbidden, nil, nil, middlewares.Responses.InvalidRoles)
		return
	}

	ticketID, err := ticketIDFromPath(r)
	if err != nil {
		w.Write(http.StatusBadRequest, nil, err, middlewares.Responses.InvalidTicketID)
		return
	}

	var opts models.UpdateTicketOpts
	validatorOpts := govalidator.Options{
		Request: r,
		Rules:   models.UpdateTicketRules,
		Data:    &opts,
	}
	v := govalidator.New(validatorOpts)
	errs := v.ValidateJSON()
	if len(errs) > 0 {
		w.Write(http.StatusBadRequest, errs, nil, middlewares.Responses.FailedValidations)
		return
	}

	ticket, err := ctx.Tickets.Update(r.Context(), ticketID, opts.OrderID, opts.MethodID)
	if err != nil {
		writeLedgerError(w, err)
		return
	}

	w.WriteJSON(http.StatusOK, ticket, nil, "")
}

func DeleteTicket(ctx *config.AppContext, w *middlewares.ResponseWriter, r *http.Request) {
	userInfo := models.InfoUser{}
	mapstructure.Decode(r.Context().Value("user"), &userInfo)

	if !userInfo.IsAdmin {
		w.Write(http.StatusForbidden, nil, nil, middlewares.Responses.InvalidRoles)
		return
	}

	ticketID, err := ticketIDFromPath(r)
	if err != nil {
		w.Write(http.StatusBadRequest, nil, err, middlewares.Responses.InvalidTicketID)
		return
	}

	if err := ctx.Tickets.Delete(r.Context(), ticketID); err != nil {
		writeLedgerError(w, err)
		return
	}

	w.NoContent()
}
