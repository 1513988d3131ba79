package api

import (
	"net/http"

	"bitbucket.org/tastebringers/backend/config"
	"bitbucket.org/tastebringers/backend/middlewares"
	"bitbucket.org/tastebringers/backend/server"
)

// HealthcheckHandler indicates the service's healthy
func HealthcheckHandler(_ *config.AppContext, w *middlewares.ResponseWriter, _ *http.Request) {
	w.String(http.StatusOK, "OK")
}

// GetRoutes ...
func GetRoutes() []*server.Route {
	return []*server.Route{
		{Path: "/healthcheck", Methods: []string{"GET", "HEAD"}, Handler: HealthcheckHandler, IsProtected: false},

		// Payment
		{Path: "/payment", Methods: []string{"POST"}, Handler: RecordPayment, IsProtected: false},
		{Path: "/payment", Methods: []string{"GET", "HEAD"}, Handler: GetBalance, IsProtected: false},

		// Ticket
		{Path: "/ticket", Methods: []string{"GET", "HEAD"}, Handler: GetTickets, IsProtected: false},
		{Path: "/ticket", Methods: []string{"POST"}, Handler: InsertTicket, IsProtected: true},
		{Path: "/ticket/{id:[0-9]+}", Methods: []string{"GET", "HEAD"}, Handler: GetTicket, IsProtected: false},
		{Path: "/ticket/{id:[0-9]+}", Methods: []string{"PUT"}, Handler: UpdateTicket, IsProtected: true},
		{Path: "/ticket/{id:[0-9]+}", Methods: []string{"DELETE"}, Handler: DeleteTicket, IsProtected: true},
		{Path: "/ticket/{id:[0-9]+}/receipt", Methods: []string{"GET", "HEAD"}, Handler: GetTicketReceipt, IsProtected: false},
	}
}
