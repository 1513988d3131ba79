package server

import (
	"fmt"
	"net/http"
	"time"

	"bitbucket.org/tastebringers/backend/config"
	"bitbucket.org/tastebringers/backend/db"
	"bitbucket.org/tastebringers/backend/ledger"
	"bitbucket.org/tastebringers/backend/logger"
	"bitbucket.org/tastebringers/backend/middlewares"
	"github.com/gorilla/mux"
	"github.com/joeshaw/envdecode"
	"github.com/pkg/errors"
	"github.com/rs/cors"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/negroni"
)

func recoveryHandler(w http.ResponseWriter, r *http.Request, next http.HandlerFunc) {
	defer func() {
		if err := recover(); err != nil {
			entry := logger.FromContext(r.Context())
			entry.WithField("panic", err).Error("recovered from panic")
			middlewares.NewResponseWriter(w, entry).Error(http.StatusInternalServerError, "internal server error")
		}
	}()
	next(w, r)
}

type AppHandlerFunc func(*config.AppContext, *middlewares.ResponseWriter, *http.Request)

type AppHandler struct {
	Context     *config.AppContext
	HandlerFunc AppHandlerFunc
}

func (a *AppHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rw := middlewares.NewResponseWriter(w, logger.FromContext(r.Context()))
	rw.GetRequestLanguage(r)
	a.HandlerFunc(a.Context, rw, r)
}

type Route struct {
	Path        string
	Handler     AppHandlerFunc
	Methods     []string
	IsProtected bool
}

func NewRouter(ctx *config.AppContext, routes []*Route) *mux.Router {
	router := mux.NewRouter()
	for _, r := range routes {
		handler := &AppHandler{Context: ctx, HandlerFunc: r.Handler}
		if r.IsProtected {
			router.Handle(r.Path, negroni.New(
				negroni.HandlerFunc(middlewares.NewJWTMiddleware([]byte(ctx.Config.JWTSecret)).HandlerNext),
				negroni.Wrap(handler),
			)).Methods(r.Methods...)
			continue
		}
		router.Handle(r.Path, handler).Methods(r.Methods...)
	}
	return router
}

// NewHandler wraps the routes with the middleware stack every request goes
// through.
func NewHandler(ctx *config.AppContext, routes []*Route) http.Handler {
	n := negroni.New()
	c := cors.New(cors.Options{
		AllowedOrigins: ctx.Config.AllowedOrigins(),
		AllowedMethods: []string{"GET", "POST", "DELETE", "PUT", "PATCH", "HEAD"},
		AllowedHeaders: []string{"Origin", "X-Requested-With", "Content-Type", "Accept", "Accept-Language", "Authorization", "X-Request-ID"},
	})
	n.Use(c)
	n.Use(negroni.HandlerFunc(middlewares.LoggerRequest))
	n.UseFunc(recoveryHandler)
	n.Use(middlewares.UserMiddleware())
	n.UseHandler(NewRouter(ctx, routes))
	return n
}

func GetAppContext() *ContextWrapper {
	var conf config.Configuration
	if err := envdecode.Decode(&conf); err != nil {
		log.WithError(err).Fatal("could not load the app configuration")
	}
	logger.Setup(conf.LogLevel)

	context := &config.AppContext{
		Config: conf,
	}

	contextWrapper := ContextWrapper{
		Context: context,
	}

	return &contextWrapper
}

type ContextWrapper struct {
	Context *config.AppContext
}

func (wrapper *ContextWrapper) CreateSQLConnection() {
	conn, err := config.CreateConnectionSQL(wrapper.Context.Config.SQL)
	if err != nil {
		log.WithError(err).Fatal("failed to connect to the database")
	}
	conn.SetConnMaxLifetime(time.Minute * 5)
	wrapper.Context.SQLConn = conn
	wrapper.Context.DB, err = db.New(conn)
	if err != nil {
		log.WithFields(log.Fields{
			"error":  err,
			"driver": wrapper.Context.Config.SQL.Driver,
		}).Fatal("failed to ping the database")
	}
}

func (wrapper *ContextWrapper) CreateLedger() {
	threshold, err := wrapper.Context.Config.Threshold()
	if err != nil {
		log.WithError(err).Fatal("invalid ledger configuration")
	}
	if wrapper.Context.DB == nil {
		log.Fatal(errors.Errorf("ledger needs a database connection"))
	}

	wrapper.Context.Ledger = ledger.New(wrapper.Context.DB, ledger.NewIssuer(threshold))
	wrapper.Context.Tickets = ledger.NewTickets(wrapper.Context.DB)
	log.WithField("settlement_threshold", threshold.String()).Info("ledger ready")
}

func (wrapper *ContextWrapper) CreateSMTPConnection() {
	wrapper.Context.AwsSMTP = config.CreateNewConnectionSMTP(wrapper.Context.Config.AwsSMTP)
	if wrapper.Context.AwsSMTP == nil {
		log.Info("SMTP_HOST not set, receipts will not be mailed")
	}
}

func (wrapper *ContextWrapper) CreateNewSessionS3() {
	if wrapper.Context.Config.AwsS3.S3Bucket == "" {
		log.Info("S3_BUCKET not set, receipts will not be uploaded")
		return
	}
	session, err := config.CreateNewSessionS3(wrapper.Context.Config.AwsS3)
	if err != nil {
		log.Fatal(errors.Errorf("failed to create new session s3 - %s", err.Error()))
	}
	if session == nil {
		log.Fatal(errors.Errorf("nil session s3"))
	}
	wrapper.Context.AwsS3 = session
}

func UpServer(routes []*Route, wrapper *ContextWrapper) {
	server := createServer(wrapper.Context, routes)

	if wrapper.Context.SQLConn != nil {
		defer wrapper.Context.SQLConn.Close()
	}

	log.Info("Environment " + wrapper.Context.Config.Environment)
	log.Info("Listening on " + server.Addr)

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.WithError(err).Error("server stopped")
	}
}

func createServer(context *config.AppContext, routes []*Route) *http.Server {
	return &http.Server{
		Addr:         fmt.Sprintf(":%d", context.Config.Port),
		ReadTimeout:  time.Duration(context.Config.Timeout) * time.Second,
		WriteTimeout: time.Duration(context.Config.Timeout) * time.Second,
		Handler:      NewHandler(context, routes),
	}
}
