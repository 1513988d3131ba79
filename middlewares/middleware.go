package middlewares

import (
	"context"
	"net/http"
	"strings"

	"bitbucket.org/tastebringers/backend/db"
	"bitbucket.org/tastebringers/backend/helpers"
	"bitbucket.org/tastebringers/backend/logger"
	"bitbucket.org/tastebringers/backend/models"
	"github.com/dgrijalva/jwt-go"
	"github.com/google/uuid"
	jwtmiddleware "github.com/mfuentesg/go-jwtmiddleware"
	"github.com/mitchellh/mapstructure"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/negroni"
)

func jwtErrorHandler(w http.ResponseWriter, r *http.Request, err error) {
	rw := NewResponseWriter(w, logger.FromContext(r.Context()))
	if err.Error() == "Token is expired" {
		rw.Error(http.StatusUnauthorized, "unauthorized", WithErrorScope("token"), WithErrorType(1))
		return
	}
	if err != nil {
		rw.Error(http.StatusUnauthorized, "unauthorized", WithErrorScope("token"))
	}
}

func NewJWTMiddleware(secret []byte) *jwtmiddleware.Middleware {
	return jwtmiddleware.New(
		jwtmiddleware.WithErrorHandler(jwtErrorHandler),
		jwtmiddleware.WithSigningMethod(jwt.SigningMethodHS256),
		jwtmiddleware.WithSignKey(secret),
		jwtmiddleware.WithUserProperty("_jwt-token"),
	)
}

// LoggerRequest puts a request scoped log entry in the context. The request id
// comes from X-Request-ID or is generated.
func LoggerRequest(rw http.ResponseWriter, r *http.Request, next http.HandlerFunc) {
	requestID := r.Header.Get("X-Request-ID")
	if requestID == "" {
		requestID = uuid.New().String()
	}
	rw.Header().Set("X-Request-ID", requestID)

	requestLogger := log.WithFields(log.Fields{
		"request_id": requestID,
		"method":     r.Method,
		"query":      r.URL.Query(),
		"host":       r.Host,
		"url":        r.URL.Path,
	})
	requestLogger.Info("logger_request")
	next(rw, r.WithContext(logger.NewContext(r.Context(), requestLogger)))
}

func UserMiddleware() negroni.HandlerFunc {
	return negroni.HandlerFunc(func(rw http.ResponseWriter, r *http.Request, next http.HandlerFunc) {
		authorization := r.Header.Get("Authorization")
		if len(authorization) == 0 {
			authorization = r.URL.Query().Get("token")
			r.Header.Set("Authorization", authorization)
		}
		token := strings.Split(authorization, " ")
		if len(token) == 2 {
			tokenString := token[1]
			data, _ := helpers.ParserTokenUnverified(tokenString)
			tokenParse, ok := data["u"].(map[string]interface{})
			if ok {
				id := tokenParse["i"]
				roles := tokenParse["r"]
				read := tokenParse["read"]
				email := tokenParse["email"]
				dataInfo := models.InfoUser{}
				_data := map[string]interface{}{
					"ID":    id,
					"Roles": roles,
					"Read":  read,
				}
				mapstructure.WeakDecode(_data, &dataInfo)
				isAdmin := helpers.Contains(dataInfo.Roles, db.ConstRoles.Admin)
				isCashier := helpers.Contains(dataInfo.Roles, db.ConstRoles.Cashier)
				user := map[string]interface{}{
					"Email":     email,
					"ID":        dataInfo.ID,
					"IsAdmin":   isAdmin,
					"IsCashier": isCashier,
					"Read":      dataInfo.Read,
					"Roles":     dataInfo.Roles,
				}
				if r.Method != http.MethodGet && dataInfo.Read {
					NewResponseWriter(rw, logger.FromContext(r.Context())).Error(http.StatusUnauthorized, "unauthorized", WithErrorScope("token"))
					return
				}
				if !isAdmin && !isCashier && !dataInfo.Read {
					NewResponseWriter(rw, logger.FromContext(r.Context())).Error(http.StatusUnauthorized, "unauthorized", WithErrorScope("token"))
					return
				}
				ctx := context.WithValue(r.Context(), string("user"), user)
				next(rw, r.WithContext(ctx))
				return
			}
		}
		next(rw, r)
	})
}
