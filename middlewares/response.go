package middlewares

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"golang.org/x/text/language"
)

var languageMatcher = language.NewMatcher([]language.Tag{language.Spanish, language.English})

type ResponseWriter struct {
	Writer   http.ResponseWriter
	Logger   *log.Entry
	Language string
}

func NewResponseWriter(w http.ResponseWriter, logger *log.Entry) *ResponseWriter {
	return &ResponseWriter{
		Writer:   w,
		Logger:   logger,
		Language: Language.Spanish,
	}
}

type generalResponse struct {
	Errors  []*errorResponse `json:"errors"`
	Success bool             `json:"success"`
	Data    interface{}      `json:"data"`
}

type errorResponse struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Scope   string      `json:"scope"`
	Type    int         `json:"type"`
	Data    interface{} `json:"data"`
}

type ErrOption func(*errorResponse)

func WithErrorType(errType int) ErrOption {
	return func(err *errorResponse) {
		err.Type = errType
	}
}

func WithErrorScope(scope string) ErrOption {
	return func(err *errorResponse) {
		err.Scope = scope
	}
}

func (r *ResponseWriter) logger() *log.Entry {
	if r.Logger == nil {
		return log.NewEntry(log.StandardLogger())
	}
	return r.Logger
}

// GetRequestLanguage picks the response language from Accept-Language.
func (r *ResponseWriter) GetRequestLanguage(req *http.Request) {
	tag, _ := language.MatchStrings(languageMatcher, req.Header.Get("Accept-Language"))
	base, _ := tag.Base()
	r.Language = base.String()
}

func (r *ResponseWriter) writeJSONResponse(code int, errors []*errorResponse, data interface{}) {
	response := &generalResponse{Errors: errors, Success: errors == nil, Data: data}
	r.writePlainJSONResponse(code, response)
}

func (r *ResponseWriter) writePlainJSONResponse(statusCode int, data interface{}) {
	b, err := json.Marshal(data)
	if err != nil {
		r.logger().WithError(err).Error("failed marshaling response")
		r.Writer.WriteHeader(http.StatusInternalServerError)
		r.Writer.Write([]byte(fmt.Sprintf("unexpected error: %v", err)))
		return
	}

	r.Writer.Header().Set("Content-Type", "application/json; charset=utf-8")
	r.Writer.WriteHeader(statusCode)

	if _, err := r.Writer.Write(b); err != nil {
		r.logger().WithError(err).Warn("could not write response")
	}
}

func (r *ResponseWriter) WriteJSON(statusCode int, data interface{}, err error, message string) {
	fields := make(log.Fields)
	fields["status_code"] = statusCode
	if statusCode >= 200 && statusCode <= 299 {
		r.logger().WithFields(fields).Info("success")
	}
	if statusCode >= 300 {
		if data == nil {
			data = map[string]interface{}{
				"error": message,
			}
		}
		if err == nil {
			err = errors.New(message)
		}
		fields["errors"] = data
		if statusCode >= 500 {
			r.logger().WithFields(fields).Error(err)
		} else {
			r.logger().WithFields(fields).Warn(err)
		}
	}
	r.writePlainJSONResponse(statusCode, data)
}

// Write is WriteJSON with the message translated to the request language.
func (r *ResponseWriter) Write(statusCode int, data interface{}, err error, message *NewRM) {
	r.WriteJSON(statusCode, data, err, message.Get(r.Language))
}

func (r *ResponseWriter) String(code int, msg string) {
	r.Writer.Header().Set("Content-Type", "text/plain; charset=utf-8")
	r.Writer.WriteHeader(code)
	if _, err := r.Writer.Write([]byte(msg)); err != nil {
		r.logger().WithError(err).Warn("could not write response")
	}
}

func (r *ResponseWriter) NoContent() {
	r.logger().WithField("status_code", http.StatusNoContent).Info("success")
	r.Writer.WriteHeader(http.StatusNoContent)
}

func (r *ResponseWriter) Bytes(code int, contentType string, body []byte) {
	r.Writer.Header().Set("Content-Type", contentType)
	r.Writer.WriteHeader(code)
	if _, err := r.Writer.Write(body); err != nil {
		r.logger().WithError(err).Warn("could not write response")
	}
}

func (r *ResponseWriter) Error(code int, msg string, opts ...ErrOption) {
	err := &errorResponse{Code: code, Message: msg}
	for _, With := range opts {
		With(err)
	}
	r.writeJSONResponse(code, []*errorResponse{err}, nil)
}
