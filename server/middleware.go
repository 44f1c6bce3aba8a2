package server

import (
	"context"
	"net/http"
	"runtime/debug"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/securedrop/trustchain/shared/http/util"
	tcutil "github.com/securedrop/trustchain/util"
)

// RequestMiddleware enriches the request context with a request ID and the HTTP log source
type RequestMiddleware struct{}

// NewRequestMiddleware instance constructor
func NewRequestMiddleware() *RequestMiddleware {
	return &RequestMiddleware{}
}

// Handler method of the middleware which enriches context with requestID
func (a *RequestMiddleware) Handler(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		//nolint
		ctx := context.WithValue(r.Context(), tcutil.LogSourceKey, tcutil.HTTPSource)

		reqID := uuid.New().String()
		//nolint
		ctx = context.WithValue(ctx, tcutil.RequestIDKey, reqID)
		w.Header().Set("X-Request-Id", reqID)

		h.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RecoveryMiddleware answers KO instead of dropping the connection when a handler panics
func RecoveryMiddleware(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if p := recover(); p != nil {
				log.WithContext(r.Context()).Errorf("panic serving %s %s: %v\n%s", r.Method, r.URL.Path, p, debug.Stack())
				util.WriteStatus(r.Context(), w, false)
			}
		}()
		h.ServeHTTP(w, r)
	})
}
