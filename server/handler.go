package server

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	log "github.com/sirupsen/logrus"

	"github.com/securedrop/trustchain/shared/http/util"
	"github.com/securedrop/trustchain/store"
	"github.com/securedrop/trustchain/submission"
	"github.com/securedrop/trustchain/telemetry"
)

const maxSubmissionBodySize = 64 * 1024

// Submitter validates and stores a journalist key submission
type Submitter interface {
	Submit(ctx context.Context, req submission.Request) (*store.Journalist, error)
}

type apiHandler struct {
	Router      *mux.Router
	Submitter   Submitter
	RateLimiter *RateLimiter
}

// APIHandler creates the HTTP API handler registering all the available endpoints.
// appMetrics and rateLimiter may be nil.
func APIHandler(submitter Submitter, appMetrics telemetry.AppMetrics, rateLimiter *RateLimiter) (http.Handler, error) {
	corsMiddleware := cors.AllowAll()
	requestMiddleware := NewRequestMiddleware()

	router := mux.NewRouter()

	var metricsMiddleware *telemetry.HTTPMiddleware
	if appMetrics != nil {
		metricsMiddleware = appMetrics.HTTPMiddleware()
	}

	if metricsMiddleware != nil {
		router.Use(requestMiddleware.Handler, metricsMiddleware.Handler, corsMiddleware.Handler, RecoveryMiddleware)
	} else {
		router.Use(requestMiddleware.Handler, corsMiddleware.Handler, RecoveryMiddleware)
	}

	api := apiHandler{
		Router:      router,
		Submitter:   submitter,
		RateLimiter: rateLimiter,
	}

	api.addStatusEndpoint()
	api.addJournalistsEndpoint()

	if metricsMiddleware == nil {
		return router, nil
	}

	err := api.Router.Walk(func(route *mux.Route, _ *mux.Router, _ []*mux.Route) error {
		methods, err := route.GetMethods()
		if err != nil {
			return err
		}
		for _, method := range methods {
			template, err := route.GetPathTemplate()
			if err != nil {
				return err
			}
			err = metricsMiddleware.AddHTTPRequestResponseCounter(template, method)
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return router, nil
}

func (apiHandler *apiHandler) addStatusEndpoint() {
	apiHandler.Router.HandleFunc("/", apiHandler.getStatus).Methods("GET", "OPTIONS")
}

func (apiHandler *apiHandler) addJournalistsEndpoint() {
	var handler http.Handler = http.HandlerFunc(apiHandler.createJournalist)
	if apiHandler.RateLimiter != nil {
		handler = apiHandler.RateLimiter.Middleware(handler)
	}
	apiHandler.Router.Handle("/journalists", handler).Methods("POST", "OPTIONS")
}

func (apiHandler *apiHandler) getStatus(w http.ResponseWriter, r *http.Request) {
	util.WriteStatus(r.Context(), w, true)
}

// createJournalist answers OK only when the submitted keys were verified and stored. Every
// failure, including an unparsable body, is answered with KO and status 200.
func (apiHandler *apiHandler) createJournalist(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req submission.Request
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxSubmissionBodySize))
	if err := decoder.Decode(&req); err != nil {
		log.WithContext(ctx).Warnf("couldn't parse submission body: %v", err)
		util.WriteStatus(ctx, w, false)
		return
	}

	_, err := apiHandler.Submitter.Submit(ctx, req)
	util.WriteStatus(ctx, w, err == nil)
}
