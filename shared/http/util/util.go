package util

import (
	"context"
	"encoding/json"
	"net/http"

	log "github.com/sirupsen/logrus"
)

// StatusResponse is the body of every API response
type StatusResponse struct {
	Status string `json:"status"`
}

const (
	StatusOK = "OK"
	StatusKO = "KO"
)

// WriteJSONObject writes an object to the HTTP response in JSON format with status 200.
func WriteJSONObject(ctx context.Context, w http.ResponseWriter, obj interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=UTF-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("X-Frame-Options", "DENY")

	w.WriteHeader(http.StatusOK)
	err := json.NewEncoder(w).Encode(obj)
	if err != nil {
		log.WithContext(ctx).Errorf("failed to encode response: %v", err)
	}
}

// WriteStatus writes {"status": OK} or {"status": KO}
func WriteStatus(ctx context.Context, w http.ResponseWriter, ok bool) {
	s := StatusKO
	if ok {
		s = StatusOK
	}
	WriteJSONObject(ctx, w, &StatusResponse{Status: s})
}
