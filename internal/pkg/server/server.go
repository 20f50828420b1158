package server

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/anicoll/microtemp-integration/internal/pkg/model"
)

type gatewayService interface {
	Len() int
	Snapshot() []model.Thermostat
}

type server struct {
	gateway gatewayService
	logger  *zap.Logger
}

func New(gw gatewayService) *server {
	return &server{gateway: gw, logger: zap.L()}
}

// Handler returns the status endpoint mux.
func (s *server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.getHealth)
	mux.HandleFunc("GET /thermostats", s.getThermostats)
	return LoggingMiddleware(mux)
}

func (s *server) getHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{
		"status":      "ok",
		"thermostats": s.gateway.Len(),
	})
}

func (s *server) getThermostats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.gateway.Snapshot())
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		w.WriteHeader(http.StatusInternalServerError)
	}
}
