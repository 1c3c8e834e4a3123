package http

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/couchcryptid/venue-map/internal/domain"
	"github.com/couchcryptid/venue-map/internal/observability"
)

const maxRequestBytes = 1 << 16

type searchRequest struct {
	Lat    *float64 `json:"lat"`
	Lng    *float64 `json:"lng"`
	Radius int      `json:"radius"`
	Type   string   `json:"type"`
}

type searchResponse struct {
	Places []domain.Place `json:"places"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type placesHandler struct {
	places  PlaceSearcher
	metrics *observability.Metrics
	logger  *slog.Logger
}

func (h *placesHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxRequestBytes)).Decode(&req); err != nil {
		h.fail(w, "bad_request", http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Lat == nil || req.Lng == nil {
		h.fail(w, "bad_request", http.StatusBadRequest, "lat and lng are required")
		return
	}

	q := domain.GeoQuery{Lat: *req.Lat, Lng: *req.Lng, RadiusMeters: req.Radius, Categories: req.Type}.WithDefaults()
	if err := q.Validate(); err != nil {
		h.fail(w, "bad_request", http.StatusBadRequest, err.Error())
		return
	}

	places, err := h.places.SearchPlaces(r.Context(), q)
	if err != nil {
		outcome, status := classify(err)
		h.logger.Warn("places search failed",
			"outcome", outcome,
			"lat", q.Lat,
			"lng", q.Lng,
			"radius", q.RadiusMeters,
			"error", err,
		)
		h.fail(w, outcome, status, err.Error())
		return
	}
	if places == nil {
		places = []domain.Place{}
	}

	h.count("success")
	writeJSON(w, http.StatusOK, searchResponse{Places: places})
}

// classify maps provider failures onto a metric outcome and HTTP status.
func classify(err error) (string, int) {
	var perr *domain.ProviderError
	var nerr *domain.NetworkError
	switch {
	case errors.Is(err, domain.ErrProviderUnavailable):
		return "unavailable", http.StatusServiceUnavailable
	case errors.As(err, &perr):
		return "provider_error", http.StatusBadGateway
	case errors.As(err, &nerr):
		return "network_error", http.StatusBadGateway
	default:
		return "provider_error", http.StatusInternalServerError
	}
}

func (h *placesHandler) fail(w http.ResponseWriter, outcome string, status int, msg string) {
	h.count(outcome)
	writeJSON(w, status, errorResponse{Error: msg})
}

func (h *placesHandler) count(outcome string) {
	if h.metrics != nil {
		h.metrics.ProxyRequests.WithLabelValues(outcome).Inc()
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // client may have gone away
}
