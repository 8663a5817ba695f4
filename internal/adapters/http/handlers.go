package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"gitlab.com/timkado/api/accessibility-finder-service/internal/adapters/config"
	"gitlab.com/timkado/api/accessibility-finder-service/internal/domain"
)

const maxRequestBodyBytes = 1 << 16

// SearchAPI is the application boundary served over HTTP.
type SearchAPI interface {
	Geocode(ctx context.Context, query string) (domain.GeocodeResult, error)
	Search(ctx context.Context, req domain.SearchRequest) ([]domain.PlaceResult, error)
	SearchByText(ctx context.Context, query, category string) ([]domain.PlaceResult, error)
	ListCategories() []domain.CategoryDefinition
}

// ReadinessChecker reports whether an optional dependency is reachable.
type ReadinessChecker interface {
	Name() string
	Ping(ctx context.Context) error
}

// GeocodeResponse is the body of GET /api/geocode.
type GeocodeResponse struct {
	Query       string  `json:"query"`
	Lat         float64 `json:"lat"`
	Lon         float64 `json:"lon"`
	DisplayName string  `json:"display_name"`
}

// TextSearchRequest is the payload of the legacy POST /search endpoint.
type TextSearchRequest struct {
	Query    string `json:"query"`
	Category string `json:"category"`
}

// NewRouter registers every route on a fresh mux.
func NewRouter(api SearchAPI, cfgProvider config.Provider, logger domain.Logger, checkers ...ReadinessChecker) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/", RootHandler(cfgProvider, logger))
	mux.HandleFunc("/health", HealthHandler(logger))
	mux.HandleFunc("/ready", ReadyHandler(logger, checkers...))
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/api/categories", CategoriesHandler(api, logger))
	mux.HandleFunc("/api/geocode", GeocodeHandler(api, logger))
	mux.HandleFunc("/api/search", SearchHandler(api, cfgProvider, logger))
	mux.HandleFunc("/search", TextSearchHandler(api, logger))
	return mux
}

// RootHandler describes the running service.
func RootHandler(cfgProvider config.Provider, logger domain.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			domain.NewErrorResponse(domain.ErrCodeNotFound, "Route not found", r.URL.Path).WriteJSON(w, http.StatusNotFound)
			return
		}
		if !allowMethod(w, r, logger, http.MethodGet) {
			return
		}
		app := cfgProvider.Get().App
		writeJSON(w, r, logger, http.StatusOK, map[string]any{"ok": true, "service": app.ServiceName, "version": app.Version})
	}
}

// HealthHandler is the liveness probe.
func HealthHandler(logger domain.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, r, logger, http.StatusOK, map[string]bool{"ok": true})
	}
}

// ReadyHandler pings each configured dependency and answers 503 if any fails.
func ReadyHandler(logger domain.Logger, checkers ...ReadinessChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := http.StatusOK
		deps := make(map[string]string, len(checkers))
		for _, c := range checkers {
			if err := c.Ping(r.Context()); err != nil {
				logger.Warn(r.Context(), "Readiness check failed", "dependency", c.Name(), "error", err.Error())
				deps[c.Name()] = "unavailable"
				status = http.StatusServiceUnavailable
				continue
			}
			deps[c.Name()] = "ok"
		}
		writeJSON(w, r, logger, status, map[string]any{"ok": status == http.StatusOK, "dependencies": deps})
	}
}

// CategoriesHandler lists the built-in category names.
func CategoriesHandler(api SearchAPI, logger domain.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !allowMethod(w, r, logger, http.MethodGet) {
			return
		}
		defs := api.ListCategories()
		names := make([]string, len(defs))
		for i, def := range defs {
			names[i] = def.Name
		}
		writeJSON(w, r, logger, http.StatusOK, map[string][]string{"categories": names})
	}
}

// GeocodeHandler serves GET /api/geocode?q=.
func GeocodeHandler(api SearchAPI, logger domain.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !allowMethod(w, r, logger, http.MethodGet) {
			return
		}
		q := r.URL.Query().Get("q")
		res, err := api.Geocode(r.Context(), q)
		if err != nil {
			writeError(w, r, logger, err)
			return
		}
		writeJSON(w, r, logger, http.StatusOK, GeocodeResponse{
			Query:       q,
			Lat:         res.Point.Lat,
			Lon:         res.Point.Lon,
			DisplayName: res.DisplayName,
		})
	}
}

// SearchHandler serves GET /api/search.
func SearchHandler(api SearchAPI, cfgProvider config.Provider, logger domain.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !allowMethod(w, r, logger, http.MethodGet) {
			return
		}
		req, err := parseSearchRequest(r, cfgProvider.Get().Search.DefaultLimit)
		if err != nil {
			writeError(w, r, logger, err)
			return
		}
		places, err := api.Search(r.Context(), req)
		if err != nil {
			writeError(w, r, logger, err)
			return
		}
		writeJSON(w, r, logger, http.StatusOK, places)
	}
}

// TextSearchHandler serves the legacy POST /search endpoint.
func TextSearchHandler(api SearchAPI, logger domain.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !allowMethod(w, r, logger, http.MethodPost) {
			return
		}
		defer r.Body.Close()

		var payload TextSearchRequest
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)).Decode(&payload); err != nil {
			writeError(w, r, logger, fmt.Errorf("%w: invalid request payload: %v", domain.ErrInvalidInput, err))
			return
		}
		if strings.TrimSpace(payload.Category) == "" {
			writeError(w, r, logger, fmt.Errorf("%w: category is required", domain.ErrInvalidInput))
			return
		}
		places, err := api.SearchByText(r.Context(), payload.Query, payload.Category)
		if err != nil {
			writeError(w, r, logger, err)
			return
		}
		writeJSON(w, r, logger, http.StatusOK, places)
	}
}

func parseSearchRequest(r *http.Request, defaultLimit int) (domain.SearchRequest, error) {
	q := r.URL.Query()
	var req domain.SearchRequest
	var err error

	if req.Origin.Lat, err = requiredFloat(q.Get("lat"), "lat"); err != nil {
		return req, err
	}
	if req.Origin.Lon, err = requiredFloat(q.Get("lon"), "lon"); err != nil {
		return req, err
	}
	req.Category = q.Get("category")
	if strings.TrimSpace(req.Category) == "" {
		return req, fmt.Errorf("%w: category is required", domain.ErrInvalidInput)
	}
	if req.RadiusM, err = optionalInt(q.Get("radius_m"), "radius_m", 0); err != nil {
		return req, err
	}
	if req.Limit, err = optionalInt(q.Get("limit"), "limit", defaultLimit); err != nil {
		return req, err
	}

	if v := q.Get("wheelchair"); v != "" {
		status, err := domain.ParseWheelchairStatus(v)
		if err != nil {
			return req, err
		}
		req.Filters.Wheelchair = &status
	}
	if v := q.Get("toilets_wheelchair"); v != "" {
		status, err := domain.ParseToiletsStatus(v)
		if err != nil {
			return req, err
		}
		req.Filters.ToiletsWheelchair = &status
	}
	if v := q.Get("step_free"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return req, fmt.Errorf("%w: step_free must be a boolean, got %q", domain.ErrInvalidInput, v)
		}
		req.Filters.StepFree = &b
	}
	return req, nil
}

func requiredFloat(raw, name string) (float64, error) {
	if raw == "" {
		return 0, fmt.Errorf("%w: %s is required", domain.ErrInvalidInput, name)
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be a number, got %q", domain.ErrInvalidInput, name, raw)
	}
	return v, nil
}

func optionalInt(raw, name string, fallback int) (int, error) {
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer, got %q", domain.ErrInvalidInput, name, raw)
	}
	return v, nil
}

func allowMethod(w http.ResponseWriter, r *http.Request, logger domain.Logger, method string) bool {
	if r.Method == method {
		return true
	}
	logger.Warn(r.Context(), "Method not allowed", "method", r.Method, "path", r.URL.Path)
	w.Header().Set("Allow", method)
	domain.NewErrorResponse(domain.ErrCodeMethodNotAllowed, "Method not allowed", "Only "+method+" is allowed.").WriteJSON(w, http.StatusMethodNotAllowed)
	return false
}

func writeError(w http.ResponseWriter, r *http.Request, logger domain.Logger, err error) {
	code := domain.ErrorCodeFor(err)
	status := domain.HTTPStatusFor(code)
	if status >= http.StatusInternalServerError {
		logger.Error(r.Context(), "Request failed", "path", r.URL.Path, "error", err.Error())
	} else {
		logger.Info(r.Context(), "Request rejected", "path", r.URL.Path, "code", string(code), "error", err.Error())
	}
	domain.NewErrorResponse(code, errorMessage(err), err.Error()).WriteJSON(w, status)
}

func errorMessage(err error) string {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		return "Invalid request"
	case errors.Is(err, domain.ErrNotSupportedCategory):
		return "Unsupported category"
	case errors.Is(err, domain.ErrNotFound):
		return "Location not found"
	case errors.Is(err, domain.ErrUpstream):
		return "Upstream provider error"
	default:
		return "Internal server error"
	}
}

func writeJSON(w http.ResponseWriter, r *http.Request, logger domain.Logger, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Error(r.Context(), "Failed to write JSON response", "path", r.URL.Path, "error", err.Error())
	}
}
