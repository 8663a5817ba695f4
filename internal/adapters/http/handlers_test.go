package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"gitlab.com/timkado/api/accessibility-finder-service/benchmarks/mocks"
	"gitlab.com/timkado/api/accessibility-finder-service/internal/domain"
)

type fakeSearchAPI struct {
	geocode    domain.GeocodeResult
	places     []domain.PlaceResult
	err        error
	lastSearch domain.SearchRequest
	lastText   [2]string
}

func (f *fakeSearchAPI) Geocode(ctx context.Context, query string) (domain.GeocodeResult, error) {
	return f.geocode, f.err
}

func (f *fakeSearchAPI) Search(ctx context.Context, req domain.SearchRequest) ([]domain.PlaceResult, error) {
	f.lastSearch = req
	return f.places, f.err
}

func (f *fakeSearchAPI) SearchByText(ctx context.Context, query, category string) ([]domain.PlaceResult, error) {
	f.lastText = [2]string{query, category}
	return f.places, f.err
}

func (f *fakeSearchAPI) ListCategories() []domain.CategoryDefinition {
	return []domain.CategoryDefinition{{Name: "atm"}, {Name: "cafe"}}
}

type fakeChecker struct{ err error }

func (c fakeChecker) Name() string                   { return "redis" }
func (c fakeChecker) Ping(ctx context.Context) error { return c.err }

func serve(t *testing.T, api SearchAPI, method, target, body string, checkers ...ReadinessChecker) *httptest.ResponseRecorder {
	t.Helper()
	router := NewRouter(api, mocks.NewMockConfigProvider(), mocks.NewMockLogger(), checkers...)
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) domain.ErrorResponse {
	t.Helper()
	var er domain.ErrorResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &er); err != nil {
		t.Fatalf("error body is not JSON: %q", rr.Body.String())
	}
	return er
}

func TestRootAndHealth(t *testing.T) {
	api := &fakeSearchAPI{}

	rr := serve(t, api, http.MethodGet, "/", "")
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), `"service":"accessibility-finder-test"`) {
		t.Errorf("GET / = %d %s", rr.Code, rr.Body.String())
	}
	if rr := serve(t, api, http.MethodGet, "/health", ""); rr.Code != http.StatusOK || strings.TrimSpace(rr.Body.String()) != `{"ok":true}` {
		t.Errorf("GET /health = %d %s", rr.Code, rr.Body.String())
	}
	if rr := serve(t, api, http.MethodGet, "/nope", ""); rr.Code != http.StatusNotFound {
		t.Errorf("GET /nope = %d", rr.Code)
	}
}

func TestReady(t *testing.T) {
	api := &fakeSearchAPI{}
	if rr := serve(t, api, http.MethodGet, "/ready", "", fakeChecker{}); rr.Code != http.StatusOK {
		t.Errorf("ready = %d %s", rr.Code, rr.Body.String())
	}
	rr := serve(t, api, http.MethodGet, "/ready", "", fakeChecker{err: errors.New("dial tcp: refused")})
	if rr.Code != http.StatusServiceUnavailable || !strings.Contains(rr.Body.String(), `"redis":"unavailable"`) {
		t.Errorf("not ready = %d %s", rr.Code, rr.Body.String())
	}
}

func TestCategories(t *testing.T) {
	rr := serve(t, &fakeSearchAPI{}, http.MethodGet, "/api/categories", "")
	if rr.Code != http.StatusOK || strings.TrimSpace(rr.Body.String()) != `{"categories":["atm","cafe"]}` {
		t.Errorf("GET /api/categories = %d %s", rr.Code, rr.Body.String())
	}
}

func TestGeocode(t *testing.T) {
	api := &fakeSearchAPI{geocode: domain.GeocodeResult{Point: domain.GeoPoint{Lat: 40.758, Lon: -73.9855}, DisplayName: "Times Square"}}

	rr := serve(t, api, http.MethodGet, "/api/geocode?q=Times+Square", "")
	var got GeocodeResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &got); err != nil || rr.Code != http.StatusOK {
		t.Fatalf("GET /api/geocode = %d %s", rr.Code, rr.Body.String())
	}
	if got.Query != "Times Square" || got.Lat != 40.758 || got.DisplayName != "Times Square" {
		t.Errorf("response = %+v", got)
	}
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   domain.ErrorCode
	}{
		{fmt.Errorf("%w: short", domain.ErrInvalidInput), http.StatusBadRequest, domain.ErrCodeInvalidInput},
		{fmt.Errorf("%w: spaceport", domain.ErrNotSupportedCategory), http.StatusBadRequest, domain.ErrCodeNotSupportedCategory},
		{fmt.Errorf("%w: nothing", domain.ErrNotFound), http.StatusNotFound, domain.ErrCodeNotFound},
		{fmt.Errorf("%w: 504", domain.ErrUpstream), http.StatusBadGateway, domain.ErrCodeUpstream},
		{errors.New("boom"), http.StatusInternalServerError, domain.ErrCodeInternal},
	}
	for _, tt := range tests {
		rr := serve(t, &fakeSearchAPI{err: tt.err}, http.MethodGet, "/api/geocode?q=somewhere", "")
		if rr.Code != tt.status {
			t.Errorf("%v: status = %d, want %d", tt.err, rr.Code, tt.status)
		}
		if er := decodeError(t, rr); er.Code != tt.code {
			t.Errorf("%v: code = %s, want %s", tt.err, er.Code, tt.code)
		}
	}
}

func TestSearch_ParsesParameters(t *testing.T) {
	api := &fakeSearchAPI{places: []domain.PlaceResult{{Name: "Ramp Roasters", DistanceM: 106, OSMID: 101, OSMType: domain.OSMNode, Category: "cafe"}}}

	rr := serve(t, api, http.MethodGet, "/api/search?lat=40.758&lon=-73.9855&category=cafe&radius_m=800&limit=10&wheelchair=YES&toilets_wheelchair=unknown&step_free=true", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d %s", rr.Code, rr.Body.String())
	}
	req := api.lastSearch
	if req.Origin.Lat != 40.758 || req.Origin.Lon != -73.9855 || req.Category != "cafe" || req.RadiusM != 800 || req.Limit != 10 {
		t.Errorf("parsed request = %+v", req)
	}
	if *req.Filters.Wheelchair != domain.WheelchairYes || *req.Filters.ToiletsWheelchair != domain.ToiletsUnknown || !*req.Filters.StepFree {
		t.Errorf("parsed filters = %+v", req.Filters)
	}

	var places []domain.PlaceResult
	if err := json.Unmarshal(rr.Body.Bytes(), &places); err != nil || len(places) != 1 || places[0].DistanceM != 106 {
		t.Errorf("body = %s", rr.Body.String())
	}
}

func TestSearch_Defaults(t *testing.T) {
	api := &fakeSearchAPI{places: []domain.PlaceResult{}}
	rr := serve(t, api, http.MethodGet, "/api/search?lat=1&lon=2&category=cafe", "")
	if rr.Code != http.StatusOK || strings.TrimSpace(rr.Body.String()) != "[]" {
		t.Errorf("status = %d body = %s", rr.Code, rr.Body.String())
	}
	if api.lastSearch.Limit != 20 || api.lastSearch.RadiusM != 0 {
		t.Errorf("defaults = %+v", api.lastSearch)
	}
}

func TestSearch_RejectsBadParameters(t *testing.T) {
	for _, target := range []string{
		"/api/search?lon=2&category=cafe",
		"/api/search?lat=north&lon=2&category=cafe",
		"/api/search?lat=1&lon=2",
		"/api/search?lat=1&lon=2&category=cafe&limit=ten",
		"/api/search?lat=1&lon=2&category=cafe&wheelchair=maybe",
		"/api/search?lat=1&lon=2&category=cafe&toilets_wheelchair=limited",
		"/api/search?lat=1&lon=2&category=cafe&step_free=perhaps",
	} {
		api := &fakeSearchAPI{}
		rr := serve(t, api, http.MethodGet, target, "")
		if rr.Code != http.StatusBadRequest || decodeError(t, rr).Code != domain.ErrCodeInvalidInput {
			t.Errorf("%s: status = %d %s", target, rr.Code, rr.Body.String())
		}
		if api.lastSearch.Category != "" {
			t.Errorf("%s: search was called", target)
		}
	}
}

func TestTextSearch(t *testing.T) {
	api := &fakeSearchAPI{places: []domain.PlaceResult{}}

	rr := serve(t, api, http.MethodPost, "/search", `{"query":"Times Square","category":"cafe"}`)
	if rr.Code != http.StatusOK || api.lastText != [2]string{"Times Square", "cafe"} {
		t.Errorf("POST /search = %d, got %v", rr.Code, api.lastText)
	}

	if rr := serve(t, api, http.MethodPost, "/search", `{not json`); rr.Code != http.StatusBadRequest {
		t.Errorf("bad payload status = %d", rr.Code)
	}
	if rr := serve(t, api, http.MethodGet, "/search", ""); rr.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET /search status = %d", rr.Code)
	}
}
