package locate

import (
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/TomasB/sxgeo/internal/data"
	"github.com/TomasB/sxgeo/internal/sxgeo"
	"github.com/TomasB/sxgeo/internal/sxgeo/sxgeotest"
)

func openCityDB(t *testing.T) data.LocationLookup {
	t.Helper()

	b := sxgeotest.NewCity()
	de := b.AddCountry(map[string]any{
		"id": sxgeo.CountryID("DE"), "iso": "DE", "lat": 51.0, "lon": 9.0,
		"name_ru": "Германия", "name_en": "Germany",
	})
	be := b.AddRegion(map[string]any{
		"id": 2950157, "country_seek": de, "iso": "BE",
		"name_ru": "Берлин", "name_en": "Berlin",
	})
	berlin := b.AddCity(map[string]any{
		"id": 2950159, "region_seek": be, "country_id": sxgeo.CountryID("DE"),
		"lat": 52.52437, "lon": 13.41053, "name_ru": "Берлин", "name_en": "Berlin",
	})
	b.AddRange("5.0.0.0", de).AddRange("6.0.0.0", berlin).AddRange("7.0.0.0", 0)

	path := filepath.Join(t.TempDir(), "SxGeoCity.dat")
	if err := b.WriteFile(path); err != nil {
		t.Fatalf("failed to write database: %v", err)
	}
	reader, err := data.NewSxGeoReader(path, sxgeo.ModeMemory)
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { reader.Close() })
	return reader
}

func setupRouter(lookup data.LocationLookup) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	NewHandler(lookup).Register(r.Group("/api/v1"))
	return r
}

func get(t *testing.T, router *gin.Engine, path string, out any) int {
	t.Helper()

	req, _ := http.NewRequest("GET", path, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if out != nil {
		if err := json.Unmarshal(w.Body.Bytes(), out); err != nil {
			t.Fatalf("failed to decode %s: %v", w.Body.String(), err)
		}
	}
	return w.Code
}

type locationBody struct {
	Kind    string         `json:"kind"`
	City    map[string]any `json:"city"`
	Region  map[string]any `json:"region"`
	Country map[string]any `json:"country"`
}

func TestLocate_City(t *testing.T) {
	router := setupRouter(openCityDB(t))

	var body locationBody
	if code := get(t, router, "/api/v1/locate/6.1.2.3", &body); code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", code)
	}

	if body.Kind != "city" {
		t.Errorf("expected kind city, got %s", body.Kind)
	}
	if body.City["name_en"] != "Berlin" {
		t.Errorf("expected Berlin, got %v", body.City["name_en"])
	}
	if _, ok := body.City["region_seek"]; ok {
		t.Error("region_seek must not be exposed")
	}
	if body.Country["iso"] != "DE" || body.Country["id"] != float64(56) {
		t.Errorf("expected country DE/56, got %v", body.Country)
	}
	if body.Region != nil {
		t.Errorf("expected no region without full, got %v", body.Region)
	}
}

func TestLocate_Full(t *testing.T) {
	router := setupRouter(openCityDB(t))

	var body locationBody
	if code := get(t, router, "/api/v1/locate/6.1.2.3?full=true", &body); code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", code)
	}

	if body.Region["iso"] != "BE" {
		t.Errorf("expected region BE, got %v", body.Region["iso"])
	}
	if _, ok := body.Region["country_seek"]; ok {
		t.Error("country_seek must not be exposed")
	}
	if body.Country["name_en"] != "Germany" {
		t.Errorf("expected Germany, got %v", body.Country["name_en"])
	}
}

func TestLocate_CountryOnly(t *testing.T) {
	router := setupRouter(openCityDB(t))

	var body locationBody
	if code := get(t, router, "/api/v1/locate/5.5.5.5", &body); code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", code)
	}

	if body.Kind != "country" {
		t.Errorf("expected kind country, got %s", body.Kind)
	}
	if body.City["lat"] != 51.0 || body.City["lon"] != 9.0 {
		t.Errorf("expected country coordinates, got %v,%v", body.City["lat"], body.City["lon"])
	}
}

func TestLocate_Errors(t *testing.T) {
	tests := []struct {
		name     string
		lookup   data.LocationLookup
		path     string
		wantCode int
		wantErr  string
	}{
		{
			name:     "invalid ip",
			lookup:   &mockLookup{},
			path:     "/api/v1/locate/not-an-ip",
			wantCode: http.StatusBadRequest,
			wantErr:  "invalid IP address",
		},
		{
			name:     "not found",
			lookup:   &mockLookup{},
			path:     "/api/v1/locate/10.0.0.1",
			wantCode: http.StatusNotFound,
			wantErr:  "location not found",
		},
		{
			name:     "not found full",
			lookup:   &mockLookup{},
			path:     "/api/v1/locate/10.0.0.1?full=1",
			wantCode: http.StatusNotFound,
			wantErr:  "location not found",
		},
		{
			name:     "unsupported",
			lookup:   &mockLookup{err: data.ErrUnsupportedAddress},
			path:     "/api/v1/locate/2001:db8::1",
			wantCode: http.StatusBadRequest,
			wantErr:  "unsupported address family",
		},
		{
			name:     "country database",
			lookup:   &mockLookup{err: fmt.Errorf("city lookup failed: %w", sxgeo.ErrNoCityData)},
			path:     "/api/v1/locate/1.2.3.4",
			wantCode: http.StatusNotImplemented,
			wantErr:  "database has no city data",
		},
		{
			name:     "not loaded",
			lookup:   &mockLookup{err: data.ErrNotLoaded},
			path:     "/api/v1/country/1.2.3.4",
			wantCode: http.StatusServiceUnavailable,
			wantErr:  "database not loaded",
		},
		{
			name:     "backend failure",
			lookup:   &mockLookup{err: fmt.Errorf("read failed")},
			path:     "/api/v1/locate/1.2.3.4?full=true",
			wantCode: http.StatusInternalServerError,
			wantErr:  "lookup failed",
		},
		{
			name:     "country not found",
			lookup:   &mockLookup{},
			path:     "/api/v1/country/1.2.3.4",
			wantCode: http.StatusNotFound,
			wantErr:  "country not found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var body ErrorResponse
			code := get(t, setupRouter(tt.lookup), tt.path, &body)
			if code != tt.wantCode {
				t.Errorf("expected status %d, got %d", tt.wantCode, code)
			}
			if body.Error != tt.wantErr {
				t.Errorf("expected error %q, got %q", tt.wantErr, body.Error)
			}
		})
	}
}

func TestCountry(t *testing.T) {
	router := setupRouter(openCityDB(t))

	tests := []struct {
		ip   string
		want CountryResponse
	}{
		{ip: "5.1.1.1", want: CountryResponse{IP: "5.1.1.1", Country: "DE", ID: 56}},
		{ip: "6.200.0.1", want: CountryResponse{IP: "6.200.0.1", Country: "DE", ID: 56}},
		{ip: "::ffff:6.0.0.1", want: CountryResponse{IP: "6.0.0.1", Country: "DE", ID: 56}},
	}

	for _, tt := range tests {
		t.Run(tt.ip, func(t *testing.T) {
			var got CountryResponse
			if code := get(t, router, "/api/v1/country/"+tt.ip, &got); code != http.StatusOK {
				t.Fatalf("expected status 200, got %d", code)
			}
			if got != tt.want {
				t.Errorf("expected %+v, got %+v", tt.want, got)
			}
		})
	}
}

func TestCountry_IDFromLookup(t *testing.T) {
	router := setupRouter(&mockLookup{country: "DE", id: 250})

	var got CountryResponse
	if code := get(t, router, "/api/v1/country/5.1.1.1", &got); code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", code)
	}
	want := CountryResponse{IP: "5.1.1.1", Country: "DE", ID: 250}
	if got != want {
		t.Errorf("expected %+v, got %+v", want, got)
	}
}

func TestAbout(t *testing.T) {
	router := setupRouter(openCityDB(t))

	var body struct {
		Backend string `json:"backend"`
		Details struct {
			Created  string `json:"created"`
			IPBlocks uint32 `json:"ip_blocks"`
		} `json:"details"`
	}
	if code := get(t, router, "/api/v1/about", &body); code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", code)
	}
	if body.Backend != "sxgeo" {
		t.Errorf("expected backend sxgeo, got %s", body.Backend)
	}
	if body.Details.Created != "2023.11.14" {
		t.Errorf("expected created 2023.11.14, got %s", body.Details.Created)
	}
	if body.Details.IPBlocks != 3 {
		t.Errorf("expected 3 blocks, got %d", body.Details.IPBlocks)
	}
}

// mockLookup implements data.LocationLookup for testing.
type mockLookup struct {
	country string
	id      int
	err     error
}

func (m *mockLookup) LookupCountry(_ net.IP) (string, error) { return m.country, m.err }

func (m *mockLookup) LookupCountryID(_ net.IP) (int, error) { return m.id, m.err }

func (m *mockLookup) LookupCity(_ net.IP) (*sxgeo.CityLocation, error) { return nil, m.err }

func (m *mockLookup) LookupCityFull(_ net.IP) (*sxgeo.FullLocation, error) { return nil, m.err }

func (m *mockLookup) Info() data.Info { return data.Info{Backend: "mock"} }

func (m *mockLookup) Close() error { return nil }
