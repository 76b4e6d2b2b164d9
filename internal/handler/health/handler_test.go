package health

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/TomasB/sxgeo/internal/data"
)

type mockChecker struct {
	err  error
	info data.Info
}

func (m *mockChecker) Ready() error    { return m.err }
func (m *mockChecker) Info() data.Info { return m.info }

func serve(t *testing.T, handler gin.HandlerFunc, path string) (int, map[string]string) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.GET(path, handler)

	req, err := http.NewRequest("GET", path, nil)
	if err != nil {
		t.Fatalf("Failed to create request: %v", err)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("Failed to decode body %s: %v", w.Body.String(), err)
	}
	return w.Code, body
}

func TestHealth(t *testing.T) {
	handler := NewHandler(&mockChecker{err: data.ErrNotLoaded})

	code, body := serve(t, handler.Health, "/health")

	// Liveness does not depend on the database.
	if code != http.StatusOK {
		t.Errorf("Expected status %d, got %d", http.StatusOK, code)
	}
	if body["status"] != "ok" {
		t.Errorf("Expected status ok, got %s", body["status"])
	}
	if body["uptime"] == "" {
		t.Error("Expected uptime")
	}
}

func TestReady(t *testing.T) {
	built := time.Date(2023, 11, 14, 22, 13, 20, 0, time.UTC)

	tests := []struct {
		name     string
		db       Checker
		wantCode int
		want     map[string]string
	}{
		{
			name:     "no checker",
			wantCode: http.StatusOK,
			want:     map[string]string{"status": "ready"},
		},
		{
			name:     "loaded",
			db:       &mockChecker{info: data.Info{Backend: "sxgeo", BuiltAt: built}},
			wantCode: http.StatusOK,
			want: map[string]string{
				"status":   "ready",
				"backend":  "sxgeo",
				"built_at": "2023-11-14T22:13:20Z",
			},
		},
		{
			name:     "not loaded",
			db:       &mockChecker{err: errors.New("database not loaded")},
			wantCode: http.StatusServiceUnavailable,
			want:     map[string]string{"status": "not ready", "error": "database not loaded"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, body := serve(t, NewHandler(tt.db).Ready, "/ready")

			if code != tt.wantCode {
				t.Errorf("Expected status %d, got %d", tt.wantCode, code)
			}
			if len(body) != len(tt.want) {
				t.Errorf("Expected body %v, got %v", tt.want, body)
			}
			for k, v := range tt.want {
				if body[k] != v {
					t.Errorf("Expected %s=%q, got %q", k, v, body[k])
				}
			}
		})
	}
}
