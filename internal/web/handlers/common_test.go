package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/kozaktomas/face-animator/internal/constants"
)

func TestRespondJSON(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
		data       any
		wantBody   string
	}{
		{"OK with map", http.StatusOK, map[string]int{"count": 42}, `{"count":42}`},
		{"Created with slice", http.StatusCreated, []string{"a", "b"}, `["a","b"]`},
		{"NoContent without body", http.StatusNoContent, nil, ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			recorder := httptest.NewRecorder()
			respondJSON(recorder, tc.statusCode, tc.data)

			assertStatusCode(t, recorder, tc.statusCode)
			if ct := recorder.Header().Get("Content-Type"); ct != "application/json" {
				t.Errorf("expected Content-Type 'application/json', got '%s'", ct)
			}
			if got := strings.TrimSpace(recorder.Body.String()); got != tc.wantBody {
				t.Errorf("expected body %s, got %s", tc.wantBody, got)
			}
		})
	}
}

func TestRespondError(t *testing.T) {
	recorder := httptest.NewRecorder()
	respondError(recorder, http.StatusNotFound, "image not found")

	assertStatusCode(t, recorder, http.StatusNotFound)
	assertJSONError(t, recorder, "image not found")
}

func TestRespondFailure(t *testing.T) {
	recorder := httptest.NewRecorder()
	respondFailure(recorder, http.StatusBadRequest, "bad")

	var result map[string]any
	parseJSONResponse(t, recorder, &result)
	if result["success"] != false {
		t.Errorf("expected success=false, got %v", result["success"])
	}
	assertJSONError(t, recorder, "bad")
}

func TestDecodeJSON(t *testing.T) {
	type payload struct {
		Name string `json:"name"`
	}

	tests := []struct {
		name    string
		body    string
		want    string
		wantErr bool
	}{
		{"valid", `{"name":"x"}`, "x", false},
		{"empty body", ``, "", false},
		{"whitespace body", "  \n", "", false},
		{"invalid", `{"name":`, "", true},
		{"too large", `{"name":"` + strings.Repeat("a", constants.MaxJSONBodySize) + `"}`, "", true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tc.body))
			var p payload
			err := decodeJSON(req, &p)
			if (err != nil) != tc.wantErr {
				t.Fatalf("decodeJSON() error = %v, wantErr %v", err, tc.wantErr)
			}
			if p.Name != tc.want {
				t.Errorf("expected name %q, got %q", tc.want, p.Name)
			}
		})
	}
}

func TestSanitizeForLog(t *testing.T) {
	if got := sanitizeForLog("a\nb\rc"); got != "abc" {
		t.Errorf("sanitizeForLog() = %q, want %q", got, "abc")
	}
}

func TestHealthCheck(t *testing.T) {
	for _, method := range []string{"GET", "HEAD"} {
		t.Run(method, func(t *testing.T) {
			recorder := httptest.NewRecorder()
			HealthCheck(recorder, httptest.NewRequest(method, "/api/v1/health", nil))

			assertStatusCode(t, recorder, http.StatusOK)
			var result map[string]string
			if err := json.Unmarshal(recorder.Body.Bytes(), &result); err != nil {
				t.Fatalf("failed to unmarshal response: %v", err)
			}
			if result["status"] != "ok" {
				t.Errorf("expected status 'ok', got '%s'", result["status"])
			}
		})
	}
}
