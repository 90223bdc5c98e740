package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/redactlabs/piiguard/internal/config"
	"github.com/redactlabs/piiguard/internal/logger"
)

func newTestServer(t *testing.T, mutate func(*config.Config)) *Server {
	t.Helper()

	cfg := config.GetDefaults()
	cfg.Cache.Enabled = false
	cfg.Audit.Enabled = false
	if mutate != nil {
		mutate(cfg)
	}

	s, err := New(cfg, logger.NewNop())
	if err != nil {
		t.Fatalf("Failed to create server: %v", err)
	}
	return s
}

func postJSON(t *testing.T, s *Server, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

// TestDetectEndpoint tests POST /api/v1/detect
func TestDetectEndpoint(t *testing.T) {
	s := newTestServer(t, nil)

	t.Run("DetectsAndValidates", func(t *testing.T) {
		rec := postJSON(t, s, "/api/v1/detect", `{"text":"My PAN is AAAPA1234A"}`)
		if rec.Code != http.StatusOK {
			t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
		}

		var resp detectResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("Failed to decode response: %v", err)
		}

		var foundPAN bool
		for _, ent := range resp.Entities {
			if ent.Category == "PAN" && ent.Text == "AAAPA1234A" {
				foundPAN = true
			}
		}
		if !foundPAN {
			t.Errorf("PAN entity not in response: %+v", resp.Entities)
		}
		if resp.Summary.TotalValid != len(resp.Entities) {
			t.Errorf("Summary count disagrees with entity list: %+v", resp.Summary)
		}
		if resp.RedactedText != "" {
			t.Error("Detect endpoint must not redact")
		}
	})

	t.Run("EmptyTextRejected", func(t *testing.T) {
		rec := postJSON(t, s, "/api/v1/detect", `{"text":""}`)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("Expected 400, got %d", rec.Code)
		}
	})

	t.Run("InvalidJSONRejected", func(t *testing.T) {
		rec := postJSON(t, s, "/api/v1/detect", `{not json`)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("Expected 400, got %d", rec.Code)
		}
	})

	t.Run("InvalidMinConfidenceRejected", func(t *testing.T) {
		rec := postJSON(t, s, "/api/v1/detect", `{"text":"x","min_confidence":1.5}`)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("Expected 400, got %d", rec.Code)
		}
	})

	t.Run("RequestIDHeaderSet", func(t *testing.T) {
		rec := postJSON(t, s, "/api/v1/detect", `{"text":"hello"}`)
		if rec.Header().Get("X-Request-ID") == "" {
			t.Error("X-Request-ID header missing")
		}
	})

	t.Run("OversizedBodyRejected", func(t *testing.T) {
		small := newTestServer(t, func(cfg *config.Config) {
			cfg.Server.MaxBodyBytes = 16
		})
		rec := postJSON(t, small, "/api/v1/detect", `{"text":"`+strings.Repeat("a", 100)+`"}`)
		if rec.Code != http.StatusRequestEntityTooLarge {
			t.Errorf("Expected 413, got %d", rec.Code)
		}
	})
}

// TestAnonymizeEndpoint tests POST /api/v1/anonymize
func TestAnonymizeEndpoint(t *testing.T) {
	s := newTestServer(t, nil)

	t.Run("RedactsAcceptedEntities", func(t *testing.T) {
		rec := postJSON(t, s, "/api/v1/anonymize", `{"text":"My PAN is AAAPA1234A"}`)
		if rec.Code != http.StatusOK {
			t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
		}

		var resp detectResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("Failed to decode response: %v", err)
		}
		if strings.Contains(resp.RedactedText, "AAAPA1234A") {
			t.Errorf("PII survived redaction: %q", resp.RedactedText)
		}
		if !strings.Contains(resp.RedactedText, "[REDACTED]") {
			t.Errorf("Replacement token missing: %q", resp.RedactedText)
		}
	})

	t.Run("CustomReplacement", func(t *testing.T) {
		rec := postJSON(t, s, "/api/v1/anonymize", `{"text":"My PAN is AAAPA1234A","replacement":"***"}`)
		if rec.Code != http.StatusOK {
			t.Fatalf("Expected 200, got %d", rec.Code)
		}

		var resp detectResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("Failed to decode response: %v", err)
		}
		if !strings.Contains(resp.RedactedText, "***") {
			t.Errorf("Custom replacement not used: %q", resp.RedactedText)
		}
	})
}

// TestSchemaEndpoint tests GET /api/v1/schema
func TestSchemaEndpoint(t *testing.T) {
	s := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/schema", nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}

	var resp struct {
		Categories []schemaCategory `json:"categories"`
		Count      int              `json:"count"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if resp.Count != 22 {
		t.Errorf("Expected 22 builtin categories, got %d", resp.Count)
	}
	// Priority order: PAN is the most specific builtin category.
	if len(resp.Categories) == 0 || resp.Categories[0].Name != "PAN" {
		t.Errorf("Categories not in priority order: %+v", resp.Categories[:1])
	}
}

// TestHealthAndInfo tests the operational endpoints
func TestHealthAndInfo(t *testing.T) {
	s := newTestServer(t, nil)

	t.Run("Health", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		rec := httptest.NewRecorder()
		s.router.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Errorf("Expected 200, got %d", rec.Code)
		}
		if !strings.Contains(rec.Body.String(), "healthy") {
			t.Errorf("Unexpected health body: %s", rec.Body.String())
		}
	})

	t.Run("Info", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/info", nil)
		rec := httptest.NewRecorder()
		s.router.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Errorf("Expected 200, got %d", rec.Code)
		}

		var info map[string]interface{}
		if err := json.Unmarshal(rec.Body.Bytes(), &info); err != nil {
			t.Fatalf("Failed to decode info: %v", err)
		}
		if info["schema_categories"] != float64(22) {
			t.Errorf("Unexpected schema_categories: %v", info["schema_categories"])
		}
	})

	t.Run("Dashboard", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rec := httptest.NewRecorder()
		s.router.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Errorf("Expected 200, got %d", rec.Code)
		}
		if !strings.Contains(rec.Header().Get("Content-Type"), "text/html") {
			t.Errorf("Expected HTML, got %s", rec.Header().Get("Content-Type"))
		}
	})
}

// TestRateLimit tests per-IP request limiting
func TestRateLimit(t *testing.T) {
	s := newTestServer(t, func(cfg *config.Config) {
		cfg.RateLimit.RequestsPerSecond = 1
		cfg.RateLimit.Burst = 1
	})

	first := postJSON(t, s, "/api/v1/detect", `{"text":"hello"}`)
	if first.Code != http.StatusOK {
		t.Fatalf("First request should pass, got %d", first.Code)
	}

	second := postJSON(t, s, "/api/v1/detect", `{"text":"hello"}`)
	if second.Code != http.StatusTooManyRequests {
		t.Errorf("Second request should be limited, got %d", second.Code)
	}
}

// TestDetectionDisabled tests the disabled service path
func TestDetectionDisabled(t *testing.T) {
	s := newTestServer(t, func(cfg *config.Config) {
		cfg.Detection.Enabled = false
	})

	rec := postJSON(t, s, "/api/v1/detect", `{"text":"hello"}`)
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected 503, got %d", rec.Code)
	}
}
