package detect

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/redactlabs/piiguard/internal/logger"
	"github.com/redactlabs/piiguard/internal/pipeline"
	"github.com/redactlabs/piiguard/internal/schema"
)

func testRegistry(t *testing.T) *schema.Registry {
	t.Helper()
	reg, err := schema.New(schema.Builtin(), logger.NewNop())
	if err != nil {
		t.Fatalf("Failed to build registry: %v", err)
	}
	return reg
}

// TestRegexDetector tests pattern scanning
func TestRegexDetector(t *testing.T) {
	d, err := NewRegexDetector(testRegistry(t), logger.NewNop())
	if err != nil {
		t.Fatalf("Failed to create regex detector: %v", err)
	}

	t.Run("FindsEmbeddedValues", func(t *testing.T) {
		text := "PAN AAAPA1234A and IFSC HDFC0001234"
		candidates, err := d.Detect(context.Background(), text)
		if err != nil {
			t.Fatalf("Detect failed: %v", err)
		}

		found := make(map[string]bool)
		for _, c := range candidates {
			found[c.Category+":"+c.Text] = true
			if c.Method != MethodRegex {
				t.Errorf("Wrong method on candidate: %s", c.Method)
			}
			if text[c.Start:c.End] != c.Text {
				t.Errorf("Candidate text does not match its span: %+v", c)
			}
		}
		if !found["PAN:AAAPA1234A"] {
			t.Error("PAN value not found")
		}
		if !found["IFSC:HDFC0001234"] {
			t.Error("IFSC value not found")
		}
	})

	t.Run("SkipsCatchAllCategories", func(t *testing.T) {
		defs := []schema.Definition{
			{Name: "PIN", Pattern: `[0-9]{4}`, Priority: 10},
			{Name: "ANYTEXT", Pattern: `.+`, Priority: 20, CatchAll: true},
		}
		reg, err := schema.New(defs, logger.NewNop())
		if err != nil {
			t.Fatalf("Failed to build registry: %v", err)
		}
		det, err := NewRegexDetector(reg, logger.NewNop())
		if err != nil {
			t.Fatalf("Failed to create detector: %v", err)
		}

		candidates, err := det.Detect(context.Background(), "pin 1234 only")
		if err != nil {
			t.Fatalf("Detect failed: %v", err)
		}
		for _, c := range candidates {
			if c.Category == "ANYTEXT" {
				t.Errorf("Catch-all category used for scanning: %+v", c)
			}
		}
	})

	t.Run("NoMatchesNoCandidates", func(t *testing.T) {
		candidates, err := d.Detect(context.Background(), "---")
		if err != nil {
			t.Fatalf("Detect failed: %v", err)
		}
		if len(candidates) != 0 {
			t.Errorf("Expected no candidates, got %+v", candidates)
		}
	})
}

// TestContextualDetector tests label-context detection
func TestContextualDetector(t *testing.T) {
	d := NewContextualDetector(logger.NewNop())

	t.Run("LabeledValueCaptured", func(t *testing.T) {
		text := "Email: arun.sharma@example.com, phone 9876543210"
		candidates, err := d.Detect(context.Background(), text)
		if err != nil {
			t.Fatalf("Detect failed: %v", err)
		}

		found := make(map[string]string)
		for _, c := range candidates {
			found[c.Category] = c.Text
			if c.Method != MethodContextual {
				t.Errorf("Wrong method on candidate: %s", c.Method)
			}
			if text[c.Start:c.End] != c.Text {
				t.Errorf("Candidate text does not match its span: %+v", c)
			}
		}
		if found["EMAIL"] != "arun.sharma@example.com" {
			t.Errorf("Email not captured, got %q", found["EMAIL"])
		}
		if found["TELEPHONENUM"] != "9876543210" {
			t.Errorf("Phone not captured, got %q", found["TELEPHONENUM"])
		}
	})

	t.Run("SpanCoversValueOnly", func(t *testing.T) {
		text := "aadhaar: 1234 5678 9012"
		candidates, err := d.Detect(context.Background(), text)
		if err != nil {
			t.Fatalf("Detect failed: %v", err)
		}
		var aadhaar *pipeline.Candidate
		for i := range candidates {
			if candidates[i].Category == "AADHAAR" {
				aadhaar = &candidates[i]
			}
		}
		if aadhaar == nil {
			t.Fatal("AADHAAR not detected")
		}
		if aadhaar.Start != 9 || aadhaar.End != 23 {
			t.Errorf("Span includes the label: [%d,%d)", aadhaar.Start, aadhaar.End)
		}
	})

	t.Run("UnlabeledValueIgnored", func(t *testing.T) {
		candidates, err := d.Detect(context.Background(), "the value 1234 5678 9012 floats free")
		if err != nil {
			t.Fatalf("Detect failed: %v", err)
		}
		for _, c := range candidates {
			if c.Category == "AADHAAR" {
				t.Errorf("Detected without a label: %+v", c)
			}
		}
	})
}

// TestRemoteDetector tests the classifier service client
func TestRemoteDetector(t *testing.T) {
	t.Run("ParsesSpans", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				t.Errorf("Expected POST, got %s", r.Method)
			}
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`[{"entity_group":"AADHAAR","score":0.97,"start":14,"end":28}]`))
		}))
		defer srv.Close()

		d := NewRemoteDetector(srv.URL, 5*time.Second, logger.NewNop())
		candidates, err := d.Detect(context.Background(), "My Aadhaar is 1234 5678 9012")
		if err != nil {
			t.Fatalf("Detect failed: %v", err)
		}
		if len(candidates) != 1 {
			t.Fatalf("Expected 1 candidate, got %d", len(candidates))
		}
		c := candidates[0]
		if c.Category != "AADHAAR" || c.Start != 14 || c.End != 28 || c.Confidence != 0.97 {
			t.Errorf("Unexpected candidate: %+v", c)
		}
		if c.Text != "" {
			t.Errorf("Remote candidate text must be left to the normalizer, got %q", c.Text)
		}
		if c.Method != MethodML {
			t.Errorf("Wrong method: %s", c.Method)
		}
	})

	t.Run("ServerErrorIsError", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer srv.Close()

		d := NewRemoteDetector(srv.URL, 5*time.Second, logger.NewNop())
		if _, err := d.Detect(context.Background(), "text"); err == nil {
			t.Fatal("Expected error for HTTP 500, got nil")
		}
	})

	t.Run("UnreachableServiceIsError", func(t *testing.T) {
		d := NewRemoteDetector("http://127.0.0.1:1", time.Second, logger.NewNop())
		if _, err := d.Detect(context.Background(), "text"); err == nil {
			t.Fatal("Expected error for unreachable service, got nil")
		}
	})
}

// failingDetector always errors, for isolation tests.
type failingDetector struct{}

func (failingDetector) Name() string { return "failing" }
func (failingDetector) Detect(context.Context, string) ([]pipeline.Candidate, error) {
	return nil, errors.New("boom")
}

// stubDetector returns fixed candidates.
type stubDetector struct {
	name       string
	candidates []pipeline.Candidate
}

func (d stubDetector) Name() string { return d.name }
func (d stubDetector) Detect(context.Context, string) ([]pipeline.Candidate, error) {
	return d.candidates, nil
}

// TestEngine tests detector fan-out
func TestEngine(t *testing.T) {
	stub := stubDetector{
		name:       "stub",
		candidates: []pipeline.Candidate{{Category: "PAN", Start: 0, End: 10}},
	}

	t.Run("FailingDetectorIsIsolated", func(t *testing.T) {
		e := NewEngine([]Detector{failingDetector{}, stub}, logger.NewNop())
		candidates := e.Collect(context.Background(), "text", nil)
		if len(candidates) != 1 {
			t.Fatalf("Expected the healthy detector's candidate, got %d", len(candidates))
		}
	})

	t.Run("EnabledSetFiltersMethods", func(t *testing.T) {
		other := stubDetector{name: "other", candidates: []pipeline.Candidate{{Category: "IFSC"}}}
		e := NewEngine([]Detector{stub, other}, logger.NewNop())

		candidates := e.Collect(context.Background(), "text", []string{"stub"})
		if len(candidates) != 1 || candidates[0].Category != "PAN" {
			t.Errorf("Expected only the stub detector to run, got %+v", candidates)
		}
	})

	t.Run("AllKeywordEnablesEverything", func(t *testing.T) {
		other := stubDetector{name: "other", candidates: []pipeline.Candidate{{Category: "IFSC"}}}
		e := NewEngine([]Detector{stub, other}, logger.NewNop())

		candidates := e.Collect(context.Background(), "text", []string{"all"})
		if len(candidates) != 2 {
			t.Errorf("Expected both detectors to run, got %d candidates", len(candidates))
		}
	})

	t.Run("Methods", func(t *testing.T) {
		e := NewEngine([]Detector{stub}, logger.NewNop())
		methods := e.Methods()
		if len(methods) != 1 || methods[0] != "stub" {
			t.Errorf("Unexpected methods: %v", methods)
		}
	})
}
