package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/redactlabs/piiguard/internal/audit"
	"github.com/redactlabs/piiguard/internal/cache"
	"github.com/redactlabs/piiguard/internal/pipeline"
	"github.com/redactlabs/piiguard/internal/redact"
	"github.com/redactlabs/piiguard/internal/websocket"
	"go.uber.org/zap"
)

// detectRequest is the body of POST /api/v1/detect. Omitted fields fall
// back to the server configuration.
type detectRequest struct {
	Text          string   `json:"text"`
	MinConfidence *float64 `json:"min_confidence,omitempty"`
	Detectors     []string `json:"detectors,omitempty"`
}

// anonymizeRequest additionally carries the replacement token.
type anonymizeRequest struct {
	detectRequest
	Replacement string `json:"replacement,omitempty"`
}

// detectResponse is the body returned by both detection endpoints.
type detectResponse struct {
	Entities         []pipeline.AcceptedEntity `json:"entities"`
	FilteredEntities []pipeline.RejectedEntity `json:"filtered_entities"`
	Summary          pipeline.Summary          `json:"summary"`
	RedactedText     string                    `json:"redacted_text,omitempty"`
	Cached           bool                      `json:"cached"`
	ProcessingMS     float64                   `json:"processing_ms"`
}

// handleDetect runs detection and reconciliation without redacting.
func (s *Server) handleDetect(w http.ResponseWriter, r *http.Request) {
	var req detectRequest
	if !s.decodeBody(w, r, &req) {
		return
	}
	if req.Text == "" {
		writeError(w, http.StatusBadRequest, "text is required")
		return
	}

	s.runDetection(w, r, "detect", req, "")
}

// handleAnonymize runs detection, reconciliation and redaction.
func (s *Server) handleAnonymize(w http.ResponseWriter, r *http.Request) {
	var req anonymizeRequest
	if !s.decodeBody(w, r, &req) {
		return
	}
	if req.Text == "" {
		writeError(w, http.StatusBadRequest, "text is required")
		return
	}

	replacement := req.Replacement
	if replacement == "" {
		replacement = s.config.Detection.Replacement
	}

	s.runDetection(w, r, "anonymize", req.detectRequest, replacement)
}

// runDetection is the shared request path: cache lookup, detector fan-out,
// reconciliation, optional redaction, then cache store, audit and broadcast.
// A non-empty replacement selects the anonymize behavior.
func (s *Server) runDetection(w http.ResponseWriter, r *http.Request, operation string, req detectRequest, replacement string) {
	start := time.Now()
	requestID := requestIDFromContext(r.Context())
	log := s.logger.WithRequestID(requestID)

	if !s.config.Detection.Enabled {
		writeError(w, http.StatusServiceUnavailable, "detection is disabled")
		return
	}

	minConfidence := s.config.Detection.MinConfidence
	if req.MinConfidence != nil {
		if *req.MinConfidence < 0 || *req.MinConfidence > 1 {
			writeError(w, http.StatusBadRequest, "min_confidence must be between 0 and 1")
			return
		}
		minConfidence = *req.MinConfidence
	}

	detectors := req.Detectors
	if len(detectors) == 0 {
		detectors = s.config.Detection.Detectors
	}

	var cacheKey string
	if s.cache != nil {
		cacheKey = s.cache.Key(req.Text, minConfidence, detectors, replacement)
		if cached, ok := s.cache.Get(r.Context(), cacheKey); ok {
			resp := detectResponse{
				Entities:         cached.Result.Entities,
				FilteredEntities: cached.Result.FilteredEntities,
				Summary:          cached.Result.Summary,
				RedactedText:     cached.RedactedText,
				Cached:           true,
				ProcessingMS:     float64(time.Since(start).Microseconds()) / 1000.0,
			}
			writeJSON(w, http.StatusOK, resp)
			return
		}
	}

	candidates := s.detectors.Collect(r.Context(), req.Text, detectors)
	result := s.reconciler.Run(req.Text, candidates, minConfidence)

	var redactedText string
	if operation == "anonymize" {
		var err error
		redactedText, err = redact.Apply(req.Text, result.Entities, replacement)
		if err != nil {
			if errors.Is(err, redact.ErrOverlappingEntities) {
				log.Error("Overlapping entities after merge, refusing to redact", zap.Error(err))
				writeError(w, http.StatusInternalServerError, "internal redaction error")
				return
			}
			log.Error("Redaction failed", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "internal redaction error")
			return
		}
	}

	elapsed := time.Since(start)

	if s.cache != nil {
		if err := s.cache.Store(r.Context(), cacheKey, &cache.CachedResult{
			Result:       result,
			RedactedText: redactedText,
		}); err != nil {
			log.Warn("Failed to cache detection result", zap.Error(err))
		}
	}

	s.recordAudit(requestID, operation, len(req.Text), result, elapsed)

	s.wsHub.BroadcastEvent(websocket.Event{
		Type:      websocket.EventTypeDetection,
		Timestamp: time.Now(),
		RequestID: requestID,
		Data: websocket.DetectionEvent{
			RequestID:       requestID,
			Operation:       operation,
			TotalValid:      result.Summary.TotalValid,
			TotalFiltered:   result.Summary.TotalFiltered,
			CategoriesFound: result.Summary.CategoriesFound,
			ValidationRate:  result.Summary.ValidationRate,
			ProcessingMS:    float64(elapsed.Microseconds()) / 1000.0,
		},
	})

	log.Info("Detection complete",
		zap.String("operation", operation),
		zap.Int("text_length", len(req.Text)),
		zap.Int("raw_candidates", len(candidates)),
		zap.Int("total_valid", result.Summary.TotalValid),
		zap.Int("total_filtered", result.Summary.TotalFiltered),
		zap.Duration("duration", elapsed),
	)

	writeJSON(w, http.StatusOK, detectResponse{
		Entities:         result.Entities,
		FilteredEntities: result.FilteredEntities,
		Summary:          result.Summary,
		RedactedText:     redactedText,
		ProcessingMS:     float64(elapsed.Microseconds()) / 1000.0,
	})
}

// recordAudit writes the audit row off the request path. The request
// context is already done when the response is sent, so the write gets its
// own deadline.
func (s *Server) recordAudit(requestID, operation string, textLength int, result pipeline.Result, elapsed time.Duration) {
	if s.audit == nil {
		return
	}

	rec := &audit.Record{
		RequestID:      requestID,
		Operation:      operation,
		TextLength:     textLength,
		TotalValid:     result.Summary.TotalValid,
		TotalFiltered:  result.Summary.TotalFiltered,
		Categories:     result.Summary.CategoriesFound,
		ValidationRate: result.Summary.ValidationRate,
		DurationMS:     float64(elapsed.Microseconds()) / 1000.0,
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.audit.Write(ctx, rec)
	}()
}

// schemaCategory is one entry of the GET /api/v1/schema response.
type schemaCategory struct {
	Name     string   `json:"name"`
	Pattern  string   `json:"pattern"`
	Examples []string `json:"examples,omitempty"`
	Priority int      `json:"priority"`
	CatchAll bool     `json:"catch_all,omitempty"`
}

// handleSchema returns the loaded category schema in priority order.
func (s *Server) handleSchema(w http.ResponseWriter, r *http.Request) {
	categories := make([]schemaCategory, 0, s.registry.Len())
	for _, cat := range s.registry.ByPriority() {
		categories = append(categories, schemaCategory{
			Name:     cat.Name,
			Pattern:  cat.Raw,
			Examples: cat.Examples,
			Priority: cat.Priority,
			CatchAll: cat.CatchAll,
		})
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"categories": categories,
		"count":      len(categories),
	})
}

// decodeBody decodes a JSON request body with the configured size cap.
func (s *Server) decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, s.config.Server.MaxBodyBytes)

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return false
		}
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return false
	}
	return true
}
