package detect

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/redactlabs/piiguard/internal/logger"
	"github.com/redactlabs/piiguard/internal/pipeline"
	"go.uber.org/zap"
)

// RemoteDetector consumes an external token-classification service as a
// black box. The service reports approximate, possibly tokenized spans;
// everything it returns is normalized and re-validated downstream.
type RemoteDetector struct {
	url    string
	client *http.Client
	logger *logger.Logger
}

// classifyRequest is the wire request to the classifier service.
type classifyRequest struct {
	Text string `json:"text"`
}

// classifySpan is one raw span in the classifier response.
type classifySpan struct {
	EntityGroup string  `json:"entity_group"`
	Score       float64 `json:"score"`
	Start       int     `json:"start"`
	End         int     `json:"end"`
}

// NewRemoteDetector creates a client for the classifier service at url.
func NewRemoteDetector(url string, timeout time.Duration, log *logger.Logger) *RemoteDetector {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &RemoteDetector{
		url:    url,
		client: &http.Client{Timeout: timeout},
		logger: log,
	}
}

// Name implements Detector.
func (d *RemoteDetector) Name() string {
	return MethodML
}

// Detect implements Detector.
func (d *RemoteDetector) Detect(ctx context.Context, text string) ([]pipeline.Candidate, error) {
	body, err := json.Marshal(classifyRequest{Text: text})
	if err != nil {
		return nil, fmt.Errorf("marshal classifier request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build classifier request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("classifier request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("classifier returned HTTP %d", resp.StatusCode)
	}

	var spans []classifySpan
	if err := json.NewDecoder(resp.Body).Decode(&spans); err != nil {
		return nil, fmt.Errorf("decode classifier response: %w", err)
	}

	candidates := make([]pipeline.Candidate, 0, len(spans))
	for _, s := range spans {
		// Text is left to the normalizer: the classifier's echoed words
		// are tokenized reconstructions, only the offsets are usable.
		candidates = append(candidates, pipeline.Candidate{
			Start:      s.Start,
			End:        s.End,
			Category:   s.EntityGroup,
			Confidence: s.Score,
			Method:     MethodML,
		})
	}

	d.logger.Debug("Classifier returned spans",
		zap.Int("spans", len(candidates)),
	)

	return candidates, nil
}
