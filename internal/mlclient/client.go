package mlclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"NetSentinel/internal/model"
)

// Client is an HTTP adapter for the external model inference endpoint. It
// performs no detection logic of its own; it only transforms and forwards.
// It implements model.Classifier.
type Client struct {
	endpoint   string
	httpClient *http.Client
}

// New creates a classifier client for the given inference endpoint. The
// timeout bounds the whole request including connection setup.
func New(endpoint string, timeout time.Duration) *Client {
	return &Client{
		endpoint: endpoint,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type inferenceRequest struct {
	Features []float64 `json:"features"`
}

type inferenceResponse struct {
	Label       string  `json:"label"`
	Probability float64 `json:"probability"`
	Error       string  `json:"error,omitempty"`
}

// Classify sends the feature vector to the inference endpoint and returns the
// model's signal. Any transport failure, non-2xx status, or malformed
// response is reported as ErrModelUnavailable so callers can degrade to
// rule-only detection.
func (c *Client) Classify(ctx context.Context, features []float64) (model.ClassificationSignal, error) {
	body, err := json.Marshal(inferenceRequest{Features: features})
	if err != nil {
		return model.ClassificationSignal{}, fmt.Errorf("%w: encode request: %v", model.ErrModelUnavailable, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return model.ClassificationSignal{}, fmt.Errorf("%w: build request: %v", model.ErrModelUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return model.ClassificationSignal{}, fmt.Errorf("%w: %v", model.ErrModelUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return model.ClassificationSignal{}, fmt.Errorf("%w: inference endpoint returned %s", model.ErrModelUnavailable, resp.Status)
	}

	var ir inferenceResponse
	if err := json.NewDecoder(resp.Body).Decode(&ir); err != nil {
		return model.ClassificationSignal{}, fmt.Errorf("%w: decode response: %v", model.ErrModelUnavailable, err)
	}
	if ir.Error != "" {
		return model.ClassificationSignal{}, fmt.Errorf("%w: %s", model.ErrModelUnavailable, ir.Error)
	}
	if ir.Probability < 0 || ir.Probability > 1 {
		return model.ClassificationSignal{}, fmt.Errorf("%w: probability %v out of [0,1]", model.ErrModelUnavailable, ir.Probability)
	}

	label := normalizeLabel(ir.Label)
	return model.ClassificationSignal{
		Source:     model.SignalSourceML,
		AttackType: label,
		Confidence: ir.Probability,
		Evidence:   []string{fmt.Sprintf("model label=%s probability=%.2f", label, ir.Probability)},
	}, nil
}

// normalizeLabel maps the model's benign-class spellings onto the engine's
// Normal attack type.
func normalizeLabel(label string) string {
	switch strings.ToUpper(strings.TrimSpace(label)) {
	case "", "BENIGN", "NORMAL", "NONE", "0":
		return model.AttackTypeNormal
	}
	return label
}
