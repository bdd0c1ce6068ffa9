// Package ner provides a Classifier that calls a PII-detection sidecar over
// HTTP. If the sidecar is unreachable, it logs a warning and returns no
// entities so the rest of the suggestion pipeline can still run.
package ner

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gonkalabs/gonka-redact-go/internal/sanitize"
)

// Client calls the sidecar's /detect-pii endpoint.
type Client struct {
	url  string
	http *http.Client
}

// New creates a NER Client pointing at the given base URL
// (e.g. "http://sanitize-ner:8001").
func New(baseURL string) *Client {
	return &Client{
		url: strings.TrimRight(baseURL, "/") + "/detect-pii",
		http: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type detectRequest struct {
	Text string `json:"text"`
}

type detectResponse struct {
	Entities []sanitize.Entity `json:"entities"`
}

// Classify sends text to the sidecar and returns its entities.
// It is safe for concurrent use.
func (c *Client) Classify(ctx context.Context, text string) ([]sanitize.Entity, error) {
	body, err := json.Marshal(detectRequest{Text: text})
	if err != nil {
		return nil, fmt.Errorf("ner: marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("ner: request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		slog.Warn("sanitize-ner: sidecar unreachable, skipping NER layer", "err", err)
		return nil, nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		slog.Warn("sanitize-ner: unexpected status", "code", resp.StatusCode)
		return nil, nil
	}

	var result detectResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("ner: decode: %w", err)
	}

	// The sidecar may omit ids; occurrence ids are derived from them.
	for i := range result.Entities {
		if result.Entities[i].ID == "" {
			result.Entities[i].ID = fmt.Sprintf("NER-%d", i+1)
		}
	}
	slog.Debug("sanitize-ner: entities", "count", len(result.Entities))
	return result.Entities, nil
}
