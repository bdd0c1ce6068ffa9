// Package llmclassifier provides a Classifier that uses a local
// OpenAI-compatible LLM (e.g. Ollama with qwen3:4b) to suggest PII that the
// NER layer misses, such as account numbers written in prose or credentials
// pasted into a document.
//
// The model returns the sensitive strings verbatim rather than byte offsets,
// because small models get offsets wrong. The review store locates every
// occurrence in the document itself.
package llmclassifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gonkalabs/gonka-redact-go/internal/sanitize"
)

const systemPrompt = `Extract personally identifiable information from the text. Return a JSON array of exact strings that are sensitive. Return [] if nothing sensitive found.

Sensitive data includes:
- Social security, passport, driver's license and tax identification numbers
- Street addresses and postal codes tied to a person
- Dates of birth
- API keys, tokens and passwords mentioned explicitly
- Email addresses (e.g. user@example.com)
- Phone numbers (e.g. +79997899900, 8-800-555-35-35)
- Full person names with first+last (e.g. John Smith, Иван Иванов, Виктор Александрович)
- Credit card numbers, IBANs, bank account numbers
- Private keys (long hex or base64 strings)

Do NOT flag: city names alone, common words, dates that are not birth dates, regular numbers.

Return ONLY a valid JSON array of the exact sensitive strings. No explanation.

Examples:
Input: "Patient SSN 123-45-6789, DOB 04/12/1980"
Output: ["123-45-6789", "04/12/1980"]

Input: "call me at +79997899900, John Smith"
Output: ["+79997899900", "John Smith"]

Input: "Ship to 221B Baker Street, London NW1 6XE"
Output: ["221B Baker Street", "NW1 6XE"]

Input: "how are you?"
Output: []`

// Classifier calls a local LLM to detect semantically sensitive values.
type Classifier struct {
	url   string
	model string
	http  *http.Client
}

// New creates a Classifier.
// baseURL is the Ollama (or any OpenAI-compatible) server, e.g. "http://ollama:11434".
func New(baseURL, model string) *Classifier {
	return &Classifier{
		url:   strings.TrimRight(baseURL, "/") + "/v1/chat/completions",
		model: model,
		http: &http.Client{
			Timeout: 125 * time.Second,
		},
	}
}

type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []message `json:"messages"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens"`
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message      message `json:"message"`
		FinishReason string  `json:"finish_reason"`
	} `json:"choices"`
}

// Classify sends text to the LLM and returns the sensitive values it names as
// entities labelled "LLM". The store locates the occurrences itself, so only
// Text is set. Values that only ever appear inside a longer word are dropped.
// It is safe for concurrent use.
func (c *Classifier) Classify(ctx context.Context, text string) ([]sanitize.Entity, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	slog.Info("llmclassifier: classifying", "url", c.url, "model", c.model, "text_len", len(text))

	values, err := c.complete(ctx, text)
	if err != nil || len(values) == 0 {
		return nil, err
	}

	var entities []sanitize.Entity
	seen := make(map[string]bool, len(values))
	for _, val := range values {
		val = strings.TrimSpace(val)
		if val == "" || seen[val] || !occursAsToken(text, val) {
			continue
		}
		seen[val] = true
		entities = append(entities, sanitize.Entity{
			ID:         fmt.Sprintf("LLM-%d", len(entities)+1),
			Label:      "LLM",
			Text:       val,
			Confidence: 1.0,
		})
	}

	if len(entities) > 0 {
		slog.Info("llmclassifier: detected sensitive values", "count", len(entities), "values", len(values))
	}
	return entities, nil
}

// complete asks the model for the sensitive strings in text. Transport and
// parse failures are logged and yield no values.
func (c *Classifier) complete(ctx context.Context, text string) ([]string, error) {
	body, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []message{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: "Text to classify:\n" + text},
		},
		MaxTokens: 2048,
	})
	if err != nil {
		return nil, fmt.Errorf("llmclassifier: marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("llmclassifier: request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		slog.Warn("llmclassifier: LLM unreachable, skipping", "err", err)
		return nil, nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		slog.Warn("llmclassifier: unexpected status", "code", resp.StatusCode, "body", string(b))
		return nil, nil
	}

	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		slog.Warn("llmclassifier: decode response", "err", err)
		return nil, nil
	}
	if len(out.Choices) == 0 {
		return nil, nil
	}
	choice := out.Choices[0]
	if choice.FinishReason == "length" {
		slog.Warn("llmclassifier: response truncated by token limit")
	}

	values, err := parseValues(choice.Message.Content)
	if err != nil {
		slog.Warn("llmclassifier: could not parse LLM output", "content", choice.Message.Content, "err", err)
		return nil, nil
	}
	return values, nil
}

// parseValues extracts the JSON array of strings from a model reply.
func parseValues(raw string) ([]string, error) {
	content := stripThinkBlock(strings.TrimSpace(raw))
	content = stripCodeFence(content)
	if !strings.HasPrefix(content, "[") {
		content = extractJSONArray(content)
	}
	var values []string
	if err := json.Unmarshal([]byte(content), &values); err != nil {
		return nil, err
	}
	return values, nil
}

// occursAsToken reports whether val occurs in text at least once outside a
// longer word.
func occursAsToken(text, val string) bool {
	for _, occ := range sanitize.Occurrences(text, val) {
		if !isInsideToken(text, occ[0], occ[1]) {
			return true
		}
	}
	return false
}

// isInsideToken reports whether span [start,end) sits inside a larger word.
// For example "sd@yandex.ru" inside "asd@yandex.ru" would return true.
func isInsideToken(text string, start, end int) bool {
	if start > 0 && !isBoundary(text[start-1]) {
		return true
	}
	if end < len(text) && !isBoundary(text[end]) {
		return true
	}
	return false
}

// isBoundary reports whether byte b is a word-boundary character.
func isBoundary(b byte) bool {
	switch b {
	case ' ', '\t', '\n', '\r', '<', '>', ',', ';', ':', '.', '!', '?', '(', ')', '[', ']', '{', '}', '"', '\'', '`':
		return true
	}
	return false
}

// extractJSONArray finds the first [...] substring in s.
func extractJSONArray(s string) string {
	start := strings.Index(s, "[")
	if start < 0 {
		return s
	}
	end := strings.LastIndex(s, "]")
	if end < start {
		return s
	}
	return s[start : end+1]
}

// stripThinkBlock removes a leading <think>...</think> block.
func stripThinkBlock(s string) string {
	const open, close = "<think>", "</think>"
	start := strings.Index(s, open)
	if start < 0 {
		return s
	}
	end := strings.Index(s, close)
	if end < 0 {
		return strings.TrimSpace(s[:start])
	}
	return strings.TrimSpace(s[:start] + s[end+len(close):])
}

// stripCodeFence removes ```json ... ``` or ``` ... ``` wrappers.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		if idx := strings.Index(s, "\n"); idx >= 0 {
			s = s[idx+1:]
		}
		if idx := strings.LastIndex(s, "```"); idx >= 0 {
			s = s[:idx]
		}
		s = strings.TrimSpace(s)
	}
	return s
}
