package llmclassifier

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func chatServer(t *testing.T, content string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("path %s", r.URL.Path)
		}
		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Model != "qwen3:4b" {
			t.Errorf("request %#v, %v", req, err)
		}
		if len(req.Messages) != 2 || req.Messages[0].Role != "system" || req.Messages[1].Role != "user" {
			t.Errorf("messages %#v", req.Messages)
		}
		resp := map[string]any{
			"choices": []map[string]any{{
				"message":       map[string]string{"content": content},
				"finish_reason": "stop",
			}},
		}
		json.NewEncoder(w).Encode(resp)
	}))
}

func TestClassify(t *testing.T) {
	srv := chatServer(t, "<think>hmm</think>\n```json\n[\"John Smith\", \"555-1234\", \"ohn\", \"John Smith\", \"\"]\n```")
	defer srv.Close()

	text := "Call John Smith at 555-1234."
	got, err := New(srv.URL, "qwen3:4b").Classify(context.Background(), text)
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("entities %#v", got)
	}
	if got[0].ID != "LLM-1" || got[0].Text != "John Smith" || got[0].Label != "LLM" {
		t.Fatalf("first %#v", got[0])
	}
	if got[1].ID != "LLM-2" || got[1].Text != "555-1234" {
		t.Fatalf("second %#v", got[1])
	}
}

func TestClassifyUnparseable(t *testing.T) {
	srv := chatServer(t, "I could not find anything")
	defer srv.Close()

	got, err := New(srv.URL, "qwen3:4b").Classify(context.Background(), "some text")
	if err != nil || got != nil {
		t.Fatalf("Classify = %#v, %v", got, err)
	}
}

func TestClassifyEmptyText(t *testing.T) {
	got, err := New("http://127.0.0.1:0", "m").Classify(context.Background(), "  ")
	if err != nil || got != nil {
		t.Fatalf("Classify = %#v, %v", got, err)
	}
}

func TestParseValues(t *testing.T) {
	tests := []struct {
		raw  string
		want int
	}{
		{`["a","b"]`, 2},
		{"```\n[\"a\"]\n```", 1},
		{`<think>x</think>["a"]`, 1},
		{`Sure! Here: ["a", "b", "c"] done`, 3},
		{`[]`, 0},
	}
	for _, tt := range tests {
		got, err := parseValues(tt.raw)
		if err != nil || len(got) != tt.want {
			t.Errorf("parseValues(%q) = %v, %v; want %d values", tt.raw, got, err, tt.want)
		}
	}
	if _, err := parseValues("nothing"); err == nil {
		t.Errorf("expected error for reply without array")
	}
}

func TestIsInsideToken(t *testing.T) {
	text := "mail asd@yandex.ru now"
	if !isInsideToken(text, 6, 18) {
		t.Errorf("suffix of a word should be inside a token")
	}
	if isInsideToken(text, 5, 18) {
		t.Errorf("whole word should not be inside a token")
	}
}
