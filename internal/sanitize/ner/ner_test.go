package ner

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestClassify(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/detect-pii" || r.Method != http.MethodPost {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		var req detectRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Text != "hi John" {
			t.Errorf("request body %#v, %v", req, err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"entities":[{"label":"PER","text":"John","start":3,"end":7,"confidence":0.8},{"id":"E9","label":"PER","text":"hi","confidence":0.2}]}`))
	}))
	defer srv.Close()

	got, err := New(srv.URL+"/").Classify(context.Background(), "hi John")
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	if len(got) != 2 || got[0].ID != "NER-1" || got[0].Text != "John" || got[1].ID != "E9" {
		t.Fatalf("entities %#v", got)
	}
}

func TestClassifySidecarDown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	got, err := New(srv.URL).Classify(context.Background(), "text")
	if err != nil || got != nil {
		t.Fatalf("Classify = %#v, %v", got, err)
	}

	srv.Close()
	got, err = New(srv.URL).Classify(context.Background(), "text")
	if err != nil || got != nil {
		t.Fatalf("unreachable: Classify = %#v, %v", got, err)
	}
}

func TestClassifyBadJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`not json`))
	}))
	defer srv.Close()

	if _, err := New(srv.URL).Classify(context.Background(), "text"); err == nil {
		t.Fatalf("expected decode error")
	}
}
