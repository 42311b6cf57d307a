package hf

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestTranslate_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/models/Helsinki-NLP/opus-mt-fr-en" {
			t.Errorf("path = %q", r.URL.Path)
		}
		var req map[string]string
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req["inputs"] != "bonjour" {
			t.Errorf("inputs = %q", req["inputs"])
		}
		w.Write([]byte(`[{"translation_text": " hello "}]`))
	}))
	defer srv.Close()

	p, err := New("hf_test", "Helsinki-NLP/opus-mt-fr-en", WithBaseURL(srv.URL))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	out, err := p.Translate(context.Background(), "bonjour", "fr", "en")
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
	if out != "hello" {
		t.Errorf("translation = %q, want trimmed text", out)
	}
}

func TestTranslate_Failures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "rate limited",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
			},
		},
		{
			name: "empty array",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.Write([]byte(`[]`))
			},
		},
		{
			name: "missing translation_text",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.Write([]byte(`[{"generated_text":"hello"}]`))
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(tc.handler)
			defer srv.Close()

			p, err := New("hf_test", "Helsinki-NLP/opus-mt-fr-en", WithBaseURL(srv.URL))
			if err != nil {
				t.Fatalf("New: %v", err)
			}
			if _, err := p.Translate(context.Background(), "bonjour", "fr", "en"); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestTranslate_EmptyTokenFailsFast(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		called = true
	}))
	defer srv.Close()

	p, err := New("", "Helsinki-NLP/opus-mt-fr-en", WithBaseURL(srv.URL))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := p.Translate(context.Background(), "bonjour", "fr", "en"); err == nil {
		t.Fatal("expected fail-fast error without a token")
	}
	if called {
		t.Error("request sent despite missing token")
	}
}
