package hf

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/voxlate/voxlate/pkg/provider"
)

func TestSynthesize_Success(t *testing.T) {
	audio := bytes.Repeat([]byte{0xAB}, 2048)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/models/facebook/mms-tts-fra" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if got := r.Header.Get("X-Wait-For-Model"); got != "true" {
			t.Errorf("X-Wait-For-Model = %q", got)
		}
		var req map[string]string
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req["inputs"] != "bonjour" {
			t.Errorf("inputs = %q", req["inputs"])
		}
		w.Write(audio)
	}))
	defer srv.Close()

	p, err := New("hf_test", "facebook/mms-tts-fra", WithBaseURL(srv.URL))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	got, err := p.Synthesize(context.Background(), "bonjour", "fr")
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if !bytes.Equal(got, audio) {
		t.Error("audio payload not returned verbatim")
	}
}

func TestSynthesize_ShortBodyIsDisguisedFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"error":"overloaded"}`))
	}))
	defer srv.Close()

	p, err := New("hf_test", "facebook/mms-tts-fra", WithBaseURL(srv.URL))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	_, err = p.Synthesize(context.Background(), "bonjour", "fr")
	if err == nil {
		t.Fatal("expected error for short 200 body")
	}
	var perr *provider.Error
	if !errors.As(err, &perr) {
		t.Fatalf("error type %T, want *provider.Error", err)
	}
	if perr.Capability != provider.CapabilityTTS {
		t.Errorf("capability = %q", perr.Capability)
	}
}

func TestSynthesize_MinAudioBytesOption(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("tiny"))
	}))
	defer srv.Close()

	p, err := New("hf_test", "facebook/mms-tts-fra", WithBaseURL(srv.URL), WithMinAudioBytes(4))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := p.Synthesize(context.Background(), "hi", "en"); err != nil {
		t.Fatalf("Synthesize with lowered floor: %v", err)
	}
}

func TestSynthesize_NonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "model loading", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	p, err := New("hf_test", "facebook/mms-tts-fra", WithBaseURL(srv.URL))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := p.Synthesize(context.Background(), "bonjour", "fr"); err == nil {
		t.Fatal("expected error")
	}
}

func TestSynthesize_EmptyTokenFailsFast(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {
		called = true
	}))
	defer srv.Close()

	p, err := New("", "facebook/mms-tts-fra", WithBaseURL(srv.URL))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := p.Synthesize(context.Background(), "bonjour", "fr"); err == nil {
		t.Fatal("expected fail-fast error without a token")
	}
	if called {
		t.Error("request sent despite missing token")
	}
}

func TestNew_RequiresModel(t *testing.T) {
	if _, err := New("hf_test", ""); err == nil {
		t.Fatal("expected error for empty model")
	}
}
