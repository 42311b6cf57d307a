package translate

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/voxlate/voxlate/internal/resilience"
	"github.com/voxlate/voxlate/pkg/provider"
	"github.com/voxlate/voxlate/pkg/provider/detect"
	detectmock "github.com/voxlate/voxlate/pkg/provider/detect/mock"
	"github.com/voxlate/voxlate/pkg/provider/mt"
	mtmock "github.com/voxlate/voxlate/pkg/provider/mt/mock"
)

var errProvider = errors.New("provider down")

// modelFactory returns a PairFactory serving a fixed mock per model name.
// Models without an entry get an always-failing provider.
func modelFactory(t *testing.T, mocks map[string]*mtmock.Provider) PairFactory {
	t.Helper()
	return func(model string) mt.Provider {
		if m, ok := mocks[model]; ok {
			return m
		}
		return &mtmock.Provider{Err: errProvider}
	}
}

func TestRouter_DirectPair(t *testing.T) {
	direct := &mtmock.Provider{Translation: "bonjour"}
	r := NewRouter(Config{
		PairFactory: modelFactory(t, map[string]*mtmock.Provider{
			"Helsinki-NLP/opus-mt-en-fr": direct,
		}),
	})

	got, attempts, err := r.Translate(context.Background(), "hello", "en", "fr")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "bonjour" {
		t.Fatalf("translation = %q, want bonjour", got)
	}
	if len(attempts) != 1 || !attempts[0].OK {
		t.Fatalf("attempts = %v, want single success", attempts)
	}
	if direct.CallCount() != 1 {
		t.Fatalf("direct provider called %d times, want 1", direct.CallCount())
	}
}

func TestRouter_PivotThroughEnglish(t *testing.T) {
	toEnglish := &mtmock.Provider{Translation: "hello"}
	fromEnglish := &mtmock.Provider{Fn: func(text, _, _ string) (string, error) {
		if text != "hello" {
			t.Fatalf("second leg received %q, want output of first leg", text)
		}
		return "annyeong", nil
	}}
	r := NewRouter(Config{
		PairFactory: modelFactory(t, map[string]*mtmock.Provider{
			// No fr-ko entry: the direct model fails, forcing the pivot.
			"Helsinki-NLP/opus-mt-fr-en":        toEnglish,
			"Helsinki-NLP/opus-mt-tc-big-en-ko": fromEnglish,
		}),
		Overrides: map[string]string{},
	})

	got, attempts, err := r.Translate(context.Background(), "bonjour", "fr", "ko")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "annyeong" {
		t.Fatalf("translation = %q, want annyeong", got)
	}
	// Direct failure plus two successful pivot legs.
	if len(attempts) != 3 {
		t.Fatalf("len(attempts) = %d, want 3: %v", len(attempts), attempts)
	}
	if attempts[0].OK {
		t.Fatal("direct pair attempt should have failed")
	}
	if !attempts[1].OK || !attempts[2].OK {
		t.Fatalf("pivot legs should have succeeded: %v", attempts)
	}
}

func TestRouter_PivotLegFailureExhausts(t *testing.T) {
	toEnglish := &mtmock.Provider{Translation: "hello"}
	r := NewRouter(Config{
		PairFactory: modelFactory(t, map[string]*mtmock.Provider{
			// Second leg (en->ko) missing, so it fails.
			"Helsinki-NLP/opus-mt-fr-en": toEnglish,
		}),
		Overrides: map[string]string{},
	})

	_, _, err := r.Translate(context.Background(), "bonjour", "fr", "ko")
	if !errors.Is(err, ErrExhausted) {
		t.Fatalf("err = %v, want ErrExhausted", err)
	}
	var exhausted *ExhaustedError
	if !errors.As(err, &exhausted) {
		t.Fatalf("err = %T, want *ExhaustedError", err)
	}
	if exhausted.SourceLang != "fr" || exhausted.TargetLang != "ko" {
		t.Fatalf("exhausted pair = %s->%s, want fr->ko", exhausted.SourceLang, exhausted.TargetLang)
	}
	if toEnglish.CallCount() != 1 {
		t.Fatalf("first leg called %d times, want 1", toEnglish.CallCount())
	}
}

func TestRouter_NoPivotWhenEnglishInvolved(t *testing.T) {
	r := NewRouter(Config{
		PairFactory: modelFactory(t, nil),
		Overrides:   map[string]string{},
	})

	_, attempts, err := r.Translate(context.Background(), "hello", "en", "fr")
	if !errors.Is(err, ErrExhausted) {
		t.Fatalf("err = %v, want ErrExhausted", err)
	}
	// Only the direct chain: pivoting en->en->fr would be pointless.
	if len(attempts) != 1 {
		t.Fatalf("len(attempts) = %d, want 1 (no pivot legs)", len(attempts))
	}
}

func TestRouter_OverrideLanguageTriesCloudFirst(t *testing.T) {
	cloud := &mtmock.Provider{Translation: "annyeonghaseyo"}
	direct := &mtmock.Provider{Translation: "direct"}
	r := NewRouter(Config{
		PairFactory: modelFactory(t, map[string]*mtmock.Provider{
			"Helsinki-NLP/opus-mt-tc-big-en-ko": direct,
		}),
		Cloud: cloud,
	})

	got, _, err := r.Translate(context.Background(), "hello", "en", "ko")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "annyeonghaseyo" {
		t.Fatalf("translation = %q, want cloud result", got)
	}
	if direct.CallCount() != 0 {
		t.Fatal("direct model should not be tried when the cloud override succeeds")
	}
}

func TestRouter_OverrideFallsThroughToDirect(t *testing.T) {
	cloud := &mtmock.Provider{Err: errProvider}
	direct := &mtmock.Provider{Translation: "direct"}
	r := NewRouter(Config{
		PairFactory: modelFactory(t, map[string]*mtmock.Provider{
			"Helsinki-NLP/opus-mt-tc-big-en-ko": direct,
		}),
		Cloud: cloud,
	})

	got, _, err := r.Translate(context.Background(), "hello", "en", "ko")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "direct" {
		t.Fatalf("translation = %q, want direct model result", got)
	}
	if cloud.CallCount() != 1 {
		t.Fatalf("cloud called %d times, want 1", cloud.CallCount())
	}
}

func TestRouter_CloudSkippedForNonOverridePair(t *testing.T) {
	cloud := &mtmock.Provider{Translation: "cloud"}
	direct := &mtmock.Provider{Translation: "bonjour"}
	r := NewRouter(Config{
		PairFactory: modelFactory(t, map[string]*mtmock.Provider{
			"Helsinki-NLP/opus-mt-en-fr": direct,
		}),
		Cloud: cloud,
	})

	got, _, err := r.Translate(context.Background(), "hello", "en", "fr")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "bonjour" {
		t.Fatalf("translation = %q, want direct model result", got)
	}
	if cloud.CallCount() != 0 {
		t.Fatal("cloud should only be tried for override languages")
	}
}

func TestRouter_LLMTail(t *testing.T) {
	llm := &mtmock.Provider{Translation: "from llm"}
	r := NewRouter(Config{
		PairFactory: modelFactory(t, nil),
		LLM:         llm,
		Overrides:   map[string]string{},
	})

	got, _, err := r.Translate(context.Background(), "hello", "en", "fr")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "from llm" {
		t.Fatalf("translation = %q, want llm result", got)
	}
}

func TestRouter_ChainCachedPerPair(t *testing.T) {
	calls := 0
	r := NewRouter(Config{
		PairFactory: func(model string) mt.Provider {
			calls++
			return &mtmock.Provider{Translation: "ok"}
		},
		Overrides: map[string]string{},
	})

	for i := 0; i < 3; i++ {
		if _, _, err := r.Translate(context.Background(), "hello", "en", "fr"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if calls != 1 {
		t.Fatalf("factory called %d times, want 1 (chain cached per pair)", calls)
	}
}

func TestRouter_Detect(t *testing.T) {
	detectors := resilience.NewChain[detect.Provider](resilience.ChainConfig{
		Capability: provider.CapabilityDetect,
	})
	detectors.Add("primary", &detectmock.Provider{Err: errProvider})
	detectors.Add("secondary", &detectmock.Provider{Lang: "fr"})

	r := NewRouter(Config{
		PairFactory: modelFactory(t, nil),
		Detectors:   detectors,
	})

	lang, attempts, err := r.Detect(context.Background(), "bonjour tout le monde")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if lang != "fr" {
		t.Fatalf("lang = %q, want fr", lang)
	}
	if len(attempts) != 2 {
		t.Fatalf("len(attempts) = %d, want 2", len(attempts))
	}
}

func TestRouter_DetectWithoutDetectors(t *testing.T) {
	r := NewRouter(Config{PairFactory: modelFactory(t, nil)})

	_, _, err := r.Detect(context.Background(), "hello")
	if !errors.Is(err, ErrNoDetector) {
		t.Fatalf("err = %v, want ErrNoDetector", err)
	}
}

func TestPairModel(t *testing.T) {
	cases := []struct {
		src, tgt string
		want     string
	}{
		{"en", "fr", "Helsinki-NLP/opus-mt-en-fr"},
		{"ko", "en", "Helsinki-NLP/opus-mt-tc-big-ko-en"},
		{"en", "ko", "Helsinki-NLP/opus-mt-tc-big-en-ko"},
		{"zh", "en", "Helsinki-NLP/opus-mt-zh-en"},
	}
	for _, tc := range cases {
		if got := pairModel(tc.src, tc.tgt); got != tc.want {
			t.Errorf("pairModel(%s, %s) = %q, want %q", tc.src, tc.tgt, got, tc.want)
		}
	}
}

func TestExhaustedError_Message(t *testing.T) {
	err := &ExhaustedError{SourceLang: "fr", TargetLang: "ko"}
	if !strings.Contains(err.Error(), "fr->ko") {
		t.Fatalf("error message %q should name the pair", err.Error())
	}
}
