package pipeline

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/voxlate/voxlate/internal/resilience"
	"github.com/voxlate/voxlate/pkg/provider"
	"github.com/voxlate/voxlate/pkg/provider/stt"
	sttmock "github.com/voxlate/voxlate/pkg/provider/stt/mock"
)

var errTest = errors.New("provider down")

// fakeRouter implements Translator with configurable behaviour.
type fakeRouter struct {
	mu             sync.Mutex
	translation    string
	translateErr   error
	translateCalls int
	detectLang     string
	detectErr      error
	detectCalls    int
}

func (r *fakeRouter) Translate(_ context.Context, text, src, tgt string) (string, []provider.Attempt, error) {
	r.mu.Lock()
	r.translateCalls++
	r.mu.Unlock()
	if r.translateErr != nil {
		return "", nil, r.translateErr
	}
	return r.translation, []provider.Attempt{{Provider: "fake", Capability: provider.CapabilityTranslate, OK: true}}, nil
}

func (r *fakeRouter) Detect(_ context.Context, text string) (string, []provider.Attempt, error) {
	r.mu.Lock()
	r.detectCalls++
	r.mu.Unlock()
	if r.detectErr != nil {
		return "", nil, r.detectErr
	}
	return r.detectLang, nil, nil
}

// fakeSynth implements AudioSynthesizer.
type fakeSynth struct {
	mu    sync.Mutex
	audio []byte
	err   error
	calls []string
}

func (s *fakeSynth) Synthesize(_ context.Context, text, lang string) ([]byte, []provider.Attempt, error) {
	s.mu.Lock()
	s.calls = append(s.calls, text)
	s.mu.Unlock()
	if s.err != nil {
		return nil, nil, s.err
	}
	return s.audio, nil, nil
}

func (s *fakeSynth) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

func sttChain(providers ...stt.Provider) *resilience.Chain[stt.Provider] {
	c := resilience.NewChain[stt.Provider](resilience.ChainConfig{
		Capability: provider.CapabilitySTT,
		Breaker:    resilience.BreakerConfig{Trip: 100},
	})
	for i, p := range providers {
		c.Add("stt-"+string(rune('a'+i)), p)
	}
	return c
}

func validAudio() []byte {
	return make([]byte, 2048)
}

func TestRun_HappyPath(t *testing.T) {
	transcriber := &sttmock.Provider{Text: "hello world"}
	router := &fakeRouter{translation: "bonjour le monde"}
	synth := &fakeSynth{audio: []byte("mp3 bytes")}
	o := New(Config{STT: sttChain(transcriber), Router: router, Synth: synth})

	res, err := o.Run(context.Background(), Job{
		Audio:      validAudio(),
		SourceLang: "en",
		TargetLang: "fr",
	}, Progress{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.OriginalText != "hello world" {
		t.Errorf("OriginalText = %q", res.OriginalText)
	}
	if res.TranslatedText != "bonjour le monde" {
		t.Errorf("TranslatedText = %q", res.TranslatedText)
	}
	if string(res.Audio) != "mp3 bytes" {
		t.Errorf("Audio = %q", res.Audio)
	}
	if res.Degraded.Any() {
		t.Errorf("Degraded = %+v, want none", res.Degraded)
	}
}

func TestRun_RejectsSmallAudio(t *testing.T) {
	for _, size := range []int{0, 500, DefaultMinAudioBytes - 1} {
		transcriber := &sttmock.Provider{Text: "should not be called"}
		o := New(Config{STT: sttChain(transcriber), Router: &fakeRouter{}, Synth: &fakeSynth{}})

		_, err := o.Run(context.Background(), Job{
			Audio:      make([]byte, size),
			SourceLang: "en",
			TargetLang: "fr",
		}, Progress{})

		var invalid *InvalidJobError
		if !errors.As(err, &invalid) {
			t.Fatalf("size %d: err = %v, want *InvalidJobError", size, err)
		}
		if invalid.Size != size {
			t.Errorf("size %d: InvalidJobError.Size = %d", size, invalid.Size)
		}
		if transcriber.CallCount() != 0 {
			t.Errorf("size %d: STT invoked before validation", size)
		}
	}
}

func TestRun_TotalFallbackCoverage(t *testing.T) {
	// Every provider fails; the job must still complete with flagged
	// degradations on every substitutable stage.
	o := New(Config{
		STT:    sttChain(&sttmock.Provider{Err: errTest}),
		Router: &fakeRouter{translateErr: errTest},
		Synth:  &fakeSynth{err: errTest},
	})

	res, err := o.Run(context.Background(), Job{
		Audio:      validAudio(),
		SourceLang: "en",
		TargetLang: "fr",
	}, Progress{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.OriginalText == "" {
		t.Error("OriginalText empty, want fallback transcript")
	}
	if !res.Degraded.Transcript {
		t.Error("Degraded.Transcript = false")
	}
	if !strings.HasPrefix(res.TranslatedText, degradedTranslationPrefix) {
		t.Errorf("TranslatedText = %q, want marker prefix", res.TranslatedText)
	}
	if !strings.HasSuffix(res.TranslatedText, res.OriginalText) {
		t.Errorf("TranslatedText = %q, want marker plus original", res.TranslatedText)
	}
	if !res.Degraded.Translation {
		t.Error("Degraded.Translation = false")
	}
	if res.Audio != nil {
		t.Error("Audio should be nil when synthesis is exhausted")
	}
	if !res.Degraded.Audio {
		t.Error("Degraded.Audio = false")
	}
}

func TestRun_SameLanguageShortCircuit(t *testing.T) {
	router := &fakeRouter{detectLang: "en"}
	synth := &fakeSynth{audio: []byte("voice")}
	o := New(Config{
		STT:    sttChain(&sttmock.Provider{Text: "hello"}),
		Router: router,
		Synth:  synth,
	})

	res, err := o.Run(context.Background(), Job{
		Audio:      validAudio(),
		SourceLang: SourceAuto,
		TargetLang: "en",
	}, Progress{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.TranslatedText != res.OriginalText {
		t.Errorf("TranslatedText = %q, want OriginalText %q", res.TranslatedText, res.OriginalText)
	}
	if router.translateCalls != 0 {
		t.Errorf("translate calls = %d, want 0", router.translateCalls)
	}
	// TTS is still invoked on the untranslated text.
	if synth.callCount() != 1 {
		t.Errorf("synth calls = %d, want 1", synth.callCount())
	}
}

func TestRun_DeclaredSameLanguageStillSynthesizes(t *testing.T) {
	router := &fakeRouter{}
	synth := &fakeSynth{audio: []byte("voice")}
	o := New(Config{
		STT:    sttChain(&sttmock.Provider{Text: "hello"}),
		Router: router,
		Synth:  synth,
	})

	res, err := o.Run(context.Background(), Job{
		Audio:      validAudio(),
		SourceLang: "en",
		TargetLang: "en",
	}, Progress{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.TranslatedText != "hello" {
		t.Errorf("TranslatedText = %q, want hello", res.TranslatedText)
	}
	if router.detectCalls != 0 || router.translateCalls != 0 {
		t.Error("router should not be consulted for a declared same-language job")
	}
	if synth.callCount() != 1 {
		t.Errorf("synth calls = %d, want 1", synth.callCount())
	}
}

func TestRun_DetectionFailureFailsJob(t *testing.T) {
	o := New(Config{
		STT:    sttChain(&sttmock.Provider{Text: "hola"}),
		Router: &fakeRouter{detectErr: errTest},
		Synth:  &fakeSynth{},
	})

	_, err := o.Run(context.Background(), Job{
		Audio:      validAudio(),
		SourceLang: SourceAuto,
		TargetLang: "en",
	}, Progress{})

	var perr *Error
	if !errors.As(err, &perr) {
		t.Fatalf("err = %v, want *Error", err)
	}
	if perr.Stage != StateDetecting {
		t.Errorf("failed stage = %v, want detecting", perr.Stage)
	}
	if !errors.Is(err, errTest) {
		t.Errorf("err should wrap the detection cause, got %v", err)
	}
}

func TestRun_DetectionFallbackLang(t *testing.T) {
	router := &fakeRouter{detectErr: errTest, translation: "hello"}
	o := New(Config{
		STT:                sttChain(&sttmock.Provider{Text: "hola"}),
		Router:             router,
		Synth:              &fakeSynth{audio: []byte("voice")},
		DetectFallbackLang: "es",
	})

	res, err := o.Run(context.Background(), Job{
		Audio:      validAudio(),
		SourceLang: SourceAuto,
		TargetLang: "en",
	}, Progress{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.SourceLang != "es" {
		t.Errorf("SourceLang = %q, want fallback es", res.SourceLang)
	}
	if !res.Degraded.Detection {
		t.Error("Degraded.Detection = false")
	}
	if res.TranslatedText != "hello" {
		t.Errorf("TranslatedText = %q, want translation from fallback source", res.TranslatedText)
	}
}

func TestRun_ProgressOrdering(t *testing.T) {
	var events []string
	var mu sync.Mutex
	record := func(e string) {
		mu.Lock()
		events = append(events, e)
		mu.Unlock()
	}

	o := New(Config{
		STT:    sttChain(&sttmock.Provider{Text: "hello"}),
		Router: &fakeRouter{translation: "bonjour"},
		Synth:  &fakeSynth{audio: []byte("voice")},
	})

	_, err := o.Run(context.Background(), Job{
		Audio:      validAudio(),
		SourceLang: "en",
		TargetLang: "fr",
	}, Progress{
		OnTranscript: func(text string) { record("transcript:" + text) },
		OnState: func(s State) {
			if s == StateCompleted {
				record("completed")
			}
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(events) != 2 || events[0] != "transcript:hello" || events[1] != "completed" {
		t.Fatalf("events = %v, want transcript strictly before completion", events)
	}
}

func TestRun_TranscriptFallbackStillEmitsProgress(t *testing.T) {
	var got string
	o := New(Config{
		STT:    sttChain(&sttmock.Provider{Err: errTest}),
		Router: &fakeRouter{translation: "x"},
		Synth:  &fakeSynth{audio: []byte("voice")},
	})

	_, err := o.Run(context.Background(), Job{
		Audio:      validAudio(),
		SourceLang: "en",
		TargetLang: "fr",
	}, Progress{OnTranscript: func(text string) { got = text }})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != fallbackTranscript {
		t.Errorf("progress transcript = %q, want fallback", got)
	}
}

func TestRun_FallbackOrdering(t *testing.T) {
	a := &sttmock.Provider{Err: errTest}
	b := &sttmock.Provider{Text: "from b"}
	c := &sttmock.Provider{Text: "from c"}
	o := New(Config{
		STT:    sttChain(a, b, c),
		Router: &fakeRouter{translation: "x"},
		Synth:  &fakeSynth{audio: []byte("voice")},
	})

	res, err := o.Run(context.Background(), Job{
		Audio:      validAudio(),
		SourceLang: "en",
		TargetLang: "fr",
	}, Progress{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.OriginalText != "from b" {
		t.Errorf("OriginalText = %q, want output of first succeeding provider", res.OriginalText)
	}
	if c.CallCount() != 0 {
		t.Error("third provider invoked after an earlier success")
	}
}

func TestRun_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	blocker := &sttmock.Provider{Err: context.Canceled}
	o := New(Config{
		STT:    sttChain(blocker),
		Router: &fakeRouter{},
		Synth:  &fakeSynth{},
	})

	cancel()
	_, err := o.Run(ctx, Job{
		Audio:      validAudio(),
		SourceLang: "en",
		TargetLang: "fr",
	}, Progress{})

	var perr *Error
	if !errors.As(err, &perr) {
		t.Fatalf("err = %v, want *Error on cancellation", err)
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err should wrap context.Canceled, got %v", err)
	}
}

func TestState_String(t *testing.T) {
	want := map[State]string{
		StateValidating:   "validating",
		StateTranscribing: "transcribing",
		StateDetecting:    "detecting",
		StateTranslating:  "translating",
		StateSynthesizing: "synthesizing",
		StateCompleted:    "completed",
		StateFailed:       "failed",
		State(99):         "unknown",
	}
	for s, name := range want {
		if got := s.String(); got != name {
			t.Errorf("State(%d).String() = %q, want %q", s, got, name)
		}
	}
}

// Guard against the floor accidentally diverging from the documented value.
func TestDefaultMinAudioBytes(t *testing.T) {
	if DefaultMinAudioBytes != 1000 {
		t.Fatalf("DefaultMinAudioBytes = %d, want 1000", DefaultMinAudioBytes)
	}
}
