// Package gateway binds the translation pipeline to WebSocket sessions. One
// goroutine serves each connection; inbound events are handled serially, so
// a connection has at most one job in flight and its progress events are
// delivered in order. Disconnects cancel the in-flight job's context, which
// aborts the provider HTTP calls behind it.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/coder/websocket"
	"github.com/google/uuid"

	"github.com/voxlate/voxlate/internal/observe"
	"github.com/voxlate/voxlate/internal/pipeline"
)

// Event names on the wire.
const (
	eventAudioStream         = "audio-stream"
	eventConnected           = "connected"
	eventTranscriptionUpdate = "transcription-update"
	eventTranslatedAudio     = "translated-audio"
	eventStatusUpdate        = "status-update"
	eventError               = "error"
)

// errNoAudio is the exact client-facing message for a missing audio payload.
const errNoAudio = "No audio data received."

// envelope is the JSON wrapper for every message in both directions.
type envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// audioStreamRequest is the inbound audio-stream payload. Audio travels
// base64-encoded inside the JSON.
type audioStreamRequest struct {
	Audio      []byte `json:"audio"`
	SourceLang string `json:"sourceLang"`
	TargetLang string `json:"targetLang"`
}

// connectedData greets a new session.
type connectedData struct {
	Message  string `json:"message"`
	SocketID string `json:"socketId"`
}

// transcriptionData is the mid-pipeline progress payload.
type transcriptionData struct {
	OriginalText string `json:"originalText"`
}

// translatedAudioData is the final result payload. Audio is nil when
// synthesis degraded; the client falls back to local TTS on Text.
type translatedAudioData struct {
	Audio        []byte               `json:"audio,omitempty"`
	Text         string               `json:"text"`
	OriginalText string               `json:"originalText"`
	Degraded     pipeline.Degradation `json:"degraded"`
}

// statusMessages are the coarse progress strings sent per stage.
var statusMessages = map[pipeline.State]string{
	pipeline.StateTranscribing: "Transcribing audio...",
	pipeline.StateDetecting:    "Detecting language...",
	pipeline.StateTranslating:  "Translating...",
	pipeline.StateSynthesizing: "Generating speech...",
}

// JobRunner executes one pipeline job. Implemented by
// [pipeline.Orchestrator].
type JobRunner interface {
	Run(ctx context.Context, job pipeline.Job, progress pipeline.Progress) (*pipeline.Result, error)
}

// Config holds the gateway's construction parameters.
type Config struct {
	// Runner executes jobs.
	Runner JobRunner

	// Metrics tracks active sessions. Optional.
	Metrics *observe.Metrics

	// OriginPatterns is passed to the WebSocket accept options. Empty means
	// same-origin only.
	OriginPatterns []string
}

// Gateway upgrades HTTP requests to WebSocket sessions and pumps jobs
// through the pipeline.
type Gateway struct {
	runner  JobRunner
	metrics *observe.Metrics
	origins []string
}

// Compile-time interface assertion.
var _ http.Handler = (*Gateway)(nil)

// New creates a [Gateway] from cfg.
func New(cfg Config) *Gateway {
	return &Gateway{
		runner:  cfg.Runner,
		metrics: cfg.Metrics,
		origins: cfg.OriginPatterns,
	}
}

// ServeHTTP upgrades the request and runs the session loop until the client
// disconnects.
func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: g.origins,
	})
	if err != nil {
		slog.Warn("websocket accept failed", "error", err)
		return
	}
	defer conn.CloseNow()

	// The connection context is the root of every job context: a disconnect
	// cancels in-flight provider calls.
	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	socketID := uuid.NewString()
	log := slog.With("socket_id", socketID)

	g.metrics.SessionStarted(ctx)
	defer g.metrics.SessionEnded(context.WithoutCancel(ctx))

	if err := g.send(ctx, conn, eventConnected, connectedData{
		Message:  "Connected to translation server",
		SocketID: socketID,
	}); err != nil {
		log.Warn("greeting failed", "error", err)
		return
	}
	log.Info("session started")

	// Serialized read loop: the next event is not read until the current
	// job finishes, giving at-most-one-outstanding-job semantics.
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			status := websocket.CloseStatus(err)
			if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway || ctx.Err() != nil {
				log.Info("session closed")
			} else {
				log.Warn("session read failed", "error", err)
			}
			return
		}
		g.handle(ctx, conn, log, data)
	}
}

// handle dispatches one inbound message.
func (g *Gateway) handle(ctx context.Context, conn *websocket.Conn, log *slog.Logger, data []byte) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		g.sendError(ctx, conn, "Malformed message.")
		return
	}

	switch env.Event {
	case eventAudioStream:
		g.handleAudioStream(ctx, conn, log, env.Data)
	default:
		log.Warn("unknown event", "event", env.Event)
		g.sendError(ctx, conn, "Unknown event: "+env.Event)
	}
}

// handleAudioStream runs one job and streams progress and the final result
// back over the connection.
func (g *Gateway) handleAudioStream(ctx context.Context, conn *websocket.Conn, log *slog.Logger, raw json.RawMessage) {
	var req audioStreamRequest
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &req); err != nil {
			g.sendError(ctx, conn, "Malformed audio-stream payload.")
			return
		}
	}
	if len(req.Audio) == 0 {
		g.sendError(ctx, conn, errNoAudio)
		return
	}

	log.Info("job received",
		"bytes", len(req.Audio),
		"source", req.SourceLang,
		"target", req.TargetLang)

	result, err := g.runner.Run(ctx, pipeline.Job{
		Audio:      req.Audio,
		SourceLang: req.SourceLang,
		TargetLang: req.TargetLang,
	}, pipeline.Progress{
		OnTranscript: func(text string) {
			_ = g.send(ctx, conn, eventTranscriptionUpdate, transcriptionData{OriginalText: text})
		},
		OnState: func(s pipeline.State) {
			if msg, ok := statusMessages[s]; ok {
				_ = g.send(ctx, conn, eventStatusUpdate, msg)
			}
		},
	})
	if err != nil {
		g.sendError(ctx, conn, jobErrorMessage(err))
		return
	}

	_ = g.send(ctx, conn, eventTranslatedAudio, translatedAudioData{
		Audio:        result.Audio,
		Text:         result.TranslatedText,
		OriginalText: result.OriginalText,
		Degraded:     result.Degraded,
	})
}

// jobErrorMessage maps pipeline failures to client-facing messages.
func jobErrorMessage(err error) string {
	var invalid *pipeline.InvalidJobError
	if errors.As(err, &invalid) {
		if invalid.Size == 0 {
			return errNoAudio
		}
		return "Audio payload too small to process."
	}
	var perr *pipeline.Error
	if errors.As(err, &perr) {
		return "Pipeline failed: " + perr.Err.Error()
	}
	return "Pipeline failed: " + err.Error()
}

// send writes one enveloped event as a text message.
func (g *Gateway) send(ctx context.Context, conn *websocket.Conn, event string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return err
	}
	msg, err := json.Marshal(envelope{Event: event, Data: payload})
	if err != nil {
		return err
	}
	return conn.Write(ctx, websocket.MessageText, msg)
}

// sendError emits an error event with a plain string payload.
func (g *Gateway) sendError(ctx context.Context, conn *websocket.Conn, msg string) {
	_ = g.send(ctx, conn, eventError, msg)
}
