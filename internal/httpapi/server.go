// Package httpapi exposes the LinguaLeap tutoring service over HTTP.
//
// Three JSON endpoints are served: /api/turn runs a full tutoring turn,
// /api/suggestions proposes learner replies, and /api/tts synthesizes
// speech for a piece of tutor output. Health probes and the Prometheus
// /metrics endpoint are mounted alongside.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lingualeap/lingualeap/internal/health"
	"github.com/lingualeap/lingualeap/internal/observe"
	"github.com/lingualeap/lingualeap/internal/tutor"
	"github.com/lingualeap/lingualeap/pkg/provider/speech"
)

// maxBodyBytes caps request body size. Tutoring inputs are short text.
const maxBodyBytes = 64 << 10

// defaultSpeechRate is applied when the client omits the rate field.
const defaultSpeechRate = 1.2

// TutorService is the tutoring core consumed by the handlers.
type TutorService interface {
	RunTurn(ctx context.Context, req tutor.TurnRequest) (*tutor.TurnResponse, error)
	SuggestAnswers(ctx context.Context, req tutor.SuggestionsRequest) (*tutor.SuggestionsResult, error)
}

// SpeechFactory constructs a speech provider from the credentials available
// at call time. Returning an error means synthesis is not currently possible
// (typically missing credentials); the handler reports it as a 500.
type SpeechFactory func() (speech.Provider, error)

// Server bundles the HTTP handlers and their dependencies.
type Server struct {
	tutor        TutorService
	speech       SpeechFactory
	health       *health.Handler
	metrics      *observe.Metrics
	defaultVoice string
}

// Option configures a [Server].
type Option func(*Server)

// WithHealth mounts the given health handler on /healthz and /readyz.
func WithHealth(h *health.Handler) Option {
	return func(s *Server) { s.health = h }
}

// WithMetrics wires the observe instruments into the handlers.
// When nil (the default), no metrics are recorded.
func WithMetrics(m *observe.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// WithDefaultVoice sets the voice used when a /api/tts request omits one.
// An empty value keeps the provider's per-language voice table in charge.
func WithDefaultVoice(voice string) Option {
	return func(s *Server) { s.defaultVoice = voice }
}

// New creates a Server. The speech factory may be nil, in which case
// /api/tts always reports that synthesis is unavailable.
func New(ts TutorService, sf SpeechFactory, opts ...Option) *Server {
	s := &Server{tutor: ts, speech: sf}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the full route tree wrapped in the observe middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/turn", s.handleTurn)
	mux.HandleFunc("POST /api/suggestions", s.handleSuggestions)
	mux.HandleFunc("POST /api/tts", s.handleTTS)
	mux.Handle("GET /metrics", promhttp.Handler())

	if s.health != nil {
		s.health.Register(mux)
	}

	m := s.metrics
	if m == nil {
		m = observe.DefaultMetrics()
	}
	return observe.Middleware(m)(mux)
}

// errorBody is the JSON error envelope shared by all endpoints.
type errorBody struct {
	Error string `json:"error"`
}

func (s *Server) handleTurn(w http.ResponseWriter, r *http.Request) {
	var req tutor.TurnRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	resp, err := s.tutor.RunTurn(r.Context(), req)
	if err != nil {
		s.writeTutorError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSuggestions(w http.ResponseWriter, r *http.Request) {
	var req tutor.SuggestionsRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	res, err := s.tutor.SuggestAnswers(r.Context(), req)
	if err != nil {
		s.writeTutorError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// ttsRequest is the /api/tts request body.
type ttsRequest struct {
	Text  string  `json:"text"`
	Lang  string  `json:"lang"`
	Rate  float64 `json:"rate"`
	Voice string  `json:"voice"`
}

func (s *Server) handleTTS(w http.ResponseWriter, r *http.Request) {
	var req ttsRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Text == "" || req.Lang == "" {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "text and lang are required"})
		return
	}
	if req.Rate == 0 {
		req.Rate = defaultSpeechRate
	}
	if req.Voice == "" {
		req.Voice = s.defaultVoice
	}

	log := observe.Logger(r.Context())

	if s.speech == nil {
		log.Error("tts request with no speech factory configured")
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "Speech synthesis is not available."})
		return
	}

	provider, err := s.speech()
	if err != nil {
		log.Error("speech provider unavailable", "err", err)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "Speech synthesis is not available."})
		return
	}

	start := time.Now()
	audio, err := provider.Synthesize(r.Context(), speech.Request{
		Text:        req.Text,
		LanguageTag: req.Lang,
		Rate:        req.Rate,
		Voice:       req.Voice,
	})
	if s.metrics != nil {
		status := "ok"
		if err != nil {
			status = "error"
		}
		s.metrics.RecordSynthesis(r.Context(), provider.Name(), status, time.Since(start).Seconds())
	}
	if err != nil {
		log.Error("speech synthesis failed", "provider", provider.Name(), "err", err)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "Failed to synthesize speech."})
		return
	}

	w.Header().Set("Content-Type", "audio/mpeg")
	w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(audio)
}

// writeTutorError maps tutoring failures to HTTP responses: invalid input is
// a 400 with the validation detail, everything else is a 502 carrying only
// the generic retry message. The cause is logged, never sent to the client.
func (s *Server) writeTutorError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, tutor.ErrInvalidInput) {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}

	var terr *tutor.TurnError
	if errors.As(err, &terr) {
		observe.Logger(r.Context()).Error("turn failed",
			"op", terr.Op,
			"request_id", terr.RequestID,
			"err", terr.Err,
		)
		writeJSON(w, http.StatusBadGateway, errorBody{Error: terr.UserMessage()})
		return
	}

	observe.Logger(r.Context()).Error("turn failed", "err", err)
	writeJSON(w, http.StatusBadGateway, errorBody{Error: "Failed to get response from AI. Please try again."})
}

// decodeJSON reads a JSON body into v, answering 400 on malformed input.
// Returns false when the response has already been written.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	defer func() {
		_, _ = io.Copy(io.Discard, body)
	}()

	dec := json.NewDecoder(body)
	if err := dec.Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "malformed request body"})
		return false
	}
	return true
}

// writeJSON encodes v with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
