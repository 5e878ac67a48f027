package tutor

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/errgroup"

	"github.com/lingualeap/lingualeap/internal/gateway"
	"github.com/lingualeap/lingualeap/internal/observe"
)

// defaultCallTimeout bounds each individual model call. A timed-out call is a
// call failure and fails the whole turn under the all-or-nothing policy.
const defaultCallTimeout = 30 * time.Second

// Option is a functional option for Service.
type Option func(*Service)

// WithCallTimeout overrides the per-call timeout.
func WithCallTimeout(d time.Duration) Option {
	return func(s *Service) {
		s.callTimeout = d
	}
}

// WithMetrics wires the observe instruments into the service. When nil (the
// default), no metrics are recorded.
func WithMetrics(m *observe.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// Service runs tutoring turns and answer-suggestion calls against a model
// gateway. It holds no state across turns; concurrent invocations with
// independent inputs are safe.
type Service struct {
	gw          gateway.Invoker
	callTimeout time.Duration
	metrics     *observe.Metrics
}

// New creates a Service over the given gateway.
func New(gw gateway.Invoker, opts ...Option) *Service {
	s := &Service{
		gw:          gw,
		callTimeout: defaultCallTimeout,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// conversationOut is the conversation prompt's output shape; the reply text
// also feeds the dependent translation call.
type conversationOut struct {
	TutorResponse string `json:"tutorResponse"`
}

// RunTurn executes one tutoring turn: the conversation, grammar, refinement
// and correction calls start together; the translation call starts the moment
// the conversation reply is known, overlapping the three independent calls.
//
// The merge is all-or-nothing — if any of the five calls fails (gateway
// error, schema violation, timeout), the turn fails with a single [TurnError]
// and no partial aggregate is returned. Each call is attempted exactly once;
// a first failure cancels the remaining in-flight calls via the group
// context, and Wait drains every goroutine before returning.
func (s *Service) RunTurn(ctx context.Context, req TurnRequest) (*TurnResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	requestID := uuid.NewString()
	ctx, span := observe.StartSpan(ctx, "tutor.turn")
	defer span.End()

	start := time.Now()
	if s.metrics != nil {
		s.metrics.ActiveTurns.Add(ctx, 1)
		defer s.metrics.ActiveTurns.Add(ctx, -1)
	}

	log := observe.Logger(ctx).With("request_id", requestID)
	log.Debug("turn started", "language", req.Language, "level", req.Level, "topic", req.Topic)

	var (
		conv        conversationOut
		translation TranslationResult
		grammar     GrammarResult
		refinement  RefinementResult
		correction  CorrectionResult
	)

	g, gctx := errgroup.WithContext(ctx)

	// Conversation, then the dependent translation in the same goroutine:
	// the translation's input is the conversation's output, so it cannot
	// start earlier — but this way it overlaps the three calls below.
	g.Go(func() error {
		if err := s.call(gctx, conversationPrompt, map[string]string{
			"language":       req.Language,
			"nativeLanguage": req.NativeLanguage,
			"topic":          req.Topic,
			"level":          req.Level,
			"userInput":      req.UserInput,
		}, &conv); err != nil {
			return &TurnError{Op: "conversation", RequestID: requestID, Err: err}
		}

		if err := s.call(gctx, translationPrompt, map[string]string{
			"text":           conv.TutorResponse,
			"targetLanguage": req.NativeLanguage,
		}, &translation); err != nil {
			return &TurnError{Op: "translation", RequestID: requestID, Err: err}
		}
		return nil
	})

	g.Go(func() error {
		if err := s.call(gctx, grammarPrompt, map[string]string{
			"text":           req.UserInput,
			"nativeLanguage": req.NativeLanguage,
		}, &grammar); err != nil {
			return &TurnError{Op: "grammar", RequestID: requestID, Err: err}
		}
		return nil
	})

	g.Go(func() error {
		if err := s.call(gctx, refinementPrompt, map[string]string{
			"text":           req.UserInput,
			"language":       req.Language,
			"level":          req.Level,
			"nativeLanguage": req.NativeLanguage,
		}, &refinement); err != nil {
			return &TurnError{Op: "refinement", RequestID: requestID, Err: err}
		}
		return nil
	})

	g.Go(func() error {
		if err := s.call(gctx, correctionPrompt, map[string]string{
			"incorrectSentence": req.UserInput,
			"nativeLanguage":    req.NativeLanguage,
		}, &correction); err != nil {
			return &TurnError{Op: "correction", RequestID: requestID, Err: err}
		}
		return nil
	})

	err := g.Wait()
	s.recordTurn(ctx, time.Since(start), err)
	if err != nil {
		log.Error("turn failed", "err", err)
		return nil, err
	}

	log.Debug("turn completed", "duration", time.Since(start))
	return &TurnResponse{
		TutorResponse: conv.TutorResponse,
		Translation:   translation.TranslatedText,
		Grammar:       grammar,
		Refinement:    refinement,
		Correction:    correction,
	}, nil
}

// SuggestAnswers produces reply suggestions for the tutor's last message.
// It is independent of RunTurn, never cached, and each invocation issues one
// fresh model call.
func (s *Service) SuggestAnswers(ctx context.Context, req SuggestionsRequest) (*SuggestionsResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	requestID := uuid.NewString()
	ctx, span := observe.StartSpan(ctx, "tutor.suggestions")
	defer span.End()

	var out SuggestionsResult
	if err := s.call(ctx, suggestionsPrompt, map[string]string{
		"tutorResponse": req.TutorResponse,
		"language":      req.Language,
		"level":         req.Level,
		"topic":         req.Topic,
	}, &out); err != nil {
		terr := &TurnError{Op: "suggestions", RequestID: requestID, Err: err}
		observe.Logger(ctx).Error("suggestions failed", "request_id", requestID, "err", err)
		return nil, terr
	}
	return &out, nil
}

// call issues one gateway invocation under the per-call timeout and records
// requester metrics.
func (s *Service) call(ctx context.Context, prompt gateway.Prompt, input map[string]string, out any) error {
	ctx, span := observe.StartSpan(ctx, "tutor.call."+prompt.Name)
	defer span.End()

	callCtx, cancel := context.WithTimeout(ctx, s.callTimeout)
	defer cancel()

	start := time.Now()
	err := s.gw.Invoke(callCtx, prompt, input, out)

	if s.metrics != nil {
		status := "ok"
		if err != nil {
			status = "error"
		}
		s.metrics.RequesterDuration.Record(ctx, time.Since(start).Seconds(), metric.WithAttributes(
			attribute.String("requester", prompt.Name),
			attribute.String("status", status),
		))
	}
	return err
}

// recordTurn updates turn-level metrics when instruments are wired.
func (s *Service) recordTurn(ctx context.Context, d time.Duration, err error) {
	if s.metrics == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	s.metrics.TurnDuration.Record(ctx, d.Seconds(), metric.WithAttributes(
		attribute.String("status", status),
	))
}
