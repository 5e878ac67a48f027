package tutor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/lingualeap/lingualeap/internal/gateway"
)

// scriptedGateway is a gateway.Invoker test double. Each prompt name maps to
// a handler that fills the output value; invocations are recorded in order.
type scriptedGateway struct {
	mu       sync.Mutex
	calls    []recordedCall
	handlers map[string]func(input map[string]string, out any) error
	delays   map[string]time.Duration
}

type recordedCall struct {
	prompt string
	input  map[string]string
}

func (g *scriptedGateway) Invoke(ctx context.Context, p gateway.Prompt, input map[string]string, out any) error {
	g.mu.Lock()
	g.calls = append(g.calls, recordedCall{prompt: p.Name, input: input})
	h := g.handlers[p.Name]
	d := g.delays[p.Name]
	g.mu.Unlock()

	if d > 0 {
		select {
		case <-time.After(d):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if h == nil {
		return fmt.Errorf("no script for prompt %q", p.Name)
	}
	return h(input, out)
}

func (g *scriptedGateway) callsFor(prompt string) []recordedCall {
	g.mu.Lock()
	defer g.mu.Unlock()
	var out []recordedCall
	for _, c := range g.calls {
		if c.prompt == prompt {
			out = append(out, c)
		}
	}
	return out
}

func (g *scriptedGateway) totalCalls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.calls)
}

// fill unmarshals a JSON literal into the handler's output value.
func fill(out any, v string) error {
	return json.Unmarshal([]byte(v), out)
}

func validTurnRequest() TurnRequest {
	return TurnRequest{
		UserInput:      "Yo querer una mesa",
		Language:       "Spanish",
		NativeLanguage: "English",
		Level:          "beginner",
		Topic:          "Ordering food",
	}
}

// happyHandlers scripts all five turn prompts to succeed.
func happyHandlers() map[string]func(map[string]string, any) error {
	return map[string]func(map[string]string, any) error{
		"conversation": func(_ map[string]string, out any) error {
			return fill(out, `{"tutorResponse": "¡Claro! ¿Para cuántas personas?"}`)
		},
		"translation": func(_ map[string]string, out any) error {
			return fill(out, `{"translatedText": "Of course! For how many people?"}`)
		},
		"grammar": func(_ map[string]string, out any) error {
			return fill(out, `{"isCorrect": false, "correctedText": "Yo quiero una mesa", "explanation": "The verb must be conjugated."}`)
		},
		"refinement": func(_ map[string]string, out any) error {
			return fill(out, `{"suggestions": ["Quisiera una mesa", "Me gustaría una mesa", "¿Tienen una mesa libre?"]}`)
		},
		"correction": func(_ map[string]string, out any) error {
			return fill(out, `{"correctedSentence": "Yo quiero una mesa"}`)
		},
	}
}

func TestRunTurn_Success(t *testing.T) {
	gw := &scriptedGateway{handlers: happyHandlers()}
	s := New(gw)

	resp, err := s.RunTurn(context.Background(), validTurnRequest())
	if err != nil {
		t.Fatalf("RunTurn: %v", err)
	}

	if resp.TutorResponse != "¡Claro! ¿Para cuántas personas?" {
		t.Errorf("tutorResponse = %q", resp.TutorResponse)
	}
	if resp.Translation != "Of course! For how many people?" {
		t.Errorf("translation = %q", resp.Translation)
	}
	if resp.Grammar.IsCorrect {
		t.Error("grammar.isCorrect should be false")
	}
	if resp.Correction.CorrectedSentence != "Yo quiero una mesa" {
		t.Errorf("correctedSentence = %q", resp.Correction.CorrectedSentence)
	}
	if len(resp.Refinement.Suggestions) != 3 {
		t.Errorf("expected 3 refinement suggestions, got %d", len(resp.Refinement.Suggestions))
	}

	// Exactly one call per requester.
	for _, prompt := range []string{"conversation", "translation", "grammar", "refinement", "correction"} {
		if n := len(gw.callsFor(prompt)); n != 1 {
			t.Errorf("prompt %q called %d times, want 1", prompt, n)
		}
	}
	if gw.totalCalls() != 5 {
		t.Errorf("total calls = %d, want 5", gw.totalCalls())
	}
}

func TestRunTurn_TranslationInputIsConversationOutput(t *testing.T) {
	gw := &scriptedGateway{handlers: happyHandlers()}
	s := New(gw)

	if _, err := s.RunTurn(context.Background(), validTurnRequest()); err != nil {
		t.Fatalf("RunTurn: %v", err)
	}

	calls := gw.callsFor("translation")
	if len(calls) != 1 {
		t.Fatalf("translation called %d times", len(calls))
	}
	if got := calls[0].input["text"]; got != "¡Claro! ¿Para cuántas personas?" {
		t.Errorf("translation text = %q, want the tutor reply", got)
	}
	if got := calls[0].input["targetLanguage"]; got != "English" {
		t.Errorf("translation target = %q, want the native language", got)
	}
}

func TestRunTurn_ConversationFailureSkipsTranslation(t *testing.T) {
	handlers := happyHandlers()
	handlers["conversation"] = func(_ map[string]string, _ any) error {
		return errors.New("model unavailable")
	}
	gw := &scriptedGateway{handlers: handlers}
	s := New(gw)

	resp, err := s.RunTurn(context.Background(), validTurnRequest())
	if err == nil {
		t.Fatal("expected turn failure")
	}
	if resp != nil {
		t.Error("no partial aggregate may be returned on failure")
	}

	var terr *TurnError
	if !errors.As(err, &terr) {
		t.Fatalf("expected *TurnError, got %T", err)
	}
	if terr.Op != "conversation" {
		t.Errorf("Op = %q, want conversation", terr.Op)
	}

	if n := len(gw.callsFor("translation")); n != 0 {
		t.Errorf("translation must never be issued when conversation fails, got %d calls", n)
	}
}

func TestRunTurn_SingleIndependentFailureFailsTurn(t *testing.T) {
	for _, failing := range []string{"grammar", "refinement", "correction"} {
		t.Run(failing, func(t *testing.T) {
			handlers := happyHandlers()
			handlers[failing] = func(_ map[string]string, _ any) error {
				return errors.New("schema violation")
			}
			gw := &scriptedGateway{handlers: handlers}
			s := New(gw)

			resp, err := s.RunTurn(context.Background(), validTurnRequest())
			if err == nil {
				t.Fatal("expected turn failure")
			}
			if resp != nil {
				t.Error("no partial aggregate may be returned")
			}
			var terr *TurnError
			if !errors.As(err, &terr) {
				t.Fatalf("expected *TurnError, got %T", err)
			}
			if terr.Op != failing {
				t.Errorf("Op = %q, want %q", terr.Op, failing)
			}
		})
	}
}

func TestRunTurn_InvalidInputRejectedBeforeAnyCall(t *testing.T) {
	gw := &scriptedGateway{handlers: happyHandlers()}
	s := New(gw)

	req := validTurnRequest()
	req.Topic = "  "
	_, err := s.RunTurn(context.Background(), req)
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if gw.totalCalls() != 0 {
		t.Errorf("no model call may be issued for invalid input, got %d", gw.totalCalls())
	}
}

func TestRunTurn_CallTimeoutFailsTurn(t *testing.T) {
	gw := &scriptedGateway{
		handlers: happyHandlers(),
		delays:   map[string]time.Duration{"grammar": 200 * time.Millisecond},
	}
	s := New(gw, WithCallTimeout(20*time.Millisecond))

	_, err := s.RunTurn(context.Background(), validTurnRequest())
	if err == nil {
		t.Fatal("expected turn failure on per-call timeout")
	}
	var terr *TurnError
	if !errors.As(err, &terr) {
		t.Fatalf("expected *TurnError, got %T", err)
	}
	if terr.Op != "grammar" {
		t.Errorf("Op = %q, want grammar", terr.Op)
	}
}

func TestRunTurn_RefinementBelowThreeTolerated(t *testing.T) {
	handlers := happyHandlers()
	handlers["refinement"] = func(_ map[string]string, out any) error {
		return fill(out, `{"suggestions": ["Quisiera una mesa"]}`)
	}
	gw := &scriptedGateway{handlers: handlers}
	s := New(gw)

	resp, err := s.RunTurn(context.Background(), validTurnRequest())
	if err != nil {
		t.Fatalf("a short suggestion list must not fail the turn: %v", err)
	}
	if len(resp.Refinement.Suggestions) != 1 {
		t.Errorf("suggestions = %v", resp.Refinement.Suggestions)
	}
}

// ---- SuggestAnswers ----

func TestSuggestAnswers_Success(t *testing.T) {
	gw := &scriptedGateway{handlers: map[string]func(map[string]string, any) error{
		"suggestions": func(_ map[string]string, out any) error {
			return fill(out, `{"suggestions": ["Para dos, por favor", "Solo para mí", "¿Tienen terraza?"]}`)
		},
	}}
	s := New(gw)

	res, err := s.SuggestAnswers(context.Background(), SuggestionsRequest{
		TutorResponse: "¿Para cuántas personas?",
		Language:      "Spanish",
		Level:         "beginner",
		Topic:         "Ordering food",
	})
	if err != nil {
		t.Fatalf("SuggestAnswers: %v", err)
	}
	if len(res.Suggestions) == 0 {
		t.Error("expected non-empty suggestions")
	}
}

func TestSuggestAnswers_FreshCallPerInvocation(t *testing.T) {
	gw := &scriptedGateway{handlers: map[string]func(map[string]string, any) error{
		"suggestions": func(_ map[string]string, out any) error {
			return fill(out, `{"suggestions": ["a"]}`)
		},
	}}
	s := New(gw)

	req := SuggestionsRequest{TutorResponse: "x", Language: "Spanish", Level: "beginner", Topic: "t"}
	for i := 0; i < 2; i++ {
		if _, err := s.SuggestAnswers(context.Background(), req); err != nil {
			t.Fatalf("SuggestAnswers #%d: %v", i+1, err)
		}
	}
	if n := len(gw.callsFor("suggestions")); n != 2 {
		t.Errorf("expected 2 independent calls, got %d", n)
	}
}

func TestSuggestAnswers_InvalidInput(t *testing.T) {
	gw := &scriptedGateway{}
	s := New(gw)

	_, err := s.SuggestAnswers(context.Background(), SuggestionsRequest{Language: "Spanish"})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if gw.totalCalls() != 0 {
		t.Errorf("no model call may be issued for invalid input, got %d", gw.totalCalls())
	}
}

// ---- failure surface ----

func TestTurnError_UserMessageIsGeneric(t *testing.T) {
	cause := errors.New("x509: certificate expired")
	terr := &TurnError{Op: "grammar", RequestID: "r1", Err: cause}

	if msg := terr.UserMessage(); msg != "Failed to get response from AI. Please try again." {
		t.Errorf("UserMessage = %q", msg)
	}
	if !errors.Is(terr, cause) {
		t.Error("TurnError must unwrap to its cause for logging")
	}
}
