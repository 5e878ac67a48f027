package gateway

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/lingualeap/lingualeap/pkg/provider/llm"
	"github.com/lingualeap/lingualeap/pkg/provider/llm/mock"
)

var greetingPrompt = Prompt{
	Name: "greeting",
	Text: "Say hello to {{name}} in {{language}}.",
	Schema: MustCompileSchema(`{
		"type": "object",
		"required": ["message"],
		"properties": {"message": {"type": "string"}}
	}`),
}

type greetingOut struct {
	Message string `json:"message"`
}

func TestInvoke_RendersAndUnmarshals(t *testing.T) {
	p := &mock.Provider{
		CompleteResponse: &llm.CompletionResponse{Content: `{"message": "Hallo Ada"}`},
	}
	g := New(p)

	var out greetingOut
	err := g.Invoke(context.Background(), greetingPrompt, map[string]string{
		"name":     "Ada",
		"language": "German",
	}, &out)
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if out.Message != "Hallo Ada" {
		t.Errorf("message = %q", out.Message)
	}

	if p.CallCount() != 1 {
		t.Fatalf("expected exactly one completion, got %d", p.CallCount())
	}
	req := p.CompleteCalls[0].Req
	if !strings.Contains(req.UserPrompt, "Say hello to Ada in German.") {
		t.Errorf("prompt not rendered: %q", req.UserPrompt)
	}
	if !req.ForceJSON {
		t.Error("expected ForceJSON on gateway completions")
	}
}

func TestInvoke_UnresolvedPlaceholderFailsBeforeCall(t *testing.T) {
	p := &mock.Provider{}
	g := New(p)

	var out greetingOut
	err := g.Invoke(context.Background(), greetingPrompt, map[string]string{"name": "Ada"}, &out)
	if err == nil {
		t.Fatal("expected error for unresolved placeholder")
	}
	if p.CallCount() != 0 {
		t.Errorf("no completion should be issued for an unrenderable prompt, got %d", p.CallCount())
	}
}

func TestInvoke_StripsCodeFence(t *testing.T) {
	p := &mock.Provider{
		CompleteResponse: &llm.CompletionResponse{
			Content: "```json\n{\"message\": \"hi\"}\n```",
		},
	}
	g := New(p)

	var out greetingOut
	if err := g.Invoke(context.Background(), greetingPrompt, map[string]string{"name": "x", "language": "y"}, &out); err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if out.Message != "hi" {
		t.Errorf("message = %q", out.Message)
	}
}

func TestInvoke_SchemaViolation(t *testing.T) {
	p := &mock.Provider{
		CompleteResponse: &llm.CompletionResponse{Content: `{"wrong": 42}`},
	}
	g := New(p)

	var out greetingOut
	err := g.Invoke(context.Background(), greetingPrompt, map[string]string{"name": "x", "language": "y"}, &out)
	if !errors.Is(err, ErrSchemaViolation) {
		t.Fatalf("expected ErrSchemaViolation, got %v", err)
	}
}

func TestInvoke_MalformedOutput(t *testing.T) {
	p := &mock.Provider{
		CompleteResponse: &llm.CompletionResponse{Content: "I cannot answer that."},
	}
	g := New(p)

	var out greetingOut
	err := g.Invoke(context.Background(), greetingPrompt, map[string]string{"name": "x", "language": "y"}, &out)
	if !errors.Is(err, ErrMalformedOutput) {
		t.Fatalf("expected ErrMalformedOutput, got %v", err)
	}
}

func TestInvoke_ProviderErrorWrapped(t *testing.T) {
	boom := errors.New("upstream down")
	p := &mock.Provider{CompleteErr: boom}
	g := New(p)

	var out greetingOut
	err := g.Invoke(context.Background(), greetingPrompt, map[string]string{"name": "x", "language": "y"}, &out)
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped provider error, got %v", err)
	}
	if !strings.Contains(err.Error(), `"greeting"`) {
		t.Errorf("error should name the prompt: %v", err)
	}
}

// ---- extractJSON ----

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    string
		wantErr bool
	}{
		{"bare object", `{"a":1}`, `{"a":1}`, false},
		{"surrounding prose", `Sure! {"a":1} Hope that helps.`, `{"a":1}`, false},
		{"array", `[1,2,3]`, `[1,2,3]`, false},
		{"fenced", "```json\n{\"a\":1}\n```", `{"a":1}`, false},
		{"no json", "nothing here", "", true},
		{"truncated", `{"a":`, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := extractJSON(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %q", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("extractJSON: %v", err)
			}
			if string(got) != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}
