package tutor

import (
	"strings"
	"testing"

	"github.com/lingualeap/lingualeap/internal/gateway"
)

var allPrompts = []gateway.Prompt{
	conversationPrompt,
	grammarPrompt,
	refinementPrompt,
	correctionPrompt,
	translationPrompt,
	suggestionsPrompt,
}

// TestPrompts_NameRequiredOutputKeys checks that every prompt spells out the
// JSON keys its schema marks as required. The model only sees the prompt text;
// a required key the text never mentions would leave it guessing, and a
// conforming-looking reply would still fail validation.
func TestPrompts_NameRequiredOutputKeys(t *testing.T) {
	for _, p := range allPrompts {
		t.Run(p.Name, func(t *testing.T) {
			if len(p.Schema.Required) == 0 {
				t.Fatal("expected at least one required output key")
			}
			for _, key := range p.Schema.Required {
				if !strings.Contains(p.Text, key) {
					t.Errorf("prompt text never mentions required output key %q", key)
				}
			}
		})
	}
}

// TestPrompts_PlaceholdersRendered checks that no prompt contains a stray
// placeholder outside the {{field}} syntax the gateway substitutes.
func TestPrompts_PlaceholdersRendered(t *testing.T) {
	for _, p := range allPrompts {
		t.Run(p.Name, func(t *testing.T) {
			if strings.Count(p.Text, "{{") != strings.Count(p.Text, "}}") {
				t.Error("unbalanced placeholder delimiters")
			}
		})
	}
}
