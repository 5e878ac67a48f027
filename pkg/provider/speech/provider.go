// Package speech defines the Provider interface for Text-to-Speech backends.
//
// A speech provider wraps a synthesis service (e.g., Azure Cognitive Services
// Speech) and presents a uniform batch interface: one request in, one encoded
// audio payload out. Synthesis is a best-effort side channel for the tutoring
// flow — a failed synthesis never invalidates the turn that produced the text.
//
// Implementations must be safe for concurrent use.
package speech

import "context"

// Request describes a single synthesis job.
type Request struct {
	// Text is the plain text to speak. Must be non-empty.
	Text string

	// LanguageTag is the BCP-47 tag of the text (e.g., "es-ES"). It selects
	// the default voice when Voice is empty.
	LanguageTag string

	// Rate is the speaking-rate multiplier (1.0 = natural pace). Zero means
	// use the provider default.
	Rate float64

	// Voice optionally names a provider-specific voice. When empty, the
	// provider picks a default from its language-tag mapping, falling back to
	// a single catch-all voice for unmapped tags.
	Voice string
}

// Provider is the abstraction over any speech synthesis backend.
type Provider interface {
	// Synthesize converts req.Text to encoded audio and returns the full
	// payload. The encoding is provider-configured; the bundled Azure
	// implementation produces mono 24kHz 48kbit/s MP3.
	//
	// Returns an error carrying the provider-reported reason when synthesis
	// fails or ctx is cancelled.
	Synthesize(ctx context.Context, req Request) ([]byte, error)

	// Name identifies the backing provider. Used in logs and metrics only.
	Name() string
}
