// Package mock provides a test double for the speech.Provider interface.
//
// Use Provider to feed controlled audio payloads to HTTP handler tests and to
// verify the synthesis requests the server builds.
package mock

import (
	"context"
	"sync"

	"github.com/lingualeap/lingualeap/pkg/provider/speech"
)

// SynthesizeCall records a single invocation of Synthesize.
type SynthesizeCall struct {
	// Ctx is the context passed to Synthesize.
	Ctx context.Context
	// Req is the Request passed to Synthesize.
	Req speech.Request
}

// Provider is a mock implementation of speech.Provider.
type Provider struct {
	mu sync.Mutex

	// Audio is returned by Synthesize when Err is nil.
	Audio []byte

	// Err, if non-nil, is returned as the error from Synthesize.
	Err error

	// Calls records every invocation of Synthesize in order.
	Calls []SynthesizeCall
}

// Compile-time interface assertion.
var _ speech.Provider = (*Provider)(nil)

// Synthesize implements speech.Provider.
func (p *Provider) Synthesize(ctx context.Context, req speech.Request) ([]byte, error) {
	p.mu.Lock()
	p.Calls = append(p.Calls, SynthesizeCall{Ctx: ctx, Req: req})
	audio, err := p.Audio, p.Err
	p.mu.Unlock()

	if err != nil {
		return nil, err
	}
	return audio, nil
}

// Name implements speech.Provider.
func (p *Provider) Name() string {
	return "mock"
}

// CallCount returns the number of recorded Synthesize invocations.
func (p *Provider) CallCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.Calls)
}
