// Package azure provides a speech.Provider backed by the Azure Cognitive
// Services Speech REST API (the single-shot /cognitiveservices/v1 endpoint,
// not the streaming WebSocket API — tutor replies are short enough that batch
// synthesis keeps latency acceptable without a socket lifecycle to manage).
//
// Typical usage:
//
//	p, err := azure.New(key, "westeurope")
//	audio, err := p.Synthesize(ctx, speech.Request{Text: "Hola", LanguageTag: "es-ES"})
package azure

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/lingualeap/lingualeap/pkg/provider/speech"
)

const (
	endpointFmt = "https://%s.tts.speech.microsoft.com/cognitiveservices/v1"

	// defaultOutputFormat is mono 24kHz MP3 at ~48kbit/s, matching what the
	// chat UI feeds straight into an <audio> element.
	defaultOutputFormat = "audio-24khz-48kbitrate-mono-mp3"

	defaultTimeout = 30 * time.Second

	// fallbackVoice is used for language tags with no entry in voiceMap.
	// The Ava multilingual voice can render most languages intelligibly.
	fallbackVoice = "en-US-AvaMultilingualNeural"
)

// voiceMap is the static language-tag → neural voice mapping used when the
// caller does not name an explicit voice.
var voiceMap = map[string]string{
	"en-US": "en-US-AvaMultilingualNeural",
	"es-ES": "es-ES-ElviraNeural",
	"fr-FR": "fr-FR-DeniseNeural",
	"de-DE": "de-DE-KatjaNeural",
	"it-IT": "it-IT-ElsaNeural",
	"ja-JP": "ja-JP-NanamiNeural",
	"ko-KR": "ko-KR-SunHiNeural",
	"pt-BR": "pt-BR-FranciscaNeural",
	"fa-IR": "fa-IR-DilaraNeural",
}

// Compile-time interface assertion.
var _ speech.Provider = (*Provider)(nil)

// Option is a functional option for configuring the Azure Provider.
type Option func(*Provider)

// WithOutputFormat sets the X-Microsoft-OutputFormat header value
// (e.g., "audio-16khz-32kbitrate-mono-mp3").
func WithOutputFormat(format string) Option {
	return func(p *Provider) {
		p.outputFormat = format
	}
}

// WithTimeout sets the per-request HTTP timeout.
func WithTimeout(d time.Duration) Option {
	return func(p *Provider) {
		p.httpClient.Timeout = d
	}
}

// WithEndpoint overrides the synthesis endpoint URL. Intended for tests.
func WithEndpoint(url string) Option {
	return func(p *Provider) {
		p.endpoint = url
	}
}

// Provider implements speech.Provider against the Azure Speech REST API.
type Provider struct {
	key          string
	endpoint     string
	outputFormat string
	httpClient   *http.Client
}

// New creates an Azure speech Provider. Both key and region must be non-empty;
// they are the two externally supplied credentials the service depends on.
func New(key, region string, opts ...Option) (*Provider, error) {
	if key == "" {
		return nil, errors.New("azure: subscription key must not be empty")
	}
	if region == "" {
		return nil, errors.New("azure: region must not be empty")
	}
	p := &Provider{
		key:          key,
		endpoint:     fmt.Sprintf(endpointFmt, region),
		outputFormat: defaultOutputFormat,
		httpClient:   &http.Client{Timeout: defaultTimeout},
	}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

// Synthesize implements speech.Provider. It posts an SSML document to the
// Azure endpoint and returns the encoded audio body.
func (p *Provider) Synthesize(ctx context.Context, req speech.Request) ([]byte, error) {
	if req.Text == "" {
		return nil, errors.New("azure: text must not be empty")
	}
	if req.LanguageTag == "" {
		return nil, errors.New("azure: language tag must not be empty")
	}

	ssml := buildSSML(req)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, strings.NewReader(ssml))
	if err != nil {
		return nil, fmt.Errorf("azure: build request: %w", err)
	}
	httpReq.Header.Set("Ocp-Apim-Subscription-Key", p.key)
	httpReq.Header.Set("Content-Type", "application/ssml+xml")
	httpReq.Header.Set("X-Microsoft-OutputFormat", p.outputFormat)

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("azure: synthesize: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// The provider reports the rejection reason in the body (often empty
		// for auth failures); carry whatever it gave us.
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, fmt.Errorf("azure: synthesize: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("azure: read audio body: %w", err)
	}
	if len(audio) == 0 {
		return nil, errors.New("azure: synthesize: empty audio body")
	}
	return audio, nil
}

// Name implements speech.Provider.
func (p *Provider) Name() string {
	return "azure"
}

// VoiceForTag returns the default voice for a BCP-47 language tag, falling
// back to the single catch-all multilingual voice for unmapped tags.
func VoiceForTag(tag string) string {
	if v, ok := voiceMap[tag]; ok {
		return v
	}
	return fallbackVoice
}

// buildSSML renders the SSML document for one synthesis request. The explicit
// request voice wins over the language-tag mapping.
func buildSSML(req speech.Request) string {
	voice := req.Voice
	if voice == "" {
		voice = VoiceForTag(req.LanguageTag)
	}
	rate := req.Rate
	if rate == 0 {
		rate = 1.0
	}

	var b strings.Builder
	fmt.Fprintf(&b, `<speak version="1.0" xml:lang="%s">`, req.LanguageTag)
	fmt.Fprintf(&b, `<voice name="%s">`, voice)
	fmt.Fprintf(&b, `<prosody rate="%g">`, rate)
	b.WriteString(escapeXML(req.Text))
	b.WriteString(`</prosody></voice></speak>`)
	return b.String()
}

// escapeXML escapes the five XML special characters in text content.
var xmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	"'", "&apos;",
	`"`, "&quot;",
)

func escapeXML(s string) string {
	return xmlEscaper.Replace(s)
}
