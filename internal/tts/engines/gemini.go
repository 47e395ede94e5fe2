package engines

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/charmbracelet/log"
	"golang.org/x/time/rate"

	"github.com/dgnsrekt/blockvox/internal/cache"
	"github.com/dgnsrekt/blockvox/internal/tts"
)

const (
	DefaultGeminiEndpoint = "https://generativelanguage.googleapis.com/v1beta"
	DefaultGeminiModel    = "gemini-2.5-flash-preview-tts"

	maxTextSize     = 5000
	maxResponseSize = 64 << 20
)

// GeminiConfig holds configuration for the Gemini engine.
type GeminiConfig struct {
	APIKey   string
	Model    string
	Endpoint string

	// Timeout bounds a single request (defaults to 60s).
	Timeout time.Duration

	// RequestsPerMinute paces calls to the service (defaults to 10).
	RequestsPerMinute int

	// Cache stores responses keyed by model, voice and text (optional).
	Cache cache.Cache

	HTTPClient *http.Client
}

// GeminiEngine calls the Gemini generateContent endpoint with an audio
// response modality.
type GeminiEngine struct {
	apiKey   string
	model    string
	endpoint string

	client      *http.Client
	rateLimiter *rate.Limiter
	cache       cache.Cache
}

// NewGeminiEngine creates a Gemini client.
func NewGeminiEngine(config GeminiConfig) (*GeminiEngine, error) {
	if strings.TrimSpace(config.APIKey) == "" {
		return nil, fmt.Errorf("%w: gemini requires an API key (set BLOCKVOX_GEMINI_API_KEY)", tts.ErrNoEngineConfigured)
	}
	if config.Model == "" {
		config.Model = DefaultGeminiModel
	}
	if config.Endpoint == "" {
		config.Endpoint = DefaultGeminiEndpoint
	}
	if config.Timeout == 0 {
		config.Timeout = 60 * time.Second
	}
	if config.RequestsPerMinute == 0 {
		config.RequestsPerMinute = 10
	}
	client := config.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: config.Timeout}
	}

	return &GeminiEngine{
		apiKey:      config.APIKey,
		model:       config.Model,
		endpoint:    strings.TrimRight(config.Endpoint, "/"),
		client:      client,
		rateLimiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(config.RequestsPerMinute)), 1),
		cache:       config.Cache,
	}, nil
}

type generateRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inlineData,omitempty"`
}

type inlineData struct {
	MimeType string `json:"mimeType,omitempty"`
	Data     string `json:"data"`
}

type generationConfig struct {
	ResponseModalities []string     `json:"responseModalities"`
	SpeechConfig       speechConfig `json:"speechConfig"`
}

type speechConfig struct {
	VoiceConfig voiceConfig `json:"voiceConfig"`
}

type voiceConfig struct {
	PrebuiltVoiceConfig prebuiltVoiceConfig `json:"prebuiltVoiceConfig"`
}

type prebuiltVoiceConfig struct {
	VoiceName string `json:"voiceName"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

type apiErrorBody struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// GenerateSpeech returns the base64 PCM payload for text spoken by voice.
func (e *GeminiEngine) GenerateSpeech(ctx context.Context, text, voice string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", tts.GenerationError("text is empty", nil)
	}
	if n := utf8.RuneCountInString(text); n > maxTextSize {
		return "", tts.NewTTSError(tts.ErrorCodeInvalidInput,
			fmt.Sprintf("text too long: %d characters (max %d)", n, maxTextSize), nil)
	}

	var key string
	if e.cache != nil {
		key = cache.Key("speech", e.model, voice, text)
		if data, ok := e.cache.Get(key); ok {
			log.Debug("speech cache hit", "voice", voice, "bytes", len(data))
			return string(data), nil
		}
	}

	if err := e.rateLimiter.Wait(ctx); err != nil {
		return "", tts.GenerationError("request cancelled", err)
	}

	audio, err := e.call(ctx, text, voice)
	if err != nil {
		return "", err
	}

	if key != "" {
		if err := e.cache.Put(key, []byte(audio)); err != nil {
			log.Debug("speech not cached", "err", err)
		}
	}
	return audio, nil
}

func (e *GeminiEngine) call(ctx context.Context, text, voice string) (string, error) {
	body, err := json.Marshal(generateRequest{
		Contents: []content{{Parts: []part{{Text: text}}}},
		GenerationConfig: generationConfig{
			ResponseModalities: []string{"AUDIO"},
			SpeechConfig: speechConfig{
				VoiceConfig: voiceConfig{
					PrebuiltVoiceConfig: prebuiltVoiceConfig{VoiceName: voice},
				},
			},
		},
	})
	if err != nil {
		return "", tts.GenerationError("encode request", err)
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent?key=%s", e.endpoint, e.model, url.QueryEscape(e.apiKey))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", tts.GenerationError("build request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := e.client.Do(req)
	if err != nil {
		return "", tts.GenerationError("speech service unreachable", redact(err, e.apiKey))
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return "", tts.GenerationError("read response", err)
	}
	log.Debug("gemini response", "status", resp.StatusCode, "bytes", len(raw), "took", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", apiError(resp.StatusCode, raw)
	}

	var parsed generateResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", tts.GenerationError("malformed response from speech service", err)
	}
	return extractAudio(parsed)
}

func apiError(status int, raw []byte) error {
	var body apiErrorBody
	msg := fmt.Sprintf("API error: %d", status)
	if json.Unmarshal(raw, &body) == nil && body.Error.Message != "" {
		msg = body.Error.Message
	}

	code := tts.ErrorCodeGeneration
	if status == http.StatusTooManyRequests {
		code = tts.ErrorCodeRateLimited
	}
	return tts.NewTTSError(code, msg, nil).WithContext("status", status)
}

// extractAudio returns the first inline audio part. Without one, any text the
// model produced is surfaced in the error.
func extractAudio(resp generateResponse) (string, error) {
	if len(resp.Candidates) == 0 {
		return "", tts.GenerationError("no audio data in response", nil)
	}
	parts := resp.Candidates[0].Content.Parts
	for _, p := range parts {
		if p.InlineData != nil && p.InlineData.Data != "" {
			return p.InlineData.Data, nil
		}
	}
	if len(parts) > 0 && parts[0].Text != "" {
		return "", tts.GenerationError(fmt.Sprintf("no audio returned; the service replied: %s", parts[0].Text), nil)
	}
	return "", tts.GenerationError("no audio data in response", nil)
}

// redactedError hides the API key that transport errors embed in the URL.
type redactedError struct {
	msg   string
	cause error
}

func (r *redactedError) Error() string { return r.msg }
func (r *redactedError) Unwrap() error { return r.cause }

func redact(err error, key string) error {
	escaped := url.QueryEscape(key)
	if key == "" || !strings.Contains(err.Error(), escaped) {
		return err
	}
	return &redactedError{msg: strings.ReplaceAll(err.Error(), escaped, "REDACTED"), cause: err}
}

// Info returns engine metadata.
func (e *GeminiEngine) Info() tts.EngineInfo {
	return tts.EngineInfo{
		Name:     string(tts.EngineGemini),
		Model:    e.model,
		IsOnline: true,
	}
}

var _ tts.SpeechGenerator = (*GeminiEngine)(nil)
