package llm

import (
	"context"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog/log"
	"github.com/snappy-loop/poster/internal/metrics"
	"github.com/snappy-loop/poster/internal/validation"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/googleai"
	"google.golang.org/genai"
)

// maxGeminiResponseLogBytes is the max length of a Gemini response body to log in full (to avoid huge logs).
const maxGeminiResponseLogBytes = 8192

// Text backends selectable with GEMINI_TEXT_BACKEND.
const (
	TextBackendGenai     = "genai"
	TextBackendLangchain = "langchain"
)

// httpClientForEndpoint returns an http.Client that rewrites request URLs to the given base endpoint (e.g. http://host.docker.internal:31300/gemini).
func httpClientForEndpoint(baseEndpoint string) *http.Client {
	base, err := url.Parse(baseEndpoint)
	if err != nil || base.Host == "" {
		log.Warn().Err(err).Str("endpoint", baseEndpoint).Msg("Invalid GEMINI_API_ENDPOINT, using default")
		return nil
	}
	base.Path = strings.TrimSuffix(base.Path, "/")
	return &http.Client{
		Transport: &endpointRoundTripper{base: base, next: http.DefaultTransport},
	}
}

// endpointRoundTripper rewrites request URLs to a custom base (scheme, host, path prefix).
type endpointRoundTripper struct {
	base *url.URL
	next http.RoundTripper
}

func (e *endpointRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	req2 := req.Clone(req.Context())
	req2.URL.Scheme = e.base.Scheme
	req2.URL.Host = e.base.Host
	req2.Host = e.base.Host
	req2.URL.Path = path.Join("/", e.base.Path, strings.TrimPrefix(req.URL.Path, "/"))
	return e.next.RoundTrip(req2)
}

// logGeminiResponse logs Gemini response text, truncating if over maxGeminiResponseLogBytes.
func logGeminiResponse(caller, raw string) {
	if len(raw) <= maxGeminiResponseLogBytes {
		log.Debug().Str("caller", caller).Str("gemini_response", raw).Msg("Gemini response")
		return
	}
	log.Debug().
		Str("caller", caller).
		Str("gemini_response", raw[:maxGeminiResponseLogBytes]+"... [truncated]").
		Int("gemini_response_len", len(raw)).
		Msg("Gemini response")
}

// observeCall records duration and outcome of one Gemini call.
func observeCall(kind string, started time.Time, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	metrics.RecordGeminiCall(kind, status, time.Since(started).Seconds())
}

// Client wraps the Gemini API for poster text and layout images.
// It holds no per-request state and is safe for concurrent use.
type Client struct {
	modelText     string
	modelImage    string
	textBackend   string
	unifiedClient *genai.Client // schema-constrained text and image output
	llmText       llms.Model    // langchaingo text backend (JSON MIME type, no schema)
	sanitizer     *bluemonday.Policy
	validator     *validation.Validator
}

// NewClient creates a new Gemini client.
// apiEndpoint: optional Gemini API base URL; when set, all Gemini calls use this endpoint.
// textBackend: "genai" (default) or "langchain".
func NewClient(apiKey, modelText, modelImage, textBackend, apiEndpoint string) *Client {
	if modelText == "" {
		modelText = "gemini-2.5-flash"
	}
	if modelImage == "" {
		modelImage = "gemini-2.5-flash-image"
	}
	if textBackend != TextBackendLangchain {
		textBackend = TextBackendGenai
	}

	var unifiedClient *genai.Client
	var llmText llms.Model
	if apiKey != "" {
		cfg := &genai.ClientConfig{APIKey: apiKey, Backend: genai.BackendGeminiAPI}
		if apiEndpoint != "" {
			cfg.HTTPOptions = genai.HTTPOptions{BaseURL: apiEndpoint}
		}
		var err error
		unifiedClient, err = genai.NewClient(context.Background(), cfg)
		if err != nil {
			log.Error().Err(err).Msg("Failed to initialize genai client")
			unifiedClient = nil
		}

		if textBackend == TextBackendLangchain {
			opts := []googleai.Option{googleai.WithAPIKey(apiKey), googleai.WithDefaultModel(modelText)}
			if apiEndpoint != "" {
				if httpClient := httpClientForEndpoint(apiEndpoint); httpClient != nil {
					opts = append(opts, googleai.WithHTTPClient(httpClient))
				}
			}
			model, err := googleai.New(context.Background(), opts...)
			if err != nil {
				log.Error().Err(err).Str("model", modelText).Msg("Failed to initialize langchain text model, using genai")
			} else {
				llmText = model
			}
		}
	} else {
		log.Warn().Msg("GEMINI_API_KEY is empty; generation requests will fail")
	}

	log.Info().
		Str("model_text", modelText).
		Str("model_image", modelImage).
		Str("text_backend", textBackend).
		Str("api_endpoint", apiEndpoint).
		Bool("genai_client", unifiedClient != nil).
		Bool("langchain_text", llmText != nil).
		Msg("Gemini client initialized")

	return &Client{
		modelText:     modelText,
		modelImage:    modelImage,
		textBackend:   textBackend,
		unifiedClient: unifiedClient,
		llmText:       llmText,
		sanitizer:     bluemonday.StrictPolicy(),
		validator:     validation.New(),
	}
}

// Configured reports whether at least the genai client is available.
func (c *Client) Configured() bool {
	return c.unifiedClient != nil
}
