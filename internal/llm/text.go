package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/snappy-loop/poster/internal/models"
	"github.com/snappy-loop/poster/internal/validation"
	"github.com/tmc/langchaingo/llms"
	"google.golang.org/genai"
)

// posterTextSchema returns the response schema for {"title","intro","facts","relations"}.
func posterTextSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"title":     {Type: genai.TypeString, Description: "Main headline for the poster"},
			"intro":     {Type: genai.TypeString, Description: "Introduction paragraph"},
			"facts":     {Type: genai.TypeString, Description: "Key facts or knowledge points"},
			"relations": {Type: genai.TypeString, Description: "Personal reflection or relation to student life"},
		},
		Required:         []string{"title", "intro", "facts", "relations"},
		PropertyOrdering: []string{"title", "intro", "facts", "relations"},
	}
}

// GeneratePosterText asks the text model for the four poster sections.
// Returns *GenerationError when the reply is empty or does not match the schema, *TransportError when the call fails.
func (c *Client) GeneratePosterText(ctx context.Context, topic string, grade models.GradeLevel) (_ *models.PosterText, err error) {
	started := time.Now()
	defer func() { observeCall("text", started, err) }()

	prompt := BuildTextPrompt(topic, grade)
	log.Debug().
		Str("model", c.modelText).
		Str("text_backend", c.textBackend).
		Str("grade", grade.Key()).
		Int("prompt_len", len(prompt)).
		Msg("Generating poster text")

	var raw string
	switch {
	case c.textBackend == TextBackendLangchain && c.llmText != nil:
		raw, err = c.generateTextLangchain(ctx, prompt)
	case c.unifiedClient != nil:
		raw, err = c.generateTextGenai(ctx, prompt)
	default:
		return nil, &GenerationError{Op: opText, Reason: "no text model available", Err: ErrNotConfigured}
	}
	if err != nil {
		return nil, err
	}

	logGeminiResponse("GeneratePosterText", raw)

	text, err := c.decodePosterText(raw)
	if err != nil {
		log.Warn().Err(err).Str("model", c.modelText).Int("response_len", len(raw)).Msg("Poster text rejected")
		return nil, err
	}

	log.Info().
		Str("caller", "GeneratePosterText").
		Int("title_len", len(text.Title)).
		Int("facts_len", len(text.Facts)).
		Msg("Poster text generated")
	return text, nil
}

// generateTextGenai uses ResponseSchema so the model must answer with the four required string fields.
func (c *Client) generateTextGenai(ctx context.Context, prompt string) (string, error) {
	temp := float32(0.7)
	config := &genai.GenerateContentConfig{
		Temperature:      &temp,
		ResponseMIMEType: "application/json",
		ResponseSchema:   posterTextSchema(),
	}
	result, err := c.unifiedClient.Models.GenerateContent(ctx, c.modelText, genai.Text(prompt), config)
	if err != nil {
		return "", &TransportError{Op: opText, Err: err}
	}
	return result.Text(), nil
}

// generateTextLangchain requests JSON through langchaingo; shape is enforced only by decodePosterText.
func (c *Client) generateTextLangchain(ctx context.Context, prompt string) (string, error) {
	response, err := llms.GenerateFromSinglePrompt(ctx, c.llmText, prompt,
		llms.WithTemperature(0.7),
		llms.WithResponseMIMEType("application/json"),
	)
	if err != nil {
		return "", &TransportError{Op: opText, Err: err}
	}
	return response, nil
}

// decodePosterText parses the model reply into PosterText.
// The reply must be one JSON object whose four fields are strings; model-emitted HTML is stripped
// and every field must be non-empty afterwards.
func (c *Client) decodePosterText(raw string) (*models.PosterText, error) {
	body := stripCodeFence(raw)
	if body == "" {
		return nil, &GenerationError{Op: opText, Reason: "empty response"}
	}

	var text models.PosterText
	if err := json.Unmarshal([]byte(body), &text); err != nil {
		return nil, &GenerationError{Op: opText, Reason: "response is not a poster text object", Err: err}
	}

	text.Title = c.cleanField(text.Title)
	text.Intro = c.cleanField(text.Intro)
	text.Facts = c.cleanField(text.Facts)
	text.Relations = c.cleanField(text.Relations)

	if err := c.validator.Validate(text); err != nil {
		var verr *validation.ValidationError
		if errors.As(err, &verr) {
			return nil, &GenerationError{Op: opText, Reason: fmt.Sprintf("missing fields %s", strings.Join(verr.Fields(), ", ")), Err: err}
		}
		return nil, &GenerationError{Op: opText, Reason: "invalid poster text", Err: err}
	}
	return &text, nil
}

// cleanField removes any HTML markup the model produced and returns plain text.
func (c *Client) cleanField(s string) string {
	return strings.TrimSpace(html.UnescapeString(c.sanitizer.Sanitize(s)))
}

// stripCodeFence removes a surrounding ```json ... ``` fence if present.
func stripCodeFence(raw string) string {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	} else {
		s = strings.TrimPrefix(s, "json")
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
