package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/snappy-loop/poster/internal/models"
	"google.golang.org/genai"
)

// GeneratePosterImage asks the image model for an A4 layout reference and returns the first inline image part.
func (c *Client) GeneratePosterImage(ctx context.Context, topic string, grade models.GradeLevel) (_ *models.GeneratedImage, err error) {
	started := time.Now()
	defer func() { observeCall("image", started, err) }()

	if c.unifiedClient == nil {
		return nil, &GenerationError{Op: opImage, Reason: "no image model available", Err: ErrNotConfigured}
	}

	prompt := BuildImagePrompt(topic, grade)
	log.Debug().
		Str("model", c.modelImage).
		Str("grade", grade.Key()).
		Str("prompt_preview", previewRunes(prompt, 80)).
		Msg("Generating poster image")

	config := &genai.GenerateContentConfig{
		ResponseModalities: []string{"TEXT", "IMAGE"},
	}
	resp, err := c.unifiedClient.Models.GenerateContent(ctx, c.modelImage, genai.Text(prompt), config)
	if err != nil {
		return nil, &TransportError{Op: opImage, Err: err}
	}

	img, cand, part := firstInlineImage(resp)
	if img == nil {
		log.Warn().
			Str("model", c.modelImage).
			Int("candidates", len(resp.Candidates)).
			Msg("No inline image in Gemini response")
		return nil, &GenerationError{Op: opImage, Reason: fmt.Sprintf("no inline image in %d candidate(s)", len(resp.Candidates))}
	}
	img.Model = c.modelImage

	log.Info().
		Str("caller", "GeneratePosterImage").
		Int("image_size_bytes", len(img.Data)).
		Str("mime_type", img.MIMEType).
		Int("candidate", cand).
		Int("part", part).
		Msg("Gemini response (image blob)")
	return img, nil
}

// firstInlineImage scans candidates and parts in order and returns the first non-empty inline image,
// with its candidate and part index. Text parts (captions) are skipped.
func firstInlineImage(resp *genai.GenerateContentResponse) (*models.GeneratedImage, int, int) {
	if resp == nil {
		return nil, -1, -1
	}
	for i, cand := range resp.Candidates {
		if cand == nil || cand.Content == nil {
			continue
		}
		for j, part := range cand.Content.Parts {
			if part == nil || part.InlineData == nil || len(part.InlineData.Data) == 0 {
				continue
			}
			mimeType := part.InlineData.MIMEType
			if mimeType != "" && !strings.HasPrefix(mimeType, "image/") {
				continue
			}
			if mimeType == "" {
				mimeType = "image/png"
			}
			return &models.GeneratedImage{Data: part.InlineData.Data, MIMEType: mimeType}, i, j
		}
	}
	return nil, -1, -1
}

// previewRunes returns at most n runes of s for log fields.
func previewRunes(s string, n int) string {
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
