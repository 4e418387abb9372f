package services

import (
	"context"

	"github.com/snappy-loop/poster/internal/models"
)

// PosterGenerator produces the two independent halves of a poster. *llm.Client implements it.
// Both methods must be safe to call concurrently.
type PosterGenerator interface {
	GeneratePosterText(ctx context.Context, topic string, grade models.GradeLevel) (*models.PosterText, error)
	GeneratePosterImage(ctx context.Context, topic string, grade models.GradeLevel) (*models.GeneratedImage, error)
}
