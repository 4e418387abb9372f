package llm

import (
	"fmt"

	"github.com/snappy-loop/poster/internal/models"
)

// BuildTextPrompt returns the prompt for the structured poster text.
// The four sections and their length targets must stay in sync with posterTextSchema.
func BuildTextPrompt(topic string, grade models.GradeLevel) string {
	return fmt.Sprintf(`You are a helpful assistant for Chinese students making school posters (手抄报).
Topic: %s
Target Audience: %s students.

Please generate content for the following sections in Simplified Chinese:
1. Title (Short, catchy, artistic)
2. Intro (Opening remarks, ~50 words)
3. Facts (Interesting knowledge or tips, ~80 words)
4. Relations (How this topic relates to the student's life, ~60 words)

Ensure the tone is educational, encouraging, and age-appropriate.

Response format (STRICT):
- JSON object only (no markdown, no code fences)
- Keys "title", "intro", "facts", "relations", each a non-empty string`, topic, grade)
}

// BuildImagePrompt returns the prompt for the A4 layout reference image.
func BuildImagePrompt(topic string, grade models.GradeLevel) string {
	return fmt.Sprintf(`A hand-drawn educational poster (手抄报) design layout on A4 paper landscape mode.
Topic: %s.
Style: Marker pen drawing, bright colors, cute illustrations suitable for %s students.
Layout: Clear borders, empty bubbles for text, a large central illustration related to %s.
White background, high quality, flat lay photography style.`, topic, grade, topic)
}
