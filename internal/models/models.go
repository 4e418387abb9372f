package models

import (
	"encoding/base64"
	"fmt"
	"mime"
	"strings"
	"time"
)

// GradeLevel is the audience tier a poster is written for.
// The value is the label shown in the grade selector.
type GradeLevel string

const (
	GradePrimaryLow  GradeLevel = "小学低年级 (1-2年级)"
	GradePrimaryHigh GradeLevel = "小学高年级 (3-6年级)"
	GradeJunior      GradeLevel = "初中"
	GradeSenior      GradeLevel = "高中"
)

// DefaultGrade is the grade preselected for a new session.
const DefaultGrade = GradeJunior

// DefaultTopic is the topic prefilled for a new session.
const DefaultTopic = "宪法在我心中"

// MaxTopicRunes caps the topic length accepted from the form or API.
const MaxTopicRunes = 100

var gradeKeys = map[string]GradeLevel{
	"primary_low":  GradePrimaryLow,
	"primary_high": GradePrimaryHigh,
	"junior":       GradeJunior,
	"senior":       GradeSenior,
}

// GradeLevels returns the four tiers in display order.
func GradeLevels() []GradeLevel {
	return []GradeLevel{GradePrimaryLow, GradePrimaryHigh, GradeJunior, GradeSenior}
}

// Valid reports whether g is one of the four tiers.
func (g GradeLevel) Valid() bool {
	for _, level := range GradeLevels() {
		if g == level {
			return true
		}
	}
	return false
}

// Key returns the ASCII key for g (e.g. "junior"), or "" for an unknown tier.
func (g GradeLevel) Key() string {
	for key, level := range gradeKeys {
		if level == g {
			return key
		}
	}
	return ""
}

func (g GradeLevel) String() string {
	return string(g)
}

// ParseGradeLevel accepts a display label or an ASCII key (primary_low, primary_high, junior, senior).
func ParseGradeLevel(s string) (GradeLevel, error) {
	s = strings.TrimSpace(s)
	if level, ok := gradeKeys[strings.ToLower(s)]; ok {
		return level, nil
	}
	if g := GradeLevel(s); g.Valid() {
		return g, nil
	}
	return "", fmt.Errorf("unknown grade level %q", s)
}

// GenerationRequest is the input of one generation: a topic and an audience tier.
type GenerationRequest struct {
	Topic string     `json:"topic" validate:"required,max=100"`
	Grade GradeLevel `json:"grade" validate:"grade"`
}

// PosterText is the structured text material for a poster. All four fields are required.
type PosterText struct {
	Title     string `json:"title" validate:"required"`
	Intro     string `json:"intro" validate:"required"`
	Facts     string `json:"facts" validate:"required"`
	Relations string `json:"relations" validate:"required"`
}

// GeneratedImage is the reference layout image returned by the image model.
type GeneratedImage struct {
	Data     []byte `json:"-"`
	MIMEType string `json:"mime_type"`
	Model    string `json:"model,omitempty"`
}

// DataURL returns the image as a self-describing data: URL (e.g. for an <img src>).
func (i *GeneratedImage) DataURL() string {
	if i == nil || len(i.Data) == 0 {
		return ""
	}
	return "data:" + i.mimeType() + ";base64," + base64.StdEncoding.EncodeToString(i.Data)
}

// Extension returns the file extension for downloads, including the dot.
func (i *GeneratedImage) Extension() string {
	switch i.mimeType() {
	case "image/jpeg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	case "image/png":
		return ".png"
	}
	if exts, err := mime.ExtensionsByType(i.mimeType()); err == nil && len(exts) > 0 {
		return exts[0]
	}
	return ".png"
}

func (i *GeneratedImage) mimeType() string {
	if i.MIMEType == "" {
		return "image/png"
	}
	return i.MIMEType
}

// AppState is the view state of one poster session.
// IsLoading is true only between a triggered generation and its settlement.
type AppState struct {
	Topic       string          `json:"topic"`
	Grade       GradeLevel      `json:"grade"`
	IsLoading   bool            `json:"is_loading"`
	Text        *PosterText     `json:"text,omitempty"`
	Image       *GeneratedImage `json:"image,omitempty"`
	DisplayDate string          `json:"display_date"`
	Notice      string          `json:"notice,omitempty"`
	LastError   string          `json:"last_error,omitempty"`
	GeneratedAt *time.Time      `json:"generated_at,omitempty"`
	Version     uint64          `json:"version"`
}

// CanGenerate reports whether the trigger control is enabled.
func (s AppState) CanGenerate() bool {
	return !s.IsLoading && strings.TrimSpace(s.Topic) != ""
}

// DisplayDateLayout formats dates like 2026年10月19日.
const DisplayDateLayout = "2006年1月2日"

// FormatDisplayDate formats t for the task info bar.
func FormatDisplayDate(t time.Time) string {
	return t.Format(DisplayDateLayout)
}
