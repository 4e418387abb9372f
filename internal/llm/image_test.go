package llm

import (
	"testing"
	"unicode/utf8"

	"google.golang.org/genai"
)

func TestFirstInlineImage(t *testing.T) {
	png := []byte{0x89, 'P', 'N', 'G'}
	tests := []struct {
		name     string
		resp     *genai.GenerateContentResponse
		wantData []byte
		wantMIME string
		wantCand int
		wantPart int
	}{
		{
			name:     "nil response",
			resp:     nil,
			wantCand: -1, wantPart: -1,
		},
		{
			name:     "no candidates",
			resp:     &genai.GenerateContentResponse{},
			wantCand: -1, wantPart: -1,
		},
		{
			name: "text only",
			resp: &genai.GenerateContentResponse{Candidates: []*genai.Candidate{
				{Content: &genai.Content{Parts: []*genai.Part{{Text: "here is your poster"}}}},
			}},
			wantCand: -1, wantPart: -1,
		},
		{
			name: "caption then image",
			resp: &genai.GenerateContentResponse{Candidates: []*genai.Candidate{
				{Content: &genai.Content{Parts: []*genai.Part{
					{Text: "caption"},
					{InlineData: &genai.Blob{MIMEType: "image/jpeg", Data: png}},
				}}},
			}},
			wantData: png, wantMIME: "image/jpeg", wantCand: 0, wantPart: 1,
		},
		{
			name: "skips empty blob and missing content, defaults mime",
			resp: &genai.GenerateContentResponse{Candidates: []*genai.Candidate{
				{Content: nil},
				{Content: &genai.Content{Parts: []*genai.Part{
					{InlineData: &genai.Blob{MIMEType: "image/png"}},
					{InlineData: &genai.Blob{Data: png}},
				}}},
			}},
			wantData: png, wantMIME: "image/png", wantCand: 1, wantPart: 1,
		},
		{
			name: "skips non-image inline data",
			resp: &genai.GenerateContentResponse{Candidates: []*genai.Candidate{
				{Content: &genai.Content{Parts: []*genai.Part{
					{InlineData: &genai.Blob{MIMEType: "audio/wav", Data: []byte("RIFF")}},
				}}},
			}},
			wantCand: -1, wantPart: -1,
		},
		{
			name: "first of several images",
			resp: &genai.GenerateContentResponse{Candidates: []*genai.Candidate{
				{Content: &genai.Content{Parts: []*genai.Part{
					{InlineData: &genai.Blob{MIMEType: "image/png", Data: png}},
					{InlineData: &genai.Blob{MIMEType: "image/webp", Data: []byte("RIFFWEBP")}},
				}}},
			}},
			wantData: png, wantMIME: "image/png", wantCand: 0, wantPart: 0,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img, cand, part := firstInlineImage(tt.resp)
			if cand != tt.wantCand || part != tt.wantPart {
				t.Errorf("position = (%d,%d), want (%d,%d)", cand, part, tt.wantCand, tt.wantPart)
			}
			if tt.wantData == nil {
				if img != nil {
					t.Fatalf("expected no image, got %+v", img)
				}
				return
			}
			if img == nil {
				t.Fatal("expected image, got nil")
			}
			if string(img.Data) != string(tt.wantData) {
				t.Errorf("data = %v, want %v", img.Data, tt.wantData)
			}
			if img.MIMEType != tt.wantMIME {
				t.Errorf("mime = %q, want %q", img.MIMEType, tt.wantMIME)
			}
		})
	}
}

func TestPreviewRunes(t *testing.T) {
	tests := []struct {
		in   string
		n    int
		want string
	}{
		{"", 3, ""},
		{"abc", 3, "abc"},
		{"abcd", 3, "abc"},
		{"环保在我心中", 2, "环保"},
		{"A4环保", 3, "A4环"},
	}
	for _, tt := range tests {
		got := previewRunes(tt.in, tt.n)
		if got != tt.want {
			t.Errorf("previewRunes(%q, %d) = %q, want %q", tt.in, tt.n, got, tt.want)
		}
		if !utf8.ValidString(got) {
			t.Errorf("previewRunes(%q, %d) cut a rune", tt.in, tt.n)
		}
	}
	if got := previewRunes(BuildImagePrompt("环保在我心中", "初中"), 80); utf8.RuneCountInString(got) > 80 || !utf8.ValidString(got) {
		t.Errorf("image prompt preview %q", got)
	}
}
