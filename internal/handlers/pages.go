package handlers

import (
	"errors"
	"fmt"
	"html/template"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/snappy-loop/poster/internal/markup"
	"github.com/snappy-loop/poster/internal/models"
	"github.com/snappy-loop/poster/internal/services"
	"github.com/snappy-loop/poster/internal/validation"
)

// emptyTopicNotice is shown when the form is submitted without a topic.
const emptyTopicNotice = "请输入手抄报主题。"

type gradeOption struct {
	Value    string
	Label    string
	Selected bool
}

// pageData is the view model of the index template.
type pageData struct {
	State       models.AppState
	Grades      []gradeOption
	CanGenerate bool
	ImageURL    string
	DownloadURL string
	Intro       template.HTML
	Facts       template.HTML
	Relations   template.HTML
	Notice      string
	MaxTopic    int
	TopicInput  string
}

func newPageData(st models.AppState, notice string) pageData {
	data := pageData{
		State:       st,
		CanGenerate: st.CanGenerate(),
		Notice:      st.Notice,
		MaxTopic:    models.MaxTopicRunes,
		TopicInput:  st.Topic,
	}
	if notice != "" {
		data.Notice = notice
	}
	for _, g := range models.GradeLevels() {
		data.Grades = append(data.Grades, gradeOption{Value: g.Key(), Label: string(g), Selected: g == st.Grade})
	}
	if st.Image != nil {
		data.ImageURL = imageURL(st)
		data.DownloadURL = data.ImageURL + "&download=1"
	}
	if st.Text != nil {
		data.Intro = markup.PanelHTML(st.Text.Intro)
		data.Facts = markup.PanelHTML(st.Text.Facts)
		data.Relations = markup.PanelHTML(st.Text.Relations)
	}
	return data
}

// imageURL is versioned so browsers refetch after each successful generation.
func imageURL(st models.AppState) string {
	return "/image?v=" + strconv.FormatUint(st.Version, 10)
}

// Index handles GET /
func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	ctrl := h.controller(w, r)
	renderPage(w, http.StatusOK, "index", newPageData(ctrl.State(), ""))
}

// Generate handles POST /generate from the header form. It applies topic and grade, then triggers generation.
func (h *Handler) Generate(w http.ResponseWriter, r *http.Request) {
	ctrl := h.controller(w, r)
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	if err := r.ParseForm(); err != nil {
		renderPage(w, http.StatusBadRequest, "index", newPageData(ctrl.State(), "表单无效，请重试。"))
		return
	}

	grade, err := models.ParseGradeLevel(r.PostFormValue("grade"))
	if err != nil {
		renderPage(w, http.StatusBadRequest, "index", newPageData(ctrl.State(), "请选择有效的年级。"))
		return
	}
	topic := strings.TrimSpace(r.PostFormValue("topic"))

	if err := ctrl.Update(topic, grade); err != nil {
		h.renderTriggerError(w, r, ctrl, topic, err)
		return
	}
	if _, err := ctrl.Generate(r.Context()); err != nil {
		h.renderTriggerError(w, r, ctrl, topic, err)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// renderTriggerError answers a refused form trigger. The state is unchanged; the submitted topic is
// echoed back into the input only.
func (h *Handler) renderTriggerError(w http.ResponseWriter, r *http.Request, ctrl *services.PosterController, topic string, err error) {
	var verr *validation.ValidationError
	switch {
	case errors.Is(err, services.ErrGenerationInProgress):
		http.Redirect(w, r, "/", http.StatusSeeOther)
	case errors.As(err, &verr):
		notice := emptyTopicNotice
		if topic != "" {
			notice = verr.Error()
		}
		data := newPageData(ctrl.State(), notice)
		data.TopicInput = topic
		data.CanGenerate = false
		renderPage(w, http.StatusBadRequest, "index", data)
	default:
		log.Error().Err(err).Msg("Failed to start generation")
		renderPage(w, http.StatusInternalServerError, "index", newPageData(ctrl.State(), services.FailureNotice))
	}
}

// Image handles GET /image, serving the session's current layout image; ?download=1 saves it as poster-<topic>.<ext>.
func (h *Handler) Image(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := h.existingController(r)
	if !ok {
		http.Error(w, "no image generated yet", http.StatusNotFound)
		return
	}
	st := ctrl.State()
	if st.Image == nil || len(st.Image.Data) == 0 {
		http.Error(w, "no image generated yet", http.StatusNotFound)
		return
	}
	img := st.Image
	contentType := img.MIMEType
	if contentType == "" {
		contentType = "image/png"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(img.Data)))
	w.Header().Set("Cache-Control", "private, max-age=3600")
	if r.URL.Query().Get("download") != "" {
		w.Header().Set("Content-Disposition", downloadDisposition(st.Topic, img))
	}
	w.WriteHeader(http.StatusOK)
	w.Write(img.Data)
}

// downloadDisposition builds an attachment header; non-ASCII topics are RFC 2231 encoded.
func downloadDisposition(topic string, img *models.GeneratedImage) string {
	name := fmt.Sprintf("poster-%s%s", sanitizeFilename(topic), img.Extension())
	return mime.FormatMediaType("attachment", map[string]string{"filename": name})
}

func sanitizeFilename(s string) string {
	s = strings.Map(func(r rune) rune {
		switch {
		case r < 0x20, r == 0x7f:
			return -1
		case strings.ContainsRune(`/\:*?"<>|`, r):
			return '_'
		}
		return r
	}, strings.TrimSpace(s))
	if s == "" {
		return "untitled"
	}
	return s
}
