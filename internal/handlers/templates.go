package handlers

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"

	"github.com/rs/zerolog/log"
)

//go:embed templates/*.tmpl
var templatesFS embed.FS

// pageTemplates is the parsed set of all page templates (index plus its header, image and text panels).
var pageTemplates = mustParseTemplates()

// textCard is one labeled text panel (卷首语, 小知识, 我与主题).
type textCard struct {
	Title    string
	Subtitle string
	Content  template.HTML
}

func newTextCard(title, subtitle string, content template.HTML) textCard {
	return textCard{Title: title, Subtitle: subtitle, Content: content}
}

func mustParseTemplates() *template.Template {
	t, err := template.New("").
		Funcs(template.FuncMap{"card": newTextCard}).
		ParseFS(templatesFS, "templates/*.tmpl")
	if err != nil {
		panic("parse templates: " + err.Error())
	}
	return t
}

// renderPage executes the named template into a buffer first so a template error never yields a half page.
func renderPage(w http.ResponseWriter, status int, name string, data interface{}) {
	var buf bytes.Buffer
	if err := pageTemplates.ExecuteTemplate(&buf, name, data); err != nil {
		log.Error().Err(err).Str("template", name).Msg("Failed to render page")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	w.Write(buf.Bytes())
}
