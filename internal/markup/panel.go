package markup

import (
	"html"
	"html/template"
	"regexp"
	"strings"
)

var (
	bulletRe  = regexp.MustCompile(`^\s*(?:[-*+]\s+|[•·]|[0-9０-９]+[.、．)）]|[（(][0-9一二三四五六七八九十]+[)）])\s*(.+)$`)
	orderedRe = regexp.MustCompile(`^\s*(?:[0-9０-９]+[.、．)）]|[（(][0-9一二三四五六七八九十]+[)）])`)
	boldRe    = regexp.MustCompile(`\*\*([^*\n]+)\*\*`)
)

// PanelHTML renders generated panel text (intro, facts, relations) as safe HTML.
// Blank lines separate paragraphs; runs of "-", "•" or "1." lines become lists; **x** becomes <b>x</b>.
// All text is escaped before any tag is added.
func PanelHTML(text string) template.HTML {
	text = strings.TrimSpace(strings.ReplaceAll(text, "\r\n", "\n"))
	if text == "" {
		return ""
	}

	var out strings.Builder
	var para []string
	var items []string
	ordered := false

	flushPara := func() {
		if len(para) == 0 {
			return
		}
		out.WriteString("<p>")
		out.WriteString(strings.Join(para, "<br>"))
		out.WriteString("</p>")
		para = para[:0]
	}
	flushList := func() {
		if len(items) == 0 {
			return
		}
		tag := "ul"
		if ordered {
			tag = "ol"
		}
		out.WriteString("<" + tag + ">")
		for _, item := range items {
			out.WriteString("<li>" + item + "</li>")
		}
		out.WriteString("</" + tag + ">")
		items = items[:0]
	}

	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) == "" {
			flushPara()
			flushList()
			continue
		}
		if m := bulletRe.FindStringSubmatch(line); m != nil {
			isOrdered := orderedRe.MatchString(line)
			if len(items) > 0 && isOrdered != ordered {
				flushList()
			}
			flushPara()
			ordered = isOrdered
			items = append(items, inline(m[1]))
			continue
		}
		flushList()
		para = append(para, inline(strings.TrimSpace(line)))
	}
	flushPara()
	flushList()

	return template.HTML(out.String())
}

// inline escapes s and converts **bold** spans.
func inline(s string) string {
	return boldRe.ReplaceAllString(html.EscapeString(s), "<b>$1</b>")
}
