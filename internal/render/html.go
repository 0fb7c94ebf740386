// Package render turns session state into something people read: HTML for
// transcripts and colored text for the terminal client.
package render

import (
	"bytes"
	"fmt"
	"html/template"
	"io"

	"github.com/yuin/goldmark"

	"github.com/comigor/lifeline/internal/history"
	"github.com/comigor/lifeline/internal/normalize"
)

// HTML converts message content to HTML. Assistant text is normalized first so
// inline pseudo-lists come out as real lists; raw HTML in the input is dropped.
func HTML(content string) (template.HTML, error) {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(normalize.Normalize(content)), &buf); err != nil {
		return "", fmt.Errorf("rendering markdown: %w", err)
	}
	return template.HTML(buf.String()), nil
}

type transcriptEntry struct {
	Sender  string
	Badge   string
	Name    string
	Time    string
	Content template.HTML
}

var transcriptTmpl = template.Must(template.New("transcript").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>OfficeLifeline transcript</title>
</head>
<body>
{{- range .}}
<div class="message {{.Sender}}">
<p class="meta">{{if .Badge}}<span class="badge">{{.Badge}}</span> {{.Name}}{{else}}You{{end}} <time>{{.Time}}</time></p>
{{.Content}}
</div>
{{- end}}
</body>
</html>
`))

// WriteTranscript writes msgs as a standalone HTML page.
func WriteTranscript(w io.Writer, msgs []history.Message) error {
	entries := make([]transcriptEntry, 0, len(msgs))
	for _, m := range msgs {
		body, err := HTML(m.Content)
		if err != nil {
			return err
		}
		e := transcriptEntry{
			Sender:  string(m.Sender),
			Time:    m.CreatedAt.Format("2006-01-02 15:04:05"),
			Content: body,
		}
		if m.Sender == history.SenderAssistant {
			info := m.AgentType.Info()
			e.Badge, e.Name = info.Badge, info.DisplayName
		}
		entries = append(entries, e)
	}
	return transcriptTmpl.Execute(w, entries)
}
