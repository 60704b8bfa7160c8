package export

import (
	"bytes"
	"html/template"
	"time"
)

// TemplateData holds everything the digest template renders.
type TemplateData struct {
	GeneratedAt time.Time
	Stats       Stats
	Posts       []ReportedPost
}

var digestTemplate = template.Must(template.New("digest").Parse(digestHTML))

// RenderDigestHTML renders the moderation digest template.
func RenderDigestHTML(data TemplateData) (string, error) {
	var buf bytes.Buffer
	if err := digestTemplate.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

const digestHTML = `<!DOCTYPE html>
<html>
<head>
  <meta charset="UTF-8">
  <title>Moderation Digest</title>
  <style>
    body { font-family: Arial, sans-serif; line-height: 1.6; max-width: 800px; margin: 2rem auto; }
    h1 { border-bottom: 2px solid #333; padding-bottom: 0.5rem; }
    .meta { color: #666; font-size: 0.9em; margin-bottom: 2rem; }
    .stats td { padding: 0.25rem 1rem 0.25rem 0; }
    .post { background: #f5f5f5; padding: 1rem; margin: 1rem 0; border-left: 3px solid #c0392b; }
    .post h3 { margin: 0 0 0.25rem; }
    .report { color: #666; font-size: 0.9em; }
  </style>
</head>
<body>
  <h1>Moderation Digest</h1>
  <div class="meta">Generated {{.GeneratedAt.Format "Jan 2, 2006 15:04 MST"}}</div>
  <h2>Last 24 hours</h2>
  <table class="stats">
    <tr><td>New tips</td><td>{{.Stats.TipsToday}}</td></tr>
    <tr><td>New suggestions</td><td>{{.Stats.SuggestionsToday}}</td></tr>
    <tr><td>New comments</td><td>{{.Stats.CommentsToday}}</td></tr>
    <tr><td>Reports filed</td><td>{{.Stats.ReportsToday}}</td></tr>
  </table>
  <h2>Reported posts ({{len .Posts}})</h2>
  {{if not .Posts}}<p>Nothing in the queue.</p>{{end}}
  {{range .Posts}}
  <div class="post">
    <h3>{{.Title}}</h3>
    <div class="meta">{{.Category}} · {{.AuthorName}} · posted {{.CreatedAt.Format "Jan 2, 2006"}}</div>
    <p>{{.Content}}</p>
    {{range .Reports}}<div class="report">reported by {{.UserID}} at {{.ReportedAt.Format "Jan 2 15:04"}}</div>{{end}}
  </div>
  {{end}}
</body>
</html>`
