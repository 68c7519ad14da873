package prompts

import (
	"bytes"
	"text/template"

	"portal-agent/internal/domain/entity"
)

// NormalizerFewShot returns the two-shot examples that anchor the
// normalizer backstop to strict JSON output.
func NormalizerFewShot() []entity.Message {
	return []entity.Message{
		{Role: entity.RoleUser, Content: `Goal: manage my appointments
PAGE_VOCAB: ["Appointments","Payments","Lab Results","Login"]`},
		{Role: entity.RoleAssistant, Content: `{"intent":"manage","target":"appointments","query":"appointments","canonical_goal":"find(\"appointments\") then click the best match, then done"}`},
		{Role: entity.RoleUser, Content: `Goal: pay outstanding bills
PAGE_VOCAB: ["Appointments","Payments","Lab Results","Login"]`},
		{Role: entity.RoleAssistant, Content: `{"intent":"pay","target":"payments","query":"payments","canonical_goal":"find(\"payments\") then click the best match, then done"}`},
	}
}

// PageContextData feeds the compact page-context block given to the
// planner each turn: identity, element counts, top vocabulary and a
// capped raw-HTML excerpt instead of the full snapshot.
type PageContextData struct {
	URL         string
	Title       string
	TextCount   int
	LinkCount   int
	ButtonCount int
	InputCount  int
	Vocab       []string
	Excerpt     string
}

var pageContextTmpl = template.Must(template.New("pagecontext").Parse(
	`URL: {{.URL}}
TITLE: {{.Title}}
COUNTS: texts={{.TextCount}} links={{.LinkCount}} buttons={{.ButtonCount}} inputs={{.InputCount}}
VOCAB: {{range $i, $v := .Vocab}}{{if $i}}, {{end}}{{$v}}{{end}}{{if .Excerpt}}
HTML_EXCERPT: {{.Excerpt}}{{end}}`))

func RenderPageContext(data PageContextData) (string, error) {
	var buf bytes.Buffer
	if err := pageContextTmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
