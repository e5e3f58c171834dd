package digest

import (
	"fmt"
	"strings"
	"text/template"

	"github.com/quizhive/quizhive/internal/domain"
)

// digestData feeds the body template for one instance's digest.
type digestData struct {
	InstanceName string
	Questions    []*domain.Quiz
	Answers      []*domain.Quiz
}

// The body enumerates open quizzes by prompt only (the answer of a
// not-yet-closed quiz is never rendered) and closed quizzes with their
// answer text and reference notes.
var bodyTmpl = template.Must(template.New("digest").Funcs(template.FuncMap{
	"inc": func(i int) int { return i + 1 },
}).Parse(`Hello {{.InstanceName}},
{{- if .Questions}}

New quizzes are open:
{{- range $i, $q := .Questions}}
  {{inc $i}}. {{$q.Title}}: {{$q.Prompt}}
{{- end}}
{{- end}}
{{- if .Answers}}

Answers revealed:
{{- range $i, $q := .Answers}}
  {{inc $i}}. {{$q.Title}}: {{$q.Prompt}}
     Answer: {{$q.Answer}}
{{- if $q.References}}
     References: {{$q.References}}
{{- end}}
{{- end}}
{{- end}}
`))

// renderSubject reflects whether the digest carries questions only, answers
// only, or both.
func renderSubject(questions, answers []*domain.Quiz) string {
	switch {
	case len(questions) > 0 && len(answers) > 0:
		return fmt.Sprintf("%d new quizzes and %d revealed answers", len(questions), len(answers))
	case len(answers) > 0:
		return fmt.Sprintf("%d quiz answers revealed", len(answers))
	default:
		return fmt.Sprintf("%d new quizzes available", len(questions))
	}
}

func renderBody(instanceName string, questions, answers []*domain.Quiz) (string, error) {
	var b strings.Builder
	err := bodyTmpl.Execute(&b, digestData{
		InstanceName: instanceName,
		Questions:    questions,
		Answers:      answers,
	})
	if err != nil {
		return "", fmt.Errorf("render digest body: %w", err)
	}
	return b.String(), nil
}
