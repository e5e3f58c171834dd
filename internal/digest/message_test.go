package digest

import (
	"strings"
	"testing"

	"github.com/quizhive/quizhive/internal/domain"
)

func TestRenderSubject(t *testing.T) {
	q := []*domain.Quiz{{ID: "1"}, {ID: "2"}}
	a := []*domain.Quiz{{ID: "3"}}

	tests := []struct {
		name      string
		questions []*domain.Quiz
		answers   []*domain.Quiz
		want      string
	}{
		{"both", q, a, "2 new quizzes and 1 revealed answers"},
		{"answers only", nil, a, "1 quiz answers revealed"},
		{"questions only", q, nil, "2 new quizzes available"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := renderSubject(tt.questions, tt.answers); got != tt.want {
				t.Fatalf("renderSubject() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRenderBody(t *testing.T) {
	questions := []*domain.Quiz{
		{Title: "Capitals", Prompt: "Capital of France?", Answer: "Paris"},
		{Title: "Math", Prompt: "2+2?"},
	}
	answers := []*domain.Quiz{
		{Title: "History", Prompt: "Year of the moon landing?", Answer: "1969", References: "NASA archive"},
		{Title: "Plain", Prompt: "No sources here?", Answer: "indeed"},
	}

	body, err := renderBody("Acme School", questions, answers)
	if err != nil {
		t.Fatal(err)
	}

	if !strings.Contains(body, "Hello Acme School") {
		t.Fatalf("missing greeting:\n%s", body)
	}

	// Questions are numbered and never show their answer.
	if !strings.Contains(body, "1. Capitals: Capital of France?") {
		t.Fatalf("missing first question:\n%s", body)
	}
	if !strings.Contains(body, "2. Math: 2+2?") {
		t.Fatalf("missing second question:\n%s", body)
	}
	if strings.Contains(body, "Paris") {
		t.Fatalf("open quiz answer leaked:\n%s", body)
	}

	// Answers carry the answer text; references only when present.
	if !strings.Contains(body, "Answer: 1969") || !strings.Contains(body, "References: NASA archive") {
		t.Fatalf("missing revealed answer or references:\n%s", body)
	}
	if strings.Contains(body, "References: \n") {
		t.Fatalf("empty references line rendered:\n%s", body)
	}
}

func TestRenderBody_SectionsOmittedWhenEmpty(t *testing.T) {
	body, err := renderBody("Acme", nil, []*domain.Quiz{{Title: "T", Prompt: "P", Answer: "A"}})
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(body, "New quizzes are open") {
		t.Fatalf("question section rendered without questions:\n%s", body)
	}
	if !strings.Contains(body, "Answers revealed") {
		t.Fatalf("answer section missing:\n%s", body)
	}
}
