package resume

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/mauka-works/intake-engine/internal/flow"
)

type fakeGenerator struct {
	out       string
	err       error
	gotPrompt string
}

func (f *fakeGenerator) generate(ctx context.Context, prompt string) (string, error) {
	f.gotPrompt = prompt
	return f.out, f.err
}

var answers = []flow.Answer{
	{Key: "name", Value: "Asha Devi"},
	{Key: "education", Value: "Tenth grade"},
	{Key: "age", Value: "32"},
	{Key: "location", Value: "Pune"},
	{Key: "pastJobs", Value: "Welder for five years"},
}

func TestBuildParsesModelOutput(t *testing.T) {
	gen := &fakeGenerator{out: "Here is the resume:\n```json\n" +
		`{"name": "ASHA D.", "summary": "Experienced welder.", "skills": ["Welding"], "experience": ["Welder, 5 years"], "education": "Tenth grade", "location": "Pune"}` +
		"\n```"}
	b := &Builder{gen: gen, log: zerolog.Nop()}

	got, err := b.Build(context.Background(), answers)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	// The submitted name wins over the model's restyled one.
	if got.Name != "Asha Devi" {
		t.Errorf("name = %q, want submitted value", got.Name)
	}
	if got.Summary != "Experienced welder." || len(got.Skills) != 1 || got.Location != "Pune" {
		t.Errorf("content = %+v", got)
	}
	if !strings.Contains(gen.gotPrompt, "pastJobs: Welder for five years") {
		t.Errorf("prompt missing answers:\n%s", gen.gotPrompt)
	}
}

func TestBuildGeneratorFailure(t *testing.T) {
	b := &Builder{gen: &fakeGenerator{err: errors.New("quota exceeded")}, log: zerolog.Nop()}
	if _, err := b.Build(context.Background(), answers); err == nil {
		t.Fatal("want error on generator failure")
	}
}

func TestBuildBadModelOutput(t *testing.T) {
	tests := []struct {
		name string
		out  string
	}{
		{"no_json", "I cannot do that."},
		{"broken_json", `{"name": "Asha",`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := &Builder{gen: &fakeGenerator{out: tt.out}, log: zerolog.Nop()}
			if _, err := b.Build(context.Background(), answers); err == nil {
				t.Fatal("want error on unparseable output")
			}
		})
	}
}
