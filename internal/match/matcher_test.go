package match

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

type fakeGenerator struct {
	// outputs maps a candidate name (looked up in the prompt) to raw model
	// output. Absent names fail the call.
	outputs map[string]string
}

func (f *fakeGenerator) generate(ctx context.Context, prompt string) (string, error) {
	for name, out := range f.outputs {
		if strings.Contains(prompt, name) {
			return out, nil
		}
	}
	return "", errors.New("model unavailable")
}

func candidate(id, name string) Candidate {
	return Candidate{ID: id, Fields: map[string]string{
		"name":     name,
		"location": "Pune",
		"pastJobs": "Welder",
	}}
}

func TestTopMatchesRanksAndCaps(t *testing.T) {
	m := &Matcher{log: zerolog.Nop(), gen: &fakeGenerator{outputs: map[string]string{
		"Asha":   "72",
		"Binod":  "90",
		"Chitra": "55",
		"Deepa":  "81",
	}}}

	reqs := map[string]string{"jobTitle": "Welder", "location": "Pune"}
	got, err := m.TopMatches(context.Background(), reqs, []Candidate{
		candidate("s1", "Asha"),
		candidate("s2", "Binod"),
		candidate("s3", "Chitra"),
		candidate("s4", "Deepa"),
	})
	if err != nil {
		t.Fatalf("TopMatches: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d matches, want 3", len(got))
	}
	wantOrder := []string{"Binod", "Deepa", "Asha"}
	for i, name := range wantOrder {
		if got[i].Name != name {
			t.Errorf("match[%d] = %q (score %d), want %q", i, got[i].Name, got[i].Score, name)
		}
	}
}

func TestTopMatchesSkipsFailedCandidates(t *testing.T) {
	m := &Matcher{log: zerolog.Nop(), gen: &fakeGenerator{outputs: map[string]string{
		"Asha": "60",
	}}}

	got, err := m.TopMatches(context.Background(), nil, []Candidate{
		candidate("s1", "Asha"),
		candidate("s2", "Binod"), // no fake output: scoring fails
	})
	if err != nil {
		t.Fatalf("TopMatches: %v", err)
	}
	if len(got) != 1 || got[0].SessionID != "s1" {
		t.Errorf("matches = %+v", got)
	}
}

func TestTopMatchesAllFailed(t *testing.T) {
	m := &Matcher{log: zerolog.Nop(), gen: &fakeGenerator{}}
	_, err := m.TopMatches(context.Background(), nil, []Candidate{candidate("s1", "Asha")})
	if err == nil {
		t.Fatal("want error when every candidate fails to score")
	}
}

func TestTopMatchesEmptyPool(t *testing.T) {
	m := &Matcher{log: zerolog.Nop(), gen: &fakeGenerator{}}
	got, err := m.TopMatches(context.Background(), nil, nil)
	if err != nil || got != nil {
		t.Errorf("TopMatches(empty) = %+v, %v", got, err)
	}
}

func TestParseScore(t *testing.T) {
	tests := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{"85", 85, false},
		{" 85 \n", 85, false},
		{"Score: 42/100", 42, false},
		{"I would rate this candidate 73 out of 100.", 73, false},
		{"150", 100, false},
		{"0", 0, false},
		{"no digits here", 0, true},
		{"", 0, true},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%.20q", tt.in), func(t *testing.T) {
			got, err := parseScore(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseScore(%q) err = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("parseScore(%q) = %d, want %d", tt.in, got, tt.want)
			}
		})
	}
}
