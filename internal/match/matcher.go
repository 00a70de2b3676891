// Package match scores archived jobseeker profiles against an employer's
// requirements and returns the strongest candidates.
package match

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"google.golang.org/genai"
)

const (
	defaultModel = "gemini-2.0-flash"
	topN         = 3
)

// Candidate is one archived jobseeker profile, flattened to field values.
type Candidate struct {
	ID     string
	Fields map[string]string
}

// Match is a scored candidate.
type Match struct {
	SessionID string `json:"session_id"`
	Name      string `json:"name"`
	Location  string `json:"location"`
	Score     int    `json:"score"`
}

// textGenerator is the single LLM call the matcher depends on.
type textGenerator interface {
	generate(ctx context.Context, prompt string) (string, error)
}

type genaiGenerator struct {
	client *genai.Client
	model  string
}

func (g *genaiGenerator) generate(ctx context.Context, prompt string) (string, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), nil)
	if err != nil {
		return "", err
	}
	return resp.Text(), nil
}

// Matcher scores candidates one at a time and keeps the top few.
type Matcher struct {
	gen textGenerator
	log zerolog.Logger
}

// New creates a matcher backed by the Gemini API. An empty model selects the
// default.
func New(ctx context.Context, apiKey, model string, log zerolog.Logger) (*Matcher, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	if model == "" {
		model = defaultModel
	}
	return &Matcher{
		gen: &genaiGenerator{client: client, model: model},
		log: log.With().Str("component", "matcher").Logger(),
	}, nil
}

// TopMatches scores every candidate against the requirements and returns up
// to three, best first. A candidate whose scoring call fails is skipped; the
// call only errors when no candidate could be scored at all.
func (m *Matcher) TopMatches(ctx context.Context, requirements map[string]string, candidates []Candidate) ([]Match, error) {
	if len(candidates) == 0 {
		return nil, nil
	}

	var matches []Match
	failed := 0
	for _, c := range candidates {
		score, err := m.score(ctx, requirements, c)
		if err != nil {
			m.log.Warn().Err(err).Str("candidate", c.ID).Msg("candidate scoring failed, skipping")
			failed++
			continue
		}
		matches = append(matches, Match{
			SessionID: c.ID,
			Name:      c.Fields["name"],
			Location:  c.Fields["location"],
			Score:     score,
		})
	}

	if len(matches) == 0 {
		return nil, fmt.Errorf("scoring failed for all %d candidates", failed)
	}

	sort.SliceStable(matches, func(i, j int) bool { return matches[i].Score > matches[j].Score })
	if len(matches) > topN {
		matches = matches[:topN]
	}
	return matches, nil
}

func (m *Matcher) score(ctx context.Context, requirements map[string]string, c Candidate) (int, error) {
	prompt := scorePrompt(requirements, c)
	out, err := m.gen.generate(ctx, prompt)
	if err != nil {
		return 0, err
	}
	return parseScore(out)
}

func scorePrompt(requirements map[string]string, c Candidate) string {
	var b strings.Builder
	b.WriteString("You are matching a jobseeker to a job opening.\n\nJob opening:\n")
	writeFields(&b, requirements)
	b.WriteString("\nJobseeker profile:\n")
	writeFields(&b, c.Fields)
	b.WriteString("\nRate how well this jobseeker fits the opening on a scale of 0 to 100.\n")
	b.WriteString("Respond with only the number, nothing else.")
	return b.String()
}

func writeFields(b *strings.Builder, fields map[string]string) {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(b, "- %s: %s\n", k, fields[k])
	}
}

// parseScore extracts the first integer from the model output and clamps it
// to 0..100. Models occasionally wrap the number in prose despite the
// instruction.
func parseScore(out string) (int, error) {
	start := -1
	for i, r := range out {
		if r >= '0' && r <= '9' {
			start = i
			break
		}
	}
	if start < 0 {
		return 0, fmt.Errorf("no score in model output %q", truncate(out))
	}
	end := start
	for end < len(out) && out[end] >= '0' && out[end] <= '9' {
		end++
	}
	n, err := strconv.Atoi(out[start:end])
	if err != nil {
		return 0, fmt.Errorf("parse score from %q: %w", truncate(out), err)
	}
	if n < 0 {
		n = 0
	}
	if n > 100 {
		n = 100
	}
	return n, nil
}

func truncate(s string) string {
	if len(s) > 80 {
		return s[:80] + "..."
	}
	return s
}
