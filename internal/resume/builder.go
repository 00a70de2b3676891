// Package resume turns a completed jobseeker submission into structured
// resume content. Rendering (PDF, print) is left to the consumer; this
// package only produces the sections.
package resume

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"google.golang.org/genai"

	"github.com/mauka-works/intake-engine/internal/flow"
)

const defaultModel = "gemini-2.0-flash"

// Content is the structured resume produced from the intake answers.
type Content struct {
	Name       string   `json:"name"`
	Summary    string   `json:"summary"`
	Skills     []string `json:"skills"`
	Experience []string `json:"experience"`
	Education  string   `json:"education"`
	Location   string   `json:"location"`
}

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

// Builder generates resume content from answer snapshots.
type Builder struct {
	gen textGenerator
	log zerolog.Logger
}

// New creates a builder backed by the Gemini API. An empty model selects the
// default.
func New(ctx context.Context, apiKey, model string, log zerolog.Logger) (*Builder, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	if model == "" {
		model = defaultModel
	}
	return &Builder{
		gen: &genaiGenerator{client: client, model: model},
		log: log.With().Str("component", "resume_builder").Logger(),
	}, nil
}

// Build produces resume content from a completed jobseeker answer set.
func (b *Builder) Build(ctx context.Context, answers []flow.Answer) (Content, error) {
	out, err := b.gen.generate(ctx, buildPrompt(answers))
	if err != nil {
		return Content{}, fmt.Errorf("generate resume content: %w", err)
	}

	content, err := parseContent(out)
	if err != nil {
		return Content{}, err
	}
	// The name is factual; never let the model restyle it.
	for _, a := range answers {
		if a.Key == "name" && a.Value != "" {
			content.Name = a.Value
		}
	}
	b.log.Debug().Str("name", content.Name).Int("skills", len(content.Skills)).Msg("resume content built")
	return content, nil
}

func buildPrompt(answers []flow.Answer) string {
	var sb strings.Builder
	sb.WriteString("Write professional resume content for a jobseeker from this intake interview.\n\nAnswers:\n")
	for _, a := range answers {
		fmt.Fprintf(&sb, "- %s: %s\n", a.Key, a.Value)
	}
	sb.WriteString(`
Respond with only a JSON object, no markdown fences, in this shape:
{"name": "", "summary": "", "skills": [""], "experience": [""], "education": "", "location": ""}
Keep the summary to two sentences. Derive skills and experience entries from the past jobs answer. Do not invent facts that are not in the answers.`)
	return sb.String()
}

// parseContent extracts the JSON object from the model output, tolerating
// fences or prose around it.
func parseContent(out string) (Content, error) {
	start := strings.Index(out, "{")
	end := strings.LastIndex(out, "}")
	if start < 0 || end <= start {
		return Content{}, fmt.Errorf("no JSON object in model output")
	}
	var c Content
	if err := json.Unmarshal([]byte(out[start:end+1]), &c); err != nil {
		return Content{}, fmt.Errorf("parse resume content: %w", err)
	}
	return c, nil
}
