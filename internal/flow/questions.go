// Package flow holds the question flow controller: the state machine that
// drives a single intake session from role selection through voice or typed
// answers to a completed, canonical answer set.
package flow

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"
)

// Role selects which question set a session walks through.
type Role string

const (
	RoleJobSeeker Role = "jobseeker"
	RoleEmployer  Role = "employer"
)

// ParseRole validates a role string from the wire.
func ParseRole(s string) (Role, error) {
	switch Role(strings.ToLower(strings.TrimSpace(s))) {
	case RoleJobSeeker:
		return RoleJobSeeker, nil
	case RoleEmployer:
		return RoleEmployer, nil
	default:
		return "", fmt.Errorf("unknown role %q", s)
	}
}

// Question is one field the session collects. Key is the canonical English
// field identifier; Label is the English prompt shown (and translated) to
// the user.
type Question struct {
	Key   string `json:"key"`
	Label string `json:"label"`
}

// Language is a UI language offered at session start.
type Language struct {
	Code  string `json:"code"`  // regional locale, e.g. "hi-IN"
	Name  string `json:"name"`  // native name shown to the user
	Label string `json:"label"` // English name
}

// Languages are the regional languages the intake supports. English is the
// canonical storage language and is always accepted as a UI language too.
var Languages = []Language{
	{Code: "bn-IN", Name: "বাংলা", Label: "Bengali"},
	{Code: "hi-IN", Name: "हिंदी", Label: "Hindi"},
	{Code: "ml-IN", Name: "മലയാളം", Label: "Malayalam"},
	{Code: "en-IN", Name: "English", Label: "English"},
}

// ValidLanguage reports whether code is an offered UI language.
func ValidLanguage(code string) bool {
	for _, l := range Languages {
		if l.Code == code {
			return true
		}
	}
	return false
}

// BaseLang strips the region from a locale code: "hi-IN" becomes "hi".
// Translation wants base codes while speech wants full locales.
func BaseLang(code string) string {
	if base, _, ok := strings.Cut(code, "-"); ok {
		return base
	}
	return code
}

func defaultSets() map[Role][]Question {
	return map[Role][]Question{
		RoleJobSeeker: {
			{Key: "name", Label: "What is your full name?"},
			{Key: "education", Label: "What is your educational background?"},
			{Key: "age", Label: "What is your age?"},
			{Key: "location", Label: "Where are you located?"},
			{Key: "pastJobs", Label: "Tell me about your past jobs."},
		},
		RoleEmployer: {
			{Key: "companyName", Label: "What is your company name?"},
			{Key: "jobTitle", Label: "What position are you hiring for?"},
			{Key: "requirements", Label: "What are the key requirements for this role?"},
			{Key: "experience", Label: "How many years of experience are required?"},
			{Key: "location", Label: "Where is the job location?"},
		},
	}
}

// Catalog holds the per-role question sets. It starts with the built-in
// defaults and can be overridden from a JSON file, optionally hot-reloaded
// by Watch.
type Catalog struct {
	mu   sync.RWMutex
	sets map[Role][]Question
}

// NewCatalog returns a catalog with the built-in question sets.
func NewCatalog() *Catalog {
	return &Catalog{sets: defaultSets()}
}

// Questions returns a copy of the ordered question set for a role.
func (c *Catalog) Questions(role Role) []Question {
	c.mu.RLock()
	defer c.mu.RUnlock()
	qs := c.sets[role]
	out := make([]Question, len(qs))
	copy(out, qs)
	return out
}

// LoadFile replaces the question sets from a JSON file shaped as
// {"jobseeker": [{"key": ..., "label": ...}], "employer": [...]}.
// A role missing from the file keeps its current set. Sets with duplicate or
// empty keys are rejected.
func (c *Catalog) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read question file: %w", err)
	}

	var file map[Role][]Question
	if err := json.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("parse question file: %w", err)
	}

	for role, qs := range file {
		if role != RoleJobSeeker && role != RoleEmployer {
			return fmt.Errorf("question file: unknown role %q", role)
		}
		if len(qs) == 0 {
			return fmt.Errorf("question file: empty question set for role %q", role)
		}
		seen := make(map[string]bool, len(qs))
		for _, q := range qs {
			if q.Key == "" || q.Label == "" {
				return fmt.Errorf("question file: role %q has a question with empty key or label", role)
			}
			if seen[q.Key] {
				return fmt.Errorf("question file: role %q has duplicate key %q", role, q.Key)
			}
			seen[q.Key] = true
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for role, qs := range file {
		c.sets[role] = qs
	}
	return nil
}
