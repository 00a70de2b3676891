package flow

import (
	"os"
	"path/filepath"
	"testing"
)

func TestParseRole(t *testing.T) {
	tests := []struct {
		in      string
		want    Role
		wantErr bool
	}{
		{"jobseeker", RoleJobSeeker, false},
		{"employer", RoleEmployer, false},
		{"  JobSeeker ", RoleJobSeeker, false},
		{"EMPLOYER", RoleEmployer, false},
		{"admin", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		got, err := ParseRole(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseRole(%q) err = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseRole(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestBaseLang(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"hi-IN", "hi"},
		{"bn-IN", "bn"},
		{"ml-IN", "ml"},
		{"en-IN", "en"},
		{"en", "en"},
	}
	for _, tt := range tests {
		if got := BaseLang(tt.in); got != tt.want {
			t.Errorf("BaseLang(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestValidLanguage(t *testing.T) {
	for _, l := range Languages {
		if !ValidLanguage(l.Code) {
			t.Errorf("ValidLanguage(%q) = false", l.Code)
		}
	}
	if ValidLanguage("fr-FR") {
		t.Error("ValidLanguage accepted fr-FR")
	}
}

func TestCatalogDefaults(t *testing.T) {
	c := NewCatalog()
	js := c.Questions(RoleJobSeeker)
	if len(js) != 5 || js[0].Key != "name" || js[4].Key != "pastJobs" {
		t.Errorf("jobseeker set = %+v", js)
	}
	emp := c.Questions(RoleEmployer)
	if len(emp) != 5 || emp[0].Key != "companyName" {
		t.Errorf("employer set = %+v", emp)
	}

	// Returned slice is a copy.
	js[0].Label = "mutated"
	if c.Questions(RoleJobSeeker)[0].Label == "mutated" {
		t.Error("Questions returned the internal slice")
	}
}

func writeQuestionFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "questions.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestCatalogLoadFile(t *testing.T) {
	c := NewCatalog()
	path := writeQuestionFile(t, `{"jobseeker": [
		{"key": "name", "label": "Your name?"},
		{"key": "skills", "label": "Your skills?"}
	]}`)

	if err := c.LoadFile(path); err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	js := c.Questions(RoleJobSeeker)
	if len(js) != 2 || js[1].Key != "skills" {
		t.Errorf("jobseeker set = %+v", js)
	}
	// Role absent from the file keeps its defaults.
	if emp := c.Questions(RoleEmployer); len(emp) != 5 {
		t.Errorf("employer set replaced: %+v", emp)
	}
}

func TestCatalogLoadFileRejectsBadSets(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"unknown_role", `{"admin": [{"key": "a", "label": "b"}]}`},
		{"empty_set", `{"jobseeker": []}`},
		{"empty_key", `{"jobseeker": [{"key": "", "label": "b"}]}`},
		{"empty_label", `{"jobseeker": [{"key": "a", "label": ""}]}`},
		{"duplicate_key", `{"jobseeker": [{"key": "a", "label": "x"}, {"key": "a", "label": "y"}]}`},
		{"not_json", `{"jobseeker": [`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewCatalog()
			path := writeQuestionFile(t, tt.content)
			if err := c.LoadFile(path); err == nil {
				t.Fatal("LoadFile accepted a bad file")
			}
			// A rejected file leaves the previous sets in place.
			if len(c.Questions(RoleJobSeeker)) != 5 {
				t.Error("bad file clobbered the previous set")
			}
		})
	}
}
