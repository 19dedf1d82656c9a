package slug

import (
	"strings"
	"testing"
)

func TestGenerate(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"simple", "Tracing in Go", "tracing-in-go"},
		{"accents", "Café Société", "cafe-societe"},
		{"punctuation", "What's new in Go 1.24?", "whats-new-in-go-1-24"},
		{"separators", "path/to_file name", "path-to-file-name"},
		{"repeated hyphens", "a -- b", "a-b"},
		{"trim", "  --hello--  ", "hello"},
		{"non latin", "日本語", ""},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Generate(tt.input); got != tt.want {
				t.Errorf("Generate(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestGenerateLength(t *testing.T) {
	got := Generate(strings.Repeat("word ", 40))
	if len(got) > MaxLength {
		t.Errorf("len = %d, want <= %d", len(got), MaxLength)
	}
	if strings.HasSuffix(got, "-") {
		t.Errorf("slug %q ends with a hyphen", got)
	}
}

func TestFilename(t *testing.T) {
	tests := []struct {
		title, fallback, ext, want string
	}{
		{"Tracing in Go", "abc", "txt", "tracing-in-go.txt"},
		{"日本語", "3f2a9c", ".txt", "3f2a9c.txt"},
		{"", "", "txt", "content.txt"},
	}
	for _, tt := range tests {
		if got := Filename(tt.title, tt.fallback, tt.ext); got != tt.want {
			t.Errorf("Filename(%q, %q, %q) = %q, want %q", tt.title, tt.fallback, tt.ext, got, tt.want)
		}
	}
}
