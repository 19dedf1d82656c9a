package urlnorm

import (
	"errors"
	"testing"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"tracking removed and sorted", "https://example.com/a?utm_source=tw&z=3&a=1", "https://example.com/a?a=1&z=3"},
		{"sorted on root", "https://example.com/?z=3&a=1&m=2", "https://example.com/?a=1&m=2&z=3"},
		{"query keeps slash", "https://example.com/post/?z=3&utm_source=tw&a=1#top", "https://example.com/post/?a=1&z=3"},
		{"trailing slash and fragment", "https://example.com/article/#top", "https://example.com/article"},
		{"empty fragment", "https://example.com/article#", "https://example.com/article"},
		{"only tracking params", "https://example.com/a?utm_source=x&utm_medium=y&utm_campaign=z&utm_term=t&utm_content=c", "https://example.com/a"},
		{"bare host gets root", "https://example.com", "https://example.com/"},
		{"root kept", "https://example.com/", "https://example.com/"},
		{"host lowercased", "https://EXAMPLE.com/Path", "https://example.com/Path"},
		{"default port dropped", "https://example.com:443/a", "https://example.com/a"},
		{"custom port kept", "http://example.com:8080/a/", "http://example.com:8080/a"},
		{"repeated keys keep order", "https://example.com/?b=2&a=2&a=1", "https://example.com/?a=2&a=1&b=2"},
		{"non tracking utm kept", "https://example.com/?utm_id=5", "https://example.com/?utm_id=5"},
		{"parent segment resolved", "https://example.com/a/../b", "https://example.com/b"},
		{"current segment resolved", "https://example.com/./b", "https://example.com/b"},
		{"trailing parent segment", "https://example.com/a/b/..", "https://example.com/a"},
		{"parent above root", "https://example.com/../../b", "https://example.com/b"},
		{"dot segments with query", "https://example.com/a/./c/../d?y=2&x=1", "https://example.com/a/d?x=1&y=2"},
		{"dotted names untouched", "https://example.com/v1.2/..a/file.txt", "https://example.com/v1.2/..a/file.txt"},
		{"dot segments to root", "https://example.com/a/..", "https://example.com/"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Normalize(tt.in)
			if err != nil {
				t.Fatalf("Normalize(%q) error: %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{
		"https://example.com/a?utm_source=tw&z=3&a=1",
		"https://example.com/article/#top",
		"https://example.com/post/?z=3&a=1",
		"https://example.com",
		"http://example.com/search?q=hello+world&lang=ja",
		"https://example.com/%E6%97%A5%E6%9C%AC/",
		"https://example.com/a/b/../c/./",
	}
	for _, in := range inputs {
		once, err := Normalize(in)
		if err != nil {
			t.Fatalf("Normalize(%q) error: %v", in, err)
		}
		twice, err := Normalize(once)
		if err != nil {
			t.Fatalf("Normalize(%q) error: %v", once, err)
		}
		if once != twice {
			t.Errorf("not idempotent: %q -> %q -> %q", in, once, twice)
		}
	}
}

func TestHashInvariance(t *testing.T) {
	base, err := Hash("https://example.com/a?x=1&y=2")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}

	variants := []string{
		"https://example.com/a?y=2&x=1",
		"https://example.com/a?x=1&utm_source=tw&y=2",
		"https://example.com/a?x=1&y=2#section",
		"https://example.com/a?utm_campaign=c&y=2&x=1#other",
	}
	for _, v := range variants {
		h, err := Hash(v)
		if err != nil {
			t.Fatalf("Hash(%q) error: %v", v, err)
		}
		if h != base {
			t.Errorf("Hash(%q) = %s, want %s", v, h, base)
		}
	}

	dotted, err := Hash("https://example.com/b/c")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}
	for _, v := range []string{
		"https://example.com/b/x/../c",
		"https://example.com/./b/c",
		"https://example.com/b/c/d/..",
		"https://example.com/b/./c/",
	} {
		h, err := Hash(v)
		if err != nil {
			t.Fatalf("Hash(%q) error: %v", v, err)
		}
		if h != dotted {
			t.Errorf("Hash(%q) = %s, want %s", v, h, dotted)
		}
	}

	other, _ := Hash("https://example.com/b?x=1&y=2")
	if other == base {
		t.Error("different canonical URLs produced the same hash")
	}
}

func TestHashTrackingOnly(t *testing.T) {
	a, _ := Hash("https://example.com/a?utm_source=tw")
	b, _ := Hash("https://example.com/a")
	if a != b {
		t.Errorf("hash mismatch: %s != %s", a, b)
	}
	if len(a) != 64 {
		t.Errorf("hash length = %d, want 64", len(a))
	}
	for _, c := range a {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			t.Fatalf("hash %q is not lowercase hex", a)
		}
	}
}

func TestNormalizeInvalid(t *testing.T) {
	for _, in := range []string{"", "not a url", "/relative/path", "example.com/a", "http://%zz"} {
		if _, err := Normalize(in); !errors.Is(err, ErrInvalidURL) {
			t.Errorf("Normalize(%q) error = %v, want ErrInvalidURL", in, err)
		}
	}
}
