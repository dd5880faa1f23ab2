package lily

import (
	"strings"
	"testing"
)

func TestEnsureHeaderInsertsAfterVersion(t *testing.T) {
	src := "\\version \"2.24.0\"\n\\score { }\n"
	out := EnsureHeader(src, "My Sonata")

	if !strings.Contains(out, `title = "My Sonata"`) {
		t.Fatalf("missing title: %s", out)
	}
	if !strings.Contains(out, "tagline = ##f") {
		t.Fatalf("missing tagline: %s", out)
	}
	if strings.Index(out, `\version`) > strings.Index(out, `\header`) {
		t.Fatalf("header inserted before \\version: %s", out)
	}
}

func TestEnsureHeaderUpdatesExisting(t *testing.T) {
	src := "\\version \"2.24.0\"\n\\header {\n  title = \"Old\"\n  composer = \"Anon\"\n}\n"
	out := EnsureHeader(src, "New Title")

	if strings.Count(out, `\header`) != 1 {
		t.Fatalf("expected a single header block: %s", out)
	}
	if strings.Contains(out, `"Old"`) {
		t.Fatalf("old title survived: %s", out)
	}
	if !strings.Contains(out, `title = "New Title"`) {
		t.Fatalf("missing new title: %s", out)
	}
	if !strings.Contains(out, `composer = "Anon"`) {
		t.Fatalf("unrelated field dropped: %s", out)
	}
	if !strings.Contains(out, "tagline = ##f") {
		t.Fatalf("missing tagline: %s", out)
	}
}

func TestEnsureHeaderPrependsWithoutVersion(t *testing.T) {
	out := EnsureHeader("\\score { }\n", "T")
	if !strings.HasPrefix(out, `\header`) {
		t.Fatalf("expected header prepended: %s", out)
	}
}

func TestEscapeString(t *testing.T) {
	got := EscapeString(`a "quoted" \path`)
	want := `a \"quoted\" \\path`
	if got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}

func TestEnsureHeaderEscapesTitle(t *testing.T) {
	out := EnsureHeader("\\version \"2.24.0\"\n", `He said "hi"`)
	if !strings.Contains(out, `title = "He said \"hi\""`) {
		t.Fatalf("title not escaped: %s", out)
	}
}
