package lily

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/lucasnoah/sonataforge/internal/tools"
)

// fakeRunner scripts one external invocation.
type fakeRunner struct {
	calls   [][]string
	out     tools.RunOutput
	err     error
	produce []string // files created in dir before returning
}

func (f *fakeRunner) Run(ctx context.Context, dir string, argv []string) (tools.RunOutput, error) {
	f.calls = append(f.calls, argv)
	for _, name := range f.produce {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			return tools.RunOutput{}, err
		}
	}
	return f.out, f.err
}

func writeLy(t *testing.T) (lyPath, outBase string) {
	t.Helper()
	dir := t.TempDir()
	lyPath = filepath.Join(dir, "sonata.ly")
	if err := os.WriteFile(lyPath, []byte(validSource), 0o644); err != nil {
		t.Fatal(err)
	}
	return lyPath, filepath.Join(dir, "sonata")
}

func TestCompileSuccess(t *testing.T) {
	lyPath, outBase := writeLy(t)
	runner := &fakeRunner{produce: []string{"sonata.pdf", "sonata.midi"}}
	c := &Compiler{Paths: &tools.ToolPaths{LilyPond: "/usr/bin/lilypond"}, Runner: runner}

	outcome, err := c.Compile(context.Background(), lyPath, outBase)
	if err != nil {
		t.Fatal(err)
	}
	if !outcome.OK {
		t.Fatalf("expected success, diagnostic: %s", outcome.Diagnostic)
	}
	if filepath.Base(outcome.ScorePath) != "sonata.pdf" {
		t.Fatalf("unexpected score path %s", outcome.ScorePath)
	}
	if filepath.Base(outcome.MIDIPath) != "sonata.midi" {
		t.Fatalf("unexpected midi path %s", outcome.MIDIPath)
	}
	if len(runner.calls) != 1 {
		t.Fatalf("expected one invocation, got %d", len(runner.calls))
	}
	argv := runner.calls[0]
	if argv[0] != "/usr/bin/lilypond" || argv[1] != "-o" {
		t.Fatalf("unexpected argv %v", argv)
	}
}

func TestCompileFallsBackToMidExtension(t *testing.T) {
	lyPath, outBase := writeLy(t)
	runner := &fakeRunner{produce: []string{"sonata.pdf", "sonata.mid"}}
	c := &Compiler{Paths: &tools.ToolPaths{LilyPond: "lilypond"}, Runner: runner}

	outcome, err := c.Compile(context.Background(), lyPath, outBase)
	if err != nil {
		t.Fatal(err)
	}
	if !outcome.OK || filepath.Base(outcome.MIDIPath) != "sonata.mid" {
		t.Fatalf("expected .mid fallback, got %+v", outcome)
	}
}

func TestCompileFailureCarriesVerbatimDiagnostic(t *testing.T) {
	lyPath, outBase := writeLy(t)
	stderr := "sonata.ly:42:7: error: syntax error, unexpected NOTENAME_PITCH\n"
	runner := &fakeRunner{out: tools.RunOutput{Stderr: stderr, ExitCode: 1}}
	c := &Compiler{Paths: &tools.ToolPaths{LilyPond: "lilypond"}, Runner: runner}

	outcome, err := c.Compile(context.Background(), lyPath, outBase)
	if err != nil {
		t.Fatal(err)
	}
	if outcome.OK {
		t.Fatal("expected failure")
	}
	if !strings.Contains(outcome.Diagnostic, stderr) {
		t.Fatalf("diagnostic not verbatim: %q", outcome.Diagnostic)
	}
}

func TestCompileMissingOutputIsFailureNotSuccess(t *testing.T) {
	lyPath, outBase := writeLy(t)
	runner := &fakeRunner{produce: []string{"sonata.pdf"}} // no MIDI
	c := &Compiler{Paths: &tools.ToolPaths{LilyPond: "lilypond"}, Runner: runner}

	outcome, err := c.Compile(context.Background(), lyPath, outBase)
	if err != nil {
		t.Fatal(err)
	}
	if outcome.OK {
		t.Fatal("expected failure when MIDI missing")
	}
	if !strings.Contains(outcome.Diagnostic, "MIDI not found") {
		t.Fatalf("unexpected diagnostic: %q", outcome.Diagnostic)
	}
}

func TestCompileLaunchErrorIsDistinct(t *testing.T) {
	lyPath, outBase := writeLy(t)
	launch := &tools.LaunchError{Tool: "lilypond", Err: errors.New("no such file")}
	runner := &fakeRunner{err: launch}
	c := &Compiler{Paths: &tools.ToolPaths{LilyPond: "lilypond"}, Runner: runner}

	_, err := c.Compile(context.Background(), lyPath, outBase)
	var le *tools.LaunchError
	if !errors.As(err, &le) {
		t.Fatalf("expected LaunchError, got %v", err)
	}
}
