package lily

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/lucasnoah/sonataforge/internal/tools"
)

// CompileOutcome is the result of one engraving run: either both output
// artifacts, or the compiler's verbatim diagnostic text. A process that
// could not be launched at all is reported as an error by Compile, never
// folded into Diagnostic.
type CompileOutcome struct {
	OK         bool
	ScorePath  string
	MIDIPath   string
	Diagnostic string
}

// Compiler invokes the LilyPond engraver on a source file.
type Compiler struct {
	Paths  *tools.ToolPaths
	Runner tools.CommandRunner
}

// Compile engraves lyPath into outBase.pdf and outBase.midi (or .mid).
// The tool runs with the source file's directory as working directory so
// LilyPond's own relative includes behave as users expect.
func (c *Compiler) Compile(ctx context.Context, lyPath, outBase string) (CompileOutcome, error) {
	dir := filepath.Dir(lyPath)
	base := filepath.Base(outBase)

	argv := []string{c.Paths.LilyPond, "-o", base, filepath.Base(lyPath)}
	out, err := c.Runner.Run(ctx, dir, argv)
	if err != nil {
		return CompileOutcome{}, fmt.Errorf("lilypond: %w", err)
	}

	if out.ExitCode != 0 {
		diag := out.Combined()
		if diag == "" {
			diag = fmt.Sprintf("lilypond exited with code %d and produced no output", out.ExitCode)
		}
		return CompileOutcome{Diagnostic: diag}, nil
	}

	pdf := filepath.Join(dir, base+".pdf")
	midi := filepath.Join(dir, base+".midi")
	if _, err := os.Stat(midi); err != nil {
		midi = filepath.Join(dir, base+".mid")
	}

	if _, err := os.Stat(pdf); err != nil {
		return CompileOutcome{
			Diagnostic: fmt.Sprintf("lilypond exited 0 but expected PDF not found: %s\n%s", pdf, out.Combined()),
		}, nil
	}
	if _, err := os.Stat(midi); err != nil {
		return CompileOutcome{
			Diagnostic: fmt.Sprintf("lilypond exited 0 but expected MIDI not found: %s\n%s", midi, out.Combined()),
		}, nil
	}

	return CompileOutcome{OK: true, ScorePath: pdf, MIDIPath: midi}, nil
}
