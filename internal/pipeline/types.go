package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/lucasnoah/sonataforge/internal/lily"
	"github.com/lucasnoah/sonataforge/internal/midi"
)

// Stage names, in execution order.
const (
	StageGenerate     = "generate"
	StageValidate     = "validate"
	StageCompile      = "compile"
	StageBalance      = "balance"
	StageSynthesize   = "synthesize"
	StageRasterize    = "rasterize"
	StageContactSheet = "contact_sheet"
	StageVideo        = "video"
)

// Generator produces and repairs LilyPond source. Generate is the first
// call with no diagnostic input; Repair always receives the immediately
// preceding candidate and the most recent diagnostic, never an older one.
type Generator interface {
	Generate(ctx context.Context, motif, title string) (string, error)
	Repair(ctx context.Context, brokenSource, diagnostic, title string) (string, error)
}

// Engraver compiles a LilyPond file to a score PDF and a MIDI file. The
// returned error is reserved for launch failures; a compiler that ran and
// failed is reported inside the CompileOutcome.
type Engraver interface {
	Compile(ctx context.Context, lyPath, outBase string) (lily.CompileOutcome, error)
}

// BalanceFunc adjusts note velocities from inPath into outPath.
type BalanceFunc func(inPath, outPath string, lhScale, rhScale float64) (midi.BalanceInfo, error)

// Renderer runs the post-compile rendering stages.
type Renderer interface {
	Synthesize(ctx context.Context, midiPath, wavPath, soundfont string, sampleRate int, gain float64) error
	Rasterize(ctx context.Context, pdfPath, pngPrefix string, dpi int) ([]string, error)
	ContactSheet(ctx context.Context, pages []string, outPNG string, maxPages int) error
	MuxVideo(ctx context.Context, imagePath, wavPath, mp4Path string, width, height int) error
}

// CandidateSource is one generated or repaired LilyPond source, tagged with
// its provenance. Attempt 0 is the initial generation; each repair produces
// a new candidate, never a mutation of the previous one.
type CandidateSource struct {
	Attempt int
	Text    string
}

// AttemptRecord captures the outcome of one candidate: the source, whether
// it compiled, and on failure the diagnostic that sank it plus whether the
// failure came from structural validation (no compile cycle spent) or from
// the compiler. The full sequence is retained even though only the latest
// record matters for control flow.
type AttemptRecord struct {
	Attempt        int
	Source         CandidateSource
	Compiled       bool
	Diagnostic     string
	FromValidation bool
}

// Artifacts maps each output kind to its file path; empty means the stage
// that produces it never completed.
type Artifacts struct {
	LilyPond     string
	Score        string
	MIDIRaw      string
	MIDIBalanced string
	MIDIForAudio string
	Audio        string
	Pages        []string
	ContactSheet string
	Video        string
}

// Any reports whether at least one artifact was produced.
func (a Artifacts) Any() bool {
	return a.LilyPond != "" || a.Score != "" || a.MIDIRaw != "" ||
		a.MIDIBalanced != "" || a.MIDIForAudio != "" || a.Audio != "" ||
		len(a.Pages) > 0 || a.ContactSheet != "" || a.Video != ""
}

// Result is the final aggregate of a pipeline run. Artifacts produced
// before a failure are always reported, never dropped.
type Result struct {
	RunID          string
	Attempts       int // compile-repair attempts used; 0 = first try
	History        []AttemptRecord
	Artifacts      Artifacts
	BalanceSkipped bool
	FailedStage    string // "" when every stage completed
}

// GenerationError reports a transport/provider failure of the generation or
// repair call itself, after any transport retries were spent. It is fatal
// for the run.
type GenerationError struct {
	Err error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generation failed: %v", e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// RepairExhaustedError reports that the repair budget ran out. It carries
// the full attempt history; the final diagnostic is preserved verbatim.
type RepairExhaustedError struct {
	MaxAttempts int
	History     []AttemptRecord
}

func (e *RepairExhaustedError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "compile repair exhausted after %d attempt(s)", len(e.History))
	if last := e.LastDiagnostic(); last != "" {
		fmt.Fprintf(&b, "\n\nFinal diagnostic:\n%s", last)
	}
	return b.String()
}

// LastDiagnostic returns the most recent attempt's diagnostic text.
func (e *RepairExhaustedError) LastDiagnostic() string {
	if len(e.History) == 0 {
		return ""
	}
	return e.History[len(e.History)-1].Diagnostic
}

// StageFailedError reports a post-compile stage failure. Earlier artifacts
// stay in place; later stages never ran.
type StageFailedError struct {
	Stage string
	Err   error
}

func (e *StageFailedError) Error() string {
	return fmt.Sprintf("stage %s failed: %v", e.Stage, e.Err)
}

func (e *StageFailedError) Unwrap() error { return e.Err }
