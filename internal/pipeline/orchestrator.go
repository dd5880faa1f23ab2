// Package pipeline owns the end-to-end control flow: generation,
// validation, the bounded compile-repair loop, and the strictly ordered
// rendering stages behind it.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/lucasnoah/sonataforge/internal/config"
	"github.com/lucasnoah/sonataforge/internal/db"
	"github.com/lucasnoah/sonataforge/internal/lily"
	"github.com/lucasnoah/sonataforge/internal/midi"
)

// Orchestrator composes the generation and rendering stages.
type Orchestrator struct {
	gen      Generator
	engraver Engraver
	balance  BalanceFunc
	renderer Renderer
	cfg      config.RenderConfig
	events   *db.DB    // nil = no event log
	progress io.Writer // nil = silent
}

// NewOrchestrator creates an Orchestrator. events may be nil when no run
// history should be recorded.
func NewOrchestrator(
	gen Generator,
	engraver Engraver,
	balance BalanceFunc,
	renderer Renderer,
	cfg config.RenderConfig,
	events *db.DB,
) *Orchestrator {
	return &Orchestrator{
		gen:      gen,
		engraver: engraver,
		balance:  balance,
		renderer: renderer,
		cfg:      cfg,
		events:   events,
	}
}

// SetProgress sets a writer for live progress output (e.g. os.Stderr).
func (o *Orchestrator) SetProgress(w io.Writer) {
	o.progress = w
}

func (o *Orchestrator) logf(format string, args ...interface{}) {
	if o.progress != nil {
		fmt.Fprintf(o.progress, "  → "+format+"\n", args...)
	}
}

func (o *Orchestrator) logEvent(runID, event, stage string, attempt int, detail string) {
	if o.events != nil {
		_ = o.events.LogRunEvent(runID, event, stage, attempt, detail)
	}
}

// RunOpts configures one pipeline run.
type RunOpts struct {
	RunID     string
	MotifText string
	OutDir    string
	Basename  string
	Title     string
	Soundfont string
}

// Run executes the full pipeline. On a post-compile stage failure the
// partial Result is returned alongside the error, so the caller can report
// exactly which artifacts exist.
func (o *Orchestrator) Run(ctx context.Context, opts RunOpts) (*Result, error) {
	result := &Result{RunID: opts.RunID}

	if err := os.MkdirAll(opts.OutDir, 0o755); err != nil {
		return result, fmt.Errorf("create output directory: %w", err)
	}

	// Advisory pre-check of the seed motif: violations are expected (a
	// motif is a fragment, not a full score) and never block generation.
	if seed := lily.Validate(lily.Sanitize(opts.MotifText)); !seed.Passed {
		o.logf("motif pre-check: %d advisory violation(s)", len(seed.Violations))
	}

	o.logEvent(opts.RunID, "created", StageGenerate, 0, "")

	if _, err := o.repairLoop(ctx, opts, result); err != nil {
		o.logEvent(opts.RunID, "aborted", abortStage(err), result.Attempts, err.Error())
		return result, err
	}

	if err := o.renderStages(ctx, opts, result); err != nil {
		o.logEvent(opts.RunID, "stage_failed", result.FailedStage, result.Attempts, err.Error())
		return result, err
	}

	o.logEvent(opts.RunID, "completed", StageVideo, result.Attempts, "")
	return result, nil
}

// abortStage names the stage the repair loop was in when it gave up: a
// transport failure is a generation abort, an exhaustion whose final
// attempt never reached the compiler is a validation abort, everything
// else died at the compiler.
func abortStage(err error) string {
	var genErr *GenerationError
	if errors.As(err, &genErr) {
		return StageGenerate
	}
	var exhausted *RepairExhaustedError
	if errors.As(err, &exhausted) {
		if n := len(exhausted.History); n > 0 && exhausted.History[n-1].FromValidation {
			return StageValidate
		}
	}
	return StageCompile
}

// repairLoop drives Generating → Validating → Compiling, feeding each
// failure's diagnostic back into a bounded number of repair calls. The
// validator and the compiler share one attempt budget: a structurally dead
// candidate consumes an attempt without wasting a compile cycle.
func (o *Orchestrator) repairLoop(ctx context.Context, opts RunOpts, result *Result) (CandidateSource, error) {
	lyPath := filepath.Join(opts.OutDir, opts.Basename+".ly")
	outBase := filepath.Join(opts.OutDir, opts.Basename)
	maxAttempts := o.cfg.MaxCompileFixAttempts

	o.logf("generating LilyPond with %s (reasoning=%s)", o.cfg.Model, o.cfg.ReasoningEffort)
	text, err := o.gen.Generate(ctx, opts.MotifText, opts.Title)
	if err != nil {
		return CandidateSource{}, &GenerationError{Err: err}
	}
	current := CandidateSource{Attempt: 0, Text: lily.Sanitize(text)}

	for {
		// Validating. An invalid candidate is a direct repair trigger;
		// it never reaches the compiler.
		if vr := lily.Validate(current.Text); !vr.Passed {
			diag := vr.Diagnostic()
			o.logf("attempt %d: validation failed (%d violation(s))", current.Attempt, len(vr.Violations))
			result.History = append(result.History, AttemptRecord{
				Attempt:        current.Attempt,
				Source:         current,
				Diagnostic:     diag,
				FromValidation: true,
			})
			o.logEvent(opts.RunID, "validation_failed", StageValidate, current.Attempt, diag)

			next, err := o.repairOrAbort(ctx, opts, result, current, diag, maxAttempts)
			if err != nil {
				return current, err
			}
			current = next
			continue
		}

		// Compiling.
		if err := os.WriteFile(lyPath, []byte(current.Text+"\n"), 0o644); err != nil {
			return current, fmt.Errorf("write %s: %w", lyPath, err)
		}
		result.Artifacts.LilyPond = lyPath

		o.logf("attempt %d: compiling %s", current.Attempt, filepath.Base(lyPath))
		outcome, err := o.engraver.Compile(ctx, lyPath, outBase)
		if err != nil {
			// Launch failure: the compiler never ran, so no repair
			// attempt is consumed and no diagnostic exists to feed back.
			return current, fmt.Errorf("engraver: %w", err)
		}

		if outcome.OK {
			result.Attempts = current.Attempt
			result.History = append(result.History, AttemptRecord{
				Attempt:  current.Attempt,
				Source:   current,
				Compiled: true,
			})
			result.Artifacts.Score = outcome.ScorePath
			result.Artifacts.MIDIRaw = outcome.MIDIPath
			o.logf("compiled on attempt %d: %s, %s",
				current.Attempt, filepath.Base(outcome.ScorePath), filepath.Base(outcome.MIDIPath))
			o.logEvent(opts.RunID, "compiled", StageCompile, current.Attempt, "")
			return current, nil
		}

		o.logf("attempt %d: compile failed", current.Attempt)
		result.History = append(result.History, AttemptRecord{
			Attempt:    current.Attempt,
			Source:     current,
			Diagnostic: outcome.Diagnostic,
		})
		o.logEvent(opts.RunID, "compile_failed", StageCompile, current.Attempt, "")

		next, err := o.repairOrAbort(ctx, opts, result, current, outcome.Diagnostic, maxAttempts)
		if err != nil {
			return current, err
		}
		current = next
	}
}

// repairOrAbort either produces the next candidate via Generator.Repair or
// reports exhaustion. result.Attempts tracks how far the loop got.
func (o *Orchestrator) repairOrAbort(ctx context.Context, opts RunOpts, result *Result, current CandidateSource, diagnostic string, maxAttempts int) (CandidateSource, error) {
	result.Attempts = current.Attempt
	if current.Attempt >= maxAttempts {
		return CandidateSource{}, &RepairExhaustedError{
			MaxAttempts: maxAttempts,
			History:     result.History,
		}
	}

	o.logf("asking model to repair (attempt %d/%d)", current.Attempt+1, maxAttempts)
	o.logEvent(opts.RunID, "repair", StageGenerate, current.Attempt+1, "")

	text, err := o.gen.Repair(ctx, current.Text, diagnostic, opts.Title)
	if err != nil {
		return CandidateSource{}, &GenerationError{Err: err}
	}
	return CandidateSource{Attempt: current.Attempt + 1, Text: lily.Sanitize(text)}, nil
}

// renderStages sequences the post-compile stages strictly in order, each
// gated on its predecessor. A failure stops the chain but keeps every
// artifact already produced.
func (o *Orchestrator) renderStages(ctx context.Context, opts RunOpts, result *Result) error {
	fail := func(stage string, err error) error {
		result.FailedStage = stage
		return &StageFailedError{Stage: stage, Err: err}
	}

	// Balance (optional; a configured skip is not a failure).
	midiForAudio := result.Artifacts.MIDIRaw
	if o.cfg.NoMIDIBalance {
		o.logf("balance: skipped by config; using raw MIDI for audio")
		result.BalanceSkipped = true
	} else {
		mixPath := filepath.Join(opts.OutDir, opts.Basename+"_mix.midi")
		info, err := o.balance(result.Artifacts.MIDIRaw, mixPath, o.cfg.LHScale, o.cfg.RHScale)
		if err != nil {
			return fail(StageBalance, err)
		}
		result.Artifacts.MIDIBalanced = mixPath
		midiForAudio = mixPath
		o.logf("balance: LH ch=%v RH ch=%v (lh=%.2f rh=%.2f)",
			info.Channels(midi.HandLeft), info.Channels(midi.HandRight), o.cfg.LHScale, o.cfg.RHScale)
		o.logEvent(opts.RunID, "stage_completed", StageBalance, result.Attempts, "")
	}
	result.Artifacts.MIDIForAudio = midiForAudio

	// Audio synthesis.
	wavPath := filepath.Join(opts.OutDir, opts.Basename+".wav")
	o.logf("synthesize: %s -> %s", filepath.Base(midiForAudio), filepath.Base(wavPath))
	if err := o.renderer.Synthesize(ctx, midiForAudio, wavPath, opts.Soundfont, o.cfg.SampleRate, o.cfg.SynthGain); err != nil {
		return fail(StageSynthesize, err)
	}
	result.Artifacts.Audio = wavPath
	o.logEvent(opts.RunID, "stage_completed", StageSynthesize, result.Attempts, "")

	// Page rasterization.
	pngPrefix := filepath.Join(opts.OutDir, opts.Basename+"_score")
	o.logf("rasterize: %s at %d dpi", filepath.Base(result.Artifacts.Score), o.cfg.DPI)
	pages, err := o.renderer.Rasterize(ctx, result.Artifacts.Score, pngPrefix, o.cfg.DPI)
	if err != nil {
		return fail(StageRasterize, err)
	}
	result.Artifacts.Pages = pages
	o.logEvent(opts.RunID, "stage_completed", StageRasterize, result.Attempts, "")

	// Contact sheet.
	sheetPath := filepath.Join(opts.OutDir, opts.Basename+"_contact.png")
	o.logf("contact sheet: %d page(s)", len(pages))
	if err := o.renderer.ContactSheet(ctx, pages, sheetPath, o.cfg.MontagePages); err != nil {
		return fail(StageContactSheet, err)
	}
	result.Artifacts.ContactSheet = sheetPath
	o.logEvent(opts.RunID, "stage_completed", StageContactSheet, result.Attempts, "")

	// Video mux.
	mp4Path := filepath.Join(opts.OutDir, opts.Basename+".mp4")
	o.logf("video: %dx%d still-image mux", o.cfg.VideoWidth, o.cfg.VideoHeight)
	if err := o.renderer.MuxVideo(ctx, sheetPath, result.Artifacts.Audio, mp4Path, o.cfg.VideoWidth, o.cfg.VideoHeight); err != nil {
		return fail(StageVideo, err)
	}
	result.Artifacts.Video = mp4Path

	return nil
}
