package cli

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/lucasnoah/sonataforge/internal/config"
	"github.com/lucasnoah/sonataforge/internal/db"
	"github.com/lucasnoah/sonataforge/internal/gen"
	"github.com/lucasnoah/sonataforge/internal/lily"
	"github.com/lucasnoah/sonataforge/internal/midi"
	"github.com/lucasnoah/sonataforge/internal/pipeline"
	"github.com/lucasnoah/sonataforge/internal/render"
	"github.com/lucasnoah/sonataforge/internal/tools"
)

var renderFlags struct {
	configPath string
	outDir     string
	name       string
	title      string
	soundfont  string
	verbose    bool

	noMIDIBalance bool
	lhScale       float64
	rhScale       float64
	gain          float64

	model          string
	reasoning      string
	dpi            int
	sampleRate     int
	montagePages   int
	videoWidth     int
	videoHeight    int
	maxFixAttempts int

	lilypond   string
	fluidsynth string
	pdftoppm   string
	magick     string
	ffmpeg     string
}

var renderCmd = &cobra.Command{
	Use:   "render <motif.ly>",
	Short: "Generate and render a sonata-form movement from a motif",
	Args:  cobra.ExactArgs(1),
	RunE:  runRender,
}

func init() {
	f := renderCmd.Flags()
	f.StringVar(&renderFlags.configPath, "config", "", "path to a sonataforge.yaml (default: search standard locations)")
	f.StringVarP(&renderFlags.outDir, "out", "o", "out_sonata", "output directory")
	f.StringVar(&renderFlags.name, "name", "sonata", "base filename for outputs (foo -> foo.ly/.pdf/.midi/.wav/.mp4)")
	f.StringVar(&renderFlags.title, "title", "", "score title placed in the LilyPond header (default: --name)")
	f.StringVar(&renderFlags.soundfont, "soundfont", "", "path to a .sf2 SoundFont (or set SOUNDFONT_PATH)")
	f.BoolVar(&renderFlags.verbose, "verbose", false, "stream external tool output live")

	f.BoolVar(&renderFlags.noMIDIBalance, "no-midi-balance", false, "disable MIDI velocity balancing")
	f.Float64Var(&renderFlags.lhScale, "lh-scale", 0, "scale factor for LH velocities (smaller = softer LH)")
	f.Float64Var(&renderFlags.rhScale, "rh-scale", 0, "scale factor for RH velocities (larger = louder RH)")
	f.Float64Var(&renderFlags.gain, "gain", 0, "fluidsynth global gain (-g); lower if clipping")

	f.StringVar(&renderFlags.model, "model", "", "model identity for generation")
	f.StringVar(&renderFlags.reasoning, "reasoning", "", "reasoning effort: none|minimal|low|medium|high")
	f.IntVar(&renderFlags.dpi, "dpi", 0, "rasterization DPI")
	f.IntVar(&renderFlags.sampleRate, "sample-rate", 0, "audio sample rate")
	f.IntVar(&renderFlags.montagePages, "montage-pages", 0, "pages in the contact sheet")
	f.IntVar(&renderFlags.videoWidth, "video-width", 0, "video width")
	f.IntVar(&renderFlags.videoHeight, "video-height", 0, "video height")
	f.IntVar(&renderFlags.maxFixAttempts, "max-fix-attempts", -1, "max compile-repair attempts (0 disables repair)")

	f.StringVar(&renderFlags.lilypond, "lilypond", "", "path to lilypond")
	f.StringVar(&renderFlags.fluidsynth, "fluidsynth", "", "path to fluidsynth")
	f.StringVar(&renderFlags.pdftoppm, "pdftoppm", "", "path to pdftoppm")
	f.StringVar(&renderFlags.magick, "magick", "", "path to magick")
	f.StringVar(&renderFlags.ffmpeg, "ffmpeg", "", "path to ffmpeg")
}

// buildConfig merges the config file, defaults, and explicit flags.
func buildConfig() (*config.File, error) {
	var cf *config.File
	var err error
	if renderFlags.configPath != "" {
		cf, err = config.Load(renderFlags.configPath)
	} else {
		cf, err = config.LoadDefault()
	}
	if err != nil {
		return nil, &configError{err: err}
	}

	rc := &cf.Render
	if renderFlags.model != "" {
		rc.Model = renderFlags.model
	}
	if renderFlags.reasoning != "" {
		rc.ReasoningEffort = renderFlags.reasoning
	}
	if renderFlags.dpi > 0 {
		rc.DPI = renderFlags.dpi
	}
	if renderFlags.sampleRate > 0 {
		rc.SampleRate = renderFlags.sampleRate
	}
	if renderFlags.montagePages > 0 {
		rc.MontagePages = renderFlags.montagePages
	}
	if renderFlags.videoWidth > 0 {
		rc.VideoWidth = renderFlags.videoWidth
	}
	if renderFlags.videoHeight > 0 {
		rc.VideoHeight = renderFlags.videoHeight
	}
	if renderFlags.maxFixAttempts >= 0 {
		rc.MaxCompileFixAttempts = renderFlags.maxFixAttempts
	}
	if renderFlags.lhScale != 0 {
		rc.LHScale = renderFlags.lhScale
	}
	if renderFlags.rhScale != 0 {
		rc.RHScale = renderFlags.rhScale
	}
	if renderFlags.gain != 0 {
		rc.SynthGain = renderFlags.gain
	}
	if renderFlags.noMIDIBalance {
		rc.NoMIDIBalance = true
	}

	if renderFlags.lilypond != "" {
		cf.Tools.LilyPond = renderFlags.lilypond
	}
	if renderFlags.fluidsynth != "" {
		cf.Tools.FluidSynth = renderFlags.fluidsynth
	}
	if renderFlags.pdftoppm != "" {
		cf.Tools.PDFToPPM = renderFlags.pdftoppm
	}
	if renderFlags.magick != "" {
		cf.Tools.Magick = renderFlags.magick
	}
	if renderFlags.ffmpeg != "" {
		cf.Tools.FFmpeg = renderFlags.ffmpeg
	}

	if errs := config.Validate(rc); len(errs) > 0 {
		return nil, &usageError{err: fmt.Errorf("invalid configuration: %v", errs[0])}
	}
	return cf, nil
}

func runRender(cmd *cobra.Command, args []string) error {
	// Best effort: a missing .env is not an error.
	_ = godotenv.Load()

	basename, err := config.ValidateBasename(renderFlags.name)
	if err != nil {
		return &usageError{err: err}
	}

	cf, err := buildConfig()
	if err != nil {
		return err
	}

	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return &configError{err: fmt.Errorf("OPENAI_API_KEY is not set")}
	}

	soundfont := renderFlags.soundfont
	if soundfont == "" {
		soundfont = os.Getenv("SOUNDFONT_PATH")
	}
	if soundfont == "" {
		return &configError{err: fmt.Errorf("--soundfont is required (or set SOUNDFONT_PATH)")}
	}
	if _, err := os.Stat(soundfont); err != nil {
		return &configError{err: fmt.Errorf("soundfont not found: %s", soundfont)}
	}

	paths, err := tools.Discover(cf.Tools)
	if err != nil {
		return &configError{err: err}
	}

	motifBytes, err := os.ReadFile(args[0])
	if err != nil {
		return &usageError{err: fmt.Errorf("read motif: %w", err)}
	}

	title := renderFlags.title
	if title == "" {
		title = basename
	}

	// Run history is best effort; a broken event log never blocks a render.
	var events *db.DB
	if dbPath, err := db.DefaultDBPath(); err == nil {
		if d, err := db.Open(dbPath); err == nil {
			if err := d.Migrate(); err == nil {
				events = d
				defer d.Close()
			} else {
				d.Close()
			}
		}
	}

	runner := &tools.ExecRunner{}
	if renderFlags.verbose {
		runner.Echo = cmd.ErrOrStderr()
	}

	orch := pipeline.NewOrchestrator(
		gen.NewClient(apiKey, cf.Render),
		&lily.Compiler{Paths: paths, Runner: runner},
		midi.BalanceFile,
		&render.Renderer{Paths: paths, Runner: runner},
		cf.Render,
		events,
	)
	orch.SetProgress(cmd.ErrOrStderr())

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	result, err := orch.Run(ctx, pipeline.RunOpts{
		RunID:     uuid.NewString(),
		MotifText: string(motifBytes),
		OutDir:    renderFlags.outDir,
		Basename:  basename,
		Title:     title,
		Soundfont: soundfont,
	})

	printResult(cmd, result)
	return err
}

// printResult reports exactly which artifacts exist, success or not.
func printResult(cmd *cobra.Command, result *pipeline.Result) {
	if result == nil {
		return
	}
	w := cmd.OutOrStdout()

	if result.FailedStage != "" {
		fmt.Fprintf(w, "\nPipeline stopped at stage %q. Artifacts produced so far:\n", result.FailedStage)
	} else if result.Artifacts.Video != "" {
		fmt.Fprintf(w, "\nSuccess (compile attempts used: %d). Outputs:\n", result.Attempts)
	} else if result.Artifacts.Any() {
		// Aborted in the repair loop: the last candidate .ly is still on
		// disk and belongs in the report.
		fmt.Fprintln(w, "\nRun aborted. Artifacts produced so far:")
	} else {
		fmt.Fprintln(w, "\nNo artifacts produced.")
		return
	}

	printArtifact(w, "lilypond", result.Artifacts.LilyPond)
	printArtifact(w, "pdf", result.Artifacts.Score)
	printArtifact(w, "midi_raw", result.Artifacts.MIDIRaw)
	if result.BalanceSkipped {
		fmt.Fprintf(w, "  %-14s (skipped)\n", "midi_mix")
	} else {
		printArtifact(w, "midi_mix", result.Artifacts.MIDIBalanced)
	}
	printArtifact(w, "midi_for_wav", result.Artifacts.MIDIForAudio)
	printArtifact(w, "wav", result.Artifacts.Audio)
	for _, p := range result.Artifacts.Pages {
		printArtifact(w, "page", p)
	}
	printArtifact(w, "contact_sheet", result.Artifacts.ContactSheet)
	printArtifact(w, "mp4", result.Artifacts.Video)
}

func printArtifact(w io.Writer, name, path string) {
	if path != "" {
		fmt.Fprintf(w, "  %-14s -> %s\n", name, path)
	}
}
