// Package cli wires the cobra command surface and maps failures onto the
// documented exit codes.
package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/lucasnoah/sonataforge/internal/pipeline"
)

var version = "dev"

// SetVersion records the build version for the version command.
func SetVersion(v string) {
	version = v
}

// Exit codes.
const (
	ExitOK         = 0
	ExitUsage      = 2 // bad arguments or flags
	ExitConfig     = 3 // missing tool, credential, or soundfont at startup
	ExitGeneration = 4 // generation transport failure or repair exhaustion
	ExitRender     = 5 // post-compile rendering stage failure
)

// configError marks a startup-time configuration failure: required tool or
// credential missing. No partial run is attempted.
type configError struct {
	err error
}

func (e *configError) Error() string { return e.err.Error() }
func (e *configError) Unwrap() error { return e.err }

// usageError marks an invalid argument or flag combination.
type usageError struct {
	err error
}

func (e *usageError) Error() string { return e.err.Error() }
func (e *usageError) Unwrap() error { return e.err }

var rootCmd = &cobra.Command{
	Use:   "sonataforge",
	Short: "sonataforge — sonata-form score videos from a LilyPond motif",
	Long: `sonataforge turns a short LilyPond motif into a fully rendered
sonata-form score video: an OpenAI model composes the movement, LilyPond
engraves it to PDF + MIDI with an automatic compile-repair loop, and
fluidsynth, pdftoppm, ImageMagick, and ffmpeg render the final MP4.

Run history is stored in ~/.sonataforge/ (SQLite).`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the CLI and returns the process exit code.
func Execute() int {
	err := rootCmd.Execute()
	if err == nil {
		return ExitOK
	}
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	return exitCode(err)
}

// exitCode maps a command error onto the documented exit codes.
func exitCode(err error) int {
	var (
		usageErr  *usageError
		cfgErr    *configError
		genErr    *pipeline.GenerationError
		exhausted *pipeline.RepairExhaustedError
		stageErr  *pipeline.StageFailedError
	)
	switch {
	case errors.As(err, &cfgErr):
		return ExitConfig
	case errors.As(err, &genErr), errors.As(err, &exhausted):
		return ExitGeneration
	case errors.As(err, &stageErr):
		return ExitRender
	case errors.As(err, &usageErr):
		return ExitUsage
	default:
		// cobra surfaces flag and argument errors directly.
		return ExitUsage
	}
}

func init() {
	rootCmd.AddCommand(renderCmd)
	rootCmd.AddCommand(toolsCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(versionCmd)
}
