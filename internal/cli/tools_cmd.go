package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lucasnoah/sonataforge/internal/config"
	"github.com/lucasnoah/sonataforge/internal/tools"
)

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "Resolve and print the external tool paths",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cf, err := config.LoadDefault()
		if err != nil {
			return &configError{err: err}
		}

		paths, err := tools.Discover(cf.Tools)
		if err != nil {
			return &configError{err: err}
		}

		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "%-12s %s\n", "lilypond", paths.LilyPond)
		fmt.Fprintf(w, "%-12s %s\n", "fluidsynth", paths.FluidSynth)
		fmt.Fprintf(w, "%-12s %s\n", "pdftoppm", paths.PDFToPPM)
		fmt.Fprintf(w, "%-12s %s\n", "magick", paths.Magick)
		fmt.Fprintf(w, "%-12s %s\n", "ffmpeg", paths.FFmpeg)
		return nil
	},
}
