package tools

import (
	"fmt"
	"os/exec"

	"github.com/lucasnoah/sonataforge/internal/config"
)

// ToolPaths holds resolved absolute paths to the required external CLI
// tools. Constructed once at startup and read-only thereafter.
type ToolPaths struct {
	LilyPond   string
	FluidSynth string
	PDFToPPM   string
	Magick     string
	FFmpeg     string
}

// Discover resolves all external tool paths, preferring explicit overrides
// and falling back to PATH lookup. A missing tool is a startup-time error.
func Discover(ov config.ToolOverrides) (*ToolPaths, error) {
	lily, err := resolve("lilypond", ov.LilyPond)
	if err != nil {
		return nil, err
	}
	fluid, err := resolve("fluidsynth", ov.FluidSynth)
	if err != nil {
		return nil, err
	}
	ppm, err := resolve("pdftoppm", ov.PDFToPPM)
	if err != nil {
		return nil, err
	}
	magick, err := resolve("magick", ov.Magick)
	if err != nil {
		return nil, err
	}
	ffmpeg, err := resolve("ffmpeg", ov.FFmpeg)
	if err != nil {
		return nil, err
	}

	return &ToolPaths{
		LilyPond:   lily,
		FluidSynth: fluid,
		PDFToPPM:   ppm,
		Magick:     magick,
		FFmpeg:     ffmpeg,
	}, nil
}

func resolve(name, override string) (string, error) {
	if override != "" {
		return override, nil
	}
	found, err := exec.LookPath(name)
	if err != nil {
		return "", fmt.Errorf("required tool %q not found on PATH", name)
	}
	return found, nil
}
