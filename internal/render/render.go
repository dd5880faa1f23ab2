// Package render wraps the external rendering tools — fluidsynth, pdftoppm,
// ImageMagick, ffmpeg — as one stage function per tool. Process mechanics
// live here; sequencing and failure policy belong to the pipeline.
package render

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"

	"github.com/lucasnoah/sonataforge/internal/tools"
)

// Renderer executes the post-compile rendering stages.
type Renderer struct {
	Paths  *tools.ToolPaths
	Runner tools.CommandRunner
}

// StageError reports a rendering tool that ran and failed, carrying its
// verbatim output.
type StageError struct {
	Tool       string
	Diagnostic string
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s failed:\n%s", e.Tool, e.Diagnostic)
}

// Synthesize renders a MIDI file to WAV through fluidsynth.
func (r *Renderer) Synthesize(ctx context.Context, midiPath, wavPath, soundfont string, sampleRate int, gain float64) error {
	if _, err := os.Stat(soundfont); err != nil {
		return fmt.Errorf("soundfont not found: %s", soundfont)
	}

	argv := []string{
		r.Paths.FluidSynth,
		"-ni",
		"-r", strconv.Itoa(sampleRate),
		"-g", strconv.FormatFloat(gain, 'f', -1, 64),
		"-F", wavPath,
		soundfont,
		midiPath,
	}
	out, err := r.Runner.Run(ctx, "", argv)
	if err != nil {
		return fmt.Errorf("fluidsynth: %w", err)
	}
	if out.ExitCode != 0 {
		return &StageError{Tool: "fluidsynth", Diagnostic: out.Combined()}
	}
	return nil
}

var pageNumRe = regexp.MustCompile(`-(\d+)\.png$`)

// Rasterize converts a PDF to numbered PNG pages with pdftoppm, returning
// the page paths in page order.
func (r *Renderer) Rasterize(ctx context.Context, pdfPath, pngPrefix string, dpi int) ([]string, error) {
	dir := filepath.Dir(pngPrefix)

	argv := []string{
		r.Paths.PDFToPPM,
		"-png",
		"-rx", strconv.Itoa(dpi),
		"-ry", strconv.Itoa(dpi),
		pdfPath,
		pngPrefix,
	}
	out, err := r.Runner.Run(ctx, dir, argv)
	if err != nil {
		return nil, fmt.Errorf("pdftoppm: %w", err)
	}
	if out.ExitCode != 0 {
		return nil, &StageError{Tool: "pdftoppm", Diagnostic: out.Combined()}
	}

	pattern := filepath.Base(pngPrefix) + "-*.png"
	matches, err := filepath.Glob(filepath.Join(dir, pattern))
	if err != nil {
		return nil, fmt.Errorf("glob pages: %w", err)
	}
	if len(matches) == 0 {
		return nil, &StageError{
			Tool:       "pdftoppm",
			Diagnostic: fmt.Sprintf("no PNG pages found matching %s in %s\n%s", pattern, dir, out.Combined()),
		}
	}

	sort.Slice(matches, func(i, j int) bool {
		return pageNumber(matches[i]) < pageNumber(matches[j])
	})
	return matches, nil
}

func pageNumber(path string) int {
	m := pageNumRe.FindStringSubmatch(path)
	if m == nil {
		return 0
	}
	n, _ := strconv.Atoi(m[1])
	return n
}

// ContactSheet assembles the first maxPages rasterized pages into a single
// horizontal strip with ImageMagick.
func (r *Renderer) ContactSheet(ctx context.Context, pages []string, outPNG string, maxPages int) error {
	if maxPages < 1 {
		maxPages = 1
	}
	chosen := pages
	if len(chosen) > maxPages {
		chosen = chosen[:maxPages]
	}

	argv := append([]string{r.Paths.Magick}, chosen...)
	argv = append(argv, "+append", outPNG)

	out, err := r.Runner.Run(ctx, "", argv)
	if err != nil {
		return fmt.Errorf("magick: %w", err)
	}
	if out.ExitCode != 0 {
		return &StageError{Tool: "magick", Diagnostic: out.Combined()}
	}
	if _, err := os.Stat(outPNG); err != nil {
		return &StageError{Tool: "magick", Diagnostic: fmt.Sprintf("contact sheet not created: %s", outPNG)}
	}
	return nil
}

// MuxVideo builds a still-image MP4 from the contact sheet and the rendered
// audio with ffmpeg.
func (r *Renderer) MuxVideo(ctx context.Context, imagePath, wavPath, mp4Path string, width, height int) error {
	vf := fmt.Sprintf("scale=%d:-2,pad=%d:%d:(ow-iw)/2:(oh-ih)/2", width, width, height)

	argv := []string{
		r.Paths.FFmpeg,
		"-y",
		"-loop", "1",
		"-i", imagePath,
		"-i", wavPath,
		"-vf", vf,
		"-c:v", "libx264",
		"-tune", "stillimage",
		"-pix_fmt", "yuv420p",
		"-c:a", "aac",
		"-shortest",
		mp4Path,
	}
	out, err := r.Runner.Run(ctx, "", argv)
	if err != nil {
		return fmt.Errorf("ffmpeg: %w", err)
	}
	if out.ExitCode != 0 {
		return &StageError{Tool: "ffmpeg", Diagnostic: out.Combined()}
	}
	return nil
}
