package cli

import (
	"bytes"
	"strings"
	"testing"

	"github.com/spf13/cobra"

	"github.com/lucasnoah/sonataforge/internal/pipeline"
)

func captureResult(t *testing.T, result *pipeline.Result) string {
	t.Helper()
	var buf bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&buf)
	printResult(cmd, result)
	return buf.String()
}

func TestPrintResultAbortedRunListsArtifacts(t *testing.T) {
	// A repair-loop abort leaves the last candidate .ly on disk with no
	// failed render stage and no video; the report must still name it.
	out := captureResult(t, &pipeline.Result{
		Attempts: 2,
		Artifacts: pipeline.Artifacts{
			LilyPond: "/out/sonata.ly",
		},
	})

	if strings.Contains(out, "No artifacts produced") {
		t.Fatalf("aborted run with a .ly must not report empty: %q", out)
	}
	if !strings.Contains(out, "Run aborted") {
		t.Fatalf("missing abort banner: %q", out)
	}
	if !strings.Contains(out, "/out/sonata.ly") {
		t.Fatalf("missing lilypond artifact: %q", out)
	}
}

func TestPrintResultNothingProduced(t *testing.T) {
	out := captureResult(t, &pipeline.Result{})
	if !strings.Contains(out, "No artifacts produced") {
		t.Fatalf("empty result should report no artifacts: %q", out)
	}
}

func TestPrintResultStageFailureListsPartials(t *testing.T) {
	out := captureResult(t, &pipeline.Result{
		FailedStage: pipeline.StageRasterize,
		Artifacts: pipeline.Artifacts{
			LilyPond: "/out/sonata.ly",
			Score:    "/out/sonata.pdf",
			MIDIRaw:  "/out/sonata.midi",
			Audio:    "/out/sonata.wav",
		},
	})
	if !strings.Contains(out, `stopped at stage "rasterize"`) {
		t.Fatalf("missing stage banner: %q", out)
	}
	for _, p := range []string{"/out/sonata.ly", "/out/sonata.pdf", "/out/sonata.midi", "/out/sonata.wav"} {
		if !strings.Contains(out, p) {
			t.Fatalf("missing artifact %s: %q", p, out)
		}
	}
	if strings.Contains(out, ".mp4") {
		t.Fatalf("absent artifacts must not be listed: %q", out)
	}
}
