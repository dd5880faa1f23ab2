package tools

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestExecRunnerCapturesOutput(t *testing.T) {
	r := &ExecRunner{}
	out, err := r.Run(context.Background(), "", []string{"sh", "-c", "echo hello; echo oops >&2"})
	if err != nil {
		t.Fatal(err)
	}
	if out.ExitCode != 0 {
		t.Fatalf("exit code: %d", out.ExitCode)
	}
	if strings.TrimSpace(out.Stdout) != "hello" {
		t.Fatalf("stdout: %q", out.Stdout)
	}
	if strings.TrimSpace(out.Stderr) != "oops" {
		t.Fatalf("stderr: %q", out.Stderr)
	}
}

func TestExecRunnerNonZeroExitIsNotAnError(t *testing.T) {
	r := &ExecRunner{}
	out, err := r.Run(context.Background(), "", []string{"sh", "-c", "exit 3"})
	if err != nil {
		t.Fatalf("non-zero exit must not be a launch error: %v", err)
	}
	if out.ExitCode != 3 {
		t.Fatalf("exit code: %d", out.ExitCode)
	}
}

func TestExecRunnerLaunchError(t *testing.T) {
	r := &ExecRunner{}
	_, err := r.Run(context.Background(), "", []string{"/definitely/not/a/binary"})
	var le *LaunchError
	if !errors.As(err, &le) {
		t.Fatalf("expected LaunchError, got %v", err)
	}
}

func TestCombined(t *testing.T) {
	tests := []struct {
		out  RunOutput
		want string
	}{
		{RunOutput{Stdout: "a", Stderr: "b"}, "a\nb"},
		{RunOutput{Stdout: "a"}, "a"},
		{RunOutput{Stderr: "b"}, "b"},
		{RunOutput{}, ""},
	}
	for _, tt := range tests {
		if got := tt.out.Combined(); got != tt.want {
			t.Errorf("Combined(%+v) = %q, want %q", tt.out, got, tt.want)
		}
	}
}

func TestDiscoverUsesOverrides(t *testing.T) {
	// With every path overridden, no PATH lookup happens and discovery
	// succeeds even on machines without the tools installed.
	paths, err := discoverAllOverridden()
	if err != nil {
		t.Fatal(err)
	}
	if paths.LilyPond != "/x/lilypond" || paths.FFmpeg != "/x/ffmpeg" {
		t.Fatalf("overrides not honored: %+v", paths)
	}
}
