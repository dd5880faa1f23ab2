package tools

import (
	"context"
	"fmt"
	"io"
	"os/exec"
	"strings"
)

// RunOutput holds the captured result of one external tool invocation.
type RunOutput struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Combined returns stdout and stderr joined for diagnostic reporting.
func (o RunOutput) Combined() string {
	if o.Stdout == "" {
		return o.Stderr
	}
	if o.Stderr == "" {
		return o.Stdout
	}
	return o.Stdout + "\n" + o.Stderr
}

// LaunchError reports that a tool process could not be started at all.
// It is distinct from a tool running and exiting non-zero.
type LaunchError struct {
	Tool string
	Err  error
}

func (e *LaunchError) Error() string {
	return fmt.Sprintf("launch %s: %v", e.Tool, e.Err)
}

func (e *LaunchError) Unwrap() error { return e.Err }

// CommandRunner abstracts external tool execution for testability.
type CommandRunner interface {
	Run(ctx context.Context, dir string, argv []string) (RunOutput, error)
}

// ExecRunner implements CommandRunner with os/exec. Output is captured;
// when Echo is set, it is additionally streamed live.
type ExecRunner struct {
	Echo io.Writer // nil = capture only
}

func (e *ExecRunner) Run(ctx context.Context, dir string, argv []string) (RunOutput, error) {
	if len(argv) == 0 {
		return RunOutput{ExitCode: -1}, &LaunchError{Tool: "(empty)", Err: fmt.Errorf("empty argv")}
	}

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = dir

	var stdoutBuf, stderrBuf strings.Builder
	if e.Echo != nil {
		fmt.Fprintf(e.Echo, "      $ %s\n", strings.Join(argv, " "))
		cmd.Stdout = io.MultiWriter(&stdoutBuf, e.Echo)
		cmd.Stderr = io.MultiWriter(&stderrBuf, e.Echo)
	} else {
		cmd.Stdout = &stdoutBuf
		cmd.Stderr = &stderrBuf
	}

	err := cmd.Run()
	out := RunOutput{Stdout: stdoutBuf.String(), Stderr: stderrBuf.String()}
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			out.ExitCode = exitErr.ExitCode()
			return out, nil
		}
		out.ExitCode = -1
		return out, &LaunchError{Tool: argv[0], Err: err}
	}
	return out, nil
}
