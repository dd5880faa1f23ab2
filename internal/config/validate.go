package config

import (
	"fmt"
	"regexp"
)

// ValidationError represents a single validation issue with a config.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// recognizedEfforts is the set of reasoning effort levels the provider accepts.
var recognizedEfforts = map[string]bool{
	"none":    true,
	"minimal": true,
	"low":     true,
	"medium":  true,
	"high":    true,
}

var basenameRe = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

// ValidateBasename checks an output basename: no path separators, no
// leading dot, restricted charset. Returns the name unchanged when valid.
func ValidateBasename(name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("output base name must not be empty")
	}
	if name[0] == '.' {
		return "", fmt.Errorf("output base name must not start with '.'")
	}
	if !basenameRe.MatchString(name) {
		return "", fmt.Errorf("output base name %q contains unsupported characters", name)
	}
	return name, nil
}

// Validate checks a RenderConfig for semantic errors. It returns a slice
// of all validation errors found (empty if valid).
func Validate(rc *RenderConfig) []ValidationError {
	var errs []ValidationError

	if rc.Model == "" {
		errs = append(errs, ValidationError{Field: "render.model", Message: "is required"})
	}
	if !recognizedEfforts[rc.ReasoningEffort] {
		errs = append(errs, ValidationError{
			Field:   "render.reasoning_effort",
			Message: fmt.Sprintf("unknown level %q (want none|minimal|low|medium|high)", rc.ReasoningEffort),
		})
	}
	if rc.LHScale <= 0 {
		errs = append(errs, ValidationError{Field: "render.lh_scale", Message: "must be > 0"})
	}
	if rc.RHScale <= 0 {
		errs = append(errs, ValidationError{Field: "render.rh_scale", Message: "must be > 0"})
	}
	if rc.SynthGain < 0.05 || rc.SynthGain > 5.0 {
		errs = append(errs, ValidationError{Field: "render.synth_gain", Message: "is out of a sane range (try 0.3-1.0)"})
	}
	if rc.MaxCompileFixAttempts < 0 {
		errs = append(errs, ValidationError{Field: "render.max_compile_fix_attempts", Message: "must be >= 0"})
	}
	if rc.DPI <= 0 {
		errs = append(errs, ValidationError{Field: "render.dpi", Message: "must be > 0"})
	}
	if rc.SampleRate <= 0 {
		errs = append(errs, ValidationError{Field: "render.sample_rate", Message: "must be > 0"})
	}

	return errs
}
