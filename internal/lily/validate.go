// Package lily handles LilyPond source hygiene: sanitizing model output,
// structural validation, header injection, and compilation to PDF + MIDI.
package lily

import (
	"regexp"
	"strings"
)

// ValidationResult reports whether a candidate source meets the structural
// requirements, with one violation string per failed rule, in check order.
type ValidationResult struct {
	Passed     bool
	Violations []string
}

// Diagnostic renders the violation list as synthetic compiler-style
// diagnostic text for the repair loop.
func (v ValidationResult) Diagnostic() string {
	return "LilyPond validation failed:\n- " + strings.Join(v.Violations, "\n- ")
}

var (
	openFenceRe  = regexp.MustCompile("^```(?:lilypond)?\\s*")
	closeFenceRe = regexp.MustCompile("\\s*```$")
)

// Sanitize strips surrounding markdown code fences and whitespace from
// model-generated LilyPond source. It is applied before every validation
// pass, so fence-wrapping is transparent to validation.
func Sanitize(text string) string {
	t := strings.TrimSpace(text)
	t = openFenceRe.ReplaceAllString(t, "")
	t = closeFenceRe.ReplaceAllString(t, "")
	return strings.TrimSpace(t)
}

// Validate checks that LilyPond source meets the structural requirements:
// absolute pitch mode, required blocks, and octave-check anchors. A
// structurally invalid candidate is never worth a compile cycle.
func Validate(src string) ValidationResult {
	var violations []string

	if strings.Contains(src, `\relative`) {
		violations = append(violations, `Forbidden: found \relative (must use absolute pitches).`)
	}
	if !strings.Contains(src, `\version`) {
		violations = append(violations, `Missing \version declaration.`)
	}
	if !strings.Contains(src, `\octaveCheck`) {
		violations = append(violations, `Missing \octaveCheck anchors.`)
	}
	if !strings.Contains(src, `\new PianoStaff`) {
		violations = append(violations, `Missing \new PianoStaff.`)
	}
	if !strings.Contains(src, `\midi`) {
		violations = append(violations, `Missing \midi block.`)
	}
	if !strings.Contains(src, `\layout`) {
		violations = append(violations, `Missing \layout block.`)
	}

	return ValidationResult{Passed: len(violations) == 0, Violations: violations}
}
