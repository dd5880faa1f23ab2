package gen

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/openai/openai-go/responses"
	"github.com/openai/openai-go/shared"
)

const modelOutput = `\version "2.24.0"
\score { \new PianoStaff << >> \layout { } \midi { } }`

// fakeCall scripts successive model round trips.
type fakeCall struct {
	outputs []string
	errs    []error
	calls   int
	prompts []string
}

func (f *fakeCall) call(ctx context.Context, prompt string) (string, error) {
	i := f.calls
	f.calls++
	f.prompts = append(f.prompts, prompt)
	if i < len(f.errs) && f.errs[i] != nil {
		return "", f.errs[i]
	}
	if i < len(f.outputs) {
		return f.outputs[i], nil
	}
	return "", errors.New("unexpected call")
}

func testClient(tries int, f *fakeCall) *Client {
	return &Client{model: "gpt-5.2", tries: tries, call: f.call}
}

func TestGenerateRetriesTransportFailure(t *testing.T) {
	f := &fakeCall{
		errs:    []error{errors.New("connection reset"), nil},
		outputs: []string{"", modelOutput},
	}
	c := testClient(2, f)

	out, err := c.Generate(context.Background(), `\key g \major \time 2/4 d4`, "Sonata")
	if err != nil {
		t.Fatal(err)
	}
	if f.calls != 2 {
		t.Fatalf("calls: got %d, want 2", f.calls)
	}
	if !strings.Contains(out, `title = "Sonata"`) {
		t.Fatalf("header not injected: %s", out)
	}
}

func TestGenerateExhaustsTries(t *testing.T) {
	f := &fakeCall{errs: []error{errors.New("timeout"), errors.New("provider 500")}}
	c := testClient(2, f)

	_, err := c.Generate(context.Background(), "d4", "T")
	if err == nil {
		t.Fatal("expected error")
	}
	if f.calls != 2 {
		t.Fatalf("calls: got %d, want 2", f.calls)
	}
	if !strings.Contains(err.Error(), "provider 500") {
		t.Fatalf("last error must surface: %v", err)
	}
}

func TestGeneratePromptCarriesMotifContext(t *testing.T) {
	f := &fakeCall{outputs: []string{modelOutput}}
	c := testClient(1, f)

	if _, err := c.Generate(context.Background(), `\key a \minor \time 3/4 a4 c' e'`, "Night Piece"); err != nil {
		t.Fatal(err)
	}

	prompt := f.prompts[0]
	for _, frag := range []string{"a4 c' e'", "a minor", "3/4", "Night Piece"} {
		if !strings.Contains(prompt, frag) {
			t.Errorf("prompt missing %q", frag)
		}
	}
}

func TestGenerateStripsFences(t *testing.T) {
	f := &fakeCall{outputs: []string{"```lilypond\n" + modelOutput + "\n```"}}
	c := testClient(1, f)

	out, err := c.Generate(context.Background(), "d4", "T")
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(out, "```") {
		t.Fatalf("fences survived: %s", out)
	}
}

func TestRepairIsNotRetried(t *testing.T) {
	f := &fakeCall{errs: []error{errors.New("timeout")}}
	c := testClient(3, f)

	_, err := c.Repair(context.Background(), "broken", "diag", "T")
	if err == nil {
		t.Fatal("expected error")
	}
	if f.calls != 1 {
		t.Fatalf("repair must be a single round trip, calls=%d", f.calls)
	}
}

func TestRepairPromptBoundsDiagnostic(t *testing.T) {
	f := &fakeCall{outputs: []string{modelOutput}}
	c := testClient(1, f)

	long := strings.Repeat("x", maxDiagnosticExcerpt+500) + "TAIL"
	if _, err := c.Repair(context.Background(), "broken", long, "T"); err != nil {
		t.Fatal(err)
	}

	prompt := f.prompts[0]
	if !strings.Contains(prompt, "TAIL") {
		t.Fatal("excerpt must keep the tail of the diagnostic")
	}
	if strings.Contains(prompt, strings.Repeat("x", maxDiagnosticExcerpt)) {
		t.Fatal("excerpt not bounded")
	}
	if !strings.Contains(prompt, "broken") {
		t.Fatal("broken source missing from repair prompt")
	}
}

func TestReasoningEffortMapping(t *testing.T) {
	tests := []struct {
		level string
		want  shared.ReasoningEffort
	}{
		{"minimal", responses.ReasoningEffortLow},
		{"low", responses.ReasoningEffortLow},
		{"medium", responses.ReasoningEffortMedium},
		{"high", responses.ReasoningEffortHigh},
		{"none", shared.ReasoningEffort("none")},
	}
	for _, tt := range tests {
		if got := reasoningEffort(tt.level); got != tt.want {
			t.Errorf("reasoningEffort(%q) = %q, want %q", tt.level, got, tt.want)
		}
	}
}
