package errors

import (
	stderrors "errors"
	"strings"
	"testing"
)

func TestErrorFormatting(t *testing.T) {
	err := New(PhaseValidate, KindValidationFailed).
		Export("tokn").
		Detail("an entrypoint is declared for contract '%s', but such a contract does not exist in the module", "tokn").
		Suggest("token").
		Build()

	msg := err.Error()
	for _, want := range []string{
		"[validate]",
		"validation_failed",
		"'tokn'",
		"does not exist in the module",
		"perhaps you meant 'token'",
	} {
		if !strings.Contains(msg, want) {
			t.Errorf("message %q missing %q", msg, want)
		}
	}
}

func TestErrorSuggestionList(t *testing.T) {
	err := New(PhaseValidate, KindValidationFailed).Suggest("a", "b").Build()
	if !strings.Contains(err.Error(), "perhaps you meant 'a', 'b'") {
		t.Errorf("message %q does not list both suggestions", err.Error())
	}
}

func TestIsMatchesPhaseAndKind(t *testing.T) {
	err := CompilationFailed(PhaseSchemaBuild, stderrors.New("exit status 101"))

	if !stderrors.Is(err, &Error{Phase: PhaseSchemaBuild, Kind: KindCompilationFailed}) {
		t.Error("expected match on phase and kind")
	}
	if stderrors.Is(err, &Error{Phase: PhaseCompile, Kind: KindCompilationFailed}) {
		t.Error("unexpected match across phases")
	}
}

func TestUnwrap(t *testing.T) {
	cause := stderrors.New("no such file")
	err := ArtifactNotFound(PhaseRead, "/tmp/out.wasm", cause)

	if !stderrors.Is(err, cause) {
		t.Error("cause not reachable through Unwrap")
	}
	if !strings.Contains(err.Error(), "caused by: no such file") {
		t.Errorf("message %q does not include the cause", err.Error())
	}
	if !strings.Contains(err.Error(), "/tmp/out.wasm") {
		t.Errorf("message %q does not include the path", err.Error())
	}
}

func TestUnexpectedExport(t *testing.T) {
	err := UnexpectedExport("foo")
	if err.Kind != KindValidationFailed || err.Export != "foo" {
		t.Errorf("unexpected fields: %+v", err)
	}
	if !strings.Contains(err.Error(), "V0 contracts do not allow") {
		t.Errorf("message %q lacks the V0 explanation", err.Error())
	}
}
