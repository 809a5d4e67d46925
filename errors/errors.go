package errors

import (
	"fmt"
	"strings"
)

// Phase indicates where in the build pipeline the error occurred.
type Phase string

const (
	PhaseSchemaBuild Phase = "schema-build" // schema-feature compile + extraction
	PhaseCompile     Phase = "compile"      // production compile
	PhaseRead        Phase = "read"         // reading the compiled artifact
	PhaseParse       Phase = "parse"        // module skeleton parsing
	PhaseValidate    Phase = "validate"     // import/export validation
	PhaseWrite       Phase = "write"        // artifact and schema output
)

// Kind categorizes the error.
type Kind string

const (
	KindCompilationFailed      Kind = "compilation_failed"
	KindArtifactNotFound       Kind = "artifact_not_found"
	KindParseFailed            Kind = "parse_failed"
	KindValidationFailed       Kind = "validation_failed"
	KindSchemaExtractionFailed Kind = "schema_extraction_failed"
	KindOutputPathInvalid      Kind = "output_path_invalid"
	KindIO                     Kind = "io_error"
)

// Error is the structured error type used throughout the build pipeline.
type Error struct {
	Cause       error
	Phase       Phase
	Kind        Kind
	Export      string
	Detail      string
	Suggestions []string
}

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if e.Export != "" {
		b.WriteString(" for '")
		b.WriteString(e.Export)
		b.WriteByte('\'')
	}

	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}

	if len(e.Suggestions) > 0 {
		b.WriteString(" (perhaps you meant ")
		for i, s := range e.Suggestions {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteByte('\'')
			b.WriteString(s)
			b.WriteByte('\'')
		}
		b.WriteByte(')')
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error by phase and kind.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Phase == t.Phase && e.Kind == t.Kind
	}
	return false
}

// Builder provides structured error construction.
type Builder struct {
	err Error
}

// New creates a new error builder.
func New(phase Phase, kind Kind) *Builder {
	return &Builder{err: Error{Phase: phase, Kind: kind}}
}

// Export sets the offending export or contract name.
func (b *Builder) Export(name string) *Builder {
	b.err.Export = name
	return b
}

// Suggest attaches closest-match suggestions.
func (b *Builder) Suggest(names ...string) *Builder {
	b.err.Suggestions = names
	return b
}

// Cause sets the underlying error.
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message.
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error.
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for the common pipeline failures.

// CompilationFailed creates an error for a non-zero compiler exit.
func CompilationFailed(phase Phase, cause error) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindCompilationFailed,
		Detail: "compilation failed",
		Cause:  cause,
	}
}

// ArtifactNotFound creates an error for a missing compiled binary.
func ArtifactNotFound(phase Phase, path string, cause error) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindArtifactNotFound,
		Detail: fmt.Sprintf("expected compiled module at %s", path),
		Cause:  cause,
	}
}

// UnexpectedExport creates the V0 diagnostic for an export that is neither a
// valid init nor receive name.
func UnexpectedExport(name string) *Error {
	return &Error{
		Phase:  PhaseValidate,
		Kind:   KindValidationFailed,
		Export: name,
		Detail: "the module exposes a function that is neither a valid init nor receive name; " +
			"V0 contracts do not allow any other exported functions",
	}
}

// OutputPathInvalid creates an error for an unusable output path.
func OutputPathInvalid(cause error) *Error {
	return &Error{
		Phase: PhaseWrite,
		Kind:  KindOutputPathInvalid,
		Cause: cause,
	}
}

// SchemaExtractionFailed creates an error for a schema build that produced a
// binary without usable schema-generation entry points.
func SchemaExtractionFailed(detail string, cause error) *Error {
	return &Error{
		Phase:  PhaseSchemaBuild,
		Kind:   KindSchemaExtractionFailed,
		Detail: detail,
		Cause:  cause,
	}
}
