// Package errors provides structured error types for the build pipeline.
//
// Errors are categorized by Phase (which pipeline stage failed) and Kind
// (what went wrong). Each error carries optional context: the offending
// export or contract name, closest-match suggestions, and a cause chain.
//
// Use the Builder for structured construction:
//
//	err := errors.New(errors.PhaseValidate, errors.KindValidationFailed).
//		Export("tokn").
//		Suggest("token").
//		Detail("an entrypoint is declared for a contract that does not exist").
//		Build()
//
// All errors implement the standard error interface and support errors.Is/As;
// Is matches on phase and kind.
package errors
