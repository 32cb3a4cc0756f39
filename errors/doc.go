// Package errors provides structured error types for the type generator.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error
// category). The Error type carries the generated type and method names, a
// field path and a cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseWrite, errors.KindLimitExceeded).
//		Type("counter").
//		Method("<clinit>").
//		Detail("max stack %d exceeds limit %d", 9, 8).
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.NotFound(errors.PhaseEmit, "field", "count")
//	err := errors.LimitExceeded(errors.PhaseWrite, "max stack", 9, 8)
//
// All errors implement the standard error interface and support errors.Is/As.
// Two errors match under errors.Is when their Phase and Kind are equal.
package errors
