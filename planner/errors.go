package planner

import "fmt"

// ErrorKind tags the taxonomy of plan-build aborts spec.md §7 defines:
// SchemaViolation, UnknownVariable, and the "no subgraph owns the root
// field" case (folded in here as NoOwner since it is, structurally, the
// same abort as a schema violation one level up — no candidate resolves
// the selection at all). No code path in this repository returns an
// UnknownVariable error: a `@skip`/`@include` variable missing from the
// variables table is propagated into the subgraph request, not aborted on.
type ErrorKind string

const (
	SchemaViolation ErrorKind = "schema_violation"
	UnknownVariable ErrorKind = "unknown_variable"
	NoOwner         ErrorKind = "no_owner"
)

// PlanError is the typed abort value planner.Build returns for every
// error taxonomy entry in spec.md §7 that aborts the build outright
// (unresolvable `@requires`/`@provides` and `@inaccessible` references
// are NOT PlanErrors — they are handled inline, per spec, and never
// reach this type). Wrapped by fmt.Errorf("planner: %w", ...) at the
// Build entry point so callers that only check `error` still see a
// sensible message, while callers that care can `errors.As` it back out.
type PlanError struct {
	Kind    ErrorKind
	Message string
}

func (e *PlanError) Error() string { return e.Message }

func newSchemaViolation(format string, args ...any) *PlanError {
	return &PlanError{Kind: SchemaViolation, Message: fmt.Sprintf(format, args...)}
}

func newNoOwner(format string, args ...any) *PlanError {
	return &PlanError{Kind: NoOwner, Message: fmt.Sprintf(format, args...)}
}
