package eval

import "fmt"

// Failure is the typed runtime failure taxonomy spec.md §4.2/§7 defines.
// The executor switches on these (via errors.As) to decide whether a
// failure demotes a rule to non-firing or aborts the reason() call.
type Failure interface {
	error
	failureKind() string
}

// Kind returns the failure's taxonomy name (e.g. "UndefinedField"), or
// "" if err is not one of the typed failures below.
func Kind(err error) string {
	if f, ok := err.(Failure); ok {
		return f.failureKind()
	}
	return ""
}

// UndefinedField is raised by a bare Ref read of a name bound nowhere in
// the fact environment (spec.md §3's Fact definition).
type UndefinedField struct {
	Name string
}

func (e *UndefinedField) Error() string   { return fmt.Sprintf("undefined field %q", e.Name) }
func (e *UndefinedField) failureKind() string { return "UndefinedField" }

// TypeError is raised by an operation applied to operands of
// incompatible categories (spec.md §4.2: comparisons across non-matching
// primitive categories, arithmetic on non-numeric operands, etc).
type TypeError struct {
	Op      string
	Detail  string
}

func (e *TypeError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("type error in %s", e.Op)
	}
	return fmt.Sprintf("type error in %s: %s", e.Op, e.Detail)
}
func (e *TypeError) failureKind() string { return "TypeError" }

// DivisionByZero is raised by / or % with a zero right operand.
type DivisionByZero struct{}

func (e *DivisionByZero) Error() string   { return "division by zero" }
func (e *DivisionByZero) failureKind() string { return "DivisionByZero" }

// ArityMismatch is raised by a Call whose argument count falls outside
// the registered function's (min, max) arity.
type ArityMismatch struct {
	Name string
	Got  int
	Min  int
	Max  int
}

func (e *ArityMismatch) Error() string {
	return fmt.Sprintf("%s expects between %d and %d arguments, got %d", e.Name, e.Min, e.Max, e.Got)
}
func (e *ArityMismatch) failureKind() string { return "ArityMismatch" }

// PromptUnavailable is raised by the PROMPT built-in when no LLM adapter
// has been registered with the function registry (spec.md §4.3).
type PromptUnavailable struct{}

func (e *PromptUnavailable) Error() string   { return "PROMPT unavailable: no adapter configured" }
func (e *PromptUnavailable) failureKind() string { return "PromptUnavailable" }

// PromptError wraps an adapter-reported failure from a PROMPT call.
type PromptError struct {
	Cause error
}

func (e *PromptError) Error() string   { return fmt.Sprintf("PROMPT failed: %v", e.Cause) }
func (e *PromptError) Unwrap() error   { return e.Cause }
func (e *PromptError) failureKind() string { return "PromptError" }

// UnknownFunction is raised by a Call naming a function absent from the
// registry. Treated the same as ArityMismatch for firing purposes: both
// are rule-authoring errors, not missing-data conditions.
type UnknownFunction struct {
	Name string
}

func (e *UnknownFunction) Error() string   { return fmt.Sprintf("unknown function %q", e.Name) }
func (e *UnknownFunction) failureKind() string { return "UnknownFunction" }

// Demotable reports whether a failure demotes a rule's condition to
// non-firing (spec.md §7) rather than aborting the whole reason() call:
// UndefinedField and TypeError always demote; everything else is fatal
// by default unless the caller selected the permissive strategy.
func Demotable(err error, permissive bool) bool {
	switch Kind(err) {
	case "UndefinedField", "TypeError":
		return true
	case "DivisionByZero", "ArityMismatch", "PromptUnavailable", "PromptError", "UnknownFunction":
		return permissive
	default:
		return false
	}
}
