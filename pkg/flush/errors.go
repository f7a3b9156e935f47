package flush

import "fmt"

// ============================================================
// BASE ERROR INTERFACE
// ============================================================

// FlushError is implemented by every error the flush engine raises on its
// own. Statement errors coming back from the QueryFactory are returned
// unchanged and do not implement it.
type FlushError interface {
	error
	Code() string  // Error code for programmatic handling
	IsFlushError() // Marker method
}

// ============================================================
// CONFIGURATION ERRORS
// ============================================================

// ConfigurationError: the attribute mapping asks for something the engine
// cannot do. Never retryable.
type ConfigurationError struct {
	Attribute string
	Message   string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf(
		"ConfigurationError: Attribute '%s'\n"+
			"  Details: %s",
		e.Attribute, e.Message,
	)
}

func (e *ConfigurationError) Code() string  { return "UNSUPPORTED_CONFIGURATION" }
func (e *ConfigurationError) IsFlushError() {}

// ============================================================
// REFERENTIAL INTEGRITY ERRORS
// ============================================================

// TransientReferenceError: a collection slated for a statement flush holds
// an entity that was never persisted.
type TransientReferenceError struct {
	Attribute string
	Value     interface{}
}

func (e *TransientReferenceError) Error() string {
	return fmt.Sprintf(
		"Collection %s references an unsaved transient instance - save the transient instance before flushing: %v\n"+
			"  Suggestion: persist the element first or enable persist cascading for %s",
		e.Attribute, e.Value, e.Attribute,
	)
}

func (e *TransientReferenceError) Code() string  { return "TRANSIENT_REFERENCE" }
func (e *TransientReferenceError) IsFlushError() {}

// ============================================================
// INVARIANT VIOLATIONS
// ============================================================

// InvariantError: internal state that must not happen. The flush is
// aborted instead of continuing with corrupt state.
type InvariantError struct {
	Attribute string
	Message   string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf(
		"InvariantError: Attribute '%s'\n"+
			"  Details: %s",
		e.Attribute, e.Message,
	)
}

func (e *InvariantError) Code() string  { return "INVARIANT_VIOLATION" }
func (e *InvariantError) IsFlushError() {}
