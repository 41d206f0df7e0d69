package call

import "fmt"

// UnknownTypeError reports a call type outside the closed set. It is a
// configuration-level failure raised at construction, never a runtime
// network error.
type UnknownTypeError struct {
	Type string
}

func (e *UnknownTypeError) Error() string {
	return fmt.Sprintf("unknown call type %q, must be one of %v", e.Type, Types())
}

// ValidationError reports a Spec that must not be dispatched: a missing or
// empty required parameter, or an unaccepted response format.
type ValidationError struct {
	Type   Type
	Key    string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("invalid %s call: %s: %s", e.Type, e.Key, e.Reason)
	}
	return fmt.Sprintf("invalid %s call: %s", e.Type, e.Reason)
}
