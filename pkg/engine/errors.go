package engine

import "fmt"

// CallError reports a non-zero status from an engine call. Message holds the
// engine's last-error text captured immediately after the failing call.
type CallError struct {
	Call    string
	Message string
}

func (e *CallError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s failed", e.Call)
	}
	return fmt.Sprintf("%s failed: %s", e.Call, e.Message)
}
