package repo

// ResultError tags an upstream failure with the status the caller should
// surface ("failed" for trigger calls, "unknown" for status queries).
type ResultError struct {
	Status  string
	Message string
}

func (e *ResultError) Error() string { return e.Message }

// Result is the outcome of a workflow engine call. Failures are captured as
// data rather than raised: the orchestrator being unreachable is a routine
// state in a demo environment and must not break incident operations.
type Result struct {
	Payload map[string]any
	Err     *ResultError
}

// Ok wraps a successful response body.
func Ok(payload map[string]any) Result {
	return Result{Payload: payload}
}

// Failed wraps an error with the given status tag.
func Failed(status string, err error) Result {
	return Result{Err: &ResultError{Status: status, Message: err.Error()}}
}

// IsErr reports whether the call failed.
func (r Result) IsErr() bool { return r.Err != nil }

// Body renders the result as a JSON-ready map. Failures keep the legacy wire
// shape {"error": message, "status": tag}.
func (r Result) Body() map[string]any {
	if r.Err != nil {
		return map[string]any{"error": r.Err.Message, "status": r.Err.Status}
	}
	return r.Payload
}
