package remote

// TransportError marks a failure between client and server: connection
// errors, timeouts, malformed bodies, 5xx responses. Callers treat it as
// transient and retry with backoff rather than surfacing a job failure.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	if e.Err == nil {
		return "remote: transport failure during " + e.Op
	}
	return "remote: " + e.Op + ": " + e.Err.Error()
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
