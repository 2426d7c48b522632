package internal

import "fmt"

// UnknownProtocolError reports an explicit per-request protocol pin that
// no registered provider answers to.
type UnknownProtocolError struct {
	Requested string
	Available []string
}

func (e *UnknownProtocolError) Error() string {
	return fmt.Sprintf("requested protocol with id %q, which is not registered on this client. available protocols: %v",
		e.Requested, e.Available)
}

// NoProviderError reports that no provider was willing to handle the
// request, after ranking and (when applicable) protocol negotiation.
type NoProviderError struct {
	URI       string
	Available []string
}

func (e *NoProviderError) Error() string {
	return fmt.Sprintf("cannot handle request to %s, did not discover any HTTP version willing to handle it. available protocols: %v",
		e.URI, e.Available)
}
