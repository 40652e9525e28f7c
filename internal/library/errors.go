package library

import "fmt"

// ProviderError is returned when a call to the music provider fails,
// either at the network level or with a non-2xx response.
type ProviderError struct {
	Op     string // e.g. "listing saved tracks"
	Status int    // HTTP status, 0 when unknown
	Err    error
}

func (e *ProviderError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: provider status %d: %v", e.Op, e.Status, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}
