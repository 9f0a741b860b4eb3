package relayerApi

import "fmt"

// RelayerError is a non-2xx reply from the relayer.
type RelayerError struct {
	StatusCode int
	Method     string
	Path       string
	Message    string
}

func (e *RelayerError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("relayer %s %s failed with status %d", e.Method, e.Path, e.StatusCode)
	}
	return fmt.Sprintf("relayer %s %s failed with status %d: %s", e.Method, e.Path, e.StatusCode, e.Message)
}
