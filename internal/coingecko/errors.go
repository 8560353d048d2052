package coingecko

import "fmt"

// ErrorKind classifies a failed fetch.
type ErrorKind string

const (
	KindTimeout        ErrorKind = "timeout"
	KindTransport      ErrorKind = "transport"
	KindDecode         ErrorKind = "decode"
	KindUpstreamStatus ErrorKind = "upstream_status"
)

// FetchError is the only error type FetchMarkets returns.
type FetchError struct {
	Kind       ErrorKind
	StatusCode int // set for KindUpstreamStatus
	Err        error
}

func (e *FetchError) Error() string {
	if e.Kind == KindUpstreamStatus {
		return fmt.Sprintf("coingecko fetch failed (%s %d): %v", e.Kind, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("coingecko fetch failed (%s): %v", e.Kind, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}
