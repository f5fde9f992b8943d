package httpclient

import "errors"

var (
	// ErrInvalidProxyAddress is returned when the proxy address is not "host:port".
	ErrInvalidProxyAddress = errors.New("invalid proxy address format: expected host:port")

	// ErrUnexpectedStatus is returned for responses outside the 2xx range.
	ErrUnexpectedStatus = errors.New("unexpected HTTP status")

	// ErrBodyTooLarge is returned when a response exceeds the body size limit.
	ErrBodyTooLarge = errors.New("response body too large")
)
