// Package apperr holds the error kinds shared by stores, clients and the HTTP layer.
package apperr

import "errors"

var (
	// ErrNotFound means the requested order or line does not exist.
	ErrNotFound = errors.New("not found")

	// ErrUpstreamUnavailable means an account or shipment lookup failed or timed out.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")

	// ErrPersistence means a store operation failed.
	ErrPersistence = errors.New("persistence failure")
)
