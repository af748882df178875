package mediabed

import "errors"

var (
	// ErrNotFound is returned when a resource is not found
	ErrNotFound = errors.New("not found")
	// ErrInvalidInput is returned when input validation fails
	ErrInvalidInput = errors.New("invalid input")
	// ErrUnauthorized is returned when authentication fails
	ErrUnauthorized = errors.New("unauthorized")
	// ErrUpstream is returned when the remote blob service rejects a request
	ErrUpstream = errors.New("upstream error")
	// ErrNoFileID is returned when an upstream upload response carries no file handle
	ErrNoFileID = errors.New("no file id in upstream response")
	// ErrTransport is returned when the remote metadata endpoint cannot be reached
	ErrTransport = errors.New("transport failure")
	// ErrPathNotFound is returned when the remote service never yields an ephemeral path
	ErrPathNotFound = errors.New("file path not found")
	// ErrFetch is returned when the remote content endpoint fails to deliver bytes
	ErrFetch = errors.New("content fetch failed")
)
