package remoteregistry

import "errors"

// Sentinel errors for remote registry operations.
// Callers should use errors.Is to check.
var (
	// ErrFetchFailed indicates the Fetcher could not retrieve the manifest.
	ErrFetchFailed = errors.New("remoteregistry: fetch failed")
	// ErrNotFound indicates no manifest was found for the given name/env; registry wraps it in chatprompt.ErrTemplateNotFound.
	ErrNotFound = errors.New("remoteregistry: no manifest found")
)
