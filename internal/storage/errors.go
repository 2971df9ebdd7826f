package storage

import "errors"

var (
	// ErrConfigurationMissing means the process runs on a managed
	// platform whose filesystem is not durably writable, but the remote
	// store credentials are absent. Falling back to local files is not
	// legal in that state, so the operation fails outright.
	ErrConfigurationMissing = errors.New("remote store credentials missing on managed platform")

	// ErrBackendUnavailable wraps a transient remote-store failure that
	// could not be compensated by a local fallback.
	ErrBackendUnavailable = errors.New("storage backend unavailable")
)
