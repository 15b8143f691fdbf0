package domain

import "errors"

var (
	// ErrNetwork marks a fetch or API failure that survived all retries.
	ErrNetwork = errors.New("network error")
	// ErrSchema marks a record or response that fails validation.
	ErrSchema = errors.New("schema error")
	// ErrDuplicate is returned by stores when the record key already exists.
	ErrDuplicate = errors.New("duplicate record")
	// ErrConfig marks a fatal configuration problem such as a missing credential.
	ErrConfig = errors.New("config error")
)
