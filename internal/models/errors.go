package models

import "errors"

// Invalid-argument errors raised by the storage pipeline. These indicate
// caller bugs and are the only class that terminates the calling operation.
var (
	ErrNilRecord    = errors.New("record cannot be nil")
	ErrNilRequest   = errors.New("request cannot be nil")
	ErrBlankAddress = errors.New("record IP address cannot be blank")
)

// ErrNoAddressResolved is returned by StoreFromRequest when neither the
// candidate headers nor the peer address yield a valid client IP.
var ErrNoAddressResolved = errors.New("could not resolve a client IP address from the request")

// ErrDuplicateRecord is returned by the record store when a unique
// constraint rejects an insert that raced past the pipeline's duplicate
// check. The pipeline translates it into a duplicate-skip.
var ErrDuplicateRecord = errors.New("record already exists for this address and user")

// ConfigError represents a configuration problem.
type ConfigError struct {
	Message string
}

func (e ConfigError) Error() string {
	return e.Message
}
