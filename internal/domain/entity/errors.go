package entity

import (
	"errors"
	"fmt"
)

// Sentinel errors for the wallet tracking flows. Classification and
// authentication errors are raised before any external call so a failed
// operation never leaves a partial mutation behind.
var (
	// ErrInvalidAddress means the address string matched no supported network format.
	ErrInvalidAddress = errors.New("address not recognized for any supported network")
	// ErrNotAuthenticated means a mutating call was made without an active session.
	ErrNotAuthenticated = errors.New("no authenticated session")
	// ErrDuplicateAddress means the user already tracks this address.
	ErrDuplicateAddress = errors.New("address is already tracked")
	// ErrNotFound means the wallet id is absent from the collection.
	ErrNotFound = errors.New("wallet not found")
)

// NetworkFetchError wraps a failure of the external balance or transaction
// collaborator. The store's own state is left unchanged when it occurs.
type NetworkFetchError struct {
	Network Network
	Address string
	Err     error
}

func (e *NetworkFetchError) Error() string {
	return fmt.Sprintf("fetch failed for %s address %s: %v", e.Network, e.Address, e.Err)
}

func (e *NetworkFetchError) Unwrap() error { return e.Err }
