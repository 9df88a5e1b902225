package store

import "errors"

var (
	// ErrNotFound is returned when a requested block, account, note or
	// transaction is absent locally.
	ErrNotFound = errors.New("not found in the store")

	// ErrDataInconsistency marks a store invariant violation, such as an
	// account row referencing a missing code root. Fatal.
	ErrDataInconsistency = errors.New("store data inconsistency")

	// ErrSerialization marks malformed persisted bytes. Fatal.
	ErrSerialization = errors.New("malformed persisted data")

	// ErrAccountMismatch is raised when the observed on chain commitment
	// of a private account differs from the local state. Recovered by
	// locking the account.
	ErrAccountMismatch = errors.New("account commitment mismatch")

	// ErrConcurrency marks a write transaction conflict. Retryable.
	ErrConcurrency = errors.New("store write conflict")

	// ErrAccountStateAlreadyExists is returned when inserting an account
	// state whose (id, nonce) is already recorded.
	ErrAccountStateAlreadyExists = errors.New("account state already stored")
)
