package sentinel

import "errors"

// Sentinel errors for storage facts. Stores return these (optionally wrapped)
// so engines can translate them into coded domain errors:
// - ErrNotFound: row does not exist
// - ErrConflict: unique key already taken (flight code, oracle address)
// - ErrNotInitialized: the ledger has no genesis state yet
// - ErrUnavailable: backing service temporarily unavailable
var (
	ErrNotFound       = errors.New("not found")
	ErrConflict       = errors.New("conflict")
	ErrNotInitialized = errors.New("ledger not initialized")
	ErrUnavailable    = errors.New("unavailable")
)
