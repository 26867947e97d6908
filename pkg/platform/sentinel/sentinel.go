package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores return these (optionally wrapped) so the
// card service can translate them into domain errors.
//
//   - ErrNotFound: record does not exist in the store
//   - ErrAlreadyUsed: identity already taken (card id collision)
//   - ErrConflict: compare-and-swap precondition failed (owner changed underneath)
//   - ErrUnavailable: backing service or resource temporarily unavailable
var (
	ErrNotFound    = errors.New("not found")
	ErrAlreadyUsed = errors.New("already used")
	ErrConflict    = errors.New("conflict")
	ErrUnavailable = errors.New("unavailable")
)
