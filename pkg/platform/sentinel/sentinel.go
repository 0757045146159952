package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores and the message channel
// adapter return these (optionally wrapped) so services and consumers can
// translate them into the protocol's error taxonomy.
//
// These represent factual states about resources, not validation failures:
// - ErrNotFound: entity does not exist in store
// - ErrConflict: uniqueness constraint hit (the duplicate-delivery backstop)
// - ErrExpired: confirmation token or invitation past its deadline
// - ErrAlreadyUsed: single-use resource (confirmation token) already consumed
// - ErrInvalidState: entity in wrong state for requested operation
// - ErrUnavailable: service or resource temporarily unavailable
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrExpired      = errors.New("expired")
	ErrAlreadyUsed  = errors.New("already used")
	ErrInvalidState = errors.New("invalid state")
	ErrUnavailable  = errors.New("unavailable")
)
