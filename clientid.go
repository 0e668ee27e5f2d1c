package xsession

import "github.com/google/uuid"

// NewClientOrderID generates a unique client-assigned order identifier
// suitable for FIX tag 11 (ClOrdID) or an OUCH order token: callers that
// don't track their own numbering scheme can use this instead of rolling
// their own, while still being free to supply their own identifiers where
// a venue requires a specific format.
func NewClientOrderID() string {
	return uuid.New().String()
}
