package core

import "time"

// Session represents an authenticated session minted after an accepted
// handshake.
type Session struct {
	ID           string    // Unique session identifier
	Address      string    // Verified wallet address
	IssuedAt     time.Time // When the session was created
	AccessExpiry time.Time // When the access capability expires
}
