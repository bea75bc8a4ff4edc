package flow

import "github.com/rodneysullivan/browserid/protocol"

// Network supplies the session context last reported by the server.
type Network interface {
	// AuthLevel is the authentication level of the current session.
	AuthLevel() protocol.AuthLevel
	// ShouldAskIfUsersComputer reports whether the user must confirm
	// ownership of this computer before an assertion is released.
	ShouldAskIfUsersComputer() bool
}

// Store is the part of the identity store the machine reads and writes.
type Store interface {
	// Identity returns the identity for email, or nil if it is unknown.
	Identity(email string) (*protocol.Identity, error)
	// SetStagedOnBehalfOf remembers the origin that initiated an
	// out-of-band email confirmation.
	SetStagedOnBehalfOf(origin string) error
	// SetSiteEmail remembers the address last used to sign in to origin.
	SetSiteEmail(origin, email string) error
	// Logout destroys all identities.
	Logout() error
}

type offlineNetwork struct{}

func (offlineNetwork) AuthLevel() protocol.AuthLevel  { return protocol.AuthNone }
func (offlineNetwork) ShouldAskIfUsersComputer() bool { return false }

type emptyStore struct{}

func (emptyStore) Identity(string) (*protocol.Identity, error) { return nil, nil }
func (emptyStore) SetStagedOnBehalfOf(string) error            { return nil }
func (emptyStore) SetSiteEmail(string, string) error           { return nil }
func (emptyStore) Logout() error                               { return nil }
