package flow

import "github.com/rodneysullivan/browserid/protocol"

// EventKind names an event the machine accepts.
type EventKind string

const (
	EvStart                      EventKind = "start"
	EvCancel                     EventKind = "cancel"
	EvPickEmail                  EventKind = "pick_email"
	EvAddEmail                   EventKind = "add_email"
	EvAuthenticate               EventKind = "authenticate"
	EvNewUser                    EventKind = "new_user"
	EvPasswordSet                EventKind = "password_set"
	EvUserStaged                 EventKind = "user_staged"
	EvUserConfirmed              EventKind = "user_confirmed"
	EvEmailStaged                EventKind = "email_staged"
	EvEmailConfirmed             EventKind = "email_confirmed"
	EvPrimaryUser                EventKind = "primary_user"
	EvPrimaryUserProvisioned     EventKind = "primary_user_provisioned"
	EvPrimaryUserUnauthenticated EventKind = "primary_user_unauthenticated"
	EvPrimaryUserAuthenticating  EventKind = "primary_user_authenticating"
	EvPrimaryUserReady           EventKind = "primary_user_ready"
	EvAuthenticated              EventKind = "authenticated"
	EvEmailChosen                EventKind = "email_chosen"
	EvForgotPassword             EventKind = "forgot_password"
	EvResetPassword              EventKind = "reset_password"
	EvAssertionGenerated         EventKind = "assertion_generated"
	EvIsThisYourComputer         EventKind = "is_this_your_computer"
	EvComputerStatusSet          EventKind = "computer_status_set"
	EvNotMe                      EventKind = "notme"
	EvCancelState                EventKind = "cancel_state"
	EvNetworkError               EventKind = "network_error"
)

// An Event is delivered to the machine by the presentation layer or by a
// network collaborator. Each kind has its own payload type.
type Event interface {
	Kind() EventKind
}

// Start begins a flow. A non-nil RequiredEmail restricts the flow to that
// address; it must be a valid email, and the empty string is not one.
// Email and Type are set when the flow resumes after a round trip to a
// primary identity provider.
type Start struct {
	RequiredEmail *string
	Email         string
	Type          protocol.AccountType
	Add           bool
	Origin        string
	PrivacyURL    string
	TOSURL        string
}

type Cancel struct{}
type PickEmail struct{}
type AddEmail struct{}

type Authenticate struct {
	Email string
}

type NewUser struct {
	Email string
}

type PasswordSet struct{}

type UserStaged struct {
	Email string
}

type UserConfirmed struct{}

type EmailStaged struct {
	Email string
}

type EmailConfirmed struct{}

// PrimaryUser asks to sign in with a primary address. Assertion is the
// identity provider's assertion, if one came back with the address.
type PrimaryUser struct {
	Email     string
	Assertion string
	Add       bool
}

type PrimaryUserProvisioned struct {
	Email string
}

type PrimaryUserUnauthenticated struct{}
type PrimaryUserAuthenticating struct{}

type PrimaryUserReady struct {
	Email string
}

type Authenticated struct {
	Email string
}

type EmailChosen struct {
	Email string
}

type ForgotPassword struct {
	Email         string
	RequiredEmail bool
}

type ResetPassword struct {
	Email string
}

// AssertionGenerated reports the result of assertion generation. An
// empty Assertion means generation failed.
type AssertionGenerated struct {
	Assertion string
}

type IsThisYourComputer struct{}
type ComputerStatusSet struct{}
type NotMe struct{}
type CancelState struct{}

// NetworkError reports a failed round trip. Reason is a stable reason
// key; it defaults to "network_error".
type NetworkError struct {
	Reason string
}

func (Start) Kind() EventKind                      { return EvStart }
func (Cancel) Kind() EventKind                     { return EvCancel }
func (PickEmail) Kind() EventKind                  { return EvPickEmail }
func (AddEmail) Kind() EventKind                   { return EvAddEmail }
func (Authenticate) Kind() EventKind               { return EvAuthenticate }
func (NewUser) Kind() EventKind                    { return EvNewUser }
func (PasswordSet) Kind() EventKind                { return EvPasswordSet }
func (UserStaged) Kind() EventKind                 { return EvUserStaged }
func (UserConfirmed) Kind() EventKind              { return EvUserConfirmed }
func (EmailStaged) Kind() EventKind                { return EvEmailStaged }
func (EmailConfirmed) Kind() EventKind             { return EvEmailConfirmed }
func (PrimaryUser) Kind() EventKind                { return EvPrimaryUser }
func (PrimaryUserProvisioned) Kind() EventKind     { return EvPrimaryUserProvisioned }
func (PrimaryUserUnauthenticated) Kind() EventKind { return EvPrimaryUserUnauthenticated }
func (PrimaryUserAuthenticating) Kind() EventKind  { return EvPrimaryUserAuthenticating }
func (PrimaryUserReady) Kind() EventKind           { return EvPrimaryUserReady }
func (Authenticated) Kind() EventKind              { return EvAuthenticated }
func (EmailChosen) Kind() EventKind                { return EvEmailChosen }
func (ForgotPassword) Kind() EventKind             { return EvForgotPassword }
func (ResetPassword) Kind() EventKind              { return EvResetPassword }
func (AssertionGenerated) Kind() EventKind         { return EvAssertionGenerated }
func (IsThisYourComputer) Kind() EventKind         { return EvIsThisYourComputer }
func (ComputerStatusSet) Kind() EventKind          { return EvComputerStatusSet }
func (NotMe) Kind() EventKind                      { return EvNotMe }
func (CancelState) Kind() EventKind                { return EvCancelState }
func (NetworkError) Kind() EventKind               { return EvNetworkError }

// emailOf returns the email carried by ev, if any.
func emailOf(ev Event) string {
	switch e := ev.(type) {
	case Authenticate:
		return e.Email
	case NewUser:
		return e.Email
	case ForgotPassword:
		return e.Email
	case ResetPassword:
		return e.Email
	case EmailChosen:
		return e.Email
	}
	return ""
}

// withEmail returns ev with its email set to email if it carries none.
func withEmail(ev Event, email string) Event {
	switch e := ev.(type) {
	case Authenticate:
		if e.Email == "" {
			e.Email = email
		}
		return e
	case NewUser:
		if e.Email == "" {
			e.Email = email
		}
		return e
	case ForgotPassword:
		if e.Email == "" {
			e.Email = email
		}
		return e
	}
	return ev
}
