package flow

import (
	"fmt"

	"github.com/rodneysullivan/browserid/protocol"
)

// An Action is a verb of the presentation layer. The machine requests
// one or more actions on every transition.
type Action string

const (
	DoCheckAuth                     Action = "doCheckAuth"
	DoCancel                        Action = "doCancel"
	DoPickEmail                     Action = "doPickEmail"
	DoAddEmail                      Action = "doAddEmail"
	DoAuthenticate                  Action = "doAuthenticate"
	DoAuthenticateWithRequiredEmail Action = "doAuthenticateWithRequiredEmail"
	DoSetPassword                   Action = "doSetPassword"
	DoStageUser                     Action = "doStageUser"
	DoConfirmUser                   Action = "doConfirmUser"
	DoConfirmEmail                  Action = "doConfirmEmail"
	DoEmailConfirmed                Action = "doEmailConfirmed"
	DoEmailChosen                   Action = "doEmailChosen"
	DoProvisionPrimaryUser          Action = "doProvisionPrimaryUser"
	DoPrimaryUserProvisioned        Action = "doPrimaryUserProvisioned"
	DoVerifyPrimaryUser             Action = "doVerifyPrimaryUser"
	DoCannotVerifyRequiredPrimary   Action = "doCannotVerifyRequiredPrimary"
	DoForgotPassword                Action = "doForgotPassword"
	DoResetPassword                 Action = "doResetPassword"
	DoAssertionGenerated            Action = "doAssertionGenerated"
	DoIsThisYourComputer            Action = "doIsThisYourComputer"
	DoNotMe                         Action = "doNotMe"
	DoError                         Action = "doError"
)

// AllActions lists every verb the machine may request.
var AllActions = []Action{
	DoCheckAuth, DoCancel, DoPickEmail, DoAddEmail, DoAuthenticate,
	DoAuthenticateWithRequiredEmail, DoSetPassword, DoStageUser,
	DoConfirmUser, DoConfirmEmail, DoEmailConfirmed, DoEmailChosen,
	DoProvisionPrimaryUser, DoPrimaryUserProvisioned, DoVerifyPrimaryUser,
	DoCannotVerifyRequiredPrimary, DoForgotPassword, DoResetPassword,
	DoAssertionGenerated, DoIsThisYourComputer, DoNotMe, DoError,
}

// ActionInfo is the payload of an action request. Only the fields
// relevant to the verb are set.
type ActionInfo struct {
	Email      string
	Type       protocol.AccountType
	Required   bool
	Add        bool
	Origin     string
	PrivacyURL string
	TOSURL     string
	Assertion  string
	// Reason is the stable reason key of doError and
	// doCannotVerifyRequiredPrimary.
	Reason string
}

// An ActionFunc carries out a verb. It must return promptly and report
// completion later by delivering an event.
type ActionFunc func(info ActionInfo)

// ActionTable maps verbs to their implementation.
type ActionTable map[Action]ActionFunc

// A Controller is the presentation layer driven by the machine. It may
// implement any subset of the verbs; requesting a missing one fails with
// protocol.ErrUnregisteredAction.
type Controller interface {
	Actions() ActionTable
}

// lookup returns the implementation of a, or an error wrapping
// protocol.ErrUnregisteredAction.
func (t ActionTable) lookup(a Action) (ActionFunc, error) {
	fn, ok := t[a]
	if !ok || fn == nil {
		return nil, fmt.Errorf("%w: %s", protocol.ErrUnregisteredAction, a)
	}
	return fn, nil
}
