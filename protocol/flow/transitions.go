package flow

import (
	"fmt"

	"github.com/rodneysullivan/browserid/protocol"
	"go.uber.org/zap"
)

type transition struct {
	// screen transitions are recorded in the history for cancel_state.
	screen bool
	handle func(m *Machine, ev Event) error
}

var transitions map[EventKind]transition

func init() {
	transitions = map[EventKind]transition{
		EvStart:                      {false, (*Machine).onStart},
		EvCancel:                     {false, (*Machine).onCancel},
		EvPickEmail:                  {true, (*Machine).onPickEmail},
		EvAddEmail:                   {true, (*Machine).onAddEmail},
		EvAuthenticate:               {true, (*Machine).onAuthenticate},
		EvNewUser:                    {true, (*Machine).onNewUser},
		EvPasswordSet:                {false, (*Machine).onPasswordSet},
		EvUserStaged:                 {false, (*Machine).onUserStaged},
		EvUserConfirmed:              {false, (*Machine).onConfirmed},
		EvEmailStaged:                {false, (*Machine).onEmailStaged},
		EvEmailConfirmed:             {false, (*Machine).onConfirmed},
		EvPrimaryUser:                {false, (*Machine).onPrimaryUser},
		EvPrimaryUserProvisioned:     {false, (*Machine).onPrimaryUserProvisioned},
		EvPrimaryUserUnauthenticated: {false, (*Machine).onPrimaryUserUnauthenticated},
		EvPrimaryUserAuthenticating:  {false, (*Machine).onPrimaryUserAuthenticating},
		EvPrimaryUserReady:           {false, (*Machine).onReady},
		EvAuthenticated:              {false, (*Machine).onReady},
		EvEmailChosen:                {false, (*Machine).onEmailChosen},
		EvForgotPassword:             {true, (*Machine).onForgotPassword},
		EvResetPassword:              {true, (*Machine).onResetPassword},
		EvAssertionGenerated:         {false, (*Machine).onAssertionGenerated},
		EvIsThisYourComputer:         {true, (*Machine).onIsThisYourComputer},
		EvComputerStatusSet:          {false, (*Machine).onComputerStatusSet},
		EvNotMe:                      {false, (*Machine).onNotMe},
		EvCancelState:                {false, (*Machine).onCancelState},
		EvNetworkError:               {false, (*Machine).onNetworkError},
	}
}

func (m *Machine) onStart(ev Event) error {
	e, _ := ev.(Start)
	m.params = e
	m.required = false
	if e.RequiredEmail != nil {
		if !protocol.ValidEmail(*e.RequiredEmail) {
			return m.fail(DoError, protocol.ErrInvalidRequiredEmail.Reason())
		}
		m.required = true
	}
	if e.Email != "" && e.Type == protocol.Primary {
		m.redirect(PrimaryUser{Email: e.Email, Add: e.Add})
		return nil
	}
	return m.enter(StateCheckingAuth, DoCheckAuth, m.siteInfo())
}

func (m *Machine) onCancel(Event) error {
	if err := m.dispatch(DoCancel, ActionInfo{}); err != nil {
		return err
	}
	m.state = StateCancelled
	m.finish(OutcomeCancelled, "")
	return nil
}

func (m *Machine) onPickEmail(Event) error {
	return m.enter(StatePickingEmail, DoPickEmail, m.siteInfo())
}

func (m *Machine) onAddEmail(Event) error {
	return m.enter(StateAddingEmail, DoAddEmail, ActionInfo{})
}

func (m *Machine) onAuthenticate(ev Event) error {
	e, _ := ev.(Authenticate)
	return m.enter(StateAuthenticating, DoAuthenticate, ActionInfo{Email: e.Email})
}

func (m *Machine) onNewUser(ev Event) error {
	e, _ := ev.(NewUser)
	m.newUserEmail = e.Email
	return m.enter(StateSettingPassword, DoSetPassword, ActionInfo{Email: e.Email})
}

func (m *Machine) onPasswordSet(Event) error {
	if m.newUserEmail == "" {
		return fmt.Errorf("%w: password set without a new user", protocol.ErrUnexpectedEvent)
	}
	return m.enter(StateStagingUser, DoStageUser, ActionInfo{Email: m.newUserEmail})
}

func (m *Machine) onUserStaged(ev Event) error {
	e, _ := ev.(UserStaged)
	m.stagedOnBehalfOf()
	return m.enter(StateConfirmingSecondary, DoConfirmUser,
		ActionInfo{Email: e.Email, Required: m.required})
}

func (m *Machine) onEmailStaged(ev Event) error {
	e, _ := ev.(EmailStaged)
	m.stagedOnBehalfOf()
	return m.enter(StateConfirmingSecondary, DoConfirmEmail,
		ActionInfo{Email: e.Email, Required: m.required})
}

func (m *Machine) stagedOnBehalfOf() {
	if err := m.store.SetStagedOnBehalfOf(m.params.Origin); err != nil {
		m.logger.Error("cannot remember staging origin", zap.Error(err))
	}
}

func (m *Machine) onConfirmed(Event) error {
	return m.enter(StateEmailConfirmed, DoEmailConfirmed, ActionInfo{})
}

func (m *Machine) onPrimaryUser(ev Event) error {
	e, _ := ev.(PrimaryUser)
	m.primaryEmail = e.Email
	if id := m.identity(e.Email); id != nil && id.HasValidCert(m.clock.Now()) {
		m.chosen = e.Email
		return m.enter(StateGeneratingAssertion, DoEmailChosen,
			ActionInfo{Email: e.Email, Type: protocol.Primary})
	}
	return m.enter(StateProvisioningPrimaryUser, DoProvisionPrimaryUser,
		ActionInfo{Email: e.Email, Assertion: e.Assertion, Add: e.Add})
}

func (m *Machine) onPrimaryUserProvisioned(ev Event) error {
	e, _ := ev.(PrimaryUserProvisioned)
	m.chosen = e.Email
	return m.enter(StateGeneratingAssertion, DoPrimaryUserProvisioned,
		ActionInfo{Email: e.Email})
}

func (m *Machine) onPrimaryUserUnauthenticated(Event) error {
	if m.required {
		return m.fail(DoCannotVerifyRequiredPrimary,
			protocol.ErrCannotVerifyRequiredPrimary.Reason())
	}
	// The flow was started on return from the identity provider.
	verified := m.params.Email != "" && m.params.Type == protocol.Primary
	switch {
	case verified && !m.params.Add:
		return m.enter(StateAuthenticating, DoAuthenticate,
			ActionInfo{Email: m.params.Email})
	case verified:
		if err := m.dispatch(DoPickEmail, m.siteInfo()); err != nil {
			return err
		}
		return m.enter(StateAddingEmail, DoAddEmail,
			ActionInfo{Email: m.params.Email, Add: true})
	}
	return m.enter(StateVerifyingPrimaryUser, DoVerifyPrimaryUser,
		ActionInfo{Email: m.primaryEmail, Add: m.params.Add})
}

func (m *Machine) onPrimaryUserAuthenticating(Event) error {
	m.state = StateAuthenticated
	m.finish(OutcomeAuthenticated, "")
	return nil
}

func (m *Machine) onReady(ev Event) error {
	var email string
	switch e := ev.(type) {
	case PrimaryUserReady:
		email = e.Email
	case Authenticated:
		email = e.Email
	}
	m.redirect(EmailChosen{Email: email})
	return nil
}

func (m *Machine) onEmailChosen(ev Event) error {
	e, _ := ev.(EmailChosen)
	id := m.identity(e.Email)
	if id == nil {
		return fmt.Errorf("%w: %s", protocol.ErrInvalidEmail, e.Email)
	}
	m.chosen = e.Email
	info := ActionInfo{Email: e.Email, Type: id.Type}
	switch {
	case id.Type == protocol.Primary:
		// Expired primary certificates are renewed by this path too.
		return m.enter(StateProvisioningPrimaryUser, DoProvisionPrimaryUser, info)
	case m.needsPassword(id):
		return m.enter(StateAuthenticating, DoAuthenticateWithRequiredEmail, info)
	}
	return m.enter(StateGeneratingAssertion, DoEmailChosen, info)
}

// needsPassword reports whether signing in with the secondary id
// requires re-authenticating with a password.
func (m *Machine) needsPassword(id *protocol.Identity) bool {
	return id.Type != protocol.Primary &&
		!m.network.AuthLevel().Satisfies(protocol.AuthPassword)
}

func (m *Machine) onForgotPassword(ev Event) error {
	e, _ := ev.(ForgotPassword)
	return m.enter(StateForgotPassword, DoForgotPassword,
		ActionInfo{Email: e.Email, Required: e.RequiredEmail})
}

func (m *Machine) onResetPassword(ev Event) error {
	e, _ := ev.(ResetPassword)
	return m.enter(StateResetPassword, DoResetPassword, ActionInfo{Email: e.Email})
}

func (m *Machine) onAssertionGenerated(ev Event) error {
	e, _ := ev.(AssertionGenerated)
	if e.Assertion == "" {
		m.redirect(PickEmail{})
		return nil
	}
	if m.chosen != "" {
		if id := m.identity(m.chosen); id != nil && m.needsPassword(id) {
			return m.enter(StateAuthenticating, DoAuthenticateWithRequiredEmail,
				ActionInfo{Email: m.chosen, Type: id.Type})
		}
	}
	if m.network.ShouldAskIfUsersComputer() {
		m.pending = e.Assertion
		m.redirect(IsThisYourComputer{})
		return nil
	}
	return m.complete(e.Assertion)
}

func (m *Machine) onIsThisYourComputer(Event) error {
	return m.enter(StateIsThisYourComputer, DoIsThisYourComputer,
		ActionInfo{Email: m.chosen})
}

func (m *Machine) onComputerStatusSet(Event) error {
	if m.pending == "" {
		return fmt.Errorf("%w: no assertion awaiting release", protocol.ErrUnexpectedEvent)
	}
	return m.complete(m.pending)
}

// complete releases assertion to the controller and ends the flow.
func (m *Machine) complete(assertion string) error {
	err := m.dispatch(DoAssertionGenerated, ActionInfo{
		Email:     m.chosen,
		Assertion: assertion,
		Origin:    m.params.Origin,
	})
	if err != nil {
		return err
	}
	if m.chosen != "" && m.params.Origin != "" {
		if err := m.store.SetSiteEmail(m.params.Origin, m.chosen); err != nil {
			m.logger.Error("cannot remember site email", zap.Error(err))
		}
	}
	m.pending = ""
	m.state = StateAuthenticated
	m.finish(OutcomeAuthenticated, "")
	return nil
}

func (m *Machine) onNotMe(Event) error {
	if err := m.store.Logout(); err != nil {
		m.logger.Error("cannot log out", zap.Error(err))
	}
	if err := m.dispatch(DoNotMe, ActionInfo{}); err != nil {
		return err
	}
	m.state = StateIdle
	m.current = nil
	m.history = nil
	m.chosen = ""
	m.pending = ""
	return nil
}

// onCancelState re-enters the screen before the current one. Leaving
// the reset password screen skips the forgot password step as well, and
// the re-entered screen inherits the email of the skipped ones if it
// has none.
func (m *Machine) onCancelState(Event) error {
	if len(m.history) == 0 {
		return nil
	}
	prev := m.pop()
	if reset, ok := m.current.(ResetPassword); ok && len(m.history) > 0 {
		email := reset.Email
		if email == "" {
			email = emailOf(prev)
		}
		prev = withEmail(m.pop(), email)
	}
	m.current = prev
	return m.process(prev, true)
}

func (m *Machine) onNetworkError(ev Event) error {
	e, _ := ev.(NetworkError)
	reason := e.Reason
	if reason == "" {
		reason = protocol.ErrNetwork.Reason()
	}
	return m.fail(DoError, reason)
}
