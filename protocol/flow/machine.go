package flow

import (
	"github.com/google/uuid"
	"github.com/rodneysullivan/browserid/protocol"
	"go.uber.org/zap"
)

// State is the screen or step the flow is in.
type State string

const (
	StateIdle                    State = "idle"
	StateCheckingAuth            State = "checking_auth"
	StatePickingEmail            State = "picking_email"
	StateAddingEmail             State = "adding_email"
	StateAuthenticating          State = "authenticating"
	StateSettingPassword         State = "setting_password"
	StateStagingUser             State = "staging_user"
	StateConfirmingSecondary     State = "confirming_secondary_email"
	StateEmailConfirmed          State = "email_confirmed"
	StateProvisioningPrimaryUser State = "provisioning_primary_user"
	StateVerifyingPrimaryUser    State = "verifying_primary_user"
	StateGeneratingAssertion     State = "generating_assertion"
	StateForgotPassword          State = "forgot_password"
	StateResetPassword           State = "reset_password"
	StateIsThisYourComputer      State = "is_this_your_computer"
	StateAuthenticated           State = "authenticated"
	StateError                   State = "error"
	StateCancelled               State = "cancelled"
)

// Outcome is the terminal result of a flow. A flow reaches at most one.
type Outcome int

const (
	Pending Outcome = iota
	OutcomeAuthenticated
	OutcomeError
	OutcomeCancelled
)

var outcomeNames = [...]string{"pending", "authenticated", "error", "cancelled"}

func (o Outcome) String() string {
	if int(o) < len(outcomeNames) {
		return outcomeNames[o]
	}
	return "unknown"
}

// A Machine sequences one verification flow. It consumes events and
// requests actions from its controller. Events are processed one at a
// time, in delivery order; an event delivered while another is being
// processed, for example from inside an action, is queued. A Machine is
// not safe for concurrent use; see Loop.
type Machine struct {
	id      uuid.UUID
	logger  *zap.Logger
	clock   protocol.Clock
	network Network
	store   Store

	actions ActionTable
	started bool

	state   State
	outcome Outcome
	reason  string

	params   Start
	required bool

	current Event
	history []Event

	redirects []Event
	inbox     []Event
	busy      bool

	newUserEmail string
	primaryEmail string
	chosen       string
	pending      string
}

// An Option configures a Machine.
type Option func(*Machine)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(m *Machine) { m.logger = l }
}

// WithClock sets the server-synchronized clock used to check
// certificates.
func WithClock(c protocol.Clock) Option {
	return func(m *Machine) { m.clock = c }
}

// WithNetwork sets the source of session context.
func WithNetwork(n Network) Option {
	return func(m *Machine) { m.network = n }
}

// WithStore sets the identity store.
func WithStore(s Store) Option {
	return func(m *Machine) { m.store = s }
}

// New returns an idle machine. It must be started with a controller
// before it accepts events.
func New(opts ...Option) *Machine {
	m := &Machine{
		id:      uuid.New(),
		logger:  zap.NewNop(),
		clock:   protocol.SystemClock{},
		network: offlineNetwork{},
		store:   emptyStore{},
		state:   StateIdle,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.logger = m.logger.With(zap.String("flow", m.id.String()))
	return m
}

// Start binds c to the machine. A nil controller is
// protocol.ErrNoController and leaves the machine unusable.
func (m *Machine) Start(c Controller) error {
	if c == nil {
		return protocol.ErrNoController
	}
	m.actions = c.Actions()
	m.started = true
	return nil
}

// Stop unbinds the controller. Later events fail with
// protocol.ErrNoController.
func (m *Machine) Stop() {
	m.actions = nil
	m.started = false
}

// ID identifies the flow in logs.
func (m *Machine) ID() uuid.UUID { return m.id }

// State returns the current state.
func (m *Machine) State() State { return m.state }

// Outcome returns the terminal outcome, or Pending.
func (m *Machine) Outcome() Outcome { return m.outcome }

// Reason returns the reason key of an OutcomeError.
func (m *Machine) Reason() string { return m.reason }

// History returns the kinds of the screens that cancel_state can return
// to, oldest first.
func (m *Machine) History() []EventKind {
	kinds := make([]EventKind, len(m.history))
	for i, ev := range m.history {
		kinds[i] = ev.Kind()
	}
	return kinds
}

// Handle delivers ev. It returns the first error met while processing
// ev and the redirects it caused. Terminal states accept no further
// events: those fail with protocol.ErrFlowComplete.
func (m *Machine) Handle(ev Event) error {
	if !m.started {
		return protocol.ErrNoController
	}
	if ev == nil {
		return protocol.ErrUnexpectedEvent
	}
	m.inbox = append(m.inbox, ev)
	if m.busy {
		return nil
	}
	m.busy = true
	defer func() { m.busy = false }()

	var first error
	for {
		next, ok := m.next()
		if !ok {
			break
		}
		if err := m.process(next, false); err != nil {
			m.logger.Warn("event failed",
				zap.String("event", string(next.Kind())),
				zap.String("state", string(m.state)),
				zap.Error(err))
			if first == nil {
				first = err
			}
		}
	}
	return first
}

// next pops the next event. Redirects run before queued deliveries.
func (m *Machine) next() (Event, bool) {
	var ev Event
	switch {
	case len(m.redirects) > 0:
		ev, m.redirects = m.redirects[0], m.redirects[1:]
	case len(m.inbox) > 0:
		ev, m.inbox = m.inbox[0], m.inbox[1:]
	default:
		return nil, false
	}
	return ev, true
}

func (m *Machine) process(ev Event, reentry bool) error {
	if m.outcome != Pending {
		return protocol.ErrFlowComplete
	}
	t, ok := transitions[ev.Kind()]
	if !ok {
		return protocol.ErrUnexpectedEvent
	}
	m.logger.Debug("event",
		zap.String("event", string(ev.Kind())),
		zap.String("state", string(m.state)),
		zap.Bool("reentry", reentry))
	if err := t.handle(m, ev); err != nil {
		return err
	}
	if t.screen && !reentry {
		m.push(ev)
	}
	return nil
}

func (m *Machine) push(ev Event) {
	if m.current != nil {
		m.history = append(m.history, m.current)
	}
	m.current = ev
}

func (m *Machine) pop() Event {
	last := len(m.history) - 1
	ev := m.history[last]
	m.history = m.history[:last]
	return ev
}

func (m *Machine) redirect(ev Event) {
	m.redirects = append(m.redirects, ev)
}

func (m *Machine) dispatch(a Action, info ActionInfo) error {
	fn, err := m.actions.lookup(a)
	if err != nil {
		return err
	}
	m.logger.Debug("action", zap.String("action", string(a)),
		zap.String("email", info.Email))
	fn(info)
	return nil
}

// enter requests a and moves to s.
func (m *Machine) enter(s State, a Action, info ActionInfo) error {
	if err := m.dispatch(a, info); err != nil {
		return err
	}
	m.state = s
	return nil
}

// fail requests the error screen a with reason and ends the flow.
func (m *Machine) fail(a Action, reason string) error {
	info := ActionInfo{Reason: reason}
	if m.required {
		info.Email = *m.params.RequiredEmail
		info.Required = true
	}
	if err := m.dispatch(a, info); err != nil {
		return err
	}
	m.state = StateError
	m.finish(OutcomeError, reason)
	return nil
}

func (m *Machine) finish(o Outcome, reason string) {
	m.outcome = o
	m.reason = reason
	m.redirects = nil
	m.logger.Info("flow complete", zap.Stringer("outcome", o),
		zap.String("reason", reason))
}

// siteInfo carries the flow parameters that must survive every round
// trip back to the email picker.
func (m *Machine) siteInfo() ActionInfo {
	info := ActionInfo{
		Origin:     m.params.Origin,
		PrivacyURL: m.params.PrivacyURL,
		TOSURL:     m.params.TOSURL,
		Add:        m.params.Add,
	}
	if m.required {
		info.Email = *m.params.RequiredEmail
		info.Required = true
	}
	return info
}

func (m *Machine) identity(email string) *protocol.Identity {
	id, err := m.store.Identity(email)
	if err != nil {
		m.logger.Error("cannot read identity", zap.String("email", email),
			zap.Error(err))
		return nil
	}
	return id
}
