package session

import (
	"context"
	"sync"
	"time"

	"github.com/rodneysullivan/browserid/protocol"
	"github.com/rodneysullivan/browserid/protocol/flow"
)

// DefaultPollInterval is the time between two registration checks.
const DefaultPollInterval = 3 * time.Second

// A Kind tells which confirmation is awaited.
type Kind int

const (
	// KindUser awaits confirmation of a new account.
	KindUser Kind = iota
	// KindEmail awaits confirmation of an address added to an account.
	KindEmail
)

// A Status is the server's view of a pending registration.
type Status string

const (
	StatusPending        Status = "pending"
	StatusComplete       Status = "complete"
	StatusMustAuth       Status = "mustAuth"
	StatusNoRegistration Status = "noRegistration"
)

// A RegistrationChecker asks the server for the status of the pending
// registration of email.
type RegistrationChecker interface {
	RegistrationStatus(ctx context.Context, email string, kind Kind) (Status, error)
}

// SlotClearer clears the staged-on-behalf-of slot.
type SlotClearer interface {
	ClearStagedOnBehalfOf() error
}

// A Waiter polls for the confirmation of one registration at a time and
// delivers its resolution as a flow event:
//
//	complete        user_confirmed or email_confirmed
//	mustAuth        authenticate{email}
//	noRegistration  network_error{registration_not_found}
//	transport error network_error{network_error}
//
// The staged-on-behalf-of slot is cleared on the first three and kept on
// transport errors and on Cancel, so the flow can resume.
type Waiter struct {
	Checker  RegistrationChecker
	Slot     SlotClearer
	Interval time.Duration

	mu     sync.Mutex
	gen    uint64
	cancel context.CancelFunc
}

// Wait starts waiting for email and returns immediately. deliver is
// called at most once, from another goroutine, and never after Cancel
// or a later Wait has returned. deliver must not call Cancel or Wait.
func (w *Waiter) Wait(ctx context.Context, email string, kind Kind, deliver func(flow.Event)) {
	ctx, cancel := context.WithCancel(ctx)

	w.mu.Lock()
	if w.cancel != nil {
		w.cancel()
	}
	w.gen++
	gen := w.gen
	w.cancel = cancel
	w.mu.Unlock()

	go w.poll(ctx, gen, w.Checker, email, kind, deliver)
}

// Cancel stops the current wait. Once Cancel returns, the wait's
// deliver function is not called.
func (w *Waiter) Cancel() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.cancel != nil {
		w.cancel()
		w.cancel = nil
	}
	w.gen++
}

func (w *Waiter) interval() time.Duration {
	if w.Interval <= 0 {
		return DefaultPollInterval
	}
	return w.Interval
}

func (w *Waiter) poll(ctx context.Context, gen uint64, checker RegistrationChecker,
	email string, kind Kind, deliver func(flow.Event)) {
	ticker := time.NewTicker(w.interval())
	defer ticker.Stop()
	for {
		status, err := checker.RegistrationStatus(ctx, email, kind)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			w.resolve(gen, false, flow.NetworkError{Reason: protocol.ErrNetwork.Reason()}, deliver)
			return
		}
		switch status {
		case StatusComplete:
			var ev flow.Event = flow.UserConfirmed{}
			if kind == KindEmail {
				ev = flow.EmailConfirmed{}
			}
			w.resolve(gen, true, ev, deliver)
			return
		case StatusMustAuth:
			w.resolve(gen, true, flow.Authenticate{Email: email}, deliver)
			return
		case StatusNoRegistration:
			w.resolve(gen, true, flow.NetworkError{Reason: protocol.ErrRegistrationNotFound.Reason()}, deliver)
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// resolve delivers ev if the wait of generation gen is still current.
// deliver runs under the lock, so Cancel waits for it.
func (w *Waiter) resolve(gen uint64, clearSlot bool, ev flow.Event, deliver func(flow.Event)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if gen != w.gen {
		return
	}
	if w.cancel != nil {
		w.cancel()
		w.cancel = nil
	}
	w.gen++
	if clearSlot && w.Slot != nil {
		w.Slot.ClearStagedOnBehalfOf()
	}
	deliver(ev)
}
