/*
Package flow implements the verification state machine that sequences
a sign-in attempt.

Events

The presentation layer and the network collaborators report what
happened by delivering events (Start, EmailChosen, AssertionGenerated,
...). Each event kind has a fixed transition: the machine requests one
or two actions from its Controller and moves to the next State. Some
events redirect to another event instead; redirects run after the
current event, before any event delivered later.

Actions

A Controller exposes its verbs as an ActionTable. The machine looks each
verb up before calling it, so a controller that lacks a verb yields
protocol.ErrUnregisteredAction instead of silently doing nothing.

History

Screens (pick_email, add_email, authenticate, new_user, forgot_password,
reset_password, is_this_your_computer) are recorded in a history stack.
CancelState re-enters the previous screen with its original payload.

Outcomes

A flow ends in at most one of OutcomeAuthenticated, OutcomeError and
OutcomeCancelled. Once it has, the controller is never called again.
*/
package flow
