// Package control decides which advisory to show when the server reports
// a change in who holds exclusive control of the beamline.
package control

import "github.com/beamline-remote/hwr-client/internal/state"

// Advisory is the outcome of one control transition.
type Advisory int

const (
	None Advisory = iota
	Granted
	Lost
	Denied
)

func (a Advisory) String() string {
	switch a {
	case Granted:
		return "granted"
	case Lost:
		return "lost"
	case Denied:
		return "denied"
	}
	return "none"
}

// Transition holds the local control flags before and after an
// authoritative refresh. IncomingRequest is true when any observer is
// asking for control.
type Transition struct {
	WasInControl    bool
	InControl       bool
	WasRequesting   bool
	Requesting      bool
	IncomingRequest bool
}

// NewTransition builds a Transition from the user before the refresh,
// the user after it, and the current observer list.
func NewTransition(before, after state.User, observers []state.Observer) Transition {
	t := Transition{
		WasInControl:  before.InControl,
		InControl:     after.InControl,
		WasRequesting: before.RequestsControl,
		Requesting:    after.RequestsControl,
	}
	for _, o := range observers {
		if o.RequestsControl {
			t.IncomingRequest = true
			break
		}
	}
	return t
}

// Decide applies the first matching rule. A grant is not announced while
// another observer's request is pending.
func Decide(t Transition) Advisory {
	switch {
	case !t.WasInControl && t.InControl && !t.IncomingRequest:
		return Granted
	case t.WasInControl && !t.InControl:
		return Lost
	case t.WasRequesting && !t.Requesting && !t.InControl:
		return Denied
	}
	return None
}

// Dialog returns the wait dialog for an advisory, or false for None.
// message is the text the server attached to the change.
func (a Advisory) Dialog(message string) (state.WaitDialogRequest, bool) {
	switch a {
	case Granted:
		return state.WaitDialogRequest{Title: "You were given control", Message: message}, true
	case Lost:
		return state.WaitDialogRequest{Title: "You lost control"}, true
	case Denied:
		return state.WaitDialogRequest{Title: "You were denied control", Message: message}, true
	}
	return state.WaitDialogRequest{}, false
}
