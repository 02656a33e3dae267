package control

import (
	"fmt"
	"testing"

	"github.com/beamline-remote/hwr-client/internal/state"
)

// expected re-states the rule table independently of Decide's switch.
func expected(t Transition) Advisory {
	if !t.WasInControl && t.InControl && !t.IncomingRequest {
		return Granted
	}
	if t.WasInControl && !t.InControl {
		return Lost
	}
	if t.WasRequesting && !t.Requesting && !t.InControl {
		return Denied
	}
	return None
}

func TestDecideAllCombinations(t *testing.T) {
	counts := map[Advisory]int{}
	for bits := 0; bits < 32; bits++ {
		tr := Transition{
			WasInControl:    bits&1 != 0,
			InControl:       bits&2 != 0,
			WasRequesting:   bits&4 != 0,
			Requesting:      bits&8 != 0,
			IncomingRequest: bits&16 != 0,
		}
		t.Run(fmt.Sprintf("%05b", bits), func(t *testing.T) {
			if got, want := Decide(tr), expected(tr); got != want {
				t.Errorf("Decide(%+v) = %v, want %v", tr, got, want)
			}
		})
		counts[Decide(tr)]++
	}

	// 2 free bits (requesting flags) x grant with no incoming request.
	if counts[Granted] != 4 {
		t.Errorf("Granted fired for %d tuples, want 4", counts[Granted])
	}
	// wasInControl && !inControl, 3 free bits.
	if counts[Lost] != 8 {
		t.Errorf("Lost fired for %d tuples, want 8", counts[Lost])
	}
	// !wasInControl && !inControl && wasRequesting && !requesting, 1 free bit.
	if counts[Denied] != 2 {
		t.Errorf("Denied fired for %d tuples, want 2", counts[Denied])
	}
	if total := counts[None] + counts[Granted] + counts[Lost] + counts[Denied]; total != 32 {
		t.Errorf("total = %d, want 32", total)
	}
}

func TestGrantSuppressedByIncomingRequest(t *testing.T) {
	tr := Transition{InControl: true, IncomingRequest: true}
	if got := Decide(tr); got != None {
		t.Errorf("Decide = %v, want none", got)
	}
}

func TestNewTransition(t *testing.T) {
	before := state.User{InControl: false, RequestsControl: true}
	after := state.User{InControl: true}
	observers := []state.Observer{{Nickname: "a"}, {Nickname: "b", RequestsControl: true}}

	tr := NewTransition(before, after, observers)
	want := Transition{InControl: true, WasRequesting: true, IncomingRequest: true}
	if tr != want {
		t.Errorf("NewTransition = %+v, want %+v", tr, want)
	}

	if NewTransition(before, after, nil).IncomingRequest {
		t.Error("IncomingRequest true with no observers")
	}
}

func TestDialog(t *testing.T) {
	tests := []struct {
		advisory Advisory
		title    string
		message  string
		ok       bool
	}{
		{Granted, "You were given control", "msg", true},
		{Lost, "You lost control", "", true},
		{Denied, "You were denied control", "msg", true},
		{None, "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.advisory.String(), func(t *testing.T) {
			req, ok := tt.advisory.Dialog("msg")
			if ok != tt.ok {
				t.Fatalf("ok = %v, want %v", ok, tt.ok)
			}
			if req.Title != tt.title || req.Message != tt.message {
				t.Errorf("Dialog = %+v", req)
			}
			if req.Cancellable {
				t.Error("control advisories are not cancellable")
			}
		})
	}
}
