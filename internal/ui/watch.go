package ui

import (
	"github.com/beamline-remote/hwr-client/internal/state"
	tea "github.com/charmbracelet/bubbletea"
)

// Watch forwards store changes to send as ChangedMsg. Bursts of
// mutations collapse into a single message so the dispatch loop never
// waits on rendering. The returned function stops forwarding.
func Watch(store *state.Store, send func(tea.Msg)) func() {
	changed := make(chan struct{}, 1)
	stop := make(chan struct{})

	unsubscribe := store.Subscribe(func(state.Mutation) {
		select {
		case changed <- struct{}{}:
		default:
		}
	})

	go func() {
		for {
			select {
			case <-stop:
				return
			case <-changed:
				send(ChangedMsg{})
			}
		}
	}()

	return func() {
		unsubscribe()
		close(stop)
	}
}
