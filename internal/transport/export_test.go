package transport

import "github.com/beamline-remote/hwr-client/internal/protocol"

// Connected reports whether a wants its channels open.
func Connected(a *Adapter) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.connected
}

// Running reports whether ch has a live dial loop.
func Running(a *Adapter, ch protocol.Channel) bool {
	a.mu.Lock()
	c, ok := a.channels[ch]
	a.mu.Unlock()
	return ok && c.running()
}
