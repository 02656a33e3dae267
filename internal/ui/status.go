package ui

import (
	"github.com/beamline-remote/hwr-client/internal/protocol"
	"github.com/beamline-remote/hwr-client/internal/state"
	"github.com/beamline-remote/hwr-client/internal/supervisor"
	"github.com/charmbracelet/lipgloss"
)

// statusBar renders channel connectivity and the local control state.
type statusBar struct {
	channels []supervisor.Handle
	login    state.LoginInfo
	lost     bool
	width    int
}

func (b statusBar) View() string {
	width := b.width
	if width < 40 {
		width = 40
	}

	sep := lipgloss.NewStyle().Foreground(colorBorder).Render(" | ")
	var content string
	for i, h := range b.channels {
		if i > 0 {
			content += sep
		}
		content += channelBadge(h)
	}

	user := "not logged in"
	userColor := colorDimmed
	if b.login.LoggedIn {
		user = b.login.User.Nickname
		if user == "" {
			user = b.login.User.Username
		}
		switch {
		case b.login.User.InControl:
			user += " (in control)"
			userColor = colorControl
		case b.login.User.RequestsControl:
			user += " (requesting control)"
			userColor = colorWarning
		default:
			user += " (observer)"
			userColor = colorBright
		}
	}
	content += sep + lipgloss.NewStyle().Foreground(userColor).Render(user)

	if b.lost {
		content += sep + styleBanner.Render("CONNECTION LOST")
	}

	return lipgloss.NewStyle().
		Width(width).
		Padding(0, 1).
		BorderStyle(lipgloss.DoubleBorder()).
		BorderForeground(colorBorder).
		Render(content)
}

func channelBadge(h supervisor.Handle) string {
	name := string(h.Channel)
	switch h.Status {
	case supervisor.Connected:
		return lipgloss.NewStyle().Foreground(colorHealthy).Render("● " + name)
	case supervisor.Connecting:
		return lipgloss.NewStyle().Foreground(colorWarning).Render("◌ " + name + " connecting...")
	}
	label := "○ " + name + " down"
	if h.LastReason != "" {
		label += " (" + h.LastReason + ")"
	}
	return lipgloss.NewStyle().Foreground(colorDanger).Render(label)
}

func channelHandles(status func(protocol.Channel) supervisor.Handle) []supervisor.Handle {
	out := make([]supervisor.Handle, 0, len(protocol.Channels))
	for _, ch := range protocol.Channels {
		out = append(out, status(ch))
	}
	return out
}
