package view

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/dpereira/expensely/internal/user"
)

const apiTimeout = 15 * time.Second

type CommonModel struct {
	Width  int
	Height int
}

type BackMsg struct{}

func Back() tea.Msg {
	return BackMsg{}
}

// LoggedInMsg reports a completed login with the resolved role, so the
// root can dispatch to the role's landing view.
type LoggedInMsg struct {
	Role user.Role
}

// APICtx returns a context with the standard timeout for server calls.
func APICtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), apiTimeout)
}
