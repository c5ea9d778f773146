package main

import (
	"log/slog"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/joho/godotenv"

	"github.com/dpereira/expensely/cmd/tui/internal/view"
	"github.com/dpereira/expensely/internal/api"
	"github.com/dpereira/expensely/internal/config"
	"github.com/dpereira/expensely/internal/expense"
	"github.com/dpereira/expensely/internal/guard"
	"github.com/dpereira/expensely/internal/session"
	"github.com/dpereira/expensely/internal/user"
)

type View int

const (
	ViewLogin View = iota
	ViewMenu
	ViewExpenses
	ViewSummary
	ViewAdmin
)

// route names the destination each view corresponds to, so access
// checks can name where a login should return to.
var routes = map[View]struct {
	dest     string
	required user.Role
}{
	ViewExpenses: {dest: "/user/dashboard"},
	ViewSummary:  {dest: "/user/summary"},
	ViewAdmin:    {dest: "/admin/dashboard", required: user.RoleAdmin},
}

type model struct {
	sess   *session.Manager
	cache  *expense.Cache
	client *api.Client

	currentView View
	restoring   bool
	pendingView View
	hasPending  bool
	notice      string

	loginView    view.LoginModel
	expensesView view.ExpensesModel
	summaryView  view.SummaryModel
	adminView    view.AdminModel
}

func initialModel() model {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	storePath := cfg.Session.Path
	if storePath == "" {
		storePath, err = session.DefaultStorePath()
		if err != nil {
			slog.Error("failed to resolve session path", "error", err)
			os.Exit(1)
		}
	}

	client := api.NewClient(cfg.API.BaseURL, cfg.API.Timeout)
	sess := session.NewManager(client, session.NewFileStore(storePath))
	client.Bind(sess)

	cache := expense.NewCache(client, sess)

	return model{
		sess:        sess,
		cache:       cache,
		client:      client,
		currentView: ViewLogin,
		restoring:   true,
		loginView:   view.NewLoginModel(sess, client),
	}
}

type restoredMsg struct{}

func (m model) restoreCmd() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := view.APICtx()
		defer cancel()

		if err := m.sess.Restore(ctx); err != nil {
			slog.Warn("session restore did not complete", "error", err)
		}

		return restoredMsg{}
	}
}

type loggedOutMsg struct{}

func (m model) logoutCmd() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := view.APICtx()
		defer cancel()

		m.sess.Logout(ctx)

		return loggedOutMsg{}
	}
}

func (m model) Init() tea.Cmd {
	return m.restoreCmd()
}

// navigate re-evaluates access for the destination on every switch, so
// a session that expired since the last render can never reach a
// guarded view.
func (m model) navigate(v View) (model, tea.Cmd) {
	r := routes[v]

	res := guard.Check(m.sess.Snapshot(), r.dest, r.required)
	switch res.Decision {
	case guard.RedirectLogin:
		m.pendingView = v
		m.hasPending = true
		m.currentView = ViewLogin
		m.loginView = view.NewLoginModel(m.sess, m.client)

		return m, m.loginView.Init()
	case guard.RedirectUnauthorized:
		m.notice = "You do not have access to that view."
		m.currentView = ViewMenu

		return m, nil
	}

	m.notice = ""
	m.currentView = v

	switch v {
	case ViewExpenses:
		m.expensesView = view.NewExpensesModel(m.cache)
		return m, m.expensesView.Init()
	case ViewSummary:
		m.summaryView = view.NewSummaryModel(m.cache)
		return m, m.summaryView.Init()
	case ViewAdmin:
		m.adminView = view.NewAdminModel(m.client)
		return m, m.adminView.Init()
	}

	return m, nil
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	// A forced expiry can land at any moment from a completion
	// goroutine. Surface it before anything else renders.
	if m.sess.Snapshot().Status == session.StatusExpired {
		if keyMsg, ok := msg.(tea.KeyMsg); ok {
			if keyMsg.String() == "ctrl+c" {
				return m, tea.Quit
			}

			m.sess.AcknowledgeExpiry()
			m.cache.Reset()
			m.notice = "Session expired. Please log in again."
			m.currentView = ViewLogin
			m.loginView = view.NewLoginModel(m.sess, m.client)

			return m, m.loginView.Init()
		}
	}

	switch msg := msg.(type) {
	case restoredMsg:
		m.restoring = false

		if m.sess.Snapshot().Authenticated() {
			m.currentView = ViewMenu
			return m, nil
		}

		m.currentView = ViewLogin

		return m, m.loginView.Init()

	case view.LoggedInMsg:
		m.notice = ""

		if m.hasPending {
			target := m.pendingView
			m.hasPending = false

			return m.navigate(target)
		}

		m.currentView = ViewMenu

		return m, nil

	case loggedOutMsg:
		m.cache.Reset()
		m.notice = "Logged out."
		m.currentView = ViewLogin
		m.loginView = view.NewLoginModel(m.sess, m.client)

		return m, m.loginView.Init()

	case view.BackMsg:
		m.currentView = ViewMenu
		return m, nil

	case tea.KeyMsg:
		if m.currentView == ViewMenu {
			switch msg.String() {
			case "ctrl+c", "q":
				return m, tea.Quit
			case "1":
				return m.navigate(ViewExpenses)
			case "2":
				return m.navigate(ViewSummary)
			case "3":
				return m.navigate(ViewAdmin)
			case "l":
				return m, m.logoutCmd()
			}
		}
	}

	switch m.currentView {
	case ViewLogin:
		var newModel tea.Model
		newModel, cmd = m.loginView.Update(msg)
		m.loginView = newModel.(view.LoginModel)
	case ViewExpenses:
		var newModel tea.Model
		newModel, cmd = m.expensesView.Update(msg)
		m.expensesView = newModel.(view.ExpensesModel)
	case ViewSummary:
		var newModel tea.Model
		newModel, cmd = m.summaryView.Update(msg)
		m.summaryView = newModel.(view.SummaryModel)
	case ViewAdmin:
		var newModel tea.Model
		newModel, cmd = m.adminView.Update(msg)
		m.adminView = newModel.(view.AdminModel)
	}

	return m, cmd
}

func (m model) View() string {
	if m.restoring {
		return lipgloss.NewStyle().Padding(2).Render("Restoring session...")
	}

	if m.sess.Snapshot().Status == session.StatusExpired {
		return lipgloss.NewStyle().Padding(2).Render(
			"Session expired. Press any key to sign in again.")
	}

	var content string

	switch m.currentView {
	case ViewMenu:
		s := m.sess.Snapshot()

		name := ""
		if s.User != nil {
			name = s.User.Username
		}

		menu := "Expensely\n\nSigned in as " + name + "\n\n" +
			"1. Expenses\n" +
			"2. Summary\n"

		if s.User != nil && s.User.Role == user.RoleAdmin {
			menu += "3. Admin\n"
		}

		menu += "\nl. Logout\nq. Quit"

		content = lipgloss.NewStyle().Padding(2).Render(menu)
	case ViewLogin:
		content = m.loginView.View()
	case ViewExpenses:
		content = m.expensesView.View()
	case ViewSummary:
		content = m.summaryView.View()
	case ViewAdmin:
		content = m.adminView.View()
	default:
		content = "Unknown View"
	}

	if m.notice != "" {
		return lipgloss.NewStyle().Padding(0, 2).Faint(true).Render(m.notice) + "\n" + content
	}

	return content
}

func main() {
	p := tea.NewProgram(initialModel())
	if _, err := p.Run(); err != nil {
		slog.Error("failed to run TUI", "error", err)
		os.Exit(1)
	}
}
