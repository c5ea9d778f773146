package view

import (
	"errors"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/dpereira/expensely/internal/api"
	"github.com/dpereira/expensely/internal/session"
	"github.com/dpereira/expensely/internal/user"
)

type loginMode int

const (
	modeLogin loginMode = iota
	modeRegister
)

type LoginModel struct {
	CommonModel
	sess *session.Manager
	api  *api.Client

	mode       loginMode
	form       *huh.Form
	submitting bool
	status     string

	formEmail    string
	formPassword string
	formUsername string
	formConfirm  string
}

func NewLoginModel(sess *session.Manager, client *api.Client) LoginModel {
	m := LoginModel{sess: sess, api: client}
	m.form = m.buildForm()

	return m
}

func (m LoginModel) Title() string { return "Sign In" }
func (m LoginModel) ShortHelp() string {
	if m.mode == modeRegister {
		return "Navigate form | Ctrl+R: back to sign in"
	}

	return "Navigate form | Ctrl+R: create account"
}

func (m LoginModel) buildForm() *huh.Form {
	fields := []huh.Field{}

	if m.mode == modeRegister {
		fields = append(fields,
			huh.NewInput().
				Key("username").
				Title("Username").
				Value(&m.formUsername).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return fmt.Errorf("username cannot be empty")
					}
					return nil
				}),
		)
	}

	fields = append(fields,
		huh.NewInput().
			Key("email").
			Title("Email").
			Value(&m.formEmail).
			Validate(func(s string) error {
				if strings.TrimSpace(s) == "" {
					return fmt.Errorf("email cannot be empty")
				}
				return nil
			}),

		huh.NewInput().
			Key("password").
			Title("Password").
			EchoMode(huh.EchoModePassword).
			Value(&m.formPassword),
	)

	if m.mode == modeRegister {
		fields = append(fields,
			huh.NewInput().
				Key("confirm").
				Title("Confirm Password").
				EchoMode(huh.EchoModePassword).
				Value(&m.formConfirm),
		)
	}

	return huh.NewForm(huh.NewGroup(fields...)).WithWidth(45).WithShowHelp(false)
}

func (m LoginModel) Init() tea.Cmd {
	return m.form.Init()
}

func (m LoginModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case loginDoneMsg:
		m.submitting = false
		if msg.err != nil {
			m.status = errorMessage(msg.err)
			m.form = m.buildForm()

			return m, m.form.Init()
		}

		return m, func() tea.Msg { return LoggedInMsg{Role: msg.role} }

	case registerDoneMsg:
		m.submitting = false
		if msg.err != nil {
			m.status = errorMessage(msg.err)
			m.form = m.buildForm()

			return m, m.form.Init()
		}

		m.mode = modeLogin
		m.status = "Account created. Sign in to continue."
		m.formPassword = ""
		m.formConfirm = ""
		m.form = m.buildForm()

		return m, m.form.Init()

	case tea.KeyMsg:
		if msg.String() == "ctrl+r" && !m.submitting {
			if m.mode == modeLogin {
				m.mode = modeRegister
			} else {
				m.mode = modeLogin
			}

			m.status = ""
			m.form = m.buildForm()

			return m, m.form.Init()
		}
	}

	if m.submitting {
		return m, nil
	}

	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State != huh.StateCompleted {
		return m, cmd
	}

	m.submitting = true
	m.status = ""

	if m.mode == modeRegister {
		return m, m.registerCmd()
	}

	return m, m.loginCmd()
}

func (m LoginModel) View() string {
	title := "Sign In"
	if m.mode == modeRegister {
		title = "Create Account"
	}

	body := m.form.View()
	if m.submitting {
		body = "Submitting..."
	}

	content := fmt.Sprintf("%s\n\n%s", title, body)
	if m.status != "" {
		content += "\n\n" + lipgloss.NewStyle().Foreground(lipgloss.Color("203")).Render(m.status)
	}

	return lipgloss.NewStyle().Padding(1, 2).Render(content)
}

// Messages

type loginDoneMsg struct {
	role user.Role
	err  error
}

func (m LoginModel) loginCmd() tea.Cmd {
	email := m.form.GetString("email")
	password := m.form.GetString("password")

	return func() tea.Msg {
		ctx, cancel := APICtx()
		defer cancel()

		role, err := m.sess.Login(ctx, email, password)

		return loginDoneMsg{role: role, err: err}
	}
}

type registerDoneMsg struct {
	err error
}

func (m LoginModel) registerCmd() tea.Cmd {
	p := api.RegisterParams{
		Username:        m.form.GetString("username"),
		Email:           m.form.GetString("email"),
		Password:        m.form.GetString("password"),
		ConfirmPassword: m.form.GetString("confirm"),
	}

	return func() tea.Msg {
		ctx, cancel := APICtx()
		defer cancel()

		return registerDoneMsg{err: m.api.Register(ctx, p)}
	}
}

// errorMessage prefers the API error's user-facing message over the
// raw error chain.
func errorMessage(err error) string {
	var apiErr *api.Error
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}

	var valErr *session.ValidationError
	if errors.As(err, &valErr) {
		return valErr.Reason
	}

	return err.Error()
}
