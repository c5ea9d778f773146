package view

import (
	"fmt"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"

	"github.com/dpereira/expensely/internal/api"
	"github.com/dpereira/expensely/internal/expense"
	"github.com/dpereira/expensely/internal/user"
)

type adminState int

const (
	adminStateUsers adminState = iota
	adminStateExpenses
)

// AdminModel is the administrator's console: the account roster and a
// read-only view of any user's expenses.
type AdminModel struct {
	CommonModel
	api *api.Client

	state adminState

	usersTable    table.Model
	users         []*user.User
	expensesTable table.Model
	expenses      []*expense.Expense
	inspected     string

	loading bool
	err     error
	status  string
}

func NewAdminModel(client *api.Client) AdminModel {
	usersCols := []table.Column{
		{Title: "Username", Width: 20},
		{Title: "Email", Width: 30},
		{Title: "Role", Width: 12},
	}

	expenseCols := []table.Column{
		{Title: "Date", Width: 12},
		{Title: "Title", Width: 24},
		{Title: "Category", Width: 14},
		{Title: "Amount", Width: 12},
	}

	ut := table.New(table.WithColumns(usersCols), table.WithFocused(true), table.WithHeight(15))
	et := table.New(table.WithColumns(expenseCols), table.WithHeight(15))

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		BorderBottom(true).
		Bold(false)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("229")).
		Background(lipgloss.Color("57")).
		Bold(false)
	ut.SetStyles(s)
	et.SetStyles(s)

	return AdminModel{api: client, usersTable: ut, expensesTable: et, loading: true}
}

func (m AdminModel) Title() string { return "Admin" }
func (m AdminModel) ShortHelp() string {
	if m.state == adminStateExpenses {
		return "Esc: back to users"
	}

	return "Esc: back | enter: view expenses | p: toggle role | r: refresh"
}

func (m AdminModel) Init() tea.Cmd {
	return m.loadUsersCmd()
}

func (m AdminModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case adminUsersMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}

		m.err = nil
		m.users = msg.users
		m.refreshUsers()

		return m, nil

	case adminExpensesMsg:
		m.loading = false
		if msg.err != nil {
			m.status = errorMessage(msg.err)
			return m, nil
		}

		m.status = ""
		m.expenses = msg.items
		m.state = adminStateExpenses
		m.refreshExpenses()

		return m, nil

	case adminRoleMsg:
		if msg.err != nil {
			m.status = errorMessage(msg.err)
			return m, nil
		}

		m.status = "Role updated"

		return m, m.loadUsersCmd()

	case tea.WindowSizeMsg:
		m.usersTable.SetHeight(msg.Height - 10)
		m.expensesTable.SetHeight(msg.Height - 10)

		return m, nil
	}

	if m.state == adminStateExpenses {
		return m.updateExpenses(msg)
	}

	return m.updateUsers(msg)
}

func (m AdminModel) updateUsers(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch keyMsg.String() {
		case "esc":
			return m, Back
		case "r":
			m.loading = true
			return m, m.loadUsersCmd()
		case "enter":
			if idx := m.usersTable.Cursor(); idx >= 0 && idx < len(m.users) {
				u := m.users[idx]
				m.inspected = u.Username

				return m, m.loadExpensesCmd(u.ID)
			}

			return m, nil
		case "p":
			if idx := m.usersTable.Cursor(); idx >= 0 && idx < len(m.users) {
				u := m.users[idx]

				next := user.RoleAdmin
				if u.Role == user.RoleAdmin {
					next = user.RoleUser
				}

				return m, m.updateRoleCmd(u.ID, next)
			}

			return m, nil
		}
	}

	var cmd tea.Cmd
	m.usersTable, cmd = m.usersTable.Update(msg)

	return m, cmd
}

func (m AdminModel) updateExpenses(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		if keyMsg.Type == tea.KeyEsc {
			m.state = adminStateUsers
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.expensesTable, cmd = m.expensesTable.Update(msg)

	return m, cmd
}

func (m AdminModel) View() string {
	if m.loading {
		return lipgloss.NewStyle().Padding(2).Render("Loading...")
	}

	if m.err != nil {
		return lipgloss.NewStyle().Padding(2).Render(
			fmt.Sprintf("Error: %s\n\nr: retry | Esc: back", errorMessage(m.err)))
	}

	var header string

	var tbl string

	if m.state == adminStateExpenses {
		header = fmt.Sprintf("Expenses of %s (%d) | Total: %s",
			m.inspected, len(m.expenses), FormatAmount(expense.Total(m.expenses)))
		tbl = m.expensesTable.View()
	} else {
		header = fmt.Sprintf("Users (%d)", len(m.users))
		tbl = m.usersTable.View()
	}

	content := lipgloss.JoinVertical(lipgloss.Left,
		lipgloss.NewStyle().PaddingBottom(1).Render(header),
		lipgloss.NewStyle().
			BorderStyle(lipgloss.NormalBorder()).
			BorderForeground(lipgloss.Color("240")).
			Render(tbl),
	)

	if m.status != "" {
		content = lipgloss.NewStyle().Faint(true).Render(m.status) + "\n" + content
	}

	return lipgloss.NewStyle().Padding(1).Render(content)
}

func (m *AdminModel) refreshUsers() {
	rows := make([]table.Row, 0, len(m.users))
	for _, u := range m.users {
		rows = append(rows, table.Row{u.Username, u.Email, string(u.Role)})
	}

	m.usersTable.SetRows(rows)
}

func (m *AdminModel) refreshExpenses() {
	rows := make([]table.Row, 0, len(m.expenses))
	for _, e := range m.expenses {
		rows = append(rows, table.Row{
			FormatDate(e.Date),
			e.Title,
			string(e.Category),
			FormatAmount(e.Amount),
		})
	}

	m.expensesTable.SetRows(rows)
}

// Messages

type adminUsersMsg struct {
	users []*user.User
	err   error
}

func (m AdminModel) loadUsersCmd() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := APICtx()
		defer cancel()

		users, err := m.api.ListUsers(ctx)

		return adminUsersMsg{users: users, err: err}
	}
}

type adminExpensesMsg struct {
	items []*expense.Expense
	err   error
}

func (m AdminModel) loadExpensesCmd(id uuid.UUID) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := APICtx()
		defer cancel()

		items, err := m.api.UserExpenses(ctx, id)

		return adminExpensesMsg{items: items, err: err}
	}
}

type adminRoleMsg struct {
	err error
}

func (m AdminModel) updateRoleCmd(id uuid.UUID, role user.Role) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := APICtx()
		defer cancel()

		return adminRoleMsg{err: m.api.UpdateUserRole(ctx, id, role)}
	}
}
