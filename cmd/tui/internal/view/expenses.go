package view

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dpereira/expensely/internal/expense"
)

type expensesState int

const (
	expensesStateBrowse expensesState = iota
	expensesStateAdd
	expensesStateEdit
	expensesStateConfirmDelete
)

type ExpensesModel struct {
	CommonModel
	cache *expense.Cache

	state expensesState
	table table.Model
	items []*expense.Expense
	form  *huh.Form

	editID  uuid.UUID
	loading bool
	err     error
	status  string

	// Form bindings
	formTitle    string
	formAmount   string
	formDate     string
	formCategory expense.Category
	formDesc     string
	formImage    string
}

func NewExpensesModel(cache *expense.Cache) ExpensesModel {
	columns := []table.Column{
		{Title: "Date", Width: 12},
		{Title: "Title", Width: 24},
		{Title: "Category", Width: 14},
		{Title: "Amount", Width: 12},
		{Title: "Description", Width: 30},
		{Title: "Receipt", Width: 10},
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(15),
	)

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
	t.SetStyles(s)

	return ExpensesModel{cache: cache, table: t, loading: true}
}

func (m ExpensesModel) Title() string { return "Expenses" }
func (m ExpensesModel) ShortHelp() string {
	switch m.state {
	case expensesStateAdd, expensesStateEdit:
		return "Navigate form | Esc: cancel"
	case expensesStateConfirmDelete:
		return "y: delete | n: keep"
	}

	return "Esc: back | a: add | e: edit | x: delete | r: refresh"
}

func (m ExpensesModel) Init() tea.Cmd {
	return m.loadCmd()
}

func (m ExpensesModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case expensesLoadedMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}

		m.err = nil
		m.items = m.cache.Items()
		m.refreshTable()

		return m, nil

	case expenseSavedMsg:
		if msg.err != nil {
			m.status = errorMessage(msg.err)
		} else {
			m.status = ""
			m.items = m.cache.Items()
			m.refreshTable()
		}

		m.state = expensesStateBrowse
		m.form = nil
		m.table.Focus()

		return m, nil

	case expenseDeletedMsg:
		if msg.err != nil {
			m.status = errorMessage(msg.err)
		} else {
			m.status = ""
			m.items = m.cache.Items()
			m.refreshTable()
		}

		m.state = expensesStateBrowse
		m.table.Focus()

		return m, nil

	case tea.WindowSizeMsg:
		m.table.SetHeight(msg.Height - 10)
		return m, nil
	}

	switch m.state {
	case expensesStateBrowse:
		return m.updateBrowse(msg)
	case expensesStateAdd, expensesStateEdit:
		return m.updateForm(msg)
	case expensesStateConfirmDelete:
		return m.updateConfirm(msg)
	}

	return m, nil
}

func (m ExpensesModel) updateBrowse(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch keyMsg.String() {
		case "esc":
			return m, Back
		case "r":
			m.loading = true
			return m, m.loadCmd()
		case "a":
			return m.enterAddMode()
		case "e":
			return m.enterEditMode()
		case "x":
			if idx := m.table.Cursor(); idx >= 0 && idx < len(m.items) {
				m.state = expensesStateConfirmDelete
				m.table.Blur()
			}

			return m, nil
		}
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)

	return m, cmd
}

func (m ExpensesModel) enterAddMode() (tea.Model, tea.Cmd) {
	m.formTitle = ""
	m.formAmount = ""
	m.formDate = time.Now().Format(time.DateOnly)
	m.formCategory = expense.CategoryOthers
	m.formDesc = ""
	m.formImage = ""

	m.form = m.buildForm(true)
	m.state = expensesStateAdd
	m.table.Blur()

	return m, m.form.Init()
}

func (m ExpensesModel) enterEditMode() (tea.Model, tea.Cmd) {
	idx := m.table.Cursor()
	if idx < 0 || idx >= len(m.items) {
		return m, nil
	}

	e := m.items[idx]
	m.editID = e.ID
	m.formTitle = e.Title
	m.formAmount = e.Amount.StringFixed(2)
	m.formDate = e.Date.Format(time.DateOnly)
	m.formCategory = e.Category
	m.formDesc = e.Description
	m.formImage = ""

	m.form = m.buildForm(false)
	m.state = expensesStateEdit
	m.table.Blur()

	return m, m.form.Init()
}

func (m *ExpensesModel) buildForm(withImage bool) *huh.Form {
	categoryOptions := make([]huh.Option[expense.Category], 0, len(expense.Categories()))
	for _, c := range expense.Categories() {
		categoryOptions = append(categoryOptions, huh.NewOption(string(c), c))
	}

	fields := []huh.Field{
		huh.NewInput().
			Key("title").
			Title("Title").
			Value(&m.formTitle).
			Validate(func(s string) error {
				if strings.TrimSpace(s) == "" {
					return fmt.Errorf("title cannot be empty")
				}
				return nil
			}),

		huh.NewInput().
			Key("amount").
			Title("Amount").
			Placeholder("12.50").
			Value(&m.formAmount).
			Validate(func(s string) error {
				d, err := decimal.NewFromString(strings.TrimSpace(s))
				if err != nil {
					return fmt.Errorf("invalid amount")
				}
				if !d.IsPositive() {
					return fmt.Errorf("amount must be positive")
				}
				if d.Exponent() < -2 {
					return fmt.Errorf("at most two decimal places")
				}
				return nil
			}),

		huh.NewInput().
			Key("date").
			Title("Date").
			Placeholder("2025-01-31").
			Value(&m.formDate).
			Validate(func(s string) error {
				if _, err := time.Parse(time.DateOnly, strings.TrimSpace(s)); err != nil {
					return fmt.Errorf("use YYYY-MM-DD")
				}
				return nil
			}),

		huh.NewSelect[expense.Category]().
			Key("category").
			Title("Category").
			Options(categoryOptions...).
			Value(&m.formCategory),

		huh.NewInput().
			Key("description").
			Title("Description").
			Value(&m.formDesc),
	}

	if withImage {
		fields = append(fields,
			huh.NewInput().
				Key("image").
				Title("Receipt image path").
				Placeholder("optional").
				Value(&m.formImage).
				Validate(func(s string) error {
					s = strings.TrimSpace(s)
					if s == "" {
						return nil
					}
					if _, err := os.Stat(s); err != nil {
						return fmt.Errorf("file not found")
					}
					return nil
				}),
		)
	}

	return huh.NewForm(huh.NewGroup(fields...)).WithWidth(50).WithShowHelp(false)
}

func (m ExpensesModel) updateForm(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		if keyMsg.Type == tea.KeyEsc {
			m.state = expensesStateBrowse
			m.form = nil
			m.table.Focus()

			return m, nil
		}
	}

	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State != huh.StateCompleted {
		return m, cmd
	}

	if m.state == expensesStateAdd {
		return m, m.createCmd()
	}

	return m, m.updateCmd()
}

func (m ExpensesModel) updateConfirm(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch keyMsg.String() {
	case "y":
		idx := m.table.Cursor()
		if idx < 0 || idx >= len(m.items) {
			m.state = expensesStateBrowse
			m.table.Focus()

			return m, nil
		}

		return m, m.deleteCmd(m.items[idx].ID)
	case "n", "esc":
		m.state = expensesStateBrowse
		m.table.Focus()
	}

	return m, nil
}

func (m ExpensesModel) View() string {
	if m.loading {
		return lipgloss.NewStyle().Padding(2).Render("Loading expenses...")
	}

	if m.err != nil {
		return lipgloss.NewStyle().Padding(2).Render(
			fmt.Sprintf("Error: %s\n\nr: retry | Esc: back", errorMessage(m.err)))
	}

	header := fmt.Sprintf("Expenses (%d) | Total: %s", len(m.items), FormatAmount(expense.Total(m.items)))

	tableView := lipgloss.NewStyle().
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		Render(m.table.View())

	content := lipgloss.JoinVertical(lipgloss.Left,
		lipgloss.NewStyle().PaddingBottom(1).Render(header),
		tableView,
	)

	switch m.state {
	case expensesStateAdd, expensesStateEdit:
		if m.form != nil {
			title := "Add Expense"
			if m.state == expensesStateEdit {
				title = "Edit Expense"
			}

			panel := lipgloss.NewStyle().
				Padding(1, 2).
				BorderStyle(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color("63")).
				Width(54).
				Render(fmt.Sprintf("%s\n\n%s", title, m.form.View()))

			content = lipgloss.JoinHorizontal(lipgloss.Top, content, panel)
		}
	case expensesStateConfirmDelete:
		idx := m.table.Cursor()
		title := ""
		if idx >= 0 && idx < len(m.items) {
			title = m.items[idx].Title
		}

		panel := lipgloss.NewStyle().
			Padding(1, 2).
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("203")).
			Render(fmt.Sprintf("Delete %q?\n\ny: delete | n: keep", title))

		content = lipgloss.JoinVertical(lipgloss.Left, content, panel)
	}

	if m.status != "" {
		content = lipgloss.NewStyle().Faint(true).Render(m.status) + "\n" + content
	}

	return lipgloss.NewStyle().Padding(1).Render(content)
}

func (m *ExpensesModel) refreshTable() {
	rows := make([]table.Row, 0, len(m.items))
	for _, e := range m.items {
		receipt := ""
		if e.ImagePath != "" {
			receipt = "yes"
		}

		rows = append(rows, table.Row{
			FormatDate(e.Date),
			e.Title,
			string(e.Category),
			FormatAmount(e.Amount),
			e.Description,
			receipt,
		})
	}

	m.table.SetRows(rows)
}

// params reads the completed form. Values are read from the form
// itself; the bound fields only seed the initial state.
func (m ExpensesModel) params() expense.CreateParams {
	amount, _ := decimal.NewFromString(strings.TrimSpace(m.form.GetString("amount")))
	date, _ := time.Parse(time.DateOnly, strings.TrimSpace(m.form.GetString("date")))

	category, _ := m.form.Get("category").(expense.Category)

	return expense.CreateParams{
		Title:       m.form.GetString("title"),
		Amount:      amount,
		Date:        date,
		Category:    category,
		Description: m.form.GetString("description"),
	}
}

// Messages

type expensesLoadedMsg struct {
	err error
}

func (m ExpensesModel) loadCmd() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := APICtx()
		defer cancel()

		return expensesLoadedMsg{err: m.cache.Load(ctx)}
	}
}

type expenseSavedMsg struct {
	err error
}

func (m ExpensesModel) createCmd() tea.Cmd {
	p := m.params()
	imagePath := strings.TrimSpace(m.form.GetString("image"))

	return func() tea.Msg {
		ctx, cancel := APICtx()
		defer cancel()

		var att *expense.Attachment

		if imagePath != "" {
			f, err := os.Open(imagePath)
			if err != nil {
				return expenseSavedMsg{err: fmt.Errorf("opening image: %w", err)}
			}
			defer f.Close()

			att = &expense.Attachment{Filename: filepath.Base(imagePath), Reader: f}
		}

		_, err := m.cache.Create(ctx, p, att)

		return expenseSavedMsg{err: err}
	}
}

func (m ExpensesModel) updateCmd() tea.Cmd {
	id := m.editID
	p := expense.UpdateParams(m.params())

	return func() tea.Msg {
		ctx, cancel := APICtx()
		defer cancel()

		_, err := m.cache.Update(ctx, id, p)

		return expenseSavedMsg{err: err}
	}
}

type expenseDeletedMsg struct {
	err error
}

func (m ExpensesModel) deleteCmd(id uuid.UUID) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := APICtx()
		defer cancel()

		return expenseDeletedMsg{err: m.cache.Remove(ctx, id)}
	}
}
