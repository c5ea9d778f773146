package view

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"

	"github.com/dpereira/expensely/internal/expense"
)

// SummaryModel shows spending totals recomputed from the cached
// records. The server's aggregate is fetched alongside as a
// cross-check; when the two disagree the local value is displayed,
// since it reflects the latest acknowledged mutations.
type SummaryModel struct {
	CommonModel
	cache *expense.Cache

	loading      bool
	err          error
	byCategory   map[expense.Category]decimal.Decimal
	byMonth      map[expense.Month]decimal.Decimal
	total        decimal.Decimal
	serverTotals map[expense.Category]decimal.Decimal
	serverErr    error
	drift        []expense.Category
}

func NewSummaryModel(cache *expense.Cache) SummaryModel {
	return SummaryModel{cache: cache, loading: true}
}

func (m SummaryModel) Title() string     { return "Summary" }
func (m SummaryModel) ShortHelp() string { return "Esc: back | r: refresh" }

func (m SummaryModel) Init() tea.Cmd {
	return m.loadCmd()
}

func (m SummaryModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case summaryLoadedMsg:
		m.loading = false
		m.err = msg.err
		m.serverTotals = msg.serverTotals
		m.serverErr = msg.serverErr

		if msg.err == nil {
			m.byCategory = m.cache.SummaryByCategory()
			m.byMonth = m.cache.SummaryByMonth()
			m.total = m.cache.Total()
			m.drift = driftedCategories(m.byCategory, m.serverTotals)
		}

		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "esc":
			return m, Back
		case "r":
			m.loading = true
			return m, m.loadCmd()
		}
	}

	return m, nil
}

func (m SummaryModel) View() string {
	if m.loading {
		return lipgloss.NewStyle().Padding(2).Render("Loading summary...")
	}

	if m.err != nil {
		return lipgloss.NewStyle().Padding(2).Render(
			fmt.Sprintf("Error: %s\n\nr: retry | Esc: back", errorMessage(m.err)))
	}

	var b strings.Builder

	b.WriteString("By Category\n")

	for _, c := range expense.Categories() {
		total, ok := m.byCategory[c]
		if !ok {
			continue
		}

		line := fmt.Sprintf("  %-14s %12s", c, FormatAmount(total))
		if contains(m.drift, c) {
			line += "  (server disagrees)"
		}

		b.WriteString(line + "\n")
	}

	b.WriteString("\nBy Month\n")

	for _, month := range expense.SortedMonths(m.byMonth) {
		b.WriteString(fmt.Sprintf("  %-14s %12s\n", month, FormatAmount(m.byMonth[month])))
	}

	b.WriteString(fmt.Sprintf("\n%-16s %12s\n", "Total", FormatAmount(m.total)))

	if m.serverErr != nil {
		b.WriteString("\n" + lipgloss.NewStyle().Faint(true).Render(
			"Server summary unavailable; showing local totals."))
	}

	return lipgloss.NewStyle().Padding(1, 2).Render(b.String())
}

// Messages

type summaryLoadedMsg struct {
	err          error
	serverTotals map[expense.Category]decimal.Decimal
	serverErr    error
}

func (m SummaryModel) loadCmd() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := APICtx()
		defer cancel()

		if err := m.cache.Load(ctx); err != nil {
			return summaryLoadedMsg{err: err}
		}

		serverTotals, serverErr := m.cache.ServerSummary(ctx)

		return summaryLoadedMsg{serverTotals: serverTotals, serverErr: serverErr}
	}
}

func driftedCategories(local, server map[expense.Category]decimal.Decimal) []expense.Category {
	if server == nil {
		return nil
	}

	var drift []expense.Category

	for _, c := range expense.Categories() {
		l, lok := local[c]
		s, sok := server[c]

		if lok != sok || (lok && !l.Equal(s)) {
			drift = append(drift, c)
		}
	}

	return drift
}

func contains(cs []expense.Category, c expense.Category) bool {
	for _, x := range cs {
		if x == c {
			return true
		}
	}

	return false
}
