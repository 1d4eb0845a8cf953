package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"tradequest/internal/game"
	"tradequest/internal/notify"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("244")).Width(12)
	goodStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	badStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	toastStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("220")).Bold(true)
	boxStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)

type playKeys struct {
	Hour  key.Binding
	Day   key.Binding
	Week  key.Binding
	Month key.Binding
	Death key.Binding
	Quit  key.Binding
}

func (k playKeys) ShortHelp() []key.Binding {
	return []key.Binding{k.Hour, k.Day, k.Week, k.Month, k.Death, k.Quit}
}

func (k playKeys) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}

var defaultPlayKeys = playKeys{
	Hour:  key.NewBinding(key.WithKeys("h"), key.WithHelp("h", "hour")),
	Day:   key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "day")),
	Week:  key.NewBinding(key.WithKeys("w"), key.WithHelp("w", "week")),
	Month: key.NewBinding(key.WithKeys("m"), key.WithHelp("m", "month")),
	Death: key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "death check")),
	Quit:  key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
}

// stepDoneMsg carries the outcome of one engine action back to the model.
type stepDoneMsg struct {
	line   string
	toasts []notify.Toast
	err    error
}

type playModel struct {
	ctx  context.Context
	app  *app
	slot string
	keys playKeys
	help help.Model

	st     *game.State
	agg    game.Aggregates
	phase  game.Phase
	busy   bool
	log    []string
	toasts []string
}

func newPlayModel(ctx context.Context, a *app, slot string, e *game.Engine) playModel {
	v := e.View()
	return playModel{
		ctx:   ctx,
		app:   a,
		slot:  slot,
		keys:  defaultPlayKeys,
		help:  help.New(),
		st:    v.State,
		agg:   v.Aggregates,
		phase: v.Phase,
	}
}

func (m playModel) Init() tea.Cmd {
	return nil
}

func (m playModel) run(label string, fn func(e *game.Engine) (string, error)) tea.Cmd {
	return func() tea.Msg {
		var line string
		err := m.app.mgr.Update(m.ctx, m.slot, func(e *game.Engine) error {
			var err error
			line, err = fn(e)
			return err
		})
		if err == nil && line == "" {
			line = label
		}
		return stepDoneMsg{line: line, toasts: m.app.toasts.Drain(), err: err}
	}
}

func (m playModel) advance(hours int, label string) tea.Cmd {
	return m.run(label, func(e *game.Engine) (string, error) {
		res, err := e.Advance(hours)
		if err != nil {
			return "", err
		}
		parts := []string{fmt.Sprintf("+%s", label)}
		if s := res.Settlement; s != nil {
			parts = append(parts, "month settled "+signedMoney(s.Net))
		}
		if ev := res.TriggeredEvent; ev != nil {
			parts = append(parts, "news: "+ev.Name)
		}
		if res.CourseCompleted != "" {
			parts = append(parts, "course done")
		}
		if res.Died {
			parts = append(parts, "you died")
		}
		return strings.Join(parts, ", "), nil
	})
}

func (m playModel) refresh() playModel {
	e, err := m.app.mgr.Open(m.ctx, m.slot)
	if err != nil {
		m.log = append(m.log, badStyle.Render(err.Error()))
		return m
	}
	v := e.View()
	m.st, m.agg, m.phase = v.State, v.Aggregates, v.Phase
	return m
}

func (m playModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.help.Width = msg.Width
		return m, nil
	case stepDoneMsg:
		m.busy = false
		switch {
		case errors.Is(msg.err, game.ErrAccountFrozen):
			m.log = append(m.log, badStyle.Render("account frozen: take a loan with `tq loan take`"))
		case msg.err != nil:
			m.log = append(m.log, badStyle.Render(msg.err.Error()))
		default:
			m.log = append(m.log, msg.line)
		}
		for _, t := range msg.toasts {
			m.toasts = append(m.toasts, t.Title)
		}
		if len(m.log) > 8 {
			m.log = m.log[len(m.log)-8:]
		}
		return m.refresh(), nil
	case tea.KeyMsg:
		if key.Matches(msg, m.keys.Quit) {
			return m, tea.Quit
		}
		if m.busy || m.phase == game.PhaseTerminal {
			return m, nil
		}
		var cmd tea.Cmd
		switch {
		case key.Matches(msg, m.keys.Hour):
			cmd = m.advance(1, "1 hour")
		case key.Matches(msg, m.keys.Day):
			cmd = m.advance(game.HoursPerDay, "1 day")
		case key.Matches(msg, m.keys.Week):
			cmd = m.advance(game.HoursPerWeek, "1 week")
		case key.Matches(msg, m.keys.Month):
			cmd = m.advance(game.HoursPerMonth, "1 month")
		case key.Matches(msg, m.keys.Death):
			cmd = m.run("survived", func(e *game.Engine) (string, error) {
				dc, err := e.CheckDeathChance()
				if err != nil {
					return "", err
				}
				if dc.Died {
					return fmt.Sprintf("death check at %d: you died", dc.Age), nil
				}
				return fmt.Sprintf("death check at %d: survived (%.4f%%/yr)", dc.Age, dc.AnnualChance), nil
			})
		}
		if cmd != nil {
			m.busy = true
		}
		return m, cmd
	}
	return m, nil
}

func (m playModel) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("TradeQuest: %s [%s]", m.st.PlayerName(), m.slot)))
	b.WriteString("\n\n")

	row := func(label, value string) {
		b.WriteString(labelStyle.Render(label) + value + "\n")
	}
	row("Date", m.st.CreatedAt.Format("Mon 2006-01-02 15:04"))
	row("Age", fmt.Sprint(game.ProfileAge(m.st.CreatedAt, m.st.DateOfBirth)))
	balance := formatMoney(m.st.Balance)
	if m.st.Balance.IsNegative() {
		balance = badStyle.Render(balance)
	} else {
		balance = goodStyle.Render(balance)
	}
	row("Balance", balance)
	row("Net worth", formatMoney(m.agg.NetWorth))
	row("Prestige", fmt.Sprint(m.agg.Prestige))
	switch m.phase {
	case game.PhaseFrozen:
		row("Status", badStyle.Render("FROZEN"))
	case game.PhaseTerminal:
		row("Status", badStyle.Render("DECEASED"))
	default:
		row("Status", goodStyle.Render("active"))
	}
	if len(m.st.ActiveEvents) > 0 {
		names := make([]string, 0, len(m.st.ActiveEvents))
		for _, ae := range m.st.ActiveEvents {
			names = append(names, fmt.Sprintf("%s (%dd)", ae.Event.Name, ae.Remaining))
		}
		row("Events", strings.Join(names, ", "))
	}

	if len(m.log) > 0 {
		b.WriteString("\n" + boxStyle.Render(strings.Join(m.log, "\n")) + "\n")
	}
	for _, t := range m.toasts {
		b.WriteString(toastStyle.Render("Achievement unlocked: "+t) + "\n")
	}
	if m.busy {
		b.WriteString("\nworking...\n")
	}
	b.WriteString("\n" + m.help.View(m.keys) + "\n")
	return b.String()
}

func newPlayCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "play",
		Short: "Interactive mode",
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.remote != "" {
				return errors.New("play runs against local saves only")
			}
			e, slot, err := a.engine(cmd.Context())
			if err != nil {
				return err
			}
			_, err = tea.NewProgram(newPlayModel(cmd.Context(), a, slot, e), tea.WithAltScreen()).Run()
			return err
		},
	}
}
