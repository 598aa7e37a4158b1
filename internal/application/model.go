// Package application is the terminal front end: a bubbletea program that
// drives one orchestrator through a menu, a path prompt and a card list.
package application

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/JonMunkholm/RareDx/internal/classifier"
	"github.com/JonMunkholm/RareDx/internal/core"
)

const catalogTimeout = 10 * time.Second

var errSubmitting = fmt.Errorf("%w: wait for the current result", core.ErrSubmissionInProgress)

/* ----------------------------------------
	MESSAGES
---------------------------------------- */

type StatusMsg string
type ErrMsg struct{ Err error }

type outcomeMsg struct {
	outcome core.Outcome
	err     error
}
type diseasesMsg []string

type mode int

const (
	modeMenu mode = iota
	modeInput
	modeResults
)

// StatusReporter exposes the classifier's breaker and limiter state.
type StatusReporter interface {
	Status() classifier.Status
}

// Deps are the collaborators the program drives.
type Deps struct {
	Orchestrator *core.Orchestrator
	Catalog      core.DiseaseCatalog
	Health       StatusReporter
	MaxFileSize  int64
}

type Model struct {
	ctx         context.Context
	orch        *core.Orchestrator
	catalog     core.DiseaseCatalog
	health      StatusReporter
	maxFileSize int64

	menu   *Menu
	cursor int
	mode   mode
	input  textinput.Model

	card       int
	submitting bool
	diseases   []string
	status     string
	err        error
}

// New builds the program model. ctx bounds every classification it starts.
func New(ctx context.Context, deps Deps) *Model {
	ti := textinput.New()
	ti.Placeholder = "/path/to/scan.png"
	ti.Prompt = "Image path: "
	ti.CharLimit = 4096
	ti.Width = 60

	m := &Model{
		ctx:         ctx,
		orch:        deps.Orchestrator,
		catalog:     deps.Catalog,
		health:      deps.Health,
		maxFileSize: deps.MaxFileSize,
		input:       ti,
	}
	m.menu = buildMenuTree(m)
	return m
}

// Run starts the program on the terminal and blocks until it quits.
func Run(ctx context.Context, deps Deps) error {
	p := tea.NewProgram(New(ctx, deps), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}

func (m *Model) Init() tea.Cmd {
	return nil
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		switch m.mode {
		case modeInput:
			return m.updateInput(msg)
		case modeResults:
			return m.updateResults(msg)
		default:
			return m.updateMenu(msg)
		}

	case outcomeMsg:
		m.submitting = false
		if msg.err != nil {
			m.err = errSubmitting
			return m, nil
		}
		m.card = 0
		if msg.outcome.IsSuccess() {
			m.status = fmt.Sprintf("%d possible conditions", len(msg.outcome.Result))
		}
		return m, nil

	case diseasesMsg:
		m.diseases = msg
		m.err = nil
		m.status = fmt.Sprintf("%d rare diseases in database", len(msg))
		return m, nil

	case StatusMsg:
		m.status = string(msg)
		m.err = nil
		return m, nil

	case ErrMsg:
		m.err = msg.Err
		return m, nil
	}

	if m.mode == modeInput {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *Model) updateMenu(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.menu.Items)-1 {
			m.cursor++
		}
	case "esc", "backspace":
		if m.menu.Parent != nil {
			m.menu = m.menu.Parent
			m.cursor = 0
		}
	case "q":
		return m, tea.Quit
	case "enter":
		item := m.menu.Items[m.cursor]
		if item.Submenu != nil {
			m.menu = item.Submenu
			m.cursor = 0
			return m, nil
		}
		if item.Action != nil {
			return m, item.Action()
		}
	}
	return m, nil
}

func (m *Model) updateInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.input.Blur()
		m.mode = modeMenu
		return m, nil
	case "enter":
		m.input.Blur()
		m.mode = modeMenu
		m.selectPath(strings.TrimSpace(m.input.Value()))
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// selectPath loads the image at path and hands it to the orchestrator. A
// failed load leaves the current selection in place.
func (m *Model) selectPath(path string) {
	if path == "" {
		m.err = core.ErrEmptyFile
		return
	}

	if m.busy() {
		m.err = errSubmitting
		return
	}

	raw, err := core.ReadImageFile(path, m.maxFileSize)
	if err != nil {
		m.err = err
		return
	}
	if err := m.orch.TrySelectFile(raw); err != nil {
		m.err = err
		return
	}

	m.err = nil
	m.card = 0
	if file, ok := m.orch.SelectedFile(); ok {
		m.status = "Selected " + file.Name + " (" + file.Info().Summary() + ")"
	}
}

// busy reports whether a classification started here or elsewhere is still
// running.
func (m *Model) busy() bool {
	return m.submitting || m.orch.InFlight()
}

func (m *Model) updateResults(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	results := m.orch.Results()
	if results == nil {
		m.mode = modeMenu
		return m, nil
	}

	switch msg.String() {
	case "up", "k":
		if m.card > 0 {
			m.card--
		}
	case "down", "j":
		if m.card < results.Len()-1 {
			m.card++
		}
	case "enter", " ", "space":
		if err := m.orch.ToggleCard(m.card); err != nil {
			m.err = err
		}
	case "esc", "q":
		m.mode = modeMenu
	}
	return m, nil
}
