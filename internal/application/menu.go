package application

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

/* ----------------------------------------
	MENU TREE
---------------------------------------- */

type MenuItem struct {
	Label   string
	Submenu *Menu
	Action  func() tea.Cmd
}

type Menu struct {
	Title  string
	Items  []MenuItem
	Parent *Menu
}

/* ----------------------------------------
	MENU TREE DEFINITION
---------------------------------------- */

func linkParents(menu *Menu, parent *Menu) {
	menu.Parent = parent

	for i := range menu.Items {
		item := &menu.Items[i]

		if item.Label == "Back" {
			item.Submenu = parent
			continue
		}

		if item.Submenu != nil {
			linkParents(item.Submenu, menu)
		}
	}
}

func buildMenuTree(m *Model) *Menu {

	/* Submenus */
	info := loadInfo(m)

	/* Root Menu */
	root := &Menu{
		Title: "Main Menu",
		Items: []MenuItem{
			{Label: "Select Image", Action: m.beginSelect},
			{Label: "Classify Disease", Action: m.classify},
			{Label: "Browse Results", Action: m.browseResults},
			{Label: "Info ->", Submenu: info},
			{Label: "Quit", Action: func() tea.Cmd { return tea.Quit }},
		},
	}

	linkParents(root, nil)

	return root
}

/* ----------------------------------------
	LOAD MENUS
---------------------------------------- */

func loadInfo(m *Model) *Menu {
	return &Menu{
		Title: "Info",
		Items: []MenuItem{
			{Label: "Recognised Diseases", Action: m.fetchDiseases},
			{Label: "Classifier Status", Action: m.classifierStatus},
			{Label: "Back"},
		},
	}
}

/* ----------------------------------------
	ACTIONS
---------------------------------------- */

// beginSelect opens the path prompt. The picker stays closed while a
// classification runs.
func (m *Model) beginSelect() tea.Cmd {
	if m.busy() {
		m.err = errSubmitting
		return nil
	}

	m.mode = modeInput
	m.err = nil
	m.input.SetValue("")
	m.input.Focus()
	return textinput.Blink
}

// classify starts one submission. A second trigger while one is running is
// refused rather than queued.
func (m *Model) classify() tea.Cmd {
	if m.busy() {
		m.err = errSubmitting
		return nil
	}

	m.submitting = true
	m.err = nil
	m.status = ""

	ctx, orch := m.ctx, m.orch
	return func() tea.Msg {
		out, err := orch.TrySubmit(ctx)
		return outcomeMsg{outcome: out, err: err}
	}
}

func (m *Model) browseResults() tea.Cmd {
	if m.orch.Results() == nil {
		m.status = "No results yet. Classify an image first."
		return nil
	}
	m.mode = modeResults
	m.card = 0
	return nil
}

func (m *Model) fetchDiseases() tea.Cmd {
	if m.catalog == nil {
		return func() tea.Msg { return StatusMsg("Disease catalogue unavailable") }
	}

	ctx, catalog := m.ctx, m.catalog
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(ctx, catalogTimeout)
		defer cancel()

		diseases, err := catalog.Diseases(ctx)
		if err != nil {
			return ErrMsg{Err: err}
		}
		return diseasesMsg(diseases)
	}
}

func (m *Model) classifierStatus() tea.Cmd {
	if m.health == nil {
		return func() tea.Msg { return StatusMsg("Classifier status unavailable") }
	}

	st := m.health.Status()
	return func() tea.Msg {
		return StatusMsg(fmt.Sprintf("Breaker: %s, in flight: %d/%d",
			st.Breaker, st.Limiter.Active, st.Limiter.MaxConcurrent))
	}
}
