// Package tui is the interactive view over a controller: a task list, an
// input box, the items-left counter and a status line.
package tui

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/idilsaglam/tada-sync/internal/controller"
	"github.com/idilsaglam/tada-sync/internal/model"
	"github.com/idilsaglam/tada-sync/internal/ui"
)

// Options configures the view.
type Options struct {
	// Username skips the username prompt when set.
	Username string
	// OnUserLoaded runs after a username prompt led to a successful load.
	OnUserLoaded func(username string)
}

type phase int

const (
	phaseLogin phase = iota
	phaseList
)

// syncMsg carries a finished remote write back into Update.
type syncMsg controller.Result

// listItem adapts model.Task to bubbles/list.Item
type listItem struct {
	task model.Task
}

func (i listItem) Title() string       { return i.task.Label }
func (i listItem) Description() string { return "" }
func (i listItem) FilterValue() string { return i.task.Label }

// itemDelegate renders one task per line.
type itemDelegate struct{}

func (d itemDelegate) Height() int                         { return 1 }
func (d itemDelegate) Spacing() int                        { return 0 }
func (d itemDelegate) Update(tea.Msg, *list.Model) tea.Cmd { return nil }
func (d itemDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	it, _ := item.(listItem)
	t := ui.Current()

	box := t.Muted.Render(t.BoxUnchecked)
	text := it.task.Label
	if it.task.Done {
		box = t.Success.Render(t.BoxChecked)
		text = t.DoneText.Render(text)
	}
	prefix := "  "
	if index == m.Index() {
		prefix = t.Selected.Render("> ")
	}
	fmt.Fprint(w, prefix+box+" "+text)
}

var (
	addKey     = key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "add"))
	deleteKey  = key.NewBinding(key.WithKeys("d", "x"), key.WithHelp("d", "delete"))
	toggleKey  = key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "done"))
	clearKey   = key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "clear all"))
	refreshKey = key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh"))
	editKey    = key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "edit"))
	undoKey    = key.NewBinding(key.WithKeys("u"), key.WithHelp("u", "undo"))
)

// Model implements tea.Model.
type Model struct {
	ctx  context.Context
	ctl  *controller.Controller
	opts Options

	phase   phase
	list    list.Model
	ti      textinput.Model
	adding  bool
	init    tea.Cmd
	pending string // username of the load in flight

	editing   bool
	editIndex int

	width, height int
}

// New builds the model. With a username it starts loading right away,
// otherwise it asks for one first.
func New(ctx context.Context, ctl *controller.Controller, opts Options) Model {
	l := list.New(nil, itemDelegate{}, 0, 0)
	l.SetShowHelp(true)
	l.SetShowPagination(true)
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(false)
	l.SetStatusBarItemName("task", "tasks")
	l.Styles.Title = ui.Current().Title
	l.Styles.HelpStyle = ui.Current().Help
	l.Styles.PaginationStyle = ui.Current().Help
	bindings := func() []key.Binding {
		return []key.Binding{addKey, editKey, deleteKey, undoKey, toggleKey, clearKey, refreshKey}
	}
	l.AdditionalShortHelpKeys = bindings
	l.AdditionalFullHelpKeys = bindings

	ti := textinput.New()
	ti.Prompt = "> "
	ti.CharLimit = 200

	m := Model{
		ctx:    ctx,
		ctl:    ctl,
		opts:   opts,
		list:   l,
		ti:     ti,
		width:  80,
		height: 24,
	}

	if name := strings.TrimSpace(opts.Username); name != "" {
		m.phase = phaseList
		m.pending = name
		m.init = m.run(ctl.Load(name))
	} else {
		m.phase = phaseLogin
		m.ti.Placeholder = "Username"
		m.init = m.ti.Focus()
	}
	m.syncList()
	return m
}

// Run starts the program in the alternate screen and blocks until quit.
func Run(ctx context.Context, ctl *controller.Controller, opts Options) error {
	p := tea.NewProgram(New(ctx, ctl, opts), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	return err
}

func (m Model) Init() tea.Cmd { return m.init }

// run wraps a Sync as a command so the write happens off the update loop.
func (m Model) run(s controller.Sync) tea.Cmd {
	if s == nil {
		return nil
	}
	ctx := m.ctx
	return func() tea.Msg { return syncMsg(s(ctx)) }
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		return m, nil
	case syncMsg:
		return m.applySync(controller.Result(msg))
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
	}

	switch {
	case m.phase == phaseLogin:
		return m.updateLogin(msg)
	case m.adding:
		return m.updateAdding(msg)
	case m.editing:
		return m.updateEditing(msg)
	}
	return m.updateList(msg)
}

func (m Model) applySync(r controller.Result) (tea.Model, tea.Cmd) {
	m.ctl.Apply(r)
	// A failed first load leaves no user to work on: ask again.
	if r.Op == controller.OpLoad && r.Err != nil && !m.ctl.HasUser() {
		m.phase = phaseLogin
		m.adding, m.editing = false, false
		m.ti.Placeholder = "Username"
		m.ti.SetValue(m.pending)
		m.ti.CursorEnd()
		cmd := m.ti.Focus()
		return m, cmd
	}
	if m.phase == phaseLogin && r.Op == controller.OpLoad && m.ctl.HasUser() {
		m.phase = phaseList
		m.ti.Blur()
		m.ti.SetValue("")
		m.ti.Placeholder = "What needs to be done?"
		if m.opts.OnUserLoaded != nil {
			m.opts.OnUserLoaded(m.ctl.Username())
		}
	}
	m.syncList()
	return m, nil
}

func (m Model) updateLogin(msg tea.Msg) (tea.Model, tea.Cmd) {
	if k, ok := msg.(tea.KeyMsg); ok {
		switch k.String() {
		case "enter":
			m.pending = strings.TrimSpace(m.ti.Value())
			return m, m.run(m.ctl.Load(m.pending))
		case "esc":
			return m, tea.Quit
		}
	}
	var cmd tea.Cmd
	m.ti, cmd = m.ti.Update(msg)
	return m, cmd
}

func (m Model) updateAdding(msg tea.Msg) (tea.Model, tea.Cmd) {
	if k, ok := msg.(tea.KeyMsg); ok {
		switch k.String() {
		case "enter":
			m.ctl.SetInput(m.ti.Value())
			s := m.ctl.Add()
			if s == nil {
				return m, nil
			}
			m.adding = false
			m.ti.SetValue("")
			m.ti.Blur()
			m.syncList()
			m.list.Select(len(m.list.Items()) - 1)
			return m, m.run(s)
		case "esc":
			m.adding = false
			m.ti.SetValue("")
			m.ti.Blur()
			m.ctl.SetInput("")
			return m, nil
		}
	}
	var cmd tea.Cmd
	m.ti, cmd = m.ti.Update(msg)
	m.ctl.SetInput(m.ti.Value())
	return m, cmd
}

func (m Model) updateEditing(msg tea.Msg) (tea.Model, tea.Cmd) {
	if k, ok := msg.(tea.KeyMsg); ok {
		switch k.String() {
		case "enter":
			s := m.ctl.Edit(m.editIndex, m.ti.Value())
			if s == nil && strings.TrimSpace(m.ti.Value()) == "" {
				return m, nil
			}
			m.editing = false
			m.ti.SetValue("")
			m.ti.Blur()
			m.syncList()
			return m, m.run(s)
		case "esc":
			m.editing = false
			m.ti.SetValue("")
			m.ti.Blur()
			return m, nil
		}
	}
	var cmd tea.Cmd
	m.ti, cmd = m.ti.Update(msg)
	return m, cmd
}

func (m Model) updateList(msg tea.Msg) (tea.Model, tea.Cmd) {
	if k, ok := msg.(tea.KeyMsg); ok {
		var s controller.Sync
		switch {
		case k.String() == "q" || k.String() == "esc":
			return m, tea.Quit
		case key.Matches(k, addKey):
			m.adding = true
			m.ti.SetValue("")
			m.ti.Placeholder = "What needs to be done?"
			cmd := m.ti.Focus()
			return m, cmd
		case key.Matches(k, editKey):
			it, ok := m.list.SelectedItem().(listItem)
			if !ok {
				return m, nil
			}
			m.editing = true
			m.editIndex = m.list.Index()
			m.ti.SetValue(it.task.Label)
			m.ti.CursorEnd()
			m.ti.Placeholder = "Edit task"
			cmd := m.ti.Focus()
			return m, cmd
		case key.Matches(k, undoKey):
			s = m.ctl.Undo()
		case key.Matches(k, deleteKey):
			s = m.ctl.Delete(m.list.Index())
		case key.Matches(k, toggleKey):
			s = m.ctl.Toggle(m.list.Index())
		case key.Matches(k, clearKey):
			s = m.ctl.Clear()
		case key.Matches(k, refreshKey):
			s = m.ctl.Refresh()
		default:
			var cmd tea.Cmd
			m.list, cmd = m.list.Update(msg)
			return m, cmd
		}
		m.syncList()
		return m, m.run(s)
	}
	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// syncList mirrors the controller's tasks into the list widget.
func (m *Model) syncList() {
	tasks := m.ctl.Tasks()
	items := make([]list.Item, 0, len(tasks))
	for _, t := range tasks {
		items = append(items, listItem{task: t})
	}
	m.list.SetItems(items)
	if idx := m.list.Index(); idx >= len(items) && len(items) > 0 {
		m.list.Select(len(items) - 1)
	}

	t := ui.Current()
	done, pending := model.Stats(tasks)
	title := "Todos"
	if name := m.ctl.Username(); name != "" {
		title += " · " + name
	}
	m.list.Title = fmt.Sprintf("%s   %s %d  %s %d  %s %d",
		title,
		t.Success.Render(t.SymDone), done,
		t.Pending.Render(t.SymPending), pending,
		t.Accent.Render("Total"), len(tasks),
	)
}

func (m Model) View() string {
	t := ui.Current()
	if m.phase == phaseLogin {
		lines := []string{
			t.Title.Render("Todos"),
			"",
			"Enter a username to load (or create) your list:",
			m.ti.View(),
			"",
			t.Muted.Render(m.ctl.Status()),
			t.Help.Render("enter load • esc quit"),
		}
		return ui.PanelString(strings.Join(lines, "\n"))
	}

	listHeight := m.height - 6
	if m.adding || m.editing {
		listHeight -= 4
	}
	if listHeight < 3 {
		listHeight = 3
	}
	m.list.SetSize(m.width-4, listHeight)

	content := m.list.View()
	switch {
	case m.adding:
		content += "\n" + ui.PanelString("Add new task\n"+m.ti.View())
	case m.editing:
		content += "\n" + ui.PanelString("Edit task\n"+m.ti.View())
	}
	footer := t.Accent.Render(m.ctl.ItemsLeft())
	if status := m.ctl.Status(); status != "" {
		footer += "  " + t.Muted.Render(status)
	}
	return ui.PanelString(content + "\n" + footer)
}
