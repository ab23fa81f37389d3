// internal/tui/app.go
//
// Interactive console for a running bridge. It follows The Elm
// Architecture via bubbletea: the App model holds all state, Update reacts
// to messages, View renders. The console talks to the bridge through the
// same protocol the orchestrator uses, so what you see here is exactly
// what an orchestrator would get.

package tui

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/kingrea/funcbridge/extension"
)

// appState represents which "screen" the console is on.
type appState int

const (
	stateBrowse  appState = iota // browsing the callable catalog
	stateCompose                 // editing the args payload for a call
)

// catalogKind selects which registry table the browse list shows.
type catalogKind int

const (
	kindFunctions catalogKind = iota
	kindAssertions
)

// BridgeClient is the slice of the bridge client the console needs. Tests
// inject a fake; cmd/funcbridge-console passes the real subprocess client.
type BridgeClient interface {
	ListFunctions() ([]extension.FunctionInfo, error)
	ListAssertions() ([]extension.FunctionInfo, error)
	CallFunction(name string, args map[string]any) (json.RawMessage, error)
	AssertCustom(name string, params map[string]any) (extension.AssertionResult, error)
	Close() error
}

// JournalTailer supplies recent request-journal entries for the journal
// pane. logbook.Logbook satisfies it.
type JournalTailer interface {
	Tail(maxLines int) []string
}

// AppOption customizes console construction.
type AppOption func(*App)

// WithJournal attaches the bridge's request journal so the console can show
// its tail alongside the responses.
func WithJournal(journal JournalTailer) AppOption {
	return func(a *App) {
		a.journal = journal
	}
}

// catalogMsg carries a refreshed callable catalog.
type catalogMsg struct {
	functions  []extension.FunctionInfo
	assertions []extension.FunctionInfo
	err        error
}

// callDoneMsg carries the outcome of one dispatched call.
type callDoneMsg struct {
	summary string
	err     error
}

// callableItem implements list.Item for catalog entries.
type callableItem struct {
	info extension.FunctionInfo
	kind catalogKind
}

func (i callableItem) Title() string { return i.info.Name }
func (i callableItem) Description() string {
	if i.info.Description == "" {
		return "(no description)"
	}
	return i.info.Description
}
func (i callableItem) FilterValue() string { return i.info.Name }

// App is the console model.
type App struct {
	client BridgeClient

	state      appState
	kind       catalogKind
	catalog    list.Model
	functions  []extension.FunctionInfo
	assertions []extension.FunctionInfo

	argsInput textinput.Model
	pending   callableItem

	output  viewport.Model
	history []string

	journal     JournalTailer
	showJournal bool

	statusMsg string
	err       error
	width     int
	height    int
	ready     bool
}

// NewApp builds a console over the given bridge client.
func NewApp(client BridgeClient, opts ...AppOption) *App {
	catalog := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	catalog.Title = "⬡ FUNCBRIDGE CONSOLE"
	catalog.SetShowStatusBar(false)
	catalog.SetFilteringEnabled(false)

	argsInput := textinput.New()
	argsInput.Placeholder = `{"key": "value"}`
	argsInput.CharLimit = 0
	argsInput.Width = 60

	a := &App{
		client:    client,
		catalog:   catalog,
		argsInput: argsInput,
		output:    viewport.New(0, 0),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(a)
		}
	}
	return a
}

// Init triggers the first catalog fetch.
func (a *App) Init() tea.Cmd {
	return a.refreshCatalog()
}

func (a *App) refreshCatalog() tea.Cmd {
	client := a.client
	return func() tea.Msg {
		functions, err := client.ListFunctions()
		if err != nil {
			return catalogMsg{err: err}
		}
		assertions, err := client.ListAssertions()
		if err != nil {
			return catalogMsg{err: err}
		}
		return catalogMsg{functions: functions, assertions: assertions}
	}
}

func (a *App) dispatchCall(item callableItem, rawArgs string) tea.Cmd {
	client := a.client
	return func() tea.Msg {
		args := map[string]any{}
		trimmed := strings.TrimSpace(rawArgs)
		if trimmed != "" {
			if err := json.Unmarshal([]byte(trimmed), &args); err != nil {
				return callDoneMsg{err: fmt.Errorf("args must be a JSON object: %w", err)}
			}
		}
		switch item.kind {
		case kindAssertions:
			outcome, err := client.AssertCustom(item.info.Name, args)
			if err != nil {
				return callDoneMsg{err: err}
			}
			payload, err := json.Marshal(outcome)
			if err != nil {
				return callDoneMsg{err: err}
			}
			return callDoneMsg{summary: fmt.Sprintf("assert %s → %s", item.info.Name, payload)}
		default:
			result, err := client.CallFunction(item.info.Name, args)
			if err != nil {
				return callDoneMsg{err: err}
			}
			return callDoneMsg{summary: fmt.Sprintf("fn %s → %s", item.info.Name, result)}
		}
	}
}

// Update is the central message handler.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.resize()
		a.ready = true
		return a, nil

	case catalogMsg:
		if msg.err != nil {
			a.err = msg.err
			return a, nil
		}
		a.err = nil
		a.functions = msg.functions
		a.assertions = msg.assertions
		a.reloadCatalog()
		a.statusMsg = fmt.Sprintf("%d functions · %d assertions", len(msg.functions), len(msg.assertions))
		return a, nil

	case callDoneMsg:
		a.state = stateBrowse
		if msg.err != nil {
			a.appendOutput("ERROR " + msg.err.Error())
		} else {
			a.appendOutput(msg.summary)
		}
		return a, nil

	case tea.KeyMsg:
		return a.handleKey(msg)
	}

	return a.updateFocused(msg)
}

func (a *App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch a.state {
	case stateCompose:
		switch msg.String() {
		case "esc":
			a.state = stateBrowse
			return a, nil
		case "enter":
			raw := a.argsInput.Value()
			a.statusMsg = fmt.Sprintf("calling %s…", a.pending.info.Name)
			return a, a.dispatchCall(a.pending, raw)
		}
	default:
		switch msg.String() {
		case "q", "ctrl+c":
			_ = a.client.Close()
			return a, tea.Quit
		case "tab":
			a.toggleKind()
			return a, nil
		case "r":
			a.statusMsg = "refreshing…"
			return a, a.refreshCatalog()
		case "j":
			// Without a journal the key stays a list navigation key.
			if a.journal == nil {
				break
			}
			a.showJournal = !a.showJournal
			return a, nil
		case "enter":
			item, ok := a.catalog.SelectedItem().(callableItem)
			if !ok {
				return a, nil
			}
			a.pending = item
			a.argsInput.SetValue("")
			a.argsInput.Focus()
			a.state = stateCompose
			return a, textinput.Blink
		}
	}
	return a.updateFocused(msg)
}

func (a *App) updateFocused(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch a.state {
	case stateCompose:
		a.argsInput, cmd = a.argsInput.Update(msg)
	default:
		a.catalog, cmd = a.catalog.Update(msg)
	}
	return a, cmd
}

func (a *App) toggleKind() {
	if a.kind == kindFunctions {
		a.kind = kindAssertions
	} else {
		a.kind = kindFunctions
	}
	a.reloadCatalog()
}

func (a *App) reloadCatalog() {
	infos := a.functions
	title := "Functions"
	if a.kind == kindAssertions {
		infos = a.assertions
		title = "Assertions"
	}
	items := make([]list.Item, len(infos))
	for i, info := range infos {
		items[i] = callableItem{info: info, kind: a.kind}
	}
	a.catalog.Title = "⬡ FUNCBRIDGE CONSOLE · " + title
	a.catalog.SetItems(items)
}

func (a *App) appendOutput(line string) {
	a.history = append(a.history, line)
	if len(a.history) > 200 {
		a.history = a.history[len(a.history)-200:]
	}
	a.output.SetContent(strings.Join(a.history, "\n"))
	a.output.GotoBottom()
}

func (a *App) resize() {
	listHeight := a.height - outputHeight - 4
	if listHeight < 4 {
		listHeight = 4
	}
	a.catalog.SetSize(a.width, listHeight)
	a.output.Width = a.width
	a.output.Height = outputHeight
}
