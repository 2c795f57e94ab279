package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go-maintdash/internal/models"
	"go-maintdash/internal/monitor"
	"go-maintdash/internal/reminder"
	"go-maintdash/internal/session"
	"go-maintdash/internal/sites"
	"go-maintdash/internal/store"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
)

const refreshInterval = 2 * time.Second

const (
	tabWordPress = iota
	tabSupportPal
	tabChannels
	tabActivity
	tabCount
)

var tabNames = []string{"WordPress", "SupportPal", "Channels", "Activity"}

type sessionState int

const (
	stateDashboard sessionState = iota
	stateActivity
	stateFormSite
	stateFormMaintenance
	stateFormChannel
	stateSelectType
)

// Reminder runs one reminder pass.
type Reminder interface {
	Run(ctx context.Context) (reminder.Summary, error)
}

// Deps are the services the dashboard drives. Identity attributes the
// maintenance recorded from this terminal.
type Deps struct {
	Ctx      context.Context
	Sites    *sites.Service
	Store    store.Store
	Prober   *monitor.Prober
	Tracker  *monitor.Tracker
	Activity *monitor.Activity
	Reminder Reminder
	Identity session.Identity
	Now      func() time.Time
}

type typeItem struct{ name, desc string }

func (i typeItem) Title() string       { return i.name }
func (i typeItem) Description() string { return i.desc }
func (i typeItem) FilterValue() string { return i.name }

var channelTypes = []list.Item{
	typeItem{"line", "LINE Notify (token)"},
	typeItem{"discord", "Discord webhook"},
	typeItem{"slack", "Slack incoming webhook"},
	typeItem{"webhook", "Generic JSON webhook"},
	typeItem{"email", "SMTP (host, port, user, pass, to, from under Other settings)"},
}

type (
	tickMsg  time.Time
	probeMsg struct {
		result monitor.Result
	}
	reminderMsg struct {
		summary reminder.Summary
		err     error
	}
)

type Model struct {
	deps Deps

	state      sessionState
	currentTab int

	cursor       int
	tableOffset  int
	maxTableRows int

	editID   string
	inputs   []textinput.Model
	focus    int
	errorMsg string
	flash    string

	activityViewport viewport.Model
	formViewport     viewport.Model
	typeList         list.Model

	wordpress  []models.Site
	supportpal []models.Site
	channels   []models.AlertConfig
}

func New(d Deps) Model {
	if d.Ctx == nil {
		d.Ctx = context.Background()
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.Tracker == nil {
		d.Tracker = monitor.NewTracker()
	}
	if d.Activity == nil {
		d.Activity = monitor.NewActivity()
	}
	vpActivity := viewport.New(100, 20)
	vpActivity.SetContent("Waiting for activity...")
	vpForm := viewport.New(100, 20)

	l := list.New(channelTypes, list.NewDefaultDelegate(), 0, 0)
	l.Title = "Select Channel Type"
	l.SetShowHelp(false)

	m := Model{
		deps:             d,
		state:            stateDashboard,
		activityViewport: vpActivity,
		formViewport:     vpForm,
		typeList:         l,
		maxTableRows:     5,
	}
	m.refreshData()
	return m
}

func (m Model) Init() tea.Cmd { return tick() }

func tick() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m Model) currentKind() models.Kind {
	if m.currentTab == tabSupportPal {
		return models.KindSupportPal
	}
	return models.KindWordPress
}

func (m Model) currentSites() []models.Site {
	if m.currentTab == tabSupportPal {
		return m.supportpal
	}
	return m.wordpress
}

func (m Model) rowCount() int {
	switch m.currentTab {
	case tabWordPress, tabSupportPal:
		return len(m.currentSites())
	case tabChannels:
		return len(m.channels)
	}
	return 0
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		headerHeight := 4
		footerHeight := 3
		m.maxTableRows = msg.Height - headerHeight - footerHeight - 3
		if m.maxTableRows < 1 {
			m.maxTableRows = 1
		}
		m.activityViewport.Width = msg.Width
		m.activityViewport.Height = msg.Height - 6
		m.formViewport.Width = msg.Width
		m.formViewport.Height = msg.Height - 3
		m.typeList.SetSize(msg.Width, msg.Height-4)

	case tickMsg:
		m.refreshData()
		return m, tick()

	case probeMsg:
		r := msg.result
		if r.Up() {
			m.flash = fmt.Sprintf("%s is up (%d, %v)", r.URL, r.Code, r.Latency.Round(time.Millisecond))
		} else {
			m.flash = fmt.Sprintf("%s is DOWN: %s", r.URL, downReason(r))
			m.deps.Activity.Addf("Probe: %s down (%s)", r.URL, downReason(r))
		}
		return m, nil

	case reminderMsg:
		switch {
		case msg.err != nil:
			m.flash = "Reminder failed: " + msg.err.Error()
		case msg.summary.Count == 0:
			m.flash = "No maintenance due."
		case msg.summary.Partial:
			m.flash = fmt.Sprintf("Reminder sent for %d site(s), some channels failed.", msg.summary.Count)
		case msg.summary.Sent:
			m.flash = fmt.Sprintf("Reminder sent for %d site(s).", msg.summary.Count)
		default:
			m.flash = fmt.Sprintf("%d site(s) due, reminder not delivered.", msg.summary.Count)
		}
		m.refreshData()
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}

		if m.state == stateSelectType {
			switch msg.String() {
			case "esc":
				m.state = stateFormChannel
				m.updateFormContent()
				return m, nil
			case "enter":
				if itm, ok := m.typeList.SelectedItem().(typeItem); ok {
					m.inputs[1].SetValue(itm.name)
				}
				m.state = stateFormChannel
				m.updateFormContent()
				return m, nil
			}
			m.typeList, cmd = m.typeList.Update(msg)
			return m, cmd
		}

		switch m.state {
		case stateDashboard, stateActivity:
			return m.updateDashboard(msg)
		case stateFormSite, stateFormMaintenance, stateFormChannel:
			switch msg.String() {
			case "esc":
				m.state = stateDashboard
				return m, nil

			case "pgup", "pgdown":
				m.formViewport, cmd = m.formViewport.Update(msg)
				return m, cmd

			case "tab", "shift+tab", "enter", "up", "down":
				s := msg.String()

				if m.state == stateFormChannel && m.focus == 1 && s == "enter" {
					m.state = stateSelectType
					m.typeList.SetSize(m.formViewport.Width, m.formViewport.Height)
					return m, nil
				}

				if s == "enter" && m.focus == len(m.inputs)-1 {
					if err := m.submitForm(); err != nil {
						m.errorMsg = err.Error()
						m.updateFormContent()
					} else {
						m.state = stateDashboard
						m.refreshData()
					}
					return m, nil
				}

				if s == "up" || s == "shift+tab" {
					m.focus--
				} else {
					m.focus++
				}
				if m.focus > len(m.inputs)-1 {
					m.focus = 0
				}
				if m.focus < 0 {
					m.focus = len(m.inputs) - 1
				}
				for i := range m.inputs {
					if i == m.focus {
						cmds = append(cmds, m.inputs[i].Focus())
					} else {
						m.inputs[i].Blur()
					}
				}
				m.formViewport.SetYOffset(m.focus * 3)
				m.updateFormContent()
				return m, tea.Batch(cmds...)

			default:
				if m.state == stateFormChannel && m.focus == 1 {
					return m, nil
				}
			}
		}
	}

	if m.state == stateFormSite || m.state == stateFormMaintenance || m.state == stateFormChannel {
		for i := range m.inputs {
			m.inputs[i], cmd = m.inputs[i].Update(msg)
			cmds = append(cmds, cmd)
		}
		m.updateFormContent()
	}
	return m, tea.Batch(cmds...)
}

func (m Model) updateDashboard(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch msg.String() {
	case "q":
		return m, tea.Quit
	case "tab":
		m.currentTab = (m.currentTab + 1) % tabCount
		m.cursor = 0
		m.tableOffset = 0
		m.flash = ""
		if m.currentTab == tabActivity {
			m.state = stateActivity
		} else {
			m.state = stateDashboard
		}
	case "pgup", "pgdown":
		if m.state == stateActivity {
			m.activityViewport, cmd = m.activityViewport.Update(msg)
			return m, cmd
		}
	case "up", "k":
		if m.state == stateActivity {
			m.activityViewport.LineUp(1)
		} else if m.cursor > 0 {
			m.cursor--
			if m.cursor < m.tableOffset {
				m.tableOffset = m.cursor
			}
		}
	case "down", "j":
		if m.state == stateActivity {
			m.activityViewport.LineDown(1)
		} else if m.cursor < m.rowCount()-1 {
			m.cursor++
			if m.cursor >= m.tableOffset+m.maxTableRows {
				m.tableOffset++
			}
		}
	case "n":
		switch m.currentTab {
		case tabWordPress, tabSupportPal:
			m.initFormSite(nil)
		case tabChannels:
			m.initFormChannel(nil)
		default:
			return m, nil
		}
		m.formViewport.GotoTop()
		m.updateFormContent()
	case "e", "enter":
		switch m.currentTab {
		case tabWordPress, tabSupportPal:
			if list := m.currentSites(); len(list) > 0 {
				target := list[m.cursor]
				m.initFormSite(&target)
			} else {
				return m, nil
			}
		case tabChannels:
			if len(m.channels) > 0 {
				target := m.channels[m.cursor]
				m.initFormChannel(&target)
			} else {
				return m, nil
			}
		default:
			return m, nil
		}
		m.formViewport.GotoTop()
		m.updateFormContent()
	case "m":
		if list := m.currentSites(); m.state == stateDashboard && m.currentTab != tabChannels && len(list) > 0 {
			target := list[m.cursor]
			m.initFormMaintenance(target)
			m.formViewport.GotoTop()
			m.updateFormContent()
		}
	case "d", "backspace":
		m.deleteSelected()
	case "u":
		if list := m.currentSites(); m.state == stateDashboard && m.currentTab != tabChannels && len(list) > 0 {
			url := list[m.cursor].URL
			m.flash = "Probing " + url + "..."
			return m, m.probe(url)
		}
	case "r":
		if m.deps.Reminder != nil {
			m.flash = "Running reminder..."
			return m, m.runReminder()
		}
	}
	return m, nil
}

func (m *Model) deleteSelected() {
	var err error
	switch m.currentTab {
	case tabWordPress, tabSupportPal:
		list := m.currentSites()
		if len(list) == 0 {
			return
		}
		target := list[m.cursor]
		err = m.deps.Sites.Delete(m.deps.Ctx, m.currentKind(), target.ID)
		if err == nil {
			m.deps.Tracker.Forget(target.URL)
		}
	case tabChannels:
		if len(m.channels) == 0 {
			return
		}
		err = m.deps.Store.DeleteAlert(m.deps.Ctx, m.channels[m.cursor].ID)
		if err == nil {
			m.deps.Activity.Addf("Deleted channel '%s'", m.channels[m.cursor].Name)
		}
	default:
		return
	}
	if err != nil {
		m.flash = "Delete failed: " + err.Error()
		return
	}
	if m.cursor >= m.rowCount()-1 && m.cursor > 0 {
		m.cursor--
	}
	if m.cursor < m.tableOffset {
		m.tableOffset = m.cursor
	}
	m.refreshData()
}

func (m Model) probe(url string) tea.Cmd {
	prober, ctx := m.deps.Prober, m.deps.Ctx
	return func() tea.Msg {
		return probeMsg{result: prober.Probe(ctx, url)}
	}
}

func (m Model) runReminder() tea.Cmd {
	rem, ctx := m.deps.Reminder, m.deps.Ctx
	return func() tea.Msg {
		summary, err := rem.Run(ctx)
		return reminderMsg{summary: summary, err: err}
	}
}

func (m *Model) refreshData() {
	ctx := m.deps.Ctx
	if m.deps.Sites != nil {
		if wp, err := m.deps.Sites.List(ctx, models.KindWordPress, 1); err == nil {
			m.wordpress = wp
		} else {
			m.flash = "Load failed: " + err.Error()
		}
		if sp, err := m.deps.Sites.List(ctx, models.KindSupportPal, 1); err == nil {
			m.supportpal = sp
		}
	}
	if m.deps.Store != nil {
		if ch, err := m.deps.Store.GetAllAlerts(ctx); err == nil {
			m.channels = ch
		}
	}
	if n := m.rowCount(); m.cursor >= n {
		m.cursor = max(n-1, 0)
	}
	m.activityViewport.SetContent(strings.Join(m.deps.Activity.Entries(), "\n"))
}

func downReason(r monitor.Result) string {
	if r.Error != "" {
		return r.Error
	}
	return fmt.Sprintf("HTTP %d", r.Code)
}
