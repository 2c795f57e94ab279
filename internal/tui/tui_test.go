package tui

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"go-maintdash/internal/models"
	"go-maintdash/internal/monitor"
	"go-maintdash/internal/reminder"
	"go-maintdash/internal/session"
	"go-maintdash/internal/sites"
	"go-maintdash/internal/store"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubReminder struct {
	summary reminder.Summary
	err     error
	calls   int
}

func (s *stubReminder) Run(context.Context) (reminder.Summary, error) {
	s.calls++
	return s.summary, s.err
}

func newModel(t *testing.T, rem Reminder) (Model, store.Store) {
	t.Helper()
	st := store.NewSQLite(filepath.Join(t.TempDir(), "tui.db"))
	require.NoError(t, st.Init(context.Background()))
	t.Cleanup(func() { st.Close() })

	activity := monitor.NewActivity()
	tracker := monitor.NewTracker()
	m := New(Deps{
		Sites:    sites.New(st, nil, activity),
		Store:    st,
		Prober:   monitor.NewProber(monitor.WithTimeout(2*time.Second), monitor.WithTracker(tracker)),
		Tracker:  tracker,
		Activity: activity,
		Reminder: rem,
		Identity: session.Identity{Name: "ops", Email: "ops@example.com"},
	})
	return m, st
}

func key(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func send(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	out, ok := next.(Model)
	require.True(t, ok)
	return out, cmd
}

// fill sets every input and leaves focus on the last field, ready to submit.
func fill(m Model, values ...string) Model {
	for i, v := range values {
		m.inputs[i].SetValue(v)
	}
	m.focus = len(m.inputs) - 1
	return m
}

func TestEmptyDashboard(t *testing.T) {
	m, _ := newModel(t, nil)
	view := m.View()
	assert.Contains(t, view, "WordPress")
	assert.Contains(t, view, "No sites configured.")
	assert.Contains(t, view, "ops@example.com")
}

func TestCreateSiteFromForm(t *testing.T) {
	m, st := newModel(t, nil)

	m, _ = send(t, m, key("n"))
	require.Equal(t, stateFormSite, m.state)
	require.Len(t, m.inputs, 3)

	m = fill(m, "Alpha", "alpha.example", "")
	m, _ = send(t, m, key("enter"))
	assert.Equal(t, stateDashboard, m.state)

	list, err := st.ListSites(context.Background(), models.KindWordPress, 1)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "https://alpha.example", list[0].URL)
	assert.Equal(t, sites.DefaultServer, list[0].Server)
	assert.Contains(t, m.View(), "Pending")
}

func TestSiteFormValidationStaysOpen(t *testing.T) {
	m, _ := newModel(t, nil)
	m, _ = send(t, m, key("n"))
	m = fill(m, "", "", "")
	m, _ = send(t, m, key("enter"))
	assert.Equal(t, stateFormSite, m.state)
	assert.NotEmpty(t, m.errorMsg)

	m, _ = send(t, m, key("esc"))
	assert.Equal(t, stateDashboard, m.state)
}

func TestRecordMaintenanceAttributesIdentity(t *testing.T) {
	m, st := newModel(t, nil)
	ctx := context.Background()
	_, err := m.deps.Sites.Create(ctx, models.KindWordPress, sites.SiteInput{Name: "Alpha", URL: "alpha.example"})
	require.NoError(t, err)
	m.refreshData()

	m, _ = send(t, m, key("m"))
	require.Equal(t, stateFormMaintenance, m.state)
	require.Len(t, m.inputs, 6)
	assert.Empty(t, m.inputs[0].Value(), "placeholder versions are not carried into the form")

	m = fill(m, "6.5", "8.2", "10.11", "astra", "akismet:5.3, yoast", "monthly pass")
	m, _ = send(t, m, key("enter"))
	require.Equal(t, stateDashboard, m.state)
	assert.Equal(t, "Maintenance recorded.", m.flash)

	list, err := st.ListSites(ctx, models.KindWordPress, 1)
	require.NoError(t, err)
	log := list[0].Latest()
	require.NotNil(t, log)
	require.NotNil(t, log.CheckedAt)
	assert.Equal(t, "6.5", log.AppVersion)
	assert.Equal(t, "ops@example.com", log.PerformedBy)
	assert.Equal(t, []models.Plugin{{Name: "akismet", Version: "5.3"}, {Name: "yoast", Version: "-"}}, log.Plugins)
	assert.Contains(t, m.View(), "Completed")
}

func TestSupportPalTabUsesNginxField(t *testing.T) {
	m, _ := newModel(t, nil)
	_, err := m.deps.Sites.Create(context.Background(), models.KindSupportPal, sites.SiteInput{Name: "Desk", URL: "desk.example"})
	require.NoError(t, err)

	m, _ = send(t, m, key("tab"))
	require.Equal(t, tabSupportPal, m.currentTab)
	m.refreshData()
	assert.Contains(t, m.View(), "Desk")

	m, _ = send(t, m, key("m"))
	require.Len(t, m.inputs, 5)
	assert.Equal(t, supportpalLabels, m.formLabels())
}

func TestTabCyclesToActivity(t *testing.T) {
	m, _ := newModel(t, nil)
	for i := 0; i < tabActivity; i++ {
		m, _ = send(t, m, key("tab"))
	}
	assert.Equal(t, stateActivity, m.state)
	m, _ = send(t, m, key("tab"))
	assert.Equal(t, tabWordPress, m.currentTab)
	assert.Equal(t, stateDashboard, m.state)
}

func TestChannelForm(t *testing.T) {
	m, st := newModel(t, nil)
	m.currentTab = tabChannels

	m, _ = send(t, m, key("n"))
	require.Equal(t, stateFormChannel, m.state)
	assert.Equal(t, "line", m.inputs[1].Value())

	m = fill(m, "Ops", "discord", "", "")
	m, _ = send(t, m, key("enter"))
	assert.Equal(t, stateFormChannel, m.state, "discord without url is rejected")
	assert.Contains(t, m.errorMsg, "url")

	m = fill(m, "Ops", "line", "", "secret-token")
	m, _ = send(t, m, key("enter"))
	require.Equal(t, stateDashboard, m.state)

	alerts, err := st.GetAllAlerts(context.Background())
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.Equal(t, "secret-token", alerts[0].Settings["token"])
	assert.Contains(t, m.View(), "(token)")

	m, _ = send(t, m, key("d"))
	alerts, err = st.GetAllAlerts(context.Background())
	require.NoError(t, err)
	assert.Empty(t, alerts)
}

func TestEditChannelKeepsUnlistedSettings(t *testing.T) {
	m, st := newModel(t, nil)
	ctx := context.Background()
	smtp := models.AlertConfig{Name: "Mail", Type: "email", Settings: map[string]string{
		"host": "smtp.example", "port": "587", "user": "bot", "pass": "s3cret",
		"to": "ops@example.com", "from": "bot@example.com",
	}}
	require.NoError(t, st.AddAlert(ctx, &smtp))
	m.currentTab = tabChannels
	m.refreshData()

	m, _ = send(t, m, key("e"))
	require.Equal(t, stateFormChannel, m.state)
	require.Len(t, m.inputs, 5)
	assert.Equal(t, "from=bot@example.com, host=smtp.example, port=587, to=ops@example.com, user=bot", m.inputs[4].Value())

	m.inputs[0].SetValue("Ops mail")
	m.inputs[4].SetValue(m.inputs[4].Value() + ", port=")
	m.focus = len(m.inputs) - 1
	m, _ = send(t, m, key("enter"))
	require.Equal(t, stateDashboard, m.state, m.errorMsg)

	got, err := st.GetAlert(ctx, smtp.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ops mail", got.Name)
	assert.Equal(t, map[string]string{
		"host": "smtp.example", "user": "bot", "pass": "s3cret",
		"to": "ops@example.com", "from": "bot@example.com",
	}, got.Settings)
}

func TestNewEmailChannel(t *testing.T) {
	m, st := newModel(t, nil)
	m.currentTab = tabChannels
	m, _ = send(t, m, key("n"))

	m = fill(m, "Mail", "email", "", "", "host=smtp.example")
	m, _ = send(t, m, key("enter"))
	assert.Equal(t, stateFormChannel, m.state, "email without a recipient is rejected")

	m = fill(m, "Mail", "email", "", "", "host=smtp.example, to=ops@example.com, broken")
	m, _ = send(t, m, key("enter"))
	assert.Contains(t, m.errorMsg, "key=value")

	m = fill(m, "Mail", "email", "", "", "host=smtp.example, to=ops@example.com")
	m, _ = send(t, m, key("enter"))
	require.Equal(t, stateDashboard, m.state, m.errorMsg)

	alerts, err := st.GetAllAlerts(context.Background())
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.Equal(t, map[string]string{"host": "smtp.example", "to": "ops@example.com"}, alerts[0].Settings)
}

func TestChannelTypeSelector(t *testing.T) {
	m, _ := newModel(t, nil)
	m.currentTab = tabChannels
	m, _ = send(t, m, key("n"))

	m.focus = 1
	m, _ = send(t, m, key("enter"))
	require.Equal(t, stateSelectType, m.state)

	m.typeList.Select(2)
	m, _ = send(t, m, key("enter"))
	assert.Equal(t, stateFormChannel, m.state)
	assert.Equal(t, "slack", m.inputs[1].Value())
}

func TestDeleteSite(t *testing.T) {
	m, st := newModel(t, nil)
	ctx := context.Background()
	for _, n := range []string{"A", "B"} {
		_, err := m.deps.Sites.Create(ctx, models.KindWordPress, sites.SiteInput{Name: n, URL: n + ".example"})
		require.NoError(t, err)
	}
	m.refreshData()
	require.Len(t, m.wordpress, 2)
	keep := m.wordpress[0].Name
	m, _ = send(t, m, key("down"))
	require.Equal(t, 1, m.cursor)

	m, _ = send(t, m, key("d"))
	assert.Equal(t, 0, m.cursor)
	list, err := st.ListSites(ctx, models.KindWordPress, 1)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, keep, list[0].Name)
}

func TestProbeSelectedSite(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	m, _ := newModel(t, nil)
	_, err := m.deps.Sites.Create(context.Background(), models.KindWordPress, sites.SiteInput{Name: "Alpha", URL: srv.URL})
	require.NoError(t, err)
	m.refreshData()

	m, cmd := send(t, m, key("u"))
	require.NotNil(t, cmd)
	msg := cmd()
	pm, ok := msg.(probeMsg)
	require.True(t, ok)
	assert.True(t, pm.result.Up(), "503 counts as reachable")

	m, _ = send(t, m, msg)
	assert.Contains(t, m.flash, "is up")
	assert.Contains(t, m.View(), "UP ")
}

func TestRunReminder(t *testing.T) {
	rem := &stubReminder{summary: reminder.Summary{Sent: true, Count: 2}}
	m, _ := newModel(t, rem)

	m, cmd := send(t, m, key("r"))
	require.NotNil(t, cmd)
	m, _ = send(t, m, cmd())
	assert.Equal(t, 1, rem.calls)
	assert.Equal(t, "Reminder sent for 2 site(s).", m.flash)

	rem.summary, rem.err = reminder.Summary{}, errors.New("db gone")
	m, cmd = send(t, m, key("r"))
	m, _ = send(t, m, cmd())
	assert.Equal(t, "Reminder failed: db gone", m.flash)
}

func TestParsePluginInput(t *testing.T) {
	assert.Nil(t, parsePluginInput(""))
	assert.Equal(t,
		[]models.Plugin{{Name: "a", Version: "1"}, {Name: "b", Version: "-"}},
		parsePluginInput(" a:1 , , b: ,:3"))
	assert.Equal(t, "a:1, b:-", formatPlugins(parsePluginInput("a:1,b")))
}
