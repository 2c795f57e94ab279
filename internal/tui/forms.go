package tui

import (
	"errors"
	"fmt"
	"maps"
	"sort"
	"strings"

	"go-maintdash/internal/alert"
	"go-maintdash/internal/models"
	"go-maintdash/internal/sites"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/lipgloss"
)

func ti(placeholder, value string, focused bool) textinput.Model {
	t := textinput.New()
	t.Placeholder = placeholder
	t.SetValue(value)
	t.Width = 50
	if focused {
		t.Focus()
	}
	return t
}

func (m *Model) resetForm(state sessionState, id string) {
	m.state = state
	m.editID = id
	m.focus = 0
	m.errorMsg = ""
}

func (m *Model) initFormSite(s *models.Site) {
	var name, url, server, id string
	if s != nil {
		id, name, url, server = s.ID, s.Name, s.URL, s.Server
	}
	m.resetForm(stateFormSite, id)
	m.inputs = []textinput.Model{
		ti("Site name", name, true),
		ti("https://example.com", url, false),
		ti(sites.DefaultServer, server, false),
	}
}

// initFormMaintenance pre-fills the form with the latest recorded versions so
// only what changed needs typing.
func (m *Model) initFormMaintenance(s models.Site) {
	m.resetForm(stateFormMaintenance, s.ID)
	var prev models.MaintenanceLog
	if l := s.Latest(); l != nil {
		prev = *l
	}
	keep := func(v string) string {
		if v == "-" {
			return ""
		}
		return v
	}
	if s.Kind == models.KindSupportPal {
		m.inputs = []textinput.Model{
			ti("SupportPal version", keep(prev.AppVersion), true),
			ti("PHP version", keep(prev.PHPVersion), false),
			ti("Database version", keep(prev.DBVersion), false),
			ti("Nginx version", keep(prev.NginxVersion), false),
			ti("Note", "", false),
		}
		return
	}
	m.inputs = []textinput.Model{
		ti("WordPress version", keep(prev.AppVersion), true),
		ti("PHP version", keep(prev.PHPVersion), false),
		ti("Database version", keep(prev.DBVersion), false),
		ti("Theme", keep(prev.Theme), false),
		ti("akismet:5.3, yoast:22.1", formatPlugins(prev.Plugins), false),
		ti("Note", "", false),
	}
}

func (m *Model) initFormChannel(a *models.AlertConfig) {
	var id, name, typ, url, token, extra string
	if a != nil {
		id, name, typ = a.ID, a.Name, a.Type
		url, token = a.Settings["url"], a.Settings["token"]
		extra = formatSettings(a.Settings)
	}
	if typ == "" {
		typ = "line"
	}
	m.resetForm(stateFormChannel, id)
	m.inputs = []textinput.Model{
		ti("Channel name", name, true),
		ti("", typ, false),
		ti("Webhook URL (line: optional)", url, false),
		ti("Token (line only)", token, false),
		ti("host=smtp.example.com, port=587, to=ops@example.com", extra, false),
	}
	m.inputs[3].EchoMode = textinput.EchoPassword
}

var (
	siteLabels          = []string{"Name", "URL", "Server"}
	wordpressLabels     = []string{"WordPress Version", "PHP Version", "DB Version", "Theme", "Plugins (name:version, ...)", "Note"}
	supportpalLabels    = []string{"SupportPal Version", "PHP Version", "DB Version", "Nginx Version", "Note"}
	channelLabels       = []string{"Name", "Type (Enter to select)", "URL", "Token", "Other settings (key=value, ...; key= removes; pass is never shown)"}
	formTitleStyle      = lipgloss.NewStyle().Bold(true).Underline(true).MarginBottom(1)
	formFieldLabelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#ffffff")).Bold(true)
)

func (m Model) formLabels() []string {
	switch m.state {
	case stateFormSite:
		return siteLabels
	case stateFormChannel:
		return channelLabels
	case stateFormMaintenance:
		if m.currentKind() == models.KindSupportPal {
			return supportpalLabels
		}
		return wordpressLabels
	}
	return nil
}

func (m Model) formTitle() string {
	switch m.state {
	case stateFormSite:
		if m.editID != "" {
			return "EDIT " + strings.ToUpper(m.currentKind().Label()) + " SITE"
		}
		return "NEW " + strings.ToUpper(m.currentKind().Label()) + " SITE"
	case stateFormMaintenance:
		return "RECORD MAINTENANCE"
	case stateFormChannel:
		if m.editID != "" {
			return "EDIT CHANNEL"
		}
		return "NEW CHANNEL"
	}
	return ""
}

func (m *Model) updateFormContent() {
	var b strings.Builder
	b.WriteString(formTitleStyle.Render(m.formTitle()) + "\n")
	b.WriteString(subtleStyle.Render("Tab/Enter: next | Esc: cancel | Enter on last field: save") + "\n\n")

	labels := m.formLabels()
	for i := range m.inputs {
		label := ""
		if i < len(labels) {
			label = labels[i]
		}
		b.WriteString(formFieldLabelStyle.Render(label) + "\n")
		b.WriteString(m.inputs[i].View() + "\n\n")
	}
	if m.errorMsg != "" {
		b.WriteString(dangerStyle.Render("Error: "+m.errorMsg) + "\n")
	}
	m.formViewport.SetContent(b.String())
}

func (m Model) value(i int) string {
	if i >= len(m.inputs) {
		return ""
	}
	return strings.TrimSpace(m.inputs[i].Value())
}

func (m *Model) submitForm() error {
	ctx := m.deps.Ctx
	switch m.state {
	case stateFormSite:
		in := sites.SiteInput{Name: m.value(0), URL: m.value(1), Server: m.value(2)}
		if m.editID != "" {
			_, err := m.deps.Sites.Update(ctx, m.currentKind(), m.editID, in)
			return err
		}
		_, err := m.deps.Sites.Create(ctx, m.currentKind(), in)
		return err

	case stateFormMaintenance:
		in := sites.MaintenanceInput{
			AppVersion: m.value(0),
			PHPVersion: m.value(1),
			DBVersion:  m.value(2),
		}
		if m.currentKind() == models.KindSupportPal {
			in.NginxVersion = m.value(3)
			in.Note = m.value(4)
		} else {
			in.Theme = m.value(3)
			in.Plugins = parsePluginInput(m.value(4))
			in.Note = m.value(5)
		}
		_, err := m.deps.Sites.RecordMaintenance(ctx, m.currentKind(), m.editID, in, m.deps.Identity)
		if err == nil {
			m.flash = "Maintenance recorded."
		}
		return err

	case stateFormChannel:
		a := models.AlertConfig{
			ID:       m.editID,
			Name:     m.value(0),
			Type:     m.value(1),
			Settings: m.existingSettings(),
		}
		if a.Name == "" {
			return errors.New("name is required")
		}
		setOrDelete(a.Settings, "url", m.value(2))
		setOrDelete(a.Settings, "token", m.value(3))
		if err := mergeSettings(a.Settings, m.value(4)); err != nil {
			return err
		}
		if _, err := alert.GetProvider(a); err != nil {
			return err
		}
		if m.editID != "" {
			if err := m.deps.Store.UpdateAlert(ctx, a); err != nil {
				return err
			}
			m.deps.Activity.Addf("Updated channel '%s'", a.Name)
			return nil
		}
		if err := m.deps.Store.AddAlert(ctx, &a); err != nil {
			return err
		}
		m.deps.Activity.Addf("Added channel '%s' (%s)", a.Name, a.Type)
		return nil
	}
	return nil
}

// parsePluginInput reads "name:version" pairs separated by commas. A pair
// without a version gets the "-" placeholder.
func parsePluginInput(text string) []models.Plugin {
	var out []models.Plugin
	for _, part := range strings.Split(text, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, version, ok := strings.Cut(part, ":")
		name, version = strings.TrimSpace(name), strings.TrimSpace(version)
		if name == "" {
			continue
		}
		if !ok || version == "" {
			version = "-"
		}
		out = append(out, models.Plugin{Name: name, Version: version})
	}
	return out
}

func formatPlugins(list []models.Plugin) string {
	parts := make([]string, 0, len(list))
	for _, p := range list {
		parts = append(parts, fmt.Sprintf("%s:%s", p.Name, p.Version))
	}
	return strings.Join(parts, ", ")
}

// existingSettings copies the stored settings of the channel being edited so
// keys the form does not show survive the edit.
func (m Model) existingSettings() map[string]string {
	out := map[string]string{}
	if m.editID == "" {
		return out
	}
	for _, a := range m.channels {
		if a.ID == m.editID {
			maps.Copy(out, a.Settings)
		}
	}
	return out
}

func setOrDelete(settings map[string]string, key, value string) {
	if value == "" {
		delete(settings, key)
		return
	}
	settings[key] = value
}

// hiddenSettings are edited through their own fields or never echoed back.
var hiddenSettings = map[string]bool{"url": true, "token": true, "pass": true}

// formatSettings renders the settings without a dedicated field as
// "key=value" pairs in key order.
func formatSettings(settings map[string]string) string {
	keys := make([]string, 0, len(settings))
	for k := range settings {
		if !hiddenSettings[k] {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+settings[k])
	}
	return strings.Join(parts, ", ")
}

// mergeSettings applies "key=value" pairs onto settings. An empty value
// removes the key.
func mergeSettings(settings map[string]string, text string) error {
	for _, part := range strings.Split(text, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		key, value, ok := strings.Cut(part, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return fmt.Errorf("setting %q must be key=value", part)
		}
		setOrDelete(settings, key, strings.TrimSpace(value))
	}
	return nil
}
