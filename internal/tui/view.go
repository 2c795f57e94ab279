package tui

import (
	"fmt"
	"strings"
	"time"

	"go-maintdash/internal/models"
	"go-maintdash/internal/monitor"
	"go-maintdash/internal/status"

	"github.com/charmbracelet/lipgloss"
)

var (
	subtleStyle  = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#D9DCCF", Dark: "#383838"})
	specialStyle = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#43BF6D", Dark: "#73F59F"})
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#F0E442", Dark: "#F0E442"})
	dangerStyle  = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#F25D94", Dark: "#F25D94"})
	titleStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#7D56F4")).Bold(true)

	activeTab   = lipgloss.NewStyle().Border(lipgloss.NormalBorder(), false, false, true, false).BorderForeground(lipgloss.Color("#7D56F4")).Foreground(lipgloss.Color("#7D56F4")).Bold(true).Padding(0, 1)
	inactiveTab = lipgloss.NewStyle().Padding(0, 1).Foreground(lipgloss.AdaptiveColor{Light: "#AAA", Dark: "#555"})

	colName    = lipgloss.NewStyle().Width(24)
	colServer  = lipgloss.NewStyle().Width(16)
	colStatus  = lipgloss.NewStyle().Width(12)
	colChecked = lipgloss.NewStyle().Width(18)
	colVersion = lipgloss.NewStyle().Width(10)
)

func (m Model) View() string {
	switch m.state {
	case stateSelectType:
		f := subtleStyle.Render("\n[Enter] Select  [Esc] Cancel")
		return lipgloss.NewStyle().Padding(1, 2).Render(m.typeList.View()) + "\n" + f
	case stateFormSite, stateFormMaintenance, stateFormChannel:
		f := subtleStyle.Render("\n[Enter] Save  [PgUp/PgDn] Scroll  [Esc] Cancel")
		return m.formViewport.View() + "\n" + f
	default:
		return m.viewDashboard()
	}
}

func (m Model) viewDashboard() string {
	var renderedTabs []string
	for i, t := range tabNames {
		if i == m.currentTab {
			renderedTabs = append(renderedTabs, activeTab.Render(t))
		} else {
			renderedTabs = append(renderedTabs, inactiveTab.Render(t))
		}
	}
	header := lipgloss.JoinHorizontal(lipgloss.Top, renderedTabs...)
	if who := m.deps.Identity.Attribution(); who != "" {
		header += "  " + titleStyle.Render(who)
	}

	var content string
	footer := "[n] New  [e] Edit  [m] Maintain  [u] Probe  [d] Delete  [r] Remind  [Tab] Switch  [q] Quit"
	switch m.currentTab {
	case tabWordPress, tabSupportPal:
		content = m.viewSites()
	case tabChannels:
		content = m.viewChannels()
		footer = "[n] New  [e/Enter] Edit  [d] Delete  [r] Remind  [Tab] Switch  [q] Quit"
	case tabActivity:
		content = "\n" + m.activityViewport.View()
		footer = "[Up/Down] Scroll  [Tab] Switch  [q] Quit"
	}
	if m.flash != "" {
		content += "\n" + warnStyle.Render(m.flash)
	}
	return lipgloss.NewStyle().Padding(1, 2).Render(header + "\n" + content + "\n" + subtleStyle.Render("\n"+footer))
}

func (m Model) viewSites() string {
	list := m.currentSites()
	now := m.deps.Now()

	headerStr := lipgloss.JoinHorizontal(lipgloss.Left,
		colName.Render("NAME"), colServer.Render("SERVER"), colStatus.Render("STATUS"),
		colChecked.Render("LAST CHECK"), colVersion.Render("VERSION"), "UPTIME")
	content := "\n" + headerStr + "\n"
	content += subtleStyle.Render(strings.Repeat("-", 90)) + "\n"

	if len(list) == 0 {
		return content + "\n  No sites configured."
	}

	end := min(m.tableOffset+m.maxTableRows, len(list))
	for i := m.tableOffset; i < end; i++ {
		site := list[i]
		st := status.ForSite(site, now)

		statusStyle := specialStyle
		switch st {
		case status.Due:
			statusStyle = dangerStyle
		case status.Pending:
			statusStyle = warnStyle
		}

		checked, version := "never", "-"
		if l := site.Latest(); l != nil {
			if l.CheckedAt != nil {
				checked = l.CheckedAt.In(now.Location()).Format("2006-01-02 15:04")
			}
			version = l.AppVersion
		}

		row := lipgloss.JoinHorizontal(lipgloss.Left,
			colName.Render(limitStr(site.Name, 22)),
			colServer.Render(limitStr(site.Server, 14)),
			colStatus.Render(statusStyle.Render(string(st))),
			colChecked.Render(checked),
			colVersion.Render(limitStr(version, 9)),
			m.uptimeCell(site),
		)

		if m.cursor == i {
			row = lipgloss.NewStyle().Bold(true).Render(">" + row)
		} else {
			row = " " + row
		}
		content += row + "\n"
	}
	return content
}

func (m Model) uptimeCell(site models.Site) string {
	r, ok := m.deps.Tracker.Get(site.URL)
	if !ok {
		return subtleStyle.Render("-")
	}
	if r.Status == monitor.StatusDown {
		return dangerStyle.Render("DOWN")
	}
	return specialStyle.Render(fmt.Sprintf("UP %v", r.Latency.Round(time.Millisecond)))
}

func (m Model) viewChannels() string {
	content := fmt.Sprintf("\n  %-20s %-10s %s\n", "NAME", "TYPE", "TARGET")
	content += subtleStyle.Render(strings.Repeat("-", 64)) + "\n"

	if len(m.channels) == 0 {
		return content + "\n  No channels configured."
	}

	end := min(m.tableOffset+m.maxTableRows, len(m.channels))
	for i := m.tableOffset; i < end; i++ {
		a := m.channels[i]
		cursor := " "
		if m.cursor == i {
			cursor = ">"
		}
		target := a.Settings["url"]
		if target == "" && a.Settings["token"] != "" {
			target = "(token)"
		}
		row := fmt.Sprintf("%s %-20s %-10s %s", cursor, limitStr(a.Name, 20), a.Type, limitStr(target, 30))
		if m.cursor == i {
			row = lipgloss.NewStyle().Bold(true).Render(row)
		}
		content += row + "\n"
	}
	return content
}

func limitStr(text string, max int) string {
	if len(text) > max {
		return text[:max-3] + "..."
	}
	return text
}
