package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"go-maintdash/internal/diff"
	"go-maintdash/internal/models"
	"go-maintdash/internal/status"
)

// utf8BOM lets spreadsheet tools detect the encoding.
const utf8BOM = "\uFEFF"

var csvHeader = []string{"System", "Name", "URL", "Server", "Status", "Last Check Date", "Note"}

// Entry is one site as shown on the report.
type Entry struct {
	ID        string        `json:"id"`
	Kind      models.Kind   `json:"kind"`
	System    string        `json:"system"`
	Name      string        `json:"name"`
	URL       string        `json:"url"`
	Server    string        `json:"server"`
	Status    status.Status `json:"status"`
	LastCheck *time.Time    `json:"lastCheck"`
	Note      string        `json:"note"`
	// Diff is set only for completed entries.
	Diff *diff.LogDiff `json:"diff,omitempty"`
}

type Stats struct {
	TotalSites     int `json:"totalSites"`
	NeedsAttention int `json:"needsAttention"`
	Completed      int `json:"completed"`
	Servers        int `json:"servers"`
	WordPress      int `json:"wordpress"`
	SupportPal     int `json:"supportpal"`
}

type Report struct {
	GeneratedAt time.Time `json:"generatedAt"`
	Pending     []Entry   `json:"pending"`
	Completed   []Entry   `json:"completed"`
	Stats       Stats     `json:"stats"`
	// All keeps every entry in export order: WordPress then SupportPal, by name.
	All []Entry `json:"-"`
}

// Build classifies every site against now. Sites are expected to carry their
// two newest logs.
func Build(sites []models.Site, now time.Time) Report {
	sorted := make([]models.Site, len(sites))
	copy(sorted, sites)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Kind != sorted[j].Kind {
			return sorted[i].Kind == models.KindWordPress
		}
		return strings.ToLower(sorted[i].Name) < strings.ToLower(sorted[j].Name)
	})

	r := Report{GeneratedAt: now, Pending: []Entry{}, Completed: []Entry{}}
	servers := make(map[string]struct{})
	for _, s := range sorted {
		e := Entry{
			ID:     s.ID,
			Kind:   s.Kind,
			System: s.Kind.Label(),
			Name:   s.Name,
			URL:    s.URL,
			Server: s.Server,
			Status: status.ForSite(s, now),
		}
		if latest := s.Latest(); latest != nil {
			e.LastCheck = latest.CheckedAt
			e.Note = latest.Note
		}
		if e.Status.NeedsAttention() {
			r.Pending = append(r.Pending, e)
		} else {
			d := diff.Compare(s.Latest(), s.Previous())
			e.Diff = &d
			r.Completed = append(r.Completed, e)
		}
		r.All = append(r.All, e)

		servers[s.Server] = struct{}{}
		switch s.Kind {
		case models.KindWordPress:
			r.Stats.WordPress++
		case models.KindSupportPal:
			r.Stats.SupportPal++
		}
	}
	r.Stats.TotalSites = len(sorted)
	r.Stats.NeedsAttention = len(r.Pending)
	r.Stats.Completed = len(r.Completed)
	r.Stats.Servers = len(servers)
	return r
}

// Rows flattens the report into CSV records, header excluded.
func (r Report) Rows() [][]string {
	rows := make([][]string, 0, len(r.All))
	for _, e := range r.All {
		checked := "-"
		if e.LastCheck != nil {
			checked = e.LastCheck.Format(time.RFC3339)
		}
		rows = append(rows, []string{e.System, e.Name, e.URL, e.Server, string(e.Status), checked, e.Note})
	}
	return rows
}

// WriteCSV writes a UTF-8 CSV with a byte-order mark. Fields containing
// commas, quotes or newlines are quoted by encoding/csv.
func (r Report) WriteCSV(w io.Writer) error {
	if _, err := io.WriteString(w, utf8BOM); err != nil {
		return err
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	if err := cw.WriteAll(r.Rows()); err != nil {
		return fmt.Errorf("report: write csv: %w", err)
	}
	return nil
}

func Filename(now time.Time) string {
	return fmt.Sprintf("maintenance_report_%s.csv", now.Format("2006-01-02"))
}
