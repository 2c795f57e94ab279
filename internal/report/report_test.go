package report

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"
	"time"

	"go-maintdash/internal/models"
	"go-maintdash/internal/status"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Thursday 2026-10-15; week starts Monday 2026-10-12, month 2026-10-01.
var now = time.Date(2026, 10, 15, 9, 0, 0, 0, time.Local)

func at(t time.Time) *time.Time { return &t }

func fixture() []models.Site {
	return []models.Site{
		{
			ID: "sp1", Kind: models.KindSupportPal, Name: "Helpdesk", Server: "srv-b",
			Logs: []models.MaintenanceLog{{CheckedAt: at(now.AddDate(0, 0, -10)), AppVersion: "5.1", NginxVersion: "1.25", Note: "monthly"}},
		},
		{
			ID: "wp2", Kind: models.KindWordPress, Name: "bravo", Server: "srv-a",
			Logs: []models.MaintenanceLog{{CheckedAt: nil}},
		},
		{
			ID: "wp1", Kind: models.KindWordPress, Name: "Alpha", Server: "srv-a",
			Logs: []models.MaintenanceLog{
				{CheckedAt: at(now.Add(-time.Hour)), AppVersion: "6.5", Plugins: []models.Plugin{{Name: "A", Version: "1.0"}, {Name: "B", Version: "2.0"}}, Note: "ok"},
				{CheckedAt: at(now.AddDate(0, 0, -7)), AppVersion: "6.4", Plugins: []models.Plugin{{Name: "A", Version: "1.0"}, {Name: "B", Version: "1.9"}}},
			},
		},
	}
}

func TestBuildSplitsPendingAndCompleted(t *testing.T) {
	r := Build(fixture(), now)

	require.Len(t, r.Pending, 1)
	assert.Equal(t, "bravo", r.Pending[0].Name)
	assert.Equal(t, status.Pending, r.Pending[0].Status)
	assert.Nil(t, r.Pending[0].Diff)

	require.Len(t, r.Completed, 2)
	assert.Equal(t, "Alpha", r.Completed[0].Name)
	assert.Equal(t, "Helpdesk", r.Completed[1].Name)

	d := r.Completed[0].Diff
	require.NotNil(t, d)
	assert.Equal(t, "6.4 → 6.5", d.AppVersion.String())
	require.Len(t, d.Plugins, 1)
	assert.Equal(t, "B", d.Plugins[0].Name)
	assert.Equal(t, "ok", r.Completed[0].Note)

	assert.Equal(t, Stats{TotalSites: 3, NeedsAttention: 1, Completed: 2, Servers: 2, WordPress: 2, SupportPal: 1}, r.Stats)
}

func TestBuildEmpty(t *testing.T) {
	r := Build(nil, now)
	assert.NotNil(t, r.Pending)
	assert.NotNil(t, r.Completed)
	assert.Zero(t, r.Stats.TotalSites)
}

func TestWriteCSVRoundTripsQuotedFields(t *testing.T) {
	sites := []models.Site{{
		Kind: models.KindWordPress, Name: "Test, Inc", URL: "https://test.example", Server: "srv",
		Logs: []models.MaintenanceLog{{CheckedAt: at(now.Add(-time.Hour)), Note: `has "quotes"`}},
	}}

	var buf bytes.Buffer
	require.NoError(t, Build(sites, now).WriteCSV(&buf))
	require.True(t, strings.HasPrefix(buf.String(), utf8BOM))

	records, err := csv.NewReader(strings.NewReader(strings.TrimPrefix(buf.String(), utf8BOM))).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, csvHeader, records[0])

	row := records[1]
	assert.Equal(t, "WordPress", row[0])
	assert.Equal(t, "Test, Inc", row[1])
	assert.Equal(t, "Completed", row[4])
	assert.Equal(t, `has "quotes"`, row[6])
}

func TestRowsUseDashForNeverChecked(t *testing.T) {
	rows := Build(fixture(), now).Rows()
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"WordPress", "bravo", "", "srv-a", "Pending", "-", ""}, rows[1])
	assert.Equal(t, "SupportPal", rows[2][0])
}

func TestFilename(t *testing.T) {
	assert.Equal(t, "maintenance_report_2026-10-15.csv", Filename(now))
}
