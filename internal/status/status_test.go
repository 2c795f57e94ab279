package status

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"go-maintdash/internal/models"
)

func at(y int, m time.Month, d, h int) time.Time {
	return time.Date(y, m, d, h, 0, 0, 0, time.Local)
}

func ptr(t time.Time) *time.Time { return &t }

func TestPeriodStartWeekly(t *testing.T) {
	tests := []struct {
		name string
		now  time.Time
		want time.Time
	}{
		{"monday morning", at(2026, 10, 12, 9), at(2026, 10, 12, 0)},
		{"friday", at(2026, 10, 16, 15), at(2026, 10, 12, 0)},
		{"sunday goes back six days", at(2026, 10, 18, 23), at(2026, 10, 12, 0)},
		{"across month boundary", at(2026, 10, 1, 8), at(2026, 9, 28, 0)},
		{"across year boundary", at(2027, 1, 2, 8), at(2026, 12, 28, 0)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := PeriodStart(models.KindWordPress, tt.now)
			assert.True(t, tt.want.Equal(got), "got %v want %v", got, tt.want)
			assert.Equal(t, time.Monday, got.Weekday())
		})
	}
}

func TestPeriodStartMonthly(t *testing.T) {
	got := PeriodStart(models.KindSupportPal, at(2026, 10, 16, 15))
	assert.True(t, at(2026, 10, 1, 0).Equal(got))

	got = PeriodStart(models.KindSupportPal, at(2026, 3, 1, 0))
	assert.True(t, at(2026, 3, 1, 0).Equal(got))
}

func TestEvaluateNoLogIsPending(t *testing.T) {
	now := at(2026, 10, 16, 12)
	for _, kind := range []models.Kind{models.KindWordPress, models.KindSupportPal} {
		assert.Equal(t, Pending, Evaluate(kind, nil, now))
		assert.Equal(t, Pending, ForSite(models.Site{Kind: kind}, now))
	}
}

func TestEvaluateEpochNeverCompletes(t *testing.T) {
	epoch := time.Unix(0, 0)
	for _, now := range []time.Time{at(1970, 1, 5, 0), at(2026, 10, 16, 12), at(2099, 6, 1, 0)} {
		for _, kind := range []models.Kind{models.KindWordPress, models.KindSupportPal} {
			got := Evaluate(kind, &epoch, now)
			assert.True(t, got.NeedsAttention(), "kind %s now %v", kind, now)
		}
	}
}

func TestEvaluateWeekly(t *testing.T) {
	sunday := at(2026, 10, 18, 20)
	monday := at(2026, 10, 12, 0)
	tests := []struct {
		name    string
		checked time.Time
		now     time.Time
		want    Status
	}{
		{"exactly monday midnight", monday, sunday, Completed},
		{"one second before monday", monday.Add(-time.Second), sunday, Due},
		{"checked during week", at(2026, 10, 14, 10), at(2026, 10, 16, 10), Completed},
		{"checked last week", at(2026, 10, 9, 10), at(2026, 10, 12, 1), Due},
		{"saturday check seen on sunday", at(2026, 10, 17, 10), sunday, Completed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Evaluate(models.KindWordPress, ptr(tt.checked), tt.now))
		})
	}
}

func TestEvaluateMonthly(t *testing.T) {
	now := at(2026, 10, 16, 12)
	assert.Equal(t, Completed, Evaluate(models.KindSupportPal, ptr(at(2026, 10, 1, 0)), now))
	assert.Equal(t, Due, Evaluate(models.KindSupportPal, ptr(at(2026, 9, 30, 23)), now))
	// weekly rule would call this due, monthly must not
	assert.Equal(t, Completed, Evaluate(models.KindSupportPal, ptr(at(2026, 10, 2, 9)), now))
	assert.Equal(t, Due, Evaluate(models.KindWordPress, ptr(at(2026, 10, 2, 9)), now))
}

func TestForSiteUsesNewestLog(t *testing.T) {
	now := at(2026, 10, 16, 12)
	site := models.Site{
		Kind: models.KindWordPress,
		Logs: []models.MaintenanceLog{
			{CheckedAt: ptr(at(2026, 10, 13, 9))},
			{CheckedAt: ptr(at(2026, 10, 1, 9))},
		},
	}
	assert.Equal(t, Completed, ForSite(site, now))
	assert.False(t, ForSite(site, now).NeedsAttention())
}
