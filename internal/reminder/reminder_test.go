package reminder

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"go-maintdash/internal/alert"
	"go-maintdash/internal/models"
	"go-maintdash/internal/monitor"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSites struct {
	sites []models.Site
	err   error
}

func (s stubSites) ListSites(_ context.Context, kind models.Kind, _ int) ([]models.Site, error) {
	if kind != models.KindWordPress {
		return nil, nil
	}
	return s.sites, s.err
}

type recorder struct {
	titles, bodies []string
	err            error
}

func (r *recorder) Send(_ context.Context, title, message string) error {
	r.titles = append(r.titles, title)
	r.bodies = append(r.bodies, message)
	return r.err
}

// Wednesday 2026-10-14 10:00, so the week started Monday 2026-10-12.
var now = time.Date(2026, 10, 14, 10, 0, 0, 0, time.Local)

func site(name string, checked *time.Time) models.Site {
	return models.Site{
		Name: name,
		Kind: models.KindWordPress,
		Logs: []models.MaintenanceLog{{CheckedAt: checked}},
	}
}

func at(t time.Time) *time.Time { return &t }

func TestRunSendsOneMessageForDueSites(t *testing.T) {
	rec := &recorder{}
	d := &Dispatcher{
		Sites: stubSites{sites: []models.Site{
			site("Alpha", nil),
			site("Bravo", at(now.AddDate(0, 0, -1))),
			site("Charlie", at(now.AddDate(0, 0, -7))),
		}},
		Provider: rec,
		Now:      func() time.Time { return now },
	}

	summary, err := d.Run(context.Background())
	require.NoError(t, err)
	assert.True(t, summary.Sent)
	assert.Equal(t, 2, summary.Count)
	assert.Equal(t, []string{"Alpha", "Charlie"}, summary.Sites)

	require.Len(t, rec.bodies, 1)
	body := rec.bodies[0]
	assert.Contains(t, body, "2 WordPress site(s)")
	assert.Contains(t, body, "- Alpha\n")
	assert.Contains(t, body, "- Charlie\n")
	assert.NotContains(t, body, "Bravo")
	assert.Equal(t, "Maintenance Reminder (2026-10-14)", rec.titles[0])
}

func TestRunSendsNothingWhenAllCompleted(t *testing.T) {
	rec := &recorder{}
	d := &Dispatcher{
		Sites:    stubSites{sites: []models.Site{site("Alpha", at(now.Add(-time.Hour)))}},
		Provider: rec,
		Now:      func() time.Time { return now },
	}

	summary, err := d.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Summary{}, summary)
	assert.Empty(t, rec.bodies)
}

func TestRunDeliveryFailureIsNotAnError(t *testing.T) {
	activity := monitor.NewActivity()
	d := &Dispatcher{
		Sites:    stubSites{sites: []models.Site{site("Alpha", nil)}},
		Provider: &recorder{err: errors.New("webhook down")},
		Activity: activity,
		Now:      func() time.Time { return now },
	}

	summary, err := d.Run(context.Background())
	require.NoError(t, err)
	assert.False(t, summary.Sent)
	assert.Equal(t, 1, summary.Count)
	require.NotEmpty(t, activity.Entries())
	assert.Contains(t, activity.Entries()[0], "webhook down")
}

func TestRunPartialDeliveryCountsAsSent(t *testing.T) {
	activity := monitor.NewActivity()
	ok := &recorder{}
	d := &Dispatcher{
		Sites:    stubSites{sites: []models.Site{site("Alpha", nil)}},
		Provider: alert.Multi{&recorder{err: errors.New("slack down")}, ok},
		Activity: activity,
		Now:      func() time.Time { return now },
	}

	summary, err := d.Run(context.Background())
	require.NoError(t, err)
	assert.True(t, summary.Sent)
	assert.True(t, summary.Partial)
	assert.Len(t, ok.bodies, 1)
	require.NotEmpty(t, activity.Entries())
	assert.Contains(t, activity.Entries()[0], "slack down")
}

func TestRunWithoutProvider(t *testing.T) {
	d := &Dispatcher{
		Sites: stubSites{sites: []models.Site{site("Alpha", nil)}},
		Now:   func() time.Time { return now },
	}
	summary, err := d.Run(context.Background())
	require.NoError(t, err)
	assert.False(t, summary.Sent)
	assert.Equal(t, 1, summary.Count)
}

func TestRunStoreFailure(t *testing.T) {
	d := &Dispatcher{Sites: stubSites{err: errors.New("db gone")}, Provider: &recorder{}}
	_, err := d.Run(context.Background())
	assert.Error(t, err)
}

func TestComposeMessage(t *testing.T) {
	title, body := ComposeMessage("Ops", []string{"A"}, now)
	assert.Equal(t, "Ops (2026-10-14)", title)
	assert.True(t, strings.HasPrefix(body, "1 WordPress site(s) need maintenance:\n- A\n"))
}
