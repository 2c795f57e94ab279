// Package reminder sends one aggregated notification listing every
// WordPress site whose weekly maintenance is outstanding.
package reminder

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go-maintdash/internal/alert"
	"go-maintdash/internal/metrics"
	"go-maintdash/internal/models"
	"go-maintdash/internal/monitor"
	"go-maintdash/internal/status"

	"go.uber.org/zap"
)

const defaultTitle = "Maintenance Reminder"

// SiteLister is the slice of the store the dispatcher reads from.
type SiteLister interface {
	ListSites(ctx context.Context, kind models.Kind, logLimit int) ([]models.Site, error)
}

// Summary reports what a run did. Sent is true once at least one channel
// accepted the message; Partial marks that other channels failed.
type Summary struct {
	Sent    bool     `json:"sent"`
	Partial bool     `json:"partial,omitempty"`
	Count   int      `json:"count"`
	Sites   []string `json:"sites,omitempty"`
}

type Dispatcher struct {
	Sites    SiteLister
	Provider alert.Provider // nil disables delivery
	Title    string
	Logger   *zap.Logger
	Metrics  *metrics.Metrics
	Activity *monitor.Activity
	Now      func() time.Time
}

// Run evaluates every WordPress site and, when any need attention, delivers a
// single message. Only a failure to read the store is returned as an error.
func (d *Dispatcher) Run(ctx context.Context) (Summary, error) {
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := time.Now()
	if d.Now != nil {
		now = d.Now()
	}

	sites, err := d.Sites.ListSites(ctx, models.KindWordPress, 1)
	if err != nil {
		return Summary{}, fmt.Errorf("reminder: list sites: %w", err)
	}
	var due []string
	for _, s := range sites {
		if status.ForSite(s, now).NeedsAttention() {
			due = append(due, s.Name)
		}
	}

	summary := Summary{Count: len(due), Sites: due}
	if len(due) == 0 {
		logger.Info("reminder: no maintenance due")
		d.Metrics.ObserveNotification("skipped")
		return summary, nil
	}
	if d.Provider == nil {
		logger.Warn("reminder: no notification channel configured", zap.Int("due", len(due)))
		d.Metrics.ObserveNotification("skipped")
		return summary, nil
	}

	title, body := ComposeMessage(d.Title, due, now)
	err = d.Provider.Send(ctx, title, body)
	var partial *alert.PartialError
	if errors.As(err, &partial) {
		summary.Sent, summary.Partial = true, true
		logger.Warn("reminder: sent with channel failures",
			zap.Int("due", len(due)), zap.Int("delivered", partial.Delivered), zap.Error(partial.Err))
		d.Metrics.ObserveNotification("partial")
		d.activity("Reminder sent for %d site(s), some channels failed: %v", len(due), partial.Err)
		return summary, nil
	}
	if err != nil {
		logger.Error("reminder: delivery failed", zap.Int("due", len(due)), zap.Error(err))
		d.Metrics.ObserveNotification("failed")
		d.activity("Reminder delivery failed: %v", err)
		return summary, nil
	}
	summary.Sent = true
	logger.Info("reminder: sent", zap.Int("due", len(due)))
	d.Metrics.ObserveNotification("sent")
	d.activity("Reminder sent for %d site(s)", len(due))
	return summary, nil
}

func (d *Dispatcher) activity(format string, args ...any) {
	if d.Activity != nil {
		d.Activity.Addf(format, args...)
	}
}

// ComposeMessage renders the title and body for the given site names.
func ComposeMessage(title string, names []string, now time.Time) (string, string) {
	if title == "" {
		title = defaultTitle
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%d WordPress site(s) need maintenance:\n", len(names))
	for _, n := range names {
		fmt.Fprintf(&b, "- %s\n", n)
	}
	b.WriteString("\nPlease check the dashboard.")
	return fmt.Sprintf("%s (%s)", title, now.Format("2006-01-02")), b.String()
}
