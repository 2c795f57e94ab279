// Package sites validates and records site and maintenance changes on top of
// the store. Every write that needs attribution takes the caller's identity
// explicitly.
package sites

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go-maintdash/internal/models"
	"go-maintdash/internal/monitor"
	"go-maintdash/internal/session"
	"go-maintdash/internal/store"

	"go.uber.org/zap"
)

const (
	DefaultServer = "Default Server"
	placeholder   = "-"
)

// ValidationError marks a client-input failure on a single field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

type SiteInput struct {
	Name   string
	URL    string
	Server string
	// Initial seeds the first log's version fields on create.
	Initial MaintenanceInput
}

type MaintenanceInput struct {
	AppVersion   string
	PHPVersion   string
	DBVersion    string
	Theme        string
	NginxVersion string
	Plugins      []models.Plugin
	Note         string
}

type Service struct {
	store    store.Store
	logger   *zap.Logger
	activity *monitor.Activity
	now      func() time.Time
}

func New(st store.Store, logger *zap.Logger, activity *monitor.Activity) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if activity == nil {
		activity = monitor.NewActivity()
	}
	return &Service{store: st, logger: logger, activity: activity, now: time.Now}
}

func checkKind(kind models.Kind) error {
	if !kind.Valid() {
		return &ValidationError{Field: "kind", Message: fmt.Sprintf("unknown site type %q", kind)}
	}
	return nil
}

func (s *Service) List(ctx context.Context, kind models.Kind, logLimit int) ([]models.Site, error) {
	if err := checkKind(kind); err != nil {
		return nil, err
	}
	return s.store.ListSites(ctx, kind, logLimit)
}

// All returns both families, WordPress first.
func (s *Service) All(ctx context.Context, logLimit int) ([]models.Site, error) {
	wp, err := s.store.ListSites(ctx, models.KindWordPress, logLimit)
	if err != nil {
		return nil, err
	}
	sp, err := s.store.ListSites(ctx, models.KindSupportPal, logLimit)
	if err != nil {
		return nil, err
	}
	return append(wp, sp...), nil
}

func (s *Service) Get(ctx context.Context, kind models.Kind, id string, logLimit int) (models.Site, error) {
	if err := checkKind(kind); err != nil {
		return models.Site{}, err
	}
	return s.store.GetSite(ctx, kind, id, logLimit)
}

// Create stores the site together with a never-checked initial log, so a new
// site is pending until its first maintenance.
func (s *Service) Create(ctx context.Context, kind models.Kind, in SiteInput) (models.Site, error) {
	if err := checkKind(kind); err != nil {
		return models.Site{}, err
	}
	site, err := buildSite(kind, in)
	if err != nil {
		return models.Site{}, err
	}
	initial := &models.MaintenanceLog{
		AppVersion:   orPlaceholder(in.Initial.AppVersion),
		PHPVersion:   orPlaceholder(in.Initial.PHPVersion),
		DBVersion:    orPlaceholder(in.Initial.DBVersion),
		Theme:        orPlaceholder(in.Initial.Theme),
		NginxVersion: orPlaceholder(in.Initial.NginxVersion),
		Plugins:      in.Initial.Plugins,
		Note:         strings.TrimSpace(in.Initial.Note),
	}
	if err := s.store.CreateSite(ctx, &site, initial); err != nil {
		return models.Site{}, err
	}
	s.logger.Info("site created", zap.String("kind", string(kind)), zap.String("id", site.ID), zap.String("name", site.Name))
	s.activity.Addf("Added %s site '%s'", kind.Label(), site.Name)
	return site, nil
}

func (s *Service) Update(ctx context.Context, kind models.Kind, id string, in SiteInput) (models.Site, error) {
	if err := checkKind(kind); err != nil {
		return models.Site{}, err
	}
	if strings.TrimSpace(id) == "" {
		return models.Site{}, &ValidationError{Field: "id", Message: "is required"}
	}
	site, err := buildSite(kind, in)
	if err != nil {
		return models.Site{}, err
	}
	site.ID = id
	if err := s.store.UpdateSite(ctx, site); err != nil {
		return models.Site{}, err
	}
	s.activity.Addf("Updated %s site '%s'", kind.Label(), site.Name)
	return s.store.GetSite(ctx, kind, id, 1)
}

func (s *Service) Delete(ctx context.Context, kind models.Kind, id string) error {
	if err := checkKind(kind); err != nil {
		return err
	}
	if strings.TrimSpace(id) == "" {
		return &ValidationError{Field: "id", Message: "is required"}
	}
	if err := s.store.DeleteSite(ctx, kind, id); err != nil {
		return err
	}
	s.logger.Info("site deleted", zap.String("kind", string(kind)), zap.String("id", id))
	s.activity.Addf("Deleted %s site %s", kind.Label(), id)
	return nil
}

// RecordMaintenance appends a log checked now. A zero identity leaves the log
// unattributed.
func (s *Service) RecordMaintenance(ctx context.Context, kind models.Kind, siteID string, in MaintenanceInput, by session.Identity) (models.MaintenanceLog, error) {
	if err := checkKind(kind); err != nil {
		return models.MaintenanceLog{}, err
	}
	if strings.TrimSpace(siteID) == "" {
		return models.MaintenanceLog{}, &ValidationError{Field: "websiteId", Message: "is required"}
	}
	site, err := s.store.GetSite(ctx, kind, siteID, 0)
	if err != nil {
		return models.MaintenanceLog{}, err
	}
	checked := s.now()
	log := models.MaintenanceLog{
		SiteID:       site.ID,
		CheckedAt:    &checked,
		AppVersion:   strings.TrimSpace(in.AppVersion),
		PHPVersion:   strings.TrimSpace(in.PHPVersion),
		DBVersion:    strings.TrimSpace(in.DBVersion),
		Theme:        strings.TrimSpace(in.Theme),
		NginxVersion: strings.TrimSpace(in.NginxVersion),
		Plugins:      in.Plugins,
		Note:         strings.TrimSpace(in.Note),
		PerformedBy:  by.Attribution(),
	}
	if err := s.store.AppendLog(ctx, &log); err != nil {
		return models.MaintenanceLog{}, err
	}
	s.logger.Info("maintenance recorded",
		zap.String("site", site.Name), zap.String("kind", string(kind)), zap.String("by", log.PerformedBy))
	who := log.PerformedBy
	if who == "" {
		who = "anonymous"
	}
	s.activity.Addf("Maintenance on '%s' recorded by %s", site.Name, who)
	return log, nil
}

// Bootstrap reports whether no user exists yet. Until then site creation is
// open so the first operator can seed the dashboard.
func (s *Service) Bootstrap(ctx context.Context) (bool, error) {
	n, err := s.store.CountUsers(ctx)
	if err != nil {
		return false, err
	}
	return n == 0, nil
}

func buildSite(kind models.Kind, in SiteInput) (models.Site, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return models.Site{}, &ValidationError{Field: "name", Message: "is required"}
	}
	url := strings.TrimSpace(in.URL)
	if url == "" {
		return models.Site{}, &ValidationError{Field: "url", Message: "is required"}
	}
	server := strings.TrimSpace(in.Server)
	if server == "" {
		server = DefaultServer
	}
	return models.Site{Kind: kind, Name: name, URL: models.NormalizeURL(url), Server: server}, nil
}

func orPlaceholder(v string) string {
	if v = strings.TrimSpace(v); v == "" {
		return placeholder
	}
	return v
}
