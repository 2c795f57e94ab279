package store

import (
	"context"
	"errors"
	"fmt"

	"go-maintdash/internal/models"
)

// ErrNotFound indicates the referenced row does not exist.
var ErrNotFound = errors.New("store: not found")

type Store interface {
	Init(ctx context.Context) error
	Close() error

	// Sites. logLimit bounds how many of the newest logs are attached per site.
	ListSites(ctx context.Context, kind models.Kind, logLimit int) ([]models.Site, error)
	GetSite(ctx context.Context, kind models.Kind, id string, logLimit int) (models.Site, error)
	CreateSite(ctx context.Context, site *models.Site, initial *models.MaintenanceLog) error
	UpdateSite(ctx context.Context, site models.Site) error
	DeleteSite(ctx context.Context, kind models.Kind, id string) error
	AppendLog(ctx context.Context, log *models.MaintenanceLog) error
	CountLogs(ctx context.Context, siteID string) (int, error)

	// Alerts
	GetAllAlerts(ctx context.Context) ([]models.AlertConfig, error)
	GetAlert(ctx context.Context, id string) (models.AlertConfig, error)
	AddAlert(ctx context.Context, a *models.AlertConfig) error
	UpdateAlert(ctx context.Context, a models.AlertConfig) error
	DeleteAlert(ctx context.Context, id string) error

	// Users
	CountUsers(ctx context.Context) (int, error)
	GetAllUsers(ctx context.Context) ([]models.User, error)
	FindUserByEmail(ctx context.Context, email string) (models.User, error)
	FindUserByPublicKey(ctx context.Context, key string) (models.User, error)
	AddUser(ctx context.Context, u *models.User) error
	DeleteUser(ctx context.Context, id string) error

	// Login audit trail
	RecordLogin(ctx context.Context, ev *models.LoginEvent) error
	ListLogins(ctx context.Context, limit int) ([]models.LoginEvent, error)

	// Backup & restore
	ExportData(ctx context.Context) (models.Backup, error)
	ImportData(ctx context.Context, data models.Backup) error
}

// Open returns an uninitialised store for the given driver name.
func Open(driver, dsn string) (Store, error) {
	switch driver {
	case "", "sqlite", "sqlite3":
		return NewSQLite(dsn), nil
	case "postgres", "postgresql":
		return NewPostgres(dsn), nil
	}
	return nil, fmt.Errorf("store: unsupported driver %q", driver)
}
