package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"go-maintdash/internal/models"
)

// sqlStore implements Store on database/sql. Queries are written with ?
// placeholders and rewritten per dialect by rebind.
type sqlStore struct {
	driver string
	dsn    string
	schema []string
	rebind func(string) string
	db     *sql.DB
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *sqlStore) Init(ctx context.Context) error {
	var err error
	s.db, err = sql.Open(s.driver, s.dsn)
	if err != nil {
		return err
	}
	for _, q := range s.schema {
		if _, err := s.db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("store: create schema: %w", err)
		}
	}
	return nil
}

func (s *sqlStore) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func newID() string { return uuid.New().String() }

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}

func affectedOne(res sql.Result, err error) error {
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// --- Sites ---

const siteColumns = "id, kind, name, url, COALESCE(server, ''), created_at"

func scanSite(sc interface{ Scan(...any) error }) (models.Site, error) {
	var st models.Site
	var kind string
	if err := sc.Scan(&st.ID, &kind, &st.Name, &st.URL, &st.Server, &st.CreatedAt); err != nil {
		return st, err
	}
	st.Kind = models.Kind(kind)
	st.CreatedAt = st.CreatedAt.Local()
	return st, nil
}

func (s *sqlStore) ListSites(ctx context.Context, kind models.Kind, logLimit int) ([]models.Site, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(
		"SELECT "+siteColumns+" FROM sites WHERE kind = ? ORDER BY server ASC, created_at DESC"), string(kind))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sites := []models.Site{}
	for rows.Next() {
		st, err := scanSite(rows)
		if err != nil {
			return nil, err
		}
		sites = append(sites, st)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if logLimit <= 0 || len(sites) == 0 {
		return sites, nil
	}

	for i := range sites {
		sites[i].Logs, err = s.newestLogs(ctx, sites[i].ID, logLimit)
		if err != nil {
			return nil, err
		}
	}
	return sites, nil
}

const logColumns = "id, site_id, check_date, COALESCE(app_version, ''), COALESCE(php_version, ''), COALESCE(db_version, ''), " +
	"COALESCE(theme, ''), COALESCE(plugins, ''), COALESCE(nginx_version, ''), COALESCE(note, ''), COALESCE(performed_by, ''), created_at"

// logOrder puts never-checked logs last so the newest real check comes first.
const logOrder = "check_date IS NULL, check_date DESC, created_at DESC"

// newestLogs is the bounded current/previous query: ORDER BY check date DESC LIMIT n.
func (s *sqlStore) newestLogs(ctx context.Context, siteID string, limit int) ([]models.MaintenanceLog, error) {
	return s.queryLogs(ctx, s.db, s.rebind(
		"SELECT "+logColumns+" FROM maintenance_logs WHERE site_id = ? ORDER BY "+logOrder+" LIMIT ?"), siteID, limit)
}

func (s *sqlStore) queryLogs(ctx context.Context, q queryer, query string, args ...any) ([]models.MaintenanceLog, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var logs []models.MaintenanceLog
	for rows.Next() {
		var l models.MaintenanceLog
		var checked sql.NullTime
		var plugins string
		if err := rows.Scan(&l.ID, &l.SiteID, &checked, &l.AppVersion, &l.PHPVersion, &l.DBVersion,
			&l.Theme, &plugins, &l.NginxVersion, &l.Note, &l.PerformedBy, &l.CreatedAt); err != nil {
			return nil, err
		}
		if checked.Valid {
			t := checked.Time.Local()
			l.CheckedAt = &t
		}
		l.Plugins = models.ParsePlugins(plugins)
		l.CreatedAt = l.CreatedAt.Local()
		logs = append(logs, l)
	}
	return logs, rows.Err()
}

func (s *sqlStore) GetSite(ctx context.Context, kind models.Kind, id string, logLimit int) (models.Site, error) {
	row := s.db.QueryRowContext(ctx, s.rebind("SELECT "+siteColumns+" FROM sites WHERE id = ? AND kind = ?"), id, string(kind))
	st, err := scanSite(row)
	if errors.Is(err, sql.ErrNoRows) {
		return st, fmt.Errorf("site %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return st, err
	}
	if logLimit > 0 {
		st.Logs, err = s.newestLogs(ctx, id, logLimit)
		if err != nil {
			return st, err
		}
	}
	return st, nil
}

// CreateSite inserts the site and its initial log in one transaction.
func (s *sqlStore) CreateSite(ctx context.Context, site *models.Site, initial *models.MaintenanceLog) error {
	if site.ID == "" {
		site.ID = newID()
	}
	if site.CreatedAt.IsZero() {
		site.CreatedAt = time.Now()
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, s.rebind("INSERT INTO sites (id, kind, name, url, server, created_at) VALUES (?, ?, ?, ?, ?, ?)"),
		site.ID, string(site.Kind), site.Name, site.URL, site.Server, site.CreatedAt.UTC()); err != nil {
		return err
	}
	if initial != nil {
		initial.SiteID = site.ID
		if err := s.insertLog(ctx, tx, initial); err != nil {
			return err
		}
		site.Logs = []models.MaintenanceLog{*initial}
	}
	return tx.Commit()
}

func (s *sqlStore) insertLog(ctx context.Context, q queryer, l *models.MaintenanceLog) error {
	if l.ID == "" {
		l.ID = newID()
	}
	if l.CreatedAt.IsZero() {
		l.CreatedAt = time.Now()
	}
	_, err := q.ExecContext(ctx, s.rebind("INSERT INTO maintenance_logs (id, site_id, check_date, app_version, php_version, db_version, theme, plugins, nginx_version, note, performed_by, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)"),
		l.ID, l.SiteID, nullTime(l.CheckedAt), l.AppVersion, l.PHPVersion, l.DBVersion, l.Theme,
		models.EncodePlugins(l.Plugins), l.NginxVersion, l.Note, l.PerformedBy, l.CreatedAt.UTC())
	return err
}

func (s *sqlStore) UpdateSite(ctx context.Context, site models.Site) error {
	err := affectedOne(s.db.ExecContext(ctx, s.rebind("UPDATE sites SET name = ?, url = ?, server = ? WHERE id = ? AND kind = ?"),
		site.Name, site.URL, site.Server, site.ID, string(site.Kind)))
	if errors.Is(err, ErrNotFound) {
		return fmt.Errorf("site %s: %w", site.ID, ErrNotFound)
	}
	return err
}

// DeleteSite removes the site and all of its logs atomically.
func (s *sqlStore) DeleteSite(ctx context.Context, kind models.Kind, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, s.rebind(
		"DELETE FROM maintenance_logs WHERE site_id IN (SELECT id FROM sites WHERE id = ? AND kind = ?)"), id, string(kind)); err != nil {
		return err
	}
	err = affectedOne(tx.ExecContext(ctx, s.rebind("DELETE FROM sites WHERE id = ? AND kind = ?"), id, string(kind)))
	if errors.Is(err, ErrNotFound) {
		return fmt.Errorf("site %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return err
	}
	return tx.Commit()
}

func (s *sqlStore) AppendLog(ctx context.Context, l *models.MaintenanceLog) error {
	var exists int
	err := s.db.QueryRowContext(ctx, s.rebind("SELECT COUNT(*) FROM sites WHERE id = ?"), l.SiteID).Scan(&exists)
	if err != nil {
		return err
	}
	if exists == 0 {
		return fmt.Errorf("site %s: %w", l.SiteID, ErrNotFound)
	}
	return s.insertLog(ctx, s.db, l)
}

func (s *sqlStore) CountLogs(ctx context.Context, siteID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, s.rebind("SELECT COUNT(*) FROM maintenance_logs WHERE site_id = ?"), siteID).Scan(&n)
	return n, err
}

// --- Alerts ---

func (s *sqlStore) GetAllAlerts(ctx context.Context) ([]models.AlertConfig, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, COALESCE(name, ''), COALESCE(type, ''), COALESCE(settings, '{}') FROM alerts ORDER BY name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	alerts := []models.AlertConfig{}
	for rows.Next() {
		var a models.AlertConfig
		var settingsJSON string
		if err := rows.Scan(&a.ID, &a.Name, &a.Type, &settingsJSON); err != nil {
			return nil, err
		}
		json.Unmarshal([]byte(settingsJSON), &a.Settings)
		alerts = append(alerts, a)
	}
	return alerts, rows.Err()
}

func (s *sqlStore) GetAlert(ctx context.Context, id string) (models.AlertConfig, error) {
	var a models.AlertConfig
	var settingsJSON string
	err := s.db.QueryRowContext(ctx, s.rebind("SELECT id, COALESCE(name, ''), COALESCE(type, ''), COALESCE(settings, '{}') FROM alerts WHERE id = ?"), id).
		Scan(&a.ID, &a.Name, &a.Type, &settingsJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return a, fmt.Errorf("alert %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return a, err
	}
	json.Unmarshal([]byte(settingsJSON), &a.Settings)
	return a, nil
}

func (s *sqlStore) AddAlert(ctx context.Context, a *models.AlertConfig) error {
	if a.ID == "" {
		a.ID = newID()
	}
	jsonBytes, _ := json.Marshal(a.Settings)
	_, err := s.db.ExecContext(ctx, s.rebind("INSERT INTO alerts (id, name, type, settings) VALUES (?, ?, ?, ?)"), a.ID, a.Name, a.Type, string(jsonBytes))
	return err
}

func (s *sqlStore) UpdateAlert(ctx context.Context, a models.AlertConfig) error {
	jsonBytes, _ := json.Marshal(a.Settings)
	return affectedOne(s.db.ExecContext(ctx, s.rebind("UPDATE alerts SET name = ?, type = ?, settings = ? WHERE id = ?"), a.Name, a.Type, string(jsonBytes), a.ID))
}

func (s *sqlStore) DeleteAlert(ctx context.Context, id string) error {
	return affectedOne(s.db.ExecContext(ctx, s.rebind("DELETE FROM alerts WHERE id = ?"), id))
}

// --- Users ---

const userColumns = "id, name, email, COALESCE(password_hash, ''), COALESCE(public_key, ''), COALESCE(role, 'user')"

func scanUser(sc interface{ Scan(...any) error }) (models.User, error) {
	var u models.User
	err := sc.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.PublicKey, &u.Role)
	return u, err
}

func (s *sqlStore) CountUsers(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM users").Scan(&n)
	return n, err
}

func (s *sqlStore) GetAllUsers(ctx context.Context) ([]models.User, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+userColumns+" FROM users ORDER BY email")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	users := []models.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (s *sqlStore) findUser(ctx context.Context, column, value string) (models.User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx, s.rebind("SELECT "+userColumns+" FROM users WHERE "+column+" = ?"), value))
	if errors.Is(err, sql.ErrNoRows) {
		return u, fmt.Errorf("user: %w", ErrNotFound)
	}
	return u, err
}

func (s *sqlStore) FindUserByEmail(ctx context.Context, email string) (models.User, error) {
	return s.findUser(ctx, "email", email)
}

func (s *sqlStore) FindUserByPublicKey(ctx context.Context, key string) (models.User, error) {
	if key == "" {
		return models.User{}, fmt.Errorf("user: %w", ErrNotFound)
	}
	return s.findUser(ctx, "public_key", key)
}

func (s *sqlStore) AddUser(ctx context.Context, u *models.User) error {
	if u.ID == "" {
		u.ID = newID()
	}
	if u.Role == "" {
		u.Role = "user"
	}
	_, err := s.db.ExecContext(ctx, s.rebind("INSERT INTO users (id, name, email, password_hash, public_key, role) VALUES (?, ?, ?, ?, ?, ?)"),
		u.ID, u.Name, u.Email, u.PasswordHash, u.PublicKey, u.Role)
	return err
}

func (s *sqlStore) DeleteUser(ctx context.Context, id string) error {
	return affectedOne(s.db.ExecContext(ctx, s.rebind("DELETE FROM users WHERE id = ?"), id))
}

// --- Login events ---

func (s *sqlStore) RecordLogin(ctx context.Context, ev *models.LoginEvent) error {
	if ev.ID == "" {
		ev.ID = newID()
	}
	if ev.At.IsZero() {
		ev.At = time.Now()
	}
	_, err := s.db.ExecContext(ctx, s.rebind("INSERT INTO login_events (id, name, email, method, at) VALUES (?, ?, ?, ?, ?)"),
		ev.ID, ev.Name, ev.Email, ev.Method, ev.At.UTC())
	return err
}

func (s *sqlStore) ListLogins(ctx context.Context, limit int) ([]models.LoginEvent, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind("SELECT id, COALESCE(name, ''), COALESCE(email, ''), COALESCE(method, ''), at FROM login_events ORDER BY at DESC LIMIT ?"), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	events := []models.LoginEvent{}
	for rows.Next() {
		var ev models.LoginEvent
		if err := rows.Scan(&ev.ID, &ev.Name, &ev.Email, &ev.Method, &ev.At); err != nil {
			return nil, err
		}
		ev.At = ev.At.Local()
		events = append(events, ev)
	}
	return events, rows.Err()
}

// --- Backup & restore ---

func (s *sqlStore) ExportData(ctx context.Context) (models.Backup, error) {
	var data models.Backup
	for _, kind := range []models.Kind{models.KindWordPress, models.KindSupportPal} {
		sites, err := s.ListSites(ctx, kind, 0)
		if err != nil {
			return data, err
		}
		for i := range sites {
			sites[i].Logs, err = s.queryLogs(ctx, s.db, s.rebind(
				"SELECT "+logColumns+" FROM maintenance_logs WHERE site_id = ? ORDER BY "+logOrder), sites[i].ID)
			if err != nil {
				return data, err
			}
		}
		data.Sites = append(data.Sites, sites...)
	}
	var err error
	if data.Alerts, err = s.GetAllAlerts(ctx); err != nil {
		return data, err
	}
	if data.Users, err = s.GetAllUsers(ctx); err != nil {
		return data, err
	}
	return data, nil
}

// ImportData replaces every site, log, alert and user with the backup content.
// Login events are left untouched.
func (s *sqlStore) ImportData(ctx context.Context, data models.Backup) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, table := range []string{"maintenance_logs", "sites", "alerts", "users"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}
	for _, u := range data.Users {
		if u.ID == "" {
			u.ID = newID()
		}
		if _, err := tx.ExecContext(ctx, s.rebind("INSERT INTO users (id, name, email, password_hash, public_key, role) VALUES (?, ?, ?, ?, ?, ?)"),
			u.ID, u.Name, u.Email, u.PasswordHash, u.PublicKey, u.Role); err != nil {
			return err
		}
	}
	for _, a := range data.Alerts {
		if a.ID == "" {
			a.ID = newID()
		}
		jsonBytes, _ := json.Marshal(a.Settings)
		if _, err := tx.ExecContext(ctx, s.rebind("INSERT INTO alerts (id, name, type, settings) VALUES (?, ?, ?, ?)"),
			a.ID, a.Name, a.Type, string(jsonBytes)); err != nil {
			return err
		}
	}
	for _, st := range data.Sites {
		if st.ID == "" {
			st.ID = newID()
		}
		if st.CreatedAt.IsZero() {
			st.CreatedAt = time.Now()
		}
		if _, err := tx.ExecContext(ctx, s.rebind("INSERT INTO sites (id, kind, name, url, server, created_at) VALUES (?, ?, ?, ?, ?, ?)"),
			st.ID, string(st.Kind), st.Name, st.URL, st.Server, st.CreatedAt.UTC()); err != nil {
			return err
		}
		for _, l := range st.Logs {
			l.SiteID = st.ID
			if err := s.insertLog(ctx, tx, &l); err != nil {
				return err
			}
		}
	}
	return tx.Commit()
}
