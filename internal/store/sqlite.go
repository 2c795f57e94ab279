package store

import (
	_ "github.com/mattn/go-sqlite3"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS sites (
	id TEXT PRIMARY KEY,
	kind TEXT NOT NULL,
	name TEXT NOT NULL,
	url TEXT NOT NULL,
	server TEXT DEFAULT 'Default Server',
	created_at DATETIME NOT NULL
);
CREATE TABLE IF NOT EXISTS maintenance_logs (
	id TEXT PRIMARY KEY,
	site_id TEXT NOT NULL REFERENCES sites(id) ON DELETE CASCADE,
	check_date DATETIME,
	app_version TEXT DEFAULT '-',
	php_version TEXT DEFAULT '-',
	db_version TEXT DEFAULT '-',
	theme TEXT DEFAULT '',
	plugins TEXT DEFAULT '[]',
	nginx_version TEXT DEFAULT '',
	note TEXT DEFAULT '',
	performed_by TEXT DEFAULT '',
	created_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_logs_site_date ON maintenance_logs (site_id, check_date);
CREATE TABLE IF NOT EXISTS alerts (
	id TEXT PRIMARY KEY,
	name TEXT,
	type TEXT,
	settings TEXT
);
CREATE TABLE IF NOT EXISTS users (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	email TEXT NOT NULL UNIQUE,
	password_hash TEXT DEFAULT '',
	public_key TEXT DEFAULT '',
	role TEXT DEFAULT 'user'
);
CREATE TABLE IF NOT EXISTS login_events (
	id TEXT PRIMARY KEY,
	name TEXT,
	email TEXT,
	method TEXT,
	at DATETIME NOT NULL
);`

// NewSQLite returns a store backed by a SQLite file.
func NewSQLite(path string) Store {
	if path == "" {
		path = "maintdash.db"
	}
	return &sqlStore{
		driver: "sqlite3",
		dsn:    path + "?_foreign_keys=on&_busy_timeout=5000",
		schema: []string{sqliteSchema},
		rebind: func(q string) string { return q },
	}
}
