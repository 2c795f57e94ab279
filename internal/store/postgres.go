package store

import (
	"strconv"
	"strings"

	_ "github.com/lib/pq"
)

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS sites (
		id TEXT PRIMARY KEY,
		kind TEXT NOT NULL,
		name TEXT NOT NULL,
		url TEXT NOT NULL,
		server TEXT DEFAULT 'Default Server',
		created_at TIMESTAMPTZ NOT NULL
	);`,
	`CREATE TABLE IF NOT EXISTS maintenance_logs (
		id TEXT PRIMARY KEY,
		site_id TEXT NOT NULL REFERENCES sites(id) ON DELETE CASCADE,
		check_date TIMESTAMPTZ,
		app_version TEXT DEFAULT '-',
		php_version TEXT DEFAULT '-',
		db_version TEXT DEFAULT '-',
		theme TEXT DEFAULT '',
		plugins TEXT DEFAULT '[]',
		nginx_version TEXT DEFAULT '',
		note TEXT DEFAULT '',
		performed_by TEXT DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL
	);`,
	`CREATE INDEX IF NOT EXISTS idx_logs_site_date ON maintenance_logs (site_id, check_date);`,
	`CREATE TABLE IF NOT EXISTS alerts (
		id TEXT PRIMARY KEY,
		name TEXT,
		type TEXT,
		settings TEXT
	);`,
	`CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT NOT NULL UNIQUE,
		password_hash TEXT DEFAULT '',
		public_key TEXT DEFAULT '',
		role TEXT DEFAULT 'user'
	);`,
	`CREATE TABLE IF NOT EXISTS login_events (
		id TEXT PRIMARY KEY,
		name TEXT,
		email TEXT,
		method TEXT,
		at TIMESTAMPTZ NOT NULL
	);`,
}

// NewPostgres returns a store backed by PostgreSQL.
func NewPostgres(connStr string) Store {
	return &sqlStore{
		driver: "postgres",
		dsn:    connStr,
		schema: postgresSchema,
		rebind: dollarPlaceholders,
	}
}

// dollarPlaceholders rewrites ? placeholders into $1, $2, ...
func dollarPlaceholders(q string) string {
	var b strings.Builder
	n := 0
	for _, r := range q {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
