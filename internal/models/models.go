package models

import (
	"strings"
	"time"
)

type Kind string

const (
	KindWordPress  Kind = "wordpress"
	KindSupportPal Kind = "supportpal"
)

func (k Kind) Valid() bool { return k == KindWordPress || k == KindSupportPal }

func (k Kind) Label() string {
	switch k {
	case KindWordPress:
		return "WordPress"
	case KindSupportPal:
		return "SupportPal"
	}
	return string(k)
}

// Site is a tracked WordPress or SupportPal property. Logs holds at most the
// few newest maintenance logs the store was asked for, newest first.
type Site struct {
	ID        string           `json:"id"`
	Kind      Kind             `json:"kind"`
	Name      string           `json:"name"`
	URL       string           `json:"url"`
	Server    string           `json:"server"`
	CreatedAt time.Time        `json:"createdAt"`
	Logs      []MaintenanceLog `json:"logs"`
}

func (s Site) Latest() *MaintenanceLog {
	if len(s.Logs) == 0 {
		return nil
	}
	return &s.Logs[0]
}

func (s Site) Previous() *MaintenanceLog {
	if len(s.Logs) < 2 {
		return nil
	}
	return &s.Logs[1]
}

// MaintenanceLog is an immutable maintenance snapshot. AppVersion is the
// WordPress core version or the SupportPal version depending on the site kind.
// A nil CheckedAt means the site has never been checked.
type MaintenanceLog struct {
	ID           string     `json:"id"`
	SiteID       string     `json:"siteId"`
	CheckedAt    *time.Time `json:"checkDate"`
	AppVersion   string     `json:"appVersion"`
	PHPVersion   string     `json:"phpVersion"`
	DBVersion    string     `json:"dbVersion"`
	Theme        string     `json:"theme,omitempty"`
	Plugins      []Plugin   `json:"plugins,omitempty"`
	NginxVersion string     `json:"nginxVersion,omitempty"`
	Note         string     `json:"note"`
	PerformedBy  string     `json:"performedBy,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
}

type LoginEvent struct {
	ID     string    `json:"id"`
	Name   string    `json:"name"`
	Email  string    `json:"email"`
	Method string    `json:"method"`
	At     time.Time `json:"timestamp"`
}

type User struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Email        string `json:"email"`
	PasswordHash string `json:"passwordHash,omitempty"`
	PublicKey    string `json:"publicKey,omitempty"`
	Role         string `json:"role"`
}

type AlertConfig struct {
	ID       string            `json:"id"`
	Name     string            `json:"name"`
	Type     string            `json:"type"`
	Settings map[string]string `json:"settings"`
}

type Backup struct {
	Sites  []Site        `json:"sites"`
	Alerts []AlertConfig `json:"alerts"`
	Users  []User        `json:"users"`
}

// NormalizeURL adds an https scheme to bare host names.
func NormalizeURL(raw string) string {
	u := strings.TrimSpace(raw)
	if u == "" || strings.HasPrefix(u, "http://") || strings.HasPrefix(u, "https://") {
		return u
	}
	return "https://" + u
}
