package alert

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/smtp"
	"net/url"
	"strings"
	"time"

	"go-maintdash/internal/models"
)

const (
	LineNotifyURL  = "https://notify-api.line.me/api/notify"
	defaultTimeout = 15 * time.Second
)

var ErrUnknownProvider = errors.New("alert: unknown provider type")

// Provider delivers one titled message to a notification channel.
type Provider interface {
	Send(ctx context.Context, title, message string) error
}

var httpClient = &http.Client{Timeout: defaultTimeout}

// GetProvider builds the provider described by cfg. Settings keys follow the
// channel: url for webhooks, token for LINE, host/port/user/pass/to/from for
// email.
func GetProvider(cfg models.AlertConfig) (Provider, error) {
	switch cfg.Type {
	case "line":
		if cfg.Settings["token"] == "" {
			return nil, errors.New("alert: line provider needs a token")
		}
		return &LineProvider{Token: cfg.Settings["token"], URL: cfg.Settings["url"]}, nil
	case "discord", "slack", "webhook":
		endpoint := cfg.Settings["url"]
		if endpoint == "" {
			return nil, fmt.Errorf("alert: %s provider needs a url", cfg.Type)
		}
		switch cfg.Type {
		case "discord":
			return &DiscordProvider{URL: endpoint}, nil
		case "slack":
			return &SlackProvider{URL: endpoint}, nil
		}
		return &WebhookProvider{URL: endpoint}, nil
	case "email":
		if cfg.Settings["host"] == "" || cfg.Settings["to"] == "" {
			return nil, errors.New("alert: email provider needs a host and a to address")
		}
		port := "25"
		if p, ok := cfg.Settings["port"]; ok && p != "" {
			port = p
		}
		return &EmailProvider{
			Host: cfg.Settings["host"],
			Port: port,
			User: cfg.Settings["user"],
			Pass: cfg.Settings["pass"],
			To:   cfg.Settings["to"],
			From: cfg.Settings["from"],
		}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, cfg.Type)
	}
}

// --- LINE NOTIFY ---
type LineProvider struct{ Token, URL string }

func (l *LineProvider) Send(ctx context.Context, title, message string) error {
	endpoint := l.URL
	if endpoint == "" {
		endpoint = LineNotifyURL
	}
	form := url.Values{"message": {"\n" + title + "\n" + message}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Authorization", "Bearer "+l.Token)
	return do(req)
}

// --- DISCORD ---
type DiscordProvider struct{ URL string }

func (d *DiscordProvider) Send(ctx context.Context, title, message string) error {
	return postJSON(ctx, d.URL, map[string]string{"content": fmt.Sprintf("**%s**\n%s", title, message)})
}

// --- SLACK ---
type SlackProvider struct{ URL string }

func (s *SlackProvider) Send(ctx context.Context, title, message string) error {
	return postJSON(ctx, s.URL, map[string]string{"text": fmt.Sprintf("*%s*\n%s", title, message)})
}

// --- GENERIC WEBHOOK ---
type WebhookProvider struct{ URL string }

func (w *WebhookProvider) Send(ctx context.Context, title, message string) error {
	return postJSON(ctx, w.URL, map[string]string{
		"title":   title,
		"message": message,
		"status":  "reminder",
	})
}

// --- EMAIL ---
type EmailProvider struct {
	Host, Port, User, Pass, To, From string
}

// Send ignores ctx; net/smtp has no cancellation hook.
func (e *EmailProvider) Send(_ context.Context, title, message string) error {
	var auth smtp.Auth
	if e.User != "" {
		auth = smtp.PlainAuth("", e.User, e.Pass, e.Host)
	}
	msg := []byte("To: " + e.To + "\r\n" +
		"Subject: Maintenance: " + title + "\r\n" +
		"\r\n" +
		message + "\r\n")
	return smtp.SendMail(e.Host+":"+e.Port, auth, e.From, []string{e.To}, msg)
}

// PartialError is returned when some channels accepted a message and others
// failed. The message has been delivered; Err holds the failures.
type PartialError struct {
	Delivered int
	Err       error
}

func (e *PartialError) Error() string {
	return fmt.Sprintf("alert: delivered to %d channel(s), others failed: %v", e.Delivered, e.Err)
}

func (e *PartialError) Unwrap() error { return e.Err }

// Delivered reports how many channels accepted a message, given the number
// attempted and the error Send returned.
func Delivered(attempted int, err error) int {
	if err == nil {
		return attempted
	}
	var partial *PartialError
	if errors.As(err, &partial) {
		return partial.Delivered
	}
	return 0
}

func settle(delivered int, errs []error) error {
	err := errors.Join(errs...)
	if err != nil && delivered > 0 {
		return &PartialError{Delivered: delivered, Err: err}
	}
	return err
}

// Multi fans a message out to every provider. When only some fail the
// error is a *PartialError.
type Multi []Provider

func (m Multi) Send(ctx context.Context, title, message string) error {
	var (
		errs      []error
		delivered int
	)
	for _, p := range m {
		if err := p.Send(ctx, title, message); err != nil {
			errs = append(errs, err)
			continue
		}
		delivered++
	}
	return settle(delivered, errs)
}

func postJSON(ctx context.Context, endpoint string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return do(req)
}

func do(req *http.Request) error {
	resp, err := httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("alert: post %s: %w", req.URL.Host, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("alert: %s responded %d: %s", req.URL.Host, resp.StatusCode, strings.TrimSpace(string(snippet)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

var ErrNoChannels = errors.New("alert: no notification channel configured")

// Channels resolves the stored channels on every send, so channels edited
// at runtime take effect without a restart. Base is always included.
type Channels struct {
	Base Provider
	Load func(ctx context.Context) ([]models.AlertConfig, error)
}

func (c *Channels) Send(ctx context.Context, title, message string) error {
	var (
		targets Multi
		errs    []error
	)
	if c.Base != nil {
		targets = append(targets, c.Base)
	}
	if c.Load != nil {
		configs, err := c.Load(ctx)
		if err != nil {
			errs = append(errs, fmt.Errorf("alert: load channels: %w", err))
		}
		for _, cfg := range configs {
			p, err := GetProvider(cfg)
			if err != nil {
				errs = append(errs, fmt.Errorf("channel %q: %w", cfg.Name, err))
				continue
			}
			targets = append(targets, p)
		}
	}
	if len(targets) == 0 && len(errs) == 0 {
		return ErrNoChannels
	}
	err := targets.Send(ctx, title, message)
	delivered := Delivered(len(targets), err)
	var partial *PartialError
	if errors.As(err, &partial) {
		err = partial.Err
	}
	if err != nil {
		errs = append(errs, err)
	}
	return settle(delivered, errs)
}
