package monitor

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"go-maintdash/internal/metrics"

	"go.uber.org/zap"
)

const (
	DefaultTimeout   = 10 * time.Second
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	acceptHeader     = "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8"

	// bodyDrainLimit caps how much of a response is read before closing.
	bodyDrainLimit = 64 << 10
)

type Status string

const (
	StatusUp   Status = "up"
	StatusDown Status = "down"
)

// Result is the outcome of a single probe. It never carries a Go error;
// failures are folded into Status and Error.
type Result struct {
	URL        string        `json:"url"`
	Status     Status        `json:"status"`
	Code       int           `json:"code,omitempty"`
	Error      string        `json:"error,omitempty"`
	Latency    time.Duration `json:"latency"`
	CertExpiry *time.Time    `json:"certExpiry,omitempty"`
	CheckedAt  time.Time     `json:"checkedAt"`
}

func (r Result) Up() bool { return r.Status == StatusUp }

// Reachable reports whether an HTTP status means the server is alive.
// 403 and 503 count: the server answered, even if it refused.
func Reachable(code int) bool {
	return (code >= 200 && code < 300) || code == http.StatusForbidden || code == http.StatusServiceUnavailable
}

type Prober struct {
	client    *http.Client
	timeout   time.Duration
	userAgent string
	logger    *zap.Logger
	metrics   *metrics.Metrics
	tracker   *Tracker
	now       func() time.Time
}

type Option func(*Prober)

func WithTimeout(d time.Duration) Option {
	return func(p *Prober) {
		if d > 0 {
			p.timeout = d
		}
	}
}

func WithClient(c *http.Client) Option { return func(p *Prober) { p.client = c } }

func WithUserAgent(ua string) Option {
	return func(p *Prober) {
		if ua != "" {
			p.userAgent = ua
		}
	}
}

// WithInsecureSkipVerify probes TLS sites without verifying their chain, so
// self-signed maintenance targets still report their expiry.
func WithInsecureSkipVerify() Option {
	return func(p *Prober) {
		p.client = &http.Client{Transport: &http.Transport{
			Proxy:           http.ProxyFromEnvironment,
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		}}
	}
}

func WithLogger(l *zap.Logger) Option { return func(p *Prober) { p.logger = l } }

func WithMetrics(m *metrics.Metrics) Option { return func(p *Prober) { p.metrics = m } }

// WithTracker stores every result so dashboards can show the last known state.
func WithTracker(t *Tracker) Option { return func(p *Prober) { p.tracker = t } }

func NewProber(opts ...Option) *Prober {
	p := &Prober{
		client:    &http.Client{},
		timeout:   DefaultTimeout,
		userAgent: DefaultUserAgent,
		logger:    zap.NewNop(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Probe issues one GET against target. The request is cancelled once the
// timeout elapses or ctx is done, whichever comes first.
func (p *Prober) Probe(ctx context.Context, target string) Result {
	start := p.now()
	res := p.probe(ctx, target)
	res.URL = target
	res.Latency = time.Since(start)
	res.CheckedAt = start

	if res.Up() {
		p.logger.Debug("probe up", zap.String("url", target), zap.Int("code", res.Code), zap.Duration("latency", res.Latency))
	} else {
		p.logger.Warn("probe down", zap.String("url", target), zap.Int("code", res.Code), zap.String("reason", res.Error))
	}
	p.metrics.ObserveProbe(string(res.Status), res.Latency)
	if p.tracker != nil {
		p.tracker.Record(res)
	}
	return res
}

func (p *Prober) probe(ctx context.Context, target string) Result {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return Result{Status: StatusDown, Error: err.Error()}
	}
	req.Header.Set("User-Agent", p.userAgent)
	req.Header.Set("Accept", acceptHeader)

	resp, err := p.client.Do(req)
	if err != nil {
		return Result{Status: StatusDown, Error: classify(ctx, err)}
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, bodyDrainLimit))

	res := Result{Status: StatusDown, Code: resp.StatusCode}
	if Reachable(resp.StatusCode) {
		res.Status = StatusUp
	}
	if resp.TLS != nil && len(resp.TLS.PeerCertificates) > 0 {
		expiry := resp.TLS.PeerCertificates[0].NotAfter
		res.CertExpiry = &expiry
	}
	return res
}

func classify(ctx context.Context, err error) string {
	var netErr net.Error
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) ||
		(errors.As(err, &netErr) && netErr.Timeout()) {
		return fmt.Sprintf("timeout: %v", err)
	}
	return err.Error()
}
