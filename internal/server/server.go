package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"go-maintdash/internal/auth"
	"go-maintdash/internal/metrics"
	"go-maintdash/internal/monitor"
	"go-maintdash/internal/reminder"
	"go-maintdash/internal/session"
	"go-maintdash/internal/sites"
	"go-maintdash/internal/store"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Config struct {
	Addr           string
	Dev            bool
	AllowedOrigins []string
	EnableStatus   bool
	Title          string
	// NotifySecret guards /notify when set.
	NotifySecret string
	// AdminSecret guards backup export/import; empty disables them.
	AdminSecret string
	SessionTTL  time.Duration
}

// Reminder runs one reminder pass.
type Reminder interface {
	Run(ctx context.Context) (reminder.Summary, error)
}

type Deps struct {
	Store    store.Store
	Sites    *sites.Service
	Auth     *auth.Authenticator
	Sessions *session.Manager
	Prober   *monitor.Prober
	Tracker  *monitor.Tracker
	Reminder Reminder
	Metrics  *metrics.Metrics
	Logger   *zap.Logger
	Now      func() time.Time
}

type Server struct {
	cfg      Config
	store    store.Store
	sites    *sites.Service
	auth     *auth.Authenticator
	sessions *session.Manager
	prober   *monitor.Prober
	tracker  *monitor.Tracker
	reminder Reminder
	metrics  *metrics.Metrics
	logger   *zap.Logger
	now      func() time.Time
	router   *gin.Engine
}

func New(cfg Config, d Deps) *Server {
	s := &Server{
		cfg:      cfg,
		store:    d.Store,
		sites:    d.Sites,
		auth:     d.Auth,
		sessions: d.Sessions,
		prober:   d.Prober,
		tracker:  d.Tracker,
		reminder: d.Reminder,
		metrics:  d.Metrics,
		logger:   d.Logger,
		now:      d.Now,
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.tracker == nil {
		s.tracker = monitor.NewTracker()
	}
	s.router = s.routes()
	return s
}

func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) routes() *gin.Engine {
	if s.cfg.Dev {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.Use(gin.Recovery())
	r.Use(requestLogger(s.logger))
	r.Use(s.requestMetrics())
	r.Use(cors.New(s.corsConfig()))
	r.Use(s.optionalAuth())

	r.GET("/health", func(c *gin.Context) { OK(c, gin.H{"status": "ok"}) })
	r.GET("/metrics", gin.WrapH(s.metrics.Handler()))

	r.POST("/auth/login", s.handleLogin)
	r.GET("/auth/me", s.requireAuth(), s.handleMe)

	wp := r.Group("/websites")
	wp.GET("", s.requireAuth(), s.listSites(kindWordPress))
	wp.POST("", s.requireAuthOrBootstrap(), s.createSite(kindWordPress))
	wp.PUT("", s.requireAuth(), s.updateSite(kindWordPress))
	wp.DELETE("", s.requireAuth(), s.deleteSite(kindWordPress))

	sp := r.Group("/supportpal")
	sp.GET("/websites", s.requireAuth(), s.listSites(kindSupportPal))
	sp.POST("/websites", s.requireAuthOrBootstrap(), s.createSite(kindSupportPal))
	sp.PUT("/websites", s.requireAuth(), s.updateSite(kindSupportPal))
	sp.DELETE("/websites", s.requireAuth(), s.deleteSite(kindSupportPal))
	sp.POST("/maintenance", s.requireAuth(), s.recordMaintenance(kindSupportPal))

	r.POST("/maintenance", s.requireAuth(), s.recordMaintenance(kindWordPress))

	r.GET("/reports", s.requireAuth(), s.handleReports)
	r.GET("/reports/export.csv", s.requireAuth(), s.handleExportCSV)
	r.GET("/dashboard", s.requireAuth(), s.handleDashboard)
	r.GET("/logins", s.requireAuth(), s.handleLogins)
	r.GET("/uptime", s.requireAuth(), s.handleUptime)
	r.GET("/notify", requireSecret("X-Notify-Secret", s.cfg.NotifySecret, true), s.handleNotify)

	backup := r.Group("/api/backup", requireSecret("X-Admin-Secret", s.cfg.AdminSecret, false))
	backup.GET("/export", s.handleBackupExport)
	backup.POST("/import", s.handleBackupImport)

	if s.cfg.EnableStatus {
		r.GET("/status", s.handleStatusPage)
		r.GET("/status/json", s.handleStatusJSON)
	}
	return r
}

func (s *Server) corsConfig() cors.Config {
	cfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-Notify-Secret"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	// Development accepts any origin. Production accepts only the configured
	// origins; with none configured, cross-origin requests are refused.
	if s.cfg.Dev {
		cfg.AllowOriginFunc = func(origin string) bool { return true }
		return cfg
	}
	allowed := make(map[string]struct{}, len(s.cfg.AllowedOrigins))
	for _, o := range s.cfg.AllowedOrigins {
		allowed[o] = struct{}{}
	}
	cfg.AllowOriginFunc = func(origin string) bool {
		_, ok := allowed[origin]
		return ok
	}
	return cfg
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", zap.String("addr", s.cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
