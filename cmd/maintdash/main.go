package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go-maintdash/internal/alert"
	"go-maintdash/internal/auth"
	"go-maintdash/internal/config"
	"go-maintdash/internal/logging"
	"go-maintdash/internal/metrics"
	"go-maintdash/internal/models"
	"go-maintdash/internal/monitor"
	"go-maintdash/internal/reminder"
	"go-maintdash/internal/server"
	"go-maintdash/internal/session"
	"go-maintdash/internal/sites"
	"go-maintdash/internal/store"
	"go-maintdash/internal/tui"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/ssh"
	"github.com/charmbracelet/wish"
	bm "github.com/charmbracelet/wish/bubbletea"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:           "maintdash",
	Short:         "Maintenance dashboard for WordPress and SupportPal sites",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API, the SSH dashboard and, on a terminal, the local dashboard",
	RunE:  runServe,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultConfigPath, "path to the YAML config file")
	rootCmd.AddCommand(serveCmd, notifyCmd, userCmd, exportCmd)
}

// app is the wired service graph shared by every subcommand.
type app struct {
	cfg      *config.AppConfig
	logger   *zap.Logger
	store    store.Store
	metrics  *metrics.Metrics
	activity *monitor.Activity
	tracker  *monitor.Tracker
	prober   *monitor.Prober
	sites    *sites.Service
	auth     *auth.Authenticator
	sessions *session.Manager
	reminder *reminder.Dispatcher
}

func newApp(ctx context.Context, cfg *config.AppConfig, logger *zap.Logger) (*app, error) {
	st, err := store.Open(cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return nil, err
	}
	if err := st.Init(ctx); err != nil {
		st.Close()
		return nil, fmt.Errorf("init %s store: %w", cfg.Database.Driver, err)
	}

	a := &app{
		cfg:      cfg,
		logger:   logger,
		store:    st,
		metrics:  metrics.New(),
		activity: monitor.NewActivity(),
		tracker:  monitor.NewTracker(),
		sessions: session.NewManager(cfg.Session.Secret, cfg.Session.TTL),
	}

	opts := []monitor.Option{
		monitor.WithTimeout(cfg.Probe.Timeout),
		monitor.WithUserAgent(cfg.Probe.UserAgent),
		monitor.WithLogger(logger),
		monitor.WithMetrics(a.metrics),
		monitor.WithTracker(a.tracker),
	}
	if cfg.Probe.InsecureSkipVerify {
		opts = append(opts, monitor.WithInsecureSkipVerify())
	}
	a.prober = monitor.NewProber(opts...)
	a.sites = sites.New(st, logger, a.activity)
	a.auth = auth.New(st, logger, cfg.SSH.AuthorizedKeys)

	channels := &alert.Channels{Load: st.GetAllAlerts}
	if cfg.Notify.Type != "" {
		base, err := alert.GetProvider(models.AlertConfig{
			Name: "config",
			Type: cfg.Notify.Type,
			Settings: map[string]string{
				"url":   cfg.Notify.URL,
				"token": cfg.Notify.Token,
			},
		})
		if err != nil {
			st.Close()
			return nil, fmt.Errorf("notify: %w", err)
		}
		channels.Base = base
	}

	now := time.Now
	if loc := cfg.Location(); loc != nil {
		now = func() time.Time { return time.Now().In(loc) }
	}
	a.reminder = &reminder.Dispatcher{
		Sites:    st,
		Provider: channels,
		Title:    cfg.Notify.Title,
		Logger:   logger,
		Metrics:  a.metrics,
		Activity: a.activity,
		Now:      now,
	}
	return a, nil
}

func (a *app) Close() error { return a.store.Close() }

func (a *app) dashboard(ctx context.Context, id session.Identity) tui.Model {
	return tui.New(tui.Deps{
		Ctx:      ctx,
		Sites:    a.sites,
		Store:    a.store,
		Prober:   a.prober,
		Tracker:  a.tracker,
		Activity: a.activity,
		Reminder: a.reminder,
		Identity: id,
		Now:      a.reminder.Now,
	})
}

// bootstrap loads config and the logger. A non-empty logFile sends logs
// there instead of stderr.
func bootstrap(quiet bool) (*config.AppConfig, *zap.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	file := ""
	if quiet {
		file = cfg.LogFile
		log.SetOutput(io.Discard)
	}
	logger, err := logging.New(cfg.IsDev(), file)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

func interactive() bool {
	return isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
}

func runServe(cmd *cobra.Command, _ []string) error {
	tty := interactive()
	cfg, logger, err := bootstrap(tty)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	srv := server.New(server.Config{
		Addr:           cfg.Addr(),
		Dev:            cfg.IsDev(),
		AllowedOrigins: cfg.AllowedOrigins,
		EnableStatus:   cfg.StatusPage.Enable,
		Title:          cfg.StatusPage.Title,
		NotifySecret:   cfg.Notify.TriggerSecret,
		AdminSecret:    cfg.AdminSecret,
		SessionTTL:     cfg.Session.TTL,
	}, server.Deps{
		Store:    a.store,
		Sites:    a.sites,
		Auth:     a.auth,
		Sessions: a.sessions,
		Prober:   a.prober,
		Tracker:  a.tracker,
		Reminder: a.reminder,
		Metrics:  a.metrics,
		Logger:   logger,
		Now:      a.reminder.Now,
	})
	httpErr := make(chan error, 1)
	go func() { httpErr <- srv.Run(ctx) }()

	if cfg.SSH.Enable {
		sshSrv, err := startSSHServer(ctx, a)
		if err != nil {
			return err
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			sshSrv.Shutdown(shutdownCtx)
		}()
	}

	if tty {
		p := tea.NewProgram(a.dashboard(ctx, localIdentity()), tea.WithAltScreen(), tea.WithContext(ctx))
		if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
			logger.Error("dashboard exited", zap.Error(err))
		}
		stop()
		return <-httpErr
	}

	logger.Info("running in headless mode", zap.String("http", cfg.Addr()), zap.Bool("ssh", cfg.SSH.Enable))
	select {
	case err := <-httpErr:
		return err
	case <-ctx.Done():
	}
	logger.Info("shutting down")
	return <-httpErr
}

func localIdentity() session.Identity {
	name := os.Getenv("USER")
	if name == "" {
		name = "local"
	}
	return session.Identity{Name: name}
}

type identityKey struct{}

func startSSHServer(ctx context.Context, a *app) (*ssh.Server, error) {
	addr := fmt.Sprintf(":%d", a.cfg.SSH.Port)
	s, err := wish.NewServer(
		wish.WithAddress(addr),
		wish.WithHostKeyPath(a.cfg.SSH.HostKey),

		wish.WithPublicKeyAuth(func(sctx ssh.Context, key ssh.PublicKey) bool {
			id, err := a.auth.AuthorizeKey(sctx, sctx.User(), key)
			if err != nil {
				a.logger.Warn("ssh key rejected", zap.String("user", sctx.User()), zap.String("remote", sctx.RemoteAddr().String()))
				return false
			}
			sctx.SetValue(identityKey{}, id)
			return true
		}),

		wish.WithMiddleware(
			bm.Middleware(func(s ssh.Session) (tea.Model, []tea.ProgramOption) {
				id, _ := s.Context().Value(identityKey{}).(session.Identity)
				return a.dashboard(ctx, id), []tea.ProgramOption{tea.WithAltScreen()}
			}),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("ssh server: %w", err)
	}

	go func() {
		a.logger.Info("ssh dashboard listening", zap.String("addr", addr))
		if err := s.ListenAndServe(); err != nil && !errors.Is(err, ssh.ErrServerClosed) {
			a.logger.Error("ssh server stopped", zap.Error(err))
		}
	}()
	return s, nil
}
