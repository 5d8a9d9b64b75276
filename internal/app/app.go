package app

import (
	"context"
	stderrors "errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	"github.com/matbactivity/songconstitution/internal/auth"
	"github.com/matbactivity/songconstitution/internal/config"
	"github.com/matbactivity/songconstitution/internal/handlers"
	"github.com/matbactivity/songconstitution/internal/logger"
	"github.com/matbactivity/songconstitution/internal/metrics"
	"github.com/matbactivity/songconstitution/internal/repository"
	"github.com/matbactivity/songconstitution/internal/repository/dynamo"
	"github.com/matbactivity/songconstitution/internal/services"
	"github.com/matbactivity/songconstitution/internal/websocket"
	"github.com/matbactivity/songconstitution/pkg/youtube"
)

const (
	shutdownTimeout = 10 * time.Second
	sessionSweep    = time.Hour
)

// Store is a repository the app owns and closes
type Store interface {
	repository.FullRepository
	Close() error
}

// App holds all application dependencies
type App struct {
	cfg      *config.Config
	log      logger.Logger
	repo     Store
	auth     *auth.Auth
	hub      *websocket.Hub
	metrics  *metrics.Metrics
	handlers *handlers.Handlers
	settings *services.SettingsService
	cleanup  *services.CleanupService
	seed     *services.SeedService
}

// OpenStore opens the storage backend selected in cfg
func OpenStore(ctx context.Context, cfg *config.Config, log logger.Logger) (Store, error) {
	switch cfg.Storage.Backend {
	case config.BackendSQLite:
		repo, err := repository.New(cfg.Storage.SQLite.Path)
		if err != nil {
			return nil, err
		}
		return repo, nil
	case config.BackendDynamoDB:
		store, err := dynamo.NewFromConfig(ctx, dynamo.Options{
			Region:      cfg.Storage.DynamoDB.Region,
			Endpoint:    cfg.Storage.DynamoDB.Endpoint,
			TablePrefix: cfg.Storage.DynamoDB.TablePrefix,
		}, log)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}

// New creates and initializes a new application instance on repo
func New(cfg *config.Config, log logger.Logger, repo Store, sessions *auth.Auth) *App {
	settingsService := services.NewSettingsService(log, repo)
	resultsService := services.NewResultsService(log, repo)
	constitutionService := services.NewConstitutionService(log, repo)
	songService := services.NewSongService(log, repo, youtube.NewHTTPClient(cfg.YouTube.OEmbedURL, log))
	votingService := services.NewVotingService(log, repo, settingsService)
	lifecycleService := services.NewLifecycleService(log, repo, resultsService)
	cleanupService := services.NewCleanupService(log, repo, services.CleanupOptions{
		Interval:   cfg.Cleanup.Interval,
		MaxRetries: cfg.Cleanup.MaxRetries,
	})

	hub := websocket.New(log)
	constitutionService.SetBroadcaster(hub)
	songService.SetBroadcaster(hub)
	votingService.SetBroadcaster(hub)
	resultsService.SetBroadcaster(hub)
	lifecycleService.SetBroadcaster(hub)

	m := metrics.New()
	votingService.SetRecorder(m)
	lifecycleService.SetRecorder(m)
	cleanupService.SetRecorder(m)

	h := handlers.New(handlers.Services{
		User:         services.NewUserService(log, repo),
		Constitution: constitutionService,
		Song:         songService,
		Voting:       votingService,
		Results:      resultsService,
		Lifecycle:    lifecycleService,
		Stats:        services.NewStatsService(log, repo),
		History:      services.NewHistoryService(log, repo),
		Settings:     settingsService,
		Invite:       services.NewInviteService(log, repo, settingsService),
	}, sessions, hub, m, log, handlers.Options{
		VotesPerSecond: cfg.RateLimit.VotesPerSecond,
		VoteBurst:      cfg.RateLimit.Burst,
		Ping:           repo.Ping,
	})

	return &App{
		cfg:      cfg,
		log:      log,
		repo:     repo,
		auth:     sessions,
		hub:      hub,
		metrics:  m,
		handlers: h,
		settings: settingsService,
		cleanup:  cleanupService,
		seed:     services.NewSeedService(log, repo),
	}
}

// Router returns the configured HTTP router
func (a *App) Router() chi.Router {
	return a.handlers.Router()
}

// Close releases the store
func (a *App) Close() error {
	return a.repo.Close()
}

// Prepare writes the initial settings and loads the seed file, if any
func (a *App) Prepare(ctx context.Context) error {
	if err := a.initScoreRange(ctx); err != nil {
		return err
	}
	a.setDefaultBaseURL(ctx)

	if a.cfg.SeedFile == "" {
		return nil
	}
	if _, err := a.seed.SeedFile(ctx, a.cfg.SeedFile); err != nil {
		return fmt.Errorf("seeding from %s: %w", a.cfg.SeedFile, err)
	}
	return nil
}

// Run serves HTTP until ctx is cancelled, along with the websocket hub, the
// archive cleanup loop and the session sweeper. It returns once the server
// has shut down.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	a.hub.Start(ctx)

	srv := &http.Server{
		Addr:              a.cfg.Addr(),
		Handler:           a.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.log.Info("Server starting", "addr", srv.Addr, "backend", a.cfg.Storage.Backend)
		if err := srv.ListenAndServe(); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		a.log.Info("Server shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		a.cleanup.Run(ctx)
		return nil
	})
	g.Go(func() error {
		a.sweepSessions(ctx, sessionSweep)
		return nil
	})

	return g.Wait()
}

// sweepSessions drops expired sessions every interval until ctx is cancelled
func (a *App) sweepSessions(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := a.auth.PurgeExpired(); n > 0 {
				a.log.Debug("Expired sessions removed", "count", n)
			}
		}
	}
}

// initScoreRange stores the configured score range unless one is stored
func (a *App) initScoreRange(ctx context.Context) error {
	if _, err := a.repo.GetSetting(ctx, services.SettingScoreMin); err == nil {
		return nil
	} else if !stderrors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("reading score range: %w", err)
	}

	if err := a.settings.SetScoreRange(ctx, a.cfg.Voting.ScoreMin, a.cfg.Voting.ScoreMax); err != nil {
		return fmt.Errorf("storing score range: %w", err)
	}
	a.log.Info("Score range set", "min", a.cfg.Voting.ScoreMin, "max", a.cfg.Voting.ScoreMax)
	return nil
}

// setDefaultBaseURL stores the configured base URL. Without one, a stored
// value is kept unless it uses localhost (which isn't useful for QR codes),
// and the detected LAN address is used instead.
func (a *App) setDefaultBaseURL(ctx context.Context) {
	baseURL := a.cfg.BaseURL
	if baseURL == "" {
		existing, _ := a.settings.GetBaseURL(ctx)
		if existing != "" && !strings.Contains(existing, "localhost") {
			return
		}
		ip := getPreferredIP(realNetworkProvider{})
		baseURL = "http://" + net.JoinHostPort(ip, strconv.Itoa(a.cfg.Server.Port))
	}

	if err := a.settings.SetBaseURL(ctx, baseURL); err != nil {
		a.log.Warn("Failed to set base_url", "error", err)
		return
	}
	a.log.Info("Base URL set", "url", baseURL)
}

// networkInterface wraps net.Interface for testing
type networkInterface interface {
	Flags() net.Flags
	Addrs() ([]net.Addr, error)
}

// realInterface wraps a real net.Interface
type realInterface struct {
	iface net.Interface
}

func (r realInterface) Flags() net.Flags {
	return r.iface.Flags
}

func (r realInterface) Addrs() ([]net.Addr, error) {
	return r.iface.Addrs()
}

// networkProvider is an interface for getting network interfaces (for testing)
type networkProvider interface {
	Interfaces() ([]networkInterface, error)
}

// realNetworkProvider implements networkProvider using actual net package
type realNetworkProvider struct{}

func (realNetworkProvider) Interfaces() ([]networkInterface, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, err
	}
	result := make([]networkInterface, len(ifaces))
	for i, iface := range ifaces {
		result[i] = realInterface{iface: iface}
	}
	return result, nil
}

// getPreferredIP returns the best IPv4 address for LAN access, preferring
// private ranges. Falls back to localhost.
func getPreferredIP(provider networkProvider) string {
	ifaces, err := provider.Interfaces()
	if err != nil {
		return "localhost"
	}

	var candidates []net.IP
	for _, iface := range ifaces {
		flags := iface.Flags()
		if flags&net.FlagUp == 0 || flags&net.FlagLoopback != 0 {
			continue
		}

		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		for _, addr := range addrs {
			var ip net.IP
			switch v := addr.(type) {
			case *net.IPNet:
				ip = v.IP
			case *net.IPAddr:
				ip = v.IP
			}
			if ip == nil || ip.To4() == nil || ip.IsLoopback() {
				continue
			}
			candidates = append(candidates, ip)
		}
	}

	for _, ip := range candidates {
		if ip.IsPrivate() {
			return ip.String()
		}
	}
	if len(candidates) > 0 {
		return candidates[0].String()
	}
	return "localhost"
}
