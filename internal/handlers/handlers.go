package handlers

import (
	"context"

	"github.com/matbactivity/songconstitution/internal/auth"
	"github.com/matbactivity/songconstitution/internal/logger"
	"github.com/matbactivity/songconstitution/internal/metrics"
	"github.com/matbactivity/songconstitution/internal/services"
	"github.com/matbactivity/songconstitution/internal/websocket"
)

// Services groups the services the API is built on
type Services struct {
	User         services.UserServicer
	Constitution services.ConstitutionServicer
	Song         services.SongServicer
	Voting       services.VotingServicer
	Results      services.ResultsServicer
	Lifecycle    services.LifecycleServicer
	Stats        services.StatsServicer
	History      services.HistoryServicer
	Settings     services.SettingsServicer
	Invite       services.InviteServicer
}

// Options tunes the API. A zero VotesPerSecond disables vote rate limiting.
// Ping, when set, is checked by /healthz.
type Options struct {
	VotesPerSecond float64
	VoteBurst      int
	Ping           func(ctx context.Context) error
}

// Handlers holds all HTTP handler dependencies
type Handlers struct {
	User         services.UserServicer
	Constitution services.ConstitutionServicer
	Song         services.SongServicer
	Voting       services.VotingServicer
	Results      services.ResultsServicer
	Lifecycle    services.LifecycleServicer
	Stats        services.StatsServicer
	History      services.HistoryServicer
	Settings     services.SettingsServicer
	Invite       services.InviteServicer
	Auth         *auth.Auth
	Hub          *websocket.Hub
	Metrics      *metrics.Metrics
	Log          logger.Logger
	voteLimiter  *userLimiter
	ping         func(ctx context.Context) error
}

// New creates a new Handlers instance with all dependencies. hub and m may
// be nil, in which case /ws and /metrics are not served.
func New(svc Services, a *auth.Auth, hub *websocket.Hub, m *metrics.Metrics, log logger.Logger, opts Options) *Handlers {
	return &Handlers{
		User:         svc.User,
		Constitution: svc.Constitution,
		Song:         svc.Song,
		Voting:       svc.Voting,
		Results:      svc.Results,
		Lifecycle:    svc.Lifecycle,
		Stats:        svc.Stats,
		History:      svc.History,
		Settings:     svc.Settings,
		Invite:       svc.Invite,
		Auth:         a,
		Hub:          hub,
		Metrics:      m,
		Log:          log,
		voteLimiter:  newUserLimiter(opts.VotesPerSecond, opts.VoteBurst),
		ping:         opts.Ping,
	}
}
