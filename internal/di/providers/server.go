package providers

import (
	"context"
	"errors"
	"net/http"

	"github.com/samber/do/v2"

	"github.com/goodaideas/goodaideas/internal/config"
	"github.com/goodaideas/goodaideas/internal/logger"
	"github.com/goodaideas/goodaideas/internal/moderation"
	"github.com/goodaideas/goodaideas/internal/realtime"
	"github.com/goodaideas/goodaideas/internal/service"
	"github.com/goodaideas/goodaideas/internal/shell"
	"github.com/goodaideas/goodaideas/internal/sse"
	"github.com/goodaideas/goodaideas/internal/state"
)

// TeamChatHandle wraps the team chat with shutdown capability.
type TeamChatHandle struct {
	*realtime.TeamChat
}

// Shutdown implements do.Shutdownable.
func (h *TeamChatHandle) Shutdown() error {
	h.Close()
	return nil
}

// ProvideTeamChat provides the team chat on its own realtime adapter.
// Connection notices go to the store's notifications.
func ProvideTeamChat(i do.Injector) (*TeamChatHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	b := do.MustInvoke[*BackendHandle](i)
	store := do.MustInvoke[*state.Store](i)
	moderator := do.MustInvoke[*moderation.Moderator](i)
	m := do.MustInvoke[*MetricsHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	adapter := realtime.NewAdapter(b.Client, store, realtime.Options{
		InitialBackoff: cfg.Realtime.InitialBackoff,
		MaxBackoff:     cfg.Realtime.MaxBackoff,
		Logger:         log.Logger,
		Metrics:        m.Collector,
	})

	chat := realtime.NewTeamChat(realtime.ChatDeps{
		Rows:    b.Client,
		Adapter: adapter,
		Filter:  moderator,
		UserID:  func() string { return store.Snapshot().Session.UserID() },
		Logger:  log.Logger,
	})

	return &TeamChatHandle{TeamChat: chat}, nil
}

// SSEManagerHandle wraps the SSE manager with its context for lifecycle management.
type SSEManagerHandle struct {
	*sse.Manager
	cancel    context.CancelFunc
	stopStore func()
}

// Shutdown implements do.Shutdownable.
func (h *SSEManagerHandle) Shutdown() error {
	h.stopStore()
	h.cancel()
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return h.Manager.Shutdown(ctx)
}

// ProvideSSEManager provides the change stream manager, following the
// store and the team chat.
func ProvideSSEManager(i do.Injector) (*SSEManagerHandle, error) {
	log := do.MustInvoke[*logger.Logger](i)
	store := do.MustInvoke[*state.Store](i)
	chat := do.MustInvoke[*TeamChatHandle](i)

	manager := sse.NewManager(log.Logger)

	// Start in background
	ctx, cancel := context.WithCancel(context.Background())
	go manager.Start(ctx)

	stop := sse.FollowStore(store, manager)
	sse.FollowChat(chat.TeamChat, manager)

	return &SSEManagerHandle{
		Manager:   manager,
		cancel:    cancel,
		stopStore: stop,
	}, nil
}

// HTTPServerHandle wraps http.Server with Shutdownable.
type HTTPServerHandle struct {
	*http.Server
	errs chan error
}

// Shutdown implements do.Shutdownable.
func (h *HTTPServerHandle) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return h.Server.Shutdown(ctx)
}

// Err reports a listener failure. It never fires after a clean shutdown.
func (h *HTTPServerHandle) Err() <-chan error {
	return h.errs
}

// ProvideHTTPServer provides the app shell HTTP server and starts it.
func ProvideHTTPServer(i do.Injector) (*HTTPServerHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	store := do.MustInvoke[*state.Store](i)
	sseHandle := do.MustInvoke[*SSEManagerHandle](i)
	chat := do.MustInvoke[*TeamChatHandle](i)
	m := do.MustInvoke[*MetricsHandle](i)
	session := do.MustInvoke[*SessionServiceHandle](i)

	services := &shell.Services{
		Session:     session.SessionService,
		Settings:    do.MustInvoke[*service.SettingsService](i),
		Ideas:       do.MustInvoke[*service.IdeaService](i),
		Comments:    do.MustInvoke[*service.CommentService](i),
		Collections: do.MustInvoke[*service.CollectionService](i),
		Leaderboard: do.MustInvoke[*service.LeaderboardService](i),
		Challenges:  do.MustInvoke[*service.ChallengeService](i),
		Search:      do.MustInvoke[*service.SearchService](i),
		Activity:    do.MustInvoke[*service.ActivityService](i),
		Chat:        chat.TeamChat,
	}

	addr := ":" + cfg.Shell.Port
	handler := shell.NewServer(shell.Options{
		Store:          store,
		Services:       services,
		SSE:            sseHandle.Manager,
		Gatherer:       m.Registry,
		AllowedOrigins: cfg.Shell.AllowedOrigins,
		BaseURL:        cfg.PublicURL(),
		Logger:         log.Logger,
	})

	srv := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  cfg.Shell.ReadTimeout,
		WriteTimeout: cfg.Shell.WriteTimeout,
		IdleTimeout:  cfg.Shell.IdleTimeout,
	}
	h := &HTTPServerHandle{Server: srv, errs: make(chan error, 1)}

	// Start in background
	go func() {
		log.Info("App shell listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("HTTP server error", "error", err)
			h.errs <- err
		}
	}()

	return h, nil
}
