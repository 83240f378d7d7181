package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/compozy/listview/engine/catalog"
	"github.com/compozy/listview/engine/core"
	"github.com/compozy/listview/engine/infra/monitoring"
	"github.com/compozy/listview/engine/slot"
	"github.com/compozy/listview/pkg/config"
	"github.com/compozy/listview/pkg/logger"
)

const (
	monitoringShutdownTimeout = 5 * time.Second
	serverShutdownTimeout     = 5 * time.Second
	httpReadTimeout           = 15 * time.Second
	httpWriteTimeout          = 15 * time.Second
	httpIdleTimeout           = 60 * time.Second
)

// Server exposes the registered list kinds over HTTP. Lists are opened on
// first use and stay mounted until shutdown, or until their slot changes on
// a store that can be watched.
type Server struct {
	serverConfig *config.ServerConfig
	deps         catalog.Deps
	themes       *catalog.ThemeStore
	router       *gin.Engine
	monitoring   *monitoring.Service
	ctx          context.Context
	cancel       context.CancelFunc
	httpServer   *http.Server
	shutdownOnce sync.Once

	listsMu   sync.Mutex
	lists     map[string]catalog.List
	favorites map[string]*catalog.Favorites
}

func NewServer(ctx context.Context, deps catalog.Deps) (*Server, error) {
	if deps.Slots == nil {
		return nil, errors.New("server requires a slot store")
	}
	serverCtx, cancel := context.WithCancel(ctx)
	cfg := config.FromContext(serverCtx)
	mon, err := monitoring.NewService(serverCtx, cfg.Server.Metrics)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to initialize monitoring: %w", err)
	}
	s := &Server{
		serverConfig: &cfg.Server,
		deps:         deps,
		themes:       catalog.NewThemeStore(deps.Slots),
		monitoring:   mon,
		ctx:          serverCtx,
		cancel:       cancel,
		lists:        make(map[string]catalog.List),
		favorites:    make(map[string]*catalog.Favorites),
	}
	if err := s.buildRouter(); err != nil {
		cancel()
		return nil, err
	}
	return s, nil
}

// Handler returns the routed gin engine.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Monitoring returns the metrics service backing /metrics.
func (s *Server) Monitoring() *monitoring.Service {
	return s.monitoring
}

// Addr is the configured listen address.
func (s *Server) Addr() string {
	return net.JoinHostPort(s.serverConfig.Host, strconv.Itoa(s.serverConfig.Port))
}

// Run serves until the server context ends or SIGINT/SIGTERM arrives, then
// shuts down gracefully.
func (s *Server) Run() error {
	log := logger.FromContext(s.ctx)
	srv := s.createHTTPServer()
	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)
	select {
	case <-quit:
		log.Debug("Received shutdown signal, initiating graceful shutdown")
	case <-s.ctx.Done():
		log.Debug("Server context canceled, initiating graceful shutdown")
	case err, ok := <-errCh:
		if ok {
			s.Shutdown()
			return fmt.Errorf("server failed to start: %w", err)
		}
	}
	s.Shutdown()
	return nil
}

func (s *Server) createHTTPServer() *http.Server {
	addr := s.Addr()
	logger.FromContext(s.ctx).Info("Starting HTTP server", "address", fmt.Sprintf("http://%s", addr))
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  httpReadTimeout,
		WriteTimeout: httpWriteTimeout,
		IdleTimeout:  httpIdleTimeout,
		BaseContext:  func(net.Listener) context.Context { return s.ctx },
	}
	return s.httpServer
}

// Shutdown stops the listener, unmounts every open list and flushes metrics.
// It is safe to call more than once.
func (s *Server) Shutdown() {
	s.shutdownOnce.Do(func() {
		log := logger.FromContext(s.ctx)
		if s.httpServer != nil {
			ctx, cancel := context.WithTimeout(context.WithoutCancel(s.ctx), serverShutdownTimeout)
			if err := s.httpServer.Shutdown(ctx); err != nil {
				log.Error("Server shutdown failed", "error", err)
			}
			cancel()
		}
		s.closeLists()
		ctx, cancel := context.WithTimeout(context.WithoutCancel(s.ctx), monitoringShutdownTimeout)
		if err := s.monitoring.Shutdown(ctx); err != nil {
			log.Error("Failed to shutdown monitoring service", "error", err)
		}
		cancel()
		s.cancel()
		log.Info("Server shutdown completed")
	})
}

// list returns the mounted list of kind, opening it on first use. A remote
// list whose first fetch failed is kept; it reports the error in its view.
func (s *Server) list(ctx context.Context, kind string) (catalog.List, error) {
	s.listsMu.Lock()
	defer s.listsMu.Unlock()
	if l, ok := s.lists[kind]; ok {
		return l, nil
	}
	k, err := catalog.Lookup(kind)
	if err != nil {
		return nil, err
	}
	seen := s.slotETag(ctx, k.Slot)
	l, err := k.Open(ctx, s.deps)
	if l == nil {
		return nil, fmt.Errorf("failed to open %s: %w", kind, err)
	}
	if err != nil {
		logger.FromContext(ctx).Warn("List opened without data", "kind", kind, "error", err)
	}
	s.lists[kind] = l
	if !k.Remote {
		s.followSlot(k.Slot, seen, func() {
			s.listsMu.Lock()
			defer s.listsMu.Unlock()
			if s.lists[kind] == l {
				delete(s.lists, kind)
			}
		})
	}
	return l, nil
}

func (s *Server) favoriteSet(ctx context.Context, name string) (*catalog.Favorites, error) {
	slotName, err := catalog.FavoriteSlot(name)
	if err != nil {
		return nil, err
	}
	s.listsMu.Lock()
	defer s.listsMu.Unlock()
	if f, ok := s.favorites[name]; ok {
		return f, nil
	}
	seen := s.slotETag(ctx, slotName)
	f, err := catalog.OpenFavorites(ctx, s.deps.Slots, slotName)
	if err != nil {
		return nil, err
	}
	s.favorites[name] = f
	s.followSlot(slotName, seen, func() {
		s.listsMu.Lock()
		defer s.listsMu.Unlock()
		if s.favorites[name] == f {
			delete(s.favorites, name)
		}
	})
	return f, nil
}

// slotETag fingerprints the bytes a value is about to be opened from. An
// absent or unreadable slot yields "".
func (s *Server) slotETag(ctx context.Context, key string) string {
	if key == "" {
		return ""
	}
	raw, err := s.deps.Slots.Get(ctx, key)
	if err != nil {
		return ""
	}
	return core.ETagFromBytes(raw)
}

// followSlot calls evict once key holds bytes other than seen, so the next
// request reopens the value from storage. Evicted values are not closed
// because in-flight requests may still hold them.
func (s *Server) followSlot(key, seen string, evict func()) {
	w, ok := s.deps.Slots.(slot.Watcher)
	if !ok || key == "" {
		return
	}
	log := logger.FromContext(s.ctx)
	ctx, cancel := context.WithCancel(s.ctx)
	ch, err := w.Watch(ctx, key)
	if err != nil {
		cancel()
		if !errors.Is(err, slot.ErrWatchUnsupported) {
			log.Warn("Failed to watch slot", "slot", key, "error", err)
		}
		return
	}
	go func() {
		defer cancel()
		for evt := range ch {
			if evt.ETag == seen {
				continue
			}
			log.Debug("Slot changed, remounting on next request", "slot", key, "event", string(evt.Type))
			evict()
			return
		}
	}()
}

func (s *Server) closeLists() {
	s.listsMu.Lock()
	defer s.listsMu.Unlock()
	for kind, l := range s.lists {
		l.Close()
		delete(s.lists, kind)
	}
}
