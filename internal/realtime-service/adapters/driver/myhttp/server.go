package myhttp

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"gride/internal/auth"
	"gride/internal/bm"
	"gride/internal/config"
	"gride/internal/mylogger"
	"gride/internal/postgres"
	"gride/internal/realtime-service/adapters/driven/cache"
	"gride/internal/realtime-service/adapters/driven/consumer"
	"gride/internal/realtime-service/adapters/driven/db"
	"gride/internal/realtime-service/adapters/driver/myhttp/ws"
	"gride/internal/realtime-service/core/ports"
	"gride/internal/realtime-service/core/services"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

const WaitTime = 10

type Server struct {
	cfg     *config.Config
	srv     *http.Server
	mylog   mylogger.Logger
	pool    *pgxpool.Pool
	mb      bm.IBroker
	rdb     *redis.Client
	gateway *ws.Gateway
	ctx     context.Context
	appCtx  context.Context
	mu      sync.Mutex
	wg      sync.WaitGroup
}

func NewServer(ctx, appCtx context.Context, mylog mylogger.Logger, cfg *config.Config) *Server {
	return &Server{
		ctx:    ctx,
		appCtx: appCtx,
		cfg:    cfg,
		mylog:  mylog,
	}
}

// Run wires the gateway with its collaborators and serves HTTP until the
// server stops.
func (s *Server) Run() error {
	mylog := s.mylog.Action("server_started")

	var mirror ports.IPresenceMirror
	if s.cfg.Redis.Addr != "" {
		rdb, err := cache.Connect(s.ctx, s.cfg.Redis.Addr, s.cfg.Redis.Password, s.cfg.Redis.DB)
		if err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		s.mu.Lock()
		s.rdb = rdb
		s.mu.Unlock()
		mirror = cache.NewPresenceMirror(rdb)
		mylog.Info("Successful redis connection")
	}

	registry := services.NewPresenceRegistry(s.mylog, mirror)
	verifier := auth.NewVerifier(s.cfg.App.JwtSecret)
	gateway := ws.NewGateway(s.mylog, verifier, registry, ws.Options{
		LocationThrottle: s.cfg.App.LocationThrottle,
		AllowedOrigins:   s.cfg.App.AllowedOrigins,
	})

	var repo ports.INotificationRepo
	if s.cfg.App.PersistNotifications {
		pool, err := postgres.Connect(s.ctx, s.cfg.DB, mylog)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		s.mu.Lock()
		s.pool = pool
		s.mu.Unlock()

		notificationRepo := db.NewNotificationRepo(pool)
		if err := notificationRepo.Migrate(s.ctx); err != nil {
			return err
		}
		repo = notificationRepo
		mylog.Info("Successful database connection")
	}

	notificationService := services.NewNotificationService(s.mylog, repo, gateway)

	if s.cfg.RabbitMq.Disabled {
		mylog.Warn("message broker disabled, driver notifications are not consumed")
	} else {
		mb, err := bm.New(s.appCtx, *s.cfg.RabbitMq, s.mylog)
		if err != nil {
			return fmt.Errorf("failed to connect to rabbitmq: %w", err)
		}
		s.mu.Lock()
		s.mb = mb
		s.mu.Unlock()
		mylog.Info("Successful message broker connection")

		if err := consumer.New(s.appCtx, &s.wg, s.mylog, mb, notificationService).Run(); err != nil {
			return fmt.Errorf("failed to start notification consumer: %w", err)
		}
	}

	authMiddleware := auth.NewAuthMiddleware(verifier)

	s.mu.Lock()
	s.gateway = gateway
	s.srv = &http.Server{
		Addr:              fmt.Sprintf(":%v", s.cfg.Srv.RealtimeServicePort),
		Handler:           NewRouter(s.mylog, gateway, registry, mirror, authMiddleware, s.cfg.App.AllowedOrigins, s.health),
		ReadHeaderTimeout: 5 * time.Second,
	}
	s.mu.Unlock()

	mylog.WithGroup("details").With("port", s.cfg.Srv.RealtimeServicePort, "throttle", s.cfg.App.LocationThrottle.String()).Info("server is running")
	return s.startHTTPServer()
}

// Stop provides a programmatic shutdown. Accepts a context for timeout control.
// Dependencies are released even when the HTTP server does not drain in time.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	srv, gateway, mb, rdb, pool := s.srv, s.gateway, s.mb, s.rdb, s.pool
	s.mu.Unlock()

	s.mylog.Info("Shutting down HTTP server...")

	var shutdownErr error
	if srv != nil {
		shutdownCtx, cancel := context.WithTimeout(ctx, WaitTime*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.mylog.Error("Failed to shut down HTTP server gracefully", err)
			shutdownErr = fmt.Errorf("http server shutdown: %w", err)
		}
	}

	// hijacked websocket connections are not closed by Shutdown
	if gateway != nil {
		gateway.Close()
	}

	if mb != nil {
		if err := mb.Close(); err != nil {
			s.mylog.Error("Failed to close message broker", err)
		}
	}
	s.wg.Wait()

	if rdb != nil {
		if err := rdb.Close(); err != nil {
			s.mylog.Error("Failed to close redis", err)
		}
	}

	if pool != nil {
		pool.Close()
		s.mylog.Info("Database closed")
	}

	if shutdownErr != nil {
		return shutdownErr
	}
	s.mylog.Info("HTTP server shut down gracefully")
	return nil
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	pool, mb, rdb, gateway := s.pool, s.mb, s.rdb, s.gateway
	s.mu.Unlock()

	status := map[string]interface{}{"status": "ok"}
	code := http.StatusOK

	if gateway != nil {
		status["sessions"] = gateway.SessionCount()
	}
	if pool != nil {
		status["database"] = "ok"
		if err := pool.Ping(r.Context()); err != nil {
			status["database"], status["status"], code = "down", "degraded", http.StatusServiceUnavailable
		}
	}
	if mb != nil {
		status["broker"] = "ok"
		if !mb.IsAlive() {
			status["broker"], status["status"], code = "down", "degraded", http.StatusServiceUnavailable
		}
	}
	if rdb != nil {
		status["redis"] = "ok"
		if err := rdb.Ping(r.Context()).Err(); err != nil {
			status["redis"], status["status"] = "down", "degraded"
		}
	}

	WriteJSON(w, code, status)
}

func (s *Server) startHTTPServer() error {
	errCh := make(chan error, 1)

	go func() {
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		} else {
			errCh <- nil
		}
	}()

	select {
	case <-s.ctx.Done():
		return nil
	case err := <-errCh:
		return err
	}
}
