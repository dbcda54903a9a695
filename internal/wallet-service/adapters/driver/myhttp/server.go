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
	"gride/internal/wallet-service/adapters/driven/db"
	"gride/internal/wallet-service/adapters/driven/memdb"
	"gride/internal/wallet-service/adapters/driven/publisher"
	"gride/internal/wallet-service/core/ports"
	"gride/internal/wallet-service/core/services"

	"github.com/jackc/pgx/v5/pgxpool"
)

const WaitTime = 10

type Server struct {
	cfg    *config.Config
	srv    *http.Server
	mylog  mylogger.Logger
	pool   *pgxpool.Pool
	mb     bm.IBroker
	ctx    context.Context
	appCtx context.Context
	mu     sync.Mutex
}

func NewServer(ctx, appCtx context.Context, mylog mylogger.Logger, cfg *config.Config) *Server {
	return &Server{
		ctx:    ctx,
		appCtx: appCtx,
		cfg:    cfg,
		mylog:  mylog,
	}
}

// Run connects the ledger store and the broker, then serves HTTP until the
// server stops.
func (s *Server) Run() error {
	mylog := s.mylog.Action("server_started")

	repo, err := s.ledger(mylog)
	if err != nil {
		return err
	}

	var events ports.IWalletEvents
	if s.cfg.RabbitMq.Disabled {
		mylog.Warn("message broker disabled, wallet events are not published")
	} else {
		mb, err := bm.New(s.appCtx, *s.cfg.RabbitMq, s.mylog)
		if err != nil {
			return fmt.Errorf("failed to connect to rabbitmq: %w", err)
		}
		s.mu.Lock()
		s.mb = mb
		s.mu.Unlock()
		events = publisher.NewWalletEvents(mb)
		mylog.Info("Successful message broker connection")
	}

	walletService := services.NewWalletService(s.mylog, repo, events, s.cfg.App.Currency)
	authMiddleware := auth.NewAuthMiddleware(auth.NewVerifier(s.cfg.App.JwtSecret))

	s.mu.Lock()
	s.srv = &http.Server{
		Addr:              fmt.Sprintf(":%v", s.cfg.Srv.WalletServicePort),
		Handler:           NewRouter(s.mylog, walletService, authMiddleware, s.cfg.App.AllowedOrigins, s.health),
		ReadHeaderTimeout: 5 * time.Second,
	}
	s.mu.Unlock()

	mylog.WithGroup("details").With("port", s.cfg.Srv.WalletServicePort, "store", s.cfg.App.WalletStore).Info("server is running")
	return s.startHTTPServer()
}

// Stop provides a programmatic shutdown. Accepts a context for timeout control.
// Dependencies are released even when the HTTP server does not drain in time.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	srv, mb, pool := s.srv, s.mb, s.pool
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

	if mb != nil {
		if err := mb.Close(); err != nil {
			s.mylog.Error("Failed to close message broker", err)
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

func (s *Server) ledger(mylog mylogger.Logger) (ports.ILedgerRepo, error) {
	if s.cfg.App.WalletStore == config.WalletStoreMemory {
		mylog.Warn("using in-memory ledger, balances are lost on restart")
		return memdb.NewLedger(), nil
	}

	pool, err := postgres.Connect(s.ctx, s.cfg.DB, mylog)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	s.mu.Lock()
	s.pool = pool
	s.mu.Unlock()

	repo := db.NewLedgerRepo(pool, s.mylog)
	if err := repo.Migrate(s.ctx); err != nil {
		return nil, err
	}
	mylog.Info("Successful database connection")
	return repo, nil
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	pool, mb := s.pool, s.mb
	s.mu.Unlock()

	status := map[string]string{"status": "ok", "database": "disabled", "broker": "disabled"}
	code := http.StatusOK

	if pool != nil {
		status["database"] = "ok"
		if err := pool.Ping(r.Context()); err != nil {
			status["database"], status["status"], code = "down", "degraded", http.StatusServiceUnavailable
		}
	}
	if mb != nil {
		status["broker"] = "ok"
		if !mb.IsAlive() {
			status["broker"], status["status"] = "down", "degraded"
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
