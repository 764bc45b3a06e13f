// Package server orchestrates all components: module bootstrap, intents registry,
// NATS client, Postgres mirror, dispatcher and HTTP ops endpoints.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	comms "github.com/nats-io/nats.go"

	"github.com/morezero/intents-registry/internal/config"
	"github.com/morezero/intents-registry/pkg/bootstrap"
	"github.com/morezero/intents-registry/pkg/commsutil"
	"github.com/morezero/intents-registry/pkg/controller"
	"github.com/morezero/intents-registry/pkg/db"
	"github.com/morezero/intents-registry/pkg/dispatcher"
	"github.com/morezero/intents-registry/pkg/events"
	"github.com/morezero/intents-registry/pkg/intents"
)

const logPrefix = "server:server"

// healthCheck tests one dependency for /health.
type healthCheck struct {
	name  string
	check func(ctx context.Context) error
}

// providerCounter reports how many providers the database mirror holds.
type providerCounter interface {
	CountProviders(ctx context.Context) (int, error)
}

// Server is the intents-registry orchestrator.
type Server struct {
	cfg        *config.Config
	nc         *comms.Conn
	pool       *pgxpool.Pool
	httpServer *http.Server
	reg        *intents.Registry
	disp       *dispatcher.Dispatcher
	report     *bootstrap.RegisterReport
	checks     []healthCheck
	mirror     providerCounter
	ready      atomic.Bool
}

// Run starts the server, blocks until shutdown signal, then cleans up.
func Run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("%s - failed to load config: %w", logPrefix, err)
	}
	SetupLogging(cfg.LogLevel)

	if err := cfg.ValidateForServe(); err != nil {
		return err
	}

	slog.Info(fmt.Sprintf("%s - Starting intents-registry", logPrefix))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s := &Server{cfg: cfg}

	// Step 1: Connect to NATS
	nc, err := commsutil.Connect(cfg.COMMSURL, cfg.COMMSName)
	if err != nil {
		return fmt.Errorf("%s - failed to connect to NATS: %w", logPrefix, err)
	}
	s.nc = nc
	s.checks = append(s.checks, healthCheck{name: "comms", check: func(context.Context) error {
		if !nc.IsConnected() {
			return fmt.Errorf("status %s", nc.Status())
		}
		return nil
	}})

	publishers := []events.EventPublisher{
		events.NewCommsPublisher(nc, &events.CommsPublisherOpts{GlobalSubject: cfg.ChangeEventSubject}),
	}

	// Step 2: Postgres mirror (optional)
	if cfg.MirrorEnabled() {
		pool, err := openMirror(ctx, cfg)
		if err != nil {
			nc.Close()
			return err
		}
		s.pool = pool
		repo := db.NewRepository(pool)
		publishers = append(publishers, db.NewMirror(repo))
		s.mirror = repo
	}

	// Step 3: Registry and modules
	s.reg = intents.NewRegistry(intents.NewRegistryParams{
		Config:    intents.Config{ServerRoot: cfg.ServerRoot},
		Loader:    controller.NewFSLoader(),
		Publisher: events.NewMultiPublisher(publishers...),
	})

	report, err := LoadModules(ctx, cfg, s.reg)
	if err != nil {
		s.close()
		return fmt.Errorf("%s - failed to register modules: %w", logPrefix, err)
	}
	s.report = report

	// Step 4: Dispatcher
	subject := cfg.IntentsSubject
	if subject == "" {
		subject = commsutil.SubjectIntents
	}
	s.disp = dispatcher.NewDispatcher(s.reg)
	sub, err := dispatcher.Subscribe(ctx, dispatcher.SubscribeParams{
		Conn:           nc,
		Subject:        subject,
		Dispatcher:     s.disp,
		RequestTimeout: cfg.RequestTimeout,
	})
	if err != nil {
		s.close()
		return err
	}

	// Step 5: HTTP ops
	httpAddr := fmt.Sprintf(":%d", cfg.HTTPPort)
	s.httpServer = &http.Server{Addr: httpAddr, Handler: s.routes()}
	go func() {
		slog.Info(fmt.Sprintf("%s - HTTP server listening on %s", logPrefix, httpAddr))
		if err := s.httpServer.ListenAndServe(); err != http.ErrServerClosed {
			slog.Error(fmt.Sprintf("%s - HTTP server error: %v", logPrefix, err))
		}
	}()

	s.ready.Store(true)
	slog.Info(fmt.Sprintf("%s - intents-registry is ready (%d providers)", logPrefix, s.reg.Count()))

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	slog.Info(fmt.Sprintf("%s - Received signal %s, shutting down", logPrefix, sig))

	// Graceful shutdown
	s.ready.Store(false)
	if err := sub.Unsubscribe(); err != nil {
		slog.Warn(fmt.Sprintf("%s - unsubscribe: %v", logPrefix, err))
	}
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Warn(fmt.Sprintf("%s - HTTP shutdown: %v", logPrefix, err))
	}
	s.close()

	slog.Info(fmt.Sprintf("%s - Shutdown complete", logPrefix))
	return nil
}

func (s *Server) close() {
	if s.nc != nil {
		if err := s.nc.Drain(); err != nil {
			s.nc.Close()
		}
	}
	if s.pool != nil {
		s.pool.Close()
	}
}

func openMirror(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	pool, err := db.NewPool(ctx, db.NewPoolParams{DatabaseURL: cfg.DatabaseURL, MaxConns: cfg.DatabaseMaxConns})
	if err != nil {
		return nil, fmt.Errorf("%s - failed to connect to database: %w", logPrefix, err)
	}
	if cfg.RunMigrations {
		migrations, err := db.LoadMigrations(cfg.MigrationPath)
		if err != nil {
			pool.Close()
			return nil, fmt.Errorf("%s - failed to load migrations: %w", logPrefix, err)
		}
		if err := db.RunMigrations(ctx, pool, migrations); err != nil {
			pool.Close()
			return nil, fmt.Errorf("%s - failed to run migrations: %w", logPrefix, err)
		}
	}
	return pool, nil
}

// SetupLogging installs the default slog text handler at the given level.
func SetupLogging(level string) {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: parseLogLevel(level)})))
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// LoadModules discovers descriptors under cfg.ModulesDir and registers them
// with the configured failure policy. Descriptors that fail to parse count as
// module failures.
func LoadModules(ctx context.Context, cfg *config.Config, reg bootstrap.IntentRegistrar) (*bootstrap.RegisterReport, error) {
	policy, err := cfg.FailurePolicy()
	if err != nil {
		return nil, err
	}

	loaded, loadFailures, err := bootstrap.LoadDescriptors(cfg.ModulesDir)
	if err != nil {
		return nil, err
	}
	if len(loadFailures) > 0 && policy == bootstrap.FailFast {
		f := loadFailures[0]
		return &bootstrap.RegisterReport{Modules: len(loaded) + len(loadFailures), Failures: loadFailures},
			fmt.Errorf("%s - descriptor %s: %s", logPrefix, f.Path, f.Error)
	}

	report, err := bootstrap.RegisterModules(ctx, reg, loaded, policy)
	if report != nil {
		report.Modules += len(loadFailures)
		report.Failures = append(loadFailures, report.Failures...)
	}
	return report, err
}

func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth())
	mux.HandleFunc("/ready", s.handleReady())
	mux.HandleFunc("/intents", s.handleIntents())
	mux.HandleFunc("/intents/select", s.handleSelect())
	return mux
}

// HealthOutput is the /health response body.
type HealthOutput struct {
	Status    string            `json:"status"`
	Checks    map[string]string `json:"checks"`
	Providers int               `json:"providers"`
	Mirrored  *int              `json:"mirrored,omitempty"`
	Modules   *bootstrapSummary `json:"modules,omitempty"`
	Timestamp string            `json:"timestamp"`
}

type bootstrapSummary struct {
	Loaded     int                       `json:"loaded"`
	Registered int                       `json:"registered"`
	Failures   []bootstrap.ModuleFailure `json:"failures,omitempty"`
}

func (s *Server) handleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), s.cfg.HealthCheckTimeout)
		defer cancel()

		out := &HealthOutput{
			Status:    "healthy",
			Checks:    make(map[string]string, len(s.checks)),
			Providers: s.reg.Count(),
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		}
		for _, hc := range s.checks {
			if err := hc.check(ctx); err != nil {
				out.Status = "unhealthy"
				out.Checks[hc.name] = err.Error()
				continue
			}
			out.Checks[hc.name] = "ok"
		}
		if s.mirror != nil {
			n, err := s.mirror.CountProviders(ctx)
			if err != nil {
				out.Status = "unhealthy"
				out.Checks["database"] = err.Error()
			} else {
				out.Checks["database"] = "ok"
				out.Mirrored = &n
			}
		}
		if s.report != nil {
			out.Modules = &bootstrapSummary{
				Loaded:     s.report.Modules,
				Registered: s.report.Registered,
				Failures:   s.report.Failures,
			}
		}

		status := http.StatusOK
		if out.Status != "healthy" {
			status = http.StatusServiceUnavailable
		}
		writeJSON(w, status, out)
	}
}

func (s *Server) handleReady() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.ready.Load() {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "starting"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

// handleIntents serves the directory snapshot, optionally filtered by
// ?category= and ?action=.
func (s *Server) handleIntents() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.Header().Set("Allow", "GET")
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		q := r.URL.Query()
		s.serveDispatch(w, r, "list", dispatcher.ListParams{
			Category: q.Get("category"),
			Action:   q.Get("action"),
		})
	}
}

// handleSelect picks one provider: ?category=&action= with either
// &module=&ver= or &ref=.
func (s *Server) handleSelect() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.Header().Set("Allow", "GET")
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		q := r.URL.Query()
		s.serveDispatch(w, r, "select", dispatcher.SelectParams{
			SelectInput: intents.SelectInput{
				Category: q.Get("category"),
				Action:   q.Get("action"),
				Module:   q.Get("module"),
				Ver:      q.Get("ver"),
			},
			Ref: q.Get("ref"),
		})
	}
}

func (s *Server) serveDispatch(w http.ResponseWriter, r *http.Request, method string, params interface{}) {
	raw, err := commsutil.EncodePayload(params)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	resp := s.disp.Dispatch(r.Context(), &dispatcher.IntentsRequest{
		ID:     r.Header.Get("X-Request-Id"),
		Method: method,
		Params: raw,
	})
	writeJSON(w, httpStatus(resp), resp)
}

func httpStatus(resp *dispatcher.IntentsResponse) int {
	if resp.Ok {
		return http.StatusOK
	}
	switch resp.Error.Code {
	case intents.CodeInvalidArgument:
		return http.StatusBadRequest
	case intents.CodeProviderNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error(fmt.Sprintf("%s - encode response: %v", logPrefix, err))
	}
}
