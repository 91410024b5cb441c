package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/mchmarny/admitguide/pkg/advisor"
	"github.com/mchmarny/admitguide/pkg/data"
	"github.com/mchmarny/admitguide/pkg/feedback"
	"github.com/mchmarny/admitguide/pkg/metrics"
	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"
)

const (
	serverMaxHeaderBytes = 20
	requestIDHeader      = "X-Request-ID"
	timeoutBody          = `{"error":"request timed out"}`
)

var (
	addressFlag = &cli.StringFlag{
		Name:  "address",
		Usage: "Address on which the server will listen (overrides server.address)",
	}

	serverCmd = &cli.Command{
		Name:            "server",
		Aliases:         []string{"serve"},
		Usage:           "Start the HTTP API server",
		HideHelpCommand: true,
		Action:          cmdStartServer,
		Flags: []cli.Flag{
			addressFlag,
		},
	}
)

func cmdStartServer(ctx context.Context, cmd *cli.Command) error {
	cfg := getConfig(cmd).Config
	if v := cmd.String(addressFlag.Name); v != "" {
		cfg.Server.Address = v
	}

	m := metrics.New()

	var a *advisor.Advisor
	var db *data.DB

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		a, err = newAdvisor(gctx, cmd, advisor.WithMetrics(m))
		return err
	})
	g.Go(func() (err error) {
		db, err = data.Open(gctx, cfg.Feedback.DSN)
		if err != nil {
			return fmt.Errorf("opening feedback store: %w", err)
		}
		return nil
	})
	err := g.Wait()
	if a != nil {
		defer a.Close()
	}
	if db != nil {
		defer db.Close()
	}
	if err != nil {
		return err
	}

	fl, err := feedback.NewLogger(db, m)
	if err != nil {
		return err
	}

	s := &http.Server{
		Addr:              cfg.Server.Address,
		Handler:           makeHandler(a, fl, m, cfg.Server.RequestTimeout),
		ReadHeaderTimeout: cfg.Server.RequestTimeout,
		ReadTimeout:       cfg.Server.RequestTimeout,
		WriteTimeout:      cfg.Server.RequestTimeout + time.Second,
		MaxHeaderBytes:    1 << serverMaxHeaderBytes,
	}

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	serveErr := make(chan error, 1)
	go func() {
		if err := s.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	slog.Info("server started", "address", fmt.Sprintf("http://%s", cfg.Server.Address))

	select {
	case <-done:
	case <-ctx.Done():
	case err := <-serveErr:
		return fmt.Errorf("error starting server: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownWait)
	defer cancel()

	if err := s.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("error shutting down server", "error", err)
	}
	slog.Info("server stopped")
	return nil
}

func makeRouter(a *advisor.Advisor, fl *feedback.Logger, m *metrics.Recorder) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", healthHandler)
	mux.Handle("GET /metrics", m.Handler())

	// Advisor API
	mux.HandleFunc("GET /api/info", infoAPIHandler(a))
	mux.HandleFunc("GET /api/predict", predictAPIHandler(a))
	mux.HandleFunc("POST /api/predict", predictAPIHandler(a))
	mux.HandleFunc("GET /api/search", searchAPIHandler(a))
	mux.HandleFunc("POST /api/search", searchAPIHandler(a))
	mux.HandleFunc("POST /api/evaluate", evaluateAPIHandler(a))

	// Feedback API
	mux.HandleFunc("POST /api/feedback", feedbackAPIHandler(fl))
	mux.HandleFunc("GET /api/feedback", feedbackListAPIHandler(fl))

	return mux
}

// makeHandler wraps the router with the per-request timeout and logging.
func makeHandler(a *advisor.Advisor, fl *feedback.Logger, m *metrics.Recorder, timeout time.Duration) http.Handler {
	return withRequestLogging(http.TimeoutHandler(makeRouter(a, fl, m), timeout, timeoutBody))
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func withRequestLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)

		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		slog.Debug("request",
			"id", id,
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start))
	})
}
