package server

import (
	"context"
	stderrors "errors"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/embulk/pluginindex/pkg/errors"
	"github.com/embulk/pluginindex/pkg/observability"
	"github.com/embulk/pluginindex/pkg/version"
)

// Redirect modes for /embulk-latest.jar.
const (
	ModeRedirect = "redirect"
	ModeMeta     = "meta"
)

// Update triggers recorded in logs and metrics.
const (
	TriggerHTTP     = "http"
	TriggerSchedule = "schedule"
)

// ErrUpdateInProgress is returned when an update is already running.
var ErrUpdateInProgress = errors.New(errors.ErrCodeBusy, "an update is already running")

// VersionSource resolves the latest release version.
type VersionSource interface {
	Resolve(ctx context.Context) (string, error)
}

// UpdateFunc runs the catalog update, logging progress to logger.
type UpdateFunc func(ctx context.Context, logger *log.Logger) error

// Options configures a Server.
type Options struct {
	DownloadBase string
	RedirectMode string
	Logger       *log.Logger
	Metrics      *observability.Metrics
}

// Server serves the redirect routes and runs updates.
type Server struct {
	versions VersionSource
	update   UpdateFunc
	opts     Options
	logger   *log.Logger
	router   chi.Router

	running sync.Mutex
	cron    *cron.Cron
}

// New creates a Server. update may be nil, in which case /update is not routed.
func New(versions VersionSource, update UpdateFunc, opts Options) *Server {
	if opts.DownloadBase == "" {
		opts.DownloadBase = version.DefaultDownloadBase
	}
	if opts.RedirectMode == "" {
		opts.RedirectMode = ModeRedirect
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}

	s := &Server{
		versions: versions,
		update:   update,
		opts:     opts,
		logger:   opts.Logger,
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/", s.handleRoot)
	r.Get("/embulk-latest.jar", s.handleLatestJar)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		io.WriteString(w, "ok\n")
	})
	if s.update != nil {
		r.Get("/update", s.handleUpdate)
	}
	if s.opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.opts.Metrics.Handler())
	}
	return r
}

// Handler returns the HTTP handler for all routes.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()))
	})
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	s.redirect(w, "root", s.opts.DownloadBase)
}

func (s *Server) handleLatestJar(w http.ResponseWriter, r *http.Request) {
	v, err := s.versions.Resolve(r.Context())
	if err != nil {
		s.logger.Error("latest version lookup failed", "err", err)
		s.recordRedirect("latest-jar", http.StatusBadGateway)
		http.Error(w, errors.UserMessage(err), http.StatusBadGateway)
		return
	}

	target := version.JarURL(s.opts.DownloadBase, v)
	if s.opts.RedirectMode == ModeMeta {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := metaRefresh.Execute(w, target); err != nil {
			s.logger.Error("write meta refresh", "err", err)
		}
		s.recordRedirect("latest-jar", http.StatusOK)
		return
	}
	s.redirect(w, "latest-jar", target)
}

var metaRefresh = template.Must(template.New("meta").Parse(`<!DOCTYPE html>
<html><head><meta http-equiv="refresh" content="0; url={{.}}"></head>
<body><a href="{{.}}">{{.}}</a></body></html>
`))

// redirect answers 302 without a body or Content-Type.
func (s *Server) redirect(w http.ResponseWriter, route, target string) {
	w.Header().Set("Location", target)
	w.WriteHeader(http.StatusFound)
	s.recordRedirect(route, http.StatusFound)
}

func (s *Server) recordRedirect(route string, status int) {
	if s.opts.Metrics != nil {
		s.opts.Metrics.RecordRedirect(route, status)
	}
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")

	out := newFlushWriter(w)
	err := s.RunUpdate(context.WithoutCancel(r.Context()), TriggerHTTP, out)
	if stderrors.Is(err, ErrUpdateInProgress) {
		w.WriteHeader(http.StatusConflict)
		fmt.Fprintln(out, errors.UserMessage(err))
		return
	}
	if err != nil {
		fmt.Fprintf(out, "%s\n\n%s\n", errors.UserMessage(err), errors.Trace(err))
		return
	}
	fmt.Fprintln(out, "done")
}

// RunUpdate runs one update, writing its log to out. It returns
// [ErrUpdateInProgress] without running when another update is active.
func (s *Server) RunUpdate(ctx context.Context, trigger string, out io.Writer) error {
	if s.update == nil {
		return errors.New(errors.ErrCodeInternal, "no update configured")
	}
	if !s.running.TryLock() {
		return ErrUpdateInProgress
	}
	defer s.running.Unlock()

	runID := uuid.NewString()
	logger := log.NewWithOptions(out, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           s.logger.GetLevel(),
	}).With("run", runID)

	s.logger.Info("update started", "run", runID, "trigger", trigger)
	start := time.Now()
	err := s.update(ctx, logger)
	if s.opts.Metrics != nil {
		s.opts.Metrics.RecordUpdate(trigger, time.Since(start), err)
	}
	if err != nil {
		logger.Error("update failed", "err", err)
		s.logger.Error("update failed", "run", runID, "trigger", trigger, "duration", time.Since(start), "err", err)
		return err
	}
	s.logger.Info("update finished", "run", runID, "trigger", trigger, "duration", time.Since(start))
	return nil
}

// Schedule runs updates on a cron spec such as "@every 1h" or "0 * * * *".
// Runs that overlap an active update are skipped.
func (s *Server) Schedule(spec string) error {
	if s.update == nil {
		return errors.New(errors.ErrCodeInvalidConfig, "schedule set but no update configured")
	}
	if s.cron == nil {
		s.cron = cron.New()
	}
	_, err := s.cron.AddFunc(spec, func() {
		err := s.RunUpdate(context.Background(), TriggerSchedule, logWriter{s.logger})
		if stderrors.Is(err, ErrUpdateInProgress) {
			s.logger.Warn("scheduled update skipped, another update is running")
		}
	})
	if err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfig, err, "schedule %q", spec)
	}
	s.logger.Info("scheduled updates", "spec", spec)
	return nil
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully and stops the scheduler.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	if s.cron != nil {
		s.cron.Start()
		defer func() {
			<-s.cron.Stop().Done()
		}()
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}
