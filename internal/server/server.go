// Package server exposes fingerprint records and run summaries over HTTP.
//
// The server is read-only apart from the self-healing of fingerprint
// records that a staleness check performs. Routes:
//
//	GET /healthz
//	GET /api/v1/records
//	GET /api/v1/records/{name}?source=<drawing path relative to the input dir>
//	GET /api/v1/runs
//	GET /api/v1/runs/{id}
package server

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"path/filepath"
	"slices"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/matzehuels/titleplot/pkg/buildinfo"
	"github.com/matzehuels/titleplot/pkg/drawing"
	perrors "github.com/matzehuels/titleplot/pkg/errors"
	"github.com/matzehuels/titleplot/pkg/fingerprint"
	"github.com/matzehuels/titleplot/pkg/observability"
	"github.com/matzehuels/titleplot/pkg/report"
)

const shutdownTimeout = 5 * time.Second

// Config wires the server to its data.
type Config struct {
	Store *fingerprint.Store
	// Archive serves /api/v1/runs. Nil disables the run routes.
	Archive report.Archive
	// Backend and InputDir are needed for staleness checks.
	Backend  drawing.Backend
	InputDir string
	Logger   *log.Logger
}

// Server is the status server.
type Server struct {
	cfg    Config
	logger *log.Logger
	router chi.Router
}

// New builds the router.
func New(cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}
	s := &Server{cfg: cfg, logger: logger}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.observe)

	r.Get("/healthz", s.health)
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/records", s.listRecords)
		r.Get("/records/{name}", s.getRecord)
		r.Get("/runs", s.listRuns)
		r.Get("/runs/{id}", s.getRun)
	})
	s.router = r
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler { return s.router }

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	s.logger.Info("status server listening", "addr", addr, "out", s.cfg.Store.Dir())

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// observe reports every request to the server hooks and the debug log.
func (s *Server) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := r.URL.Path
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		d := time.Since(start)
		observability.Server().OnRequest(r.Context(), r.Method, route, status, d)
		s.logger.Debug("request", "method", r.Method, "route", route, "status", status, "duration", d.Round(time.Microsecond))
	})
}

// =============================================================================
// Handlers
// =============================================================================

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "version": buildinfo.Version})
}

// RecordView is the wire form of a fingerprint record.
type RecordView struct {
	Name string `json:"name"`
	fingerprint.Record
	Merged bool  `json:"merged"`
	Stale  *bool `json:"stale,omitempty"`
}

func view(name string, rec fingerprint.Record) RecordView {
	return RecordView{Name: name, Record: rec, Merged: rec.Merged()}
}

func (s *Server) listRecords(w http.ResponseWriter, r *http.Request) {
	recs, err := s.cfg.Store.Records(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	out := make([]RecordView, 0, len(recs))
	for name, rec := range recs {
		out = append(out, view(name, rec))
	}
	slices.SortFunc(out, func(a, b RecordView) int { return cmp.Compare(a.Name, b.Name) })
	writeJSON(w, http.StatusOK, map[string]any{
		"dir":      s.cfg.Store.Dir(),
		"location": s.cfg.Store.Location(),
		"records":  out,
	})
}

func (s *Server) getRecord(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	name := chi.URLParam(r, "name")
	if err := perrors.ValidateArtifactName(name); err != nil {
		s.writeError(w, err)
		return
	}
	rec, err := s.cfg.Store.Get(ctx, name)
	if errors.Is(err, fingerprint.ErrNotFound) {
		s.writeError(w, perrors.New(perrors.ErrCodeNotFound, "no record for %s", name))
		return
	}
	if err != nil {
		s.writeError(w, err)
		return
	}

	v := view(name, rec)
	if src := r.URL.Query().Get("source"); src != "" {
		stale, err := s.stale(ctx, name, src)
		if err != nil {
			s.writeError(w, err)
			return
		}
		v.Stale = &stale
	}
	writeJSON(w, http.StatusOK, v)
}

// stale opens the drawing at rel (inside the input directory) and checks
// the artifact against it.
func (s *Server) stale(ctx context.Context, name, rel string) (bool, error) {
	if err := perrors.ValidatePath(rel); err != nil {
		return false, err
	}
	if s.cfg.Backend == nil || s.cfg.InputDir == "" {
		return false, perrors.New(perrors.ErrCodeUnsupported, "staleness checks need an input directory")
	}
	path := filepath.Join(s.cfg.InputDir, filepath.FromSlash(rel))
	doc, err := s.cfg.Backend.Open(ctx, path)
	if err != nil {
		return false, perrors.Wrap(perrors.ErrCodeFileNotFound, err, "open %s", rel)
	}
	defer doc.Close()

	ts, err := doc.Timestamp()
	if err != nil {
		return false, perrors.Wrap(perrors.ErrCodeFileNotFound, err, "stat %s", rel)
	}
	return s.cfg.Store.IsStale(ctx, name, filepath.Base(path), ts, func() (string, error) {
		return doc.Fingerprint(ctx)
	})
}

func (s *Server) listRuns(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Archive == nil {
		s.writeError(w, perrors.New(perrors.ErrCodeUnsupported, "run reports are disabled"))
		return
	}
	runs, err := s.cfg.Archive.List(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	if runs == nil {
		runs = []report.Entry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": runs})
}

func (s *Server) getRun(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Archive == nil {
		s.writeError(w, perrors.New(perrors.ErrCodeUnsupported, "run reports are disabled"))
		return
	}
	id := chi.URLParam(r, "id")
	sum, err := s.cfg.Archive.Get(r.Context(), id)
	if errors.Is(err, report.ErrNotFound) {
		s.writeError(w, perrors.New(perrors.ErrCodeNotFound, "run %s not found", id))
		return
	}
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

// =============================================================================
// Responses
// =============================================================================

type errorBody struct {
	Error struct {
		Code    perrors.Code `json:"code"`
		Message string       `json:"message"`
	} `json:"error"`
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	code := perrors.GetCode(err)
	if code == "" {
		code = perrors.ErrCodeInternal
	}
	status := statusFor(code)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "err", err)
	}
	var body errorBody
	body.Error.Code = code
	body.Error.Message = perrors.UserMessage(err)
	writeJSON(w, status, body)
}

func statusFor(code perrors.Code) int {
	switch code {
	case perrors.ErrCodeInvalidInput, perrors.ErrCodeInvalidPath, perrors.ErrCodeInvalidName, perrors.ErrCodeInvalidConfig:
		return http.StatusBadRequest
	case perrors.ErrCodeNotFound, perrors.ErrCodeFileNotFound:
		return http.StatusNotFound
	case perrors.ErrCodeUnsupported:
		return http.StatusNotImplemented
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}
