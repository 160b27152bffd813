// Package server exposes probes and probe history over HTTP.
package server

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-json-experiment/json"

	"github.com/raysh454/headprobe/internal/app"
	"github.com/raysh454/headprobe/internal/history"
	"github.com/raysh454/headprobe/internal/logging"
	"github.com/raysh454/headprobe/internal/urlnet"
)

// Server is the HTTP API surface for headprobe.
type Server struct {
	cfg    Config
	prober *app.Prober
	router chi.Router
	logger logging.Logger
}

// NewServer creates a Server serving probes through prober.
func NewServer(cfg Config, prober *app.Prober) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.NewStderrLogger("server")
	}

	s := &Server{
		cfg:    cfg,
		prober: prober,
		router: chi.NewRouter(),
		logger: logger,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	r := s.router

	r.Use(s.corsMiddleware)

	r.Options("/head", s.optionsHandler("GET"))
	r.Options("/probes", s.optionsHandler("GET"))
	r.Options("/probes/{id}", s.optionsHandler("GET"))
	r.Options("/probes/{id}/diff/{other}", s.optionsHandler("GET"))

	r.Get("/head", s.handleHead)
	r.Get("/probes", s.handleListProbes)
	r.Get("/probes/{id}", s.handleGetProbe)
	r.Get("/probes/{id}/diff/{other}", s.handleDiffProbes)
}

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Expose-Headers", "X-Probe-ID, X-Probe-Status")
		w.Header().Set("Access-Control-Max-Age", "86400")

		next.ServeHTTP(w, r)
	})
}

func (s *Server) optionsHandler(methods string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Methods", methods)
		w.WriteHeader(http.StatusNoContent)
	}
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	fields := []logging.Field{
		{Key: "method", Value: r.Method},
		{Key: "path", Value: r.URL.Path},
	}
	if q := r.URL.Query(); len(q) > 0 {
		fields = append(fields, logging.Field{Key: "query", Value: q})
	}
	s.logger.Info("http_request", fields...)

	s.router.ServeHTTP(w, r)
}

// HTTPServer creates an *http.Server ready to ListenAndServe.
func (s *Server) HTTPServer() *http.Server {
	return &http.Server{
		Addr:              s.cfg.ListenAddr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
	}
}

// --- JSON helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.MarshalWrite(w, v)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}

func writeDocument(w http.ResponseWriter, rec *history.Record) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	if rec.ID != "" {
		w.Header().Set("X-Probe-ID", rec.ID)
	}
	w.Header().Set("X-Probe-Status", strconv.Itoa(rec.StatusCode))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(rec.Document)
}

// --- HTTP handlers ---

// handleHead probes ?url=, passing every ?param=name=value pair as a
// request parameter.
func (s *Server) handleHead(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	target := strings.TrimSpace(q.Get("url"))
	if target == "" {
		writeError(w, http.StatusBadRequest, "url is required")
		return
	}

	params := urlnet.Params{}
	for _, kv := range q["param"] {
		name, value, ok := strings.Cut(kv, "=")
		if !ok || name == "" {
			writeError(w, http.StatusBadRequest, "param must be name=value, got "+strconv.Quote(kv))
			return
		}
		params[name] = urlnet.TextBody(value)
	}

	rec, err := s.prober.Probe(r.Context(), target, params, nil)
	if err != nil {
		status := probeErrorStatus(err)
		if status >= http.StatusInternalServerError {
			s.logger.Warn("probe failed",
				logging.Field{Key: "url", Value: target},
				logging.Err(err))
		}
		writeError(w, status, err.Error())
		return
	}
	writeDocument(w, rec)
}

func probeErrorStatus(err error) int {
	switch {
	case errors.Is(err, urlnet.ErrMalformedURL), errors.Is(err, urlnet.ErrUnsupportedProtocol):
		return http.StatusBadRequest
	case urlnet.IsConnectionError(err):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) handleListProbes(w http.ResponseWriter, r *http.Request) {
	store := s.prober.History()
	if store == nil {
		writeError(w, http.StatusNotFound, "probe history is disabled")
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	recs, err := store.List(r.Context(), limit)
	if err != nil {
		s.logger.Warn("listing probes", logging.Err(err))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	out := make([]ProbeSummary, 0, len(recs))
	for _, rec := range recs {
		out = append(out, ProbeSummary{
			ID:         rec.ID,
			URL:        rec.URL,
			Method:     rec.Method,
			StatusCode: rec.StatusCode,
			FinalURL:   rec.FinalURL,
			CreatedAt:  rec.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetProbe(w http.ResponseWriter, r *http.Request) {
	store := s.prober.History()
	if store == nil {
		writeError(w, http.StatusNotFound, "probe history is disabled")
		return
	}

	rec, err := store.Get(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, history.ErrRecordNotFound) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		s.logger.Warn("getting probe", logging.Err(err))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeDocument(w, rec)
}

// handleDiffProbes compares two stored probes. Sensitive header values are
// redacted unless redact=false.
func (s *Server) handleDiffProbes(w http.ResponseWriter, r *http.Request) {
	store := s.prober.History()
	if store == nil {
		writeError(w, http.StatusNotFound, "probe history is disabled")
		return
	}

	redact := true
	if raw := r.URL.Query().Get("redact"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid redact value")
			return
		}
		redact = v
	}

	res, err := store.Compare(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "other"), redact)
	if errors.Is(err, history.ErrRecordNotFound) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		s.logger.Warn("comparing probes", logging.Err(err))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, res)
}
