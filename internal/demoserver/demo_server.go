// Package demoserver is a small origin server with versioned header sets,
// multi-valued headers, and redirect chains. It gives headprobe something
// predictable to probe locally.
package demoserver

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-json-experiment/json"
	"github.com/raysh454/headprobe/internal/logging"
)

// DemoServer serves the demo pages.
type DemoServer struct {
	cfg      Config
	logger   logging.Logger
	router   chi.Router
	pages    map[string]PageDefinition
	versions map[string]int // path -> current version
	mu       sync.RWMutex
}

// NewDemoServer creates a new demo server instance.
func NewDemoServer(cfg Config, logger logging.Logger) *DemoServer {
	if cfg.InitialVersion < 1 {
		cfg.InitialVersion = 1
	}
	if cfg.MaxRedirects <= 0 {
		cfg.MaxRedirects = DefaultConfig().MaxRedirects
	}

	pageMap := make(map[string]PageDefinition)
	versions := make(map[string]int)
	for _, p := range GetAllPages() {
		pageMap[p.Path] = p
		versions[p.Path] = cfg.InitialVersion
	}

	s := &DemoServer{
		cfg:      cfg,
		logger:   logger,
		router:   chi.NewRouter(),
		pages:    pageMap,
		versions: versions,
	}
	s.routes()
	return s
}

func (s *DemoServer) routes() {
	for path := range s.pages {
		s.router.Get(path, s.pageHandler(path))
		s.router.Head(path, s.pageHandler(path))
	}

	s.router.Get("/redirect/{n}", s.redirectHandler)
	s.router.Head("/redirect/{n}", s.redirectHandler)

	s.router.Get("/demo/versions", s.getVersionsHandler)
	s.router.Post("/demo/set-version", s.setVersionHandler)
	s.router.Post("/demo/bump-all", s.bumpAllVersionsHandler)
	s.router.Post("/demo/reset", s.resetVersionsHandler)
}

// ServeHTTP implements http.Handler.
func (s *DemoServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Start serves until ctx is canceled, then shuts down gracefully.
func (s *DemoServer) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("demo origin listening", logging.Field{Key: "addr", Value: s.cfg.Addr})
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// pageHandler returns a handler for a specific page path.
func (s *DemoServer) pageHandler(path string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.mu.RLock()
		pageDef := s.pages[path]
		version := s.versions[path]
		s.mu.RUnlock()

		pv, ok := pageDef.Versions[version]
		if !ok {
			// Closest lower version
			for v := version; v >= 1; v-- {
				if candidate, exists := pageDef.Versions[v]; exists {
					pv = candidate
					break
				}
			}
		}

		// Names go out exactly as written in the page definition.
		for name, values := range pv.Headers {
			w.Header()[name] = append(w.Header()[name], values...)
		}
		w.Header().Set("X-Demo-Version", strconv.Itoa(version))

		status := pv.Status
		if status == 0 {
			status = http.StatusOK
		}
		w.WriteHeader(status)
		if r.Method != http.MethodHead {
			_, _ = w.Write([]byte(pv.Body))
		}
	}
}

// redirectHandler answers /redirect/{n} with a 302 to /redirect/{n-1},
// ending at /.
func (s *DemoServer) redirectHandler(w http.ResponseWriter, r *http.Request) {
	n, err := strconv.Atoi(chi.URLParam(r, "n"))
	if err != nil || n < 0 || n > s.cfg.MaxRedirects {
		http.Error(w, "invalid redirect count", http.StatusBadRequest)
		return
	}

	next := "/"
	if n > 1 {
		next = "/redirect/" + strconv.Itoa(n-1)
	}
	if r.URL.RawQuery != "" {
		next += "?" + r.URL.RawQuery
	}
	w.Header().Set("X-Redirects-Left", strconv.Itoa(n))
	http.Redirect(w, r, next, http.StatusFound)
}

// PageInfo describes a page and its current version.
type PageInfo struct {
	Path              string `json:"path"`
	Description       string `json:"description"`
	CurrentVersion    int    `json:"current_version"`
	AvailableVersions []int  `json:"available_versions"`
}

// Versions returns the current version of every page, ordered by path.
func (s *DemoServer) Versions() []PageInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	pages := make([]PageInfo, 0, len(s.pages))
	for path, pageDef := range s.pages {
		versions := make([]int, 0, len(pageDef.Versions))
		for v := range pageDef.Versions {
			versions = append(versions, v)
		}
		sort.Ints(versions)
		pages = append(pages, PageInfo{
			Path:              path,
			Description:       pageDef.Description,
			CurrentVersion:    s.versions[path],
			AvailableVersions: versions,
		})
	}
	sort.Slice(pages, func(i, j int) bool { return pages[i].Path < pages[j].Path })
	return pages
}

// SetVersion pins a page to a version. It reports whether the page exists.
func (s *DemoServer) SetVersion(path string, version int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.pages[path]; !ok {
		return false
	}
	s.versions[path] = version
	return true
}

// BumpAll increments every page's version, capped at its highest version.
func (s *DemoServer) BumpAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for path := range s.versions {
		maxV := 1
		for v := range s.pages[path].Versions {
			if v > maxV {
				maxV = v
			}
		}
		if s.versions[path] < maxV {
			s.versions[path]++
		}
	}
}

// Reset puts every page back to the configured initial version.
func (s *DemoServer) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for path := range s.versions {
		s.versions[path] = s.cfg.InitialVersion
	}
}

func (s *DemoServer) getVersionsHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Versions())
}

func (s *DemoServer) setVersionHandler(w http.ResponseWriter, r *http.Request) {
	path := r.FormValue("path")
	version, err := strconv.Atoi(r.FormValue("version"))
	if err != nil || version < 1 {
		http.Error(w, "Invalid version number", http.StatusBadRequest)
		return
	}
	if !s.SetVersion(path, version) {
		http.Error(w, "Unknown page", http.StatusNotFound)
		return
	}
	s.logger.Info("demo page version set",
		logging.Field{Key: "path", Value: path},
		logging.Field{Key: "version", Value: version})
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"path":    path,
		"version": version,
	})
}

func (s *DemoServer) bumpAllVersionsHandler(w http.ResponseWriter, r *http.Request) {
	s.BumpAll()
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "All versions bumped",
	})
}

func (s *DemoServer) resetVersionsHandler(w http.ResponseWriter, r *http.Request) {
	s.Reset()
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "All versions reset to " + strconv.Itoa(s.cfg.InitialVersion),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.MarshalWrite(w, v)
}
