// Package static serves a directory over HTTP for the browser under test.
package static

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
)

// Server serves one directory on localhost.
type Server struct {
	Dir    string
	Port   int
	Logger *slog.Logger

	listener net.Listener
	http     *http.Server
	done     chan error
}

// New returns a server for dir. Port 0 picks a free port.
func New(dir string, port int) *Server {
	return &Server{Dir: dir, Port: port, Logger: slog.Default()}
}

// Handler is the router serving Dir.
func (s *Server) Handler() http.Handler {
	router := chi.NewRouter()
	router.Use(s.recoverMiddleware)
	router.Use(s.logMiddleware)

	files := http.FileServer(http.Dir(s.Dir))
	router.Handle("/*", files)
	return router
}

// Start binds the port and serves in the background. It returns once the
// listener is accepting, so the URL is reachable as soon as Start returns.
func (s *Server) Start() error {
	info, err := os.Stat(s.Dir)
	if err != nil {
		return fmt.Errorf("static directory %q: %w", s.Dir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("static directory %q is not a directory", s.Dir)
	}

	ln, err := net.Listen("tcp", fmt.Sprintf("localhost:%d", s.Port))
	if err != nil {
		return fmt.Errorf("failed to listen on port %d: %w", s.Port, err)
	}
	s.listener = ln
	s.Port = ln.Addr().(*net.TCPAddr).Port
	s.http = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.done = make(chan error, 1)

	s.Logger.Info("serving static files", "dir", s.Dir, "url", s.URL())
	go func() {
		if err := s.http.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.done <- err
		}
		close(s.done)
	}()
	return nil
}

// URL is the root of the served directory.
func (s *Server) URL() string {
	return fmt.Sprintf("http://localhost:%d/", s.Port)
}

// Close shuts the server down, waiting briefly for in-flight requests.
func (s *Server) Close() error {
	if s.http == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := s.http.Shutdown(ctx)
	if serveErr := <-s.done; serveErr != nil && err == nil {
		err = serveErr
	}
	s.http = nil
	return err
}

func (s *Server) logMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r)
		s.Logger.Debug("static request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start))
	})
}

func (s *Server) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if v := recover(); v != nil {
				if v == http.ErrAbortHandler {
					panic(v)
				}
				s.Logger.Error("static handler panic", "path", r.URL.Path, "panic", v)
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}
