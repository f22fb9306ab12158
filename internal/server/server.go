// Package server exposes an editing session over a JSON HTTP API.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dshills/quizedit/internal/chat"
	"github.com/dshills/quizedit/internal/editor"
	"github.com/dshills/quizedit/internal/logging"
	"github.com/dshills/quizedit/internal/prompts"
	"github.com/dshills/quizedit/internal/store"
)

const shutdownTimeout = 5 * time.Second

// Config wires a Server.
type Config struct {
	Session *editor.Session
	// Prompts is optional; without it the prompt routes answer 404 and
	// checks use the built-in review prompt.
	Prompts *prompts.Manager
	// Provider is optional; without it AI routes answer 503.
	Provider chat.Provider
	Model    string
	// Store is read for the explanation text used as generation context.
	Store  store.Store
	Logger *logging.Logger
}

// Server serves the API.
type Server struct {
	cfg    Config
	log    *logging.Logger
	router chi.Router
}

// New creates a server for cfg.Session.
func New(cfg Config) *Server {
	log := cfg.Logger
	if log == nil {
		log = logging.Nop()
	}
	s := &Server{cfg: cfg, log: log.WithComponent("server")}
	s.router = s.routes()
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)

	r.Route("/api", func(r chi.Router) {
		r.Get("/document", s.getDocument)
		r.Put("/document", s.putDocument)
		r.Post("/document/reset", s.resetDocument)
		r.Post("/undo", s.undo)
		r.Post("/redo", s.redo)

		r.Post("/locate", s.locate)
		r.Post("/preview", s.preview)
		r.Post("/apply", s.apply)
		r.Post("/check", s.check)
		r.Post("/chat", s.chat)

		r.Get("/tasks", s.tasks)
		r.Get("/tasksets", s.taskSets)
		r.Post("/tasks/generate", s.generateTask)
		r.Delete("/tasks/{id}", s.deleteTask)
		r.Get("/sections", s.sections)
		r.Get("/lesson", s.lesson)

		r.Get("/prompts", s.getPrompts)
		r.Put("/prompts", s.putPrompts)
		r.Put("/prompts/{id}", s.putPromptContent)
		r.Post("/prompts/custom", s.addCustomPrompt)
		r.Patch("/prompts/custom/{id}", s.renameCustomPrompt)
		r.Delete("/prompts/custom/{id}", s.removeCustomPrompt)
	})
	return r
}

// ListenAndServe serves on addr until ctx is done, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("listening on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.log.WithFields(map[string]any{
			"request_id": middleware.GetReqID(r.Context()),
			"status":     ww.Status(),
			"bytes":      ww.BytesWritten(),
			"duration":   time.Since(start).String(),
		}).Info("%s %s", r.Method, r.URL.Path)
	})
}
