// Package ui serves browsable narrative reports and mounts the JSON API.
package ui

import (
	"context"
	"embed"
	"fmt"
	"html/template"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"goinsight/internal/api"
	"goinsight/internal/config"
	"goinsight/internal/engine"
)

//go:embed templates/*.html
var embeddedFiles embed.FS

// App represents the report server
type App struct {
	router    *chi.Mux
	config    Config
	engine    *engine.Engine
	catalog   *config.Catalog
	source    api.DatasetSource
	templates *template.Template
}

// Config holds report server configuration
type Config struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// NewApp creates the report server. apiHandler, when set, is mounted under /api.
func NewApp(cfg Config, eng *engine.Engine, catalog *config.Catalog, source api.DatasetSource, apiHandler http.Handler) (*App, error) {
	funcMap := template.FuncMap{
		"join":  strings.Join,
		"lower": strings.ToLower,
	}
	templates, err := template.New("").Funcs(funcMap).ParseFS(embeddedFiles, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}

	app := &App{
		router:    chi.NewRouter(),
		config:    cfg,
		engine:    eng,
		catalog:   catalog,
		source:    source,
		templates: templates,
	}

	app.setupMiddleware()
	app.setupRoutes(apiHandler)
	return app, nil
}

// setupMiddleware configures HTTP middleware
func (a *App) setupMiddleware() {
	a.router.Use(middleware.RequestID)
	a.router.Use(middleware.Logger)
	a.router.Use(middleware.Recoverer)
	a.router.Use(middleware.Compress(5))
}

// setupRoutes configures the application routes
func (a *App) setupRoutes(apiHandler http.Handler) {
	a.router.Get("/", a.handleIndex)
	a.router.Route("/reports/{metric}", func(r chi.Router) {
		r.Get("/", a.handleReport)
		r.Get("/markdown", a.handleMarkdown)
		r.Get("/workbook", a.handleWorkbook)
	})

	if apiHandler != nil {
		a.router.Mount("/api", apiHandler)
	}
}

// Handler exposes the router, mainly for tests
func (a *App) Handler() http.Handler {
	return a.router
}

// Start serves until ctx is cancelled, then shuts down gracefully
func (a *App) Start(ctx context.Context) error {
	port := a.config.Port
	if port == "" {
		port = "8080"
	}
	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      a.router,
		ReadTimeout:  a.config.ReadTimeout,
		WriteTimeout: a.config.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("[UI] Starting report server on %s", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		log.Printf("[UI] Shutting down report server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// renderTemplate renders to a buffer first so a template error never sends
// a half-written page
func (a *App) renderTemplate(w http.ResponseWriter, templateName string, data any) {
	var buf strings.Builder
	if err := a.templates.ExecuteTemplate(&buf, templateName, data); err != nil {
		log.Printf("[UI] Template error for %s: %v", templateName, err)
		http.Error(w, "Template error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(buf.String()))
}
