package server

import (
	"net"
	"net/http"

	_ "go-pdfmerger/docs"
	"go-pdfmerger/internal/handlers"
	"go-pdfmerger/internal/logger"
	"go-pdfmerger/internal/web"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger"
)

// Only allow requests from localhost to /swagger/*
func localhostOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		host, _, _ := net.SplitHostPort(r.RemoteAddr)
		if host != "127.0.0.1" && host != "::1" && host != "localhost" {
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) RegisterRoutes() (http.Handler, error) {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(logger.Middleware(s.log))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.cfg.Server.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type"},
		ExposedHeaders: []string{"Content-Disposition", "X-Merged-Pages"},
	}))

	ui, err := web.Handler(web.Options{UploadURL: "/upload", FormField: handlers.FormField})
	if err != nil {
		return nil, err
	}

	h := handlers.NewAPIHandler(s.SessionManager, handlers.Options{
		MaxUploadSize: s.cfg.Storage.MaxUploadSize,
		DebugOutput:   s.cfg.Storage.DebugOutput,
	}, s.log)

	r.Get("/", h.Health)
	r.Post("/upload", h.MergeFiles)
	r.Post("/inspect", h.InspectFiles)
	r.Method(http.MethodGet, "/app", ui)
	r.With(localhostOnly).Get("/swagger/*", httpSwagger.WrapHandler)

	return r, nil
}
