package api

import (
	"io/fs"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/intermernet/matchday/internal/config"
)

// RegisterRoutes sets up all the API endpoints and middleware for the application.
func (s *Server) RegisterRoutes(r *chi.Mux) {
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	// Uploaded images are served from disk only when the local driver is in
	// use; the supabase driver hands out bucket URLs instead.
	if s.config.StorageDriver == config.StorageLocal {
		r.Handle("/public/images/*", http.StripPrefix("/public/images/", http.FileServer(filesOnly{http.Dir(s.config.ImagePath)})))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:3000", s.config.FrontendURL},
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
		r.Use(s.sessionMiddleware)

		// Account routes
		r.Post("/auth/signup", s.handleSignUp)
		r.Post("/auth/login", s.handleLogin)
		r.Post("/auth/logout", s.handleLogout)
		r.Get("/auth/verify", s.handleVerifyEmail)
		r.Get("/auth/google/login", s.handleGoogleLogin)
		r.Get("/auth/google/callback", s.handleGoogleCallback)
		r.Get("/auth/me", s.handleGetMe)

		// Event routes. Each workflow resolves the principal itself: reads
		// degrade to empty results and writes fail with UNAUTHORIZED.
		r.Get("/events", s.handleListEvents)
		r.Post("/events", s.handleCreateEvent)
		r.Get("/events/{eventID}", s.handleGetEvent)
		r.Put("/events/{eventID}", s.handleUpdateEvent)
		r.Delete("/events/{eventID}", s.handleDeleteEvent)
		r.Post("/images", s.handleUploadImage)

		// Sport routes
		r.Get("/sports", s.handleListSportTypes)
		r.Get("/sports/options", s.handleListSportOptions)

		r.Get("/notifications/stream", s.handleSSE)
	})
}

// filesOnly hides directories so objects are reachable only by exact path.
type filesOnly struct {
	fs http.FileSystem
}

func (f filesOnly) Open(name string) (http.File, error) {
	file, err := f.fs.Open(name)
	if err != nil {
		return nil, err
	}
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, err
	}
	if info.IsDir() {
		file.Close()
		return nil, fs.ErrNotExist
	}
	return file, nil
}
