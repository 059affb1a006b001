package main

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/avollmer/taskstream/internal/api"
	"github.com/avollmer/taskstream/internal/api/middleware"
	"github.com/avollmer/taskstream/internal/api/shared"
	"github.com/avollmer/taskstream/internal/ws"
)

// setupRouter builds the HTTP route tree: public auth endpoints, the
// JWT-protected task API, the websocket feed and a health check.
func (app *application) setupRouter() chi.Router {
	authHandler := api.NewAuthHandler(
		app.userStore,
		app.jwtService,
		app.passwordVerifier,
		app.db,
		app.logger,
	)
	taskHandler := api.NewTaskHandler(app.taskService, app.logger)
	wsHandler := ws.NewHandler(
		ws.NewJWTAuthenticator(app.jwtService),
		app.registry,
		app.config.Realtime,
		app.logger,
	)
	authMiddleware := middleware.NewAuthMiddleware(app.jwtService)

	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.TraceMiddleware)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		shared.RespondWithJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Use(chimiddleware.Timeout(10 * time.Second))
			r.Post("/register", authHandler.Register)
			r.Post("/login", authHandler.Login)
			r.Post("/refresh", authHandler.RefreshToken)
			r.With(authMiddleware.Authenticate).Post("/logout", authHandler.Logout)
		})

		r.Route("/tasks", func(r chi.Router) {
			r.Use(authMiddleware.Authenticate)
			r.Get("/", taskHandler.ListTasks)
			r.Post("/", taskHandler.CreateTask)
			r.Get("/{id}", taskHandler.GetTask)
			r.Put("/{id}", taskHandler.UpdateTask)
			r.Delete("/{id}", taskHandler.DeleteTask)
		})
	})

	// The websocket feed authenticates via token query parameter, not the
	// Authorization header, because browser websocket clients cannot set
	// custom headers during the handshake.
	r.Get("/ws/tasks", wsHandler.ServeHTTP)

	return r
}
