package api

import (
	"net/http"

	"github.com/dom/hero-arena/internal/api/handlers"
	"github.com/dom/hero-arena/internal/api/middleware"
	"github.com/dom/hero-arena/internal/service"
	"github.com/dom/hero-arena/internal/websocket"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
)

func NewRouter(services *service.Services, hub *websocket.Hub) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.RequestID)
	r.Use(middleware.CORS)

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(services.Auth, services.Admin)
	arenaHandler := handlers.NewArenaHandler(services.Arena)
	adminHandler := handlers.NewAdminHandler(services.Admin, services.Migration)
	migrationHandler := handlers.NewMigrationHandler(services.Migration)
	wsHandler := handlers.NewWebSocketHandler(hub, services.Auth)

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("OK"))
		})

		// Public auth routes
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", authHandler.Register)
			r.Post("/login", authHandler.Login)
			r.Post("/refresh", authHandler.Refresh)

			// Protected auth routes
			r.Group(func(r chi.Router) {
				r.Use(middleware.Auth(services.Auth))
				r.Use(middleware.RequirePlayer)
				r.Get("/me", authHandler.Me)
				r.Post("/logout", authHandler.Logout)
			})
		})

		r.Route("/arena", func(r chi.Router) {
			// Public views
			r.Get("/leaderboards", arenaHandler.Leaderboards)
			r.Get("/tournament", arenaHandler.Tournament)
			r.Get("/usage", arenaHandler.Usage)
			r.Get("/config", arenaHandler.Config)
			r.Get("/bots", arenaHandler.Bots)

			r.Group(func(r chi.Router) {
				r.Use(middleware.Auth(services.Auth))
				r.Get("/bullpen", arenaHandler.Bullpen)
				r.Get("/history", arenaHandler.History)
				r.Get("/stats", arenaHandler.Stats)
				r.Post("/withdraw", arenaHandler.Withdraw)

				// Card contracts
				r.With(middleware.RequireService).Post("/receive", arenaHandler.Receive)
			})
		})

		// Peer arenas
		r.Route("/migration", func(r chi.Router) {
			r.Use(middleware.Auth(services.Auth))
			r.Use(middleware.RequireService)
			r.Post("/import", migrationHandler.Import)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.Auth(services.Auth))

			r.Post("/battle-status", adminHandler.SetBattleStatus)
			r.Post("/bots", adminHandler.AddBots)
			r.Delete("/bots", adminHandler.RemoveBots)
			r.Post("/card-contracts", adminHandler.AddCardContract)
			r.Post("/change-admin", adminHandler.ChangeAdmin)
			r.Post("/tournament/reset", adminHandler.ResetTournament)
			r.Post("/service-tokens", adminHandler.IssueServiceToken)

			r.Route("/migration", func(r chi.Router) {
				r.Post("/export-target", adminHandler.SetExportTarget)
				r.Post("/import-source", adminHandler.SetImportSource)
				r.Post("/export", adminHandler.Export)
				r.Get("/status", adminHandler.ExportStatus)
			})

			r.Route("/dump", func(r chi.Router) {
				r.Get("/stats", adminHandler.DumpStats)
				r.Get("/battles", adminHandler.DumpBattles)
			})
		})

		// WebSocket endpoint
		r.Get("/ws", wsHandler.Handle)
	})

	return r
}
