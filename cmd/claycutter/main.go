package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"claycutter/internal/config"
	"claycutter/internal/database"
	"claycutter/internal/handler"
	"claycutter/internal/model"
	"claycutter/internal/mw"
	"claycutter/internal/service"
	"claycutter/internal/storage"
	"claycutter/internal/worker"
)

func main() {
	cfg := config.New()

	db, err := database.NewDB(cfg.DatabaseURI)
	if err != nil {
		slog.Error("failed to connect to DB", "error", err)
		os.Exit(1)
	}
	defer database.CloseDB(context.Background(), db)

	if err := database.InitSchema(db); err != nil {
		slog.Error("failed to init DB schema", "error", err)
		os.Exit(1)
	}
	if err := database.EnsureAdmin(context.Background(), db, cfg.AdminName, cfg.AdminEmail, cfg.AdminPassword); err != nil {
		slog.Error("failed to seed admin user", "error", err)
		os.Exit(1)
	}

	files, err := storage.NewFileStore(cfg.UploadDir)
	if err != nil {
		slog.Error("failed to open upload dir", "error", err)
		os.Exit(1)
	}

	// Services
	authSvc := service.NewAuthService(db)
	userSvc := service.NewUserService(db)
	webhookSvc := service.NewWebhookService(db)
	dispatcher := worker.NewDispatcher(webhookSvc)
	orderSvc := service.NewOrderService(db, files, dispatcher)

	// Router
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Authorization"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Public routes
	r.Get("/health", handler.HealthHandler())
	r.Post("/api/auth/login", handler.LoginHandler(authSvc, cfg.JWTSecret))
	r.Post("/api/auth/refresh", handler.RefreshHandler(authSvc, cfg.JWTSecret))
	r.Handle("/uploads/*", http.StripPrefix("/uploads/", http.FileServer(http.Dir(files.Root()))))

	// Protected routes
	r.Group(func(r chi.Router) {
		r.Use(mw.Authenticator(cfg.JWTSecret, authSvc))

		r.Get("/api/auth/me", handler.MeHandler())
		r.With(mw.RequireRole(model.RoleAdmin)).Post("/api/auth/register", handler.RegisterHandler(authSvc))

		r.Route("/api/orders", func(r chi.Router) {
			r.With(mw.RequireRole(model.RoleVendor)).Post("/", handler.CreateOrderHandler(orderSvc))
			r.Get("/", handler.ListOrdersHandler(orderSvc))
			r.Get("/{orderID}", handler.GetOrderHandler(orderSvc))
			r.With(mw.RequireRole(model.RoleJonan)).Put("/{orderID}", handler.UpdateOrderHandler(orderSvc))
			r.With(mw.RequireRole(model.RoleJonan)).Delete("/{orderID}", handler.DeleteOrderHandler(orderSvc))
		})

		r.Route("/api/users", func(r chi.Router) {
			r.Use(mw.RequireRole(model.RoleAdmin))
			r.Get("/", handler.ListUsersHandler(userSvc))
			r.Put("/{userID}", handler.UpdateUserHandler(userSvc))
			r.Delete("/{userID}", handler.DeleteUserHandler(userSvc))
		})

		r.Route("/api/webhooks", func(r chi.Router) {
			r.Use(mw.RequireRole(model.RoleAdmin))
			r.Get("/config", handler.ListWebhooksHandler(webhookSvc))
			r.Post("/config", handler.CreateWebhookHandler(webhookSvc))
			r.Put("/config/{configID}", handler.UpdateWebhookHandler(webhookSvc))
			r.Delete("/config/{configID}", handler.DeleteWebhookHandler(webhookSvc))
			r.Post("/test", handler.TestWebhookHandler(dispatcher))
		})
	})

	srv := &http.Server{
		Addr:         cfg.RunAddress,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	ctx, cancel := context.WithCancel(context.Background())
	go dispatcher.Start(ctx)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	slog.Info("starting server", "addr", cfg.RunAddress)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed", "error", err)
		}
	}()

	<-quit
	slog.Info("shutting down...")

	cancel() // stop dispatcher
	ctxShut, cancelShut := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShut()

	if err := srv.Shutdown(ctxShut); err != nil {
		slog.Error("server shutdown failed", "error", err)
	}

	slog.Info("server stopped")
}
