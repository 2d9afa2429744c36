package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"famride/internal/config"
	"famride/internal/database"
	"famride/internal/handlers"
	"famride/internal/ledger"
	"famride/internal/repository"
	"famride/internal/security"
	"famride/internal/service"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if os.Getenv("LOG_PRETTY") != "" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	cfg := config.Load()
	if cfg.JWTSecret == "" {
		log.Fatal().Msg("JWT_SECRET must be set")
	}

	db, err := database.InitializeWithConfig(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize database")
	}
	defer db.Close()

	log.Info().Str("type", cfg.DatabaseType).Msg("database connection established")

	if err := db.RunMigrations(cfg.MigrationsPath); err != nil {
		log.Fatal().Err(err).Msg("failed to run migrations")
	}

	// Repositories
	userRepo := repository.NewUserRepository(db)
	familyRepo := repository.NewFamilyRepository(db)
	apptRepo := repository.NewAppointmentRepository(db)

	// Services
	bookLedger := ledger.New(userRepo, familyRepo, apptRepo)
	tokens := security.NewTokenIssuer(cfg.JWTSecret, cfg.TokenExpiry)
	authService := service.NewAuthService(userRepo, tokens)
	emailService, err := service.NewEmailService(cfg.AWSRegion, cfg.SESFromEmail, cfg.SESFromName)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize email service")
	}
	appointmentService := service.NewAppointmentService(db, userRepo, familyRepo, apptRepo, bookLedger, emailService, cfg.RevalidateOnUpdate)
	familyService := service.NewFamilyService(db, userRepo, familyRepo, apptRepo, bookLedger)

	// Handlers
	loginLimiter := security.NewRateLimiter(cfg.LoginRateLimit, cfg.LoginRateWindow)
	middleware := handlers.NewMiddleware(authService, loginLimiter)
	authHandler := handlers.NewAuthHandler(authService)
	appointmentHandler := handlers.NewAppointmentHandler(appointmentService)
	familyHandler := handlers.NewFamilyHandler(familyService)

	mux := http.NewServeMux()

	// Public routes
	mux.HandleFunc("POST /register", middleware.RateLimit(authHandler.Register))
	mux.HandleFunc("POST /login", middleware.RateLimit(authHandler.Login))

	// Appointment routes; reads are public, mutations need a token
	mux.HandleFunc("GET /appointments", appointmentHandler.ListAll)
	mux.HandleFunc("GET /appointments/{familyId}", appointmentHandler.ListByFamily)
	mux.HandleFunc("POST /appointments/{familyId}", middleware.RequireAuth(appointmentHandler.Create))
	mux.HandleFunc("PUT /appointments/{id}", middleware.RequireAuth(appointmentHandler.Update))
	mux.HandleFunc("DELETE /appointments/{id}", middleware.RequireAuth(appointmentHandler.Delete))

	// Family routes
	mux.HandleFunc("POST /families", middleware.RequireAuth(familyHandler.Create))
	mux.HandleFunc("GET /families", middleware.RequireAuth(familyHandler.List))
	mux.HandleFunc("POST /families/join", middleware.RequireAuth(familyHandler.Join))
	mux.HandleFunc("GET /families/{id}", middleware.RequireAuth(familyHandler.Get))
	mux.HandleFunc("PUT /families/{id}", middleware.RequireAuth(familyHandler.Update))
	mux.HandleFunc("DELETE /families/{id}", middleware.RequireAuth(familyHandler.Delete))

	addr := ":" + cfg.ServerPort
	server := &http.Server{
		Addr:         addr,
		Handler:      handlers.LogRequests(mux),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("server shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}
