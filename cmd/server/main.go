package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"golang.org/x/sync/errgroup"

	"studycards/internal/config"
	"studycards/internal/database"
	"studycards/internal/generator"
	"studycards/internal/handlers"
	"studycards/internal/logger"
	"studycards/internal/repository"
	"studycards/internal/security"
	"studycards/internal/service"
	"studycards/internal/templates"
)

const (
	stepDatabase   = "Database connection"
	stepMigrations = "Running migrations"
	stepTemplates  = "Loading templates"
	stepServices   = "Initializing services"
	stepReady      = "Server ready"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.LogMode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal("server stopped with error", "error", err)
	}
	log.Info("server stopped")
}

func run(ctx context.Context, cfg *config.Config, log *logger.Logger) error {
	startup := handlers.NewStartupStatus(stepDatabase, stepMigrations, stepTemplates, stepServices, stepReady)

	// Initialize database with config (supports sqlite, postgres, mysql)
	startup.SetCurrentStep(stepDatabase)
	db, err := database.InitializeWithConfig(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()
	log.Info("database connection established", "type", db.GetDialect().Name())
	startup.CompleteStep(stepDatabase)

	startup.SetCurrentStep(stepMigrations)
	applied, err := db.RunMigrations(ctx, cfg.MigrationsPath)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	log.Info("migrations completed", "applied", len(applied))
	startup.CompleteStep(stepMigrations)

	startup.SetCurrentStep(stepTemplates)
	tmpl, err := templates.Load()
	if err != nil {
		return err
	}
	startup.CompleteStep(stepTemplates)

	startup.SetCurrentStep(stepServices)
	sessionSecret := cfg.SessionSecret
	if sessionSecret == "" {
		// Tokens signed with a per-process secret do not survive a restart
		sessionSecret = security.NewSessionID()
		log.Warn("SESSION_SECRET not set, using a random secret")
	}

	userRepo := repository.NewUserRepository(db)
	cardRepo := repository.NewFlashcardRepository(db)

	gen := generator.NewClient(generator.Config{
		APIKey:  cfg.OpenAIAPIKey,
		BaseURL: cfg.OpenAIBaseURL,
		Model:   cfg.OpenAIModel,
		Timeout: cfg.OpenAITimeout,
	}, log)
	if !gen.Configured() {
		log.Warn("OPENAI_API_KEY not set, card generation will fail")
	}

	emailService, err := service.NewEmailService(ctx, service.EmailConfig{
		AWSRegion:  cfg.AWSRegion,
		FromEmail:  cfg.SESFromEmail,
		FromName:   cfg.SESFromName,
		AppBaseURL: cfg.AppBaseURL,
		Debug:      cfg.EmailDebug,
	}, log)
	if err != nil {
		return err
	}

	authService := service.NewAuthService(userRepo, emailService, cfg.SessionDuration, log)
	setService := service.NewSetService(cardRepo, gen, cfg.FlashcardCount, log)
	studyService := service.NewStudyService(cardRepo, gen, emailService, cfg.SessionDuration, log)
	analysisService := service.NewAnalysisService(cardRepo, studyService, log)

	oauthProviders := map[string]handlers.OAuthProvider{
		"google": {
			Name:  "google",
			Label: "Google",
			Config: &oauth2.Config{
				ClientID:     cfg.GoogleClientID,
				ClientSecret: cfg.GoogleClientSecret,
				Endpoint:     google.Endpoint,
				Scopes:       []string{"openid", "email", "profile"},
			},
			UserInfoURL: handlers.GoogleUserInfoURL,
		},
	}

	limiter := security.NewRateLimiter(10, 15*time.Minute)
	middleware := handlers.NewMiddleware(authService, security.NewCSRF(sessionSecret), limiter, log)
	authHandler := handlers.NewAuthHandler(authService, middleware, tmpl, oauthProviders, cfg.OAuthRedirectBaseURL, security.NewStateSigner(sessionSecret, 10*time.Minute), log)
	setHandler := handlers.NewSetHandler(setService, analysisService, middleware, tmpl, log)
	studyHandler := handlers.NewStudyHandler(studyService, analysisService, middleware, tmpl, log)
	apiHandler := handlers.NewAPIHandler(studyService, analysisService, log)
	startup.CompleteStep(stepServices)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", startup.Health)

	// Public routes
	mux.HandleFunc("GET /", authHandler.Home)
	mux.HandleFunc("GET /login", authHandler.ShowLogin)
	mux.HandleFunc("POST /login", middleware.RateLimit(authHandler.Login))
	mux.HandleFunc("GET /signup", authHandler.ShowSignup)
	mux.HandleFunc("POST /signup", middleware.RateLimit(authHandler.Signup))
	mux.HandleFunc("POST /logout", middleware.RequireAuth(middleware.CSRFProtect(authHandler.Logout)))
	mux.HandleFunc("GET /auth/{provider}/start", authHandler.StartOAuth)
	mux.HandleFunc("GET /auth/{provider}/callback", authHandler.OAuthCallback)

	// Pages
	mux.HandleFunc("GET /dashboard", middleware.RequireAuth(setHandler.Dashboard))
	mux.HandleFunc("GET /sets/new", middleware.RequireAuth(setHandler.ShowNewSet))
	mux.HandleFunc("POST /sets/new", middleware.RequireAuth(middleware.CSRFProtect(setHandler.NewSetStep)))
	mux.HandleFunc("POST /sets/{setId}/delete", middleware.RequireAuth(middleware.CSRFProtect(setHandler.DeleteSet)))
	mux.HandleFunc("GET /study/{setId}", middleware.RequireAuth(studyHandler.ShowStudy))
	mux.HandleFunc("POST /study/{setId}/classify", middleware.RequireAuth(middleware.CSRFProtect(studyHandler.Classify)))
	mux.HandleFunc("POST /study/{setId}/restart", middleware.RequireAuth(middleware.CSRFProtect(studyHandler.Restart)))
	mux.HandleFunc("GET /analysis/{setId}", middleware.RequireAuth(studyHandler.ShowAnalysis))

	// JSON API
	apiHandler.RegisterRoutes(mux, middleware, cfg.CORSAllowedOrigins)

	server := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: handlers.Logging(log, mux),
		// Set creation waits on the completion API
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.OpenAITimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("server starting", "addr", "http://localhost"+server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		log.Info("server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	g.Go(func() error {
		return cleanupExpiredSessions(ctx, authService, log)
	})
	g.Go(func() error {
		return limiter.Run(ctx, 15*time.Minute)
	})
	g.Go(func() error {
		return studyService.Run(ctx, 10*time.Minute)
	})

	startup.CompleteStep(stepReady)
	startup.MarkReady()

	return g.Wait()
}

// cleanupExpiredSessions periodically removes expired sessions
func cleanupExpiredSessions(ctx context.Context, authService *service.AuthService, log *logger.Logger) error {
	ticker := time.NewTicker(1 * time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := authService.CleanupExpiredSessions(ctx); err != nil {
				log.Error("error cleaning up expired sessions", "error", err)
			}
		}
	}
}
