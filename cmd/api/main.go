package main

import (
	"context"
	"fmt"
	"io/fs"
	"log"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	"github.com/avelarde/devtrack/internal/auth"
	"github.com/avelarde/devtrack/internal/community"
	"github.com/avelarde/devtrack/internal/config"
	"github.com/avelarde/devtrack/internal/database"
	"github.com/avelarde/devtrack/internal/email"
	"github.com/avelarde/devtrack/internal/logging"
	"github.com/avelarde/devtrack/internal/post"
	"github.com/avelarde/devtrack/internal/project"
	"github.com/avelarde/devtrack/internal/ratelimit"
	"github.com/avelarde/devtrack/internal/render"
	"github.com/avelarde/devtrack/internal/session"
	"github.com/avelarde/devtrack/internal/user"
	"github.com/avelarde/devtrack/internal/web"
	"github.com/avelarde/devtrack/templates"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Application error: %v", err)
	}
}

func run() error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Initialize logger
	logger := logging.NewLogger(cfg.Server.IsDevelopment())
	logger.Info("starting application",
		"env", cfg.Server.Env,
		"port", cfg.Server.Port,
	)

	// Initialize database connection
	db, err := database.Connect(cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()

	// Initialize Redis connection
	redisClient, err := initRedis(cfg.Redis)
	if err != nil {
		return fmt.Errorf("failed to initialize Redis: %w", err)
	}
	defer redisClient.Close()

	// Initialize repositories
	userRepo := user.NewRepository(db)
	projectRepo := project.NewRepository(db)
	postRepo := post.NewRepository(db)

	// Initialize session store and rate limiter
	sessionStore := session.NewStore(redisClient, cfg.Session.TTL)
	rateLimiter := ratelimit.NewLimiter(redisClient)

	// Initialize email service
	emailService := email.NewService(
		cfg.Email.SMTPHost,
		cfg.Email.SMTPPort,
		cfg.Email.SMTPUser,
		cfg.Email.SMTPPassword,
		cfg.Email.FromAddress,
		cfg.Email.AppBaseURL,
	)

	// Initialize auth service
	tokenService := auth.NewTokenService(userRepo)
	authService := auth.NewService(
		userRepo,
		tokenService,
		auth.NewArgon2Hasher(),
		emailService,
		sessionStore,
		logger,
	)

	// Initialize view renderer
	renderer, err := render.New(templates.ViewsFS)
	if err != nil {
		return fmt.Errorf("failed to initialize renderer: %w", err)
	}

	staticFS, err := fs.Sub(templates.StaticFS, "static")
	if err != nil {
		return fmt.Errorf("failed to open static assets: %w", err)
	}

	// Initialize HTTP handlers
	secureCookies := !cfg.Server.IsDevelopment()
	handlers := web.Handlers{
		Auth: auth.NewHandler(
			authService,
			sessionStore,
			rateLimiter,
			renderer,
			cfg.Session.CookieName,
			cfg.Session.TTL,
			secureCookies,
		),
		Projects:  project.NewHandler(projectRepo, renderer),
		Posts:     post.NewHandler(postRepo, renderer),
		Community: community.NewHandler(userRepo, renderer),
	}
	authMiddleware := auth.NewMiddleware(sessionStore, cfg.Session.CookieName, cfg.Session.TTL, secureCookies)

	// Initialize router
	router := web.NewRouter(cfg, handlers, authMiddleware, logger, staticFS)

	// Initialize HTTP server
	serverAddr := ":" + cfg.Server.Port
	server := web.NewServer(
		serverAddr,
		router,
		cfg.Server.ReadTimeout,
		cfg.Server.WriteTimeout,
		logger,
	)

	// Start server in a goroutine
	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- server.Start()
	}()

	// Wait for interrupt signal or server error
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)
	case sig := <-shutdown:
		log.Printf("Received signal: %v", sig)

		// Graceful shutdown with timeout
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// initRedis initializes the Redis connection and returns a Redis client
func initRedis(cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	// Verify connection
	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}

	return client, nil
}
