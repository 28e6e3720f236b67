package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/diagnosis/stayline-hotel/internal/cache"
	"github.com/diagnosis/stayline-hotel/internal/credential"
	"github.com/diagnosis/stayline-hotel/internal/http/handlers"
	imw "github.com/diagnosis/stayline-hotel/internal/http/middleware"
	"github.com/diagnosis/stayline-hotel/internal/platform/mailer"
	"github.com/diagnosis/stayline-hotel/internal/repo/postgres"
	"github.com/diagnosis/stayline-hotel/internal/service"
	"github.com/diagnosis/stayline-hotel/pkg/config"
	"github.com/diagnosis/stayline-hotel/pkg/database"
	"github.com/diagnosis/stayline-hotel/pkg/events"
	"github.com/diagnosis/stayline-hotel/pkg/logger"
	mw "github.com/diagnosis/stayline-hotel/pkg/middleware"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	ctx := context.Background()

	// Connect to database
	pool, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := postgres.Migrate(ctx, pool); err != nil {
		logger.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}

	// Availability grid cache. Optional: the service recomputes on miss, so
	// a missing Redis only costs latency.
	var grids *cache.AvailabilityCache
	if cfg.Redis.URL != "" {
		opts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			logger.Error("Invalid REDIS_URL", "error", err)
			os.Exit(1)
		}
		if cfg.Redis.Password != "" {
			opts.Password = cfg.Redis.Password
		}
		if cfg.Redis.DB != 0 {
			opts.DB = cfg.Redis.DB
		}
		grids = cache.NewAvailabilityCache(redis.NewClient(opts), cfg.Redis.GridTTL)
	}

	// Connect to event bus
	eventBus, err := events.NewNATSEventBus(cfg.NATS.URL)
	if err != nil {
		logger.Error("Failed to connect to NATS", "error", err)
		os.Exit(1)
	}
	defer eventBus.Close()

	// Outbound mail
	var mail mailer.Service
	switch {
	case cfg.Email.DevMode:
		mail = mailer.NewDevMailer()
	case cfg.Email.MailerSendKey != "":
		mail = mailer.NewMailerSend(cfg.Email.MailerSendKey, cfg.Email.FromName, cfg.Email.SMTPFrom)
	default:
		mail = mailer.NewSMTPMailer(cfg.Email.SMTPHost, cfg.Email.SMTPPort, cfg.Email.SMTPFrom, cfg.Email.SMTPUser, cfg.Email.SMTPPass, cfg.Email.SMTPUseTLS)
	}

	loc, err := time.LoadLocation(cfg.Property.Timezone)
	if err != nil {
		logger.Error("Invalid PROPERTY_TIMEZONE", "error", err, "timezone", cfg.Property.Timezone)
		os.Exit(1)
	}

	// Initialize repositories and services
	roomsRepo := postgres.NewRoomsRepo(pool)
	guestsRepo := postgres.NewGuestsRepo(pool)
	reservationsRepo := postgres.NewReservationsRepo(pool)
	idemRepo := postgres.NewIdempotencyRepo(pool)

	issuer := credential.NewIssuer(cfg.Auth.CredentialSecret, cfg.Auth.CredentialGrace)
	svc := service.New(roomsRepo, guestsRepo, reservationsRepo, idemRepo, issuer, grids, eventBus, mail, cfg.Property.Name, loc)

	loginLimiter := imw.NewRateLimiter(pool, imw.RateLimitConfig{
		Requests: 10,
		Window:   time.Minute,
		KeyFunc:  imw.ClientIPKeyFunc,
	})

	roomsHandler := handlers.NewRoomsHandler(svc)
	reservationsHandler := handlers.NewReservationsHandler(svc)
	credentialsHandler := handlers.NewCredentialsHandler(svc)
	authHandler := handlers.NewAuthHandler(guestsRepo, reservationsRepo, cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTL)

	// Setup router
	r := chi.NewRouter()

	r.Use(mw.RequestID)
	r.Use(mw.ServiceName("api"))
	r.Use(mw.Logging)
	r.Use(mw.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:3000"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Idempotency-Key"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Use(mw.Health)

	r.Route("/v1", func(r chi.Router) {
		r.Mount("/rooms", roomsHandler.Routes())
		r.Mount("/reservations", reservationsHandler.Routes())
		r.Mount("/credentials", credentialsHandler.Routes())
		r.Route("/auth", func(r chi.Router) {
			r.Use(loginLimiter.Middleware())
			r.Mount("/", authHandler.Routes())
		})

		// Signed-in guest self-service routes.
		r.Route("/me", func(r chi.Router) {
			r.Use(imw.RequireJWT(cfg.Auth.JWTSecret))
			r.Mount("/", authHandler.MeRoutes())
		})

		// Front-desk routes require a staff access token.
		r.Route("/staff", func(r chi.Router) {
			r.Use(imw.RequireJWT(cfg.Auth.JWTSecret))
			r.Use(imw.RequireRole("staff"))
			r.Mount("/reservations", reservationsHandler.StaffRoutes())
		})
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		logger.Info("Shutting down api service...")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Api service shutdown error", "error", err)
		}
	}()

	logger.Info("Api service listening", "port", cfg.Server.Port)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", "error", err)
		os.Exit(1)
	}
}
