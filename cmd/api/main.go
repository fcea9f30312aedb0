package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"fairplay-api/internal/cache"
	"fairplay-api/internal/catalog"
	"fairplay-api/internal/config"
	"fairplay-api/internal/events"
	"fairplay-api/internal/features"
	"fairplay-api/internal/handler"
	"fairplay-api/internal/middleware"
	"fairplay-api/internal/payments"
	"fairplay-api/internal/service"
	"fairplay-api/internal/tracing"
)

func main() {
	configFile := flag.String("config", "", "Path to JSON config file (optional)")
	flag.Parse()

	logger := zerolog.New(os.Stderr).With().Timestamp().Str("service", "fairplay-api").Logger()

	cfg, err := config.LoadConfig(*configFile)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load configuration")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}

	if _, err := tracing.Init(tracing.Config{
		Enabled:     cfg.Tracing.Enabled,
		Endpoint:    cfg.Tracing.Endpoint,
		Environment: cfg.Tracing.Environment,
	}); err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize tracing")
	}
	defer tracing.Shutdown(context.Background())

	// Feature flags
	flags := features.NewManager()
	flags.Register(features.FeatureSimulatedDonations, cfg.Features.SimulatedDonations,
		"Expose the simulated donation endpoint")
	flags.Register(features.FeatureCacheEnabled, cfg.Cache.Enabled,
		"Cache top-artists responses")

	// Event hooks: audit log for donations and aggregations
	evts := events.NewManager(true)
	defer evts.Shutdown()
	registerAuditHooks(evts, logger)

	// Top-artists cache
	var artistCache cache.Cache
	if flags.IsEnabled(features.FeatureCacheEnabled) {
		if cfg.Cache.RedisAddr != "" {
			redisCache, err := cache.NewRedisCache(cfg.Cache.RedisAddr, cfg.Cache.RedisPassword, cfg.Cache.RedisDB)
			if err != nil {
				logger.Fatal().Err(err).Msg("failed to connect to Redis")
			}
			defer redisCache.Close()
			artistCache = redisCache
		} else {
			artistCache = cache.NewMemoryCache()
		}
	}

	// External capabilities
	var stripeOpts []payments.StripeOption
	if cfg.Stripe.BaseURL != "" {
		stripeOpts = append(stripeOpts, payments.WithBaseURL(cfg.Stripe.BaseURL))
	}
	liveProcessor := payments.NewStripeClient(cfg.Stripe.SecretKey, stripeOpts...)
	simulatedProcessor := payments.NewSimulatedProcessor()

	var catalogOpts []catalog.Option
	if cfg.Catalog.BaseURL != "" {
		catalogOpts = append(catalogOpts, catalog.WithBaseURL(cfg.Catalog.BaseURL))
	}
	catalogClient := catalog.NewClient(catalogOpts...)

	// Services
	donations := service.NewDonationService(liveProcessor, simulatedProcessor, evts,
		logger.With().Str("component", "donations").Logger(),
		time.Duration(cfg.Stripe.TimeoutSeconds)*time.Second)
	artists := service.NewArtistService(catalogClient, artistCache,
		time.Duration(cfg.Cache.TTLSeconds)*time.Second, evts,
		logger.With().Str("component", "artists").Logger(),
		time.Duration(cfg.Catalog.TimeoutSeconds)*time.Second)

	h := handler.NewHandler(donations, artists, flags)

	// Router
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLogger(logger))
	r.Use(chimw.Recoverer)
	r.Use(middleware.Tracing())

	if cfg.RateLimit.Enabled {
		rateLimiter := middleware.NewRateLimiter(cfg.RateLimit.Rate,
			time.Duration(cfg.RateLimit.Window)*time.Second)
		defer rateLimiter.Stop()
		r.Use(middleware.RateLimit(rateLimiter))
	}

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   strings.Split(cfg.Server.AllowedOrigins, ","),
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Idempotency-Key"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Post("/donate", h.Donate)
	r.Route("/api", func(r chi.Router) {
		r.Post("/donate-mock", h.DonateMock)
		r.Get("/spotify/top-artists", h.TopArtists)
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	addr := cfg.Server.Host + ":" + cfg.Server.Port
	server := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	// Graceful shutdown
	go func() {
		sigint := make(chan os.Signal, 1)
		signal.Notify(sigint, os.Interrupt, syscall.SIGTERM)
		<-sigint

		logger.Info().Msg("shutting down server")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			logger.Error().Err(err).Msg("error shutting down server")
		}
	}()

	logger.Info().
		Str("addr", addr).
		Bool("simulated_donations", flags.IsEnabled(features.FeatureSimulatedDonations)).
		Bool("cache", flags.IsEnabled(features.FeatureCacheEnabled)).
		Msg("starting server")

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatal().Err(err).Msg("server failed")
	}
}

// registerAuditHooks logs every donation and aggregation event.
func registerAuditHooks(evts *events.Manager, logger zerolog.Logger) {
	auditLog := logger.With().Str("component", "audit").Logger()

	donationHook := func(_ context.Context, event events.Event) error {
		data, ok := event.Data.(events.DonationData)
		if !ok {
			return nil
		}
		auditLog.Info().
			Str("event", string(event.Type)).
			Str("artist", data.ArtistName).
			Int64("amount_minor", data.AmountMinor).
			Str("reference", data.Reference).
			Bool("simulated", data.Simulated).
			Msg("donation")
		return nil
	}
	evts.Subscribe(events.EventDonationCreated, donationHook)
	evts.Subscribe(events.EventDonationSimulated, donationHook)

	evts.Subscribe(events.EventTopArtistsFetched, func(_ context.Context, event events.Event) error {
		data, ok := event.Data.(events.TopArtistsFetchedData)
		if !ok {
			return nil
		}
		auditLog.Info().
			Str("event", string(event.Type)).
			Int("weekly", data.WeeklyCount).
			Int("monthly", data.MonthlyCount).
			Int("yearly", data.YearlyCount).
			Msg("top artists fetched")
		return nil
	})
}
