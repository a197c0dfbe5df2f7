// @title			Agentic Trust API
// @version		1.0
// @description	Admin API for ERC-8004 agent identity, reputation, validation and ERC-8092 associations.
// @BasePath		/api
// @securityDefinitions.apikey	BearerAuth
// @in							header
// @name						Authorization

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/Agentic-Trust-Layer/agentic-trust-sub003/internal/cache"
	"github.com/Agentic-Trust-Layer/agentic-trust-sub003/internal/config"
	"github.com/Agentic-Trust-Layer/agentic-trust-sub003/internal/database"
	"github.com/Agentic-Trust-Layer/agentic-trust-sub003/internal/handler"
	"github.com/Agentic-Trust-Layer/agentic-trust-sub003/internal/logger"
	"github.com/Agentic-Trust-Layer/agentic-trust-sub003/internal/middleware"
	"github.com/Agentic-Trust-Layer/agentic-trust-sub003/internal/repository"
	"github.com/Agentic-Trust-Layer/agentic-trust-sub003/internal/service"
	"github.com/Agentic-Trust-Layer/agentic-trust-sub003/internal/trust"
)

const serviceName = "agentictrust"

func main() {
	app := &cli.App{
		Name:  serviceName,
		Usage: "Admin API for agent identity and trust",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Value:   "info",
				Usage:   "Log level (debug, info, warn, error)",
				EnvVars: []string{"LOG_LEVEL"},
			},
			&cli.StringFlag{
				Name:    "log-format",
				Value:   "json",
				Usage:   "Log format (json, text)",
				EnvVars: []string{"LOG_FORMAT"},
			},
			&cli.StringFlag{
				Name:     "database-url",
				Aliases:  []string{"d"},
				Value:    config.DefaultDatabaseURL,
				Usage:    "PostgreSQL database URL",
				EnvVars:  []string{"DATABASE_URL"},
				Required: true,
			},
		},
		Before: func(c *cli.Context) error {
			logger.Setup(logger.ParseLevel(c.String("log-level")), logger.ParseFormat(c.String("log-format")), serviceName)
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Start the web server",
				Flags:  serveFlags(),
				Action: runServe,
			},
			{
				Name:   "migrate",
				Usage:  "Apply pending database migrations and exit",
				Action: runMigrate,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		slog.Error("application error", "error", err)
		os.Exit(1)
	}
}

func serveFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "port",
			Aliases: []string{"p"},
			Value:   config.DefaultPort,
			Usage:   "HTTP server port",
			EnvVars: []string{"PORT"},
		},
		&cli.StringFlag{
			Name:    "indexer-url",
			Value:   config.DefaultIndexerURL,
			Usage:   "GraphQL indexer endpoint",
			EnvVars: []string{"INDEXER_URL"},
		},
		&cli.StringFlag{
			Name:    "trust-api-url",
			Value:   config.DefaultTrustAPIURL,
			Usage:   "Trust gateway base URL",
			EnvVars: []string{"TRUST_API_URL"},
		},
		&cli.StringFlag{
			Name:    "trust-api-key",
			Usage:   "Bearer token presented to the trust gateway",
			EnvVars: []string{"TRUST_API_KEY"},
		},
		&cli.StringFlag{
			Name:    "redis-addr",
			Usage:   "Redis address for the read cache; in-memory when empty or unreachable",
			EnvVars: []string{"REDIS_ADDR"},
		},
		&cli.StringSliceFlag{
			Name:    "api-keys",
			Usage:   "API keys accepted on mutating routes; auth is off when empty",
			EnvVars: []string{"API_KEYS"},
		},
		&cli.StringFlag{
			Name:    "cors-origins",
			Usage:   "Comma-separated allowed origins, or *",
			EnvVars: []string{"CORS_ORIGINS"},
		},
		&cli.StringFlag{
			Name:    "chains-file",
			Usage:   "YAML file listing supported chains; built-in testnets when empty",
			EnvVars: []string{"CHAINS_FILE"},
		},
		&cli.DurationFlag{
			Name:    "cache-ttl",
			Value:   config.DefaultCacheTTL,
			Usage:   "TTL for cached agent, reputation and search reads (0 disables)",
			EnvVars: []string{"CACHE_TTL"},
		},
		&cli.DurationFlag{
			Name:    "upstream-timeout",
			Value:   config.DefaultUpstreamTimeout,
			Usage:   "Timeout for one gateway or indexer request",
			EnvVars: []string{"UPSTREAM_TIMEOUT"},
		},
		&cli.Float64Flag{
			Name:    "search-rate-limit",
			Value:   config.DefaultSearchRateLimit,
			Usage:   "Sustained search requests per second per client (0 disables)",
			EnvVars: []string{"SEARCH_RATE_LIMIT"},
		},
		&cli.IntFlag{
			Name:    "search-burst",
			Value:   config.DefaultSearchBurst,
			Usage:   "Search burst size per client",
			EnvVars: []string{"SEARCH_BURST"},
		},
		&cli.StringSliceFlag{
			Name:    "trusted-proxies",
			Usage:   "Proxy IPs or CIDRs whose X-Forwarded-For is used to identify clients",
			EnvVars: []string{"TRUSTED_PROXIES"},
		},
	}
}

func loadConfig(c *cli.Context) (*config.Config, error) {
	chains, err := config.LoadChains(c.String("chains-file"))
	if err != nil {
		return nil, err
	}
	cfg := &config.Config{
		Port:            c.String("port"),
		DatabaseURL:     c.String("database-url"),
		IndexerURL:      c.String("indexer-url"),
		TrustAPIURL:     c.String("trust-api-url"),
		TrustAPIKey:     c.String("trust-api-key"),
		RedisAddr:       c.String("redis-addr"),
		APIKeys:         c.StringSlice("api-keys"),
		CORSOrigins:     c.String("cors-origins"),
		CacheTTL:        c.Duration("cache-ttl"),
		UpstreamTimeout: c.Duration("upstream-timeout"),
		SearchRateLimit: c.Float64("search-rate-limit"),
		SearchBurst:     c.Int("search-burst"),
		TrustedProxies:  c.StringSlice("trusted-proxies"),
		Chains:          chains,
	}
	if cfg.Port == "" {
		cfg.Port = config.DefaultPort
	}
	return cfg, nil
}

func runServe(c *cli.Context) error {
	ctx := c.Context

	cfg, err := loadConfig(c)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	db, err := database.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	if _, err := database.RunMigrations(ctx, db.Pool()); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	backend, closeCache := openCache(ctx, cfg.RedisAddr)
	defer closeCache()
	loader := cache.NewLoader(backend, serviceName, cfg.CacheTTL)

	client := trust.NewHTTPClient(trust.Options{
		IndexerURL: cfg.IndexerURL,
		GatewayURL: cfg.TrustAPIURL,
		APIKey:     cfg.TrustAPIKey,
		Timeout:    cfg.UpstreamTimeout,
	})
	ops := repository.NewOperationRepository(db.Pool())

	limiter := middleware.NewRateLimiter(cfg.SearchRateLimit, cfg.SearchBurst)
	if err := limiter.TrustProxies(cfg.TrustedProxies...); err != nil {
		return fmt.Errorf("invalid trusted proxies: %w", err)
	}

	auth := middleware.NewAPIKeyAuth(cfg.APIKeys)
	if !auth.Enabled() {
		slog.Warn("no API keys configured, mutating routes are unauthenticated")
	}

	h := handler.New(handler.Deps{
		Agents:        service.NewAgentService(client, cfg.Chains, loader, ops),
		Associations:  service.NewAssociationService(client, cfg.Chains, ops),
		DB:            db,
		Auth:          auth,
		SearchLimiter: limiter,
	})

	mux := http.NewServeMux()
	h.RegisterRoutes(mux)

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           middleware.Chain(mux, middleware.RequestID, middleware.Observe, middleware.CORS(cfg.CORSOrigins)),
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      2*cfg.UpstreamTimeout + 5*time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
	}

	serverErr := make(chan error, 1)
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		slog.Info("starting server",
			"server_addr", "http://localhost:"+cfg.Port,
			"chains", cfg.Chains.IDs(),
			"indexer_url", cfg.IndexerURL,
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		return fmt.Errorf("server error: %w", err)
	case <-done:
		slog.Info("shutting down server")
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("server stopped")
	return nil
}

// openCache connects to Redis when addr is set and falls back to an
// in-process cache otherwise.
func openCache(ctx context.Context, addr string) (cache.Cache, func()) {
	if addr == "" {
		return cache.NewMemoryCache(), func() {}
	}
	client, err := cache.NewRedis(ctx, cache.RedisOptions{Addr: addr})
	if err != nil {
		slog.Warn("redis unavailable, using in-memory cache", "redis_addr", addr, "error", err)
		return cache.NewMemoryCache(), func() {}
	}
	slog.Info("using redis cache", "redis_addr", addr)
	return cache.New(ctx, client), func() { _ = client.Close() }
}

func runMigrate(c *cli.Context) error {
	ctx := c.Context

	db, err := database.New(ctx, c.String("database-url"))
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	version, err := database.RunMigrations(ctx, db.Pool())
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	slog.Info("migrations applied", "version", version)
	return nil
}
