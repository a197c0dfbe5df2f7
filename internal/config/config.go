package config

import "time"

const (
	// DefaultPort is the default HTTP server port.
	DefaultPort = "8080"

	// DefaultDatabaseURL is empty; must be provided via flag or environment.
	DefaultDatabaseURL = ""

	// DefaultIndexerURL points at the hosted GraphQL indexer for the registries.
	DefaultIndexerURL = "http://localhost:4000/graphql"

	// DefaultTrustAPIURL points at the trust gateway that signs and relays writes.
	DefaultTrustAPIURL = "http://localhost:3001"

	// DefaultCacheTTL bounds how long agent reads are served from cache.
	DefaultCacheTTL = 30 * time.Second

	// DefaultUpstreamTimeout is the per-request timeout against the gateway and indexer.
	DefaultUpstreamTimeout = 15 * time.Second

	// DefaultSearchRateLimit is the sustained per-client rate for search routes.
	DefaultSearchRateLimit = 5.0

	// DefaultSearchBurst is the burst size for search routes.
	DefaultSearchBurst = 20
)

// Config is the runtime configuration assembled from CLI flags and environment.
type Config struct {
	Port            string
	DatabaseURL     string
	IndexerURL      string
	TrustAPIURL     string
	TrustAPIKey     string
	RedisAddr       string
	APIKeys         []string
	CORSOrigins     string
	CacheTTL        time.Duration
	UpstreamTimeout time.Duration
	SearchRateLimit float64
	SearchBurst     int
	TrustedProxies  []string
	Chains          *Chains
}
