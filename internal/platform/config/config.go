package config

import (
	"math/big"
	"os"
	"strconv"
	"strings"
	"time"

	"flightsurety/pkg/domain"
)

// Server captures process level configuration.
type Server struct {
	Addr          string
	DatabaseURL   string
	JWTSigningKey string
	JWTIssuer     string
	JWTAudience   string
	AdminAddress  domain.Address
	// LedgerURL is where cmd/oracles reaches the ledger API.
	LedgerURL string
	Redis     RedisConfig
	Kafka     KafkaConfig
	Relay     RelayConfig
	RateLimit RateLimitConfig
	Ledger    Ledger
	// SimulatedOracles starts an in-process oracle fleet of this size when > 0.
	SimulatedOracles int
}

// RedisConfig configures the flight view cache.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	CacheTTL     time.Duration
}

// KafkaConfig configures the event sink. Empty Brokers disables it.
type KafkaConfig struct {
	Brokers       []string
	Topic         string
	ConsumerGroup string
	Partitions    int32
	Replication   int16
}

// RelayConfig drives the outbox dispatcher and the stale request janitor.
type RelayConfig struct {
	PollInterval    time.Duration
	BatchSize       int
	JanitorInterval time.Duration
}

// RateLimitConfig sets the per-client API budgets.
type RateLimitConfig struct {
	Disabled      bool
	ReadRequests  int
	WriteRequests int
	Window        time.Duration
}

// Ledger holds the economic and consensus parameters of the state machine.
type Ledger struct {
	// AirlineFundingThreshold is the cumulative stake that makes an airline paid.
	AirlineFundingThreshold *big.Int
	// FastPathLimit is the largest registered-airline count at which a paid
	// airline may admit another unilaterally.
	FastPathLimit int
	// OracleRegistrationFee is charged once per oracle.
	OracleRegistrationFee *big.Int
	// OracleQuorum is the number of matching responses that finalizes a request.
	OracleQuorum int
	// OracleIndexRange bounds assigned indexes to [0, OracleIndexRange).
	OracleIndexRange uint8
	// IndexSeed keys the index derivation so every replica draws the same values.
	IndexSeed []byte
	// PremiumCap bounds a purchaser's cumulative premium per flight.
	PremiumCap *big.Int
	// PayoutNumerator/PayoutDenominator is the payout multiplier (1.5x).
	PayoutNumerator   int64
	PayoutDenominator int64
	// RequestTTL is how long an open status request survives before eviction.
	RequestTTL time.Duration
	// MaxOpenRequestsPerFlight caps pending requests per flight.
	MaxOpenRequestsPerFlight int
}

// DefaultLedger returns the parameters observed in the reference deployment.
func DefaultLedger() Ledger {
	return Ledger{
		AirlineFundingThreshold:  domain.Ether(10),
		FastPathLimit:            4,
		OracleRegistrationFee:    domain.Ether(1),
		OracleQuorum:             3,
		OracleIndexRange:         10,
		IndexSeed:                []byte("flightsurety"),
		PremiumCap:               domain.Ether(1),
		PayoutNumerator:          3,
		PayoutDenominator:        2,
		RequestTTL:               time.Hour,
		MaxOpenRequestsPerFlight: 16,
	}
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() (Server, error) {
	admin, err := domain.ParseAddress(getEnv("ADMIN_ADDRESS", "0x627306090abab3a6e1400e9345bc60c78a8bef57"))
	if err != nil {
		return Server{}, err
	}

	ledger := DefaultLedger()
	if seed := os.Getenv("INDEX_SEED"); seed != "" {
		ledger.IndexSeed = []byte(seed)
	}
	ledger.RequestTTL = getDuration("ORACLE_REQUEST_TTL", ledger.RequestTTL)

	return Server{
		Addr:        getEnv("FLIGHTSURETY_ADDR", ":8080"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		// Use a default for development - should be overridden in production
		JWTSigningKey: getEnv("JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
		JWTIssuer:     getEnv("JWT_ISSUER", "flightsurety"),
		JWTAudience:   getEnv("JWT_AUDIENCE", "flightsurety-api"),
		AdminAddress:  admin,
		LedgerURL:     getEnv("LEDGER_URL", "http://localhost:8080"),
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     getInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: getInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  getDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  getDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: getDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
			CacheTTL:     getDuration("FLIGHT_CACHE_TTL", 30*time.Second),
		},
		Kafka: KafkaConfig{
			Brokers:       splitList(os.Getenv("KAFKA_BROKERS")),
			Topic:         getEnv("KAFKA_TOPIC", "flightsurety.events"),
			ConsumerGroup: getEnv("KAFKA_CONSUMER_GROUP", "flightsurety-oracles"),
			Partitions:    int32(getInt("KAFKA_TOPIC_PARTITIONS", 1)),
			Replication:   int16(getInt("KAFKA_TOPIC_REPLICATION", 1)),
		},
		Relay: RelayConfig{
			PollInterval:    getDuration("RELAY_POLL_INTERVAL", 250*time.Millisecond),
			BatchSize:       getInt("RELAY_BATCH_SIZE", 100),
			JanitorInterval: getDuration("ORACLE_JANITOR_INTERVAL", time.Minute),
		},
		RateLimit: RateLimitConfig{
			Disabled:      getBool("RATE_LIMIT_DISABLED", false),
			ReadRequests:  getInt("RATE_LIMIT_READ_REQUESTS", 300),
			WriteRequests: getInt("RATE_LIMIT_WRITE_REQUESTS", 60),
			Window:        getDuration("RATE_LIMIT_WINDOW", time.Minute),
		},
		Ledger:           ledger,
		SimulatedOracles: getInt("SIMULATED_ORACLES", 0),
	}, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func splitList(v string) []string {
	if v == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
