package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string
	ListenAddr  string

	AuthJWTSecret string

	OTLPEndpoint string

	DBType            string
	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime int
	DBConnMaxIdleTime int

	Chain ChainConfig

	RedisAddr     string
	RedisPassword string

	PortfolioWorkers int
}

// ChainConfig configures the on-chain collaborators.
type ChainConfig struct {
	RPCEndpoint        string
	ShareTokenAddress  string
	SettlementAddress  string
	OperatorWalletID   string
	OperatorPrivateKey string
	CallTimeoutSeconds int

	// Outbound request budget against the RPC endpoint. Zero disables
	// the redis token bucket and relies on the worker pool bound alone.
	RPCRatePerSecond float64
	RPCBurst         int
}

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	cfg := Config{
		AppName:       getenv("APP_SERVICE", "terravest"),
		AppVersion:    getenv("APP_VERSION", "0.1.0"),
		Environment:   getenv("ENVIRONMENT", "development"),
		ListenAddr:    getenv("LISTEN_ADDR", ":8080"),
		AuthJWTSecret: strings.TrimSpace(getenv("AUTH_JWT_SECRET", "")),
		OTLPEndpoint:  getenv("OTLP_ENDPOINT", "localhost:4317"),

		DBType:            getenv("DATABASE_TYPE", "postgres"),
		DBHost:            getenv("DATABASE_HOST", "localhost"),
		DBPort:            getenv("DATABASE_PORT", "5432"),
		DBName:            getenv("DATABASE_NAME", "terravest"),
		DBUser:            getenv("DATABASE_USER", "postgres"),
		DBPassword:        getenv("DATABASE_PASSWORD", "postgres"),
		DBSSLMode:         getenv("DATABASE_SSLMODE", "disable"),
		DBMaxIdleConn:     getenvInt("DATABASE_MAX_IDLE_CONN", 10),
		DBMaxOpenConn:     getenvInt("DATABASE_MAX_OPEN_CONN", 50),
		DBConnMaxLifetime: getenvInt("DATABASE_CONN_MAX_LIFETIME", 3600),
		DBConnMaxIdleTime: getenvInt("DATABASE_CONN_MAX_IDLE_TIME", 600),

		Chain: ChainConfig{
			RPCEndpoint:        getenv("CHAIN_RPC_ENDPOINT", "http://localhost:8545"),
			ShareTokenAddress:  strings.TrimSpace(getenv("CHAIN_SHARE_TOKEN_ADDRESS", "")),
			SettlementAddress:  strings.TrimSpace(getenv("CHAIN_SETTLEMENT_ADDRESS", "")),
			OperatorWalletID:   strings.TrimSpace(getenv("CHAIN_OPERATOR_WALLET_ID", "")),
			OperatorPrivateKey: strings.TrimSpace(getenv("CHAIN_OPERATOR_PRIVATE_KEY", "")),
			CallTimeoutSeconds: getenvInt("CHAIN_CALL_TIMEOUT", 15),
			RPCRatePerSecond:   getenvFloat("CHAIN_RPC_RATE", 0),
			RPCBurst:           getenvInt("CHAIN_RPC_BURST", 0),
		},

		RedisAddr:     strings.TrimSpace(getenv("REDIS_ADDR", "")),
		RedisPassword: getenv("REDIS_PASSWORD", ""),

		PortfolioWorkers: getenvInt("PORTFOLIO_WORKERS", 4),
	}

	return cfg
}

func getenv(key, def string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return def
}

func getenvInt(key string, def int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return parsed
}

func getenvFloat(key string, def float64) float64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return def
	}
	return parsed
}
