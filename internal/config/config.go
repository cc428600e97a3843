package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Netflix/go-env"
	"github.com/ethereum/go-ethereum/common"
)

// DefaultGasLimit is the fixed gas ceiling applied to every custody transaction (0x1ffffffffffffe).
const DefaultGasLimit uint64 = 0x1ffffffffffffe

// Environment variables with defaults
type ServerEnvironment struct {

	// http server settings
	Environment           string        `env:"ENVIRONMENT,default=dev"`
	Host                  string        `env:"HOST,default=0.0.0.0"`
	Port                  int           `env:"PORT,default=8080"`
	LogLevel              string        `env:"LOG_LEVEL,default=debug"`
	ServerShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT,default=10s"`
	ReadTimeout           time.Duration `env:"READ_TIMEOUT,default=15s"`
	WriteTimeout          time.Duration `env:"WRITE_TIMEOUT,default=90s"`
	IdleTimeout           time.Duration `env:"IDLE_TIMEOUT,default=60s"`
	RequestTimeout        time.Duration `env:"REQUEST_TIMEOUT,default=75s"`
	RateLimitRPS          int32         `env:"RATE_LIMIT_RPS,default=100"`
	RateLimitBurst        int32         `env:"RATE_LIMIT_BURST,default=200"`
	MaxRequestSize        int64         `env:"MAX_REQUEST_SIZE,default=1048576"`

	// database settings (credential store)
	DBMaxConnections    int32         `env:"DB_MAX_CONNECTIONS,default=4"`
	DBMinConnections    int32         `env:"DB_MIN_CONNECTIONS,default=0"`
	DBMaxConnLifetime   time.Duration `env:"DB_MAX_CONN_LIFETIME,default=60m"`
	DBMaxConnIdleTime   time.Duration `env:"DB_MAX_CONN_IDLE_TIME,default=30m"`
	DBConnectTimeout    time.Duration `env:"DB_CONNECT_TIMEOUT,default=5s"`
	DatabasePingTimeout time.Duration `env:"DATABASE_PING_TIMEOUT,default=10s"`

	// ledger settings
	ChainID             int64         `env:"CHAIN_ID,default=0"`
	LedgerTimeout       time.Duration `env:"LEDGER_TIMEOUT,default=30s"`
	ReceiptPollInterval time.Duration `env:"RECEIPT_POLL_INTERVAL,default=500ms"`
	GasLimit            string        `env:"GAS_LIMIT,default=0x1ffffffffffffe"`

	// signing settings
	SignatureDomainName string `env:"SIGNATURE_DOMAIN_NAME,default=EthereumEip712Signature2021"`

	// audit events - events are not published when AMQP_URL is empty
	AMQPURL      string `env:"AMQP_URL"`
	AMQPExchange string `env:"AMQP_EXCHANGE,default=bl.custody"`

	// Required configuration - must be set by environment variables
	DatabaseURL     string `env:"DATABASE_URL,required=true"`
	LedgerRPCURL    string `env:"LEDGER_RPC_URL,required=true"`
	ContractAddress string `env:"BL_CONTRACT_ADDRESS,required=true"`
}

// ClientEnvironment is the configuration used by the blctl command line tool.
// The tool only performs read-only ledger calls and local signing so no database is needed.
type ClientEnvironment struct {
	Environment         string        `env:"ENVIRONMENT,default=dev"`
	LogLevel            string        `env:"LOG_LEVEL,default=info"`
	ChainID             int64         `env:"CHAIN_ID,default=0"`
	LedgerTimeout       time.Duration `env:"LEDGER_TIMEOUT,default=30s"`
	SignatureDomainName string        `env:"SIGNATURE_DOMAIN_NAME,default=EthereumEip712Signature2021"`
	LedgerRPCURL        string        `env:"LEDGER_RPC_URL"`
	ContractAddress     string        `env:"BL_CONTRACT_ADDRESS"`
}

// WalletgenEnvironment is the configuration used by walletgen to migrate and provision the credential store
type WalletgenEnvironment struct {
	Environment         string        `env:"ENVIRONMENT,default=dev"`
	LogLevel            string        `env:"LOG_LEVEL,default=info"`
	DatabasePingTimeout time.Duration `env:"DATABASE_PING_TIMEOUT,default=10s"`
	DatabaseURL         string        `env:"DATABASE_URL,required=true"`
}

var validEnvs = map[string]bool{
	"dev":     true,
	"test":    true,
	"prod":    true,
	"staging": true,
}

// NewServerConfig loads environment variables and returns a ServerEnvironment struct that contains the values
func NewServerConfig() (*ServerEnvironment, error) {
	var cfg ServerEnvironment

	_, err := env.UnmarshalFromEnviron(&cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal environment variables: %w", err)
	}

	if err := validateConfig(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// NewClientConfig loads the blctl configuration
func NewClientConfig() (*ClientEnvironment, error) {
	var cfg ClientEnvironment

	if _, err := env.UnmarshalFromEnviron(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal environment variables: %w", err)
	}
	if !validEnvs[cfg.Environment] {
		return nil, fmt.Errorf("invalid ENVIRONMENT: %s", cfg.Environment)
	}
	if cfg.ContractAddress != "" && !common.IsHexAddress(cfg.ContractAddress) {
		return nil, fmt.Errorf("BL_CONTRACT_ADDRESS is not a valid address: %s", cfg.ContractAddress)
	}
	return &cfg, nil
}

// NewWalletgenConfig loads the walletgen configuration
func NewWalletgenConfig() (*WalletgenEnvironment, error) {
	var cfg WalletgenEnvironment

	if _, err := env.UnmarshalFromEnviron(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal environment variables: %w", err)
	}
	if !validEnvs[cfg.Environment] {
		return nil, fmt.Errorf("invalid ENVIRONMENT: %s", cfg.Environment)
	}
	return &cfg, nil
}

// GasLimitValue parses GAS_LIMIT (decimal or 0x-prefixed hex)
func (cfg *ServerEnvironment) GasLimitValue() (uint64, error) {
	return ParseGasLimit(cfg.GasLimit)
}

// ParseGasLimit parses a decimal or 0x-prefixed hex gas limit. An empty value returns DefaultGasLimit.
func ParseGasLimit(s string) (uint64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return DefaultGasLimit, nil
	}
	var (
		v   uint64
		err error
	)
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		v, err = strconv.ParseUint(s[2:], 16, 64)
	} else {
		v, err = strconv.ParseUint(s, 10, 64)
	}
	if err != nil {
		return 0, fmt.Errorf("invalid gas limit %q: %w", s, err)
	}
	if v == 0 {
		return 0, fmt.Errorf("gas limit must be greater than 0")
	}
	return v, nil
}

// validateConfig checks for required env variables
func validateConfig(cfg *ServerEnvironment) error {
	if cfg.Port < 1 || cfg.Port > 65535 {
		return fmt.Errorf("PORT must be between 1 and 65535")
	}
	if !validEnvs[cfg.Environment] {
		return fmt.Errorf("invalid ENVIRONMENT: %s", cfg.Environment)
	}

	// Validate database pool configuration
	if cfg.DBMaxConnections < 1 {
		return fmt.Errorf("DB_MAX_CONNECTIONS must be at least 1")
	}
	if cfg.DBMinConnections < 0 {
		return fmt.Errorf("DB_MIN_CONNECTIONS must be 0 or greater")
	}
	if cfg.DBMinConnections > cfg.DBMaxConnections {
		return fmt.Errorf("DB_MIN_CONNECTIONS (%d) cannot be greater than DB_MAX_CONNECTIONS (%d)",
			cfg.DBMinConnections, cfg.DBMaxConnections)
	}

	if !common.IsHexAddress(cfg.ContractAddress) {
		return fmt.Errorf("BL_CONTRACT_ADDRESS is not a valid address: %s", cfg.ContractAddress)
	}
	if cfg.ChainID < 0 {
		return fmt.Errorf("CHAIN_ID must be 0 (use the node's chain id) or a positive integer")
	}
	if cfg.LedgerTimeout <= 0 {
		return fmt.Errorf("LEDGER_TIMEOUT must be greater than 0")
	}
	if cfg.ReceiptPollInterval <= 0 || cfg.ReceiptPollInterval >= cfg.LedgerTimeout {
		return fmt.Errorf("RECEIPT_POLL_INTERVAL must be greater than 0 and less than LEDGER_TIMEOUT")
	}
	if cfg.RequestTimeout <= cfg.LedgerTimeout {
		return fmt.Errorf("REQUEST_TIMEOUT (%s) must be greater than LEDGER_TIMEOUT (%s)", cfg.RequestTimeout, cfg.LedgerTimeout)
	}
	if _, err := cfg.GasLimitValue(); err != nil {
		return fmt.Errorf("GAS_LIMIT: %w", err)
	}
	if cfg.MaxRequestSize <= 0 {
		return fmt.Errorf("MAX_REQUEST_SIZE must be greater than 0")
	}
	if strings.TrimSpace(cfg.SignatureDomainName) == "" {
		return fmt.Errorf("SIGNATURE_DOMAIN_NAME must not be empty")
	}

	return nil
}
