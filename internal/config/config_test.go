package config

import (
	"os"
	"testing"
	"time"
)

func validServerConfig() ServerEnvironment {
	return ServerEnvironment{
		Environment:         "test",
		Port:                8080,
		DBMaxConnections:    4,
		DBMinConnections:    0,
		LedgerTimeout:       30 * time.Second,
		ReceiptPollInterval: 500 * time.Millisecond,
		RequestTimeout:      75 * time.Second,
		GasLimit:            "0x1ffffffffffffe",
		MaxRequestSize:      1024,
		SignatureDomainName: "EthereumEip712Signature2021",
		DatabaseURL:         "postgres://localhost/bl",
		LedgerRPCURL:        "http://localhost:8545",
		ContractAddress:     "0x5FbDB2315678afecb367f032d93F642f64180aa3",
	}
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(cfg *ServerEnvironment)
		wantErr bool
	}{
		{"valid", func(cfg *ServerEnvironment) {}, false},
		{"bad port", func(cfg *ServerEnvironment) { cfg.Port = 0 }, true},
		{"bad environment", func(cfg *ServerEnvironment) { cfg.Environment = "qa" }, true},
		{"min > max connections", func(cfg *ServerEnvironment) { cfg.DBMinConnections = 5 }, true},
		{"bad contract address", func(cfg *ServerEnvironment) { cfg.ContractAddress = "0x1234" }, true},
		{"negative chain id", func(cfg *ServerEnvironment) { cfg.ChainID = -1 }, true},
		{"poll interval >= ledger timeout", func(cfg *ServerEnvironment) { cfg.ReceiptPollInterval = time.Minute }, true},
		{"request timeout <= ledger timeout", func(cfg *ServerEnvironment) { cfg.RequestTimeout = 30 * time.Second }, true},
		{"bad gas limit", func(cfg *ServerEnvironment) { cfg.GasLimit = "lots" }, true},
		{"empty domain name", func(cfg *ServerEnvironment) { cfg.SignatureDomainName = " " }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validServerConfig()
			tt.modify(&cfg)
			err := validateConfig(&cfg)
			if (err != nil) != tt.wantErr {
				t.Errorf("validateConfig() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestParseGasLimit(t *testing.T) {
	tests := []struct {
		input   string
		want    uint64
		wantErr bool
	}{
		{"", DefaultGasLimit, false},
		{"0x1ffffffffffffe", 9007199254740990, false},
		{"21000", 21000, false},
		{"0", 0, true},
		{"0xzz", 0, true},
		{"-1", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseGasLimit(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseGasLimit(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseGasLimit(%q) = %d, want %d", tt.input, got, tt.want)
			}
		})
	}
}

func TestNewServerConfigRequiredVars(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("LEDGER_RPC_URL", "")
	t.Setenv("BL_CONTRACT_ADDRESS", "")

	if _, err := NewServerConfig(); err == nil {
		t.Fatal("expected error when required variables are missing")
	}
}

func TestNewWalletgenConfig(t *testing.T) {
	t.Setenv("ENVIRONMENT", "test")
	t.Setenv("DATABASE_URL", "")
	os.Unsetenv("DATABASE_URL")

	if _, err := NewWalletgenConfig(); err == nil {
		t.Fatal("expected error when DATABASE_URL is not set")
	}

	t.Setenv("DATABASE_URL", "postgres://localhost/bl")
	cfg, err := NewWalletgenConfig()
	if err != nil {
		t.Fatalf("NewWalletgenConfig() error = %v", err)
	}
	if cfg.DatabasePingTimeout != 10*time.Second {
		t.Errorf("DatabasePingTimeout: got %s, want 10s", cfg.DatabasePingTimeout)
	}

	t.Setenv("ENVIRONMENT", "qa")
	if _, err := NewWalletgenConfig(); err == nil {
		t.Error("expected error for an invalid ENVIRONMENT")
	}
}
