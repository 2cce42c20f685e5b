package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("JWT_SECRET", strings.Repeat("s", 40))
	t.Setenv("HTTP_PORT", "9090")
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("DATABASE_DSN", "pos.db")
	t.Setenv("JWT_TTL_HOURS", "3")
	t.Setenv("PAGE_SIZE", "50")

	cfg := Load()
	if cfg.HTTPPort != "9090" {
		t.Fatalf("expected port 9090, got %q", cfg.HTTPPort)
	}
	if cfg.DBDriver != "sqlite" || cfg.DatabaseDSN != "pos.db" {
		t.Fatalf("unexpected database settings: %s %s", cfg.DBDriver, cfg.DatabaseDSN)
	}
	if cfg.JWTTTL != 3*time.Hour {
		t.Fatalf("expected ttl 3h, got %v", cfg.JWTTTL)
	}
	if cfg.PageSize != 50 {
		t.Fatalf("expected page size 50, got %d", cfg.PageSize)
	}
}

func TestLoad_DatabaseURLFallback(t *testing.T) {
	t.Setenv("JWT_SECRET", strings.Repeat("s", 40))
	t.Setenv("DATABASE_DSN", "")
	t.Setenv("DATABASE_URL", "postgres://pos@db/pos")

	cfg := Load()
	if cfg.DatabaseDSN != "postgres://pos@db/pos" {
		t.Fatalf("expected DATABASE_URL fallback, got %q", cfg.DatabaseDSN)
	}
}

func TestValidate(t *testing.T) {
	valid := strings.Repeat("x", 32)
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"valid", Config{JWTSecret: valid, DBDriver: "postgres", PageSize: 20}, false},
		{"missing secret", Config{DBDriver: "postgres", PageSize: 20}, true},
		{"short secret", Config{JWTSecret: "short", DBDriver: "postgres", PageSize: 20}, true},
		{"unknown driver", Config{JWTSecret: valid, DBDriver: "mysql", PageSize: 20}, true},
		{"zero page size", Config{JWTSecret: valid, DBDriver: "sqlite", PageSize: 0}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
