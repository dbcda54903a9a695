package config

import (
	"strings"
	"testing"
	"time"
)

type countingWarner struct{ n int }

func (c *countingWarner) Warn(msg string, args ...any) { c.n++ }

func TestDefaults(t *testing.T) {
	for _, key := range []string{"DB_PORT", "LOCATION_THROTTLE", "ALLOWED_ORIGINS", "WALLET_STORE", "RABBITMQ_DISABLED", "REDIS_ADDR"} {
		t.Setenv(key, "")
	}
	w := &countingWarner{}
	cfg := New(w)

	if cfg.DB.Port != 5432 {
		t.Errorf("db port = %d", cfg.DB.Port)
	}
	if cfg.App.LocationThrottle != time.Second {
		t.Errorf("throttle = %v", cfg.App.LocationThrottle)
	}
	if len(cfg.App.AllowedOrigins) != 1 || cfg.App.AllowedOrigins[0] != "*" {
		t.Errorf("origins = %v", cfg.App.AllowedOrigins)
	}
	if cfg.App.WalletStore != WalletStorePostgres {
		t.Errorf("store = %q", cfg.App.WalletStore)
	}
	if cfg.RabbitMq.Disabled || cfg.Redis.Addr != "" {
		t.Errorf("rabbit disabled=%v redis=%q", cfg.RabbitMq.Disabled, cfg.Redis.Addr)
	}
	if w.n == 0 {
		t.Error("defaults were not reported")
	}
}

func TestOverrides(t *testing.T) {
	t.Setenv("DB_PORT", "6543")
	t.Setenv("DB_MAX_CONNS", "4")
	t.Setenv("LOCATION_THROTTLE", "250ms")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, ,https://b.example")
	t.Setenv("WALLET_STORE", "Memory")
	t.Setenv("RABBITMQ_DISABLED", "true")
	t.Setenv("PERSIST_NOTIFICATIONS", "false")

	cfg := New(&countingWarner{})

	if cfg.DB.Port != 6543 {
		t.Errorf("db port = %d", cfg.DB.Port)
	}
	if cfg.App.LocationThrottle != 250*time.Millisecond {
		t.Errorf("throttle = %v", cfg.App.LocationThrottle)
	}
	if got := cfg.App.AllowedOrigins; len(got) != 2 || got[1] != "https://b.example" {
		t.Errorf("origins = %v", got)
	}
	if cfg.App.WalletStore != WalletStoreMemory {
		t.Errorf("store = %q", cfg.App.WalletStore)
	}
	if !cfg.RabbitMq.Disabled || cfg.App.PersistNotifications {
		t.Errorf("disabled=%v persist=%v", cfg.RabbitMq.Disabled, cfg.App.PersistNotifications)
	}
	if want := "pool_max_conns=4"; !strings.Contains(cfg.DB.DSN(), want) {
		t.Errorf("dsn %q lacks %q", cfg.DB.DSN(), want)
	}
}

func TestInvalidValuesFallBack(t *testing.T) {
	t.Setenv("DB_PORT", "not-a-port")
	t.Setenv("LOCATION_THROTTLE", "-1s")
	t.Setenv("RABBITMQ_DISABLED", "maybe")

	cfg := New(&countingWarner{})
	if cfg.DB.Port != 5432 || cfg.App.LocationThrottle != time.Second || cfg.RabbitMq.Disabled {
		t.Errorf("port=%d throttle=%v disabled=%v", cfg.DB.Port, cfg.App.LocationThrottle, cfg.RabbitMq.Disabled)
	}
}

