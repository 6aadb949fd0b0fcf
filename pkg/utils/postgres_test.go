package utils

import (
	"testing"
	"time"
)

func TestPoolConfigDefaults(t *testing.T) {
	cfg := PostgresPoolConfig{}.withDefaults()
	if cfg.MaxOpenConns <= 0 || cfg.MaxIdleConns <= 0 {
		t.Fatalf("expected positive pool defaults: %+v", cfg)
	}
	if cfg.PingTimeout <= 0 {
		t.Fatalf("expected ping timeout default: %+v", cfg)
	}
}

func TestPoolConfigKeepsExplicitValues(t *testing.T) {
	cfg := PostgresPoolConfig{
		MaxOpenConns: 5,
		MaxIdleConns: 2,
		PingTimeout:  time.Second,
	}.withDefaults()
	if cfg.MaxOpenConns != 5 || cfg.MaxIdleConns != 2 || cfg.PingTimeout != time.Second {
		t.Fatalf("explicit values overwritten: %+v", cfg)
	}
}
