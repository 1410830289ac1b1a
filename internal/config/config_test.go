package config

import (
	"errors"
	"strings"
	"testing"
)

func validConfig() *GatewayConfig {
	return &GatewayConfig{
		MerchantID:    "MS000001",
		HashKey:       strings.Repeat("K", 32),
		HashIV:        strings.Repeat("I", 16),
		Env:           EnvTest,
		GatewayURL:    testGatewayURL,
		PublicBaseURL: "https://shop.example.com",
		FrontendURL:   "https://shop.example.com",
	}
}

func TestValidate(t *testing.T) {
	if err := validConfig().Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*GatewayConfig)
		field  string
	}{
		{"missing merchant id", func(c *GatewayConfig) { c.MerchantID = "" }, "MERCHANT_ID"},
		{"short hash key", func(c *GatewayConfig) { c.HashKey = "short" }, "HASH_KEY"},
		{"long hash key", func(c *GatewayConfig) { c.HashKey = strings.Repeat("K", 33) }, "HASH_KEY"},
		{"wrong iv length", func(c *GatewayConfig) { c.HashIV = strings.Repeat("I", 8) }, "HASH_IV"},
		{"unknown environment", func(c *GatewayConfig) { c.Env = "staging" }, "GATEWAY_ENV"},
		{"missing public base url", func(c *GatewayConfig) { c.PublicBaseURL = "" }, "PUBLIC_BASE_URL"},
		{"missing frontend url", func(c *GatewayConfig) { c.FrontendURL = "" }, "FRONTEND_URL"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			var ce *Error
			if !errors.As(err, &ce) {
				t.Fatalf("expected *config.Error, got %T", err)
			}
			if ce.Field != tt.field {
				t.Errorf("error on field %s, want %s", ce.Field, tt.field)
			}
			if strings.Contains(err.Error(), "KKKK") || strings.Contains(err.Error(), "IIII") {
				t.Error("error message leaks secret material")
			}
		})
	}
}

func TestLoadGatewayPairsHostWithEnvironment(t *testing.T) {
	t.Setenv("MERCHANT_ID", "MS000001")
	t.Setenv("HASH_KEY", strings.Repeat("K", 32))
	t.Setenv("HASH_IV", strings.Repeat("I", 16))
	t.Setenv("PUBLIC_BASE_URL", "https://shop.example.com")
	t.Setenv("FRONTEND_URL", "https://shop.example.com")

	t.Setenv("GATEWAY_ENV", "test")
	cfg, err := LoadGateway()
	if err != nil {
		t.Fatalf("LoadGateway: %v", err)
	}
	if cfg.GatewayURL != testGatewayURL {
		t.Errorf("test env paired with %s", cfg.GatewayURL)
	}

	t.Setenv("GATEWAY_ENV", "production")
	cfg, err = LoadGateway()
	if err != nil {
		t.Fatalf("LoadGateway: %v", err)
	}
	if cfg.GatewayURL != productionGatewayURL {
		t.Errorf("production env paired with %s", cfg.GatewayURL)
	}
}

func TestCallbackURLs(t *testing.T) {
	cfg := validConfig()
	cfg.PublicBaseURL = "https://shop.example.com/"
	if got := cfg.NotifyURL(); got != "https://shop.example.com/payment/notify" {
		t.Errorf("NotifyURL = %s", got)
	}
	if got := cfg.ReturnURL(); got != "https://shop.example.com/payment/return" {
		t.Errorf("ReturnURL = %s", got)
	}
}
