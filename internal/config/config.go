package config

import (
	"os"
	"strings"
)

// Error marks a fatal, non-retryable configuration problem. The reason never
// contains secret material, only field names and lengths.
type Error struct {
	Field  string
	Reason string
}

func (e *Error) Error() string {
	return "config: " + e.Field + ": " + e.Reason
}

type Environment string

const (
	EnvTest       Environment = "test"
	EnvProduction Environment = "production"
)

// MPG endpoints are paired with credentials per environment. Using test
// credentials against the production host (or the reverse) is the most common
// deployment mistake, so the pairing is hardwired here.
const (
	testGatewayURL       = "https://ccore.newebpay.com/MPG/mpg_gateway"
	productionGatewayURL = "https://core.newebpay.com/MPG/mpg_gateway"
)

const (
	hashKeyLen = 32
	hashIVLen  = 16
)

// GatewayConfig is loaded once at startup and passed by reference into the
// codec, builder and processors. No package-level state.
type GatewayConfig struct {
	MerchantID string
	// HashKey and HashIV are raw UTF-8 secrets, used byte-for-byte by the
	// cipher. They are never base64-decoded; the gateway protocol expects
	// the literal characters.
	HashKey       string
	HashIV        string
	Env           Environment
	GatewayURL    string
	PublicBaseURL string
	FrontendURL   string
}

// NotifyURL is the server-to-server webhook target the gateway calls.
func (c *GatewayConfig) NotifyURL() string {
	return strings.TrimRight(c.PublicBaseURL, "/") + "/payment/notify"
}

// ReturnURL is the browser redirect target the gateway sends shoppers back to.
func (c *GatewayConfig) ReturnURL() string {
	return strings.TrimRight(c.PublicBaseURL, "/") + "/payment/return"
}

func (c *GatewayConfig) Validate() error {
	if c.MerchantID == "" {
		return &Error{Field: "MERCHANT_ID", Reason: "not set"}
	}
	if len(c.HashKey) != hashKeyLen {
		return &Error{Field: "HASH_KEY", Reason: "must be exactly 32 bytes"}
	}
	if len(c.HashIV) != hashIVLen {
		return &Error{Field: "HASH_IV", Reason: "must be exactly 16 bytes"}
	}
	switch c.Env {
	case EnvTest, EnvProduction:
	default:
		return &Error{Field: "GATEWAY_ENV", Reason: "must be test or production"}
	}
	if c.GatewayURL == "" {
		return &Error{Field: "GATEWAY_ENV", Reason: "no gateway URL for environment"}
	}
	if c.PublicBaseURL == "" {
		return &Error{Field: "PUBLIC_BASE_URL", Reason: "not set"}
	}
	if c.FrontendURL == "" {
		return &Error{Field: "FRONTEND_URL", Reason: "not set"}
	}
	return nil
}

// LoadGateway builds the gateway configuration from the environment and
// validates it. Callers treat any error as fatal.
func LoadGateway() (*GatewayConfig, error) {
	env := Environment(os.Getenv("GATEWAY_ENV"))
	if env == "" {
		env = EnvTest
	}

	cfg := &GatewayConfig{
		MerchantID:    os.Getenv("MERCHANT_ID"),
		HashKey:       os.Getenv("HASH_KEY"),
		HashIV:        os.Getenv("HASH_IV"),
		Env:           env,
		PublicBaseURL: os.Getenv("PUBLIC_BASE_URL"),
		FrontendURL:   os.Getenv("FRONTEND_URL"),
	}

	switch env {
	case EnvTest:
		cfg.GatewayURL = testGatewayURL
	case EnvProduction:
		cfg.GatewayURL = productionGatewayURL
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
