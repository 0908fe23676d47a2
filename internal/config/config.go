package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds runtime configuration values for the API service.
type Config struct {
	AppName        string
	AppEnv         string
	AppPort        string
	DatabaseURL    string
	RedisURL       string
	NATSURL        string
	GatewaySubject string
	JWTSecret      string
	ClaimTTL       time.Duration
	EffectTimeout  time.Duration
	QueueCacheTTL  time.Duration
	CardCacheTTL   time.Duration
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("GATE")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "Gatekeeper API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("gateway.subject", "gatekeeper.gateway")
	v.SetDefault("claim.ttl", "15m")
	v.SetDefault("effect.timeout", "5s")
	v.SetDefault("queue.cache_ttl", "30s")
	v.SetDefault("card.cache_ttl", "2m")

	durations := map[string]*time.Duration{
		"claim.ttl":       new(time.Duration),
		"effect.timeout":  new(time.Duration),
		"queue.cache_ttl": new(time.Duration),
		"card.cache_ttl":  new(time.Duration),
	}

	for key, dst := range durations {
		raw := v.GetString(key)
		parsed, err := time.ParseDuration(raw)
		if err != nil {
			return Config{}, fmt.Errorf("invalid duration for %s: %w", key, err)
		}
		*dst = parsed
	}

	cfg := Config{
		AppName:        v.GetString("app.name"),
		AppEnv:         v.GetString("app.env"),
		AppPort:        v.GetString("app.port"),
		DatabaseURL:    v.GetString("database.url"),
		RedisURL:       v.GetString("redis.url"),
		NATSURL:        v.GetString("nats.url"),
		GatewaySubject: v.GetString("gateway.subject"),
		JWTSecret:      v.GetString("jwt.secret"),
		ClaimTTL:       *durations["claim.ttl"],
		EffectTimeout:  *durations["effect.timeout"],
		QueueCacheTTL:  *durations["queue.cache_ttl"],
		CardCacheTTL:   *durations["card.cache_ttl"],
	}

	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("jwt secret must be provided")
	}

	return cfg, nil
}
