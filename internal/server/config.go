package server

import (
	"time"

	"github.com/caarlos0/env/v11"

	appenv "github.com/nerixyz/go-eventsub/internal/env"
)

type RedisConfig struct {
	URL string `env:"URL"`
}

type DatabaseConfig struct {
	URL string `env:"URL"`
}

type RateLimitConfig struct {
	PerSecond float64 `env:"PER_SECOND" envDefault:"20"`
	Burst     int     `env:"BURST" envDefault:"40"`
}

type Config struct {
	Port string             `env:"PORT" envDefault:"8080"`
	Env  appenv.Environment `env:"ENV" envDefault:"development"`

	// Secret keys the webhook HMAC. It must match the secret registered
	// with the sender when the subscription was created.
	Secret string `env:"EVENTSUB_SECRET,required"`

	// ReplayBackend selects the message-id claim store: memory, redis,
	// or postgres. When empty the environment decides: redis in
	// production, memory otherwise.
	ReplayBackend string        `env:"REPLAY_BACKEND"`
	ClaimTTL      time.Duration `env:"REPLAY_CLAIM_TTL" envDefault:"15m"`

	Redis     RedisConfig     `envPrefix:"REDIS_"`
	Database  DatabaseConfig  `envPrefix:"DATABASE_"`
	RateLimit RateLimitConfig `envPrefix:"RATE_LIMIT_"`
}

func ReadConfig() (Config, error) {
	return env.ParseAs[Config]()
}
