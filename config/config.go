// api/config/config.go
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config carries every knob the process needs. It is parsed once at startup
// and handed to the components that need it; nothing reads the environment
// after that.
type Config struct {
	Port     string `env:"PORT" envDefault:"8080"`
	GinMode  string `env:"GIN_MODE" envDefault:"debug"`
	FEOrigin string `env:"FE_ORIGIN"`

	DatabaseURL string `env:"DATABASE_URL"`
	MongoURL    string `env:"MONGO_URL" envDefault:"mongodb://localhost:27017"`
	MongoDBName string `env:"DB_NAME" envDefault:"portfolio"`

	JWTSecret string `env:"JWT_SECRET_KEY" envDefault:"default-secret-key"`

	// GeoLocalLabel is what loopback/private addresses resolve to. Deployments
	// behind a reverse proxy that never see real client IPs set it to
	// "Unknown" so local traffic does not pollute the country rollup.
	GeoLocalLabel string        `env:"GEO_LOCAL_LABEL" envDefault:"Local"`
	GeoAPIBaseURL string        `env:"GEO_API_BASE_URL" envDefault:"https://ipapi.co"`
	GeoTimeout    time.Duration `env:"GEO_TIMEOUT" envDefault:"5s"`
	StoreTimeout  time.Duration `env:"STORE_TIMEOUT" envDefault:"10s"`
	IngestTimeout time.Duration `env:"INGEST_TIMEOUT" envDefault:"15s"`
}

// Load parses the configuration from the environment.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config from environment: %w", err)
	}
	return cfg, nil
}
