package portal

import (
	"context"

	"github.com/sethvargo/go-envconfig"
)

// Config holds the environment-driven settings of the portal frontend.
type Config struct {
	APIBaseURL string `env:"PORTAL_API_URL,  default=http://localhost:8080/api"`
	Listen     string `env:"PORTAL_LISTEN,   default=:3000"`
	TokenDB    string `env:"PORTAL_TOKEN_DB, default=portal.db"`
	ViewsDir   string `env:"PORTAL_VIEWS,    default=./views"`
	Env        string `env:"PORTAL_ENV,      default=development"`
	Debug      bool   `env:"PORTAL_DEBUG,    default=false"`
}

// LoadConfig reads configuration from environment variables.
func LoadConfig(ctx context.Context) (*Config, error) {
	var cfg Config
	if err := envconfig.Process(ctx, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
