package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"go.uber.org/zap"
)

// Config holds the project config values
type Config struct {
	URL            string        `envconfig:"DB_URI" required:"true"`
	DatabaseName   string        `envconfig:"DB_NAME" default:"interviews"`
	BaseURL        string        `envconfig:"BASE_URL"`
	Port           string        `envconfig:"PORT" default:"8080"`
	JWTSecret      string        `envconfig:"JWT_SECRET" required:"true"`
	TokenTTL       time.Duration `envconfig:"TOKEN_TTL" default:"24h"`
	Environment    string        `envconfig:"ENVIRONMENT" default:"local"`
	QueryTimeout   time.Duration `envconfig:"QUERY_TIMEOUT" default:"10s"`
	AuditSchedule  string        `envconfig:"CHAT_AUDIT_SCHEDULE" default:"@hourly"`
	AllowedOrigins []string      `envconfig:"WS_ALLOWED_ORIGINS"`
}

// New sets up all config related services. A .env file is honoured when present,
// real environment variables take precedence over it.
func New() (*Config, error) {
	_ = godotenv.Load()

	var c Config
	if err := envconfig.Process("", &c); err != nil {
		return nil, fmt.Errorf("failed to process env config: %w", err)
	}

	//setup zap logger and replace default logger
	logger, err := setLogger(c.Environment)
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}
	_ = zap.ReplaceGlobals(logger)

	return &c, nil
}
