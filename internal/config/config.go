package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds application configuration loaded from environment variables.
// The same struct serves all three services; each service reads only the
// fields it needs.
type Config struct {
	Port     int    `envconfig:"PORT" default:"8080"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
	Version  string `envconfig:"VERSION" default:"dev"`

	SecretKey       string `envconfig:"SECRET_KEY" required:"true"`
	TokenTTLMinutes int    `envconfig:"TOKEN_TTL_MINUTES" default:"60"`
	BcryptCost      int    `envconfig:"BCRYPT_COST" default:"12"`

	DatabaseURL   string `envconfig:"DATABASE_URL" default:""`
	MongoURI      string `envconfig:"MONGO_URI" default:"mongodb://localhost:27017"`
	MongoDatabase string `envconfig:"MONGO_DATABASE" default:"taskhub"`

	UserServiceURL string        `envconfig:"USER_SERVICE_URL" default:"http://user_service:8001"`
	TeamServiceURL string        `envconfig:"TEAM_SERVICE_URL" default:"http://team_service:8002"`
	TaskServiceURL string        `envconfig:"TASK_SERVICE_URL" default:"http://task_service:8003"`
	PeerTimeout    time.Duration `envconfig:"PEER_TIMEOUT" default:"5s"`

	UploadDir string `envconfig:"UPLOAD_DIR" default:"task_files"`

	BootstrapAdminUsername string `envconfig:"BOOTSTRAP_ADMIN_USERNAME" default:"admin"`
	BootstrapAdminEmail    string `envconfig:"BOOTSTRAP_ADMIN_EMAIL" default:"admin@example.com"`
	BootstrapAdminPassword string `envconfig:"BOOTSTRAP_ADMIN_PASSWORD" default:""`

	SentryDSN string `envconfig:"SENTRY_DSN" default:""`
}

// TokenTTL returns the lifetime of issued access tokens.
func (c *Config) TokenTTL() time.Duration {
	return time.Duration(c.TokenTTLMinutes) * time.Minute
}

// Load reads an optional .env file and then environment variables into a
// Config struct. Variables already present in the environment win over the
// file.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("reading .env: %w", err)
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if cfg.PeerTimeout <= 0 {
		return nil, fmt.Errorf("PEER_TIMEOUT must be positive, got %s", cfg.PeerTimeout)
	}
	return &cfg, nil
}
