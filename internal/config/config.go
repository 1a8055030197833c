package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("invalid config")

// NavServer holds all configuration for the navigation server.
type NavServer struct {
	LogLevel       string `yaml:"log_level"` // debug, info, warn, error
	MetricsAddress string `yaml:"metrics_address"`

	// ScenePath points at the scene YAML; VOXPATH_SCENE overrides it.
	ScenePath string `yaml:"scene_path"`

	Database    DatabaseConfig `yaml:"database"`
	Volume      Volume         `yaml:"volume"`
	Pathfinding Pathfinding    `yaml:"pathfinding"`
	Simulation  Simulation     `yaml:"simulation"`
}

// DatabaseConfig holds PostgreSQL connection parameters. Path statistics
// are only recorded when Enabled is set.
type DatabaseConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
	SSLMode  string `yaml:"sslmode"`

	// Retention is how long recorded path statistics are kept.
	Retention time.Duration `yaml:"retention"`
}

// DSN returns the PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

// Simulation drives scene movers and patrolling agents.
type Simulation struct {
	Enabled      bool          `yaml:"enabled"`
	TickInterval time.Duration `yaml:"tick_interval"`
	// RequestInterval is how often each idle agent asks for a new path.
	RequestInterval time.Duration `yaml:"request_interval"`
}

// DefaultNavServer returns NavServer config with sensible defaults.
func DefaultNavServer() NavServer {
	return NavServer{
		LogLevel:       "info",
		MetricsAddress: ":9464",
		ScenePath:      "config/scene.yaml",
		Database: DatabaseConfig{
			Host:      "127.0.0.1",
			Port:      5432,
			User:      "voxpath",
			Password:  "voxpath",
			DBName:    "voxpath",
			SSLMode:   "disable",
			Retention: 24 * time.Hour,
		},
		Volume:      DefaultVolume(),
		Pathfinding: DefaultPathfinding(),
		Simulation: Simulation{
			Enabled:         true,
			TickInterval:    100 * time.Millisecond,
			RequestInterval: 2 * time.Second,
		},
	}
}

// LoadNavServer loads navigation server config from a YAML file.
// If the file doesn't exist, returns defaults.
func LoadNavServer(path string) (NavServer, error) {
	cfg := DefaultNavServer()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			slog.Warn("config file not found, using defaults", "path", path)
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate reports every problem in the config at once.
func (c NavServer) Validate() error {
	var err error
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		err = multierr.Append(err, fmt.Errorf("unknown log level %q", c.LogLevel))
	}
	if c.Database.Enabled && c.Database.Retention < 0 {
		err = multierr.Append(err, errors.New("database retention must not be negative"))
	}
	if c.Simulation.Enabled && (c.Simulation.TickInterval <= 0 || c.Simulation.RequestInterval <= 0) {
		err = multierr.Append(err, errors.New("simulation intervals must be positive"))
	}
	err = multierr.Append(err, c.Volume.validate())
	err = multierr.Append(err, c.Pathfinding.validate())

	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}
