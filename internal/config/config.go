// Package config holds all GENESIS configuration. Configuration is read once
// at startup from an optional YAML file, overlaid with environment variables,
// and passed down explicitly to component constructors.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all GENESIS configuration.
type Config struct {
	// Robot connection
	Robot RobotConfig `yaml:"robot"`

	// External reasoning backend (Gemini)
	Gateway GatewayConfig `yaml:"gateway"`

	// Dialogue behavior
	Dialogue DialogueConfig `yaml:"dialogue"`

	// Data files (database, logs, memory)
	Data DataConfig `yaml:"data"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// RobotConfig configures the hardware link connection.
type RobotConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`

	// DialTimeout bounds the connection handshake.
	DialTimeout time.Duration `yaml:"dial_timeout"`

	// PollInterval is the sensor sampling cadence.
	PollInterval time.Duration `yaml:"poll_interval"`

	// HeartbeatInterval is how often connection health is checked.
	HeartbeatInterval time.Duration `yaml:"heartbeat_interval"`

	// Mock runs against an in-process simulated link instead of a robot.
	Mock bool `yaml:"mock"`
}

// GatewayConfig configures the external reasoning gateway.
type GatewayConfig struct {
	APIKey          string        `yaml:"api_key"`
	Model           string        `yaml:"model"`
	Temperature     float64       `yaml:"temperature"`
	MaxOutputTokens int           `yaml:"max_output_tokens"`
	Timeout         time.Duration `yaml:"timeout"`
}

// DialogueConfig configures orchestration behavior.
type DialogueConfig struct {
	// Personality is the persona active at startup (case-insensitive).
	Personality string `yaml:"personality"`

	// Language is the active speech language code.
	Language string `yaml:"language"`

	// Styling post-processes replies through the gateway to match persona/tone.
	Styling bool `yaml:"styling"`

	// PersonaDir holds YAML persona profiles.
	PersonaDir string `yaml:"persona_dir"`
}

// DataConfig configures on-disk state locations.
type DataConfig struct {
	Dir              string `yaml:"dir"`
	DatabaseFile     string `yaml:"database_file"`
	MemoryFile       string `yaml:"memory_file"`
	InteractionsFile string `yaml:"interactions_file"`
}

// LoggingConfig configures the zap logger built in cmd.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Robot: RobotConfig{
			Port:              9559,
			DialTimeout:       10 * time.Second,
			PollInterval:      100 * time.Millisecond,
			HeartbeatInterval: 5 * time.Second,
		},
		Gateway: GatewayConfig{
			Model:           "gemini-2.0-flash",
			Temperature:     0.75,
			MaxOutputTokens: 1024,
			Timeout:         30 * time.Second,
		},
		Dialogue: DialogueConfig{
			Personality: "genesis",
			Language:    "en-US",
			Styling:     true,
			PersonaDir:  "personas",
		},
		Data: DataConfig{
			Dir:              "data",
			DatabaseFile:     "genesis.db",
			MemoryFile:       "memory.json",
			InteractionsFile: "interactions.log",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from path (if non-empty) and applies environment
// overrides. An empty path skips the file and uses defaults plus environment.
// Callers run Validate after applying any command-line overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// applyEnvOverrides overlays environment variables on top of the file values.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("ROBOT_HOST"); v != "" {
		c.Robot.Host = v
	}
	if v := os.Getenv("ROBOT_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil && port > 0 {
			c.Robot.Port = port
		}
	}
	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		c.Gateway.APIKey = v
	}
	if v := os.Getenv("GENESIS_PERSONALITY"); v != "" {
		c.Dialogue.Personality = v
	}
	if v := os.Getenv("GENESIS_LANGUAGE"); v != "" {
		c.Dialogue.Language = v
	}
	if v := os.Getenv("GENESIS_STYLING"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Dialogue.Styling = b
		}
	}
	if v := os.Getenv("GENESIS_DATA_DIR"); v != "" {
		c.Data.Dir = v
	}
	if v := os.Getenv("GENESIS_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
}

// Validate checks settings that cannot be defaulted.
func (c *Config) Validate() error {
	if !c.Robot.Mock && c.Robot.Host == "" {
		return fmt.Errorf("robot host is required (set robot.host or ROBOT_HOST, or enable mock mode)")
	}
	if c.Robot.Port <= 0 || c.Robot.Port > 65535 {
		return fmt.Errorf("invalid robot port %d", c.Robot.Port)
	}
	if c.Robot.PollInterval <= 0 {
		return fmt.Errorf("poll interval must be positive")
	}
	if c.Robot.HeartbeatInterval <= 0 {
		return fmt.Errorf("heartbeat interval must be positive")
	}
	return nil
}

// RobotAddr returns the host:port dial target for the hardware link.
func (c *Config) RobotAddr() string {
	return fmt.Sprintf("%s:%d", c.Robot.Host, c.Robot.Port)
}

// DatabasePath returns the SQLite database location under the data dir.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Data.Dir, c.Data.DatabaseFile)
}

// MemoryPath returns the JSON context memory location.
func (c *Config) MemoryPath() string {
	return filepath.Join(c.Data.Dir, c.Data.MemoryFile)
}

// InteractionsPath returns the append-only interaction log location.
func (c *Config) InteractionsPath() string {
	return filepath.Join(c.Data.Dir, c.Data.InteractionsFile)
}

// EnsureDataDir creates the data directory if needed.
func (c *Config) EnsureDataDir() error {
	if err := os.MkdirAll(c.Data.Dir, 0o755); err != nil {
		return fmt.Errorf("failed to create data dir %s: %w", c.Data.Dir, err)
	}
	return nil
}
