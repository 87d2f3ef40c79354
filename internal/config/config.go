package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/oshokin/alarm-scheduler/internal/logger"
)

// Config holds the settings shared by the scheduler server and the control client.
type Config struct {
	// GRPCAddress is the address the gRPC server listens on and the client dials.
	GRPCAddress string `yaml:"grpc_addr" mapstructure:"grpc_addr"`
	// HTTPAddress is the address of the REST front door; empty disables it.
	HTTPAddress string `yaml:"http_addr,omitempty" mapstructure:"http_addr"`
	// JournalPath is the SQLite event journal file; empty disables it.
	JournalPath string `yaml:"journal_path,omitempty" mapstructure:"journal_path"`
	// LogLevel is the minimum level written to the log.
	LogLevel string `yaml:"log_level" mapstructure:"log_level"`
	// LogFormat is either console or json.
	LogFormat string `yaml:"log_format" mapstructure:"log_format"`
	// DisplayInterval is the period between two announcements of a display worker.
	DisplayInterval time.Duration `yaml:"display_interval" mapstructure:"display_interval"`
	// Timeout bounds client RPC calls and server shutdown.
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`
	// MaxMessageLength is the longest accepted alarm message, in characters.
	MaxMessageLength int `yaml:"max_message_length" mapstructure:"max_message_length"`
}

const (
	// DefaultConfigFilename is the default filename for settings.
	DefaultConfigFilename = "alarm-scheduler.yaml"

	// DefaultGRPCAddress is the default gRPC listen and dial address.
	DefaultGRPCAddress = "127.0.0.1:50061"

	// DefaultDisplayInterval is the default display worker period.
	DefaultDisplayInterval = 5 * time.Second

	// DefaultMaxMessageLength is the default message limit.
	DefaultMaxMessageLength = 64

	// DefaultLogLevel is the default logging level.
	DefaultLogLevel = "info"

	// DefaultTimeout is the default duration for network operations.
	DefaultTimeout = 5 * time.Second

	// DefaultFilePermissions is the default file permission for config and journal files.
	DefaultFilePermissions = 0o600

	// DefaultDirPermissions is used when a parent directory has to be created.
	DefaultDirPermissions = 0o750
)

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// errInvalidSetting wraps every validation failure.
	errInvalidSetting = errors.New("invalid setting")
)

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := new(Config)

	// Defaults always validate.
	_ = Validate(cfg)

	return cfg
}

// Load reads configuration from the provided path and validates it.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigFilename
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(contents, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// LoadOrDefault reads the file at path, or returns Default when it does not exist.
func LoadOrDefault(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigFilename
	}

	cfg, err := Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}

	return cfg, err
}

// Overlay copies the keys set in v (flags, ALARM_SCHEDULER_* variables) over
// cfg and validates the result.
func Overlay(cfg *Config, v *viper.Viper) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if v.IsSet("grpc_addr") {
		cfg.GRPCAddress = v.GetString("grpc_addr")
	}

	if v.IsSet("http_addr") {
		cfg.HTTPAddress = v.GetString("http_addr")
	}

	if v.IsSet("journal_path") {
		cfg.JournalPath = v.GetString("journal_path")
	}

	if v.IsSet("log_level") {
		cfg.LogLevel = v.GetString("log_level")
	}

	if v.IsSet("log_format") {
		cfg.LogFormat = v.GetString("log_format")
	}

	if v.IsSet("display_interval") {
		cfg.DisplayInterval = v.GetDuration("display_interval")
	}

	if v.IsSet("timeout") {
		cfg.Timeout = v.GetDuration("timeout")
	}

	if v.IsSet("max_message_length") {
		cfg.MaxMessageLength = v.GetInt("max_message_length")
	}

	return Validate(cfg)
}

// Save writes the configuration to the provided path.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultConfigFilename
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	// Restrict permissions.
	if err := os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Validate fills defaults and checks the provided settings.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if cfg.GRPCAddress == "" {
		cfg.GRPCAddress = DefaultGRPCAddress
	}

	if _, err := net.ResolveTCPAddr("tcp", cfg.GRPCAddress); err != nil {
		return fmt.Errorf("%w: grpc_addr: %w", errInvalidSetting, err)
	}

	if cfg.HTTPAddress != "" {
		if _, err := net.ResolveTCPAddr("tcp", cfg.HTTPAddress); err != nil {
			return fmt.Errorf("%w: http_addr: %w", errInvalidSetting, err)
		}
	}

	switch {
	case cfg.DisplayInterval == 0:
		cfg.DisplayInterval = DefaultDisplayInterval
	case cfg.DisplayInterval < 0:
		return fmt.Errorf("%w: display_interval must be positive", errInvalidSetting)
	}

	switch {
	case cfg.MaxMessageLength == 0:
		cfg.MaxMessageLength = DefaultMaxMessageLength
	case cfg.MaxMessageLength < 0:
		return fmt.Errorf("%w: max_message_length must be positive", errInvalidSetting)
	}

	// Set default timeout if not specified
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	if cfg.LogLevel == "" {
		cfg.LogLevel = DefaultLogLevel
	}

	if _, ok := logger.ParseLogLevel(cfg.LogLevel); !ok {
		return fmt.Errorf("%w: unknown log_level %q", errInvalidSetting, cfg.LogLevel)
	}

	format, ok := logger.ParseFormat(cfg.LogFormat)
	if !ok {
		return fmt.Errorf("%w: unknown log_format %q", errInvalidSetting, cfg.LogFormat)
	}

	cfg.LogFormat = string(format)

	return nil
}
