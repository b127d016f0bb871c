// Package config defines the application configuration, loaded through viper
// from config.yaml, WAFLOW_* environment variables, and CLI flag bindings.
package config

import (
	"fmt"
	"time"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

// Config holds the entire application configuration.
type Config struct {
	Logger    LoggerConfig    `mapstructure:"logger" yaml:"logger"`
	Server    ServerConfig    `mapstructure:"server" yaml:"server"`
	Browser   BrowserConfig   `mapstructure:"browser" yaml:"browser"`
	Messaging MessagingConfig `mapstructure:"messaging" yaml:"messaging"`
	Storage   StorageConfig   `mapstructure:"storage" yaml:"storage"`
}

// LoggerConfig holds the operational-log settings.
type LoggerConfig struct {
	Level       string `mapstructure:"level" yaml:"level"`
	Format      string `mapstructure:"format" yaml:"format"`
	AddSource   bool   `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int    `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int    `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool   `mapstructure:"compress" yaml:"compress"`
}

// ServerConfig configures the HTTP trigger boundary.
type ServerConfig struct {
	Addr         string        `mapstructure:"addr" yaml:"addr"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout" yaml:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`
}

// BrowserConfig holds settings for the driven Chrome instance. ProfileDir is
// the persisted user-data-dir an authenticated session survives restarts in.
type BrowserConfig struct {
	ProfileDir string   `mapstructure:"profile_dir" yaml:"profile_dir"`
	Headless   bool     `mapstructure:"headless" yaml:"headless"`
	Args       []string `mapstructure:"args" yaml:"args"`
}

// MessagingConfig tunes the per-recipient workflow.
type MessagingConfig struct {
	CountryCode string        `mapstructure:"country_code" yaml:"country_code"`
	MediaPath   string        `mapstructure:"media_path" yaml:"media_path"`
	LoadTimeout time.Duration `mapstructure:"load_timeout" yaml:"load_timeout"`
	ChatTimeout time.Duration `mapstructure:"chat_timeout" yaml:"chat_timeout"`
	// SendCooldown paces recipients so bursts do not look automated
	// to the host UI.
	SendCooldown time.Duration `mapstructure:"send_cooldown" yaml:"send_cooldown"`
}

// StorageConfig locates the durable side files.
type StorageConfig struct {
	HistoryFile        string `mapstructure:"history_file" yaml:"history_file"`
	ContactsFile       string `mapstructure:"contacts_file" yaml:"contacts_file"`
	DefaultMessageFile string `mapstructure:"default_message_file" yaml:"default_message_file"`
}

// SetDefaults initializes default values for all configuration parameters.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "waflow")
	v.SetDefault("logger.log_file", "waflow.log")
	v.SetDefault("logger.max_size", 50)
	v.SetDefault("logger.max_backups", 3)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)

	// -- Server --
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "30s")

	// -- Browser --
	v.SetDefault("browser.profile_dir", "whatsapp_session")
	v.SetDefault("browser.headless", false)

	// -- Messaging --
	v.SetDefault("messaging.country_code", "91")
	v.SetDefault("messaging.media_path", "")
	v.SetDefault("messaging.load_timeout", "60s")
	v.SetDefault("messaging.chat_timeout", "15s")
	v.SetDefault("messaging.send_cooldown", "5s")

	// -- Storage --
	v.SetDefault("storage.history_file", "history.log")
	v.SetDefault("storage.contacts_file", "contacts.csv")
	v.SetDefault("storage.default_message_file", "message.txt")
}

// NewConfigFromViper builds and validates a Config from a viper instance.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	// The profile dir is commonly configured as ~/waflow/session.
	expanded, err := homedir.Expand(cfg.Browser.ProfileDir)
	if err != nil {
		return nil, fmt.Errorf("invalid browser.profile_dir: %w", err)
	}
	cfg.Browser.ProfileDir = expanded

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// NewDefaultConfig returns a Config populated with default values.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)
	cfg, err := NewConfigFromViper(v)
	if err != nil {
		// Defaults are static and must always validate.
		panic(fmt.Sprintf("default config invalid: %v", err))
	}
	return cfg
}

// Validate checks the configuration for required fields and sane values.
func (c *Config) Validate() error {
	if c.Browser.ProfileDir == "" {
		return fmt.Errorf("browser.profile_dir is required")
	}
	if c.Messaging.CountryCode == "" {
		return fmt.Errorf("messaging.country_code is required")
	}
	if c.Messaging.LoadTimeout <= 0 {
		return fmt.Errorf("messaging.load_timeout must be a positive duration")
	}
	if c.Messaging.ChatTimeout <= 0 {
		return fmt.Errorf("messaging.chat_timeout must be a positive duration")
	}
	if c.Messaging.SendCooldown < 0 {
		return fmt.Errorf("messaging.send_cooldown must not be negative")
	}
	if c.Storage.HistoryFile == "" {
		return fmt.Errorf("storage.history_file is required")
	}
	return nil
}
