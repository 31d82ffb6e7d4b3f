package config

// Package config handles configuration loading for solarquote.
// It supports YAML config files with environment variable overrides.

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of every environment variable override.
const EnvPrefix = "SOLARQUOTE"

// Config represents the complete application configuration.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"  yaml:"server"  json:"server"`
	Upload  UploadConfig  `mapstructure:"upload"  yaml:"upload"  json:"upload"`
	Company CompanyConfig `mapstructure:"company" yaml:"company" json:"company"`
	Chart   ChartConfig   `mapstructure:"chart"   yaml:"chart"   json:"chart"`
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging" json:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host         string        `mapstructure:"host"          yaml:"host"          json:"host"`
	Port         int           `mapstructure:"port"          yaml:"port"          json:"port"`
	CORSOrigins  []string      `mapstructure:"cors_origins"  yaml:"cors_origins"  json:"cors_origins"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"  yaml:"read_timeout"  json:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout" yaml:"write_timeout" json:"write_timeout"`

	// Rendering endpoints share a token bucket of RenderBurst requests,
	// refilled one per RenderInterval. A zero interval disables the limit.
	RenderBurst    int           `mapstructure:"render_burst"    yaml:"render_burst"    json:"render_burst"`
	RenderInterval time.Duration `mapstructure:"render_interval" yaml:"render_interval" json:"render_interval"`
}

// Addr returns the host:port listen address.
func (s ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// UploadConfig controls where roof design images are stored.
type UploadConfig struct {
	Dir               string   `mapstructure:"dir"                yaml:"dir"                json:"dir"`
	AllowedExtensions []string `mapstructure:"allowed_extensions" yaml:"allowed_extensions" json:"allowed_extensions"`
	MaxBytes          int64    `mapstructure:"max_bytes"          yaml:"max_bytes"          json:"max_bytes"`
}

// CompanyConfig is the retailer profile printed on every quote.
type CompanyConfig struct {
	Name         string          `mapstructure:"name"         yaml:"name"         json:"name"`
	TradingName  string          `mapstructure:"trading_name" yaml:"trading_name" json:"trading_name"`
	Offices      []string        `mapstructure:"offices"      yaml:"offices"      json:"offices"`
	Phone        string          `mapstructure:"phone"        yaml:"phone"        json:"phone"`
	Website      string          `mapstructure:"website"      yaml:"website"      json:"website"`
	Registration string          `mapstructure:"registration" yaml:"registration" json:"registration"`
	About        []string        `mapstructure:"about"        yaml:"about"        json:"about"`
	Signatory    SignatoryConfig `mapstructure:"signatory"    yaml:"signatory"    json:"signatory"`
}

// SignatoryConfig is the sales contact who signs the cover letter.
type SignatoryConfig struct {
	Name  string `mapstructure:"name"  yaml:"name"  json:"name"`
	Phone string `mapstructure:"phone" yaml:"phone" json:"phone"`
	Email string `mapstructure:"email" yaml:"email" json:"email"`
}

// ChartConfig holds cost comparison chart settings.
type ChartConfig struct {
	DPI          float64       `mapstructure:"dpi"           yaml:"dpi"           json:"dpi"`
	StartYear    int           `mapstructure:"start_year"    yaml:"start_year"    json:"start_year"`
	CacheTTL     time.Duration `mapstructure:"cache_ttl"     yaml:"cache_ttl"     json:"cache_ttl"` // 0 disables the PNG cache
	CacheEntries int           `mapstructure:"cache_entries" yaml:"cache_entries" json:"cache_entries"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"  yaml:"level"  json:"level"`  // "debug", "info", "warn", "error"
	Format string `mapstructure:"format" yaml:"format" json:"format"` // "text", "json" or "logfmt"
}

// Load reads the configuration from file and environment variables.
// Config file search order:
//  1. ./config/config.yaml (project root)
//  2. ~/.solarquote/config.yaml (home directory)
//  3. /etc/solarquote/config.yaml (system)
//
// Environment variables override config file values.
// Format: SOLARQUOTE_<SECTION>_<KEY>, e.g., SOLARQUOTE_SERVER_PORT
func Load() (*Config, error) {
	v := newViper()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")
	v.AddConfigPath(filepath.Join(homeDir(), ".solarquote"))
	v.AddConfigPath("/etc/solarquote")

	// Read config file (not required to exist)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	return decode(v)
}

// LoadFromFile reads configuration from a specific file path.
func LoadFromFile(path string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file %s: %w", path, err)
	}

	return decode(v)
}

// Defaults returns the configuration with no file and no environment applied.
func Defaults() *Config {
	v := viper.New()
	setDefaults(v)
	cfg, err := decode(v)
	if err != nil {
		// Defaults are static; a decode failure is a programming error.
		panic(err)
	}
	return cfg
}

func newViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	normalize(&cfg)
	return &cfg, nil
}

// setDefaults sets sensible defaults for all config values.
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 60*time.Second)
	v.SetDefault("server.render_burst", 8)
	v.SetDefault("server.render_interval", 250*time.Millisecond)

	// Upload defaults
	v.SetDefault("upload.dir", "uploads")
	v.SetDefault("upload.allowed_extensions", []string{"png", "jpg", "jpeg"})
	v.SetDefault("upload.max_bytes", 16<<20)

	// Company profile
	v.SetDefault("company.name", "CCL Energy Group Pty Ltd")
	v.SetDefault("company.trading_name", "CCL Energy Group")
	v.SetDefault("company.offices", []string{
		"BNE: U4/1645 Ipswich Rd, Rocklea QLD 4106",
		"SYD: 8 Melissa Street, Auburn NSW 2144",
	})
	v.SetDefault("company.phone", "1300 755 765")
	v.SetDefault("company.website", "www.cclenergy.com.au")
	v.SetDefault("company.registration", "ABN: 61 160 504 763")
	v.SetDefault("company.about", []string{
		"CCL Energy Group is an Australian-owned solar retailer dedicated to",
		"providing excellent residential and commercial solar solutions.",
		"We are proud to help Australian households reduce electricity bills",
		"and carbon footprints.",
	})
	v.SetDefault("company.signatory.name", "Marco Lin")
	v.SetDefault("company.signatory.phone", "+61 0405 411 777")
	v.SetDefault("company.signatory.email", "Marco@cclenergy.com.au")

	// Chart defaults
	v.SetDefault("chart.dpi", 300)
	v.SetDefault("chart.start_year", 2025)
	v.SetDefault("chart.cache_ttl", time.Duration(0))
	v.SetDefault("chart.cache_entries", 128)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
}

// normalize tidies values that arrive from env vars or hand-written files.
func normalize(cfg *Config) {
	exts := cfg.Upload.AllowedExtensions[:0]
	for _, e := range cfg.Upload.AllowedExtensions {
		e = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(e), "."))
		if e != "" {
			exts = append(exts, e)
		}
	}
	cfg.Upload.AllowedExtensions = exts
	cfg.Logging.Level = strings.ToLower(cfg.Logging.Level)
	cfg.Logging.Format = strings.ToLower(cfg.Logging.Format)
}

// homeDir returns the user's home directory.
func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
