// Package config resolves billr settings from an optional .env file, a YAML
// config file and BILLR_* environment variables, in increasing priority.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"github.com/sadopc/billr/internal/logging"
	"github.com/spf13/viper"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

type Config struct {
	Storage  Storage `mapstructure:"storage"`
	Server   Server  `mapstructure:"server"`
	Remote   Remote  `mapstructure:"remote"`
	Export   Export  `mapstructure:"export"`
	Log      Log     `mapstructure:"log"`
	Location string  `mapstructure:"location"`

	// ConfigFile is the file that was read, empty when none was found.
	ConfigFile string `mapstructure:"-"`
	loc        *time.Location
}

type Storage struct {
	Driver string `mapstructure:"driver"`
	Path   string `mapstructure:"path"`
	DSN    string `mapstructure:"dsn"`
}

type Server struct {
	Addr        string   `mapstructure:"addr"`
	CORSOrigins []string `mapstructure:"cors_origins"`
}

type Remote struct {
	URL          string        `mapstructure:"url"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
	Timeout      time.Duration `mapstructure:"timeout"`
}

type Export struct {
	Dir string `mapstructure:"dir"`
}

type Log struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
}

// LoadOptions points Load at explicit files. Zero values use the defaults:
// ./.env and $XDG_CONFIG_HOME/billr/billr.yaml.
type LoadOptions struct {
	ConfigFile string
	EnvFile    string
}

// Dir returns the billr configuration directory.
func Dir() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "billr"), nil
	}
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("locate config dir: %w", err)
	}
	return filepath.Join(base, "billr"), nil
}

// Load reads and validates the configuration.
func Load(opts LoadOptions) (*Config, error) {
	envFile := opts.EnvFile
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load %s: %w", envFile, err)
	}

	dir, err := Dir()
	if err != nil {
		return nil, err
	}

	v := viper.New()
	setDefaults(v, dir)
	v.SetEnvPrefix("billr")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", opts.ConfigFile, err)
		}
	} else {
		v.SetConfigName("billr")
		v.SetConfigType("yaml")
		v.AddConfigPath(dir)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.ConfigFile = v.ConfigFileUsed()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper, dir string) {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	v.SetDefault("storage.driver", DriverSQLite)
	v.SetDefault("storage.path", filepath.Join(dir, "billr.db"))
	v.SetDefault("storage.dsn", "")
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.cors_origins", []string{"http://localhost:3000"})
	v.SetDefault("remote.url", "")
	v.SetDefault("remote.poll_interval", 30*time.Second)
	v.SetDefault("remote.timeout", 10*time.Second)
	v.SetDefault("export.dir", home)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", filepath.Join(dir, "billr.log"))
	v.SetDefault("location", "Local")
}

func (c *Config) validate() error {
	c.Storage.Driver = strings.ToLower(strings.TrimSpace(c.Storage.Driver))
	switch c.Storage.Driver {
	case DriverSQLite:
		if c.Storage.Path == "" {
			return errors.New("config: storage.path must be set for sqlite")
		}
	case DriverPostgres:
		if c.Storage.DSN == "" {
			return errors.New("config: storage.dsn must be set for postgres")
		}
	default:
		return fmt.Errorf("config: unknown storage.driver %q", c.Storage.Driver)
	}

	if c.Remote.URL != "" {
		u, err := url.Parse(c.Remote.URL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("config: remote.url %q must be an http(s) URL", c.Remote.URL)
		}
	}
	if c.Remote.PollInterval <= 0 {
		return errors.New("config: remote.poll_interval must be positive")
	}
	if c.Remote.Timeout <= 0 {
		return errors.New("config: remote.timeout must be positive")
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("config: log.level: %w", err)
	}

	loc, err := time.LoadLocation(c.Location)
	if err != nil {
		return fmt.Errorf("config: location: %w", err)
	}
	c.loc = loc
	return nil
}

// Loc returns the zone for calendar dates.
func (c *Config) Loc() *time.Location {
	if c.loc == nil {
		return time.Local
	}
	return c.loc
}
