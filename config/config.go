package config

import (
	"errors"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Host        string        `yaml:"host"`
	Port        uint          `yaml:"port"`
	Addr        string        `yaml:"-"`
	DBUrl       string        `yaml:"db_url"`
	TokenSecret string        `yaml:"token_secret"`
	TokenTTL    time.Duration `yaml:"token_ttl"`
	ResetTTL    time.Duration `yaml:"reset_ttl"`
	PublicURL   string        `yaml:"public_url"`
	SubmitRate  float64       `yaml:"submit_rate"`
	SubmitBurst int           `yaml:"submit_burst"`
	Debug       bool          `yaml:"debug"`
}

func Default() Config {
	return Config{
		Host:        "0.0.0.0",
		Port:        8080,
		DBUrl:       "formify.sqlite",
		TokenTTL:    2 * time.Minute,
		ResetTTL:    15 * time.Minute,
		SubmitRate:  1,
		SubmitBurst: 5,
	}
}

// BindFlags registers one flag per setting, writing into cfg.
func (cfg *Config) BindFlags(fs *pflag.FlagSet) {
	def := Default()
	fs.StringVar(&cfg.Host, "host", def.Host, "listen host name")
	fs.UintVar(&cfg.Port, "port", def.Port, "listen port number")
	fs.StringVar(&cfg.DBUrl, "db-url", def.DBUrl, "path to SQLite3 DB file")
	fs.StringVar(&cfg.TokenSecret, "token-secret", def.TokenSecret, "secret key for token encryption and decryption")
	fs.DurationVar(&cfg.TokenTTL, "token-ttl", def.TokenTTL, "access token TTL")
	fs.DurationVar(&cfg.ResetTTL, "reset-ttl", def.ResetTTL, "password reset token TTL")
	fs.StringVar(&cfg.PublicURL, "public-url", def.PublicURL, "base URL used in links sent to users (defaults to the listen address)")
	fs.Float64Var(&cfg.SubmitRate, "submit-rate", def.SubmitRate, "response submissions per second allowed per client")
	fs.IntVar(&cfg.SubmitBurst, "submit-burst", def.SubmitBurst, "response submissions burst per client")
	fs.BoolVar(&cfg.Debug, "debug", def.Debug, "log at DEBUG level")
}

// Resolve layers the settings: defaults, then the YAML file at path (if any),
// then the flags that were set explicitly on fs.
func (cfg *Config) Resolve(fs *pflag.FlagSet, path string) error {
	explicit := map[string]string{}
	fs.Visit(func(f *pflag.Flag) {
		explicit[f.Name] = f.Value.String()
	})

	*cfg = Default()
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		if err := yaml.Unmarshal(b, cfg); err != nil {
			return err
		}
	}
	for name, value := range explicit {
		if fs.Lookup(name) == nil {
			continue
		}
		if err := fs.Set(name, value); err != nil {
			return err
		}
	}

	cfg.Addr = net.JoinHostPort(cfg.Host, strconv.Itoa(int(cfg.Port)))
	return nil
}

// Validate checks the settings needed to serve requests.
func (cfg Config) Validate() error {
	if cfg.TokenSecret == "" {
		return errors.New("missing parameter --token-secret")
	}
	if cfg.SubmitRate <= 0 || cfg.SubmitBurst < 1 {
		return errors.New("--submit-rate and --submit-burst must be positive")
	}
	return nil
}

// URL is the base URL clients reach the service at.
func (cfg Config) URL() string {
	if cfg.PublicURL != "" {
		return strings.TrimSuffix(cfg.PublicURL, "/")
	}
	addr := cfg.Addr
	if strings.HasPrefix(addr, "0.0.0.0:") {
		addr = "localhost" + strings.TrimPrefix(addr, "0.0.0.0")
	}
	return "http://" + addr
}
