// Package config loads engine configuration from a YAML file, environment
// variables and command-line flags, in that order of precedence.
package config

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// envPrefix namespaces the environment variables the engine reads, e.g.
// MEMODECK_ADDR or MEMODECK_DB_PATH.
const envPrefix = "MEMODECK_"

// Config holds the runtime settings of the engine.
type Config struct {
	// Addr is the host:port the HTTP adapter listens on.
	Addr string `koanf:"addr" validate:"required,hostname_port"`
	// DBPath is the SQLite database file.
	DBPath string `koanf:"db_path" validate:"required"`
	// NewCardsPerSession caps how many new cards a learn-new session
	// introduces when the caller does not pass a limit.
	NewCardsPerSession int `koanf:"new_cards_per_session" validate:"gte=1,lte=500"`
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `koanf:"log_level" validate:"oneof=debug info warn error"`
}

// Flags returns the flag set the engine understands. The caller parses it and
// hands it back to Load.
func Flags() *pflag.FlagSet {
	f := pflag.NewFlagSet("memodeck", pflag.ContinueOnError)
	f.String("config", "", "Path to a YAML config file")
	f.String("addr", "localhost:8080", "Address for the HTTP server to listen on")
	f.String("db-path", "memodeck.db", "Path to the SQLite database file")
	f.Int("new-cards-per-session", 20, "Default cap on new cards per learn-new session")
	f.String("log-level", "info", "Log level: debug, info, warn or error")
	return f
}

// Load layers configuration sources: the YAML file named by --config (if
// any), then MEMODECK_* environment variables, then explicit flags. The
// result is validated before being returned.
func Load(flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if path, _ := flags.GetString("config"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", path, err)
		}
	}

	err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, envPrefix))
	}), nil)
	if err != nil {
		return nil, fmt.Errorf("loading environment: %w", err)
	}

	// Flags win over file and environment; unset flags only fill gaps. Flag
	// names use dashes, koanf keys use underscores.
	flagProvider := posflag.ProviderWithValue(flags, ".", k, func(key, value string) (string, interface{}) {
		return strings.ReplaceAll(key, "-", "_"), value
	})
	if err := k.Load(flagProvider, nil); err != nil {
		return nil, fmt.Errorf("loading flags: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadFromArgs parses the given command-line arguments and loads the
// configuration. It is the entrypoint main uses.
func LoadFromArgs(args []string) (*Config, error) {
	flags := Flags()
	if err := flags.Parse(args); err != nil {
		return nil, fmt.Errorf("parsing flags: %w", err)
	}
	return Load(flags)
}
