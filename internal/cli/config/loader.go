package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// loggerKey is used to store the logger in context.
type loggerKey struct{}

// EnvPrefix is the prefix of configuration environment variables. A double
// underscore separates nesting levels: SQLRUNNER_AUTH__HOST sets auth.host.
const EnvPrefix = "SQLRUNNER_"

// delim separates nesting levels of koanf keys. Map keys in the config
// file are relation prefixes and regexes, which contain dots.
const delim = "::"

// Flags that select how configuration is loaded rather than setting a key.
var loaderFlags = map[string]bool{
	"config":   true,
	"env-file": true,
	"database": true,
	"dot":      true,
	"no-save":  true,
}

var (
	configFileUsed string
	currentConfig  *Config
)

// ResetConfig clears the loaded configuration. Used for testing.
func ResetConfig() {
	configFileUsed = ""
	currentConfig = nil
}

func defaults() map[string]any {
	return map[string]any{
		"sql_path":          DefaultSQLPath,
		"database_type":     "postgres",
		"explicit_database": false,
		"deps_schema":       DefaultDepsSchema,
		"deps_cache":        map[string]any{"type": DefaultCacheType},
		"state_path":        DefaultStateFile,
		"verbose":           false,
		"output":            DefaultOutput,
	}
}

// LoadConfig loads configuration from file, environment variables, and flags.
// Precedence (highest to lowest): flags > env vars > config file > defaults.
//
// The --database flag replaces auth.database and is appended to sql_path.
// An explicitly given config file must exist; the default one is optional.
func LoadConfig(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(delim)

	if flags != nil {
		if envFile, _ := flags.GetString("env-file"); envFile != "" {
			if err := godotenv.Load(envFile); err != nil {
				return nil, fmt.Errorf("error reading env file %s: %w", envFile, err)
			}
		}
	}

	// 1. Defaults
	if err := k.Load(confmap.Provider(defaults(), delim), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Config file
	explicit := cfgFile != ""
	if !explicit {
		cfgFile = DefaultConfigFile
	}
	configFileUsed = ""
	if _, err := os.Stat(cfgFile); err == nil {
		if err := k.Load(file.Provider(cfgFile), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", cfgFile, err)
		}
		configFileUsed = cfgFile
	} else if explicit || !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("config file %s: %w", cfgFile, err)
	}

	// 3. Environment variables
	if err := k.Load(env.Provider(EnvPrefix, delim, func(s string) string {
		key := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
		return strings.ReplaceAll(key, "__", delim)
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// 4. Explicitly set flags
	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, delim, k, func(f *pflag.Flag) (string, any) {
			if !f.Changed || loaderFlags[f.Name] {
				return "", nil
			}
			return strings.ReplaceAll(f.Name, "-", "_"), posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	// 5. Unmarshal
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{
		DecoderConfig: &mapstructure.DecoderConfig{
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToSliceHookFunc(","),
				mapstructure.TextUnmarshallerHookFunc(),
			),
			Result:           &cfg,
			WeaklyTypedInput: true,
		},
	}); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if flags != nil && flags.Changed("database") {
		if db, _ := flags.GetString("database"); db != "" {
			cfg.Auth.Database = db
			cfg.SQLPath += db
		}
	}

	if cfg.DepsCache.Type == "filesystem" && cfg.DepsCache.Location == "" {
		cfg.DepsCache.Location = DefaultCacheFile
	}
	cfg.Auth.Password = os.ExpandEnv(cfg.Auth.Password)
	cfg.Auth.Username = os.ExpandEnv(cfg.Auth.Username)
	cfg.Auth.Host = os.ExpandEnv(cfg.Auth.Host)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	currentConfig = &cfg
	return &cfg, nil
}

// GetConfigFileUsed returns the path to the config file being used, if any.
func GetConfigFileUsed() string {
	return configFileUsed
}

// GetCurrentConfig returns the configuration loaded last.
func GetCurrentConfig() *Config {
	return currentConfig
}

// WithLogger stores logger in ctx.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// GetLogger retrieves the logger from the command context.
func GetLogger(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
		return l
	}
	return slog.New(slog.DiscardHandler)
}
