package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	EnvPrefix           = "ARBSCOPE"
	DefaultBaseToken    = "0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2"
	DefaultViewContract = "0x416355755f32b2710ce38725ed0fa102ce7d07e6"
)

// Engine holds settings shared by every command that evaluates routes.
type Engine struct {
	DBPath         string
	BaseToken      string
	StartAmount    string
	FeePercent     string
	Workers        int
	Out            string
	PGDSN          string
	ReportMisses   bool
	ReportNotReady bool
	SkipUnchanged  bool
	DedupeSize     int
	LogLevel       string
}

// Config holds configuration for the run command.
type Config struct {
	Engine
	RPCURL        string
	WSURL         string
	BatchSize     int
	ViewContract  string
	Events        string
	QueueSize     int
	MaxRetries    int
	RetryBackoff  time.Duration
	ResolveTokens bool
	SweepOnStart  bool
	MetricsAddr   string
	Checkpoint    string
}

// Load merges .env, config file, environment variables, and flags into Config.
func Load(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	v, err := newViper(cfgFile, flags, func(v *viper.Viper) {
		v.SetDefault("batch-size", 800)
		v.SetDefault("view-contract", DefaultViewContract)
		v.SetDefault("events", "sync")
		v.SetDefault("queue-size", 1024)
		v.SetDefault("max-retries", 3)
		v.SetDefault("retry-backoff", 500*time.Millisecond)
		v.SetDefault("resolve-tokens", false)
		v.SetDefault("sweep-on-start", true)
	})
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		Engine:        engineFrom(v),
		RPCURL:        v.GetString("rpc"),
		WSURL:         v.GetString("ws"),
		BatchSize:     v.GetInt("batch-size"),
		ViewContract:  v.GetString("view-contract"),
		Events:        v.GetString("events"),
		QueueSize:     v.GetInt("queue-size"),
		MaxRetries:    v.GetInt("max-retries"),
		RetryBackoff:  v.GetDuration("retry-backoff"),
		ResolveTokens: v.GetBool("resolve-tokens"),
		SweepOnStart:  v.GetBool("sweep-on-start"),
		MetricsAddr:   v.GetString("metrics-addr"),
		Checkpoint:    v.GetString("checkpoint"),
	}

	return cfg, nil
}

func newViper(cfgFile string, flags *pflag.FlagSet, defaults func(*viper.Viper)) (*viper.Viper, error) {
	if err := loadDotEnv(flags); err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("db", "./defi.db")
	v.SetDefault("base-token", DefaultBaseToken)
	v.SetDefault("start-amount", "1")
	v.SetDefault("fee-percent", "0.5")
	v.SetDefault("workers", 0)
	v.SetDefault("out", "./data/arbitrage.jsonl")
	v.SetDefault("dedupe-size", 4096)
	v.SetDefault("log-level", "info")
	if defaults != nil {
		defaults(v)
	}

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	return v, nil
}

func engineFrom(v *viper.Viper) Engine {
	return Engine{
		DBPath:         v.GetString("db"),
		BaseToken:      v.GetString("base-token"),
		StartAmount:    v.GetString("start-amount"),
		FeePercent:     v.GetString("fee-percent"),
		Workers:        v.GetInt("workers"),
		Out:            v.GetString("out"),
		PGDSN:          v.GetString("pg-dsn"),
		ReportMisses:   v.GetBool("report-misses"),
		ReportNotReady: v.GetBool("report-not-ready"),
		SkipUnchanged:  v.GetBool("skip-unchanged"),
		DedupeSize:     v.GetInt("dedupe-size"),
		LogLevel:       v.GetString("log-level"),
	}
}

// loadDotEnv loads --env-file (default .env) into the process environment.
// Existing variables win and a missing file is not an error.
func loadDotEnv(flags *pflag.FlagSet) error {
	path := ".env"
	if flags != nil {
		if f := flags.Lookup("env-file"); f != nil {
			path = f.Value.String()
		}
	}
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load env file %s: %w", path, err)
	}
	return nil
}
