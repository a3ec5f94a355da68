package config

import (
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// ReplayConfig holds configuration for the replay command.
type ReplayConfig struct {
	Engine
	In string
}

// LoadReplay merges .env, config file, environment variables, and flags into ReplayConfig.
func LoadReplay(cfgFile string, flags *pflag.FlagSet) (ReplayConfig, error) {
	v, err := newViper(cfgFile, flags, func(v *viper.Viper) {
		v.SetDefault("out", "./data/replay.jsonl")
	})
	if err != nil {
		return ReplayConfig{}, err
	}

	return ReplayConfig{
		Engine: engineFrom(v),
		In:     v.GetString("in"),
	}, nil
}
