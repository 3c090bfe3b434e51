// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"log/slog"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/anveksha/lib/config"
)

// commonParams are the flags every command that reads configuration
// accepts.
type commonParams struct {
	ConfigPath string
	Debug      bool
}

func (p *commonParams) register(flagSet *pflag.FlagSet) {
	flagSet.StringVar(&p.ConfigPath, "config", "", "configuration file (default: $ANVEKSHA_CONFIG, else built-in defaults)")
	flagSet.BoolVar(&p.Debug, "debug", false, "log at debug level (also $ANVEKSHA_DEBUG)")
}

// load resolves the configuration and applies the debug setting to
// level.
func (p *commonParams) load(level *slog.LevelVar) (*config.Config, error) {
	environment, err := config.ReadEnvironment()
	if err != nil {
		return nil, err
	}
	if p.Debug || environment.Debug {
		level.Set(slog.LevelDebug)
	}
	return config.Resolve(p.ConfigPath, environment)
}

func newFlagSet(name string, params *commonParams) *pflag.FlagSet {
	flagSet := pflag.NewFlagSet(name, pflag.ContinueOnError)
	params.register(flagSet)
	return flagSet
}
