// Package injector wires a runtime (config plus logger) together and builds
// scopes on top of it.
package injector

import (
	"github.com/google/wire"

	"github.com/zeusync/kindstore/internal/core/config"
	"github.com/zeusync/kindstore/internal/core/kindset"
	"github.com/zeusync/kindstore/internal/core/observability/log"
	"github.com/zeusync/kindstore/internal/core/scope"
)

// Flags are the command-line inputs of a runtime. Empty fields leave the
// loaded (or default) config untouched.
type Flags struct {
	ConfigPath string
	KindSet    string
	LogLevel   string
}

// Runtime is what every scope of a process shares.
type Runtime struct {
	Config *config.Config
	Log    log.Log
}

var ProviderSet = wire.NewSet(
	ProvideConfig,
	ProvideLogger,
	wire.Bind(new(log.Log), new(*log.Logger)),
	wire.Struct(new(Runtime), "*"),
)

// ProvideConfig loads the config file named by f, if any, and applies the
// flag overrides on top.
func ProvideConfig(f Flags) (*config.Config, error) {
	cfg := config.Default()
	if f.ConfigPath != "" {
		loaded, err := config.LoadFile(f.ConfigPath)
		if err != nil {
			return nil, err
		}
		cfg = *loaded
	}
	if f.KindSet != "" {
		cfg.KindSet = config.KindSet(f.KindSet)
	}
	if f.LogLevel != "" {
		cfg.LogLevel = f.LogLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func ProvideLogger(cfg *config.Config) *log.Logger {
	return log.New(cfg.Level())
}

// NewScope builds a scope configured and logged by rt.
func NewScope[E, K comparable, S any](rt *Runtime, manager kindset.Manager[K, S], factory func() E) (*scope.Scope[E, K, S], error) {
	return scope.New[E, K, S](manager,
		scope.WithConfig(*rt.Config),
		scope.WithLogger(rt.Log.Named("scope")),
		scope.WithEntityFactory(factory))
}

// FlagManager returns the bitset manager sized by the runtime config.
func FlagManager(rt *Runtime) *kindset.FlagArrayManager {
	return kindset.NewFlagArrayManager(rt.Config.FlagCapacity)
}
