// Package injector wires a runnable simulation from configuration.
package injector

import (
	"github.com/google/wire"
	"go.uber.org/zap"

	"terminus-core/assets"
	"terminus-core/internal/config"
	"terminus-core/internal/logging"
	"terminus-core/internal/persist"
	"terminus-core/internal/sim"
	"terminus-core/internal/template"
	"terminus-core/internal/worldgen"
)

// ProviderSet builds an *App from a config.Config.
var ProviderSet = wire.NewSet(
	ProvideLogger, ProvideTemplates, ProvideStore, ProvideWorld,
	wire.Struct(new(App), "*"),
)

// App is a wired simulation together with the logger its parts share.
type App struct {
	World *sim.World
	Log   *zap.Logger
}

func ProvideLogger(cfg config.Config) (*zap.Logger, func(), error) {
	log, err := logging.New(cfg.LogLevel, cfg.LogDevelopment)
	if err != nil {
		return nil, nil, err
	}
	return log, func() { _ = log.Sync() }, nil
}

// ProvideTemplates serves the built-in catalog, overlaid by the configured
// YAML file when there is one.
func ProvideTemplates(cfg config.Config) (template.Source, error) {
	return template.NewReloadable(assets.Builtin(), cfg.TemplatesPath)
}

// ProvideStore opens the SQLite store, or an in-memory store when no
// database path is configured.
func ProvideStore(cfg config.Config, log *zap.Logger) (persist.Store, func(), error) {
	if cfg.DBPath == "" {
		s := persist.NewMemoryStore()
		return s, func() { _ = s.Close() }, nil
	}
	s, err := persist.OpenSQLite(cfg.DBPath)
	if err != nil {
		return nil, nil, err
	}
	log.Info("store opened", zap.String("path", cfg.DBPath))
	return s, func() {
		if err := s.Close(); err != nil {
			log.Warn("closing store", zap.Error(err))
		}
	}, nil
}

// ProvideWorld builds the World, loading hand-authored chunks from the
// configured static maps file.
func ProvideWorld(cfg config.Config, templates template.Source, store persist.Store, log *zap.Logger) (*sim.World, error) {
	opts := sim.OptionsFrom(cfg)
	static, err := worldgen.LoadStatic(cfg.StaticMapsPath)
	if err != nil {
		return nil, err
	}
	if len(static) > 0 {
		log.Info("static maps loaded", zap.Int("chunks", len(static)))
	}
	opts.Static = static
	return sim.New(opts, templates, store, log)
}
