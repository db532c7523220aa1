package ops

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/hpungsan/shelf/internal/activation"
	"github.com/hpungsan/shelf/internal/catalog"
	"github.com/hpungsan/shelf/internal/command"
	"github.com/hpungsan/shelf/internal/config"
	"github.com/hpungsan/shelf/internal/db"
	"github.com/hpungsan/shelf/internal/model"
	"github.com/hpungsan/shelf/internal/predict"
	"github.com/hpungsan/shelf/internal/registry"
	"github.com/hpungsan/shelf/internal/storage"
	"github.com/hpungsan/shelf/internal/suggest"
	"github.com/hpungsan/shelf/internal/usage"
)

// Env wires the core services every operation runs against.
type Env struct {
	Config    *config.Config
	Usage     *usage.Store
	Folders   *registry.Folders
	Profiles  *registry.Profiles
	Catalog   catalog.AppCatalog
	Engine    *activation.Engine
	Suggester *suggest.Engine
	Predictor predict.UsagePredictor

	// Now is the clock for snapshots built by operations
	Now func() time.Time

	database *sql.DB
}

// EnvOption configures NewEnv.
type EnvOption func(*envOptions)

type envOptions struct {
	now       func() time.Time
	predictor predict.UsagePredictor
}

// WithClock overrides time.Now for usage timestamps and snapshots.
func WithClock(now func() time.Time) EnvOption {
	return func(o *envOptions) { o.now = now }
}

// WithPredictor replaces the fallback usage predictor.
func WithPredictor(p predict.UsagePredictor) EnvOption {
	return func(o *envOptions) { o.predictor = p }
}

// Open builds an Env under baseDir using the configured storage backend and catalog.
// A missing or unreadable catalog degrades to an empty one.
func Open(ctx context.Context, baseDir string, cfg *config.Config, opts ...EnvOption) (*Env, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}

	var (
		s        storage.Storage
		database *sql.DB
	)
	switch cfg.StorageBackend {
	case config.BackendSQLite, "":
		var err error
		database, err = db.Init(baseDir)
		if err != nil {
			return nil, err
		}
		db.ConfigurePool(database, cfg)
		s = db.NewBlobStore(database)
	case config.BackendFile:
		f, err := storage.NewFile(filepath.Join(baseDir, "data"))
		if err != nil {
			return nil, err
		}
		s = f
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
	}

	var cat catalog.AppCatalog = catalog.NewStatic(nil)
	if path := cfg.CatalogPath; path != "" {
		if !filepath.IsAbs(path) {
			path = filepath.Join(baseDir, path)
		}
		loaded, err := catalog.LoadFile(path)
		if err != nil {
			slog.Warn("App catalog unreadable, continuing without it", "path", path, "error", err)
		} else {
			cat = loaded
		}
	}

	env := NewEnv(ctx, s, cfg, cat, opts...)
	env.database = database
	return env, nil
}

// NewEnv builds an Env over an existing storage.
func NewEnv(ctx context.Context, s storage.Storage, cfg *config.Config, cat catalog.AppCatalog, opts ...EnvOption) *Env {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	o := envOptions{now: time.Now, predictor: predict.Fallback{}}
	for _, opt := range opts {
		opt(&o)
	}

	regOpts := []registry.Option{registry.WithDuplicateNames(cfg.AllowDuplicateNames)}
	env := &Env{
		Config:    cfg,
		Usage:     usage.New(ctx, s, usage.WithClock(o.now)),
		Folders:   registry.NewFolders(ctx, s, regOpts...),
		Profiles:  registry.NewProfiles(ctx, s, regOpts...),
		Catalog:   cat,
		Suggester: suggest.New(cat, cfg.SuggestMinUsage, cfg.SuggestMinGroup),
		Predictor: predict.Safe(o.predictor),
		Now:       o.now,
	}
	env.Engine = activation.New(env.Profiles, env.Folders, registry.RuleEnv{Usage: env.Usage, Catalog: cat})
	return env
}

// Close releases the database, if any.
func (e *Env) Close() error {
	if e.database == nil {
		return nil
	}
	return e.database.Close()
}

// Reload brings the usage store and both registries up to date with storage.
// Long-running processes call it before serving a request so that changes saved
// by other processes are visible.
func (e *Env) Reload(ctx context.Context) {
	e.Usage.Reload(ctx)
	e.Folders.Reload(ctx)
	e.Profiles.Reload(ctx)
}

// ConfiguredLocation returns the fixed location from config, if set.
func (e *Env) ConfiguredLocation() *model.Coordinate {
	if e.Config == nil || e.Config.Location == nil {
		return nil
	}
	return &model.Coordinate{Latitude: e.Config.Location.Latitude, Longitude: e.Config.Location.Longitude}
}

// Dispatcher returns a command dispatcher over this Env.
func (e *Env) Dispatcher() *command.Dispatcher {
	return &command.Dispatcher{
		Folders:   e.Folders,
		Catalog:   e.Catalog,
		Suggester: e.Suggester,
		Usage:     e.Usage,
		Predictor: e.Predictor,
		Now:       e.Now,
		Location:  e.ConfiguredLocation(),
	}
}

// appName returns the catalog display name for app, or "" when unknown.
func (e *Env) appName(app string) string {
	if e.Catalog == nil {
		return ""
	}
	name, _ := e.Catalog.NameOf(app)
	return name
}
