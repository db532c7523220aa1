// Package activation decides which profile is current for a context snapshot and
// refreshes dynamic folders after every pass.
package activation

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/hpungsan/shelf/internal/model"
	"github.com/hpungsan/shelf/internal/registry"
)

// Result describes one evaluation pass.
type Result struct {
	// Current is the current profile after the pass, nil if there is none
	Current *model.Profile `json:"current,omitempty"`

	// Matched is true when some profile matched the snapshot
	Matched bool `json:"matched"`

	// Changed is true when the current profile switched to a different id
	Changed bool `json:"changed"`

	Refreshed []model.Folder `json:"refreshed"`
}

// Engine runs activation passes against the registries. Passes are serialized.
type Engine struct {
	profiles *registry.Profiles
	folders  *registry.Folders
	env      registry.RuleEnv

	mu sync.Mutex
}

// reloader is implemented by stores that can pick up changes saved by other
// processes.
type reloader interface {
	Reload(ctx context.Context)
}

// New returns an Engine.
func New(profiles *registry.Profiles, folders *registry.Folders, env registry.RuleEnv) *Engine {
	return &Engine{profiles: profiles, folders: folders, env: env}
}

// Evaluate selects the first matching profile in registry order and makes it
// current. When nothing matches the current profile is kept. Dynamic folders
// are refreshed either way.
func (e *Engine) Evaluate(ctx context.Context, snap model.Snapshot) Result {
	if snap.Now.IsZero() {
		snap.Now = time.Now()
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.reload(ctx)

	var res Result
	prev, hadPrev := e.profiles.Current()

	if p, ok := SelectActiveProfile(e.profiles.All(), snap); ok {
		res.Matched = true
		res.Changed = !hadPrev || prev.ID != p.ID
		if res.Changed {
			e.profiles.SetCurrent(ctx, &p)
			slog.Info("Profile activated", "profile", p.Name, "id", p.ID, "trigger", snap.Trigger)
		}
	} else {
		slog.Debug("No profile matched, keeping current", "trigger", snap.Trigger)
	}

	if cur, ok := e.profiles.Current(); ok {
		res.Current = &cur
	}
	res.Refreshed = e.Refresh(ctx)
	return res
}

// Refresh recomputes dynamic folders without touching the current profile.
func (e *Engine) Refresh(ctx context.Context) []model.Folder {
	return e.folders.RefreshDynamicFolders(ctx, e.env)
}

// reload brings the registries and usage up to date with storage before a pass,
// so a long-running process sees folders, profiles and launches saved by others.
func (e *Engine) reload(ctx context.Context) {
	e.profiles.Reload(ctx)
	e.folders.Reload(ctx)
	if r, ok := e.env.Usage.(reloader); ok {
		r.Reload(ctx)
	}
}
