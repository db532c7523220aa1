package registry

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/hpungsan/shelf/internal/errors"
	"github.com/hpungsan/shelf/internal/model"
	"github.com/hpungsan/shelf/internal/storage"
)

// DefaultProfileNames are seeded, in order, into a registry that starts empty.
var DefaultProfileNames = []string{"Work Mode", "Weekend Mode", "Travel Mode"}

// Profiles is the profile registry. It also tracks the current profile, which
// is persisted by id under its own key.
type Profiles struct {
	storage storage.Storage
	opts    options

	// wmu serializes mutations and is held across storage I/O; mu only guards
	// the in-memory state
	wmu sync.Mutex

	mu       sync.RWMutex
	profiles []model.Profile
	current  *model.Profile
}

// NewProfiles loads the profile collection and current profile from s. When
// nothing has been stored yet, or the stored collection is empty, the default
// profiles are seeded and the first becomes current. Unreadable data yields an
// empty registry and is left in place rather than overwritten by defaults.
func NewProfiles(ctx context.Context, s storage.Storage, opts ...Option) *Profiles {
	r := &Profiles{
		storage: s,
		opts:    buildOptions(opts),
	}

	loaded, err := loadProfiles(ctx, s)
	if err != nil {
		storage.LogLoadError(err)
		return r
	}
	if len(loaded) > 0 {
		r.adopt(loaded, r.loadCurrentID(ctx, s))
		return r
	}

	r.wmu.Lock()
	defer r.wmu.Unlock()
	_ = storage.Update(ctx, s, func(tx storage.Storage) error {
		// another process may have seeded since the first read
		loaded, err := loadProfiles(ctx, tx)
		if err != nil {
			storage.LogLoadError(err)
			return nil
		}
		if len(loaded) > 0 {
			r.adopt(loaded, r.loadCurrentID(ctx, tx))
			return nil
		}
		r.seed(ctx, tx)
		return nil
	})
	return r
}

func (r *Profiles) seed(ctx context.Context, tx storage.Storage) {
	profiles := make([]model.Profile, 0, len(DefaultProfileNames))
	for _, name := range DefaultProfileNames {
		profiles = append(profiles, model.Profile{
			ID:              r.opts.newID(),
			Name:            name,
			FolderIDs:       []string{},
			ActivationRules: []model.ActivationRule{},
		})
	}
	r.adopt(profiles, profiles[0].ID)

	storage.SaveJSON(ctx, tx, storage.KeyProfiles, profiles)
	storage.SaveJSON(ctx, tx, storage.KeyCurrentProfile, profiles[0].ID)
}

// Reload replaces the in-memory profiles and current profile with the stored
// ones, picking up changes saved by other processes. On a read failure the
// in-memory state is kept.
func (r *Profiles) Reload(ctx context.Context) {
	r.wmu.Lock()
	defer r.wmu.Unlock()
	r.reload(ctx, r.storage)
}

// reload reports whether the stored collection could be read.
func (r *Profiles) reload(ctx context.Context, s storage.Storage) bool {
	loaded, err := loadProfiles(ctx, s)
	if err != nil {
		storage.LogReloadError(err)
		return false
	}
	r.adopt(loaded, r.loadCurrentID(ctx, s))
	return true
}

func loadProfiles(ctx context.Context, s storage.Storage) ([]model.Profile, error) {
	var stored []model.Profile
	if _, err := storage.ReadJSON(ctx, s, storage.KeyProfiles, &stored); err != nil {
		return nil, err
	}
	out := make([]model.Profile, 0, len(stored))
	seen := make(map[string]bool, len(stored))
	for _, p := range stored {
		if err := validateProfile(p); err != nil || p.ID == "" || seen[p.ID] {
			slog.Warn("Dropping invalid stored profile", "id", p.ID, "error", err)
			continue
		}
		seen[p.ID] = true
		out = append(out, p.Clone())
	}
	return out, nil
}

// loadCurrentID returns the stored current profile id. A read failure returns
// the in-memory current id so the current profile is kept.
func (r *Profiles) loadCurrentID(ctx context.Context, s storage.Storage) string {
	var id string
	if _, err := storage.ReadJSON(ctx, s, storage.KeyCurrentProfile, &id); err != nil {
		storage.LogReloadError(err)
		if cur, ok := r.Current(); ok {
			return cur.ID
		}
		return ""
	}
	return id
}

// adopt installs a loaded collection. A current profile whose id is still the
// stored one stays current even if it was deleted, until it is replaced; any
// other stored id is resolved against the collection and loads as none when
// dangling.
func (r *Profiles) adopt(profiles []model.Profile, currentID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.profiles = profiles
	keep := r.current != nil && r.current.ID == currentID
	i := indexOfProfile(profiles, currentID)
	switch {
	case currentID == "":
		r.current = nil
	case i >= 0:
		cur := profiles[i].Clone()
		r.current = &cur
	case keep:
	default:
		slog.Info("Stored current profile no longer exists", "id", currentID)
		r.current = nil
	}
}

// Create adds a profile. Folder ids are kept as given, minus repeats; they are
// not checked against the folder registry.
func (r *Profiles) Create(ctx context.Context, name string, folderIDs []string, rules []model.ActivationRule) (model.Profile, error) {
	p := model.Profile{
		Name:            strings.TrimSpace(name),
		FolderIDs:       model.Dedupe(folderIDs),
		ActivationRules: rules,
	}
	if p.ActivationRules == nil {
		p.ActivationRules = []model.ActivationRule{}
	}
	if err := validateProfile(p); err != nil {
		return model.Profile{}, err
	}
	p = p.Clone()

	err := r.mutate(ctx, func(profiles []model.Profile) ([]model.Profile, bool, error) {
		if err := r.checkName(profiles, p.Name, ""); err != nil {
			return nil, false, err
		}
		p.ID = r.opts.newID()
		return append(profiles, p.Clone()), true, nil
	})
	if err != nil {
		return model.Profile{}, err
	}
	return p, nil
}

// Update replaces the stored profile with the same id, keeping its position.
// If it is the current profile, the current copy is replaced too. Callers
// changing part of a profile should use Edit, which cannot lose a concurrent
// change to another part.
func (r *Profiles) Update(ctx context.Context, p model.Profile) (model.Profile, error) {
	p = p.Clone()
	return r.Edit(ctx, p.ID, func(stored *model.Profile) error {
		*stored = p
		return nil
	})
}

// Edit applies fn to the latest stored copy of the profile while holding the
// registry's write lock, then validates and saves the result. A failed fn or
// validation leaves the profile unchanged. The id cannot be changed.
func (r *Profiles) Edit(ctx context.Context, id string, fn func(p *model.Profile) error) (model.Profile, error) {
	var out model.Profile
	err := r.mutate(ctx, func(profiles []model.Profile) ([]model.Profile, bool, error) {
		i := indexOfProfile(profiles, id)
		if i < 0 {
			return nil, false, errors.NewNotFound("profile", id)
		}
		p := profiles[i].Clone()
		if err := fn(&p); err != nil {
			return nil, false, err
		}
		p.ID = id
		p.Name = strings.TrimSpace(p.Name)
		p.FolderIDs = model.Dedupe(p.FolderIDs)
		if p.ActivationRules == nil {
			p.ActivationRules = []model.ActivationRule{}
		}
		if err := validateProfile(p); err != nil {
			return nil, false, err
		}
		if err := r.checkName(profiles, p.Name, id); err != nil {
			return nil, false, err
		}
		profiles[i] = p
		out = p.Clone()
		return profiles, true, nil
	})
	if err != nil {
		return model.Profile{}, err
	}
	return out, nil
}

// Delete removes the profile. The current pointer is left alone; a deleted current
// profile stays current until replaced.
func (r *Profiles) Delete(ctx context.Context, id string) error {
	return r.mutate(ctx, func(profiles []model.Profile) ([]model.Profile, bool, error) {
		i := indexOfProfile(profiles, id)
		if i < 0 {
			return nil, false, errors.NewNotFound("profile", id)
		}
		return slices.Delete(profiles, i, i+1), true, nil
	})
}

// mutate runs fn against the latest stored profiles while holding the storage
// write lock, so a change made by another process since the last load is kept
// rather than overwritten. fn works on a copy; its result becomes the in-memory
// collection, refreshing the current copy, and is saved when fn reports a
// change. If the stored profiles cannot be read, fn runs against the in-memory
// ones.
func (r *Profiles) mutate(ctx context.Context, fn func(profiles []model.Profile) ([]model.Profile, bool, error)) error {
	r.wmu.Lock()
	defer r.wmu.Unlock()

	return storage.Update(ctx, r.storage, func(tx storage.Storage) error {
		r.reload(ctx, tx)

		next, changed, err := fn(r.All())
		if err != nil {
			return err
		}
		cur, hasCur := r.Current()
		curID := ""
		if hasCur {
			curID = cur.ID
		}
		r.adopt(cloneProfiles(next), curID)
		if changed {
			storage.SaveJSON(ctx, tx, storage.KeyProfiles, next)
		}
		return nil
	})
}

// Get returns the profile with id.
func (r *Profiles) Get(id string) (model.Profile, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if i := indexOfProfile(r.profiles, id); i >= 0 {
		return r.profiles[i].Clone(), true
	}
	return model.Profile{}, false
}

// ByName returns the first profile, in insertion order, whose name matches
// ignoring case and surrounding whitespace.
func (r *Profiles) ByName(name string) (model.Profile, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, p := range r.profiles {
		if sameName(p.Name, name) {
			return p.Clone(), true
		}
	}
	return model.Profile{}, false
}

// All returns every profile in insertion order.
func (r *Profiles) All() []model.Profile {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return cloneProfiles(r.profiles)
}

// Current returns the current profile, if any.
func (r *Profiles) Current() (model.Profile, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.current == nil {
		return model.Profile{}, false
	}
	return r.current.Clone(), true
}

// SetCurrent replaces the current profile. It does not check that p is still in
// the registry. A nil p clears the current profile.
func (r *Profiles) SetCurrent(ctx context.Context, p *model.Profile) {
	r.wmu.Lock()
	defer r.wmu.Unlock()

	id := ""
	r.mu.Lock()
	if p == nil {
		r.current = nil
	} else {
		cur := p.Clone()
		r.current = &cur
		id = cur.ID
	}
	r.mu.Unlock()

	_ = storage.Update(ctx, r.storage, func(tx storage.Storage) error {
		storage.SaveJSON(ctx, tx, storage.KeyCurrentProfile, id)
		return nil
	})
}

func (r *Profiles) checkName(profiles []model.Profile, name, exceptID string) error {
	if r.opts.allowDuplicateNames {
		return nil
	}
	for _, p := range profiles {
		if p.ID != exceptID && sameName(p.Name, name) {
			return errors.NewNameAlreadyExists("profile", name)
		}
	}
	return nil
}

func indexOfProfile(profiles []model.Profile, id string) int {
	if id == "" {
		return -1
	}
	return slices.IndexFunc(profiles, func(p model.Profile) bool { return p.ID == id })
}

func cloneProfiles(in []model.Profile) []model.Profile {
	out := make([]model.Profile, len(in))
	for i, p := range in {
		out[i] = p.Clone()
	}
	return out
}

func validateProfile(p model.Profile) error {
	if p.Name == "" {
		return errors.NewInvalidRequest("profile name must not be empty")
	}
	for i, rule := range p.ActivationRules {
		if err := rule.Validate(); err != nil {
			return errors.NewInvalidRequest(fmt.Sprintf("activation rule %d: %v", i, err))
		}
	}
	for _, id := range p.FolderIDs {
		if id == "" {
			return errors.NewInvalidRequest("folder id must not be empty")
		}
	}
	return nil
}
