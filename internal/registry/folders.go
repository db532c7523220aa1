package registry

import (
	"context"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/hpungsan/shelf/internal/errors"
	"github.com/hpungsan/shelf/internal/model"
	"github.com/hpungsan/shelf/internal/storage"
)

// Folders is the folder registry. Folders keep insertion order.
type Folders struct {
	storage storage.Storage
	opts    options

	// wmu serializes mutations and is held across storage I/O; mu only guards
	// the in-memory collection, so readers never wait on storage
	wmu sync.Mutex

	mu      sync.RWMutex
	folders []model.Folder
}

// NewFolders loads the folder collection from s. Unreadable data yields an empty
// registry; individually invalid folders are dropped with a warning.
func NewFolders(ctx context.Context, s storage.Storage, opts ...Option) *Folders {
	r := &Folders{
		storage: s,
		opts:    buildOptions(opts),
	}
	loaded, err := loadFolders(ctx, s)
	if err != nil {
		storage.LogLoadError(err)
		return r
	}
	r.folders = loaded
	return r
}

// Reload replaces the in-memory collection with the stored one, picking up
// changes saved by other processes. On a read failure the collection is kept.
func (r *Folders) Reload(ctx context.Context) {
	r.wmu.Lock()
	defer r.wmu.Unlock()

	loaded, err := loadFolders(ctx, r.storage)
	if err != nil {
		storage.LogReloadError(err)
		return
	}
	r.set(loaded)
}

func loadFolders(ctx context.Context, s storage.Storage) ([]model.Folder, error) {
	var stored []model.Folder
	if _, err := storage.ReadJSON(ctx, s, storage.KeyFolders, &stored); err != nil {
		return nil, err
	}
	out := make([]model.Folder, 0, len(stored))
	seen := make(map[string]bool, len(stored))
	for _, f := range stored {
		f.Apps = model.Dedupe(f.Apps)
		if err := f.Validate(); err != nil {
			slog.Warn("Dropping invalid stored folder", "id", f.ID, "error", err)
			continue
		}
		if seen[f.ID] {
			slog.Warn("Dropping stored folder with repeated id", "id", f.ID)
			continue
		}
		seen[f.ID] = true
		out = append(out, f.Clone())
	}
	return out, nil
}

// Create adds an empty static folder.
func (r *Folders) Create(ctx context.Context, name string, category model.Category) (model.Folder, error) {
	return r.insert(ctx, name, category, nil)
}

// CreateDynamic adds a dynamic folder. Its apps stay empty until the next refresh.
func (r *Folders) CreateDynamic(ctx context.Context, name string, category model.Category, rule model.DynamicRule) (model.Folder, error) {
	if err := rule.Validate(); err != nil {
		return model.Folder{}, errors.NewInvalidRequest(err.Error())
	}
	if category == "" {
		category = model.CategoryDynamic
	}
	return r.insert(ctx, name, category, &rule)
}

func (r *Folders) insert(ctx context.Context, name string, category model.Category, rule *model.DynamicRule) (model.Folder, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return model.Folder{}, errors.NewInvalidRequest("folder name must not be empty")
	}
	category, err := model.ParseCategory(string(category))
	if err != nil {
		return model.Folder{}, errors.NewInvalidRequest(err.Error())
	}

	f := model.Folder{
		Name:     name,
		Category: category,
		Apps:     []string{},
		Kind:     model.KindStatic,
		Icon:     model.IconFor(name),
	}
	if rule != nil {
		f.Kind = model.KindDynamic
		f.Rule = rule
	}

	err = r.mutate(ctx, func(folders []model.Folder) ([]model.Folder, bool, error) {
		if err := r.checkName(folders, name, category, ""); err != nil {
			return nil, false, err
		}
		f.ID = r.opts.newID()
		return append(folders, f), true, nil
	})
	if err != nil {
		return model.Folder{}, err
	}
	return f.Clone(), nil
}

// AddApp appends appRef to the folder. Adding an app that is already present
// changes nothing.
func (r *Folders) AddApp(ctx context.Context, folderID, appRef string) (model.Folder, error) {
	return r.AddApps(ctx, folderID, []string{appRef})
}

// AddApps appends every app not already present, in order, with one write.
func (r *Folders) AddApps(ctx context.Context, folderID string, appRefs []string) (model.Folder, error) {
	for _, a := range appRefs {
		if a == "" {
			return model.Folder{}, errors.NewInvalidRequest("app reference must not be empty")
		}
	}
	return r.update(ctx, folderID, func(f *model.Folder, _ []model.Folder) (bool, error) {
		changed := false
		for _, a := range appRefs {
			if !f.Contains(a) {
				f.Apps = append(f.Apps, a)
				changed = true
			}
		}
		return changed, nil
	})
}

// RemoveApp removes appRef from the folder if present.
func (r *Folders) RemoveApp(ctx context.Context, folderID, appRef string) (model.Folder, error) {
	return r.update(ctx, folderID, func(f *model.Folder, _ []model.Folder) (bool, error) {
		i := slices.Index(f.Apps, appRef)
		if i < 0 {
			return false, nil
		}
		f.Apps = slices.Delete(f.Apps, i, i+1)
		return true, nil
	})
}

// Rename changes the folder's display name.
func (r *Folders) Rename(ctx context.Context, folderID, newName string) (model.Folder, error) {
	newName = strings.TrimSpace(newName)
	if newName == "" {
		return model.Folder{}, errors.NewInvalidRequest("folder name must not be empty")
	}
	return r.update(ctx, folderID, func(f *model.Folder, all []model.Folder) (bool, error) {
		if f.Name == newName {
			return false, nil
		}
		if err := r.checkName(all, newName, f.Category, f.ID); err != nil {
			return false, err
		}
		f.Name = newName
		return true, nil
	})
}

// SetKind switches a folder between static and dynamic. Making a folder dynamic
// needs a rule unless it already carries one; a nil rule keeps the existing rule.
// Switching to static keeps the current apps as curated contents.
func (r *Folders) SetKind(ctx context.Context, folderID string, smart bool, rule *model.DynamicRule) (model.Folder, error) {
	if rule != nil {
		if err := rule.Validate(); err != nil {
			return model.Folder{}, errors.NewInvalidRequest(err.Error())
		}
	}
	return r.update(ctx, folderID, func(f *model.Folder, _ []model.Folder) (bool, error) {
		if !smart {
			if f.Kind == model.KindStatic {
				return false, nil
			}
			f.Kind = model.KindStatic
			f.Rule = nil
			return true, nil
		}
		switch {
		case rule != nil:
			cp := *rule
			f.Rule = &cp
		case f.Rule == nil:
			return false, errors.NewInvalidRequest("a dynamic folder needs a rule")
		case f.Kind == model.KindDynamic:
			return false, nil
		}
		f.Kind = model.KindDynamic
		return true, nil
	})
}

// Delete removes the folder. Profiles referencing it keep the dangling id.
func (r *Folders) Delete(ctx context.Context, folderID string) error {
	return r.mutate(ctx, func(folders []model.Folder) ([]model.Folder, bool, error) {
		i := indexOfFolder(folders, folderID)
		if i < 0 {
			return nil, false, errors.NewNotFound("folder", folderID)
		}
		return slices.Delete(folders, i, i+1), true, nil
	})
}

// Get returns the folder with id.
func (r *Folders) Get(id string) (model.Folder, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if i := indexOfFolder(r.folders, id); i >= 0 {
		return r.folders[i].Clone(), true
	}
	return model.Folder{}, false
}

// ByName returns the first folder, in insertion order, whose name matches
// ignoring case and surrounding whitespace.
func (r *Folders) ByName(name string) (model.Folder, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, f := range r.folders {
		if sameName(f.Name, name) {
			return f.Clone(), true
		}
	}
	return model.Folder{}, false
}

// All returns every folder in insertion order.
func (r *Folders) All() []model.Folder {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return cloneFolders(r.folders)
}

// Resolve returns the folders with the given ids in id order, skipping ids that
// no longer exist.
func (r *Folders) Resolve(ids []string) []model.Folder {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]model.Folder, 0, len(ids))
	for _, id := range ids {
		if i := indexOfFolder(r.folders, id); i >= 0 {
			out = append(out, r.folders[i].Clone())
		}
	}
	return out
}

// RefreshDynamicFolders recomputes every dynamic folder's apps from its rule,
// replacing the previous contents. Static folders and folder order are never
// touched. It returns the dynamic folders as refreshed.
func (r *Folders) RefreshDynamicFolders(ctx context.Context, env RuleEnv) []model.Folder {
	type pending struct {
		id   string
		rule model.DynamicRule
		apps []string
	}

	// Rules run outside the lock so slow collaborators never block readers.
	r.mu.RLock()
	var work []pending
	for _, f := range r.folders {
		if f.IsDynamic() && f.Rule != nil {
			work = append(work, pending{id: f.ID, rule: *f.Rule})
		}
	}
	r.mu.RUnlock()

	for i := range work {
		work[i].apps = EvaluateRule(work[i].rule, env)
	}

	var refreshed []model.Folder
	_ = r.mutate(ctx, func(folders []model.Folder) ([]model.Folder, bool, error) {
		changed := false
		refreshed = make([]model.Folder, 0, len(work))
		for _, p := range work {
			i := indexOfFolder(folders, p.id)
			if i < 0 {
				continue
			}
			f := &folders[i]
			// skip folders whose kind or rule changed while rules were running
			if !f.IsDynamic() || f.Rule == nil || *f.Rule != p.rule {
				continue
			}
			if !slices.Equal(f.Apps, p.apps) {
				f.Apps = p.apps
				changed = true
			}
			refreshed = append(refreshed, f.Clone())
		}
		return folders, changed, nil
	})
	return refreshed
}

// update applies fn to a copy of one folder inside mutate. fn also sees the
// whole collection, for name checks.
func (r *Folders) update(ctx context.Context, folderID string, fn func(f *model.Folder, all []model.Folder) (bool, error)) (model.Folder, error) {
	var out model.Folder
	err := r.mutate(ctx, func(folders []model.Folder) ([]model.Folder, bool, error) {
		i := indexOfFolder(folders, folderID)
		if i < 0 {
			return nil, false, errors.NewNotFound("folder", folderID)
		}
		f := folders[i].Clone()
		changed, err := fn(&f, folders)
		if err != nil {
			return nil, false, err
		}
		out = f.Clone()
		if !changed {
			return folders, false, nil
		}
		folders[i] = f
		return folders, true, nil
	})
	if err != nil {
		return model.Folder{}, err
	}
	return out, nil
}

// mutate runs fn against the latest stored collection while holding the storage
// write lock, so a change made by another process since the last load is kept
// rather than overwritten. fn works on a copy; its result becomes the in-memory
// collection and is saved when fn reports a change. If the stored collection
// cannot be read, fn runs against the in-memory one.
func (r *Folders) mutate(ctx context.Context, fn func(folders []model.Folder) ([]model.Folder, bool, error)) error {
	r.wmu.Lock()
	defer r.wmu.Unlock()

	return storage.Update(ctx, r.storage, func(tx storage.Storage) error {
		base, err := loadFolders(ctx, tx)
		if err != nil {
			storage.LogReloadError(err)
			base = r.All()
		}
		r.set(base)

		next, changed, err := fn(cloneFolders(base))
		if err != nil {
			return err
		}
		r.set(next)
		if changed {
			storage.SaveJSON(ctx, tx, storage.KeyFolders, next)
		}
		return nil
	})
}

func (r *Folders) set(folders []model.Folder) {
	r.mu.Lock()
	r.folders = cloneFolders(folders)
	r.mu.Unlock()
}

func (r *Folders) checkName(folders []model.Folder, name string, category model.Category, exceptID string) error {
	if r.opts.allowDuplicateNames {
		return nil
	}
	for _, f := range folders {
		if f.ID != exceptID && f.Category == category && sameName(f.Name, name) {
			return errors.NewNameAlreadyExists("folder", name)
		}
	}
	return nil
}

func indexOfFolder(folders []model.Folder, id string) int {
	return slices.IndexFunc(folders, func(f model.Folder) bool { return f.ID == id })
}

func cloneFolders(in []model.Folder) []model.Folder {
	out := make([]model.Folder, len(in))
	for i, f := range in {
		out[i] = f.Clone()
	}
	return out
}
