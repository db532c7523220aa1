package ops

import (
	"context"
	"fmt"
	"strings"

	"github.com/hpungsan/shelf/internal/catalog"
	"github.com/hpungsan/shelf/internal/errors"
	"github.com/hpungsan/shelf/internal/model"
)

// FolderRef selects a folder by id or name.
type FolderRef struct {
	ID   string
	Name string
}

// CreateFolderInput contains parameters for the CreateFolder operation.
type CreateFolderInput struct {
	Name     string // required
	Category string // default: "custom", or "dynamic" when Rule is set
	Rule     string // optional, e.g. "most_used:5"; makes the folder dynamic
	Apps     []string
}

// FolderOutput wraps a single folder.
type FolderOutput struct {
	Folder model.Folder `json:"folder"`
}

// CreateFolder creates a static or dynamic folder. Apps given for a static folder
// are added right away; a dynamic folder is filled by an immediate refresh.
func CreateFolder(ctx context.Context, env *Env, input CreateFolderInput) (*FolderOutput, error) {
	category, err := model.ParseCategory(input.Category)
	if err != nil {
		return nil, errors.NewInvalidRequest(err.Error())
	}

	if strings.TrimSpace(input.Rule) != "" {
		if len(input.Apps) > 0 {
			return nil, errors.NewInvalidRequest("apps cannot be given for a dynamic folder")
		}
		rule, err := parseDynamicRule(input.Rule)
		if err != nil {
			return nil, err
		}
		if strings.TrimSpace(input.Category) == "" {
			category = model.CategoryDynamic
		}
		f, err := env.Folders.CreateDynamic(ctx, input.Name, category, rule)
		if err != nil {
			return nil, err
		}
		env.Engine.Refresh(ctx)
		if refreshed, ok := env.Folders.Get(f.ID); ok {
			f = refreshed
		}
		return &FolderOutput{Folder: f}, nil
	}

	apps, err := resolveApps(env, input.Apps)
	if err != nil {
		return nil, err
	}
	f, err := env.Folders.Create(ctx, input.Name, category)
	if err != nil {
		return nil, err
	}
	if len(apps) > 0 {
		if f, err = env.Folders.AddApps(ctx, f.ID, apps); err != nil {
			return nil, err
		}
	}
	return &FolderOutput{Folder: f}, nil
}

// AddAppsInput contains parameters for the AddApps operation.
type AddAppsInput struct {
	Folder FolderRef
	Apps   []string // app references or display names, required
}

// AddApps adds apps to a folder. Apps already in the folder are skipped.
func AddApps(ctx context.Context, env *Env, input AddAppsInput) (*FolderOutput, error) {
	if len(input.Apps) == 0 {
		return nil, errors.NewInvalidRequest("apps is required")
	}
	f, err := resolveFolder(env, input.Folder.ID, input.Folder.Name)
	if err != nil {
		return nil, err
	}
	apps, err := resolveApps(env, input.Apps)
	if err != nil {
		return nil, err
	}
	f, err = env.Folders.AddApps(ctx, f.ID, apps)
	if err != nil {
		return nil, err
	}
	return &FolderOutput{Folder: f}, nil
}

// RemoveAppInput contains parameters for the RemoveApp operation.
type RemoveAppInput struct {
	Folder FolderRef
	App    string // app reference or display name, required
}

// RemoveApp removes an app from a folder. Removing an absent app is not an error.
func RemoveApp(ctx context.Context, env *Env, input RemoveAppInput) (*FolderOutput, error) {
	f, err := resolveFolder(env, input.Folder.ID, input.Folder.Name)
	if err != nil {
		return nil, err
	}
	apps, err := resolveApps(env, []string{input.App})
	if err != nil {
		return nil, err
	}
	f, err = env.Folders.RemoveApp(ctx, f.ID, apps[0])
	if err != nil {
		return nil, err
	}
	return &FolderOutput{Folder: f}, nil
}

// RenameFolderInput contains parameters for the RenameFolder operation.
type RenameFolderInput struct {
	Folder  FolderRef
	NewName string // required
}

// RenameFolder changes a folder's name.
func RenameFolder(ctx context.Context, env *Env, input RenameFolderInput) (*FolderOutput, error) {
	f, err := resolveFolder(env, input.Folder.ID, input.Folder.Name)
	if err != nil {
		return nil, err
	}
	f, err = env.Folders.Rename(ctx, f.ID, input.NewName)
	if err != nil {
		return nil, err
	}
	return &FolderOutput{Folder: f}, nil
}

// SetFolderKindInput contains parameters for the SetFolderKind operation.
type SetFolderKindInput struct {
	Folder FolderRef
	Smart  bool
	Rule   string // optional when the folder already has a rule
}

// SetFolderKind turns a folder into a dynamic folder or back into a static one.
func SetFolderKind(ctx context.Context, env *Env, input SetFolderKindInput) (*FolderOutput, error) {
	f, err := resolveFolder(env, input.Folder.ID, input.Folder.Name)
	if err != nil {
		return nil, err
	}
	var rule *model.DynamicRule
	if strings.TrimSpace(input.Rule) != "" {
		if !input.Smart {
			return nil, errors.NewInvalidRequest("rule only applies to dynamic folders")
		}
		r, err := parseDynamicRule(input.Rule)
		if err != nil {
			return nil, err
		}
		rule = &r
	}
	f, err = env.Folders.SetKind(ctx, f.ID, input.Smart, rule)
	if err != nil {
		return nil, err
	}
	if f.IsDynamic() {
		env.Engine.Refresh(ctx)
		if refreshed, ok := env.Folders.Get(f.ID); ok {
			f = refreshed
		}
	}
	return &FolderOutput{Folder: f}, nil
}

// DeleteFolderOutput contains the result of the DeleteFolder operation.
type DeleteFolderOutput struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Deleted bool   `json:"deleted"`
}

// DeleteFolder removes a folder. Profiles keep their reference to it, which is
// ignored when their folders are listed.
func DeleteFolder(ctx context.Context, env *Env, ref FolderRef) (*DeleteFolderOutput, error) {
	f, err := resolveFolder(env, ref.ID, ref.Name)
	if err != nil {
		return nil, err
	}
	if err := env.Folders.Delete(ctx, f.ID); err != nil {
		return nil, err
	}
	return &DeleteFolderOutput{ID: f.ID, Name: f.Name, Deleted: true}, nil
}

// ListFoldersInput contains parameters for the ListFolders operation.
type ListFoldersInput struct {
	Category string // optional filter
	Kind     string // optional filter: "static" or "dynamic"
	Limit    int
	Offset   int
}

// FolderSummary is a folder without its app list.
type FolderSummary struct {
	ID       string           `json:"id"`
	Name     string           `json:"name"`
	Category model.Category   `json:"category"`
	Kind     model.FolderKind `json:"kind"`
	Rule     string           `json:"rule,omitempty"`
	Icon     string           `json:"icon,omitempty"`
	AppCount int              `json:"app_count"`
}

// ListFoldersOutput contains the result of the ListFolders operation.
type ListFoldersOutput struct {
	Items      []FolderSummary `json:"items"`
	Pagination Pagination      `json:"pagination"`
}

// ListFolders returns folder summaries in creation order.
func ListFolders(_ context.Context, env *Env, input ListFoldersInput) (*ListFoldersOutput, error) {
	var category model.Category
	if strings.TrimSpace(input.Category) != "" {
		c, err := model.ParseCategory(input.Category)
		if err != nil {
			return nil, errors.NewInvalidRequest(err.Error())
		}
		category = c
	}
	kind := model.FolderKind(strings.ToLower(strings.TrimSpace(input.Kind)))
	if kind != "" && kind != model.KindStatic && kind != model.KindDynamic {
		return nil, errors.NewInvalidRequest(fmt.Sprintf("kind must be static or dynamic, got %q", input.Kind))
	}

	var matched []FolderSummary
	for _, f := range env.Folders.All() {
		if category != "" && f.Category != category {
			continue
		}
		if kind != "" && f.Kind != kind {
			continue
		}
		matched = append(matched, summarize(f))
	}

	page, start, end := paginate(len(matched), input.Limit, input.Offset)
	items := []FolderSummary{}
	if start < end {
		items = matched[start:end]
	}
	return &ListFoldersOutput{Items: items, Pagination: page}, nil
}

func summarize(f model.Folder) FolderSummary {
	s := FolderSummary{
		ID:       f.ID,
		Name:     f.Name,
		Category: f.Category,
		Kind:     f.Kind,
		Icon:     f.Icon,
		AppCount: len(f.Apps),
	}
	if f.Rule != nil {
		s.Rule = f.Rule.String()
	}
	return s
}

// AppView is an app reference with its display name.
type AppView struct {
	App  string `json:"app"`
	Name string `json:"name,omitempty"`
}

// ShowFolderOutput contains the result of the ShowFolder operation.
type ShowFolderOutput struct {
	FolderSummary
	Apps []AppView `json:"apps"`
}

// ShowFolder returns a folder with display names for its apps.
func ShowFolder(_ context.Context, env *Env, ref FolderRef) (*ShowFolderOutput, error) {
	f, err := resolveFolder(env, ref.ID, ref.Name)
	if err != nil {
		return nil, err
	}
	return &ShowFolderOutput{FolderSummary: summarize(f), Apps: appViews(env, f.Apps)}, nil
}

func appViews(env *Env, apps []string) []AppView {
	out := make([]AppView, len(apps))
	for i, a := range apps {
		out[i] = AppView{App: a, Name: env.appName(a)}
	}
	return out
}

// RefreshFoldersOutput contains the result of the RefreshFolders operation.
type RefreshFoldersOutput struct {
	Refreshed []model.Folder `json:"refreshed"`
}

// RefreshFolders recomputes every dynamic folder.
func RefreshFolders(ctx context.Context, env *Env) (*RefreshFoldersOutput, error) {
	return &RefreshFoldersOutput{Refreshed: env.Engine.Refresh(ctx)}, nil
}

// resolveApps maps each entry to an app reference. An entry matching an installed
// app's display name is replaced by its reference; anything else is taken as a
// reference as given.
func resolveApps(env *Env, apps []string) ([]string, error) {
	out := make([]string, 0, len(apps))
	for _, a := range apps {
		a = strings.TrimSpace(a)
		if a == "" {
			return nil, errors.NewInvalidRequest("app must not be empty")
		}
		if ref, ok := catalog.BundleFor(env.Catalog, a); ok {
			a = ref
		}
		out = append(out, a)
	}
	return model.Dedupe(out), nil
}
