package suggest

import (
	"context"

	"github.com/hpungsan/shelf/internal/errors"
	"github.com/hpungsan/shelf/internal/model"
)

// FolderCreator is the part of the folder registry Apply writes to.
type FolderCreator interface {
	Create(ctx context.Context, name string, category model.Category) (model.Folder, error)
	AddApps(ctx context.Context, folderID string, appRefs []string) (model.Folder, error)
}

// Apply creates one suggested folder per suggestion, filled with its apps. It stops
// at the first failure and returns the folders created so far together with the
// error, which lists them under the "created" detail. A folder whose apps could
// not be added is included as created.
func Apply(ctx context.Context, fc FolderCreator, suggestions []Suggestion) ([]model.Folder, error) {
	created := make([]model.Folder, 0, len(suggestions))
	for _, s := range suggestions {
		f, err := fc.Create(ctx, s.Label, model.CategorySuggested)
		if err != nil {
			return created, partial(err, created)
		}
		filled, err := fc.AddApps(ctx, f.ID, s.Apps)
		if err != nil {
			created = append(created, f)
			return created, partial(err, created)
		}
		created = append(created, filled)
	}
	return created, nil
}

func partial(err error, created []model.Folder) error {
	if len(created) == 0 {
		return err
	}
	refs := make([]map[string]string, len(created))
	for i, f := range created {
		refs[i] = map[string]string{"id": f.ID, "name": f.Name}
	}
	return errors.WithDetail(err, "created", refs)
}
