package suggest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hpungsan/shelf/internal/catalog"
	"github.com/hpungsan/shelf/internal/errors"
	"github.com/hpungsan/shelf/internal/model"
)

type fixedUsage []string

func (f fixedUsage) AppsAtOrAbove(int) []string { return f }

type countingUsage map[string]int

func (c countingUsage) AppsAtOrAbove(threshold int) []string {
	var out []string
	for _, app := range []string{"g1", "g2", "g3", "m1", "m2", "s1"} {
		if c[app] >= threshold {
			out = append(out, app)
		}
	}
	return out
}

func testCatalog() *catalog.Static {
	return catalog.NewStatic([]catalog.App{
		{AppRef: "g1", Name: "Chess Game"},
		{AppRef: "g2", Name: "Game Center"},
		{AppRef: "g3", Name: "Golf Game"},
		{AppRef: "m1", Name: "Mail"},
		{AppRef: "m2", Name: "Calendar"},
		{AppRef: "s1", Name: "Team Chat"},
	})
}

func TestSuggest_GroupOfThreeQualifiesGroupOfTwoDoesNot(t *testing.T) {
	e := New(testCatalog(), 0, 0)

	got := e.Suggest(fixedUsage{"m1", "g1", "m2", "g2", "g3", "s1"}, nil)

	require.Equal(t, []Suggestion{{Label: catalog.LabelGames, Apps: []string{"g1", "g2", "g3"}}}, got)
}

func TestSuggest_ExactlyTwoNeverSuggests(t *testing.T) {
	e := New(testCatalog(), 0, 0)
	require.Empty(t, e.Suggest(fixedUsage{"g1", "g2"}, nil))
}

func TestSuggest_UsesUsageThreshold(t *testing.T) {
	e := New(testCatalog(), 0, 0)
	usage := countingUsage{"g1": 5, "g2": 9, "g3": 4}

	require.Empty(t, e.Suggest(usage, nil))

	usage["g3"] = 5
	got := e.Suggest(usage, nil)
	require.Len(t, got, 1)
	require.Equal(t, []string{"g1", "g2", "g3"}, got[0].Apps)
}

func TestSuggest_SkipsExistingFolderNames(t *testing.T) {
	e := New(testCatalog(), 0, 0)
	existing := []model.Folder{{ID: "f1", Name: "  games ", Category: model.CategoryCustom}}

	require.Empty(t, e.Suggest(fixedUsage{"g1", "g2", "g3"}, existing))
}

func TestSuggest_SkipsUnnamedApps(t *testing.T) {
	e := New(testCatalog(), 0, 0)
	require.Empty(t, e.Suggest(fixedUsage{"g1", "g2", "unknown.app"}, nil))
}

func TestSuggest_MinGroupOverride(t *testing.T) {
	e := New(testCatalog(), 0, 2)

	got := e.Suggest(fixedUsage{"m1", "m2", "s1"}, nil)
	require.Equal(t, []Suggestion{{Label: catalog.LabelProductivity, Apps: []string{"m1", "m2"}}}, got)
}

func TestSuggest_NilCollaborators(t *testing.T) {
	require.Empty(t, New(nil, 0, 0).Suggest(fixedUsage{"g1"}, nil))
	require.Empty(t, New(testCatalog(), 0, 0).Suggest(nil, nil))
}

type recordingCreator struct {
	folders   []model.Folder
	failOn    string
	failAddOn string
}

func (r *recordingCreator) Create(_ context.Context, name string, category model.Category) (model.Folder, error) {
	if name == r.failOn {
		return model.Folder{}, errors.NewNameAlreadyExists("folder", name)
	}
	f := model.Folder{ID: name, Name: name, Category: category, Kind: model.KindStatic}
	r.folders = append(r.folders, f)
	return f, nil
}

func (r *recordingCreator) AddApps(_ context.Context, id string, apps []string) (model.Folder, error) {
	if id == r.failAddOn {
		return model.Folder{}, errors.NewInvalidRequest("app reference must not be empty")
	}
	for i := range r.folders {
		if r.folders[i].ID == id {
			r.folders[i].Apps = append(r.folders[i].Apps, apps...)
			return r.folders[i], nil
		}
	}
	return model.Folder{}, errors.NewNotFound("folder", id)
}

func TestApply(t *testing.T) {
	rc := &recordingCreator{}
	got, err := Apply(context.Background(), rc, []Suggestion{
		{Label: "Games", Apps: []string{"g1", "g2", "g3"}},
		{Label: "Social", Apps: []string{"s1", "s2", "s3"}},
	})
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, model.CategorySuggested, got[0].Category)
	require.Equal(t, []string{"s1", "s2", "s3"}, got[1].Apps)
}

func TestApply_StopsAtFirstFailure(t *testing.T) {
	rc := &recordingCreator{failOn: "Social"}
	got, err := Apply(context.Background(), rc, []Suggestion{
		{Label: "Games", Apps: []string{"g1"}},
		{Label: "Social", Apps: []string{"s1"}},
		{Label: "Misc", Apps: []string{"m1"}},
	})
	require.True(t, errors.Is(err, errors.ErrNameAlreadyExists))
	require.Len(t, got, 1)
	require.Equal(t, "Games", got[0].Name)

	sErr, ok := err.(*errors.ShelfError)
	require.True(t, ok)
	require.Equal(t, []map[string]string{{"id": "Games", "name": "Games"}}, sErr.Details["created"])
}

func TestApply_FailedFillStillReportsFolder(t *testing.T) {
	rc := &recordingCreator{failAddOn: "Social"}
	got, err := Apply(context.Background(), rc, []Suggestion{
		{Label: "Games", Apps: []string{"g1"}},
		{Label: "Social", Apps: []string{"s1"}},
	})
	require.True(t, errors.Is(err, errors.ErrInvalidRequest))
	require.Len(t, got, 2)
	require.Equal(t, "Social", got[1].Name)
	require.Empty(t, got[1].Apps)
}
