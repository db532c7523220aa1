package ops

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hpungsan/shelf/internal/errors"
	"github.com/hpungsan/shelf/internal/model"
)

func TestCreateFolder_StaticWithAppNames(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	out, err := CreateFolder(ctx, env, CreateFolderInput{
		Name: "Work",
		Apps: []string{"mail", "com.slack", "Mail", "com.unknown"},
	})
	require.NoError(t, err)
	require.Equal(t, model.CategoryCustom, out.Folder.Category)
	require.Equal(t, model.KindStatic, out.Folder.Kind)
	require.Equal(t, "briefcase", out.Folder.Icon)
	require.Equal(t, []string{"com.apple.mobilemail", "com.slack", "com.unknown"}, out.Folder.Apps)
}

func TestCreateFolder_DynamicIsFilledImmediately(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	for _, app := range []string{"com.chess", "com.chess", "com.golf"} {
		_, err := RecordLaunch(ctx, env, RecordLaunchInput{App: app})
		require.NoError(t, err)
	}

	out, err := CreateFolder(ctx, env, CreateFolderInput{Name: "Top", Rule: "most_used:1"})
	require.NoError(t, err)
	require.Equal(t, model.CategoryDynamic, out.Folder.Category)
	require.Equal(t, []string{"com.chess"}, out.Folder.Apps)

	_, err = CreateFolder(ctx, env, CreateFolderInput{Name: "Bad", Rule: "most_used:1", Apps: []string{"x"}})
	require.True(t, errors.Is(err, errors.ErrInvalidRequest))

	_, err = CreateFolder(ctx, env, CreateFolderInput{Name: "Bad", Rule: "sometimes"})
	require.True(t, errors.Is(err, errors.ErrInvalidRequest))

	_, err = CreateFolder(ctx, env, CreateFolderInput{Name: "Bad", Category: "hobbies"})
	require.True(t, errors.Is(err, errors.ErrInvalidRequest))
}

func TestFolderOps_AddRemoveRename(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	created, err := CreateFolder(ctx, env, CreateFolderInput{Name: "Play", Category: "entertainment"})
	require.NoError(t, err)

	out, err := AddApps(ctx, env, AddAppsInput{Folder: FolderRef{Name: "play"}, Apps: []string{"Chess Game", "com.golf"}})
	require.NoError(t, err)
	require.Equal(t, []string{"com.chess", "com.golf"}, out.Folder.Apps)

	out, err = AddApps(ctx, env, AddAppsInput{Folder: FolderRef{ID: created.Folder.ID}, Apps: []string{"com.golf"}})
	require.NoError(t, err)
	require.Len(t, out.Folder.Apps, 2)

	out, err = RemoveApp(ctx, env, RemoveAppInput{Folder: FolderRef{ID: created.Folder.ID}, App: "chess game"})
	require.NoError(t, err)
	require.Equal(t, []string{"com.golf"}, out.Folder.Apps)

	out, err = RenameFolder(ctx, env, RenameFolderInput{Folder: FolderRef{Name: "Play"}, NewName: "Games"})
	require.NoError(t, err)
	require.Equal(t, "Games", out.Folder.Name)
	require.Equal(t, created.Folder.ID, out.Folder.ID)

	_, err = AddApps(ctx, env, AddAppsInput{Folder: FolderRef{Name: "Play"}, Apps: []string{"x"}})
	require.True(t, errors.Is(err, errors.ErrNotFound))

	_, err = AddApps(ctx, env, AddAppsInput{Folder: FolderRef{Name: "Games"}})
	require.True(t, errors.Is(err, errors.ErrInvalidRequest))
}

func TestSetFolderKind(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	_, err := CreateFolder(ctx, env, CreateFolderInput{Name: "Mailers"})
	require.NoError(t, err)

	out, err := SetFolderKind(ctx, env, SetFolderKindInput{Folder: FolderRef{Name: "Mailers"}, Smart: true, Rule: "by_category:productivity"})
	require.NoError(t, err)
	require.True(t, out.Folder.IsDynamic())
	require.Equal(t, []string{"com.apple.mobilemail", "com.apple.mobilecal", "com.readdle.spark"}, out.Folder.Apps)

	out, err = SetFolderKind(ctx, env, SetFolderKindInput{Folder: FolderRef{Name: "Mailers"}})
	require.NoError(t, err)
	require.False(t, out.Folder.IsDynamic())
	require.Len(t, out.Folder.Apps, 3, "static conversion keeps contents")

	_, err = SetFolderKind(ctx, env, SetFolderKindInput{Folder: FolderRef{Name: "Mailers"}, Rule: "most_used:2"})
	require.True(t, errors.Is(err, errors.ErrInvalidRequest))
}

func TestListAndShowFolders(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	_, _ = CreateFolder(ctx, env, CreateFolderInput{Name: "Work", Category: "work", Apps: []string{"Mail"}})
	_, _ = CreateFolder(ctx, env, CreateFolderInput{Name: "Recent", Rule: "recently_used:4"})
	_, _ = CreateFolder(ctx, env, CreateFolderInput{Name: "Fun", Category: "entertainment"})

	list, err := ListFolders(ctx, env, ListFoldersInput{})
	require.NoError(t, err)
	require.Len(t, list.Items, 3)
	require.Equal(t, 3, list.Pagination.Total)
	require.Equal(t, "recently_used:4", list.Items[1].Rule)
	require.Equal(t, 1, list.Items[0].AppCount)

	list, err = ListFolders(ctx, env, ListFoldersInput{Kind: "dynamic"})
	require.NoError(t, err)
	require.Len(t, list.Items, 1)

	list, err = ListFolders(ctx, env, ListFoldersInput{Category: "entertainment"})
	require.NoError(t, err)
	require.Equal(t, "Fun", list.Items[0].Name)

	list, err = ListFolders(ctx, env, ListFoldersInput{Limit: 2, Offset: 2})
	require.NoError(t, err)
	require.Len(t, list.Items, 1)
	require.False(t, list.Pagination.HasMore)

	_, err = ListFolders(ctx, env, ListFoldersInput{Kind: "smart"})
	require.True(t, errors.Is(err, errors.ErrInvalidRequest))

	show, err := ShowFolder(ctx, env, FolderRef{Name: "work"})
	require.NoError(t, err)
	require.Equal(t, []AppView{{App: "com.apple.mobilemail", Name: "Mail"}}, show.Apps)
}

func TestDeleteFolder_LeavesProfileReference(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	work, _ := CreateFolder(ctx, env, CreateFolderInput{Name: "Work"})
	_, _ = CreateFolder(ctx, env, CreateFolderInput{Name: "Notes"})

	_, err := UpdateProfile(ctx, env, UpdateProfileInput{
		Profile:    ProfileRef{Name: "Work Mode"},
		AddFolders: []FolderRef{{Name: "Work"}, {Name: "Notes"}},
	})
	require.NoError(t, err)

	del, err := DeleteFolder(ctx, env, FolderRef{ID: work.Folder.ID})
	require.NoError(t, err)
	require.True(t, del.Deleted)

	detail, err := ProfileFolders(ctx, env, ProfileRef{Name: "Work Mode"})
	require.NoError(t, err)
	require.Contains(t, detail.Profile.FolderIDs, work.Folder.ID, "reference is kept")
	require.Len(t, detail.Folders, 1)
	require.Equal(t, "Notes", detail.Folders[0].Name)

	_, err = DeleteFolder(ctx, env, FolderRef{ID: work.Folder.ID})
	require.True(t, errors.Is(err, errors.ErrNotFound))
}
