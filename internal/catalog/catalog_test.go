package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func sample() *Static {
	return NewStatic([]App{
		{AppRef: "com.apple.mobilemail", Name: "Mail"},
		{AppRef: "com.chess", Name: "Chess Game", Category: "board"},
		{AppRef: "com.slack", Name: "Slack Chat"},
		{AppRef: "", Name: "Ghost"},
		{AppRef: "com.apple.mobilemail", Name: "Duplicate"},
		{AppRef: "com.noname"},
	})
}

func TestStatic_NameOf(t *testing.T) {
	c := sample()

	name, ok := c.NameOf("com.apple.mobilemail")
	require.True(t, ok)
	require.Equal(t, "Mail", name)

	_, ok = c.NameOf("com.noname")
	require.False(t, ok)
	_, ok = c.NameOf("com.unknown")
	require.False(t, ok)
}

func TestStatic_AllInstalledApps(t *testing.T) {
	apps := sample().AllInstalledApps()
	require.Len(t, apps, 4)
	require.Equal(t, "com.apple.mobilemail", apps[0].AppRef)
	require.Equal(t, "Mail", apps[0].Name)
}

func TestCategoryOf(t *testing.T) {
	c := sample()

	cat, ok := CategoryOf(c, "com.chess")
	require.True(t, ok)
	require.Equal(t, "board", cat)

	cat, ok = CategoryOf(c, "com.slack")
	require.True(t, ok)
	require.Equal(t, LabelSocial, cat)

	_, ok = CategoryOf(c, "com.noname")
	require.False(t, ok)
	_, ok = CategoryOf(nil, "com.slack")
	require.False(t, ok)
}

func TestBundleFor(t *testing.T) {
	ref, ok := BundleFor(sample(), "  slack chat ")
	require.True(t, ok)
	require.Equal(t, "com.slack", ref)

	_, ok = BundleFor(sample(), "Telegram")
	require.False(t, ok)
}

func TestClassify(t *testing.T) {
	tests := map[string]string{
		"Mail":          LabelProductivity,
		"Calendar":      LabelProductivity,
		"Puzzle Game":   LabelGames,
		"Social Hub":    LabelSocial,
		"Team Chat":     LabelSocial,
		"Weather":       LabelMisc,
		"Gmail Games":   LabelProductivity,
		"":              LabelMisc,
	}
	for name, want := range tests {
		require.Equal(t, want, Classify(name), "Classify(%q)", name)
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()

	c, err := LoadFile(filepath.Join(dir, "missing.json"))
	require.NoError(t, err)
	require.Empty(t, c.AllInstalledApps())

	path := filepath.Join(dir, "apps.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"app_ref":"com.x","name":"X Game"}]`), 0600))
	c, err = LoadFile(path)
	require.NoError(t, err)
	name, ok := c.NameOf("com.x")
	require.True(t, ok)
	require.Equal(t, "X Game", name)

	require.NoError(t, os.WriteFile(path, []byte(`{`), 0600))
	_, err = LoadFile(path)
	require.Error(t, err)
}
