package ops

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hpungsan/shelf/internal/errors"
)

func launch(t *testing.T, env *Env, app string, times int) {
	t.Helper()
	for range times {
		_, err := RecordLaunch(context.Background(), env, RecordLaunchInput{App: app})
		require.NoError(t, err)
	}
}

func TestRecordLaunch(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	out, err := RecordLaunch(ctx, env, RecordLaunchInput{App: "Maps"})
	require.NoError(t, err)
	require.Equal(t, "com.apple.Maps", out.Record.AppRef)
	require.Equal(t, 1, out.Record.UsageCount)
	require.True(t, out.Record.LastUsedAt.Equal(testNow))
	require.Nil(t, out.Activation)

	_, err = RecordLaunch(ctx, env, RecordLaunchInput{App: "  "})
	require.True(t, errors.Is(err, errors.ErrInvalidRequest))
}

func TestRecordLaunch_ActivatesAppLaunchProfile(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	_, err := CreateProfile(ctx, env, CreateProfileInput{
		Name:  "Navigation",
		Rules: []RuleInput{{Type: "app_launch", App: "com.apple.Maps"}},
	})
	require.NoError(t, err)

	out, err := RecordLaunch(ctx, env, RecordLaunchInput{App: "com.slack", Evaluate: true})
	require.NoError(t, err)
	require.NotNil(t, out.Activation)
	require.False(t, out.Activation.Matched)
	require.Equal(t, "Work Mode", out.Activation.Current.Name)

	out, err = RecordLaunch(ctx, env, RecordLaunchInput{App: "Maps", Evaluate: true})
	require.NoError(t, err)
	require.True(t, out.Activation.Matched)
	require.True(t, out.Activation.Changed)
	require.Equal(t, "Navigation", out.Activation.Current.Name)
}

func TestEvaluate(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	_, err := CreateProfile(ctx, env, CreateProfileInput{
		Name:  "Commute",
		Rules: []RuleInput{{Type: "time_window", Start: "08:00", End: "09:00", Days: "mon-fri"}},
	})
	require.NoError(t, err)
	_, err = CreateProfile(ctx, env, CreateProfileInput{
		Name:  "Berlin",
		Rules: []RuleInput{{Type: "location", Latitude: 52.52, Longitude: 13.405, RadiusMeters: 500}},
	})
	require.NoError(t, err)

	res, err := Evaluate(ctx, env, EvaluateInput{})
	require.NoError(t, err)
	require.True(t, res.Changed)
	require.Equal(t, "Commute", res.Current.Name)

	saturday := time.Date(2026, 5, 2, 8, 30, 0, 0, time.UTC)
	res, err = Evaluate(ctx, env, EvaluateInput{At: &saturday})
	require.NoError(t, err)
	require.False(t, res.Matched)
	require.Equal(t, "Commute", res.Current.Name, "no match keeps current")

	lat, lon := 52.521, 13.405
	res, err = Evaluate(ctx, env, EvaluateInput{At: &saturday, Latitude: &lat, Longitude: &lon})
	require.NoError(t, err)
	require.Equal(t, "Berlin", res.Current.Name)

	_, err = Evaluate(ctx, env, EvaluateInput{Latitude: &lat})
	require.True(t, errors.Is(err, errors.ErrInvalidRequest))

	bad := 95.0
	_, err = Evaluate(ctx, env, EvaluateInput{Latitude: &bad, Longitude: &lon})
	require.True(t, errors.Is(err, errors.ErrInvalidRequest))
}

func TestEvaluate_RefreshesDynamicFolders(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	_, err := CreateFolder(ctx, env, CreateFolderInput{Name: "Recent", Rule: "recently_used:2"})
	require.NoError(t, err)

	launch(t, env, "com.chess", 1)
	res, err := Evaluate(ctx, env, EvaluateInput{})
	require.NoError(t, err)
	require.Len(t, res.Refreshed, 1)
	require.Equal(t, []string{"com.chess"}, res.Refreshed[0].Apps)
}

func TestUsageStats(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	launch(t, env, "com.chess", 3)
	launch(t, env, "com.golf", 1)
	launch(t, env, "Maps", 5)

	out, err := UsageStats(ctx, env, UsageStatsInput{})
	require.NoError(t, err)
	require.Equal(t, 3, out.TotalApps)
	require.Equal(t, DefaultInsightThreshold, out.Threshold)
	require.Len(t, out.MostUsed, 2)
	require.Equal(t, UsageView{App: "com.apple.Maps", Name: "Maps", UsageCount: 5, LastUsedAt: testNow}, out.MostUsed[0])
	require.Equal(t, "com.chess", out.MostUsed[1].App)
	require.Equal(t, []string{"com.golf"}, out.Infrequent)

	out, err = UsageStats(ctx, env, UsageStatsInput{Limit: 1, Threshold: 6})
	require.NoError(t, err)
	require.Empty(t, out.MostUsed)
	require.Len(t, out.Infrequent, 3)
}
