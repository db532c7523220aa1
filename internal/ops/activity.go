package ops

import (
	"context"
	"strings"
	"time"

	"github.com/hpungsan/shelf/internal/activation"
	"github.com/hpungsan/shelf/internal/errors"
	"github.com/hpungsan/shelf/internal/model"
)

// RecordLaunchInput contains parameters for the RecordLaunch operation.
type RecordLaunchInput struct {
	App string // app reference or display name, required

	// Evaluate runs an activation pass for the launch, so app_launch rules can fire
	Evaluate bool
}

// RecordLaunchOutput contains the result of the RecordLaunch operation.
type RecordLaunchOutput struct {
	Record     model.UsageRecord  `json:"record"`
	Activation *activation.Result `json:"activation,omitempty"`
}

// RecordLaunch counts one launch of an app.
func RecordLaunch(ctx context.Context, env *Env, input RecordLaunchInput) (*RecordLaunchOutput, error) {
	if strings.TrimSpace(input.App) == "" {
		return nil, errors.NewInvalidRequest("app is required")
	}
	apps, err := resolveApps(env, []string{input.App})
	if err != nil {
		return nil, err
	}
	rec, err := env.Usage.RecordUsage(ctx, apps[0])
	if err != nil {
		return nil, err
	}
	out := &RecordLaunchOutput{Record: rec}
	if input.Evaluate {
		res := env.Engine.Evaluate(ctx, model.Snapshot{
			Now:         env.Now(),
			Location:    env.ConfiguredLocation(),
			LaunchedApp: rec.AppRef,
			Trigger:     model.TriggerLaunch,
		})
		out.Activation = &res
	}
	return out, nil
}

// EvaluateInput contains parameters for the Evaluate operation.
type EvaluateInput struct {
	At          *time.Time // default: now
	Latitude    *float64   // both or neither; default: configured location
	Longitude   *float64
	LaunchedApp string
}

// Evaluate runs one activation pass for the given context.
func Evaluate(ctx context.Context, env *Env, input EvaluateInput) (*activation.Result, error) {
	snap := model.Snapshot{Now: env.Now(), Trigger: model.TriggerRequest, Location: env.ConfiguredLocation()}
	if input.At != nil {
		snap.Now = *input.At
	}

	switch {
	case input.Latitude != nil && input.Longitude != nil:
		c := model.Coordinate{Latitude: *input.Latitude, Longitude: *input.Longitude}
		if !c.Valid() {
			return nil, errors.NewInvalidRequest("latitude must be in [-90, 90] and longitude in [-180, 180]")
		}
		snap.Location = &c
	case input.Latitude != nil || input.Longitude != nil:
		return nil, errors.NewInvalidRequest("latitude and longitude must be given together")
	}

	if app := strings.TrimSpace(input.LaunchedApp); app != "" {
		apps, err := resolveApps(env, []string{app})
		if err != nil {
			return nil, err
		}
		snap.LaunchedApp = apps[0]
		snap.Trigger = model.TriggerLaunch
	}

	res := env.Engine.Evaluate(ctx, snap)
	return &res, nil
}

// UsageStatsInput contains parameters for the UsageStats operation.
type UsageStatsInput struct {
	Limit     int // most-used entries to return, default 10
	Threshold int // launches separating frequent from infrequent apps, default 3
}

// UsageView is a usage record with the app's display name.
type UsageView struct {
	App        string    `json:"app"`
	Name       string    `json:"name,omitempty"`
	UsageCount int       `json:"usage_count"`
	LastUsedAt time.Time `json:"last_used_at"`
}

// UsageStatsOutput contains the result of the UsageStats operation.
type UsageStatsOutput struct {
	// MostUsed holds up to Limit apps at or above Threshold, most launched first
	MostUsed []UsageView `json:"most_used"`

	// Infrequent lists apps below Threshold in first-seen order
	Infrequent []string `json:"infrequent"`

	TotalApps int `json:"total_apps"`
	Threshold int `json:"threshold"`
}

// UsageStats summarizes the usage store.
func UsageStats(_ context.Context, env *Env, input UsageStatsInput) (*UsageStatsOutput, error) {
	limit := input.Limit
	if limit <= 0 {
		limit = 10
	}
	threshold := input.Threshold
	if threshold <= 0 {
		threshold = DefaultInsightThreshold
	}

	out := &UsageStatsOutput{
		MostUsed:   []UsageView{},
		Infrequent: env.Usage.AppsBelow(threshold),
		TotalApps:  env.Usage.Len(),
		Threshold:  threshold,
	}
	for _, app := range env.Usage.MostUsed(limit) {
		count := env.Usage.UsageCount(app)
		if count < threshold {
			break
		}
		last, _ := env.Usage.LastUsedAt(app)
		out.MostUsed = append(out.MostUsed, UsageView{
			App:        app,
			Name:       env.appName(app),
			UsageCount: count,
			LastUsedAt: last,
		})
	}
	return out, nil
}
