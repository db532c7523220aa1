package ops

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/hpungsan/shelf/internal/model"
)

// ProfileRef selects a profile by id or name.
type ProfileRef struct {
	ID   string
	Name string
}

// CreateProfileInput contains parameters for the CreateProfile operation.
type CreateProfileInput struct {
	Name    string      // required
	Folders []FolderRef // resolved to ids at creation
	Rules   []RuleInput // evaluated in order; any match activates the profile
}

// ProfileOutput wraps a single profile.
type ProfileOutput struct {
	Profile model.Profile `json:"profile"`
}

// CreateProfile appends a profile. Profiles created later have lower priority
// when several match the same context.
func CreateProfile(ctx context.Context, env *Env, input CreateProfileInput) (*ProfileOutput, error) {
	ids, err := folderIDs(env, input.Folders)
	if err != nil {
		return nil, err
	}
	rules, err := buildRules(input.Rules)
	if err != nil {
		return nil, err
	}
	p, err := env.Profiles.Create(ctx, input.Name, ids, rules)
	if err != nil {
		return nil, err
	}
	return &ProfileOutput{Profile: p}, nil
}

// UpdateProfileInput contains parameters for the UpdateProfile operation.
// Nil fields are left unchanged.
type UpdateProfileInput struct {
	Profile       ProfileRef
	NewName       *string
	AddFolders    []FolderRef
	RemoveFolders []FolderRef
	Rules         *[]RuleInput // replaces all rules
	AddRules      []RuleInput  // appended after Rules is applied
}

// UpdateProfile edits a profile in place. References and rules are resolved
// first; the changes are then applied to the latest copy of the profile under the
// registry lock, so concurrent updates to the same profile all take effect.
func UpdateProfile(ctx context.Context, env *Env, input UpdateProfileInput) (*ProfileOutput, error) {
	p, err := resolveProfile(env, input.Profile.ID, input.Profile.Name)
	if err != nil {
		return nil, err
	}

	add, err := folderIDs(env, input.AddFolders)
	if err != nil {
		return nil, err
	}

	remove := make([]string, 0, len(input.RemoveFolders))
	for _, ref := range input.RemoveFolders {
		id := ref.ID
		if id == "" {
			// a deleted folder can only be removed by id
			f, err := resolveFolder(env, ref.ID, ref.Name)
			if err != nil {
				return nil, err
			}
			id = f.ID
		}
		remove = append(remove, id)
	}

	var replace []model.ActivationRule
	if input.Rules != nil {
		if replace, err = buildRules(*input.Rules); err != nil {
			return nil, err
		}
	}
	more, err := buildRules(input.AddRules)
	if err != nil {
		return nil, err
	}

	updated, err := env.Profiles.Edit(ctx, p.ID, func(stored *model.Profile) error {
		if input.NewName != nil {
			stored.Name = *input.NewName
		}
		stored.FolderIDs = append(stored.FolderIDs, add...)
		stored.FolderIDs = slices.DeleteFunc(stored.FolderIDs, func(id string) bool { return slices.Contains(remove, id) })
		if input.Rules != nil {
			stored.ActivationRules = slices.Clone(replace)
		}
		stored.ActivationRules = append(stored.ActivationRules, more...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &ProfileOutput{Profile: updated}, nil
}

// DeleteProfileOutput contains the result of the DeleteProfile operation.
type DeleteProfileOutput struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Deleted bool   `json:"deleted"`

	// WasCurrent reports that the deleted profile was current; it stays current
	// until the next activation or explicit switch
	WasCurrent bool `json:"was_current"`
}

// DeleteProfile removes a profile.
func DeleteProfile(ctx context.Context, env *Env, ref ProfileRef) (*DeleteProfileOutput, error) {
	p, err := resolveProfile(env, ref.ID, ref.Name)
	if err != nil {
		return nil, err
	}
	if err := env.Profiles.Delete(ctx, p.ID); err != nil {
		return nil, err
	}
	cur, ok := env.Profiles.Current()
	return &DeleteProfileOutput{ID: p.ID, Name: p.Name, Deleted: true, WasCurrent: ok && cur.ID == p.ID}, nil
}

// ProfileSummary is a profile with its current flag.
type ProfileSummary struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Current     bool     `json:"current"`
	FolderCount int      `json:"folder_count"`
	Rules       []string `json:"rules"`
}

// ListProfilesOutput contains the result of the ListProfiles operation.
type ListProfilesOutput struct {
	Items []ProfileSummary `json:"items"`
}

// ListProfiles returns profiles in priority order. FolderCount ignores folders
// that no longer exist.
func ListProfiles(_ context.Context, env *Env) (*ListProfilesOutput, error) {
	cur, hasCur := env.Profiles.Current()
	items := []ProfileSummary{}
	for _, p := range env.Profiles.All() {
		items = append(items, ProfileSummary{
			ID:          p.ID,
			Name:        p.Name,
			Current:     hasCur && cur.ID == p.ID,
			FolderCount: len(env.Folders.Resolve(p.FolderIDs)),
			Rules:       describeRules(p.ActivationRules),
		})
	}
	return &ListProfilesOutput{Items: items}, nil
}

// ProfileDetail is a profile with its resolved folders.
type ProfileDetail struct {
	Profile model.Profile  `json:"profile"`
	Folders []model.Folder `json:"folders"`
}

// CurrentProfileOutput contains the result of the CurrentProfile operation.
type CurrentProfileOutput struct {
	Current *ProfileDetail `json:"current"`
}

// CurrentProfile returns the current profile, if any, with its folders.
func CurrentProfile(_ context.Context, env *Env) (*CurrentProfileOutput, error) {
	p, ok := env.Profiles.Current()
	if !ok {
		return &CurrentProfileOutput{}, nil
	}
	return &CurrentProfileOutput{Current: &ProfileDetail{Profile: p, Folders: env.Folders.Resolve(p.FolderIDs)}}, nil
}

// UseProfile makes a profile current until the next activation pass selects another.
func UseProfile(ctx context.Context, env *Env, ref ProfileRef) (*ProfileOutput, error) {
	p, err := resolveProfile(env, ref.ID, ref.Name)
	if err != nil {
		return nil, err
	}
	env.Profiles.SetCurrent(ctx, &p)
	return &ProfileOutput{Profile: p}, nil
}

// ProfileFolders returns the profile's folders that still exist, in profile order.
func ProfileFolders(_ context.Context, env *Env, ref ProfileRef) (*ProfileDetail, error) {
	p, err := resolveProfile(env, ref.ID, ref.Name)
	if err != nil {
		return nil, err
	}
	return &ProfileDetail{Profile: p, Folders: env.Folders.Resolve(p.FolderIDs)}, nil
}

func folderIDs(env *Env, refs []FolderRef) ([]string, error) {
	ids := make([]string, 0, len(refs))
	for _, ref := range refs {
		f, err := resolveFolder(env, ref.ID, ref.Name)
		if err != nil {
			return nil, err
		}
		ids = append(ids, f.ID)
	}
	return ids, nil
}

func describeRules(rules []model.ActivationRule) []string {
	out := make([]string, 0, len(rules))
	for _, r := range rules {
		out = append(out, describeRule(r))
	}
	return out
}

func describeRule(r model.ActivationRule) string {
	switch {
	case r.TimeWindow != nil:
		s := fmt.Sprintf("time %s-%s", r.TimeWindow.Start, r.TimeWindow.End)
		if len(r.TimeWindow.Days) > 0 {
			days := make([]string, len(r.TimeWindow.Days))
			for i, d := range r.TimeWindow.Days {
				days[i] = d.String()[:3]
			}
			s += " on " + strings.Join(days, ",")
		}
		return s
	case r.Location != nil:
		return fmt.Sprintf("location %.5f,%.5f within %.0fm", r.Location.Latitude, r.Location.Longitude, r.Location.RadiusMeters)
	case r.AppLaunch != nil:
		return "launch " + r.AppLaunch.AppRef
	}
	return string(r.Type)
}
