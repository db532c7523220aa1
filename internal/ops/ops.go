package ops

import (
	"fmt"
	"strings"

	"github.com/hpungsan/shelf/internal/errors"
	"github.com/hpungsan/shelf/internal/model"
)

// Pagination limits
const (
	DefaultListLimit = 50
	MaxListLimit     = 500
)

// DefaultInsightThreshold is the launch count separating frequent from infrequent apps.
const DefaultInsightThreshold = 3

// Pagination contains pagination metadata for list operations.
type Pagination struct {
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	HasMore bool `json:"has_more"`
	Total   int  `json:"total"`
}

func paginate(total, limit, offset int) (Pagination, int, int) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	offset = max(offset, 0)
	start := min(offset, total)
	end := min(start+limit, total)
	return Pagination{Limit: limit, Offset: offset, HasMore: end < total, Total: total}, start, end
}

// Ref addresses a folder or profile by id or by name.
type Ref struct {
	ByID bool
	ID   string
	Name string
}

// ValidateRef checks that exactly one of id and name is given.
func ValidateRef(id, name string) (Ref, error) {
	id = strings.TrimSpace(id)
	name = strings.TrimSpace(name)

	switch {
	case id != "" && name != "":
		return Ref{}, errors.NewInvalidRequest("specify either id or name, not both")
	case id != "":
		return Ref{ByID: true, ID: id}, nil
	case name != "":
		return Ref{Name: name}, nil
	default:
		return Ref{}, errors.NewInvalidRequest("must specify either id or name")
	}
}

func (r Ref) String() string {
	if r.ByID {
		return r.ID
	}
	return r.Name
}

func resolveFolder(env *Env, id, name string) (model.Folder, error) {
	ref, err := ValidateRef(id, name)
	if err != nil {
		return model.Folder{}, err
	}
	var (
		f  model.Folder
		ok bool
	)
	if ref.ByID {
		f, ok = env.Folders.Get(ref.ID)
	} else {
		f, ok = env.Folders.ByName(ref.Name)
	}
	if !ok {
		return model.Folder{}, errors.NewNotFound("folder", ref.String())
	}
	return f, nil
}

func resolveProfile(env *Env, id, name string) (model.Profile, error) {
	ref, err := ValidateRef(id, name)
	if err != nil {
		return model.Profile{}, err
	}
	var (
		p  model.Profile
		ok bool
	)
	if ref.ByID {
		p, ok = env.Profiles.Get(ref.ID)
	} else {
		p, ok = env.Profiles.ByName(ref.Name)
	}
	if !ok {
		return model.Profile{}, errors.NewNotFound("profile", ref.String())
	}
	return p, nil
}

// RuleInput describes one activation rule in request form.
type RuleInput struct {
	Type string `json:"type"`

	// time_window
	Start string `json:"start,omitempty"`
	End   string `json:"end,omitempty"`
	Days  string `json:"days,omitempty"`

	// location
	Latitude     float64 `json:"latitude,omitempty"`
	Longitude    float64 `json:"longitude,omitempty"`
	RadiusMeters float64 `json:"radius_meters,omitempty"`

	// app_launch
	App string `json:"app,omitempty"`
}

// Build converts the input to an ActivationRule.
func (in RuleInput) Build() (model.ActivationRule, error) {
	var rule model.ActivationRule
	switch model.ActivationRuleType(strings.ToLower(strings.TrimSpace(in.Type))) {
	case model.RuleTimeWindow:
		start, err := model.ParseClock(in.Start)
		if err != nil {
			return rule, errors.NewInvalidRequest(err.Error())
		}
		end, err := model.ParseClock(in.End)
		if err != nil {
			return rule, errors.NewInvalidRequest(err.Error())
		}
		days, err := model.ParseWeekdays(in.Days)
		if err != nil {
			return rule, errors.NewInvalidRequest(err.Error())
		}
		rule = model.NewTimeWindowRule(start, end, days...)
	case model.RuleLocation:
		rule = model.NewLocationRule(in.Latitude, in.Longitude, in.RadiusMeters)
	case model.RuleAppLaunch:
		rule = model.NewAppLaunchRule(strings.TrimSpace(in.App))
	default:
		return rule, errors.NewInvalidRequest(fmt.Sprintf("unknown rule type %q (want time_window, location or app_launch)", in.Type))
	}
	if err := rule.Validate(); err != nil {
		return model.ActivationRule{}, errors.NewInvalidRequest(err.Error())
	}
	return rule, nil
}

func buildRules(inputs []RuleInput) ([]model.ActivationRule, error) {
	rules := make([]model.ActivationRule, 0, len(inputs))
	for i, in := range inputs {
		r, err := in.Build()
		if err != nil {
			msg := err.Error()
			if se, ok := err.(*errors.ShelfError); ok {
				msg = se.Message
			}
			return nil, errors.NewInvalidRequest(fmt.Sprintf("rules[%d]: %s", i, msg))
		}
		rules = append(rules, r)
	}
	return rules, nil
}

func parseDynamicRule(s string) (model.DynamicRule, error) {
	r, err := model.ParseDynamicRule(s)
	if err != nil {
		return model.DynamicRule{}, errors.NewInvalidRequest(err.Error())
	}
	return r, nil
}
