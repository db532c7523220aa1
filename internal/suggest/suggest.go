// Package suggest proposes folders by grouping frequently used apps into categories.
// It never mutates state; callers create the folders it proposes.
package suggest

import (
	"github.com/hpungsan/shelf/internal/catalog"
	"github.com/hpungsan/shelf/internal/model"
)

// Defaults for Engine thresholds.
const (
	DefaultMinUsage = 5
	DefaultMinGroup = 3
)

// Suggestion is a proposed folder: a category label and the apps to put in it.
type Suggestion struct {
	Label string   `json:"label"`
	Apps  []string `json:"apps"`
}

// UsageReader is the part of the usage store the engine needs.
type UsageReader interface {
	AppsAtOrAbove(threshold int) []string
}

// Engine groups apps used at least MinUsage times by keyword category and proposes
// a folder for every group of at least MinGroup apps.
type Engine struct {
	Catalog  catalog.AppCatalog
	MinUsage int
	MinGroup int
}

// New returns an Engine. Non-positive thresholds take the defaults.
func New(c catalog.AppCatalog, minUsage, minGroup int) *Engine {
	if minUsage <= 0 {
		minUsage = DefaultMinUsage
	}
	if minGroup <= 0 {
		minGroup = DefaultMinGroup
	}
	return &Engine{Catalog: c, MinUsage: minUsage, MinGroup: minGroup}
}

// Suggest returns one suggestion per qualifying group whose label is not already
// the name of an existing folder. Groups appear in the order their first app was
// first used; apps the catalog cannot name are skipped.
func (e *Engine) Suggest(usage UsageReader, existing []model.Folder) []Suggestion {
	if usage == nil || e.Catalog == nil {
		return []Suggestion{}
	}

	taken := make(map[string]bool, len(existing))
	for _, f := range existing {
		taken[model.NormalizeName(f.Name)] = true
	}

	var labels []string
	groups := make(map[string][]string)
	for _, app := range usage.AppsAtOrAbove(e.MinUsage) {
		name, ok := e.Catalog.NameOf(app)
		if !ok {
			continue
		}
		label := catalog.Classify(name)
		if _, seen := groups[label]; !seen {
			labels = append(labels, label)
		}
		groups[label] = append(groups[label], app)
	}

	out := []Suggestion{}
	for _, label := range labels {
		apps := groups[label]
		if len(apps) < e.MinGroup || taken[model.NormalizeName(label)] {
			continue
		}
		out = append(out, Suggestion{Label: label, Apps: apps})
	}
	return out
}
