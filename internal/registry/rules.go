package registry

import (
	"strings"

	"github.com/hpungsan/shelf/internal/catalog"
	"github.com/hpungsan/shelf/internal/model"
)

// UsageReader is the part of the usage store dynamic rules read.
type UsageReader interface {
	MostUsed(n int) []string
	RecentlyUsed(n int) []string
}

// RuleEnv is what dynamic folder rules are evaluated against. Either field may
// be nil; rules that need a missing collaborator yield no apps.
type RuleEnv struct {
	Usage   UsageReader
	Catalog catalog.AppCatalog
}

// EvaluateRule computes the apps a dynamic folder with rule should hold.
// It only reads from env.
func EvaluateRule(rule model.DynamicRule, env RuleEnv) []string {
	var apps []string
	switch rule.Type {
	case model.RuleMostUsed:
		if env.Usage != nil {
			apps = env.Usage.MostUsed(rule.Count)
		}
	case model.RuleRecentlyUsed:
		if env.Usage != nil {
			apps = env.Usage.RecentlyUsed(rule.Count)
		}
	case model.RuleByCategory:
		apps = appsInCategory(env.Catalog, rule.Label)
	}
	return model.Dedupe(apps)
}

func appsInCategory(c catalog.AppCatalog, label string) []string {
	if c == nil {
		return nil
	}
	label = strings.TrimSpace(label)
	var out []string
	for _, app := range c.AllInstalledApps() {
		category := app.Category
		if category == "" {
			if app.Name == "" {
				continue
			}
			category = catalog.Classify(app.Name)
		}
		if strings.EqualFold(category, label) {
			out = append(out, app.AppRef)
		}
	}
	return out
}
