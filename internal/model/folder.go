package model

import (
	"fmt"
	"regexp"
	"slices"
	"strings"
)

// Category classifies a folder.
type Category string

const (
	CategorySocial        Category = "social"
	CategoryProductivity  Category = "productivity"
	CategoryFitness       Category = "fitness"
	CategoryEntertainment Category = "entertainment"
	CategoryTravel        Category = "travel"
	CategoryWork          Category = "work"
	CategoryCustom        Category = "custom"
	CategorySuggested     Category = "suggested"
	CategoryDynamic       Category = "dynamic"
)

// Categories lists every valid category in declaration order.
var Categories = []Category{
	CategorySocial, CategoryProductivity, CategoryFitness, CategoryEntertainment,
	CategoryTravel, CategoryWork, CategoryCustom, CategorySuggested, CategoryDynamic,
}

// ParseCategory accepts a category name in any case. Empty input means custom.
func ParseCategory(s string) (Category, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return CategoryCustom, nil
	}
	c := Category(s)
	if !slices.Contains(Categories, c) {
		return "", fmt.Errorf("unknown category %q", s)
	}
	return c, nil
}

// FolderKind distinguishes manually curated folders from rule-derived ones.
type FolderKind string

const (
	KindStatic  FolderKind = "static"
	KindDynamic FolderKind = "dynamic"
)

// Folder is a named, ordered, duplicate-free collection of app references.
type Folder struct {
	// ID is a ULID assigned at creation and never changed
	ID string `json:"id"`

	Name     string   `json:"name"`
	Category Category `json:"category"`

	// Apps holds bundle identifiers in display order
	Apps []string `json:"apps"`

	Kind FolderKind `json:"kind"`

	// Rule is set only for dynamic folders
	Rule *DynamicRule `json:"rule,omitempty"`

	// Icon is a symbol name hint derived from the folder name
	Icon string `json:"icon,omitempty"`
}

// IsDynamic reports whether the folder's apps are recomputed from its rule.
func (f *Folder) IsDynamic() bool {
	return f.Kind == KindDynamic
}

// Contains reports whether appRef is in the folder.
func (f *Folder) Contains(appRef string) bool {
	return slices.Contains(f.Apps, appRef)
}

// Clone returns a deep copy.
func (f Folder) Clone() Folder {
	out := f
	out.Apps = slices.Clone(f.Apps)
	if out.Apps == nil {
		out.Apps = []string{}
	}
	if f.Rule != nil {
		r := *f.Rule
		out.Rule = &r
	}
	return out
}

// Validate checks the folder's invariants.
func (f *Folder) Validate() error {
	if f.ID == "" {
		return fmt.Errorf("folder id is empty")
	}
	if strings.TrimSpace(f.Name) == "" {
		return fmt.Errorf("folder %s has an empty name", f.ID)
	}
	seen := make(map[string]bool, len(f.Apps))
	for _, app := range f.Apps {
		if app == "" {
			return fmt.Errorf("folder %s contains an empty app reference", f.ID)
		}
		if seen[app] {
			return fmt.Errorf("folder %s contains %q twice", f.ID, app)
		}
		seen[app] = true
	}
	switch f.Kind {
	case KindStatic:
		if f.Rule != nil {
			return fmt.Errorf("static folder %s carries a rule", f.ID)
		}
	case KindDynamic:
		if f.Rule == nil {
			return fmt.Errorf("dynamic folder %s has no rule", f.ID)
		}
		return f.Rule.Validate()
	default:
		return fmt.Errorf("folder %s has unknown kind %q", f.ID, f.Kind)
	}
	return nil
}

// Dedupe returns apps with empty and repeated references removed, keeping first occurrences.
func Dedupe(apps []string) []string {
	out := make([]string, 0, len(apps))
	seen := make(map[string]bool, len(apps))
	for _, a := range apps {
		if a == "" || seen[a] {
			continue
		}
		seen[a] = true
		out = append(out, a)
	}
	return out
}

var whitespaceRegex = regexp.MustCompile(`\s+`)

// NormalizeName trims, lowercases and collapses internal whitespace.
// Used for name comparisons only; the raw name is what gets stored.
func NormalizeName(s string) string {
	s = strings.TrimSpace(s)
	s = strings.ToLower(s)
	return whitespaceRegex.ReplaceAllString(s, " ")
}
