// Package catalog describes installed apps: display names and category tags.
package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
)

// App is one installed application.
type App struct {
	AppRef   string `json:"app_ref"`
	Name     string `json:"name"`
	Category string `json:"category,omitempty"`
}

// AppCatalog looks up installed apps.
type AppCatalog interface {
	// NameOf returns the display name of appRef.
	NameOf(appRef string) (string, bool)
	// AllInstalledApps lists every installed app in catalog order.
	AllInstalledApps() []App
}

// Static is an AppCatalog over a fixed list.
type Static struct {
	apps  []App
	byRef map[string]int
}

var _ AppCatalog = (*Static)(nil)

// NewStatic builds a catalog. Entries without an app reference are dropped and
// repeated references keep the first entry.
func NewStatic(apps []App) *Static {
	c := &Static{byRef: make(map[string]int, len(apps))}
	for _, a := range apps {
		a.AppRef = strings.TrimSpace(a.AppRef)
		if a.AppRef == "" {
			continue
		}
		if _, dup := c.byRef[a.AppRef]; dup {
			continue
		}
		c.byRef[a.AppRef] = len(c.apps)
		c.apps = append(c.apps, a)
	}
	return c
}

// LoadFile reads a JSON array of apps. A missing file yields an empty catalog.
func LoadFile(path string) (*Static, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return NewStatic(nil), nil
		}
		return nil, err
	}
	var apps []App
	if err := json.Unmarshal(data, &apps); err != nil {
		return nil, fmt.Errorf("parse catalog %s: %w", path, err)
	}
	return NewStatic(apps), nil
}

// NameOf implements AppCatalog.
func (c *Static) NameOf(appRef string) (string, bool) {
	i, ok := c.byRef[appRef]
	if !ok || c.apps[i].Name == "" {
		return "", false
	}
	return c.apps[i].Name, true
}

// AllInstalledApps implements AppCatalog.
func (c *Static) AllInstalledApps() []App {
	out := make([]App, len(c.apps))
	copy(out, c.apps)
	return out
}

// CategoryOf returns the category tag of appRef. Apps without an explicit tag are
// classified by display name.
func CategoryOf(c AppCatalog, appRef string) (string, bool) {
	if c == nil {
		return "", false
	}
	for _, a := range c.AllInstalledApps() {
		if a.AppRef != appRef {
			continue
		}
		if a.Category != "" {
			return a.Category, true
		}
		if a.Name == "" {
			return "", false
		}
		return Classify(a.Name), true
	}
	return "", false
}

// BundleFor returns the app reference whose display name equals name, ignoring case.
func BundleFor(c AppCatalog, name string) (string, bool) {
	if c == nil {
		return "", false
	}
	name = strings.TrimSpace(name)
	for _, a := range c.AllInstalledApps() {
		if strings.EqualFold(a.Name, name) {
			return a.AppRef, true
		}
	}
	return "", false
}

// Labels produced by Classify.
const (
	LabelProductivity = "Productivity"
	LabelGames        = "Games"
	LabelSocial       = "Social"
	LabelMisc         = "Misc"
)

var keywordTable = []struct {
	keywords []string
	label    string
}{
	{[]string{"mail", "calendar"}, LabelProductivity},
	{[]string{"game"}, LabelGames},
	{[]string{"social", "chat"}, LabelSocial},
}

// Classify maps a display name to a category label by keyword. First matching row wins.
func Classify(name string) string {
	lower := strings.ToLower(name)
	for _, row := range keywordTable {
		for _, kw := range row.keywords {
			if strings.Contains(lower, kw) {
				return row.label
			}
		}
	}
	return LabelMisc
}
