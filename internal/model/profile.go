package model

import (
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"
	"time"
)

// Profile is a named, context-activated grouping of folders.
type Profile struct {
	ID   string `json:"id"`
	Name string `json:"name"`

	// FolderIDs references folders by id. Ids of deleted folders are kept and
	// filtered out when the profile's folders are resolved.
	FolderIDs []string `json:"folder_ids"`

	// ActivationRules are evaluated in order; any single match activates the profile.
	ActivationRules []ActivationRule `json:"activation_rules"`
}

// Clone returns a deep copy.
func (p Profile) Clone() Profile {
	out := p
	out.FolderIDs = slices.Clone(p.FolderIDs)
	if out.FolderIDs == nil {
		out.FolderIDs = []string{}
	}
	out.ActivationRules = make([]ActivationRule, len(p.ActivationRules))
	for i, r := range p.ActivationRules {
		out.ActivationRules[i] = r.Clone()
	}
	return out
}

// ActivationRuleType tags an ActivationRule variant.
type ActivationRuleType string

const (
	RuleTimeWindow ActivationRuleType = "time_window"
	RuleLocation   ActivationRuleType = "location"
	RuleAppLaunch  ActivationRuleType = "app_launch"
)

// ActivationRule is a predicate over a context snapshot. Exactly one of the
// payload pointers matching Type is set.
type ActivationRule struct {
	Type       ActivationRuleType `json:"type"`
	TimeWindow *TimeWindow        `json:"time_window,omitempty"`
	Location   *LocationRadius    `json:"location,omitempty"`
	AppLaunch  *AppLaunch         `json:"app_launch,omitempty"`
}

// TimeWindow matches when the snapshot time falls in [Start, End) on one of Days.
// An empty Days set matches every day.
type TimeWindow struct {
	Start ClockTime      `json:"start"`
	End   ClockTime      `json:"end"`
	Days  []time.Weekday `json:"days,omitempty"`
}

// LocationRadius matches when the snapshot location is within RadiusMeters of the center.
type LocationRadius struct {
	Latitude     float64 `json:"latitude"`
	Longitude    float64 `json:"longitude"`
	RadiusMeters float64 `json:"radius_meters"`
}

// AppLaunch matches only snapshots produced by a launch of AppRef.
type AppLaunch struct {
	AppRef string `json:"app_ref"`
}

// NewTimeWindowRule builds a time_window rule.
func NewTimeWindowRule(start, end ClockTime, days ...time.Weekday) ActivationRule {
	return ActivationRule{Type: RuleTimeWindow, TimeWindow: &TimeWindow{Start: start, End: end, Days: days}}
}

// NewLocationRule builds a location rule.
func NewLocationRule(lat, lon, radiusMeters float64) ActivationRule {
	return ActivationRule{Type: RuleLocation, Location: &LocationRadius{Latitude: lat, Longitude: lon, RadiusMeters: radiusMeters}}
}

// NewAppLaunchRule builds an app_launch rule.
func NewAppLaunchRule(appRef string) ActivationRule {
	return ActivationRule{Type: RuleAppLaunch, AppLaunch: &AppLaunch{AppRef: appRef}}
}

// Clone returns a deep copy.
func (r ActivationRule) Clone() ActivationRule {
	out := ActivationRule{Type: r.Type}
	if r.TimeWindow != nil {
		tw := *r.TimeWindow
		tw.Days = slices.Clone(r.TimeWindow.Days)
		out.TimeWindow = &tw
	}
	if r.Location != nil {
		loc := *r.Location
		out.Location = &loc
	}
	if r.AppLaunch != nil {
		al := *r.AppLaunch
		out.AppLaunch = &al
	}
	return out
}

// Validate checks that the payload matches the tag.
func (r ActivationRule) Validate() error {
	switch r.Type {
	case RuleTimeWindow:
		if r.TimeWindow == nil {
			return fmt.Errorf("time_window rule without window")
		}
		if !r.TimeWindow.Start.Valid() || !r.TimeWindow.End.Valid() {
			return fmt.Errorf("time_window bounds out of range")
		}
		for _, d := range r.TimeWindow.Days {
			if d < time.Sunday || d > time.Saturday {
				return fmt.Errorf("invalid weekday %d", d)
			}
		}
	case RuleLocation:
		if r.Location == nil {
			return fmt.Errorf("location rule without center")
		}
		center := Coordinate{Latitude: r.Location.Latitude, Longitude: r.Location.Longitude}
		if !center.Valid() {
			return fmt.Errorf("location rule center out of range")
		}
		if r.Location.RadiusMeters < 0 || math.IsNaN(r.Location.RadiusMeters) {
			return fmt.Errorf("location rule radius must be non-negative")
		}
	case RuleAppLaunch:
		if r.AppLaunch == nil || r.AppLaunch.AppRef == "" {
			return fmt.Errorf("app_launch rule without app")
		}
	default:
		return fmt.Errorf("unknown activation rule type %q", r.Type)
	}
	return nil
}

// ClockTime is a time of day in minutes after midnight, encoded as "HH:MM".
type ClockTime int

// Clock returns the ClockTime for h:m.
func Clock(h, m int) ClockTime { return ClockTime(h*60 + m) }

// ClockOf returns the time of day of t in t's location.
func ClockOf(t time.Time) ClockTime { return Clock(t.Hour(), t.Minute()) }

// Valid reports whether c is within a day.
func (c ClockTime) Valid() bool { return c >= 0 && c < 24*60 }

// String formats c as HH:MM.
func (c ClockTime) String() string { return fmt.Sprintf("%02d:%02d", int(c)/60, int(c)%60) }

// MarshalText implements encoding.TextMarshaler.
func (c ClockTime) MarshalText() ([]byte, error) {
	if !c.Valid() {
		return nil, fmt.Errorf("clock time %d out of range", int(c))
	}
	return []byte(c.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *ClockTime) UnmarshalText(b []byte) error {
	parsed, err := ParseClock(string(b))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// ParseClock parses "H:MM" or "HH:MM".
func ParseClock(s string) (ClockTime, error) {
	hs, ms, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return 0, fmt.Errorf("invalid clock time %q, want HH:MM", s)
	}
	h, err := strconv.Atoi(hs)
	if err != nil || h < 0 || h > 23 {
		return 0, fmt.Errorf("invalid hour in %q", s)
	}
	m, err := strconv.Atoi(ms)
	if err != nil || m < 0 || m > 59 || len(ms) != 2 {
		return 0, fmt.Errorf("invalid minute in %q", s)
	}
	return Clock(h, m), nil
}

var weekdayNames = map[string]time.Weekday{
	"sun": time.Sunday, "mon": time.Monday, "tue": time.Tuesday, "wed": time.Wednesday,
	"thu": time.Thursday, "fri": time.Friday, "sat": time.Saturday,
}

// ParseWeekdays parses a comma separated list of day names or ranges, e.g.
// "mon-fri" or "sat,sun". Names are matched on their first three letters.
func ParseWeekdays(s string) ([]time.Weekday, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" {
		return nil, nil
	}
	var days []time.Weekday
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		from, to, isRange := strings.Cut(part, "-")
		start, err := lookupWeekday(from)
		if err != nil {
			return nil, err
		}
		if !isRange {
			days = appendDay(days, start)
			continue
		}
		end, err := lookupWeekday(to)
		if err != nil {
			return nil, err
		}
		for d := start; ; d = (d + 1) % 7 {
			days = appendDay(days, d)
			if d == end {
				break
			}
		}
	}
	return days, nil
}

func lookupWeekday(s string) (time.Weekday, error) {
	s = strings.TrimSpace(s)
	if len(s) < 3 {
		return 0, fmt.Errorf("unknown weekday %q", s)
	}
	d, ok := weekdayNames[s[:3]]
	if !ok {
		return 0, fmt.Errorf("unknown weekday %q", s)
	}
	return d, nil
}

func appendDay(days []time.Weekday, d time.Weekday) []time.Weekday {
	if slices.Contains(days, d) {
		return days
	}
	return append(days, d)
}
