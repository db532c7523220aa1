package activation

import (
	"math"
	"slices"
	"time"

	"github.com/hpungsan/shelf/internal/model"
)

// EarthRadiusMeters is the mean Earth radius used for distances.
const EarthRadiusMeters = 6371008.8

// SelectActiveProfile returns the first profile, in the given order, with at
// least one rule matching snap. Later profiles are not examined once one matches.
func SelectActiveProfile(profiles []model.Profile, snap model.Snapshot) (model.Profile, bool) {
	for _, p := range profiles {
		if ProfileMatches(p, snap) {
			return p, true
		}
	}
	return model.Profile{}, false
}

// ProfileMatches reports whether any of p's rules matches snap. A profile without
// rules never matches.
func ProfileMatches(p model.Profile, snap model.Snapshot) bool {
	for _, r := range p.ActivationRules {
		if RuleMatches(r, snap) {
			return true
		}
	}
	return false
}

// RuleMatches evaluates one activation rule. Rules with a missing payload, and
// location rules against a missing or invalid location, never match.
func RuleMatches(r model.ActivationRule, snap model.Snapshot) bool {
	switch r.Type {
	case model.RuleTimeWindow:
		return r.TimeWindow != nil && inWindow(*r.TimeWindow, snap.Now)
	case model.RuleLocation:
		if r.Location == nil || snap.Location == nil || !snap.Location.Valid() {
			return false
		}
		center := model.Coordinate{Latitude: r.Location.Latitude, Longitude: r.Location.Longitude}
		return Distance(*snap.Location, center) <= r.Location.RadiusMeters
	case model.RuleAppLaunch:
		return r.AppLaunch != nil && snap.LaunchedApp != "" && snap.LaunchedApp == r.AppLaunch.AppRef
	}
	return false
}

// inWindow checks now against [Start, End) in now's location. Start == End covers
// the whole day. When Start > End the window wraps midnight and the part after
// midnight counts toward the day the window opened.
func inWindow(w model.TimeWindow, now time.Time) bool {
	t := model.ClockOf(now)
	day := now.Weekday()
	switch {
	case w.Start == w.End:
		return onDay(w.Days, day)
	case w.Start < w.End:
		return t >= w.Start && t < w.End && onDay(w.Days, day)
	case t >= w.Start:
		return onDay(w.Days, day)
	case t < w.End:
		return onDay(w.Days, (day+6)%7)
	}
	return false
}

func onDay(days []time.Weekday, d time.Weekday) bool {
	return len(days) == 0 || slices.Contains(days, d)
}

// Distance returns the great-circle distance in meters between a and b.
func Distance(a, b model.Coordinate) float64 {
	lat1 := a.Latitude * math.Pi / 180
	lat2 := b.Latitude * math.Pi / 180
	dLat := (b.Latitude - a.Latitude) * math.Pi / 180
	dLon := (b.Longitude - a.Longitude) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * EarthRadiusMeters * math.Asin(math.Min(1, math.Sqrt(h)))
}
