// Package predict supplies ranked app predictions for a time and place.
package predict

import (
	"time"

	"github.com/hpungsan/shelf/internal/model"
)

// UsagePredictor ranks apps likely to be used at a given time and optional location.
type UsagePredictor interface {
	Predict(at time.Time, loc *model.Coordinate) []string
}

// Fallback returns fixed lists per time of day. It stands in until a trained model
// is available.
type Fallback struct{}

var _ UsagePredictor = Fallback{}

// Predict implements UsagePredictor.
func (Fallback) Predict(at time.Time, _ *model.Coordinate) []string {
	switch h := at.Hour(); {
	case h >= 6 && h <= 9:
		return []string{"com.apple.mobiletimer", "com.apple.news", "com.apple.workout"}
	case h >= 10 && h <= 17:
		return []string{"com.apple.mobilemail", "com.apple.mobilenotes", "com.slack"}
	case h >= 18 && h <= 22:
		return []string{"com.apple.mobilesafari", "com.netflix.Netflix", "com.spotify.client"}
	default:
		return []string{"com.apple.mobilesafari"}
	}
}

// Safe wraps a predictor so a panic or empty answer degrades to the fallback list.
func Safe(p UsagePredictor) UsagePredictor {
	if p == nil {
		return Fallback{}
	}
	return safe{inner: p}
}

type safe struct {
	inner UsagePredictor
}

func (s safe) Predict(at time.Time, loc *model.Coordinate) (apps []string) {
	defer func() {
		if r := recover(); r != nil || len(apps) == 0 {
			apps = Fallback{}.Predict(at, loc)
		}
	}()
	return s.inner.Predict(at, loc)
}
