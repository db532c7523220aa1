// Package registry owns the folder and profile collections. Each registry guards
// its collection with one lock, hands out copies, and persists the whole
// collection after every mutation.
package registry

import (
	"crypto/rand"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/hpungsan/shelf/internal/model"
)

// Option configures a registry.
type Option func(*options)

type options struct {
	allowDuplicateNames bool
	newID               func() string
}

// WithDuplicateNames turns off name uniqueness checks.
func WithDuplicateNames(allow bool) Option {
	return func(o *options) { o.allowDuplicateNames = allow }
}

// WithIDs overrides id generation, for tests.
func WithIDs(newID func() string) Option {
	return func(o *options) { o.newID = newID }
}

func buildOptions(opts []Option) options {
	o := options{newID: newULID}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func newULID() string {
	entropy := ulid.Monotonic(rand.Reader, 0)
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}

func sameName(a, b string) bool {
	return model.NormalizeName(a) == model.NormalizeName(b)
}
