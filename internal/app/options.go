package app

import (
	"time"

	"github.com/google/uuid"
)

// Option customises a service.
type Option func(*runtime)

type runtime struct {
	now      func() time.Time
	newID    func() string
	notifier Notifier
}

func newRuntime(opts []Option) runtime {
	rt := runtime{
		now:   func() time.Time { return time.Now().UTC() },
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(&rt)
	}
	return rt
}

// WithClock overrides the time source, for deterministic timestamps in tests.
func WithClock(now func() time.Time) Option {
	return func(rt *runtime) { rt.now = now }
}

// WithIDGenerator overrides how entity ids are minted.
func WithIDGenerator(newID func() string) Option {
	return func(rt *runtime) { rt.newID = newID }
}

// WithNotifier registers a listener for submission changes.
func WithNotifier(n Notifier) Option {
	return func(rt *runtime) { rt.notifier = n }
}
