package service

import (
	"time"

	"water_monitor/internal/logger"
)

// Clock returns the current time.
type Clock interface {
	Now() time.Time
}

// SystemClock uses time.Now in UTC.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }

// runtime holds the collaborators every engine component shares.
type runtime struct {
	clock Clock
	log   *logger.Logger
}

func newRuntime(opts []Option) runtime {
	rt := runtime{clock: SystemClock{}, log: logger.Nop()}
	for _, opt := range opts {
		opt(&rt)
	}
	return rt
}

func (rt runtime) now() time.Time { return rt.clock.Now().UTC() }

// Option configures an engine component.
type Option func(*runtime)

// WithClock overrides the time source.
func WithClock(c Clock) Option {
	return func(rt *runtime) {
		if c != nil {
			rt.clock = c
		}
	}
}

// WithLogger sets the component logger. A nil logger keeps the no-op default.
func WithLogger(l *logger.Logger) Option {
	return func(rt *runtime) {
		rt.log = logger.OrNop(l)
	}
}
