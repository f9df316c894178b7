package core

import (
	"time"

	"github.com/illarion/seedvault/internal/crypto"
	"github.com/illarion/seedvault/internal/metrics"
	"github.com/illarion/seedvault/internal/session"
	"github.com/rs/zerolog"
)

type options struct {
	log          zerolog.Logger
	metrics      *metrics.Metrics
	cache        *session.Cache
	authDuration time.Duration
	wipe         func([]byte)
}

// Option configures a Manager or Store
type Option func(*options)

// WithLogger sets the logger; the default discards everything
func WithLogger(l zerolog.Logger) Option {
	return func(o *options) {
		o.log = l
	}
}

// WithMetrics enables Prometheus instrumentation
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}

// WithSessionCache replaces the Manager's session cache
func WithSessionCache(c *session.Cache) Option {
	return func(o *options) {
		o.cache = c
	}
}

// WithAuthDuration sets the Store's default authentication window
func WithAuthDuration(d time.Duration) Option {
	return func(o *options) {
		o.authDuration = d
	}
}

func withWiper(wipe func([]byte)) Option {
	return func(o *options) {
		o.wipe = wipe
	}
}

func newOptions(opts []Option) options {
	o := options{
		log:          zerolog.Nop(),
		authDuration: session.DefaultAuthDuration,
		wipe:         crypto.ClearBytes,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func resultLabel(err error) string {
	if err == nil {
		return "ok"
	}
	return KindOf(err).String()
}
