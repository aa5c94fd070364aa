package cratedeb

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// Option configures an operation.
type Option func(*opConfig) error

// opConfig holds the configuration shared by the package-building and
// build-order entry points.
type opConfig struct {
	fetcher          Fetcher
	workers          int
	policy           Policy
	collapseFeatures bool

	// logger is the structured logger for progress output.
	// If nil, logging is disabled (silent mode).
	logger *slog.Logger
}

// DefaultOptions returns the options applied before any caller options.
func DefaultOptions() []Option {
	return []Option{
		WithWorkers(defaultMaxConcurrency),
	}
}

// WithFetcher sets the metadata source. Operations that resolve crates
// beyond the one in hand require a fetcher.
func WithFetcher(f Fetcher) Option {
	return func(c *opConfig) error {
		if f == nil {
			return errors.New("fetcher must not be nil")
		}
		c.fetcher = f
		return nil
	}
}

// WithWorkers bounds how many crates are fetched concurrently.
func WithWorkers(n int) Option {
	return func(c *opConfig) error {
		if n <= 0 {
			return fmt.Errorf("worker count must be positive, got %d", n)
		}
		c.workers = n
		return nil
	}
}

// WithPolicy sets the requirement translation policy.
func WithPolicy(p Policy) Option {
	return func(c *opConfig) error {
		c.policy = p
		return nil
	}
}

// WithAllowPrerelease admits pre-release requirements by stripping the
// tag instead of failing.
func WithAllowPrerelease() Option {
	return func(c *opConfig) error {
		c.policy.AllowPrerelease = true
		return nil
	}
}

// WithCollapseFeatures makes dependency discovery treat every feature
// of every crate as active, following all optional dependencies. The
// resulting order works for any feature selection at the cost of
// ordering crates that a narrower build would never need.
func WithCollapseFeatures() Option {
	return func(c *opConfig) error {
		c.collapseFeatures = true
		return nil
	}
}

// WithLogger sets a structured logger for progress diagnostics.
// If not set, logging is disabled (silent mode).
//
// The library uses log/slog, so any backend with a slog handler plugs
// in:
//
//	ResolveBuildOrder(ctx, roots, mode, WithLogger(slog.Default()))
func WithLogger(l *slog.Logger) Option {
	return func(c *opConfig) error {
		c.logger = l
		return nil
	}
}

// newOpConfig applies defaults, then the caller's options, then
// validates the result.
func newOpConfig(opts ...Option) (*opConfig, error) {
	c := &opConfig{}
	all := append(DefaultOptions(), opts...)
	for _, opt := range all {
		if opt == nil {
			continue
		}
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// validate checks the configuration for logical consistency.
func (c *opConfig) validate() error {
	if c.workers <= 0 {
		return errors.New("worker count must be positive")
	}
	return nil
}

// log returns the configured logger, or a no-op logger if none was set.
// This allows internal code to call logging methods without nil checks.
func (c *opConfig) log() *slog.Logger {
	if c.logger != nil {
		return c.logger
	}
	return slog.New(discardHandler{})
}

// discardHandler is a slog.Handler that discards all log records.
type discardHandler struct{}

func (discardHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (discardHandler) Handle(context.Context, slog.Record) error { return nil }
func (d discardHandler) WithAttrs([]slog.Attr) slog.Handler      { return d }
func (d discardHandler) WithGroup(string) slog.Handler           { return d }
