package gateway

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/roach88/rrgate/internal/config"
	"github.com/roach88/rrgate/internal/control"
	"github.com/roach88/rrgate/internal/driver"
)

// Option configures a Gateway.
type Option func(*options)

type options struct {
	resolver   driver.Resolver
	logger     *slog.Logger
	control    control.Channel
	terminator Terminator
	registerer prometheus.Registerer
	platform   func(config.Config) string
}

// WithResolver binds the driver from res instead of loading a driver module.
func WithResolver(res driver.Resolver) Option {
	return func(o *options) {
		o.resolver = res
	}
}

// WithLogger sets the gateway logger. Default: slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithControl sets the channel lifecycle notices are sent to.
// Default: control.Nop.
func WithControl(ch control.Channel) Option {
	return func(o *options) {
		o.control = ch
	}
}

// WithTerminator replaces the terminal effect. Default: Abort.
//
// Tests use a terminator that records the reason and returns; the gateway then
// panics with ErrTerminatorReturned.
func WithTerminator(t Terminator) Option {
	return func(o *options) {
		o.terminator = t
	}
}

// WithRegisterer registers the gateway metrics on reg.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(o *options) {
		o.registerer = reg
	}
}

// WithPlatformCheck replaces the unsupported-platform check. check returns the
// reason recording is unsupported, or "".
func WithPlatformCheck(check func(config.Config) string) Option {
	return func(o *options) {
		o.platform = check
	}
}
