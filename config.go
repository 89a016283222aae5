package sigcore

import "github.com/goliboscore/sigcore/internal/lfring"

// Config holds the ambient, process-wide knobs a Registry applies when it
// spawns threads. There is no CLI or environment-variable surface
// (spec.md §6): every value here is set programmatically by the
// embedding LibOS.
type Config struct {
	ringCapacity int
}

// Option configures a Config, following the functional-options idiom.
type Option func(*Config)

// WithRingCapacity overrides the default per-(thread,signal) queue depth
// (RingCapacity). Rounded up to the next power of two by internal/lfring.
func WithRingCapacity(n int) Option {
	return func(c *Config) {
		if n > 0 {
			c.ringCapacity = int(lfring.NextPow2(n))
		}
	}
}

func defaultConfig() Config {
	return Config{ringCapacity: RingCapacity}
}

// newConfig applies opts atop the default configuration.
func newConfig(opts ...Option) Config {
	c := defaultConfig()
	for _, o := range opts {
		o(&c)
	}
	return c
}
