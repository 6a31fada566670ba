package local

import "time"

// DefaultMaxOutput caps each captured stream at 1 MiB.
const DefaultMaxOutput = 1 << 20

// Config holds the configuration for local process execution.
type Config struct {
	// WorkRoot is the directory under which per-run working directories are
	// created. Empty means os.TempDir().
	WorkRoot string
	// Timeout bounds compile plus run. Zero means no timeout: a program that
	// never exits blocks the caller until its context is done.
	Timeout time.Duration
	// MaxOutput is the maximum number of bytes kept per stream. Anything
	// beyond it is read and discarded so the child never blocks on a full pipe.
	MaxOutput int
}

// DefaultConfig returns the legacy behaviour: no timeout, 1 MiB per stream.
func DefaultConfig() Config {
	return Config{
		MaxOutput: DefaultMaxOutput,
	}
}
