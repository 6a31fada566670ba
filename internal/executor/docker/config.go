package docker

import (
	"time"

	"github.com/sakif/codesphere/internal/language"
)

// Config holds the configuration for Docker execution.
type Config struct {
	// Images maps each language to the image whose toolchain runs it.
	Images map[language.Language]string
	// MemoryLimit is the maximum amount of memory the container can use (in bytes).
	MemoryLimit int64
	// CPULimit is the number of CPUs the container can use.
	CPULimit float64
	// Timeout is the maximum amount of time compile plus run can take.
	// Zero disables it.
	Timeout time.Duration
	// PoolSize is the number of pre-warmed containers kept per image.
	PoolSize int
	// MaxOutput caps each captured stream, in bytes.
	MaxOutput int
}

// DefaultConfig provides sensible defaults for the four supported toolchains.
func DefaultConfig() Config {
	return Config{
		Images: map[language.Language]string{
			language.Python:     "python:3.12-alpine",
			language.JavaScript: "node:22-alpine",
			language.Java:       "eclipse-temurin:21-jdk-alpine",
			language.Cpp:        "gcc:14",
		},
		// 256 MB memory limit; javac needs more than the interpreters.
		MemoryLimit: 256 * 1024 * 1024,
		// 0.5 CPU shares
		CPULimit: 0.5,
		// 10 second default timeout, compile included
		Timeout:   10 * time.Second,
		PoolSize:  2,
		MaxOutput: 1 << 20,
	}
}
