package config

import (
	"errors"
	"time"
)

// Config is the top-level configuration struct.  All fields have safe defaults
// so callers can start with Default() and override only what they need.
type Config struct {
	// Worker pool controls for the async helpers.
	WorkerCount int // default: runtime.NumCPU()
	QueueSize   int // max queued jobs before rejecting; default: 256
	JobTimeout  time.Duration

	// Encode defaults applied when a session does not override them.
	DefaultQuality        int // JPEG 1-100; default 75
	DefaultPNGCompression int // PNG 0-9; default 6
	GIFLoopCount          int // 0 = loop forever, -1 = play once

	// Memory limits.
	MaxImageBytes int64 // compressed input cap; 0 = no limit
	MaxPixels     int64 // decoded pixel cap; 0 = no limit
	ChunkSize     int   // reader drain chunk size in bytes; default 32 KiB

	Files FilesConfig

	LogLevel string // "debug", "info", "warn", "error"
}

// FilesConfig configures the local file store used for path inputs/outputs.
type FilesConfig struct {
	Permissions uint32 // default 0644
}

// Default returns a Config populated with sensible production defaults.
func Default() Config {
	return Config{
		WorkerCount:           0, // resolved at runtime to NumCPU
		QueueSize:             256,
		JobTimeout:            30 * time.Second,
		DefaultQuality:        75,
		DefaultPNGCompression: 6,
		GIFLoopCount:          0,
		ChunkSize:             32 * 1024,
		Files:                 FilesConfig{Permissions: 0o644},
		LogLevel:              "info",
	}
}

// Validate returns an error if the configuration is inconsistent.
func Validate(c Config) error {
	if c.DefaultQuality < 1 || c.DefaultQuality > 100 {
		return errors.New("config: DefaultQuality must be between 1 and 100")
	}
	if c.DefaultPNGCompression < 0 || c.DefaultPNGCompression > 9 {
		return errors.New("config: DefaultPNGCompression must be between 0 and 9")
	}
	if c.GIFLoopCount < -1 || c.GIFLoopCount > 0xFFFF {
		return errors.New("config: GIFLoopCount must be between -1 and 65535")
	}
	if c.ChunkSize <= 0 {
		return errors.New("config: ChunkSize must be positive")
	}
	if c.MaxImageBytes < 0 || c.MaxPixels < 0 {
		return errors.New("config: limits must not be negative")
	}
	switch c.LogLevel {
	case "", "debug", "info", "warn", "error":
	default:
		return errors.New("config: LogLevel must be one of debug, info, warn, error")
	}
	return nil
}
