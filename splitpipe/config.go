package splitpipe

import (
	"log/slog"

	"github.com/hazyhaar/filesplit/eventlog"
)

// Config configures the split engine.
type Config struct {
	// MaxFileSize is the maximum source size to process (default: 512 MiB).
	MaxFileSize int64 `json:"max_file_size" yaml:"max_file_size"`

	// Logger for debug/warn messages.
	Logger *slog.Logger `json:"-" yaml:"-"`

	// Events receives split and degradation events. Optional; nil means
	// events are only logged.
	Events eventlog.Recorder `json:"-" yaml:"-"`
}

func (c *Config) defaults() {
	if c.MaxFileSize <= 0 {
		c.MaxFileSize = 512 * 1024 * 1024
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}
