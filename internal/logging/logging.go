// Package logging builds the process-wide structured logger.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"time"

	rotatelogs "github.com/lestrrat-go/file-rotatelogs"
)

// Options configures New.
type Options struct {
	// Level is one of debug, info, warn, error. Unknown values mean info.
	Level string

	// File is an optional strftime pattern for a rotated log file. When set,
	// every record is written to stdout and to the current file.
	File string

	// MaxAge is how long rotated files are kept.
	MaxAge time.Duration

	// Rotation is the interval between rotations.
	Rotation time.Duration
}

// New returns a JSON slog.Logger and a close function that releases the log
// file, if any. Callers should defer close.
func New(opts Options, stdout io.Writer) (*slog.Logger, func() error, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(opts.Level)); err != nil {
		level = slog.LevelInfo
	}

	out := stdout
	closeFn := func() error { return nil }
	if opts.File != "" {
		rl, err := rotatelogs.New(opts.File,
			rotatelogs.WithMaxAge(opts.MaxAge),
			rotatelogs.WithRotationTime(opts.Rotation),
		)
		if err != nil {
			return nil, nil, fmt.Errorf("logging.New: open %q: %w", opts.File, err)
		}
		out = io.MultiWriter(stdout, rl)
		closeFn = rl.Close
	}

	logger := slog.New(slog.NewJSONHandler(out, &slog.HandlerOptions{Level: level}))
	return logger, closeFn, nil
}
