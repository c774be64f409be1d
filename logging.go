/*
Copyright © 2025 Seednode <seednode@seedno.de>
*/

package main

import (
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
)

func newLogger(cfg *Config, w io.Writer) zerolog.Logger {
	if w == nil {
		w = os.Stdout
	}

	level := zerolog.WarnLevel
	if cfg.verbose {
		level = zerolog.DebugLevel
	}

	return zerolog.New(zerolog.ConsoleWriter{
		Out:        w,
		TimeFormat: logDate,
		NoColor:    true,
	}).Level(level).With().Timestamp().Logger()
}

// drainErrors logs write failures reported by handlers until done closes.
func drainErrors(log zerolog.Logger, errs <-chan error, done <-chan struct{}) {
	for {
		select {
		case err := <-errs:
			log.Warn().Err(err).Msg("SERVE: Write failed")
		case <-done:
			return
		}
	}
}

func humanReadableSize(bytes int64) string {
	const unit int64 = 1000
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := unit, 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB",
		float64(bytes)/float64(div),
		"kMGTPE"[exp])
}
