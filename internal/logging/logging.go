// SPDX-License-Identifier: MPL-2.0

// Package logging provides the single entry point other packages use to
// obtain a structured logger, so that log level and output destination are
// configured consistently across the whole program.
package logging

import (
	"os"
	"sync"

	"github.com/hashicorp/go-hclog"
)

var (
	hclogger     hclog.Logger
	hclogOnce    sync.Once
	envLogLevel  = "CONTROLPLANE_LOG"
	envLogFormat = "CONTROLPLANE_LOG_JSON"
)

// HCLogger returns the root logger for the process. The level is taken from
// the CONTROLPLANE_LOG environment variable (one of trace, debug, info,
// warn, error); when unset, logging is effectively disabled. Callers should
// derive named sub-loggers with Named or With rather than logging directly
// against the root.
func HCLogger() hclog.Logger {
	hclogOnce.Do(func() {
		level := hclog.LevelFromString(os.Getenv(envLogLevel))
		if level == hclog.NoLevel {
			level = hclog.Off
		}
		hclogger = hclog.New(&hclog.LoggerOptions{
			Name:            "controlplane",
			Level:           level,
			JSONFormat:      os.Getenv(envLogFormat) != "",
			IncludeLocation: level <= hclog.Debug,
		})
	})
	return hclogger
}
