// Package svcfields centralizes the structured log fields shared across
// shelfd subsystems.
package svcfields

import (
	"strings"

	"pkt.systems/pslog"
)

// SubsystemKey is the canonical key for subsystem tags.
const SubsystemKey = pslog.TrustedString("sys")

// WithSubsystem attaches a subsystem tag to every log entry.
func WithSubsystem(logger pslog.Logger, subsystem string) pslog.Logger {
	if logger == nil {
		logger = pslog.NoopLogger()
	}
	subsystem = strings.Trim(subsystem, ". ")
	if subsystem == "" {
		return logger
	}
	return logger.With(SubsystemKey, subsystem)
}
