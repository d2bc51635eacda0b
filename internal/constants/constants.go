// Package constants provides shared constants used across the application
// to avoid circular dependencies between packages.
package constants

import "time"

// Application identity
const (
	AppName    = "kshell"
	AppVersion = "0.3.0"
)

// Shell defaults
const (
	// DefaultMaxJobsPerTab is the number of background job slots per tab
	DefaultMaxJobsPerTab = 2
	// DefaultHistorySize bounds the in-memory history log of each tab
	DefaultHistorySize = 1000
	// DefaultPrompt is the interactive prompt prefix
	DefaultPrompt = "kshell> "
	// DefaultLogLevel applies when neither config nor env sets one
	DefaultLogLevel = "warn"
)

// Timeouts
const (
	// DefaultWatchInterval is used by `watch` when no interval is given
	DefaultWatchInterval = 2 * time.Second
	// MinWatchInterval keeps watch jobs from spinning
	MinWatchInterval = 100 * time.Millisecond
	// SpinnerDelay is how long a top-level command runs before the spinner shows
	SpinnerDelay = 300 * time.Millisecond
)

// SnapshotAPIVersion tags serialized snapshots
const SnapshotAPIVersion = "kshell/v1"
