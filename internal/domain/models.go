// Package domain contains the core domain types for the alerts translator.
package domain

import "log/slog"

// Metrics are the per-run counters reported after a feed is processed.
type Metrics struct {
	AlertsProcessed   int `json:"alertsProcessed"`
	StringsDispatched int `json:"stringsDispatched"`
	StringsReused     int `json:"stringsReused"`
}

// LogValue lets a Metrics value be logged as a structured group.
func (m Metrics) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("alerts_processed", m.AlertsProcessed),
		slog.Int("strings_dispatched", m.StringsDispatched),
		slog.Int("strings_reused", m.StringsReused),
	)
}

// RunResult is the response payload returned by the Lambda for a
// completed translation run.
type RunResult struct {
	StatusCode int     `json:"statusCode"`
	Body       string  `json:"body"`
	Metrics    Metrics `json:"metrics"`
	Uploaded   bool    `json:"uploaded"`
}
