package logger

import "log/slog"

// Error records a single error under the key "error". A nil error yields an
// empty attribute, which slog drops.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any("error", err)
}

// Experiment records an experiment key under "experiment".
func Experiment(key string) slog.Attr {
	return slog.String("experiment", key)
}

// Variation records a variation key under "variation".
func Variation(key string) slog.Attr {
	return slog.String("variation", key)
}

// Feature records a feature flag key under "feature".
func Feature(key string) slog.Attr {
	return slog.String("feature", key)
}

// UserID records the visitor identifier under "user_id".
func UserID(id string) slog.Attr {
	return slog.String("user_id", id)
}

// Revision records a datafile revision under "revision".
func Revision(rev string) slog.Attr {
	return slog.String("revision", rev)
}
