// Package logger builds slog loggers for the decision engine and its hosts.
//
// New assembles a *slog.Logger from functional options; Config mirrors the
// same knobs as an env-taggable struct for deployments that configure logging
// through the environment. The attribute helpers keep decision-domain keys
// (experiment, variation, feature, user id) consistent across packages.
//
//	log := logger.New(
//	    logger.WithJSONFormat(),
//	    logger.WithLevel(slog.LevelDebug),
//	    logger.WithAttrs(slog.String("service", "checkout")),
//	)
//
//	client, err := decisionkit.New(raw, decisionkit.WithLogger(log))
package logger
