// Package logging configures structured logging for the decision
// authority on top of log/slog.
//
// New builds a *slog.Logger from a Config; Setup additionally installs
// it as the process default. Component derives child loggers tagged
// with a "component" attribute so records can be filtered per
// subsystem:
//
//	logger, err := logging.New(logging.FromConfig(cfg.Telemetry.Logging))
//	if err != nil {
//	    return err
//	}
//	engineLog := logging.Component(logger, "engine")
//
// The context helpers (WithRequestID, WithSatelliteID, WithDecisionID)
// attach correlation identifiers to a context.Context, and
// ContextAttrs extracts whichever are present as slog key/value pairs.
package logging
