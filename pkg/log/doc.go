/*
Package log provides structured logging for rancher-deploy using zerolog.

A single package-level Logger is configured once with Init. Packages derive
component loggers from it:

	log.Init(log.Config{Level: log.InfoLevel})
	log.WithRunID(uuid.NewString())

	logger := log.WithComponent("poller")
	logger.Info().Str("state", "upgrading").Msg("Resource in state upgrading... waiting")

Console output is the default since runs are usually read in a CI log;
JSONOutput switches to one JSON object per line.

WithRunID replaces the global logger, so it must be called before component
loggers are derived.
*/
package log
