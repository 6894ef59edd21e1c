/*
Package log provides structured logging for fleetd using zerolog.

The global Logger is configured once via Init with a level, an output format
(JSON for production, a console writer for interactive use), and an output
stream. Components obtain a child logger carrying their own field set via
WithComponent, WithNodeName, or WithJobID rather than attaching fields by
hand at every call site.

	log.Init(log.Config{Level: log.InfoLevel, JSONOutput: true})
	logger := log.WithComponent("registry").With().Str("node_name", name).Logger()
	logger.Info().Msg("node registered")

Package-level Info/Debug/Warn/Error/Fatal helpers log through the global
Logger directly, for call sites that don't need a dedicated child logger.
*/
package log
