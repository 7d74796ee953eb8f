// Package logging provides structured logging for svcdeck.
//
// This package wraps Go's log/slog to write JSON-formatted logs with
// persistent attributes, so that the supervisor, the output broadcaster and
// the change detector can all be traced from one file after the fact.
//
// # Features
//
//   - JSON-formatted structured logging via slog
//   - Configurable log levels (DEBUG, INFO, WARN, ERROR)
//   - Persistent attributes (project, service, component)
//   - Size-based log rotation with optional gzip compression
//   - Reading and filtering of log files for the logs command
//
// # Thread Safety
//
// All types in this package are safe for concurrent use. Child loggers
// created via With* methods share the underlying writer.
//
// # Basic Usage
//
//	logger, err := logging.NewLogger("/path/to/logs", "INFO", logging.DefaultRotationConfig())
//	if err != nil {
//	    return err
//	}
//	defer logger.Close()
//
//	log := logger.WithComponent("supervisor").WithSession(projectPath)
//	log.WithService("auth").Info("service spawned", "pid", pid)
//
// Output:
//
//	{"time":"...","level":"INFO","msg":"service spawned","component":"supervisor","project":"/proj","service":"auth","pid":4242}
//
// # Log Rotation
//
// Rotated files are named svcdeck.log.1, svcdeck.log.2, etc., where .1 is
// the most recent backup. When compression is enabled, rotated files become
// svcdeck.log.1.gz, etc.
//
// # Testing
//
// Use [NopLogger] to discard output, or [NewWriterLogger] with a
// bytes.Buffer to assert on what was logged.
//
// # Reading Logs
//
//	entries, err := logging.ReadLogFile(path)
//	filtered := logging.FilterLogs(entries, logging.LogFilter{Service: "auth", Level: "WARN"})
package logging
