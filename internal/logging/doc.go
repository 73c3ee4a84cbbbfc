// Package logging provides structured logging for researchdesk.
//
// Records are JSON objects produced by log/slog. A [Logger] carries
// persistent attributes that identify the session, phase and round the
// record belongs to, so that a single log file can be filtered per session
// after the fact.
//
// # Basic Usage
//
//	logger, err := logging.NewLogger("/var/log/researchdesk", "INFO")
//	if err != nil {
//	    return err
//	}
//	defer logger.Close()
//
//	logger.Info("server listening", "addr", addr)
//
// # Rotation
//
// [NewRotatingLogger] renames researchdesk.log to researchdesk.log.1 once it
// reaches Rotation.MaxSizeMB, shifting older backups up and dropping any
// beyond Rotation.MaxBackups.
//
// # Context Propagation
//
//	sessionLogger := logger.WithSession("session-5f1c")
//	sessionLogger.WithPhase("running").WithRound(2).Info("step applied", "step", 3)
//
// Output:
//
//	{"time":"...","level":"INFO","msg":"step applied","session_id":"session-5f1c","phase":"running","round":2,"step":3}
//
// # Testing
//
// Use [NopLogger] to discard output, or [NewWriterLogger] with a
// bytes.Buffer to assert on emitted records.
package logging
