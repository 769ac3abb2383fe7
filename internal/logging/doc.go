// Package logging provides structured logging for suitepilot.
//
// It wraps Go's log/slog with a small API that every component accepts as an
// option. Child loggers carry persistent context so a single session's
// activity can be filtered out of an interleaved log:
//
//	logger, err := logging.NewLogger("/var/log/suitepilot", "INFO")
//	if err != nil {
//	    return err
//	}
//	defer logger.Close()
//
//	sessionLogger := logger.WithSession("7f9c...")
//	sessionLogger.WithPhase("phase-1-1").WithSuite("checkout").Info("suite completed", "status", "passed")
//
// Output:
//
//	{"time":"...","level":"INFO","msg":"suite completed","session_id":"7f9c...","phase":"phase-1-1","suite_id":"checkout","status":"passed"}
//
// Components default to [NopLogger] when no logger is supplied, which is also
// what tests use.
//
// # Thread Safety
//
// All types in this package are safe for concurrent use.
package logging
