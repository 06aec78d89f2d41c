// Package logging provides structured logging for apportal.
//
// This package wraps zap logger with convenience functions for common logging
// patterns used by the provisioning controller and its host adapters.
//
// # Log Levels
//
// The package supports standard log levels:
//   - Debug: Detailed debugging info (parameter values, HTTP requests, DNS answers)
//   - Info: Normal operations (state changes, AP started, config saved)
//   - Warn: Non-fatal issues (connection timeouts, late handler registration)
//   - Error: Failures returned to callers (storage write errors, listener errors)
//
// # Structured Logging
//
// All log functions use structured fields:
//
//	logging.Info("Access point started",
//	    zap.String("ssid", "thermostat"),
//	    zap.String("ip", "192.168.4.1"),
//	)
//
// # Secrets
//
// Password values are never logged. LogParameter replaces them with
// HiddenValue ("<hidden>").
//
// # Configuration
//
// Initialize logging at startup:
//
//	if err := logging.Initialize("debug"); err != nil {
//	    log.Fatal(err)
//	}
//	defer logging.Sync()
//
// When no level is given and APPORTAL_LOG_LEVEL is unset the logger is a
// no-op, so library users get silence by default.
package logging
