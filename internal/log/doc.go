// Package log builds the slog loggers credsearch uses. Every handler is
// wrapped in SecureHandler, which masks API keys, auth headers and recovered
// plaintexts before a record reaches the output.
//
//	logger := log.NewSecureLogger(os.Stderr, verbose)
//	logger.Info("search finished", "query", q, "api_key", key) // api_key is masked
package log
