// Package log builds the slog loggers used by reportscan.
//
// Every logger wraps its handler in a SecureHandler, which masks the
// secrets this tool handles before they reach the output:
//   - LLM API keys (Anthropic "sk-ant-" keys, Google "AIza" keys)
//   - database DSNs, where only the password part of the URL is replaced
//   - HTTP credentials passed as attributes (authorization, cookie)
//
// Values are masked even in verbose mode, so a debug log can be attached
// to an issue as is.
//
//	logger := log.NewSecureLogger(os.Stderr, verbose)
//	slog.SetDefault(logger)
package log
