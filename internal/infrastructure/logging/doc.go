// Package logging provides structured logging for Gray Logic Auth.
//
// It wraps log/slog so every component logs with the same handler,
// level filtering and default fields (service, version).
//
// # Configuration
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr
//
// # Usage
//
//	logger := logging.New(cfg.Logging, version)
//	logger.Info("user registered", "user_id", user.ID)
//
// # Security
//
// Never log passwords, password hashes, signing keys or access tokens.
// The seeded admin password goes to a 0600 file; the log names the file.
package logging
