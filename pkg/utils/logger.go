package utils

import "go.uber.org/zap"

// NewLogger returns a development logger (human-readable, debug level) when
// debug is true, otherwise a production logger (JSON, info level).
func NewLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
