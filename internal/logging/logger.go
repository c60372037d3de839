// Package logging wires up the structured logger shared by every
// component of the engine.
package logging

import "go.uber.org/zap"

// New builds a production zap logger, or a development logger when dev
// is true (human-readable, colorized console output for local runs).
func New(dev bool) (*zap.Logger, error) {
	if dev {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
