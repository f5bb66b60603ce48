package phy

import "errors"

var (
	// ErrAlreadyAttached is returned by Cable.Attach when the connector is
	// already wired to a cable.
	ErrAlreadyAttached = errors.New("connector already attached to a cable")
	// ErrPositionTaken is returned when another connector already
	// occupies the requested position on the cable.
	ErrPositionTaken = errors.New("position already occupied on this cable")
	// ErrPositionOffGrid is returned when a position is not a multiple of
	// the cable's installation grid (e.g. 2.5m for 10BASE5).
	ErrPositionOffGrid = errors.New("position is not a multiple of the installation grid")
	// ErrNotAttached is returned by operations requiring an attached
	// connector.
	ErrNotAttached = errors.New("connector not attached to a cable")
)

// ConfigError reports an invalid Cable construction parameter.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return "invalid cable config: " + e.Field + ": " + e.Reason
}
