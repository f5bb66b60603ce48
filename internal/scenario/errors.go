package scenario

import "fmt"

// Defaults used when a scenario file omits an optional field: Validate
// fills in the MTU and FIFO capacity, Build the host input and output
// queue capacities.
const (
	defaultMTU       = 1500
	defaultFIFOCap   = 64
	defaultInputCap  = 256
	defaultOutputCap = 64
)

// ValidationError is returned by Scenario.Validate: construction-time
// validation rejects with a single descriptive error naming the offending
// field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("scenario: %s: %s", e.Field, e.Reason)
}
