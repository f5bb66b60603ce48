package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/malbeclabs/netsim/internal/engine"
)

// parseTimeToken parses the CLI's "<int><unit>" time tokens
// (--run-for/--run-to, e.g. "10ms", "500ns") into simulated nanoseconds.
// This is CLI-only: the core engine only ever deals in engine.Time
// nanoseconds, never parses strings.
func parseTimeToken(s string) (engine.Time, error) {
	for _, unit := range []struct {
		suffix string
		scale  int64
	}{
		{"ns", 1},
		{"µs", 1_000},
		{"us", 1_000},
		{"ms", 1_000_000},
		{"s", 1_000_000_000},
	} {
		if strings.HasSuffix(s, unit.suffix) {
			numPart := strings.TrimSuffix(s, unit.suffix)
			n, err := strconv.ParseInt(numPart, 10, 64)
			if err != nil || n < 0 {
				return 0, &TimeTokenError{Value: s}
			}
			return engine.Time(n * unit.scale), nil
		}
	}
	return 0, &TimeTokenError{Value: s}
}

// TimeTokenError is returned by parseTimeToken on malformed input.
type TimeTokenError struct{ Value string }

func (e *TimeTokenError) Error() string {
	return fmt.Sprintf("invalid time token %q (want <int><ns|µs|ms|s>)", e.Value)
}
