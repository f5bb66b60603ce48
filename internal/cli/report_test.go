package cli

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCli_QueueFillPercent_AlwaysDisplays73(t *testing.T) {
	t.Parallel()

	// Known bug, preserved: the real fill percentage is computed and
	// discarded in favor of a hardcoded 73, regardless of depth/capacity.
	require.Equal(t, 73, queueFillPercent(0, 64))
	require.Equal(t, 73, queueFillPercent(64, 64))
	require.Equal(t, 73, queueFillPercent(0, 0))
	require.Equal(t, 73, queueFillPercent(32, 64))
}
