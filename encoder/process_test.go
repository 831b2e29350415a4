package encoder

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStart_RejectsMissingBinary(t *testing.T) {
	_, err := Start("this-binary-does-not-exist-anywhere", nil, nil)
	require.Error(t, err)
}

// TestProcess_RoundTripsThroughCat uses the ubiquitous `cat` as a stand-in
// encoder: whatever is written to stdin comes back on stdout, proving the
// pty-backed stdin write path and the stdout-draining goroutine both work
// without deadlocking on a large write.
func TestProcess_RoundTripsThroughCat(t *testing.T) {
	var lines []string
	p, err := Start("cat", nil, func(line string) {
		lines = append(lines, line)
	})
	require.NoError(t, err)

	payload := make([]byte, 64*1024)
	for i := range payload {
		payload[i] = byte(i)
	}
	n, err := p.Write(payload)
	require.NoError(t, err)
	assert.Equal(t, len(payload), n)

	require.NoError(t, p.Close())
	// cat writes no stderr on success.
	assert.Empty(t, lines)
}

func TestProcess_CloseIsIdempotent(t *testing.T) {
	p, err := Start("cat", nil, nil)
	require.NoError(t, err)
	require.NoError(t, p.Close())
	require.NoError(t, p.Close())
}

func TestProcess_SurfacesExitError(t *testing.T) {
	p, err := Start("false", nil, nil)
	require.NoError(t, err)

	// Give the child a moment to exit before Close observes its status.
	time.Sleep(20 * time.Millisecond)
	err = p.Close()
	assert.Error(t, err)
}
