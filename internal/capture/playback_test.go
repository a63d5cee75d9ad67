package capture

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"

	"depthmirror/internal/config"
)

func TestPlaybackOpenMissingRecording(t *testing.T) {
	t.Parallel()

	dev := NewPlaybackDevice(filepath.Join(t.TempDir(), "no-such-session"))
	err := dev.Open(config.Capture{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "recording stream missing")
}

func TestPlaybackNextBeforeOpen(t *testing.T) {
	t.Parallel()

	dev := NewPlaybackDevice(t.TempDir())
	_, err := dev.NextFrameSet()
	assert.Error(t, err)
}

func TestEnsureDepth16(t *testing.T) {
	t.Parallel()

	t.Run("keeps native 16-bit frames", func(t *testing.T) {
		t.Parallel()
		depth := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(1200, 0, 0, 0), 48, 64, gocv.MatTypeCV16UC1)
		out := ensureDepth16(depth)
		defer out.Close()
		assert.Equal(t, gocv.MatTypeCV16UC1, out.Type())
	})

	t.Run("promotes 8-bit BGR fallback frames", func(t *testing.T) {
		t.Parallel()
		depth := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(10, 10, 10, 0), 48, 64, gocv.MatTypeCV8UC3)
		out := ensureDepth16(depth)
		defer out.Close()
		assert.Equal(t, gocv.MatTypeCV16UC1, out.Type())
		assert.Equal(t, 64, out.Cols())
		assert.Equal(t, 48, out.Rows())
	})
}
