package retry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDelay(t *testing.T) {
	t.Run("doubles from one second", func(t *testing.T) {
		assert.Equal(t, 1000*time.Millisecond, Delay(0))
		assert.Equal(t, 2000*time.Millisecond, Delay(1))
		assert.Equal(t, 4000*time.Millisecond, Delay(2))
	})

	t.Run("caps at eight seconds", func(t *testing.T) {
		assert.Equal(t, 8000*time.Millisecond, Delay(3))
		assert.Equal(t, 8000*time.Millisecond, Delay(5))
		assert.Equal(t, 8000*time.Millisecond, Delay(10))
	})

	t.Run("negative count treated as zero", func(t *testing.T) {
		assert.Equal(t, 1000*time.Millisecond, Delay(-1))
	})
}
