package progress

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCompute(t *testing.T) {
	t.Run("processing complete forces 100", func(t *testing.T) {
		assert.Equal(t, 100.0, Compute("Processing complete", 45, 10, 5))
		assert.Equal(t, 100.0, Compute("processing complete: no content indexed", 0, 0, 0))
	})

	t.Run("prior 100 is terminal regardless of status", func(t *testing.T) {
		assert.Equal(t, 100.0, Compute("Queued for processing", 100, 0, 0))
		assert.Equal(t, 100.0, Compute("Error: boom", 100, 0, 0))
	})

	t.Run("error freezes prior percentage", func(t *testing.T) {
		assert.Equal(t, 45.0, Compute("Error: extraction failed", 45, 10, 9))
		assert.Equal(t, 0.0, Compute("Processing failed", 0, 10, 9))
	})

	t.Run("queued is zero", func(t *testing.T) {
		assert.Equal(t, 0.0, Compute("Queued for processing", 0, 0, 0))
	})

	t.Run("sending is five", func(t *testing.T) {
		assert.Equal(t, 5.0, Compute("Sending to content extraction", 0, 0, 0))
	})

	t.Run("saving chunk scales between 5 and 85", func(t *testing.T) {
		assert.Equal(t, 45.0, Compute("Saving chunk 5 of 10", 5, 10, 5))
		assert.Equal(t, 85.0, Compute("Saving chunk 10 of 10", 45, 10, 10))
		assert.Equal(t, 13.0, Compute("Saving page 1 of 10", 5, 10, 1))
	})

	t.Run("saving chunk without page count stays at 5", func(t *testing.T) {
		assert.Equal(t, 5.0, Compute("Saving chunk 1 of 0", 5, 0, 1))
	})

	t.Run("current chunk capped at number of pages", func(t *testing.T) {
		assert.Equal(t, 85.0, Compute("Saving chunk 15 of 10", 45, 10, 15))
	})

	t.Run("extracting final metadata is 95", func(t *testing.T) {
		assert.Equal(t, 95.0, Compute("Extracting final metadata", 85, 10, 10))
	})

	t.Run("unknown status keeps prior", func(t *testing.T) {
		assert.Equal(t, 42.0, Compute("Waiting on something", 42, 0, 0))
	})

	t.Run("result never exceeds 99 outside completion", func(t *testing.T) {
		assert.Equal(t, 99.0, Compute("Waiting", 99.6, 0, 0))
	})

	t.Run("deterministic", func(t *testing.T) {
		first := Compute("Saving chunk 7 of 13", 5, 13, 7)
		for i := 0; i < 10; i++ {
			assert.Equal(t, first, Compute("Saving chunk 7 of 13", 5, 13, 7))
		}
	})
}

func TestComputeMonotonicLadder(t *testing.T) {
	// The ladder an ordinary run walks: each phase's percentage must not
	// regress from the previous one.
	pct := Compute("Queued for processing", 0, 0, 0)
	assert.Equal(t, 0.0, pct)

	next := Compute("Sending to content extraction", pct, 0, 0)
	assert.GreaterOrEqual(t, next, pct)
	pct = next

	for chunk := 1; chunk <= 10; chunk++ {
		next = Compute("Saving chunk", pct, 10, chunk)
		assert.GreaterOrEqual(t, next, pct)
		pct = next
	}

	next = Compute("Extracting final metadata", pct, 10, 10)
	assert.GreaterOrEqual(t, next, pct)
	pct = next

	next = Compute("Processing complete", pct, 10, 10)
	assert.Equal(t, 100.0, next)
}
