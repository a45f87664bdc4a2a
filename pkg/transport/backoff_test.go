package transport_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/customfit-ai/customfit-go/pkg/transport"
)

func TestExponentialBackoff_NextInterval(t *testing.T) {
	t.Parallel()

	t.Run("doubles without jitter", func(t *testing.T) {
		t.Parallel()

		b := transport.ExponentialBackoff{
			InitialInterval: time.Second,
			MaxInterval:     10 * time.Second,
			Multiplier:      2,
		}

		assert.Equal(t, time.Second, b.NextInterval(1))
		assert.Equal(t, 2*time.Second, b.NextInterval(2))
		assert.Equal(t, 4*time.Second, b.NextInterval(3))
		assert.Equal(t, 8*time.Second, b.NextInterval(4))
		// Capped at the maximum.
		assert.Equal(t, 10*time.Second, b.NextInterval(5))
		assert.Equal(t, 10*time.Second, b.NextInterval(20))
	})

	t.Run("jitter stays within bounds", func(t *testing.T) {
		t.Parallel()

		b := transport.ExponentialBackoff{
			InitialInterval: time.Second,
			MaxInterval:     time.Minute,
			Multiplier:      2,
			JitterFactor:    0.2,
		}

		for i := 0; i < 100; i++ {
			d := b.NextInterval(2)
			assert.GreaterOrEqual(t, d, 1600*time.Millisecond)
			assert.LessOrEqual(t, d, 2400*time.Millisecond)
		}
	})

	t.Run("non-positive attempt yields zero", func(t *testing.T) {
		t.Parallel()

		b := transport.ExponentialBackoff{}
		assert.Zero(t, b.NextInterval(0))
		assert.Zero(t, b.NextInterval(-1))
	})

	t.Run("zero values use defaults", func(t *testing.T) {
		t.Parallel()

		b := transport.ExponentialBackoff{}
		assert.Equal(t, time.Second, b.NextInterval(1))
		assert.Equal(t, 10*time.Second, b.NextInterval(30))
	})
}

func TestFixedBackoff_NextInterval(t *testing.T) {
	t.Parallel()

	b := transport.FixedBackoff{Interval: 50 * time.Millisecond}
	assert.Equal(t, 50*time.Millisecond, b.NextInterval(1))
	assert.Equal(t, 50*time.Millisecond, b.NextInterval(10))
	assert.Zero(t, b.NextInterval(0))
}
