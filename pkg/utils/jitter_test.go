package utils

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJitter_Bounds(t *testing.T) {
	base := time.Minute
	for i := 0; i < 1000; i++ {
		d := Jitter(base, 0.1)
		assert.GreaterOrEqual(t, d, 54*time.Second)
		assert.LessOrEqual(t, d, 66*time.Second)
	}
}

func TestJitter_NoFraction(t *testing.T) {
	assert.Equal(t, time.Second, Jitter(time.Second, 0))
	assert.Equal(t, time.Second, Jitter(time.Second, -1))
}

func TestJitteredTicker_ClosesOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := JitteredTicker(ctx, 5*time.Millisecond, 0.1)

	select {
	case _, ok := <-ch:
		require.True(t, ok)
	case <-time.After(time.Second):
		t.Fatal("no tick received")
	}

	cancel()
	deadline := time.After(time.Second)
	for {
		select {
		case _, ok := <-ch:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("ticker channel not closed after cancel")
		}
	}
}

func TestResolvePath(t *testing.T) {
	assert.Equal(t, "/etc/zapup", ResolvePath("/etc/zapup"))
	assert.Equal(t, ".", ResolvePath("."))
	assert.NotContains(t, ResolvePath("~/conf"), "~")
}
