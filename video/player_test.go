package video

import (
	"context"
	"errors"
	"image/color"
	"testing"
	"time"

	"github.com/nvr-ai/intelliroad/images"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

// fakeSource yields n solid frames whose blue channel is the frame index.
type fakeSource struct {
	n      int
	read   int
	closed int
	empty  map[int]bool
}

func (s *fakeSource) Read(m *gocv.Mat) bool {
	if s.closed > 0 || s.read >= s.n {
		return false
	}
	i := s.read
	s.read++
	if s.empty[i] {
		m.Close()
		*m = gocv.NewMat()
		return true
	}
	frame := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(float64(i), 0, 0, 0), 4, 6, gocv.MatTypeCV8UC3)
	defer frame.Close()
	frame.CopyTo(m)
	return true
}

func (s *fakeSource) Close() error {
	s.closed++
	return nil
}

func TestPlayer_HandlesEveryFrameInOrder(t *testing.T) {
	src := &fakeSource{n: 3}
	var seen []color.RGBA
	p := NewPlayer(src, time.Millisecond, func(_ context.Context, c *images.Canvas) error {
		assert.Equal(t, images.OrderBGR, c.Order)
		assert.Equal(t, 6, c.Width())
		assert.Equal(t, 4, c.Height())
		seen = append(seen, c.PixelAt(0, 0))
		return nil
	})

	require.NoError(t, p.Run(context.Background()))

	require.Len(t, seen, 3)
	for i, px := range seen {
		assert.Equal(t, uint8(i), px.B)
	}
	assert.Equal(t, 3, p.Frames())
	assert.False(t, p.Running())
	assert.Equal(t, 1, src.closed)
}

func TestPlayer_RunWaitsAfterSlowFrames(t *testing.T) {
	const (
		delay = 20 * time.Millisecond
		work  = 40 * time.Millisecond
	)
	var starts []time.Time
	p := NewPlayer(&fakeSource{n: 3}, delay, func(context.Context, *images.Canvas) error {
		starts = append(starts, time.Now())
		time.Sleep(work)
		return nil
	})

	require.NoError(t, p.Run(context.Background()))
	require.Len(t, starts, 3)
	for i := 1; i < len(starts); i++ {
		assert.GreaterOrEqual(t, starts[i].Sub(starts[i-1]), work+delay)
	}
}

func TestPlayer_StopEndsPlayback(t *testing.T) {
	src := &fakeSource{n: 100}
	calls := 0
	p := NewPlayer(src, time.Millisecond, func(context.Context, *images.Canvas) error {
		calls++
		return nil
	})

	assert.True(t, p.Step(context.Background()))
	assert.True(t, p.Step(context.Background()))
	p.Stop()
	p.Stop()

	assert.False(t, p.Step(context.Background()))
	assert.Equal(t, 2, calls)
	assert.False(t, p.Running())
	assert.Equal(t, 1, src.closed)
}

func TestPlayer_StopFromHandler(t *testing.T) {
	src := &fakeSource{n: 100}
	var p *Player
	p = NewPlayer(src, time.Millisecond, func(context.Context, *images.Canvas) error {
		if p.Frames() == 5 {
			p.Stop()
		}
		return nil
	})

	require.NoError(t, p.Run(context.Background()))
	assert.Equal(t, 5, p.Frames())
	assert.Equal(t, 5, src.read)
}

func TestPlayer_HandlerErrorDropsFrame(t *testing.T) {
	src := &fakeSource{n: 4}
	p := NewPlayer(src, time.Millisecond, func(_ context.Context, c *images.Canvas) error {
		if c.PixelAt(0, 0).B%2 == 1 {
			return errors.New("model failure")
		}
		return nil
	})

	require.NoError(t, p.Run(context.Background()))
	assert.Equal(t, 4, p.Frames())
	assert.Equal(t, 2, p.Dropped())
}

func TestPlayer_SkipsEmptyFrames(t *testing.T) {
	src := &fakeSource{n: 3, empty: map[int]bool{1: true}}
	calls := 0
	p := NewPlayer(src, time.Millisecond, func(context.Context, *images.Canvas) error {
		calls++
		return nil
	})

	require.NoError(t, p.Run(context.Background()))
	assert.Equal(t, 2, calls)
}

func TestPlayer_ContextCancel(t *testing.T) {
	src := &fakeSource{n: 1000}
	ctx, cancel := context.WithCancel(context.Background())
	p := NewPlayer(src, time.Millisecond, func(context.Context, *images.Canvas) error {
		cancel()
		return nil
	})

	err := p.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, p.Frames())
	assert.False(t, p.Running())
}

func TestNewPlayer_DefaultDelay(t *testing.T) {
	p := NewPlayer(&fakeSource{}, 0, func(context.Context, *images.Canvas) error { return nil })
	assert.Equal(t, DefaultFrameDelay, p.delay)
	p.Stop()
}

func TestFPS_Fallback(t *testing.T) {
	assert.Equal(t, 25.0, FPS(&fakeSource{}, 25))
}
