package video

import (
	"context"
	"sync"
	"time"

	"github.com/nvr-ai/intelliroad/images"
	"github.com/rs/zerolog/log"
	"gocv.io/x/gocv"
)

// DefaultFrameDelay is the pause between two ticks.
const DefaultFrameDelay = 10 * time.Millisecond

// FrameHandler processes one frame. The canvas is closed by the player after the
// handler returns, so handlers must clone anything they keep.
type FrameHandler func(ctx context.Context, frame *images.Canvas) error

// Player reads a source one frame per tick and hands each frame to a handler.
// Frames are processed synchronously: nothing is queued and nothing is skipped.
type Player struct {
	mu      sync.Mutex
	src     Source
	frame   gocv.Mat
	delay   time.Duration
	handler FrameHandler
	running bool
	frames  int
	dropped int
}

// NewPlayer creates a running player that owns src.
//
// Arguments:
//   - src: The frame source. Closed by Stop or at end of stream.
//   - delay: The pause between ticks in Run. Zero or negative uses DefaultFrameDelay.
//   - handler: Called once per frame.
//
// Returns:
//   - *Player: The player.
func NewPlayer(src Source, delay time.Duration, handler FrameHandler) *Player {
	if delay <= 0 {
		delay = DefaultFrameDelay
	}
	return &Player{
		src:     src,
		frame:   gocv.NewMat(),
		delay:   delay,
		handler: handler,
		running: true,
	}
}

// Step reads and handles one frame.
//
// A handler error is logged and the frame is dropped; playback continues.
// Returns false once the player is stopped or the source is exhausted.
func (p *Player) Step(ctx context.Context) bool {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return false
	}
	if !p.src.Read(&p.frame) {
		log.Debug().Int("frames", p.frames).Msg("end of stream")
		p.stopLocked()
		p.mu.Unlock()
		return false
	}
	if p.frame.Empty() {
		p.mu.Unlock()
		return true
	}
	canvas := images.NewCanvas(p.frame.Clone(), images.OrderBGR)
	p.frames++
	p.mu.Unlock()

	defer canvas.Close()
	if err := p.handler(ctx, canvas); err != nil {
		p.mu.Lock()
		p.dropped++
		p.mu.Unlock()
		log.Warn().Err(err).Msg("frame dropped")
	}
	return true
}

// Run steps until the stream ends, Stop is called or ctx is cancelled. The next
// step is scheduled one frame delay after the previous one finished.
func (p *Player) Run(ctx context.Context) error {
	timer := time.NewTimer(p.delay)
	defer timer.Stop()

	for {
		if err := ctx.Err(); err != nil {
			p.Stop()
			return err
		}
		if !p.Step(ctx) {
			return nil
		}
		timer.Reset(p.delay)
		select {
		case <-ctx.Done():
			p.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// Stop prevents further ticks and releases the source. A frame being handled
// finishes normally. Stop is idempotent.
func (p *Player) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopLocked()
}

func (p *Player) stopLocked() {
	if !p.running {
		return
	}
	p.running = false
	if err := p.src.Close(); err != nil {
		log.Warn().Err(err).Msg("failed to close frame source")
	}
	p.frame.Close()
}

// Running reports whether the player still produces frames.
func (p *Player) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// Frames returns the number of frames read so far.
func (p *Player) Frames() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.frames
}

// Dropped returns the number of frames whose handler failed.
func (p *Player) Dropped() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.dropped
}
