// Package mocks provides in-memory doubles of the media backend and GL for
// package tests.
package mocks

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	videotexture "github.com/nxp-imx-support/imx-video-to-texture"
)

// Buffer is a fake frame buffer that counts releases.
type Buffer struct {
	Tex videotexture.TextureHandle
	Err error

	releases atomic.Int32
}

// NewBuffer returns a buffer backed by a 2D texture id.
func NewBuffer(id uint32) *Buffer {
	return &Buffer{Tex: videotexture.TextureHandle{ID: id, Class: videotexture.Standard2D}}
}

// Texture implements videotexture.Buffer
func (b *Buffer) Texture() (videotexture.TextureHandle, error) {
	if b.Err != nil {
		return videotexture.InvalidTexture, b.Err
	}
	return b.Tex, nil
}

// Release implements videotexture.Buffer
func (b *Buffer) Release() { b.releases.Add(1) }

// Releases returns how many times Release was called.
func (b *Buffer) Releases() int { return int(b.releases.Load()) }

// Pipeline is a scripted videotexture.Pipeline.
type Pipeline struct {
	mu sync.Mutex

	Sink   videotexture.Sink
	Source videotexture.Source
	// OnPosition, if set, runs at the start of every Position query.
	OnPosition func()

	state     videotexture.State
	states    []videotexture.State
	seeks     []time.Duration
	position  time.Duration
	posKnown  bool
	duration  time.Duration
	durKnown  bool
	stateErrs map[videotexture.State]error
	seekErr   error
	closed    int
}

// NewPipeline returns a pipeline in the null state with unknown position
// and duration.
func NewPipeline() *Pipeline {
	return &Pipeline{stateErrs: make(map[videotexture.State]error)}
}

// SetState implements videotexture.Pipeline
func (p *Pipeline) SetState(st videotexture.State) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.states = append(p.states, st)
	if err := p.stateErrs[st]; err != nil {
		return err
	}
	p.state = st
	return nil
}

// Position implements videotexture.Pipeline
func (p *Pipeline) Position() (time.Duration, bool) {
	if p.OnPosition != nil {
		p.OnPosition()
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.position, p.posKnown
}

// Duration implements videotexture.Pipeline
func (p *Pipeline) Duration() (time.Duration, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.duration, p.durKnown
}

// Seek implements videotexture.Pipeline
func (p *Pipeline) Seek(pos time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.seeks = append(p.seeks, pos)
	if p.seekErr != nil {
		return p.seekErr
	}
	p.position = pos
	p.posKnown = true
	return nil
}

// Close implements videotexture.Pipeline
func (p *Pipeline) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed++
	return nil
}

// SetPosition scripts the reported position.
func (p *Pipeline) SetPosition(pos time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.position, p.posKnown = pos, true
}

// SetDuration scripts the reported duration.
func (p *Pipeline) SetDuration(d time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.duration, p.durKnown = d, true
}

// FailState makes SetState(st) fail with err.
func (p *Pipeline) FailState(st videotexture.State, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stateErrs[st] = err
}

// FailSeek makes Seek fail with err.
func (p *Pipeline) FailSeek(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.seekErr = err
}

// State returns the last state successfully set.
func (p *Pipeline) State() videotexture.State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// States returns every requested state in order.
func (p *Pipeline) States() []videotexture.State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]videotexture.State(nil), p.states...)
}

// Seeks returns every requested seek target in order.
func (p *Pipeline) Seeks() []time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]time.Duration(nil), p.seeks...)
}

// Closed returns how many times Close was called.
func (p *Pipeline) Closed() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

// Deliver simulates the streaming thread handing over a frame.
func (p *Pipeline) Deliver(buf videotexture.Buffer) { p.Sink.OnSample(buf) }

// Caps simulates caps negotiation.
func (p *Pipeline) Caps(width, height int) { p.Sink.OnCaps(width, height) }

// Preroll simulates the first ASYNC_DONE message.
func (p *Pipeline) Preroll() {
	p.Sink.OnMessage(videotexture.Message{Kind: videotexture.MessageAsyncDone})
}

// EOS simulates end of stream.
func (p *Pipeline) EOS() {
	p.Sink.OnMessage(videotexture.Message{Kind: videotexture.MessageEOS})
}

// Backend is a fake videotexture.Backend handing out Pipelines.
type Backend struct {
	mu sync.Mutex

	// OpenErr makes Open fail.
	OpenErr error
	// Configure, if set, scripts each new pipeline before it is returned.
	Configure func(*Pipeline)

	pipelines []*Pipeline
	closed    int
}

// Open implements videotexture.Backend
func (b *Backend) Open(src videotexture.Source, sink videotexture.Sink) (videotexture.Pipeline, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.OpenErr != nil {
		return nil, fmt.Errorf("%w: %w", videotexture.ErrPipelineConstruction, b.OpenErr)
	}

	p := NewPipeline()
	p.Sink = sink
	p.Source = src
	if b.Configure != nil {
		b.Configure(p)
	}
	b.pipelines = append(b.pipelines, p)
	return p, nil
}

// Close implements videotexture.Backend
func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed++
	return nil
}

// Last returns the most recently opened pipeline, or nil.
func (b *Backend) Last() *Pipeline {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.pipelines) == 0 {
		return nil
	}
	return b.pipelines[len(b.pipelines)-1]
}

// Opened returns how many pipelines were opened.
func (b *Backend) Opened() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.pipelines)
}

// Closed returns how many times Close was called.
func (b *Backend) Closed() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}
