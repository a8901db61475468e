// Package capture grabs a single video frame into a persistent texture: it
// seeks, plays until one frame has been drawn offscreen, then freezes that
// frame in the compositor and releases the pipeline.
package capture

import (
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	videotexture "github.com/nxp-imx-support/imx-video-to-texture"
)

// State of a capture.
type State int

const (
	Waiting   State = iota // No surface yet
	Pending                // Waiting for preroll
	Started                // Play issued, waiting for a frame
	Rendering              // Frame arrived, waiting for it to be drawn offscreen
	Done                   // Frame frozen, pipeline released
)

// String returns the state name
func (s State) String() string {
	switch s {
	case Waiting:
		return "waiting"
	case Pending:
		return "pending"
	case Started:
		return "started"
	case Rendering:
		return "rendering"
	case Done:
		return "done"
	default:
		return "unknown"
	}
}

// Player is the part of the pipeline controller the capture drives.
type Player interface {
	SeekToFraction(p float64) error
	Play() error
	Pause() error
	Teardown() error
}

// Renderer is the part of the compositor the capture drives.
type Renderer interface {
	SetTarget(videotexture.TextureHandle)
	SetOffscreen(bool)
	OffscreenTexture() videotexture.TextureHandle
	Draws() uint64
}

// Machine is the capture state machine.
//
// Transitions:
//
//	Waiting ──Attach──► Pending ──preroll──► Started ──frame──► Rendering ──drawn──► Done
//
// Transitions are decided under a mutex; Player and Renderer calls are made
// after it is released, because Teardown waits for the threads that deliver
// FrameAvailable and PrerollComplete.
type Machine struct {
	mu sync.Mutex

	id       uuid.UUID
	state    State
	player   Player
	renderer Renderer
	fraction float64
	onLoaded func()

	prerolled bool
	drawMark  uint64
	loaded    bool
}

// Option configures a Machine.
type Option func(*Machine)

// WithTargetFraction sets where to grab the frame, as a fraction of the
// duration. Values ≤ 0 grab the first frame.
func WithTargetFraction(p float64) Option {
	return func(m *Machine) {
		m.fraction = p
	}
}

// WithOnLoaded sets a callback invoked once, on the render thread, when the
// frame is frozen.
func WithOnLoaded(fn func()) Option {
	return func(m *Machine) {
		m.onLoaded = fn
	}
}

// NewMachine returns a machine in the Waiting state.
func NewMachine(opts ...Option) *Machine {
	m := &Machine{
		id:       uuid.New(),
		state:    Waiting,
		fraction: -1,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// State returns the current state.
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Loaded reports whether the frame has been frozen.
func (m *Machine) Loaded() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loaded
}

// TargetFraction returns the configured grab position.
func (m *Machine) TargetFraction() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.fraction
}

// SetTargetFraction changes the grab position. It only affects a capture
// that has not started yet.
func (m *Machine) SetTargetFraction(p float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fraction = p
}

// Attach binds the machine to a player and renderer once the surface is
// available, switches the renderer offscreen and attempts Take. Only the
// first call has an effect.
func (m *Machine) Attach(player Player, renderer Renderer) error {
	m.mu.Lock()
	if m.player != nil || (m.state != Waiting && m.state != Pending) {
		m.mu.Unlock()
		return nil
	}
	m.player = player
	m.renderer = renderer
	m.state = Pending
	m.loaded = false
	m.mu.Unlock()

	renderer.SetOffscreen(true)

	videotexture.Logger().Debug("capture: attached", "capture", m.id)
	return m.Take()
}

// Take arms the capture: once attached and prerolled, it seeks to the target
// fraction (if > 0), plays, and moves to Started. It has no effect once the
// capture has started, including after Done.
func (m *Machine) Take() error {
	m.mu.Lock()
	if m.state != Waiting && m.state != Pending {
		m.mu.Unlock()
		return nil
	}
	m.state = Pending

	if m.player == nil || !m.prerolled {
		m.mu.Unlock()
		return nil
	}
	m.state = Started
	player, fraction := m.player, m.fraction
	m.mu.Unlock()

	if fraction > 0 {
		if err := player.SeekToFraction(fraction); err != nil {
			videotexture.Logger().Warn("capture: seek failed, grabbing from current position",
				"fraction", fraction,
				"error", err,
				"capture", m.id,
			)
		}
	}

	if err := player.Play(); err != nil {
		m.mu.Lock()
		if m.state == Started {
			m.state = Pending
		}
		m.mu.Unlock()
		return fmt.Errorf("capture: play: %w", err)
	}

	videotexture.Logger().Debug("capture: started", "fraction", fraction, "capture", m.id)
	return nil
}

// PrerollComplete records that the pipeline has prerolled and, if the
// capture is pending, takes it.
func (m *Machine) PrerollComplete() error {
	m.mu.Lock()
	m.prerolled = true
	pending := m.state == Pending
	m.mu.Unlock()

	if pending {
		return m.Take()
	}
	return nil
}

// FrameAvailable moves Started to Rendering. The frame counts as rendered
// after the next completed draw.
func (m *Machine) FrameAvailable() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != Started {
		return
	}
	m.state = Rendering
	m.drawMark = m.renderer.Draws()
}

// ShouldPull reports whether the surface should keep replacing the target
// texture with new frames. False once the frame is frozen.
func (m *Machine) ShouldPull() bool {
	return m.State() != Done
}

// AfterSync runs on the render thread after each sync. Once a frame has been
// drawn offscreen it freezes it: the offscreen texture becomes the target,
// drawing goes back to the scene, and the pipeline is paused and torn down.
// This happens exactly once.
func (m *Machine) AfterSync() error {
	m.mu.Lock()
	if m.state != Rendering || m.renderer.Draws() <= m.drawMark {
		m.mu.Unlock()
		return nil
	}
	m.state = Done
	player, renderer := m.player, m.renderer
	m.mu.Unlock()

	renderer.SetTarget(renderer.OffscreenTexture())
	renderer.SetOffscreen(false)

	var errs []error
	if err := player.Pause(); err != nil {
		errs = append(errs, fmt.Errorf("capture: pause: %w", err))
	}
	if err := player.Teardown(); err != nil {
		errs = append(errs, fmt.Errorf("capture: teardown: %w", err))
	}

	m.mu.Lock()
	m.loaded = true
	onLoaded := m.onLoaded
	m.mu.Unlock()

	videotexture.Logger().Info("capture: frame captured",
		"texture", renderer.OffscreenTexture().String(),
		"capture", m.id,
	)

	if onLoaded != nil {
		onLoaded()
	}
	return errors.Join(errs...)
}
