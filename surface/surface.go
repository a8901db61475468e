// Package surface hosts a video stream in a render loop: it owns the
// pipeline controller and the compositor, and exposes the lifecycle hooks a
// scene graph calls once per frame.
//
// Host call order per frame:
//
//	Sync(w, h)          GUI/render thread, scene synchronized
//	BeforeRenderPass()  render thread, pulls the newest frame
//	Render(state)       render thread, draws
//	AfterSync()         render thread, strategy post-processing
package surface

import (
	"errors"
	"fmt"
	"math"
	"sync/atomic"

	videotexture "github.com/nxp-imx-support/imx-video-to-texture"
	"github.com/nxp-imx-support/imx-video-to-texture/compositor"
)

// ControllerFactory builds the surface's pipeline controller. gstbackend
// provides one bound to the host's GL context.
type ControllerFactory func(opts ...videotexture.Option) (*videotexture.Controller, error)

// Config holds the surface's initial playback settings.
type Config struct {
	Source  videotexture.Source
	Looping bool
}

// Surface is a video item in a host scene.
type Surface struct {
	cfg      Config
	factory  ControllerFactory
	gl       compositor.GL
	strategy Strategy
	onUpdate func()

	ctrl atomic.Pointer[videotexture.Controller]
	comp *compositor.Compositor // render thread only

	wantPlaying atomic.Bool
	looping     atomic.Bool
	hasFrame    atomic.Bool
	frameDirty  atomic.Bool
	ready       atomic.Bool
	position    atomic.Uint64 // float64 bits
	ratio       atomic.Uint32 // float32 bits
	width       atomic.Int32
	height      atomic.Int32
}

// Option configures a Surface.
type Option func(*Surface)

// WithOnUpdate sets the callback used to request a redraw when a new frame
// arrives. It runs on the streaming thread and must not block.
func WithOnUpdate(fn func()) Option {
	return func(s *Surface) {
		s.onUpdate = fn
	}
}

// New creates a surface. A nil strategy means Playback.
func New(cfg Config, factory ControllerFactory, gl compositor.GL, strategy Strategy, opts ...Option) *Surface {
	if strategy == nil {
		strategy = Playback{}
	}

	s := &Surface{
		cfg:      cfg,
		factory:  factory,
		gl:       gl,
		strategy: strategy,
	}
	s.wantPlaying.Store(strategy.Autostart())
	s.looping.Store(cfg.Looping)
	s.ratio.Store(math.Float32bits(1))
	s.width.Store(-1)
	s.height.Store(-1)

	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Attach builds the compositor and the pipeline. Call it on the render thread
// with the GL context current, once the host window is available. Calling it
// again while attached does nothing. If the pipeline cannot be built, nothing
// is kept and Attach may be retried.
func (s *Surface) Attach() error {
	if s.ctrl.Load() != nil {
		return nil
	}

	comp := compositor.New(s.gl)
	if err := comp.Prepare(); err != nil {
		return fmt.Errorf("surface: %w", err)
	}

	ctrl, err := s.factory(
		videotexture.WithListener(videotexture.Listener{
			OnFrameAvailable:    s.frameAvailable,
			OnPrerollComplete:   s.prerollComplete,
			OnDimensionsChanged: s.dimensionsChanged,
		}),
		videotexture.WithLooping(s.looping.Load()),
	)
	if err != nil {
		comp.ReleaseAll()
		return fmt.Errorf("surface: %w", err)
	}

	if err := ctrl.SetSource(s.cfg.Source); err != nil {
		if cerr := ctrl.Close(); cerr != nil {
			videotexture.Logger().Warn("surface: failed to close controller", "error", cerr)
		}
		comp.ReleaseAll()
		return fmt.Errorf("surface: %w", err)
	}

	s.comp = comp
	s.ctrl.Store(ctrl)
	if s.strategy.Autostart() {
		if err := ctrl.Play(); err != nil {
			return fmt.Errorf("surface: %w", err)
		}
	}

	videotexture.Logger().Debug("surface: attached",
		"source", s.cfg.Source.String(),
		"autostart", s.strategy.Autostart(),
	)
	return s.strategy.Attached(s)
}

// Attached reports whether Attach succeeded and Invalidate has not run since.
func (s *Surface) Attached() bool {
	return s.ctrl.Load() != nil
}

// Controller returns the pipeline controller, or nil before Attach.
func (s *Surface) Controller() *videotexture.Controller {
	return s.ctrl.Load()
}

// Compositor returns the compositor, or nil before Attach.
func (s *Surface) Compositor() *compositor.Compositor {
	return s.comp
}

// Sync applies the item geometry and processes frames delivered since the
// previous sync: the position is refreshed and, if playback was not
// requested, the pipeline is paused again after showing the frame.
func (s *Surface) Sync(width, height int) {
	if s.comp != nil {
		s.comp.SetViewportGeometry(width, height)
	}

	ctrl := s.ctrl.Load()
	if ctrl == nil || !s.frameDirty.Swap(false) {
		return
	}

	s.position.Store(math.Float64bits(ctrl.PositionFraction()))
	if !s.wantPlaying.Load() {
		if err := ctrl.Pause(); err != nil {
			videotexture.Logger().Warn("surface: pause failed", "error", err)
		}
	}
}

// BeforeRenderPass pulls the newest frame into the compositor.
func (s *Surface) BeforeRenderPass() error {
	ctrl := s.ctrl.Load()
	if ctrl == nil || !s.hasFrame.Load() || !s.strategy.ShouldPull() {
		return nil
	}

	tex, err := ctrl.AcquireCurrentFrame()
	if err != nil {
		return err
	}
	if tex.Valid() {
		s.comp.SetTarget(tex)
	}
	return nil
}

// Render draws the current texture.
func (s *Surface) Render(state compositor.RenderState) error {
	if s.comp == nil {
		return nil
	}
	return s.comp.Draw(state)
}

// AfterSync runs the strategy's post-sync hook.
func (s *Surface) AfterSync() error {
	if s.ctrl.Load() == nil {
		return nil
	}
	return s.strategy.AfterSync(s)
}

// Invalidate releases the pipeline and every GL resource. Call it on the
// render thread when the scene graph is invalidated.
func (s *Surface) Invalidate() error {
	var errs []error

	if ctrl := s.ctrl.Swap(nil); ctrl != nil {
		if err := ctrl.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if s.comp != nil {
		s.comp.ReleaseAll()
		s.comp = nil
	}
	if r, ok := s.gl.(interface{ Release() }); ok {
		r.Release()
	}

	s.hasFrame.Store(false)
	s.ready.Store(false)
	return errors.Join(errs...)
}

// Play requests playback.
func (s *Surface) Play() error {
	s.wantPlaying.Store(true)
	if ctrl := s.ctrl.Load(); ctrl != nil {
		return ctrl.Play()
	}
	return nil
}

// Pause requests a pause.
func (s *Surface) Pause() error {
	s.wantPlaying.Store(false)
	if ctrl := s.ctrl.Load(); ctrl != nil {
		return ctrl.Pause()
	}
	return nil
}

// SetPlaying calls Play or Pause.
func (s *Surface) SetPlaying(playing bool) error {
	if playing {
		return s.Play()
	}
	return s.Pause()
}

// Playing reports whether playback is requested.
func (s *Surface) Playing() bool {
	return s.wantPlaying.Load()
}

// Skip seeks n seconds and runs the pipeline so the new position is shown.
// When paused, the next Sync pauses it again after one frame.
func (s *Surface) Skip(n int) error {
	ctrl := s.ctrl.Load()
	if ctrl == nil {
		return nil
	}
	if err := ctrl.SeekBySeconds(n); err != nil {
		return err
	}
	return ctrl.Play()
}

// SetPosition seeks to a fraction of the duration and runs the pipeline so
// the new position is shown.
func (s *Surface) SetPosition(p float64) error {
	s.position.Store(math.Float64bits(p))

	ctrl := s.ctrl.Load()
	if ctrl == nil {
		return nil
	}
	if err := ctrl.SeekToFraction(p); err != nil {
		return err
	}
	return ctrl.Play()
}

// Position returns the last known position as a fraction of the duration.
func (s *Surface) Position() float64 {
	return math.Float64frombits(s.position.Load())
}

// SetLooping enables or disables restart at end of stream.
func (s *Surface) SetLooping(loop bool) {
	s.looping.Store(loop)
	if ctrl := s.ctrl.Load(); ctrl != nil {
		ctrl.SetLooping(loop)
	}
}

// ToggleLooping flips looping and returns the new value.
func (s *Surface) ToggleLooping() bool {
	loop := !s.looping.Load()
	s.SetLooping(loop)
	return loop
}

// Looping reports whether looping is enabled.
func (s *Surface) Looping() bool {
	return s.looping.Load()
}

// SetSource changes the source. When attached, the pipeline is rebuilt and,
// with an autostart strategy, played.
func (s *Surface) SetSource(src videotexture.Source) error {
	s.cfg.Source = src

	ctrl := s.ctrl.Load()
	if ctrl == nil {
		return nil
	}

	s.hasFrame.Store(false)
	s.ready.Store(false)
	if err := ctrl.SetSource(src); err != nil {
		return err
	}
	if s.strategy.Autostart() {
		return ctrl.Play()
	}
	return nil
}

// Source returns the configured source.
func (s *Surface) Source() videotexture.Source {
	return s.cfg.Source
}

// Ready reports whether the pipeline has prerolled.
func (s *Surface) Ready() bool {
	return s.ready.Load()
}

// Ratio returns the video aspect ratio (width / height), 1 until known.
func (s *Surface) Ratio() float32 {
	return math.Float32frombits(s.ratio.Load())
}

func (s *Surface) frameAvailable() {
	s.hasFrame.Store(true)
	s.frameDirty.Store(true)
	if ctrl := s.ctrl.Load(); ctrl != nil {
		s.dimensionsChanged(ctrl.Dimensions())
	}

	s.strategy.FrameAvailable(s)

	if s.onUpdate != nil {
		s.onUpdate()
	}
}

func (s *Surface) prerollComplete() {
	s.ready.Store(true)
	s.strategy.PrerollComplete(s)
}

func (s *Surface) dimensionsChanged(width, height int) {
	if width <= 0 || height <= 0 {
		return
	}

	oldW := s.width.Swap(int32(width))
	oldH := s.height.Swap(int32(height))
	if oldW == int32(width) && oldH == int32(height) {
		return
	}
	s.ratio.Store(math.Float32bits(float32(width) / float32(height)))
}
