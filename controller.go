package videotexture

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/nxp-imx-support/imx-video-to-texture/internal/frameslot"
)

// Controller owns the lifecycle of one media pipeline at a time and the frame
// slot it delivers into.
//
// Lifecycle operations (SetSource, Teardown, Close) are serialized. Playback
// operations (Play, Pause, seeks) and AcquireCurrentFrame do not take that
// lock: they act on the current pipeline session, or do nothing if there is
// none. Stopping a session waits for its in-flight pipeline calls, and calls
// that arrive afterwards do nothing.
type Controller struct {
	backend Backend
	diag    Diagnostics

	listener atomic.Pointer[Listener]
	looping  atomic.Bool
	playing  atomic.Bool
	closed   atomic.Bool

	mu      sync.Mutex // Serializes SetSource / Teardown / Close
	current atomic.Pointer[session]
}

// Option configures a Controller.
type Option func(*Controller)

// WithDiagnostics sets the sink for pipeline errors and warnings.
// Defaults to SlogDiagnostics.
func WithDiagnostics(d Diagnostics) Option {
	return func(c *Controller) {
		if d != nil {
			c.diag = d
		}
	}
}

// WithListener sets the initial listener.
func WithListener(l Listener) Option {
	return func(c *Controller) {
		c.listener.Store(&l)
	}
}

// WithLooping sets the initial looping mode.
func WithLooping(loop bool) Option {
	return func(c *Controller) {
		c.looping.Store(loop)
	}
}

// NewController creates a controller on top of backend. No pipeline is built
// until SetSource.
func NewController(backend Backend, opts ...Option) (*Controller, error) {
	if backend == nil {
		return nil, fmt.Errorf("%w: backend is required", ErrPipelineConstruction)
	}

	c := &Controller{
		backend: backend,
		diag:    SlogDiagnostics{},
	}
	c.listener.Store(&Listener{})
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// SetListener replaces the listener. The zero Listener detaches.
func (c *Controller) SetListener(l Listener) {
	c.listener.Store(&l)
}

// SetSource tears down the current pipeline, if any, then builds a pipeline
// for src and prerolls it (paused).
//
// Returns an error wrapping ErrPipelineConstruction if the pipeline cannot be
// built, or ErrPipelineStateChange if it refuses to pause. If the previous
// pipeline refuses to stop, no new pipeline is built and the error wraps
// ErrPipelineTeardown. In every case the controller is left uninitialized.
func (c *Controller) SetSource(src Source) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		return ErrClosed
	}

	if err := c.teardownLocked(); err != nil {
		return fmt.Errorf("videotexture: replace source with %s: %w", src, err)
	}

	return c.initLocked(src)
}

func (c *Controller) initLocked(src Source) error {
	s := &session{
		id:     uuid.New(),
		ctrl:   c,
		source: src,
		slot:   frameslot.New[Buffer](),
	}

	p, err := c.backend.Open(src, s)
	if err != nil {
		if !errors.Is(err, ErrPipelineConstruction) {
			err = fmt.Errorf("%w: %w", ErrPipelineConstruction, err)
		}
		return err
	}
	s.pipeline = p
	s.started = time.Now()

	c.playing.Store(false)
	c.current.Store(s)

	if err := p.SetState(StatePaused); err != nil {
		c.current.CompareAndSwap(s, nil)
		if stopErr := s.shutdown(); stopErr != nil {
			Logger().Warn("videotexture: failed to release unpaused pipeline", "error", stopErr)
		}
		return fmt.Errorf("%w: %s → %s: %w", ErrPipelineStateChange, src, StatePaused, err)
	}

	Logger().Info("videotexture: pipeline initialized",
		"source", src.String(),
		"session", s.id,
	)
	return nil
}

// Initialized reports whether a pipeline is active.
func (c *Controller) Initialized() bool {
	return c.current.Load() != nil
}

// Play starts playback. No-op when uninitialized.
func (c *Controller) Play() error {
	return c.setState(StatePlaying)
}

// Pause pauses playback. No-op when uninitialized.
func (c *Controller) Pause() error {
	return c.setState(StatePaused)
}

func (c *Controller) setState(st State) error {
	s := c.current.Load()
	if s == nil || !s.begin() {
		return nil
	}
	defer s.end()

	if err := s.pipeline.SetState(st); err != nil {
		return fmt.Errorf("%w: → %s: %w", ErrPipelineStateChange, st, err)
	}
	c.playing.Store(st == StatePlaying)
	return nil
}

// Playing reports whether playback was last requested to run and has not
// reached end of stream.
func (c *Controller) Playing() bool {
	return c.playing.Load()
}

// SetLooping enables or disables restart at end of stream.
func (c *Controller) SetLooping(loop bool) {
	c.looping.Store(loop)
}

// Looping reports whether looping is enabled.
func (c *Controller) Looping() bool {
	return c.looping.Load()
}

// SeekBySeconds seeks n seconds relative to the current position, clamped by
// ClampSeek. No-op when uninitialized or the position is not yet known.
func (c *Controller) SeekBySeconds(n int) error {
	s := c.current.Load()
	if s == nil || !s.begin() {
		return nil
	}
	defer s.end()

	pos, ok := s.pipeline.Position()
	if !ok {
		Logger().Debug("videotexture: position unknown, ignoring relative seek", "seconds", n)
		return nil
	}
	dur, known := s.pipeline.Duration()

	return s.seek(ClampSeek(pos, dur, known, n))
}

// SeekToFraction seeks to p·duration, p clamped to [0,1]. No-op while the
// duration is unknown.
func (c *Controller) SeekToFraction(p float64) error {
	s := c.current.Load()
	if s == nil || !s.begin() {
		return nil
	}
	defer s.end()

	dur, known := s.pipeline.Duration()
	if !known || dur <= 0 {
		Logger().Debug("videotexture: duration unknown, ignoring seek", "fraction", p)
		return nil
	}

	return s.seek(FractionTarget(p, dur))
}

// PositionFraction returns the playback position as a fraction of the
// duration, or 0 while either is unknown.
func (c *Controller) PositionFraction() float64 {
	s := c.current.Load()
	if s == nil || !s.begin() {
		return 0
	}
	defer s.end()
	return s.positionFraction()
}

// PlaybackState returns a snapshot of position and mode.
func (c *Controller) PlaybackState() PlaybackState {
	st := PlaybackState{
		Looping: c.looping.Load(),
		Playing: c.playing.Load(),
	}

	s := c.current.Load()
	if s == nil || !s.begin() {
		return st
	}
	defer s.end()

	st.Duration, st.DurationKnown = s.pipeline.Duration()
	st.Position = s.positionFraction()
	return st
}

// AcquireCurrentFrame promotes the newest delivered frame to displaying and
// returns its texture. Call it on the render thread, once per frame.
//
// Returns InvalidTexture (and no error) when uninitialized or before the
// first frame. Returns an error wrapping ErrUnsupportedTextureFormat if the
// frame is not GPU texture memory.
func (c *Controller) AcquireCurrentFrame() (TextureHandle, error) {
	s := c.current.Load()
	if s == nil {
		return InvalidTexture, nil
	}

	tex := InvalidTexture
	var texErr error
	s.slot.Acquire(func(b Buffer) {
		tex, texErr = b.Texture()
	})

	if texErr != nil {
		if !errors.Is(texErr, ErrUnsupportedTextureFormat) {
			texErr = fmt.Errorf("%w: %w", ErrUnsupportedTextureFormat, texErr)
		}
		Logger().Error("videotexture: frame is not GPU texture memory",
			"error", texErr,
			"session", s.id,
		)
		return InvalidTexture, texErr
	}
	return tex, nil
}

// HasFrame reports whether a frame is available to acquire.
func (c *Controller) HasFrame() bool {
	s := c.current.Load()
	return s != nil && s.slot.HasFrame()
}

// Dimensions returns the negotiated frame size, or zeros while unknown.
func (c *Controller) Dimensions() (width, height int) {
	s := c.current.Load()
	if s == nil {
		return 0, 0
	}
	return int(s.width.Load()), int(s.height.Load())
}

// Stats returns a snapshot of the current session.
func (c *Controller) Stats() ControllerStats {
	s := c.current.Load()
	if s == nil {
		return ControllerStats{}
	}
	return ControllerStats{
		Session:   s.id,
		Source:    s.source,
		Width:     int(s.width.Load()),
		Height:    int(s.height.Load()),
		Prerolled: s.prerolled.Load(),
		Slot:      s.slot.Stats(),
	}
}

// Teardown stops the pipeline synchronously, releases every held frame
// exactly once and frees the pipeline. Idempotent.
//
// If the pipeline refuses to stop, the error (wrapping ErrPipelineTeardown)
// is returned once; the controller is still left uninitialized.
func (c *Controller) Teardown() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.teardownLocked()
}

func (c *Controller) teardownLocked() error {
	s := c.current.Swap(nil)
	if s == nil {
		return nil
	}
	c.playing.Store(false)
	return s.shutdown()
}

// Close tears down the pipeline and releases the backend. Idempotent.
func (c *Controller) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}

	err := c.teardownLocked()
	if cerr := c.backend.Close(); cerr != nil {
		err = errors.Join(err, fmt.Errorf("videotexture: close backend: %w", cerr))
	}
	return err
}

// session is one pipeline and its frame slot. It is the Sink handed to the
// backend, so callbacks from a torn-down pipeline can never reach a newer one.
type session struct {
	id       uuid.UUID
	ctrl     *Controller
	source   Source
	pipeline Pipeline
	slot     *frameslot.Slot[Buffer]
	started  time.Time

	// opMu is held shared by pipeline calls and exclusively by shutdown
	// while it moves the pipeline to NULL.
	opMu sync.RWMutex

	prerolled atomic.Bool
	stopped   atomic.Bool
	width     atomic.Int64
	height    atomic.Int64
}

// OnSample implements Sink
func (s *session) OnSample(buf Buffer) {
	if buf == nil {
		return
	}
	if !s.slot.Push(buf) || s.stopped.Load() {
		return
	}
	s.ctrl.listener.Load().frameAvailable()
}

// OnCaps implements Sink
func (s *session) OnCaps(width, height int) {
	if width <= 0 || height <= 0 {
		Logger().Warn("videotexture: could not find stream dimensions",
			"width", width,
			"height", height,
			"session", s.id,
		)
		return
	}

	oldW := s.width.Swap(int64(width))
	oldH := s.height.Swap(int64(height))
	if oldW == int64(width) && oldH == int64(height) {
		return
	}

	Logger().Debug("videotexture: stream dimensions",
		"width", width,
		"height", height,
		"session", s.id,
	)
	if !s.stopped.Load() {
		s.ctrl.listener.Load().dimensionsChanged(width, height)
	}
}

// OnMessage implements Sink
func (s *session) OnMessage(msg Message) {
	if s.stopped.Load() {
		return
	}

	switch msg.Kind {
	case MessageEOS:
		if s.ctrl.looping.Load() {
			if !s.begin() {
				return
			}
			err := s.pipeline.Seek(0)
			s.end()
			if err != nil {
				s.ctrl.diag.Report(Diagnostic{
					Severity: SeverityError,
					Message:  "failed to restart pipeline",
					Debug:    err.Error(),
					Category: CategoryUnknown,
				})
			}
			return
		}
		s.ctrl.playing.Store(false)
		Logger().Info("videotexture: end of stream",
			"source", s.source.String(),
			"uptime", time.Since(s.started),
			"session", s.id,
		)

	case MessageError, MessageWarning:
		sev := SeverityWarning
		if msg.Kind == MessageError {
			sev = SeverityError
		}
		s.ctrl.diag.Report(Diagnostic{
			Severity: sev,
			Message:  msg.Text,
			Debug:    msg.Debug,
			Category: msg.Category,
		})

	case MessageAsyncDone:
		if s.prerolled.CompareAndSwap(false, true) {
			Logger().Debug("videotexture: preroll complete", "session", s.id)
			s.ctrl.listener.Load().prerollComplete()
		}
	}
}

// begin enters a pipeline call. It returns false, holding nothing, once the
// session is stopped.
func (s *session) begin() bool {
	s.opMu.RLock()
	if s.stopped.Load() {
		s.opMu.RUnlock()
		return false
	}
	return true
}

func (s *session) end() {
	s.opMu.RUnlock()
}

func (s *session) seek(target time.Duration) error {
	if err := s.pipeline.Seek(target); err != nil {
		return fmt.Errorf("videotexture: seek to %v: %w", target, err)
	}
	return nil
}

func (s *session) positionFraction() float64 {
	pos, ok := s.pipeline.Position()
	if !ok {
		return 0
	}
	dur, known := s.pipeline.Duration()
	if !known || dur <= 0 {
		return 0
	}

	f := float64(pos) / float64(dur)
	switch {
	case f < 0:
		return 0
	case f > 1:
		return 1
	}
	return f
}

// shutdown stops delivery, drains the slot and frees the pipeline.
// In-flight pipeline calls finish first; later ones see stopped and return.
func (s *session) shutdown() error {
	s.opMu.Lock()
	s.stopped.Store(true)
	serr := s.pipeline.SetState(StateNull)
	s.opMu.Unlock()

	var err error
	if serr != nil {
		err = fmt.Errorf("%w: %w", ErrPipelineTeardown, serr)
		Logger().Error("videotexture: failed to stop pipeline", "error", serr, "session", s.id)
	}

	s.slot.Drain()

	if cerr := s.pipeline.Close(); cerr != nil {
		Logger().Warn("videotexture: failed to close pipeline", "error", cerr, "session", s.id)
	}
	s.prerolled.Store(false)

	st := s.slot.Stats()
	Logger().Info("videotexture: pipeline torn down",
		"session", s.id,
		"frames_delivered", st.Delivered,
		"frames_dropped", st.Dropped,
		"frames_displayed", st.Displayed,
		"uptime", time.Since(s.started),
	)
	return err
}
