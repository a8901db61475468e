// Package gstbackend implements videotexture.Backend with GStreamer: a
// playbin whose video sink uploads frames to GL textures in the host's EGL
// context and hands them over from an appsink.
package gstbackend

import (
	"fmt"
	"sync/atomic"

	videotexture "github.com/nxp-imx-support/imx-video-to-texture"
	"github.com/nxp-imx-support/imx-video-to-texture/surface"
)

// GraphicsContext is the host's EGL display and context, as native handles.
// A zero Display runs headless: glupload creates its own context and the
// textures cannot be sampled by the host.
type GraphicsContext struct {
	Display uintptr
	Context uintptr
}

// Config tunes the video sink.
type Config struct {
	// Converter is an element inserted before glupload, e.g.
	// imxvideoconvert_g2d on Amphion VPUs. Skipped if unavailable.
	Converter string
	// SinkName names the appsink. Defaults to DefaultSinkName.
	SinkName string
}

// Backend builds GStreamer pipelines bound to one graphics context.
type Backend struct {
	cfg    Config
	gl     *glContext
	opened atomic.Uint64
	closed atomic.Bool
}

var _ videotexture.Backend = (*Backend)(nil)

// New initializes GStreamer if needed and wraps gfx.
//
// Returns an error wrapping ErrPipelineConstruction if the EGL display or
// context cannot be wrapped.
func New(gfx GraphicsContext, cfg Config) (*Backend, error) {
	if cfg.SinkName == "" {
		cfg.SinkName = DefaultSinkName
	}

	if err := acquireLibrary(); err != nil {
		return nil, err
	}

	gl, err := newGLContext(gfx)
	if err != nil {
		releaseLibrary()
		return nil, err
	}

	videotexture.Logger().Info("gstbackend: backend ready",
		"headless", gl == nil,
		"converter", cfg.Converter,
	)
	return &Backend{cfg: cfg, gl: gl}, nil
}

// Open implements videotexture.Backend
func (b *Backend) Open(src videotexture.Source, sink videotexture.Sink) (videotexture.Pipeline, error) {
	if b.closed.Load() {
		return nil, fmt.Errorf("%w: %w", videotexture.ErrPipelineConstruction, videotexture.ErrClosed)
	}

	name := fmt.Sprintf("videotexture-%d", b.opened.Add(1))
	p, err := buildPipeline(name, src, b.cfg, b.gl, sink)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", videotexture.ErrPipelineConstruction, src, err)
	}
	return p, nil
}

// Close implements videotexture.Backend. Pipelines must be closed first.
func (b *Backend) Close() error {
	if !b.closed.CompareAndSwap(false, true) {
		return nil
	}
	b.gl.free()
	releaseLibrary()
	return nil
}

// NewController creates a backend for gfx and a controller that owns it.
func NewController(gfx GraphicsContext, cfg Config, opts ...videotexture.Option) (*videotexture.Controller, error) {
	b, err := New(gfx, cfg)
	if err != nil {
		return nil, err
	}

	ctrl, err := videotexture.NewController(b, opts...)
	if err != nil {
		_ = b.Close()
		return nil, err
	}
	return ctrl, nil
}

// Factory returns a surface.ControllerFactory building controllers on gfx.
func Factory(gfx GraphicsContext, cfg Config) surface.ControllerFactory {
	return func(opts ...videotexture.Option) (*videotexture.Controller, error) {
		return NewController(gfx, cfg, opts...)
	}
}
