// Package compositor draws a video texture as a quad into a host scene, or
// into an offscreen framebuffer to freeze a single frame.
package compositor

import (
	"fmt"
	"sync/atomic"

	"github.com/go-gl/mathgl/mgl32"

	videotexture "github.com/nxp-imx-support/imx-video-to-texture"
)

var (
	offscreenVertices  = []float32{-1, -1, 1, -1, -1, 1, 1, 1}
	textureCoordinates = []float32{0, 0, 1, 0, 0, 1, 1, 1}
)

// Rect is an integer rectangle in window coordinates (bottom-up).
type Rect struct {
	X, Y, Width, Height int
}

// RenderState is the host scene state for one draw.
type RenderState struct {
	Projection mgl32.Mat4
	Model      mgl32.Mat4
	Opacity    float32 // Inherited opacity

	ScissorEnabled bool
	Scissor        Rect

	StencilEnabled bool
	StencilValue   int32
}

// DefaultRenderState returns identity matrices and full opacity.
func DefaultRenderState() RenderState {
	return RenderState{
		Projection: mgl32.Ident4(),
		Model:      mgl32.Ident4(),
		Opacity:    1,
	}
}

// StateFlags lists the GL states a draw modifies.
type StateFlags uint32

const (
	DepthState StateFlags = 1 << iota
	StencilState
	ScissorState
	ColorState
	BlendState
	CullState
	ViewportState
	RenderTargetState
)

// RenderingFlags describe how the compositor's output relates to the scene.
type RenderingFlags uint32

const (
	BoundedRectRendering RenderingFlags = 1 << iota
	DepthAwareRendering
	OpaqueRendering
)

// Compositor draws the current target texture. All methods must be called on
// the render thread with the GL context current, except Draws.
type Compositor struct {
	gl GL

	program2D       *program
	programExternal *program

	target    videotexture.TextureHandle
	width     int
	height    int
	vertices  []float32
	offscreen bool

	offscreenTexture uint32
	framebuffer      uint32
	framebufferOK    bool

	draws atomic.Uint64
}

// New returns a compositor drawing through gl. Call Prepare before Draw.
func New(gl GL) *Compositor {
	return &Compositor{
		gl:               gl,
		target:           videotexture.InvalidTexture,
		offscreenTexture: videotexture.InvalidTexture.ID,
		framebuffer:      videotexture.InvalidTexture.ID,
		vertices:         make([]float32, 8),
	}
}

// Prepare compiles the 2D and external-OES sampling programs.
// Returns an error wrapping ErrShaderLink on failure; nothing stays allocated.
func (c *Compositor) Prepare() error {
	if c.program2D != nil {
		return nil
	}

	p2d, err := buildProgram(c.gl, videotexture.Standard2D)
	if err != nil {
		return err
	}

	pext, err := buildProgram(c.gl, videotexture.ExternalZeroCopy)
	if err != nil {
		c.gl.DeleteProgram(p2d.id)
		return err
	}

	c.program2D = p2d
	c.programExternal = pext
	return nil
}

// SetTarget sets the texture drawn by subsequent Draw calls. InvalidTexture
// makes Draw a no-op.
func (c *Compositor) SetTarget(tex videotexture.TextureHandle) {
	c.target = tex
}

// Target returns the texture drawn by Draw.
func (c *Compositor) Target() videotexture.TextureHandle {
	return c.target
}

// SetViewportGeometry sets the item size. The scene quad spans (0,0) to
// (w−1,h−1).
func (c *Compositor) SetViewportGeometry(width, height int) {
	c.width = width
	c.height = height

	w := float32(width) - 1
	h := float32(height) - 1
	c.vertices = []float32{0, 0, w, 0, 0, h, w, h}
}

// SetOffscreen switches between drawing into the scene and into the
// offscreen framebuffer.
func (c *Compositor) SetOffscreen(offscreen bool) {
	c.offscreen = offscreen
}

// Offscreen reports whether draws go to the offscreen framebuffer.
func (c *Compositor) Offscreen() bool {
	return c.offscreen
}

// OffscreenTexture returns the texture the offscreen framebuffer renders
// into, or InvalidTexture until a complete framebuffer exists.
func (c *Compositor) OffscreenTexture() videotexture.TextureHandle {
	if c.offscreenTexture == videotexture.InvalidTexture.ID || !c.framebufferOK {
		return videotexture.InvalidTexture
	}
	return videotexture.TextureHandle{ID: c.offscreenTexture, Class: videotexture.Standard2D}
}

// Draws returns the number of completed draws. Safe to call from any thread.
func (c *Compositor) Draws() uint64 {
	return c.draws.Load()
}

// Draw renders the target texture.
//
// Scene mode:
//  1. matrix = projection × model, opacity inherited
//  2. scissor and stencil (EQUAL value, 0xFF; KEEP) follow the scene state
//  3. depth test always on; premultiplied blending (ONE, ONE_MINUS_SRC_ALPHA)
//
// Offscreen mode:
//  1. framebuffer and RGB texture created once at the current size
//  2. viewport = (0,0,w,h); scissor, stencil, depth and blend off
//  3. full-viewport quad, identity matrix, opacity 1
//
// Returns an error wrapping ErrFramebufferIncomplete if the offscreen
// framebuffer is incomplete; the draw is not counted.
func (c *Compositor) Draw(state RenderState) error {
	if !c.target.Valid() {
		return nil
	}
	if c.program2D == nil {
		return fmt.Errorf("compositor: draw before Prepare")
	}

	if err := c.bindFramebuffer(); err != nil {
		return err
	}

	gl := c.gl

	prog := c.program2D
	if c.target.Class == videotexture.ExternalZeroCopy {
		prog = c.programExternal
	}
	gl.UseProgram(prog.id)

	gl.EnableVertexAttribArray(attribVertices)
	gl.EnableVertexAttribArray(attribCoords)

	if c.offscreen {
		gl.VertexAttribPointer(attribVertices, 2, offscreenVertices)
		gl.VertexAttribPointer(attribCoords, 2, textureCoordinates)
		prog.setMatrix(gl, mgl32.Ident4())
		gl.Disable(ScissorTest)
		gl.Disable(StencilTest)
		gl.Disable(DepthTest)
		gl.Disable(Blend)
		gl.Uniform1f(prog.opacity, 1)
	} else {
		gl.VertexAttribPointer(attribVertices, 2, c.vertices)
		gl.VertexAttribPointer(attribCoords, 2, textureCoordinates)
		prog.setMatrix(gl, state.Projection.Mul4(state.Model))

		if state.ScissorEnabled {
			gl.Enable(ScissorTest)
			r := state.Scissor
			gl.Scissor(int32(r.X), int32(r.Y), int32(r.Width), int32(r.Height))
		} else {
			gl.Disable(ScissorTest)
		}

		if state.StencilEnabled {
			gl.Enable(StencilTest)
			gl.StencilFunc(Equal, state.StencilValue, 0xFF)
			gl.StencilOp(Keep, Keep, Keep)
		} else {
			gl.Disable(StencilTest)
		}

		// Test against the scene's depth buffer regardless of flags.
		gl.Enable(DepthTest)

		gl.Uniform1f(prog.opacity, state.Opacity)

		gl.Enable(Blend)
		gl.BlendFunc(One, OneMinusSrcAlpha)
	}

	gl.Uniform1i(prog.texture, textureUnit)
	gl.ActiveTexture(Texture0 + textureUnit)
	gl.BindTexture(c.target.Class.Target(), c.target.ID)

	gl.ColorMask(true, true, true, true)
	gl.DrawArrays(TriangleStrip, 0, 4)

	gl.DisableVertexAttribArray(attribVertices)
	gl.DisableVertexAttribArray(attribCoords)
	gl.UseProgram(0)

	c.draws.Add(1)
	return nil
}

func (c *Compositor) bindFramebuffer() error {
	if !c.offscreen {
		return nil
	}

	gl := c.gl
	if c.framebuffer == videotexture.InvalidTexture.ID {
		c.offscreenTexture = gl.GenTexture()
		gl.BindTexture(Texture2D, c.offscreenTexture)
		gl.TexImage2D(Texture2D, int32(RGB), int32(c.width), int32(c.height), RGB, UnsignedByte)
		gl.TexParameteri(Texture2D, TextureWrapS, ClampToEdge)
		gl.TexParameteri(Texture2D, TextureWrapT, ClampToEdge)
		gl.TexParameteri(Texture2D, TextureMag, Linear)
		gl.TexParameteri(Texture2D, TextureMin, Linear)

		c.framebuffer = gl.GenFramebuffer()
		gl.BindFramebuffer(Framebuffer, c.framebuffer)
		gl.FramebufferTexture2D(Framebuffer, ColorAttach0, Texture2D, c.offscreenTexture)

		status := gl.CheckFramebufferStatus(Framebuffer)
		c.framebufferOK = status == FramebufferOK
		if !c.framebufferOK {
			videotexture.Logger().Error("compositor: offscreen framebuffer incomplete",
				"status", fmt.Sprintf("0x%04X", status),
				"width", c.width,
				"height", c.height,
			)
		}
	} else {
		gl.BindFramebuffer(Framebuffer, c.framebuffer)
	}

	if !c.framebufferOK {
		return fmt.Errorf("%w: %dx%d", videotexture.ErrFramebufferIncomplete, c.width, c.height)
	}

	gl.Viewport(0, 0, int32(c.width), int32(c.height))
	return nil
}

// ReleaseAll deletes the programs, the offscreen texture and framebuffer.
// Idempotent.
func (c *Compositor) ReleaseAll() {
	if c.program2D != nil {
		c.gl.DeleteProgram(c.program2D.id)
		c.program2D = nil
	}
	if c.programExternal != nil {
		c.gl.DeleteProgram(c.programExternal.id)
		c.programExternal = nil
	}
	if c.offscreenTexture != videotexture.InvalidTexture.ID {
		c.gl.DeleteTexture(c.offscreenTexture)
		c.offscreenTexture = videotexture.InvalidTexture.ID
	}
	if c.framebuffer != videotexture.InvalidTexture.ID {
		c.gl.DeleteFramebuffer(c.framebuffer)
		c.framebuffer = videotexture.InvalidTexture.ID
		c.framebufferOK = false
	}
}

// ChangedStates lists the GL states Draw leaves modified.
func (c *Compositor) ChangedStates() StateFlags {
	return BlendState | ScissorState | StencilState | DepthState
}

// Flags describes the compositor's output to the scene renderer.
func (c *Compositor) Flags() RenderingFlags {
	return BoundedRectRendering | DepthAwareRendering
}

// Rect returns the area Draw covers in item coordinates.
func (c *Compositor) Rect() Rect {
	return Rect{X: 0, Y: 0, Width: c.width, Height: c.height}
}
