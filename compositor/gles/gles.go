// Package gles implements compositor.GL on OpenGL ES 2.0 through go-gl.
package gles

import (
	"fmt"
	"strings"

	gl "github.com/go-gl/gl/v3.1/gles2"

	"github.com/nxp-imx-support/imx-video-to-texture/compositor"
)

// Context is a compositor.GL bound to the GL context current on the calling
// thread. Vertex arrays are uploaded to buffer objects, one per attribute
// index, so no Go memory is retained by the driver.
type Context struct {
	buffers map[uint32]uint32
}

// New loads the GL entry points. The GL context must be current on the
// calling OS thread (see runtime.LockOSThread).
func New() (*Context, error) {
	if err := gl.Init(); err != nil {
		return nil, fmt.Errorf("gles: failed to load GL functions: %w", err)
	}
	return &Context{buffers: make(map[uint32]uint32)}, nil
}

var _ compositor.GL = (*Context)(nil)

// Release deletes the vertex buffers created by VertexAttribPointer.
func (c *Context) Release() {
	for idx, buf := range c.buffers {
		gl.DeleteBuffers(1, &buf)
		delete(c.buffers, idx)
	}
}

// BuildProgram implements compositor.GL
func (c *Context) BuildProgram(vertexSrc, fragmentSrc string, attribs []compositor.Attrib) (uint32, error) {
	vs, err := compileShader(vertexSrc, gl.VERTEX_SHADER)
	if err != nil {
		return 0, fmt.Errorf("vertex shader: %w", err)
	}
	defer gl.DeleteShader(vs)

	fs, err := compileShader(fragmentSrc, gl.FRAGMENT_SHADER)
	if err != nil {
		return 0, fmt.Errorf("fragment shader: %w", err)
	}
	defer gl.DeleteShader(fs)

	prog := gl.CreateProgram()
	gl.AttachShader(prog, vs)
	gl.AttachShader(prog, fs)
	for _, a := range attribs {
		name := gl.Str(a.Name + "\x00")
		gl.BindAttribLocation(prog, a.Index, name)
	}
	gl.LinkProgram(prog)

	var status int32
	gl.GetProgramiv(prog, gl.LINK_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetProgramiv(prog, gl.INFO_LOG_LENGTH, &logLength)
		log := strings.Repeat("\x00", int(logLength+1))
		gl.GetProgramInfoLog(prog, logLength, nil, gl.Str(log))
		gl.DeleteProgram(prog)
		return 0, fmt.Errorf("link: %s", strings.TrimRight(log, "\x00"))
	}

	return prog, nil
}

func compileShader(source string, shaderType uint32) (uint32, error) {
	shader := gl.CreateShader(shaderType)

	csources, free := gl.Strs(source + "\x00")
	gl.ShaderSource(shader, 1, csources, nil)
	free()
	gl.CompileShader(shader)

	var status int32
	gl.GetShaderiv(shader, gl.COMPILE_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetShaderiv(shader, gl.INFO_LOG_LENGTH, &logLength)
		log := strings.Repeat("\x00", int(logLength+1))
		gl.GetShaderInfoLog(shader, logLength, nil, gl.Str(log))
		gl.DeleteShader(shader)
		return 0, fmt.Errorf("compile: %s", strings.TrimRight(log, "\x00"))
	}

	return shader, nil
}

// DeleteProgram implements compositor.GL
func (c *Context) DeleteProgram(program uint32) { gl.DeleteProgram(program) }

// UniformLocation implements compositor.GL
func (c *Context) UniformLocation(program uint32, name string) int32 {
	return gl.GetUniformLocation(program, gl.Str(name+"\x00"))
}

// UseProgram implements compositor.GL
func (c *Context) UseProgram(program uint32) { gl.UseProgram(program) }

// Uniform1i implements compositor.GL
func (c *Context) Uniform1i(location int32, v int32) { gl.Uniform1i(location, v) }

// Uniform1f implements compositor.GL
func (c *Context) Uniform1f(location int32, v float32) { gl.Uniform1f(location, v) }

// EnableVertexAttribArray implements compositor.GL
func (c *Context) EnableVertexAttribArray(index uint32) { gl.EnableVertexAttribArray(index) }

// DisableVertexAttribArray implements compositor.GL
func (c *Context) DisableVertexAttribArray(index uint32) { gl.DisableVertexAttribArray(index) }

// UniformMatrix4fv implements compositor.GL
func (c *Context) UniformMatrix4fv(location int32, m *[16]float32) {
	gl.UniformMatrix4fv(location, 1, false, &m[0])
}

// VertexAttribPointer implements compositor.GL
func (c *Context) VertexAttribPointer(index uint32, size int32, data []float32) {
	buf, ok := c.buffers[index]
	if !ok {
		gl.GenBuffers(1, &buf)
		c.buffers[index] = buf
	}

	gl.BindBuffer(gl.ARRAY_BUFFER, buf)
	gl.BufferData(gl.ARRAY_BUFFER, len(data)*4, gl.Ptr(data), gl.STREAM_DRAW)
	gl.VertexAttribPointerWithOffset(index, size, gl.FLOAT, false, 0, 0)
	gl.BindBuffer(gl.ARRAY_BUFFER, 0)
}

// Enable implements compositor.GL
func (c *Context) Enable(capability uint32) { gl.Enable(capability) }

// Disable implements compositor.GL
func (c *Context) Disable(capability uint32) { gl.Disable(capability) }

// Scissor implements compositor.GL
func (c *Context) Scissor(x, y, width, height int32) { gl.Scissor(x, y, width, height) }

// Viewport implements compositor.GL
func (c *Context) Viewport(x, y, width, height int32) { gl.Viewport(x, y, width, height) }

// StencilFunc implements compositor.GL
func (c *Context) StencilFunc(fn uint32, ref int32, mask uint32) { gl.StencilFunc(fn, ref, mask) }

// StencilOp implements compositor.GL
func (c *Context) StencilOp(fail, zfail, zpass uint32) { gl.StencilOp(fail, zfail, zpass) }

// BlendFunc implements compositor.GL
func (c *Context) BlendFunc(sfactor, dfactor uint32) { gl.BlendFunc(sfactor, dfactor) }

// ColorMask implements compositor.GL
func (c *Context) ColorMask(r, g, b, a bool) { gl.ColorMask(r, g, b, a) }

// ActiveTexture implements compositor.GL
func (c *Context) ActiveTexture(unit uint32) { gl.ActiveTexture(unit) }

// BindTexture implements compositor.GL
func (c *Context) BindTexture(target, texture uint32) { gl.BindTexture(target, texture) }

// GenTexture implements compositor.GL
func (c *Context) GenTexture() uint32 {
	var tex uint32
	gl.GenTextures(1, &tex)
	return tex
}

// DeleteTexture implements compositor.GL
func (c *Context) DeleteTexture(texture uint32) { gl.DeleteTextures(1, &texture) }

// TexImage2D implements compositor.GL
func (c *Context) TexImage2D(target uint32, internalFormat int32, width, height int32, format, xtype uint32) {
	gl.TexImage2D(target, 0, internalFormat, width, height, 0, format, xtype, nil)
}

// TexParameteri implements compositor.GL
func (c *Context) TexParameteri(target, pname uint32, param int32) {
	gl.TexParameteri(target, pname, param)
}

// GenFramebuffer implements compositor.GL
func (c *Context) GenFramebuffer() uint32 {
	var fb uint32
	gl.GenFramebuffers(1, &fb)
	return fb
}

// DeleteFramebuffer implements compositor.GL
func (c *Context) DeleteFramebuffer(fb uint32) { gl.DeleteFramebuffers(1, &fb) }

// BindFramebuffer implements compositor.GL
func (c *Context) BindFramebuffer(target, fb uint32) { gl.BindFramebuffer(target, fb) }

// FramebufferTexture2D implements compositor.GL
func (c *Context) FramebufferTexture2D(target, attachment, textarget, texture uint32) {
	gl.FramebufferTexture2D(target, attachment, textarget, texture, 0)
}

// CheckFramebufferStatus implements compositor.GL
func (c *Context) CheckFramebufferStatus(target uint32) uint32 {
	return gl.CheckFramebufferStatus(target)
}

// DrawArrays implements compositor.GL
func (c *Context) DrawArrays(mode uint32, first, count int32) { gl.DrawArrays(mode, first, count) }
