package mocks

import (
	"fmt"
	"strings"
	"sync"

	"github.com/nxp-imx-support/imx-video-to-texture/compositor"
)

// GL records compositor.GL calls instead of issuing them.
type GL struct {
	mu sync.Mutex

	// FramebufferStatus is returned by CheckFramebufferStatus.
	// Defaults to compositor.FramebufferOK.
	FramebufferStatus uint32
	// FailFragment makes BuildProgram fail when the fragment source contains it.
	FailFragment string

	calls    []string
	nextID   uint32
	programs map[uint32]string // id → fragment source
	deleted  map[uint32]int
	program  uint32
	bound    map[uint32]uint32 // target → texture
	enabled  map[uint32]bool
	attribs  map[uint32][]float32
	matrix   [16]float32
	opacity  float32
	draws    []Draw
}

// Draw captures the state at a DrawArrays call.
type Draw struct {
	Program  uint32
	External bool // Program samples GL_TEXTURE_EXTERNAL_OES
	Target   uint32
	Texture  uint32
	Vertices []float32
	Matrix   [16]float32
	Opacity  float32
	Enabled  map[uint32]bool
}

// NewGL returns a recording GL whose framebuffers are complete.
func NewGL() *GL {
	return &GL{
		FramebufferStatus: compositor.FramebufferOK,
		nextID:            1,
		programs:          make(map[uint32]string),
		deleted:           make(map[uint32]int),
		bound:             make(map[uint32]uint32),
		enabled:           make(map[uint32]bool),
		attribs:           make(map[uint32][]float32),
	}
}

var _ compositor.GL = (*GL)(nil)

func (g *GL) record(format string, args ...any) {
	g.calls = append(g.calls, fmt.Sprintf(format, args...))
}

func (g *GL) id() uint32 {
	id := g.nextID
	g.nextID++
	return id
}

// Calls returns the recorded call log.
func (g *GL) Calls() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.calls...)
}

// Draws returns every recorded draw.
func (g *GL) Draws() []Draw {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]Draw(nil), g.draws...)
}

// Deleted returns how many times the object id was deleted.
func (g *GL) Deleted(id uint32) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.deleted[id]
}

// LivePrograms returns the number of programs built and not deleted.
func (g *GL) LivePrograms() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.programs)
}

func (g *GL) BuildProgram(vertexSrc, fragmentSrc string, attribs []compositor.Attrib) (uint32, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.FailFragment != "" && strings.Contains(fragmentSrc, g.FailFragment) {
		g.record("BuildProgram(fail)")
		return 0, fmt.Errorf("link: forced failure")
	}
	id := g.id()
	g.programs[id] = fragmentSrc
	g.record("BuildProgram(%d)", id)
	return id, nil
}

func (g *GL) DeleteProgram(program uint32) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.programs, program)
	g.deleted[program]++
	g.record("DeleteProgram(%d)", program)
}

func (g *GL) UniformLocation(program uint32, name string) int32 {
	switch name {
	case "u_texture":
		return 0
	case "u_matrix":
		return 1
	case "u_opacity":
		return 2
	}
	return -1
}

func (g *GL) UseProgram(program uint32) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.program = program
	g.record("UseProgram(%d)", program)
}

func (g *GL) Uniform1i(location int32, v int32) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.record("Uniform1i(%d, %d)", location, v)
}

func (g *GL) Uniform1f(location int32, v float32) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if location == 2 {
		g.opacity = v
	}
	g.record("Uniform1f(%d, %g)", location, v)
}

func (g *GL) UniformMatrix4fv(location int32, m *[16]float32) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.matrix = *m
	g.record("UniformMatrix4fv(%d)", location)
}

func (g *GL) EnableVertexAttribArray(index uint32) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.record("EnableVertexAttribArray(%d)", index)
}

func (g *GL) DisableVertexAttribArray(index uint32) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.record("DisableVertexAttribArray(%d)", index)
}

func (g *GL) VertexAttribPointer(index uint32, size int32, data []float32) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.attribs[index] = append([]float32(nil), data...)
	g.record("VertexAttribPointer(%d, %d)", index, size)
}

func (g *GL) Enable(capability uint32) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.enabled[capability] = true
	g.record("Enable(0x%04X)", capability)
}

func (g *GL) Disable(capability uint32) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.enabled[capability] = false
	g.record("Disable(0x%04X)", capability)
}

func (g *GL) Scissor(x, y, width, height int32) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.record("Scissor(%d, %d, %d, %d)", x, y, width, height)
}

func (g *GL) StencilFunc(fn uint32, ref int32, mask uint32) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.record("StencilFunc(0x%04X, %d, 0x%X)", fn, ref, mask)
}

func (g *GL) StencilOp(fail, zfail, zpass uint32) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.record("StencilOp(0x%04X, 0x%04X, 0x%04X)", fail, zfail, zpass)
}

func (g *GL) BlendFunc(sfactor, dfactor uint32) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.record("BlendFunc(%d, 0x%04X)", sfactor, dfactor)
}

func (g *GL) ColorMask(r, gr, b, a bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.record("ColorMask(%t, %t, %t, %t)", r, gr, b, a)
}

func (g *GL) Viewport(x, y, width, height int32) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.record("Viewport(%d, %d, %d, %d)", x, y, width, height)
}

func (g *GL) ActiveTexture(unit uint32) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.record("ActiveTexture(0x%04X)", unit)
}

func (g *GL) BindTexture(target, texture uint32) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.bound[target] = texture
	g.record("BindTexture(0x%04X, %d)", target, texture)
}

func (g *GL) GenTexture() uint32 {
	g.mu.Lock()
	defer g.mu.Unlock()
	id := g.id()
	g.record("GenTexture() = %d", id)
	return id
}

func (g *GL) DeleteTexture(texture uint32) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.deleted[texture]++
	g.record("DeleteTexture(%d)", texture)
}

func (g *GL) TexImage2D(target uint32, internalFormat int32, width, height int32, format, xtype uint32) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.record("TexImage2D(0x%04X, %dx%d)", target, width, height)
}

func (g *GL) TexParameteri(target, pname uint32, param int32) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.record("TexParameteri(0x%04X, 0x%04X, 0x%04X)", target, pname, param)
}

func (g *GL) GenFramebuffer() uint32 {
	g.mu.Lock()
	defer g.mu.Unlock()
	id := g.id()
	g.record("GenFramebuffer() = %d", id)
	return id
}

func (g *GL) DeleteFramebuffer(fb uint32) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.deleted[fb]++
	g.record("DeleteFramebuffer(%d)", fb)
}

func (g *GL) BindFramebuffer(target, fb uint32) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.record("BindFramebuffer(%d)", fb)
}

func (g *GL) FramebufferTexture2D(target, attachment, textarget, texture uint32) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.record("FramebufferTexture2D(%d)", texture)
}

func (g *GL) CheckFramebufferStatus(target uint32) uint32 {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.record("CheckFramebufferStatus() = 0x%04X", g.FramebufferStatus)
	return g.FramebufferStatus
}

func (g *GL) DrawArrays(mode uint32, first, count int32) {
	g.mu.Lock()
	defer g.mu.Unlock()

	enabled := make(map[uint32]bool, len(g.enabled))
	for k, v := range g.enabled {
		enabled[k] = v
	}

	var target, texture uint32
	external := strings.Contains(g.programs[g.program], "samplerExternalOES")
	if external {
		target, texture = compositor.TextureExternalOES, g.bound[compositor.TextureExternalOES]
	} else {
		target, texture = compositor.Texture2D, g.bound[compositor.Texture2D]
	}

	g.draws = append(g.draws, Draw{
		Program:  g.program,
		External: external,
		Target:   target,
		Texture:  texture,
		Vertices: append([]float32(nil), g.attribs[0]...),
		Matrix:   g.matrix,
		Opacity:  g.opacity,
		Enabled:  enabled,
	})
	g.record("DrawArrays(0x%04X, %d, %d)", mode, first, count)
}
