package compositor

// GL is the subset of OpenGL ES 2.0 the compositor draws with. It must be
// called on the thread that owns the current GL context.
//
// The gles subpackage implements it on github.com/go-gl/gl; tests use a
// recording implementation.
type GL interface {
	// BuildProgram compiles both shaders, binds the attribute locations and
	// links. On failure nothing is left allocated.
	BuildProgram(vertexSrc, fragmentSrc string, attribs []Attrib) (uint32, error)
	DeleteProgram(program uint32)
	UniformLocation(program uint32, name string) int32
	UseProgram(program uint32)
	Uniform1i(location int32, v int32)
	Uniform1f(location int32, v float32)
	UniformMatrix4fv(location int32, m *[16]float32)

	EnableVertexAttribArray(index uint32)
	DisableVertexAttribArray(index uint32)
	// VertexAttribPointer sets a tightly packed float attribute array with
	// size components per vertex.
	VertexAttribPointer(index uint32, size int32, data []float32)

	Enable(capability uint32)
	Disable(capability uint32)
	Scissor(x, y, width, height int32)
	StencilFunc(fn uint32, ref int32, mask uint32)
	StencilOp(fail, zfail, zpass uint32)
	BlendFunc(sfactor, dfactor uint32)
	ColorMask(r, g, b, a bool)
	Viewport(x, y, width, height int32)

	ActiveTexture(unit uint32)
	BindTexture(target, texture uint32)
	GenTexture() uint32
	DeleteTexture(texture uint32)
	TexImage2D(target uint32, internalFormat int32, width, height int32, format, xtype uint32)
	TexParameteri(target, pname uint32, param int32)

	GenFramebuffer() uint32
	DeleteFramebuffer(fb uint32)
	BindFramebuffer(target, fb uint32)
	FramebufferTexture2D(target, attachment, textarget, texture uint32)
	CheckFramebufferStatus(target uint32) uint32

	DrawArrays(mode uint32, first, count int32)
}

// Attrib binds a vertex attribute name to a location before linking.
type Attrib struct {
	Name  string
	Index uint32
}

// OpenGL ES 2.0 enums used by the compositor.
const (
	Texture2D          uint32 = 0x0DE1
	TextureExternalOES uint32 = 0x8D65
	Texture0           uint32 = 0x84C0

	ScissorTest uint32 = 0x0C11
	StencilTest uint32 = 0x0B90
	DepthTest   uint32 = 0x0B71
	Blend       uint32 = 0x0BE2

	Equal            uint32 = 0x0202
	Keep             uint32 = 0x1E00
	One              uint32 = 1
	OneMinusSrcAlpha uint32 = 0x0303

	TriangleStrip uint32 = 0x0005

	RGB           uint32 = 0x1907
	UnsignedByte  uint32 = 0x1401
	TextureWrapS  uint32 = 0x2802
	TextureWrapT  uint32 = 0x2803
	TextureMag    uint32 = 0x2800
	TextureMin    uint32 = 0x2801
	ClampToEdge   int32  = 0x812F
	Linear        int32  = 0x2601
	Framebuffer   uint32 = 0x8D40
	ColorAttach0  uint32 = 0x8CE0
	FramebufferOK uint32 = 0x8CD5
)
