package compositor

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"

	videotexture "github.com/nxp-imx-support/imx-video-to-texture"
)

const (
	attribVertices uint32 = 0
	attribCoords   uint32 = 1

	textureUnit = 0
)

const vertexSource = `attribute highp vec4 a_vertices;
attribute highp vec2 a_coords;
varying highp vec2 v_coords;
uniform highp mat4 u_matrix;
void main() {
    v_coords = a_coords;
    gl_Position = u_matrix * a_vertices;
}
`

const fragmentSource2D = `uniform sampler2D u_texture;
uniform lowp float u_opacity;
varying highp vec2 v_coords;
void main() {
    gl_FragColor = u_opacity * texture2D(u_texture, v_coords);
}
`

const fragmentSourceExternal = `#extension GL_OES_EGL_image_external: require
uniform samplerExternalOES u_texture;
uniform lowp float u_opacity;
varying highp vec2 v_coords;
void main() {
    gl_FragColor = u_opacity * texture2D(u_texture, v_coords);
}
`

var programAttribs = []Attrib{
	{Name: "a_vertices", Index: attribVertices},
	{Name: "a_coords", Index: attribCoords},
}

// program is a linked sampling program and its uniform locations.
type program struct {
	id      uint32
	texture int32
	matrix  int32
	opacity int32
}

func buildProgram(gl GL, class videotexture.StorageClass) (*program, error) {
	fragment := fragmentSource2D
	if class == videotexture.ExternalZeroCopy {
		fragment = fragmentSourceExternal
	}

	id, err := gl.BuildProgram(vertexSource, fragment, programAttribs)
	if err != nil {
		return nil, fmt.Errorf("%w: %s program: %w", videotexture.ErrShaderLink, class, err)
	}

	return &program{
		id:      id,
		texture: gl.UniformLocation(id, "u_texture"),
		matrix:  gl.UniformLocation(id, "u_matrix"),
		opacity: gl.UniformLocation(id, "u_opacity"),
	}, nil
}

func (p *program) setMatrix(gl GL, m mgl32.Mat4) {
	arr := [16]float32(m)
	gl.UniformMatrix4fv(p.matrix, &arr)
}
