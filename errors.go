package videotexture

import (
	"errors"
	"fmt"
)

var (
	// ErrPipelineConstruction is returned when the media pipeline or its GL
	// bridge cannot be built.
	ErrPipelineConstruction = errors.New("videotexture: pipeline construction failed")

	// ErrPipelineStateChange is returned when the pipeline refuses a requested
	// state transition.
	ErrPipelineStateChange = errors.New("videotexture: pipeline state change failed")

	// ErrPipelineTeardown is returned once by Teardown when the pipeline could
	// not be stopped. It wraps ErrPipelineStateChange.
	ErrPipelineTeardown = fmt.Errorf("%w: teardown", ErrPipelineStateChange)

	// ErrUnsupportedTextureFormat is returned when a delivered buffer is not
	// GPU texture memory, or uses a texture target the compositor cannot sample.
	ErrUnsupportedTextureFormat = errors.New("videotexture: unsupported texture format")

	// ErrShaderLink is returned when a sampling program fails to compile or link.
	ErrShaderLink = errors.New("videotexture: shader link failed")

	// ErrFramebufferIncomplete is returned when the offscreen framebuffer is
	// not complete.
	ErrFramebufferIncomplete = errors.New("videotexture: framebuffer incomplete")

	// ErrClosed is returned by operations on a closed controller.
	ErrClosed = errors.New("videotexture: controller closed")
)

// ErrorCategory classifies pipeline errors and warnings for diagnostics.
type ErrorCategory int

const (
	// CategoryNetwork: connection, timeout, DNS, HTTP source failures
	CategoryNetwork ErrorCategory = iota
	// CategoryCodec: demux, decode, caps negotiation failures
	CategoryCodec
	// CategoryResource: missing file, permissions, GPU/GL resources
	CategoryResource
	// CategoryUnknown: unclassified
	CategoryUnknown
)

// String returns a human-readable representation of the category
func (c ErrorCategory) String() string {
	switch c {
	case CategoryNetwork:
		return "network"
	case CategoryCodec:
		return "codec"
	case CategoryResource:
		return "resource"
	default:
		return "unknown"
	}
}
