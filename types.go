package videotexture

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nxp-imx-support/imx-video-to-texture/internal/frameslot"
)

// GL texture targets recognised by StorageClassFromTarget.
const (
	GLTexture2D          uint32 = 0x0DE1
	GLTextureExternalOES uint32 = 0x8D65
)

// StorageClass tells the compositor which sampler a texture needs.
type StorageClass int

const (
	// Standard2D is an ordinary GL_TEXTURE_2D texture.
	Standard2D StorageClass = iota
	// ExternalZeroCopy is a GL_TEXTURE_EXTERNAL_OES texture backed by
	// decoder memory imported without a copy.
	ExternalZeroCopy
)

// String returns a human-readable name of the storage class
func (c StorageClass) String() string {
	switch c {
	case Standard2D:
		return "2d"
	case ExternalZeroCopy:
		return "external-oes"
	default:
		return "unknown"
	}
}

// Target returns the GL texture target for the storage class.
func (c StorageClass) Target() uint32 {
	if c == ExternalZeroCopy {
		return GLTextureExternalOES
	}
	return GLTexture2D
}

// StorageClassFromTarget maps a GL texture target to a StorageClass.
func StorageClassFromTarget(target uint32) (StorageClass, error) {
	switch target {
	case GLTexture2D:
		return Standard2D, nil
	case GLTextureExternalOES:
		return ExternalZeroCopy, nil
	default:
		return Standard2D, fmt.Errorf("%w: GL target 0x%04X", ErrUnsupportedTextureFormat, target)
	}
}

// TextureHandle identifies a GPU texture and how it must be sampled.
type TextureHandle struct {
	ID    uint32
	Class StorageClass
}

// InvalidTexture is the sentinel handle meaning "no texture". Its ID is never
// a valid GPU texture name.
var InvalidTexture = TextureHandle{ID: ^uint32(0)}

// Valid reports whether h refers to a texture.
func (h TextureHandle) Valid() bool {
	return h.ID != InvalidTexture.ID
}

// String implements fmt.Stringer
func (h TextureHandle) String() string {
	if !h.Valid() {
		return "texture(invalid)"
	}
	return fmt.Sprintf("texture(%d, %s)", h.ID, h.Class)
}

// State is a pipeline state the controller requests from the backend.
type State int

const (
	StateNull State = iota
	StatePaused
	StatePlaying
)

// String returns the state name
func (s State) String() string {
	switch s {
	case StateNull:
		return "null"
	case StatePaused:
		return "paused"
	case StatePlaying:
		return "playing"
	default:
		return "unknown"
	}
}

// TestPattern designates the synthetic test-pattern source.
var TestPattern = Source{}

const testPatternName = "testpattern"

// Source designates what the pipeline plays: a media URI or the synthetic
// test pattern (zero value).
type Source struct {
	URI string
}

// IsTestPattern reports whether s designates the synthetic test pattern.
func (s Source) IsTestPattern() bool {
	return s.URI == "" || s.URI == testPatternName
}

// String implements fmt.Stringer
func (s Source) String() string {
	if s.IsTestPattern() {
		return testPatternName
	}
	return s.URI
}

// ParseSource turns a user-supplied designation into a Source.
//
// Accepted forms:
//   - "" or "testpattern": synthetic test pattern
//   - a URI with a scheme (file://, http://, ...)
//   - a filesystem path, converted to an absolute file:// URI
func ParseSource(s string) (Source, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == testPatternName {
		return TestPattern, nil
	}

	if u, err := url.Parse(s); err == nil && u.Scheme != "" && len(u.Scheme) > 1 {
		return Source{URI: s}, nil
	}

	abs, err := filepath.Abs(s)
	if err != nil {
		return Source{}, fmt.Errorf("%w: invalid source %q: %v", ErrPipelineConstruction, s, err)
	}
	return Source{URI: (&url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}).String()}, nil
}

// PlaybackState is a snapshot of the controller's playback position and mode.
type PlaybackState struct {
	Position      float64       // Fraction in [0,1]; 0 while unknown
	Duration      time.Duration // Valid only if DurationKnown
	DurationKnown bool
	Looping       bool
	Playing       bool
}

// ControllerStats is a snapshot of controller counters.
type ControllerStats struct {
	Session   uuid.UUID // Zero when no pipeline is active
	Source    Source
	Width     int
	Height    int
	Prerolled bool
	Slot      frameslot.Stats
}
