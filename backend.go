package videotexture

import "time"

// Backend builds media pipelines. A Backend owns process-wide media library
// state; Close releases it.
type Backend interface {
	// Open builds a pipeline for src that delivers into sink. The pipeline is
	// returned in the null state. Failures wrap ErrPipelineConstruction.
	Open(src Source, sink Sink) (Pipeline, error)
	Close() error
}

// Pipeline is one built media pipeline.
type Pipeline interface {
	// SetState synchronously requests a state. Moving to StateNull returns
	// only after the streaming threads have stopped delivering.
	SetState(State) error
	Position() (time.Duration, bool)
	Duration() (time.Duration, bool)
	// Seek performs a flushing, key-unit seek.
	Seek(position time.Duration) error
	// Close stops message dispatch and frees the pipeline.
	Close() error
}

// Sink receives pipeline callbacks. Implemented by the controller.
type Sink interface {
	// OnSample hands over one buffer reference. The sink owns it.
	OnSample(Buffer)
	OnCaps(width, height int)
	OnMessage(Message)
}

// Buffer is one reference to a decoded frame in GPU memory. Implementations
// must be comparable (typically a pointer).
type Buffer interface {
	// Texture resolves the GPU texture backing the buffer. Buffers that are
	// not GL memory fail with ErrUnsupportedTextureFormat.
	Texture() (TextureHandle, error)
	// Release drops the reference. It must not make GL calls.
	Release()
}

// MessageKind identifies a bus message forwarded to the sink.
type MessageKind int

const (
	MessageEOS MessageKind = iota
	MessageError
	MessageWarning
	MessageAsyncDone
)

// String returns the message kind name
func (k MessageKind) String() string {
	switch k {
	case MessageEOS:
		return "eos"
	case MessageError:
		return "error"
	case MessageWarning:
		return "warning"
	case MessageAsyncDone:
		return "async-done"
	default:
		return "unknown"
	}
}

// Message is a pipeline bus message.
type Message struct {
	Kind     MessageKind
	Text     string
	Debug    string
	Category ErrorCategory
}
