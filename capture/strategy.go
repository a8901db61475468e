package capture

import (
	videotexture "github.com/nxp-imx-support/imx-video-to-texture"
	"github.com/nxp-imx-support/imx-video-to-texture/surface"
)

// Strategy plugs a Machine into a surface.Surface. The surface does not
// autostart; the machine decides when to play.
type Strategy struct {
	m *Machine
}

var _ surface.Strategy = (*Strategy)(nil)

// NewStrategy returns a capture strategy with its own Machine.
func NewStrategy(opts ...Option) *Strategy {
	return &Strategy{m: NewMachine(opts...)}
}

// Machine returns the underlying state machine.
func (s *Strategy) Machine() *Machine { return s.m }

// Autostart implements surface.Strategy
func (s *Strategy) Autostart() bool { return false }

// Attached implements surface.Strategy
func (s *Strategy) Attached(sf *surface.Surface) error {
	return s.m.Attach(sf.Controller(), sf.Compositor())
}

// PrerollComplete implements surface.Strategy
func (s *Strategy) PrerollComplete(*surface.Surface) {
	if err := s.m.PrerollComplete(); err != nil {
		videotexture.Logger().Error("capture: take failed", "error", err)
	}
}

// FrameAvailable implements surface.Strategy
func (s *Strategy) FrameAvailable(*surface.Surface) { s.m.FrameAvailable() }

// ShouldPull implements surface.Strategy
func (s *Strategy) ShouldPull() bool { return s.m.ShouldPull() }

// AfterSync implements surface.Strategy
func (s *Strategy) AfterSync(*surface.Surface) error { return s.m.AfterSync() }
