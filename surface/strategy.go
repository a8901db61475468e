package surface

// Strategy customizes a Surface's lifecycle. Hooks run after the surface's
// own handling of the same event.
//
//   - Attached: render thread, after the pipeline is built
//   - PrerollComplete: bus goroutine
//   - FrameAvailable: streaming thread; must not block
//   - ShouldPull: render thread, before each render pass
//   - AfterSync: render thread, after each sync
type Strategy interface {
	Autostart() bool
	Attached(s *Surface) error
	PrerollComplete(s *Surface)
	FrameAvailable(s *Surface)
	ShouldPull() bool
	AfterSync(s *Surface) error
}

// Playback is the default strategy: start playing as soon as attached and
// always show the newest frame.
type Playback struct{}

func (Playback) Autostart() bool { return true }
func (Playback) Attached(*Surface) error { return nil }
func (Playback) PrerollComplete(*Surface) {}
func (Playback) FrameAvailable(*Surface) {}
func (Playback) ShouldPull() bool { return true }
func (Playback) AfterSync(*Surface) error { return nil }
