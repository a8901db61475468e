package capture_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	videotexture "github.com/nxp-imx-support/imx-video-to-texture"
	"github.com/nxp-imx-support/imx-video-to-texture/capture"
	"github.com/nxp-imx-support/imx-video-to-texture/compositor"
	"github.com/nxp-imx-support/imx-video-to-texture/internal/mocks"
	"github.com/nxp-imx-support/imx-video-to-texture/surface"
)

func newCaptureSurface(t *testing.T, opts ...capture.Option) (*surface.Surface, *capture.Strategy, *mocks.Backend, *mocks.GL) {
	t.Helper()

	backend := &mocks.Backend{
		Configure: func(p *mocks.Pipeline) { p.SetDuration(2 * time.Second) },
	}
	factory := func(opts ...videotexture.Option) (*videotexture.Controller, error) {
		return videotexture.NewController(backend, opts...)
	}
	gl := mocks.NewGL()
	strategy := capture.NewStrategy(opts...)

	sf := surface.New(surface.Config{Source: videotexture.TestPattern}, factory, gl, strategy)
	t.Cleanup(func() { _ = sf.Invalidate() })
	return sf, strategy, backend, gl
}

// A test-pattern source grabbed at mid-stream ends with the frame frozen in
// the offscreen texture and no pipeline left.
func TestStrategy_CapturesTestPattern(t *testing.T) {
	loaded := 0
	sf, strategy, backend, gl := newCaptureSurface(t,
		capture.WithTargetFraction(0.5),
		capture.WithOnLoaded(func() { loaded++ }),
	)
	m := strategy.Machine()

	require.NoError(t, sf.Attach())
	sf.Sync(320, 240)

	p := backend.Last()
	require.NotNil(t, p)
	assert.Equal(t, videotexture.StatePaused, p.State(), "capture does not autostart")
	assert.Equal(t, capture.Pending, m.State())
	assert.True(t, sf.Compositor().Offscreen())

	p.Preroll()
	assert.Equal(t, capture.Started, m.State())
	assert.Equal(t, []time.Duration{time.Second}, p.Seeks())
	assert.Equal(t, videotexture.StatePlaying, p.State())

	p.Caps(320, 240)
	buf := mocks.NewBuffer(42)
	p.Deliver(buf)
	assert.Equal(t, capture.Rendering, m.State())

	sf.Sync(320, 240)
	require.NoError(t, sf.BeforeRenderPass())
	require.NoError(t, sf.Render(compositor.DefaultRenderState()))
	require.NoError(t, sf.AfterSync())

	assert.Equal(t, capture.Done, m.State())
	assert.Equal(t, 1, loaded)
	assert.Contains(t, gl.Calls(), "TexImage2D(0x0DE1, 320x240)")

	draws := gl.Draws()
	require.Len(t, draws, 1)
	assert.Equal(t, uint32(42), draws[0].Texture)

	comp := sf.Compositor()
	frozen := comp.OffscreenTexture()
	assert.True(t, frozen.Valid())
	assert.Equal(t, frozen, comp.Target())
	assert.False(t, comp.Offscreen())

	assert.False(t, sf.Controller().Initialized())
	assert.Equal(t, videotexture.StateNull, p.State())
	assert.Equal(t, 1, buf.Releases())
	assert.Equal(t, 1, p.Closed())

	// The frozen frame keeps drawing into the scene.
	require.NoError(t, sf.BeforeRenderPass())
	require.NoError(t, sf.Render(compositor.DefaultRenderState()))
	draws = gl.Draws()
	require.Len(t, draws, 2)
	assert.Equal(t, frozen.ID, draws[1].Texture)

	t.Logf("✅ frame frozen in texture %d", frozen.ID)
}

func TestStrategy_FirstFrameWithoutSeek(t *testing.T) {
	sf, strategy, backend, _ := newCaptureSurface(t)

	require.NoError(t, sf.Attach())
	sf.Sync(64, 48)

	p := backend.Last()
	p.Preroll()
	assert.Empty(t, p.Seeks())
	assert.Equal(t, capture.Started, strategy.Machine().State())
}

func TestStrategy_IncompleteFramebufferNeverCompletes(t *testing.T) {
	sf, strategy, backend, gl := newCaptureSurface(t)
	gl.FramebufferStatus = 0x8CD6 // GL_FRAMEBUFFER_INCOMPLETE_ATTACHMENT

	require.NoError(t, sf.Attach())
	sf.Sync(64, 48)

	p := backend.Last()
	p.Preroll()
	p.Deliver(mocks.NewBuffer(7))

	sf.Sync(64, 48)
	require.NoError(t, sf.BeforeRenderPass())
	err := sf.Render(compositor.DefaultRenderState())
	require.ErrorIs(t, err, videotexture.ErrFramebufferIncomplete)
	require.NoError(t, sf.AfterSync())

	assert.Equal(t, capture.Rendering, strategy.Machine().State())
	assert.True(t, sf.Controller().Initialized())
}
