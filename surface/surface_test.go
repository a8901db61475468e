package surface_test

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	videotexture "github.com/nxp-imx-support/imx-video-to-texture"
	"github.com/nxp-imx-support/imx-video-to-texture/compositor"
	"github.com/nxp-imx-support/imx-video-to-texture/internal/mocks"
	"github.com/nxp-imx-support/imx-video-to-texture/surface"
)

type fixture struct {
	sf      *surface.Surface
	backend *mocks.Backend
	gl      *mocks.GL
	updates atomic.Int32
}

func newFixture(t *testing.T, cfg surface.Config, strategy surface.Strategy) *fixture {
	t.Helper()

	f := &fixture{
		backend: &mocks.Backend{
			Configure: func(p *mocks.Pipeline) {
				p.SetDuration(10 * time.Second)
				p.SetPosition(0)
			},
		},
		gl: mocks.NewGL(),
	}
	factory := func(opts ...videotexture.Option) (*videotexture.Controller, error) {
		return videotexture.NewController(f.backend, opts...)
	}
	f.sf = surface.New(cfg, factory, f.gl, strategy, surface.WithOnUpdate(func() { f.updates.Add(1) }))
	t.Cleanup(func() { _ = f.sf.Invalidate() })
	return f
}

func TestSurface_BeforeAttach(t *testing.T) {
	f := newFixture(t, surface.Config{}, nil)

	assert.False(t, f.sf.Attached())
	assert.Nil(t, f.sf.Controller())
	assert.True(t, f.sf.Playing(), "playback autostarts")
	assert.Equal(t, float32(1), f.sf.Ratio())

	f.sf.Sync(100, 100)
	assert.NoError(t, f.sf.BeforeRenderPass())
	assert.NoError(t, f.sf.Render(compositor.DefaultRenderState()))
	assert.NoError(t, f.sf.AfterSync())
	assert.NoError(t, f.sf.Skip(5))
	assert.NoError(t, f.sf.SetPosition(0.5))
	assert.Zero(t, f.backend.Opened())
}

func TestSurface_PlaybackRendersNewestFrame(t *testing.T) {
	f := newFixture(t, surface.Config{Source: videotexture.TestPattern, Looping: true}, nil)

	require.NoError(t, f.sf.Attach())
	require.NoError(t, f.sf.Attach(), "second attach is a no-op")
	assert.Equal(t, 1, f.backend.Opened())

	p := f.backend.Last()
	assert.Equal(t, videotexture.StatePlaying, p.State())
	assert.True(t, f.sf.Controller().Looping())

	p.Preroll()
	assert.True(t, f.sf.Ready())

	p.Caps(640, 360)
	p.Deliver(mocks.NewBuffer(10))
	stale := mocks.NewBuffer(11)
	p.Deliver(stale)
	newest := mocks.NewBuffer(12)
	p.Deliver(newest)
	assert.Equal(t, int32(3), f.updates.Load())
	assert.InDelta(t, 640.0/360.0, f.sf.Ratio(), 1e-6)

	f.sf.Sync(640, 360)
	require.NoError(t, f.sf.BeforeRenderPass())
	require.NoError(t, f.sf.Render(compositor.DefaultRenderState()))
	require.NoError(t, f.sf.AfterSync())

	draws := f.gl.Draws()
	require.Len(t, draws, 1)
	assert.Equal(t, uint32(12), draws[0].Texture)
	assert.Equal(t, 1, stale.Releases())
	assert.Zero(t, newest.Releases())
	assert.Equal(t, videotexture.StatePlaying, p.State(), "still playing")

	require.NoError(t, f.sf.Invalidate())
	assert.False(t, f.sf.Attached())
	assert.Equal(t, 1, newest.Releases())
	assert.Equal(t, 1, f.backend.Closed())
	assert.Zero(t, f.gl.LivePrograms())
}

func TestSurface_PausedShowsOneFrameAfterSeek(t *testing.T) {
	f := newFixture(t, surface.Config{Source: videotexture.TestPattern}, nil)
	require.NoError(t, f.sf.Attach())
	p := f.backend.Last()

	require.NoError(t, f.sf.Pause())
	assert.Equal(t, videotexture.StatePaused, p.State())

	p.SetPosition(4 * time.Second)
	require.NoError(t, f.sf.Skip(2))
	assert.Equal(t, []time.Duration{6 * time.Second}, p.Seeks())
	assert.Equal(t, videotexture.StatePlaying, p.State(), "runs to show the new position")

	p.Deliver(mocks.NewBuffer(3))
	f.sf.Sync(10, 10)

	assert.Equal(t, videotexture.StatePaused, p.State(), "paused again after one frame")
	assert.InDelta(t, 0.6, f.sf.Position(), 1e-9)
	assert.False(t, f.sf.Playing())
}

func TestSurface_SetPosition(t *testing.T) {
	f := newFixture(t, surface.Config{Source: videotexture.TestPattern}, nil)
	require.NoError(t, f.sf.Attach())
	p := f.backend.Last()

	require.NoError(t, f.sf.SetPosition(0.25))
	assert.Equal(t, []time.Duration{2500 * time.Millisecond}, p.Seeks())
	assert.InDelta(t, 0.25, f.sf.Position(), 1e-9)
}

func TestSurface_Looping(t *testing.T) {
	f := newFixture(t, surface.Config{Source: videotexture.TestPattern}, nil)
	require.NoError(t, f.sf.Attach())

	assert.False(t, f.sf.Looping())
	assert.True(t, f.sf.ToggleLooping())
	assert.True(t, f.sf.Controller().Looping())
	f.sf.SetLooping(false)
	assert.False(t, f.sf.Controller().Looping())
}

func TestSurface_SetSourceRebuilds(t *testing.T) {
	f := newFixture(t, surface.Config{Source: videotexture.TestPattern}, nil)
	require.NoError(t, f.sf.Attach())
	first := f.backend.Last()
	first.Preroll()

	src, err := videotexture.ParseSource("/media/clip.mp4")
	require.NoError(t, err)
	require.NoError(t, f.sf.SetSource(src))

	assert.Equal(t, 2, f.backend.Opened())
	assert.Equal(t, videotexture.StateNull, first.State())
	assert.Equal(t, videotexture.StatePlaying, f.backend.Last().State())
	assert.False(t, f.sf.Ready())
	assert.Equal(t, src, f.sf.Source())
}

func TestSurface_AttachFailures(t *testing.T) {
	t.Run("shader link", func(t *testing.T) {
		f := newFixture(t, surface.Config{}, nil)
		f.gl.FailFragment = "samplerExternalOES"

		err := f.sf.Attach()
		require.ErrorIs(t, err, videotexture.ErrShaderLink)
		assert.False(t, f.sf.Attached())
		assert.Zero(t, f.gl.LivePrograms())
	})

	t.Run("pipeline construction", func(t *testing.T) {
		f := newFixture(t, surface.Config{}, nil)
		f.backend.OpenErr = errors.New("no such element")

		err := f.sf.Attach()
		require.ErrorIs(t, err, videotexture.ErrPipelineConstruction)
		assert.False(t, f.sf.Attached())
		assert.Nil(t, f.sf.Controller())
		assert.Equal(t, 1, f.backend.Closed())
		assert.Zero(t, f.gl.LivePrograms())

		f.backend.OpenErr = nil
		require.NoError(t, f.sf.Attach(), "attach can be retried")
		assert.True(t, f.sf.Attached())
		assert.Equal(t, 1, f.backend.Opened())
		assert.Equal(t, videotexture.StatePlaying, f.backend.Last().State())
	})
}

type recordingStrategy struct {
	surface.Playback
	events []string
}

func (r *recordingStrategy) Autostart() bool { return false }

func (r *recordingStrategy) Attached(*surface.Surface) error {
	r.events = append(r.events, "attached")
	return nil
}

func (r *recordingStrategy) PrerollComplete(*surface.Surface) {
	r.events = append(r.events, "preroll")
}

func (r *recordingStrategy) FrameAvailable(*surface.Surface) {
	r.events = append(r.events, "frame")
}

func (r *recordingStrategy) ShouldPull() bool { return false }

func TestSurface_StrategyHooks(t *testing.T) {
	strategy := &recordingStrategy{}
	f := newFixture(t, surface.Config{Source: videotexture.TestPattern}, strategy)

	assert.False(t, f.sf.Playing())
	require.NoError(t, f.sf.Attach())

	p := f.backend.Last()
	assert.Equal(t, videotexture.StatePaused, p.State())

	p.Preroll()
	p.Deliver(mocks.NewBuffer(5))
	f.sf.Sync(10, 10)
	require.NoError(t, f.sf.BeforeRenderPass())
	require.NoError(t, f.sf.Render(compositor.DefaultRenderState()))

	assert.Equal(t, []string{"attached", "preroll", "frame"}, strategy.events)
	assert.Empty(t, f.gl.Draws(), "strategy declined the frame")
}
