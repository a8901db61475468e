package capture_test

import (
	"errors"
	"math/rand/v2"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	videotexture "github.com/nxp-imx-support/imx-video-to-texture"
	"github.com/nxp-imx-support/imx-video-to-texture/capture"
)

type fakePlayer struct {
	mu        sync.Mutex
	seeks     []float64
	plays     int
	pauses    int
	teardowns int
	playErr   error
	seekErr   error
}

func (p *fakePlayer) SeekToFraction(f float64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.seeks = append(p.seeks, f)
	return p.seekErr
}

func (p *fakePlayer) Play() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.plays++
	return p.playErr
}

func (p *fakePlayer) Pause() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pauses++
	return nil
}

func (p *fakePlayer) Teardown() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.teardowns++
	return nil
}

type fakeRenderer struct {
	mu        sync.Mutex
	target    videotexture.TextureHandle
	offscreen bool
	draws     uint64
}

var offscreenTex = videotexture.TextureHandle{ID: 99, Class: videotexture.Standard2D}

func (r *fakeRenderer) SetTarget(tex videotexture.TextureHandle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.target = tex
}

func (r *fakeRenderer) SetOffscreen(b bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.offscreen = b
}

func (r *fakeRenderer) OffscreenTexture() videotexture.TextureHandle { return offscreenTex }

func (r *fakeRenderer) Draws() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.draws
}

func (r *fakeRenderer) draw() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.draws++
}

func TestMachine_HappyPath(t *testing.T) {
	loaded := 0
	m := capture.NewMachine(capture.WithTargetFraction(0.5), capture.WithOnLoaded(func() { loaded++ }))
	player, renderer := &fakePlayer{}, &fakeRenderer{}

	assert.Equal(t, capture.Waiting, m.State())

	require.NoError(t, m.Attach(player, renderer))
	assert.Equal(t, capture.Pending, m.State())
	assert.True(t, renderer.offscreen)

	require.NoError(t, m.PrerollComplete())
	assert.Equal(t, capture.Started, m.State())
	assert.Equal(t, []float64{0.5}, player.seeks)
	assert.Equal(t, 1, player.plays)

	m.FrameAvailable()
	assert.Equal(t, capture.Rendering, m.State())

	// Not drawn yet.
	require.NoError(t, m.AfterSync())
	assert.Equal(t, capture.Rendering, m.State())

	renderer.draw()
	require.NoError(t, m.AfterSync())

	assert.Equal(t, capture.Done, m.State())
	assert.True(t, m.Loaded())
	assert.False(t, m.ShouldPull())
	assert.Equal(t, offscreenTex, renderer.target)
	assert.False(t, renderer.offscreen)
	assert.Equal(t, 1, player.pauses)
	assert.Equal(t, 1, player.teardowns)
	assert.Equal(t, 1, loaded)

	t.Logf("✅ capture reached %s after one offscreen draw", m.State())
}

func TestMachine_PrerollBeforeAttach(t *testing.T) {
	m := capture.NewMachine()
	player := &fakePlayer{}

	require.NoError(t, m.PrerollComplete())
	assert.Equal(t, capture.Waiting, m.State())

	require.NoError(t, m.Attach(player, &fakeRenderer{}))
	assert.Equal(t, capture.Started, m.State())
	assert.Empty(t, player.seeks, "first frame needs no seek")
	assert.Equal(t, 1, player.plays)
}

func TestMachine_DrawBeforeFrameDoesNotCount(t *testing.T) {
	m := capture.NewMachine()
	renderer := &fakeRenderer{}
	require.NoError(t, m.Attach(&fakePlayer{}, renderer))
	require.NoError(t, m.PrerollComplete())

	renderer.draw()
	require.NoError(t, m.AfterSync())
	assert.Equal(t, capture.Started, m.State())

	m.FrameAvailable()
	require.NoError(t, m.AfterSync())
	assert.Equal(t, capture.Rendering, m.State(), "draw predates the frame")

	renderer.draw()
	require.NoError(t, m.AfterSync())
	assert.Equal(t, capture.Done, m.State())
}

func TestMachine_TakeAfterDoneIsNoop(t *testing.T) {
	m := capture.NewMachine()
	player, renderer := &fakePlayer{}, &fakeRenderer{}
	require.NoError(t, m.Attach(player, renderer))
	require.NoError(t, m.PrerollComplete())
	m.FrameAvailable()
	renderer.draw()
	require.NoError(t, m.AfterSync())
	require.Equal(t, capture.Done, m.State())

	require.NoError(t, m.Take())
	require.NoError(t, m.PrerollComplete())
	m.FrameAvailable()
	renderer.draw()
	require.NoError(t, m.AfterSync())

	assert.Equal(t, capture.Done, m.State())
	assert.Equal(t, 1, player.plays)
	assert.Equal(t, 1, player.teardowns)
}

func TestMachine_PlayFailureStaysPending(t *testing.T) {
	m := capture.NewMachine()
	player := &fakePlayer{playErr: errors.New("no")}
	require.NoError(t, m.Attach(player, &fakeRenderer{}))

	err := m.PrerollComplete()
	require.Error(t, err)
	assert.Equal(t, capture.Pending, m.State())

	player.playErr = nil
	require.NoError(t, m.Take())
	assert.Equal(t, capture.Started, m.State())
}

func TestMachine_SeekFailureStillPlays(t *testing.T) {
	m := capture.NewMachine(capture.WithTargetFraction(0.3))
	player := &fakePlayer{seekErr: errors.New("not seekable")}
	require.NoError(t, m.Attach(player, &fakeRenderer{}))
	require.NoError(t, m.PrerollComplete())

	assert.Equal(t, capture.Started, m.State())
	assert.Equal(t, 1, player.plays)
}

// For any interleaving of host events, the capture completes at most once
// and, when it completes, the pipeline was paused and torn down exactly once.
func TestMachine_RandomSequencesCompleteAtMostOnce(t *testing.T) {
	const runs = 2000

	type event int
	const (
		evAttach event = iota
		evTake
		evPreroll
		evFrame
		evDraw
		evAfterSync
		evCount
	)

	completed := 0
	for seed := uint64(0); seed < runs; seed++ {
		rng := rand.New(rand.NewPCG(seed, seed^0x5eed))

		loaded := 0
		m := capture.NewMachine(
			capture.WithTargetFraction(rng.Float64()),
			capture.WithOnLoaded(func() { loaded++ }),
		)
		player, renderer := &fakePlayer{}, &fakeRenderer{}

		for i := 0; i < 40; i++ {
			switch event(rng.IntN(int(evCount))) {
			case evAttach:
				require.NoError(t, m.Attach(player, renderer))
			case evTake:
				require.NoError(t, m.Take())
			case evPreroll:
				require.NoError(t, m.PrerollComplete())
			case evFrame:
				m.FrameAvailable()
			case evDraw:
				renderer.draw()
			case evAfterSync:
				require.NoError(t, m.AfterSync())
			}
		}

		require.LessOrEqual(t, loaded, 1, "seed %d", seed)
		require.LessOrEqual(t, player.plays, 1, "seed %d", seed)
		if m.State() == capture.Done {
			completed++
			require.Equal(t, 1, loaded, "seed %d", seed)
			require.Equal(t, 1, player.teardowns, "seed %d", seed)
			require.Equal(t, 1, player.pauses, "seed %d", seed)
			require.Equal(t, offscreenTex, renderer.target, "seed %d", seed)
			require.True(t, m.Loaded())
		} else {
			require.Zero(t, player.teardowns, "seed %d", seed)
			require.False(t, m.Loaded())
		}
	}

	require.Positive(t, completed)
	t.Logf("✅ %d/%d random sequences completed, none twice", completed, runs)
}

func TestState_String(t *testing.T) {
	tests := map[capture.State]string{
		capture.Waiting:   "waiting",
		capture.Pending:   "pending",
		capture.Started:   "started",
		capture.Rendering: "rendering",
		capture.Done:      "done",
		capture.State(42): "unknown",
	}
	for st, want := range tests {
		assert.Equal(t, want, st.String())
	}
}
