package main

import (
	"sync"
	"sync/atomic"

	videotexture "github.com/nxp-imx-support/imx-video-to-texture"
	"github.com/nxp-imx-support/imx-video-to-texture/capture"
)

// headlessRenderer stands in for the compositor when there is no GL context.
// An offscreen draw "freezes" the current target, the way the compositor
// copies it into its offscreen texture.
type headlessRenderer struct {
	mu        sync.Mutex
	target    videotexture.TextureHandle
	frozen    videotexture.TextureHandle
	offscreen bool
	draws     atomic.Uint64
}

var _ capture.Renderer = (*headlessRenderer)(nil)

func newHeadlessRenderer() *headlessRenderer {
	return &headlessRenderer{
		target: videotexture.InvalidTexture,
		frozen: videotexture.InvalidTexture,
	}
}

func (r *headlessRenderer) SetTarget(tex videotexture.TextureHandle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.target = tex
}

func (r *headlessRenderer) SetOffscreen(offscreen bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.offscreen = offscreen
}

func (r *headlessRenderer) OffscreenTexture() videotexture.TextureHandle {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.frozen
}

func (r *headlessRenderer) Draws() uint64 {
	return r.draws.Load()
}

func (r *headlessRenderer) draw() {
	r.mu.Lock()
	if !r.target.Valid() {
		r.mu.Unlock()
		return
	}
	if r.offscreen {
		r.frozen = r.target
	}
	r.mu.Unlock()

	r.draws.Add(1)
}
