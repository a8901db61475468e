/*
Package videotexture hands decoded video frames, held as GPU textures, from a
media pipeline running on its own threads to a render thread.

# Overview

A Controller owns one media pipeline at a time. The pipeline's streaming
thread delivers reference-counted buffers into a two-slot mailbox; the render
thread calls AcquireCurrentFrame once per frame to promote the newest buffer
and obtain its texture handle:

	streaming thread            render thread
	────────────────            ─────────────
	Sink.OnSample(buf)
	  └─ slot.Push(buf)   ──►   AcquireCurrentFrame()
	  └─ OnFrameAvailable         └─ slot.Acquire → TextureHandle
	                            compositor.SetTarget / Draw

The media backend is pluggable (see Backend). The gstbackend package provides
a GStreamer implementation that uploads frames to GL memory and answers the
pipeline's GL context queries with the host's display and context.

# Ownership

At most two buffer references are held at any time: the pending buffer
(delivered, not yet displayed) and the displaying buffer (backing the texture
currently sampled). Skipped frames are released on overwrite; Teardown
releases whatever remains exactly once.

# Usage

	backend, err := gstbackend.New(gstbackend.GraphicsContext{}, gstbackend.Config{})
	if err != nil {
	    log.Fatal(err)
	}

	ctrl, err := videotexture.NewController(backend,
	    videotexture.WithListener(videotexture.Listener{
	        OnPrerollComplete: func() { slog.Info("ready") },
	    }),
	)
	if err != nil {
	    log.Fatal(err)
	}
	defer ctrl.Close()

	if err := ctrl.SetSource(videotexture.TestPattern); err != nil {
	    log.Fatal(err)
	}
	ctrl.Play()

	// render loop
	tex, err := ctrl.AcquireCurrentFrame()

# Thread Safety

All Controller methods are safe for concurrent use. Play, Pause and the seek
operations never wait for lifecycle operations, so they may be called from
listener callbacks.
*/
package videotexture
