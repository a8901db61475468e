package gstbackend

import (
	"fmt"
	"sync"

	"github.com/tinyzimmer/go-gst/gst"

	videotexture "github.com/nxp-imx-support/imx-video-to-texture"
)

// GStreamer is initialized by the first backend. It cannot be initialized
// again once deinitialized, so deinit only happens through Shutdown.
var (
	libMu     sync.Mutex
	libRefs   int
	libInit   bool
	libClosed bool
)

func acquireLibrary() error {
	libMu.Lock()
	defer libMu.Unlock()

	if libClosed {
		return fmt.Errorf("%w: gstreamer was shut down", videotexture.ErrPipelineConstruction)
	}
	if !libInit {
		gst.Init(nil)
		libInit = true
		videotexture.Logger().Debug("gstbackend: gstreamer initialized")
	}
	libRefs++
	return nil
}

func releaseLibrary() {
	libMu.Lock()
	defer libMu.Unlock()

	if libRefs > 0 {
		libRefs--
	}
}

// Shutdown deinitializes GStreamer. Call it once at process exit, after every
// backend is closed. No backend can be created afterwards.
func Shutdown() error {
	libMu.Lock()
	defer libMu.Unlock()

	if libRefs > 0 {
		return fmt.Errorf("gstbackend: shutdown with %d open backends", libRefs)
	}
	if libInit && !libClosed {
		gst.Deinit()
		videotexture.Logger().Debug("gstbackend: gstreamer deinitialized")
	}
	libClosed = true
	return nil
}
