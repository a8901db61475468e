package gstbackend

import (
	"context"
	"time"

	"github.com/tinyzimmer/go-gst/gst"

	videotexture "github.com/nxp-imx-support/imx-video-to-texture"
)

// busPollInterval bounds how long Close waits for the monitor to notice
// cancellation.
const busPollInterval = 50 * time.Millisecond

// monitorBus polls the pipeline bus and forwards EOS, errors, warnings and
// async-done to sink until ctx is cancelled.
func monitorBus(ctx context.Context, bus *gst.Bus, sink videotexture.Sink, name string) {
	for {
		select {
		case <-ctx.Done():
			videotexture.Logger().Debug("gstbackend: context cancelled, stopping bus monitor", "pipeline", name)
			return

		default:
			msg := bus.TimedPop(busPollInterval)
			if msg == nil {
				continue
			}
			if out, ok := translateMessage(msg); ok {
				sink.OnMessage(out)
			}
		}
	}
}

func translateMessage(msg *gst.Message) (videotexture.Message, bool) {
	switch msg.Type() {
	case gst.MessageEOS:
		return videotexture.Message{Kind: videotexture.MessageEOS}, true

	case gst.MessageError:
		gerr := msg.ParseError()
		if gerr == nil {
			return videotexture.Message{Kind: videotexture.MessageError, Category: videotexture.CategoryUnknown}, true
		}
		return videotexture.Message{
			Kind:     videotexture.MessageError,
			Text:     gerr.Error(),
			Debug:    gerr.DebugString(),
			Category: classifyMessage(gerr.Error(), gerr.DebugString()),
		}, true

	case gst.MessageWarning:
		gerr := msg.ParseWarning()
		if gerr == nil {
			return videotexture.Message{Kind: videotexture.MessageWarning, Category: videotexture.CategoryUnknown}, true
		}
		return videotexture.Message{
			Kind:     videotexture.MessageWarning,
			Text:     gerr.Error(),
			Debug:    gerr.DebugString(),
			Category: classifyMessage(gerr.Error(), gerr.DebugString()),
		}, true

	case gst.MessageAsyncDone:
		return videotexture.Message{Kind: videotexture.MessageAsyncDone}, true
	}
	return videotexture.Message{}, false
}
