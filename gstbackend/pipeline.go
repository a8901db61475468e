package gstbackend

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tinyzimmer/go-gst/gst"
	"github.com/tinyzimmer/go-gst/gst/app"

	videotexture "github.com/nxp-imx-support/imx-video-to-texture"
)

// closeTimeout bounds how long Close waits for the bus monitor.
const closeTimeout = 3 * time.Second

// pipeline is a playbin whose video-sink is a glupload → appsink bin.
//
// Pipeline structure:
//
//	playbin(uri) ─video-sink─► [converter] → glupload → appsink
type pipeline struct {
	name    string
	playbin *gst.Element
	appsink *app.Sink
	sink    videotexture.Sink

	cancel context.CancelFunc
	wg     sync.WaitGroup
	closed atomic.Bool
}

var _ videotexture.Pipeline = (*pipeline)(nil)

// buildPipeline creates the pipeline for src in the NULL state and starts
// its bus monitor.
func buildPipeline(name string, src videotexture.Source, cfg Config, gl *glContext, sink videotexture.Sink) (*pipeline, error) {
	playbin, err := gst.NewElement("playbin")
	if err != nil {
		return nil, fmt.Errorf("failed to create playbin: %w", err)
	}
	if err := playbin.SetProperty("uri", playbinURI(src)); err != nil {
		return nil, fmt.Errorf("failed to set uri %q: %w", playbinURI(src), err)
	}

	bin, err := newSinkBin(cfg)
	if err != nil {
		return nil, err
	}

	elem, err := bin.GetElementByName(cfg.SinkName)
	if err != nil {
		return nil, fmt.Errorf("failed to find appsink %q: %w", cfg.SinkName, err)
	}
	appsink := app.SinkFromElement(elem)
	if appsink == nil {
		return nil, fmt.Errorf("element %q is not an appsink", cfg.SinkName)
	}

	p := &pipeline{
		name:    name,
		playbin: playbin,
		appsink: appsink,
		sink:    sink,
	}

	appsink.SetCallbacks(&app.SinkCallbacks{
		NewSampleFunc: p.onNewSample,
	})

	sinkPad := appsink.GetStaticPad("sink")
	if sinkPad == nil {
		return nil, fmt.Errorf("failed to get appsink sink pad")
	}
	gl.answerContextQueries(sinkPad, playbin)
	sinkPad.AddProbe(gst.PadProbeTypeEventDownstream, p.onEvent)

	setVideoSink(playbin, bin.Element)

	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		monitorBus(ctx, playbin.GetBus(), sink, name)
	}()

	videotexture.Logger().Debug("gstbackend: pipeline created",
		"pipeline", name,
		"uri", playbinURI(src),
		"sink", sinkBinDescription(cfg.Converter, cfg.SinkName),
	)
	return p, nil
}

// newSinkBin builds the video-sink bin. A converter that cannot be created
// is skipped with a warning.
func newSinkBin(cfg Config) (*gst.Bin, error) {
	if cfg.Converter != "" {
		bin, err := gst.NewBinFromString(sinkBinDescription(cfg.Converter, cfg.SinkName), true)
		if err == nil {
			return bin, nil
		}
		videotexture.Logger().Warn("gstbackend: converter unavailable, linking without it",
			"converter", cfg.Converter,
			"error", err,
		)
	}

	bin, err := gst.NewBinFromString(sinkBinDescription("", cfg.SinkName), true)
	if err != nil {
		return nil, fmt.Errorf("failed to create video sink bin: %w", err)
	}
	return bin, nil
}

// onNewSample runs on the streaming thread.
func (p *pipeline) onNewSample(sink *app.Sink) gst.FlowReturn {
	sample := sink.PullSample()
	if sample == nil {
		videotexture.Logger().Warn("gstbackend: failed to pull sample, skipping frame", "pipeline", p.name)
		return gst.FlowOK
	}

	buffer := sample.GetBuffer()
	if buffer == nil {
		videotexture.Logger().Warn("gstbackend: sample has no buffer, skipping frame", "pipeline", p.name)
		return gst.FlowOK
	}

	p.sink.OnSample(newGLBuffer(buffer))
	return gst.FlowOK
}

// onEvent reports the negotiated frame size from CAPS events.
func (p *pipeline) onEvent(_ *gst.Pad, info *gst.PadProbeInfo) gst.PadProbeReturn {
	event := info.GetEvent()
	if event == nil || event.Type() != gst.EventTypeCaps {
		return gst.PadProbeOK
	}

	caps := event.ParseCaps()
	if caps == nil || caps.GetSize() == 0 {
		p.sink.OnCaps(-1, -1)
		return gst.PadProbeOK
	}

	s := caps.GetStructureAt(0)
	p.sink.OnCaps(structureInt(s, "width"), structureInt(s, "height"))
	return gst.PadProbeOK
}

// structureInt returns an integer field, or -1 if absent.
func structureInt(s *gst.Structure, field string) int {
	if s == nil {
		return -1
	}
	v, err := s.GetValue(field)
	if err != nil {
		return -1
	}
	if n, ok := v.(int); ok {
		return n
	}
	return -1
}

// SetState implements videotexture.Pipeline
func (p *pipeline) SetState(st videotexture.State) error {
	var target gst.State
	switch st {
	case videotexture.StateNull:
		target = gst.StateNull
	case videotexture.StatePaused:
		target = gst.StatePaused
	case videotexture.StatePlaying:
		target = gst.StatePlaying
	default:
		return fmt.Errorf("unknown state %v", st)
	}

	if err := p.playbin.SetState(target); err != nil {
		return fmt.Errorf("pipeline %s: %w", p.name, err)
	}
	return nil
}

// Position implements videotexture.Pipeline
func (p *pipeline) Position() (time.Duration, bool) {
	ok, pos := p.playbin.QueryPosition(gst.FormatTime)
	if !ok || pos < 0 {
		return 0, false
	}
	return time.Duration(pos), true
}

// Duration implements videotexture.Pipeline
func (p *pipeline) Duration() (time.Duration, bool) {
	ok, dur := p.playbin.QueryDuration(gst.FormatTime)
	if !ok || dur < 0 {
		return 0, false
	}
	return time.Duration(dur), true
}

// Seek implements videotexture.Pipeline
func (p *pipeline) Seek(position time.Duration) error {
	if !p.playbin.SeekSimple(int64(position), gst.FormatTime, gst.SeekFlagFlush|gst.SeekFlagKeyUnit) {
		return fmt.Errorf("pipeline %s: seek to %v rejected", p.name, position)
	}
	return nil
}

// Close implements videotexture.Pipeline. It stops the bus monitor; the
// caller has already moved the pipeline to NULL.
func (p *pipeline) Close() error {
	if !p.closed.CompareAndSwap(false, true) {
		return nil
	}

	p.cancel()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		videotexture.Logger().Debug("gstbackend: pipeline closed", "pipeline", p.name)
		return nil
	case <-time.After(closeTimeout):
		return fmt.Errorf("pipeline %s: bus monitor did not stop within %v", p.name, closeTimeout)
	}
}
