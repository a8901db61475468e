// Command test-player drives a video pipeline headless and reports preroll,
// frame size, delivery rate, and seek behavior. With capture enabled it grabs
// one frame at a position and exits.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/urfave/cli/v2"

	videotexture "github.com/nxp-imx-support/imx-video-to-texture"
	"github.com/nxp-imx-support/imx-video-to-texture/capture"
	"github.com/nxp-imx-support/imx-video-to-texture/gstbackend"
	"github.com/nxp-imx-support/imx-video-to-texture/internal/config"
	"github.com/nxp-imx-support/imx-video-to-texture/internal/warmup"
)

var version = "dev"

const (
	prerollTimeout = 10 * time.Second
	warmupWindow   = 3 * time.Second
	maxPollRate    = 60.0
)

func main() {
	app := &cli.App{
		Name:    "test-player",
		Usage:   "play a video source headless and report pipeline behavior",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "YAML configuration file"},
			&cli.StringFlag{Name: "source", Aliases: []string{"s"}, Usage: "URI, file path, or \"testpattern\""},
			&cli.BoolFlag{Name: "loop", Usage: "restart at end of stream"},
			&cli.BoolFlag{Name: "paused", Usage: "preroll only, do not start playback"},
			&cli.IntFlag{Name: "seek-seconds", Usage: "relative seek after preroll"},
			&cli.Float64Flag{Name: "seek-fraction", Usage: "absolute seek after preroll, as a fraction of the duration"},
			&cli.Float64Flag{Name: "capture-at", Usage: "grab one frame at this fraction of the duration and exit"},
			&cli.DurationFlag{Name: "duration", Aliases: []string{"d"}, Usage: "stop after this long (0: until end of stream)"},
			&cli.StringFlag{Name: "converter", Usage: "element inserted before glupload, e.g. imxvideoconvert_g2d"},
			&cli.StringFlag{Name: "log-format", Usage: "auto, text, or json"},
			&cli.BoolFlag{Name: "debug", Usage: "enable debug logging"},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "test-player: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg := config.Defaults()
	if path := c.String("config"); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	// Flags override the file.
	if c.IsSet("source") {
		cfg.Source = c.String("source")
	}
	if c.IsSet("loop") {
		cfg.Looping = c.Bool("loop")
	}
	if c.IsSet("paused") {
		autostart := !c.Bool("paused")
		cfg.Autostart = &autostart
	}
	if c.IsSet("capture-at") {
		cfg.Capture.Enabled = true
		cfg.Capture.AtFraction = c.Float64("capture-at")
	}
	if c.IsSet("duration") {
		cfg.DurationS = c.Duration("duration").Seconds()
	}
	if c.IsSet("converter") {
		cfg.Pipeline.Converter = c.String("converter")
	}
	if c.IsSet("log-format") {
		cfg.Log.Format = c.String("log-format")
	}
	if c.Bool("debug") {
		cfg.Log.Level = "debug"
	}

	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func setupLogger(cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}

	format := cfg.Format
	if format == "auto" {
		format = "json"
		if isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd()) {
			format = "text"
		}
	}

	var handler slog.Handler
	if format == "text" {
		handler = slog.NewTextHandler(os.Stderr, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	videotexture.SetLogger(logger)
	return logger
}

func run(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	setupLogger(cfg.Log)

	src, err := videotexture.ParseSource(cfg.Source)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()
	if cfg.DurationS > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(cfg.DurationS*float64(time.Second)))
		defer cancel()
	}

	p := newPlayer(cfg)
	defer func() {
		if err := gstbackend.Shutdown(); err != nil {
			slog.Warn("test-player: gstreamer shutdown", "error", err)
		}
	}()

	defer p.close()
	if err := p.open(src); err != nil {
		return err
	}

	if err := p.waitPreroll(ctx); err != nil {
		return err
	}

	if cfg.Capture.Enabled {
		return p.capture(ctx)
	}
	return p.play(ctx, c.IsSet("seek-seconds"), c.Int("seek-seconds"), c.IsSet("seek-fraction"), c.Float64("seek-fraction"))
}

// player owns the controller and the render-loop state of one run.
type player struct {
	cfg      *config.Config
	ctrl     *videotexture.Controller
	recorder *warmup.Recorder
	machine  *capture.Machine
	renderer *headlessRenderer

	prerolled chan struct{}
	loaded    chan struct{}
	fatal     chan videotexture.Diagnostic
}

func newPlayer(cfg *config.Config) *player {
	p := &player{
		cfg:       cfg,
		recorder:  warmup.NewRecorder(),
		renderer:  newHeadlessRenderer(),
		prerolled: make(chan struct{}, 1),
		loaded:    make(chan struct{}),
		fatal:     make(chan videotexture.Diagnostic, 1),
	}
	p.machine = capture.NewMachine(
		capture.WithTargetFraction(cfg.Capture.AtFraction),
		capture.WithOnLoaded(func() { close(p.loaded) }),
	)
	return p
}

func (p *player) open(src videotexture.Source) error {
	backend, err := gstbackend.New(gstbackend.GraphicsContext{}, gstbackend.Config{
		Converter: p.cfg.Pipeline.Converter,
		SinkName:  p.cfg.Pipeline.SinkName,
	})
	if err != nil {
		return err
	}

	ctrl, err := videotexture.NewController(backend,
		videotexture.WithLooping(p.cfg.Looping),
		videotexture.WithDiagnostics(videotexture.DiagnosticsFunc(p.report)),
		videotexture.WithListener(videotexture.Listener{
			OnFrameAvailable:    p.frameAvailable,
			OnPrerollComplete:   p.prerollComplete,
			OnDimensionsChanged: p.dimensionsChanged,
		}),
	)
	if err != nil {
		_ = backend.Close()
		return err
	}
	p.ctrl = ctrl

	return ctrl.SetSource(src)
}

func (p *player) close() {
	if p.ctrl == nil {
		return
	}
	st := p.ctrl.Stats()
	if err := p.ctrl.Close(); err != nil {
		slog.Error("test-player: close failed", "error", err)
	}
	slog.Info("test-player: closed",
		"frames_delivered", st.Slot.Delivered,
		"frames_dropped", st.Slot.Dropped,
		"frames_displayed", st.Slot.Displayed,
		"frames_released", st.Slot.Released,
	)
}

func (p *player) report(d videotexture.Diagnostic) {
	videotexture.SlogDiagnostics{}.Report(d)
	if d.Severity == videotexture.SeverityError {
		select {
		case p.fatal <- d:
		default:
		}
	}
}

func (p *player) frameAvailable() {
	p.recorder.Record()
	p.machine.FrameAvailable()
}

func (p *player) prerollComplete() {
	select {
	case p.prerolled <- struct{}{}:
	default:
	}
}

func (p *player) dimensionsChanged(width, height int) {
	slog.Info("test-player: frame size", "width", width, "height", height)
}

func (p *player) waitPreroll(ctx context.Context) error {
	select {
	case <-p.prerolled:
	case d := <-p.fatal:
		return fmt.Errorf("pipeline error before preroll: %s", d.Message)
	case <-time.After(prerollTimeout):
		return fmt.Errorf("no preroll within %v", prerollTimeout)
	case <-ctx.Done():
		return ctx.Err()
	}

	st := p.ctrl.PlaybackState()
	w, h := p.ctrl.Dimensions()
	slog.Info("test-player: prerolled",
		"source", p.ctrl.Stats().Source.String(),
		"duration", st.Duration,
		"duration_known", st.DurationKnown,
		"width", w,
		"height", h,
	)
	return nil
}

// capture grabs one frame through the capture state machine.
func (p *player) capture(ctx context.Context) error {
	if err := p.machine.Attach(p.ctrl, p.renderer); err != nil {
		return err
	}
	if err := p.machine.PrerollComplete(); err != nil {
		return err
	}

	ticker := time.NewTicker(time.Second / time.Duration(maxPollRate))
	defer ticker.Stop()

	for {
		select {
		case <-p.loaded:
			slog.Info("test-player: frame captured",
				"texture", p.renderer.OffscreenTexture().String(),
				"fraction", p.machine.TargetFraction(),
			)
			return nil
		case d := <-p.fatal:
			return fmt.Errorf("pipeline error during capture: %s", d.Message)
		case <-ctx.Done():
			return fmt.Errorf("capture stopped in state %s: %w", p.machine.State(), ctx.Err())
		case <-ticker.C:
			if p.machine.ShouldPull() {
				if err := p.renderFrame(); err != nil {
					return err
				}
			}
			if err := p.machine.AfterSync(); err != nil {
				return err
			}
		}
	}
}

func (p *player) play(ctx context.Context, seekBySeconds bool, seconds int, seekToFraction bool, fraction float64) error {
	if p.cfg.AutostartEnabled() {
		if err := p.ctrl.Play(); err != nil {
			return err
		}
	}

	if seekBySeconds {
		before := p.ctrl.PositionFraction()
		if err := p.ctrl.SeekBySeconds(seconds); err != nil {
			return err
		}
		slog.Info("test-player: relative seek", "seconds", seconds, "from", before, "to", p.ctrl.PositionFraction())
	}
	if seekToFraction {
		if err := p.ctrl.SeekToFraction(fraction); err != nil {
			return err
		}
		slog.Info("test-player: absolute seek", "fraction", fraction)
	}

	interval := time.Second / time.Duration(maxPollRate)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	warmupDone := time.After(warmupWindow)

	for {
		select {
		case <-ctx.Done():
			p.logDelivery("test-player: stopped")
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return nil
			}
			return ctx.Err()

		case d := <-p.fatal:
			return fmt.Errorf("pipeline error: %s", d.Message)

		case <-warmupDone:
			stats := p.logDelivery("test-player: warm-up complete")
			rate := warmup.PollRate(stats, maxPollRate)
			ticker.Reset(time.Duration(float64(time.Second) / rate))
			slog.Debug("test-player: render loop retuned", "rate_hz", rate)

		case <-ticker.C:
			if err := p.renderFrame(); err != nil {
				return err
			}
			if p.cfg.AutostartEnabled() && !p.ctrl.Playing() {
				p.logDelivery("test-player: end of stream")
				return nil
			}
		}
	}
}

// renderFrame stands in for a render pass: acquire the newest frame and
// count it as drawn.
func (p *player) renderFrame() error {
	tex, err := p.ctrl.AcquireCurrentFrame()
	if err != nil {
		return err
	}
	if tex.Valid() {
		p.renderer.SetTarget(tex)
		p.renderer.draw()
	}
	return nil
}

func (p *player) logDelivery(msg string) *warmup.DeliveryStats {
	stats := p.recorder.Stats()
	st := p.ctrl.PlaybackState()
	slog.Info(msg,
		"frames", stats.FramesReceived,
		"fps_mean", fmt.Sprintf("%.2f", stats.FPSMean),
		"fps_stddev", fmt.Sprintf("%.2f", stats.FPSStdDev),
		"jitter_mean_ms", fmt.Sprintf("%.2f", stats.JitterMean*1000),
		"stable", stats.IsStable,
		"position", fmt.Sprintf("%.3f", st.Position),
		"looping", st.Looping,
	)
	return stats
}
