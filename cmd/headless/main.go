// Command headless runs a game module without a browser or a renderer. It
// steps frames on a simulated clock, logs each snapshot with the ball
// position and camera shot the presenter would use, and writes downloads
// into a directory.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/fabioarnold/blobbyvolley2/client/game"
	"github.com/fabioarnold/blobbyvolley2/client/hostbridge"
	"github.com/fabioarnold/blobbyvolley2/client/presenter"
)

var (
	modulePath   = flag.String("module", "assets/blobby.wasm", "game module to run")
	frames       = flag.Int("frames", 600, "number of frames to run")
	fps          = flag.Float64("fps", 60, "simulated frames per second")
	downloadDir  = flag.String("downloads", "downloads", "directory downloads are written to")
	useWASI      = flag.Bool("wasi", false, "provide wasi_snapshot_preview1 to the module")
	screenWidth  = flag.Int("width", 800, "screen width reported to the module")
	screenHeight = flag.Int("height", 600, "screen height reported to the module")
)

type options struct {
	modulePath    string
	frames        int
	fps           float64
	downloadDir   string
	wasi          bool
	width, height int
}

func main() {
	flag.Parse()

	opts := options{
		modulePath:  *modulePath,
		frames:      *frames,
		fps:         *fps,
		downloadDir: *downloadDir,
		wasi:        *useWASI,
		width:       *screenWidth,
		height:      *screenHeight,
	}
	if err := run(context.Background(), opts, log.Default()); err != nil {
		log.Printf("headless run failed: %v", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, opts options, logger *log.Logger) error {
	if opts.fps <= 0 {
		return fmt.Errorf("fps must be positive, got %v", opts.fps)
	}
	wasm, err := os.ReadFile(opts.modulePath)
	if err != nil {
		return fmt.Errorf("reading game module: %v", err)
	}

	// The module's clocks follow the simulated frame time.
	var elapsed time.Duration
	start := time.Now()
	bridge := hostbridge.New(
		hostbridge.WithLogger(logger),
		hostbridge.WithDownloader(hostbridge.DirDownloader{Dir: opts.downloadDir}),
		hostbridge.WithClock(func() time.Time { return start.Add(elapsed) }),
	)
	mod, err := game.Load(ctx, bridge, wasm, game.Config{
		Name:   "blobby",
		WASI:   opts.wasi,
		Stdout: logger.Writer(),
		Stderr: logger.Writer(),
	})
	if err != nil {
		return err
	}
	defer mod.Close(ctx)

	if err := mod.Resize(ctx, opts.width, opts.height); err != nil {
		return err
	}

	var rig presenter.CameraRig
	frameMs := 1000 / opts.fps
	for i := 0; i < opts.frames; i++ {
		nowMs := float64(i) * frameMs
		elapsed = time.Duration(nowMs * float64(time.Millisecond))
		if err := mod.Frame(ctx, nowMs); err != nil {
			return fmt.Errorf("frame %d: %v", i, err)
		}
		snap, err := mod.Snapshot(ctx)
		if err != nil {
			return fmt.Errorf("frame %d: %v", i, err)
		}
		pose := rig.Update(snap.Menu.Alpha)
		logger.Printf("frame %d t=%.1fms %v world=%v camera=%s %v",
			i, nowMs, snap, presenter.BallPosition(snap.Ball), presenter.Regime(snap.Menu.Alpha), pose.Position)
	}
	// Anything the module wrote without flushing.
	bridge.LogFlush()
	return nil
}
