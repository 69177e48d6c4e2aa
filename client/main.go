//go:build js && wasm

package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"syscall/js"
	"time"

	"github.com/fabioarnold/blobbyvolley2/client/assets"
	"github.com/fabioarnold/blobbyvolley2/client/browser"
	"github.com/fabioarnold/blobbyvolley2/client/engine"
	"github.com/fabioarnold/blobbyvolley2/client/game"
	"github.com/fabioarnold/blobbyvolley2/client/hostbridge"
	"github.com/fabioarnold/blobbyvolley2/client/presenter"
	"github.com/mokiat/wasmgpu"
)

const (
	defaultAssetBase  = "assets/"
	defaultModulePath = "blobby.wasm"
)

type config struct {
	assetBase  string
	modulePath string
}

// waitForExports waits until the JS which initializes the globals has finished running.
func waitForExports() {
	for {
		if fn := js.Global().Get("getContext"); !fn.IsUndefined() {
			return
		}
		log.Printf("getContext is still undefined")
		time.Sleep(100 * time.Millisecond)
	}
}

// readConfig reads the optional getConfig() object set up by the page.
func readConfig() config {
	cfg := config{assetBase: defaultAssetBase, modulePath: defaultModulePath}
	fn := js.Global().Get("getConfig")
	if fn.IsUndefined() {
		return cfg
	}
	obj := fn.Invoke()
	if obj.IsNull() || obj.IsUndefined() {
		return cfg
	}
	if v := obj.Get("assetBase"); v.Type() == js.TypeString {
		cfg.assetBase = v.String()
	}
	if v := obj.Get("module"); v.Type() == js.TypeString {
		cfg.modulePath = v.String()
	}
	return cfg
}

func showError(msg string) {
	if fn := js.Global().Get("showError"); !fn.IsUndefined() {
		fn.Invoke(msg)
	}
}

func main() {
	log.Println("Started client!")

	waitForExports()

	jsContext := js.Global().Call("getContext")
	jsDevice := js.Global().Call("getDevice")
	context := wasmgpu.NewCanvasContext(jsContext)
	device := wasmgpu.NewDevice(jsDevice)

	if err := run(device, context, jsContext, readConfig()); err != nil {
		log.Printf("run() failed: %v", err)
		showError("Run error: " + err.Error())
	}

	<-make(chan bool)
}

func run(device wasmgpu.GPUDevice, gpuContext wasmgpu.GPUCanvasContext, jsContext js.Value, cfg config) error {
	ctx := context.Background()
	window := browser.Window()

	page, err := assets.NewFetcher(window.Location(), http.DefaultClient)
	if err != nil {
		return err
	}
	base, err := page.URL(cfg.assetBase)
	if err != nil {
		return err
	}
	fetcher, err := assets.NewFetcher(base, http.DefaultClient)
	if err != nil {
		return err
	}
	wasm, err := fetcher.Fetch(ctx, cfg.modulePath)
	if err != nil {
		return fmt.Errorf("fetching game module: %v", err)
	}

	bridge := hostbridge.New(hostbridge.WithDownloader(browser.Downloader{}))
	mod, err := game.Load(ctx, bridge, wasm, game.Config{
		Name:        "blobby",
		Interpreter: true,
		Stdout:      os.Stdout,
		Stderr:      os.Stderr,
	})
	if err != nil {
		return err
	}

	renderer := engine.NewRenderer(device, gpuContext, jsContext, wasmgpu.GPUTextureFormatBGRA8Unorm, log.Default())
	p := presenter.New(renderer, fetcher, presenter.WithClock(browser.PerformanceNow))
	p.Initialize(ctx)

	resize := func(width, height int) {
		p.Resize(width, height, window.DevicePixelRatio())
		if err := mod.Resize(ctx, width, height); err != nil {
			log.Printf("resize: %v", err)
		}
	}
	resize(window.InnerSize())
	window.OnResize(resize)

	stopped := false
	engine.InitRenderCallback(func(nowMs float64) {
		if stopped {
			return
		}
		if err := step(ctx, mod, p, nowMs); err != nil {
			stopped = true
			log.Printf("frame failed: %v", err)
			showError("Frame error: " + err.Error())
		}
	})
	return nil
}

func step(ctx context.Context, mod *game.Module, p *presenter.Presenter, nowMs float64) error {
	if err := mod.Frame(ctx, nowMs); err != nil {
		return err
	}
	snap, err := mod.Snapshot(ctx)
	if err != nil {
		return err
	}
	return p.RenderFrame(snap)
}
