//go:build js && wasm

// Package browser wraps the few DOM APIs the client uses.
package browser

import (
	"strconv"
	"syscall/js"
)

type HTMLWindow struct{ jsValue js.Value }

func Window() HTMLWindow {
	return HTMLWindow{js.Global().Get("window")}
}

func (w HTMLWindow) RequestAnimationFrame(fn js.Func) { w.jsValue.Call("requestAnimationFrame", fn) }

func (w HTMLWindow) DevicePixelRatio() float32 {
	if r := w.jsValue.Get("devicePixelRatio"); r.Truthy() {
		return float32(r.Float())
	}
	return 1
}

func (w HTMLWindow) InnerSize() (int, int) {
	return w.jsValue.Get("innerWidth").Int(), w.jsValue.Get("innerHeight").Int()
}

// OnResize calls fn with the new inner size whenever the window is resized.
// The returned func removes the listener.
func (w HTMLWindow) OnResize(fn func(width, height int)) func() {
	cb := js.FuncOf(func(this js.Value, args []js.Value) any {
		fn(w.InnerSize())
		return nil
	})
	w.jsValue.Call("addEventListener", "resize", cb)
	return func() {
		w.jsValue.Call("removeEventListener", "resize", cb)
		cb.Release()
	}
}

// Location returns the page URL.
func (w HTMLWindow) Location() string {
	return w.jsValue.Get("location").Get("href").String()
}

// PerformanceNow returns performance.now(): milliseconds since the page
// loaded, monotonic.
func PerformanceNow() float64 {
	return js.Global().Get("performance").Call("now").Float()
}

type Canvas struct{ jsValue js.Value }

// CanvasOf returns the canvas a WebGPU context renders into.
func CanvasOf(context js.Value) Canvas {
	return Canvas{context.Get("canvas")}
}

// SetSize sets the CSS size and the backing store size of the canvas.
func (c Canvas) SetSize(width, height int, pixelRatio float32) {
	style := c.jsValue.Get("style")
	style.Set("width", strconv.Itoa(width)+"px")
	style.Set("height", strconv.Itoa(height)+"px")
	c.jsValue.Set("width", int(float32(width)*pixelRatio+0.5))
	c.jsValue.Set("height", int(float32(height)*pixelRatio+0.5))
}

// PixelSize returns the size of the backing store.
func (c Canvas) PixelSize() (int, int) {
	return c.jsValue.Get("width").Int(), c.jsValue.Get("height").Int()
}
