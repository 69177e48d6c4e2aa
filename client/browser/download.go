//go:build js && wasm

package browser

import "syscall/js"

var uint8ArrayCtor = js.Global().Get("Uint8Array")

// Downloader saves files the way a "save as" link does: it wraps the bytes in
// a Blob and clicks a hidden anchor pointing at an object URL for it.
type Downloader struct{}

func (Downloader) Download(filename, mimetype string, data []byte) error {
	arr := uint8ArrayCtor.New(len(data))
	js.CopyBytesToJS(arr, data)
	blob := js.Global().Get("Blob").New(js.ValueOf([]any{arr}), map[string]any{"type": mimetype})

	urlAPI := js.Global().Get("URL")
	url := urlAPI.Call("createObjectURL", blob)
	defer urlAPI.Call("revokeObjectURL", url)

	doc := js.Global().Get("document")
	a := doc.Call("createElement", "a")
	a.Set("href", url)
	a.Set("download", filename)
	a.Get("style").Set("display", "none")
	body := doc.Get("body")
	body.Call("appendChild", a)
	a.Call("click")
	body.Call("removeChild", a)
	return nil
}
