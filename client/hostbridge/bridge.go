// Package hostbridge implements the "env" import table a compiled game
// module expects from its host: logging, clocks, file downloads and the
// scalar math functions the module cannot implement itself.
//
// All functions taking a pointer and a length read the guest's linear
// memory. An out of range pointer or length is a contract violation by the
// guest and panics; wazero turns the panic into a trap for the caller.
package hostbridge

import (
	"fmt"
	"log"
	"time"
	"unicode/utf8"
)

// Memory is the part of a guest's linear memory the bridge needs.
// wazero's api.Memory satisfies it.
type Memory interface {
	Read(offset, byteCount uint32) ([]byte, bool)
}

// Downloader saves a blob of bytes under a file name, the way a browser
// "save as" does.
type Downloader interface {
	Download(filename, mimetype string, data []byte) error
}

// DownloaderFunc adapts a plain function to Downloader.
type DownloaderFunc func(filename, mimetype string, data []byte) error

func (f DownloaderFunc) Download(filename, mimetype string, data []byte) error {
	return f(filename, mimetype, data)
}

type Option func(b *Bridge)

// WithLogger sets where guest log output goes. Defaults to log.Default().
func WithLogger(l *log.Logger) Option {
	return func(b *Bridge) {
		b.logger = l
	}
}

func WithDownloader(d Downloader) Option {
	return func(b *Bridge) {
		b.downloader = d
	}
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(b *Bridge) {
		b.now = now
	}
}

// Bridge holds the state behind the import table: a single log buffer, the
// clock origin for NowMonotonic and the download target.
type Bridge struct {
	logger     *log.Logger
	downloader Downloader
	now        func() time.Time
	start      time.Time

	logBuf LogBuffer
}

func New(opts ...Option) *Bridge {
	b := &Bridge{
		logger: log.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	b.start = b.now()
	return b
}

// LogBuffer exposes the pending log text.
func (b *Bridge) LogBuffer() *LogBuffer { return &b.logBuf }

// LogWrite appends len bytes at ptr to the log buffer.
func (b *Bridge) LogWrite(mem Memory, ptr, length uint32) {
	b.logBuf.Write(mustReadString(mem, ptr, length))
}

// LogFlush emits the log buffer as one line and clears it.
func (b *Bridge) LogFlush() {
	b.logBuf.Flush(b.emit)
}

// ConsoleLog emits len bytes at ptr immediately, leaving the log buffer alone.
func (b *Bridge) ConsoleLog(mem Memory, ptr, length uint32) {
	b.emit(mustReadString(mem, ptr, length))
}

// NowMonotonic returns milliseconds since the bridge was created, with
// sub-millisecond resolution. It never goes backwards.
func (b *Bridge) NowMonotonic() float64 {
	return float64(b.now().Sub(b.start)) / float64(time.Millisecond)
}

// NowWall returns whole milliseconds since the Unix epoch.
func (b *Bridge) NowWall() float64 {
	return float64(b.now().UnixMilli())
}

// Download copies the payload out of guest memory and hands it to the
// Downloader. Failures are logged; the guest gets no result.
func (b *Bridge) Download(mem Memory, namePtr, nameLen, mimePtr, mimeLen, dataPtr, dataLen uint32) {
	filename := mustReadString(mem, namePtr, nameLen)
	mimetype := mustReadString(mem, mimePtr, mimeLen)
	view := mustRead(mem, dataPtr, dataLen)
	// The view aliases linear memory, which the guest may reuse or grow.
	data := make([]byte, len(view))
	copy(data, view)

	if b.downloader == nil {
		b.logger.Printf("download %q (%s, %d bytes) dropped: no downloader", filename, mimetype, len(data))
		return
	}
	if err := b.downloader.Download(filename, mimetype, data); err != nil {
		b.logger.Printf("download %q failed: %v", filename, err)
	}
}

func (b *Bridge) emit(s string) {
	b.logger.Print(s)
}

func mustRead(mem Memory, ptr, length uint32) []byte {
	if mem == nil {
		panic("hostbridge: guest has no linear memory")
	}
	buf, ok := mem.Read(ptr, length)
	if !ok {
		panic(fmt.Sprintf("hostbridge: reading %d bytes at %#x: out of range", length, ptr))
	}
	return buf
}

// mustReadString decodes guest bytes as UTF-8. Invalid sequences become
// U+FFFD, as TextDecoder does.
func mustReadString(mem Memory, ptr, length uint32) string {
	buf := mustRead(mem, ptr, length)
	if utf8.Valid(buf) {
		return string(buf)
	}
	return toValidUTF8(buf)
}

func toValidUTF8(buf []byte) string {
	runes := make([]rune, 0, len(buf))
	for len(buf) > 0 {
		r, size := utf8.DecodeRune(buf)
		runes = append(runes, r)
		buf = buf[size:]
	}
	return string(runes)
}
