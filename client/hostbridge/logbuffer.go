package hostbridge

import "strings"

// LogBuffer accumulates text written by the guest until it is flushed.
// It is not safe for concurrent use; the guest calls in from a single goroutine.
type LogBuffer struct {
	sb strings.Builder
}

func (b *LogBuffer) Write(s string) {
	b.sb.WriteString(s)
}

// Flush hands the buffered text to emit and resets the buffer. An empty
// buffer emits nothing.
func (b *LogBuffer) Flush(emit func(string)) {
	if b.sb.Len() == 0 {
		return
	}
	s := b.sb.String()
	b.sb.Reset()
	emit(s)
}

func (b *LogBuffer) Len() int { return b.sb.Len() }

func (b *LogBuffer) String() string { return b.sb.String() }
