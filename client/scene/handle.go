package scene

import "sync"

// Handle owns a Scene for the render goroutine. Other goroutines (asset
// loads) never touch the scene directly; they Enqueue mutations that the
// render goroutine runs with Apply before drawing.
type Handle struct {
	scene *Scene

	mu      sync.Mutex
	pending []func(*Scene)

	attached map[string]*Node
}

func NewHandle(s *Scene) *Handle {
	return &Handle{
		scene:    s,
		attached: make(map[string]*Node),
	}
}

// Scene returns the owned scene. Only the render goroutine may use it.
func (h *Handle) Scene() *Scene { return h.scene }

// Enqueue schedules fn to run on the render goroutine. Safe for concurrent use.
func (h *Handle) Enqueue(fn func(*Scene)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.pending = append(h.pending, fn)
}

// Apply runs all queued mutations in the order they were enqueued and returns
// how many ran.
func (h *Handle) Apply() int {
	h.mu.Lock()
	pending := h.pending
	h.pending = nil
	h.mu.Unlock()

	for _, fn := range pending {
		fn(h.scene)
	}
	return len(pending)
}

// AttachOnce adds child to parent unless a node was already attached under
// key. It reports whether child was attached. Render goroutine only.
func (h *Handle) AttachOnce(key string, parent, child *Node) bool {
	if _, ok := h.attached[key]; ok {
		return false
	}
	h.attached[key] = child
	parent.Add(child)
	return true
}

// Attached returns the node attached under key, or nil.
func (h *Handle) Attached(key string) *Node {
	return h.attached[key]
}
