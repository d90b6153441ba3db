package ffmpeg

import "sync"

// TailBuffer is an io.Writer that retains only the last Size bytes written.
// ffmpeg can emit megabytes of diagnostics on a long encode; only the tail is
// useful for error reports.
type TailBuffer struct {
	mu   sync.Mutex
	size int
	buf  []byte
}

// NewTailBuffer returns a buffer retaining at most size bytes.
func NewTailBuffer(size int) *TailBuffer {
	if size <= 0 {
		size = 4096
	}
	return &TailBuffer{size: size, buf: make([]byte, 0, size)}
}

func (t *TailBuffer) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	n := len(p)
	if n >= t.size {
		t.buf = append(t.buf[:0], p[n-t.size:]...)
		return n, nil
	}
	if over := len(t.buf) + n - t.size; over > 0 {
		copy(t.buf, t.buf[over:])
		t.buf = t.buf[:len(t.buf)-over]
	}
	t.buf = append(t.buf, p...)
	return n, nil
}

// String returns the retained tail.
func (t *TailBuffer) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return string(t.buf)
}
