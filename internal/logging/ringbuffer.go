package logging

import (
	"os"
	"sync"
)

// RingBuffer keeps the last size bytes written to it. It backs the crash
// dump written on SIGUSR1 or a panic.
type RingBuffer struct {
	mu    sync.Mutex
	buf   []byte
	start int
	n     int
}

// NewRingBuffer returns a ring buffer of size bytes.
func NewRingBuffer(size int) *RingBuffer {
	if size <= 0 {
		size = 1024 * 1024
	}
	return &RingBuffer{buf: make([]byte, size)}
}

// Write implements io.Writer. It never fails; old bytes are overwritten.
func (rb *RingBuffer) Write(p []byte) (int, error) {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	written := len(p)
	size := len(rb.buf)
	if len(p) >= size {
		copy(rb.buf, p[len(p)-size:])
		rb.start, rb.n = 0, size
		return written, nil
	}

	end := (rb.start + rb.n) % size
	k := copy(rb.buf[end:], p)
	copy(rb.buf, p[k:])

	rb.n += len(p)
	if rb.n > size {
		rb.start = (rb.start + rb.n - size) % size
		rb.n = size
	}
	return written, nil
}

// Bytes returns the contents, oldest first.
func (rb *RingBuffer) Bytes() []byte {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	out := make([]byte, rb.n)
	k := copy(out, rb.buf[rb.start:min(rb.start+rb.n, len(rb.buf))])
	copy(out[k:], rb.buf[:rb.n-k])
	return out
}

// Len returns the number of bytes held.
func (rb *RingBuffer) Len() int {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	return rb.n
}

// DumpToFile writes the contents to path.
func (rb *RingBuffer) DumpToFile(path string) error {
	return os.WriteFile(path, rb.Bytes(), 0o644)
}
