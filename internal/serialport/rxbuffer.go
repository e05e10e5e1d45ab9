package serialport

import (
	"io"
	"sync"

	"github.com/pkg/errors"
)

// MaxBuffered is the receive buffer size. Bytes beyond it push the oldest
// bytes out, the way a full UART FIFO overruns.
const MaxBuffered = 4096

// ErrClosed is returned by Read after Close.
var ErrClosed = errors.New("serialport: buffer closed")

// RxBuffer drains a blocking byte source on its own goroutine so callers
// can check how many bytes are waiting and read them without blocking.
type RxBuffer struct {
	src  io.ReadCloser
	done chan struct{}

	mu      sync.Mutex
	buf     []byte
	err     error
	closed  bool
	dropped uint64
}

// NewRxBuffer starts draining src.
func NewRxBuffer(src io.ReadCloser) *RxBuffer {
	b := &RxBuffer{
		src:  src,
		done: make(chan struct{}),
		buf:  make([]byte, 0, 64),
	}
	go b.drain()
	return b
}

func (b *RxBuffer) drain() {
	defer close(b.done)
	chunk := make([]byte, 256)
	for {
		n, err := b.src.Read(chunk)
		b.mu.Lock()
		if n > 0 {
			b.buf = append(b.buf, chunk[:n]...)
			if over := len(b.buf) - MaxBuffered; over > 0 {
				b.buf = append(b.buf[:0], b.buf[over:]...)
				b.dropped += uint64(over)
			}
		}
		if err != nil {
			if !b.closed {
				b.err = errors.Wrap(err, "serial read")
			}
			b.mu.Unlock()
			return
		}
		closed := b.closed
		b.mu.Unlock()
		if closed {
			return
		}
	}
}

// InWaiting returns the number of bytes that can be read without blocking.
func (b *RxBuffer) InWaiting() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.buf)
}

// Read copies waiting bytes into p and never blocks. Once the buffer is
// empty it reports the source's read error, if any.
func (b *RxBuffer) Read(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return 0, ErrClosed
	}
	if len(b.buf) == 0 {
		return 0, b.err
	}
	n := copy(p, b.buf)
	b.buf = append(b.buf[:0], b.buf[n:]...)
	return n, nil
}

// Err returns the error that stopped the reader goroutine.
func (b *RxBuffer) Err() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.err
}

// Dropped returns how many bytes were discarded on overflow.
func (b *RxBuffer) Dropped() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dropped
}

// Close closes the source and waits for the reader goroutine to exit.
func (b *RxBuffer) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	b.mu.Unlock()

	err := b.src.Close()
	<-b.done
	return err
}
