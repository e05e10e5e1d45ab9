package serialport

import (
	"io"
	"time"

	"github.com/pkg/errors"
	"github.com/tarm/serial"
)

// readTimeout bounds each blocking read so Close never waits on a silent
// device.
const readTimeout = 100 * time.Millisecond

// Open opens the named serial device at baud and starts draining it into
// an RxBuffer.
func Open(name string, baud int) (*RxBuffer, error) {
	c := &serial.Config{Name: name, Baud: baud, ReadTimeout: readTimeout}
	s, err := serial.OpenPort(c)
	if err != nil {
		return nil, errors.Wrapf(err, "open serial %s", name)
	}
	// Anything the board sent before we attached is stale.
	if err := s.Flush(); err != nil {
		s.Close()
		return nil, errors.Wrapf(err, "flush serial %s", name)
	}
	return NewRxBuffer(newTimeoutPort(s, readTimeout)), nil
}

// ErrDisconnected is reported when reads keep returning nothing without
// waiting for the read timeout, which is how a hung-up tty behaves.
var ErrDisconnected = errors.New("serial device disconnected")

// maxInstantEOFs is how many immediate empty reads in a row mean hangup.
const maxInstantEOFs = 3

// timeoutPort reports an expired read timeout as an empty read. The
// serial package surfaces both a timeout and a hangup as io.EOF; only a
// timeout blocks for about the read timeout first.
type timeoutPort struct {
	io.ReadCloser
	timeout time.Duration
	instant int
}

func newTimeoutPort(rc io.ReadCloser, timeout time.Duration) *timeoutPort {
	return &timeoutPort{ReadCloser: rc, timeout: timeout}
}

func (p *timeoutPort) Read(b []byte) (int, error) {
	start := time.Now()
	n, err := p.ReadCloser.Read(b)
	if err != io.EOF {
		p.instant = 0
		return n, err
	}
	if n > 0 || time.Since(start) >= p.timeout/2 {
		p.instant = 0
		return n, nil
	}
	p.instant++
	if p.instant >= maxInstantEOFs {
		return 0, ErrDisconnected
	}
	return 0, nil
}
