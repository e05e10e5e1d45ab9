package acquisition

import (
	"time"

	"github.com/pkg/errors"

	"github.com/weatherstation/internal/models"
)

// FrameSize is the number of bytes in one sample: one per channel, no
// framing or checksum.
const FrameSize = models.NumChannels

// ErrFrameSize is returned by Decode for anything but FrameSize bytes.
var ErrFrameSize = errors.New("acquisition: sample must be exactly 4 bytes")

// Source is a serial receive buffer that can report bytes waiting.
type Source interface {
	InWaiting() int
	Read(p []byte) (int, error)
}

// Decode turns one frame into a Reading. Each byte is an independent
// unsigned channel value in wire order.
func Decode(b []byte, at time.Time) (models.Reading, error) {
	if len(b) != FrameSize {
		return models.Reading{}, errors.Wrapf(ErrFrameSize, "got %d", len(b))
	}
	r := models.Reading{At: at}
	copy(r.Values[:], b)
	return r, nil
}

// Poll takes one sample from src if one is available. By default a sample
// is available only when exactly FrameSize bytes are waiting; in greedy
// mode any backlog of at least FrameSize bytes yields its oldest frame.
// When no sample is taken nothing is consumed. waiting reports the byte
// count seen before reading.
func Poll(src Source, greedy bool, now time.Time) (r models.Reading, ok bool, waiting int, err error) {
	waiting = src.InWaiting()
	if waiting != FrameSize && !(greedy && waiting > FrameSize) {
		return models.Reading{}, false, waiting, nil
	}

	buf := make([]byte, FrameSize)
	n, err := src.Read(buf)
	if err != nil {
		return models.Reading{}, false, waiting, err
	}
	if n != FrameSize {
		// InWaiting promised a full frame.
		return models.Reading{}, false, waiting, errors.Errorf("short serial read: %d of %d bytes", n, FrameSize)
	}
	r, err = Decode(buf, now)
	return r, err == nil, waiting, err
}
