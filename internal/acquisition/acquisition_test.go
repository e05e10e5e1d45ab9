package acquisition

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weatherstation/internal/metric"
	"github.com/weatherstation/internal/models"
	"github.com/weatherstation/internal/serialport"
)

type fakeSource struct {
	buf   []byte
	err   error
	reads int
}

func (f *fakeSource) InWaiting() int { return len(f.buf) }

func (f *fakeSource) Read(p []byte) (int, error) {
	f.reads++
	if len(f.buf) == 0 && f.err != nil {
		return 0, f.err
	}
	n := copy(p, f.buf)
	f.buf = f.buf[n:]
	return n, nil
}

func (f *fakeSource) Err() error { return f.err }

type lockedSource struct {
	mu sync.Mutex
	fakeSource
}

func (l *lockedSource) push(b []byte) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.buf = append(l.buf, b...)
}

func (l *lockedSource) InWaiting() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.fakeSource.InWaiting()
}

func (l *lockedSource) Read(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.fakeSource.Read(p)
}

func (l *lockedSource) Err() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.fakeSource.Err()
}

var t0 = time.Date(2024, 5, 1, 13, 4, 5, 0, time.UTC)

func TestDecode(t *testing.T) {
	r, err := Decode([]byte{23, 61, 7, 255}, t0)
	require.NoError(t, err)
	assert.Equal(t, [4]uint8{23, 61, 7, 255}, r.Values)
	assert.Equal(t, uint8(23), r.Temperature())
	assert.Equal(t, uint8(61), r.Humidity())
	assert.Equal(t, uint8(7), r.WaterLevel())
	assert.Equal(t, uint8(255), r.Light())
	assert.Equal(t, t0, r.At)

	for _, b := range [][]byte{nil, {1, 2, 3}, {1, 2, 3, 4, 5}} {
		_, err := Decode(b, t0)
		assert.ErrorIs(t, err, ErrFrameSize, "len %d", len(b))
	}
}

func TestPoll_ExactlyFourBytes(t *testing.T) {
	for _, frame := range [][]byte{{0, 0, 0, 0}, {1, 2, 3, 4}, {50, 100, 40, 100}, {255, 128, 64, 9}} {
		src := &fakeSource{buf: append([]byte(nil), frame...)}
		r, ok, waiting, err := Poll(src, false, t0)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, 4, waiting)
		assert.Equal(t, frame, r.Values[:])
		assert.Equal(t, 0, src.InWaiting())
	}
}

func TestPoll_FewerThanFourConsumesNothing(t *testing.T) {
	for n := 0; n < FrameSize; n++ {
		src := &fakeSource{buf: make([]byte, n)}
		_, ok, waiting, err := Poll(src, false, t0)
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Equal(t, n, waiting)
		assert.Equal(t, n, src.InWaiting())
		assert.Zero(t, src.reads)
	}
}

func TestPoll_BacklogNeedsGreedy(t *testing.T) {
	src := &fakeSource{buf: []byte{1, 2, 3, 4, 5, 6, 7, 8, 9}}
	_, ok, _, err := Poll(src, false, t0)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 9, src.InWaiting())

	r, ok, _, err := Poll(src, true, t0)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, [4]uint8{1, 2, 3, 4}, r.Values)
	assert.Equal(t, 5, src.InWaiting())

	r, ok, _, err = Poll(src, true, t0)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, [4]uint8{5, 6, 7, 8}, r.Values)

	_, ok, _, err = Poll(src, true, t0)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPoll_ReadError(t *testing.T) {
	src := &shortSource{}
	_, ok, _, err := Poll(src, false, t0)
	assert.Error(t, err)
	assert.False(t, ok)
}

type shortSource struct{}

func (shortSource) InWaiting() int             { return 4 }
func (shortSource) Read(p []byte) (int, error) { return 2, nil }

func quietLogger() *logrus.Logger {
	log, _ := test.NewNullLogger()
	return log
}

func TestPoller_Tick(t *testing.T) {
	m := metric.New()
	src := &fakeSource{}
	p := NewPoller(src, time.Millisecond, Options{Log: quietLogger(), Metric: m, Now: func() time.Time { return t0 }})

	_, ok, err := p.Tick()
	require.NoError(t, err)
	assert.False(t, ok)

	src.buf = []byte{10, 20, 30, 40}
	r, ok, err := p.Tick()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, models.Reading{Values: [4]uint8{10, 20, 30, 40}, At: t0}, r)
}

func TestPoller_TickReportsDeadSource(t *testing.T) {
	src := &fakeSource{err: io.ErrUnexpectedEOF}
	p := NewPoller(src, time.Millisecond, Options{Log: quietLogger()})

	_, _, err := p.Tick()
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func TestPoller_TickReportsDeadSourceWithBytesLeft(t *testing.T) {
	for _, tc := range []struct {
		name   string
		buf    []byte
		greedy bool
	}{
		{"partial frame", []byte{1, 2}, false},
		{"backlog in exact mode", []byte{1, 2, 3, 4, 5, 6}, false},
	} {
		t.Run(tc.name, func(t *testing.T) {
			src := &fakeSource{buf: tc.buf, err: io.ErrUnexpectedEOF}
			p := NewPoller(src, time.Millisecond, Options{Log: quietLogger(), Greedy: tc.greedy})

			_, ok, err := p.Tick()
			assert.False(t, ok)
			assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
			assert.Equal(t, 0, src.reads)
		})
	}
}

func TestPoller_RunStopsOnDeadRxBuffer(t *testing.T) {
	pr, pw := io.Pipe()
	rx := serialport.NewRxBuffer(pr)
	defer rx.Close()

	_, err := pw.Write([]byte{1, 2})
	require.NoError(t, err)
	require.NoError(t, pw.CloseWithError(io.ErrUnexpectedEOF))
	require.Eventually(t, func() bool { return rx.Err() != nil }, time.Second, time.Millisecond)

	p := NewPoller(rx, time.Millisecond, Options{Log: quietLogger()})
	out := make(chan models.Reading, 1)
	err = p.Run(context.Background(), out)
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
	assert.Equal(t, 2, rx.InWaiting())
}

func TestPoller_Run(t *testing.T) {
	src := &lockedSource{}
	p := NewPoller(src, time.Millisecond, Options{Log: quietLogger()})
	out := make(chan models.Reading, 4)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx, out) }()

	src.push([]byte{1, 2, 3, 4})
	select {
	case r := <-out:
		assert.Equal(t, [4]uint8{1, 2, 3, 4}, r.Values)
	case <-time.After(time.Second):
		t.Fatal("no reading")
	}

	cancel()
	require.NoError(t, <-done)
	_, open := <-out
	assert.False(t, open)
}

func TestPoller_RunStopsOnError(t *testing.T) {
	src := &fakeSource{err: io.ErrClosedPipe}
	p := NewPoller(src, time.Millisecond, Options{Log: quietLogger()})
	out := make(chan models.Reading, 1)

	err := p.Run(context.Background(), out)
	assert.ErrorIs(t, err, io.ErrClosedPipe)
}
