package series

import (
	"github.com/weatherstation/internal/models"
)

// Limits is an axis range.
type Limits struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Buffer holds the plotted points: the x keys and the four channel
// sequences, kept parallel. A positive window keeps only the trailing
// window points; zero keeps everything.
type Buffer struct {
	window int
	points []models.Point

	autoscale bool
	xlim      Limits
}

// NewBuffer creates a buffer. With autoscale set the x limits start at
// xlim and their max doubles whenever a point reaches it.
func NewBuffer(window int, autoscale bool, xlim Limits) *Buffer {
	return &Buffer{
		window:    window,
		autoscale: autoscale,
		xlim:      xlim,
	}
}

// Append adds p, trims to the window, and reports whether the x limits
// changed.
func (b *Buffer) Append(p models.Point) (rescaled bool) {
	b.points = append(b.points, p)
	if b.window > 0 && len(b.points) > b.window {
		// Copy down so the backing array does not grow without bound.
		n := copy(b.points, b.points[len(b.points)-b.window:])
		b.points = b.points[:n]
	}
	if b.autoscale && p.X >= b.xlim.Max {
		b.xlim.Max *= 2
		rescaled = true
	}
	return rescaled
}

// Len returns the number of points held.
func (b *Buffer) Len() int { return len(b.points) }

// Window returns the trailing window size, zero when unbounded.
func (b *Buffer) Window() int { return b.window }

// XLimits returns the current x range. Without autoscale it spans the
// held points.
func (b *Buffer) XLimits() Limits {
	if b.autoscale || len(b.points) == 0 {
		return b.xlim
	}
	return Limits{Min: b.points[0].X, Max: b.points[len(b.points)-1].X}
}

// Points returns a copy of the held points, oldest first.
func (b *Buffer) Points() []models.Point {
	out := make([]models.Point, len(b.points))
	copy(out, b.points)
	return out
}

// Channel returns one channel's values, oldest first.
func (b *Buffer) Channel(ch int) []float64 {
	out := make([]float64, len(b.points))
	for i, p := range b.points {
		out[i] = float64(p.Values[ch])
	}
	return out
}

// Labels returns the x labels, oldest first.
func (b *Buffer) Labels() []string {
	out := make([]string, len(b.points))
	for i, p := range b.points {
		out[i] = p.Label
	}
	return out
}
