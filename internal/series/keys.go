package series

import (
	"strconv"
	"time"
)

// ClockLayout is the x label format of the windowed chart.
const ClockLayout = "15:04:05"

// Keys assigns the x key of each new point.
type Keys interface {
	Next(at time.Time) (x float64, label string)
}

// CounterKeys yields a synthetic x that starts at Start and grows by Step
// per sample.
type CounterKeys struct {
	Start float64
	Step  float64
	n     int
}

func (k *CounterKeys) Next(time.Time) (float64, string) {
	x := k.Start + float64(k.n)*k.Step
	k.n++
	return x, strconv.FormatFloat(x, 'f', -1, 64)
}

// ClockKeys labels points with the wall-clock time they were acquired.
// X is the point's sequence number so equal labels stay distinct.
type ClockKeys struct {
	Location *time.Location
	n        int
}

func (k *ClockKeys) Next(at time.Time) (float64, string) {
	if k.Location != nil {
		at = at.In(k.Location)
	}
	x := float64(k.n)
	k.n++
	return x, at.Format(ClockLayout)
}
