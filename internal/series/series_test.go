package series

import (
	"context"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weatherstation/internal/metric"
	"github.com/weatherstation/internal/models"
)

func reading(v uint8, at time.Time) models.Reading {
	return models.Reading{Values: [4]uint8{v, v + 1, v + 2, v + 3}, At: at}
}

func newChart(t *testing.T, name string) *Chart {
	t.Helper()
	v, err := LookupVariant(name)
	require.NoError(t, err)
	log, _ := test.NewNullLogger()
	return NewChart(v, log, metric.New())
}

func TestCounterKeys(t *testing.T) {
	k := &CounterKeys{Start: 0, Step: 2}
	for i, want := range []string{"0", "2", "4", "6"} {
		x, label := k.Next(time.Time{})
		assert.Equal(t, float64(2*i), x)
		assert.Equal(t, want, label)
	}
}

func TestClockKeys(t *testing.T) {
	k := &ClockKeys{Location: time.UTC}
	at := time.Date(2024, 5, 1, 9, 7, 3, 0, time.UTC)

	x, label := k.Next(at)
	assert.Equal(t, 0.0, x)
	assert.Equal(t, "09:07:03", label)

	x, label = k.Next(at)
	assert.Equal(t, 1.0, x)
	assert.Equal(t, "09:07:03", label)
}

func TestBuffer_WindowNeverExceeded(t *testing.T) {
	b := NewBuffer(WindowSize, false, Limits{})
	for i := 0; i < 500; i++ {
		b.Append(models.Point{X: float64(i), Values: [4]uint8{uint8(i)}})
		require.LessOrEqual(t, b.Len(), WindowSize)
	}
	assert.Equal(t, WindowSize, b.Len())

	pts := b.Points()
	assert.Equal(t, 470.0, pts[0].X)
	assert.Equal(t, 499.0, pts[len(pts)-1].X)
	assert.Equal(t, Limits{Min: 470, Max: 499}, b.XLimits())
}

func TestBuffer_UnboundedKeepsAll(t *testing.T) {
	b := NewBuffer(0, false, Limits{})
	for i := 0; i < 100; i++ {
		b.Append(models.Point{X: float64(i)})
	}
	assert.Equal(t, 100, b.Len())
}

func TestBuffer_ParallelChannels(t *testing.T) {
	b := NewBuffer(2, false, Limits{})
	b.Append(models.Point{Label: "a", Values: [4]uint8{1, 2, 3, 4}})
	b.Append(models.Point{Label: "b", Values: [4]uint8{5, 6, 7, 8}})
	b.Append(models.Point{Label: "c", Values: [4]uint8{9, 10, 11, 12}})

	assert.Equal(t, []string{"b", "c"}, b.Labels())
	assert.Equal(t, []float64{5, 9}, b.Channel(models.Temperature))
	assert.Equal(t, []float64{6, 10}, b.Channel(models.Humidity))
	assert.Equal(t, []float64{7, 11}, b.Channel(models.WaterLevel))
	assert.Equal(t, []float64{8, 12}, b.Channel(models.Light))
}

func TestBuffer_AutoscaleDoublesXMax(t *testing.T) {
	b := NewBuffer(0, true, Limits{Min: 0, Max: 10})
	var maxes []float64
	for x := 0.0; x <= 42; x += 2 {
		if b.Append(models.Point{X: x}) {
			maxes = append(maxes, b.XLimits().Max)
		}
	}
	// x reaches 10 -> 20, 20 -> 40, 40 -> 80
	assert.Equal(t, []float64{20, 40, 80}, maxes)
	assert.Equal(t, Limits{Min: 0, Max: 80}, b.XLimits())
}

func TestLookupVariant(t *testing.T) {
	g, err := LookupVariant(Growing)
	require.NoError(t, err)
	assert.Equal(t, 2*time.Millisecond, g.Interval)
	assert.Zero(t, g.Window)
	assert.True(t, g.Autoscale)

	w, err := LookupVariant(Windowed)
	require.NoError(t, err)
	assert.Equal(t, 200*time.Millisecond, w.Interval)
	assert.Equal(t, 30, w.Window)
	assert.True(t, w.RotateLabels)

	_, err = LookupVariant("bar")
	assert.Error(t, err)
}

func TestChart_GrowingVariant(t *testing.T) {
	c := newChart(t, Growing)
	var got []Update
	c.Attach(SinkFunc(func(u Update) { got = append(got, u) }))

	for i := 0; i < 8; i++ {
		c.Add(reading(uint8(i), time.Now()))
	}

	require.Len(t, got, 8)
	assert.Equal(t, 14.0, got[7].Point.X)
	assert.Equal(t, "14", got[7].Point.Label)
	assert.True(t, got[5].Rescaled)
	assert.Equal(t, 20.0, got[5].XLim.Max)
	assert.Equal(t, 8, c.Len())

	snap := c.Snapshot()
	assert.Equal(t, Title, snap.Layout.Title)
	require.Len(t, snap.Layout.Channels, 4)
	assert.Equal(t, "TEMP (°C)", snap.Layout.Channels[0].Label)
	assert.Equal(t, ColorHex("y"), snap.Layout.Channels[0].Color)
	assert.Equal(t, 50.0, snap.Layout.Channels[0].YMax)
	assert.Equal(t, 40.0, snap.Layout.Channels[2].YMax)
	assert.Len(t, snap.Points, 8)
}

func TestChart_WindowedVariant(t *testing.T) {
	c := newChart(t, Windowed)
	start := time.Date(2024, 5, 1, 12, 0, 0, 0, time.Local)
	for i := 0; i < 45; i++ {
		u := c.Add(reading(uint8(i), start.Add(time.Duration(i)*time.Second)))
		require.LessOrEqual(t, u.Len, WindowSize)
	}

	vals, labels := c.Series(models.Temperature)
	require.Len(t, vals, WindowSize)
	assert.Equal(t, 15.0, vals[0])
	assert.Equal(t, 44.0, vals[WindowSize-1])
	assert.Equal(t, "12:00:15", labels[0])
	assert.Equal(t, "12:00:44", labels[WindowSize-1])
	assert.Equal(t, ColorHex("r"), c.Snapshot().Layout.Channels[0].Color)
}

func TestChart_Run(t *testing.T) {
	c := newChart(t, Windowed)
	in := make(chan models.Reading, 3)
	in <- reading(1, time.Now())
	in <- reading(2, time.Now())
	close(in)

	c.Run(context.Background(), in)
	assert.Equal(t, 2, c.Len())
}
