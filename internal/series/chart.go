package series

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/weatherstation/internal/metric"
	"github.com/weatherstation/internal/models"
)

// ChannelLayout is a channel together with its line color.
type ChannelLayout struct {
	models.Channel
	Color string `json:"color"`
}

// Layout describes the figure: four stacked charts.
type Layout struct {
	Title        string          `json:"title"`
	Variant      string          `json:"variant"`
	Window       int             `json:"window"`
	RotateLabels bool            `json:"rotate_labels"`
	Channels     []ChannelLayout `json:"channels"`
}

// Snapshot is the full chart state.
type Snapshot struct {
	Layout Layout         `json:"layout"`
	Points []models.Point `json:"points"`
	XLim   Limits         `json:"xlim"`
}

// Update is sent to sinks for every appended point.
type Update struct {
	Point    models.Point `json:"point"`
	XLim     Limits       `json:"xlim"`
	Rescaled bool         `json:"rescaled"`
	Len      int          `json:"len"`
}

// Sink receives chart updates. Publish must not block.
type Sink interface {
	Publish(u Update)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(Update)

func (f SinkFunc) Publish(u Update) { f(u) }

// Chart owns the plotted buffer. Only Run mutates it.
type Chart struct {
	variant Variant
	layout  Layout
	keys    Keys
	log     logrus.FieldLogger
	metric  *metric.Metric

	mu    sync.RWMutex
	buf   *Buffer
	sinks []Sink
}

// NewChart creates an empty chart for v.
func NewChart(v Variant, log logrus.FieldLogger, m *metric.Metric) *Chart {
	if log == nil {
		log = logrus.StandardLogger()
	}
	layout := Layout{
		Title:        Title,
		Variant:      v.Name,
		Window:       v.Window,
		RotateLabels: v.RotateLabels,
	}
	for i, ch := range models.Channels {
		layout.Channels = append(layout.Channels, ChannelLayout{Channel: ch, Color: ColorHex(v.Colors[i])})
	}
	return &Chart{
		variant: v,
		layout:  layout,
		keys:    v.NewKeys(),
		log:     log.WithField("component", "chart"),
		metric:  m,
		buf:     NewBuffer(v.Window, v.Autoscale, v.XLim),
	}
}

// Variant returns the chart's variant.
func (c *Chart) Variant() Variant { return c.variant }

// Attach adds a sink. Attach before Run.
func (c *Chart) Attach(s Sink) {
	c.mu.Lock()
	c.sinks = append(c.sinks, s)
	c.mu.Unlock()
}

// Add appends one reading and notifies the sinks.
func (c *Chart) Add(r models.Reading) Update {
	x, label := c.keys.Next(r.At)
	p := models.Point{X: x, Label: label, Values: r.Values}

	c.mu.Lock()
	rescaled := c.buf.Append(p)
	u := Update{Point: p, XLim: c.buf.XLimits(), Rescaled: rescaled, Len: c.buf.Len()}
	sinks := c.sinks
	c.mu.Unlock()

	if rescaled {
		c.log.WithField("xmax", u.XLim.Max).Debug("x axis extended")
	}
	c.metric.ChartPoints(u.Len)
	for _, s := range sinks {
		s.Publish(u)
	}
	return u
}

// Run consumes readings until in is closed or ctx is done.
func (c *Chart) Run(ctx context.Context, in <-chan models.Reading) {
	for {
		select {
		case <-ctx.Done():
			return
		case r, ok := <-in:
			if !ok {
				return
			}
			c.Add(r)
		}
	}
}

// Snapshot returns the layout and a copy of the current points.
func (c *Chart) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Snapshot{
		Layout: c.layout,
		Points: c.buf.Points(),
		XLim:   c.buf.XLimits(),
	}
}

// Series returns one channel's values and the x labels.
func (c *Chart) Series(ch int) (values []float64, labels []string) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.buf.Channel(ch), c.buf.Labels()
}

// Len returns the number of held points.
func (c *Chart) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.buf.Len()
}
