// Package termplot draws the four charts as text in a terminal.
package termplot

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/guptarohit/asciigraph"

	"github.com/weatherstation/internal/models"
	"github.com/weatherstation/internal/series"
)

// clearScreen homes the cursor and clears the terminal.
const clearScreen = "\033[H\033[2J"

// Renderer redraws the chart whenever an update arrives, at most once per
// frame interval.
type Renderer struct {
	out    io.Writer
	chart  *series.Chart
	frame  time.Duration
	width  int
	height int
	notify chan struct{}
}

// New creates a renderer writing to out.
func New(out io.Writer, chart *series.Chart, frame time.Duration) *Renderer {
	return &Renderer{
		out:    out,
		chart:  chart,
		frame:  frame,
		width:  72,
		height: 6,
		notify: make(chan struct{}, 1),
	}
}

// Publish marks the chart dirty.
func (r *Renderer) Publish(series.Update) {
	select {
	case r.notify <- struct{}{}:
	default:
	}
}

// Run redraws until ctx is done.
func (r *Renderer) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.frame)
	defer ticker.Stop()

	dirty := true
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-r.notify:
			dirty = true
		case <-ticker.C:
			if !dirty {
				continue
			}
			dirty = false
			if _, err := io.WriteString(r.out, clearScreen+r.Render()); err != nil {
				return err
			}
		}
	}
}

// Render returns the current figure as text.
func (r *Renderer) Render() string {
	snap := r.chart.Snapshot()
	var sb strings.Builder
	sb.WriteString(snap.Layout.Title)
	sb.WriteString("\n\n")

	for i, ch := range snap.Layout.Channels {
		values := make([]float64, len(snap.Points))
		for j, p := range snap.Points {
			values[j] = float64(p.Values[i])
		}
		if len(values) == 0 {
			values = []float64{ch.YMin}
		}
		if len(values) > r.width {
			values = values[len(values)-r.width:]
		}
		sb.WriteString(asciigraph.Plot(values,
			asciigraph.Height(r.height),
			asciigraph.LowerBound(ch.YMin),
			asciigraph.UpperBound(ch.YMax),
			asciigraph.Precision(0),
			asciigraph.Caption(caption(ch, snap.Points, i)),
		))
		sb.WriteString("\n\n")
	}
	return sb.String()
}

func caption(ch series.ChannelLayout, points []models.Point, i int) string {
	if len(points) == 0 {
		return ch.Label
	}
	first, last := points[0], points[len(points)-1]
	return fmt.Sprintf("%s  %d  [%s .. %s]", ch.Label, last.Values[i], first.Label, last.Label)
}
