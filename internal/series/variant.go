package series

import (
	"time"

	"github.com/pkg/errors"

	"github.com/weatherstation/internal/models"
)

// Variant names.
const (
	Growing  = "growing"
	Windowed = "windowed"
)

// WindowSize is the number of samples the windowed chart keeps.
const WindowSize = 30

// Title is the display window title.
const Title = "WeatherStation"

// Variant fixes how a chart animates: tick interval, buffering, x keys,
// colors.
type Variant struct {
	Name     string
	Interval time.Duration
	Window   int
	// Autoscale extends the x axis from XLim as points arrive.
	Autoscale bool
	XLim      Limits
	// RotateLabels turns x tick labels vertical.
	RotateLabels bool
	Colors       [models.NumChannels]string
	NewKeys      func() Keys
}

var variants = map[string]Variant{
	Growing: {
		Name:      Growing,
		Interval:  2 * time.Millisecond,
		Window:    0,
		Autoscale: true,
		XLim:      Limits{Min: 0, Max: 10},
		Colors:    [models.NumChannels]string{"y", "r", "b", "g"},
		NewKeys:   func() Keys { return &CounterKeys{Start: 0, Step: 2} },
	},
	Windowed: {
		Name:         Windowed,
		Interval:     200 * time.Millisecond,
		Window:       WindowSize,
		RotateLabels: true,
		Colors:       [models.NumChannels]string{"r", "b", "g", "y"},
		NewKeys:      func() Keys { return &ClockKeys{} },
	},
}

// LookupVariant returns the named variant.
func LookupVariant(name string) (Variant, error) {
	v, ok := variants[name]
	if !ok {
		return Variant{}, errors.Errorf("unknown variant %q (must be: %s or %s)", name, Growing, Windowed)
	}
	return v, nil
}

// ColorHex maps the single-letter line colors to CSS colors.
func ColorHex(c string) string {
	switch c {
	case "y":
		return "#bfbf00"
	case "r":
		return "#ff0000"
	case "b":
		return "#0000ff"
	case "g":
		return "#008000"
	}
	return c
}
