package models

import "time"

// NumChannels is the number of sensor bytes sent per sample.
const NumChannels = 4

// Channel indexes, in wire order.
const (
	Temperature = iota
	Humidity
	WaterLevel
	Light
)

// Reading is one decoded sample: one unsigned byte per channel.
type Reading struct {
	Values [NumChannels]uint8 `json:"values"`
	At     time.Time          `json:"at"`
}

func (r Reading) Temperature() uint8 { return r.Values[Temperature] }
func (r Reading) Humidity() uint8    { return r.Values[Humidity] }
func (r Reading) WaterLevel() uint8  { return r.Values[WaterLevel] }
func (r Reading) Light() uint8       { return r.Values[Light] }

// Channel describes how one sensor channel is drawn.
type Channel struct {
	Name  string  `json:"name"`
	Label string  `json:"label"`
	YMin  float64 `json:"ymin"`
	YMax  float64 `json:"ymax"`
}

// Channels lists the sensor channels in wire order.
var Channels = [NumChannels]Channel{
	{Name: "temperature", Label: "TEMP (°C)", YMin: 0, YMax: 50},
	{Name: "humidity", Label: "HUM (%)", YMin: 0, YMax: 100},
	{Name: "water_level", Label: "WL (mm)", YMin: 0, YMax: 40},
	{Name: "light", Label: "LIGHT (%)", YMin: 0, YMax: 100},
}

// Point is one plotted sample: an x key and the four channel values.
type Point struct {
	X      float64            `json:"x"`
	Label  string             `json:"label"`
	Values [NumChannels]uint8 `json:"values"`
}
