package main

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/weatherstation/internal/models"
	"github.com/weatherstation/internal/mqttclient"
)

func connect(broker string) (*mqttclient.Client, error) {
	return mqttclient.New(mqttclient.Options{
		BrokerURL:      broker,
		ClientID:       fmt.Sprintf("arduino-pub-%d", time.Now().UnixNano()),
		ConnectTimeout: 10 * time.Second,
	})
}

// simulate emits a random walk inside each channel's axis range.
func simulate(ctx context.Context, out chan<- models.Reading, every time.Duration) {
	defer close(out)
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	var cur [models.NumChannels]float64
	for i, ch := range models.Channels {
		cur[i] = (ch.YMin + ch.YMax) / 2
	}

	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			r := models.Reading{At: now}
			for i, ch := range models.Channels {
				cur[i] += rng.Float64()*4 - 2
				if cur[i] < ch.YMin {
					cur[i] = ch.YMin
				}
				if cur[i] > ch.YMax {
					cur[i] = ch.YMax
				}
				r.Values[i] = uint8(cur[i])
			}
			select {
			case out <- r:
			case <-ctx.Done():
				return
			}
		}
	}
}
