//go:build no_serial
// +build no_serial

package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/weatherstation/internal/logging"
	"github.com/weatherstation/internal/metric"
	"github.com/weatherstation/internal/models"
	"github.com/weatherstation/internal/mqttclient"
)

func main() {
	broker := flag.String("broker", "tcp://localhost:1883", "mqtt broker")
	interval := flag.Duration("interval", time.Second, "time between simulated samples")
	level := flag.String("log-level", "info", "log level")
	flag.Parse()

	log := logging.New(*level)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	mqttc, err := connect(*broker)
	if err != nil {
		log.Fatalf("mqtt connect: %v", err)
	}
	defer mqttc.Close()

	readings := make(chan models.Reading, 64)
	go simulate(ctx, readings, *interval)
	mqttclient.NewPublisher(mqttc, log, metric.New()).Run(ctx, readings)
}
