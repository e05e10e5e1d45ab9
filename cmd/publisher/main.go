//go:build !no_serial
// +build !no_serial

package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/weatherstation/internal/acquisition"
	"github.com/weatherstation/internal/config"
	"github.com/weatherstation/internal/logging"
	"github.com/weatherstation/internal/metric"
	"github.com/weatherstation/internal/models"
	"github.com/weatherstation/internal/mqttclient"
	"github.com/weatherstation/internal/serialport"
)

// pollInterval matches the fastest chart tick so frames do not pile up.
const pollInterval = 2 * time.Millisecond

func main() {
	port := flag.String("port", config.DefaultPort(), "serial port for arduino")
	baud := flag.Int("baud", 9600, "serial baud rate")
	broker := flag.String("broker", "tcp://localhost:1883", "mqtt broker")
	greedy := flag.Bool("greedy", false, "consume 4 bytes whenever at least 4 are waiting")
	sim := flag.Bool("sim", false, "simulate sensors instead of reading serial")
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

	m := metric.New()
	pub := mqttclient.NewPublisher(mqttc, log, m)
	readings := make(chan models.Reading, 64)

	if *sim {
		go simulate(ctx, readings, time.Second)
		pub.Run(ctx, readings)
		return
	}

	s, err := serialport.Open(*port, *baud)
	if err != nil {
		log.Fatalf("open serial: %v", err)
	}
	defer s.Close()
	log.WithFields(logrus.Fields{"port": *port, "baud": *baud}).Info("serial port open")

	poller := acquisition.NewPoller(s, pollInterval, acquisition.Options{Greedy: *greedy, Log: log, Metric: m})
	errc := make(chan error, 1)
	go func() { errc <- poller.Run(ctx, readings) }()

	pub.Run(ctx, readings)
	if err := <-errc; err != nil {
		log.WithError(err).Error("serial read err")
		stop()
		os.Exit(1)
	}
}
