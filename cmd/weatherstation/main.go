package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/weatherstation/internal/acquisition"
	"github.com/weatherstation/internal/config"
	"github.com/weatherstation/internal/dashboard"
	"github.com/weatherstation/internal/ingestion"
	"github.com/weatherstation/internal/logging"
	"github.com/weatherstation/internal/metric"
	"github.com/weatherstation/internal/models"
	"github.com/weatherstation/internal/mqttclient"
	"github.com/weatherstation/internal/serialport"
	"github.com/weatherstation/internal/series"
	"github.com/weatherstation/internal/termplot"
	"github.com/weatherstation/internal/websocket"
)

// termFrame caps terminal redraws.
const termFrame = 100 * time.Millisecond

func main() {
	cfg, err := config.FromEnv(config.Default())
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(2)
	}
	config.BindFlags(flag.CommandLine, &cfg)
	flag.Parse()
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(2)
	}

	log := logging.New(cfg.LogLevel)
	if cfg.Render == config.RenderTerm && cfg.Mode != config.ModePublish {
		// stdout belongs to the plot
		log.SetOutput(os.Stderr)
	}

	variant, err := series.LookupVariant(cfg.Variant)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	log.WithFields(logrus.Fields{
		"mode":    cfg.Mode,
		"variant": variant.Name,
		"render":  cfg.Render,
	}).Info("starting weatherstation")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, variant, log); err != nil {
		log.WithError(err).Error("stopped")
		os.Exit(1)
	}
	log.Info("shutting down")
}

func run(ctx context.Context, cfg config.Config, variant series.Variant, log *logrus.Logger) error {
	m := metric.New()
	g, ctx := errgroup.WithContext(ctx)

	var readings <-chan models.Reading
	switch cfg.Mode {
	case config.ModeAll, config.ModePublish:
		port, err := serialport.Open(cfg.Port, cfg.Baud)
		if err != nil {
			return err
		}
		defer port.Close()
		log.WithFields(logrus.Fields{"port": cfg.Port, "baud": cfg.Baud}).Info("serial port open")

		ch := make(chan models.Reading, 64)
		poller := acquisition.NewPoller(port, variant.Interval, acquisition.Options{
			Greedy: cfg.Greedy,
			Log:    log,
			Metric: m,
		})
		g.Go(func() error { return poller.Run(ctx, ch) })
		readings = ch

	case config.ModeView:
		mqttc, err := connectMQTT(cfg, "viewer")
		if err != nil {
			return err
		}
		defer mqttc.Close()
		ing := ingestion.New(mqttc, log)
		if err := ing.Start(); err != nil {
			return err
		}
		readings = ing.Readings()
	}

	if cfg.Mode == config.ModePublish {
		mqttc, err := connectMQTT(cfg, "station")
		if err != nil {
			return err
		}
		defer mqttc.Close()
		pub := mqttclient.NewPublisher(mqttc, log, m)
		g.Go(func() error {
			pub.Run(ctx, readings)
			return nil
		})
		return g.Wait()
	}

	chart := series.NewChart(variant, log, m)

	var sink series.Sink
	switch cfg.Render {
	case config.RenderTerm:
		r := termplot.New(os.Stdout, chart, termFrame)
		sink = r
		g.Go(func() error { return r.Run(ctx) })
	default:
		hub := websocket.NewHub(chart.Snapshot, log, m)
		sink = hub
		g.Go(func() error {
			hub.Run(ctx)
			return nil
		})
		srv := dashboard.New(cfg.HTTPAddr, chart, hub, m, log)
		g.Go(func() error { return srv.Run(ctx) })
	}

	runChart(ctx, g, chart, readings, sink)
	return g.Wait()
}

// runChart attaches sinks and then starts the chart, so the first reading
// already reaches every sink.
func runChart(ctx context.Context, g *errgroup.Group, chart *series.Chart, readings <-chan models.Reading, sinks ...series.Sink) {
	for _, s := range sinks {
		chart.Attach(s)
	}
	g.Go(func() error {
		chart.Run(ctx, readings)
		return nil
	})
}

func connectMQTT(cfg config.Config, role string) (*mqttclient.Client, error) {
	c, err := mqttclient.New(mqttclient.Options{
		BrokerURL:      cfg.Broker,
		ClientID:       fmt.Sprintf("weatherstation-%s-%d", role, time.Now().UnixNano()),
		ConnectTimeout: 10 * time.Second,
	})
	return c, errors.Wrap(err, "mqtt client")
}
