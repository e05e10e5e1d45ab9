package acquisition

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/weatherstation/internal/metric"
	"github.com/weatherstation/internal/models"
)

// Options tune a Poller.
type Options struct {
	Greedy bool
	Log    logrus.FieldLogger
	Metric *metric.Metric
	// Now stamps readings; defaults to time.Now.
	Now func() time.Time
}

// Poller polls a Source once per tick.
type Poller struct {
	src      Source
	interval time.Duration
	greedy   bool
	log      logrus.FieldLogger
	metric   *metric.Metric
	now      func() time.Time
}

// NewPoller creates a Poller ticking every interval.
func NewPoller(src Source, interval time.Duration, opts Options) *Poller {
	p := &Poller{
		src:      src,
		interval: interval,
		greedy:   opts.Greedy,
		log:      opts.Log,
		metric:   opts.Metric,
		now:      opts.Now,
	}
	if p.log == nil {
		p.log = logrus.StandardLogger()
	}
	p.log = p.log.WithField("component", "poller")
	if p.now == nil {
		p.now = time.Now
	}
	return p
}

// Tick runs a single poll.
func (p *Poller) Tick() (models.Reading, bool, error) {
	r, ok, waiting, err := Poll(p.src, p.greedy, p.now())
	if err != nil {
		p.metric.ReadError()
		return r, false, err
	}
	if !ok {
		// Bytes left behind by a dead reader never form a sample.
		if es, isErr := p.src.(interface{ Err() error }); isErr {
			if err := es.Err(); err != nil {
				p.metric.ReadError()
				return r, false, err
			}
		}
	}
	p.metric.Poll(ok, waiting)
	if !ok && waiting > 0 {
		p.log.WithField("waiting", waiting).Debug("no sample this tick")
	}
	return r, ok, nil
}

// Run polls until ctx is done or the source fails, sending each sample to
// out. out is closed when Run returns.
func (p *Poller) Run(ctx context.Context, out chan<- models.Reading) error {
	defer close(out)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.log.WithField("interval", p.interval).Info("polling serial port")
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		r, ok, err := p.Tick()
		if err != nil {
			return errors.Wrap(err, "poll")
		}
		if !ok {
			continue
		}
		p.log.WithField("values", r.Values).Debug("sample")
		select {
		case out <- r:
		case <-ctx.Done():
			return nil
		}
	}
}
