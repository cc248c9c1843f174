// Package pipeline drives lines from a source through parsing, aggregation
// and reporting until the input ends or the run context is cancelled.
package pipeline

import (
	"context"
	"errors"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/tinytelemetry/logstats/internal/aggregate"
	"github.com/tinytelemetry/logstats/internal/logparse"
	"github.com/tinytelemetry/logstats/internal/logsource"
	"github.com/tinytelemetry/logstats/internal/metrics"
	"github.com/tinytelemetry/logstats/internal/model"
	"github.com/tinytelemetry/logstats/internal/report"
)

// ErrStopped is returned by Run when the controller has already run.
var ErrStopped = errors.New("pipeline: controller already ran")

// State is the lifecycle phase of a Controller.
type State int32

const (
	Running State = iota
	Draining
	Stopped
)

func (s State) String() string {
	switch s {
	case Running:
		return "running"
	case Draining:
		return "draining"
	case Stopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the diagnostics logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Controller) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithMetrics records line, record and report counters into m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Controller) { c.metrics = m }
}

// WithTracker publishes a snapshot to t after every applied record.
func WithTracker(t *aggregate.Tracker) Option {
	return func(c *Controller) { c.tracker = t }
}

// Controller owns the aggregate state for one run. All mutation and every
// report happen on the goroutine that calls Run.
type Controller struct {
	src      logsource.LogSource
	reporter *report.Reporter
	logger   *zap.Logger
	metrics  *metrics.Metrics
	tracker  *aggregate.Tracker

	agg     *aggregate.State
	state   atomic.Int32
	started atomic.Bool
}

// New creates a Controller in the Running state.
func New(src logsource.LogSource, reporter *report.Reporter, opts ...Option) *Controller {
	c := &Controller{
		src:      src,
		reporter: reporter,
		logger:   zap.NewNop(),
		agg:      aggregate.NewState(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.Named("pipeline")
	return c
}

// State returns the current lifecycle phase. Safe for concurrent use.
func (c *Controller) State() State {
	return State(c.state.Load())
}

// Run consumes lines until the source is exhausted or ctx is cancelled, then
// writes the final report and returns the totals it reported. Cancellation
// must be wired to ctx before Run is called. The only errors are ErrStopped
// and report write failures.
func (c *Controller) Run(ctx context.Context) (model.Snapshot, error) {
	if c.started.Swap(true) {
		return model.Snapshot{}, ErrStopped
	}
	defer c.src.Stop()

	lines := c.src.Lines()
	for c.State() == Running {
		// Checked before every receive so a pending line never wins over a
		// cancellation that has already happened.
		if ctx.Err() != nil {
			c.transition(Draining, "interrupted")
			break
		}
		select {
		case <-ctx.Done():
			c.transition(Draining, "interrupted")
		case env, ok := <-lines:
			if !ok {
				c.transition(Draining, "end of input")
				continue
			}
			if err := c.process(env); err != nil {
				c.transition(Stopped, "output failed")
				return c.agg.Snapshot(), err
			}
		}
	}

	c.src.Stop()
	snap := c.agg.Snapshot()
	err := c.reporter.Final(snap)
	c.transition(Stopped, "drained")
	return snap, err
}

// process parses one line and, when it is valid, applies it and checks the
// report cadence. Invalid lines are dropped without touching the totals.
func (c *Controller) process(env model.IngestEnvelope) error {
	rec, ok := logparse.ParseLine(env.Line)
	c.metrics.RecordLine(ok)
	if !ok {
		c.logger.Debug("skipping malformed line", zap.String("source", env.Source))
		return nil
	}

	aggregate.Apply(c.agg, rec)
	c.metrics.RecordAccepted(rec.StatusCode, rec.Bytes)

	snap := c.agg.Snapshot()
	if c.tracker != nil {
		c.tracker.Publish(snap)
	}
	return c.reporter.Observe(snap)
}

func (c *Controller) transition(to State, reason string) {
	from := State(c.state.Swap(int32(to)))
	c.logger.Debug("state change",
		zap.Stringer("from", from),
		zap.Stringer("to", to),
		zap.String("reason", reason))
}
