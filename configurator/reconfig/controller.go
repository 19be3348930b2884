// Package reconfig applies live scaling events to the replica set. All
// mutations of one process go through a single queue and are applied one at
// a time, each re-reading the latest config version.
package reconfig

import (
	"context"
	"time"

	"github.com/marathon-tools/mongodb-configurator/configurator/cstore"
	"github.com/marathon-tools/mongodb-configurator/configurator/metrics"
	"github.com/marathon-tools/mongodb-configurator/configurator/state"
	"github.com/marathon-tools/mongodb-configurator/pkg/api"
	cerrors "github.com/marathon-tools/mongodb-configurator/pkg/errors"

	log "github.com/sirupsen/logrus"
)

const (
	defaultQueueSize    = 64
	defaultApplyTimeout = 30 * time.Second
)

// ReplicaSet is the part of the replica set store used by the controller
type ReplicaSet interface {
	IsMaster(ctx context.Context) (api.MasterStatus, error)
	AddMember(ctx context.Context, node api.Node) (bool, error)
	RemoveMember(ctx context.Context, node api.Node) (bool, error)
}

// Controller is the steady state entry point for scaling events
type Controller struct {
	rs           ReplicaSet
	state        *state.ControllerState
	locker       cstore.Locker
	queue        chan api.ScalingEvent
	applyTimeout time.Duration
	logger       log.FieldLogger
}

// Option configures a Controller
type Option func(*Controller)

// WithLocker makes the controller hold l around every read-modify-write,
// excluding the other configurator instances during it
func WithLocker(l cstore.Locker) Option {
	return func(c *Controller) {
		c.locker = l
	}
}

// WithQueueSize sets the capacity of the mutation queue
func WithQueueSize(n int) Option {
	return func(c *Controller) {
		c.queue = make(chan api.ScalingEvent, n)
	}
}

// WithApplyTimeout bounds the time spent applying one event
func WithApplyTimeout(d time.Duration) Option {
	return func(c *Controller) {
		c.applyTimeout = d
	}
}

// New returns a Controller. Events are only applied while Serve runs.
func New(rs ReplicaSet, st *state.ControllerState, opts ...Option) *Controller {
	c := &Controller{
		rs:           rs,
		state:        st,
		queue:        make(chan api.ScalingEvent, defaultQueueSize),
		applyTimeout: defaultApplyTimeout,
		logger:       log.WithField("component", "reconfig"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// OnScalingEvent buffers ev if the process is not ready, and queues it for
// application otherwise. It never blocks.
func (c *Controller) OnScalingEvent(ev api.ScalingEvent) error {
	metrics.EventsReceived.WithLabelValues(string(ev.Action)).Inc()

	if c.state.BufferIfNotReady(ev) {
		metrics.EventsBuffered.Inc()
		c.logger.WithFields(log.Fields{
			"node":   ev.Key(),
			"action": ev.Action,
		}).Info("not ready, buffered scaling event")
		return nil
	}
	return c.enqueue(ev)
}

// MarkReady flips the process to ready and queues the events that were
// buffered after the bootstrap merge took its snapshot
func (c *Controller) MarkReady() {
	leftover := c.state.SetReady()
	metrics.Ready.Set(1)
	c.logger.WithField("leftover", len(leftover)).Info("ready to apply scaling events")
	for _, ev := range leftover {
		if err := c.enqueue(ev); err != nil {
			c.logger.WithError(err).WithField("node", ev.Key()).Error("dropped buffered scaling event")
		}
	}
}

func (c *Controller) enqueue(ev api.ScalingEvent) error {
	select {
	case c.queue <- ev:
		return nil
	default:
		metrics.EventsDropped.Inc()
		c.logger.WithFields(log.Fields{
			"node":   ev.Key(),
			"action": ev.Action,
		}).Error("reconfiguration queue is full, dropping scaling event")
		return cerrors.ErrQueueFull
	}
}

// Serve applies queued events one at a time until ctx is done
func (c *Controller) Serve(ctx context.Context) error {
	c.logger.Info("reconfiguration worker started")
	for {
		select {
		case <-ctx.Done():
			c.logger.Info("reconfiguration worker stopped")
			return ctx.Err()
		case ev := <-c.queue:
			c.apply(ctx, ev)
		}
	}
}

func (c *Controller) String() string {
	return "reconfiguration controller"
}

func (c *Controller) apply(ctx context.Context, ev api.ScalingEvent) {
	ctx, cancel := context.WithTimeout(ctx, c.applyTimeout)
	defer cancel()
	// errors are logged by Apply, the event is dropped
	_ = c.Apply(ctx, ev)
}

// Apply mutates the replica set for ev if the local database is the
// primary. Failures are logged and returned, never retried.
func (c *Controller) Apply(ctx context.Context, ev api.ScalingEvent) error {
	logger := c.logger.WithFields(log.Fields{
		"node":      ev.Key(),
		"action":    ev.Action,
		"timestamp": ev.Timestamp,
	})

	status, err := c.rs.IsMaster(ctx)
	if err != nil {
		metrics.Reconfigures.WithLabelValues(string(ev.Action), metrics.ResultError).Inc()
		logger.WithError(err).Error("failed to check replica set role")
		return err
	}
	if !status.IsPrimary {
		metrics.Reconfigures.WithLabelValues(string(ev.Action), metrics.ResultSkipped).Inc()
		logger.Debug("not the primary, ignoring scaling event")
		return nil
	}

	if c.locker != nil {
		if err := c.locker.Lock(ctx); err != nil {
			metrics.Reconfigures.WithLabelValues(string(ev.Action), metrics.ResultError).Inc()
			logger.WithError(err).Error("failed to obtain reconfiguration lock")
			return err
		}
		defer func() {
			if err := c.locker.Unlock(context.Background()); err != nil {
				logger.WithError(err).Warn("failed to release reconfiguration lock")
			}
		}()
	}

	var changed bool
	switch ev.Action {
	case api.ActionAdd:
		changed, err = c.rs.AddMember(ctx, ev.Node())
	case api.ActionRemove:
		changed, err = c.rs.RemoveMember(ctx, ev.Node())
	default:
		logger.Warn("unknown action, ignoring scaling event")
		return nil
	}

	switch {
	case err != nil:
		metrics.Reconfigures.WithLabelValues(string(ev.Action), metrics.ResultError).Inc()
		logger.WithError(err).Error("failed to reconfigure replica set")
	case !changed:
		metrics.Reconfigures.WithLabelValues(string(ev.Action), metrics.ResultNoop).Inc()
		logger.Info("replica set already up to date")
	default:
		metrics.Reconfigures.WithLabelValues(string(ev.Action), metrics.ResultSuccess).Inc()
		logger.Info("replica set reconfigured")
	}
	return err
}
