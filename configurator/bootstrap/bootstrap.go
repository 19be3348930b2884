// Package bootstrap initializes the replica set exactly once across all
// configurator instances of an application, and brings every instance to
// the point where it applies live scaling events.
package bootstrap

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/marathon-tools/mongodb-configurator/configurator/gate"
	"github.com/marathon-tools/mongodb-configurator/configurator/metrics"
	"github.com/marathon-tools/mongodb-configurator/configurator/state"
	"github.com/marathon-tools/mongodb-configurator/pkg/api"
	"github.com/marathon-tools/mongodb-configurator/pkg/backoff"
	"github.com/marathon-tools/mongodb-configurator/pkg/marathon"

	log "github.com/sirupsen/logrus"
)

const defaultClaimAttempts = 5

var errWatchClosed = errors.New("setup finished watch closed")

// Gate is the coordination used by the bootstrapper
type Gate interface {
	ClaimBootstrap(ctx context.Context) (bool, error)
	IsFinished(ctx context.Context) (bool, error)
	WatchFinished(ctx context.Context) (<-chan gate.FinishedSignal, error)
	SignalFinished(ctx context.Context) error
}

// Scheduler is the part of the scheduler client used by the bootstrapper
type Scheduler interface {
	AppTasks(ctx context.Context, appID string) ([]api.Task, error)
	Subscribe(ctx context.Context, callbackURL string) error
}

// ReplicaSet is the part of the replica set store used by the bootstrapper
type ReplicaSet interface {
	IsMaster(ctx context.Context) (api.MasterStatus, error)
	Initiate(ctx context.Context) error
	AddNodes(ctx context.Context, nodes []api.Node) (bool, error)
}

// Controller is flipped to ready at the end of the bootstrap
type Controller interface {
	MarkReady()
}

// Config holds the bootstrap parameters
type Config struct {
	AppID             string
	CallbackURL       string
	InitTimeout       time.Duration
	ReplicaSetTimeout time.Duration
	// ClaimAttempts bounds the attempts to reach the coordination service
	ClaimAttempts int
}

// Bootstrapper runs the bootstrap of one configurator instance
type Bootstrapper struct {
	conf       Config
	gate       Gate
	scheduler  Scheduler
	rs         ReplicaSet
	ctrl       Controller
	state      *state.ControllerState
	newBackOff func() *backoff.BackOff
	sleep      func(ctx context.Context, d time.Duration) error
	phase      int32
	logger     log.FieldLogger
}

// New returns a Bootstrapper
func New(conf Config, g Gate, s Scheduler, rs ReplicaSet, ctrl Controller, st *state.ControllerState) *Bootstrapper {
	if conf.ClaimAttempts <= 0 {
		conf.ClaimAttempts = defaultClaimAttempts
	}
	return &Bootstrapper{
		conf:       conf,
		gate:       g,
		scheduler:  s,
		rs:         rs,
		ctrl:       ctrl,
		state:      st,
		newBackOff: backoff.Default,
		sleep:      sleep,
		logger:     log.WithField("component", "bootstrap"),
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Phase returns the current phase
func (b *Bootstrapper) Phase() Phase {
	return Phase(atomic.LoadInt32(&b.phase))
}

func (b *Bootstrapper) setPhase(p Phase) {
	atomic.StoreInt32(&b.phase, int32(p))
	metrics.BootstrapPhase.Set(float64(p))
	b.logger.WithField("phase", p).Info("bootstrap phase")
}

func (b *Bootstrapper) fail(err error, msg string) error {
	b.setPhase(Failed)
	b.logger.WithError(err).WithField("step", msg).Error("bootstrap failed")
	return err
}

// Run elects the bootstrap leader and runs the leader or follower sequence.
// An error leaves the process not ready; a restart is the recovery path.
func (b *Bootstrapper) Run(ctx context.Context) error {
	b.setPhase(Electing)

	var leader bool
	err := backoff.Retry(ctx, b.newBackOff(), b.conf.ClaimAttempts, func() error {
		var err error
		leader, err = b.gate.ClaimBootstrap(ctx)
		if err != nil {
			b.logger.WithError(err).Warn("failed to claim bootstrap marker")
		}
		return err
	})
	if err != nil {
		return b.fail(err, "claim bootstrap")
	}

	if leader {
		return b.runLeader(ctx)
	}
	return b.runFollower(ctx)
}

func (b *Bootstrapper) runLeader(ctx context.Context) error {
	b.setPhase(RegisteringWebhook)
	if err := b.scheduler.Subscribe(ctx, b.conf.CallbackURL); err != nil {
		return b.fail(err, "register webhook")
	}

	b.setPhase(InitiatingReplicaSet)
	// the local database may still be starting
	if err := b.sleep(ctx, b.conf.InitTimeout); err != nil {
		return b.fail(err, "wait for database")
	}
	status, err := b.rs.IsMaster(ctx)
	if err != nil {
		return b.fail(err, "check replica set")
	}
	if status.Status == api.Uninitialized {
		if err := b.rs.Initiate(ctx); err != nil {
			return b.fail(err, "initiate replica set")
		}
	} else {
		b.logger.Warn("replica set is initialized already, not initiating")
	}

	b.setPhase(AwaitingQuorumWindow)
	if err := b.sleep(ctx, b.conf.ReplicaSetTimeout); err != nil {
		return b.fail(err, "wait for quorum window")
	}

	b.setPhase(MergingMembership)
	tasks, err := b.scheduler.AppTasks(ctx, b.conf.AppID)
	if err != nil {
		return b.fail(err, "get app tasks")
	}
	buffered := b.state.Buffer().Drain()
	nodes := Merge(marathon.NodesFromTasks(tasks), buffered)
	b.logger.WithFields(log.Fields{
		"tasks":    len(tasks),
		"buffered": len(buffered),
		"nodes":    len(nodes),
	}).Info("merged scheduler tasks with buffered events")

	b.setPhase(Reconfiguring)
	if _, err := b.rs.AddNodes(ctx, nodes); err != nil {
		return b.fail(err, "reconfigure replica set")
	}

	b.setPhase(SignalingFinished)
	// failure is logged by the gate, membership is live already
	_ = b.gate.SignalFinished(ctx)
	b.ctrl.MarkReady()

	b.setPhase(Ready)
	return nil
}

func (b *Bootstrapper) runFollower(ctx context.Context) error {
	b.setPhase(AwaitingLeader)

	finished, err := b.gate.IsFinished(ctx)
	if err != nil {
		return b.fail(err, "check setup finished")
	}
	if !finished {
		b.logger.Info("waiting for the bootstrap leader to finish")
	}

	ch, err := b.gate.WatchFinished(ctx)
	if err != nil {
		return b.fail(err, "watch setup finished")
	}
	select {
	case sig, ok := <-ch:
		if !ok {
			err := ctx.Err()
			if err == nil {
				err = errWatchClosed
			}
			return b.fail(err, "watch setup finished")
		}
		if sig.Err != nil {
			return b.fail(sig.Err, "watch setup finished")
		}
	case <-ctx.Done():
		return b.fail(ctx.Err(), "watch setup finished")
	}

	// every instance subscribes, so that a new primary receives events
	b.setPhase(RegisteringWebhook)
	if err := b.scheduler.Subscribe(ctx, b.conf.CallbackURL); err != nil {
		return b.fail(err, "register webhook")
	}
	b.ctrl.MarkReady()

	b.setPhase(Ready)
	return nil
}
