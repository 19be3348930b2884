// Package gate elects the configurator instance that bootstraps the replica
// set and broadcasts the end of the bootstrap to the other instances.
//
// Two marker keys are used, both created once and never updated:
//
//	<basenode><app id>                 bootstrap attempted or in progress
//	<basenode><app id>/setupFinished   bootstrap completed, replica set live
package gate

import (
	"context"
	"strings"

	"github.com/marathon-tools/mongodb-configurator/configurator/cstore"
	"github.com/marathon-tools/mongodb-configurator/configurator/rsctx"

	log "github.com/sirupsen/logrus"
)

const finishedNode = "setupFinished"

// SanitizeAppID replaces every "/" of appID, except a leading one, with "-"
func SanitizeAppID(appID string) string {
	if appID == "" {
		return appID
	}
	return appID[:1] + strings.Replace(appID[1:], "/", "-", -1)
}

// BasePath returns the key of the bootstrap marker of appID
func BasePath(baseNode, appID string) string {
	return baseNode + SanitizeAppID(appID)
}

// FinishedPath returns the key of the setup finished marker of appID
func FinishedPath(baseNode, appID string) string {
	return BasePath(baseNode, appID) + "/" + finishedNode
}

// FinishedSignal is delivered once the bootstrap leader has finished. Err is
// set if the observation itself failed.
type FinishedSignal struct {
	Err error
}

// Gate is the coordination gate of one application
type Gate struct {
	store    cstore.Store
	base     string
	finished string
	// owner is written as the value of the markers this gate creates
	owner  string
	logger log.FieldLogger
}

// New returns a Gate for appID with marker keys below baseNode
func New(store cstore.Store, baseNode, appID string) *Gate {
	base := BasePath(baseNode, appID)
	return &Gate{
		store:    store,
		base:     base,
		finished: FinishedPath(baseNode, appID),
		owner:    rsctx.InstanceName(),
		logger: log.WithFields(log.Fields{
			"component": "gate",
			"node":      base,
		}),
	}
}

// BasePath returns the key of the bootstrap marker
func (g *Gate) BasePath() string {
	return g.base
}

// FinishedPath returns the key of the setup finished marker
func (g *Gate) FinishedPath() string {
	return g.finished
}

// ClaimBootstrap returns true if this instance created the bootstrap marker
// and thereby became the bootstrap leader. A marker holding this instance's
// name also counts: a retried claim whose first create was committed but
// not acknowledged must not give up leadership. Losing the creation race to
// another instance is not an error. Store failures are returned as is: an
// instance that could not reach the coordination service must not assume
// leadership.
func (g *Gate) ClaimBootstrap(ctx context.Context) (bool, error) {
	owner, exists, err := g.store.Value(ctx, g.base)
	if err != nil {
		return false, err
	}
	if exists {
		return g.isOwner(owner), nil
	}

	created, err := g.store.CreateIfAbsent(ctx, g.base, g.owner)
	if err != nil {
		return false, err
	}
	if !created {
		g.logger.Info("lost the race for the bootstrap marker")
		return false, nil
	}
	g.logger.Info("created bootstrap marker, this instance is the bootstrap leader")
	return true, nil
}

func (g *Gate) isOwner(owner string) bool {
	if owner == g.owner {
		g.logger.Info("bootstrap marker already held by this instance, this instance is the bootstrap leader")
		return true
	}
	g.logger.WithField("owner", owner).Info("bootstrap marker exists, not the bootstrap leader")
	return false
}

// IsFinished returns true if the setup finished marker exists
func (g *Gate) IsFinished(ctx context.Context) (bool, error) {
	return g.store.Exists(ctx, g.finished)
}

// WatchFinished returns a channel that receives a single FinishedSignal once
// the setup finished marker exists, including when it exists already.
func (g *Gate) WatchFinished(ctx context.Context) (<-chan FinishedSignal, error) {
	wch, err := g.store.WatchCreate(ctx, g.finished)
	if err != nil {
		return nil, err
	}

	out := make(chan FinishedSignal, 1)
	go func() {
		defer close(out)
		err, ok := <-wch
		if !ok {
			return
		}
		if err != nil {
			g.logger.WithError(err).Error("watching setup finished marker failed")
		} else {
			g.logger.Info("setup finished marker created")
		}
		out <- FinishedSignal{Err: err}
	}()
	return out, nil
}

// SignalFinished creates the setup finished marker. Failures are logged and
// returned, but callers treat them as non-fatal.
func (g *Gate) SignalFinished(ctx context.Context) error {
	created, err := g.store.CreateIfAbsent(ctx, g.finished, g.owner)
	if err != nil {
		g.logger.WithError(err).Error("failed to create setup finished marker")
		return err
	}
	if !created {
		g.logger.Warn("setup finished marker already existed")
		return nil
	}
	g.logger.Info("created setup finished marker")
	return nil
}

// Release deletes the setup finished marker and then the bootstrap marker.
// It returns false if the bootstrap marker did not exist.
func (g *Gate) Release(ctx context.Context) (bool, error) {
	deleted, err := g.store.DeleteTree(ctx, g.base, g.finished)
	if err != nil {
		g.logger.WithError(err).Error("failed to delete coordination markers")
		return false, err
	}
	g.logger.WithField("deleted", deleted).Info("released coordination markers")
	return deleted, nil
}
