// Package subscription removes the scheduler event subscription of this
// instance, which only the replica set primary may do.
package subscription

import (
	"context"

	"github.com/marathon-tools/mongodb-configurator/pkg/api"
	cerrors "github.com/marathon-tools/mongodb-configurator/pkg/errors"

	log "github.com/sirupsen/logrus"
)

// RoleChecker reports the replica set role of the local database
type RoleChecker interface {
	IsMaster(ctx context.Context) (api.MasterStatus, error)
}

// Unsubscriber removes an event subscription from the scheduler
type Unsubscriber interface {
	Unsubscribe(ctx context.Context, callbackURL string) (api.SubscriptionResp, error)
}

// Manager owns the event subscription of this instance
type Manager struct {
	rs          RoleChecker
	scheduler   Unsubscriber
	callbackURL string
	logger      log.FieldLogger
}

// New returns a Manager for the subscription of callbackURL
func New(rs RoleChecker, scheduler Unsubscriber, callbackURL string) *Manager {
	return &Manager{
		rs:          rs,
		scheduler:   scheduler,
		callbackURL: callbackURL,
		logger: log.WithFields(log.Fields{
			"component": "subscription",
			"callback":  callbackURL,
		}),
	}
}

// CallbackURL returns the webhook URL of this instance
func (m *Manager) CallbackURL() string {
	return m.callbackURL
}

// Deregister removes the subscription if the local database is the
// primary. It returns cerrors.ErrNotPrimary otherwise. The call is not
// retried beyond the scheduler client's own policy.
func (m *Manager) Deregister(ctx context.Context) (confirmed bool, err error) {
	status, err := m.rs.IsMaster(ctx)
	if err != nil {
		m.logger.WithError(err).Error("failed to check replica set role")
		return false, err
	}
	if !status.IsPrimary {
		m.logger.Info("not the primary, keeping event subscription")
		return false, cerrors.ErrNotPrimary
	}

	resp, err := m.scheduler.Unsubscribe(ctx, m.callbackURL)
	if err != nil {
		m.logger.WithError(err).Error("failed to remove event subscription")
		return false, err
	}
	confirmed = resp.EventType == api.UnsubscribeEventType
	if !confirmed {
		m.logger.WithField("eventType", resp.EventType).Warn("scheduler did not confirm the unsubscribe")
	}
	return confirmed, nil
}
