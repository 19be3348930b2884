package marathon

import (
	"github.com/marathon-tools/mongodb-configurator/pkg/api"
	cerrors "github.com/marathon-tools/mongodb-configurator/pkg/errors"

	log "github.com/sirupsen/logrus"
)

// databasePortIndex is the position of the database port in a task's ports.
// The first port is the configurator's own HTTP port.
const databasePortIndex = 1

// DatabasePort returns the database port from a task's ports
func DatabasePort(ports []int) (int, error) {
	if len(ports) <= databasePortIndex {
		return 0, cerrors.ErrNoDatabasePort
	}
	return ports[databasePortIndex], nil
}

// NodesFromTasks returns the database nodes of the given tasks. Tasks that do
// not expose a database port are skipped.
func NodesFromTasks(tasks []api.Task) []api.Node {
	nodes := make([]api.Node, 0, len(tasks))
	for _, t := range tasks {
		port, err := DatabasePort(t.Ports)
		if err != nil {
			log.WithError(err).WithFields(log.Fields{
				"task":  t.ID,
				"host":  t.Host,
				"ports": t.Ports,
			}).Warn("skipping task")
			continue
		}
		nodes = append(nodes, api.Node{Host: t.Host, Port: port})
	}
	return nodes
}

// ActionForTaskStatus maps a task state to a scaling action. ok is false for
// states that do not change membership.
func ActionForTaskStatus(status string) (action api.Action, ok bool) {
	switch status {
	case api.TaskRunning:
		return api.ActionAdd, true
	case api.TaskFinished, api.TaskFailed, api.TaskKilled, api.TaskLost:
		return api.ActionRemove, true
	}
	return "", false
}

// ParseStatusUpdate converts a webhook delivery into a ScalingEvent. ok is
// false when the delivery is not a status update of appID, does not carry a
// database port or has a task state that is not mapped to an action.
func ParseStatusUpdate(ev api.StatusUpdateEvent, appID string) (se api.ScalingEvent, ok bool) {
	if ev.EventType != api.StatusUpdateEventType || ev.AppID != appID {
		return se, false
	}
	port, err := DatabasePort(ev.Ports)
	if err != nil {
		log.WithError(err).WithField("task", ev.TaskID).Debug("ignoring status update")
		return se, false
	}
	action, ok := ActionForTaskStatus(ev.TaskStatus)
	if !ok {
		return se, false
	}
	return api.ScalingEvent{
		Timestamp: ev.Timestamp,
		Host:      ev.Host,
		Port:      port,
		Action:    action,
	}, true
}
