package rest

import (
	"net/http"
	"strconv"

	"github.com/marathon-tools/mongodb-configurator/configurator/metrics"
	"github.com/marathon-tools/mongodb-configurator/configurator/rsctx"
	restutils "github.com/marathon-tools/mongodb-configurator/configurator/servers/rest/utils"
	"github.com/marathon-tools/mongodb-configurator/pkg/api"
	"github.com/marathon-tools/mongodb-configurator/pkg/marathon"
	"github.com/marathon-tools/mongodb-configurator/version"

	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
)

const onlineText = "MongoDB configurator is online!"

func (s *Server) pingHandler(w http.ResponseWriter, r *http.Request) {
	restutils.SendText(r.Context(), w, http.StatusOK, onlineText)
}

// eventsHandler always answers 200, the scheduler does not act on errors
func (s *Server) eventsHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := rsctx.GetReqLogger(ctx)
	defer w.WriteHeader(http.StatusOK)

	var ev api.StatusUpdateEvent
	if err := restutils.UnmarshalRequest(r, &ev); err != nil {
		logger.WithError(err).Warn("failed to decode scheduler event")
		return
	}

	se, ok := marathon.ParseStatusUpdate(ev, s.conf.AppID)
	if !ok {
		metrics.EventsIgnored.Inc()
		logger.WithFields(log.Fields{
			"eventType":  ev.EventType,
			"appId":      ev.AppID,
			"taskStatus": ev.TaskStatus,
		}).Debug("ignored scheduler event")
		return
	}

	logger.WithFields(log.Fields{
		"node":       se.Key(),
		"action":     se.Action,
		"taskStatus": ev.TaskStatus,
	}).Info("received scaling event")
	if err := s.deps.Events.OnScalingEvent(se); err != nil {
		logger.WithError(err).Error("failed to handle scaling event")
	}
}

func (s *Server) configHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	cfg, err := s.deps.ReplicaSet.GetConfig(ctx)
	if err != nil {
		rsctx.GetReqLogger(ctx).WithError(err).Error("failed to get replica set config")
		restutils.SendHTTPError(ctx, w, http.StatusInternalServerError, err)
		return
	}
	restutils.SendHTTPResponse(ctx, w, http.StatusOK, cfg)
}

func (s *Server) statusHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	status, err := s.deps.ReplicaSet.GetStatus(ctx)
	if err != nil {
		rsctx.GetReqLogger(ctx).WithError(err).Error("failed to get replica set status")
		restutils.SendHTTPError(ctx, w, http.StatusInternalServerError, err)
		return
	}
	body, err := bson.MarshalExtJSON(status, false, false)
	if err != nil {
		restutils.SendHTTPError(ctx, w, http.StatusInternalServerError, err)
		return
	}
	restutils.SendJSON(ctx, w, http.StatusOK, body)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if !s.deps.State.IsHealthy() {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	restutils.SendText(r.Context(), w, http.StatusOK, "OK")
}

func (s *Server) deleteSubscriptionHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	confirmed, err := s.deps.Subscription.Deregister(ctx)
	if err != nil {
		restutils.SendHTTPError(ctx, w, http.StatusInternalServerError, err)
		return
	}

	msg := "Couldn't remove the scheduler event subscription, but no error given"
	if confirmed {
		msg = "The scheduler event subscription for " + s.deps.Subscription.CallbackURL() + " was removed"
	}
	restutils.SendHTTPResponse(ctx, w, http.StatusOK, api.MessageResp{Message: msg})
}

func (s *Server) releaseLockHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	released, err := s.deps.Gate.Release(ctx)
	if err != nil {
		restutils.SendHTTPError(ctx, w, http.StatusInternalServerError, err)
		return
	}

	msg := "Coordination node " + s.deps.Gate.BasePath() + " didn't exist"
	if released {
		msg = "Coordination node " + s.deps.Gate.BasePath() + " was deleted"
	}
	restutils.SendHTTPResponse(ctx, w, http.StatusOK, api.ReleaseLockResp{
		Message:  msg,
		Released: released,
	})
}

func (s *Server) listEndpointsHandler(w http.ResponseWriter, r *http.Request) {
	resp := make(api.ListEndpointsResp, 0, len(s.routes))
	for _, rt := range s.routes {
		resp = append(resp, api.Endpoint{
			Name:        rt.Name,
			Description: rt.Description,
			Method:      rt.Method,
			Path:        rt.Pattern,
		})
	}
	restutils.SendHTTPResponse(r.Context(), w, http.StatusOK, resp)
}

func (s *Server) versionHandler(w http.ResponseWriter, r *http.Request) {
	restutils.SendHTTPResponse(r.Context(), w, http.StatusOK, api.VersionResp{
		Version: version.ConfiguratorVersion,
		GitSHA:  version.GitSHA,
	})
}

// ListenAddr returns the bind address for port on all interfaces
func ListenAddr(port int) string {
	return ":" + strconv.Itoa(port)
}
