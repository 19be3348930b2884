package rest

import (
	"net/http"

	"github.com/marathon-tools/mongodb-configurator/configurator/servers/rest/route"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func (s *Server) configuratorRoutes() route.Routes {
	return route.Routes{
		route.Route{
			Name:        "Ping",
			Description: "Liveness text",
			Method:      http.MethodGet,
			Pattern:     "/",
			HandlerFunc: s.pingHandler,
		},
		route.Route{
			Name:        "Events",
			Description: "Scheduler event webhook",
			Method:      http.MethodPost,
			Pattern:     "/events",
			HandlerFunc: s.eventsHandler,
		},
		route.Route{
			Name:        "Config",
			Description: "Current replica set config",
			Method:      http.MethodGet,
			Pattern:     "/config",
			HandlerFunc: s.configHandler,
		},
		route.Route{
			Name:        "Status",
			Description: "Replica set runtime status",
			Method:      http.MethodGet,
			Pattern:     "/status",
			HandlerFunc: s.statusHandler,
		},
		route.Route{
			Name:        "Health",
			Description: "Health check, 503 once termination started",
			Method:      http.MethodGet,
			Pattern:     "/health",
			HandlerFunc: s.healthHandler,
		},
		route.Route{
			Name:        "DeleteEventSubscription",
			Description: "Remove the scheduler event subscription of this instance (primary only)",
			Method:      http.MethodDelete,
			Pattern:     "/eventSubscription",
			HandlerFunc: s.deleteSubscriptionHandler,
		},
		route.Route{
			Name:        "ReleaseLock",
			Description: "Delete the coordination markers of this application",
			Method:      http.MethodGet,
			Pattern:     "/releaseLock",
			HandlerFunc: s.releaseLockHandler,
		},
		route.Route{
			Name:        "Metrics",
			Description: "Prometheus metrics",
			Method:      http.MethodGet,
			Pattern:     "/metrics",
			HandlerFunc: promhttp.Handler().ServeHTTP,
		},
		route.Route{
			Name:        "ListEndpoints",
			Description: "List of the REST endpoints",
			Method:      http.MethodGet,
			Pattern:     "/endpoints",
			HandlerFunc: s.listEndpointsHandler,
		},
		route.Route{
			Name:        "Version",
			Description: "Version information",
			Method:      http.MethodGet,
			Pattern:     "/version",
			HandlerFunc: s.versionHandler,
		},
	}
}
