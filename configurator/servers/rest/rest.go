// Package rest implements the REST server of the configurator: the webhook
// receiving scheduler events, the liveness probe and the operator endpoints.
package rest

import (
	"context"
	"crypto/rand"
	"crypto/tls"
	"net"
	"net/http"
	"time"

	"github.com/marathon-tools/mongodb-configurator/configurator/middleware"
	"github.com/marathon-tools/mongodb-configurator/configurator/servers/rest/route"
	"github.com/marathon-tools/mongodb-configurator/configurator/state"
	"github.com/marathon-tools/mongodb-configurator/pkg/api"

	"github.com/gorilla/mux"
	"github.com/justinas/alice"
	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
)

const (
	httpReadTimeout  = 10
	httpWriteTimeout = 30
	maxHeaderBytes   = 1 << 13 // 8KB
	shutdownTimeout  = 3 * time.Second
)

// ReplicaSet is the read side of the replica set store
type ReplicaSet interface {
	GetConfig(ctx context.Context) (api.ReplicaSetConfig, error)
	GetStatus(ctx context.Context) (bson.M, error)
}

// EventHandler receives the scaling events posted by the scheduler
type EventHandler interface {
	OnScalingEvent(ev api.ScalingEvent) error
}

// Deregisterer removes this instance's scheduler event subscription
type Deregisterer interface {
	Deregister(ctx context.Context) (bool, error)
	CallbackURL() string
}

// Releaser deletes the coordination markers
type Releaser interface {
	Release(ctx context.Context) (bool, error)
	BasePath() string
}

// Config of the REST server
type Config struct {
	Addr     string
	AppID    string
	CertFile string
	KeyFile  string
}

// Deps are the collaborators the handlers call into
type Deps struct {
	State        *state.ControllerState
	ReplicaSet   ReplicaSet
	Events       EventHandler
	Subscription Deregisterer
	Gate         Releaser
}

// Server is the configurator REST server
type Server struct {
	Routes *mux.Router

	conf    Config
	deps    Deps
	routes  route.Routes
	server  *http.Server
	handler http.Handler
}

// New returns a Server with all routes registered
func New(conf Config, deps Deps) *Server {
	s := &Server{
		Routes: mux.NewRouter(),
		conf:   conf,
		deps:   deps,
	}
	s.setRoutes(s.configuratorRoutes())

	// Set chain of ordered middlewares, wrapped by the opencensus handler
	// to enable tracing
	s.handler = middleware.Tracing(alice.New(
		middleware.Recover,
		middleware.ReqIDGenerator,
		middleware.LogRequest,
	).Then(s.Routes))

	s.server = &http.Server{
		Addr:           conf.Addr,
		Handler:        s.handler,
		ReadTimeout:    httpReadTimeout * time.Second,
		WriteTimeout:   httpWriteTimeout * time.Second,
		MaxHeaderBytes: maxHeaderBytes,
	}
	return s
}

// Handler returns the HTTP handler of the server, middlewares included
func (s *Server) Handler() http.Handler {
	return s.handler
}

func (s *Server) setRoutes(routes route.Routes) {
	for _, r := range routes {
		log.WithFields(log.Fields{
			"name":   r.Name,
			"path":   r.Pattern,
			"method": r.Method,
		}).Debug("Registering new mux route")
		s.Routes.
			Methods(r.Method).
			Path(r.Pattern).
			Name(r.Name).
			Handler(r.HandlerFunc)
		s.routes = append(s.routes, r)
	}
}

func tlsListener(l net.Listener, certfile, keyfile string) (net.Listener, error) {
	certificate, err := tls.LoadX509KeyPair(certfile, keyfile)
	if err != nil {
		return nil, err
	}

	config := &tls.Config{
		MinVersion:   tls.VersionTLS12, // force TLS 1.2
		Certificates: []tls.Certificate{certificate},
		Rand:         rand.Reader,
	}

	return tls.NewListener(l, config), nil
}

// Serve listens on the configured address and serves requests until ctx is
// done, then shuts the server down gracefully
func (s *Server) Serve(ctx context.Context) error {
	l, err := net.Listen("tcp", s.conf.Addr)
	if err != nil {
		log.WithError(err).WithField("address", s.conf.Addr).Error("failed to listen")
		return err
	}
	if s.conf.CertFile != "" && s.conf.KeyFile != "" {
		l, err = tlsListener(l, s.conf.CertFile, s.conf.KeyFile)
		if err != nil {
			log.WithFields(log.Fields{
				"cert-file": s.conf.CertFile,
				"key-file":  s.conf.KeyFile,
			}).WithError(err).Error("failed to create SSL/TLS listener")
			return err
		}
	}

	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		<-ctx.Done()
		s.stop()
	}()

	log.WithField("ip:port", l.Addr().String()).Info("started configurator REST server")
	err = s.server.Serve(l)
	if err == http.ErrServerClosed {
		// when Shutdown() is called, Serve() immediately returns
		// ErrServerClosed. Give Shutdown() a chance to finish.
		<-stopped
		return ctx.Err()
	}
	log.WithError(err).Error("configurator REST server failed")
	return err
}

func (s *Server) stop() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	log.Debug("stopping configurator REST server gracefully")
	if err := s.server.Shutdown(ctx); err != nil {
		log.WithError(err).Error("failed to gracefully stop configurator REST server")
		if err == context.DeadlineExceeded {
			s.server.Close() // forcefully close connections
		}
	}
	log.Info("stopped configurator REST server")
}

func (s *Server) String() string {
	return "configurator REST server"
}
