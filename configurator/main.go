package main

import (
	"context"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/marathon-tools/mongodb-configurator/configurator/bootstrap"
	"github.com/marathon-tools/mongodb-configurator/configurator/conf"
	"github.com/marathon-tools/mongodb-configurator/configurator/cstore"
	"github.com/marathon-tools/mongodb-configurator/configurator/gate"
	"github.com/marathon-tools/mongodb-configurator/configurator/metrics"
	"github.com/marathon-tools/mongodb-configurator/configurator/reconfig"
	"github.com/marathon-tools/mongodb-configurator/configurator/replicaset"
	"github.com/marathon-tools/mongodb-configurator/configurator/rsctx"
	"github.com/marathon-tools/mongodb-configurator/configurator/servers/rest"
	"github.com/marathon-tools/mongodb-configurator/configurator/state"
	"github.com/marathon-tools/mongodb-configurator/configurator/subscription"
	"github.com/marathon-tools/mongodb-configurator/pkg/logging"
	"github.com/marathon-tools/mongodb-configurator/pkg/marathon"
	"github.com/marathon-tools/mongodb-configurator/pkg/tracing"
	"github.com/marathon-tools/mongodb-configurator/version"

	log "github.com/sirupsen/logrus"
	flag "github.com/spf13/pflag"
	config "github.com/spf13/viper"
)

const (
	deregisterTimeout = 10 * time.Second
	stopTimeout       = 5 * time.Second
)

func main() {
	// Initalize and parse CLI flags
	conf.InitFlags()
	version.InitFlags()
	tracing.InitFlags()
	flag.Parse()

	if showvers, _ := flag.CommandLine.GetBool("version"); showvers {
		version.DumpVersionInfo()
		return
	}

	confFile, _ := flag.CommandLine.GetString(conf.ConfigFileOpt)
	if err := conf.Init(confFile); err != nil {
		log.WithError(err).Fatal("Failed to initialize config")
	}

	logLevel := config.GetString(logging.LevelFlag)
	logdir := config.GetString(logging.DirFlag)
	logFileName := config.GetString(logging.FileFlag)
	if err := logging.Init(logdir, logFileName, logLevel, true); err != nil {
		log.WithError(err).Fatal("Failed to initialize logging")
	}

	opts, err := conf.Load()
	if err != nil {
		log.WithError(err).Fatal("Invalid configuration")
	}

	log.WithFields(opts.LogFields()).WithFields(log.Fields{
		"pid":      os.Getpid(),
		"version":  version.ConfiguratorVersion,
		"instance": rsctx.InstanceName(),
	}).Info("Starting MongoDB configurator")
	conf.DumpToLog()

	flushTraces := tracing.Init("mongodb-configurator")
	defer flushTraces()

	store, err := newStore(opts)
	if err != nil {
		log.WithError(err).Fatal("Failed to initialize coordination store")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dbURI := "mongodb://" + net.JoinHostPort("localhost", strconv.Itoa(opts.DatabasePort.Internal)) + "/"
	cmd, err := replicaset.Dial(ctx, dbURI)
	if err != nil {
		log.WithError(err).Fatal("Failed to create database client")
	}

	st := state.New()
	rs := replicaset.New(cmd, replicaset.Config{
		Name:             opts.ReplicaSet,
		Host:             opts.Host,
		Port:             opts.DatabasePort.Public,
		HeartbeatTimeout: time.Duration(opts.HeartbeatTimeout) * time.Second,
	})
	sched := marathon.New(opts.MarathonURL)
	callbackURL := marathon.CallbackURL(opts.Host, opts.WebPort.Public)
	g := gate.New(store, opts.BaseNode, opts.AppID)
	sub := subscription.New(rs, sched, callbackURL)

	ctrl := reconfig.New(rs, st, reconfig.WithLocker(store.NewLocker(g.BasePath())))
	boot := bootstrap.New(bootstrap.Config{
		AppID:             opts.AppID,
		CallbackURL:       callbackURL,
		InitTimeout:       opts.InitTimeout,
		ReplicaSetTimeout: opts.ReplicaSetTimeout,
	}, g, sched, rs, ctrl, st)

	server := rest.New(rest.Config{
		Addr:     rest.ListenAddr(opts.WebPort.Internal),
		AppID:    opts.AppID,
		CertFile: opts.CertFile,
		KeyFile:  opts.KeyFile,
	}, rest.Deps{
		State:        st,
		ReplicaSet:   rs,
		Events:       ctrl,
		Subscription: sub,
		Gate:         g,
	})

	// Start the REST server and the reconfiguration worker managed by the
	// suture supervisor
	super := initSupervisor()
	super.Add(server)
	super.Add(ctrl)
	superErr := super.ServeBackground(ctx)

	go func() {
		if err := boot.Run(ctx); err != nil {
			log.WithError(err).Error("Bootstrap failed, restart the configurator to retry")
		}
	}()

	stop := func() {
		cancel()
		select {
		case <-superErr:
		case <-time.After(stopTimeout):
			log.Warn("timed out waiting for services to stop")
		}
		closeCtx, closeCancel := context.WithTimeout(context.Background(), stopTimeout)
		defer closeCancel()
		if err := cmd.Close(closeCtx); err != nil {
			log.WithError(err).Warn("failed to close database client")
		}
		if err := store.Close(); err != nil {
			log.WithError(err).Warn("failed to close coordination store")
		}
		log.Info("Stopped MongoDB configurator")
	}

	// Use the main goroutine as signal handling loop
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT, syscall.SIGHUP)
	var graceCh <-chan time.Time
	for {
		select {
		case s := <-sigCh:
			log.WithField("signal", s).Debug("Signal received")
			switch s {
			case syscall.SIGTERM:
				if !st.IsHealthy() {
					log.Info("Received second SIGTERM. Stopping MongoDB configurator")
					stop()
					return
				}
				log.WithField("grace", opts.ShutdownGrace).Info("Received SIGTERM. Failing health checks")
				st.SetUnhealthy()
				metrics.Healthy.Set(0)
				go deregister(sub)
				graceCh = time.After(opts.ShutdownGrace)
			case syscall.SIGINT:
				log.Info("Received SIGINT. Stopping MongoDB configurator")
				stop()
				return
			case syscall.SIGHUP:
				// Logrotate case, when Log rotated, Reopen the log file and
				// re-initiate the logger instance.
				if logging.IsFileOutput(logFileName) {
					log.Info("Received SIGHUP, Reloading log file")
					if err := logging.Init(logdir, logFileName, logLevel, true); err != nil {
						log.WithError(err).Fatal("Could not re-initialize logging")
					}
				}
			}
		case <-graceCh:
			log.Info("Shutdown grace period over. Stopping MongoDB configurator")
			stop()
			return
		case err := <-superErr:
			log.WithError(err).Error("Supervisor terminated")
			stop()
			flushTraces()
			os.Exit(1)
		}
	}
}

// deregister removes the scheduler subscription when this instance is the
// primary. Failures are logged only.
func deregister(sub *subscription.Manager) {
	ctx, cancel := context.WithTimeout(context.Background(), deregisterTimeout)
	defer cancel()
	confirmed, err := sub.Deregister(ctx)
	if err != nil {
		log.WithError(err).Info("event subscription not removed")
		return
	}
	log.WithField("confirmed", confirmed).Info("event subscription removed")
}

func newStore(opts *conf.Options) (cstore.Store, error) {
	switch opts.CoordinationBackend {
	case conf.BackendMemory:
		log.Warn("using the in-memory coordination store, do not run more than one configurator instance")
		return cstore.NewMemory(), nil
	default:
		return cstore.NewEtcd(cstore.Config{
			Endpoints: opts.EtcdEndpoints,
			Namespace: opts.EtcdNamespace,
		})
	}
}
