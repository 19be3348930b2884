// Package conf loads the configurator options from flags, environment
// variables and an optional TOML file.
package conf

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	cerrors "github.com/marathon-tools/mongodb-configurator/pkg/errors"
	"github.com/marathon-tools/mongodb-configurator/pkg/logging"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	flag "github.com/spf13/pflag"
	config "github.com/spf13/viper"
)

const (
	defaultAppID             = "/mongodb"
	defaultMarathonURL       = "localhost:8080"
	defaultEndpoint          = "localhost:2379"
	defaultBaseNode          = "/mongodb-configurator"
	defaultHost              = "127.0.0.1"
	defaultWebPort           = 3000
	defaultDatabasePort      = 27017
	defaultReplicaSet        = "rs0"
	defaultEnvironment       = "development"
	defaultReplicaSetTimeout = "10000"
	defaultInitTimeout       = "5000"
	defaultHeartbeatTimeout  = 5
	defaultShutdownGrace     = "10s"
	defaultLogLevel          = "error"
	defaultLogFile           = "STDOUT"

	// BackendEtcd selects etcd as coordination service
	BackendEtcd = "etcd"
	// BackendMemory selects the in-process coordination store. Only useful
	// for a single configurator instance.
	BackendMemory = "memory"
)

// flag names, also used as config keys
const (
	AppIDOpt             = "appid"
	MarathonURLOpt       = "marathonurl"
	BackendOpt           = "coordinationbackend"
	EndpointsOpt         = "etcdendpoints"
	NamespaceOpt         = "etcdnamespace"
	BaseNodeOpt          = "basenode"
	HostOpt              = "host"
	WebPortOpt           = "webport"
	WebPortInternalOpt   = "webportinternal"
	DBPortOpt            = "dbport"
	DBPortInternalOpt    = "dbportinternal"
	ReplicaSetOpt        = "replicaset"
	EnvironmentOpt       = "environment"
	ReplicaSetTimeoutOpt = "replicasettimeout"
	InitTimeoutOpt       = "inittimeout"
	HeartbeatTimeoutOpt  = "heartbeattimeoutsecs"
	ShutdownGraceOpt     = "shutdowngrace"
	CertFileOpt          = "cert-file"
	KeyFileOpt           = "key-file"
	ConfigFileOpt        = "config"
)

// environment variables, as injected by the scheduler or set in the app
// definition
var envBindings = map[string][]string{
	AppIDOpt:             {"MARATHON_APP_ID"},
	MarathonURLOpt:       {"MARATHON_URL"},
	BackendOpt:           {"COORDINATION_BACKEND"},
	EndpointsOpt:         {"ETCD_ENDPOINTS", "COORDINATION_ENDPOINTS"},
	NamespaceOpt:         {"ETCD_NAMESPACE"},
	BaseNodeOpt:          {"COORDINATION_BASE_NODE"},
	HostOpt:              {"HOST"},
	WebPortOpt:           {"PORT0"},
	DBPortOpt:            {"PORT1"},
	ReplicaSetOpt:        {"REPLICA_SET"},
	EnvironmentOpt:       {"NODE_ENV"},
	ReplicaSetTimeoutOpt: {"REPLICA_SET_TIMEOUT"},
	InitTimeoutOpt:       {"INIT_TIMEOUT"},
	HeartbeatTimeoutOpt:  {"HEARTBEAT_TIMEOUT_SECS"},
	ShutdownGraceOpt:     {"SHUTDOWN_GRACE"},
	logging.LevelFlag:    {"LOG_LEVEL"},
	logging.DirFlag:      {"LOG_DIR"},
	logging.FileFlag:     {"LOG_FILE"},
}

// PortPair is a port as seen from inside the container and as published
// on the host
type PortPair struct {
	Public   int `json:"public"`
	Internal int `json:"internal"`
}

// Options is the immutable configuration of a configurator process
type Options struct {
	AppID               string        `json:"appId"`
	MarathonURL         string        `json:"marathonUrl"`
	CoordinationBackend string        `json:"coordinationBackend"`
	EtcdEndpoints       []string      `json:"etcdEndpoints"`
	EtcdNamespace       string        `json:"etcdNamespace,omitempty"`
	BaseNode            string        `json:"baseNode"`
	Host                string        `json:"host"`
	WebPort             PortPair      `json:"webPort"`
	DatabasePort        PortPair      `json:"databasePort"`
	ReplicaSet          string        `json:"replicaSet"`
	Environment         string        `json:"environment"`
	ReplicaSetTimeout   time.Duration `json:"replicaSetTimeout"`
	InitTimeout         time.Duration `json:"initTimeout"`
	HeartbeatTimeout    int           `json:"heartbeatTimeoutSecs"`
	ShutdownGrace       time.Duration `json:"shutdownGrace"`
	CertFile            string        `json:"certFile,omitempty"`
	KeyFile             string        `json:"keyFile,omitempty"`
}

// InitFlags sets up the command line flags of the configurator daemon
func InitFlags() {
	flag.String(ConfigFileOpt, "", "Configuration file (TOML).")

	flag.String(AppIDOpt, defaultAppID, "Scheduler application id of this deployment.")
	flag.String(MarathonURLOpt, defaultMarathonURL, "Scheduler (Marathon) URL.")

	flag.String(BackendOpt, BackendEtcd, "Coordination backend: etcd or memory.")
	flag.StringSlice(EndpointsOpt, []string{defaultEndpoint}, "Endpoints of the etcd cluster used for coordination.")
	flag.String(NamespaceOpt, "", "Key prefix applied to all coordination keys.")
	flag.String(BaseNodeOpt, defaultBaseNode, "Prefix of the coordination marker keys.")

	flag.String(HostOpt, defaultHost, "Address under which this instance is reachable.")
	flag.Int(WebPortOpt, defaultWebPort, "Public port of the REST service.")
	flag.Int(WebPortInternalOpt, defaultWebPort, "Port the REST service binds to.")
	flag.Int(DBPortOpt, defaultDatabasePort, "Public port of the database.")
	flag.Int(DBPortInternalOpt, defaultDatabasePort, "Port the database listens on inside the container.")

	flag.String(ReplicaSetOpt, defaultReplicaSet, "Replica set name.")
	flag.String(EnvironmentOpt, defaultEnvironment, "Process environment name.")
	flag.String(ReplicaSetTimeoutOpt, defaultReplicaSetTimeout, "Time to wait for scaling events after the replica set is initiated (milliseconds or duration).")
	flag.String(InitTimeoutOpt, defaultInitTimeout, "Time to wait for the database to start before initiating (milliseconds or duration).")
	flag.Int(HeartbeatTimeoutOpt, defaultHeartbeatTimeout, "Replica set heartbeat timeout in seconds, used when initiating.")
	flag.String(ShutdownGraceOpt, defaultShutdownGrace, "Time to keep serving after SIGTERM.")

	flag.String(CertFileOpt, "", "Certificate used for SSL/TLS connections to the REST service.")
	flag.String(KeyFileOpt, "", "Private key for the SSL/TLS certificate.")

	flag.String(logging.DirFlag, "", logging.DirHelp)
	flag.String(logging.FileFlag, defaultLogFile, logging.FileHelp)
	flag.String(logging.LevelFlag, defaultLogLevel, logging.LevelHelp)
}

// Init binds flags and environment variables and reads the config file if
// one was given
func Init(confFile string) error {
	// Limit config to toml only to avoid confusion with multiple config types
	config.SetConfigType("toml")

	if confFile != "" {
		config.SetConfigFile(confFile)
		if err := config.MergeInConfig(); err != nil {
			log.WithError(err).WithField("file", confFile).Error("failed to read config file")
			return err
		}
	}

	if err := config.BindPFlags(flag.CommandLine); err != nil {
		return err
	}

	for key, envs := range envBindings {
		args := append([]string{key}, envs...)
		if err := config.BindEnv(args...); err != nil {
			return err
		}
	}
	return nil
}

// Load builds Options from the bound configuration
func Load() (*Options, error) {
	rsTimeout, err := ParseMillis(config.GetString(ReplicaSetTimeoutOpt))
	if err != nil {
		return nil, errors.Wrap(err, ReplicaSetTimeoutOpt)
	}
	initTimeout, err := ParseMillis(config.GetString(InitTimeoutOpt))
	if err != nil {
		return nil, errors.Wrap(err, InitTimeoutOpt)
	}
	grace, err := ParseMillis(config.GetString(ShutdownGraceOpt))
	if err != nil {
		return nil, errors.Wrap(err, ShutdownGraceOpt)
	}

	opts := &Options{
		AppID:               config.GetString(AppIDOpt),
		MarathonURL:         config.GetString(MarathonURLOpt),
		CoordinationBackend: strings.ToLower(config.GetString(BackendOpt)),
		EtcdEndpoints:       splitEndpoints(config.GetStringSlice(EndpointsOpt)),
		EtcdNamespace:       config.GetString(NamespaceOpt),
		BaseNode:            config.GetString(BaseNodeOpt),
		Host:                config.GetString(HostOpt),
		WebPort: PortPair{
			Public:   config.GetInt(WebPortOpt),
			Internal: config.GetInt(WebPortInternalOpt),
		},
		DatabasePort: PortPair{
			Public:   config.GetInt(DBPortOpt),
			Internal: config.GetInt(DBPortInternalOpt),
		},
		ReplicaSet:        config.GetString(ReplicaSetOpt),
		Environment:       strings.ToLower(config.GetString(EnvironmentOpt)),
		ReplicaSetTimeout: rsTimeout,
		InitTimeout:       initTimeout,
		HeartbeatTimeout:  config.GetInt(HeartbeatTimeoutOpt),
		ShutdownGrace:     grace,
		CertFile:          config.GetString(CertFileOpt),
		KeyFile:           config.GetString(KeyFileOpt),
	}

	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return opts, nil
}

// LogFields returns the options identifying this deployment, for the
// startup log entry
func (o *Options) LogFields() log.Fields {
	return log.Fields{
		"appId":       o.AppID,
		"replicaSet":  o.ReplicaSet,
		"environment": o.Environment,
		"backend":     o.CoordinationBackend,
	}
}

// Validate checks the options for values the configurator cannot work with
func (o *Options) Validate() error {
	if o.AppID == "" {
		return cerrors.ErrInvalidAppID
	}
	if o.ReplicaSet == "" {
		return cerrors.ErrInvalidReplicaSetName
	}
	for name, p := range map[string]int{
		WebPortOpt:         o.WebPort.Public,
		WebPortInternalOpt: o.WebPort.Internal,
		DBPortOpt:          o.DatabasePort.Public,
		DBPortInternalOpt:  o.DatabasePort.Internal,
	} {
		if p <= 0 || p > 65535 {
			return errors.Errorf("invalid port %d for %s", p, name)
		}
	}
	if o.ReplicaSetTimeout < 0 || o.InitTimeout < 0 || o.ShutdownGrace < 0 {
		return errors.New("timeouts must not be negative")
	}
	switch o.CoordinationBackend {
	case BackendEtcd:
		if len(o.EtcdEndpoints) == 0 {
			return errors.New("no etcd endpoints given")
		}
	case BackendMemory:
	default:
		return errors.Errorf("unknown coordination backend %q", o.CoordinationBackend)
	}
	return nil
}

// ParseMillis parses a duration. Unit-less values are milliseconds, which is
// how the scheduler app definitions set the timeouts.
func ParseMillis(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Duration(ms) * time.Millisecond, nil
	}
	return time.ParseDuration(s)
}

// splitEndpoints accepts both repeated values and a single comma separated
// value, which is what an environment variable provides
func splitEndpoints(in []string) []string {
	var out []string
	for _, v := range in {
		for _, e := range strings.Split(v, ",") {
			if e = strings.TrimSpace(e); e != "" {
				out = append(out, e)
			}
		}
	}
	return out
}

type valueType struct {
	v interface{}
}

func (v valueType) String() string {
	vb, _ := json.Marshal(v.v)
	return string(vb)
}

// DumpToLog logs all settings at debug level
func DumpToLog() {
	if config.ConfigFileUsed() != "" {
		log.WithField("file", config.ConfigFileUsed()).Info("loaded configuration from file")
	}

	l := log.NewEntry(log.StandardLogger())
	for k, v := range config.AllSettings() {
		l = l.WithField(k, valueType{v}.String())
	}
	l.Debug("running with configuration")
}
