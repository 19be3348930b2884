// Package replicaset wraps the administrative commands of the database: the
// role check, initiate, config and status reads, and versioned reconfigure.
package replicaset

import (
	"context"
	"net"
	"strconv"
	"time"

	"github.com/marathon-tools/mongodb-configurator/pkg/api"
	cerrors "github.com/marathon-tools/mongodb-configurator/pkg/errors"

	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
)

// uninitializedInfo is what an unconfigured replica set member reports in
// the info field of isMaster
const uninitializedInfo = "Does not have a valid replica set config"

// Config describes the local replica set member
type Config struct {
	// Name is the replica set name
	Name string
	// Host and Port are the publicly reachable address of the local database
	Host string
	Port int
	// HeartbeatTimeout is written to the settings of a new replica set
	HeartbeatTimeout time.Duration
}

// Store runs replica set commands against the local database
type Store struct {
	cmd    Commander
	conf   Config
	logger log.FieldLogger
}

// New returns a Store issuing commands through cmd
func New(cmd Commander, conf Config) *Store {
	return &Store{
		cmd:  cmd,
		conf: conf,
		logger: log.WithFields(log.Fields{
			"component":  "replicaset",
			"replicaset": conf.Name,
		}),
	}
}

type isMasterReply struct {
	IsMaster     bool   `bson:"ismaster"`
	Secondary    bool   `bson:"secondary"`
	IsReplicaSet bool   `bson:"isreplicaset"`
	SetName      string `bson:"setName"`
	Info         string `bson:"info"`
}

// IsMaster returns whether the replica set is initialized and whether the
// local database is the primary. It is never cached.
func (s *Store) IsMaster(ctx context.Context) (api.MasterStatus, error) {
	var reply isMasterReply
	if err := s.cmd.RunCommand(ctx, bson.D{{Key: "isMaster", Value: 1}}, &reply); err != nil {
		return api.MasterStatus{}, cerrors.E(cerrors.StoreCommandFailed, "isMaster", err)
	}

	status := api.Initialized
	if !reply.IsMaster && !reply.Secondary && reply.IsReplicaSet && reply.Info == uninitializedInfo {
		status = api.Uninitialized
	}
	return api.MasterStatus{Status: status, IsPrimary: reply.IsMaster}, nil
}

// SeedHost returns the connection key of the local database
func (s *Store) SeedHost() string {
	return net.JoinHostPort(s.conf.Host, strconv.Itoa(s.conf.Port))
}

// Initiate creates the replica set with the local database as its only
// member
func (s *Store) Initiate(ctx context.Context) error {
	cfg := api.ReplicaSetConfig{
		ID:      s.conf.Name,
		Version: 1,
		Members: []api.Member{{ID: 0, Host: s.SeedHost()}},
		Settings: bson.M{
			"heartbeatTimeoutSecs": int(s.conf.HeartbeatTimeout / time.Second),
		},
	}

	s.logger.WithField("seed", s.SeedHost()).Info("initiating replica set")
	var reply bson.M
	if err := s.cmd.RunCommand(ctx, bson.D{{Key: "replSetInitiate", Value: cfg}}, &reply); err != nil {
		return cerrors.E(cerrors.StoreCommandFailed, "replSetInitiate", err)
	}
	return nil
}

// GetConfig returns the current replica set config
func (s *Store) GetConfig(ctx context.Context) (api.ReplicaSetConfig, error) {
	var reply struct {
		Config bson.Raw `bson:"config"`
	}
	if err := s.cmd.RunCommand(ctx, bson.D{{Key: "replSetGetConfig", Value: 1}}, &reply); err != nil {
		return api.ReplicaSetConfig{}, cerrors.E(cerrors.StoreCommandFailed, "replSetGetConfig", err)
	}

	if len(reply.Config) == 0 {
		return api.ReplicaSetConfig{}, cerrors.E(cerrors.ConfigInvariantViolation, "replSetGetConfig", cerrors.ErrMissingConfigID)
	}
	if _, err := reply.Config.LookupErr("_id"); err != nil {
		return api.ReplicaSetConfig{}, cerrors.E(cerrors.ConfigInvariantViolation, "replSetGetConfig", cerrors.ErrMissingConfigID)
	}
	if v, err := reply.Config.LookupErr("members"); err != nil || v.Type != bson.TypeArray {
		return api.ReplicaSetConfig{}, cerrors.E(cerrors.ConfigInvariantViolation, "replSetGetConfig", cerrors.ErrMissingMembers)
	}

	var cfg api.ReplicaSetConfig
	if err := bson.Unmarshal(reply.Config, &cfg); err != nil {
		return api.ReplicaSetConfig{}, cerrors.E(cerrors.ConfigInvariantViolation, "replSetGetConfig", err)
	}
	return cfg, nil
}

// GetStatus returns the runtime status document of the replica set
func (s *Store) GetStatus(ctx context.Context) (bson.M, error) {
	var reply bson.M
	if err := s.cmd.RunCommand(ctx, bson.D{{Key: "replSetGetStatus", Value: 1}}, &reply); err != nil {
		return nil, cerrors.E(cerrors.StoreCommandFailed, "replSetGetStatus", err)
	}
	return reply, nil
}

// Reconfigure submits cfg. The database rejects it unless cfg.Version is
// the current version plus one.
func (s *Store) Reconfigure(ctx context.Context, cfg api.ReplicaSetConfig) error {
	s.logger.WithFields(log.Fields{
		"version": cfg.Version,
		"members": len(cfg.Members),
	}).Info("reconfiguring replica set")

	var reply bson.M
	if err := s.cmd.RunCommand(ctx, bson.D{{Key: "replSetReconfig", Value: cfg}}, &reply); err != nil {
		return cerrors.E(cerrors.StoreCommandFailed, "replSetReconfig", err)
	}
	return nil
}

// AddNodes reads the current config, adds the nodes that are not members
// yet and submits the result. It returns false if all nodes were members
// already, in which case nothing is submitted.
func (s *Store) AddNodes(ctx context.Context, nodes []api.Node) (bool, error) {
	cfg, err := s.GetConfig(ctx)
	if err != nil {
		return false, err
	}
	next := AddMembers(nodes, cfg)
	if len(next.Members) == len(cfg.Members) {
		s.logger.WithField("nodes", nodeKeys(nodes)).Debug("nodes are members already")
		return false, nil
	}
	return true, s.Reconfigure(ctx, next)
}

// RemoveNodes reads the current config, removes the members matching nodes
// and submits the result. It returns false if none of the nodes was a
// member, in which case nothing is submitted.
func (s *Store) RemoveNodes(ctx context.Context, nodes []api.Node) (bool, error) {
	cfg, err := s.GetConfig(ctx)
	if err != nil {
		return false, err
	}
	next := RemoveMembers(nodes, cfg)
	if len(next.Members) == len(cfg.Members) {
		s.logger.WithField("nodes", nodeKeys(nodes)).Debug("nodes are not members")
		return false, nil
	}
	return true, s.Reconfigure(ctx, next)
}

// AddMember adds one node
func (s *Store) AddMember(ctx context.Context, node api.Node) (bool, error) {
	return s.AddNodes(ctx, []api.Node{node})
}

// RemoveMember removes one node
func (s *Store) RemoveMember(ctx context.Context, node api.Node) (bool, error) {
	return s.RemoveNodes(ctx, []api.Node{node})
}

func nodeKeys(nodes []api.Node) []string {
	keys := make([]string, len(nodes))
	for i, n := range nodes {
		keys[i] = n.Key()
	}
	return keys
}
