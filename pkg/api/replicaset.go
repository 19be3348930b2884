package api

import (
	"encoding/json"
	"net"
	"strconv"

	"go.mongodb.org/mongo-driver/bson"
)

// Node is a reachable database instance
type Node struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

// Key returns the "host:port" connection key identifying the node
func (n Node) Key() string {
	return net.JoinHostPort(n.Host, strconv.Itoa(n.Port))
}

// Member is one entry of the members array of a replica set config.
// Fields the configurator does not interpret (priority, votes, tags, ...)
// are kept in Extra and written back unchanged, in BSON and in JSON.
type Member struct {
	ID    int    `bson:"_id" json:"_id"`
	Host  string `bson:"host" json:"host"`
	Extra bson.M `bson:",inline" json:"-"`
}

var memberFields = []string{"_id", "host"}

type memberJSON Member

// MarshalJSON writes the fields of Extra next to the member's own fields
func (m Member) MarshalJSON() ([]byte, error) {
	return marshalWithExtra(memberJSON(m), m.Extra)
}

// UnmarshalJSON keeps unknown fields in Extra
func (m *Member) UnmarshalJSON(data []byte) error {
	if err := json.Unmarshal(data, (*memberJSON)(m)); err != nil {
		return err
	}
	extra, err := unknownFields(data, memberFields)
	m.Extra = extra
	return err
}

// ReplicaSetConfig is the membership document of a replica set. Top level
// fields without a struct field (writeConcernMajorityJournalDefault, term,
// ...) are kept in Extra.
type ReplicaSetConfig struct {
	ID              string   `bson:"_id" json:"_id"`
	Version         int      `bson:"version" json:"version"`
	ProtocolVersion int64    `bson:"protocolVersion,omitempty" json:"protocolVersion,omitempty"`
	Members         []Member `bson:"members" json:"members"`
	Settings        bson.M   `bson:"settings,omitempty" json:"settings,omitempty"`
	Extra           bson.M   `bson:",inline" json:"-"`
}

var configFields = []string{"_id", "version", "protocolVersion", "members", "settings"}

type configJSON ReplicaSetConfig

// MarshalJSON writes the fields of Extra next to the config's own fields
func (c ReplicaSetConfig) MarshalJSON() ([]byte, error) {
	return marshalWithExtra(configJSON(c), c.Extra)
}

// UnmarshalJSON keeps unknown fields in Extra
func (c *ReplicaSetConfig) UnmarshalJSON(data []byte) error {
	if err := json.Unmarshal(data, (*configJSON)(c)); err != nil {
		return err
	}
	extra, err := unknownFields(data, configFields)
	c.Extra = extra
	return err
}

func marshalWithExtra(v interface{}, extra bson.M) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil || len(extra) == 0 {
		return data, err
	}
	fields := make(map[string]json.RawMessage)
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, err
	}
	for k, ev := range extra {
		if _, ok := fields[k]; ok {
			continue
		}
		raw, err := json.Marshal(ev)
		if err != nil {
			return nil, err
		}
		fields[k] = raw
	}
	return json.Marshal(fields)
}

func unknownFields(data []byte, known []string) (bson.M, error) {
	var all map[string]interface{}
	if err := json.Unmarshal(data, &all); err != nil {
		return nil, err
	}
	for _, k := range known {
		delete(all, k)
	}
	if len(all) == 0 {
		return nil, nil
	}
	return bson.M(all), nil
}

// MemberKeys returns the set of connection keys of the current members
func (c *ReplicaSetConfig) MemberKeys() map[string]struct{} {
	keys := make(map[string]struct{}, len(c.Members))
	for _, m := range c.Members {
		keys[m.Host] = struct{}{}
	}
	return keys
}

// ReplicaSetStatus is how the replica set reports itself as initialized or not
type ReplicaSetStatus string

const (
	// Uninitialized means the database runs in a replica set aware mode but
	// has no valid replica set config yet
	Uninitialized ReplicaSetStatus = "uninitialized"
	// Initialized means a replica set config is installed
	Initialized ReplicaSetStatus = "initialized"
)

// MasterStatus is the result of a role check against the local database
type MasterStatus struct {
	Status    ReplicaSetStatus `json:"status"`
	IsPrimary bool             `json:"isMaster"`
}
