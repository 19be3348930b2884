package replicaset

import (
	"github.com/marathon-tools/mongodb-configurator/pkg/api"
)

func copyConfig(cfg api.ReplicaSetConfig) api.ReplicaSetConfig {
	members := make([]api.Member, len(cfg.Members))
	copy(members, cfg.Members)
	cfg.Members = members
	return cfg
}

// AddMembers returns a copy of cfg with the nodes that are not members yet
// appended, in input order, with ids above the highest existing id. The
// version is incremented.
func AddMembers(nodes []api.Node, cfg api.ReplicaSetConfig) api.ReplicaSetConfig {
	out := copyConfig(cfg)
	out.Version++

	existing := cfg.MemberKeys()
	nextID := 0
	for _, m := range cfg.Members {
		if m.ID >= nextID {
			nextID = m.ID + 1
		}
	}

	for _, n := range nodes {
		key := n.Key()
		if _, ok := existing[key]; ok {
			continue
		}
		existing[key] = struct{}{}
		out.Members = append(out.Members, api.Member{ID: nextID, Host: key})
		nextID++
	}
	return out
}

// RemoveMembers returns a copy of cfg without the members whose connection
// key matches one of nodes. The version is incremented.
func RemoveMembers(nodes []api.Node, cfg api.ReplicaSetConfig) api.ReplicaSetConfig {
	out := copyConfig(cfg)
	out.Version++

	remove := make(map[string]struct{}, len(nodes))
	for _, n := range nodes {
		remove[n.Key()] = struct{}{}
	}

	kept := out.Members[:0]
	for _, m := range out.Members {
		if _, ok := remove[m.Host]; !ok {
			kept = append(kept, m)
		}
	}
	out.Members = kept
	return out
}
