package bootstrap

import (
	"github.com/marathon-tools/mongodb-configurator/pkg/api"
)

// Merge replays events, in order, over the scheduler's node snapshot. A
// remove deletes the node, any other action upserts it. An upsert of a
// present node keeps its position, a node added after its removal moves to
// the end.
func Merge(nodes []api.Node, events []api.ScalingEvent) []api.Node {
	byKey := make(map[string]api.Node, len(nodes)+len(events))
	var order []string

	upsert := func(n api.Node) {
		key := n.Key()
		if _, ok := byKey[key]; !ok {
			order = append(order, key)
		}
		byKey[key] = n
	}
	remove := func(key string) {
		if _, ok := byKey[key]; !ok {
			return
		}
		delete(byKey, key)
		for i, k := range order {
			if k == key {
				order = append(order[:i], order[i+1:]...)
				break
			}
		}
	}

	for _, n := range nodes {
		upsert(n)
	}
	for _, ev := range events {
		if ev.Action == api.ActionRemove {
			remove(ev.Key())
			continue
		}
		upsert(ev.Node())
	}

	merged := make([]api.Node, 0, len(order))
	for _, key := range order {
		merged = append(merged, byKey[key])
	}
	return merged
}
