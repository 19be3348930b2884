package replicaset

import (
	"testing"

	"github.com/marathon-tools/mongodb-configurator/pkg/api"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson"
)

func testConfig() api.ReplicaSetConfig {
	return api.ReplicaSetConfig{
		ID:      "rs0",
		Version: 3,
		Members: []api.Member{
			{ID: 0, Host: "a:27017"},
			{ID: 4, Host: "b:27017", Extra: bson.M{"priority": 2}},
			{ID: 2, Host: "c:27017"},
		},
		Settings: bson.M{"heartbeatTimeoutSecs": 5},
	}
}

func node(host string) api.Node {
	return api.Node{Host: host, Port: 27017}
}

func TestAddMembers(t *testing.T) {
	cfg := testConfig()
	out := AddMembers([]api.Node{node("d"), node("a"), node("e"), node("d")}, cfg)

	assert.Equal(t, 4, out.Version)
	assert.Len(t, out.Members, 5)
	assert.Equal(t, api.Member{ID: 5, Host: "d:27017"}, out.Members[3])
	assert.Equal(t, api.Member{ID: 6, Host: "e:27017"}, out.Members[4])
	assert.Equal(t, cfg.Settings, out.Settings)
	assert.Equal(t, bson.M{"priority": 2}, out.Members[1].Extra)

	// input is not modified
	assert.Equal(t, 3, cfg.Version)
	assert.Len(t, cfg.Members, 3)
}

func TestAddMembersUniqueness(t *testing.T) {
	cfg := testConfig()
	out := AddMembers([]api.Node{node("a"), node("b"), node("x"), node("y"), node("x")}, cfg)

	hosts := map[string]bool{}
	ids := map[int]bool{}
	for _, m := range out.Members {
		assert.False(t, hosts[m.Host], "duplicate host %s", m.Host)
		assert.False(t, ids[m.ID], "duplicate id %d", m.ID)
		hosts[m.Host] = true
		ids[m.ID] = true
	}
	for _, m := range out.Members[len(cfg.Members):] {
		assert.True(t, m.ID > 4)
	}
}

func TestAddMembersEmptyConfig(t *testing.T) {
	out := AddMembers([]api.Node{node("a")}, api.ReplicaSetConfig{ID: "rs0", Version: 1})
	assert.Equal(t, []api.Member{{ID: 0, Host: "a:27017"}}, out.Members)
	assert.Equal(t, 2, out.Version)
}

func TestRemoveMembers(t *testing.T) {
	cfg := testConfig()
	out := RemoveMembers([]api.Node{node("b")}, cfg)
	assert.Equal(t, 4, out.Version)
	assert.Equal(t, []api.Member{{ID: 0, Host: "a:27017"}, {ID: 2, Host: "c:27017"}}, out.Members)
	assert.Len(t, cfg.Members, 3)
	assert.Equal(t, "b:27017", cfg.Members[1].Host)
}

// Removing several nodes in one call removes every one of them.
func TestRemoveMembersMultipleNodes(t *testing.T) {
	cfg := testConfig()
	out := RemoveMembers([]api.Node{node("a"), node("c"), node("unknown")}, cfg)
	assert.Len(t, out.Members, len(cfg.Members)-2)
	assert.Equal(t, "b:27017", out.Members[0].Host)
}

func TestRemoveMembersPortMatters(t *testing.T) {
	cfg := testConfig()
	out := RemoveMembers([]api.Node{{Host: "a", Port: 27018}}, cfg)
	assert.Len(t, out.Members, 3)
}
