package cmd

import (
	"errors"
	"testing"

	"github.com/marathon-tools/mongodb-configurator/pkg/api"

	"github.com/stretchr/testify/assert"
)

func TestMemberRows(t *testing.T) {
	rows := memberRows(api.ReplicaSetConfig{Members: []api.Member{
		{ID: 0, Host: "a:1"},
		{ID: 3, Host: "b:2"},
	}})
	assert.Equal(t, [][]string{{"0", "a:1"}, {"3", "b:2"}}, rows)
}

func TestStatusRows(t *testing.T) {
	status := map[string]interface{}{
		"set": "rs0",
		"members": []interface{}{
			map[string]interface{}{"name": "b:2", "stateStr": "SECONDARY", "health": 1},
			map[string]interface{}{"name": "a:1", "stateStr": "PRIMARY", "health": 1},
			"garbage",
		},
	}
	assert.Equal(t, [][]string{
		{"a:1", "PRIMARY", "1"},
		{"b:2", "SECONDARY", "1"},
	}, statusRows(status))
	assert.Empty(t, statusRows(map[string]interface{}{}))
}

func TestConnectErrors(t *testing.T) {
	assert.True(t, isConnectionRefusedErr(errors.New("dial tcp: connection refused")))
	assert.True(t, isNoSuchHostErr(errors.New("lookup x: no such host")))
	assert.True(t, isNoRouteToHostErr(errors.New("connect: no route to host")))
	assert.False(t, isConnectionRefusedErr(errors.New("timeout")))
}

func TestCommandsRegistered(t *testing.T) {
	names := map[string]bool{}
	for _, c := range RootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, n := range []string{"config", "status", "health", "release-lock", "unsubscribe", "endpoints", "version"} {
		assert.True(t, names[n], n)
	}
}
