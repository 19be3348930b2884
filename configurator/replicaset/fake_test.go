package replicaset

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/marathon-tools/mongodb-configurator/pkg/api"

	"go.mongodb.org/mongo-driver/bson"
)

// fakeDB is an in-memory replica set member answering admin commands the
// way a single database process does, including the version check of
// replSetReconfig.
type fakeDB struct {
	mu        sync.Mutex
	primary   bool
	config    *api.ReplicaSetConfig
	rawConfig bson.M
	commands  []string
	failNext  error
}

func (f *fakeDB) reply(doc interface{}, result interface{}) error {
	if result == nil {
		return nil
	}
	b, err := bson.Marshal(doc)
	if err != nil {
		return err
	}
	return bson.Unmarshal(b, result)
}

func (f *fakeDB) RunCommand(ctx context.Context, cmd bson.D, result interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	name := cmd[0].Key
	f.commands = append(f.commands, name)
	if f.failNext != nil {
		err := f.failNext
		f.failNext = nil
		return err
	}

	switch name {
	case "isMaster":
		if f.config == nil {
			return f.reply(bson.M{
				"ismaster":     false,
				"secondary":    false,
				"isreplicaset": true,
				"info":         uninitializedInfo,
				"ok":           1,
			}, result)
		}
		return f.reply(bson.M{
			"ismaster":  f.primary,
			"secondary": !f.primary,
			"setName":   f.config.ID,
			"ok":        1,
		}, result)

	case "replSetInitiate":
		if f.config != nil {
			return errors.New("already initialized")
		}
		cfg := cmd[0].Value.(api.ReplicaSetConfig)
		f.config = &cfg
		f.primary = true
		return f.reply(bson.M{"ok": 1}, result)

	case "replSetGetConfig":
		if f.rawConfig != nil {
			return f.reply(bson.M{"config": f.rawConfig, "ok": 1}, result)
		}
		if f.config == nil {
			return errors.New("no replset config has been received")
		}
		return f.reply(bson.M{"config": f.config, "ok": 1}, result)

	case "replSetGetStatus":
		if f.config == nil {
			return errors.New("no replset config has been received")
		}
		return f.reply(bson.M{"set": f.config.ID, "myState": 1, "ok": 1}, result)

	case "replSetReconfig":
		cfg := cmd[0].Value.(api.ReplicaSetConfig)
		if f.config == nil {
			return errors.New("not running with --replSet")
		}
		if !f.primary {
			return errors.New("replSetReconfig should only be run on PRIMARY")
		}
		if cfg.Version != f.config.Version+1 {
			return fmt.Errorf("version %d is not greater than %d", cfg.Version, f.config.Version)
		}
		f.config = &cfg
		return f.reply(bson.M{"ok": 1}, result)
	}
	return fmt.Errorf("no such command: %s", name)
}

func (f *fakeDB) count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.commands {
		if c == name {
			n++
		}
	}
	return n
}
