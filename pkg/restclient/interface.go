package restclient

import (
	"github.com/marathon-tools/mongodb-configurator/pkg/api"
)

// ConfiguratorClient contains methods for the configurator APIs
type ConfiguratorClient interface {
	Ping() error
	Health() (bool, error)
	Config() (api.ReplicaSetConfig, error)
	Status() (map[string]interface{}, error)
	ReleaseLock() (api.ReleaseLockResp, error)
	DeleteEventSubscription() (api.MessageResp, error)
	Endpoints() (api.ListEndpointsResp, error)
	Version() (api.VersionResp, error)
}

// This will ensure that Client always implements ConfiguratorClient interface
var _ ConfiguratorClient = &Client{}
