package rsctx

import (
	"os"

	"github.com/pborman/uuid"
)

// InstanceID identifies this configurator process. It is written as the
// value of the coordination markers this process creates.
var InstanceID = uuid.NewRandom()

// InstanceName returns a human readable identity: the hostname and the
// instance id.
func InstanceName() string {
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}
	return hostname + "/" + InstanceID.String()
}
