package restclient

import (
	"encoding/json"
	"net/http"

	"github.com/marathon-tools/mongodb-configurator/pkg/api"
)

// Ping checks that the configurator is online
func (c *Client) Ping() error {
	return c.get("/", http.StatusOK, nil)
}

// Health returns true when the configurator reports itself healthy
func (c *Client) Health() (bool, error) {
	err := c.get("/health", http.StatusOK, nil)
	if err == nil {
		return true, nil
	}
	if e, ok := err.(*UnexpectedStatusError); ok && e.Actual == http.StatusServiceUnavailable {
		return false, nil
	}
	return false, err
}

// Config returns the current replica set config
func (c *Client) Config() (api.ReplicaSetConfig, error) {
	var resp api.ReplicaSetConfig
	err := c.get("/config", http.StatusOK, &resp)
	return resp, err
}

// Status returns the replica set runtime status as reported by the database
func (c *Client) Status() (map[string]interface{}, error) {
	var resp map[string]interface{}
	err := c.get("/status", http.StatusOK, &resp)
	return resp, err
}

// ReleaseLock deletes the coordination markers of the configurator
func (c *Client) ReleaseLock() (api.ReleaseLockResp, error) {
	var resp api.ReleaseLockResp
	err := c.get("/releaseLock", http.StatusOK, &resp)
	return resp, err
}

// DeleteEventSubscription removes the scheduler event subscription. Only the
// primary's configurator acts on it.
func (c *Client) DeleteEventSubscription() (api.MessageResp, error) {
	var resp api.MessageResp
	err := c.del("/eventSubscription", http.StatusOK, &resp)
	return resp, err
}

// Endpoints lists the endpoints served by the configurator
func (c *Client) Endpoints() (api.ListEndpointsResp, error) {
	var resp api.ListEndpointsResp
	err := c.get("/endpoints", http.StatusOK, &resp)
	return resp, err
}

// Version returns the version of the configurator
func (c *Client) Version() (api.VersionResp, error) {
	var resp api.VersionResp
	err := c.get("/version", http.StatusOK, &resp)
	return resp, err
}

// RawJSON pretty prints v, used for --json output
func RawJSON(v interface{}) (string, error) {
	b, err := json.MarshalIndent(v, "", "  ")
	return string(b), err
}
