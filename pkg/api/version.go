package api

// VersionResp is the response for request sent to /version endpoint.
type VersionResp struct {
	Version string `json:"version"`
	GitSHA  string `json:"git-sha,omitempty"`
}
