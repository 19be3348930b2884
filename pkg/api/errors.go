package api

// ErrorResp is the body of a failed request
type ErrorResp struct {
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}

// MessageResp is a plain confirmation message
type MessageResp struct {
	Message string `json:"message"`
}

// ReleaseLockResp is the response of the release lock endpoint
type ReleaseLockResp struct {
	Message  string `json:"message"`
	Released bool   `json:"released"`
}
