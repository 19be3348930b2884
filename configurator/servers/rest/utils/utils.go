// Package utils provides utility functions for working with the configurator
// REST server
package utils

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/marathon-tools/mongodb-configurator/configurator/rsctx"
	"github.com/marathon-tools/mongodb-configurator/pkg/api"
)

// errorMessage is the message of every error response
const errorMessage = "An error occurred"

// UnmarshalRequest unmarshals JSON in `r` into `v`
func UnmarshalRequest(r *http.Request, v interface{}) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

// SendHTTPResponse to send response back to the client
func SendHTTPResponse(ctx context.Context, w http.ResponseWriter, statusCode int, rsp interface{}) {
	if rsp != nil {
		// Do not include content-type header for responses such as 204
		// which as per RFC, should not have a response body.
		w.Header().Set("Content-Type", "application/json; charset=UTF-8")
	}
	// Maintain the order of these calls that modify http.ResponseWriter
	// object.
	w.WriteHeader(statusCode)
	if rsp != nil {
		if e := json.NewEncoder(w).Encode(rsp); e != nil {
			rsctx.GetReqLogger(ctx).WithError(e).Error("failed to send the response")
		}
	}
}

// SendJSON writes an already encoded JSON body
func SendJSON(ctx context.Context, w http.ResponseWriter, statusCode int, body []byte) {
	w.Header().Set("Content-Type", "application/json; charset=UTF-8")
	w.WriteHeader(statusCode)
	if _, err := w.Write(body); err != nil {
		rsctx.GetReqLogger(ctx).WithError(err).Error("failed to send the response")
	}
}

// SendText writes a plain text body
func SendText(ctx context.Context, w http.ResponseWriter, statusCode int, text string) {
	w.Header().Set("Content-Type", "text/plain; charset=UTF-8")
	w.WriteHeader(statusCode)
	if _, err := w.Write([]byte(text)); err != nil {
		rsctx.GetReqLogger(ctx).WithError(err).Error("failed to send the response")
	}
}

// SendHTTPError is to report error back to the client
func SendHTTPError(ctx context.Context, w http.ResponseWriter, statusCode int, err error) {
	resp := api.ErrorResp{Message: errorMessage}
	if err != nil {
		resp.Error = err.Error()
	}
	SendHTTPResponse(ctx, w, statusCode, resp)
}
