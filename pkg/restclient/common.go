// Package restclient implements a client for the configurator REST API
package restclient

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/marathon-tools/mongodb-configurator/pkg/api"
)

// Client is a configurator REST client
type Client struct {
	baseURL     string
	httpClient  *http.Client
	lastErrResp *http.Response
}

// ClientOption configures a Client
type ClientOption func(*Client) error

// WithBaseURL sets the configurator endpoint, e.g. http://10.0.0.5:3000
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) error {
		c.baseURL = strings.TrimRight(baseURL, "/")
		return nil
	}
}

// WithHTTPClient sets the underlying http.Client
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) error {
		c.httpClient = hc
		return nil
	}
}

// WithTimeOut sets the request timeout
func WithTimeOut(timeout time.Duration) ClientOption {
	return func(c *Client) error {
		c.httpClient.Timeout = timeout
		return nil
	}
}

// WithTLSConfig configures the client to talk TLS using opts
func WithTLSConfig(opts *TLSOptions) ClientOption {
	return func(c *Client) error {
		tlsConfig, err := NewTLSConfig(opts)
		if err != nil {
			return err
		}
		c.httpClient.Transport = &http.Transport{TLSClientConfig: tlsConfig}
		return nil
	}
}

// WithDebug dumps requests and responses at debug log level
func WithDebug() ClientOption {
	return func(c *Client) error {
		rt := c.httpClient.Transport
		if rt == nil {
			rt = http.DefaultTransport
		}
		c.httpClient.Transport = NewDebugRoundTripper(rt)
		return nil
	}
}

// NewClientWithOpts returns a Client configured by opts
func NewClientWithOpts(opts ...ClientOption) (*Client, error) {
	c := &Client{
		baseURL:    "http://127.0.0.1:3000",
		httpClient: &http.Client{},
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return c, err
		}
	}
	return c, nil
}

// LastErrorResponse returns the last response with an unexpected status
func (c *Client) LastErrorResponse() *http.Response {
	return c.lastErrResp
}

func parseHTTPError(body []byte) string {
	var errResp api.ErrorResp
	if err := json.Unmarshal(body, &errResp); err != nil {
		return strings.TrimSpace(string(body))
	}
	if errResp.Error == "" {
		return errResp.Message
	}
	return errResp.Message + ": " + errResp.Error
}

func (c *Client) do(method string, url string, data interface{}, expectStatusCode int, output interface{}) error {
	url = fmt.Sprintf("%s%s", c.baseURL, url)

	var body io.Reader
	if data != nil {
		reqBody, err := json.Marshal(data)
		if err != nil {
			return err
		}
		body = bytes.NewReader(reqBody)
	}

	req, err := http.NewRequest(method, url, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode != expectStatusCode {
		c.lastErrResp = resp
		return &UnexpectedStatusError{expectStatusCode, resp.StatusCode, parseHTTPError(respBody)}
	}

	if output == nil || len(respBody) == 0 {
		return nil
	}
	switch o := output.(type) {
	case *string:
		*o = string(respBody)
		return nil
	default:
		return json.Unmarshal(respBody, output)
	}
}

func (c *Client) get(url string, expectStatusCode int, output interface{}) error {
	return c.do(http.MethodGet, url, nil, expectStatusCode, output)
}

func (c *Client) del(url string, expectStatusCode int, output interface{}) error {
	return c.do(http.MethodDelete, url, nil, expectStatusCode, output)
}
