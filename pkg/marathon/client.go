// Package marathon implements the scheduler client used by the configurator:
// it lists the running tasks of the application and manages the event
// subscription through which scaling events are delivered.
package marathon

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/marathon-tools/mongodb-configurator/pkg/api"
	"github.com/marathon-tools/mongodb-configurator/pkg/backoff"
	cerrors "github.com/marathon-tools/mongodb-configurator/pkg/errors"
	"github.com/marathon-tools/mongodb-configurator/pkg/restclient"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

const (
	defaultTimeout     = 10 * time.Second
	defaultMaxAttempts = 5
	eventsPath         = "/events"
)

// Client talks to the scheduler REST API
type Client struct {
	baseURL     string
	httpClient  *http.Client
	maxAttempts int
	newBackOff  func() *backoff.BackOff
	logger      log.FieldLogger
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient sets the http.Client used for requests
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithRetry sets the number of attempts made for each call and the backoff
// between attempts
func WithRetry(maxAttempts int, newBackOff func() *backoff.BackOff) Option {
	return func(c *Client) {
		c.maxAttempts = maxAttempts
		if newBackOff != nil {
			c.newBackOff = newBackOff
		}
	}
}

// New returns a scheduler client for the given base URL. A URL without a
// scheme is assumed to be plain http.
func New(baseURL string, opts ...Option) *Client {
	if !strings.Contains(baseURL, "://") {
		baseURL = "http://" + baseURL
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout:   defaultTimeout,
			Transport: restclient.NewDebugRoundTripper(http.DefaultTransport),
		},
		maxAttempts: defaultMaxAttempts,
		newBackOff:  backoff.Default,
		logger:      log.WithField("component", "marathon"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CallbackURL returns the webhook URL of a configurator reachable at host:port
func CallbackURL(host string, port int) string {
	return "http://" + host + ":" + strconv.Itoa(port) + eventsPath
}

// AppTasks returns the currently running tasks of the given application
func (c *Client) AppTasks(ctx context.Context, appID string) ([]api.Task, error) {
	var resp api.TasksResp
	err := c.do(ctx, http.MethodGet, "/v2/apps"+appID+"/tasks", &resp)
	if err != nil {
		return nil, cerrors.E(cerrors.SchedulerUnavailable, "get app tasks", err)
	}
	c.logger.WithFields(log.Fields{
		"app":   appID,
		"tasks": len(resp.Tasks),
	}).Debug("fetched app tasks")
	return resp.Tasks, nil
}

// Subscribe registers callbackURL as a receiver of scheduler events
func (c *Client) Subscribe(ctx context.Context, callbackURL string) error {
	var resp api.SubscriptionResp
	err := c.do(ctx, http.MethodPost, subscriptionPath(callbackURL), &resp)
	if err != nil {
		return cerrors.E(cerrors.SchedulerUnavailable, "subscribe", err)
	}
	c.logger.WithField("callback", callbackURL).Info("registered event subscription")
	return nil
}

// Unsubscribe removes callbackURL from the receivers of scheduler events.
// The scheduler confirms with an unsubscribe_event, which the caller can
// check on the returned response.
func (c *Client) Unsubscribe(ctx context.Context, callbackURL string) (api.SubscriptionResp, error) {
	var resp api.SubscriptionResp
	err := c.do(ctx, http.MethodDelete, subscriptionPath(callbackURL), &resp)
	if err != nil {
		return resp, cerrors.E(cerrors.SchedulerUnavailable, "unsubscribe", err)
	}
	c.logger.WithFields(log.Fields{
		"callback":  callbackURL,
		"eventType": resp.EventType,
	}).Info("removed event subscription")
	return resp, nil
}

func subscriptionPath(callbackURL string) string {
	return "/v2/eventSubscriptions?callbackUrl=" + url.QueryEscape(callbackURL)
}

func (c *Client) do(ctx context.Context, method, path string, out interface{}) error {
	return backoff.Retry(ctx, c.newBackOff(), c.maxAttempts, func() error {
		err := c.doOnce(ctx, method, path, out)
		if err != nil {
			c.logger.WithError(err).WithFields(log.Fields{
				"method": method,
				"path":   path,
			}).Warn("scheduler request failed")
		}
		return err
	})
}

func (c *Client) doOnce(ctx context.Context, method, path string, out interface{}) error {
	req, err := http.NewRequest(method, c.baseURL+path, nil)
	if err != nil {
		return &backoff.Permanent{Err: err}
	}
	req = req.WithContext(ctx)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Wrapf(err, "%s %s", method, path)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrap(err, "failed to read response body")
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		err := errors.Wrapf(cerrors.ErrUnexpectedStatus, "%s %s: %d %s", method, path,
			resp.StatusCode, string(bytes.TrimSpace(body)))
		if resp.StatusCode >= 400 && resp.StatusCode < 500 {
			return &backoff.Permanent{Err: err}
		}
		return err
	}

	if out == nil || len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return &backoff.Permanent{Err: fmt.Errorf("failed to decode response of %s %s: %v", method, path, err)}
	}
	return nil
}
