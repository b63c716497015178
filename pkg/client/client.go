package client

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"

	"github.com/cuemby/rancher-deploy/pkg/log"
	"github.com/cuemby/rancher-deploy/pkg/metrics"
	"github.com/cuemby/rancher-deploy/pkg/types"
)

const (
	apiVersionPath = "/v2-beta/projects/"
	userAgent      = "rancher-deploy"

	// DefaultTimeout bounds a single API request
	DefaultTimeout = 30 * time.Second
)

// Config holds the connection settings of a Rancher environment
type Config struct {
	URL       string
	AccessKey string
	SecretKey string
	ProjectID string
	Timeout   time.Duration
}

// Client talks to the Rancher v2-beta API of a single project
type Client struct {
	HTTPClient *resty.Client
	logger     zerolog.Logger
}

// New creates a client scoped to the project of cfg
func New(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	c := &Client{
		logger: log.WithComponent("client"),
	}

	c.HTTPClient = resty.New().
		SetBaseURL(BaseURL(cfg.URL, cfg.ProjectID)).
		SetBasicAuth(cfg.AccessKey, cfg.SecretKey).
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", userAgent).
		SetTimeout(timeout).
		OnAfterResponse(c.observe).
		OnError(c.observeError)

	return c
}

// BaseURL returns the API root of a project
func BaseURL(rancherURL, projectID string) string {
	return strings.TrimRight(rancherURL, "/") + apiVersionPath + projectID
}

// FindStacks lists the stacks with the given name
func (c *Client) FindStacks(ctx context.Context, name string) (*types.Collection[types.Stack], error) {
	result := &types.Collection[types.Stack]{}
	query := map[string]string{"name": name}
	if err := c.do(ctx, http.MethodGet, "/stacks", query, nil, result); err != nil {
		return nil, err
	}
	return result, nil
}

// FindServices lists the services of a stack with the given name
func (c *Client) FindServices(ctx context.Context, name, stackID string) (*types.Collection[types.Service], error) {
	result := &types.Collection[types.Service]{}
	query := map[string]string{"name": name, "stackId": stackID}
	if err := c.do(ctx, http.MethodGet, "/services", query, nil, result); err != nil {
		return nil, err
	}
	return result, nil
}

// CreatePullTask starts pulling an image on the hosts of the environment
func (c *Client) CreatePullTask(ctx context.Context, req *types.PullTaskRequest) (*types.PullTask, error) {
	result := &types.PullTask{}
	if err := c.do(ctx, http.MethodPost, "/pulltasks", nil, req, result); err != nil {
		return nil, err
	}
	return result, nil
}

// UpgradeService starts an upgrade of a service with a new launch configuration
func (c *Client) UpgradeService(ctx context.Context, serviceID string, req *types.UpgradeRequest) (*types.Service, error) {
	return c.serviceAction(ctx, serviceID, "upgrade", req)
}

// FinishUpgrade completes an upgrade, removing the previous containers
func (c *Client) FinishUpgrade(ctx context.Context, serviceID string) (*types.Service, error) {
	return c.serviceAction(ctx, serviceID, "finishupgrade", nil)
}

// GetResource fetches a single resource of any collection
func (c *Client) GetResource(ctx context.Context, collection, id string) (*types.Resource, error) {
	result := &types.Resource{}
	if err := c.do(ctx, http.MethodGet, "/"+collection+"/"+id, nil, nil, result); err != nil {
		return nil, err
	}
	return result, nil
}

func (c *Client) serviceAction(ctx context.Context, serviceID, action string, body interface{}) (*types.Service, error) {
	result := &types.Service{}
	query := map[string]string{"action": action}
	if err := c.do(ctx, http.MethodPost, "/service/"+serviceID, query, body, result); err != nil {
		return nil, err
	}
	return result, nil
}

func (c *Client) do(ctx context.Context, method, path string, query map[string]string, body, result interface{}) error {
	request := c.HTTPClient.R().
		SetContext(ctx).
		SetError(&ErrorResponse{})

	if query != nil {
		request.SetQueryParams(query)
	}
	if body != nil {
		request.SetBody(body)
	}
	if result != nil {
		request.SetResult(result)
	}

	resp, err := request.Execute(method, path)
	if err != nil {
		return &TransportError{Method: method, URL: c.HTTPClient.BaseURL + path, Err: err}
	}
	if !resp.IsSuccess() {
		return handleError(resp)
	}
	return nil
}

func handleError(resp *resty.Response) error {
	te := &TransportError{
		Method:     resp.Request.Method,
		URL:        resp.Request.URL,
		StatusCode: resp.StatusCode(),
	}

	if e, ok := resp.Error().(*ErrorResponse); ok && e.Message != "" {
		te.Body = e.Message
	} else {
		te.Body = strings.TrimSpace(resp.String())
	}

	return te
}

func (c *Client) observe(_ *resty.Client, resp *resty.Response) error {
	method := resp.Request.Method
	metrics.APIRequestsTotal.WithLabelValues(method, strconv.Itoa(resp.StatusCode())).Inc()
	metrics.APIRequestDuration.WithLabelValues(method).Observe(resp.Time().Seconds())

	c.logger.Debug().
		Str("method", method).
		Str("url", resp.Request.URL).
		Int("status", resp.StatusCode()).
		Dur("duration", resp.Time()).
		Msg("Rancher API request")
	return nil
}

func (c *Client) observeError(req *resty.Request, err error) {
	metrics.APIRequestsTotal.WithLabelValues(req.Method, "error").Inc()
	c.logger.Debug().Err(err).Str("method", req.Method).Str("url", req.URL).Msg("Rancher API request failed")
}
