// Package discovery asks a node-discovery service which node-servers are active.
package discovery

import (
	"context"
	"dsatter-client/domain"
	"dsatter-client/errors"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

const (
	DefaultTimeout = 5 * time.Second
	DefaultURL     = "http://localhost:8080"

	maxResponseSize = 1 << 20
)

type activeNodesResponse struct {
	ActiveNodes []domain.Endpoint `json:"activeNodes"`
}

// Client performs the REST lookup of active node-servers.
type Client struct {
	log  *slog.Logger
	url  string
	http *http.Client
}

func NewClient(log *slog.Logger, url string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		log:  log,
		url:  url,
		http: &http.Client{Timeout: timeout},
	}
}

// ActiveNodes returns the endpoints listed under "activeNodes", in order.
// Transport failures, non 2xx answers and undecodable bodies all mean the
// discovery node is unreachable. A missing or empty list is ErrNoActiveNodes.
func (c *Client) ActiveNodes(ctx context.Context) ([]domain.Endpoint, error) {
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrDiscoveryUnreachable, err)
	}
	request.Header.Set("Accept", "application/json")

	response, err := c.http.Do(request)
	if err != nil {
		c.log.Debug("Discovery request failed", "url", c.url, "error", err)
		return nil, fmt.Errorf("%w: %v", errors.ErrDiscoveryUnreachable, err)
	}
	defer response.Body.Close()

	if response.StatusCode < 200 || response.StatusCode > 299 {
		return nil, fmt.Errorf("%w: status %d", errors.ErrDiscoveryUnreachable, response.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(response.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrDiscoveryUnreachable, err)
	}

	var nodes activeNodesResponse
	if err = json.Unmarshal(body, &nodes); err != nil {
		return nil, fmt.Errorf("%w: invalid response: %v", errors.ErrDiscoveryUnreachable, err)
	}
	if len(nodes.ActiveNodes) == 0 {
		return nil, errors.ErrNoActiveNodes
	}

	c.log.Debug("Discovery answered", "url", c.url, "activeNodes", len(nodes.ActiveNodes))
	return nodes.ActiveNodes, nil
}
