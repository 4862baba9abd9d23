package domain

import (
	"dsatter-client/errors"
	"encoding/json"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
)

// Endpoint is one node-server candidate for a connect attempt.
type Endpoint struct {
	Address string `json:"address"`
	Port    int    `json:"port"`
}

// URL builds the websocket URL of the endpoint.
func (e Endpoint) URL() string {
	return "ws://" + net.JoinHostPort(e.Address, strconv.Itoa(e.Port))
}

// UnmarshalJSON accepts the port either as a number or as a numeric string,
// discovery nodes have been seen sending both.
func (e *Endpoint) UnmarshalJSON(data []byte) error {
	var raw struct {
		Address string      `json:"address"`
		Port    json.Number `json:"port"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	port, err := strconv.Atoi(raw.Port.String())
	if err != nil {
		return fmt.Errorf("invalid port %q: %w", raw.Port, err)
	}
	e.Address, e.Port = raw.Address, port
	return nil
}

// ParseEndpoint extracts the address and port of an explicitly supplied
// node-server URL. The scheme is optional, the port is not.
func ParseEndpoint(raw string) (Endpoint, error) {
	raw = strings.TrimSpace(raw)
	if !strings.Contains(raw, "://") {
		raw = "ws://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return Endpoint{}, fmt.Errorf("%w: %v", errors.ErrInvalidEndpoint, err)
	}
	if u.Hostname() == "" {
		return Endpoint{}, fmt.Errorf("%w: missing host in %q", errors.ErrInvalidEndpoint, raw)
	}
	port, err := strconv.Atoi(u.Port())
	if err != nil || port <= 0 || port > 65535 {
		return Endpoint{}, fmt.Errorf("%w: missing or invalid port in %q", errors.ErrInvalidEndpoint, raw)
	}
	return Endpoint{Address: u.Hostname(), Port: port}, nil
}
