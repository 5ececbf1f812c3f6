// Package relayclient is the HTTP Relay Allocator client.
package relayclient

import (
	"context"
	"net/http"
	"strings"

	"github.com/dkeye/Lobby/internal/adapters/api"
	"github.com/dkeye/Lobby/internal/core"
	"github.com/dkeye/Lobby/internal/domain"
)

type Client struct {
	api *api.Client
}

var _ core.RelayAllocator = (*Client)(nil)

func New(c *api.Client) *Client {
	return &Client{api: c}
}

func (c *Client) Allocate(ctx context.Context, maxConnections int) (*domain.Allocation, error) {
	if maxConnections < 1 {
		return nil, domain.NewOpError("allocate", domain.ErrInvalidArgument, "max connections must be positive")
	}
	var out domain.Allocation
	if err := c.api.Do(ctx, http.MethodPost, "/api/relay/allocations", api.AllocateRequest{MaxConnections: maxConnections}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Resolve(ctx context.Context, joinCode string) (*domain.ConnParams, error) {
	joinCode = strings.TrimSpace(joinCode)
	if joinCode == "" {
		return nil, domain.NewOpError("resolve", domain.ErrInvalidArgument, "empty join code")
	}
	var out domain.ConnParams
	if err := c.api.Do(ctx, http.MethodPost, "/api/relay/join", api.ResolveRequest{JoinCode: joinCode}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
