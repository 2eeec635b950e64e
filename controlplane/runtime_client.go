// MIT License
//
// Copyright (c) 2022-2026 GoAkt Team
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

package controlplane

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/flowchartsman/retry"

	"github.com/actorgrid/actorgrid/breaker"
	gerrors "github.com/actorgrid/actorgrid/errors"
	"github.com/actorgrid/actorgrid/health"
	ihttp "github.com/actorgrid/actorgrid/internal/http"
	"github.com/actorgrid/actorgrid/node"
	"github.com/actorgrid/actorgrid/registry"
)

// RuntimeClient calls the /runtime surface of registered services.
//
// Calls other than health probes go through a circuit breaker per service.
// Answers about the request itself (4xx and 504) do not count as breaker
// failures. Idempotent reads are retried with backoff.
type RuntimeClient struct {
	client       *http.Client
	breakers     *breaker.Group
	healthPath   string
	readAttempts int
}

var (
	_ health.Prober      = (*RuntimeClient)(nil)
	_ health.ActorLister = (*RuntimeClient)(nil)
)

// NewRuntimeClient creates a RuntimeClient. Breaker options are shared by
// every per service breaker.
func NewRuntimeClient(client *http.Client, healthPath string, breakerOpts ...breaker.Option) *RuntimeClient {
	if client == nil {
		client = ihttp.NewClient(ihttp.DefaultClientTimeout)
	}
	if healthPath == "" {
		healthPath = node.PathHealth
	}
	return &RuntimeClient{
		client:       client,
		breakers:     breaker.NewGroup(breakerOpts...),
		healthPath:   healthPath,
		readAttempts: 3,
	}
}

// Breakers returns the per service breakers.
func (c *RuntimeClient) Breakers() *breaker.Group { return c.breakers }

// Probe implements health.Prober with a GET on the health path.
func (c *RuntimeClient) Probe(ctx context.Context, service registry.ServiceInfo) error {
	return c.do(ctx, service, http.MethodGet, c.healthPath, nil, nil)
}

// ListActors implements health.ActorLister.
func (c *RuntimeClient) ListActors(ctx context.Context, service registry.ServiceInfo) ([]string, error) {
	var ids []string
	err := c.read(ctx, service, node.PathActors, &ids)
	return ids, err
}

// CreateActor asks the service to spawn an actor.
func (c *RuntimeClient) CreateActor(ctx context.Context, service registry.ServiceInfo, req node.CreateActorRequest) (node.CreateActorResponse, error) {
	var resp node.CreateActorResponse
	err := c.protect(ctx, service, func(ctx context.Context) error {
		return c.do(ctx, service, http.MethodPost, node.PathCreateActor, req, &resp)
	})
	return resp, err
}

// Tell forwards a fire and forget message.
func (c *RuntimeClient) Tell(ctx context.Context, service registry.ServiceInfo, req node.TellRequest) error {
	return c.protect(ctx, service, func(ctx context.Context) error {
		return c.do(ctx, service, http.MethodPost, node.PathTell, req, nil)
	})
}

// Ask forwards a request and returns the reply.
func (c *RuntimeClient) Ask(ctx context.Context, service registry.ServiceInfo, req node.AskRequest) (any, error) {
	var resp node.AskResponse
	err := c.protect(ctx, service, func(ctx context.Context) error {
		return c.do(ctx, service, http.MethodPost, node.PathAsk, req, &resp)
	})
	return resp.Reply, err
}

// StopActor stops an actor on the service.
func (c *RuntimeClient) StopActor(ctx context.Context, service registry.ServiceInfo, actorID string) error {
	return c.protect(ctx, service, func(ctx context.Context) error {
		return c.do(ctx, service, http.MethodDelete, actorPath(actorID, ""), nil, nil)
	})
}

// RestartActor restarts an actor on the service.
func (c *RuntimeClient) RestartActor(ctx context.Context, service registry.ServiceInfo, actorID string) (node.ActorHealth, error) {
	var resp node.ActorHealth
	err := c.protect(ctx, service, func(ctx context.Context) error {
		return c.do(ctx, service, http.MethodPost, actorPath(actorID, "/restart"), nil, &resp)
	})
	return resp, err
}

// ActorHealth returns the runtime view of an actor.
func (c *RuntimeClient) ActorHealth(ctx context.Context, service registry.ServiceInfo, actorID string) (node.ActorHealth, error) {
	var resp node.ActorHealth
	err := c.read(ctx, service, actorPath(actorID, "/health"), &resp)
	return resp, err
}

// read runs an idempotent GET through the breaker with retries.
func (c *RuntimeClient) read(ctx context.Context, service registry.ServiceInfo, path string, out any) error {
	retrier := retry.NewRetrier(c.readAttempts, 50*time.Millisecond, 500*time.Millisecond)
	return retrier.RunContext(ctx, func(ctx context.Context) error {
		err := c.protect(ctx, service, func(ctx context.Context) error {
			return c.do(ctx, service, http.MethodGet, path, nil, out)
		})
		if isRequestError(err) || errors.Is(err, breaker.ErrOpen) {
			return retry.Stop(err)
		}
		return err
	})
}

// protect runs fn in the breaker of the service.
func (c *RuntimeClient) protect(ctx context.Context, service registry.ServiceInfo, fn func(context.Context) error) error {
	value, err := c.breakers.Get(service.ID).Execute(ctx, func(ctx context.Context) (any, error) {
		err := fn(ctx)
		if isRequestError(err) {
			return err, nil
		}
		return nil, err
	})
	if err != nil {
		var statusErr *ihttp.StatusError
		if errors.Is(err, breaker.ErrOpen) || errors.As(err, &statusErr) {
			return err
		}
		return fmt.Errorf("%w: %w", gerrors.NewErrServiceUnavailable(service.ID), err)
	}
	if requestErr, ok := value.(error); ok {
		return requestErr
	}
	return nil
}

func (c *RuntimeClient) do(ctx context.Context, service registry.ServiceInfo, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return gerrors.NewErrInvalidMessage(err)
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, service.URL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	return ihttp.DecodeResponse(resp, out)
}

func actorPath(actorID, suffix string) string {
	return node.PathActors + "/" + url.PathEscape(actorID) + suffix
}

// isRequestError reports answers that blame the request, not the service.
func isRequestError(err error) bool {
	var statusErr *ihttp.StatusError
	if !errors.As(err, &statusErr) {
		return false
	}
	return statusErr.Code == http.StatusGatewayTimeout || (statusErr.Code >= 400 && statusErr.Code < 500)
}
