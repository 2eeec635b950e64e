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

package node

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	ihttp "github.com/actorgrid/actorgrid/internal/http"
)

// controlPlaneClient calls the service and actor endpoints of the control plane.
type controlPlaneClient struct {
	baseURL string
	client  *http.Client
}

func newControlPlaneClient(baseURL string, client *http.Client) *controlPlaneClient {
	return &controlPlaneClient{baseURL: strings.TrimSuffix(baseURL, "/"), client: client}
}

func (c *controlPlaneClient) register(ctx context.Context, serviceID, serviceURL string) error {
	query := url.Values{}
	query.Set("serviceId", serviceID)
	query.Set("serviceUrl", serviceURL)
	return c.post(ctx, "/api/v1/services/register?"+query.Encode(), nil)
}

func (c *controlPlaneClient) heartbeat(ctx context.Context, serviceID string) error {
	return c.post(ctx, "/api/v1/services/"+url.PathEscape(serviceID)+"/heartbeat", nil)
}

func (c *controlPlaneClient) reportState(ctx context.Context, actorID string, report StateReport) error {
	return c.post(ctx, "/api/v1/actors/"+url.PathEscape(actorID)+"/state", report)
}

func (c *controlPlaneClient) post(ctx context.Context, path string, body any) error {
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, reader)
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
	return ihttp.DecodeResponse(resp, nil)
}
