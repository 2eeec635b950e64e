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

package http

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/travisjeffery/go-dynaport"
	"golang.org/x/net/http2"

	"github.com/actorgrid/actorgrid/breaker"
	gerrors "github.com/actorgrid/actorgrid/errors"
	"github.com/actorgrid/actorgrid/log"
)

func TestNewClient(t *testing.T) {
	cl := NewClient(0)
	assert.Equal(t, DefaultClientTimeout, cl.Timeout)
	require.IsType(t, new(http2.Transport), cl.Transport)
	tr := cl.Transport.(*http2.Transport)
	assert.True(t, tr.AllowHTTP)
	assert.Equal(t, 10*time.Second, tr.PingTimeout)
	assert.Equal(t, 20*time.Second, tr.ReadIdleTimeout)
}

func TestURL(t *testing.T) {
	assert.Equal(t, "http://127.0.0.1:123", URL("127.0.0.1", 123))
}

func TestServerSpeaksH2C(t *testing.T) {
	ctx := context.Background()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /ping", func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, map[string]int{"proto": r.ProtoMajor})
	})

	port := dynaport.Get(1)[0]
	server := NewServer(fmt.Sprintf("127.0.0.1:%d", port), mux, log.DiscardLogger)
	require.NoError(t, server.Start(ctx))
	t.Cleanup(func() { require.NoError(t, server.Shutdown(ctx)) })
	assert.Equal(t, fmt.Sprintf("127.0.0.1:%d", port), server.Addr())

	resp, err := NewClient(time.Second).Get(URL("127.0.0.1", port) + "/ping")
	require.NoError(t, err)
	var got map[string]int
	require.NoError(t, DecodeResponse(resp, &got))
	assert.Equal(t, 2, got["proto"])

	resp, err = http.Get(URL("127.0.0.1", port) + "/ping")
	require.NoError(t, err)
	require.NoError(t, DecodeResponse(resp, &got))
	assert.Equal(t, 1, got["proto"])
}

func TestStatusOf(t *testing.T) {
	cases := map[error]int{
		nil:                                        http.StatusOK,
		gerrors.NewErrActorNotFound("a"):           http.StatusNotFound,
		gerrors.NewErrServiceNotFound("s"):         http.StatusNotFound,
		gerrors.NewErrActorAlreadyExists("a"):      http.StatusConflict,
		gerrors.ErrRequestTimeout:                  http.StatusGatewayTimeout,
		breaker.ErrOpen:                            http.StatusServiceUnavailable,
		gerrors.NewErrServiceUnavailable("s"):      http.StatusServiceUnavailable,
		gerrors.NewErrUnsupportedActorType("Nope"): http.StatusBadRequest,
		errors.New("boom"):                         http.StatusInternalServerError,
	}
	for err, status := range cases {
		assert.Equal(t, status, StatusOf(err), "%v", err)
	}
}

func TestJSONHelpers(t *testing.T) {
	t.Run("read malformed body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("{"))
		var v map[string]any
		require.ErrorIs(t, ReadJSON(req, &v), gerrors.ErrInvalidMessage)
	})

	t.Run("error round trip", func(t *testing.T) {
		rec := httptest.NewRecorder()
		WriteError(rec, gerrors.NewErrActorNotFound("ghost"))
		resp := rec.Result()
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)

		err := DecodeResponse(resp, nil)
		var statusErr *StatusError
		require.ErrorAs(t, err, &statusErr)
		assert.Equal(t, http.StatusNotFound, statusErr.Code)
		assert.Contains(t, statusErr.Message, "ghost")
		require.ErrorIs(t, err, gerrors.ErrActorNotFound)
	})

	t.Run("non json error body", func(t *testing.T) {
		resp := &http.Response{StatusCode: http.StatusBadGateway, Body: io.NopCloser(bytes.NewBufferString("oops"))}
		err := DecodeResponse(resp, nil)
		require.ErrorIs(t, err, gerrors.ErrRemoteCall)
		assert.Contains(t, err.Error(), "Bad Gateway")
	})
}
