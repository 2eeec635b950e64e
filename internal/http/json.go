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
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/actorgrid/actorgrid/breaker"
	gerrors "github.com/actorgrid/actorgrid/errors"
)

// MaxBodySize caps request and response bodies read by the helpers.
const MaxBodySize = 4 << 20

// ErrorResponse is the body of every non 2xx answer.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  int    `json:"code"`
}

// StatusOf maps an error to an HTTP status code.
func StatusOf(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, gerrors.ErrActorNotFound), errors.Is(err, gerrors.ErrServiceNotFound):
		return http.StatusNotFound
	case errors.Is(err, gerrors.ErrActorAlreadyExists):
		return http.StatusConflict
	case errors.Is(err, gerrors.ErrRequestTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, breaker.ErrOpen), errors.Is(err, gerrors.ErrServiceUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, gerrors.ErrUnsupportedActorType),
		errors.Is(err, gerrors.ErrInvalidMessage),
		errors.Is(err, gerrors.ErrInvalidActorParams),
		errors.Is(err, gerrors.ErrInvalidTimeout),
		errors.Is(err, gerrors.ErrInvalidState):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// WriteJSON writes v with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

// WriteError writes err as an ErrorResponse with the status StatusOf picks.
func WriteError(w http.ResponseWriter, err error) {
	status := StatusOf(err)
	WriteJSON(w, status, ErrorResponse{Error: err.Error(), Code: status})
}

// ReadJSON decodes the request body into v. Decoding failures are
// ErrInvalidMessage errors.
func ReadJSON(r *http.Request, v any) error {
	decoder := json.NewDecoder(io.LimitReader(r.Body, MaxBodySize))
	if err := decoder.Decode(v); err != nil {
		return gerrors.NewErrInvalidMessage(fmt.Errorf("malformed body: %w", err))
	}
	return nil
}

// StatusError is returned by clients for a non 2xx answer.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("http %d: %s", e.Code, e.Message)
}

// Unwrap maps the status back to the sentinel the server started from.
func (e *StatusError) Unwrap() error {
	switch e.Code {
	case http.StatusNotFound:
		return gerrors.ErrActorNotFound
	case http.StatusGatewayTimeout:
		return gerrors.ErrRequestTimeout
	case http.StatusServiceUnavailable:
		return gerrors.ErrServiceUnavailable
	case http.StatusBadRequest:
		return gerrors.ErrInvalidMessage
	case http.StatusConflict:
		return gerrors.ErrActorAlreadyExists
	default:
		return gerrors.ErrRemoteCall
	}
}

// DecodeResponse reads a response. A 2xx body is decoded into v when v is
// not nil, any other status becomes a *StatusError.
func DecodeResponse(resp *http.Response, v any) error {
	defer resp.Body.Close()
	body := io.LimitReader(resp.Body, MaxBodySize)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var payload ErrorResponse
		if err := json.NewDecoder(body).Decode(&payload); err != nil || payload.Error == "" {
			payload.Error = http.StatusText(resp.StatusCode)
		}
		return &StatusError{Code: resp.StatusCode, Message: payload.Error}
	}
	if v == nil {
		_, _ = io.Copy(io.Discard, body)
		return nil
	}
	if err := json.NewDecoder(body).Decode(v); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}
