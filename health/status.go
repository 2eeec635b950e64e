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

package health

import (
	"time"

	"github.com/actorgrid/actorgrid/registry"
)

// ServicesTopic is the event stream topic carrying ServiceDown and
// ServiceRecovered events.
const ServicesTopic = "actorgrid.services"

// Status is the last probe outcome recorded for a service.
type Status int

const (
	// StatusUnknown means the service has not been probed yet.
	StatusUnknown Status = iota
	// StatusUp means the last transition observed was towards healthy.
	StatusUp
	// StatusDown means the service failed a probe and its actors were marked unavailable.
	StatusDown
)

// String implements fmt.Stringer.
func (s Status) String() string {
	switch s {
	case StatusUp:
		return "UP"
	case StatusDown:
		return "DOWN"
	default:
		return "UNKNOWN"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. Unknown names decode
// to StatusUnknown.
func (s *Status) UnmarshalText(text []byte) error {
	switch string(text) {
	case "UP":
		*s = StatusUp
	case "DOWN":
		*s = StatusDown
	default:
		*s = StatusUnknown
	}
	return nil
}

// ServiceStatus is the monitor view of one service.
type ServiceStatus struct {
	ServiceID           string    `json:"serviceId"`
	Status              Status    `json:"status"`
	LastProbe           time.Time `json:"lastProbe"`
	LastError           string    `json:"lastError,omitempty"`
	ConsecutiveFailures int       `json:"consecutiveFailures"`
	Stale               bool      `json:"stale"`
}

// ServiceDown is published once when a service goes from up to down.
type ServiceDown struct {
	ServiceID    string    `json:"serviceId"`
	ServiceURL   string    `json:"serviceUrl"`
	Cause        string    `json:"cause"`
	ActorsMarked int       `json:"actorsMarked"`
	At           time.Time `json:"at"`
}

// ServiceRecovered is published once when a down service answers a probe again.
//
// Reconciled is false when the actor list could not be fetched and the
// STOPPED actors were restored blindly; Restored then holds that count and
// Result is empty.
type ServiceRecovered struct {
	ServiceID  string                   `json:"serviceId"`
	ServiceURL string                   `json:"serviceUrl"`
	Reconciled bool                     `json:"reconciled"`
	Result     registry.ReconcileResult `json:"result"`
	Restored   int                      `json:"restored"`
	At         time.Time                `json:"at"`
}
