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

package breaker

import (
	"fmt"
	"time"
)

// Metrics is a snapshot of one breaker.
type Metrics struct {
	Name        string        `json:"name"`
	State       State         `json:"state"`
	Successes   uint64        `json:"successes"`
	Failures    uint64        `json:"failures"`
	Total       uint64        `json:"total"`
	FailureRate float64       `json:"failureRate"`
	Window      time.Duration `json:"window"`
	OpenUntil   time.Time     `json:"openUntil,omitzero"`
	LastFailure time.Time     `json:"lastFailure,omitzero"`
	LastSuccess time.Time     `json:"lastSuccess,omitzero"`
}

func (m Metrics) String() string {
	return fmt.Sprintf("name=%s state=%s total=%d success=%d fail=%d failRate=%.2f window=%s",
		m.Name, m.State, m.Total, m.Successes, m.Failures, m.FailureRate, m.Window)
}
