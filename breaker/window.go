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

import "time"

type tally struct {
	successes uint64
	failures  uint64
}

// window counts outcomes over a rolling period split in fixed slots. Each
// ring position remembers the absolute slot it counts for; a position whose
// slot fell out of the period is reused from zero. Callers serialize access.
type window struct {
	slot   time.Duration
	counts []tally
	owners []int64
}

func newWindow(period time.Duration, slots int) *window {
	w := &window{
		slot:   period / time.Duration(slots),
		counts: make([]tally, slots),
		owners: make([]int64, slots),
	}
	w.reset()
	return w
}

func (w *window) position(now time.Time) (int, int64) {
	abs := now.UnixNano() / int64(w.slot)
	return int(abs % int64(len(w.counts))), abs
}

func (w *window) record(now time.Time, success bool) {
	i, abs := w.position(now)
	if w.owners[i] != abs {
		w.owners[i] = abs
		w.counts[i] = tally{}
	}
	if success {
		w.counts[i].successes++
	} else {
		w.counts[i].failures++
	}
}

func (w *window) totals(now time.Time) (successes, failures uint64) {
	_, current := w.position(now)
	oldest := current - int64(len(w.counts)) + 1
	for i, owner := range w.owners {
		if owner >= oldest && owner <= current {
			successes += w.counts[i].successes
			failures += w.counts[i].failures
		}
	}
	return successes, failures
}

func (w *window) reset() {
	for i := range w.counts {
		w.counts[i] = tally{}
		w.owners[i] = -1
	}
}

func (w *window) period() time.Duration {
	return w.slot * time.Duration(len(w.counts))
}
