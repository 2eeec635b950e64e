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

package actor

import (
	"sync"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"go.uber.org/atomic"

	"github.com/actorgrid/actorgrid/log"
	"github.com/actorgrid/actorgrid/supervisor"
)

const (
	idle int32 = iota
	busy
)

// cell is the system's record of one actor.
//
// mu is held while a message is processed and during every lifecycle
// operation that runs hooks, so hooks and Receive never overlap.
// processing guards the dispatcher: at most one drain is scheduled at a time.
type cell struct {
	id        string
	actorType string
	params    map[string]any
	factory   Factory
	ref       *Ref

	mu    sync.Mutex
	actor Actor

	state      *atomic.Int32
	processing *atomic.Int32

	mailbox    Mailbox
	supervisor *supervisor.Supervisor
	logger     log.Logger

	watchers mapset.Set[string]
	watching mapset.Set[string]

	processed *atomic.Uint64
	failures  *atomic.Uint64
	restarts  *atomic.Uint64
	lastError *atomic.Error
	createdAt time.Time
}

func newCell(system *System, id, actorType string, params map[string]any, factory Factory, instance Actor, mailbox Mailbox, sup *supervisor.Supervisor) *cell {
	c := &cell{
		id:         id,
		actorType:  actorType,
		params:     params,
		factory:    factory,
		actor:      instance,
		state:      atomic.NewInt32(int32(Created)),
		processing: atomic.NewInt32(idle),
		mailbox:    mailbox,
		supervisor: sup,
		logger:     system.logger.With(log.FieldActor, id, log.FieldActorType, actorType),
		watchers:   mapset.NewSet[string](),
		watching:   mapset.NewSet[string](),
		processed:  atomic.NewUint64(0),
		failures:   atomic.NewUint64(0),
		restarts:   atomic.NewUint64(0),
		lastError:  atomic.NewError(nil),
		createdAt:  time.Now().UTC(),
	}
	c.ref = &Ref{id: id, actorType: actorType, system: system, cell: c}
	return c
}

// State returns the current lifecycle state.
func (c *cell) State() State {
	return State(c.state.Load())
}

// transition moves to next when the lifecycle allows it from the current state.
func (c *cell) transition(next State) (State, bool) {
	for {
		current := c.State()
		if !current.CanTransitionTo(next) {
			return current, false
		}
		if c.state.CompareAndSwap(int32(current), int32(next)) {
			return current, true
		}
	}
}

// force sets the state regardless of the lifecycle table and returns the previous one.
func (c *cell) force(next State) State {
	return State(c.state.Swap(int32(next)))
}

// ActorStats is a snapshot of one actor.
type ActorStats struct {
	ID          string          `json:"actorId"`
	Type        string          `json:"actorType"`
	State       State           `json:"state"`
	MailboxSize int64           `json:"mailboxSize"`
	Mailbox     MailboxCounters `json:"mailbox"`
	Processed   uint64          `json:"processed"`
	Failures    uint64          `json:"failures"`
	Restarts    uint64          `json:"restarts"`
	Watchers    int             `json:"watchers"`
	LastError   string          `json:"lastError,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
}

func (c *cell) stats() ActorStats {
	var lastError string
	if err := c.lastError.Load(); err != nil {
		lastError = err.Error()
	}
	return ActorStats{
		ID:          c.id,
		Type:        c.actorType,
		State:       c.State(),
		MailboxSize: c.mailbox.Len(),
		Mailbox:     c.mailbox.Counters(),
		Processed:   c.processed.Load(),
		Failures:    c.failures.Load(),
		Restarts:    c.restarts.Load(),
		Watchers:    c.watchers.Cardinality(),
		LastError:   lastError,
		CreatedAt:   c.createdAt,
	}
}
