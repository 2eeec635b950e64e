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

package supervisor

import (
	"reflect"
	"sync"
	"time"

	"github.com/actorgrid/actorgrid/errors"
)

const (
	// DefaultMaxRetries is the number of failures tolerated within DefaultWindow.
	DefaultMaxRetries = 10
	// DefaultWindow is the sliding window the failures are counted in.
	DefaultWindow = time.Minute
)

// Directive defines the supervisor directive
//
// It represents the action taken when an actor fails while processing a message:
//
//   - StopDirective: stop the failing actor.
//   - ResumeDirective: keep the actor and continue with the next message.
//   - RestartDirective: restart the actor, reinitializing its state.
//   - EscalateDirective: hand the failure over to the system.
type Directive int

const (
	// StopDirective indicates that when an actor fails, the supervisor should immediately stop
	// the actor.
	StopDirective Directive = iota
	// ResumeDirective indicates that when an actor fails, the supervisor should resume the actor's
	// operation without restarting it.
	ResumeDirective
	// RestartDirective indicates that when an actor fails, the supervisor should restart the actor.
	// The actor reference is preserved, its state is not.
	RestartDirective
	// EscalateDirective indicates that the failure cannot be handled at the actor level.
	EscalateDirective
)

// String returns the string representation of the directive
func (d Directive) String() string {
	switch d {
	case StopDirective:
		return "Stop"
	case ResumeDirective:
		return "Resume"
	case RestartDirective:
		return "Restart"
	case EscalateDirective:
		return "Escalate"
	default:
		return ""
	}
}

// Decider picks a directive for a failure. Returning false defers to the
// error-type rules.
type Decider func(cause error, message any) (Directive, bool)

// SupervisorOption defines the various options to apply to a given Supervisor
type SupervisorOption func(*Supervisor)

// WithDirective sets the mapping between an error and a given directive
func WithDirective(err error, directive Directive) SupervisorOption {
	return func(s *Supervisor) {
		s.directives[errorType(err)] = directive
	}
}

// WithAnyErrorDirective sets the directive to apply to any error.
// It overrides every error-specific directive.
func WithAnyErrorDirective(directive Directive) SupervisorOption {
	return func(s *Supervisor) {
		s.directives[errorType(new(errors.AnyError))] = directive
	}
}

// WithDefaultDirective sets the directive used when no rule matches the error. Defaults to RestartDirective.
func WithDefaultDirective(directive Directive) SupervisorOption {
	return func(s *Supervisor) {
		s.defaultDirective = directive
	}
}

// WithRetry bounds the number of failures tolerated per actor within the sliding window.
// Once exceeded, the fallback directive is returned regardless of the rules.
func WithRetry(maxRetries uint32, window time.Duration) SupervisorOption {
	return func(s *Supervisor) {
		s.maxRetries = maxRetries
		s.window = window
	}
}

// WithFallbackDirective sets the directive forced once the retry budget is exhausted. Defaults to StopDirective.
func WithFallbackDirective(directive Directive) SupervisorOption {
	return func(s *Supervisor) {
		s.fallback = directive
	}
}

// WithDecider installs a custom decision function consulted before the error-type rules.
func WithDecider(decider Decider) SupervisorOption {
	return func(s *Supervisor) {
		s.decider = decider
	}
}

// WithClock overrides the clock used for the sliding window.
func WithClock(clock func() time.Time) SupervisorOption {
	return func(s *Supervisor) {
		s.clock = clock
	}
}

// Supervisor decides how the system reacts when an actor fails.
//
// Rules are keyed by the error's concrete type name (reflect.Type.String()) as
// provided by WithDirective. WithAnyErrorDirective becomes the sole rule.
// Failures are tracked per actor in a sliding window: when more than MaxRetries
// failures happen within Window the fallback directive is returned and the
// history of that actor is cleared.
//
// Supervisor methods are safe for concurrent use.
type Supervisor struct {
	mu sync.Mutex

	maxRetries       uint32
	window           time.Duration
	defaultDirective Directive
	fallback         Directive
	decider          Decider
	clock            func() time.Time

	directives map[string]Directive
	failures   map[string][]time.Time
}

// NewSupervisor creates a Supervisor with the default retry budget of 10 failures per minute,
// RestartDirective for unmatched errors and StopDirective once the budget is exhausted.
func NewSupervisor(opts ...SupervisorOption) *Supervisor {
	s := &Supervisor{
		maxRetries:       DefaultMaxRetries,
		window:           DefaultWindow,
		defaultDirective: RestartDirective,
		fallback:         StopDirective,
		clock:            time.Now,
		directives:       make(map[string]Directive),
		failures:         make(map[string][]time.Time),
	}

	for _, opt := range opts {
		opt(s)
	}

	// any error overrides all error types
	anyErr := errorType(new(errors.AnyError))
	if directive, ok := s.directives[anyErr]; ok {
		s.directives = map[string]Directive{anyErr: directive}
	}

	if s.clock == nil {
		s.clock = time.Now
	}
	return s
}

// Decide returns the directive for a failure of the given actor while handling message.
func (s *Supervisor) Decide(actorID string, cause error, message any) Directive {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.exceededLocked(actorID) {
		delete(s.failures, actorID)
		return s.fallback
	}

	if s.decider != nil {
		if directive, ok := s.decider(cause, message); ok {
			return directive
		}
	}

	if directive, ok := s.directives[errorType(new(errors.AnyError))]; ok {
		return directive
	}

	if directive, ok := s.directives[errorType(cause)]; ok {
		return directive
	}
	return s.defaultDirective
}

// exceededLocked records a failure and reports whether the retry budget is exhausted.
func (s *Supervisor) exceededLocked(actorID string) bool {
	if s.maxRetries == 0 || s.window <= 0 {
		return false
	}

	now := s.clock()
	cutoff := now.Add(-s.window)
	history := s.failures[actorID]

	kept := history[:0]
	for _, at := range history {
		if at.After(cutoff) {
			kept = append(kept, at)
		}
	}
	kept = append(kept, now)
	s.failures[actorID] = kept
	return uint32(len(kept)) > s.maxRetries
}

// Directive returns the directive configured for the concrete type of err.
func (s *Supervisor) Directive(err error) (Directive, bool) {
	s.mu.Lock()
	directive, ok := s.directives[errorType(err)]
	s.mu.Unlock()
	return directive, ok
}

// Failures returns the number of failures of the actor in the current window.
func (s *Supervisor) Failures(actorID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	cutoff := s.clock().Add(-s.window)
	count := 0
	for _, at := range s.failures[actorID] {
		if at.After(cutoff) {
			count++
		}
	}
	return count
}

// Forget clears the failure history of the actor.
func (s *Supervisor) Forget(actorID string) {
	s.mu.Lock()
	delete(s.failures, actorID)
	s.mu.Unlock()
}

// MaxRetries returns the failure budget per window.
func (s *Supervisor) MaxRetries() uint32 {
	return s.maxRetries
}

// Window returns the sliding window of the failure budget.
func (s *Supervisor) Window() time.Duration {
	return s.window
}

// errorType returns the string representation of an error's type using reflection
func errorType(err error) string {
	if err == nil {
		return "nil"
	}

	rtype := reflect.TypeOf(err)
	if rtype.Kind() == reflect.Pointer {
		rtype = rtype.Elem()
	}

	return rtype.String()
}
