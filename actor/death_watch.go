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
	gerrors "github.com/actorgrid/actorgrid/errors"
)

// Watch registers watcherID to receive a Terminated message when actorID stops.
// Watching an actor twice has no further effect.
func (s *System) Watch(actorID, watcherID string) error {
	target, ok := s.actors.Get(actorID)
	if !ok {
		return gerrors.NewErrActorNotFound(actorID)
	}
	watcher, ok := s.actors.Get(watcherID)
	if !ok {
		return gerrors.NewErrActorNotFound(watcherID)
	}
	target.watchers.Add(watcherID)
	watcher.watching.Add(actorID)
	return nil
}

// Unwatch removes the registration made by Watch.
func (s *System) Unwatch(actorID, watcherID string) error {
	target, ok := s.actors.Get(actorID)
	if !ok {
		return gerrors.NewErrActorNotFound(actorID)
	}
	target.watchers.Remove(watcherID)
	if watcher, ok := s.actors.Get(watcherID); ok {
		watcher.watching.Remove(actorID)
	}
	return nil
}

// Watchers returns the ids of the actors watching actorID.
func (s *System) Watchers(actorID string) []string {
	target, ok := s.actors.Get(actorID)
	if !ok {
		return nil
	}
	return target.watchers.ToSlice()
}

// notifyWatchers enqueues one Terminated per watcher and drops every watch
// relation of the stopped actor. It runs under c.mu.
func (s *System) notifyWatchers(c *cell) {
	for _, watcherID := range c.watchers.ToSlice() {
		// removing first keeps the notification at most once
		c.watchers.Remove(watcherID)
		watcher, ok := s.actors.Get(watcherID)
		if !ok {
			continue
		}
		watcher.watching.Remove(c.id)
		terminated := NewMessage(&Terminated{actor: c.ref}, WithSender(c.ref))
		if err := s.deliver(watcher, terminated); err != nil {
			c.logger.Warnf("unable to notify watcher %s: %v", watcherID, err)
		}
	}

	for _, watchedID := range c.watching.ToSlice() {
		if watched, ok := s.actors.Get(watchedID); ok {
			watched.watchers.Remove(c.id)
		}
	}
	c.watching.Clear()
}
