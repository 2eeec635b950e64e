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
	"errors"
	"net/http"
	"time"

	"github.com/actorgrid/actorgrid/actor"
	gerrors "github.com/actorgrid/actorgrid/errors"
	ihttp "github.com/actorgrid/actorgrid/internal/http"
)

// Handler returns the /runtime surface. It is served by the node itself
// when WithListenAddr is set.
func (n *Node) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET "+PathHealth, n.handleHealth)
	mux.HandleFunc("POST "+PathCreateActor, n.handleCreateActor)
	mux.HandleFunc("POST "+PathTell, n.handleTell)
	mux.HandleFunc("POST "+PathAsk, n.handleAsk)
	mux.HandleFunc("GET "+PathActors, n.handleActors)
	mux.HandleFunc("GET "+PathActors+"/{id}/health", n.handleActorHealth)
	mux.HandleFunc("POST "+PathActors+"/{id}/restart", n.handleRestart)
	mux.HandleFunc("POST "+PathActors+"/{id}/block", n.handleBlock)
	mux.HandleFunc("POST "+PathActors+"/{id}/unblock", n.handleUnblock)
	mux.HandleFunc("DELETE "+PathActors+"/{id}", n.handleStop)
	return mux
}

func (n *Node) handleHealth(w http.ResponseWriter, _ *http.Request) {
	health := RuntimeHealth{
		ServiceID: n.serviceID,
		Status:    "UP",
		StartedAt: n.startedAt,
		Stats:     n.system.Stats(),
	}
	status := http.StatusOK
	if !n.system.Running() {
		health.Status = "DOWN"
		status = http.StatusServiceUnavailable
	}
	ihttp.WriteJSON(w, status, health)
}

func (n *Node) handleCreateActor(w http.ResponseWriter, r *http.Request) {
	var req CreateActorRequest
	if err := ihttp.ReadJSON(r, &req); err != nil {
		ihttp.WriteError(w, err)
		return
	}
	if req.ActorType == "" {
		ihttp.WriteError(w, gerrors.NewErrInvalidMessage(errors.New("actorType is required")))
		return
	}

	var opts []actor.SpawnOption
	if req.ActorID != "" {
		opts = append(opts, actor.WithID(req.ActorID))
	}
	ref, err := n.system.Spawn(r.Context(), req.ActorType, req.Params, opts...)
	if err != nil {
		ihttp.WriteError(w, err)
		return
	}

	resp := CreateActorResponse{
		ActorID:   ref.ID(),
		ActorType: ref.Type(),
		ServiceID: n.serviceID,
		State:     ref.State(),
	}
	if resp.State == actor.Failed {
		if stats, err := n.system.ActorStats(ref.ID()); err == nil {
			resp.ErrorMessage = stats.LastError
		}
	}
	if req.RequesterServiceID != "" {
		n.logger.Debugf("actor %s of type %s created for %s", ref.ID(), ref.Type(), req.RequesterServiceID)
	}
	ihttp.WriteJSON(w, http.StatusCreated, resp)
}

func (n *Node) handleTell(w http.ResponseWriter, r *http.Request) {
	var req TellRequest
	if err := ihttp.ReadJSON(r, &req); err != nil {
		ihttp.WriteError(w, err)
		return
	}
	if err := validateDelivery(req.TargetActorID, req.Message); err != nil {
		ihttp.WriteError(w, err)
		return
	}

	if err := n.system.Tell(r.Context(), req.TargetActorID, req.Message, senderOption(req.SenderActorID)...); err != nil {
		ihttp.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (n *Node) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req AskRequest
	if err := ihttp.ReadJSON(r, &req); err != nil {
		ihttp.WriteError(w, err)
		return
	}
	if err := validateDelivery(req.TargetActorID, req.Message); err != nil {
		ihttp.WriteError(w, err)
		return
	}

	timeout := DefaultAskTimeout
	if req.TimeoutMillis > 0 {
		timeout = time.Duration(req.TimeoutMillis) * time.Millisecond
	}
	reply, err := n.system.Ask(r.Context(), req.TargetActorID, req.Message, timeout, senderOption(req.SenderActorID)...).Await(r.Context())
	if err != nil {
		ihttp.WriteError(w, err)
		return
	}
	ihttp.WriteJSON(w, http.StatusOK, AskResponse{Reply: reply})
}

func (n *Node) handleActors(w http.ResponseWriter, _ *http.Request) {
	ihttp.WriteJSON(w, http.StatusOK, n.system.Actors())
}

func (n *Node) handleActorHealth(w http.ResponseWriter, r *http.Request) {
	n.writeActorHealth(w, r.PathValue("id"))
}

func (n *Node) handleRestart(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := n.system.Restart(r.Context(), id, nil); err != nil {
		ihttp.WriteError(w, err)
		return
	}
	n.writeActorHealth(w, id)
}

func (n *Node) handleBlock(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := n.system.Block(id); err != nil {
		ihttp.WriteError(w, err)
		return
	}
	n.writeActorHealth(w, id)
}

func (n *Node) handleUnblock(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := n.system.Unblock(id); err != nil {
		ihttp.WriteError(w, err)
		return
	}
	n.writeActorHealth(w, id)
}

func (n *Node) handleStop(w http.ResponseWriter, r *http.Request) {
	if err := n.system.StopActor(r.Context(), r.PathValue("id")); err != nil {
		ihttp.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (n *Node) writeActorHealth(w http.ResponseWriter, id string) {
	stats, err := n.system.ActorStats(id)
	if err != nil {
		ihttp.WriteError(w, err)
		return
	}
	ihttp.WriteJSON(w, http.StatusOK, ActorHealth{ActorStats: stats, Active: stats.State == actor.Running || stats.State == actor.Blocked})
}

func validateDelivery(target string, message any) error {
	switch {
	case target == "":
		return gerrors.NewErrInvalidMessage(errors.New("targetActorId is required"))
	case message == nil:
		return gerrors.NewErrInvalidMessage(errors.New("message is required"))
	default:
		return nil
	}
}

func senderOption(sender string) []actor.SendOption {
	if sender == "" {
		return nil
	}
	return []actor.SendOption{actor.WithSenderID(sender)}
}
