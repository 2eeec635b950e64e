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

package controlplane

import (
	"net/http"

	gerrors "github.com/actorgrid/actorgrid/errors"
	ihttp "github.com/actorgrid/actorgrid/internal/http"
	"github.com/actorgrid/actorgrid/node"
)

// PathPrefix roots the control plane surface.
const PathPrefix = "/api/v1"

// UnregisterResponse reports the actor entries dropped with a service.
type UnregisterResponse struct {
	ServiceID     string `json:"serviceId"`
	RemovedActors int    `json:"removedActors"`
}

// Handler returns the /api/v1 surface.
func (cp *ControlPlane) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST "+PathPrefix+"/services/register", cp.handleRegister)
	mux.HandleFunc("POST "+PathPrefix+"/services/{id}/heartbeat", cp.handleHeartbeat)
	mux.HandleFunc("GET "+PathPrefix+"/services", cp.handleServices)
	mux.HandleFunc("GET "+PathPrefix+"/services/status", cp.handleStatuses)
	mux.HandleFunc("GET "+PathPrefix+"/services/breakers", cp.handleBreakers)
	mux.HandleFunc("GET "+PathPrefix+"/services/{id}", cp.handleService)
	mux.HandleFunc("DELETE "+PathPrefix+"/services/{id}", cp.handleUnregister)

	mux.HandleFunc("POST "+PathPrefix+"/actors", cp.handleCreateActor)
	mux.HandleFunc("GET "+PathPrefix+"/actors", cp.handleActors)
	mux.HandleFunc("GET "+PathPrefix+"/actors/{id}", cp.handleActor)
	mux.HandleFunc("DELETE "+PathPrefix+"/actors/{id}", cp.handleDeleteActor)
	mux.HandleFunc("POST "+PathPrefix+"/actors/{id}/tell", cp.handleTell)
	mux.HandleFunc("POST "+PathPrefix+"/actors/{id}/ask", cp.handleAsk)
	mux.HandleFunc("POST "+PathPrefix+"/actors/{id}/state", cp.handleState)
	mux.HandleFunc("POST "+PathPrefix+"/actors/{id}/restart", cp.handleRestart)
	// by-service/{serviceId} and {id}/health share one pattern
	mux.HandleFunc("GET "+PathPrefix+"/actors/{id}/{view}", cp.handleActorView)
	return mux
}

func (cp *ControlPlane) handleRegister(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	info, err := cp.RegisterService(r.Context(), query.Get("serviceId"), query.Get("serviceUrl"))
	if err != nil {
		ihttp.WriteError(w, err)
		return
	}
	ihttp.WriteJSON(w, http.StatusOK, info)
}

func (cp *ControlPlane) handleHeartbeat(w http.ResponseWriter, r *http.Request) {
	info, err := cp.Heartbeat(r.Context(), r.PathValue("id"))
	if err != nil {
		ihttp.WriteError(w, err)
		return
	}
	ihttp.WriteJSON(w, http.StatusOK, info)
}

func (cp *ControlPlane) handleServices(w http.ResponseWriter, _ *http.Request) {
	ihttp.WriteJSON(w, http.StatusOK, cp.Services())
}

func (cp *ControlPlane) handleStatuses(w http.ResponseWriter, _ *http.Request) {
	ihttp.WriteJSON(w, http.StatusOK, cp.ServiceStatuses())
}

func (cp *ControlPlane) handleBreakers(w http.ResponseWriter, _ *http.Request) {
	ihttp.WriteJSON(w, http.StatusOK, cp.runtime.Breakers().Metrics())
}

func (cp *ControlPlane) handleService(w http.ResponseWriter, r *http.Request) {
	info, err := cp.Service(r.PathValue("id"))
	if err != nil {
		ihttp.WriteError(w, err)
		return
	}
	ihttp.WriteJSON(w, http.StatusOK, info)
}

func (cp *ControlPlane) handleUnregister(w http.ResponseWriter, r *http.Request) {
	serviceID := r.PathValue("id")
	removed, err := cp.UnregisterService(r.Context(), serviceID)
	if err != nil {
		ihttp.WriteError(w, err)
		return
	}
	ihttp.WriteJSON(w, http.StatusOK, UnregisterResponse{ServiceID: serviceID, RemovedActors: removed})
}

func (cp *ControlPlane) handleCreateActor(w http.ResponseWriter, r *http.Request) {
	var req CreateActorRequest
	if err := ihttp.ReadJSON(r, &req); err != nil {
		ihttp.WriteError(w, err)
		return
	}
	resp, err := cp.CreateActor(r.Context(), req)
	if err != nil {
		ihttp.WriteError(w, err)
		return
	}
	ihttp.WriteJSON(w, http.StatusCreated, resp)
}

func (cp *ControlPlane) handleActors(w http.ResponseWriter, _ *http.Request) {
	ihttp.WriteJSON(w, http.StatusOK, cp.Actors())
}

func (cp *ControlPlane) handleActorView(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.PathValue("id") == "by-service":
		cp.handleActorsByService(w, r, r.PathValue("view"))
	case r.PathValue("view") == "health":
		cp.handleActorHealth(w, r)
	default:
		http.NotFound(w, r)
	}
}

func (cp *ControlPlane) handleActorsByService(w http.ResponseWriter, _ *http.Request, serviceID string) {
	if _, err := cp.Service(serviceID); err != nil {
		ihttp.WriteError(w, err)
		return
	}
	ihttp.WriteJSON(w, http.StatusOK, cp.ActorsByService(serviceID))
}

func (cp *ControlPlane) handleActor(w http.ResponseWriter, r *http.Request) {
	entry, err := cp.Actor(r.PathValue("id"))
	if err != nil {
		ihttp.WriteError(w, err)
		return
	}
	ihttp.WriteJSON(w, http.StatusOK, entry)
}

func (cp *ControlPlane) handleDeleteActor(w http.ResponseWriter, r *http.Request) {
	if err := cp.DeleteActor(r.Context(), r.PathValue("id")); err != nil {
		ihttp.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (cp *ControlPlane) handleTell(w http.ResponseWriter, r *http.Request) {
	var req node.TellRequest
	if err := ihttp.ReadJSON(r, &req); err != nil {
		ihttp.WriteError(w, err)
		return
	}
	if err := cp.Tell(r.Context(), r.PathValue("id"), req); err != nil {
		ihttp.WriteError(w, err)
		return
	}
	ihttp.WriteJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}

func (cp *ControlPlane) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req node.AskRequest
	if err := ihttp.ReadJSON(r, &req); err != nil {
		ihttp.WriteError(w, err)
		return
	}
	if req.TimeoutMillis < 0 {
		ihttp.WriteError(w, gerrors.ErrInvalidTimeout)
		return
	}
	reply, err := cp.Ask(r.Context(), r.PathValue("id"), req)
	if err != nil {
		ihttp.WriteError(w, err)
		return
	}
	ihttp.WriteJSON(w, http.StatusOK, node.AskResponse{Reply: reply})
}

func (cp *ControlPlane) handleState(w http.ResponseWriter, r *http.Request) {
	var report node.StateReport
	if err := ihttp.ReadJSON(r, &report); err != nil {
		ihttp.WriteError(w, err)
		return
	}
	entry, err := cp.ReportState(r.Context(), r.PathValue("id"), report)
	if err != nil {
		ihttp.WriteError(w, err)
		return
	}
	ihttp.WriteJSON(w, http.StatusOK, entry)
}

func (cp *ControlPlane) handleRestart(w http.ResponseWriter, r *http.Request) {
	entry, err := cp.RestartActor(r.Context(), r.PathValue("id"))
	if err != nil {
		ihttp.WriteError(w, err)
		return
	}
	ihttp.WriteJSON(w, http.StatusOK, entry)
}

func (cp *ControlPlane) handleActorHealth(w http.ResponseWriter, r *http.Request) {
	health, err := cp.ActorHealth(r.Context(), r.PathValue("id"))
	if err != nil {
		ihttp.WriteError(w, err)
		return
	}
	ihttp.WriteJSON(w, http.StatusOK, health)
}
