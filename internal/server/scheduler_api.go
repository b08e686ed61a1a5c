package server

import (
	"encoding/json"
	"net/http"

	"github.com/adhocore/gronx"

	"github.com/tubequeue/tubequeue/common"
)

// Schedule CRUD follows a request/acknowledge shape rather than push
// events: the client reconciles by reloading the list after acks.

func (s *Server) handleScheduleList(w http.ResponseWriter, r *http.Request) {
	if !s.authorized(r) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	list, err := s.sched.List()
	if err != nil {
		s.log.Error("schedule list: %v", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if list == nil {
		list = []common.Schedule{}
	}
	writeJSON(w, list)
}

func (s *Server) handleScheduleAdd(w http.ResponseWriter, r *http.Request) {
	if !s.authorized(r) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	var p common.ScheduleAddParams
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		http.Error(w, "bad request: "+err.Error(), http.StatusBadRequest)
		return
	}
	if p.URL == "" {
		http.Error(w, "missing url", http.StatusBadRequest)
		return
	}
	if !gronx.IsValid(p.Cron) {
		http.Error(w, "invalid cron expression: "+p.Cron, http.StatusBadRequest)
		return
	}
	sched, err := s.sched.Add(p)
	if err != nil {
		s.log.Error("schedule add: %v", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, sched)
}

func (s *Server) handleScheduleUpdate(w http.ResponseWriter, r *http.Request) {
	if !s.authorized(r) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	var p common.ScheduleUpdateParams
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		http.Error(w, "bad request: "+err.Error(), http.StatusBadRequest)
		return
	}
	if !gronx.IsValid(p.Cron) {
		http.Error(w, "invalid cron expression: "+p.Cron, http.StatusBadRequest)
		return
	}
	if err := s.sched.Update(p.IDs, p.Cron); err != nil {
		s.log.Error("schedule update: %v", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, &common.Ack{Status: "ok"})
}

func (s *Server) handleScheduleRemove(w http.ResponseWriter, r *http.Request) {
	if !s.authorized(r) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	var p common.ScheduleRemoveParams
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		http.Error(w, "bad request: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err := s.sched.Remove(p.IDs); err != nil {
		s.log.Error("schedule remove: %v", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, &common.Ack{Status: "ok"})
}
