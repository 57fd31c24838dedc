package web

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Joseda-hg/lazyday/internal/model"
	"github.com/Joseda-hg/lazyday/internal/timetracker"
	"github.com/Joseda-hg/lazyday/internal/trigger"
)

const recentNotificationEvents = 20

func (s *Server) listTimeHandler(w http.ResponseWriter, r *http.Request) {
	doc, err := s.tracker.List()
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, doc)
}

func (s *Server) startTimerHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Source string `json:"source"`
		Name   string `json:"name"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	entry, err := s.tracker.Start(req.Source, req.Name)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, entry)
}

func (s *Server) stopTimerHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID string `json:"id"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	entry, err := s.tracker.Stop(req.ID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, entry)
}

func (s *Server) updateTimerHandler(w http.ResponseWriter, r *http.Request) {
	var patch timetracker.Patch
	if err := decodeJSON(w, r, &patch); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	entry, err := s.tracker.Update(patch)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, entry)
}

func (s *Server) deleteTimerHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID string `json:"id"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if err := s.tracker.Delete(req.ID); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, map[string]any{"success": true})
}

func (s *Server) addManualTimerHandler(w http.ResponseWriter, r *http.Request) {
	var entry model.TimeEntry
	if err := decodeJSON(w, r, &entry); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	created, err := s.tracker.AddManual(entry)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, created)
}

func (s *Server) notificationEventHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Action string          `json:"action"`
		Tag    string          `json:"tag"`
		TS     json.RawMessage `json:"ts"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	at := s.clock.Now()
	if parsed := parseEventTime(req.TS); parsed != nil {
		at = *parsed
	}
	event, err := s.events.RecordNotificationEvent(r.Context(), req.Action, req.Tag, at)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, event)
}

func (s *Server) notificationStatsHandler(w http.ResponseWriter, r *http.Request) {
	stats, err := s.events.NotificationStats(r.Context(), recentNotificationEvents)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, stats)
}

// parseEventTime accepts an RFC 3339 string or Unix milliseconds (as
// Date.now() sends them), quoted or not.
func parseEventTime(raw json.RawMessage) *time.Time {
	value := strings.Trim(strings.TrimSpace(string(raw)), `"`)
	if ms, err := strconv.ParseInt(value, 10, 64); err == nil && ms > 0 {
		t := time.UnixMilli(ms)
		return &t
	}
	return trigger.ParseTimestamp(value)
}
