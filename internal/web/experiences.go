package web

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/Joseda-hg/lazyday/internal/db"
	"github.com/Joseda-hg/lazyday/internal/experience"
	"github.com/Joseda-hg/lazyday/internal/model"
)

func (s *Server) listExperiencesHandler(w http.ResponseWriter, r *http.Request) {
	list, err := s.experiences.List()
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, list)
}

func (s *Server) pendingExperiencesHandler(w http.ResponseWriter, r *http.Request) {
	list, err := s.experiences.Pending()
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, list)
}

func (s *Server) getExperienceHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	exp, err := s.experiences.Get(id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, exp)
}

func (s *Server) createExperienceHandler(w http.ResponseWriter, r *http.Request) {
	var in experience.Input
	if err := decodeJSON(w, r, &in); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	exp, err := s.experiences.Create(in)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, exp)
}

func (s *Server) updateExperienceHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	var in experience.Input
	if err := decodeJSON(w, r, &in); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	exp, err := s.experiences.Update(id, in)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, exp)
}

func (s *Server) deleteExperienceHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if err := s.experiences.Delete(id); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, map[string]any{"success": true, "id": id})
}

func (s *Server) listResponsesHandler(w http.ResponseWriter, r *http.Request) {
	experienceID := 0
	if value := strings.TrimSpace(r.URL.Query().Get("experienceId")); value != "" {
		parsed, err := strconv.Atoi(value)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		experienceID = parsed
	}
	list, err := s.experiences.Responses(experienceID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, list)
}

func (s *Server) recordResponseHandler(w http.ResponseWriter, r *http.Request) {
	var in experience.ResponseInput
	if err := decodeJSON(w, r, &in); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	resp, exp, err := s.experiences.RecordResponse(in)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, map[string]any{"response": resp, "experience": exp})
}

func (s *Server) triggerExperienceHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	exp, result, err := s.scheduler.TriggerNow(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, map[string]any{"experience": exp, "push": result})
}

func (s *Server) schedulerStartHandler(w http.ResponseWriter, r *http.Request) {
	s.scheduler.Start()
	writeJSON(w, s.scheduler.Status())
}

func (s *Server) schedulerStopHandler(w http.ResponseWriter, r *http.Request) {
	s.scheduler.Stop()
	writeJSON(w, s.scheduler.Status())
}

func (s *Server) schedulerSweepHandler(w http.ResponseWriter, r *http.Request) {
	fired, err := s.scheduler.Sweep(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, map[string]any{"triggered": fired})
}

func (s *Server) schedulerStatusHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.scheduler.Status())
}

// notificationResponseHandler receives notification clicks from the service
// worker. "respond-<i>" answers with choice i and "skip" skips; both go
// through the response recorder. Clicks on an experience that is no longer
// waiting, and any other action, are only logged.
func (s *Server) notificationResponseHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Action string `json:"action"`
		Data   struct {
			ExperienceID int `json:"experienceId"`
		} `json:"data"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	in := experience.ResponseInput{ExperienceID: req.Data.ExperienceID, OnlyPending: true}
	eventAction := db.ActionYes
	switch {
	case req.Action == "skip":
		in.Type = model.ResponseSkipped
		eventAction = db.ActionNo
	case strings.HasPrefix(req.Action, "respond-"):
		idx, err := strconv.Atoi(strings.TrimPrefix(req.Action, "respond-"))
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Errorf("invalid action %q", req.Action))
			return
		}
		in.Type = model.ResponseAnswered
		in.SelectedIndex = &idx
	default:
		s.logger.Debug("notification clicked", "action", req.Action, "experience_id", req.Data.ExperienceID)
		writeJSON(w, map[string]any{"recorded": false})
		return
	}

	resp, exp, err := s.experiences.RecordResponse(in)
	if errors.Is(err, experience.ErrNotPending) {
		s.logger.Debug("stale notification click", "action", req.Action, "experience_id", req.Data.ExperienceID)
		writeJSON(w, map[string]any{"recorded": false})
		return
	}
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if s.events != nil {
		tag := fmt.Sprintf("experience-%d", exp.ID)
		if _, err := s.events.RecordNotificationEvent(r.Context(), eventAction, tag, s.clock.Now()); err != nil {
			s.logger.Warn("could not record notification event", "tag", tag, "error", err)
		}
	}
	writeJSON(w, map[string]any{"recorded": true, "response": resp, "experience": exp})
}
