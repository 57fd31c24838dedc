package web

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/Joseda-hg/lazyday/internal/collection"
	"github.com/Joseda-hg/lazyday/internal/model"
)

type completeTaskRequest struct {
	Page      string            `json:"page"`
	Type      string            `json:"type"`
	TaskID    collection.TaskID `json:"taskId"`
	Completed *bool             `json:"completed"`
}

func (s *Server) getDocumentHandler(name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doc, err := s.collections.Get(name)
		if err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		writeJSON(w, doc)
	}
}

func (s *Server) replaceDocumentHandler(name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var doc collection.Document
		if err := decodeJSON(w, r, &doc); err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		outcome, err := s.propagator.ReplaceCollection(name, doc)
		if err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		writeJSON(w, map[string]any{"success": true, "propagated": outcome.Propagated, "todayUpdated": outcome.Marked})
	}
}

func (s *Server) completeTaskHandler(name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req completeTaskRequest
		if err := decodeJSON(w, r, &req); err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		s.completeTask(w, r, name, req)
	}
}

func (s *Server) completeSourceHandler(w http.ResponseWriter, r *http.Request) {
	var req completeTaskRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	page := strings.TrimSpace(req.Page)
	if page == "" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("page is required"))
		return
	}
	s.completeTask(w, r, page, req)
}

func (s *Server) completeTask(w http.ResponseWriter, r *http.Request, name string, req completeTaskRequest) {
	if req.TaskID == "" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("taskId is required"))
		return
	}
	result, err := s.propagator.CompleteSource(name, req.Type, req.TaskID, completedOrDefault(req.Completed))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}

func (s *Server) getTodayHandler(w http.ResponseWriter, r *http.Request) {
	doc, err := s.today.Get()
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, doc)
}

func (s *Server) addToTodayHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Page string            `json:"page"`
		Type string            `json:"type"`
		ID   collection.TaskID `json:"id"`
		Name string            `json:"name"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	item, existing, err := s.today.Add(model.TodaySource{Page: req.Page, Type: req.Type, ID: req.ID.String()}, req.Name)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, map[string]any{"item": item, "existing": existing})
}

func (s *Server) addAdhocHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text string `json:"text"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	item, err := s.today.AddAdhoc(req.Text)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, item)
}

func (s *Server) completeTodayHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID        string `json:"id"`
		Completed *bool  `json:"completed"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if strings.TrimSpace(req.ID) == "" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("id is required"))
		return
	}
	result, err := s.propagator.CompleteToday(req.ID, completedOrDefault(req.Completed))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}

func (s *Server) reorderTodayHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID      string `json:"id"`
		ToIndex int    `json:"toIndex"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if err := s.today.Reorder(req.ID, req.ToIndex); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.getTodayHandler(w, r)
}

func (s *Server) reorderAllTodayHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		IDs []string `json:"ids"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if err := s.today.ReorderAll(req.IDs); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.getTodayHandler(w, r)
}

func (s *Server) deleteTodayHandler(w http.ResponseWriter, r *http.Request) {
	item, err := s.today.Remove(r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, map[string]any{"success": true, "item": item})
}
