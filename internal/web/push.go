package web

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/Joseda-hg/lazyday/internal/model"
)

func (s *Server) vapidKeyHandler(w http.ResponseWriter, r *http.Request) {
	if s.vapidPublicKey == "" {
		writeError(w, http.StatusServiceUnavailable, fmt.Errorf("push is not configured"))
		return
	}
	writeJSON(w, map[string]string{"publicKey": s.vapidPublicKey})
}

func (s *Server) subscribeHandler(w http.ResponseWriter, r *http.Request) {
	var sub model.PushSubscription
	if err := decodeJSON(w, r, &sub); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	sub.Endpoint = strings.TrimSpace(sub.Endpoint)
	if sub.Endpoint == "" || sub.Keys.P256dh == "" || sub.Keys.Auth == "" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("endpoint and keys are required"))
		return
	}
	sub.SubscribedAt = s.clock.Now()
	sub.UserAgent = r.UserAgent()
	sub.RemoteAddr = clientIP(r)

	subs := s.dispatcher.Subscriptions()
	if err := subs.Add(sub); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	count, err := subs.Count()
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.logger.Info("push subscription added", "remote_ip", sub.RemoteAddr, "subscribers", count)
	writeJSONStatus(w, http.StatusCreated, map[string]any{"success": true, "subscribers": count})
}

func (s *Server) unsubscribeHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Endpoint string `json:"endpoint"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if strings.TrimSpace(req.Endpoint) == "" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("endpoint is required"))
		return
	}
	removed, err := s.dispatcher.Subscriptions().Remove(req.Endpoint)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, map[string]any{"success": true, "removed": removed})
}

func (s *Server) sendPushHandler(w http.ResponseWriter, r *http.Request) {
	var n model.Notification
	if err := decodeJSON(w, r, &n); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if strings.TrimSpace(n.Title) == "" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("title is required"))
		return
	}
	if n.Tag == "" {
		n.Tag = fmt.Sprintf("manual-%d", s.clock.Now().Unix())
	}
	result, err := s.dispatcher.Broadcast(r.Context(), n)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}

func (s *Server) subscribersHandler(w http.ResponseWriter, r *http.Request) {
	list, err := s.dispatcher.Subscriptions().List()
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	type subscriber struct {
		Endpoint     string    `json:"endpoint"`
		SubscribedAt time.Time `json:"subscribedAt"`
		UserAgent    string    `json:"userAgent,omitempty"`
		RemoteAddr   string    `json:"remoteAddr,omitempty"`
	}
	out := make([]subscriber, 0, len(list))
	for _, sub := range list {
		out = append(out, subscriber{
			Endpoint:     sub.Endpoint,
			SubscribedAt: sub.SubscribedAt,
			UserAgent:    sub.UserAgent,
			RemoteAddr:   sub.RemoteAddr,
		})
	}
	writeJSON(w, map[string]any{"count": len(out), "subscribers": out})
}
