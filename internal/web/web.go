package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/Joseda-hg/lazyday/internal/clock"
	"github.com/Joseda-hg/lazyday/internal/collection"
	"github.com/Joseda-hg/lazyday/internal/db"
	"github.com/Joseda-hg/lazyday/internal/experience"
	"github.com/Joseda-hg/lazyday/internal/metrics"
	"github.com/Joseda-hg/lazyday/internal/propagate"
	"github.com/Joseda-hg/lazyday/internal/push"
	"github.com/Joseda-hg/lazyday/internal/timetracker"
	"github.com/Joseda-hg/lazyday/internal/today"
)

const maxBodyBytes = 4 << 20

// Deps are the services the API is served from.
type Deps struct {
	Experiences    *experience.Service
	Scheduler      *experience.Scheduler
	Dispatcher     *push.Dispatcher
	VAPIDPublicKey string
	Collections    *collection.Collections
	Today          *today.List
	Propagator     *propagate.Propagator
	Tracker        *timetracker.Tracker
	Events         *db.Store
	Metrics        *metrics.Metrics
	Clock          clock.Clock
	Logger         *slog.Logger
}

type Server struct {
	experiences    *experience.Service
	scheduler      *experience.Scheduler
	dispatcher     *push.Dispatcher
	vapidPublicKey string
	collections    *collection.Collections
	today          *today.List
	propagator     *propagate.Propagator
	tracker        *timetracker.Tracker
	events         *db.Store
	metrics        *metrics.Metrics
	clock          clock.Clock
	logger         *slog.Logger
}

func NewServer(deps Deps) *Server {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Clock == nil {
		deps.Clock = clock.Real()
	}
	return &Server{
		experiences:    deps.Experiences,
		scheduler:      deps.Scheduler,
		dispatcher:     deps.Dispatcher,
		vapidPublicKey: deps.VAPIDPublicKey,
		collections:    deps.Collections,
		today:          deps.Today,
		propagator:     deps.Propagator,
		tracker:        deps.Tracker,
		events:         deps.Events,
		metrics:        deps.Metrics,
		clock:          deps.Clock,
		logger:         deps.Logger,
	}
}

// reservedPages cannot be used as page names because fixed API routes
// already live under them.
var reservedPages = map[string]bool{
	"experiences": true, "experience-responses": true, "trigger-experience": true,
	"scheduler": true, "source": true, "today": true, "add-to-today": true,
	"time-tracker": true, "notification-event": true, "notification-stats": true,
	"notification-response": true,
	"data": true,
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.healthHandler)
	mux.Handle("GET /metrics", s.metrics.Handler())

	mux.HandleFunc("GET /api/experiences", s.listExperiencesHandler)
	mux.HandleFunc("POST /api/experiences", s.createExperienceHandler)
	mux.HandleFunc("GET /api/experiences/pending", s.pendingExperiencesHandler)
	mux.HandleFunc("GET /api/experiences/{id}", s.getExperienceHandler)
	mux.HandleFunc("PUT /api/experiences/{id}", s.updateExperienceHandler)
	mux.HandleFunc("DELETE /api/experiences/{id}", s.deleteExperienceHandler)
	mux.HandleFunc("GET /api/experience-responses", s.listResponsesHandler)
	mux.HandleFunc("POST /api/experience-responses", s.recordResponseHandler)
	mux.HandleFunc("POST /api/trigger-experience/{id}", s.triggerExperienceHandler)
	mux.HandleFunc("POST /api/notification-response", s.notificationResponseHandler)
	mux.HandleFunc("POST /api/health/response", s.notificationResponseHandler)
	mux.HandleFunc("POST /api/scheduler/start", s.schedulerStartHandler)
	mux.HandleFunc("POST /api/scheduler/stop", s.schedulerStopHandler)
	mux.HandleFunc("POST /api/scheduler/sweep", s.schedulerSweepHandler)
	mux.HandleFunc("GET /api/scheduler/status", s.schedulerStatusHandler)

	for _, name := range s.collections.Names() {
		if reservedPages[name] {
			s.logger.Warn("page name clashes with an API route, not serving it", "page", name)
			continue
		}
		mux.HandleFunc("GET /api/"+name, s.getDocumentHandler(name))
		mux.HandleFunc("POST /api/"+name, s.replaceDocumentHandler(name))
		if s.collections.HasTasks(name) {
			mux.HandleFunc("POST /api/"+name+"/complete-task", s.completeTaskHandler(name))
		}
	}
	mux.HandleFunc("GET /api/data", s.getDocumentHandler(collection.Index))
	mux.HandleFunc("POST /api/data", s.replaceDocumentHandler(collection.Index))
	mux.HandleFunc("POST /api/source/complete", s.completeSourceHandler)

	mux.HandleFunc("GET /api/today", s.getTodayHandler)
	mux.HandleFunc("POST /api/add-to-today", s.addToTodayHandler)
	mux.HandleFunc("POST /api/today/adhoc", s.addAdhocHandler)
	mux.HandleFunc("POST /api/today/complete", s.completeTodayHandler)
	mux.HandleFunc("POST /api/today/reorder", s.reorderTodayHandler)
	mux.HandleFunc("POST /api/today/reorder-all", s.reorderAllTodayHandler)
	mux.HandleFunc("DELETE /api/today/{id}", s.deleteTodayHandler)

	mux.HandleFunc("GET /api/time-tracker", s.listTimeHandler)
	mux.HandleFunc("POST /api/time-tracker/start", s.startTimerHandler)
	mux.HandleFunc("POST /api/time-tracker/stop", s.stopTimerHandler)
	mux.HandleFunc("POST /api/time-tracker/update", s.updateTimerHandler)
	mux.HandleFunc("POST /api/time-tracker/delete", s.deleteTimerHandler)
	mux.HandleFunc("POST /api/time-tracker/add-manual", s.addManualTimerHandler)

	mux.HandleFunc("POST /api/notification-event", s.notificationEventHandler)
	mux.HandleFunc("GET /api/notification-stats", s.notificationStatsHandler)

	mux.HandleFunc("GET /vapid-public-key", s.vapidKeyHandler)
	mux.HandleFunc("POST /subscribe", s.subscribeHandler)
	mux.HandleFunc("POST /unsubscribe", s.unsubscribeHandler)
	mux.HandleFunc("POST /send-push", s.sendPushHandler)
	mux.HandleFunc("GET /subscribers", s.subscribersHandler)

	return chain(mux, withRequestID, withRecover(s.logger), withAccessLog(s.logger))
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{
		"status":    "ok",
		"time":      s.clock.Now(),
		"scheduler": s.scheduler != nil && s.scheduler.Running(),
	})
}

func writeJSON(w http.ResponseWriter, payload any) {
	writeJSONStatus(w, http.StatusOK, payload)
}

func writeJSONStatus(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSONStatus(w, status, map[string]string{"error": err.Error()})
}

// writeServiceError maps service errors onto HTTP statuses.
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed",
			"request_id", requestIDFrom(r.Context()),
			"method", r.Method,
			"path", r.URL.Path,
			"error", err)
	}
	writeError(w, status, err)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, experience.ErrInvalid),
		errors.Is(err, collection.ErrInvalid),
		errors.Is(err, today.ErrInvalid),
		errors.Is(err, timetracker.ErrInvalid),
		errors.Is(err, db.ErrInvalidAction),
		errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, experience.ErrNotFound),
		errors.Is(err, collection.ErrUnknownCollection),
		errors.Is(err, collection.ErrTaskNotFound),
		errors.Is(err, today.ErrNotFound),
		errors.Is(err, timetracker.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, experience.ErrNotPending):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

var errBadRequest = errors.New("bad request")

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: empty body", errBadRequest)
		}
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return nil
}

func pathID(r *http.Request) (int, error) {
	value := strings.TrimSpace(r.PathValue("id"))
	if value == "" {
		return 0, fmt.Errorf("%w: missing id", errBadRequest)
	}
	id, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid id %q", errBadRequest, value)
	}
	return id, nil
}

// completedOrDefault treats a missing "completed" flag as true.
func completedOrDefault(v *bool) bool {
	return v == nil || *v
}
