// Package experience manages user-defined experiences: their definitions,
// the responses recorded against them and the scheduler that turns due
// experiences into push notifications.
package experience

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/Joseda-hg/lazyday/internal/clock"
	"github.com/Joseda-hg/lazyday/internal/model"
	"github.com/Joseda-hg/lazyday/internal/store"
	"github.com/Joseda-hg/lazyday/internal/trigger"
)

var (
	ErrNotFound   = errors.New("experience not found")
	ErrInvalid    = errors.New("invalid experience")
	ErrNotPending = errors.New("experience is not waiting for a response")
)

// errUnchanged aborts a Mutate that found nothing to write.
var errUnchanged = errors.New("unchanged")

type experienceSet struct {
	NextID      int                `json:"nextId"`
	Experiences []model.Experience `json:"experiences"`
}

type responseLog struct {
	Responses []model.ExperienceResponse `json:"responses"`
}

// Input is the writable part of an experience, as sent by clients.
type Input struct {
	Name           string   `json:"name"`
	Description    string   `json:"description"`
	TriggerType    string   `json:"triggerType"`
	IntervalNumber int      `json:"intervalNumber"`
	IntervalType   string   `json:"intervalType"`
	TimesOfDay     []string `json:"timesOfDay"`
	DaysOfWeek     []string `json:"daysOfWeek"`
	ResponseType   string   `json:"responseType"`
	Responses      []string `json:"responses"`
	Status         string   `json:"status"`
	// NextTrigger optionally pins the first trigger (RFC 3339). An empty or
	// unparsable value means "compute from the schedule".
	NextTrigger string `json:"nextTrigger"`
}

type Service struct {
	experiences *store.Document[experienceSet]
	responses   *store.Document[responseLog]
	clock       clock.Clock
	logger      *slog.Logger
}

func NewService(dir *store.Dir, clk clock.Clock, logger *slog.Logger) *Service {
	if clk == nil {
		clk = clock.Real()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		experiences: store.Open(dir, "experiences",
			func() experienceSet { return experienceSet{NextID: 1} },
			normalizeExperienceSet),
		responses: store.Open(dir, "experience-responses",
			func() responseLog { return responseLog{} },
			func(l *responseLog) {
				if l.Responses == nil {
					l.Responses = []model.ExperienceResponse{}
				}
			}),
		clock:  clk,
		logger: logger,
	}
}

func normalizeExperienceSet(set *experienceSet) {
	if set.Experiences == nil {
		set.Experiences = []model.Experience{}
	}
	maxID := 0
	for i := range set.Experiences {
		exp := &set.Experiences[i]
		if exp.TimesOfDay == nil {
			exp.TimesOfDay = []string{}
		}
		if exp.DaysOfWeek == nil {
			exp.DaysOfWeek = []string{}
		}
		if exp.Responses == nil {
			exp.Responses = []string{}
		}
		if exp.Status == "" {
			exp.Status = model.StatusActive
		}
		if exp.PendingResponse {
			exp.NextTrigger = nil
		}
		maxID = max(maxID, exp.ID)
	}
	if set.NextID <= maxID {
		set.NextID = maxID + 1
	}
}

func (s *Service) List() ([]model.Experience, error) {
	set, err := s.experiences.Get()
	if err != nil {
		return nil, err
	}
	return set.Experiences, nil
}

func (s *Service) Get(id int) (model.Experience, error) {
	set, err := s.experiences.Get()
	if err != nil {
		return model.Experience{}, err
	}
	for _, exp := range set.Experiences {
		if exp.ID == id {
			return exp, nil
		}
	}
	return model.Experience{}, fmt.Errorf("%w: %d", ErrNotFound, id)
}

// Pending lists the experiences waiting for a response.
func (s *Service) Pending() ([]model.Experience, error) {
	list, err := s.List()
	if err != nil {
		return nil, err
	}
	pending := []model.Experience{}
	for _, exp := range list {
		if exp.PendingResponse {
			pending = append(pending, exp)
		}
	}
	return pending, nil
}

func (s *Service) Create(in Input) (model.Experience, error) {
	in, err := validate(in)
	if err != nil {
		return model.Experience{}, err
	}
	now := s.clock.Now()

	var created model.Experience
	err = s.experiences.Mutate(func(set *experienceSet) error {
		exp := model.Experience{
			ID:        set.NextID,
			Status:    model.StatusActive,
			CreatedAt: now,
			UpdatedAt: now,
		}
		applyInput(&exp, in)
		if exp.Status == model.StatusActive {
			exp.NextTrigger = initialTrigger(exp, in.NextTrigger, now)
		}
		set.NextID++
		set.Experiences = append(set.Experiences, exp)
		created = exp
		return nil
	})
	if err != nil {
		return model.Experience{}, err
	}
	s.logger.Info("experience created", "id", created.ID, "name", created.Name, "trigger", created.TriggerType)
	return created, nil
}

// Update replaces the definition of experience id. Scheduling state is kept
// unless the trigger changed while the experience was idle, in which case
// nextTrigger is recomputed.
func (s *Service) Update(id int, in Input) (model.Experience, error) {
	in, err := validate(in)
	if err != nil {
		return model.Experience{}, err
	}
	now := s.clock.Now()

	var updated model.Experience
	err = s.experiences.Mutate(func(set *experienceSet) error {
		exp := find(set, id)
		if exp == nil {
			return fmt.Errorf("%w: %d", ErrNotFound, id)
		}
		before := *exp
		applyInput(exp, in)
		exp.UpdatedAt = now

		if !exp.PendingResponse && exp.Status == model.StatusActive {
			rescheduled := triggerChanged(before, *exp) || before.Status != model.StatusActive || exp.NextTrigger == nil
			if in.NextTrigger != "" || rescheduled {
				exp.NextTrigger = initialTrigger(*exp, in.NextTrigger, now)
			}
		}
		updated = *exp
		return nil
	})
	if err != nil {
		return model.Experience{}, err
	}
	return updated, nil
}

func (s *Service) Delete(id int) error {
	return s.experiences.Mutate(func(set *experienceSet) error {
		idx := slices.IndexFunc(set.Experiences, func(exp model.Experience) bool { return exp.ID == id })
		if idx < 0 {
			return fmt.Errorf("%w: %d", ErrNotFound, id)
		}
		set.Experiences = slices.Delete(set.Experiences, idx, idx+1)
		return nil
	})
}

// Responses lists recorded responses, filtered to one experience when
// experienceID is non-zero.
func (s *Service) Responses(experienceID int) ([]model.ExperienceResponse, error) {
	log, err := s.responses.Get()
	if err != nil {
		return nil, err
	}
	if experienceID == 0 {
		return log.Responses, nil
	}
	filtered := []model.ExperienceResponse{}
	for _, resp := range log.Responses {
		if resp.ExperienceID == experienceID {
			filtered = append(filtered, resp)
		}
	}
	return filtered, nil
}

// claimDue marks every active, idle experience whose trigger has passed as
// pending and returns them. Idle experiences without a next trigger are
// re-armed from now without being claimed. Nothing is written when no
// experience changed.
func (s *Service) claimDue(now time.Time) ([]model.Experience, error) {
	var claimed []model.Experience
	err := s.experiences.Mutate(func(set *experienceSet) error {
		changed := false
		for i := range set.Experiences {
			exp := &set.Experiences[i]
			if exp.Status != model.StatusActive || exp.PendingResponse {
				continue
			}
			if exp.NextTrigger == nil {
				if next := scheduleFrom(*exp, now); next != nil {
					exp.NextTrigger = next
					exp.UpdatedAt = now
					changed = true
				}
				continue
			}
			if exp.NextTrigger.After(now) {
				continue
			}
			markPending(exp, now)
			claimed = append(claimed, *exp)
			changed = true
		}
		if !changed {
			return errUnchanged
		}
		return nil
	})
	if errors.Is(err, errUnchanged) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return claimed, nil
}

// claim forces experience id into the pending state regardless of timing.
func (s *Service) claim(id int, now time.Time) (model.Experience, error) {
	var claimed model.Experience
	err := s.experiences.Mutate(func(set *experienceSet) error {
		exp := find(set, id)
		if exp == nil {
			return fmt.Errorf("%w: %d", ErrNotFound, id)
		}
		markPending(exp, now)
		claimed = *exp
		return nil
	})
	return claimed, err
}

func markPending(exp *model.Experience, now time.Time) {
	at := now
	exp.PendingResponse = true
	exp.NextTrigger = nil
	exp.LastTriggeredAt = &at
	exp.UpdatedAt = now
}

func find(set *experienceSet, id int) *model.Experience {
	for i := range set.Experiences {
		if set.Experiences[i].ID == id {
			return &set.Experiences[i]
		}
	}
	return nil
}

// scheduleFrom computes the next trigger counting from now.
func scheduleFrom(exp model.Experience, now time.Time) *time.Time {
	if exp.TriggerType == model.TriggerSet {
		return trigger.NextSetTrigger(exp.TimesOfDay, exp.DaysOfWeek, now)
	}
	next := trigger.NextRecurring(exp.IntervalNumber, exp.IntervalType, now)
	return &next
}

func initialTrigger(exp model.Experience, pinned string, now time.Time) *time.Time {
	if at := trigger.ParseTimestamp(pinned); at != nil {
		return at
	}
	return scheduleFrom(exp, now)
}

func triggerChanged(a, b model.Experience) bool {
	return a.TriggerType != b.TriggerType ||
		a.IntervalNumber != b.IntervalNumber ||
		a.IntervalType != b.IntervalType ||
		!slices.Equal(a.TimesOfDay, b.TimesOfDay) ||
		!slices.Equal(a.DaysOfWeek, b.DaysOfWeek)
}

func applyInput(exp *model.Experience, in Input) {
	exp.Name = in.Name
	exp.Description = in.Description
	exp.TriggerType = in.TriggerType
	exp.IntervalNumber = in.IntervalNumber
	exp.IntervalType = in.IntervalType
	exp.TimesOfDay = in.TimesOfDay
	exp.DaysOfWeek = in.DaysOfWeek
	exp.ResponseType = in.ResponseType
	exp.Responses = in.Responses
	if in.Status != "" {
		exp.Status = in.Status
	}
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalid, fmt.Sprintf(format, args...))
}

// validate checks in and returns it with defaults filled in.
func validate(in Input) (Input, error) {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return in, invalid("name is required")
	}

	in.TriggerType = strings.ToLower(strings.TrimSpace(in.TriggerType))
	switch in.TriggerType {
	case model.TriggerRecurring:
		if in.IntervalNumber <= 0 {
			return in, invalid("intervalNumber must be positive")
		}
		in.IntervalType = strings.ToLower(strings.TrimSpace(in.IntervalType))
		switch in.IntervalType {
		case "":
			in.IntervalType = trigger.UnitMinutes
		case trigger.UnitMinutes, trigger.UnitHours, trigger.UnitDays:
		default:
			return in, invalid("unknown intervalType %q", in.IntervalType)
		}
		if !trigger.IntervalAllowed(in.IntervalNumber, in.IntervalType) {
			return in, invalid("interval must not exceed %s", trigger.MaxInterval)
		}
		in.TimesOfDay, in.DaysOfWeek = []string{}, []string{}
	case model.TriggerSet:
		if !slices.ContainsFunc(in.TimesOfDay, func(v string) bool { _, _, ok := trigger.ParseTimeOfDay(v); return ok }) {
			return in, invalid("set trigger needs at least one HH:MM time")
		}
		if !slices.ContainsFunc(in.DaysOfWeek, func(v string) bool { _, ok := trigger.ParseWeekday(v); return ok }) {
			return in, invalid("set trigger needs at least one day of week")
		}
		in.IntervalNumber, in.IntervalType = 0, ""
	default:
		return in, invalid("triggerType must be %q or %q", model.TriggerRecurring, model.TriggerSet)
	}

	if in.Responses == nil {
		in.Responses = []string{}
	}
	in.ResponseType = strings.ToLower(strings.TrimSpace(in.ResponseType))
	if in.ResponseType == "" {
		in.ResponseType = model.ResponseOpenSurvey
		if len(in.Responses) > 0 {
			in.ResponseType = model.ResponseFixedChoice
		}
	}
	switch in.ResponseType {
	case model.ResponseFixedChoice:
		if len(in.Responses) == 0 {
			return in, invalid("fixed-choice experience needs at least one response")
		}
	case model.ResponseOpenSurvey:
	default:
		return in, invalid("unknown responseType %q", in.ResponseType)
	}

	in.Status = strings.ToLower(strings.TrimSpace(in.Status))
	switch in.Status {
	case "", model.StatusActive, model.StatusPaused, model.StatusArchived:
	default:
		return in, invalid("unknown status %q", in.Status)
	}
	return in, nil
}
