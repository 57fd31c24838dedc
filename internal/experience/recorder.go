package experience

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Joseda-hg/lazyday/internal/model"
	"github.com/Joseda-hg/lazyday/internal/trigger"
)

// ResponseInput is a reply to a triggered experience.
type ResponseInput struct {
	ExperienceID  int    `json:"experienceId"`
	Type          string `json:"type"`
	SelectedIndex *int   `json:"selectedIndex,omitempty"`
	Text          string `json:"text,omitempty"`
	// OnlyPending rejects the response with ErrNotPending unless the
	// experience is waiting for one.
	OnlyPending bool `json:"-"`
}

// RecordResponse re-arms the experience and appends the response.
//
// A skip resumes the schedule from lastTriggeredAt; an answer restarts it
// from the moment of the response. Nothing is appended when the experience
// does not exist.
func (s *Service) RecordResponse(in ResponseInput) (model.ExperienceResponse, model.Experience, error) {
	if in.ExperienceID <= 0 {
		return model.ExperienceResponse{}, model.Experience{}, invalid("experienceId is required")
	}
	in.Type = strings.ToLower(strings.TrimSpace(in.Type))
	switch in.Type {
	case "":
		in.Type = model.ResponseAnswered
	case model.ResponseAnswered, model.ResponseSkipped:
	default:
		return model.ExperienceResponse{}, model.Experience{}, invalid("unknown response type %q", in.Type)
	}
	now := s.clock.Now()

	var rearmed model.Experience
	err := s.experiences.Mutate(func(set *experienceSet) error {
		exp := find(set, in.ExperienceID)
		if exp == nil {
			return fmt.Errorf("%w: %d", ErrNotFound, in.ExperienceID)
		}
		if in.OnlyPending && !exp.PendingResponse {
			return fmt.Errorf("%w: %d", ErrNotPending, in.ExperienceID)
		}
		if in.Type == model.ResponseAnswered && in.SelectedIndex != nil {
			if idx := *in.SelectedIndex; idx < 0 || idx >= len(exp.Responses) {
				return invalid("selectedIndex %d out of range", idx)
			}
		}
		rearm(exp, in.Type, now)
		rearmed = *exp
		return nil
	})
	if err != nil {
		return model.ExperienceResponse{}, model.Experience{}, err
	}

	resp := model.ExperienceResponse{
		ID:           uuid.NewString(),
		ExperienceID: in.ExperienceID,
		Type:         in.Type,
		Timestamp:    now,
	}
	if in.Type == model.ResponseAnswered {
		resp.SelectedIndex = in.SelectedIndex
		resp.Text = strings.TrimSpace(in.Text)
	}
	err = s.responses.Mutate(func(log *responseLog) error {
		log.Responses = append(log.Responses, resp)
		return nil
	})
	if err != nil {
		return model.ExperienceResponse{}, rearmed, fmt.Errorf("append response: %w", err)
	}

	s.logger.Info("experience response recorded",
		"experience_id", in.ExperienceID,
		"type", in.Type,
		"next_trigger", rearmed.NextTrigger)
	return resp, rearmed, nil
}

func rearm(exp *model.Experience, kind string, now time.Time) {
	exp.PendingResponse = false
	exp.UpdatedAt = now

	if kind == model.ResponseSkipped {
		if exp.TriggerType == model.TriggerSet {
			exp.NextTrigger = trigger.NextSetTrigger(exp.TimesOfDay, exp.DaysOfWeek, now)
			return
		}
		next := trigger.NextRecurringFromBase(exp.LastTriggeredAt, exp.IntervalNumber, exp.IntervalType, now)
		exp.NextTrigger = &next
		return
	}

	at := now
	exp.LastRespondedAt = &at
	exp.NextTrigger = scheduleFrom(*exp, now)
}
