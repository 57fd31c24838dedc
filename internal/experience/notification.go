package experience

import (
	"fmt"
	"strconv"

	"github.com/Joseda-hg/lazyday/internal/model"
)

const (
	notificationIcon  = "/icons/icon-192.png"
	notificationBadge = "/icons/badge-72.png"
	defaultBody       = "How did it go?"
	maxChoiceActions  = 2
)

// NotificationFor builds the push payload announcing exp.
func NotificationFor(exp model.Experience) model.Notification {
	body := exp.Description
	if body == "" {
		body = defaultBody
	}

	actions := []model.NotificationAction{}
	if exp.ResponseType == model.ResponseFixedChoice {
		for i, label := range exp.Responses {
			if i == maxChoiceActions {
				break
			}
			actions = append(actions, model.NotificationAction{Action: "respond-" + strconv.Itoa(i), Title: label})
		}
	}
	actions = append(actions, model.NotificationAction{Action: "skip", Title: "Skip"})

	return model.Notification{
		Title: exp.Name,
		Body:  body,
		Tag:   fmt.Sprintf("experience-%d", exp.ID),
		Icon:  notificationIcon,
		Badge: notificationBadge,
		Data: map[string]any{
			"experienceId": exp.ID,
			"responseType": exp.ResponseType,
			"responses":    exp.Responses,
			"url":          fmt.Sprintf("/experiences?respond=%d", exp.ID),
		},
		Actions: actions,
	}
}
