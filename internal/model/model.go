package model

import "time"

// Experience trigger types.
const (
	TriggerRecurring = "recurring"
	TriggerSet       = "set"
)

// Experience response types.
const (
	ResponseFixedChoice = "fixed-choice"
	ResponseOpenSurvey  = "open-survey"
)

// Experience statuses.
const (
	StatusActive   = "active"
	StatusPaused   = "paused"
	StatusArchived = "archived"
)

// Response kinds.
const (
	ResponseAnswered = "answered"
	ResponseSkipped  = "skipped"
)

type Experience struct {
	ID             int      `json:"id"`
	Name           string   `json:"name"`
	Description    string   `json:"description"`
	TriggerType    string   `json:"triggerType"`
	IntervalNumber int      `json:"intervalNumber,omitempty"`
	IntervalType   string   `json:"intervalType,omitempty"`
	TimesOfDay     []string `json:"timesOfDay"`
	DaysOfWeek     []string `json:"daysOfWeek"`
	ResponseType   string   `json:"responseType"`
	Responses      []string `json:"responses"`
	Status         string   `json:"status"`

	// NextTrigger is nil exactly while PendingResponse is set (or when a
	// set schedule has no slot in the coming week).
	NextTrigger     *time.Time `json:"nextTrigger"`
	PendingResponse bool       `json:"pendingResponse"`
	LastTriggeredAt *time.Time `json:"lastTriggeredAt,omitempty"`
	LastRespondedAt *time.Time `json:"lastRespondedAt,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
}

type ExperienceResponse struct {
	ID            string    `json:"id"`
	ExperienceID  int       `json:"experienceId"`
	Type          string    `json:"type"`
	SelectedIndex *int      `json:"selectedIndex,omitempty"`
	Text          string    `json:"text,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}

type PushKeys struct {
	P256dh string `json:"p256dh"`
	Auth   string `json:"auth"`
}

type PushSubscription struct {
	Endpoint     string    `json:"endpoint"`
	Keys         PushKeys  `json:"keys"`
	SubscribedAt time.Time `json:"subscribedAt"`
	UserAgent    string    `json:"userAgent,omitempty"`
	RemoteAddr   string    `json:"remoteAddr,omitempty"`
}

type NotificationAction struct {
	Action string `json:"action"`
	Title  string `json:"title"`
}

// Notification is the payload handed to the push transport.
type Notification struct {
	Title   string               `json:"title"`
	Body    string               `json:"body"`
	Tag     string               `json:"tag"`
	Icon    string               `json:"icon,omitempty"`
	Badge   string               `json:"badge,omitempty"`
	Data    map[string]any       `json:"data,omitempty"`
	Actions []NotificationAction `json:"actions,omitempty"`
}

// TodaySource points a linked Today item at a task in a collection.
type TodaySource struct {
	Page string `json:"page"`
	Type string `json:"type,omitempty"`
	ID   string `json:"id"`
}

// TodayItem is either linked (Source set) or ad-hoc (Text set).
type TodayItem struct {
	ID          string       `json:"id"`
	Source      *TodaySource `json:"source,omitempty"`
	Name        string       `json:"name,omitempty"`
	AddedAt     *time.Time   `json:"addedAt,omitempty"`
	Text        string       `json:"text,omitempty"`
	CreatedAt   *time.Time   `json:"createdAt,omitempty"`
	CompletedAt *time.Time   `json:"completedAt"`
}

func (i TodayItem) IsLinked() bool {
	return i.Source != nil
}

// Label is the text shown for the item in lists.
func (i TodayItem) Label() string {
	if i.IsLinked() {
		return i.Name
	}
	return i.Text
}

type TimeEntry struct {
	ID           string     `json:"id"`
	Source       string     `json:"source"`
	Name         string     `json:"name"`
	Start        time.Time  `json:"start"`
	End          *time.Time `json:"end,omitempty"`
	ActivityType string     `json:"activityType,omitempty"`
	Link         string     `json:"link,omitempty"`
}

func (e TimeEntry) Running() bool {
	return e.End == nil
}

type NotificationEvent struct {
	ID        int64     `json:"id"`
	Action    string    `json:"action"`
	Tag       string    `json:"tag"`
	CreatedAt time.Time `json:"createdAt"`
}

type NotificationStats struct {
	Yes    int64               `json:"yes"`
	No     int64               `json:"no"`
	Total  int64               `json:"total"`
	Recent []NotificationEvent `json:"recent"`
}
