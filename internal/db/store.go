package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Joseda-hg/lazyday/internal/model"
)

// Notification actions reported by the service worker.
const (
	ActionYes = "yes"
	ActionNo  = "no"
)

var ErrInvalidAction = errors.New("invalid notification action")

type Store struct {
	DB *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{DB: db}
}

func (s *Store) RecordNotificationEvent(ctx context.Context, action, tag string, at time.Time) (model.NotificationEvent, error) {
	action = normalizeAction(action)
	if action == "" {
		return model.NotificationEvent{}, fmt.Errorf("%w: must be %q or %q", ErrInvalidAction, ActionYes, ActionNo)
	}
	if at.IsZero() {
		at = time.Now()
	}
	at = at.UTC()
	tag = strings.TrimSpace(tag)

	result, err := s.DB.ExecContext(ctx,
		"INSERT INTO notification_events (action, tag, created_at) VALUES (?, ?, ?)",
		action, tag, at)
	if err != nil {
		return model.NotificationEvent{}, fmt.Errorf("record notification event: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return model.NotificationEvent{}, err
	}

	return model.NotificationEvent{ID: id, Action: action, Tag: tag, CreatedAt: at}, nil
}

func (s *Store) NotificationStats(ctx context.Context, recent int) (model.NotificationStats, error) {
	stats := model.NotificationStats{Recent: []model.NotificationEvent{}}

	rows, err := s.DB.QueryContext(ctx, "SELECT action, COUNT(*) FROM notification_events GROUP BY action")
	if err != nil {
		return stats, fmt.Errorf("count notification events: %w", err)
	}
	for rows.Next() {
		var action string
		var count int64
		if err := rows.Scan(&action, &count); err != nil {
			_ = rows.Close()
			return stats, err
		}
		switch action {
		case ActionYes:
			stats.Yes = count
		case ActionNo:
			stats.No = count
		}
		stats.Total += count
	}
	if err := rows.Close(); err != nil {
		return stats, err
	}
	if err := rows.Err(); err != nil {
		return stats, err
	}

	if recent <= 0 {
		return stats, nil
	}

	events, err := s.DB.QueryContext(ctx,
		"SELECT id, action, tag, created_at FROM notification_events ORDER BY id DESC LIMIT ?", recent)
	if err != nil {
		return stats, fmt.Errorf("list notification events: %w", err)
	}
	defer events.Close()
	for events.Next() {
		var event model.NotificationEvent
		if err := events.Scan(&event.ID, &event.Action, &event.Tag, &event.CreatedAt); err != nil {
			return stats, err
		}
		stats.Recent = append(stats.Recent, event)
	}
	return stats, events.Err()
}

func normalizeAction(action string) string {
	switch strings.TrimSpace(strings.ToLower(action)) {
	case ActionYes, "open":
		return ActionYes
	case ActionNo, "dismiss":
		return ActionNo
	}
	return ""
}
