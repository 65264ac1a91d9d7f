// Package publish gates posting to Threads behind hourly and daily budgets and quiet hours.
package publish

import (
	"context"
	"time"

	"threadgenius/internal/config"
)

// ActionPublish is the action type counted against the budget.
const ActionPublish = "publish"

// ActionStore is the slice of the store the budget needs.
type ActionStore interface {
	PutAction(ctx context.Context, ts time.Time, typ string) error
	CountActionsWithin(ctx context.Context, start, end time.Time, typ string) (int, error)
}

// ShouldAllow checks hourly/daily budgets before publishing. A zero limit means unlimited.
func ShouldAllow(ctx context.Context, db ActionStore, cfg config.PublishingConfig, now time.Time) (bool, error) {
	now = now.UTC()
	startHour := now.Truncate(time.Hour)
	startDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	hourCount, err := db.CountActionsWithin(ctx, startHour, startHour.Add(time.Hour), ActionPublish)
	if err != nil {
		return false, err
	}
	dayCount, err := db.CountActionsWithin(ctx, startDay, startDay.Add(24*time.Hour), ActionPublish)
	if err != nil {
		return false, err
	}
	if cfg.MaxPerHour > 0 && hourCount >= cfg.MaxPerHour {
		return false, nil
	}
	if cfg.MaxPerDay > 0 && dayCount >= cfg.MaxPerDay {
		return false, nil
	}
	return true, nil
}

// Record logs a publish action.
func Record(ctx context.Context, db ActionStore, now time.Time) error {
	return db.PutAction(ctx, now, ActionPublish)
}
