// Package jobs holds background work that runs beside the generator.
package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"threadgenius/internal/analytics"
	"threadgenius/internal/logging"
	"threadgenius/internal/metrics"
	"threadgenius/internal/publish"
	"threadgenius/internal/store"
	"threadgenius/internal/threads"
)

const (
	cursorKey    = "insights:last_sync"
	EventInsight = "insight"
)

// Store is the slice of the store the insight sync needs.
type Store interface {
	LoadEventsRange(ctx context.Context, start, end time.Time, typ string) ([]store.Event, error)
	PutEvent(ctx context.Context, ts time.Time, typ string, payload any) error
	SaveCursor(ctx context.Context, name, value string) error
	LoadCursor(ctx context.Context, name string) (string, error)
}

// SyncInsights fetches current insights for every post published within horizon and stores one
// insight event per post. Counters keep moving after publication, so each run refetches the whole
// horizon; the cursor only records when the last run finished. A failed fetch is logged and skipped.
// It returns the number stored.
func SyncInsights(ctx context.Context, db Store, api threads.InsightsAPI, horizon time.Duration) (int, error) {
	now := time.Now().UTC()
	pubs, err := db.LoadEventsRange(ctx, now.Add(-horizon), now.Add(time.Second), publish.EventPublish)
	if err != nil {
		return 0, err
	}
	seen := map[string]bool{}
	stored := 0
	for _, e := range pubs {
		var ev publish.PublishedEvent
		if err := json.Unmarshal([]byte(e.Payload), &ev); err != nil || ev.PostID == "" || seen[ev.PostID] {
			continue
		}
		seen[ev.PostID] = true
		in, err := api.Insights(ctx, ev.PostID)
		if err != nil {
			if ctx.Err() != nil {
				return stored, ctx.Err()
			}
			metrics.InsightSyncs.WithLabelValues("error").Inc()
			logging.Warn("insight_fetch_error", map[string]any{"post_id": ev.PostID, "error": err.Error()})
			continue
		}
		payload := analytics.InsightPayload{PostID: ev.PostID, Views: in.Views, Likes: in.Likes, Replies: in.Replies, Reposts: in.Reposts, Quotes: in.Quotes}
		if err := db.PutEvent(ctx, now, EventInsight, payload); err != nil {
			return stored, err
		}
		metrics.InsightSyncs.WithLabelValues("ok").Inc()
		stored++
	}
	if err := db.SaveCursor(ctx, cursorKey, now.Format(time.RFC3339Nano)); err != nil {
		return stored, fmt.Errorf("save insights cursor: %w", err)
	}
	logging.Info("insights_sync", map[string]any{"published": len(seen), "stored": stored})
	return stored, nil
}

// LastSync returns when SyncInsights last completed; zero if never.
func LastSync(ctx context.Context, db Store) time.Time {
	v, err := db.LoadCursor(ctx, cursorKey)
	if err != nil || v == "" {
		return time.Time{}
	}
	ts, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return time.Time{}
	}
	return ts
}

// RunInsightsLoop runs SyncInsights on a ticker until ctx is cancelled.
func RunInsightsLoop(ctx context.Context, db Store, api threads.InsightsAPI, horizon, interval time.Duration) error {
	t := time.NewTicker(interval)
	defer t.Stop()
	// run immediately
	if _, err := SyncInsights(ctx, db, api, horizon); err != nil {
		logging.Error("insights_sync_error", map[string]any{"error": err.Error()})
	}
	for {
		select {
		case <-ctx.Done():
			logging.Info("insights_loop_stop", nil)
			return ctx.Err()
		case <-t.C:
			if _, err := SyncInsights(ctx, db, api, horizon); err != nil {
				logging.Error("insights_sync_error", map[string]any{"error": err.Error()})
			}
		}
	}
}
