package publish

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"threadgenius/internal/config"
	"threadgenius/internal/logging"
	"threadgenius/internal/model"
	"threadgenius/internal/threads"
)

var (
	ErrBudgetExceeded = errors.New("publish budget exhausted for this hour or day")
	ErrQuietHour      = errors.New("current hour is configured as quiet")
)

// EventPublish is the event type written for every published post.
const EventPublish = "publish"

// Store records actions and events.
type Store interface {
	ActionStore
	PutEvent(ctx context.Context, ts time.Time, typ string, payload any) error
}

// PublishedEvent is the payload of a publish event.
type PublishedEvent struct {
	PostID   string  `json:"post_id"`
	TopicTag string  `json:"topic_tag"`
	Style    string  `json:"style_mode"`
	Score    float64 `json:"score"`
	Chars    int     `json:"chars"`
}

// Publisher posts generated records to Threads within the configured budget.
type Publisher struct {
	API   threads.API
	Store Store
	Cfg   config.PublishingConfig
	Now   func() time.Time
}

func (p *Publisher) now() time.Time {
	if p.Now != nil {
		return p.Now().UTC()
	}
	return time.Now().UTC()
}

// Publish posts post.PostText unless the budget or a quiet hour forbids it.
// force skips the quiet-hour check but never the budget.
func (p *Publisher) Publish(ctx context.Context, post model.Post, force bool) (threads.PublishResult, error) {
	now := p.now()
	if !force && slices.Contains(p.Cfg.QuietHours, now.Hour()) {
		return threads.PublishResult{}, ErrQuietHour
	}
	ok, err := ShouldAllow(ctx, p.Store, p.Cfg, now)
	if err != nil {
		return threads.PublishResult{}, fmt.Errorf("check budget: %w", err)
	}
	if !ok {
		return threads.PublishResult{}, ErrBudgetExceeded
	}

	res, err := p.API.Publish(ctx, post.PostText)
	if err != nil {
		return res, err
	}
	if err := Record(ctx, p.Store, now); err != nil {
		logging.Error("publish_record_failed", map[string]any{"error": err.Error(), "post_id": res.PostID})
	}
	ev := PublishedEvent{PostID: res.PostID, TopicTag: post.TopicTag, Style: post.StyleMode, Score: post.Score, Chars: len([]rune(post.PostText))}
	if err := p.Store.PutEvent(ctx, now, EventPublish, ev); err != nil {
		logging.Error("publish_event_failed", map[string]any{"error": err.Error(), "post_id": res.PostID})
	}
	logging.Info("published", map[string]any{"post_id": res.PostID, "topic_tag": post.TopicTag, "score": post.Score})
	return res, nil
}
