package jobs

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"threadgenius/internal/analytics"
	"threadgenius/internal/publish"
	"threadgenius/internal/store"
	"threadgenius/internal/threads"
)

// fake insights client for sync tests
type fakeInsights struct {
	mu    sync.Mutex
	calls []string
}

func (f *fakeInsights) Insights(ctx context.Context, postID string) (threads.Insights, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, postID)
	if postID == "broken" {
		return threads.Insights{}, errors.New("400")
	}
	return threads.Insights{Views: 100, Replies: 4, Likes: 2}, nil
}

func (f *fakeInsights) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func openStore(t *testing.T) *store.DB {
	t.Helper()
	db, err := store.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestSyncInsightsStoresOnePerPublishedPost(t *testing.T) {
	db := openStore(t)
	ctx := context.Background()
	now := time.Now().UTC()
	require.NoError(t, db.PutEvent(ctx, now.Add(-time.Hour), publish.EventPublish, publish.PublishedEvent{PostID: "a"}))
	require.NoError(t, db.PutEvent(ctx, now.Add(-30*time.Minute), publish.EventPublish, publish.PublishedEvent{PostID: "a"}))
	require.NoError(t, db.PutEvent(ctx, now.Add(-10*time.Minute), publish.EventPublish, publish.PublishedEvent{PostID: "broken"}))
	require.NoError(t, db.PutEvent(ctx, now.Add(-72*time.Hour), publish.EventPublish, publish.PublishedEvent{PostID: "old"}))

	api := &fakeInsights{}
	assert.True(t, LastSync(ctx, db).IsZero())

	n, err := SyncInsights(ctx, db, api, 24*time.Hour)

	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.ElementsMatch(t, []string{"a", "broken"}, api.calls)
	assert.False(t, LastSync(ctx, db).IsZero())

	events, err := db.LoadEventsRange(ctx, now.Add(-time.Hour), now.Add(time.Hour), EventInsight)
	require.NoError(t, err)
	totals := analytics.LatestInsights(events)
	assert.Equal(t, analytics.Totals{Posts: 1, Views: 100, Likes: 2, Replies: 4}, totals)
}

type cursorFailStore struct{ *store.DB }

func (cursorFailStore) SaveCursor(ctx context.Context, name, value string) error {
	return errors.New("disk full")
}

func TestSyncInsightsReportsCursorError(t *testing.T) {
	db := openStore(t)
	ctx := context.Background()
	require.NoError(t, db.PutEvent(ctx, time.Now().UTC(), publish.EventPublish, publish.PublishedEvent{PostID: "a"}))

	n, err := SyncInsights(ctx, cursorFailStore{db}, &fakeInsights{}, time.Hour)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.Equal(t, 1, n)
	assert.True(t, LastSync(ctx, db).IsZero())
}

func TestRunInsightsLoopStopsOnCancel(t *testing.T) {
	db := openStore(t)
	require.NoError(t, db.PutEvent(context.Background(), time.Now().UTC(), publish.EventPublish, publish.PublishedEvent{PostID: "a"}))
	api := &fakeInsights{}
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- RunInsightsLoop(ctx, db, api, time.Hour, 10*time.Millisecond) }()

	assert.Eventually(t, func() bool { return api.count() >= 2 }, time.Second, 5*time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("loop did not stop")
	}
}
