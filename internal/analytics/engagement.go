// Package analytics summarizes stored publish and insight events.
package analytics

import (
	"encoding/json"
	"sort"
	"time"

	"threadgenius/internal/store"
)

// HourlyEngagement aggregates events into per-hour buckets keyed by event type.
func HourlyEngagement(events []store.Event) map[time.Time]map[string]int {
	buckets := make(map[time.Time]map[string]int)
	for _, e := range events {
		key := e.TS.UTC().Truncate(time.Hour)
		if _, ok := buckets[key]; !ok {
			buckets[key] = make(map[string]int)
		}
		buckets[key][e.Type]++
	}
	return buckets
}

// SortedBucketKeys returns sorted hour keys.
func SortedBucketKeys(m map[time.Time]map[string]int) []time.Time {
	keys := make([]time.Time, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Before(keys[j]) })
	return keys
}

// InsightPayload is the payload of an insight event.
type InsightPayload struct {
	PostID  string `json:"post_id"`
	Views   int    `json:"views"`
	Likes   int    `json:"likes"`
	Replies int    `json:"replies"`
	Reposts int    `json:"reposts"`
	Quotes  int    `json:"quotes"`
}

// Totals are the latest insight counters summed over posts.
type Totals struct {
	Posts   int
	Views   int
	Likes   int
	Replies int
	Reposts int
	Quotes  int
}

// ReplyRate is replies per view, the signal the generator optimizes for.
func (t Totals) ReplyRate() float64 {
	if t.Views == 0 {
		return 0
	}
	return float64(t.Replies) / float64(t.Views)
}

// LatestInsights keeps the newest insight event per post and sums them. Malformed payloads are skipped.
func LatestInsights(events []store.Event) Totals {
	latest := map[string]InsightPayload{}
	for _, e := range events {
		var p InsightPayload
		if err := json.Unmarshal([]byte(e.Payload), &p); err != nil || p.PostID == "" {
			continue
		}
		latest[p.PostID] = p
	}
	var t Totals
	for _, p := range latest {
		t.Posts++
		t.Views += p.Views
		t.Likes += p.Likes
		t.Replies += p.Replies
		t.Reposts += p.Reposts
		t.Quotes += p.Quotes
	}
	return t
}
