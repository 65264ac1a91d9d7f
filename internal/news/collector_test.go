package news

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const rssA = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0"><channel><title>A</title>
<item><title>AIで集客が変わる</title><description>中小企業のAI活用が進む</description><link>https://a.example/1</link><pubDate>Mon, 03 Mar 2025 09:00:00 +0000</pubDate></item>
<item><title>天気</title><description>晴れ</description><link>https://a.example/2</link><pubDate>Tue, 04 Mar 2025 09:00:00 +0000</pubDate></item>
</channel></rss>`

const rssB = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0"><channel><title>B</title>
<item><title>副業の始め方</title><description>集客のコツ</description><link>https://b.example/1</link><pubDate>Wed, 05 Mar 2025 09:00:00 +0000</pubDate></item>
</channel></rss>`

func newFeedServer(t *testing.T) *httptest.Server {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		switch r.URL.Path {
		case "/a":
			_, _ = w.Write([]byte(rssA))
		case "/b":
			_, _ = w.Write([]byte(rssB))
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	t.Cleanup(ts.Close)
	return ts
}

func TestCollectSortsAndSkipsBrokenFeeds(t *testing.T) {
	ts := newFeedServer(t)
	c := NewCollector([]string{ts.URL + "/a", ts.URL + "/broken", ts.URL + "/b"})

	items := c.Collect(context.Background(), 10, nil)

	require.Len(t, items, 3)
	assert.Equal(t, "副業の始め方", items[0].Title)
	assert.Equal(t, "天気", items[1].Title)
	assert.Equal(t, ts.URL+"/b", items[0].Source)
	assert.Equal(t, time.Date(2025, 3, 5, 9, 0, 0, 0, time.UTC), items[0].Published)
}

func TestCollectKeywordsAndLimit(t *testing.T) {
	ts := newFeedServer(t)
	c := NewCollector([]string{ts.URL + "/a", ts.URL + "/b"})

	items := c.Collect(context.Background(), 10, []string{"集客"})
	require.Len(t, items, 2)
	for _, it := range items {
		assert.True(t, strings.Contains(it.Title+it.Summary, "集客"))
	}

	assert.Len(t, c.Collect(context.Background(), 1, nil), 1)
}

func TestFormatForPrompt(t *testing.T) {
	out := FormatForPrompt(Item{Title: "t", Summary: strings.Repeat("あ", 300), Link: "https://x"})
	assert.Contains(t, out, "タイトル: t")
	assert.Contains(t, out, "公開日: 不明")
	assert.Contains(t, out, "概要: "+strings.Repeat("あ", 200)+"\n")

	out = FormatForPrompt(Item{Title: "t", Published: time.Date(2025, 3, 5, 9, 0, 0, 0, time.UTC)})
	assert.Contains(t, out, "公開日: 2025-03-05 09:00")
}
