package suggest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"threadgenius/internal/config"
	"threadgenius/internal/llm"
	"threadgenius/internal/model"
	"threadgenius/internal/util"
)

// fakeCompleter answers draft and rewrite prompts with canned text.
type fakeCompleter struct {
	mu       sync.Mutex
	draft    string
	draftErr error
	rewrite  func(prompt string) (string, error)
	drafts   int
	rewrites int
}

func (f *fakeCompleter) Complete(ctx context.Context, prompt string, opts llm.CallOptions) (string, error) {
	f.mu.Lock()
	isRewrite := strings.Contains(prompt, "<style_mode>")
	if isRewrite {
		f.rewrites++
	} else {
		f.drafts++
	}
	f.mu.Unlock()

	if !isRewrite {
		return f.draft, f.draftErr
	}
	if f.rewrite == nil {
		return "", errors.New("no rewrite configured")
	}
	return f.rewrite(prompt)
}

var testPersona = model.DefaultPersonas()[1]

func draftJSON(n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = fmt.Sprintf(`{"post_text":"下書き%d：集客の方法を整理しました","topic_tag":"#集客","predicted_stage":"Stage%d","conversation_trigger":"比較","reasoning":"r"}`, i+1, i%4+1)
	}
	return "[" + strings.Join(parts, ",") + "]"
}

func TestPickStyleModes(t *testing.T) {
	assert.Equal(t, []string{"calm", "calm", "calm", "calm", "warm"}, PickStyleModes(5, true))
	assert.Equal(t, []string{"warm", "warm", "warm", "calm", "calm"}, PickStyleModes(5, false))
	assert.Equal(t, []string{"warm"}, PickStyleModes(1, true))
	assert.Equal(t, []string{"warm"}, PickStyleModes(1, false))
	assert.Equal(t, []string{"warm", "warm"}, PickStyleModes(2, false))
	assert.Equal(t, []string{"calm", "warm"}, PickStyleModes(2, true))
	assert.Empty(t, PickStyleModes(0, true))
	assert.Equal(t, PickStyleModes(7, false), PickStyleModes(7, false))
}

func TestGenerateReturnsExactlyCount(t *testing.T) {
	for _, count := range []int{1, 3, 5, 8} {
		t.Run(fmt.Sprint(count), func(t *testing.T) {
			fc := &fakeCompleter{
				draft: draftJSON(3),
				rewrite: func(string) (string, error) {
					return `{"post_text":"これ、よくあります。あなたはどっち派ですか？","lens":"比較"}`, nil
				},
			}
			g := &Generator{Completer: fc, Concurrency: 2}

			posts, err := g.Generate(context.Background(), testPersona, "ニュース", count, Options{})

			require.NoError(t, err)
			assert.Len(t, posts, count)
			assert.Equal(t, 1, fc.drafts)
			assert.Equal(t, min(count, 3), fc.rewrites)
		})
	}
}

func TestGenerateForcesTagAndQuestion(t *testing.T) {
	fc := &fakeCompleter{
		draft: draftJSON(4),
		rewrite: func(p string) (string, error) {
			if strings.Contains(p, "下書き2") {
				return "garbage", nil
			}
			return `{"post_text":"現場では数字の見せ方で反応が変わります。","topic_tag":"#まったく別"}`, nil
		},
	}
	g := &Generator{Completer: fc}

	posts, err := g.Generate(context.Background(), testPersona, "ニュース", 4, Options{ForcedTag: "Web集客", ShortMode: true})

	require.NoError(t, err)
	require.Len(t, posts, 4)
	for _, p := range posts {
		assert.Equal(t, "#Web集客", p.TopicTag)
		assert.True(t, util.HasQuestion(p.PostText), p.PostText)
		assert.LessOrEqual(t, util.RuneLen(p.PostText), model.MaxCharsShort)
		assert.Equal(t, model.DefaultLens, p.Lens)
	}
}

func TestGenerateSortsByScore(t *testing.T) {
	answers := []string{
		`{"post_text":"短い文です"}`,
		`{"post_text":"正直、これってよくあります。あなたはどっち派ですか？集客の方法とコツ、データで見る結果に驚きました。","predicted_stage":"Stage4"}`,
		`{"post_text":"方法のメモ"}`,
	}
	var mu sync.Mutex
	next := 0
	fc := &fakeCompleter{
		draft: draftJSON(3),
		rewrite: func(string) (string, error) {
			mu.Lock()
			defer mu.Unlock()
			a := answers[next%len(answers)]
			next++
			return a, nil
		},
	}

	posts, err := (&Generator{Completer: fc, Concurrency: 3}).Generate(context.Background(), testPersona, "ニュース", 3, Options{})

	require.NoError(t, err)
	require.Len(t, posts, 3)
	for i := 1; i < len(posts); i++ {
		assert.GreaterOrEqual(t, posts[i-1].Score, posts[i].Score)
	}
	assert.Contains(t, posts[0].PostText, "正直")
}

func TestGenerateDraftFailure(t *testing.T) {
	boom := errors.New("connection refused")
	fc := &fakeCompleter{draftErr: boom}

	posts, err := (&Generator{Completer: fc}).Generate(context.Background(), testPersona, "ニュース", 3, Options{})

	assert.Nil(t, posts)
	assert.ErrorIs(t, err, ErrDraftGeneration)
	assert.ErrorIs(t, err, boom)
	assert.Zero(t, fc.rewrites)
}

func TestGenerateBlankDraftCompletionFails(t *testing.T) {
	fc := &fakeCompleter{draftErr: llm.ErrEmptyCompletion}

	posts, err := (&Generator{Completer: fc}).Generate(context.Background(), testPersona, "ニュース", 2, Options{})

	assert.Nil(t, posts)
	assert.ErrorIs(t, err, ErrDraftGeneration)
	assert.ErrorIs(t, err, llm.ErrEmptyCompletion)
}

func TestGenerateRewriteFailureKeepsDrafts(t *testing.T) {
	fc := &fakeCompleter{draft: draftJSON(3)}

	posts, err := (&Generator{Completer: fc}).Generate(context.Background(), testPersona, "ニュース", 3, Options{CalmPriority: true})

	require.NoError(t, err)
	require.Len(t, posts, 3)
	styles := map[string]int{}
	for _, p := range posts {
		assert.True(t, strings.HasPrefix(p.PostText, "下書き"))
		assert.True(t, util.HasQuestion(p.PostText))
		styles[p.StyleMode]++
	}
	assert.Equal(t, map[string]int{model.StyleCalm: 2, model.StyleWarm: 1}, styles)
}

func TestGenerateRewriteTimeoutIsAFallback(t *testing.T) {
	fc := &fakeCompleter{draft: draftJSON(2)}
	hanging := llm.CompleterFunc(func(ctx context.Context, prompt string, opts llm.CallOptions) (string, error) {
		if strings.Contains(prompt, "<style_mode>") {
			<-ctx.Done()
			return "", ctx.Err()
		}
		return fc.Complete(ctx, prompt, opts)
	})
	c := llm.NewResilient(hanging, llm.ResilienceConfig{Timeout: 20 * time.Millisecond})

	start := time.Now()
	posts, err := (&Generator{Completer: c}).Generate(context.Background(), testPersona, "ニュース", 2, Options{})

	require.NoError(t, err)
	assert.Len(t, posts, 2)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestGenerateBackfillsMissingPosts(t *testing.T) {
	fc := &fakeCompleter{
		draft:   `[{"post_text":"一つだけの下書きです？"}]`,
		rewrite: func(string) (string, error) { return `{"post_text":"一つだけです。どう思いますか？"}`, nil },
	}

	posts, err := (&Generator{Completer: fc}).Generate(context.Background(), testPersona, "ニュース", 4, Options{})

	require.NoError(t, err)
	require.Len(t, posts, 4)
	placeholders := 0
	for _, p := range posts {
		assert.NotEmpty(t, p.PostText)
		assert.True(t, util.HasQuestion(p.PostText))
		if strings.Contains(p.PostText, "投稿案") {
			placeholders++
		}
	}
	assert.Equal(t, 3, placeholders)
}

func TestGenerateEmptyDraftText(t *testing.T) {
	fc := &fakeCompleter{draft: "   "}

	posts, err := (&Generator{Completer: fc}).Generate(context.Background(), testPersona, "ニュース", 3, Options{})

	require.NoError(t, err)
	assert.Len(t, posts, 3)
}

func TestHumanizeSuccess(t *testing.T) {
	draft := model.Post{PostText: "下書き本文", TopicTag: "#集客", PredictedStage: model.Stage3, Reasoning: "r"}
	fc := &fakeCompleter{rewrite: func(string) (string, error) {
		return "```json\n{\"post_text\":\"書き直した本文です。\",\"topic_tag\":\"#別\"}\n```", nil
	}}
	h := &Humanizer{Completer: fc, MaxChars: model.MaxCharsStandard}

	out := h.Humanize(context.Background(), draft, testPersona, model.StyleCalm, "Web集客")

	assert.Equal(t, "#Web集客", out.TopicTag)
	assert.Equal(t, model.StyleCalm, out.StyleMode)
	assert.Equal(t, model.DefaultLens, out.Lens)
	assert.Equal(t, model.Stage3, out.PredictedStage)
	assert.True(t, strings.HasSuffix(out.PostText, model.ClosingPhrase(draft.PostText, model.StyleCalm)))
	assert.Empty(t, out.CTA)
}

func TestHumanizeKeepsDraftTag(t *testing.T) {
	draft := model.Post{PostText: "下書き本文？", TopicTag: "#集客"}
	fc := &fakeCompleter{rewrite: func(string) (string, error) {
		return `{"post_text":"書き直しました。どう思いますか？","topic_tag":"#まったく別","cta":"コメントで教えてください"}`, nil
	}}

	out := (&Humanizer{Completer: fc}).Humanize(context.Background(), draft, testPersona, model.StyleWarm, "")

	assert.Equal(t, "#集客", out.TopicTag)
	assert.Equal(t, "コメントで教えてください", out.CTA)

	untagged := model.Post{PostText: "下書き本文？"}
	out = (&Humanizer{Completer: fc}).Humanize(context.Background(), untagged, testPersona, model.StyleWarm, "")
	assert.Equal(t, "#まったく別", out.TopicTag)
}

func TestGenerateScoresRecordWithoutCTA(t *testing.T) {
	fc := &fakeCompleter{draft: `[{"post_text":"これは方法です。どうですか？","topic_tag":"#x","predicted_stage":"Stage3"}]`}

	posts, err := (&Generator{Completer: fc}).Generate(context.Background(), testPersona, "ニュース", 1, Options{})

	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Empty(t, posts[0].CTA)
	assert.InDelta(t, 0.4, posts[0].ScoreDetails["conversation_trigger"], 1e-9)
	assert.InDelta(t, 49.58, posts[0].Score, 1e-9)
}

func TestHumanizeEmptyRewriteKeepsDraft(t *testing.T) {
	draft := model.Post{PostText: "下書き本文？", TopicTag: "#集客"}
	fc := &fakeCompleter{rewrite: func(string) (string, error) { return `{"post_text":"  "}`, nil }}

	out := (&Humanizer{Completer: fc}).Humanize(context.Background(), draft, testPersona, model.StyleWarm, "")

	want := draft
	want.StyleMode = model.StyleWarm
	assert.Equal(t, want, out)
}

func TestNewGeneratorUsesConfig(t *testing.T) {
	cfg := config.Default()
	g := NewGenerator(&fakeCompleter{}, cfg)
	assert.Equal(t, cfg.LLM.DraftMaxTokens, g.Draft.MaxTokens)
	assert.Equal(t, cfg.LLM.RewriteTemperature, g.Rewrite.Temperature)
	assert.Equal(t, cfg.Generation.Concurrency, g.Concurrency)
}
