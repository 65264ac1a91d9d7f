// Package suggest runs the two-pass generation pipeline: one draft call for the batch, then one
// rewrite call per draft, followed by shaping, scoring and ranking.
package suggest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"threadgenius/internal/config"
	"threadgenius/internal/llm"
	"threadgenius/internal/logging"
	"threadgenius/internal/metrics"
	"threadgenius/internal/model"
	"threadgenius/internal/parse"
	"threadgenius/internal/prompt"
)

// ErrDraftGeneration is the only failure Generate reports: the draft call produced no text.
var ErrDraftGeneration = errors.New("draft generation failed")

// Options are the per-request generation switches.
type Options struct {
	CalmPriority bool
	ForcedTag    string
	ShortMode    bool
}

func (o Options) maxChars() int {
	if o.ShortMode {
		return model.MaxCharsShort
	}
	return model.MaxCharsStandard
}

// Generator produces ranked post batches.
type Generator struct {
	Completer   llm.Completer
	Draft       llm.CallOptions
	Rewrite     llm.CallOptions
	Concurrency int
}

// NewGenerator wires a completer with the sampling settings from cfg.
func NewGenerator(c llm.Completer, cfg config.Config) *Generator {
	return &Generator{
		Completer:   c,
		Draft:       llm.CallOptions{Temperature: cfg.LLM.DraftTemperature, MaxTokens: cfg.LLM.DraftMaxTokens},
		Rewrite:     llm.CallOptions{Temperature: cfg.LLM.RewriteTemperature, MaxTokens: cfg.LLM.RewriteMaxTokens},
		Concurrency: cfg.Generation.Concurrency,
	}
}

// Generate returns exactly count posts (at least one) sorted by score, highest first.
func (g *Generator) Generate(ctx context.Context, persona model.Persona, topic string, count int, opts Options) ([]model.Post, error) {
	start := time.Now()
	metrics.GenerateRuns.Inc()
	defer metrics.ObserveGenerateDuration(start)

	count = max(count, 1)
	maxChars := opts.maxChars()

	logging.Info("draft_request", map[string]any{"persona": persona.Name, "count": count, "max_chars": maxChars, "forced_tag": opts.ForcedTag})
	raw, err := g.Completer.Complete(ctx, prompt.BuildDraft(persona, topic, count, maxChars, opts.ForcedTag), g.Draft)
	if err != nil {
		metrics.IncLLMCall("draft", "error")
		metrics.GenerateErrors.Inc()
		logging.Error("draft_failed", map[string]any{"persona": persona.Name, "error": err.Error()})
		return nil, fmt.Errorf("%w: %w", ErrDraftGeneration, err)
	}
	metrics.IncLLMCall("draft", "ok")

	drafts := parse.New(maxChars).ParseList(raw, count)
	if len(drafts) > count {
		drafts = drafts[:count]
	}

	rewritten := g.humanizeAll(ctx, drafts, persona, PickStyleModes(count, opts.CalmPriority), opts.ForcedTag, maxChars)

	posts := make([]model.Post, 0, count)
	for _, p := range rewritten {
		p = model.Score(model.Shape(p, opts.ForcedTag, maxChars), persona)
		if strings.TrimSpace(p.PostText) == "" {
			continue
		}
		posts = append(posts, p)
	}

	if missing := count - len(posts); missing > 0 {
		metrics.Backfilled.Add(float64(missing))
		logging.Warn("backfill", map[string]any{"missing": missing, "count": count})
		for _, p := range parse.Fallback(missing, maxChars) {
			posts = append(posts, model.Score(model.Shape(p, opts.ForcedTag, maxChars), persona))
		}
	}

	model.SortByScore(posts)
	posts = posts[:count]
	for _, p := range posts {
		metrics.PostScores.Observe(p.Score)
	}
	logging.Info("generate_done", map[string]any{"persona": persona.Name, "count": len(posts), "top_score": posts[0].Score, "elapsed_ms": time.Since(start).Milliseconds()})
	return posts, nil
}

// humanizeAll rewrites drafts concurrently; results keep the draft order.
func (g *Generator) humanizeAll(ctx context.Context, drafts []model.Post, persona model.Persona, styles []string, forcedTag string, maxChars int) []model.Post {
	h := &Humanizer{Completer: g.Completer, Options: g.Rewrite, MaxChars: maxChars}
	out := make([]model.Post, len(drafts))

	eg, egCtx := errgroup.WithContext(ctx)
	if g.Concurrency > 0 {
		eg.SetLimit(g.Concurrency)
	}
	for i, d := range drafts {
		if strings.TrimSpace(d.PostText) == "" {
			out[i] = d
			continue
		}
		eg.Go(func() error {
			out[i] = h.Humanize(egCtx, d, persona, styles[i], forcedTag)
			return nil
		})
	}
	_ = eg.Wait()
	return out
}
