package suggest

import (
	"context"
	"strings"

	"threadgenius/internal/llm"
	"threadgenius/internal/logging"
	"threadgenius/internal/metrics"
	"threadgenius/internal/model"
	"threadgenius/internal/parse"
	"threadgenius/internal/prompt"
	"threadgenius/internal/util"
)

// Humanizer rewrites a draft into a conversational register with one model call.
type Humanizer struct {
	Completer llm.Completer
	Options   llm.CallOptions
	MaxChars  int
}

// Humanize never fails: when the call or the parse goes wrong the original draft comes back
// tagged with style.
func (h *Humanizer) Humanize(ctx context.Context, draft model.Post, persona model.Persona, style, forcedTag string) model.Post {
	maxChars := h.MaxChars
	if maxChars <= 0 {
		maxChars = model.MaxCharsStandard
	}
	fallback := draft
	fallback.StyleMode = style

	raw, err := h.Completer.Complete(ctx, prompt.BuildRewrite(persona, draft, style, maxChars, forcedTag), h.Options)
	if err != nil {
		metrics.IncLLMCall("rewrite", "error")
		return h.degrade(fallback, "call_error", err.Error())
	}
	metrics.IncLLMCall("rewrite", "ok")

	out, ok := parse.New(maxChars).ParseSingle(raw)
	if !ok || strings.TrimSpace(out.PostText) == "" {
		return h.degrade(fallback, "parse_failed", util.TrimForPrompt(raw, 120))
	}

	out.StyleMode = style
	// the rewrite may not move the tag
	if tag := model.NormalizeTag(forcedTag); tag != "" {
		out.TopicTag = tag
	} else {
		out.TopicTag = util.Coalesce(draft.TopicTag, out.TopicTag)
	}
	out.PredictedStage = util.Coalesce(out.PredictedStage, draft.PredictedStage)
	out.ConversationTrigger = util.Coalesce(out.ConversationTrigger, draft.ConversationTrigger)
	out.Reasoning = util.Coalesce(out.Reasoning, draft.Reasoning)
	out.Lens = util.Coalesce(out.Lens, draft.Lens)
	if strings.TrimSpace(out.Lens) == "" {
		out.Lens = model.DefaultLens
	}
	// closing phrase is keyed on the draft text, not the rewrite
	out.PostText = model.EnsureQuestion(out.PostText, model.ClosingPhrase(draft.PostText, style), maxChars)
	return out
}

func (h *Humanizer) degrade(p model.Post, reason, detail string) model.Post {
	metrics.IncRewriteFallback(reason)
	logging.Warn("rewrite_fallback", map[string]any{"reason": reason, "style": p.StyleMode, "detail": detail})
	return p
}
