// Package parse turns free-form model output into post records.
// Nothing in this package returns an error: every input yields usable records.
package parse

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"threadgenius/internal/logging"
	"threadgenius/internal/metrics"
	"threadgenius/internal/model"
)

// Strategy names the step of the fallback chain that produced the records.
type Strategy string

const (
	StrategyDirect  Strategy = "direct"
	StrategyFenced  Strategy = "fenced"
	StrategyBracket Strategy = "bracket"
	StrategyText    Strategy = "text"
	StrategyEmpty   Strategy = "empty"
)

const (
	splitReasoning  = "JSON取得に失敗したためテキストを分割して復元"
	emptyReasoning  = "空レスポンスのためフォールバック"
	fallbackTrigger = "質問を含む"
	minChunkChars   = 180
	maxChunkChars   = 500
)

var (
	fencedRegex      = regexp.MustCompile("(?s)```(?:json|JSON)?\\s*(.*?)\\s*```")
	arrayRegex       = regexp.MustCompile(`(?s)\[\s*\{.*\}\s*\]`)
	objectRegex      = regexp.MustCompile(`(?s)\{.*\}`)
	bracketPostRegex = regexp.MustCompile(`【\s*投稿\s*\d+\s*】`)
	labelPostRegex   = regexp.MustCompile(`(?m)(?:投稿\s*\d+\s*[:：]?|^\s*(?:Post|POST)\s*\d+\s*[:：])`)
	blankLineRegex   = regexp.MustCompile(`\n\s*\n`)
)

// Parser converts raw completions into posts capped at MaxChars characters.
type Parser struct {
	MaxChars int
}

// New returns a Parser; a non-positive maxChars means the standard cap.
func New(maxChars int) *Parser {
	if maxChars <= 0 {
		maxChars = model.MaxCharsStandard
	}
	return &Parser{MaxChars: maxChars}
}

// Result is the parsed records plus the strategy that produced them.
type Result struct {
	Posts    []model.Post
	Strategy Strategy
}

// ParseList extracts a list of posts, trying in order: the whole text as JSON, a fenced
// code block, the first bracketed array or object, and finally plain-text segmentation.
func (p *Parser) ParseList(raw string, expected int) []model.Post {
	return p.Parse(raw, expected).Posts
}

// Parse is ParseList that also reports the winning strategy.
func (p *Parser) Parse(raw string, expected int) Result {
	if expected < 1 {
		expected = 1
	}
	res := p.parse(strings.TrimSpace(raw), expected)
	metrics.IncParseStrategy(string(res.Strategy))
	logging.Debug("parse_list", map[string]any{"strategy": string(res.Strategy), "records": len(res.Posts), "expected": expected})
	return res
}

func (p *Parser) parse(text string, expected int) Result {
	if text == "" {
		return Result{Posts: Fallback(expected, p.MaxChars), Strategy: StrategyEmpty}
	}
	if posts, ok := decodeStrict(text); ok {
		return Result{Posts: posts, Strategy: StrategyDirect}
	}
	if m := fencedRegex.FindStringSubmatch(text); m != nil {
		if posts, ok := decodeLenient(m[1]); ok {
			return Result{Posts: posts, Strategy: StrategyFenced}
		}
	}
	if posts, ok := decodeBracketed(text); ok {
		return Result{Posts: posts, Strategy: StrategyBracket}
	}
	return Result{Posts: p.splitText(text, expected), Strategy: StrategyText}
}

// ParseSingle extracts one rewritten post. ok is false when no JSON object with a
// post_text field can be recovered.
func (p *Parser) ParseSingle(raw string) (model.Post, bool) {
	text := strings.TrimSpace(raw)
	if text == "" {
		return model.Post{}, false
	}
	candidates := []string{text}
	if m := fencedRegex.FindStringSubmatch(text); m != nil {
		candidates = append(candidates, m[1])
	}
	if m := objectRegex.FindString(text); m != "" {
		candidates = append(candidates, m)
	}
	if i := strings.IndexAny(text, "{["); i >= 0 {
		candidates = append(candidates, text[i:])
	}
	for _, c := range candidates {
		if posts, ok := decodeLenient(c); ok {
			return posts[0], true
		}
	}
	return model.Post{}, false
}

// Fallback returns n placeholder posts (at least one) used when the model produced nothing.
func Fallback(n, maxChars int) []model.Post {
	if n < 1 {
		n = 1
	}
	if maxChars <= 0 {
		maxChars = model.MaxCharsStandard
	}
	out := make([]model.Post, 0, n)
	for i := 1; i <= n; i++ {
		text := fmt.Sprintf("（投稿案%d）生成結果が空だったため、下書きを用意できませんでした。", i)
		out = append(out, model.Post{
			PostText:            model.EnsureQuestion(text, model.CannedQuestion, maxChars),
			TopicTag:            model.DefaultTopicTag,
			PredictedStage:      model.Stage2,
			ConversationTrigger: fallbackTrigger,
			Reasoning:           emptyReasoning,
			StyleMode:           model.StyleNone,
		})
	}
	return out
}

func (p *Parser) splitText(raw string, expected int) []model.Post {
	chunks := segment(raw, expected)
	out := make([]model.Post, 0, expected)
	for _, c := range chunks {
		c = strings.TrimSpace(c)
		out = append(out, model.Post{
			PostText:            model.EnsureQuestion(c, model.CannedQuestion, p.MaxChars),
			TopicTag:            model.DefaultTopicTag,
			PredictedStage:      model.Stage2,
			ConversationTrigger: fallbackTrigger,
			Reasoning:           splitReasoning,
			StyleMode:           model.StyleNone,
		})
	}
	return out
}

// segment splits raw into exactly expected chunks: numbered post markers first, then blank-line
// paragraphs, then fixed-size character windows padded with empty chunks.
func segment(raw string, expected int) []string {
	parts := nonEmpty(bracketPostRegex.Split(raw, -1))
	if len(parts) < 2 {
		if alt := nonEmpty(labelPostRegex.Split(raw, -1)); len(alt) >= 2 {
			parts = alt
		}
	}
	if len(parts) >= expected {
		return parts[:expected]
	}
	if blocks := nonEmpty(blankLineRegex.Split(raw, -1)); len(blocks) >= expected {
		return blocks[:expected]
	}

	runes := []rune(raw)
	step := len(runes) / expected
	if step < 1 {
		step = 1
	}
	step = max(minChunkChars, min(maxChunkChars, step))
	var chunks []string
	for i := 0; i < len(runes); i += step {
		end := min(i+step, len(runes))
		if c := strings.TrimSpace(string(runes[i:end])); c != "" {
			chunks = append(chunks, c)
		}
	}
	for len(chunks) < expected {
		chunks = append(chunks, "")
	}
	return chunks[:expected]
}

func nonEmpty(parts []string) []string {
	out := parts[:0:0]
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func decodeStrict(text string) ([]model.Post, bool) {
	if !strings.HasPrefix(text, "[") && !strings.HasPrefix(text, "{") {
		return nil, false
	}
	var v any
	if err := json.Unmarshal([]byte(text), &v); err != nil {
		return nil, false
	}
	return toPosts(v)
}

func decodeBracketed(text string) ([]model.Post, bool) {
	if m := arrayRegex.FindString(text); m != "" {
		if posts, ok := decodeLenient(m); ok {
			return posts, true
		}
	}
	if m := objectRegex.FindString(text); m != "" {
		if posts, ok := decodeLenient(m); ok {
			return posts, true
		}
	}
	// output cut off before the closing bracket
	if i := strings.IndexAny(text, "[{"); i >= 0 {
		return decodeLenient(text[i:])
	}
	return nil, false
}

// decodeLenient decodes the first JSON value in s, repairing it if needed.
func decodeLenient(s string) ([]model.Post, bool) {
	attempts := []string{s, repairJSON(s)}
	if i := strings.LastIndex(s, "}"); i >= 0 && i < len(s)-1 {
		attempts = append(attempts, repairJSON(s[:i+1]))
	}
	for _, a := range attempts {
		var v any
		if err := json.NewDecoder(strings.NewReader(a)).Decode(&v); err != nil {
			continue
		}
		if posts, ok := toPosts(v); ok {
			return posts, true
		}
	}
	return nil, false
}

// toPosts accepts an array of objects, a single object, or an object wrapping an array.
func toPosts(v any) ([]model.Post, bool) {
	var items []any
	switch t := v.(type) {
	case []any:
		items = t
	case map[string]any:
		items = []any{t}
		for _, key := range []string{"posts", "items", "results"} {
			if arr, ok := t[key].([]any); ok {
				items = arr
				break
			}
		}
	default:
		return nil, false
	}
	var out []model.Post
	hasText := false
	for _, it := range items {
		m, ok := it.(map[string]any)
		if !ok {
			continue
		}
		p := fromMap(m)
		if strings.TrimSpace(p.PostText) != "" {
			hasText = true
		}
		out = append(out, p)
	}
	return out, hasText
}

func fromMap(m map[string]any) model.Post {
	return model.Post{
		PostText:            field(m, "post_text", "text", "content"),
		TopicTag:            field(m, "topic_tag", "tag", "hashtag"),
		Hook:                field(m, "hook"),
		Body:                field(m, "body"),
		CTA:                 field(m, "cta"),
		PredictedStage:      field(m, "predicted_stage", "stage"),
		ConversationTrigger: field(m, "conversation_trigger"),
		Reasoning:           field(m, "reasoning"),
		StyleMode:           field(m, "style_mode"),
		Lens:                field(m, "lens"),
	}
}

func field(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if v, ok := m[k]; ok && v != nil {
			return stringify(v)
		}
	}
	return ""
}

func stringify(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	case []any:
		if len(t) > 0 {
			return stringify(t[0])
		}
		return ""
	default:
		b, _ := json.Marshal(t)
		return string(b)
	}
}
