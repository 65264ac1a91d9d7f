package model

import (
	"cmp"
	"math"
	"slices"
	"strings"

	"threadgenius/internal/util"
)

// SubScores lists the weighted sub-scores in summation order.
var SubScores = []string{"conversation_trigger", "trend_relevance", "emotional_impact", "value_provided", "stage1_potential"}

// Weights of the five sub-scores; they sum to 1.
var Weights = map[string]float64{
	"conversation_trigger": 0.30,
	"trend_relevance":      0.25,
	"emotional_impact":     0.20,
	"value_provided":       0.15,
	"stage1_potential":     0.10,
}

// HumanBonusPoints is the most the human-likeness factor can add on top of the weighted score.
const HumanBonusPoints = 12.0

var (
	opinionKeywords   = []string{"どう思", "考え", "意見", "教えて", "どっち", "どれ", "聞かせて"}
	emotionalKeywords = []string{"驚", "感動", "最高", "やばい", "すごい", "衝撃", "共感", "涙"}
	valueKeywords     = []string{"方法", "コツ", "ポイント", "秘訣", "戦略", "結果", "データ", "実践", "手順"}

	politeMarkers       = []string{"です", "ます", "でした", "ません"}
	addressMarkers      = []string{"あなた", "みなさん", "皆さん", "でしょうか"}
	choiceWords         = []string{"どっち", "どちら", "何番", "どれ", "どの", "どこ"}
	experientialMarkers = []string{"正直", "ぶっちゃけ", "これ、", "これって", "よくあります", "相談で"}
	aiCliches           = []string{
		"結論から言うと", "本質的には", "重要なのは", "要するに", "つまり",
		"かもしれません", "徹底的に", "最適化", "網羅的", "体系的に",
		"ご紹介します", "解説します", "メリット・デメリット",
	}
)

// Score sets p.Score and p.ScoreDetails. The result depends only on p's fields.
// The human-likeness bonus is added after weighting and the total is not capped at 100.
func Score(p Post, _ Persona) Post {
	details := map[string]float64{
		"conversation_trigger": ConversationTrigger(p),
		"trend_relevance":      TrendRelevance(p),
		"emotional_impact":     EmotionalImpact(p),
		"value_provided":       ValueProvided(p),
		"stage1_potential":     Stage1Potential(p),
	}
	score := 0.0
	for _, name := range SubScores {
		score += details[name] * Weights[name] * 100
	}
	human := HumanLikeness(p)
	details["human_likeness"] = human
	score += human * HumanBonusPoints

	p.Score = math.Round(score*100) / 100
	p.ScoreDetails = details
	return p
}

func ConversationTrigger(p Post) float64 {
	text := strings.ToLower(p.PostText)
	s := 0.0
	if util.HasQuestion(text) {
		s += 0.4
	}
	if util.ContainsAny(text, opinionKeywords) {
		s += 0.3
	}
	if util.RuneLen(strings.TrimSpace(p.CTA)) > 10 {
		s += 0.3
	}
	return math.Min(s, 1.0)
}

func TrendRelevance(p Post) float64 {
	if strings.TrimSpace(p.TopicTag) != "" {
		return 0.8
	}
	return 0.4
}

func EmotionalImpact(p Post) float64 {
	return math.Min(float64(util.CountHits(p.PostText, emotionalKeywords))*0.25, 1.0)
}

func ValueProvided(p Post) float64 {
	return math.Min(float64(util.CountHits(p.PostText, valueKeywords))*0.3, 1.0)
}

func Stage1Potential(p Post) float64 {
	switch {
	case strings.Contains(p.PredictedStage, Stage3), strings.Contains(p.PredictedStage, Stage4):
		return 0.9
	case strings.Contains(p.PredictedStage, Stage2):
		return 0.7
	default:
		return 0.5
	}
}

// HumanLikeness rates how conversational and un-templated the text reads, in [0,1].
func HumanLikeness(p Post) float64 {
	text := p.PostText
	s := math.Min(float64(util.CountHits(text, politeMarkers))*0.12, 0.25)
	if util.ContainsAny(text, addressMarkers) {
		s += 0.18
	}
	if util.HasQuestion(text) {
		s += 0.22
		if util.ContainsAny(text, choiceWords) {
			s += 0.10
		}
	}
	if util.ContainsAny(text, experientialMarkers) {
		s += 0.18
	}
	s -= math.Min(float64(util.CountHits(text, aiCliches))*0.08, 0.35)

	// a missing CTA is not penalized, only a stub one
	if cta := strings.TrimSpace(p.CTA); cta != "" && util.RuneLen(cta) < 6 {
		s -= 0.05
	}
	return math.Max(0, math.Min(s, 1.0))
}

// SortByScore orders posts by score, highest first, keeping ties in input order.
func SortByScore(posts []Post) {
	slices.SortStableFunc(posts, func(a, b Post) int { return cmp.Compare(b.Score, a.Score) })
}
