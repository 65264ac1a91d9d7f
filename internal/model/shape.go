package model

import (
	"regexp"
	"strings"

	"golang.org/x/text/width"

	"threadgenius/internal/util"
)

const maxCTAChars = 80

var stageDigit = regexp.MustCompile(`[1-4]`)

// NormalizeTag reduces tag to a single "#name" token. Full-width forms are folded first.
func NormalizeTag(tag string) string {
	fields := strings.Fields(width.Fold.String(strings.TrimSpace(tag)))
	if len(fields) == 0 {
		return ""
	}
	name := strings.TrimLeft(fields[0], "#")
	name = strings.SplitN(name, "#", 2)[0]
	if name == "" {
		return ""
	}
	return "#" + name
}

// Shape normalizes p so it satisfies the record invariants. Shape(Shape(p)) == Shape(p).
func Shape(p Post, forcedTag string, maxChars int) Post {
	if maxChars <= 0 {
		maxChars = MaxCharsStandard
	}
	if tag := NormalizeTag(forcedTag); tag != "" {
		p.TopicTag = tag
	} else {
		p.TopicTag = util.Coalesce(NormalizeTag(p.TopicTag), DefaultTopicTag)
	}
	if isFalsy(p.Lens) {
		p.Lens = DefaultLens
	}
	if strings.TrimSpace(p.StyleMode) == "" {
		p.StyleMode = StyleNone
	}
	p.PredictedStage = normalizeStage(p.PredictedStage)

	p.PostText = EnsureQuestion(p.PostText, ClosingPhrase(p.PostText, p.StyleMode), maxChars)
	p.CTA = util.Truncate(p.CTA, maxCTAChars)
	return p
}

func isFalsy(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none", "null", "nil", "false", "0":
		return true
	}
	return false
}

func normalizeStage(s string) string {
	s = strings.TrimSpace(s)
	switch s {
	case Stage1, Stage2, Stage3, Stage4:
		return s
	}
	if d := stageDigit.FindString(s); d != "" {
		return "Stage" + d
	}
	return s
}
