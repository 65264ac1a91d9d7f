package model

import (
	"strings"

	"github.com/cespare/xxhash/v2"

	"threadgenius/internal/util"
)

// CannedQuestion is appended by the text-splitting parse fallback.
const CannedQuestion = "今いちばん詰まっているのはどこですか？"

var closingPhrases = []string{
	"あなたはどこで詰まりましたか？",
	"今いちばん詰まっているのはどこですか？",
	"あなたならどっちを選びますか？",
	"番号で教えてもらえますか？",
	"最近いちばん困ったのはどんな場面でしたか？",
}

// ClosingPhrase picks a closing question from a fixed rotation keyed by (text, style).
// Neighbouring posts in a batch have different texts, so they rarely share a phrase.
func ClosingPhrase(text, style string) string {
	h := xxhash.Sum64String(text + "\x00" + style)
	return closingPhrases[h%uint64(len(closingPhrases))]
}

// EnsureQuestion caps text at max characters and appends phrase when it has no question mark.
// The phrase always survives the cap. Empty text is returned unchanged.
func EnsureQuestion(text, phrase string, max int) string {
	text = util.Truncate(text, max)
	if strings.TrimSpace(text) == "" || util.HasQuestion(text) {
		return text
	}
	room := max - util.RuneLen(phrase) - 2
	if room <= 0 {
		return util.Truncate(CannedQuestion, max)
	}
	body := strings.TrimRight(util.Truncate(text, room), " \t\r\n　")
	return util.Truncate(body+"\n\n"+phrase, max)
}
