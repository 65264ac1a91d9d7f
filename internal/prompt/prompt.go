// Package prompt renders the draft and rewrite prompts sent to the generation service.
// Rendering is pure: persona fields are interpolated as given.
package prompt

import (
	"fmt"
	"strings"

	"threadgenius/internal/model"
	"threadgenius/internal/util"
)

const draftTemplate = `
<role>
あなたは最新のThreadsアルゴリズムを理解したプロのSNS投稿クリエイターです。
</role>

%[1]s

<rules>
【Threadsアルゴリズムの鉄則】
1. 「いいね」より「リプライ（会話）」が重要
2. テキスト中心（AIが内容を理解できる）
3. トピックタグは1つだけ%[5]s
4. %[4]d文字以内で「ツッコミ代」を残す（完璧すぎない）
5. 末尾は必ず質問で終える（番号回答が理想）
</rules>

<stages>
%[6]s
</stages>

<structure>
【投稿構成テンプレート】
1. 冒頭（1-2行）：スクロールを止めるフック
2. 本文（3-8行）：共感 or 有益情報
3. 末尾（1-2行）：会話を誘発する質問（番号回答）
</structure>

<context>
【ニュース内容】
%[2]s
</context>

<task>
上記を基に、%[7]sとして%[3]dつの投稿案を作成してください。
投稿ごとに切り口（lens）を変えてください（例：現場目線／数字／失敗談／比較）。
</task>

<constraints>
✓ 各投稿は%[4]d文字以内
✓ %[8]sの口調を守る
✓ 末尾に必ず質問（番号回答推奨）を入れる
✓ トピックタグは1つだけ
✓ ステージ(Stage1-4)を予測して入れる
</constraints>

<output_rules>
【最重要：出力ルール】
- 出力は「JSONのみ」
- 説明文、見出し、注釈、コードフェンス（` + "```" + `）、箇条書き、前置きは一切禁止
- 先頭文字は必ず '['、末尾文字は必ず ']'
- 配列の要素数はちょうど%[3]d
</output_rules>

<output_format>
[
  {
    "post_text": "投稿本文（%[4]d文字以内）",
    "topic_tag": "%[9]s",
    "hook": "冒頭のフック部分",
    "body": "本文の核心部分",
    "cta": "末尾の質問/呼びかけ",
    "predicted_stage": "Stage1〜Stage4のいずれか",
    "conversation_trigger": "会話を誘発するポイント",
    "reasoning": "なぜこの構成にしたか（100文字以内）",
    "lens": "この投稿の切り口"
  }
]
</output_format>
`

const rewriteTemplate = `
<role>
あなたはThreadsの投稿を「プロっぽいが会話的（丁寧＋質問で巻き込む）」に整える編集者です。
</role>

%[1]s

<style_mode>
%[2]s
</style_mode>

<input>
以下は下書きです。内容（言いたいこと・主張・例・論点）は維持して、文の“人間味”だけを上げてください。
下書き本文:
%[3]s
</input>

<human_style_guide>
【文章品質（人間味）ルール：最重要】
- 丁寧語（です・ます）を基本に、会話の温度感を出す（硬すぎない）
- %[4]s
- %[5]s
- 1投稿につき「現場の一言」or「自分の小さい体験」を1つだけ入れる
- “整いすぎ”禁止：説明し切らず、相手が返したくなる余白を残す
- 断定しすぎず、逃げすぎない：「〜かもしれません」は最大1回まで
- 見出し風の「Hook:」「Body:」「CTA:」などは本文に出さない
- AIっぽい定型句は避ける（例：結論から言うと／本質的には／重要なのは／要するに）
- 最後は必ず質問。Yes/Noで終わらせず、選択式 or 体験想起（例：どこで詰まった？どっち派？）
- 文字数は%[6]d字以内
- topic_tagは「%[7]s」のまま変更しない（タグは1つだけ）
</human_style_guide>

<output_rules>
【出力ルール】
- 出力はJSONのみ（説明文禁止）
- 先頭は '{'、末尾は '}'
</output_rules>

<output_format>
{
  "post_text": "改善後の投稿本文（%[6]d文字以内）",
  "topic_tag": "%[7]s",
  "hook": "本文に含まれるフックの要旨（短く）",
  "body": "本文に含まれる核（短く）",
  "cta": "末尾の質問文（短く）",
  "predicted_stage": "%[8]s",
  "conversation_trigger": "返したくなる理由（短く）",
  "reasoning": "改善の意図（100文字以内）",
  "lens": "%[9]s",
  "style_mode": "%[10]s"
}
</output_format>
`

type styleGuide struct {
	label, vocab, warmth string
}

var styleGuides = map[string]styleGuide{
	model.StyleCalm: {
		label:  "calm（丁寧で落ち着いた会話：ノウハウ/数値向き）",
		vocab:  "語彙は落ち着き（ご相談でよく/現場では/ここが鍵です）。砕けすぎ禁止。",
		warmth: "硬くしすぎないために、会話のクッションを1つだけ入れる。",
	},
	model.StyleWarm: {
		label:  "warm（丁寧＋少しくだける会話：距離が近い）",
		vocab:  "少しだけ近い言い回し（これ、よくあります/ここ意外と抜けます）。ただし軽すぎ禁止。",
		warmth: "丁寧語は維持しつつ、温度を少し上げる。",
	},
}

// BuildDraft renders the first-pass prompt asking for count posts as a JSON array.
func BuildDraft(persona model.Persona, topic string, count, maxChars int, forcedTag string) string {
	tagRule := ""
	tagExample := "#トピック名"
	if tag := model.NormalizeTag(forcedTag); tag != "" {
		tagRule = fmt.Sprintf("（必ず「%s」を使う）", tag)
		tagExample = tag
	}
	out := fmt.Sprintf(draftTemplate,
		personaBlock(persona),
		strings.TrimSpace(topic),
		count,
		maxChars,
		tagRule,
		stageBlock(),
		persona.Name,
		persona.Tone,
		tagExample,
	)
	return strings.TrimSpace(out)
}

// BuildRewrite renders the second-pass prompt that rewrites one draft in the given style.
// Unknown styles get the warm guidance.
func BuildRewrite(persona model.Persona, draft model.Post, style string, maxChars int, forcedTag string) string {
	guide, ok := styleGuides[style]
	if !ok {
		guide = styleGuides[model.StyleWarm]
	}
	tag := model.NormalizeTag(forcedTag)
	if tag == "" {
		tag = util.Coalesce(model.NormalizeTag(draft.TopicTag), model.DefaultTopicTag)
	}
	out := fmt.Sprintf(rewriteTemplate,
		personaBlock(persona),
		guide.label,
		strings.TrimSpace(draft.PostText),
		guide.vocab,
		guide.warmth,
		maxChars,
		tag,
		util.Coalesce(draft.PredictedStage, model.Stage2),
		util.Coalesce(draft.Lens, model.DefaultLens),
		style,
	)
	return strings.TrimSpace(out)
}

func personaBlock(p model.Persona) string {
	return fmt.Sprintf("<persona>\n名前：%s\n専門分野：%s\n口調：%s\n価値観：%s\nターゲット：%s\n目標：%s\n</persona>",
		p.Name, p.Specialty, p.Tone, p.Values, p.TargetAudience, p.Goals)
}

func stageBlock() string {
	var b strings.Builder
	for _, s := range []string{model.Stage1, model.Stage2, model.Stage3, model.Stage4} {
		fmt.Fprintf(&b, "%s: %s\n", s, model.StageDescriptions[s])
	}
	return strings.TrimRight(b.String(), "\n")
}
