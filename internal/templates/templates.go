// Package templates holds the built-in topic presets and maps them to personas.
package templates

import "strings"

// Categories a preset belongs to; a persona whose name contains the category is preferred.
const (
	CategoryEntrepreneur = "起業家"
	CategoryStore        = "店舗"
)

// Preset is a ready-made topic text.
type Preset struct {
	Key      string
	Category string
	Content  string
}

var presets = []Preset{
	{
		Key:      "起業家（申込）発信量より順番",
		Category: CategoryEntrepreneur,
		Content: `SNSで頑張ってるのに、申込が増えない人へ。
原因は「発信量」より、申込までの順番が詰まってることが多いです。

あなたのボトルネックはどれ？（番号でOK）
1 導線（どこから申込？）
2 LP（申込ページ）
3 オファー（内容/価格）
4 信頼（実績/口コミ）
5 計測（数字が見れてない）`,
	},
	{
		Key:      "起業家（成約）アクセスあるのに決まらない",
		Category: CategoryEntrepreneur,
		Content: `アクセスはあるのに成約しない人へ。
原因は「文章が下手」より、相手の“比較不安”が残ってることが多いです。

どこが一番弱い？（番号でOK）
1 誰向けの明確さ
2 証拠（実績/事例/声）
3 提案の具体性（何がどう変わる？）
4 価格の根拠（なぜその値段？）
5 申込の簡単さ（迷わない導線）`,
	},
	{
		Key:      "起業家（単価）安売りから抜けたい",
		Category: CategoryEntrepreneur,
		Content: `単価が上がらない人へ。
価値がないんじゃなくて、“価値の伝え方”が弱いだけのことが多いです。

どこを強化したい？（番号でOK）
1 差別化（誰に何が一番強い？）
2 実績の見せ方（ビフォアフ/数字）
3 提案内容（中身の濃さ）
4 限定性（誰には合わないも言える）
5 導線（単価の高い商品へ誘導）`,
	},
	{
		Key:      "店舗（新規）見つけてもらえない",
		Category: CategoryStore,
		Content: `新規が増えない店舗へ。
原因は「投稿が少ない」より、見つけてもらう入口が弱いことが多いです。

どこが弱い？（番号でOK）
1 Googleマップ（MEO）
2 検索（地域×サービス名）
3 SNS（発見される投稿）
4 写真（雰囲気/メニュー/実績）
5 初回の不安を消す情報（料金/流れ/時間）`,
	},
	{
		Key:      "店舗（リピート）2回目につながらない",
		Category: CategoryStore,
		Content: `新規は来るのにリピートしない店舗へ。
原因は“満足度”より、次回につながる設計が無いことが多いです。

どこが一番弱い？（番号でOK）
1 次回提案（通う理由の提示）
2 フォロー（LINE/DM/声かけ）
3 メニュー導線（次に何を選ぶ？）
4 口コミ導線（紹介が増えない）
5 回数券/定期（続けやすい設計）`,
	},
	{
		Key:      "店舗（口コミ）増えない・集まらない",
		Category: CategoryStore,
		Content: `口コミが増えない店舗へ。
原因は「お願い不足」より、お願いの“タイミングと導線”が弱いことが多いです。

あなたの課題はどれ？（番号でOK）
1 そもそも依頼してない
2 依頼のタイミングがズレてる
3 一言テンプレがない（何て言う？）
4 QR/リンク導線がない（どこから書く？）
5 口コミ返信ができてない（信頼が積もらない）`,
	},
}

// Presets returns the built-in presets in display order.
func Presets() []Preset {
	out := make([]Preset, len(presets))
	copy(out, presets)
	return out
}

// Find looks a preset up by exact key, then by substring.
func Find(key string) (Preset, bool) {
	key = strings.TrimSpace(key)
	if key == "" {
		return Preset{}, false
	}
	for _, p := range presets {
		if p.Key == key {
			return p, true
		}
	}
	for _, p := range presets {
		if strings.Contains(p.Key, key) {
			return p, true
		}
	}
	return Preset{}, false
}

// MatchPersona returns the first name containing category, else the first name, else "".
func MatchPersona(category string, names []string) string {
	if category != "" {
		for _, n := range names {
			if strings.Contains(n, category) {
				return n
			}
		}
	}
	if len(names) > 0 {
		return names[0]
	}
	return ""
}
