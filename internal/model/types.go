package model

// Persona describes the voice posts are written in. It is formatting input only.
type Persona struct {
	Name           string `yaml:"name" json:"name" validate:"required"`
	Specialty      string `yaml:"specialty" json:"specialty" validate:"required"`
	Tone           string `yaml:"tone" json:"tone"`
	Values         string `yaml:"values" json:"values"`
	TargetAudience string `yaml:"targetAudience" json:"target_audience"`
	Goals          string `yaml:"goals" json:"goals"`
}

// Post is one generated candidate as it moves through draft, rewrite, shaping and scoring.
type Post struct {
	PostText            string             `json:"post_text"`
	TopicTag            string             `json:"topic_tag"`
	Hook                string             `json:"hook,omitempty"`
	Body                string             `json:"body,omitempty"`
	CTA                 string             `json:"cta,omitempty"`
	PredictedStage      string             `json:"predicted_stage"`
	ConversationTrigger string             `json:"conversation_trigger"`
	Reasoning           string             `json:"reasoning"`
	StyleMode           string             `json:"style_mode,omitempty"`
	Lens                string             `json:"lens,omitempty"`
	Score               float64            `json:"score"`
	ScoreDetails        map[string]float64 `json:"score_details,omitempty"`
}

// Style modes. Draft and None mark records that never went through a rewrite.
const (
	StyleDraft = "draft"
	StyleWarm  = "warm"
	StyleCalm  = "calm"
	StyleNone  = "N/A"
)

// Distribution stages a post is predicted to reach.
const (
	Stage1 = "Stage1"
	Stage2 = "Stage2"
	Stage3 = "Stage3"
	Stage4 = "Stage4"
)

// StageDescriptions explains each stage; it is embedded in the draft prompt.
var StageDescriptions = map[string]string{
	Stage1: "初期配信（フォロワーの一部）- 初速の反応",
	Stage2: "拡大配信（フォロワー全体）- 反応の持続性",
	Stage3: "発見・おすすめ（フォロワー外）- トレンドとの関連性",
	Stage4: "広範囲拡散（外部）- シェア価値",
}

// Length caps for post_text.
const (
	MaxCharsStandard = 500
	MaxCharsShort    = 220
)

const (
	DefaultTopicTag = "#ビジネス"
	DefaultLens     = "N/A"
)

// DefaultPersonas returns the built-in persona catalogue.
func DefaultPersonas() []Persona {
	return []Persona{
		{
			Name:           "グルメ太郎",
			Specialty:      "グルメ・食文化",
			Tone:           "親しみやすく、食への情熱があふれる",
			Values:         "美味しい食事で人生を豊かに",
			TargetAudience: "食にこだわりのある20-40代",
			Goals:          "フォロワーと食の喜びを共有し、コミュニティを形成",
		},
		{
			Name:           "ビジネス先生",
			Specialty:      "ビジネス・マーケティング",
			Tone:           "プロフェッショナルだが親しみやすい",
			Values:         "正しい知識で人を成功に導く",
			TargetAudience: "副業・起業を目指す20-50代",
			Goals:          "実践的な知識を共有し、信頼を構築",
		},
		{
			Name:           "フィットネスコーチ",
			Specialty:      "健康・フィットネス",
			Tone:           "明るく、励ましながら指導",
			Values:         "継続可能な健康習慣で人生を変える",
			TargetAudience: "健康意識の高い25-45代",
			Goals:          "フォロワーの健康改善をサポート",
		},
		{
			Name:           "起業家サポーター",
			Specialty:      "起業・集客導線",
			Tone:           "丁寧で落ち着いた会話調",
			Values:         "順番を整えれば成果は積み上がる",
			TargetAudience: "SNS発信を頑張る個人起業家",
			Goals:          "申込・成約・単価のボトルネックを一緒に見つける",
		},
		{
			Name:           "店舗集客アドバイザー",
			Specialty:      "店舗集客・MEO・リピート設計",
			Tone:           "現場目線で親しみやすい",
			Values:         "小さな改善の積み重ねでお店は変わる",
			TargetAudience: "地域の店舗オーナー",
			Goals:          "新規・リピート・口コミの導線を整える",
		},
	}
}
