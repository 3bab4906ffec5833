package domain

import "sort"

// SentimentScore is the polarity breakdown of a text.
type SentimentScore struct {
	Negative float64 `json:"neg"`
	Neutral  float64 `json:"neu"`
	Positive float64 `json:"pos"`
	Compound float64 `json:"compound"`
}

// Emotion is one of the fixed affect categories.
type Emotion string

const (
	EmotionAnger        Emotion = "anger"
	EmotionAnticipation Emotion = "anticipation"
	EmotionDisgust      Emotion = "disgust"
	EmotionFear         Emotion = "fear"
	EmotionJoy          Emotion = "joy"
	EmotionSadness      Emotion = "sadness"
	EmotionSurprise     Emotion = "surprise"
	EmotionTrust        Emotion = "trust"
)

// Emotions lists every category in a stable order.
var Emotions = []Emotion{
	EmotionAnger,
	EmotionAnticipation,
	EmotionDisgust,
	EmotionFear,
	EmotionJoy,
	EmotionSadness,
	EmotionSurprise,
	EmotionTrust,
}

// EmotionProfile maps categories to magnitudes in [0, 1].
type EmotionProfile map[Emotion]float64

// Dominant returns the strongest category. Ties resolve alphabetically so the
// result is deterministic.
func (p EmotionProfile) Dominant() (Emotion, float64, bool) {
	if len(p) == 0 {
		return "", 0, false
	}

	keys := make([]string, 0, len(p))
	for emotion := range p {
		keys = append(keys, string(emotion))
	}
	sort.Strings(keys)

	var (
		best      Emotion
		bestValue = -1.0
	)
	for _, key := range keys {
		if v := p[Emotion(key)]; v > bestValue {
			best, bestValue = Emotion(key), v
		}
	}
	return best, bestValue, true
}
