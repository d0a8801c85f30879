// Package emotion_enum 情绪分类器输出的固定标签集合
package emotion_enum

const (
	NoEmotion = "no_emotion"
	Anger     = "anger"
	Disgust   = "disgust"
	Fear      = "fear"
	Happiness = "happiness"
	Sadness   = "sadness"
	Surprise  = "surprise"
)

// All 全部情绪标签
var All = []string{NoEmotion, Anger, Disgust, Fear, Happiness, Sadness, Surprise}

// Valid 判断是否为合法情绪标签
func Valid(emotion string) bool {
	for _, e := range All {
		if e == emotion {
			return true
		}
	}
	return false
}
