// Package diary derives emotion-spending journal entries from consumption
// records and free-text notes. Classification is keyword-rule based and
// fully deterministic so it stays testable without any model calls.
package diary

import "strings"

// Consumption types recognized by the keyword rules.
const (
	TypeImpulseBuying = "충동구매"
	TypeBingeEating   = "폭식"
	TypeGamePurchase  = "게임결제"
	TypeFashion       = "패션소비"
	TypeCafe          = "카페소비"
	TypeFood          = "음식소비"
	TypeEssential     = "필수소비"
	TypeOther         = "기타"
)

// Emotion tags.
const (
	EmotionStress  = "스트레스"
	EmotionSad     = "우울"
	EmotionBored   = "지루함"
	EmotionNeutral = "중립"
)

// consumptionKeywords maps a consumption type to the note keywords that
// signal it. Checked before the category map so a vivid note wins over a
// generic category label.
var consumptionKeywords = map[string][]string{
	TypeImpulseBuying: {"샀다", "질렀다", "구매", "주문", "카트", "쇼핑", "옷", "신발", "가방", "화장품"},
	TypeBingeEating:   {"먹었다", "시켰다", "폭식", "야식", "치킨", "피자", "떡볶이", "과자", "아이스크림"},
	TypeGamePurchase:  {"게임", "아이템", "캐시", "코인", "가챠", "뽑기", "충전", "결제"},
}

// Keyword rule evaluation order; Go map iteration is randomized, so the
// order is fixed here to keep classification deterministic.
var consumptionOrder = []string{TypeImpulseBuying, TypeBingeEating, TypeGamePurchase}

// categoryTypeMap translates record categories into consumption types
// when the note gives no signal.
var categoryTypeMap = map[string]string{
	"스트레스 쇼핑": TypeImpulseBuying,
	"패션":      TypeFashion,
	"카페":      TypeCafe,
	"점심식사":    TypeFood,
	"업무비품":    TypeEssential,
}

// ClassifyConsumption maps a record category and free-text note to a
// consumption type.
func ClassifyConsumption(category, note string) string {
	for _, ctype := range consumptionOrder {
		for _, kw := range consumptionKeywords[ctype] {
			if strings.Contains(note, kw) {
				return ctype
			}
		}
	}
	if ctype, ok := categoryTypeMap[category]; ok {
		return ctype
	}
	return TypeOther
}

// MapEmotion derives the emotion tag from an explicit emotion marker on
// the record, falling back to note keywords.
func MapEmotion(marker, note string) string {
	if marker != "" {
		switch marker {
		case "자기보상", "스트레스":
			return EmotionStress
		default:
			return EmotionStress
		}
	}
	switch {
	case containsAny(note, "지쳐서", "스트레스", "더위에"):
		return EmotionStress
	case containsAny(note, "우울", "허무", "외로"):
		return EmotionSad
	case containsAny(note, "지루", "심심"):
		return EmotionBored
	}
	return EmotionNeutral
}

// Satisfaction scores the note on a 1..5 scale.
func Satisfaction(note string) int {
	switch {
	case containsAny(note, "후회", "허무", "실망", "텅장"):
		return 1
	case containsAny(note, "뿌듯", "만족", "좋았"):
		return 5
	case containsAny(note, "보통", "그저그래"):
		return 3
	}
	return 2
}

// highAmountThreshold marks a single purchase as notable.
const highAmountThreshold = 100000

var adviceTable = map[string]map[string]string{
	TypeImpulseBuying: {
		EmotionStress: "스트레스 쇼핑 대신 산책이나 운동으로 기분전환해보세요.",
		EmotionSad:    "우울할 때의 쇼핑은 일시적 위안일 뿐이에요. 친구와 대화해보세요.",
		EmotionBored:  "지루함을 쇼핑으로 달래기보다는 새로운 취미를 찾아보세요.",
	},
	TypeFood: {
		EmotionStress: "스트레스를 음식으로 달래려 하셨군요. 차 한 잔과 심호흡도 도움이 될 거예요.",
		EmotionSad:    "음식으로 위안을 찾는 마음 이해해요. 가벼운 산책은 어떨까요?",
	},
}

const defaultAdvice = "건강한 소비 습관을 위해 감정을 기록하는 게 좋은 시작이에요!"

// Advice selects a coaching sentence for the entry. Amounts over the
// threshold get a high-spend prefix.
func Advice(emotion, consumptionType string, amount int64) string {
	advice := defaultAdvice
	if byEmotion, ok := adviceTable[consumptionType]; ok {
		if a, ok := byEmotion[emotion]; ok {
			advice = a
		}
	}
	if amount > highAmountThreshold {
		return "고액 소비가 감지되었어요. " + advice
	}
	return advice
}

var emojiMap = map[string]string{
	TypeImpulseBuying: "🛍️",
	TypeFood:          "🍕",
	TypeCafe:          "☕",
	TypeFashion:       "👗",
	TypeEssential:     "📋",
	TypeOther:         "💰",
}

// Emoji returns the display emoji for a consumption type.
func Emoji(consumptionType string) string {
	if e, ok := emojiMap[consumptionType]; ok {
		return e
	}
	return "💰"
}

// Score returns -1 for consumption types considered harmful habits.
func Score(consumptionType string) int {
	if consumptionType == TypeImpulseBuying || consumptionType == TypeBingeEating {
		return -1
	}
	return 0
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
