package cards

import "strings"

// Intent is the set of card kinds a message asks for.
type Intent uint8

const (
	IntentOrder Intent = 1 << iota
	IntentLogistics
	IntentTracking
)

// IntentNone means no card path applies.
const IntentNone Intent = 0

var (
	// triggerKeywords route a chat message to the card path.
	triggerKeywords   = []string{"订单", "快递", "物流", "包裹", "查询订单"}
	orderKeywords     = []string{"订单", "查询订单", "我的订单"}
	logisticsKeywords = []string{"物流", "快递", "包裹", "运输", "配送", "送达"}
	trackingKeywords  = []string{"追踪", "详情", "跟踪", "tracking"}

	// detectLogisticsKeywords is the narrower set used by DetectAndBuildCard.
	detectLogisticsKeywords = []string{"物流", "快递", "包裹"}
	// detectOrderStatuses must accompany an order keyword for DetectAndBuildCard.
	detectOrderStatuses = []string{"已发货", "待付款", "已付款"}

	negativeOrderPhrases = []string{"不存在的订单", "未找到", "找不到"}
	notFoundMarkers      = []string{"404", "不存在", "unknown"}
)

func (i Intent) Has(flag Intent) bool {
	return i&flag != 0
}

func (i Intent) String() string {
	if i == IntentNone {
		return "none"
	}
	var parts []string
	if i.Has(IntentOrder) {
		parts = append(parts, "order")
	}
	if i.Has(IntentLogistics) {
		parts = append(parts, "logistics")
	}
	if i.Has(IntentTracking) {
		parts = append(parts, "tracking")
	}
	return strings.Join(parts, "+")
}

// DetectIntent classifies a chat message. Tracking is only set together with
// Logistics or Order, as an upgrade of the accompanying shipment card.
func DetectIntent(message string) Intent {
	lower := strings.ToLower(message)
	if !containsAny(lower, triggerKeywords) {
		return IntentNone
	}
	intent := IntentNone
	if containsAny(lower, orderKeywords) {
		intent |= IntentOrder
	}
	if containsAny(lower, logisticsKeywords) {
		intent |= IntentLogistics
	}
	if intent != IntentNone && containsAny(lower, trackingKeywords) {
		intent |= IntentTracking
	}
	return intent
}

func containsAny(text string, keywords []string) bool {
	for _, keyword := range keywords {
		if strings.Contains(text, keyword) {
			return true
		}
	}
	return false
}

// keywordRule maps any of its keywords to a label.
type keywordRule struct {
	keywords []string
	label    string
}

// firstMatch returns the label of the first rule with a keyword in text.
func firstMatch(text string, rules []keywordRule, fallback string) string {
	for _, rule := range rules {
		if containsAny(text, rule.keywords) {
			return rule.label
		}
	}
	return fallback
}
