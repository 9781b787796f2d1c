package cards

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/thefirstwind/mcp-client-demo/internal/domain"
)

type trackingStage struct {
	label   string
	percent int
	days    int
}

// trackingStages is ordered from order placement to delivery.
var trackingStages = []trackingStage{
	{label: "已下单", percent: 10, days: 3},
	{label: "已揽收", percent: 20, days: 3},
	{label: "运输中", percent: 50, days: 2},
	{label: "派送中", percent: 80, days: 0},
	{label: shipmentDelivered, percent: 100},
}

const defaultStageIndex = 2

var trackingStageRules = []keywordRule{
	{keywords: []string{"已签收", "签收", "已送达"}, label: shipmentDelivered},
	{keywords: []string{"派送中", "派送", "派件"}, label: "派送中"},
	{keywords: []string{"运输中", "在途", "已发出"}, label: "运输中"},
	{keywords: []string{"已揽收", "揽收", "揽件"}, label: "已揽收"},
	{keywords: []string{"已下单", "下单", "待发货"}, label: "已下单"},
}

var stageFromOrderStatus = map[string]string{
	"待付款": "已下单",
	"已付款": "已下单",
	"已发货": "运输中",
	"已完成": shipmentDelivered,
}

var (
	routePattern        = regexp.MustCompile(`从\s*(\p{Han}+?)\s*(?:到达|送到|送往|运到|发往|寄往|寄到|运往|到|至)\s*([^\s，,。的]+)`)
	englishRoutePattern = regexp.MustCompile(`(?i)from\s+([A-Za-z]+)\s+to\s+([A-Za-z]+)`)
)

const (
	defaultOrigin      = "发货地"
	defaultDestination = "收货地"
	defaultDistanceKm  = 1000.0
	sameCityDistanceKm = 30.0
)

// cityDistances holds road distances in km keyed by cityPair.
var cityDistances = map[string]float64{
	cityPair("北京", "上海"): 1213,
	cityPair("北京", "广州"): 1897.5,
	cityPair("北京", "深圳"): 2180,
	cityPair("北京", "杭州"): 1270,
	cityPair("北京", "成都"): 1800,
	cityPair("北京", "武汉"): 1150,
	cityPair("上海", "广州"): 1430,
	cityPair("上海", "深圳"): 1470,
	cityPair("上海", "杭州"): 180,
	cityPair("上海", "成都"): 1960,
	cityPair("上海", "武汉"): 820,
	cityPair("广州", "深圳"): 140,
	cityPair("广州", "成都"): 1560,
	cityPair("广州", "武汉"): 980,
	cityPair("成都", "重庆"): 310,
}

var knownCities = []string{"北京", "上海", "广州", "深圳", "杭州", "成都", "重庆", "武汉"}

// BuildTrackingCard synthesizes a tracking card with an event history for the
// detected stage. Only the most recent event is current.
func (e *Engine) BuildTrackingCard(ctx context.Context, message string, order *domain.OrderCard) (*domain.Card, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	now := e.now()
	number, carrier := e.resolveShipment(message, strings.ToLower(message))
	origin, destination := extractRoute(message)

	index := stageIndex(message, order)
	stage := trackingStages[index]

	card := domain.Card{
		CardHeader: domain.CardHeader{
			Type:        domain.CardTypeTracking,
			Title:       "物流追踪",
			Description: fmt.Sprintf("%s %s：%s（%d%%）", carrier.name, number, stage.label, stage.percent),
			IconURL:     "/images/tracking-icon.png",
			ActionURL:   "/tracking/" + number,
		},
		Tracking: &domain.TrackingCard{
			OrderNumber:           linkedOrderNumber(message, order),
			TrackingNumber:        number,
			CourierCompany:        carrier.name,
			CourierLogo:           carrier.logo,
			CurrentStatus:         stage.label,
			OriginLocation:        origin,
			DestinationLocation:   destination,
			EstimatedDistance:     estimateDistance(origin, destination),
			CompletionPercentage:  stage.percent,
			TrackingDetails:       trackingHistory(index, origin, destination, now),
			EstimatedDeliveryTime: deliveryEstimate(now, stage.label, stage.days),
		},
	}
	return e.persistBuilt(card)
}

func stageIndex(message string, order *domain.OrderCard) int {
	label := firstMatch(message, trackingStageRules, "")
	if label == "" && order != nil {
		label = stageFromOrderStatus[order.OrderStatus]
	}
	for i, stage := range trackingStages {
		if stage.label == label {
			return i
		}
	}
	return defaultStageIndex
}

// trackingHistory lists the events up to stage index, most recent first.
func trackingHistory(index int, origin, destination string, now time.Time) []domain.TrackingDetail {
	events := []domain.TrackingDetail{
		{Status: "已下单", Description: "订单已生成，等待快递员揽收", Location: "系统"},
		{Status: "已揽收", Description: "快递员已揽收包裹", Location: origin},
		{Status: "运输中", Description: fmt.Sprintf("包裹已从%s发出，正在运往%s", origin, destination), Location: origin + "转运中心"},
		{Status: "派送中", Description: "快递员正在派送，请保持电话畅通", Location: destination},
		{Status: shipmentDelivered, Description: "包裹已签收，感谢使用", Location: destination},
	}

	history := make([]domain.TrackingDetail, 0, index+1)
	for i := index; i >= 0; i-- {
		age := len(history)
		event := events[i]
		event.Timestamp = now.Add(-time.Duration(age)*12*time.Hour - 30*time.Minute)
		event.Current = age == 0
		history = append(history, event)
	}
	return history
}

func extractRoute(message string) (string, string) {
	if match := routePattern.FindStringSubmatch(message); len(match) == 3 {
		return normalizeCity(match[1]), normalizeCity(match[2])
	}
	if match := englishRoutePattern.FindStringSubmatch(message); len(match) == 3 {
		return match[1], match[2]
	}
	return defaultOrigin, defaultDestination
}

// normalizeCity trims a trailing 市 and cuts known cities out of longer captures.
func normalizeCity(name string) string {
	name = strings.TrimSpace(name)
	for _, city := range knownCities {
		if strings.HasPrefix(name, city) {
			return city
		}
	}
	return strings.TrimSuffix(name, "市")
}

func estimateDistance(origin, destination string) float64 {
	if origin == destination && origin != defaultOrigin {
		return sameCityDistanceKm
	}
	if km, ok := cityDistances[cityPair(origin, destination)]; ok {
		return km
	}
	return defaultDistanceKm
}

func cityPair(a, b string) string {
	if b < a {
		a, b = b, a
	}
	return a + "|" + b
}
