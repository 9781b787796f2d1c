package cards

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/thefirstwind/mcp-client-demo/internal/domain"
)

type courier struct {
	keyword string
	name    string
	logo    string
	prefix  string
}

// couriers is ordered; the first entry is the default.
var couriers = []courier{
	{keyword: "顺丰", name: "顺丰速运", logo: "/images/courier-sf.png", prefix: "SF"},
	{keyword: "圆通", name: "圆通速递", logo: "/images/courier-yt.png", prefix: "YT"},
	{keyword: "中通", name: "中通快递", logo: "/images/courier-zto.png", prefix: "ZTO"},
	{keyword: "申通", name: "申通快递", logo: "/images/courier-sto.png", prefix: "STO"},
	{keyword: "韵达", name: "韵达快递", logo: "/images/courier-yd.png", prefix: "YD"},
	{keyword: "京东", name: "京东物流", logo: "/images/courier-jd.png", prefix: "JD"},
	{keyword: "ems", name: "中国邮政EMS", logo: "/images/courier-ems.png", prefix: "EMS"},
}

var (
	labelledTrackingPattern = regexp.MustCompile(`(运单号|快递单号|物流单号|追踪号)[:：\s]*([A-Za-z0-9]+)`)
	bareTrackingPattern     = regexp.MustCompile(`(?i)\b(?:SF|YT|ZTO|STO|JD|EMS|YD)[0-9]{6,}\b`)
)

const (
	shipmentUnknown   = "未知"
	shipmentDelivered = "已签收"
)

var shipmentStatusRules = []keywordRule{
	{keywords: []string{"已签收", "签收", "已送达"}, label: shipmentDelivered},
	{keywords: []string{"派送中", "派送", "派件"}, label: "派送中"},
	{keywords: []string{"运输中", "在途", "运输"}, label: "运输中"},
	{keywords: []string{"已揽收", "揽收", "揽件"}, label: "已揽收"},
	{keywords: []string{"已发出", "已发货", "发出"}, label: "已发出"},
}

// shipmentFromOrderStatus fills in a shipment status when the message names none.
var shipmentFromOrderStatus = map[string]string{
	"已发货": "运输中",
	"已完成": shipmentDelivered,
}

type shipmentStatus struct {
	update string
	days   int
}

var shipmentStatuses = map[string]shipmentStatus{
	"已揽收":             {update: "快递员已揽收包裹", days: 3},
	"已发出":             {update: "包裹已从发货地发出", days: 3},
	"运输中":             {update: "包裹正在运输途中", days: 2},
	"派送中":             {update: "快递员正在派送，请保持电话畅通", days: 0},
	shipmentDelivered: {update: "包裹已签收，感谢使用"},
	shipmentUnknown:   {update: "暂无最新物流信息", days: 2},
}

// BuildLogisticsCard synthesizes a logistics card. A non-nil order links the
// card to that order and supplies a status when the message has none.
func (e *Engine) BuildLogisticsCard(ctx context.Context, message string, order *domain.OrderCard) (*domain.Card, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	now := e.now()
	lower := strings.ToLower(message)
	number, carrier := e.resolveShipment(message, lower)

	status := firstMatch(message, shipmentStatusRules, shipmentUnknown)
	if status == shipmentUnknown && order != nil {
		if mapped, ok := shipmentFromOrderStatus[order.OrderStatus]; ok {
			status = mapped
		}
	}
	detail := shipmentStatuses[status]

	card := domain.Card{
		CardHeader: domain.CardHeader{
			Type:        domain.CardTypeLogistics,
			Title:       "物流信息",
			Description: fmt.Sprintf("%s %s：%s", carrier.name, number, status),
			IconURL:     "/images/logistics-icon.png",
			ActionURL:   "/logistics/" + number,
		},
		Logistics: &domain.LogisticsCard{
			OrderNumber:           linkedOrderNumber(message, order),
			CourierCompany:        carrier.name,
			CourierLogo:           carrier.logo,
			TrackingNumber:        number,
			Status:                status,
			LatestUpdate:          detail.update,
			EstimatedDeliveryTime: deliveryEstimate(now, status, detail.days),
		},
	}
	return e.persistBuilt(card)
}

// resolveShipment extracts the tracking number and courier. The courier comes
// from a keyword, then from the tracking number prefix.
func (e *Engine) resolveShipment(message, lower string) (string, courier) {
	number := extractTrackingNumber(message)

	carrier, found := courierByKeyword(lower)
	if !found && number != "" {
		carrier, found = courierByPrefix(number)
	}
	if !found {
		carrier = couriers[0]
	}
	if number == "" {
		number = carrier.prefix + strconv.FormatInt(e.now().UnixMilli(), 10)
	}
	return number, carrier
}

func extractTrackingNumber(message string) string {
	if match := labelledTrackingPattern.FindStringSubmatch(message); len(match) == 3 {
		return strings.ToUpper(match[2])
	}
	return strings.ToUpper(bareTrackingPattern.FindString(message))
}

func courierByKeyword(lower string) (courier, bool) {
	for _, c := range couriers {
		if strings.Contains(lower, c.keyword) {
			return c, true
		}
	}
	return courier{}, false
}

func courierByPrefix(number string) (courier, bool) {
	upper := strings.ToUpper(number)
	for _, c := range couriers {
		if strings.HasPrefix(upper, c.prefix) {
			return c, true
		}
	}
	return courier{}, false
}

func linkedOrderNumber(message string, order *domain.OrderCard) string {
	if order != nil {
		return order.OrderNumber
	}
	number, _ := extractOrderNumber(message)
	return number
}

// deliveryEstimate is nil once the parcel is delivered.
func deliveryEstimate(now time.Time, status string, days int) *time.Time {
	if status == shipmentDelivered {
		return nil
	}
	eta := now.AddDate(0, 0, days)
	return &eta
}
