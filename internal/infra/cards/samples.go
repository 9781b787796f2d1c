package cards

import (
	"fmt"
	"time"

	"github.com/thefirstwind/mcp-client-demo/internal/domain"
)

// SampleCards returns one demo card of each type.
func SampleCards(now time.Time) []domain.Card {
	tomorrow := now.AddDate(0, 0, 1)
	trackingETA := tomorrow

	return []domain.Card{
		{
			CardHeader: domain.CardHeader{
				Type:        domain.CardTypeOrder,
				Title:       "您的订单已发货",
				Description: "订单 #12345678 已于今天开始配送",
				IconURL:     "/images/order-icon.png",
				ActionURL:   "/orders/12345678",
			},
			Order: &domain.OrderCard{
				OrderNumber: "12345678",
				OrderStatus: "已发货",
				OrderTime:   now.AddDate(0, 0, -1),
				TotalAmount: 299.99,
				Items: []domain.OrderItem{
					{ProductName: "智能手表", ImageURL: "/images/product1.jpg", Price: 199.99, Quantity: 1},
					{ProductName: "蓝牙耳机", ImageURL: "/images/product2.jpg", Price: 100.00, Quantity: 1},
				},
			},
		},
		{
			CardHeader: domain.CardHeader{
				Type:        domain.CardTypeLogistics,
				Title:       "您的包裹正在配送中",
				Description: "您的包裹预计将于明天送达",
				IconURL:     "/images/logistics-icon.png",
				ActionURL:   "/logistics/SF1234567890",
			},
			Logistics: &domain.LogisticsCard{
				OrderNumber:           "12345678",
				CourierCompany:        "顺丰速运",
				CourierLogo:           "/images/sf-logo.png",
				TrackingNumber:        "SF1234567890",
				Status:                "运输中",
				LatestUpdate:          "包裹已到达北京分拣中心",
				EstimatedDeliveryTime: &tomorrow,
			},
		},
		{
			CardHeader: domain.CardHeader{
				Type:        domain.CardTypeTracking,
				Title:       "物流追踪详情",
				Description: "订单 #12345678 的物流追踪信息",
				IconURL:     "/images/tracking-icon.png",
				ActionURL:   "/tracking/SF1234567890",
			},
			Tracking: &domain.TrackingCard{
				OrderNumber:          "12345678",
				TrackingNumber:       "SF1234567890",
				CourierCompany:       "顺丰速运",
				CourierLogo:          "/images/sf-logo.png",
				CurrentStatus:        "运输中",
				OriginLocation:       "广州",
				DestinationLocation:  "北京",
				EstimatedDistance:    1897.5,
				CompletionPercentage: 60,
				TrackingDetails: []domain.TrackingDetail{
					{Status: "到达分拣中心", Description: "包裹已到达北京分拣中心", Timestamp: now.Add(-2 * time.Hour), Location: "北京市顺义区", Current: true},
					{Status: "运输中", Description: "包裹已从广州发往北京", Timestamp: now.Add(-8 * time.Hour), Location: "广州市白云区"},
					{Status: "已发货", Description: "卖家已发货", Timestamp: now.Add(-12 * time.Hour), Location: "广州市"},
					{Status: "已下单", Description: "订单已生成", Timestamp: now.AddDate(0, 0, -1), Location: "系统"},
				},
				EstimatedDeliveryTime: &trackingETA,
			},
		},
	}
}

// SeedSamples stores the demo cards and returns them with their ids.
func (e *Engine) SeedSamples() ([]domain.Card, error) {
	samples := SampleCards(e.now())
	out := make([]domain.Card, 0, len(samples))
	for _, sample := range samples {
		saved, err := e.store.Save(sample)
		if err != nil {
			return nil, err
		}
		out = append(out, saved)
	}
	return out, nil
}

// SeedSample stores the demo card of one type.
func (e *Engine) SeedSample(cardType domain.CardType) (domain.Card, error) {
	for _, sample := range SampleCards(e.now()) {
		if sample.Type == cardType {
			return e.store.Save(sample)
		}
	}
	return domain.Card{}, fmt.Errorf("%w: %q", domain.ErrUnknownCardType, cardType)
}
