package cards

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/thefirstwind/mcp-client-demo/internal/domain"
)

var fixedNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

type fakeOrders struct {
	records map[string]domain.Record
	err     error
	calls   []string
}

func (f *fakeOrders) OrderByNumber(_ context.Context, orderNo string) (domain.Record, error) {
	f.calls = append(f.calls, orderNo)
	if f.err != nil {
		return nil, f.err
	}
	record, ok := f.records[orderNo]
	if !ok {
		return nil, domain.ErrRecordNotFound
	}
	return record, nil
}

type fakeUsers struct {
	records map[int64]domain.Record
}

func (f *fakeUsers) UserByID(_ context.Context, id int64) (domain.Record, error) {
	record, ok := f.records[id]
	if !ok {
		return nil, domain.ErrRecordNotFound
	}
	return record, nil
}

func newTestEngine(orders domain.OrderProvider, users domain.UserProvider) *Engine {
	return NewEngine(Options{
		Orders: orders,
		Users:  users,
		Now:    func() time.Time { return fixedNow },
	})
}

func standardProviders() (*fakeOrders, *fakeUsers) {
	orders := &fakeOrders{records: map[string]domain.Record{
		"ORD20230001": {"orderNo": "ORD20230001", "status": float64(2), "amount": 1498.0, "userId": float64(10001)},
	}}
	users := &fakeUsers{records: map[int64]domain.Record{
		10001: {"username": "张三", "phone": "13512345678"},
	}}
	return orders, users
}

func TestBuildOrderCard_FromProviders(t *testing.T) {
	orders, users := standardProviders()
	engine := newTestEngine(orders, users)

	card, err := engine.BuildOrderCard(context.Background(), "查询订单号 ORD20230001")
	require.NoError(t, err)
	require.NotNil(t, card)
	require.Equal(t, domain.CardTypeOrder, card.Type)
	require.NotEmpty(t, card.ID)
	require.Equal(t, fixedNow, card.CreatedTime)

	order := card.Order
	require.Equal(t, "ORD20230001", order.OrderNumber)
	require.Equal(t, "已发货", order.OrderStatus)
	require.InDelta(t, 1498.0, order.TotalAmount, 0.0001)
	require.Equal(t, "张三", order.UserName)
	require.Equal(t, "135****5678", order.UserPhone)
	require.EqualValues(t, 10001, order.UserID)
	require.Equal(t, fixedNow.Add(-24*time.Hour), order.OrderTime)
	require.Len(t, order.Items, 1)
	require.Equal(t, 1, order.Items[0].Quantity)
	require.Equal(t, []string{"ORD20230001"}, orders.calls)

	stored, ok := engine.Store().Get(card.ID)
	require.True(t, ok)
	require.Equal(t, *card, stored)
}

func TestBuildOrderCard_ProviderNotFound(t *testing.T) {
	engine := newTestEngine(&fakeOrders{}, &fakeUsers{})

	card, err := engine.BuildOrderCard(context.Background(), "查询订单号 ORD20230001")
	require.Nil(t, card)
	require.ErrorIs(t, err, domain.ErrCardNotFound)
	require.Zero(t, engine.Store().Len())
}

func TestBuildOrderCard_SentinelAndNegativePhrases(t *testing.T) {
	orders := &fakeOrders{}
	engine := newTestEngine(orders, nil)

	for _, message := range []string{
		"查询订单号 404",
		"查询订单 unknown123",
		"帮我查一个不存在的订单",
		"订单找不到了",
	} {
		card, err := engine.BuildOrderCard(context.Background(), message)
		require.Nil(t, card, message)
		require.ErrorIs(t, err, domain.ErrCardNotFound, message)
	}
	require.Empty(t, orders.calls)
}

func TestBuildOrderCard_NegativePhraseStillLooksUpRequestedOrder(t *testing.T) {
	orders, users := standardProviders()
	engine := newTestEngine(orders, users)

	card, err := engine.BuildOrderCard(context.Background(), "我找不到订单号 ORD20230001 的物流")
	require.NoError(t, err)
	require.NotNil(t, card)
	require.Equal(t, "ORD20230001", card.Order.OrderNumber)
	require.Equal(t, "已发货", card.Order.OrderStatus)
	require.Equal(t, []string{"ORD20230001"}, orders.calls)

	noProvider := newTestEngine(nil, nil)
	card, err = noProvider.BuildOrderCard(context.Background(), "我找不到订单号 ORD20230001 的物流")
	require.Nil(t, card)
	require.ErrorIs(t, err, domain.ErrCardNotFound)
	require.Zero(t, noProvider.Store().Len())
}

func TestBuildOrderCard_PlaceholderWithoutOrderNumber(t *testing.T) {
	orders := &fakeOrders{}
	engine := newTestEngine(orders, nil)

	card, err := engine.BuildOrderCard(context.Background(), "我的订单待付款吗")
	require.NoError(t, err)
	require.Empty(t, orders.calls)

	order := card.Order
	require.Equal(t, "OD1717243200000", order.OrderNumber)
	require.Equal(t, "待付款", order.OrderStatus)
	require.InDelta(t, 1498.0, order.TotalAmount, 0.0001)
	require.Len(t, order.Items, 2)
	require.Equal(t, "张三", order.UserName)
	require.Equal(t, "135****6789", order.UserPhone)
}

func TestBuildOrderCard_NumericOrderGetsPrefix(t *testing.T) {
	orders := &fakeOrders{records: map[string]domain.Record{
		"OD12345": {"status": float64(9), "amount": 30.0, "quantity": float64(3), "itemId": float64(1004), "createdAt": "2024-05-01 08:30:00"},
	}}
	engine := newTestEngine(orders, nil)

	card, err := engine.BuildOrderCard(context.Background(), "订单：12345")
	require.NoError(t, err)

	order := card.Order
	require.Equal(t, "OD12345", order.OrderNumber)
	require.Equal(t, "未知", order.OrderStatus)
	require.Equal(t, "用户", order.UserName)
	require.True(t, time.Date(2024, 5, 1, 8, 30, 0, 0, time.Local).Equal(order.OrderTime))

	item := order.Items[0]
	require.Equal(t, "运动鞋", item.ProductName)
	require.Equal(t, "服装", item.ProductCategory)
	require.Equal(t, "SKU-1004", item.ProductSKU)
	require.Equal(t, 3, item.Quantity)
	require.InDelta(t, 10.0, item.Price, 0.0001)
}

func TestBuildOrderCard_ProviderFailure(t *testing.T) {
	boom := errors.New("connection refused")
	engine := newTestEngine(&fakeOrders{err: boom}, nil)

	card, err := engine.BuildOrderCard(context.Background(), "订单号 ORD1")
	require.Nil(t, card)
	require.ErrorIs(t, err, boom)

	engine = newTestEngine(&fakeOrders{err: domain.ErrToolNotFound}, nil)
	card, err = engine.BuildOrderCard(context.Background(), "订单号 ORD1")
	require.NoError(t, err)
	require.Equal(t, "ORD1", card.Order.OrderNumber)
}

func TestBuildLogisticsCard_DeliveredHasNoEstimate(t *testing.T) {
	engine := newTestEngine(nil, nil)

	card, err := engine.BuildLogisticsCard(context.Background(), "我的顺丰快递已签收了吗", nil)
	require.NoError(t, err)

	logistics := card.Logistics
	require.Equal(t, "顺丰速运", logistics.CourierCompany)
	require.Equal(t, "已签收", logistics.Status)
	require.Nil(t, logistics.EstimatedDeliveryTime)
	require.Equal(t, "SF1717243200000", logistics.TrackingNumber)
}

func TestBuildLogisticsCard_TrackingNumberAndOrderLink(t *testing.T) {
	engine := newTestEngine(nil, nil)
	order := &domain.OrderCard{OrderNumber: "ORD9", OrderStatus: "已发货"}

	card, err := engine.BuildLogisticsCard(context.Background(), "快递单号：yt9876543210 到哪了", order)
	require.NoError(t, err)

	logistics := card.Logistics
	require.Equal(t, "YT9876543210", logistics.TrackingNumber)
	require.Equal(t, "圆通速递", logistics.CourierCompany)
	require.Equal(t, "ORD9", logistics.OrderNumber)
	require.Equal(t, "运输中", logistics.Status)
	require.NotNil(t, logistics.EstimatedDeliveryTime)
	require.Equal(t, fixedNow.AddDate(0, 0, 2), *logistics.EstimatedDeliveryTime)
	require.Equal(t, "/logistics/YT9876543210", card.ActionURL)
}

func TestBuildTrackingCard_OrderPlacedStage(t *testing.T) {
	engine := newTestEngine(nil, nil)

	card, err := engine.BuildTrackingCard(context.Background(), "物流追踪：已下单", nil)
	require.NoError(t, err)

	tracking := card.Tracking
	require.Equal(t, 10, tracking.CompletionPercentage)
	require.Equal(t, "已下单", tracking.CurrentStatus)
	require.Len(t, tracking.TrackingDetails, 1)
	require.True(t, tracking.TrackingDetails[0].Current)
}

func TestBuildTrackingCard_RouteAndHistory(t *testing.T) {
	engine := newTestEngine(nil, nil)

	card, err := engine.BuildTrackingCard(context.Background(), "追踪从广州市寄到北京的包裹，正在派送", nil)
	require.NoError(t, err)

	tracking := card.Tracking
	require.Equal(t, "广州", tracking.OriginLocation)
	require.Equal(t, "北京", tracking.DestinationLocation)
	require.InDelta(t, 1897.5, tracking.EstimatedDistance, 0.001)
	require.Equal(t, 80, tracking.CompletionPercentage)
	require.Len(t, tracking.TrackingDetails, 4)

	current := 0
	for i, detail := range tracking.TrackingDetails {
		if detail.Current {
			current++
			require.Zero(t, i)
		}
		if i > 0 {
			require.True(t, detail.Timestamp.Before(tracking.TrackingDetails[i-1].Timestamp))
		}
	}
	require.Equal(t, 1, current)
	require.Equal(t, "派送中", tracking.TrackingDetails[0].Status)
}

func TestBuildTrackingCard_MultiCharacterConnector(t *testing.T) {
	engine := newTestEngine(nil, nil)

	for _, message := range []string{"追踪从上海到达北京的包裹", "追踪从上海送到北京的包裹"} {
		card, err := engine.BuildTrackingCard(context.Background(), message, nil)
		require.NoError(t, err)
		require.Equal(t, "上海", card.Tracking.OriginLocation, message)
		require.Equal(t, "北京", card.Tracking.DestinationLocation, message)
		require.InDelta(t, 1213.0, card.Tracking.EstimatedDistance, 0.001, message)
	}
}

func TestBuildTrackingCard_Defaults(t *testing.T) {
	engine := newTestEngine(nil, nil)

	card, err := engine.BuildTrackingCard(context.Background(), "包裹跟踪", nil)
	require.NoError(t, err)

	tracking := card.Tracking
	require.Equal(t, "发货地", tracking.OriginLocation)
	require.Equal(t, "收货地", tracking.DestinationLocation)
	require.InDelta(t, 1000.0, tracking.EstimatedDistance, 0.001)
	require.Equal(t, 50, tracking.CompletionPercentage)
}

func TestDetectAndBuildCard(t *testing.T) {
	orders, users := standardProviders()
	engine := newTestEngine(orders, users)
	ctx := context.Background()

	card, err := engine.DetectAndBuildCard(ctx, "订单已发货了吗")
	require.NoError(t, err)
	require.Equal(t, domain.CardTypeOrder, card.Type)

	card, err = engine.DetectAndBuildCard(ctx, "我的快递到哪了")
	require.NoError(t, err)
	require.Equal(t, domain.CardTypeLogistics, card.Type)

	card, err = engine.DetectAndBuildCard(ctx, "查看包裹追踪详情")
	require.NoError(t, err)
	require.Equal(t, domain.CardTypeTracking, card.Type)

	card, err = engine.DetectAndBuildCard(ctx, "今天天气怎么样")
	require.NoError(t, err)
	require.Nil(t, card)

	require.Len(t, engine.Store().List(), 3)
}

func TestSeedSamples(t *testing.T) {
	engine := newTestEngine(nil, nil)

	samples, err := engine.SeedSamples()
	require.NoError(t, err)
	require.Len(t, samples, 3)
	require.Len(t, engine.Store().ListByType(domain.CardTypeTracking), 1)
	require.InDelta(t, 299.99, samples[0].Order.TotalAmount, 0.0001)

	logistics, err := engine.SeedSample(domain.CardTypeLogistics)
	require.NoError(t, err)
	require.Equal(t, "SF1234567890", logistics.Logistics.TrackingNumber)
	require.Len(t, engine.Store().ListByType(domain.CardTypeLogistics), 2)

	_, err = engine.SeedSample("weather")
	require.ErrorIs(t, err, domain.ErrUnknownCardType)
}

func TestMaskPhone(t *testing.T) {
	require.Equal(t, "135****5678", maskPhone("13512345678"))
	require.Equal(t, "1234567", maskPhone("1234567"))
	require.Equal(t, "", maskPhone(""))
}
