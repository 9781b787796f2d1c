package cards

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/thefirstwind/mcp-client-demo/internal/domain"
	"github.com/thefirstwind/mcp-client-demo/internal/infra/telemetry"
)

var (
	orderNumberPattern = regexp.MustCompile(`(订单号|订单编号|订单)[:：\s]*([A-Za-z0-9_]+)`)
	digitsPattern      = regexp.MustCompile(`^[0-9]+$`)
)

var orderTimeLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
	time.RFC3339Nano,
}

var orderStatusRules = []keywordRule{
	{keywords: []string{"待付款", "未付款"}, label: "待付款"},
	{keywords: []string{"已发货", "配送中", "运输中"}, label: "已发货"},
	{keywords: []string{"已付款", "已支付", "已下单"}, label: "已付款"},
	{keywords: []string{"已完成", "已签收"}, label: "已完成"},
	{keywords: []string{"已取消"}, label: "已取消"},
}

const orderStatusUnknown = "未知"

type product struct {
	name     string
	image    string
	category string
}

var (
	productsBySuffix = map[int64]product{
		1: {name: "智能手表", image: "/images/product-watch.jpg", category: "电子产品"},
		2: {name: "蓝牙耳机", image: "/images/product-headphones.jpg", category: "电子产品"},
		3: {name: "机械键盘", image: "/images/product-keyboard.jpg", category: "电子产品"},
		4: {name: "运动鞋", image: "/images/product-shoes.jpg", category: "服装"},
		5: {name: "牛仔裤", image: "/images/product-jeans.jpg", category: "服装"},
	}
	defaultProduct = product{name: "商品", image: "/images/product-default.jpg", category: "商品"}
)

var placeholderItems = []domain.OrderItem{
	{
		ProductName:     "智能手表",
		ImageURL:        "/images/product-watch.jpg",
		Price:           999.0,
		Quantity:        1,
		ProductID:       1001,
		ProductSKU:      "WATCH-2023",
		ProductCategory: "电子产品",
	},
	{
		ProductName:     "蓝牙耳机",
		ImageURL:        "/images/product-headphones.jpg",
		Price:           499.0,
		Quantity:        1,
		ProductID:       1002,
		ProductSKU:      "HP-2023",
		ProductCategory: "电子产品",
	},
}

const (
	placeholderUserID      = 10001
	placeholderUserName    = "张三"
	placeholderUserPhone   = "135****6789"
	placeholderUserAddress = "北京市海淀区中关村大街1号"
	placeholderTotal       = 1498.0
	defaultUserName        = "用户"
)

// BuildOrderCard synthesizes an order card from a chat message. A requested
// order that the provider cannot find yields domain.ErrCardNotFound, and so
// does a placeholder for a message that asks about a missing order.
func (e *Engine) BuildOrderCard(ctx context.Context, message string) (*domain.Card, error) {
	orderNo, requested := extractOrderNumber(message)
	if !requested {
		return e.placeholderUnlessNegative("", message)
	}
	if containsAny(strings.ToLower(orderNo), notFoundMarkers) {
		return e.orderMissing(orderNo, "sentinel order number")
	}
	if e.orders == nil {
		return e.placeholderUnlessNegative(orderNo, message)
	}

	started := time.Now()
	record, err := e.orders.OrderByNumber(ctx, orderNo)
	switch {
	case err == nil:
		e.logger.Debug("order record loaded",
			telemetry.EventField(telemetry.EventProviderCall),
			telemetry.DurationField(time.Since(started)),
			zap.String("order", orderNo),
		)
		return e.persistBuilt(e.orderFromRecord(ctx, orderNo, record))
	case errors.Is(err, domain.ErrToolNotFound):
		e.logger.Warn("order provider not published, using placeholder", zap.String("order", orderNo), zap.Error(err))
		return e.placeholderUnlessNegative(orderNo, message)
	case errors.Is(err, domain.ErrRecordNotFound):
		return e.orderMissing(orderNo, "no provider record")
	default:
		e.metrics.ObserveCardSynthesis(domain.CardTypeOrder, false)
		return nil, fmt.Errorf("lookup order %s: %w", orderNo, err)
	}
}

// placeholderUnlessNegative builds a placeholder order, synthesizing the
// number when orderNo is empty.
func (e *Engine) placeholderUnlessNegative(orderNo, message string) (*domain.Card, error) {
	if containsAny(message, negativeOrderPhrases) {
		return e.orderMissing(orderNo, "negative phrase")
	}
	if orderNo == "" {
		orderNo = e.syntheticOrderNumber()
	}
	return e.persistBuilt(e.placeholderOrder(orderNo, message))
}

func (e *Engine) orderMissing(orderNo, reason string) (*domain.Card, error) {
	e.metrics.ObserveCardSynthesis(domain.CardTypeOrder, false)
	e.logger.Info("order card not built",
		telemetry.EventField(telemetry.EventCardMissing),
		telemetry.CardTypeField(string(domain.CardTypeOrder)),
		zap.String("order", orderNo),
		zap.String("reason", reason),
	)
	if orderNo == "" {
		return nil, domain.ErrCardNotFound
	}
	return nil, fmt.Errorf("order %s: %w", orderNo, domain.ErrCardNotFound)
}

// extractOrderNumber returns the labelled order id. Purely numeric ids get the OD prefix.
func extractOrderNumber(message string) (string, bool) {
	match := orderNumberPattern.FindStringSubmatch(message)
	if len(match) < 3 || match[2] == "" {
		return "", false
	}
	id := match[2]
	if digitsPattern.MatchString(id) {
		id = "OD" + id
	}
	return id, true
}

func (e *Engine) syntheticOrderNumber() string {
	return "OD" + strconv.FormatInt(e.now().UnixMilli(), 10)
}

func orderStatusFromText(message string) string {
	return firstMatch(message, orderStatusRules, orderStatusUnknown)
}

func orderStatusLabel(code int64) string {
	switch code {
	case 0:
		return "待付款"
	case 1:
		return "已付款"
	case 2:
		return "已发货"
	case 3:
		return "已完成"
	case 4:
		return "已取消"
	default:
		return orderStatusUnknown
	}
}

func (e *Engine) placeholderOrder(orderNo, message string) domain.Card {
	now := e.now()
	status := orderStatusFromText(message)
	return newOrderCard(&domain.OrderCard{
		OrderNumber: orderNo,
		OrderStatus: status,
		OrderTime:   now.Add(-24 * time.Hour),
		TotalAmount: placeholderTotal,
		Items:       append([]domain.OrderItem(nil), placeholderItems...),
		UserID:      placeholderUserID,
		UserName:    placeholderUserName,
		UserPhone:   placeholderUserPhone,
		UserAddress: placeholderUserAddress,
	})
}

func (e *Engine) orderFromRecord(ctx context.Context, requested string, record domain.Record) domain.Card {
	now := e.now()
	orderNo, ok := record.String("orderNo")
	if !ok || orderNo == "" {
		orderNo = requested
	}
	code, _ := record.Int("status")
	createdAt, _ := record.String("createdAt")
	total, _ := record.Float("amount")
	address, _ := record.String("address")

	quantity, ok := record.Int("quantity")
	if !ok || quantity <= 0 {
		quantity = 1
	}
	itemID, _ := record.Int("itemId")
	item := lookupProduct(itemID)

	order := &domain.OrderCard{
		OrderNumber: orderNo,
		OrderStatus: orderStatusLabel(code),
		OrderTime:   parseOrderTime(createdAt, now),
		TotalAmount: total,
		Items: []domain.OrderItem{{
			ProductName:     item.name,
			ImageURL:        item.image,
			Price:           total / float64(quantity),
			Quantity:        int(quantity),
			ProductID:       itemID,
			ProductSKU:      "SKU-" + strconv.FormatInt(itemID, 10),
			ProductCategory: item.category,
		}},
		UserName:    defaultUserName,
		UserAddress: address,
	}

	if userID, ok := record.Int("userId"); ok {
		order.UserID = userID
		e.enrichUser(ctx, order)
	}
	return newOrderCard(order)
}

func (e *Engine) enrichUser(ctx context.Context, order *domain.OrderCard) {
	if e.users == nil {
		return
	}
	user, err := e.users.UserByID(ctx, order.UserID)
	if err != nil {
		e.logger.Debug("user lookup failed", zap.Int64("user", order.UserID), zap.Error(err))
		return
	}
	if name, ok := user.String("username"); ok && name != "" {
		order.UserName = name
	}
	if phone, ok := user.String("phone"); ok {
		order.UserPhone = maskPhone(phone)
	}
}

func newOrderCard(order *domain.OrderCard) domain.Card {
	return domain.Card{
		CardHeader: domain.CardHeader{
			Type:        domain.CardTypeOrder,
			Title:       "订单详情",
			Description: fmt.Sprintf("订单%s状态：%s", order.OrderNumber, order.OrderStatus),
			IconURL:     "/images/order-icon.png",
			ActionURL:   "/order/" + order.OrderNumber,
		},
		Order: order,
	}
}

func lookupProduct(itemID int64) product {
	if p, ok := productsBySuffix[itemID%10]; ok {
		return p
	}
	return defaultProduct
}

func parseOrderTime(value string, now time.Time) time.Time {
	value = strings.TrimSpace(value)
	if value != "" {
		for _, layout := range orderTimeLayouts {
			if parsed, err := time.ParseInLocation(layout, value, time.Local); err == nil {
				return parsed
			}
		}
	}
	return now.Add(-24 * time.Hour)
}

// maskPhone keeps the first three digits and everything from the eighth on.
func maskPhone(phone string) string {
	if utf8.RuneCountInString(phone) <= 7 {
		return phone
	}
	runes := []rune(phone)
	return string(runes[:3]) + "****" + string(runes[7:])
}
