package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// CardType discriminates the Card variants.
type CardType string

const (
	CardTypeOrder     CardType = "order"
	CardTypeLogistics CardType = "logistics"
	CardTypeTracking  CardType = "tracking"
)

// ParseCardType validates a card type name.
func ParseCardType(value string) (CardType, error) {
	switch CardType(value) {
	case CardTypeOrder, CardTypeLogistics, CardTypeTracking:
		return CardType(value), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownCardType, value)
	}
}

// CardHeader holds the fields shared by every card variant.
type CardHeader struct {
	ID          string    `json:"id"`
	Type        CardType  `json:"type"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	IconURL     string    `json:"iconUrl,omitempty"`
	ActionURL   string    `json:"actionUrl,omitempty"`
	CreatedTime time.Time `json:"createdTime"`
}

// Card is a tagged union: exactly the variant named by Type is non-nil.
type Card struct {
	CardHeader
	Order     *OrderCard
	Logistics *LogisticsCard
	Tracking  *TrackingCard
}

// OrderItem is one line item of an order card.
type OrderItem struct {
	ProductName     string  `json:"productName"`
	ImageURL        string  `json:"imageUrl"`
	Price           float64 `json:"price"`
	Quantity        int     `json:"quantity"`
	ProductID       int64   `json:"productId"`
	ProductSKU      string  `json:"productSku"`
	ProductCategory string  `json:"productCategory"`
}

type OrderCard struct {
	OrderNumber string      `json:"orderNumber"`
	OrderStatus string      `json:"orderStatus"`
	OrderTime   time.Time   `json:"orderTime"`
	TotalAmount float64     `json:"totalAmount"`
	Items       []OrderItem `json:"items"`
	UserID      int64       `json:"userId"`
	UserName    string      `json:"userName"`
	UserPhone   string      `json:"userPhone"`
	UserAddress string      `json:"userAddress"`
}

type LogisticsCard struct {
	OrderNumber           string     `json:"orderNumber,omitempty"`
	CourierCompany        string     `json:"courierCompany"`
	CourierLogo           string     `json:"courierLogo"`
	TrackingNumber        string     `json:"trackingNumber"`
	Status                string     `json:"status"`
	LatestUpdate          string     `json:"latestUpdate"`
	EstimatedDeliveryTime *time.Time `json:"estimatedDeliveryTime"`
}

// TrackingDetail is one event in a shipment history.
type TrackingDetail struct {
	Status      string    `json:"status"`
	Description string    `json:"description"`
	Timestamp   time.Time `json:"timestamp"`
	Location    string    `json:"location"`
	Current     bool      `json:"current"`
}

type TrackingCard struct {
	OrderNumber           string           `json:"orderNumber,omitempty"`
	TrackingNumber        string           `json:"trackingNumber"`
	CourierCompany        string           `json:"courierCompany"`
	CourierLogo           string           `json:"courierLogo"`
	CurrentStatus         string           `json:"currentStatus"`
	OriginLocation        string           `json:"originLocation"`
	DestinationLocation   string           `json:"destinationLocation"`
	EstimatedDistance     float64          `json:"estimatedDistance"`
	CompletionPercentage  int              `json:"completionPercentage"`
	TrackingDetails       []TrackingDetail `json:"trackingDetails"`
	EstimatedDeliveryTime *time.Time       `json:"estimatedDeliveryTime"`
}

// Validate reports whether the discriminant matches the populated variant.
func (c Card) Validate() error {
	switch c.Type {
	case CardTypeOrder:
		if c.Order == nil {
			return fmt.Errorf("order card %q has no order payload", c.ID)
		}
	case CardTypeLogistics:
		if c.Logistics == nil {
			return fmt.Errorf("logistics card %q has no logistics payload", c.ID)
		}
	case CardTypeTracking:
		if c.Tracking == nil {
			return fmt.Errorf("tracking card %q has no tracking payload", c.ID)
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownCardType, c.Type)
	}
	return nil
}

// Clone returns a deep copy of the card.
func (c Card) Clone() Card {
	out := Card{CardHeader: c.CardHeader}
	if c.Order != nil {
		order := *c.Order
		order.Items = append([]OrderItem(nil), c.Order.Items...)
		out.Order = &order
	}
	if c.Logistics != nil {
		logistics := *c.Logistics
		logistics.EstimatedDeliveryTime = cloneTime(c.Logistics.EstimatedDeliveryTime)
		out.Logistics = &logistics
	}
	if c.Tracking != nil {
		tracking := *c.Tracking
		tracking.TrackingDetails = append([]TrackingDetail(nil), c.Tracking.TrackingDetails...)
		tracking.EstimatedDeliveryTime = cloneTime(c.Tracking.EstimatedDeliveryTime)
		out.Tracking = &tracking
	}
	return out
}

// InlineToken renders the reference embedded in chat replies.
func (c Card) InlineToken() string {
	return fmt.Sprintf("@cards[%s,%s]", c.ID, c.Type)
}

// MarshalJSON encodes the header and the active variant as one flat object.
func (c Card) MarshalJSON() ([]byte, error) {
	switch c.Type {
	case CardTypeOrder:
		return json.Marshal(struct {
			CardHeader
			*OrderCard
		}{c.CardHeader, c.Order})
	case CardTypeLogistics:
		return json.Marshal(struct {
			CardHeader
			*LogisticsCard
		}{c.CardHeader, c.Logistics})
	case CardTypeTracking:
		return json.Marshal(struct {
			CardHeader
			*TrackingCard
		}{c.CardHeader, c.Tracking})
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownCardType, c.Type)
	}
}

// UnmarshalJSON decodes a flat card object using its type field.
func (c *Card) UnmarshalJSON(data []byte) error {
	out, err := DecodeCard(data, "")
	if err != nil {
		return err
	}
	*c = out
	return nil
}

// DecodeCard decodes a flat card object. An object without a type field takes
// want; a type field that disagrees with a non-empty want is rejected.
func DecodeCard(data []byte, want CardType) (Card, error) {
	var header CardHeader
	if err := json.Unmarshal(data, &header); err != nil {
		return Card{}, err
	}
	if header.Type == "" {
		header.Type = want
	}
	if want != "" && header.Type != want {
		return Card{}, fmt.Errorf("card type %q does not match %q", header.Type, want)
	}
	out := Card{CardHeader: header}
	var target any
	switch header.Type {
	case CardTypeOrder:
		out.Order = &OrderCard{}
		target = out.Order
	case CardTypeLogistics:
		out.Logistics = &LogisticsCard{}
		target = out.Logistics
	case CardTypeTracking:
		out.Tracking = &TrackingCard{}
		target = out.Tracking
	default:
		return Card{}, fmt.Errorf("%w: %q", ErrUnknownCardType, header.Type)
	}
	if err := json.Unmarshal(data, target); err != nil {
		return Card{}, err
	}
	return out, nil
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
