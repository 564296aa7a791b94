package models

import (
	"errors"
	"time"
)

// Ошибки домена заказов. Контроллеры сопоставляют их с HTTP-кодами,
// сервисы возвращают как есть
var (
	ErrProductNotFound    = errors.New("pizza product not found or not customizable")
	ErrOrderNotFound      = errors.New("order not found")
	ErrTransitionRejected = errors.New("order status transition rejected")
	ErrInvalidStatus      = errors.New("unknown order status")
	ErrStaffPINInvalid    = errors.New("staff pin invalid")
	ErrStoreClosed        = errors.New("store is closed at requested time")
	ErrBelowZoneMinimum   = errors.New("order total below delivery zone minimum")
)

// OrderStatus - этап жизненного цикла заказа на кухне
type OrderStatus string

const (
	StatusReceived       OrderStatus = "received"
	StatusPreparing      OrderStatus = "preparing"
	StatusReady          OrderStatus = "ready"
	StatusOutForDelivery OrderStatus = "out_for_delivery"
	StatusDelivered      OrderStatus = "delivered"
	StatusPickedUp       OrderStatus = "picked_up"
)

// DeliveryType - способ получения заказа
type DeliveryType string

const (
	DeliveryTypeDelivery DeliveryType = "delivery"
	DeliveryTypePickup   DeliveryType = "pickup"
)

// allowedTransitions - разрешенные переходы статусов.
// Ветка после ready зависит от способа получения, поэтому ready
// перечисляет обе цели, а CanTransitionTo дополнительно фильтрует
var allowedTransitions = map[OrderStatus][]OrderStatus{
	StatusReceived:       {StatusPreparing},
	StatusPreparing:      {StatusReady},
	StatusReady:          {StatusOutForDelivery, StatusPickedUp},
	StatusOutForDelivery: {StatusDelivered},
	StatusDelivered:      {}, // терминальный
	StatusPickedUp:       {}, // терминальный
}

// statusLabels - человекочитаемые подписи для чеков и писем клиенту
var statusLabels = map[OrderStatus]string{
	StatusReceived:       "Order Received",
	StatusPreparing:      "Preparing",
	StatusReady:          "Ready",
	StatusOutForDelivery: "Out for Delivery",
	StatusDelivered:      "Delivered",
	StatusPickedUp:       "Picked Up",
}

// Valid проверяет, что строка - известный статус
func (s OrderStatus) Valid() bool {
	_, ok := allowedTransitions[s]
	return ok
}

// Terminal - из статуса нет исходящих переходов
func (s OrderStatus) Terminal() bool {
	return len(allowedTransitions[s]) == 0 && s.Valid()
}

// Label возвращает подпись статуса, либо сырое значение для неизвестных
func (s OrderStatus) Label() string {
	if label, ok := statusLabels[s]; ok {
		return label
	}
	return string(s)
}

// CanTransitionTo проверяет допустимость перехода с учетом способа получения:
// out_for_delivery только для доставки, picked_up только для самовывоза
func (s OrderStatus) CanTransitionTo(next OrderStatus, deliveryType DeliveryType) bool {
	if next == StatusOutForDelivery && deliveryType != DeliveryTypeDelivery {
		return false
	}
	if next == StatusPickedUp && deliveryType == DeliveryTypeDelivery {
		return false
	}
	for _, allowed := range allowedTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// NextStatus - следующий шаг по основной ветке для кнопки на экране кухни
func NextStatus(current OrderStatus, deliveryType DeliveryType) (OrderStatus, bool) {
	switch current {
	case StatusReceived:
		return StatusPreparing, true
	case StatusPreparing:
		return StatusReady, true
	case StatusReady:
		if deliveryType == DeliveryTypeDelivery {
			return StatusOutForDelivery, true
		}
		return StatusPickedUp, true
	case StatusOutForDelivery:
		return StatusDelivered, true
	}
	return "", false
}

// OrderItem - позиция заказа: продукт, количество и зафиксированная конфигурация
type OrderItem struct {
	ProductID   uint        `json:"product_id"`
	ProductName string      `json:"product_name"`
	Quantity    int         `json:"quantity"`
	Config      PizzaConfig `json:"config"`
	LineTotal   float64     `json:"line_total"`
}

// PizzaOrder - заказ целиком, как он ходит по Redis/Kafka/WebSocket
type PizzaOrder struct {
	ID              string       `json:"id"`
	DisplayID       string       `json:"display_id"`
	CustomerName    string       `json:"customer_name"`
	CustomerPhone   string       `json:"customer_phone"`
	CustomerEmail   string       `json:"customer_email,omitempty"`
	DeliveryType    DeliveryType `json:"delivery_type"`
	DeliveryAddress string       `json:"delivery_address,omitempty"`
	Postcode        string       `json:"postcode,omitempty"`
	Items           []OrderItem  `json:"items"`
	ItemsTotal      float64      `json:"items_total"`
	DeliveryFee     float64      `json:"delivery_fee"`
	Total           float64      `json:"total"`
	Notes           string       `json:"notes,omitempty"`
	ScheduledFor    string       `json:"scheduled_for,omitempty"` // "2006-01-02 15:04", пусто = как можно скорее
	Status          OrderStatus  `json:"status"`
	CreatedAt       time.Time    `json:"created_at"`
	UpdatedAt       time.Time    `json:"updated_at"`
}

// PizzaOrderRecord - строка таблицы pizza_orders. Полезная нагрузка позиций
// хранится как JSON, статус и суммы - колонками для выборок кухни
type PizzaOrderRecord struct {
	ID              string     `gorm:"primaryKey;size:36" json:"id"`
	DisplayID       string     `gorm:"size:8;index" json:"display_id"`
	CustomerName    string     `gorm:"size:255" json:"customer_name"`
	CustomerPhone   string     `gorm:"size:32" json:"customer_phone"`
	CustomerEmail   string     `gorm:"size:255" json:"customer_email"`
	DeliveryType    string     `gorm:"size:16;not null;default:'pickup'" json:"delivery_type"`
	DeliveryAddress string     `gorm:"type:text" json:"delivery_address"`
	Postcode        string     `gorm:"size:16" json:"postcode"`
	ItemsJSON       string     `gorm:"column:items_json;type:text" json:"-"`
	ItemsTotal      float64    `gorm:"not null;default:0" json:"items_total"`
	DeliveryFee     float64    `gorm:"not null;default:0" json:"delivery_fee"`
	Total           float64    `gorm:"not null;default:0" json:"total"`
	Notes           string     `gorm:"type:text" json:"notes"`
	ScheduledFor    string     `gorm:"size:32" json:"scheduled_for"`
	Status          string     `gorm:"size:32;not null;default:'received';index" json:"status"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
}

func (PizzaOrderRecord) TableName() string {
	return "pizza_orders"
}
