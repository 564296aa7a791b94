package api

import (
	"errors"
	"log"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"pizzeria/server/internal/models"
	"pizzeria/server/internal/services"
)

// OrderController оформляет заказы и ведет ленту кухни
type OrderController struct {
	pricing      *services.PricingService
	delivery     *services.DeliveryService
	orderService *services.OrderService
	schedule     *services.ScheduleService
	publisher    *OrderPublisher
}

func NewOrderController(
	pricing *services.PricingService,
	delivery *services.DeliveryService,
	orderService *services.OrderService,
	schedule *services.ScheduleService,
	publisher *OrderPublisher,
) *OrderController {
	return &OrderController{
		pricing:      pricing,
		delivery:     delivery,
		orderService: orderService,
		schedule:     schedule,
		publisher:    publisher,
	}
}

// CreateOrderRequest - запрос оформления заказа. Цены клиента
// игнорируются, сервер пересчитывает все по своему каталогу
type CreateOrderRequest struct {
	CustomerName    string             `json:"customer_name" binding:"required"`
	CustomerPhone   string             `json:"customer_phone" binding:"required"`
	CustomerEmail   string             `json:"customer_email"`
	DeliveryType    string             `json:"delivery_type" binding:"required"`
	DeliveryAddress string             `json:"delivery_address"`
	Postcode        string             `json:"postcode"`
	Items           []SelectionRequest `json:"items" binding:"required"`
	Notes           string             `json:"notes"`
	ScheduledFor    string             `json:"scheduled_for"` // "2006-01-02 15:04", пусто = сейчас
}

// CreateOrder оформляет заказ: пересчет цен, проверка зоны доставки
// и времени предзаказа, сохранение и раздача на кухню
func (oc *OrderController) CreateOrder(c *gin.Context) {
	var req CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid data", "details": err.Error()})
		return
	}

	deliveryType := models.DeliveryType(req.DeliveryType)
	if deliveryType != models.DeliveryTypeDelivery && deliveryType != models.DeliveryTypePickup {
		c.JSON(http.StatusBadRequest, gin.H{"error": "delivery_type must be 'delivery' or 'pickup'"})
		return
	}
	if len(req.Items) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "order has no items"})
		return
	}

	// Пересобираем каждую позицию по каталогу. Продукт берем из того же
	// снимка, что и конфигурацию: между сборкой и расчетом каталог
	// мог перезагрузиться
	var items []models.OrderItem
	var itemsTotal float64
	for _, sel := range req.Items {
		cfg, product, err := oc.pricing.BuildConfig(sel.toSelection())
		if err != nil {
			if errors.Is(err, models.ErrProductNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "product not found", "product_id": sel.ProductID})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		breakdown := oc.pricing.Calculate(cfg, product)
		quantity := sel.quantity()
		lineTotal := services.LineTotal(breakdown, quantity)

		items = append(items, models.OrderItem{
			ProductID:   product.ID,
			ProductName: product.Name,
			Quantity:    quantity,
			Config:      *cfg,
			LineTotal:   services.Round2(lineTotal),
		})
		itemsTotal += lineTotal
	}

	// Доставка: индекс должен попадать в зону, сумма - проходить минимум
	var deliveryFee float64
	if deliveryType == models.DeliveryTypeDelivery {
		quote, ok, err := oc.delivery.CheckDelivery(req.Postcode, itemsTotal)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		if !ok {
			c.JSON(http.StatusUnprocessableEntity, gin.H{
				"error":    "delivery not available for this postcode",
				"postcode": req.Postcode,
			})
			return
		}
		if !quote.MeetsMinimum {
			c.JSON(http.StatusUnprocessableEntity, gin.H{
				"error":     models.ErrBelowZoneMinimum.Error(),
				"min_order": quote.MinOrder,
			})
			return
		}
		deliveryFee = quote.DeliveryFee
	}

	// Предзаказ только на рабочее время
	if err := oc.schedule.ValidateSchedule(req.ScheduledFor); err != nil {
		if errors.Is(err, models.ErrStoreClosed) {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "store is closed at requested time"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	now := time.Now()
	order := models.PizzaOrder{
		ID:              uuid.New().String(),
		CustomerName:    req.CustomerName,
		CustomerPhone:   req.CustomerPhone,
		CustomerEmail:   req.CustomerEmail,
		DeliveryType:    deliveryType,
		DeliveryAddress: req.DeliveryAddress,
		Postcode:        strings.TrimSpace(req.Postcode),
		Items:           items,
		ItemsTotal:      services.Round2(itemsTotal),
		DeliveryFee:     deliveryFee,
		Total:           services.Round2(itemsTotal + deliveryFee),
		Notes:           req.Notes,
		ScheduledFor:    req.ScheduledFor,
		Status:          models.StatusReceived,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	order.DisplayID = displayIDFrom(order.ID)

	if err := oc.orderService.SaveOrder(order); err != nil {
		log.Printf("❌ Ошибка сохранения заказа %s: %v", order.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not save order"})
		return
	}

	// Kafka и WebSocket в фоне, клиент не ждет брокера
	go func(o models.PizzaOrder) {
		if err := oc.publisher.Publish(o); err != nil {
			log.Printf("⚠️ Ошибка публикации заказа %s в Kafka: %v", o.ID, err)
		}
		BroadcastKitchenEvent("new_order", map[string]interface{}{
			"order_id":   o.ID,
			"display_id": o.DisplayID,
			"status":     o.Status,
		})
	}(order)

	log.Printf("🍕 Заказ #%s оформлен: %d позиций, итого %.2f (%s)",
		order.DisplayID, len(order.Items), order.Total, order.DeliveryType)

	c.JSON(http.StatusOK, gin.H{
		"order_id":     order.ID,
		"display_id":   order.DisplayID,
		"items_total":  order.ItemsTotal,
		"delivery_fee": order.DeliveryFee,
		"total":        order.Total,
		"status":       order.Status,
		"status_label": order.Status.Label(),
	})
}

// GetOrder отдает заказ клиенту для страницы отслеживания
func (oc *OrderController) GetOrder(c *gin.Context) {
	order, err := oc.orderService.GetOrder(c.Param("order_id"))
	if err != nil {
		if errors.Is(err, models.ErrOrderNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"order":        order,
		"status_label": order.Status.Label(),
	})
}

// GetKitchenOrders отдает активные заказы для экрана кухни,
// с подсказкой следующего статуса для кнопки
func (oc *OrderController) GetKitchenOrders(c *gin.Context) {
	orders, err := oc.orderService.ActiveOrders()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	type kitchenOrder struct {
		models.PizzaOrder
		StatusLabel string             `json:"status_label"`
		NextStatus  models.OrderStatus `json:"next_status,omitempty"`
	}

	payload := make([]kitchenOrder, 0, len(orders))
	for _, order := range orders {
		entry := kitchenOrder{
			PizzaOrder:  order,
			StatusLabel: order.Status.Label(),
		}
		if next, ok := models.NextStatus(order.Status, order.DeliveryType); ok {
			entry.NextStatus = next
		}
		payload = append(payload, entry)
	}

	c.JSON(http.StatusOK, gin.H{"orders": payload, "count": len(payload)})
}

// UpdateStatusRequest - переход статуса с экрана кухни.
// expected_status защищает от двойного нажатия на двух планшетах
type UpdateStatusRequest struct {
	Status         string `json:"status" binding:"required"`
	ExpectedStatus string `json:"expected_status"`
}

// UpdateOrderStatus переводит заказ в следующий статус
func (oc *OrderController) UpdateOrderStatus(c *gin.Context) {
	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid data", "details": err.Error()})
		return
	}

	orderID := c.Param("order_id")
	expected := models.OrderStatus(req.ExpectedStatus)
	if req.ExpectedStatus == "" {
		current, err := oc.orderService.GetOrder(orderID)
		if err != nil {
			if errors.Is(err, models.ErrOrderNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		expected = current.Status
	}

	order, err := oc.orderService.AdvanceStatus(orderID, expected, models.OrderStatus(req.Status))
	if err != nil {
		switch {
		case errors.Is(err, models.ErrOrderNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
		case errors.Is(err, models.ErrInvalidStatus):
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown status"})
		case errors.Is(err, models.ErrTransitionRejected):
			current, _ := oc.orderService.GetOrder(orderID)
			c.JSON(http.StatusConflict, transitionRejectedPayload(current))
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}

	go func(o models.PizzaOrder) {
		if err := oc.publisher.Publish(o); err != nil {
			log.Printf("⚠️ Ошибка публикации статуса заказа %s в Kafka: %v", o.ID, err)
		}
		BroadcastKitchenEvent("status_changed", map[string]interface{}{
			"order_id":   o.ID,
			"display_id": o.DisplayID,
			"status":     o.Status,
		})
	}(*order)

	c.JSON(http.StatusOK, gin.H{
		"order_id":     order.ID,
		"status":       order.Status,
		"status_label": order.Status.Label(),
	})
}

// transitionRejectedPayload - тело ответа 409: отказ плюс фактический
// статус заказа, чтобы экран кухни мог сразу перерисовать кнопку
func transitionRejectedPayload(current *models.PizzaOrder) gin.H {
	payload := gin.H{"error": "status transition rejected"}
	if current != nil {
		payload["current_status"] = current.Status
		payload["current_status_label"] = current.Status.Label()
	}
	return payload
}

var digitsRe = regexp.MustCompile(`\d+`)

// displayIDFrom - короткий номер для чека и кухни: последние 4 цифры UUID
func displayIDFrom(fullID string) string {
	digits := strings.Join(digitsRe.FindAllString(fullID, -1), "")
	if len(digits) < 4 {
		return "0000"
	}
	return digits[len(digits)-4:]
}
