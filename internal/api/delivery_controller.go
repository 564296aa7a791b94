package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"pizzeria/server/internal/services"
)

// DeliveryController проверяет доставку для корзины
type DeliveryController struct {
	delivery *services.DeliveryService
}

func NewDeliveryController(delivery *services.DeliveryService) *DeliveryController {
	return &DeliveryController{delivery: delivery}
}

// CheckDeliveryRequest - проверка индекса из корзины
type CheckDeliveryRequest struct {
	Postcode   string  `json:"postcode" binding:"required"`
	OrderTotal float64 `json:"order_total"`
}

// CheckDelivery отвечает, возим ли в индекс, почем и как быстро.
// Индекс вне зон - не ошибка, просто deliverable=false
func (dc *DeliveryController) CheckDelivery(c *gin.Context) {
	var req CheckDeliveryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid data", "details": err.Error()})
		return
	}

	quote, ok, err := dc.delivery.CheckDelivery(req.Postcode, req.OrderTotal)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if !ok {
		c.JSON(http.StatusOK, gin.H{
			"deliverable": false,
			"postcode":    req.Postcode,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"deliverable":   true,
		"zone":          quote.Zone.Name,
		"delivery_fee":  quote.DeliveryFee,
		"min_order":     quote.MinOrder,
		"delivery_time": quote.DeliveryTime,
		"meets_minimum": quote.MeetsMinimum,
	})
}
