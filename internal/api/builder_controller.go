package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"pizzeria/server/internal/models"
	"pizzeria/server/internal/services"
)

// BuilderController отдает данные конструктора пиццы и считает цены
type BuilderController struct {
	catalog *services.CatalogService
	pricing *services.PricingService
}

func NewBuilderController(catalog *services.CatalogService, pricing *services.PricingService) *BuilderController {
	return &BuilderController{
		catalog: catalog,
		pricing: pricing,
	}
}

// SelectionRequest - выбор клиента в конструкторе, как его шлет витрина
type SelectionRequest struct {
	ProductID          FlexID   `json:"product_id"`
	SizeID             FlexID   `json:"size_id"`
	BaseID             FlexID   `json:"base_id"`
	SauceID            FlexID   `json:"sauce_id"`
	IncludedToppingIDs []FlexID `json:"included_topping_ids"`
	RemovedToppingIDs  []FlexID `json:"removed_topping_ids"`
	AddedToppingIDs    []FlexID `json:"added_topping_ids"`
	ExtraPortionIDs    []FlexID `json:"extra_portion_ids"`
	SideIDs            []FlexID `json:"side_ids"`
	ComboIDs           []FlexID `json:"combo_ids"`
	Quantity           int      `json:"quantity"`
	Instructions       string   `json:"instructions"`
}

func (r *SelectionRequest) toSelection() services.Selection {
	return services.Selection{
		ProductID:          r.ProductID.UInt(),
		SizeID:             r.SizeID.UInt(),
		BaseID:             r.BaseID.UInt(),
		SauceID:            r.SauceID.UInt(),
		IncludedToppingIDs: flexIDs(r.IncludedToppingIDs),
		RemovedToppingIDs:  flexIDs(r.RemovedToppingIDs),
		AddedToppingIDs:    flexIDs(r.AddedToppingIDs),
		ExtraPortionIDs:    flexIDs(r.ExtraPortionIDs),
		SideIDs:            flexIDs(r.SideIDs),
		ComboIDs:           flexIDs(r.ComboIDs),
		Instructions:       r.Instructions,
	}
}

func (r *SelectionRequest) quantity() int {
	if r.Quantity < 1 {
		return 1
	}
	return r.Quantity
}

// GetCatalog отдает весь каталог конструктора одним ответом
func (bc *BuilderController) GetCatalog(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"products": bc.catalog.Products(),
		"sizes":    bc.catalog.Sizes(),
		"bases":    bc.catalog.Bases(),
		"sauces":   bc.catalog.Sauces(),
		"toppings": bc.catalog.Toppings(),
		"sides":    bc.catalog.Sides(),
		"combos":   bc.catalog.Combos(),
	})
}

// GetBuilderData отдает данные конструктора для конкретной пиццы:
// опции, дефолтные топпинги и дефолтный размер
func (bc *BuilderController) GetBuilderData(c *gin.Context) {
	var productID FlexID
	if err := productID.UnmarshalJSON([]byte(c.Param("product_id"))); err != nil || productID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid product id"})
		return
	}

	product, ok := bc.catalog.Product(productID.UInt())
	if !ok || !product.IsActive {
		c.JSON(http.StatusNotFound, gin.H{"error": "product not found"})
		return
	}

	payload := gin.H{
		"product":          product,
		"sizes":            bc.catalog.Sizes(),
		"bases":            bc.catalog.Bases(),
		"sauces":           bc.catalog.Sauces(),
		"toppings":         bc.catalog.Toppings(),
		"sides":            bc.catalog.Sides(),
		"combos":           bc.catalog.Combos(),
		"default_toppings": bc.catalog.DefaultToppingsFor(product),
	}
	if size, ok := bc.catalog.DefaultSize(); ok {
		payload["default_size"] = size
	}

	c.JSON(http.StatusOK, payload)
}

// CalculatePrice считает живую цену по текущему выбору в конструкторе.
// Конфигурация не сохраняется, это только предпросмотр
func (bc *BuilderController) CalculatePrice(c *gin.Context) {
	var req SelectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid data", "details": err.Error()})
		return
	}

	cfg, product, err := bc.pricing.BuildConfig(req.toSelection())
	if err != nil {
		if errors.Is(err, models.ErrProductNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "product not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	breakdown := bc.pricing.Calculate(cfg, product)
	quantity := req.quantity()

	c.JSON(http.StatusOK, gin.H{
		"price":      services.Round2(breakdown.Total),
		"line_total": services.Round2(services.LineTotal(breakdown, quantity)),
		"quantity":   quantity,
		"breakdown":  breakdown,
	})
}

// BuildCartItem фиксирует конфигурацию для корзины: токен сборки,
// цены уровня на момент выбора и рассчитанный итог
func (bc *BuilderController) BuildCartItem(c *gin.Context) {
	var req SelectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid data", "details": err.Error()})
		return
	}

	cfg, product, err := bc.pricing.BuildConfig(req.toSelection())
	if err != nil {
		if errors.Is(err, models.ErrProductNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "product not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	breakdown := bc.pricing.Calculate(cfg, product)
	quantity := req.quantity()

	c.JSON(http.StatusOK, gin.H{
		"item": models.OrderItem{
			ProductID:   product.ID,
			ProductName: product.Name,
			Quantity:    quantity,
			Config:      *cfg,
			LineTotal:   services.Round2(services.LineTotal(breakdown, quantity)),
		},
		"unique_key": cfg.UniqueKey,
	})
}
