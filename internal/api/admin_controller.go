package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"pizzeria/server/internal/models"
	"pizzeria/server/internal/services"
)

// AdminController - админка: зоны доставки, перезагрузка каталога, архив
type AdminController struct {
	catalog      *services.CatalogService
	zones        *services.GormZoneRepository
	orderService *services.OrderService
}

func NewAdminController(catalog *services.CatalogService, zones *services.GormZoneRepository, orderService *services.OrderService) *AdminController {
	return &AdminController{
		catalog:      catalog,
		zones:        zones,
		orderService: orderService,
	}
}

// ReloadCatalog перечитывает каталог из БД и оповещает остальные
// инстансы через Redis Pub/Sub
func (ac *AdminController) ReloadCatalog(c *gin.Context) {
	if err := ac.catalog.ForceReload(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if err := ac.catalog.PublishUpdate(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "catalog reloaded locally, broadcast failed", "details": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "reloaded", "last_update": ac.catalog.GetLastUpdate()})
}

// CatalogStatus - время последней загрузки и размеры кэша каталога
func (ac *AdminController) CatalogStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"last_update": ac.catalog.GetLastUpdate(),
		"products":    len(ac.catalog.Products()),
		"sizes":       len(ac.catalog.Sizes()),
		"toppings":    len(ac.catalog.Toppings()),
		"sides":       len(ac.catalog.Sides()),
		"combos":      len(ac.catalog.Combos()),
	})
}

// ListZones отдает все зоны доставки, включая выключенные
func (ac *AdminController) ListZones(c *gin.Context) {
	zones, err := ac.zones.AllZones()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"zones": zones})
}

// ZoneRequest - создание/редактирование зоны доставки
type ZoneRequest struct {
	Name         string  `json:"name" binding:"required"`
	Postcodes    string  `json:"postcodes" binding:"required"`
	DeliveryFee  float64 `json:"delivery_fee"`
	MinOrder     float64 `json:"min_order"`
	DeliveryTime int     `json:"delivery_time"`
	IsActive     *bool   `json:"is_active"`
}

// CreateZone добавляет зону доставки
func (ac *AdminController) CreateZone(c *gin.Context) {
	var req ZoneRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid data", "details": err.Error()})
		return
	}

	zone := models.DeliveryZone{
		Name:         req.Name,
		Postcodes:    req.Postcodes,
		DeliveryFee:  req.DeliveryFee,
		MinOrder:     req.MinOrder,
		DeliveryTime: req.DeliveryTime,
		IsActive:     true,
	}
	if req.IsActive != nil {
		zone.IsActive = *req.IsActive
	}
	if zone.DeliveryTime == 0 {
		zone.DeliveryTime = 30
	}

	if err := ac.zones.CreateZone(&zone); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"zone": zone})
}

// UpdateZone редактирует зону доставки
func (ac *AdminController) UpdateZone(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("zone_id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid zone id"})
		return
	}

	var req ZoneRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid data", "details": err.Error()})
		return
	}

	zone := models.DeliveryZone{
		ID:           uint(id),
		Name:         req.Name,
		Postcodes:    req.Postcodes,
		DeliveryFee:  req.DeliveryFee,
		MinOrder:     req.MinOrder,
		DeliveryTime: req.DeliveryTime,
		IsActive:     true,
	}
	if req.IsActive != nil {
		zone.IsActive = *req.IsActive
	}

	if err := ac.zones.UpdateZone(&zone); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"zone": zone})
}

// DeleteZone удаляет зону доставки
func (ac *AdminController) DeleteZone(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("zone_id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid zone id"})
		return
	}

	if err := ac.zones.DeleteZone(uint(id)); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

// ArchiveOrders запускает архивирование старых заказов вручную
func (ac *AdminController) ArchiveOrders(c *gin.Context) {
	if err := ac.orderService.ArchiveOldOrders(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "archived"})
}
