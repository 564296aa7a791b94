package services

import (
	"log"
	"regexp"
	"strings"

	"gorm.io/gorm"

	"pizzeria/server/internal/models"
)

// ZoneRepository - источник активных зон доставки.
// В проде это БД, в тестах - фикстуры
type ZoneRepository interface {
	ActiveZones() ([]models.DeliveryZone, error)
}

// DeliveryService сопоставляет индекс клиента с зонами доставки
type DeliveryService struct {
	zones ZoneRepository
}

func NewDeliveryService(zones ZoneRepository) *DeliveryService {
	return &DeliveryService{zones: zones}
}

// MatchZone находит первую активную зону, чей шаблон покрывает индекс.
// Шаблоны с '*' - маски ("21*" покрывает весь район), сравнение
// без учета регистра, по всей строке. Индекс вне зон - не ошибка,
// просто ok=false: туда не возим
func (ds *DeliveryService) MatchZone(postcode string) (*models.DeliveryZone, bool, error) {
	postcode = strings.TrimSpace(postcode)
	if postcode == "" {
		return nil, false, nil
	}

	zones, err := ds.zones.ActiveZones()
	if err != nil {
		return nil, false, err
	}

	for i := range zones {
		for _, pattern := range zones[i].PatternList() {
			if matchPostcode(pattern, postcode) {
				return &zones[i], true, nil
			}
		}
	}
	return nil, false, nil
}

// matchPostcode - '*' в шаблоне превращается в '.*', остальное экранируется
func matchPostcode(pattern, postcode string) bool {
	expr := "(?i)^" + strings.ReplaceAll(regexp.QuoteMeta(pattern), `\*`, ".*") + "$"
	re, err := regexp.Compile(expr)
	if err != nil {
		log.Printf("⚠️ Некорректный шаблон индекса %q: %v", pattern, err)
		return false
	}
	return re.MatchString(postcode)
}

// Quote - результат проверки доставки для корзины
type DeliveryQuote struct {
	Zone         *models.DeliveryZone `json:"zone"`
	DeliveryFee  float64              `json:"delivery_fee"`
	MinOrder     float64              `json:"min_order"`
	DeliveryTime int                  `json:"delivery_time"`
	MeetsMinimum bool                 `json:"meets_minimum"`
}

// CheckDelivery проверяет индекс и минимальную сумму заказа для зоны
func (ds *DeliveryService) CheckDelivery(postcode string, orderTotal float64) (*DeliveryQuote, bool, error) {
	zone, ok, err := ds.MatchZone(postcode)
	if err != nil || !ok {
		return nil, false, err
	}
	return &DeliveryQuote{
		Zone:         zone,
		DeliveryFee:  zone.DeliveryFee,
		MinOrder:     zone.MinOrder,
		DeliveryTime: zone.DeliveryTime,
		MeetsMinimum: orderTotal >= zone.MinOrder,
	}, true, nil
}

// GormZoneRepository - зоны доставки из Postgres, плюс CRUD для админки
type GormZoneRepository struct {
	db *gorm.DB
}

func NewGormZoneRepository(db *gorm.DB) *GormZoneRepository {
	return &GormZoneRepository{db: db}
}

// ActiveZones возвращает активные зоны в порядке создания.
// Порядок важен: при пересечении шаблонов выигрывает первая зона
func (r *GormZoneRepository) ActiveZones() ([]models.DeliveryZone, error) {
	var zones []models.DeliveryZone
	if err := r.db.Where("is_active = ?", true).Order("id").Find(&zones).Error; err != nil {
		return nil, err
	}
	return zones, nil
}

// AllZones - все зоны для админки, включая выключенные
func (r *GormZoneRepository) AllZones() ([]models.DeliveryZone, error) {
	var zones []models.DeliveryZone
	if err := r.db.Order("id").Find(&zones).Error; err != nil {
		return nil, err
	}
	return zones, nil
}

func (r *GormZoneRepository) CreateZone(zone *models.DeliveryZone) error {
	return r.db.Create(zone).Error
}

func (r *GormZoneRepository) UpdateZone(zone *models.DeliveryZone) error {
	return r.db.Save(zone).Error
}

func (r *GormZoneRepository) DeleteZone(id uint) error {
	return r.db.Delete(&models.DeliveryZone{}, id).Error
}
