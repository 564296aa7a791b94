package services

import (
	"math"
	"strings"

	"github.com/google/uuid"

	"pizzeria/server/internal/models"
)

// CatalogRepository - доступ к справочникам каталога по ID.
// Сервис ценообразования не знает, откуда данные (кэш, БД, фикстуры в тестах)
type CatalogRepository interface {
	Product(id uint) (*models.PizzaProduct, bool)
	Size(id uint) (*models.PizzaSize, bool)
	Base(id uint) (*models.PizzaBase, bool)
	Sauce(id uint) (*models.PizzaSauce, bool)
	Topping(id uint) (*models.PizzaTopping, bool)
	Side(id uint) (*models.PizzaSide, bool)
	Combo(id uint) (*models.PizzaCombo, bool)
}

// SizeTier - ценовой уровень топпингов, выводится из названия размера
type SizeTier string

const (
	TierDefault SizeTier = ""
	TierMedium  SizeTier = "medium"
	TierLarge   SizeTier = "large"
	TierFamily  SizeTier = "family"
)

// TierOf определяет уровень по подстроке в названии размера.
// Порядок проверок фиксирован: первое совпадение выигрывает.
// "stor" и "familie" - датские названия в каталоге
func TierOf(sizeName string) SizeTier {
	name := strings.ToLower(sizeName)
	switch {
	case strings.Contains(name, "medium"):
		return TierMedium
	case strings.Contains(name, "large") || strings.Contains(name, "stor"):
		return TierLarge
	case strings.Contains(name, "family") || strings.Contains(name, "familie"):
		return TierFamily
	}
	return TierDefault
}

// ToppingPriceForTier - цена топпинга для уровня с откатом на базовую цену.
// Нулевая или пустая цена уровня означает "не задано", а не "бесплатно"
func ToppingPriceForTier(t *models.PizzaTopping, tier SizeTier) float64 {
	var price float64
	switch tier {
	case TierMedium:
		price = t.PriceMedium
	case TierLarge:
		price = t.PriceLarge
	case TierFamily:
		price = t.PriceFamily
	}
	if price <= 0 {
		price = t.Price
	}
	if price < 0 {
		return 0
	}
	return price
}

// Selection - нормализованный выбор клиента из конструктора.
// Гибкие ID уже приведены к uint на границе API, неизвестные здесь молча отбрасываются
type Selection struct {
	ProductID          uint
	SizeID             uint
	BaseID             uint
	SauceID            uint
	IncludedToppingIDs []uint
	RemovedToppingIDs  []uint
	AddedToppingIDs    []uint
	ExtraPortionIDs    []uint
	SideIDs            []uint
	ComboIDs           []uint
	Instructions       string
}

// PriceLine - строка детализации для фронта
type PriceLine struct {
	Label  string  `json:"label"`
	Amount float64 `json:"amount"`
	Free   bool    `json:"free,omitempty"`
}

// PriceBreakdown - результат расчета одной конфигурации.
// UnitTotal умножается на количество пицц, FlatTotal (гарниры и комбо) - нет
type PriceBreakdown struct {
	Lines     []PriceLine `json:"lines"`
	UnitTotal float64     `json:"unit_total"`
	FlatTotal float64     `json:"flat_total"`
	Total     float64     `json:"total"`
}

// PricingService считает цену пиццы по зафиксированной конфигурации.
// Расчет детерминированный: одна конфигурация - одна цена, сколько ни пересчитывай
type PricingService struct {
	catalog CatalogRepository
}

func NewPricingService(catalog CatalogRepository) *PricingService {
	return &PricingService{catalog: catalog}
}

// BuildConfig собирает каноническую конфигурацию из выбора клиента
// и возвращает продукт из того же снимка каталога: повторный поиск
// продукта после обновления каталога может его уже не найти.
// Несуществующий или неактивный продукт - ошибка, несуществующие
// модификаторы просто выпадают из конфигурации
func (s *PricingService) BuildConfig(sel Selection) (*models.PizzaConfig, *models.PizzaProduct, error) {
	product, ok := s.catalog.Product(sel.ProductID)
	if !ok || !product.IsActive {
		return nil, nil, models.ErrProductNotFound
	}

	cfg := &models.PizzaConfig{
		Instructions: sel.Instructions,
		UniqueKey:    uuid.NewString(),
	}

	tier := TierDefault
	if sel.SizeID != 0 {
		if size, ok := s.catalog.Size(sel.SizeID); ok {
			cfg.Size = &models.ConfigOption{ID: size.ID, Name: size.Name, Price: size.BasePrice}
			tier = TierOf(size.Name)
		}
	}
	if sel.BaseID != 0 {
		if base, ok := s.catalog.Base(sel.BaseID); ok {
			cfg.Base = &models.ConfigOption{ID: base.ID, Name: base.Name, Price: base.ExtraPrice}
		}
	}
	if sel.SauceID != 0 {
		if sauce, ok := s.catalog.Sauce(sel.SauceID); ok {
			cfg.Sauce = &models.ConfigOption{ID: sauce.ID, Name: sauce.Name, Price: sauce.ExtraPrice}
		}
	}

	// Включенные - бесплатно, убранные - только пометка для кухни
	for _, id := range sel.IncludedToppingIDs {
		if topping, ok := s.catalog.Topping(id); ok {
			cfg.IncludedToppings = append(cfg.IncludedToppings, models.ConfigItem{ID: topping.ID, Name: topping.Name, Price: 0})
		}
	}
	for _, id := range sel.RemovedToppingIDs {
		if topping, ok := s.catalog.Topping(id); ok {
			cfg.RemovedToppings = append(cfg.RemovedToppings, models.ConfigItem{ID: topping.ID, Name: topping.Name})
		}
	}

	// Добавленные и двойные порции фиксируют цену уровня на момент сборки
	for _, id := range sel.AddedToppingIDs {
		if topping, ok := s.catalog.Topping(id); ok {
			cfg.AddedToppings = append(cfg.AddedToppings, models.ConfigItem{
				ID: topping.ID, Name: topping.Name, Price: ToppingPriceForTier(topping, tier),
			})
		}
	}
	for _, id := range sel.ExtraPortionIDs {
		if topping, ok := s.catalog.Topping(id); ok {
			cfg.ExtraPortions = append(cfg.ExtraPortions, models.ConfigItem{
				ID: topping.ID, Name: topping.Name, Price: ToppingPriceForTier(topping, tier),
			})
		}
	}

	for _, id := range sel.SideIDs {
		if side, ok := s.catalog.Side(id); ok {
			cfg.Sides = append(cfg.Sides, models.ConfigItem{ID: side.ID, Name: side.Name, Price: side.Price})
		}
	}
	for _, id := range sel.ComboIDs {
		if combo, ok := s.catalog.Combo(id); ok {
			cfg.Combos = append(cfg.Combos, models.ConfigItem{ID: combo.ID, Name: combo.Name, Price: combo.SalePrice})
		}
	}

	cfg.CalculatedPrice = s.Calculate(cfg, product).Total
	return cfg, product, nil
}

// Calculate считает детализацию по готовой конфигурации. Читает только
// конфигурацию и продукт, ничего не мутирует - кухня и чек могут
// пересчитывать сколько угодно раз
func (s *PricingService) Calculate(cfg *models.PizzaConfig, product *models.PizzaProduct) *PriceBreakdown {
	b := &PriceBreakdown{}

	// Размер, либо базовая цена продукта когда размер не выбран
	if cfg.Size != nil {
		b.addUnit(cfg.Size.Name, cfg.Size.Price)
	} else {
		b.addUnit(product.Name, product.Price)
	}

	// Нулевая доплата за основу/соус не попадает в детализацию
	if cfg.Base != nil && cfg.Base.Price > 0 {
		b.addUnit(cfg.Base.Name, cfg.Base.Price)
	}
	if cfg.Sauce != nil && cfg.Sauce.Price > 0 {
		b.addUnit(cfg.Sauce.Name, cfg.Sauce.Price)
	}

	if cfg.IsLegacy() {
		s.calculateLegacy(cfg, product, b)
	} else {
		for _, t := range cfg.IncludedToppings {
			b.Lines = append(b.Lines, PriceLine{Label: t.Name, Free: true})
		}
		for _, t := range cfg.AddedToppings {
			b.addUnit(t.Name, t.Price)
		}
		for _, t := range cfg.ExtraPortions {
			b.addUnit(t.Name+" (extra)", t.Price)
		}
	}

	for _, side := range cfg.Sides {
		b.addFlat(side.Name, side.Price)
	}
	for _, combo := range cfg.Combos {
		b.addFlat(combo.Name, combo.Price)
	}

	b.Total = b.UnitTotal + b.FlatTotal
	return b
}

// calculateLegacy - старая схема: первые FreeToppings из общего списка
// бесплатны в порядке выбора, extra_toppings платны всегда
func (s *PricingService) calculateLegacy(cfg *models.PizzaConfig, product *models.PizzaProduct, b *PriceBreakdown) {
	for i, t := range cfg.Toppings {
		if i < product.FreeToppings || t.Price <= 0 {
			b.Lines = append(b.Lines, PriceLine{Label: t.Name, Free: true})
			continue
		}
		b.addUnit(t.Name, t.Price)
	}
	for _, t := range cfg.ExtraToppings {
		b.addUnit(t.Name+" (extra)", t.Price)
	}
}

// LineTotal - итог позиции: штучная часть умножается на количество,
// гарниры и комбо добавляются один раз
func LineTotal(b *PriceBreakdown, quantity int) float64 {
	if quantity < 1 {
		quantity = 1
	}
	return b.UnitTotal*float64(quantity) + b.FlatTotal
}

// Round2 - округление до сотых для показа. Внутри расчет идет
// в полной точности, округляется только итог на выдаче
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func (b *PriceBreakdown) addUnit(label string, amount float64) {
	b.Lines = append(b.Lines, PriceLine{Label: label, Amount: amount})
	b.UnitTotal += amount
}

func (b *PriceBreakdown) addFlat(label string, amount float64) {
	b.Lines = append(b.Lines, PriceLine{Label: label, Amount: amount})
	b.FlatTotal += amount
}
