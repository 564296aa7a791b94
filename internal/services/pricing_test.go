package services

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pizzeria/server/internal/models"
)

// fixtureCatalog - каталог в памяти для тестов ценообразования
type fixtureCatalog struct {
	products map[uint]*models.PizzaProduct
	sizes    map[uint]*models.PizzaSize
	bases    map[uint]*models.PizzaBase
	sauces   map[uint]*models.PizzaSauce
	toppings map[uint]*models.PizzaTopping
	sides    map[uint]*models.PizzaSide
	combos   map[uint]*models.PizzaCombo
}

func (f *fixtureCatalog) Product(id uint) (*models.PizzaProduct, bool) { p, ok := f.products[id]; return p, ok }
func (f *fixtureCatalog) Size(id uint) (*models.PizzaSize, bool)       { s, ok := f.sizes[id]; return s, ok }
func (f *fixtureCatalog) Base(id uint) (*models.PizzaBase, bool)       { b, ok := f.bases[id]; return b, ok }
func (f *fixtureCatalog) Sauce(id uint) (*models.PizzaSauce, bool)     { s, ok := f.sauces[id]; return s, ok }
func (f *fixtureCatalog) Topping(id uint) (*models.PizzaTopping, bool) { t, ok := f.toppings[id]; return t, ok }
func (f *fixtureCatalog) Side(id uint) (*models.PizzaSide, bool)       { s, ok := f.sides[id]; return s, ok }
func (f *fixtureCatalog) Combo(id uint) (*models.PizzaCombo, bool)     { c, ok := f.combos[id]; return c, ok }

func newFixtureCatalog() *fixtureCatalog {
	return &fixtureCatalog{
		products: map[uint]*models.PizzaProduct{
			1: {ID: 1, Name: "Margherita", Price: 79, FreeToppings: 2, IsActive: true},
			2: {ID: 2, Name: "Inactive", Price: 50, IsActive: false},
		},
		sizes: map[uint]*models.PizzaSize{
			10: {ID: 10, Name: "Medium 30cm", BasePrice: 85, IsActive: true},
			11: {ID: 11, Name: "Stor 40cm", BasePrice: 95, IsActive: true},
			12: {ID: 12, Name: "Familie 50cm", BasePrice: 120, IsActive: true},
			13: {ID: 13, Name: "Lille 25cm", BasePrice: 70, IsActive: true},
		},
		bases: map[uint]*models.PizzaBase{
			20: {ID: 20, Name: "Classic crust", ExtraPrice: 0, IsActive: true},
			21: {ID: 21, Name: "Stuffed crust", ExtraPrice: 15, IsActive: true},
		},
		sauces: map[uint]*models.PizzaSauce{
			30: {ID: 30, Name: "Tomato", ExtraPrice: 0, IsActive: true},
			31: {ID: 31, Name: "BBQ", ExtraPrice: 5, IsActive: true},
		},
		toppings: map[uint]*models.PizzaTopping{
			40: {ID: 40, Name: "Pepperoni", Price: 10, PriceMedium: 12, PriceLarge: 14, PriceFamily: 18, IsActive: true},
			41: {ID: 41, Name: "Mushrooms", Price: 8, IsActive: true}, // цены уровней не заданы
			42: {ID: 42, Name: "Cheese", Price: 12, PriceLarge: 12, IsActive: true},
			43: {ID: 43, Name: "Basil", Price: 0, IsActive: true}, // бесплатный топпинг
		},
		sides: map[uint]*models.PizzaSide{
			50: {ID: 50, Name: "Garlic bread", Price: 15, IsActive: true},
		},
		combos: map[uint]*models.PizzaCombo{
			60: {ID: 60, Name: "Family deal", SalePrice: 199, IsActive: true},
		},
	}
}

func newTestPricing() (*PricingService, *fixtureCatalog) {
	catalog := newFixtureCatalog()
	return NewPricingService(catalog), catalog
}

func TestTierOf(t *testing.T) {
	assert.Equal(t, TierMedium, TierOf("Medium 30cm"))
	assert.Equal(t, TierLarge, TierOf("Large 40cm"))
	assert.Equal(t, TierLarge, TierOf("Stor 40cm"))
	assert.Equal(t, TierFamily, TierOf("Family 50cm"))
	assert.Equal(t, TierFamily, TierOf("Familie 50cm"))
	assert.Equal(t, TierDefault, TierOf("Lille 25cm"))
	// Первое совпадение выигрывает
	assert.Equal(t, TierMedium, TierOf("medium family special"))
}

func TestToppingPriceForTier(t *testing.T) {
	full := &models.PizzaTopping{Price: 10, PriceMedium: 12, PriceLarge: 14, PriceFamily: 18}
	assert.Equal(t, 12.0, ToppingPriceForTier(full, TierMedium))
	assert.Equal(t, 14.0, ToppingPriceForTier(full, TierLarge))
	assert.Equal(t, 18.0, ToppingPriceForTier(full, TierFamily))
	assert.Equal(t, 10.0, ToppingPriceForTier(full, TierDefault))

	// Незаданная цена уровня откатывается на базовую
	bare := &models.PizzaTopping{Price: 8}
	assert.Equal(t, 8.0, ToppingPriceForTier(bare, TierFamily))

	// Нет ни уровня, ни базовой - ноль
	free := &models.PizzaTopping{}
	assert.Equal(t, 0.0, ToppingPriceForTier(free, TierLarge))
}

func TestBuildConfigProductNotFound(t *testing.T) {
	svc, _ := newTestPricing()

	_, _, err := svc.BuildConfig(Selection{ProductID: 999})
	assert.ErrorIs(t, err, models.ErrProductNotFound)

	// Неактивный продукт тоже не продается
	_, _, err = svc.BuildConfig(Selection{ProductID: 2})
	assert.ErrorIs(t, err, models.ErrProductNotFound)
}

func TestBuildConfigDropsUnknownModifiers(t *testing.T) {
	svc, _ := newTestPricing()

	cfg, _, err := svc.BuildConfig(Selection{
		ProductID:       1,
		SizeID:          999, // несуществующий размер - как будто не выбран
		AddedToppingIDs: []uint{40, 777},
		SideIDs:         []uint{888},
	})
	require.NoError(t, err)

	assert.Nil(t, cfg.Size)
	require.Len(t, cfg.AddedToppings, 1)
	assert.Equal(t, uint(40), cfg.AddedToppings[0].ID)
	assert.Empty(t, cfg.Sides)
}

func TestCalculateAdditive(t *testing.T) {
	svc, catalog := newTestPricing()

	// Stor (95) + Stuffed crust (15) + BBQ (5) + Pepperoni large (14)
	cfg, _, err := svc.BuildConfig(Selection{
		ProductID:       1,
		SizeID:          11,
		BaseID:          21,
		SauceID:         31,
		AddedToppingIDs: []uint{40},
	})
	require.NoError(t, err)

	b := svc.Calculate(cfg, catalog.products[1])
	assert.InDelta(t, 129.0, b.Total, 1e-9)
	assert.InDelta(t, 129.0, b.UnitTotal, 1e-9)
	assert.Equal(t, 0.0, b.FlatTotal)
	assert.Equal(t, b.Total, cfg.CalculatedPrice)
}

func TestCalculateFallsBackToProductPrice(t *testing.T) {
	svc, catalog := newTestPricing()

	cfg, _, err := svc.BuildConfig(Selection{ProductID: 1})
	require.NoError(t, err)

	b := svc.Calculate(cfg, catalog.products[1])
	assert.Equal(t, 79.0, b.Total)
}

func TestCalculateZeroExtrasNotCharged(t *testing.T) {
	svc, catalog := newTestPricing()

	// Classic crust и Tomato бесплатны и не попадают в детализацию
	cfg, _, err := svc.BuildConfig(Selection{ProductID: 1, SizeID: 11, BaseID: 20, SauceID: 30})
	require.NoError(t, err)

	b := svc.Calculate(cfg, catalog.products[1])
	assert.Equal(t, 95.0, b.Total)
	require.Len(t, b.Lines, 1)
	assert.Equal(t, "Stor 40cm", b.Lines[0].Label)
}

func TestCalculateIncludedAndRemovedAreFree(t *testing.T) {
	svc, catalog := newTestPricing()

	cfg, _, err := svc.BuildConfig(Selection{
		ProductID:          1,
		SizeID:             11,
		IncludedToppingIDs: []uint{40, 42},
		RemovedToppingIDs:  []uint{41}, // убрали - возврата нет
	})
	require.NoError(t, err)

	b := svc.Calculate(cfg, catalog.products[1])
	assert.Equal(t, 95.0, b.Total)

	// Убранный топпинг остается в конфигурации для кухни
	require.Len(t, cfg.RemovedToppings, 1)
	assert.Equal(t, "Mushrooms", cfg.RemovedToppings[0].Name)
}

func TestCalculateExtraPortionsAlwaysCharged(t *testing.T) {
	svc, catalog := newTestPricing()

	cfg, _, err := svc.BuildConfig(Selection{
		ProductID:          1,
		SizeID:             11,
		IncludedToppingIDs: []uint{40},
		ExtraPortionIDs:    []uint{40}, // двойная порция платная даже для включенного
	})
	require.NoError(t, err)

	b := svc.Calculate(cfg, catalog.products[1])
	assert.InDelta(t, 95.0+14.0, b.Total, 1e-9)
}

func TestLineTotalQuantityScaling(t *testing.T) {
	svc, catalog := newTestPricing()

	// (95 + 5 + 12) за пиццу, гарнир 15 один раз на позицию
	cfg, _, err := svc.BuildConfig(Selection{
		ProductID:       1,
		SizeID:          11,
		SauceID:         31,
		AddedToppingIDs: []uint{40},
		SideIDs:         []uint{50},
	})
	require.NoError(t, err)

	// Pepperoni по уровню large из Stor
	b := svc.Calculate(cfg, catalog.products[1])
	assert.InDelta(t, 114.0, b.UnitTotal, 1e-9)
	assert.Equal(t, 15.0, b.FlatTotal)

	assert.InDelta(t, 114.0*2+15.0, LineTotal(b, 2), 1e-9)
	assert.InDelta(t, 114.0+15.0, LineTotal(b, 1), 1e-9)
	// Количество меньше единицы трактуется как одна пицца
	assert.InDelta(t, 114.0+15.0, LineTotal(b, 0), 1e-9)
}

func TestCalculateCombosFlat(t *testing.T) {
	svc, catalog := newTestPricing()

	cfg, _, err := svc.BuildConfig(Selection{ProductID: 1, SizeID: 11, ComboIDs: []uint{60}})
	require.NoError(t, err)

	b := svc.Calculate(cfg, catalog.products[1])
	assert.Equal(t, 199.0, b.FlatTotal)
	assert.InDelta(t, 95.0+199.0, b.Total, 1e-9)
}

func TestCalculateLegacyFreeAllowance(t *testing.T) {
	svc, catalog := newTestPricing()

	// Первые FreeToppings (2) из списка бесплатны в порядке выбора
	cfg := &models.PizzaConfig{
		Size: &models.ConfigOption{ID: 11, Name: "Stor 40cm", Price: 95},
		Toppings: []models.ConfigItem{
			{ID: 40, Name: "Pepperoni", Price: 14},
			{ID: 41, Name: "Mushrooms", Price: 8},
			{ID: 42, Name: "Cheese", Price: 12},
		},
		ExtraToppings: []models.ConfigItem{
			{ID: 40, Name: "Pepperoni", Price: 14},
		},
	}
	require.True(t, cfg.IsLegacy())

	b := svc.Calculate(cfg, catalog.products[1])
	// 95 + Cheese 12 (третий в списке) + extra Pepperoni 14
	assert.InDelta(t, 121.0, b.Total, 1e-9)
}

func TestCalculateLegacyOrderMatters(t *testing.T) {
	svc, catalog := newTestPricing()

	cheapFirst := &models.PizzaConfig{
		Size: &models.ConfigOption{ID: 11, Name: "Stor 40cm", Price: 95},
		Toppings: []models.ConfigItem{
			{ID: 43, Name: "Basil", Price: 0},
			{ID: 41, Name: "Mushrooms", Price: 8},
			{ID: 40, Name: "Pepperoni", Price: 14},
		},
	}
	expensiveFirst := &models.PizzaConfig{
		Size: &models.ConfigOption{ID: 11, Name: "Stor 40cm", Price: 95},
		Toppings: []models.ConfigItem{
			{ID: 40, Name: "Pepperoni", Price: 14},
			{ID: 41, Name: "Mushrooms", Price: 8},
			{ID: 43, Name: "Basil", Price: 0},
		},
	}

	// Бесплатная квота отдается по позиции в списке, не по цене
	assert.InDelta(t, 109.0, svc.Calculate(cheapFirst, catalog.products[1]).Total, 1e-9)
	assert.InDelta(t, 95.0, svc.Calculate(expensiveFirst, catalog.products[1]).Total, 1e-9)
}

func TestCalculateIdempotent(t *testing.T) {
	svc, catalog := newTestPricing()

	cfg, _, err := svc.BuildConfig(Selection{
		ProductID:       1,
		SizeID:          12,
		AddedToppingIDs: []uint{40, 41},
		SideIDs:         []uint{50},
	})
	require.NoError(t, err)

	first := svc.Calculate(cfg, catalog.products[1])
	second := svc.Calculate(cfg, catalog.products[1])
	third := svc.Calculate(cfg, catalog.products[1])

	assert.Equal(t, first.Total, second.Total)
	assert.Equal(t, second.Total, third.Total)
	assert.Equal(t, first.Lines, third.Lines)
	assert.Equal(t, cfg.CalculatedPrice, first.Total)
}

func TestCalculatedPriceSurvivesCatalogChange(t *testing.T) {
	svc, catalog := newTestPricing()

	cfg, _, err := svc.BuildConfig(Selection{ProductID: 1, SizeID: 11, AddedToppingIDs: []uint{40}})
	require.NoError(t, err)
	priceAtBuild := cfg.CalculatedPrice

	// Админ поднял цену топпинга - зафиксированная конфигурация не меняется
	catalog.toppings[40].PriceLarge = 99

	b := svc.Calculate(cfg, catalog.products[1])
	assert.Equal(t, priceAtBuild, b.Total)
}

func TestBuildConfigReturnsProductFromSameSnapshot(t *testing.T) {
	svc, catalog := newTestPricing()

	cfg, product, err := svc.BuildConfig(Selection{ProductID: 1})
	require.NoError(t, err)
	require.NotNil(t, product)
	assert.Equal(t, uint(1), product.ID)

	// Каталог перезагрузился и продукт пропал: расчет идет
	// по продукту из момента сборки, повторный поиск не нужен
	delete(catalog.products, 1)

	b := svc.Calculate(cfg, product)
	assert.Equal(t, 79.0, b.Total)
}

func TestCalculateAdditiveRandomConfigs(t *testing.T) {
	svc, _ := newTestPricing()
	rng := rand.New(rand.NewSource(42))

	toppingPool := []uint{40, 41, 42, 43}
	// Цены топпингов фикстуры: уровень large (размер Stor) и базовые
	largePrices := map[uint]float64{40: 14, 41: 8, 42: 12, 43: 0}
	basePrices := map[uint]float64{40: 10, 41: 8, 42: 12, 43: 0}

	pickToppings := func() []uint {
		n := rng.Intn(11)
		ids := make([]uint, 0, n)
		for i := 0; i < n; i++ {
			ids = append(ids, toppingPool[rng.Intn(len(toppingPool))])
		}
		return ids
	}
	repeat := func(id uint) []uint {
		n := rng.Intn(11)
		ids := make([]uint, 0, n)
		for i := 0; i < n; i++ {
			ids = append(ids, id)
		}
		return ids
	}

	for i := 0; i < 200; i++ {
		sel := Selection{
			ProductID:          1,
			IncludedToppingIDs: pickToppings(),
			RemovedToppingIDs:  pickToppings(),
			AddedToppingIDs:    pickToppings(),
			ExtraPortionIDs:    pickToppings(),
			SideIDs:            repeat(50),
			ComboIDs:           repeat(60),
		}

		expected := 79.0 // базовая цена продукта без размера
		prices := basePrices
		if rng.Intn(2) == 1 {
			sel.SizeID = 11
			expected = 95.0
			prices = largePrices
		}
		if rng.Intn(2) == 1 {
			sel.BaseID = 21
			expected += 15
		}
		if rng.Intn(2) == 1 {
			sel.SauceID = 31
			expected += 5
		}

		// Included и removed бесплатны, added и extra по цене уровня
		for _, id := range sel.AddedToppingIDs {
			expected += prices[id]
		}
		for _, id := range sel.ExtraPortionIDs {
			expected += prices[id]
		}
		expectedFlat := 15.0*float64(len(sel.SideIDs)) + 199.0*float64(len(sel.ComboIDs))

		cfg, product, err := svc.BuildConfig(sel)
		require.NoError(t, err)

		b := svc.Calculate(cfg, product)
		assert.InDelta(t, expected, b.UnitTotal, 1e-9)
		assert.InDelta(t, expectedFlat, b.FlatTotal, 1e-9)
		assert.InDelta(t, expected+expectedFlat, b.Total, 1e-9)

		qty := 1 + rng.Intn(3)
		assert.InDelta(t, expected*float64(qty)+expectedFlat, LineTotal(b, qty), 1e-9)
	}
}

func TestRound2(t *testing.T) {
	assert.Equal(t, 10.56, Round2(10.556))
	assert.Equal(t, 10.55, Round2(10.554))
	assert.Equal(t, 239.0, Round2(239.0))
}
