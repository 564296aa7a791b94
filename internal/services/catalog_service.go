package services

import (
	"encoding/json"
	"log"
	"sort"
	"sync"
	"time"

	"gorm.io/gorm"

	"pizzeria/server/internal/models"
	"pizzeria/server/internal/utils"
)

const CatalogUpdateChannel = "catalog:update" // Канал Pub/Sub для обновлений каталога

// catalogSnapshot - неизменяемый снимок каталога. Заменяется целиком,
// читатели никогда не видят наполовину загруженный каталог
type catalogSnapshot struct {
	products map[uint]*models.PizzaProduct
	sizes    map[uint]*models.PizzaSize
	bases    map[uint]*models.PizzaBase
	sauces   map[uint]*models.PizzaSauce
	toppings map[uint]*models.PizzaTopping
	sides    map[uint]*models.PizzaSide
	combos   map[uint]*models.PizzaCombo

	// Упорядоченные списки для выдачи конструктору
	productList []models.PizzaProduct
	sizeList    []models.PizzaSize
	baseList    []models.PizzaBase
	sauceList   []models.PizzaSauce
	toppingList []models.PizzaTopping
	sideList    []models.PizzaSide
	comboList   []models.PizzaCombo
}

// CatalogService управляет загрузкой и кэшированием каталога из БД.
// Реализует CatalogRepository для сервиса ценообразования
type CatalogService struct {
	db             *gorm.DB
	redisUtil      *utils.RedisClient // Redis для Pub/Sub
	mu             sync.RWMutex
	snapshot       *catalogSnapshot
	lastUpdate     time.Time
	updateInterval time.Duration
	stopPubSub     chan struct{}
}

// NewCatalogService создает новый сервис каталога
func NewCatalogService(db *gorm.DB, redisUtil *utils.RedisClient) *CatalogService {
	return &CatalogService{
		db:             db,
		redisUtil:      redisUtil,
		snapshot:       &catalogSnapshot{},
		updateInterval: 5 * time.Minute, // Fallback: обновляем каждые 5 минут
		stopPubSub:     make(chan struct{}),
	}
}

// LoadCatalog загружает каталог из БД и обновляет in-memory кэш.
// Потокобезопасно: сначала строится новый снимок, потом атомарно заменяется
func (cs *CatalogService) LoadCatalog() error {
	snap := &catalogSnapshot{
		products: make(map[uint]*models.PizzaProduct),
		sizes:    make(map[uint]*models.PizzaSize),
		bases:    make(map[uint]*models.PizzaBase),
		sauces:   make(map[uint]*models.PizzaSauce),
		toppings: make(map[uint]*models.PizzaTopping),
		sides:    make(map[uint]*models.PizzaSide),
		combos:   make(map[uint]*models.PizzaCombo),
	}

	// 1. Загружаем таблицы БЕЗ блокировки - это может быть долго
	if err := cs.db.Where("is_active = ?", true).Find(&snap.productList).Error; err != nil {
		return err
	}
	if err := cs.db.Where("is_active = ?", true).Find(&snap.sizeList).Error; err != nil {
		return err
	}
	if err := cs.db.Where("is_active = ?", true).Find(&snap.baseList).Error; err != nil {
		return err
	}
	if err := cs.db.Where("is_active = ?", true).Find(&snap.sauceList).Error; err != nil {
		return err
	}
	if err := cs.db.Where("is_active = ?", true).Find(&snap.toppingList).Error; err != nil {
		return err
	}
	if err := cs.db.Where("is_active = ?", true).Find(&snap.sideList).Error; err != nil {
		return err
	}
	if err := cs.db.Where("is_active = ?", true).Find(&snap.comboList).Error; err != nil {
		return err
	}

	sort.SliceStable(snap.sizeList, func(i, j int) bool { return snap.sizeList[i].SortOrder < snap.sizeList[j].SortOrder })
	sort.SliceStable(snap.baseList, func(i, j int) bool { return snap.baseList[i].SortOrder < snap.baseList[j].SortOrder })
	sort.SliceStable(snap.sauceList, func(i, j int) bool { return snap.sauceList[i].SortOrder < snap.sauceList[j].SortOrder })
	sort.SliceStable(snap.toppingList, func(i, j int) bool { return snap.toppingList[i].SortOrder < snap.toppingList[j].SortOrder })

	// 2. Индексируем по ID
	for i := range snap.productList {
		snap.products[snap.productList[i].ID] = &snap.productList[i]
	}
	for i := range snap.sizeList {
		snap.sizes[snap.sizeList[i].ID] = &snap.sizeList[i]
	}
	for i := range snap.baseList {
		snap.bases[snap.baseList[i].ID] = &snap.baseList[i]
	}
	for i := range snap.sauceList {
		snap.sauces[snap.sauceList[i].ID] = &snap.sauceList[i]
	}
	for i := range snap.toppingList {
		snap.toppings[snap.toppingList[i].ID] = &snap.toppingList[i]
	}
	for i := range snap.sideList {
		snap.sides[snap.sideList[i].ID] = &snap.sideList[i]
	}
	for i := range snap.comboList {
		snap.combos[snap.comboList[i].ID] = &snap.comboList[i]
	}

	// 3. Атомарно заменяем снимок (быстрая операция под мьютексом)
	cs.mu.Lock()
	cs.snapshot = snap
	cs.lastUpdate = time.Now()
	cs.mu.Unlock()

	log.Printf("✅ Каталог обновлен из БД: %d пицц, %d размеров, %d топпингов, %d гарниров, %d комбо",
		len(snap.products), len(snap.sizes), len(snap.toppings), len(snap.sides), len(snap.combos))

	return nil
}

func (cs *CatalogService) snap() *catalogSnapshot {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	return cs.snapshot
}

// Product возвращает продукт по ID
func (cs *CatalogService) Product(id uint) (*models.PizzaProduct, bool) {
	p, ok := cs.snap().products[id]
	return p, ok
}

// Size возвращает размер по ID
func (cs *CatalogService) Size(id uint) (*models.PizzaSize, bool) {
	s, ok := cs.snap().sizes[id]
	return s, ok
}

// Base возвращает основу по ID
func (cs *CatalogService) Base(id uint) (*models.PizzaBase, bool) {
	b, ok := cs.snap().bases[id]
	return b, ok
}

// Sauce возвращает соус по ID
func (cs *CatalogService) Sauce(id uint) (*models.PizzaSauce, bool) {
	s, ok := cs.snap().sauces[id]
	return s, ok
}

// Topping возвращает топпинг по ID
func (cs *CatalogService) Topping(id uint) (*models.PizzaTopping, bool) {
	t, ok := cs.snap().toppings[id]
	return t, ok
}

// Side возвращает гарнир по ID
func (cs *CatalogService) Side(id uint) (*models.PizzaSide, bool) {
	s, ok := cs.snap().sides[id]
	return s, ok
}

// Combo возвращает комбо по ID
func (cs *CatalogService) Combo(id uint) (*models.PizzaCombo, bool) {
	c, ok := cs.snap().combos[id]
	return c, ok
}

// Списки для выдачи конструктору, отсортированы по sort_order

func (cs *CatalogService) Products() []models.PizzaProduct { return cs.snap().productList }
func (cs *CatalogService) Sizes() []models.PizzaSize       { return cs.snap().sizeList }
func (cs *CatalogService) Bases() []models.PizzaBase       { return cs.snap().baseList }
func (cs *CatalogService) Sauces() []models.PizzaSauce     { return cs.snap().sauceList }
func (cs *CatalogService) Toppings() []models.PizzaTopping { return cs.snap().toppingList }
func (cs *CatalogService) Sides() []models.PizzaSide       { return cs.snap().sideList }
func (cs *CatalogService) Combos() []models.PizzaCombo     { return cs.snap().comboList }

// DefaultSize - размер с флагом is_default, либо первый по порядку
func (cs *CatalogService) DefaultSize() (*models.PizzaSize, bool) {
	snap := cs.snap()
	for i := range snap.sizeList {
		if snap.sizeList[i].IsDefault {
			return &snap.sizeList[i], true
		}
	}
	if len(snap.sizeList) > 0 {
		return &snap.sizeList[0], true
	}
	return nil, false
}

// DefaultToppingsFor разворачивает JSON-список дефолтных топпингов продукта.
// Битый JSON или неизвестные ID не роняют выдачу конструктора
func (cs *CatalogService) DefaultToppingsFor(product *models.PizzaProduct) []models.PizzaTopping {
	if product.DefaultToppings == "" {
		return nil
	}
	var ids []uint
	if err := json.Unmarshal([]byte(product.DefaultToppings), &ids); err != nil {
		log.Printf("⚠️ Ошибка парсинга дефолтных топпингов для %s: %v", product.Name, err)
		return nil
	}
	snap := cs.snap()
	var out []models.PizzaTopping
	for _, id := range ids {
		if t, ok := snap.toppings[id]; ok {
			out = append(out, *t)
		}
	}
	return out
}

// StartAutoReload запускает автоматическое обновление каталога.
// Redis Pub/Sub для мгновенного обновления + таймер как fallback
func (cs *CatalogService) StartAutoReload() {
	if cs.redisUtil != nil {
		go cs.startPubSubListener()
		log.Println("📡 Redis Pub/Sub для каталога запущен (мгновенное обновление)")
	}

	go func() {
		ticker := time.NewTicker(cs.updateInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				if err := cs.LoadCatalog(); err != nil {
					log.Printf("⚠️ Ошибка автообновления каталога: %v", err)
				}
			case <-cs.stopPubSub:
				return
			}
		}
	}()
	log.Println("🔄 Fallback автообновление каталога запущено (каждые 5 минут)")
}

// startPubSubListener слушает Redis канал для мгновенного обновления каталога
func (cs *CatalogService) startPubSubListener() {
	if cs.redisUtil == nil {
		return
	}

	ch, closeFn := cs.redisUtil.Subscribe(CatalogUpdateChannel)
	defer func() {
		if err := closeFn(); err != nil {
			log.Printf("⚠️ Ошибка закрытия Pub/Sub: %v", err)
		}
	}()

	log.Printf("👂 Слушаем канал Redis: %s", CatalogUpdateChannel)

	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				// Канал закрыт, пытаемся переподписаться
				log.Println("⚠️ Pub/Sub канал закрыт, переподписываемся...")
				ch, closeFn = cs.redisUtil.Subscribe(CatalogUpdateChannel)
				continue
			}
			if msg != nil {
				log.Printf("🔔 Получено событие обновления каталога из Redis: %s", msg.Payload)
				if err := cs.LoadCatalog(); err != nil {
					log.Printf("⚠️ Ошибка обновления каталога по Pub/Sub: %v", err)
				} else {
					log.Println("✅ Каталог обновлен мгновенно через Redis Pub/Sub")
				}
			}
		case <-cs.stopPubSub:
			log.Println("🛑 Остановка Pub/Sub listener для каталога")
			return
		}
	}
}

// PublishUpdate публикует событие обновления каталога в Redis (для админки)
func (cs *CatalogService) PublishUpdate() error {
	if cs.redisUtil == nil {
		return nil // Если Redis нет, просто обновляем локально
	}
	return cs.redisUtil.Publish(CatalogUpdateChannel, "now")
}

// ForceReload принудительно обновляет каталог (для админ-эндпоинта)
func (cs *CatalogService) ForceReload() error {
	return cs.LoadCatalog()
}

// GetLastUpdate возвращает время последнего обновления
func (cs *CatalogService) GetLastUpdate() time.Time {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	return cs.lastUpdate
}
