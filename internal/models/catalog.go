package models

import (
	"log"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// PizzaProduct - таблица пицц (продуктов) в БД
// FreeToppings и DefaultToppings - политика продукта для конструктора
type PizzaProduct struct {
	ID                 uint    `gorm:"primaryKey" json:"id"`
	Name               string  `gorm:"uniqueIndex:idx_products_name;not null" json:"name"`
	Price              float64 `gorm:"not null" json:"price"` // базовая цена, если размер не выбран
	Description        string  `gorm:"type:text" json:"description"`
	IsPreset           bool    `gorm:"default:false" json:"is_preset"`           // готовая пицца с дефолтными топпингами
	AllowCustomization bool    `gorm:"default:true" json:"allow_customization"`  // можно ли менять состав
	FreeToppings       int     `gorm:"default:0" json:"free_toppings"`            // сколько топпингов включено бесплатно (legacy-тарификация)
	MaxToppings        int     `gorm:"default:0" json:"max_toppings"`             // 0 = без лимита
	DefaultToppings    string  `gorm:"type:text" json:"default_toppings"`         // JSON массив ID топпингов
	IsPopular          bool    `gorm:"default:false" json:"is_popular"`
	IsNew              bool    `gorm:"default:false" json:"is_new"`
	IsActive           bool    `gorm:"default:true" json:"is_active"`
	CreatedAt          int64   `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt          int64   `gorm:"autoUpdateTime" json:"updated_at"`
}

// PizzaSize - таблица размеров пиццы
type PizzaSize struct {
	ID        uint    `gorm:"primaryKey" json:"id"`
	Name      string  `gorm:"uniqueIndex:idx_sizes_name;not null" json:"name"`
	BasePrice float64 `gorm:"not null" json:"base_price"`
	Diameter  string  `json:"diameter"`
	Slices    int     `gorm:"default:0" json:"slices"`
	IsDefault bool    `gorm:"default:false" json:"is_default"`
	SortOrder int     `gorm:"default:0" json:"sort_order"`
	IsActive  bool    `gorm:"default:true" json:"is_active"`
	CreatedAt int64   `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt int64   `gorm:"autoUpdateTime" json:"updated_at"`
}

// PizzaBase - таблица основ (теста)
type PizzaBase struct {
	ID         uint    `gorm:"primaryKey" json:"id"`
	Name       string  `gorm:"uniqueIndex:idx_bases_name;not null" json:"name"`
	ExtraPrice float64 `gorm:"default:0" json:"extra_price"`
	IsDefault  bool    `gorm:"default:false" json:"is_default"`
	SortOrder  int     `gorm:"default:0" json:"sort_order"`
	IsActive   bool    `gorm:"default:true" json:"is_active"`
	CreatedAt  int64   `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  int64   `gorm:"autoUpdateTime" json:"updated_at"`
}

// PizzaSauce - таблица соусов
type PizzaSauce struct {
	ID         uint    `gorm:"primaryKey" json:"id"`
	Name       string  `gorm:"uniqueIndex:idx_sauces_name;not null" json:"name"`
	ExtraPrice float64 `gorm:"default:0" json:"extra_price"`
	IsDefault  bool    `gorm:"default:false" json:"is_default"`
	SortOrder  int     `gorm:"default:0" json:"sort_order"`
	IsActive   bool    `gorm:"default:true" json:"is_active"`
	CreatedAt  int64   `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  int64   `gorm:"autoUpdateTime" json:"updated_at"`
}

// PizzaTopping - таблица топпингов
// Цена зависит от размера пиццы: Price - базовая (small), остальные по tier'ам.
// Нулевая цена tier'а означает "не задана" - берем базовую
type PizzaTopping struct {
	ID          uint    `gorm:"primaryKey" json:"id"`
	Name        string  `gorm:"uniqueIndex:idx_toppings_name;not null" json:"name"`
	Price       float64 `gorm:"default:0" json:"price"`
	PriceMedium float64 `gorm:"default:0" json:"price_medium"`
	PriceLarge  float64 `gorm:"default:0" json:"price_large"`
	PriceFamily float64 `gorm:"default:0" json:"price_family"`
	IsPremium   bool    `gorm:"default:false" json:"is_premium"`
	Category    string  `json:"category"` // только для группировки в конструкторе
	SortOrder   int     `gorm:"default:0" json:"sort_order"`
	IsActive    bool    `gorm:"default:true" json:"is_active"`
	CreatedAt   int64   `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   int64   `gorm:"autoUpdateTime" json:"updated_at"`
}

// PizzaSide - таблица гарниров/напитков (добавляются к заказу фиксированной ценой)
type PizzaSide struct {
	ID        uint    `gorm:"primaryKey" json:"id"`
	Name      string  `gorm:"uniqueIndex:idx_sides_name;not null" json:"name"`
	Price     float64 `gorm:"default:0" json:"price"`
	Category  string  `json:"category"`
	SortOrder int     `gorm:"default:0" json:"sort_order"`
	IsActive  bool    `gorm:"default:true" json:"is_active"`
	CreatedAt int64   `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt int64   `gorm:"autoUpdateTime" json:"updated_at"`
}

// PizzaCombo - таблица комбо-предложений (набор по фиксированной цене со скидкой)
type PizzaCombo struct {
	ID          uint    `gorm:"primaryKey" json:"id"`
	Name        string  `gorm:"uniqueIndex:idx_combos_name;not null" json:"name"`
	Description string  `gorm:"type:text" json:"description"`
	SalePrice   float64 `gorm:"default:0" json:"sale_price"`
	SortOrder   int     `gorm:"default:0" json:"sort_order"`
	IsActive    bool    `gorm:"default:true" json:"is_active"`
	CreatedAt   int64   `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   int64   `gorm:"autoUpdateTime" json:"updated_at"`
}

// DeliveryZone - зона доставки с шаблонами индексов
// Postcodes - шаблоны через запятую, поддерживается wildcard: "80*" матчит "8000"
type DeliveryZone struct {
	ID           uint    `gorm:"primaryKey" json:"id"`
	Name         string  `gorm:"not null" json:"name"`
	Postcodes    string  `gorm:"type:text;not null" json:"postcodes"`
	DeliveryFee  float64 `gorm:"default:0" json:"delivery_fee"`
	MinOrder     float64 `gorm:"default:0" json:"min_order"`
	DeliveryTime int     `gorm:"default:30" json:"delivery_time"` // минуты
	IsActive     bool    `gorm:"default:true" json:"is_active"`
	CreatedAt    int64   `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    int64   `gorm:"autoUpdateTime" json:"updated_at"`
}

// KitchenStaff - сотрудник кухни, авторизация по PIN-коду для смены статусов заказов
type KitchenStaff struct {
	ID        uint   `gorm:"primaryKey" json:"id"`
	Name      string `gorm:"not null" json:"name"`
	PINHash   string `gorm:"not null" json:"-"`
	IsActive  bool   `gorm:"default:true" json:"is_active"`
	CreatedAt int64  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt int64  `gorm:"autoUpdateTime" json:"updated_at"`
}

// PatternList разбирает список шаблонов индексов из строки через запятую
func (z *DeliveryZone) PatternList() []string {
	parts := strings.Split(z.Postcodes, ",")
	patterns := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			patterns = append(patterns, p)
		}
	}
	return patterns
}

// TableName для правильных имен таблиц
func (PizzaProduct) TableName() string {
	return "pizza_products"
}

func (PizzaSize) TableName() string {
	return "pizza_sizes"
}

func (PizzaBase) TableName() string {
	return "pizza_bases"
}

func (PizzaSauce) TableName() string {
	return "pizza_sauces"
}

func (PizzaTopping) TableName() string {
	return "pizza_toppings"
}

func (PizzaSide) TableName() string {
	return "pizza_sides"
}

func (PizzaCombo) TableName() string {
	return "pizza_combos"
}

func (DeliveryZone) TableName() string {
	return "delivery_zones"
}

func (KitchenStaff) TableName() string {
	return "kitchen_staff"
}

// AutoMigrate создает таблицы в БД
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&PizzaProduct{},
		&PizzaSize{},
		&PizzaBase{},
		&PizzaSauce{},
		&PizzaTopping{},
		&PizzaSide{},
		&PizzaCombo{},
		&DeliveryZone{},
		&KitchenStaff{},
		&PizzaOrderRecord{},
	); err != nil {
		return err
	}

	// Дефолтный сотрудник кухни, чтобы кухонные эндпоинты работали сразу после установки
	if err := EnsureDefaultStaff(db); err != nil {
		log.Printf("⚠️ Ошибка инициализации сотрудника кухни: %v", err)
	}

	// Базовый каталог для пустой установки
	if err := EnsureDefaultCatalog(db); err != nil {
		log.Printf("⚠️ Ошибка инициализации каталога: %v", err)
	}

	return nil
}

// EnsureDefaultCatalog заполняет пустую установку базовым каталогом:
// размеры, основы, соусы и стартовый набор топпингов.
// Непустая таблица размеров означает, что оператор уже вел каталог
func EnsureDefaultCatalog(db *gorm.DB) error {
	var count int64
	if err := db.Model(&PizzaSize{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	sizes := []PizzaSize{
		{Name: "Medium", BasePrice: 85, Diameter: "30 cm", Slices: 6, IsDefault: true, SortOrder: 1, IsActive: true},
		{Name: "Stor", BasePrice: 95, Diameter: "35 cm", Slices: 8, SortOrder: 2, IsActive: true},
		{Name: "Familie", BasePrice: 120, Diameter: "40 cm", Slices: 10, SortOrder: 3, IsActive: true},
	}
	bases := []PizzaBase{
		{Name: "Classic", IsDefault: true, SortOrder: 1, IsActive: true},
		{Name: "Deep Pan", ExtraPrice: 10, SortOrder: 2, IsActive: true},
		{Name: "Glutenfri", ExtraPrice: 15, SortOrder: 3, IsActive: true},
	}
	sauces := []PizzaSauce{
		{Name: "Tomat", IsDefault: true, SortOrder: 1, IsActive: true},
		{Name: "BBQ", ExtraPrice: 5, SortOrder: 2, IsActive: true},
		{Name: "Creme Fraiche", ExtraPrice: 5, SortOrder: 3, IsActive: true},
	}
	toppings := []PizzaTopping{
		{Name: "Ost", Price: 8, PriceLarge: 10, PriceFamily: 12, Category: "cheese", SortOrder: 1, IsActive: true},
		{Name: "Pepperoni", Price: 10, PriceLarge: 12, PriceFamily: 15, Category: "meat", SortOrder: 2, IsActive: true},
		{Name: "Skinke", Price: 10, PriceLarge: 12, PriceFamily: 15, Category: "meat", SortOrder: 3, IsActive: true},
		{Name: "Champignon", Price: 8, PriceLarge: 10, PriceFamily: 12, Category: "veg", SortOrder: 4, IsActive: true},
		{Name: "Løg", Price: 5, PriceLarge: 6, PriceFamily: 8, Category: "veg", SortOrder: 5, IsActive: true},
		{Name: "Oregano", Category: "herbs", SortOrder: 6, IsActive: true},
	}

	for i := range sizes {
		if err := db.Create(&sizes[i]).Error; err != nil {
			return err
		}
	}
	for i := range bases {
		if err := db.Create(&bases[i]).Error; err != nil {
			return err
		}
	}
	for i := range sauces {
		if err := db.Create(&sauces[i]).Error; err != nil {
			return err
		}
	}
	for i := range toppings {
		if err := db.Create(&toppings[i]).Error; err != nil {
			return err
		}
	}

	product := PizzaProduct{
		Name:               "Byg selv",
		Price:              85,
		Description:        "Byg din egen pizza",
		AllowCustomization: true,
		IsActive:           true,
	}
	if err := db.Create(&product).Error; err != nil {
		return err
	}

	log.Printf("✅ Создан базовый каталог: %d размеров, %d топпингов", len(sizes), len(toppings))
	return nil
}

// EnsureDefaultStaff создает дефолтного сотрудника кухни с PIN "0000", если таблица пуста
func EnsureDefaultStaff(db *gorm.DB) error {
	var count int64
	if err := db.Model(&KitchenStaff{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	pinHash, err := bcrypt.GenerateFromPassword([]byte("0000"), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	staff := KitchenStaff{
		Name:     "Kitchen",
		PINHash:  string(pinHash),
		IsActive: true,
	}
	if err := db.Create(&staff).Error; err != nil {
		return err
	}

	log.Printf("✅ Создан дефолтный сотрудник кухни: PIN=0000 (сменить после установки!)")
	return nil
}
