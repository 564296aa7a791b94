package models

// ConfigOption - выбранный размер/основа/соус в конфигурации пиццы
type ConfigOption struct {
	ID    uint    `json:"id"`
	Name  string  `json:"name"`
	Price float64 `json:"price"`
}

// ConfigItem - топпинг/гарнир/комбо в конфигурации пиццы
type ConfigItem struct {
	ID    uint    `json:"id"`
	Name  string  `json:"name"`
	Price float64 `json:"price"`
}

// PizzaConfig - каноническая запись выбора клиента для одной позиции заказа.
// Собирается один раз при добавлении в корзину, сохраняется в заказе как есть
// и после оформления не мутируется (кухня и чек только читают).
//
// Новая схема: included/removed/added/extra_portions.
// Legacy схема: toppings/extra_toppings (плоский список, первые N бесплатно).
// Конфигурация всегда использует ровно одну из двух схем - тарифицировать
// обе сразу нельзя (двойной счет)
type PizzaConfig struct {
	Size  *ConfigOption `json:"size,omitempty"`
	Base  *ConfigOption `json:"base,omitempty"`
	Sauce *ConfigOption `json:"sauce,omitempty"`

	// Новая схема
	IncludedToppings []ConfigItem `json:"included_toppings,omitempty"` // дефолтные, оставлены - бесплатно
	RemovedToppings  []ConfigItem `json:"removed_toppings,omitempty"`  // дефолтные, убраны - без возврата, только для кухни
	AddedToppings    []ConfigItem `json:"added_toppings,omitempty"`    // добавлены клиентом - платно всегда
	ExtraPortions    []ConfigItem `json:"extra_portions,omitempty"`    // двойная порция - платно всегда

	// Legacy схема (только чтение старых заказов, новый код её не производит)
	Toppings      []ConfigItem `json:"toppings,omitempty"`
	ExtraToppings []ConfigItem `json:"extra_toppings,omitempty"`

	// Плоские добавки к позиции, не умножаются на количество пицц
	Sides  []ConfigItem `json:"sides,omitempty"`
	Combos []ConfigItem `json:"combos,omitempty"`

	Instructions string `json:"instructions,omitempty"`

	// UniqueKey - токен сборки для идемпотентной вставки в корзину
	UniqueKey string `json:"unique_key"`

	// CalculatedPrice - итог расчета (количество = 1), хранится рядом,
	// чтобы повторный показ не требовал пересчета
	CalculatedPrice float64 `json:"calculated_price"`
}

// IsLegacy сообщает, что конфигурация в старой схеме тарификации.
// Новые поля имеют приоритет: если заполнены и те и другие, считаем по новым
func (c *PizzaConfig) IsLegacy() bool {
	if len(c.IncludedToppings) > 0 || len(c.RemovedToppings) > 0 ||
		len(c.AddedToppings) > 0 || len(c.ExtraPortions) > 0 {
		return false
	}
	return len(c.Toppings) > 0 || len(c.ExtraToppings) > 0
}
