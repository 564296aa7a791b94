package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusValid(t *testing.T) {
	for _, s := range []OrderStatus{StatusReceived, StatusPreparing, StatusReady, StatusOutForDelivery, StatusDelivered, StatusPickedUp} {
		assert.True(t, s.Valid(), "статус %s должен быть известен", s)
	}
	assert.False(t, OrderStatus("cooking").Valid())
	assert.False(t, OrderStatus("").Valid())
}

func TestStatusTerminal(t *testing.T) {
	assert.True(t, StatusDelivered.Terminal())
	assert.True(t, StatusPickedUp.Terminal())
	assert.False(t, StatusReceived.Terminal())
	assert.False(t, StatusReady.Terminal())
	assert.False(t, OrderStatus("bogus").Terminal())
}

func TestCanTransitionToDeliveryFlow(t *testing.T) {
	assert.True(t, StatusReceived.CanTransitionTo(StatusPreparing, DeliveryTypeDelivery))
	assert.True(t, StatusPreparing.CanTransitionTo(StatusReady, DeliveryTypeDelivery))
	assert.True(t, StatusReady.CanTransitionTo(StatusOutForDelivery, DeliveryTypeDelivery))
	assert.True(t, StatusOutForDelivery.CanTransitionTo(StatusDelivered, DeliveryTypeDelivery))

	// Доставка не завершается самовывозом
	assert.False(t, StatusReady.CanTransitionTo(StatusPickedUp, DeliveryTypeDelivery))
}

func TestCanTransitionToPickupFlow(t *testing.T) {
	assert.True(t, StatusReceived.CanTransitionTo(StatusPreparing, DeliveryTypePickup))
	assert.True(t, StatusPreparing.CanTransitionTo(StatusReady, DeliveryTypePickup))
	assert.True(t, StatusReady.CanTransitionTo(StatusPickedUp, DeliveryTypePickup))

	// Самовывоз не уезжает с курьером
	assert.False(t, StatusReady.CanTransitionTo(StatusOutForDelivery, DeliveryTypePickup))
}

func TestCanTransitionToRejectsSkips(t *testing.T) {
	assert.False(t, StatusReceived.CanTransitionTo(StatusReady, DeliveryTypeDelivery))
	assert.False(t, StatusReceived.CanTransitionTo(StatusDelivered, DeliveryTypeDelivery))
	assert.False(t, StatusPreparing.CanTransitionTo(StatusReceived, DeliveryTypeDelivery))
}

func TestCanTransitionToTerminal(t *testing.T) {
	for _, next := range []OrderStatus{StatusReceived, StatusPreparing, StatusReady, StatusOutForDelivery, StatusPickedUp} {
		assert.False(t, StatusDelivered.CanTransitionTo(next, DeliveryTypeDelivery))
		assert.False(t, StatusPickedUp.CanTransitionTo(next, DeliveryTypePickup))
	}
}

func TestNextStatus(t *testing.T) {
	next, ok := NextStatus(StatusReceived, DeliveryTypeDelivery)
	assert.True(t, ok)
	assert.Equal(t, StatusPreparing, next)

	next, ok = NextStatus(StatusReady, DeliveryTypeDelivery)
	assert.True(t, ok)
	assert.Equal(t, StatusOutForDelivery, next)

	next, ok = NextStatus(StatusReady, DeliveryTypePickup)
	assert.True(t, ok)
	assert.Equal(t, StatusPickedUp, next)

	_, ok = NextStatus(StatusDelivered, DeliveryTypeDelivery)
	assert.False(t, ok)
	_, ok = NextStatus(StatusPickedUp, DeliveryTypePickup)
	assert.False(t, ok)
}

func TestStatusLabel(t *testing.T) {
	assert.Equal(t, "Order Received", StatusReceived.Label())
	assert.Equal(t, "Out for Delivery", StatusOutForDelivery.Label())
	// Неизвестный статус отдается как есть
	assert.Equal(t, "archived", OrderStatus("archived").Label())
}

func TestPizzaConfigIsLegacy(t *testing.T) {
	legacy := &PizzaConfig{
		Toppings: []ConfigItem{{ID: 1, Name: "Pepperoni", Price: 10}},
	}
	assert.True(t, legacy.IsLegacy())

	modern := &PizzaConfig{
		AddedToppings: []ConfigItem{{ID: 1, Name: "Pepperoni", Price: 10}},
	}
	assert.False(t, modern.IsLegacy())

	// Смешанная конфигурация считается по новой схеме
	mixed := &PizzaConfig{
		Toppings:      []ConfigItem{{ID: 1, Name: "Pepperoni", Price: 10}},
		AddedToppings: []ConfigItem{{ID: 2, Name: "Mushrooms", Price: 8}},
	}
	assert.False(t, mixed.IsLegacy())

	empty := &PizzaConfig{}
	assert.False(t, empty.IsLegacy())
}
