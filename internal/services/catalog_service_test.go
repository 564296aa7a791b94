package services

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"pizzeria/server/internal/models"
)

func snapshotService(snap *catalogSnapshot) *CatalogService {
	return &CatalogService{snapshot: snap}
}

func TestDefaultSizePrefersFlag(t *testing.T) {
	cs := snapshotService(&catalogSnapshot{
		sizeList: []models.PizzaSize{
			{ID: 1, Name: "Medium"},
			{ID: 2, Name: "Stor", IsDefault: true},
			{ID: 3, Name: "Familie"},
		},
	})

	size, ok := cs.DefaultSize()
	assert.True(t, ok)
	assert.Equal(t, uint(2), size.ID)
}

func TestDefaultSizeFallsBackToFirst(t *testing.T) {
	cs := snapshotService(&catalogSnapshot{
		sizeList: []models.PizzaSize{
			{ID: 1, Name: "Medium"},
			{ID: 2, Name: "Stor"},
		},
	})

	size, ok := cs.DefaultSize()
	assert.True(t, ok)
	assert.Equal(t, uint(1), size.ID)
}

func TestDefaultSizeEmptyCatalog(t *testing.T) {
	cs := snapshotService(&catalogSnapshot{})

	_, ok := cs.DefaultSize()
	assert.False(t, ok)
}

func TestDefaultToppingsFor(t *testing.T) {
	cs := snapshotService(&catalogSnapshot{
		toppings: map[uint]*models.PizzaTopping{
			1: {ID: 1, Name: "Ost"},
			2: {ID: 2, Name: "Pepperoni"},
		},
	})

	product := &models.PizzaProduct{Name: "Pepperoni", DefaultToppings: `[1, 2, 99]`}
	toppings := cs.DefaultToppingsFor(product)

	// Неизвестный ID 99 молча пропускается
	assert.Len(t, toppings, 2)
	assert.Equal(t, "Ost", toppings[0].Name)
	assert.Equal(t, "Pepperoni", toppings[1].Name)
}

func TestDefaultToppingsForBadJSON(t *testing.T) {
	cs := snapshotService(&catalogSnapshot{})

	assert.Nil(t, cs.DefaultToppingsFor(&models.PizzaProduct{DefaultToppings: "not json"}))
	assert.Nil(t, cs.DefaultToppingsFor(&models.PizzaProduct{DefaultToppings: ""}))
}
