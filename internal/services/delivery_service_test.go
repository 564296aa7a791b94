package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pizzeria/server/internal/models"
)

// fixtureZones - зоны доставки в памяти для тестов
type fixtureZones struct {
	zones []models.DeliveryZone
}

func (f *fixtureZones) ActiveZones() ([]models.DeliveryZone, error) {
	var active []models.DeliveryZone
	for _, z := range f.zones {
		if z.IsActive {
			active = append(active, z)
		}
	}
	return active, nil
}

func newTestDelivery(zones ...models.DeliveryZone) *DeliveryService {
	return NewDeliveryService(&fixtureZones{zones: zones})
}

func TestMatchZoneExact(t *testing.T) {
	ds := newTestDelivery(models.DeliveryZone{
		ID: 1, Name: "Centrum", Postcodes: "8000, 8200", DeliveryFee: 29, IsActive: true,
	})

	zone, ok, err := ds.MatchZone("8000")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Centrum", zone.Name)

	_, ok, err = ds.MatchZone("9000")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMatchZoneWildcard(t *testing.T) {
	ds := newTestDelivery(models.DeliveryZone{
		ID: 1, Name: "North", Postcodes: "82*", IsActive: true,
	})

	for _, postcode := range []string{"8200", "8210", "82"} {
		_, ok, err := ds.MatchZone(postcode)
		require.NoError(t, err)
		assert.True(t, ok, "postcode %s должен попадать в 82*", postcode)
	}

	// Шаблон покрывает всю строку, не префикс
	_, ok, err := ds.MatchZone("18200")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMatchZoneCaseInsensitive(t *testing.T) {
	ds := newTestDelivery(models.DeliveryZone{
		ID: 1, Name: "UK style", Postcodes: "SW1*", IsActive: true,
	})

	_, ok, err := ds.MatchZone("sw1a 1aa")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMatchZoneFirstWins(t *testing.T) {
	ds := newTestDelivery(
		models.DeliveryZone{ID: 1, Name: "Near", Postcodes: "80*", DeliveryFee: 19, IsActive: true},
		models.DeliveryZone{ID: 2, Name: "Wide", Postcodes: "8*", DeliveryFee: 49, IsActive: true},
	)

	zone, ok, err := ds.MatchZone("8000")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Near", zone.Name)
	assert.Equal(t, 19.0, zone.DeliveryFee)
}

func TestMatchZoneSkipsInactive(t *testing.T) {
	ds := newTestDelivery(
		models.DeliveryZone{ID: 1, Name: "Off", Postcodes: "8000", IsActive: false},
		models.DeliveryZone{ID: 2, Name: "On", Postcodes: "8000", IsActive: true},
	)

	zone, ok, err := ds.MatchZone("8000")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "On", zone.Name)
}

func TestMatchZoneEmptyInputs(t *testing.T) {
	ds := newTestDelivery()

	// Пустая таблица зон - не ошибка, просто не возим
	_, ok, err := ds.MatchZone("8000")
	require.NoError(t, err)
	assert.False(t, ok)

	// Пустой индекс
	_, ok, err = ds.MatchZone("   ")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMatchZoneTrimsSpaces(t *testing.T) {
	ds := newTestDelivery(models.DeliveryZone{
		ID: 1, Name: "Centrum", Postcodes: " 8000 ,  8200 ", IsActive: true,
	})

	_, ok, err := ds.MatchZone("  8200 ")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCheckDeliveryMinimum(t *testing.T) {
	ds := newTestDelivery(models.DeliveryZone{
		ID: 1, Name: "Centrum", Postcodes: "8000", DeliveryFee: 29, MinOrder: 150, DeliveryTime: 45, IsActive: true,
	})

	quote, ok, err := ds.CheckDelivery("8000", 100)
	require.NoError(t, err)
	require.True(t, ok)
	assert.False(t, quote.MeetsMinimum)
	assert.Equal(t, 29.0, quote.DeliveryFee)
	assert.Equal(t, 150.0, quote.MinOrder)
	assert.Equal(t, 45, quote.DeliveryTime)

	quote, ok, err = ds.CheckDelivery("8000", 150)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, quote.MeetsMinimum)
}
