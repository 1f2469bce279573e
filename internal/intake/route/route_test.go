package route

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"intake/internal/intake/models"
)

func TestSelect(t *testing.T) {
	t.Run("single service routes to its database", func(t *testing.T) {
		sel := Select(map[models.Service]int{models.ServiceRobotics: 2})
		assert.Equal(t, models.Selector("robotics-consultancy"), sel)
	})

	t.Run("no services falls back to main", func(t *testing.T) {
		assert.Equal(t, SelectorMain, Select(nil))
		assert.Equal(t, SelectorMain, Select(map[models.Service]int{}))
	})

	t.Run("zero counts do not activate a service", func(t *testing.T) {
		sel := Select(map[models.Service]int{models.ServiceRobotics: 0})
		assert.Equal(t, SelectorMain, sel)
	})

	t.Run("several services fall back to main rather than guessing", func(t *testing.T) {
		sel := Select(map[models.Service]int{
			models.ServiceRobotics:      1,
			models.ServiceAIConsultancy: 1,
		})
		assert.Equal(t, SelectorMain, sel)
	})

	t.Run("digital maturity is a main-database service", func(t *testing.T) {
		sel := Select(map[models.Service]int{models.ServiceDigitalMaturity: 1})
		assert.Equal(t, SelectorMain, sel)
	})
}

func TestSelectors(t *testing.T) {
	sels := Selectors()
	assert.Equal(t, SelectorMain, sels[0])
	assert.Contains(t, sels, models.Selector("robotics-consultancy"))
	assert.Contains(t, sels, models.Selector("pre-accelerator"))
	// main appears once even though a service maps onto it
	count := 0
	for _, s := range sels {
		if s == SelectorMain {
			count++
		}
	}
	assert.Equal(t, 1, count)
}
