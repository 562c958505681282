package catalog

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"illineats/internal/pkg/common"
)

func entry(facility, meal, date string) common.MealEntry {
	return common.MealEntry{DiningFacility: facility, MealType: meal, DateServed: date}
}

func observed(name string, entries ...common.MealEntry) common.ObservedFood {
	return common.ObservedFood{FoodItem: common.FoodItem{Name: name}, MealEntries: entries}
}

func TestBatch_MergesByName(t *testing.T) {
	b := NewBatch()
	b.Add(observed("Pancakes", entry("Rise & Dine", "Breakfast", "Monday, March 04, 2024")))
	b.Add(observed("Eggs", entry("Rise & Dine", "Breakfast", "Monday, March 04, 2024")))
	b.Add(observed(" Pancakes ",
		entry("Rise & Dine", "Breakfast", "Monday, March 04, 2024"),
		entry("Sky Garden", "Breakfast", "Monday, March 04, 2024"),
	))
	b.Add(observed(""))

	foods := b.Foods()
	require.Len(t, foods, 2)
	assert.Equal(t, "Pancakes", foods[0].Name)
	assert.Len(t, foods[0].MealEntries, 2)
	assert.Equal(t, "Eggs", foods[1].Name)
	assert.Equal(t, 3, b.EntryCount())
}

func TestBatch_ConcurrentAdd(t *testing.T) {
	b := NewBatch()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				b.Add(observed(fmt.Sprintf("food-%d", j), entry("Latitude", "Lunch", fmt.Sprintf("day-%d", i%2))))
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 10, b.Len())
	assert.Equal(t, 20, b.EntryCount())
}

func TestBatch_Merge(t *testing.T) {
	a := NewBatch()
	a.Add(observed("Tofu", entry("Soytainly", "Lunch", "d1")))
	other := NewBatch()
	other.Add(observed("Tofu", entry("Soytainly", "Lunch", "d1"), entry("Soytainly", "Dinner", "d1")))
	other.Add(observed("Rice", entry("Fusion 48", "Dinner", "d1")))

	a.Merge(other)
	assert.Equal(t, 2, a.Len())
	assert.Equal(t, 3, a.EntryCount())
}
