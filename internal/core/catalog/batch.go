// Package catalog 將爬取結果合併進食物目錄
package catalog

import (
	"strings"
	"sync"

	"illineats/internal/pkg/common"
)

// Batch 一次爬取的累積結果，以食物名稱合併並去除重複的供餐紀錄。
// 可由多個工作協程同時寫入。
type Batch struct {
	mu     sync.Mutex
	foods  []common.ObservedFood
	byName map[string]int
	keys   []map[common.ServingKey]bool
}

// NewBatch 建立空的批次
func NewBatch() *Batch {
	return &Batch{byName: make(map[string]int)}
}

// Add 加入一筆觀察結果，名稱相同時只附加新的供餐紀錄
func (b *Batch) Add(food common.ObservedFood) {
	name := strings.TrimSpace(food.Name)
	if name == "" {
		return
	}
	food.Name = name

	b.mu.Lock()
	defer b.mu.Unlock()

	idx, ok := b.byName[name]
	if !ok {
		idx = len(b.foods)
		entries := food.MealEntries
		food.MealEntries = make([]common.MealEntry, 0, len(entries))
		b.foods = append(b.foods, food)
		b.keys = append(b.keys, make(map[common.ServingKey]bool))
		b.byName[name] = idx
		b.appendEntries(idx, entries)
		return
	}
	b.appendEntries(idx, food.MealEntries)
}

func (b *Batch) appendEntries(idx int, entries []common.MealEntry) {
	for _, e := range entries {
		k := e.Key()
		if b.keys[idx][k] {
			continue
		}
		b.keys[idx][k] = true
		b.foods[idx].MealEntries = append(b.foods[idx].MealEntries, e)
	}
}

// Merge 併入另一個批次
func (b *Batch) Merge(other *Batch) {
	for _, f := range other.Foods() {
		b.Add(f)
	}
}

// Foods 依首次出現順序回傳副本
func (b *Batch) Foods() []common.ObservedFood {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]common.ObservedFood, len(b.foods))
	for i, f := range b.foods {
		f.MealEntries = append([]common.MealEntry(nil), f.MealEntries...)
		out[i] = f
	}
	return out
}

// Len 食物數量
func (b *Batch) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.foods)
}

// EntryCount 供餐紀錄總數
func (b *Batch) EntryCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, f := range b.foods {
		n += len(f.MealEntries)
	}
	return n
}
