package common

import (
	"strings"
	"time"
)

// 飲食偏好標籤
const (
	TagVegan      = "vegan"
	TagVegetarian = "vegetarian"
	TagHalal      = "halal"
	TagKosher     = "kosher"
)

// NotAvailable 網站缺少欄位時填入的佔位字串
const NotAvailable = "N/A"

// Goal 使用者的飲食目標
type Goal string

const (
	GoalNone       Goal = ""
	GoalLoseWeight Goal = "lose_weight"
	GoalBulk       Goal = "bulk"
	GoalEatHealthy Goal = "eat_healthy"
)

// Valid 是否為已知目標（空值視為有效，代表未設定）
func (g Goal) Valid() bool {
	switch g {
	case GoalNone, GoalLoseWeight, GoalBulk, GoalEatHealthy:
		return true
	}
	return false
}

// Nutrition 營養成分，所有欄位皆為非負整數，無法解析時為 0
type Nutrition struct {
	Calories           int `json:"calories"`
	CaloriesFat        int `json:"caloriesFat"`
	TotalFat           int `json:"totalFat"`
	SaturatedFat       int `json:"saturatedFat"`
	TransFat           int `json:"transFat"`
	PolyFat            int `json:"polyFat"`
	MonoFat            int `json:"monoFat"`
	Cholesterol        int `json:"cholesterol"`
	Sodium             int `json:"sodium"`
	Potassium          int `json:"potassium"`
	TotalCarbohydrates int `json:"totalCarbohydrates"`
	Fiber              int `json:"fiber"`
	Sugars             int `json:"sugars"`
	Protein            int `json:"protein"`
	CalciumDV          int `json:"calciumDV"`
	IronDV             int `json:"ironDV"`
}

// Normalize 將負值歸零
func (n *Nutrition) Normalize() {
	for _, f := range []*int{
		&n.Calories, &n.CaloriesFat, &n.TotalFat, &n.SaturatedFat, &n.TransFat,
		&n.PolyFat, &n.MonoFat, &n.Cholesterol, &n.Sodium, &n.Potassium,
		&n.TotalCarbohydrates, &n.Fiber, &n.Sugars, &n.Protein, &n.CalciumDV, &n.IronDV,
	} {
		if *f < 0 {
			*f = 0
		}
	}
}

// FoodItem 食物目錄項目，name 在目錄中唯一
type FoodItem struct {
	ID          string `json:"id"`
	Name        string `json:"name" validate:"required"`
	ServingSize string `json:"servingSize"`
	Ingredients string `json:"ingredients"`
	Allergens   string `json:"allergens"`
	// Preferences 為空白分隔的標籤字串，例如 "vegan vegetarian"
	Preferences string `json:"preferences"`
	Nutrition

	// DiningFacilities 讀取目錄時由餐點紀錄帶入，不會寫回 FoodInfo
	DiningFacilities []string `json:"diningFacilities,omitempty"`
}

// Tags 將 Preferences 拆成標籤
func (f *FoodItem) Tags() []string {
	return strings.Fields(f.Preferences)
}

// NewFoodItem 建立食物項目並套用預設值
func NewFoodItem(name string, nutrition Nutrition) FoodItem {
	nutrition.Normalize()
	return FoodItem{
		Name:      strings.TrimSpace(name),
		Nutrition: nutrition,
	}
}

// MealEntry 一筆供餐紀錄，建立後不再變更
type MealEntry struct {
	ID             string `json:"id,omitempty"`
	FoodID         string `json:"foodId,omitempty"`
	DiningHall     string `json:"diningHall"`
	DiningFacility string `json:"diningFacility" validate:"required"`
	MealType       string `json:"mealType" validate:"required"`
	DateServed     string `json:"dateServed" validate:"required"`
}

// ServingKey 去重鍵 (diningFacility, mealType, dateServed)
type ServingKey struct {
	DiningFacility string
	MealType       string
	DateServed     string
}

// Key 取得供餐紀錄的去重鍵
func (m MealEntry) Key() ServingKey {
	return ServingKey{
		DiningFacility: m.DiningFacility,
		MealType:       m.MealType,
		DateServed:     m.DateServed,
	}
}

// ObservedFood 一次爬取觀察到的食物與其供餐紀錄
type ObservedFood struct {
	FoodItem
	MealEntries []MealEntry `json:"mealEntries" validate:"dive"`
}

// UserProfile 使用者設定，推薦引擎只讀取
type UserProfile struct {
	ID                  string   `json:"id"`
	Allergies           []string `json:"allergies"`
	DietaryRestrictions []string `json:"dietaryRestrictions"`
	Goal                Goal     `json:"goal"`
	Preferences         []string `json:"preferences"`
	Locations           []string `json:"locations"`
}

// Recommendation 儲存的推薦結果，以 (UserID, Type) 為鍵
type Recommendation struct {
	ID        string    `json:"id,omitempty"`
	UserID    string    `json:"userId"`
	FoodIDs   []string  `json:"foodIds"`
	Type      string    `json:"type"`
	CreatedAt time.Time `json:"createdAt"`
}

// JoinIDs 以逗號串接食物 ID
func JoinIDs(ids []string) string {
	return strings.Join(ids, ",")
}

// SplitIDs 拆解逗號串接的食物 ID，空字串回傳空切片
func SplitIDs(s string) []string {
	if strings.TrimSpace(s) == "" {
		return []string{}
	}
	parts := strings.Split(s, ",")
	ids := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			ids = append(ids, p)
		}
	}
	return ids
}

// CleanText 將網站的 "N/A" 佔位字串視為空值
func CleanText(s string) string {
	s = strings.TrimSpace(s)
	if strings.EqualFold(s, NotAvailable) {
		return ""
	}
	return s
}
