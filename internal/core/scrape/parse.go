// Package scrape 產生菜單觀察結果：營養標示解析、抓取任務池與菜單來源
package scrape

import (
	"strconv"
	"strings"
	"unicode"

	"illineats/internal/core/classifier"
	"illineats/internal/pkg/common"
)

// DateLayout 供餐日期格式，例如 "Monday, March 04, 2024"
const DateLayout = "Monday, January 02, 2006"

// ParseNutrient 解析營養標示文字。
// 純數字直接轉換；含 g 或 mg 時只保留數字；其餘皆為 0。
func ParseNutrient(text string) int {
	trimmed := strings.TrimSpace(text)
	if isDigits(trimmed) {
		return atoi(trimmed)
	}
	if strings.Contains(text, "g") {
		return atoi(digitsOnly(text))
	}
	return 0
}

// ParseDailyValue 解析 "15%" 這類每日建議量百分比
func ParseDailyValue(text string) int {
	v := strings.TrimSpace(strings.ReplaceAll(text, "%", ""))
	if !isDigits(v) {
		return 0
	}
	return atoi(v)
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func atoi(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// hallFacilities 各用餐大樓內的餐廳
var hallFacilities = map[string][]string{
	"Ikenberry Dining Center (Ike)": {
		"Baked Expectations", "Don's Chophouse", "Euclid Street Deli", "Gregory Drive Diner",
		"Penne Lane", "Prairie Fire", "Soytainly", "Inclusive Solutions Kitchen at Ikenberry",
		"Build Your Own (Ike)",
	},
	"Illinois Street Dining Center (ISR)": {
		"Fusion 48", "Inclusive Solutions Kitchen at ISR", "Build Your Own (ISR)", "Grains & Greens",
		"Grillworks", "Latitude", "Saporito Pasta", "Saporito Pizza", "Rise & Dine", "Cafe a la Crumb",
	},
	"Pennsylvania Avenue Dining Hall (PAR)": {
		"Sky Garden", "Abbondante Grill", "Abbondante Pizza & Pasta", "Arugula's Salad Bar",
		"La Avenida", "Provolone Soup, Salad, Deli & Dessert Station", "Build Your Own (PAR)",
	},
	"Lincoln Avenue Dining Hall (Allen)": {
		"LAR Daily Menu", "Build Your Own (LAR)", "Kosher Kitchen",
	},
	"Field of Greens (LAR)": {
		"Field of Greens",
	},
}

var diningHalls = func() map[string]string {
	m := make(map[string]string)
	for hall, facilities := range hallFacilities {
		for _, f := range facilities {
			m[f] = hall
		}
	}
	return m
}()

// DiningHall 由餐廳名稱取得用餐大樓，未知時回傳原名稱
func DiningHall(facility string) string {
	if hall, ok := diningHalls[facility]; ok {
		return hall
	}
	return facility
}

// RawRecord 菜單來源提供的原始營養標示
type RawRecord struct {
	Name           string            `json:"name"`
	ServingSize    string            `json:"servingSize"`
	Ingredients    string            `json:"ingredients"`
	Allergens      string            `json:"allergens"`
	DiningFacility string            `json:"diningFacility"`
	Nutrients      map[string]string `json:"nutrients"`
	CalciumDV      string            `json:"calciumDV"`
	IronDV         string            `json:"ironDV"`
}

// Normalize 轉為觀察結果。只有取得食材時才計算飲食標籤。
func Normalize(raw RawRecord, task Task) common.ObservedFood {
	n := raw.Nutrients
	item := common.NewFoodItem(raw.Name, common.Nutrition{
		Calories:           ParseNutrient(n["calories"]),
		CaloriesFat:        ParseNutrient(n["caloriesFat"]),
		TotalFat:           ParseNutrient(n["totalFat"]),
		SaturatedFat:       ParseNutrient(n["saturatedFat"]),
		TransFat:           ParseNutrient(n["transFat"]),
		PolyFat:            ParseNutrient(n["polyFat"]),
		MonoFat:            ParseNutrient(n["monoFat"]),
		Cholesterol:        ParseNutrient(n["cholesterol"]),
		Sodium:             ParseNutrient(n["sodium"]),
		Potassium:          ParseNutrient(n["potassium"]),
		TotalCarbohydrates: ParseNutrient(n["totalCarbohydrates"]),
		Fiber:              ParseNutrient(n["fiber"]),
		Sugars:             ParseNutrient(n["sugars"]),
		Protein:            ParseNutrient(n["protein"]),
		CalciumDV:          ParseDailyValue(raw.CalciumDV),
		IronDV:             ParseDailyValue(raw.IronDV),
	})
	item.ServingSize = strings.TrimSpace(strings.TrimPrefix(raw.ServingSize, "Serving Size: "))
	item.Ingredients = common.CleanText(raw.Ingredients)
	item.Allergens = common.CleanText(raw.Allergens)
	if item.Ingredients != "" {
		item.Preferences = classifier.Classify(item.Ingredients, item.Name).String()
	}

	facility := strings.TrimSpace(raw.DiningFacility)
	return common.ObservedFood{
		FoodItem: item,
		MealEntries: []common.MealEntry{{
			DiningHall:     DiningHall(facility),
			DiningFacility: facility,
			MealType:       task.MealType,
			DateServed:     task.Date,
		}},
	}
}
