package store

import (
	"strings"
	"time"

	"gorm.io/datatypes"

	"illineats/internal/pkg/common"
)

// 資料表名稱，沿用既有 Supabase 結構
const (
	TableFoodInfo       = "FoodInfo"
	TableMealDetails    = "mealDetails"
	TableRecommendation = "Recommendation"
	TableUser           = "User"
)

// FoodInfo 食物資料列
type FoodInfo struct {
	ID                 string `gorm:"column:id;primaryKey" json:"id"`
	Name               string `gorm:"column:name;uniqueIndex;not null" json:"name"`
	ServingSize        string `gorm:"column:servingSize" json:"servingSize"`
	Ingredients        string `gorm:"column:ingredients" json:"ingredients"`
	Allergens          string `gorm:"column:allergens" json:"allergens"`
	Preferences        string `gorm:"column:preferences" json:"preferences"`
	Calories           int    `gorm:"column:calories;default:0" json:"calories"`
	CaloriesFat        int    `gorm:"column:caloriesFat;default:0" json:"caloriesFat"`
	TotalFat           int    `gorm:"column:totalFat;default:0" json:"totalFat"`
	SaturatedFat       int    `gorm:"column:saturatedFat;default:0" json:"saturatedFat"`
	TransFat           int    `gorm:"column:transFat;default:0" json:"transFat"`
	PolyFat            int    `gorm:"column:polyFat;default:0" json:"polyFat"`
	MonoFat            int    `gorm:"column:monoFat;default:0" json:"monoFat"`
	Cholesterol        int    `gorm:"column:cholesterol;default:0" json:"cholesterol"`
	Sodium             int    `gorm:"column:sodium;default:0" json:"sodium"`
	Potassium          int    `gorm:"column:potassium;default:0" json:"potassium"`
	TotalCarbohydrates int    `gorm:"column:totalCarbohydrates;default:0" json:"totalCarbohydrates"`
	Fiber              int    `gorm:"column:fiber;default:0" json:"fiber"`
	Sugars             int    `gorm:"column:sugars;default:0" json:"sugars"`
	Protein            int    `gorm:"column:protein;default:0" json:"protein"`
	CalciumDV          int    `gorm:"column:calciumDV;default:0" json:"calciumDV"`
	IronDV             int    `gorm:"column:ironDV;default:0" json:"ironDV"`
}

func (FoodInfo) TableName() string { return TableFoodInfo }

// MealDetail 供餐紀錄資料列
type MealDetail struct {
	ID             string `gorm:"column:id;primaryKey" json:"id"`
	FoodID         string `gorm:"column:foodId;index;uniqueIndex:idx_meal_serving" json:"foodId"`
	DiningHall     string `gorm:"column:diningHall" json:"diningHall"`
	DiningFacility string `gorm:"column:diningFacility;uniqueIndex:idx_meal_serving" json:"diningFacility"`
	MealType       string `gorm:"column:mealType;uniqueIndex:idx_meal_serving" json:"mealType"`
	DateServed     string `gorm:"column:dateServed;index;uniqueIndex:idx_meal_serving" json:"dateServed"`
}

func (MealDetail) TableName() string { return TableMealDetails }

// RecommendationRow 推薦結果資料列，foodIds 為逗號串接
type RecommendationRow struct {
	ID        string    `gorm:"column:id;primaryKey" json:"id"`
	UserID    string    `gorm:"column:userId;uniqueIndex:idx_recommendation_user_type" json:"userId"`
	FoodIDs   string    `gorm:"column:foodIds" json:"foodIds"`
	CreatedAt time.Time `gorm:"column:createdAt;autoCreateTime:false" json:"createdAt"`
	Type      string    `gorm:"column:type;uniqueIndex:idx_recommendation_user_type" json:"type"`
}

func (RecommendationRow) TableName() string { return TableRecommendation }

// UserRow 使用者資料列
type UserRow struct {
	ID                  string                      `gorm:"column:id;primaryKey" json:"id"`
	Allergies           datatypes.JSONSlice[string] `gorm:"column:allergies" json:"allergies"`
	DietaryRestrictions string                      `gorm:"column:dietaryRestrictions" json:"dietaryRestrictions"`
	Goal                string                      `gorm:"column:goal" json:"goal"`
	Preferences         datatypes.JSONSlice[string] `gorm:"column:preferences" json:"preferences"`
	Locations           datatypes.JSONSlice[string] `gorm:"column:locations" json:"locations"`
}

func (UserRow) TableName() string { return TableUser }

func foodRowFrom(f *common.FoodItem) FoodInfo {
	n := f.Nutrition
	n.Normalize()
	return FoodInfo{
		ID:                 f.ID,
		Name:               f.Name,
		ServingSize:        f.ServingSize,
		Ingredients:        f.Ingredients,
		Allergens:          f.Allergens,
		Preferences:        f.Preferences,
		Calories:           n.Calories,
		CaloriesFat:        n.CaloriesFat,
		TotalFat:           n.TotalFat,
		SaturatedFat:       n.SaturatedFat,
		TransFat:           n.TransFat,
		PolyFat:            n.PolyFat,
		MonoFat:            n.MonoFat,
		Cholesterol:        n.Cholesterol,
		Sodium:             n.Sodium,
		Potassium:          n.Potassium,
		TotalCarbohydrates: n.TotalCarbohydrates,
		Fiber:              n.Fiber,
		Sugars:             n.Sugars,
		Protein:            n.Protein,
		CalciumDV:          n.CalciumDV,
		IronDV:             n.IronDV,
	}
}

func (r FoodInfo) toItem() common.FoodItem {
	item := common.FoodItem{
		ID:          r.ID,
		Name:        r.Name,
		ServingSize: r.ServingSize,
		Ingredients: common.CleanText(r.Ingredients),
		Allergens:   common.CleanText(r.Allergens),
		Preferences: common.CleanText(r.Preferences),
		Nutrition: common.Nutrition{
			Calories:           r.Calories,
			CaloriesFat:        r.CaloriesFat,
			TotalFat:           r.TotalFat,
			SaturatedFat:       r.SaturatedFat,
			TransFat:           r.TransFat,
			PolyFat:            r.PolyFat,
			MonoFat:            r.MonoFat,
			Cholesterol:        r.Cholesterol,
			Sodium:             r.Sodium,
			Potassium:          r.Potassium,
			TotalCarbohydrates: r.TotalCarbohydrates,
			Fiber:              r.Fiber,
			Sugars:             r.Sugars,
			Protein:            r.Protein,
			CalciumDV:          r.CalciumDV,
			IronDV:             r.IronDV,
		},
	}
	item.Nutrition.Normalize()
	return item
}

func mealRowFrom(m *common.MealEntry) MealDetail {
	return MealDetail{
		ID:             m.ID,
		FoodID:         m.FoodID,
		DiningHall:     m.DiningHall,
		DiningFacility: m.DiningFacility,
		MealType:       m.MealType,
		DateServed:     m.DateServed,
	}
}

func (r MealDetail) toEntry() common.MealEntry {
	return common.MealEntry{
		ID:             r.ID,
		FoodID:         r.FoodID,
		DiningHall:     r.DiningHall,
		DiningFacility: r.DiningFacility,
		MealType:       r.MealType,
		DateServed:     r.DateServed,
	}
}

func recommendationRowFrom(rec *common.Recommendation) RecommendationRow {
	return RecommendationRow{
		ID:        rec.ID,
		UserID:    rec.UserID,
		FoodIDs:   common.JoinIDs(rec.FoodIDs),
		CreatedAt: rec.CreatedAt,
		Type:      rec.Type,
	}
}

func (r RecommendationRow) toRecommendation() *common.Recommendation {
	return &common.Recommendation{
		ID:        r.ID,
		UserID:    r.UserID,
		FoodIDs:   common.SplitIDs(r.FoodIDs),
		Type:      r.Type,
		CreatedAt: r.CreatedAt,
	}
}

func userRowFrom(u *common.UserProfile) UserRow {
	return UserRow{
		ID:                  u.ID,
		Allergies:           datatypes.JSONSlice[string](common.NormalizeSet(u.Allergies)),
		DietaryRestrictions: strings.Join(common.NormalizeSet(u.DietaryRestrictions), " "),
		Goal:                string(u.Goal),
		Preferences:         datatypes.JSONSlice[string](common.NormalizeSet(u.Preferences)),
		Locations:           datatypes.JSONSlice[string](common.NormalizeSet(u.Locations)),
	}
}

func (r UserRow) toProfile() *common.UserProfile {
	return &common.UserProfile{
		ID:                  r.ID,
		Allergies:           common.NormalizeSet(r.Allergies),
		DietaryRestrictions: common.NormalizeSet(strings.Fields(r.DietaryRestrictions)),
		Goal:                common.Goal(strings.TrimSpace(r.Goal)),
		Preferences:         common.NormalizeSet(r.Preferences),
		Locations:           common.NormalizeSet(r.Locations),
	}
}
