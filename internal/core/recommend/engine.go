// Package recommend 依使用者設定過濾並排序食物目錄
package recommend

import (
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"illineats/internal/pkg/common"
)

// DefaultLimit 每份推薦的最大長度
const DefaultLimit = 20

// Weights 三項分數的權重，總和為 1
type Weights struct {
	Preference float64 `json:"preference"`
	Nutrition  float64 `json:"nutrition"`
	Location   float64 `json:"location"`
}

// Sum 權重總和
func (w Weights) Sum() float64 { return w.Preference + w.Nutrition + w.Location }

// policy 每個目標的權重、營養分數與同分排序
type policy struct {
	weights   Weights
	nutrition func(item *common.FoodItem) float64
	// tieBreak 回傳 true 表示 a 應排在 b 前
	tieBreak func(a, b *Scored) bool
}

var policies = map[common.Goal]policy{
	common.GoalLoseWeight: {
		weights:   Weights{Preference: 0.3, Nutrition: 0.5, Location: 0.2},
		nutrition: func(item *common.FoodItem) float64 { return float64(500-item.Calories) / 500 },
		tieBreak: func(a, b *Scored) bool {
			return a.Item.Calories < b.Item.Calories
		},
	},
	common.GoalBulk: {
		weights:   Weights{Preference: 0.2, Nutrition: 0.6, Location: 0.2},
		nutrition: func(item *common.FoodItem) float64 { return float64(item.Protein) / 5 },
		tieBreak: func(a, b *Scored) bool {
			if a.Item.Protein != b.Item.Protein {
				return a.Item.Protein > b.Item.Protein
			}
			return a.Item.Calories < b.Item.Calories
		},
	},
	common.GoalEatHealthy: {
		weights:   Weights{Preference: 0.3, Nutrition: 0.5, Location: 0.2},
		nutrition: func(*common.FoodItem) float64 { return 0 },
		tieBreak: func(a, b *Scored) bool {
			return a.NutritionalScore > b.NutritionalScore
		},
	},
}

var defaultPolicy = policy{
	weights:   Weights{Preference: 0.4, Nutrition: 0.4, Location: 0.2},
	nutrition: func(*common.FoodItem) float64 { return 0 },
	tieBreak:  func(a, b *Scored) bool { return false },
}

// WeightsFor 取得目標對應的權重，未知目標使用預設權重
func WeightsFor(goal common.Goal) Weights {
	return policyFor(goal).weights
}

func policyFor(goal common.Goal) policy {
	if p, ok := policies[goal]; ok {
		return p
	}
	return defaultPolicy
}

// Scored 單一食物的分數明細
type Scored struct {
	Item             common.FoodItem `json:"item"`
	PreferenceScore  float64         `json:"preference_score"`
	NutritionalScore float64         `json:"nutritional_score"`
	LocationScore    float64         `json:"location_score"`
	FinalScore       float64         `json:"final_score"`
}

// Engine 推薦引擎，只依賴傳入的資料
type Engine struct {
	limit int
}

// NewEngine limit 小於 1 時使用 DefaultLimit
func NewEngine(limit int) *Engine {
	if limit < 1 {
		limit = DefaultLimit
	}
	return &Engine{limit: limit}
}

// Recommend 回傳排序後的食物 ID
func (e *Engine) Recommend(user *common.UserProfile, catalog []common.FoodItem) []string {
	ranked := e.Rank(user, catalog)
	ids := make([]string, 0, len(ranked))
	for _, s := range ranked {
		ids = append(ids, s.Item.ID)
	}
	return ids
}

// Rank 依序套用過敏原過濾、飲食限制過濾、評分與排序，回傳前 limit 筆
func (e *Engine) Rank(user *common.UserProfile, catalog []common.FoodItem) []Scored {
	if !user.Goal.Valid() {
		err := common.NewValidationError(fmt.Sprintf("unknown goal %q", user.Goal))
		common.LogWarn("使用者目標無效，使用預設權重",
			zap.String("user_id", user.ID),
			zap.Error(err),
		)
	}

	allergies := common.NormalizeSet(user.Allergies)
	restrictions := common.NormalizeSet(user.DietaryRestrictions)

	survivors := make([]common.FoodItem, 0, len(catalog))
	for _, item := range catalog {
		if containsAllergen(item.Allergens, allergies) {
			continue
		}
		if !meetsRestrictions(item.Preferences, restrictions) {
			continue
		}
		survivors = append(survivors, item)
	}

	if len(survivors) == 0 {
		return []Scored{}
	}

	p := policyFor(user.Goal)
	preferences := common.NormalizeSet(user.Preferences)
	locations := common.NormalizeSet(user.Locations)

	scored := make([]Scored, len(survivors))
	for i := range survivors {
		item := survivors[i]
		item.Nutrition.Normalize()
		s := Scored{
			Item:             item,
			PreferenceScore:  preferenceScore(item.Ingredients, preferences),
			NutritionalScore: p.nutrition(&item),
			LocationScore:    locationScore(item.DiningFacilities, locations),
		}
		s.FinalScore = p.weights.Preference*s.PreferenceScore +
			p.weights.Nutrition*s.NutritionalScore +
			p.weights.Location*s.LocationScore
		scored[i] = s
	}

	sort.SliceStable(scored, func(i, j int) bool {
		a, b := &scored[i], &scored[j]
		if a.FinalScore != b.FinalScore {
			return a.FinalScore > b.FinalScore
		}
		return p.tieBreak(a, b)
	})

	if len(scored) > e.limit {
		scored = scored[:e.limit]
	}
	return scored
}

// containsAllergen 空白的過敏原欄位不會被排除
func containsAllergen(allergens string, allergies []string) bool {
	allergens = common.CleanText(allergens)
	if allergens == "" {
		return false
	}
	for _, a := range allergies {
		if common.ContainsFold(allergens, a) {
			return true
		}
	}
	return false
}

// meetsRestrictions 每個限制標籤都需出現在食物標籤中；沒有標籤的食物不符合任何限制
func meetsRestrictions(preferences string, restrictions []string) bool {
	preferences = common.CleanText(preferences)
	if preferences == "" {
		return len(restrictions) == 0
	}
	for _, r := range restrictions {
		if !common.ContainsFold(preferences, r) {
			return false
		}
	}
	return true
}

func preferenceScore(ingredients string, preferences []string) float64 {
	if len(preferences) == 0 {
		return 0
	}
	matched := 0
	for _, p := range preferences {
		if common.ContainsFold(ingredients, p) {
			matched++
		}
	}
	return float64(matched) / float64(len(preferences))
}

func locationScore(facilities, locations []string) float64 {
	if len(locations) == 0 {
		return 1
	}
	for _, f := range facilities {
		for _, l := range locations {
			if strings.EqualFold(strings.TrimSpace(f), l) {
				return 1
			}
		}
	}
	return 0
}
