// Package classifier 由食材文字推導飲食偏好標籤
package classifier

import (
	"strings"

	"illineats/internal/pkg/common"
)

// nonVeganIngredients 非純素成分，拼字與站上既有分類一致（含 "isenglass"）
var nonVeganIngredients = []string{
	"gelatin", "fish", "tuna", "salmon", "tilapia", "rennet", "carmine", "isenglass",
	"fish sauce", "anchovies", "suet", "lard", "cochineal", "shellac", "cysteine",
	"tyrosine", "enzymes", "collagen", "bone char", "whey", "casein", "fish oil",
	"omega-3", "confectioner", "beeswax", "oleic acid", "stearic acid", "vitamin d3",
	"lanolin", "lecithin", "glycerides", "glycerin", "lactic acid", "squalane",
	"squalene", "tallow", "glyceryl stearate", "vitamin a", "vitamin b12", "vitamin d2",
	"xanthan gum", "zinc stearate", "meat", "poultry", "chicken", "beef", "pork",
	"lamb", "venison", "rabbit", "duck", "goose", "turkey", "veal", "organ meat",
	"wild game", "seafood", "shellfish", "clams", "crab", "lobster", "shrimp",
	"oysters", "mussels", "eggs", "egg white", "egg yolk", "egg albumen", "mayonnaise",
	"aioli", "milk", "butter", "cheese", "cream", "yogurt", "honey",
}

// nonVegetarianIngredients 非蛋奶素成分，不含蛋、奶、蜂蜜
var nonVegetarianIngredients = []string{
	"gelatin", "rennet", "carmine", "isinglass", "fish", "tuna", "salmon", "tilapia",
	"fish sauce", "anchovies", "suet", "lard", "cochineal", "shellac", "cysteine",
	"tyrosine", "enzymes", "collagen", "bone char", "whey", "casein", "fish oil",
	"omega-3", "confectioner", "beeswax", "oleic acid", "stearic acid", "vitamin d3",
	"lanolin", "lecithin", "glycerides", "glycerin", "lactic acid", "squalane",
	"squalene", "tallow", "glyceryl stearate", "vitamin a", "vitamin b12", "vitamin d2",
	"xanthan gum", "zinc stearate", "meat", "poultry", "chicken", "beef", "pork",
	"lamb", "venison", "rabbit", "duck", "goose", "turkey", "veal", "organ meat",
	"wild game", "seafood", "shellfish", "clams", "crab", "lobster", "shrimp",
	"oysters", "mussels",
}

// Tags 分類結果，保持 halal、kosher、vegan、vegetarian 的固定順序
type Tags []string

// String 以空白串接，與 FoodInfo.preferences 欄位格式相同
func (t Tags) String() string {
	return strings.Join(t, " ")
}

// Has 是否含有標籤
func (t Tags) Has(tag string) bool {
	for _, v := range t {
		if v == tag {
			return true
		}
	}
	return false
}

// Classify 依食物名稱與食材文字判斷標籤。
// 比對為子字串比對，不檢查字詞邊界。
func Classify(ingredients, foodName string) Tags {
	tags := Tags{}

	name := strings.ToLower(foodName)
	if strings.Contains(name, common.TagHalal) {
		tags = append(tags, common.TagHalal)
	}
	if strings.Contains(name, common.TagKosher) {
		tags = append(tags, common.TagKosher)
	}

	text := strings.ToLower(ingredients)
	if containsAny(text, nonVeganIngredients) {
		return tags
	}

	tags = append(tags, common.TagVegan, common.TagVegetarian)

	// 兩份清單拼字不同時會出現 vegan 但非 vegetarian 的結果，沿用既有行為
	if containsAny(text, nonVegetarianIngredients) {
		tags = tags[:len(tags)-1]
	}

	return tags
}

// Matched 回傳文字中命中的非純素與非蛋奶素成分，供除錯使用
func Matched(ingredients string) (nonVegan, nonVegetarian []string) {
	text := strings.ToLower(ingredients)
	for _, term := range nonVeganIngredients {
		if strings.Contains(text, term) {
			nonVegan = append(nonVegan, term)
		}
	}
	for _, term := range nonVegetarianIngredients {
		if strings.Contains(text, term) {
			nonVegetarian = append(nonVegetarian, term)
		}
	}
	return nonVegan, nonVegetarian
}

func containsAny(text string, terms []string) bool {
	for _, term := range terms {
		if strings.Contains(text, term) {
			return true
		}
	}
	return false
}
