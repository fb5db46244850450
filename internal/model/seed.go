package model

import "time"

// InitialRecipes returns the starter collection shown to a fresh device that
// has no recipes and no household to pull from.
func InitialRecipes(now time.Time) []Recipe {
	ms := now.UnixMilli()
	return []Recipe{
		{
			ID:          "r1",
			Title:       "番茄炒蛋",
			Description: "经典国民家常菜，酸甜可口。",
			Image:       "https://picsum.photos/400/300?random=1",
			Category:    CategoryMainMeal,
			Tags:        []string{"米饭搭子", "快手菜"},
			Ingredients: []Ingredient{
				{Name: "鸡蛋", Amount: "3个"},
				{Name: "番茄", Amount: "2个"},
				{Name: "葱花", Amount: "适量"},
			},
			Steps: []RecipeStep{
				{Description: "鸡蛋打散备用"},
				{Description: "番茄切块"},
				{Description: "热锅炒蛋"},
				{Description: "加入番茄翻炒"},
			},
			CreatedAt:  ms,
			Rating:     4,
			IsFavorite: true,
		},
		{
			ID:          "r2",
			Title:       "牛油果吐司",
			Description: "健康减脂早餐，富含优质脂肪。",
			Image:       "https://picsum.photos/400/300?random=2",
			Category:    CategoryBreakfast,
			Tags:        []string{"减脂", "西式"},
			Ingredients: []Ingredient{
				{Name: "全麦面包", Amount: "2片"},
				{Name: "牛油果", Amount: "1个"},
				{Name: "黑胡椒", Amount: "少许"},
			},
			Steps: []RecipeStep{
				{Description: "面包烤至酥脆"},
				{Description: "牛油果捣泥涂抹"},
				{Description: "撒上黑胡椒"},
			},
			CreatedAt: ms - 10000,
			Rating:    5,
		},
		{
			ID:          "r3",
			Title:       "红烧肉",
			Description: "肥而不腻，入口即化。",
			Image:       "https://picsum.photos/400/300?random=3",
			Category:    CategoryMainMeal,
			Tags:        []string{"硬菜", "米饭搭子"},
			Ingredients: []Ingredient{
				{Name: "五花肉", Amount: "500g"},
				{Name: "冰糖", Amount: "20g"},
				{Name: "生姜", Amount: "3片"},
			},
			Steps: []RecipeStep{
				{Description: "五花肉焯水"},
				{Description: "炒糖色"},
				{Description: "炖煮1小时"},
				{Description: "收汁"},
			},
			CreatedAt: ms - 20000,
		},
	}
}
